package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"mindmate/pkg"
)

// openTestDB connects to MINDMATE_TEST_DATABASE_URL or skips.
func openTestDB(t *testing.T) (*sql.DB, string) {
	t.Helper()
	dsn := os.Getenv("MINDMATE_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("MINDMATE_TEST_DATABASE_URL not set")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		t.Skipf("database unavailable: %v", err)
	}
	if err := Migrate(ctx, db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, dsn
}

func TestPostgresRoundTrip(t *testing.T) {
	db, _ := openTestDB(t)
	ctx := context.Background()
	p := NewPostgres(db, 3)
	id := uuid.NewString()

	if _, err := p.Get(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	for _, content := range []string{"1", "2", "3", "4"} {
		if err := p.Append(ctx, id, pkg.Message{Role: pkg.RoleUser, Content: content, CrisisLevel: "NONE"}); err != nil {
			t.Fatal(err)
		}
	}
	c, err := p.Get(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if len(c.Messages) != 3 || c.Messages[0].Content != "2" || c.Messages[2].Content != "4" {
		t.Errorf("unexpected trailing history %+v", c.Messages)
	}
	if err := p.Delete(ctx, id); err != nil {
		t.Fatal(err)
	}
	if err := p.Delete(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestNotifierPublishListen(t *testing.T) {
	db, dsn := openTestDB(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	n := NewNotifier(db, dsn, "crisis_alerts_test")
	alerts, err := n.Listen(ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := pkg.CrisisAlert{ConversationID: "c1", Level: "CRITICAL", Triggers: []string{"muốn chết"}}
	if err := n.Publish(ctx, want); err != nil {
		t.Fatal(err)
	}
	select {
	case got := <-alerts:
		if got.ConversationID != want.ConversationID || got.Level != want.Level {
			t.Errorf("unexpected alert %+v", got)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for alert")
	}
}

func TestMigrateIsRepeatable(t *testing.T) {
	db, _ := openTestDB(t)
	if err := Migrate(context.Background(), db); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
}
