package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"mindmate/pkg"
)

// DefaultAlertChannel is the NOTIFY channel crisis alerts are published on.
const DefaultAlertChannel = "crisis_alerts"

// Notifier wraps the LISTEN/NOTIFY mechanism in PostgreSQL.  It publishes a
// CrisisAlert whenever a message screens HIGH or CRITICAL so an operator
// process can follow up.
type Notifier struct {
	DB      *sql.DB
	DSN     string
	Channel string
}

// NewNotifier constructs a new Notifier.  dsn is used for the dedicated
// listener connection.
func NewNotifier(db *sql.DB, dsn, channel string) *Notifier {
	if channel == "" {
		channel = DefaultAlertChannel
	}
	return &Notifier{DB: db, DSN: dsn, Channel: channel}
}

// Publish sends alert as the JSON payload of a notification.
func (n *Notifier) Publish(ctx context.Context, alert pkg.CrisisAlert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return err
	}
	_, err = n.DB.ExecContext(ctx, `SELECT pg_notify($1, $2)`, n.Channel, string(payload))
	if err != nil {
		return fmt.Errorf("notify %s: %w", n.Channel, err)
	}
	return nil
}

// Listen subscribes to the channel and yields decoded alerts until ctx is
// cancelled, at which point the returned channel is closed.
func (n *Notifier) Listen(ctx context.Context) (<-chan pkg.CrisisAlert, error) {
	listener := pq.NewListener(n.DSN, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			slog.Warn("store.Notifier: listener event", "event", ev, "error", err)
		}
	})
	if err := listener.Listen(n.Channel); err != nil {
		_ = listener.Close()
		return nil, fmt.Errorf("listen %s: %w", n.Channel, err)
	}

	ch := make(chan pkg.CrisisAlert)
	go func() {
		defer func() {
			_ = listener.Close()
			close(ch)
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case note := <-listener.Notify:
				// nil after a reconnect
				if note == nil {
					continue
				}
				var alert pkg.CrisisAlert
				if err := json.Unmarshal([]byte(note.Extra), &alert); err != nil {
					slog.Warn("store.Notifier: bad payload", "error", err)
					continue
				}
				select {
				case ch <- alert:
				case <-ctx.Done():
					return
				}
			case <-time.After(90 * time.Second):
				if err := listener.Ping(); err != nil {
					slog.Warn("store.Notifier: ping failed", "error", err)
				}
			}
		}
	}()
	return ch, nil
}
