package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"mindmate/pkg"
)

// Postgres stores conversations in PostgreSQL.  Every message is kept; Get
// returns only the trailing history limit.
type Postgres struct {
	DB    *sql.DB
	limit int
}

// NewPostgres constructs a Postgres store from an existing sql.DB.  The
// caller is responsible for running Migrate first.
func NewPostgres(db *sql.DB, limit int) *Postgres {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &Postgres{DB: db, limit: limit}
}

func (p *Postgres) Get(ctx context.Context, id string) (*pkg.Conversation, error) {
	c := pkg.Conversation{ID: id}
	err := p.DB.QueryRowContext(ctx,
		`SELECT created_at, last_message_at FROM conversations WHERE id = $1`, id,
	).Scan(&c.CreatedAt, &c.LastMessageAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load conversation %s: %w", id, err)
	}

	// Take the newest rows then restore chronological order.
	rows, err := p.DB.QueryContext(ctx,
		`SELECT role, content, crisis_level, created_at FROM (
             SELECT id, role, content, crisis_level, created_at
             FROM messages
             WHERE conversation_id = $1
             ORDER BY id DESC
             LIMIT $2
         ) recent ORDER BY id ASC`, id, p.limit)
	if err != nil {
		return nil, fmt.Errorf("load messages %s: %w", id, err)
	}
	defer rows.Close()
	c.Messages = []pkg.Message{}
	for rows.Next() {
		var m pkg.Message
		if err := rows.Scan(&m.Role, &m.Content, &m.CrisisLevel, &m.CreatedAt); err != nil {
			return nil, err
		}
		c.Messages = append(c.Messages, m)
	}
	return &c, rows.Err()
}

func (p *Postgres) Append(ctx context.Context, id string, msgs ...pkg.Message) error {
	tx, err := p.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO conversations (id, created_at, last_message_at)
         VALUES ($1, $2, $2)
         ON CONFLICT (id) DO UPDATE SET last_message_at = EXCLUDED.last_message_at`,
		id, now,
	); err != nil {
		return fmt.Errorf("upsert conversation %s: %w", id, err)
	}
	for _, m := range msgs {
		created := m.CreatedAt
		if created.IsZero() {
			created = now
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO messages (conversation_id, role, content, crisis_level, created_at)
             VALUES ($1, $2, $3, $4, $5)`,
			id, m.Role, m.Content, m.CrisisLevel, created,
		); err != nil {
			return fmt.Errorf("insert message %s: %w", id, err)
		}
	}
	return tx.Commit()
}

func (p *Postgres) Delete(ctx context.Context, id string) error {
	res, err := p.DB.ExecContext(ctx, `DELETE FROM conversations WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Close closes the underlying connection pool.
func (p *Postgres) Close() error {
	return p.DB.Close()
}
