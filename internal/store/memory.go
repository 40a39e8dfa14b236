package store

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"mindmate/pkg"
)

// Memory is an in-process Store.  It is owned by whoever constructs it; there
// is no package-level instance.
type Memory struct {
	mu    sync.RWMutex
	convs map[string]*pkg.Conversation
	limit int
	now   func() time.Time
}

// NewMemory constructs an empty in-memory store.  limit <= 0 selects
// DefaultHistoryLimit.
func NewMemory(limit int) *Memory {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &Memory{
		convs: make(map[string]*pkg.Conversation),
		limit: limit,
		now:   time.Now,
	}
}

func (m *Memory) Get(ctx context.Context, id string) (*pkg.Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.convs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(c), nil
}

func (m *Memory) Append(ctx context.Context, id string, msgs ...pkg.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	c, ok := m.convs[id]
	if !ok {
		c = &pkg.Conversation{ID: id, CreatedAt: now}
		m.convs[id] = c
	}
	for _, msg := range msgs {
		if msg.CreatedAt.IsZero() {
			msg.CreatedAt = now
		}
		c.Messages = append(c.Messages, msg)
	}
	if len(c.Messages) > m.limit {
		c.Messages = append([]pkg.Message(nil), c.Messages[len(c.Messages)-m.limit:]...)
	}
	c.LastMessageAt = now
	return nil
}

func (m *Memory) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.convs[id]; !ok {
		return ErrNotFound
	}
	delete(m.convs, id)
	return nil
}

// Len reports how many conversations are held.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.convs)
}

// Sweep evicts conversations idle for longer than ttl and returns how many
// were removed.
func (m *Memory) Sweep(ttl time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := m.now().Add(-ttl)
	n := 0
	for id, c := range m.convs {
		if c.LastMessageAt.Before(cutoff) {
			delete(m.convs, id)
			n++
		}
	}
	return n
}

// RunJanitor sweeps idle conversations every interval until ctx is done.
func (m *Memory) RunJanitor(ctx context.Context, interval, ttl time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.Sweep(ttl); n > 0 {
				slog.Debug("store.Memory: evicted idle conversations", "count", n)
			}
		}
	}
}

// Close drops every conversation.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.convs = make(map[string]*pkg.Conversation)
	return nil
}

func clone(c *pkg.Conversation) *pkg.Conversation {
	out := *c
	out.Messages = make([]pkg.Message, len(c.Messages))
	copy(out.Messages, c.Messages)
	return &out
}
