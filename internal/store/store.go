package store

import (
	"context"
	"errors"

	"mindmate/pkg"
)

// ErrNotFound is returned when a conversation id is unknown.
var ErrNotFound = errors.New("conversation not found")

// DefaultHistoryLimit is how many trailing messages a conversation keeps for
// replay to the model.
const DefaultHistoryLimit = 20

// Store persists conversation history.  Implementations are safe for
// concurrent use; ordering of turns within one conversation is the caller's
// responsibility (see core.ChatService).
type Store interface {
	// Get returns the conversation with at most the history limit of
	// trailing messages, or ErrNotFound.
	Get(ctx context.Context, id string) (*pkg.Conversation, error)
	// Append adds messages to a conversation, creating it when needed.
	Append(ctx context.Context, id string, msgs ...pkg.Message) error
	// Delete removes a conversation, or returns ErrNotFound.
	Delete(ctx context.Context, id string) error
	// Close releases resources held by the store.
	Close() error
}
