package session

import (
	"context"
	"sync"

	"github.com/lexrag/lexrag/core"
)

// Store holds one transcript per conversation id. Sessions are created
// lazily on first write and are never deleted by this layer.
// Implementations must be safe for concurrent use.
type Store interface {
	// History returns the latest persisted transcript for the id, or an
	// empty sequence if the id has never been used. The returned slice is
	// the caller's to keep: mutating it must not affect the store.
	History(ctx context.Context, chatID string) ([]core.Message, error)

	// Append adds messages to the end of the transcript.
	Append(ctx context.Context, chatID string, messages ...core.Message) error

	// Replace swaps the whole transcript. Used by the state machine to
	// commit the trimmed working history plus the new turn.
	Replace(ctx context.Context, chatID string, messages []core.Message) error

	// Close releases backend resources.
	Close() error
}

// MemoryStore is the default in-process Store: a map guarded by a RWMutex.
// Durability is process lifetime; swap in session/badger for a durable store.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]core.Message
}

// NewMemoryStore creates an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string][]core.Message)}
}

// History returns a copy of the stored transcript.
func (s *MemoryStore) History(ctx context.Context, chatID string) ([]core.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.sessions[chatID]
	history := make([]core.Message, len(stored))
	copy(history, stored)
	return history, nil
}

// Append adds messages to the transcript, creating the session lazily.
func (s *MemoryStore) Append(ctx context.Context, chatID string, messages ...core.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[chatID] = append(s.sessions[chatID], messages...)
	return nil
}

// Replace swaps the transcript for its own copy of messages.
func (s *MemoryStore) Replace(ctx context.Context, chatID string, messages []core.Message) error {
	stored := make([]core.Message, len(messages))
	copy(stored, messages)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[chatID] = stored
	return nil
}

// Close is a no-op for the in-process store.
func (s *MemoryStore) Close() error {
	return nil
}

var _ Store = (*MemoryStore)(nil)
