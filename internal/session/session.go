// Package session keeps per-conversation message history for the transports.
// The pipeline itself is stateless.
package session

import (
	"context"
	"sync"
	"time"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of a conversation.
type Message struct {
	Role      string    `json:"type"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Sources   []string  `json:"sources,omitempty"`
}

// Store persists conversations keyed by conversation ID.
type Store interface {
	// Get returns the messages of a conversation in order; unknown IDs yield an empty slice.
	Get(ctx context.Context, id string) ([]Message, error)
	Append(ctx context.Context, id string, msgs ...Message) error
	// Clear removes every conversation.
	Clear(ctx context.Context) error
}

// MemoryStore keeps conversations in process memory.
type MemoryStore struct {
	mu    sync.Mutex
	convs map[string][]Message
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{convs: make(map[string][]Message)}
}

func (s *MemoryStore) Get(_ context.Context, id string) ([]Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Message, len(s.convs[id]))
	copy(out, s.convs[id])
	return out, nil
}

func (s *MemoryStore) Append(_ context.Context, id string, msgs ...Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.convs[id] = append(s.convs[id], msgs...)
	return nil
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.convs = make(map[string][]Message)
	return nil
}
