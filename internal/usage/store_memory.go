package usage

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps events in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	events []Event
}

// NewMemoryStore constructs an in-memory usage store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Record(ctx context.Context, e Event) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	s.mu.Lock()
	s.events = append(s.events, e)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Summary(ctx context.Context, ownerID string) (Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := Summary{ByOutcome: map[string]int{}}
	for _, e := range s.events {
		if e.OwnerID != ownerID {
			continue
		}
		out.Calls++
		out.ByOutcome[e.Outcome]++
		out.PromptTokens += e.PromptTokens
		out.CompletionTokens += e.CompletionTokens
	}
	return out, nil
}

// Events returns a copy of all recorded events.
func (s *MemoryStore) Events() []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Event(nil), s.events...)
}

var _ Store = (*MemoryStore)(nil)
