package audit

import (
	"context"
	"sync"

	id "casefile/pkg/domain"
)

// InMemoryStore keeps audit events in a slice for tests and dev mode. It
// implements OutboxStore so the relay is testable without PostgreSQL.
type InMemoryStore struct {
	mu        sync.Mutex
	events    []Event
	published map[int64]bool
	nextID    int64
}

// NewMemory constructs an empty in-memory audit store.
func NewMemory() *InMemoryStore {
	return &InMemoryStore{published: make(map[int64]bool), nextID: 1}
}

func (s *InMemoryStore) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	event.ID = s.nextID
	s.nextID++
	s.events = append(s.events, event)
	return nil
}

func (s *InMemoryStore) ListByCase(_ context.Context, caseID id.CaseID) ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Event
	for _, e := range s.events {
		if e.CaseID == caseID {
			out = append(out, e)
		}
	}
	return out, nil
}

// All returns every stored event in insertion order. Test helper.
func (s *InMemoryStore) All() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}

func (s *InMemoryStore) NextBatch(_ context.Context, limit int) ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Event
	for _, e := range s.events {
		if s.published[e.ID] {
			continue
		}
		out = append(out, e)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *InMemoryStore) MarkPublished(_ context.Context, eventIDs []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, eventID := range eventIDs {
		s.published[eventID] = true
	}
	return nil
}
