package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"casefile/internal/officers/models"
	id "casefile/pkg/domain"
	"casefile/pkg/platform/sentinel"
)

// InMemoryStore keeps the roster in a map for tests and local development.
type InMemoryStore struct {
	mu       sync.RWMutex
	officers map[id.OfficerID]*models.Officer
}

// NewMemory constructs an empty in-memory roster.
func NewMemory() *InMemoryStore {
	return &InMemoryStore{officers: make(map[id.OfficerID]*models.Officer)}
}

func (s *InMemoryStore) Create(_ context.Context, officer *models.Officer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.officers[officer.ID]; ok {
		return fmt.Errorf("officer %s already exists: %w", officer.ID, sentinel.ErrConflict)
	}
	dup := *officer
	s.officers[officer.ID] = &dup
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, officerID id.OfficerID) (*models.Officer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	officer, ok := s.officers[officerID]
	if !ok {
		return nil, fmt.Errorf("officer %s not found: %w", officerID, sentinel.ErrNotFound)
	}
	dup := *officer
	return &dup, nil
}

func (s *InMemoryStore) List(_ context.Context) ([]*models.Officer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Officer, 0, len(s.officers))
	for _, officer := range s.officers {
		dup := *officer
		out = append(out, &dup)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Badge < out[j].Badge })
	return out, nil
}

func (s *InMemoryStore) SetActive(_ context.Context, officerID id.OfficerID, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	officer, ok := s.officers[officerID]
	if !ok {
		return fmt.Errorf("officer %s not found: %w", officerID, sentinel.ErrNotFound)
	}
	officer.Active = active
	return nil
}
