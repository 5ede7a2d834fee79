package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"casefile/internal/cases/models"
	id "casefile/pkg/domain"
	"casefile/pkg/platform/sentinel"
)

// entry pairs a record with its own mutex so Execute serializes per record,
// not across the whole store.
type entry struct {
	mu  sync.Mutex
	rec *models.CaseRecord
}

// InMemoryStore keeps case records in a map for tests and local development.
type InMemoryStore struct {
	mu    sync.RWMutex
	cases map[id.CaseID]*entry
}

// NewMemory constructs an empty in-memory case store.
func NewMemory() *InMemoryStore {
	return &InMemoryStore{cases: make(map[id.CaseID]*entry)}
}

func (s *InMemoryStore) Create(_ context.Context, rec *models.CaseRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cases[rec.ID]; ok {
		return fmt.Errorf("case %s already exists: %w", rec.ID, sentinel.ErrConflict)
	}
	s.cases[rec.ID] = &entry{rec: rec.Clone()}
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, caseID id.CaseID) (*models.CaseRecord, error) {
	s.mu.RLock()
	e, ok := s.cases[caseID]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("case %s not found: %w", caseID, sentinel.ErrNotFound)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rec.Clone(), nil
}

func (s *InMemoryStore) List(_ context.Context, filter Filter) ([]*models.CaseRecord, error) {
	s.mu.RLock()
	entries := make([]*entry, 0, len(s.cases))
	for _, e := range s.cases {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	out := make([]*models.CaseRecord, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		rec := e.rec.Clone()
		e.mu.Unlock()
		if matches(rec, filter) {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func matches(rec *models.CaseRecord, filter Filter) bool {
	if filter.Status != nil && rec.Status != *filter.Status {
		return false
	}
	if filter.AssignedOfficer != nil && !rec.IsAssignedTo(*filter.AssignedOfficer) {
		return false
	}
	if filter.CreatedBy != nil && !rec.IsCreator(*filter.CreatedBy) {
		return false
	}
	return true
}

// Execute runs validate then mutate under the record's lock. The mutation is
// applied to the stored record and the version counter advances by one.
// Callers receive a clone; aliasing the store's copy is impossible.
func (s *InMemoryStore) Execute(_ context.Context, caseID id.CaseID, validate func(*models.CaseRecord) error, mutate func(*models.CaseRecord)) (*models.CaseRecord, error) {
	s.mu.RLock()
	e, ok := s.cases[caseID]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("case %s not found: %w", caseID, sentinel.ErrNotFound)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := validate(e.rec); err != nil {
		return nil, err
	}
	mutate(e.rec)
	e.rec.Version++
	return e.rec.Clone(), nil
}

func (s *InMemoryStore) Delete(_ context.Context, caseID id.CaseID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cases[caseID]; !ok {
		return fmt.Errorf("case %s not found: %w", caseID, sentinel.ErrNotFound)
	}
	delete(s.cases, caseID)
	return nil
}
