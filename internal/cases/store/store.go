// Package store defines the persistence boundary for case records.
//
// Error contract: all implementations return sentinel.ErrNotFound when the
// requested record does not exist, sentinel.ErrConflict on duplicate
// creation, and wrapped infrastructure errors otherwise. Validation errors
// raised inside Execute callbacks pass through unchanged.
package store

import (
	"context"

	"casefile/internal/cases/models"
	id "casefile/pkg/domain"
)

// Filter narrows List results. Nil fields match everything.
type Filter struct {
	Status          *models.Status
	AssignedOfficer *id.OfficerID
	CreatedBy       *id.PrincipalID
}

// Store persists case records.
//
// Execute is the only mutation path after creation: it loads the record,
// runs validate, and if that succeeds runs mutate and persists the result,
// all while holding the record's lock (a per-record mutex in memory, a
// SELECT ... FOR UPDATE row lock in PostgreSQL). Concurrent Execute calls
// against the same record serialize; each observes the previous call's
// mutation.
type Store interface {
	Create(ctx context.Context, rec *models.CaseRecord) error
	FindByID(ctx context.Context, caseID id.CaseID) (*models.CaseRecord, error)
	List(ctx context.Context, filter Filter) ([]*models.CaseRecord, error)
	Execute(ctx context.Context, caseID id.CaseID, validate func(*models.CaseRecord) error, mutate func(*models.CaseRecord)) (*models.CaseRecord, error)
	Delete(ctx context.Context, caseID id.CaseID) error
}
