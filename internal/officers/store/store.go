// Package store defines the persistence boundary for the officer roster.
//
// Error contract: implementations return sentinel.ErrNotFound for unknown
// officers and sentinel.ErrConflict on duplicate creation.
package store

import (
	"context"

	"casefile/internal/officers/models"
	id "casefile/pkg/domain"
)

// Directory is the read side the case engine depends on: existence and
// activity checks before assignment.
type Directory interface {
	FindByID(ctx context.Context, officerID id.OfficerID) (*models.Officer, error)
}

// Store is the full roster persistence interface.
type Store interface {
	Directory
	Create(ctx context.Context, officer *models.Officer) error
	List(ctx context.Context) ([]*models.Officer, error)
	SetActive(ctx context.Context, officerID id.OfficerID, active bool) error
}
