// Package models holds the officer roster types.
package models

import (
	"strings"
	"time"

	id "casefile/pkg/domain"
	dErrors "casefile/pkg/domain-errors"
)

// Officer is one roster entry. Only active officers may be assigned cases.
type Officer struct {
	ID        id.OfficerID `json:"id"`
	Name      string       `json:"name"`
	Badge     string       `json:"badge"`
	Rank      string       `json:"rank,omitempty"`
	Active    bool         `json:"active"`
	CreatedAt time.Time    `json:"created_at"`
}

// NewOfficer constructs an active roster entry.
func NewOfficer(officerID id.OfficerID, name, badge, rank string, now time.Time) (*Officer, error) {
	name = strings.TrimSpace(name)
	badge = strings.TrimSpace(badge)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "officer name is required")
	}
	if badge == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "officer badge is required")
	}
	return &Officer{
		ID:        officerID,
		Name:      name,
		Badge:     badge,
		Rank:      strings.TrimSpace(rank),
		Active:    true,
		CreatedAt: now,
	}, nil
}

// CanBeAssigned reports whether the officer may take on case work.
func (o *Officer) CanBeAssigned() error {
	if !o.Active {
		return dErrors.Newf(dErrors.CodeOfficerNotFound, "officer %s is inactive", o.ID)
	}
	return nil
}
