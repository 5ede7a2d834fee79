package audit

import (
	"context"

	id "casefile/pkg/domain"
)

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByCase(ctx context.Context, caseID id.CaseID) ([]Event, error)
}

// OutboxStore extends Store with the draining side of a transactional
// outbox: unpublished events are fetched in insertion order and marked once
// the broker accepts them.
type OutboxStore interface {
	Store
	NextBatch(ctx context.Context, limit int) ([]Event, error)
	MarkPublished(ctx context.Context, eventIDs []int64) error
}
