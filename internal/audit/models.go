// Package audit captures the append-only trail of lifecycle actions. Events
// are written through a store; the Postgres store doubles as a transactional
// outbox drained by the relay into Kafka.
package audit

import (
	"time"

	id "casefile/pkg/domain"
)

// Action names one audited lifecycle operation.
type Action string

const (
	ActionCaseCreated    Action = "case.created"
	ActionCaseAssigned   Action = "case.assigned"
	ActionNoteAdded      Action = "case.note_added"
	ActionCloseRequested Action = "case.close_requested"
	ActionCloseApproved  Action = "case.close_approved"
	ActionCloseDeclined  Action = "case.close_declined"
	ActionCaseClosed     Action = "case.closed"
	ActionCaseRejected   Action = "case.rejected"
	ActionCaseUpdated    Action = "case.updated"
	ActionCaseDeleted    Action = "case.deleted"
)

// Event is emitted after every successful lifecycle transition. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	ID        int64          `json:"id,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Action    Action         `json:"action"`
	CaseID    id.CaseID      `json:"case_id"`
	ActorID   id.PrincipalID `json:"actor_id"`
	ActorRole id.Role        `json:"actor_role,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
	Detail    string         `json:"detail,omitempty"`
	ClientIP  string         `json:"client_ip,omitempty"`
	UserAgent string         `json:"user_agent,omitempty"`
}
