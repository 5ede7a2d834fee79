package audit

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	id "casefile/pkg/domain"
)

// Schema creates the audit outbox table. Applied by EnsureSchema.
const Schema = `
CREATE TABLE IF NOT EXISTS audit_events (
    id           BIGSERIAL PRIMARY KEY,
    timestamp    TIMESTAMPTZ NOT NULL,
    action       TEXT NOT NULL,
    case_id      UUID NOT NULL,
    actor_id     UUID NOT NULL,
    actor_role   TEXT NOT NULL DEFAULT '',
    request_id   TEXT NOT NULL DEFAULT '',
    detail       TEXT NOT NULL DEFAULT '',
    client_ip    TEXT NOT NULL DEFAULT '',
    user_agent   TEXT NOT NULL DEFAULT '',
    published_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_audit_events_case_id ON audit_events (case_id);
CREATE INDEX IF NOT EXISTS idx_audit_events_unpublished
    ON audit_events (id) WHERE published_at IS NULL;
`

// PostgresStore is the durable audit trail and the relay's transactional
// outbox: rows with a NULL published_at are pending broker delivery.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed audit store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema applies the outbox table.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("apply audit schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO audit_events (timestamp, action, case_id, actor_id, actor_role,
                                  request_id, detail, client_ip, user_agent)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		event.Timestamp, string(event.Action), uuid.UUID(event.CaseID),
		uuid.UUID(event.ActorID), string(event.ActorRole),
		event.RequestID, event.Detail, event.ClientIP, event.UserAgent,
	)
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByCase(ctx context.Context, caseID id.CaseID) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, timestamp, action, case_id, actor_id, actor_role,
               request_id, detail, client_ip, user_agent
        FROM audit_events WHERE case_id = $1 ORDER BY id`, uuid.UUID(caseID))
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()
	return collectEvents(rows)
}

// NextBatch returns up to limit unpublished events in insertion order.
// Publishing is at-least-once: a crash between broker delivery and
// MarkPublished re-delivers the batch.
func (s *PostgresStore) NextBatch(ctx context.Context, limit int) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, timestamp, action, case_id, actor_id, actor_role,
               request_id, detail, client_ip, user_agent
        FROM audit_events
        WHERE published_at IS NULL
        ORDER BY id
        LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch audit outbox batch: %w", err)
	}
	defer rows.Close()
	return collectEvents(rows)
}

func (s *PostgresStore) MarkPublished(ctx context.Context, eventIDs []int64) error {
	if len(eventIDs) == 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `
        UPDATE audit_events SET published_at = now()
        WHERE id = ANY($1)`, pq.Array(eventIDs))
	if err != nil {
		return fmt.Errorf("mark audit events published: %w", err)
	}
	return nil
}

func collectEvents(rows *sql.Rows) ([]Event, error) {
	var out []Event
	for rows.Next() {
		var (
			e         Event
			action    string
			caseUUID  uuid.UUID
			actorUUID uuid.UUID
			role      string
		)
		if err := rows.Scan(&e.ID, &e.Timestamp, &action, &caseUUID, &actorUUID,
			&role, &e.RequestID, &e.Detail, &e.ClientIP, &e.UserAgent); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		e.Action = Action(action)
		e.CaseID = id.CaseID(caseUUID)
		e.ActorID = id.PrincipalID(actorUUID)
		e.ActorRole = id.Role(role)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return out, nil
}
