package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"casefile/internal/cases/models"
	id "casefile/pkg/domain"
	"casefile/pkg/platform/sentinel"
)

// Schema creates the case tables. Applied by EnsureSchema; every statement
// is idempotent so repeated application is safe.
const Schema = `
CREATE TABLE IF NOT EXISTS cases (
    id               UUID PRIMARY KEY,
    status           TEXT NOT NULL,
    complainant      TEXT NOT NULL DEFAULT '',
    details          TEXT NOT NULL,
    attachments      TEXT[] NOT NULL DEFAULT '{}',
    priority         TEXT NOT NULL DEFAULT '',
    assigned_officer UUID,
    created_by       UUID,
    created_at       TIMESTAMPTZ NOT NULL,
    updated_at       TIMESTAMPTZ NOT NULL,
    version          BIGINT NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_cases_status ON cases (status);
CREATE INDEX IF NOT EXISTS idx_cases_assigned_officer ON cases (assigned_officer);
CREATE INDEX IF NOT EXISTS idx_cases_created_by ON cases (created_by);

CREATE TABLE IF NOT EXISTS case_notes (
    id         BIGSERIAL PRIMARY KEY,
    case_id    UUID NOT NULL REFERENCES cases (id) ON DELETE CASCADE,
    seq        INT NOT NULL,
    author     UUID NOT NULL,
    note       TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL,
    UNIQUE (case_id, seq)
);

CREATE TABLE IF NOT EXISTS case_close_requests (
    id             BIGSERIAL PRIMARY KEY,
    case_id        UUID NOT NULL REFERENCES cases (id) ON DELETE CASCADE,
    seq            INT NOT NULL,
    requested_by   UUID NOT NULL,
    requested_at   TIMESTAMPTZ NOT NULL,
    reason         TEXT NOT NULL,
    approved_by    UUID,
    approved_at    TIMESTAMPTZ,
    declined_by    UUID,
    declined_at    TIMESTAMPTZ,
    decline_reason TEXT NOT NULL DEFAULT '',
    UNIQUE (case_id, seq)
);
`

// PostgresStore persists case records in PostgreSQL. Execute takes a
// SELECT ... FOR UPDATE row lock for the duration of validate and mutate so
// concurrent transitions on the same case serialize at the database.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgres constructs a PostgreSQL-backed case store.
func NewPostgres(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// EnsureSchema applies the case tables.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("apply case schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Create(ctx context.Context, rec *models.CaseRecord) error {
	_, err := s.pool.Exec(ctx, `
        INSERT INTO cases (id, status, complainant, details, attachments, priority,
                           assigned_officer, created_by, created_at, updated_at, version)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		uuid.UUID(rec.ID), string(rec.Status), rec.Complainant, rec.Details,
		attachmentsArg(rec.Attachments), rec.Priority,
		officerArg(rec.AssignedOfficer), principalArg(rec.CreatedBy),
		rec.CreatedAt, rec.UpdatedAt, rec.Version,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("case %s already exists: %w", rec.ID, sentinel.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("insert case: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (s *PostgresStore) FindByID(ctx context.Context, caseID id.CaseID) (*models.CaseRecord, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin find: %w", err)
	}
	defer tx.Rollback(ctx)

	rec, err := loadCase(ctx, tx, caseID, false)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit find: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) List(ctx context.Context, filter Filter) ([]*models.CaseRecord, error) {
	query := `SELECT id FROM cases WHERE 1=1`
	args := []any{}
	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.AssignedOfficer != nil {
		args = append(args, uuid.UUID(*filter.AssignedOfficer))
		query += fmt.Sprintf(" AND assigned_officer = $%d", len(args))
	}
	if filter.CreatedBy != nil {
		args = append(args, uuid.UUID(*filter.CreatedBy))
		query += fmt.Sprintf(" AND created_by = $%d", len(args))
	}
	query += " ORDER BY created_at, id"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list cases: %w", err)
	}
	ids, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (uuid.UUID, error) {
		var u uuid.UUID
		err := row.Scan(&u)
		return u, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan case ids: %w", err)
	}

	out := make([]*models.CaseRecord, 0, len(ids))
	for _, u := range ids {
		rec, err := s.FindByID(ctx, id.CaseID(u))
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				continue // deleted between the two queries
			}
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// Execute locks the case row FOR UPDATE, rebuilds the aggregate, runs
// validate and mutate, and writes back the delta: the mutable case row is
// updated, new notes and close cycles are appended, and the latest cycle's
// resolution fields are refreshed. The version check on the final UPDATE
// guards against lost writes if the row lock is ever bypassed.
func (s *PostgresStore) Execute(ctx context.Context, caseID id.CaseID, validate func(*models.CaseRecord) error, mutate func(*models.CaseRecord)) (*models.CaseRecord, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin execute: %w", err)
	}
	defer tx.Rollback(ctx)

	rec, err := loadCase(ctx, tx, caseID, true)
	if err != nil {
		return nil, err
	}

	if err := validate(rec); err != nil {
		return nil, err
	}

	notesBefore := len(rec.Notes)
	cyclesBefore := len(rec.CloseHistory)
	mutate(rec)

	tag, err := tx.Exec(ctx, `
        UPDATE cases
        SET status = $2, complainant = $3, details = $4, attachments = $5,
            priority = $6, assigned_officer = $7, updated_at = $8, version = version + 1
        WHERE id = $1 AND version = $9`,
		uuid.UUID(rec.ID), string(rec.Status), rec.Complainant, rec.Details,
		attachmentsArg(rec.Attachments), rec.Priority,
		officerArg(rec.AssignedOfficer), rec.UpdatedAt, rec.Version,
	)
	if err != nil {
		return nil, fmt.Errorf("update case: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, fmt.Errorf("case %s version mismatch: %w", caseID, sentinel.ErrConflict)
	}
	rec.Version++

	for i := notesBefore; i < len(rec.Notes); i++ {
		n := rec.Notes[i]
		if _, err := tx.Exec(ctx, `
            INSERT INTO case_notes (case_id, seq, author, note, created_at)
            VALUES ($1, $2, $3, $4, $5)`,
			uuid.UUID(rec.ID), i, uuid.UUID(n.Author), n.Text, n.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("insert case note: %w", err)
		}
	}

	for i := cyclesBefore; i < len(rec.CloseHistory); i++ {
		cr := rec.CloseHistory[i]
		if _, err := tx.Exec(ctx, `
            INSERT INTO case_close_requests (case_id, seq, requested_by, requested_at, reason,
                                             approved_by, approved_at, declined_by, declined_at, decline_reason)
            VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			uuid.UUID(rec.ID), i, uuid.UUID(cr.RequestedBy), cr.RequestedAt, cr.Reason,
			principalArg(cr.ApprovedBy), cr.ApprovedAt, principalArg(cr.DeclinedBy), cr.DeclinedAt, cr.DeclineReason,
		); err != nil {
			return nil, fmt.Errorf("insert close request: %w", err)
		}
	}

	// An existing latest cycle may have been resolved by this mutation.
	if cyclesBefore > 0 && cyclesBefore == len(rec.CloseHistory) {
		cr := rec.CloseHistory[cyclesBefore-1]
		if _, err := tx.Exec(ctx, `
            UPDATE case_close_requests
            SET approved_by = $3, approved_at = $4, declined_by = $5, declined_at = $6, decline_reason = $7
            WHERE case_id = $1 AND seq = $2`,
			uuid.UUID(rec.ID), cyclesBefore-1,
			principalArg(cr.ApprovedBy), cr.ApprovedAt, principalArg(cr.DeclinedBy), cr.DeclinedAt, cr.DeclineReason,
		); err != nil {
			return nil, fmt.Errorf("update close request: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit execute: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) Delete(ctx context.Context, caseID id.CaseID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM cases WHERE id = $1`, uuid.UUID(caseID))
	if err != nil {
		return fmt.Errorf("delete case: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("case %s not found: %w", caseID, sentinel.ErrNotFound)
	}
	return nil
}

func loadCase(ctx context.Context, tx pgx.Tx, caseID id.CaseID, forUpdate bool) (*models.CaseRecord, error) {
	query := `
        SELECT id, status, complainant, details, attachments, priority,
               assigned_officer, created_by, created_at, updated_at, version
        FROM cases WHERE id = $1`
	if forUpdate {
		query += " FOR UPDATE"
	}

	var (
		rec             models.CaseRecord
		caseUUID        uuid.UUID
		status          string
		assignedOfficer *uuid.UUID
		createdBy       *uuid.UUID
	)
	err := tx.QueryRow(ctx, query, uuid.UUID(caseID)).Scan(
		&caseUUID, &status, &rec.Complainant, &rec.Details, &rec.Attachments,
		&rec.Priority, &assignedOfficer, &createdBy,
		&rec.CreatedAt, &rec.UpdatedAt, &rec.Version,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("case %s not found: %w", caseID, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load case: %w", err)
	}
	rec.ID = id.CaseID(caseUUID)
	rec.Status = models.Status(status)
	if assignedOfficer != nil {
		officer := id.OfficerID(*assignedOfficer)
		rec.AssignedOfficer = &officer
	}
	if createdBy != nil {
		creator := id.PrincipalID(*createdBy)
		rec.CreatedBy = &creator
	}

	noteRows, err := tx.Query(ctx, `
        SELECT author, note, created_at FROM case_notes
        WHERE case_id = $1 ORDER BY seq`, caseUUID)
	if err != nil {
		return nil, fmt.Errorf("load case notes: %w", err)
	}
	rec.Notes, err = pgx.CollectRows(noteRows, func(row pgx.CollectableRow) (models.Note, error) {
		var (
			n      models.Note
			author uuid.UUID
		)
		err := row.Scan(&author, &n.Text, &n.CreatedAt)
		n.Author = id.PrincipalID(author)
		return n, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan case notes: %w", err)
	}
	if len(rec.Notes) == 0 {
		rec.Notes = nil
	}

	crRows, err := tx.Query(ctx, `
        SELECT requested_by, requested_at, reason, approved_by, approved_at,
               declined_by, declined_at, decline_reason
        FROM case_close_requests WHERE case_id = $1 ORDER BY seq`, caseUUID)
	if err != nil {
		return nil, fmt.Errorf("load close requests: %w", err)
	}
	rec.CloseHistory, err = pgx.CollectRows(crRows, func(row pgx.CollectableRow) (models.CloseRequest, error) {
		var (
			cr          models.CloseRequest
			requestedBy uuid.UUID
			approvedBy  *uuid.UUID
			declinedBy  *uuid.UUID
		)
		err := row.Scan(&requestedBy, &cr.RequestedAt, &cr.Reason,
			&approvedBy, &cr.ApprovedAt, &declinedBy, &cr.DeclinedAt, &cr.DeclineReason)
		cr.RequestedBy = id.OfficerID(requestedBy)
		if approvedBy != nil {
			p := id.PrincipalID(*approvedBy)
			cr.ApprovedBy = &p
		}
		if declinedBy != nil {
			p := id.PrincipalID(*declinedBy)
			cr.DeclinedBy = &p
		}
		return cr, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan close requests: %w", err)
	}
	if len(rec.CloseHistory) == 0 {
		rec.CloseHistory = nil
	}

	return &rec, nil
}

func officerArg(v *id.OfficerID) *uuid.UUID {
	if v == nil {
		return nil
	}
	u := uuid.UUID(*v)
	return &u
}

func principalArg(v *id.PrincipalID) *uuid.UUID {
	if v == nil {
		return nil
	}
	u := uuid.UUID(*v)
	return &u
}

func attachmentsArg(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
