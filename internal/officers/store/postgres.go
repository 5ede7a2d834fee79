package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"casefile/internal/officers/models"
	id "casefile/pkg/domain"
	"casefile/pkg/platform/sentinel"
)

// Schema creates the officer roster table. Applied by EnsureSchema.
const Schema = `
CREATE TABLE IF NOT EXISTS officers (
    id         UUID PRIMARY KEY,
    name       TEXT NOT NULL,
    badge      TEXT NOT NULL UNIQUE,
    rank       TEXT NOT NULL DEFAULT '',
    active     BOOLEAN NOT NULL DEFAULT TRUE,
    created_at TIMESTAMPTZ NOT NULL
);
`

// PostgresStore persists the officer roster in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgres constructs a PostgreSQL-backed roster store.
func NewPostgres(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// EnsureSchema applies the roster table.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("apply officer schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Create(ctx context.Context, officer *models.Officer) error {
	_, err := s.pool.Exec(ctx, `
        INSERT INTO officers (id, name, badge, rank, active, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.UUID(officer.ID), officer.Name, officer.Badge, officer.Rank,
		officer.Active, officer.CreatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("officer %s already exists: %w", officer.ID, sentinel.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("insert officer: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, officerID id.OfficerID) (*models.Officer, error) {
	officer, err := scanOfficer(s.pool.QueryRow(ctx, `
        SELECT id, name, badge, rank, active, created_at
        FROM officers WHERE id = $1`, uuid.UUID(officerID)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("officer %s not found: %w", officerID, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find officer: %w", err)
	}
	return officer, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*models.Officer, error) {
	rows, err := s.pool.Query(ctx, `
        SELECT id, name, badge, rank, active, created_at
        FROM officers ORDER BY badge`)
	if err != nil {
		return nil, fmt.Errorf("list officers: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*models.Officer, error) {
		return scanOfficer(row)
	})
	if err != nil {
		return nil, fmt.Errorf("scan officers: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) SetActive(ctx context.Context, officerID id.OfficerID, active bool) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE officers SET active = $2 WHERE id = $1`,
		uuid.UUID(officerID), active,
	)
	if err != nil {
		return fmt.Errorf("set officer active: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("officer %s not found: %w", officerID, sentinel.ErrNotFound)
	}
	return nil
}

func scanOfficer(row pgx.Row) (*models.Officer, error) {
	var (
		officer     models.Officer
		officerUUID uuid.UUID
	)
	err := row.Scan(&officerUUID, &officer.Name, &officer.Badge, &officer.Rank,
		&officer.Active, &officer.CreatedAt)
	if err != nil {
		return nil, err
	}
	officer.ID = id.OfficerID(officerUUID)
	return &officer, nil
}
