package report

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var (
	ErrRunNotFound = errors.New("run not found")
)

const (
	defaultLimit = 50
	maxLimit     = 1000
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS stress_runs (
		id TEXT PRIMARY KEY,
		workload TEXT NOT NULL,
		workers INTEGER NOT NULL,
		iterations INTEGER NOT NULL,
		acquired BIGINT NOT NULL,
		expected BIGINT NOT NULL,
		counter BIGINT NOT NULL,
		try_failures BIGINT NOT NULL,
		violations BIGINT NOT NULL,
		started_at TIMESTAMP NOT NULL,
		finished_at TIMESTAMP NOT NULL,
		error TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_stress_runs_workload ON stress_runs (workload, started_at)`,
}

const selectRuns = "SELECT id, workload, workers, iterations, acquired, expected, counter, try_failures, violations, started_at, finished_at, error FROM stress_runs"

type Driver interface {
	Conn() *sqlx.DB
	Close() error
}

type Store struct {
	Database Driver
}

func New(driver Driver) *Store {
	return &Store{
		Database: driver,
	}
}

// Migrate creates the schema. It is safe to run more than once.
func (s *Store) Migrate(ctx context.Context) error {
	return s.tx(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		for _, stmt := range migrations {
			_, err := tx.ExecContext(ctx, stmt)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) Save(ctx context.Context, run Run) error {
	_, err := s.Database.Conn().NamedExecContext(ctx,
		`INSERT INTO stress_runs (id, workload, workers, iterations, acquired, expected, counter, try_failures, violations, started_at, finished_at, error)
		VALUES (:id, :workload, :workers, :iterations, :acquired, :expected, :counter, :try_failures, :violations, :started_at, :finished_at, :error)`,
		run,
	)
	return err
}

func (s *Store) Get(ctx context.Context, id uuid.UUID) (Run, error) {
	var run Run

	query := s.Database.Conn().Rebind(selectRuns + " WHERE id = ?")
	err := s.Database.Conn().GetContext(ctx, &run, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return run, ErrRunNotFound
		}
		return run, err
	}

	return run, nil
}

// List returns the most recent runs first.
func (s *Store) List(ctx context.Context, filter Filter) (Runs, error) {
	var (
		runs  = make(Runs, 0)
		query = selectRuns
	)

	clause, arg := filter.Filter("AND")
	if clause != "" {
		query += " WHERE " + clause
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	query += fmt.Sprintf(" ORDER BY started_at DESC LIMIT %d", limit)

	query, args, err := sqlx.Named(query, arg)
	if err != nil {
		return runs, err
	}

	query, args, err = sqlx.In(query, args...)
	if err != nil {
		return runs, err
	}
	query = s.Database.Conn().Rebind(query)

	err = s.Database.Conn().SelectContext(ctx, &runs, query, args...)
	if err != nil {
		return runs, err
	}

	return runs, nil
}

func (s *Store) Close() error {
	return s.Database.Close()
}

func (s *Store) tx(ctx context.Context, fn func(ctx context.Context, tx *sqlx.Tx) error) error {
	tx, err := s.Database.Conn().BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	err = fn(ctx, tx)
	if err != nil {
		_ = tx.Rollback()
		return err
	}

	return tx.Commit()
}
