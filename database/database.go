// Package database is an optional Postgres sink that keeps findings across
// runs so hygiene drift is queryable over time.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

type Database struct {
	pool *pgxpool.Pool
	log  zerolog.Logger
}

// Connect opens a pool and ensures the runs/findings tables exist.
func Connect(ctx context.Context, dsn string, log zerolog.Logger) (*Database, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to connect: %w", err)
	}

	db := &Database{pool: pool, log: log}
	if err := db.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return db, nil
}

func (db *Database) Close() {
	db.pool.Close()
}

func (db *Database) ensureSchema(ctx context.Context) error {
	_, err := db.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS runs (
			run_id UUID PRIMARY KEY,
			tool TEXT NOT NULL,
			started_at TIMESTAMPTZ NOT NULL
		);
		CREATE TABLE IF NOT EXISTS findings (
			finding_id BIGSERIAL PRIMARY KEY,
			run_id UUID NOT NULL REFERENCES runs(run_id),
			subject TEXT NOT NULL,
			detail TEXT NOT NULL,
			recorded_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`)
	if err != nil {
		return fmt.Errorf("ensuring schema: %w", err)
	}

	return nil
}

// BeginRun records one tool invocation and returns its id.
func (db *Database) BeginRun(ctx context.Context, tool string) (uuid.UUID, error) {
	runID := uuid.New()

	_, err := db.pool.Exec(ctx, `
		INSERT INTO runs (run_id, tool, started_at)
		VALUES ($1, $2, $3)
	`, runID, tool, time.Now().UTC())
	if err != nil {
		return uuid.Nil, fmt.Errorf("recording run: %w", err)
	}

	return runID, nil
}

func rollbackOrCommit(ctx context.Context, tx pgx.Tx, err *error, log zerolog.Logger) {
	if *err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			log.Error().Err(rbErr).AnErr("cause", *err).Msg("transaction rollback failed")
		}
		return
	}

	if cmErr := tx.Commit(ctx); cmErr != nil {
		*err = fmt.Errorf("commit failed: %w", cmErr)
	}
}

// WriteFindings stores one batch of findings for a run in a single
// transaction. subject/detail mirror the first and remaining CSV columns.
func (db *Database) WriteFindings(ctx context.Context, runID uuid.UUID, findings [][2]string) (err error) {
	if len(findings) == 0 {
		return nil
	}

	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer rollbackOrCommit(ctx, tx, &err, db.log)

	for _, finding := range findings {
		if _, err = tx.Exec(ctx, `
			INSERT INTO findings (run_id, subject, detail)
			VALUES ($1, $2, $3)
		`, runID, finding[0], finding[1]); err != nil {
			return fmt.Errorf("insert finding: %w", err)
		}
	}

	return nil
}
