package db

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ticket-tagger/backend/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS tagging_runs (
	id          TEXT PRIMARY KEY,
	input_path  TEXT NOT NULL,
	output_path TEXT NOT NULL,
	status      TEXT NOT NULL,
	summary     JSONB,
	started_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	finished_at TIMESTAMPTZ
)`

type Store struct {
	Pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Store{Pool: pool}, nil
}

func (s *Store) Close() {
	s.Pool.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.Pool.Ping(ctx)
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.Pool.Exec(ctx, schema)
	return err
}

func (s *Store) CreateRun(ctx context.Context, runID string, input, output string) error {
	_, err := s.Pool.Exec(ctx,
		`INSERT INTO tagging_runs (id, input_path, output_path, status, started_at) VALUES ($1, $2, $3, 'RUNNING', NOW())`,
		runID, input, output)
	return err
}

func (s *Store) FinishRun(ctx context.Context, runID string, status string, summary []byte) error {
	_, err := s.Pool.Exec(ctx, `UPDATE tagging_runs SET status = $1, summary = $2, finished_at = NOW() WHERE id = $3`, status, summary, runID)
	return err
}

// GetLatestRun returns pgx.ErrNoRows when no run was recorded yet.
func (s *Store) GetLatestRun(ctx context.Context) (models.Run, error) {
	row := s.Pool.QueryRow(ctx, `SELECT id, started_at, finished_at, status, summary FROM tagging_runs ORDER BY started_at DESC LIMIT 1`)
	var (
		run      models.Run
		finished *time.Time
		summary  []byte
	)
	if err := row.Scan(&run.ID, &run.StartedAt, &finished, &run.Status, &summary); err != nil {
		return models.Run{}, err
	}
	run.FinishedAt = finished
	if len(summary) > 0 {
		run.Summary = json.RawMessage(summary)
	}
	return run, nil
}

func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
