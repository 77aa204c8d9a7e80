package store

import (
	"context"
	"fmt"
	"time"
)

// ImportRun records the outcome of one commit-mode import for the
// status command.
type ImportRun struct {
	ID         string
	Mode       string
	StartedAt  time.Time
	FinishedAt time.Time
	Total      int
	Created    int
	Updated    int
	Problems   int
}

// RecordRun persists an import run summary.
func (s *Store) RecordRun(ctx context.Context, run *ImportRun) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO import_runs (id, mode, started_at, finished_at, total, created, updated, problems)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.Mode,
		run.StartedAt.UTC().Format(time.RFC3339Nano),
		run.FinishedAt.UTC().Format(time.RFC3339Nano),
		run.Total,
		run.Created,
		run.Updated,
		run.Problems,
	)
	if err != nil {
		return fmt.Errorf("record import run: %w", err)
	}
	return nil
}

// RecentRuns returns the latest import runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]*ImportRun, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, mode, started_at, finished_at, total, created, updated, problems
         FROM import_runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list import runs: %w", err)
	}
	defer rows.Close()

	var runs []*ImportRun
	for rows.Next() {
		var (
			run                  ImportRun
			startedRaw, finished string
		)
		if err := rows.Scan(&run.ID, &run.Mode, &startedRaw, &finished,
			&run.Total, &run.Created, &run.Updated, &run.Problems); err != nil {
			return nil, err
		}
		if t, err := time.Parse(time.RFC3339Nano, startedRaw); err == nil {
			run.StartedAt = t
		}
		if t, err := time.Parse(time.RFC3339Nano, finished); err == nil {
			run.FinishedAt = t
		}
		runs = append(runs, &run)
	}
	return runs, rows.Err()
}
