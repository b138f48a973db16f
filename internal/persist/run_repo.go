package persist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// RunRow is one journaled simulation run.
type RunRow struct {
	ID            string
	Scheduler     string
	Width         float64
	Height        float64
	Balls         int64
	Ticks         uint64
	Bounces       uint64
	Collisions    uint64
	Separating    uint64
	Clamps        uint64
	Notifications uint64
	DiagWritten   uint64
	DiagDropped   uint64
	StartedAt     time.Time
	FinishedAt    time.Time
}

// Duration is the wall-clock length of the run.
func (r *RunRow) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

type RunRepo struct {
	db *DB
}

func NewRunRepo(db *DB) *RunRepo {
	return &RunRepo{db: db}
}

// Save inserts a finished run. Saving the same id twice overwrites the counters.
func (r *RunRepo) Save(ctx context.Context, row *RunRow) error {
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO runs (id, scheduler, width, height, balls, ticks, bounces, collisions,
		                   separating, clamps, notifications, diag_written, diag_dropped,
		                   started_at, finished_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		 ON CONFLICT (id) DO UPDATE SET
		     ticks = EXCLUDED.ticks, bounces = EXCLUDED.bounces,
		     collisions = EXCLUDED.collisions, separating = EXCLUDED.separating,
		     clamps = EXCLUDED.clamps, notifications = EXCLUDED.notifications,
		     diag_written = EXCLUDED.diag_written, diag_dropped = EXCLUDED.diag_dropped,
		     finished_at = EXCLUDED.finished_at`,
		row.ID, row.Scheduler, row.Width, row.Height, row.Balls,
		int64(row.Ticks), int64(row.Bounces), int64(row.Collisions),
		int64(row.Separating), int64(row.Clamps), int64(row.Notifications),
		int64(row.DiagWritten), int64(row.DiagDropped),
		row.StartedAt, row.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("save run %s: %w", row.ID, err)
	}
	r.db.log.Debug("run saved", zap.String("run", row.ID))
	return nil
}

// Load returns the run with the given id, or nil if none.
func (r *RunRepo) Load(ctx context.Context, id string) (*RunRow, error) {
	row := &RunRow{}
	var ticks, bounces, collisions, separating, clamps, notifications, written, dropped int64
	err := r.db.Pool.QueryRow(ctx,
		`SELECT id::text, scheduler, width, height, balls, ticks, bounces, collisions,
		        separating, clamps, notifications, diag_written, diag_dropped,
		        started_at, finished_at
		 FROM runs WHERE id = $1`, id,
	).Scan(
		&row.ID, &row.Scheduler, &row.Width, &row.Height, &row.Balls,
		&ticks, &bounces, &collisions, &separating, &clamps, &notifications,
		&written, &dropped, &row.StartedAt, &row.FinishedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	row.Ticks = uint64(ticks)
	row.Bounces = uint64(bounces)
	row.Collisions = uint64(collisions)
	row.Separating = uint64(separating)
	row.Clamps = uint64(clamps)
	row.Notifications = uint64(notifications)
	row.DiagWritten = uint64(written)
	row.DiagDropped = uint64(dropped)
	return row, nil
}

// Recent returns up to limit run ids, newest first.
func (r *RunRepo) Recent(ctx context.Context, limit int) ([]string, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT id::text FROM runs ORDER BY started_at DESC LIMIT $1`, limit,
	)
	if err != nil {
		return nil, err
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("collect runs: %w", err)
	}
	return ids, nil
}
