package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/newsgap/internal/domain"
)

var _ domain.RunStore = (*RunStore)(nil)

// RunStore implements domain.RunStore using PostgreSQL. Signals are stored
// one row per rank with the full signal as a JSONB payload; the scalar
// columns beside it exist for filtering and indexing.
type RunStore struct {
	pool *pgxpool.Pool
}

// NewRunStore creates a new RunStore backed by the given connection pool.
func NewRunStore(pool *pgxpool.Pool) *RunStore {
	return &RunStore{pool: pool}
}

const runSelectCols = `id, started_at, duration_ms, generated_at,
	news_scanned, markets_scanned, signal_count, avg_score,
	snapshot_path, source_errors`

// SaveRun inserts a run and all of its signals in one transaction.
func (s *RunStore) SaveRun(ctx context.Context, run domain.DislocationRun) error {
	sourceErrors := run.SourceErrors
	if sourceErrors == nil {
		sourceErrors = []string{}
	}
	sourceErrorsJSON, err := json.Marshal(sourceErrors)
	if err != nil {
		return fmt.Errorf("postgres: marshal source errors: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin save run %s: %w", run.ID, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const insertRun = `
		INSERT INTO dislocation_runs (
			id, started_at, duration_ms, generated_at,
			news_scanned, markets_scanned, signal_count, avg_score,
			snapshot_path, source_errors
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	meta := run.Result.Meta
	if _, err := tx.Exec(ctx, insertRun,
		run.ID, run.StartedAt, run.Duration.Milliseconds(), meta.GeneratedAt,
		meta.NewsSourcesScanned, meta.MarketsScanned, meta.SignalCount, meta.AvgDislocationScore,
		run.SnapshotPath, sourceErrorsJSON,
	); err != nil {
		return fmt.Errorf("postgres: insert run %s: %w", run.ID, err)
	}

	if len(run.Result.Signals) > 0 {
		const insertSignal = `
			INSERT INTO dislocation_signals (
				run_id, rank, signal_id, score, direction, conviction,
				news_id, market_id, event_id, payload
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

		batch := &pgx.Batch{}
		for i, sig := range run.Result.Signals {
			payload, err := json.Marshal(sig)
			if err != nil {
				return fmt.Errorf("postgres: marshal signal %s: %w", sig.ID, err)
			}
			batch.Queue(insertSignal,
				run.ID, i+1, sig.ID, sig.Score, string(sig.Direction), string(sig.Conviction),
				sig.News.ID, sig.Market.ID, sig.Market.EventID, payload,
			)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("postgres: insert signals for run %s: %w", run.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit run %s: %w", run.ID, err)
	}
	return nil
}

// GetRun returns a run with its signals in rank order.
func (s *RunStore) GetRun(ctx context.Context, id string) (domain.DislocationRun, error) {
	query := `SELECT ` + runSelectCols + ` FROM dislocation_runs WHERE id = $1`

	run, err := scanRun(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.DislocationRun{}, fmt.Errorf("postgres: run %s: %w", id, domain.ErrNotFound)
		}
		return domain.DislocationRun{}, fmt.Errorf("postgres: get run %s: %w", id, err)
	}

	signals, err := s.loadSignals(ctx, []string{id})
	if err != nil {
		return domain.DislocationRun{}, err
	}
	run.Result.Signals = signals[id]
	return run, nil
}

// ListRuns returns run summaries, newest first.
func (s *RunStore) ListRuns(ctx context.Context, opts domain.ListOpts) ([]domain.RunSummary, error) {
	query, args := runListQuery(opts)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list runs: %w", err)
	}
	defer rows.Close()

	out := make([]domain.RunSummary, 0)
	for rows.Next() {
		var r domain.RunSummary
		if err := rows.Scan(
			&r.ID, &r.StartedAt, &r.SignalCount, &r.AvgDislocationScore,
			&r.NewsSourcesScanned, &r.MarketsScanned, &r.SnapshotPath,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan run summary: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list runs rows: %w", err)
	}
	return out, nil
}

// ListBefore returns every run started before the cutoff, oldest first,
// with signals attached.
func (s *RunStore) ListBefore(ctx context.Context, before time.Time) ([]domain.DislocationRun, error) {
	query := `SELECT ` + runSelectCols + ` FROM dislocation_runs
		WHERE started_at < $1 ORDER BY started_at ASC`

	rows, err := s.pool.Query(ctx, query, before)
	if err != nil {
		return nil, fmt.Errorf("postgres: list runs before %s: %w", before.Format(time.RFC3339), err)
	}
	defer rows.Close()

	var runs []domain.DislocationRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list runs before rows: %w", err)
	}
	if len(runs) == 0 {
		return runs, nil
	}

	ids := make([]string, len(runs))
	for i, r := range runs {
		ids[i] = r.ID
	}
	signals, err := s.loadSignals(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range runs {
		runs[i].Result.Signals = signals[runs[i].ID]
	}
	return runs, nil
}

// DeleteBefore removes runs started before the cutoff. Signals go with
// them through the foreign key cascade.
func (s *RunStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	const query = `DELETE FROM dislocation_runs WHERE started_at < $1`

	tag, err := s.pool.Exec(ctx, query, before)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete runs before %s: %w", before.Format(time.RFC3339), err)
	}
	return tag.RowsAffected(), nil
}

func (s *RunStore) loadSignals(ctx context.Context, runIDs []string) (map[string][]domain.DislocationSignal, error) {
	const query = `SELECT run_id, payload FROM dislocation_signals
		WHERE run_id = ANY($1) ORDER BY run_id, rank`

	rows, err := s.pool.Query(ctx, query, runIDs)
	if err != nil {
		return nil, fmt.Errorf("postgres: load signals: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]domain.DislocationSignal, len(runIDs))
	for rows.Next() {
		var runID string
		var payload []byte
		if err := rows.Scan(&runID, &payload); err != nil {
			return nil, fmt.Errorf("postgres: scan signal: %w", err)
		}
		var sig domain.DislocationSignal
		if err := json.Unmarshal(payload, &sig); err != nil {
			return nil, fmt.Errorf("postgres: unmarshal signal for run %s: %w", runID, err)
		}
		out[runID] = append(out[runID], sig)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: load signals rows: %w", err)
	}
	return out, nil
}

func scanRun(row pgx.Row) (domain.DislocationRun, error) {
	var (
		run          domain.DislocationRun
		durationMs   int64
		sourceErrors []byte
	)
	err := row.Scan(
		&run.ID, &run.StartedAt, &durationMs, &run.Result.Meta.GeneratedAt,
		&run.Result.Meta.NewsSourcesScanned, &run.Result.Meta.MarketsScanned,
		&run.Result.Meta.SignalCount, &run.Result.Meta.AvgDislocationScore,
		&run.SnapshotPath, &sourceErrors,
	)
	if err != nil {
		return domain.DislocationRun{}, err
	}
	run.Duration = time.Duration(durationMs) * time.Millisecond
	if len(sourceErrors) > 0 {
		if err := json.Unmarshal(sourceErrors, &run.SourceErrors); err != nil {
			return domain.DislocationRun{}, fmt.Errorf("unmarshal source errors: %w", err)
		}
		if len(run.SourceErrors) == 0 {
			run.SourceErrors = nil
		}
	}
	return run, nil
}

func runListQuery(opts domain.ListOpts) (string, []any) {
	query := `SELECT id, started_at, signal_count, avg_score,
		news_scanned, markets_scanned, snapshot_path
		FROM dislocation_runs WHERE 1=1`
	args := []any{}
	argIdx := 1

	if opts.Since != nil {
		query += fmt.Sprintf(" AND started_at >= $%d", argIdx)
		args = append(args, *opts.Since)
		argIdx++
	}
	if opts.Until != nil {
		query += fmt.Sprintf(" AND started_at <= $%d", argIdx)
		args = append(args, *opts.Until)
		argIdx++
	}

	query += " ORDER BY started_at DESC"

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	return query, args
}
