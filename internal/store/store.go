// Package store archives run summaries to PostgreSQL. Archiving is optional:
// the pipeline runs identically without a database, and an archive failure is
// logged but never fails the run.
package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/vexlio/sigcor-cli/api/schemas"
)

// DBPool abstracts pgxpool.Pool so tests can substitute a mock.
type DBPool interface {
	Ping(ctx context.Context) error
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Store provides the PostgreSQL run archive.
type Store struct {
	pool DBPool
	log  *zap.Logger
}

// New creates a store instance and verifies the connection.
func New(ctx context.Context, pool DBPool, logger *zap.Logger) (*Store, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Store{
		pool: pool,
		log:  logger.Named("store"),
	}, nil
}

const insertRunSQL = `
    INSERT INTO runs (
        id, generated_at, score, level, trend, confidence,
        total_threats, correlated_signals, dominant_pattern, enrichment_model
    ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
`

// ArchiveRun inserts one run summary row.
func (s *Store) ArchiveRun(ctx context.Context, run *schemas.RunArtifact) error {
	correlated := 0
	pattern := string(schemas.PatternInsufficient)
	if run.Intel.Correlation != nil {
		correlated = run.Intel.Correlation.Summary.CorrelatedSignals
		pattern = string(run.Intel.Correlation.DominantPattern)
	}

	_, err := s.pool.Exec(ctx, insertRunSQL,
		run.RunID,
		run.GeneratedAt.UTC(),
		run.Risk.Score,
		string(run.Risk.Level),
		string(run.Risk.Trend),
		run.Risk.Confidence,
		run.Intel.Summary.TotalThreats,
		correlated,
		pattern,
		run.Enrichment.Model,
	)
	if err != nil {
		return fmt.Errorf("failed to archive run %s: %w", run.RunID, err)
	}

	s.log.Info("Run archived", zap.String("run_id", run.RunID))
	return nil
}

// RunSummary is one archived run row, as read back for trend inspection.
type RunSummary struct {
	RunID string
	Score int
	Level schemas.RiskLevel
}

// RecentRuns returns the most recent archived run summaries, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, score, level FROM runs ORDER BY generated_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var summary RunSummary
		var level string
		if err := rows.Scan(&summary.RunID, &summary.Score, &level); err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		summary.Level = schemas.RiskLevel(level)
		runs = append(runs, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed reading run rows: %w", err)
	}
	return runs, nil
}
