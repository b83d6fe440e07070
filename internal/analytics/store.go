package analytics

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/aiteacher/chat-search-service/pkg/postgres"
	"github.com/aiteacher/chat-search-service/pkg/resilience"
)

// Store persists aggregated analytics snapshots in PostgreSQL so stats
// survive restarts of the search service.
//
// It requires an `analytics_snapshots` table:
//
//	CREATE TABLE analytics_snapshots (
//	    id          BIGSERIAL PRIMARY KEY,
//	    data        JSONB NOT NULL,
//	    captured_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
//	);
type Store struct {
	db     *postgres.Client
	retry  resilience.RetryConfig
	logger *slog.Logger
}

// NewStore creates a new analytics persistence store.
func NewStore(db *postgres.Client) *Store {
	return &Store{
		db:     db,
		logger: slog.Default().With("component", "analytics-store"),
	}
}

// SaveSnapshot persists a stats snapshot, retrying transient database
// failures with backoff.
func (s *Store) SaveSnapshot(ctx context.Context, stats AggregatedStats) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("marshaling stats: %w", err)
	}

	err = resilience.Retry(ctx, "save-snapshot", s.retry, func() error {
		_, execErr := s.db.DB.ExecContext(ctx,
			`INSERT INTO analytics_snapshots (data, captured_at) VALUES ($1, $2)`,
			data, time.Now().UTC(),
		)
		return execErr
	})
	if err != nil {
		return fmt.Errorf("saving analytics snapshot: %w", err)
	}

	s.logger.Info("analytics snapshot saved",
		"total_searches", stats.TotalSearches,
		"total_indexed", stats.TotalIndexed,
	)
	return nil
}

// LatestSnapshot loads the most recent snapshot from the database.
// Returns nil, nil if no snapshots exist yet.
func (s *Store) LatestSnapshot(ctx context.Context) (*AggregatedStats, error) {
	var data []byte
	err := s.db.DB.QueryRowContext(ctx,
		`SELECT data FROM analytics_snapshots ORDER BY captured_at DESC LIMIT 1`,
	).Scan(&data)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying latest snapshot: %w", err)
	}

	var stats AggregatedStats
	if err := json.Unmarshal(data, &stats); err != nil {
		return nil, fmt.Errorf("unmarshaling snapshot: %w", err)
	}
	return &stats, nil
}

// ListSnapshots returns the last N snapshots, newest first.
func (s *Store) ListSnapshots(ctx context.Context, limit int) ([]AggregatedStats, error) {
	rows, err := s.db.DB.QueryContext(ctx,
		`SELECT data FROM analytics_snapshots ORDER BY captured_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []AggregatedStats
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scanning snapshot row: %w", err)
		}
		var stats AggregatedStats
		if err := json.Unmarshal(data, &stats); err != nil {
			s.logger.Warn("skipping corrupt snapshot", "error", err)
			continue
		}
		snapshots = append(snapshots, stats)
	}

	return snapshots, rows.Err()
}

// StartPeriodicSave launches a goroutine that periodically snapshots the
// aggregator's current stats to the database, with a final snapshot on
// shutdown.
func (s *Store) StartPeriodicSave(ctx context.Context, agg *Aggregator, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if err := s.SaveSnapshot(ctx, agg.Stats()); err != nil {
					s.logger.Error("periodic snapshot failed", "error", err)
				}
			case <-ctx.Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := s.SaveSnapshot(shutdownCtx, agg.Stats()); err != nil {
					s.logger.Error("final snapshot failed", "error", err)
				}
				return
			}
		}
	}()
	s.logger.Info("periodic snapshot started", "interval", interval)
}
