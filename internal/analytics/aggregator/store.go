// Package aggregator persists periodic snapshots of the analytics
// aggregator to the SQL database.
package aggregator

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/College-Search-Platform/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/College-Search-Platform/pkg/database"
)

// Store persists aggregated analytics snapshots.
//
// It requires an `analytics_snapshots` table:
//
//	CREATE TABLE analytics_snapshots (
//	    id          BIGSERIAL PRIMARY KEY,   -- INTEGER PRIMARY KEY on sqlite
//	    data        TEXT NOT NULL,
//	    captured_at TIMESTAMP NOT NULL
//	);
type Store struct {
	db     *database.Client
	logger *slog.Logger
}

func NewStore(db *database.Client) *Store {
	return &Store{
		db:     db,
		logger: slog.Default().With("component", "analytics-store"),
	}
}

type snapshotRow struct {
	Data       string    `db:"data"`
	CapturedAt time.Time `db:"captured_at"`
}

// SaveSnapshot persists a stats snapshot to the database.
func (s *Store) SaveSnapshot(ctx context.Context, stats analytics.AggregatedStats) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("marshaling stats: %w", err)
	}
	_, err = s.db.DB.NamedExecContext(ctx,
		`INSERT INTO analytics_snapshots (data, captured_at) VALUES (:data, :captured_at)`,
		snapshotRow{Data: string(data), CapturedAt: time.Now().UTC()},
	)
	if err != nil {
		return fmt.Errorf("saving analytics snapshot: %w", err)
	}
	s.logger.Info("analytics snapshot saved",
		"total_searches", stats.TotalSearches,
		"zero_results", stats.ZeroResultCount,
	)
	return nil
}

// LatestSnapshot loads the most recent snapshot. It returns nil, nil when no
// snapshot exists yet.
func (s *Store) LatestSnapshot(ctx context.Context) (*analytics.AggregatedStats, error) {
	var row snapshotRow
	err := s.db.DB.GetContext(ctx, &row,
		`SELECT data, captured_at FROM analytics_snapshots ORDER BY captured_at DESC, id DESC LIMIT 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying latest snapshot: %w", err)
	}
	var stats analytics.AggregatedStats
	if err := json.Unmarshal([]byte(row.Data), &stats); err != nil {
		return nil, fmt.Errorf("unmarshaling snapshot: %w", err)
	}
	return &stats, nil
}

// ListSnapshots returns the last limit snapshots, newest first.
func (s *Store) ListSnapshots(ctx context.Context, limit int) ([]analytics.AggregatedStats, error) {
	var rows []snapshotRow
	query := s.db.DB.Rebind(`SELECT data, captured_at FROM analytics_snapshots ORDER BY captured_at DESC, id DESC LIMIT ?`)
	if err := s.db.DB.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	snapshots := make([]analytics.AggregatedStats, 0, len(rows))
	for _, row := range rows {
		var stats analytics.AggregatedStats
		if err := json.Unmarshal([]byte(row.Data), &stats); err != nil {
			s.logger.Warn("skipping corrupt snapshot", "captured_at", row.CapturedAt, "error", err)
			continue
		}
		snapshots = append(snapshots, stats)
	}
	return snapshots, nil
}

// StartPeriodicSave snapshots agg every interval until ctx is done, then
// writes one final snapshot.
func (s *Store) StartPeriodicSave(ctx context.Context, agg *analytics.Aggregator, interval time.Duration) {
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
