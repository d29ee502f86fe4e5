package postgres

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// AlertStore materializes alert rows for watchers of recalled products.
type AlertStore struct {
	pool   querier
	logger *zap.Logger
}

// NewAlertStore constructs an AlertStore over an existing pool.
func NewAlertStore(pool querier, logger *zap.Logger) (*AlertStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &AlertStore{pool: pool, logger: logger}, nil
}

const alertCandidatesQuery = `
SELECT DISTINCT
	w.watcher_id,
	r.id AS recall_id,
	w.product_id
FROM watchlist w
JOIN recalls r
	ON w.product_id = r.product_id
LEFT JOIN alerts a
	ON a.watcher_id = w.watcher_id AND a.recall_id = r.id
WHERE a.id IS NULL`

const insertAlertQuery = `
INSERT INTO alerts (watcher_id, recall_id, product_id, created_at)
VALUES ($1, $2, $3, NOW())
ON CONFLICT (watcher_id, recall_id) DO NOTHING`

// GenerateAlerts recomputes the full watchlist-recall join against existing
// alerts and inserts the missing (watcher, recall) pairs. Recomputing from
// the join every run keeps the result correct under at-least-once pipeline
// execution and out-of-order source merges; the full join is a known
// scaling limit at large watchlist/recall volumes.
//
// A conflicting concurrent insert is a success-no-op (RowsAffected 0), and
// a per-pair failure is logged and skipped without blocking other pairs.
func (s *AlertStore) GenerateAlerts(ctx context.Context) (int, error) {
	rows, err := s.pool.Query(ctx, alertCandidatesQuery)
	if err != nil {
		return 0, fmt.Errorf("query alert candidates: %w", err)
	}
	defer rows.Close()

	type candidate struct {
		watcherID int64
		recallID  int64
		productID string
	}
	var candidates []candidate
	for rows.Next() {
		var c candidate
		if err := rows.Scan(&c.watcherID, &c.recallID, &c.productID); err != nil {
			return 0, fmt.Errorf("scan alert candidate: %w", err)
		}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("iterate alert candidates: %w", err)
	}

	created := 0
	for _, c := range candidates {
		tag, err := s.pool.Exec(ctx, insertAlertQuery, c.watcherID, c.recallID, c.productID)
		if err != nil {
			s.logger.Warn("insert alert failed",
				zap.Int64("watcher_id", c.watcherID),
				zap.Int64("recall_id", c.recallID),
				zap.Error(err),
			)
			continue
		}
		if tag.RowsAffected() > 0 {
			created++
		}
	}

	if created > 0 {
		s.logger.Info("generated alerts", zap.Int("count", created))
	}
	return created, nil
}

// CountAlerts returns the total number of alert rows.
func (s *AlertStore) CountAlerts(ctx context.Context) (int64, error) {
	var count int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM alerts`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count alerts: %w", err)
	}
	return count, nil
}
