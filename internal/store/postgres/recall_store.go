// Package postgres provides Postgres-backed persistence for recalls and
// alerts. The dedup constraints live in the database, not application
// logic:
//
//	ALTER TABLE recalls
//	  ADD CONSTRAINT recalls_product_date_unique UNIQUE (product_id, recall_date);
//	ALTER TABLE alerts
//	  ADD CONSTRAINT alerts_watcher_recall_unique UNIQUE (watcher_id, recall_id);
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/bryceloomis/Capstone-Recall-Alert/internal/recall"
)

// querier is the subset of pgxpool.Pool the stores use; pgxmock satisfies
// it for tests.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PoolConfig controls the shared Postgres connection pool.
type PoolConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

// NewPool builds the pgx connection pool shared by the stores.
func NewPool(ctx context.Context, cfg PoolConfig) (*pgxpool.Pool, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return pool, nil
}

// RecallStore persists canonical recalls keyed on (product_id, recall_date).
type RecallStore struct {
	pool   querier
	logger *zap.Logger
}

// NewRecallStore constructs a RecallStore over an existing pool.
func NewRecallStore(pool querier, logger *zap.Logger) (*RecallStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &RecallStore{pool: pool, logger: logger}, nil
}

// Close releases the underlying pool resources.
func (s *RecallStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

const upsertRecallQuery = `
INSERT INTO recalls
	(product_id, product_name, brand_name, recall_date, reason,
	 severity, firm_name, distribution_pattern, source)
VALUES
	($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (product_id, recall_date)
DO UPDATE SET
	product_name         = EXCLUDED.product_name,
	brand_name           = EXCLUDED.brand_name,
	reason               = EXCLUDED.reason,
	severity             = EXCLUDED.severity,
	firm_name            = EXCLUDED.firm_name,
	distribution_pattern = EXCLUDED.distribution_pattern,
	source               = EXCLUDED.source
RETURNING (xmax = 0) AS inserted`

// Upsert atomically inserts or overwrites the recall in one round trip.
// xmax = 0 distinguishes a freshly inserted row from a conflict update,
// which is what tells the caller whether this pair is new.
func (s *RecallStore) Upsert(ctx context.Context, rec recall.Recall) (recall.UpsertOutcome, error) {
	var inserted bool
	err := s.pool.QueryRow(ctx, upsertRecallQuery,
		rec.ProductID,
		rec.ProductName,
		rec.BrandName,
		rec.RecallDate,
		rec.Reason,
		rec.Severity,
		rec.FirmName,
		rec.DistributionPattern,
		rec.Source,
	).Scan(&inserted)
	if err != nil {
		return "", fmt.Errorf("upsert recall %s: %w", rec.ProductID, err)
	}
	if inserted {
		return recall.OutcomeInserted, nil
	}
	return recall.OutcomeUpdated, nil
}

var recallColumns = []string{
	"id", "product_id", "product_name", "brand_name", "recall_date",
	"reason", "severity", "firm_name", "distribution_pattern", "source",
}

// List returns recalls newest first, narrowed by the filter.
func (s *RecallStore) List(ctx context.Context, filter recall.RecallFilter) ([]recall.Recall, error) {
	qb := sq.Select(recallColumns...).
		From("recalls").
		OrderBy("recall_date DESC", "id DESC").
		PlaceholderFormat(sq.Dollar)
	if filter.Source != "" {
		qb = qb.Where(sq.Eq{"source": filter.Source})
	}
	if !filter.Since.IsZero() {
		qb = qb.Where(sq.GtOrEq{"recall_date": filter.Since})
	}
	if filter.Limit > 0 {
		qb = qb.Limit(uint64(filter.Limit))
	}

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list query: %w", err)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list recalls: %w", err)
	}
	defer rows.Close()

	var out []recall.Recall
	for rows.Next() {
		rec, err := scanRecall(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recalls: %w", err)
	}
	return out, nil
}

const latestByProductQuery = `
SELECT id, product_id, product_name, brand_name, recall_date,
       reason, severity, firm_name, distribution_pattern, source
FROM recalls
WHERE product_id = $1
ORDER BY recall_date DESC
LIMIT 1`

// LatestByProductID returns the newest recall for a product identifier.
func (s *RecallStore) LatestByProductID(ctx context.Context, productID string) (recall.Recall, bool, error) {
	rec, err := scanRecall(s.pool.QueryRow(ctx, latestByProductQuery, productID))
	if errors.Is(err, pgx.ErrNoRows) {
		return recall.Recall{}, false, nil
	}
	if err != nil {
		return recall.Recall{}, false, fmt.Errorf("latest recall for %s: %w", productID, err)
	}
	return rec, true, nil
}

// CountRecalls returns the total number of recall rows.
func (s *RecallStore) CountRecalls(ctx context.Context) (int64, error) {
	var count int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM recalls`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count recalls: %w", err)
	}
	return count, nil
}

func scanRecall(row pgx.Row) (recall.Recall, error) {
	var rec recall.Recall
	err := row.Scan(
		&rec.ID,
		&rec.ProductID,
		&rec.ProductName,
		&rec.BrandName,
		&rec.RecallDate,
		&rec.Reason,
		&rec.Severity,
		&rec.FirmName,
		&rec.DistributionPattern,
		&rec.Source,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return recall.Recall{}, err
		}
		return recall.Recall{}, fmt.Errorf("scan recall: %w", err)
	}
	return rec, nil
}
