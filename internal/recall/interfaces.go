package recall

import (
	"context"
	"time"
)

// Source fetches one batch of raw records from an upstream recall feed.
// Implementations must never let a transport or parse failure escape:
// on any error they log and return an empty slice so the pipeline can
// proceed with the remaining sources.
type Source interface {
	Name() string
	Fetch(ctx context.Context) []RawRecord
}

// RawRecord is a source-specific record that knows how to map itself into
// the canonical Recall shape. The raw wire shape stays internal to each
// source package.
type RawRecord interface {
	// Normalize applies the inclusion/exclusion policy and field mapping.
	// today is the fallback recall date when the source date is unparseable.
	Normalize(today time.Time) NormalizeResult
}

// RecallStore persists canonical recalls with insert-or-update semantics
// keyed on (product_id, recall_date).
type RecallStore interface {
	// Upsert atomically inserts the recall or overwrites every non-key
	// field of the existing row, reporting which of the two happened.
	Upsert(ctx context.Context, rec Recall) (UpsertOutcome, error)
	List(ctx context.Context, filter RecallFilter) ([]Recall, error)
	// LatestByProductID returns the newest recall for a product, with a
	// found flag instead of a sentinel error.
	LatestByProductID(ctx context.Context, productID string) (Recall, bool, error)
	CountRecalls(ctx context.Context) (int64, error)
}

// AlertStore creates at most one alert per (watcher, recall) pair.
type AlertStore interface {
	// GenerateAlerts recomputes the full watchlist-recall join, inserts
	// the missing pairs, and returns how many alerts were created.
	// Per-pair failures are logged and skipped, never returned.
	GenerateAlerts(ctx context.Context) (int, error)
	CountAlerts(ctx context.Context) (int64, error)
}

// Clock returns the current time (injectable for tests).
type Clock interface {
	Now() time.Time
	// Today is the current UTC calendar date, truncated to midnight.
	// Normalizers use it as the recall-date fallback.
	Today() time.Time
}

// IDGenerator produces run identifiers.
type IDGenerator interface {
	NewID() (string, error)
}
