// Package recall defines the canonical recall domain shared across subsystems.
package recall

import "time"

// Storage widths for free-text recall fields. Normalizers truncate to these
// before handing a record to the store.
const (
	MaxProductName  = 500
	MaxBrandName    = 200
	MaxReason       = 1000
	MaxSeverity     = 50
	MaxFirmName     = 200
	MaxDistribution = 500
)

// Recall is the canonical, persisted shape of a product recall notice.
// The pair (ProductID, RecallDate) is the row identity; re-ingesting the
// same pair is a merge, never a duplicate.
type Recall struct {
	ID                  int64     `json:"id"`
	ProductID           string    `json:"product_id"`
	ProductName         string    `json:"product_name"`
	BrandName           string    `json:"brand_name"`
	RecallDate          time.Time `json:"recall_date"`
	Reason              string    `json:"reason"`
	Severity            string    `json:"severity"`
	FirmName            string    `json:"firm_name"`
	DistributionPattern string    `json:"distribution_pattern"`
	Source              string    `json:"source"`
}

// Truncated returns a copy with every free-text field capped at its
// storage width.
func (r Recall) Truncated() Recall {
	r.ProductName = Truncate(r.ProductName, MaxProductName)
	r.BrandName = Truncate(r.BrandName, MaxBrandName)
	r.Reason = Truncate(r.Reason, MaxReason)
	r.Severity = Truncate(r.Severity, MaxSeverity)
	r.FirmName = Truncate(r.FirmName, MaxFirmName)
	r.DistributionPattern = Truncate(r.DistributionPattern, MaxDistribution)
	return r
}

// WatchlistEntry is a user's declaration that they track a product.
// Owned by the grocery-list feature; this service only reads it.
type WatchlistEntry struct {
	WatcherID int64  `json:"watcher_id"`
	ProductID string `json:"product_id"`
}

// Alert materializes the fact that a watcher has been notified of a recall.
// Unique on (WatcherID, RecallID); never mutated after creation.
type Alert struct {
	ID        int64     `json:"id"`
	WatcherID int64     `json:"watcher_id"`
	RecallID  int64     `json:"recall_id"`
	ProductID string    `json:"product_id"`
	CreatedAt time.Time `json:"created_at"`
}

// UpsertOutcome tells the caller whether an upsert created a new row or
// overwrote an existing one. The distinction feeds the run summary.
type UpsertOutcome string

// Upsert outcomes reported by the merge store.
const (
	OutcomeInserted UpsertOutcome = "inserted"
	OutcomeUpdated  UpsertOutcome = "updated"
)

// NormalizeResult is the explicit outcome of normalizing one raw record:
// either a canonical Recall or a rejection with a reason.
type NormalizeResult struct {
	Recall   Recall
	Rejected bool
	Reason   string
}

// Accept wraps a canonical recall in a successful result.
func Accept(r Recall) NormalizeResult {
	return NormalizeResult{Recall: r}
}

// Reject produces a rejection result with the given reason.
func Reject(reason string) NormalizeResult {
	return NormalizeResult{Rejected: true, Reason: reason}
}

// RunSummary is the sole externally visible outcome of a pipeline run.
// Degraded ingestion shows up only in the counts and error strings.
type RunSummary struct {
	RunID           string    `json:"run_id"`
	Inserted        int       `json:"inserted"`
	Updated         int       `json:"updated"`
	Skipped         int       `json:"skipped"`
	AlertsGenerated int       `json:"alerts_generated"`
	Sources         []string  `json:"sources"`
	Errors          []string  `json:"errors"`
	Timestamp       time.Time `json:"timestamp"`
	DurationMs      int64     `json:"duration_ms"`
}

// RecallFilter narrows recall list queries.
type RecallFilter struct {
	Source string
	Since  time.Time
	Limit  int
}
