// Package usda implements the USDA FSIS recall feed adapter.
package usda

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/bryceloomis/Capstone-Recall-Alert/internal/metrics"
	"github.com/bryceloomis/Capstone-Recall-Alert/internal/recall"
)

// SourceName tags every record produced by this adapter.
const SourceName = "USDA"

const (
	defaultPageLimit = 100
	defaultTimeout   = 15 * time.Second
	userAgent        = "RecallAlert/0.2"
)

// Config controls the FSIS adapter.
type Config struct {
	BaseURL   string
	PageLimit int
	Timeout   time.Duration
}

// Adapter fetches recall notices from the FSIS recall API.
type Adapter struct {
	baseURL string
	limit   int
	client  *http.Client
	logger  *zap.Logger
}

// New constructs an Adapter.
func New(cfg Config, logger *zap.Logger) *Adapter {
	metrics.Init()
	if cfg.PageLimit <= 0 {
		cfg.PageLimit = defaultPageLimit
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Adapter{
		baseURL: cfg.BaseURL,
		limit:   cfg.PageLimit,
		client:  &http.Client{Timeout: cfg.Timeout},
		logger:  logger,
	}
}

// Name returns the source tag.
func (a *Adapter) Name() string {
	return SourceName
}

// Fetch retrieves the current FSIS notice list. Failures are logged and
// produce an empty batch; they never escape the adapter boundary.
func (a *Adapter) Fetch(ctx context.Context) []recall.RawRecord {
	notices, err := a.fetchNotices(ctx)
	if err != nil {
		a.logger.Error("usda fetch failed", zap.Error(err))
		metrics.ObserveSourceFetch(SourceName, "error")
		return nil
	}
	metrics.ObserveSourceFetch(SourceName, "ok")

	if len(notices) > a.limit {
		notices = notices[:a.limit]
	}
	records := make([]recall.RawRecord, 0, len(notices))
	for _, n := range notices {
		records = append(records, n)
	}
	return records
}

func (a *Adapter) fetchNotices(ctx context.Context) ([]fsisNotice, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch fsis notices: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			a.logger.Warn("close response body", zap.Error(closeErr))
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	// The FSIS endpoint returns a bare JSON array, not an envelope.
	var notices []fsisNotice
	if err := json.NewDecoder(resp.Body).Decode(&notices); err != nil {
		return nil, fmt.Errorf("decode fsis notices: %w", err)
	}
	return notices, nil
}
