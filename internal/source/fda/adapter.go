// Package fda implements the openFDA enforcement feed adapter.
package fda

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/bryceloomis/Capstone-Recall-Alert/internal/metrics"
	"github.com/bryceloomis/Capstone-Recall-Alert/internal/recall"
)

// SourceName tags every record produced by this adapter.
const SourceName = "FDA"

const (
	defaultPageLimit = 100
	defaultTimeout   = 15 * time.Second
	userAgent        = "RecallAlert/0.2"
)

// Config controls the openFDA adapter.
type Config struct {
	BaseURL   string
	PageLimit int
	Timeout   time.Duration
}

// Adapter fetches one page of food enforcement records per invocation.
type Adapter struct {
	baseURL string
	limit   int
	client  *http.Client
	logger  *zap.Logger
}

// New constructs an Adapter. The HTTP client timeout doubles as the
// transport failure boundary: a slow upstream degrades to an empty batch.
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

// Fetch retrieves one page of enforcement records. It never returns an
// error: any transport or parse failure is logged and yields an empty
// batch so the pipeline can proceed with other sources.
//
// Multi-page draining is a completeness tuning knob, not a correctness
// requirement; one page per scheduled run keeps up with the feed's
// publish rate.
func (a *Adapter) Fetch(ctx context.Context) []recall.RawRecord {
	page, err := a.fetchPage(ctx, a.limit, 0)
	if err != nil {
		a.logger.Error("fda fetch failed", zap.Error(err))
		metrics.ObserveSourceFetch(SourceName, "error")
		return nil
	}
	metrics.ObserveSourceFetch(SourceName, "ok")

	records := make([]recall.RawRecord, 0, len(page))
	for _, rec := range page {
		records = append(records, rec)
	}
	return records
}

func (a *Adapter) fetchPage(ctx context.Context, limit, skip int) ([]enforcementRecord, error) {
	u, err := url.Parse(a.baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	q := u.Query()
	q.Set("limit", fmt.Sprintf("%d", limit))
	q.Set("skip", fmt.Sprintf("%d", skip))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch enforcement page: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			a.logger.Warn("close response body", zap.Error(closeErr))
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var payload enforcementPage
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode enforcement page: %w", err)
	}
	return payload.Results, nil
}

type enforcementPage struct {
	Results []enforcementRecord `json:"results"`
}
