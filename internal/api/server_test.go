package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/bryceloomis/Capstone-Recall-Alert/internal/config"
	"github.com/bryceloomis/Capstone-Recall-Alert/internal/recall"
	"github.com/bryceloomis/Capstone-Recall-Alert/internal/scheduler"
	"github.com/bryceloomis/Capstone-Recall-Alert/internal/store/memory"
)

type fakeTrigger struct {
	summary recall.RunSummary
	err     error
	calls   int
}

func (f *fakeTrigger) TriggerNow(context.Context) (recall.RunSummary, error) {
	f.calls++
	return f.summary, f.err
}

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func (c fixedClock) Today() time.Time {
	return time.Date(c.now.Year(), c.now.Month(), c.now.Day(), 0, 0, 0, 0, time.UTC)
}

var (
	day1 = time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	day2 = time.Date(2024, 2, 20, 0, 0, 0, 0, time.UTC)
)

func seedStore(t *testing.T) *memory.Store {
	t.Helper()
	store := memory.New(fixedClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)})
	_, err := store.Upsert(context.Background(), recall.Recall{
		ProductID:   "012345678905",
		ProductName: "Peanut Butter X",
		RecallDate:  day1,
		Severity:    "Class I",
		Source:      "FDA",
	})
	require.NoError(t, err)
	_, err = store.Upsert(context.Background(), recall.Recall{
		ProductID:   "4006381333931",
		ProductName: "Frozen Chicken Strips",
		RecallDate:  day2,
		Severity:    "Class II",
		Source:      "USDA",
	})
	require.NoError(t, err)
	return store
}

func newTestServer(t *testing.T, store *memory.Store, trigger Trigger, cfg config.Config) *Server {
	t.Helper()
	clock := fixedClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
	return NewServer(store, store, trigger, clock, cfg, zap.NewNop())
}

func doRequest(t *testing.T, h http.Handler, method, target string, opts ...func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	for _, opt := range opts {
		opt(req)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, seedStore(t), &fakeTrigger{}, config.Config{})
	rr := doRequest(t, srv.Handler(), http.MethodGet, "/healthz")

	require.Equal(t, http.StatusOK, rr.Code)
	body := decodeBody(t, rr)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, float64(2), body["recalls_count"])
	assert.Equal(t, float64(0), body["alerts_count"])
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
}

func TestListRecalls(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, seedStore(t), &fakeTrigger{}, config.Config{})
	rr := doRequest(t, srv.Handler(), http.MethodGet, "/v1/recalls")

	require.Equal(t, http.StatusOK, rr.Code)
	body := decodeBody(t, rr)
	assert.Equal(t, float64(2), body["count"])

	recalls, ok := body["recalls"].([]any)
	require.True(t, ok)
	require.Len(t, recalls, 2)

	first, ok := recalls[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "4006381333931", first["product_id"], "newest recall first")
	assert.Equal(t, "2024-02-20", first["recall_date"])
	assert.Equal(t, "Class II", first["hazard_classification"])
}

func TestListRecallsFilters(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, seedStore(t), &fakeTrigger{}, config.Config{})

	rr := doRequest(t, srv.Handler(), http.MethodGet, "/v1/recalls?source=FDA")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, float64(1), decodeBody(t, rr)["count"])

	rr = doRequest(t, srv.Handler(), http.MethodGet, "/v1/recalls?since=2024-02-01")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, float64(1), decodeBody(t, rr)["count"])

	rr = doRequest(t, srv.Handler(), http.MethodGet, "/v1/recalls?limit=1")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, float64(1), decodeBody(t, rr)["count"])
}

func TestListRecallsBadQuery(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, seedStore(t), &fakeTrigger{}, config.Config{})

	rr := doRequest(t, srv.Handler(), http.MethodGet, "/v1/recalls?since=01-15-2024")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = doRequest(t, srv.Handler(), http.MethodGet, "/v1/recalls?limit=zero")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = doRequest(t, srv.Handler(), http.MethodGet, "/v1/recalls?limit=-5")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCheckRecallFound(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, seedStore(t), &fakeTrigger{}, config.Config{})
	rr := doRequest(t, srv.Handler(), http.MethodGet, "/v1/recalls/check/012345678905")

	require.Equal(t, http.StatusOK, rr.Code)
	body := decodeBody(t, rr)
	assert.Equal(t, true, body["is_recalled"])

	info, ok := body["recall_info"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Peanut Butter X", info["product_name"])
	assert.Equal(t, "Class I", info["hazard_classification"])
}

func TestCheckRecallNotFound(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, seedStore(t), &fakeTrigger{}, config.Config{})
	rr := doRequest(t, srv.Handler(), http.MethodGet, "/v1/recalls/check/000000000000")

	require.Equal(t, http.StatusOK, rr.Code)
	body := decodeBody(t, rr)
	assert.Equal(t, false, body["is_recalled"])
	assert.Nil(t, body["recall_info"])
}

func TestRefreshRecalls(t *testing.T) {
	t.Parallel()

	trigger := &fakeTrigger{summary: recall.RunSummary{RunID: "run-test", Inserted: 3}}
	srv := newTestServer(t, seedStore(t), trigger, config.Config{})
	rr := doRequest(t, srv.Handler(), http.MethodPost, "/v1/admin/refresh-recalls")

	require.Equal(t, http.StatusOK, rr.Code)
	body := decodeBody(t, rr)
	assert.Equal(t, "run-test", body["run_id"])
	assert.Equal(t, float64(3), body["inserted"])
	assert.Equal(t, 1, trigger.calls)
}

func TestRefreshRecallsConflictWhileRunning(t *testing.T) {
	t.Parallel()

	trigger := &fakeTrigger{err: scheduler.ErrRunInProgress}
	srv := newTestServer(t, seedStore(t), trigger, config.Config{})
	rr := doRequest(t, srv.Handler(), http.MethodPost, "/v1/admin/refresh-recalls")

	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestRefreshRecallsUnexpectedError(t *testing.T) {
	t.Parallel()

	trigger := &fakeTrigger{err: errors.New("boom")}
	srv := newTestServer(t, seedStore(t), trigger, config.Config{})
	rr := doRequest(t, srv.Handler(), http.MethodPost, "/v1/admin/refresh-recalls")

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestAdminAuth(t *testing.T) {
	t.Parallel()

	cfg := config.Config{Auth: config.AuthConfig{Enabled: true, APIKey: "secret"}}
	srv := newTestServer(t, seedStore(t), &fakeTrigger{}, cfg)

	rr := doRequest(t, srv.Handler(), http.MethodPost, "/v1/admin/refresh-recalls")
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, "unauthorized", decodeBody(t, rr)["error"])

	rr = doRequest(t, srv.Handler(), http.MethodPost, "/v1/admin/refresh-recalls",
		func(r *http.Request) { r.Header.Set("X-API-Key", "wrong") })
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = doRequest(t, srv.Handler(), http.MethodPost, "/v1/admin/refresh-recalls",
		func(r *http.Request) { r.Header.Set("X-API-Key", "secret") })
	assert.Equal(t, http.StatusOK, rr.Code)

	// Query parameter works for clients that cannot set headers.
	rr = doRequest(t, srv.Handler(), http.MethodPost, "/v1/admin/refresh-recalls?api_key=secret")
	assert.Equal(t, http.StatusOK, rr.Code)

	// Read surface stays open.
	rr = doRequest(t, srv.Handler(), http.MethodGet, "/v1/recalls")
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, seedStore(t), &fakeTrigger{}, config.Config{})

	// A prior request guarantees the request counter has a sample to export.
	doRequest(t, srv.Handler(), http.MethodGet, "/healthz")
	rr := doRequest(t, srv.Handler(), http.MethodGet, "/metrics")

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "http_requests_total")
}

func TestRequestLogCarriesRequestID(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.InfoLevel)
	clock := fixedClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
	store := seedStore(t)
	srv := NewServer(store, store, &fakeTrigger{}, clock, config.Config{}, zap.New(core))

	rr := doRequest(t, srv.Handler(), http.MethodGet, "/healthz")
	require.Equal(t, http.StatusOK, rr.Code)

	entries := logs.FilterMessage("request completed").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, rr.Header().Get("X-Request-ID"), fields["request_id"],
		"log line must correlate with the response header")
	assert.Equal(t, "/healthz", fields["path"])
}

func TestReadyz(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, seedStore(t), &fakeTrigger{}, config.Config{})
	rr := doRequest(t, srv.Handler(), http.MethodGet, "/readyz")

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ready", decodeBody(t, rr)["status"])
}
