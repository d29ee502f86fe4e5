package usda

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestFetchReturnsRecords(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		_, _ = w.Write([]byte(`[
			{"field_title": "Frozen Chicken Strips", "field_active_notice": "true",
			 "field_recall_number": "021-2024", "field_recall_date": "2024-03-10"},
			{"field_title": "Beef Patties", "field_active_notice": "false",
			 "field_recall_number": "001-2020"}
		]`))
	}))
	defer srv.Close()

	adapter := New(Config{BaseURL: srv.URL}, zap.NewNop())
	records := adapter.Fetch(context.Background())
	require.Len(t, records, 2)

	res := records[0].Normalize(today)
	require.False(t, res.Rejected)
	assert.Equal(t, "USDA-021-2024", res.Recall.ProductID)

	assert.True(t, records[1].Normalize(today).Rejected)
}

func TestFetchTruncatesToPageLimit(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[
			{"field_title": "A", "field_active_notice": "true", "field_recall_number": "1"},
			{"field_title": "B", "field_active_notice": "true", "field_recall_number": "2"},
			{"field_title": "C", "field_active_notice": "true", "field_recall_number": "3"}
		]`))
	}))
	defer srv.Close()

	adapter := New(Config{BaseURL: srv.URL, PageLimit: 2}, zap.NewNop())
	assert.Len(t, adapter.Fetch(context.Background()), 2)
}

func TestFetchUpstreamErrorYieldsEmptyBatch(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	adapter := New(Config{BaseURL: srv.URL}, zap.NewNop())
	assert.Empty(t, adapter.Fetch(context.Background()))
}

func TestFetchMalformedBodyYieldsEmptyBatch(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"not": "an array"}`))
	}))
	defer srv.Close()

	adapter := New(Config{BaseURL: srv.URL}, zap.NewNop())
	assert.Empty(t, adapter.Fetch(context.Background()))
}
