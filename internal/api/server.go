// Package api exposes the HTTP interface for the recall alert service.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/bryceloomis/Capstone-Recall-Alert/internal/config"
	"github.com/bryceloomis/Capstone-Recall-Alert/internal/metrics"
	"github.com/bryceloomis/Capstone-Recall-Alert/internal/recall"
	"github.com/bryceloomis/Capstone-Recall-Alert/internal/scheduler"
)

const (
	defaultListLimit = 100
	maxListLimit     = 500
	dateLayout       = "2006-01-02"
)

// Trigger starts a pipeline run on demand.
type Trigger interface {
	TriggerNow(ctx context.Context) (recall.RunSummary, error)
}

// Server wires HTTP handlers to the stores and the scheduler trigger.
type Server struct {
	router  chi.Router
	recalls recall.RecallStore
	alerts  recall.AlertStore
	trigger Trigger
	clock   recall.Clock
	cfg     config.Config
	logger  *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(
	recalls recall.RecallStore,
	alerts recall.AlertStore,
	trigger Trigger,
	clock recall.Clock,
	cfg config.Config,
	logger *zap.Logger,
) *Server {
	metrics.Init()
	s := &Server{
		recalls: recalls,
		alerts:  alerts,
		trigger: trigger,
		clock:   clock,
		cfg:     cfg,
		logger:  logger,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(timeoutMiddleware(60 * time.Second))
	r.Use(metrics.Middleware)

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Route("/recalls", func(r chi.Router) {
			r.Get("/", s.listRecalls)
			r.Get("/check/{product_id}", s.checkRecall)
		})
		r.Route("/admin", func(r chi.Router) {
			if cfg.Auth.Enabled {
				r.Use(apiKeyMiddleware(cfg.Auth.APIKey, logger))
			}
			r.Post("/refresh-recalls", s.refreshRecalls)
		})
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	// Live row counts; a store hiccup degrades the counts, not the status.
	recallCount, err := s.recalls.CountRecalls(r.Context())
	if err != nil {
		s.logger.Warn("count recalls failed", zap.Error(err))
		recallCount = 0
	}
	alertCount, err := s.alerts.CountAlerts(r.Context())
	if err != nil {
		s.logger.Warn("count alerts failed", zap.Error(err))
		alertCount = 0
	}
	writeJSON(w, s.logger, http.StatusOK, map[string]any{
		"status":        "ok",
		"timestamp":     s.clock.Now().Format(time.RFC3339),
		"recalls_count": recallCount,
		"alerts_count":  alertCount,
	})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.logger, http.StatusOK, map[string]string{"status": "ready"})
}

// refreshRecalls triggers a synchronous pipeline run. Partial degradation
// is reported inside the summary, never as a failure status; the only
// error surface is the guard rejecting an overlapping run.
func (s *Server) refreshRecalls(w http.ResponseWriter, r *http.Request) {
	summary, err := s.trigger.TriggerNow(r.Context())
	if err != nil {
		if errors.Is(err, scheduler.ErrRunInProgress) {
			writeError(w, s.logger, http.StatusConflict, err.Error())
			return
		}
		writeError(w, s.logger, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, s.logger, http.StatusOK, summary)
}

func (s *Server) listRecalls(w http.ResponseWriter, r *http.Request) {
	filter, err := listFilterFromQuery(r)
	if err != nil {
		writeError(w, s.logger, http.StatusBadRequest, err.Error())
		return
	}

	recs, err := s.recalls.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("list recalls failed", zap.Error(err))
		writeError(w, s.logger, http.StatusInternalServerError, "failed to list recalls")
		return
	}

	formatted := make([]map[string]any, 0, len(recs))
	for _, rec := range recs {
		formatted = append(formatted, formatRecall(rec))
	}
	writeJSON(w, s.logger, http.StatusOK, map[string]any{
		"count":   len(formatted),
		"recalls": formatted,
	})
}

func (s *Server) checkRecall(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "product_id")
	rec, found, err := s.recalls.LatestByProductID(r.Context(), productID)
	if err != nil {
		s.logger.Error("recall check failed", zap.String("product_id", productID), zap.Error(err))
		writeError(w, s.logger, http.StatusInternalServerError, "failed to check recalls")
		return
	}
	if !found {
		writeJSON(w, s.logger, http.StatusOK, map[string]any{
			"is_recalled": false,
			"recall_info": nil,
		})
		return
	}
	writeJSON(w, s.logger, http.StatusOK, map[string]any{
		"is_recalled": true,
		"recall_info": formatRecall(rec),
	})
}

func listFilterFromQuery(r *http.Request) (recall.RecallFilter, error) {
	filter := recall.RecallFilter{Limit: defaultListLimit}

	filter.Source = r.URL.Query().Get("source")

	if raw := r.URL.Query().Get("since"); raw != "" {
		since, err := time.Parse(dateLayout, raw)
		if err != nil {
			return recall.RecallFilter{}, errors.New("since must be formatted YYYY-MM-DD")
		}
		filter.Since = since
	}

	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			return recall.RecallFilter{}, errors.New("limit must be a positive integer")
		}
		if limit > maxListLimit {
			limit = maxListLimit
		}
		filter.Limit = limit
	}

	return filter, nil
}

// formatRecall maps a recall row to the shape the display layer expects,
// deriving the hazard label from the severity text.
func formatRecall(rec recall.Recall) map[string]any {
	return map[string]any{
		"id":                    rec.ID,
		"product_id":            rec.ProductID,
		"product_name":          rec.ProductName,
		"brand_name":            rec.BrandName,
		"recall_date":           rec.RecallDate.Format(dateLayout),
		"reason":                rec.Reason,
		"hazard_classification": recall.HazardLabel(rec.Severity),
		"source":                rec.Source,
		"firm_name":             rec.FirmName,
		"distribution":          rec.DistributionPattern,
	}
}
