// Package pipeline sequences recall ingestion across all configured
// sources and fans out alerts to affected watchers.
package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/bryceloomis/Capstone-Recall-Alert/internal/metrics"
	"github.com/bryceloomis/Capstone-Recall-Alert/internal/recall"
)

// Pipeline runs fetch, normalize, upsert, and alert fan-out sequentially
// within a single run. The scheduler's guard is what keeps two runs from
// writing to the stores concurrently; the pipeline itself has no internal
// parallelism.
type Pipeline struct {
	sources []recall.Source
	recalls recall.RecallStore
	alerts  recall.AlertStore
	clock   recall.Clock
	idGen   recall.IDGenerator
	logger  *zap.Logger
}

// New constructs a Pipeline.
func New(
	sources []recall.Source,
	recalls recall.RecallStore,
	alerts recall.AlertStore,
	clock recall.Clock,
	idGen recall.IDGenerator,
	logger *zap.Logger,
) *Pipeline {
	metrics.Init()
	return &Pipeline{
		sources: sources,
		recalls: recalls,
		alerts:  alerts,
		clock:   clock,
		idGen:   idGen,
		logger:  logger,
	}
}

// Run drains every source into the merge store, then invokes alert
// fan-out once. It always completes and always returns a summary: a
// source's total failure or any per-record error degrades the counts but
// never aborts the run.
func (p *Pipeline) Run(ctx context.Context) recall.RunSummary {
	start := p.clock.Now()
	summary := recall.RunSummary{
		Sources: make([]string, 0, len(p.sources)),
		Errors:  []string{},
	}

	runID, err := p.idGen.NewID()
	if err != nil {
		p.logger.Warn("generate run id failed", zap.Error(err))
	}
	summary.RunID = runID

	p.logger.Info("recall refresh started", zap.String("run_id", runID))

	for _, src := range p.sources {
		summary.Sources = append(summary.Sources, src.Name())
		p.ingestSource(ctx, src, &summary)
	}

	created, err := p.alerts.GenerateAlerts(ctx)
	if err != nil {
		p.logger.Error("alert fan-out failed", zap.String("run_id", runID), zap.Error(err))
		summary.Errors = append(summary.Errors, fmt.Sprintf("alert fan-out: %v", err))
	} else {
		summary.AlertsGenerated = created
		metrics.ObserveAlerts(created)
	}

	summary.Timestamp = p.clock.Now()
	summary.DurationMs = summary.Timestamp.Sub(start).Milliseconds()

	p.logger.Info("recall refresh complete",
		zap.String("run_id", runID),
		zap.Int("inserted", summary.Inserted),
		zap.Int("updated", summary.Updated),
		zap.Int("skipped", summary.Skipped),
		zap.Int("alerts_generated", summary.AlertsGenerated),
		zap.Strings("sources", summary.Sources),
		zap.Int64("duration_ms", summary.DurationMs),
	)
	return summary
}

// ingestSource processes one source's batch. Adapters are contracted to
// swallow their own failures, but a panicking adapter still must not take
// down the run or starve the remaining sources.
func (p *Pipeline) ingestSource(ctx context.Context, src recall.Source, summary *recall.RunSummary) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("source panicked",
				zap.String("source", src.Name()),
				zap.Any("panic", r),
			)
			summary.Errors = append(summary.Errors, fmt.Sprintf("source %s: %v", src.Name(), r))
		}
	}()

	raws := src.Fetch(ctx)
	p.logger.Info("fetched raw records",
		zap.String("source", src.Name()),
		zap.Int("count", len(raws)),
	)

	today := p.clock.Today()
	for _, raw := range raws {
		res := raw.Normalize(today)
		if res.Rejected {
			summary.Skipped++
			metrics.ObserveRecord(src.Name(), "skipped")
			p.logger.Debug("record rejected",
				zap.String("source", src.Name()),
				zap.String("reason", res.Reason),
			)
			continue
		}

		outcome, err := p.recalls.Upsert(ctx, res.Recall)
		if err != nil {
			summary.Skipped++
			metrics.ObserveRecord(src.Name(), "skipped")
			p.logger.Warn("upsert failed",
				zap.String("source", src.Name()),
				zap.String("product_id", res.Recall.ProductID),
				zap.Error(err),
			)
			continue
		}

		metrics.ObserveRecord(src.Name(), string(outcome))
		switch outcome {
		case recall.OutcomeInserted:
			summary.Inserted++
		case recall.OutcomeUpdated:
			summary.Updated++
		}
	}
}
