// Package pipeline composes the collection run: fetch both sources, extract
// indicators and signals, correlate across sources, score risk, enrich, and
// emit the JSON artifacts. Stages execute in sequence because each depends on
// the previous stage's complete output; only the two source fetches run
// concurrently. The pipeline always produces a complete artifact, degrading
// to empty sections when a source or the enrichment call is unavailable.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vexlio/sigcor-cli/api/schemas"
	"github.com/vexlio/sigcor-cli/internal/correlate"
	"github.com/vexlio/sigcor-cli/internal/enrich"
	"github.com/vexlio/sigcor-cli/internal/extract"
	"github.com/vexlio/sigcor-cli/internal/risk"
	"github.com/vexlio/sigcor-cli/internal/sources"
)

// Archiver persists run summaries. Optional; a nil archiver disables it.
type Archiver interface {
	ArchiveRun(ctx context.Context, run *schemas.RunArtifact) error
}

// extractors dispatches raw payloads to the per-source extraction function.
var extractors = map[schemas.SourceName]func([]byte, time.Time) extract.Extraction{
	schemas.SourceInfra:  extract.Infrastructure,
	schemas.SourceSocial: extract.Social,
}

// Pipeline wires the run stages together. Sources arrive as an explicit
// fetcher list; nothing registers itself globally.
type Pipeline struct {
	fetchers   []*sources.Fetcher
	correlator *correlate.Engine
	scorer     *risk.Scorer
	enricher   *enrich.Orchestrator
	archive    Archiver
	writer     *ArtifactWriter
	logger     *zap.Logger
	now        func() time.Time
}

// New creates a pipeline. correlator, scorer and enricher are required;
// archive and writer may be nil to disable archiving or artifact files.
func New(
	fetchers []*sources.Fetcher,
	correlator *correlate.Engine,
	scorer *risk.Scorer,
	enricher *enrich.Orchestrator,
	archive Archiver,
	writer *ArtifactWriter,
	logger *zap.Logger,
) (*Pipeline, error) {
	if correlator == nil || scorer == nil || enricher == nil {
		return nil, fmt.Errorf("cannot initialize pipeline with nil dependencies")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		fetchers:   fetchers,
		correlator: correlator,
		scorer:     scorer,
		enricher:   enricher,
		archive:    archive,
		writer:     writer,
		logger:     logger.Named("pipeline"),
		now:        time.Now,
	}, nil
}

// WithClock overrides the pipeline's clock for tests.
func (p *Pipeline) WithClock(now func() time.Time) *Pipeline {
	p.now = now
	return p
}

// Run executes one full collection run and returns the final artifact.
func (p *Pipeline) Run(ctx context.Context) (*schemas.RunArtifact, error) {
	runID := uuid.New().String()
	p.logger.Info("Starting collection run", zap.String("run_id", runID))

	// 1. Fetch. The sources are independent and share no mutable state
	// beyond distinct cache keys, so they run concurrently.
	results := make([]sources.Result, len(p.fetchers))
	g, fetchCtx := errgroup.WithContext(ctx)
	for i, fetcher := range p.fetchers {
		g.Go(func() error {
			results[i] = fetcher.Fetch(fetchCtx)
			return nil
		})
	}
	// Fetch failures are carried inside the results, never as errors.
	_ = g.Wait()

	outcomes := make([]schemas.FetchOutcome, len(results))
	for i, r := range results {
		outcomes[i] = r.Outcome()
		p.logger.Info("Fetch outcome",
			zap.String("source", string(r.Source)),
			zap.Bool("ok", r.OK),
			zap.Bool("from_cache", r.FromCache),
			zap.Bool("skipped", r.Skipped))
	}

	// 2. Extract.
	now := p.now()
	var signals []schemas.ThreatSignal
	var techniques []schemas.TechniqueEvidence
	indicatorLists := make([][]schemas.Indicator, 0, len(results))
	for _, r := range results {
		if !r.OK || len(r.Payload) == 0 {
			continue
		}
		extractor, ok := extractors[r.Source]
		if !ok {
			p.logger.Warn("No extractor for source", zap.String("source", string(r.Source)))
			continue
		}
		extraction := extractor(r.Payload, now)
		signals = append(signals, extraction.Signals...)
		techniques = append(techniques, extraction.Techniques...)
		indicatorLists = append(indicatorLists, extraction.Indicators)
		p.logger.Info("Extraction complete",
			zap.String("source", string(r.Source)),
			zap.Int("signals", len(extraction.Signals)),
			zap.Int("indicators", len(extraction.Indicators)))
	}
	indicators := extract.MergeIndicators(indicatorLists...)

	// 3. Correlate and score.
	correlation := p.correlator.Correlate(signals)
	intel := schemas.IntelArtifact{
		Threats:     signals,
		Indicators:  indicators,
		Techniques:  techniques,
		Summary:     buildSummary(signals),
		Correlation: correlation,
	}
	assessment := p.scorer.Assess(signals, contributingSources(signals), false)

	// 4. Enrich, then fold narrative provenance back into confidence.
	enrichment := p.enricher.Enrich(ctx, intel, assessment)
	if enrichment.Model != enrich.HeuristicModelTag {
		assessment = p.scorer.Assess(signals, contributingSources(signals), true)
	}

	run := &schemas.RunArtifact{
		RunID:       runID,
		GeneratedAt: now,
		Risk:        assessment,
		Intel:       intel,
		Enrichment:  enrichment,
		Fetches:     outcomes,
	}

	// 5. Persist artifacts.
	if p.writer != nil {
		if err := p.writer.Write(run); err != nil {
			return nil, err
		}
	}
	if p.archive != nil {
		if err := p.archive.ArchiveRun(ctx, run); err != nil {
			p.logger.Warn("Failed to archive run", zap.Error(err))
		}
	}

	p.logger.Info("Collection run finished",
		zap.String("run_id", runID),
		zap.Int("threats", intel.Summary.TotalThreats),
		zap.Int("correlated", correlation.Summary.CorrelatedSignals),
		zap.Int("risk_score", assessment.Score),
		zap.String("enrichment_model", enrichment.Model))
	return run, nil
}

// buildSummary tallies the per-severity, per-category and per-source counts
// for the intermediate artifact.
func buildSummary(signals []schemas.ThreatSignal) schemas.IntelSummary {
	summary := schemas.IntelSummary{
		TotalThreats: len(signals),
		BySeverity:   make(map[schemas.Severity]int),
		ByCategory:   make(map[string]int),
		BySource:     make(map[schemas.SourceName]int),
	}
	for _, sig := range signals {
		summary.BySeverity[sig.Severity]++
		summary.ByCategory[sig.Category]++
		for _, src := range sig.Sources {
			summary.BySource[src]++
		}
	}
	return summary
}

// contributingSources counts distinct sources that produced signals.
func contributingSources(signals []schemas.ThreatSignal) int {
	seen := make(map[schemas.SourceName]struct{})
	for _, sig := range signals {
		for _, src := range sig.Sources {
			seen[src] = struct{}{}
		}
	}
	return len(seen)
}
