// Package correlate builds cross-source correlation signals from the threat
// signals of a single run. A label counts as correlated only when it appears
// with a positive count under at least two distinct sources; anything below
// that threshold is co-occurrence noise and is dropped entirely rather than
// surfaced as low-confidence correlation.
package correlate

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vexlio/sigcor-cli/api/schemas"
)

// maxSamples bounds how many representative excerpts each source contributes
// to a correlation signal.
const maxSamples = 3

// Engine groups threat signals by label and derives temporal precedence.
type Engine struct {
	logger *zap.Logger
}

// New creates a correlation engine. A nil logger is replaced with a no-op.
func New(logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{logger: logger.Named("correlate")}
}

// Correlate builds the correlation report for one run from all extracted
// threat signals.
func (e *Engine) Correlate(signals []schemas.ThreatSignal) *schemas.CorrelationReport {
	grouped := groupByLabel(signals)

	labels := make([]string, 0, len(grouped))
	for label := range grouped {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	var correlated []schemas.CorrelationSignal
	for _, label := range labels {
		group := grouped[label]
		if len(group) == 0 {
			// Unreachable given the grouping above; a label without sources
			// is a programmer error, not a data condition.
			panic(fmt.Sprintf("correlation label %q grouped with zero sources", label))
		}
		if len(group) < 2 {
			continue
		}

		signal := schemas.CorrelationSignal{
			ID:        uuid.New().String(),
			Label:     label,
			PerSource: buildActivity(group),
		}
		signal.Temporal = temporalAnalysis(signal.PerSource)
		signal.Interpretation = interpret(signal)
		correlated = append(correlated, signal)
	}

	report := &schemas.CorrelationReport{
		Signals:         correlated,
		DominantPattern: dominantPattern(correlated),
		Summary:         schemas.CorrelationSummary{CorrelatedSignals: len(correlated)},
	}

	e.logger.Info("Correlation complete",
		zap.Int("candidate_labels", len(grouped)),
		zap.Int("correlated_signals", len(correlated)),
		zap.String("dominant_pattern", string(report.DominantPattern)))
	return report
}

// groupByLabel partitions signals per label, then per source.
func groupByLabel(signals []schemas.ThreatSignal) map[string]map[schemas.SourceName][]schemas.ThreatSignal {
	grouped := make(map[string]map[schemas.SourceName][]schemas.ThreatSignal)
	for _, sig := range signals {
		if sig.Label == "" {
			continue
		}
		for _, src := range sig.Sources {
			perSource, ok := grouped[sig.Label]
			if !ok {
				perSource = make(map[schemas.SourceName][]schemas.ThreatSignal)
				grouped[sig.Label] = perSource
			}
			perSource[src] = append(perSource[src], sig)
		}
	}
	return grouped
}

// buildActivity summarizes each source's contribution: count, last-seen, and
// representative samples ranked by engagement (ties broken by recency).
func buildActivity(group map[schemas.SourceName][]schemas.ThreatSignal) map[schemas.SourceName]schemas.SourceActivity {
	perSource := make(map[schemas.SourceName]schemas.SourceActivity, len(group))
	for src, sigs := range group {
		ranked := append([]schemas.ThreatSignal(nil), sigs...)
		sort.SliceStable(ranked, func(i, j int) bool {
			if ranked[i].Engagement != ranked[j].Engagement {
				return ranked[i].Engagement > ranked[j].Engagement
			}
			return ranked[i].Timestamp.After(ranked[j].Timestamp)
		})

		var lastSeen time.Time
		for _, s := range sigs {
			if s.Timestamp.After(lastSeen) {
				lastSeen = s.Timestamp
			}
		}

		samples := make([]string, 0, maxSamples)
		for _, s := range ranked {
			if len(samples) == maxSamples {
				break
			}
			samples = append(samples, s.Title)
		}

		perSource[src] = schemas.SourceActivity{
			Count:    len(sigs),
			Samples:  samples,
			LastSeen: lastSeen,
		}
	}
	return perSource
}

// temporalAnalysis computes the precedence between infrastructure exposure and
// social discussion when both sides carry a last-seen timestamp. The delta is
// social minus infra in hours, rounded to the nearest tenth; a magnitude below
// one hour is classified simultaneous, so a zero delta is a valid result
// rather than an error.
func temporalAnalysis(perSource map[schemas.SourceName]schemas.SourceActivity) *schemas.TemporalAnalysis {
	infra, hasInfra := perSource[schemas.SourceInfra]
	social, hasSocial := perSource[schemas.SourceSocial]
	if !hasInfra || !hasSocial || infra.LastSeen.IsZero() || social.LastSeen.IsZero() {
		return nil
	}

	delta := social.LastSeen.Sub(infra.LastSeen).Hours()
	rounded := math.Round(delta*10) / 10

	pattern := schemas.PatternSimultaneous
	if math.Abs(delta) >= 1 {
		if delta > 0 {
			pattern = schemas.PatternInfraFirst
		} else {
			pattern = schemas.PatternSocialFirst
		}
	}

	return &schemas.TemporalAnalysis{
		TimeDeltaHours:      rounded,
		InfraPrecedesSocial: delta > 0,
		Pattern:             pattern,
	}
}

// dominantPattern picks the run-level pattern by majority vote across the
// per-signal classifications. A tie, or the absence of any classified signal,
// yields insufficient-data.
func dominantPattern(signals []schemas.CorrelationSignal) schemas.TemporalPattern {
	votes := make(map[schemas.TemporalPattern]int)
	for _, sig := range signals {
		if sig.Temporal != nil {
			votes[sig.Temporal.Pattern]++
		}
	}
	if len(votes) == 0 {
		return schemas.PatternInsufficient
	}

	best := schemas.PatternInsufficient
	bestCount := 0
	tied := false
	for pattern, count := range votes {
		switch {
		case count > bestCount:
			best, bestCount, tied = pattern, count, false
		case count == bestCount:
			tied = true
		}
	}
	if tied {
		return schemas.PatternInsufficient
	}
	return best
}

// interpret renders the deterministic natural-language reading of a correlated
// signal. Template selection keyed on (pattern, magnitude) keeps this step
// testable; no free generation happens here.
func interpret(sig schemas.CorrelationSignal) string {
	total := 0
	for _, activity := range sig.PerSource {
		total += activity.Count
	}

	if sig.Temporal == nil {
		return fmt.Sprintf("%q appears under multiple sources (%d combined observations) but lacks timestamps for temporal analysis.", sig.Label, total)
	}

	delta := math.Abs(sig.Temporal.TimeDeltaHours)
	switch sig.Temporal.Pattern {
	case schemas.PatternInfraFirst:
		return fmt.Sprintf("Infrastructure exposure of %q preceded social discussion by %.1f hours (%d combined observations); chatter may be reacting to scan-visible exposure.", sig.Label, delta, total)
	case schemas.PatternSocialFirst:
		return fmt.Sprintf("Social discussion of %q preceded infrastructure observation by %.1f hours (%d combined observations); exposure may be following public attention.", sig.Label, delta, total)
	default:
		return fmt.Sprintf("Infrastructure exposure and social discussion of %q occurred within the same hour (%d combined observations).", sig.Label, total)
	}
}
