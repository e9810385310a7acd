// Package risk computes the run-level risk assessment from severity counts
// and signal recency. Both the score weights and the confidence terms are
// explainable additive heuristics, not statistical estimators; the exact
// constants below are part of the output contract with the presentation layer.
package risk

import (
	"time"

	"go.uber.org/zap"

	"github.com/vexlio/sigcor-cli/api/schemas"
)

// Score weights per severity bucket.
const (
	weightCritical = 40
	weightHigh     = 20
	weightMedium   = 5
	weightLow      = 1
)

// Level thresholds. Boundary values are inclusive.
const (
	thresholdCritical = 75
	thresholdElevated = 45
	thresholdModerate = 15
)

// recentWindow is the recency bucket used for trend classification.
const recentWindow = time.Hour

// Scorer derives the risk assessment for one run.
type Scorer struct {
	logger *zap.Logger
	now    func() time.Time
}

// New creates a scorer. A nil logger is replaced with a no-op.
func New(logger *zap.Logger) *Scorer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scorer{logger: logger.Named("risk"), now: time.Now}
}

// WithClock overrides the scorer's clock for tests.
func (s *Scorer) WithClock(now func() time.Time) *Scorer {
	s.now = now
	return s
}

// Counts holds the per-severity signal counts feeding the score.
type Counts struct {
	Critical int
	High     int
	Medium   int
	Low      int
}

// CountSeverities tallies signals into score buckets. Info-level signals carry
// no score weight and are excluded.
func CountSeverities(signals []schemas.ThreatSignal) Counts {
	var c Counts
	for _, sig := range signals {
		switch sig.Severity {
		case schemas.SeverityCritical:
			c.Critical++
		case schemas.SeverityHigh:
			c.High++
		case schemas.SeverityMedium:
			c.Medium++
		case schemas.SeverityLow:
			c.Low++
		}
	}
	return c
}

// Score computes the severity-weighted sum, capped at 100.
func Score(c Counts) int {
	score := c.Critical*weightCritical + c.High*weightHigh + c.Medium*weightMedium + c.Low*weightLow
	if score > 100 {
		return 100
	}
	return score
}

// Level buckets a score into a risk level using inclusive thresholds.
func Level(score int) schemas.RiskLevel {
	switch {
	case score >= thresholdCritical:
		return schemas.RiskCritical
	case score >= thresholdElevated:
		return schemas.RiskElevated
	case score >= thresholdModerate:
		return schemas.RiskModerate
	default:
		return schemas.RiskLow
	}
}

// Assess produces the full risk assessment. sourceCount is the number of
// distinct sources that contributed signals; narrative reports whether an
// enrichment narrative was produced for the run.
func (s *Scorer) Assess(signals []schemas.ThreatSignal, sourceCount int, narrative bool) schemas.RiskAssessment {
	counts := CountSeverities(signals)
	score := Score(counts)

	assessment := schemas.RiskAssessment{
		Score:      score,
		Level:      Level(score),
		Trend:      s.trend(signals),
		Confidence: confidence(len(signals), sourceCount, narrative),
	}

	s.logger.Info("Risk assessment computed",
		zap.Int("score", assessment.Score),
		zap.String("level", string(assessment.Level)),
		zap.String("trend", string(assessment.Trend)),
		zap.Int("confidence", assessment.Confidence))
	return assessment
}

// trend classifies signal volume by recency: mostly-recent signals indicate an
// increasing trend, mostly-old a decreasing one. An empty run is stable by
// definition, avoiding the zero-division edge.
func (s *Scorer) trend(signals []schemas.ThreatSignal) schemas.Trend {
	total := len(signals)
	if total == 0 {
		return schemas.TrendStable
	}

	cutoff := s.now().Add(-recentWindow)
	recent := 0
	for _, sig := range signals {
		if sig.Timestamp.After(cutoff) {
			recent++
		}
	}

	ratio := float64(recent) / float64(total)
	switch {
	case ratio > 0.5:
		return schemas.TrendIncreasing
	case ratio < 0.2:
		return schemas.TrendDecreasing
	default:
		return schemas.TrendStable
	}
}

// confidence is an additive heuristic: base 50, plus 10 per contributing
// source, plus a volume bonus, plus 10 when a narrative was produced, capped
// at 95. It makes no probabilistic claim.
func confidence(signalCount, sourceCount int, narrative bool) int {
	conf := 50 + 10*sourceCount
	switch {
	case signalCount >= 10:
		conf += 15
	case signalCount >= 5:
		conf += 10
	}
	if narrative {
		conf += 10
	}
	if conf > 95 {
		return 95
	}
	return conf
}
