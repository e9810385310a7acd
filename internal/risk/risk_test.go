package risk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/vexlio/sigcor-cli/api/schemas"
)

var riskNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func sigsWithSeverity(sev schemas.Severity, n int, ts time.Time) []schemas.ThreatSignal {
	out := make([]schemas.ThreatSignal, n)
	for i := range out {
		out[i] = schemas.ThreatSignal{
			Severity:  sev,
			Sources:   []schemas.SourceName{schemas.SourceInfra},
			Timestamp: ts,
		}
	}
	return out
}

func TestScore(t *testing.T) {
	cases := []struct {
		name   string
		counts Counts
		want   int
	}{
		{"empty", Counts{}, 0},
		{"singleLow", Counts{Low: 1}, 1},
		{"mixed", Counts{High: 1, Medium: 2, Low: 3}, 33},
		{"twoCriticalOneHigh", Counts{Critical: 2, High: 1}, 100},
		{"capAtHundred", Counts{Critical: 5}, 100},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Score(tc.counts))
		})
	}
}

func TestScoreMonotonic(t *testing.T) {
	base := Counts{High: 1, Medium: 1}
	bumped := base
	bumped.Critical++
	assert.GreaterOrEqual(t, Score(bumped), Score(base),
		"adding a signal must never lower the score")
}

func TestLevelBoundaries(t *testing.T) {
	cases := []struct {
		score int
		want  schemas.RiskLevel
	}{
		{100, schemas.RiskCritical},
		{75, schemas.RiskCritical},
		{74, schemas.RiskElevated},
		{45, schemas.RiskElevated},
		{44, schemas.RiskModerate},
		{15, schemas.RiskModerate},
		{14, schemas.RiskLow},
		{0, schemas.RiskLow},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Level(tc.score), "score %d", tc.score)
	}
}

func TestCountSeveritiesExcludesInfo(t *testing.T) {
	signals := append(
		sigsWithSeverity(schemas.SeverityInfo, 3, riskNow),
		sigsWithSeverity(schemas.SeverityMedium, 2, riskNow)...,
	)

	counts := CountSeverities(signals)
	assert.Equal(t, Counts{Medium: 2}, counts)
	assert.Equal(t, 10, Score(counts), "info signals carry no score weight")
}

func TestTrend(t *testing.T) {
	recent := riskNow.Add(-10 * time.Minute)
	old := riskNow.Add(-3 * time.Hour)

	cases := []struct {
		name    string
		signals []schemas.ThreatSignal
		want    schemas.Trend
	}{
		{"emptyIsStable", nil, schemas.TrendStable},
		{"mostlyRecent", append(sigsWithSeverity(schemas.SeverityLow, 3, recent), sigsWithSeverity(schemas.SeverityLow, 1, old)...), schemas.TrendIncreasing},
		{"mostlyOld", append(sigsWithSeverity(schemas.SeverityLow, 1, recent), sigsWithSeverity(schemas.SeverityLow, 9, old)...), schemas.TrendDecreasing},
		{"balanced", append(sigsWithSeverity(schemas.SeverityLow, 1, recent), sigsWithSeverity(schemas.SeverityLow, 2, old)...), schemas.TrendStable},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			scorer := New(zap.NewNop()).WithClock(func() time.Time { return riskNow })
			got := scorer.Assess(tc.signals, 1, false)
			assert.Equal(t, tc.want, got.Trend)
		})
	}
}

func TestAssessScenario(t *testing.T) {
	scorer := New(zap.NewNop()).WithClock(func() time.Time { return riskNow })

	signals := append(
		sigsWithSeverity(schemas.SeverityCritical, 2, riskNow.Add(-5*time.Minute)),
		sigsWithSeverity(schemas.SeverityHigh, 1, riskNow.Add(-5*time.Minute))...,
	)

	got := scorer.Assess(signals, 2, false)

	assert.Equal(t, 100, got.Score)
	assert.Equal(t, schemas.RiskCritical, got.Level)
	assert.Equal(t, schemas.TrendIncreasing, got.Trend)
	// 50 base + 2 sources - no volume bonus below five signals.
	assert.Equal(t, 70, got.Confidence)
}

func TestConfidenceTerms(t *testing.T) {
	scorer := New(zap.NewNop()).WithClock(func() time.Time { return riskNow })

	cases := []struct {
		name      string
		signals   int
		sources   int
		narrative bool
		want      int
	}{
		{"baseline", 0, 0, false, 50},
		{"oneSource", 1, 1, false, 60},
		{"volumeBonusAtFive", 5, 1, false, 70},
		{"volumeBonusAtTen", 10, 1, false, 75},
		{"narrativeBonus", 10, 1, true, 85},
		{"cappedAt95", 12, 3, true, 95},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			signals := sigsWithSeverity(schemas.SeverityLow, tc.signals, riskNow)
			got := scorer.Assess(signals, tc.sources, tc.narrative)
			assert.Equal(t, tc.want, got.Confidence)
		})
	}
}
