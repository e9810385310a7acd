package schemas

import (
	"time"
)

// -- Signal Schemas --

// Severity represents the severity level of a threat signal. The values are
// lowercase to keep them stable in persisted JSON artifacts.
type Severity string

// Constants defining the standard severity levels for threat signals.
const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"
)

// severityRank orders severities from most to least severe for sorting.
var severityRank = map[Severity]int{
	SeverityCritical: 0,
	SeverityHigh:     1,
	SeverityMedium:   2,
	SeverityLow:      3,
	SeverityInfo:     4,
}

// Rank returns a sortable rank for the severity; lower is more severe.
// Unknown severities sort last.
func (s Severity) Rank() int {
	if r, ok := severityRank[s]; ok {
		return r
	}
	return len(severityRank)
}

// IndicatorType categorizes a typed atomic fact extracted from a source.
type IndicatorType string

// Constants for the supported indicator types.
const (
	IndicatorCVE     IndicatorType = "cve"
	IndicatorIP      IndicatorType = "ip"
	IndicatorDomain  IndicatorType = "domain"
	IndicatorKeyword IndicatorType = "keyword"
)

// Indicator is a typed atomic fact (CVE id, IP, domain, keyword) extracted
// from a source payload. Indicators are deduplicated by (Type, Value); slice
// order is insertion order and matters only for display.
type Indicator struct {
	Type         IndicatorType `json:"type"`
	Value        string        `json:"value"`
	SourceOrigin SourceName    `json:"source_origin"`
	FirstSeen    time.Time     `json:"first_seen"`
}

// Key returns the deduplication key for the indicator.
func (i Indicator) Key() string {
	return string(i.Type) + ":" + i.Value
}

// ThreatSignal is a normalized event or observation with a severity and a
// category. Signals are created once per normalized event and are immutable
// for the remainder of the run.
type ThreatSignal struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Severity Severity `json:"severity"`
	Category string   `json:"category"`

	// Label is the normalized topic/keyword/CVE/product key used by the
	// correlation engine to group signals across sources.
	Label string `json:"label"`

	Sources   []SourceName `json:"sources"`
	Timestamp time.Time    `json:"timestamp"`

	// Engagement is only populated for social-media signals and is used to
	// rank representative excerpts. Zero elsewhere.
	Engagement int `json:"engagement,omitempty"`
}

// TechniqueEvidence records a port/service observation that maps to a known
// adversary technique, citing the originating observation text.
type TechniqueEvidence struct {
	Technique   string `json:"technique"`
	Service     string `json:"service"`
	Port        int    `json:"port"`
	Observation string `json:"observation"`
}

// -- Correlation Schemas --

// TemporalPattern classifies the temporal precedence between infrastructure
// exposure and social discussion for one correlated signal, or across a run.
type TemporalPattern string

// Constants for the temporal precedence classifications.
const (
	PatternInfraFirst   TemporalPattern = "infra-first"
	PatternSocialFirst  TemporalPattern = "social-first"
	PatternSimultaneous TemporalPattern = "simultaneous"
	// PatternInsufficient is the run-level dominant pattern when no correlated
	// signal carries a temporal classification, or when the vote ties.
	PatternInsufficient TemporalPattern = "insufficient-data"
)

// SourceActivity summarizes one source's contribution to a correlated signal.
type SourceActivity struct {
	Count    int       `json:"count"`
	Samples  []string  `json:"sample_data"`
	LastSeen time.Time `json:"last_seen"`
}

// TemporalAnalysis holds the temporal interpretation of a correlated signal.
// TimeDeltaHours is socialLastSeen minus infraLastSeen, rounded to the nearest
// tenth of an hour; a positive delta means the infrastructure exposure came first.
type TemporalAnalysis struct {
	TimeDeltaHours      float64         `json:"time_delta_hours"`
	InfraPrecedesSocial bool            `json:"infra_precedes_social"`
	Pattern             TemporalPattern `json:"pattern"`
}

// CorrelationSignal is a topic observed under at least two distinct sources,
// built fresh each run from threat signals sharing a label.
type CorrelationSignal struct {
	ID             string                        `json:"id"`
	Label          string                        `json:"label"`
	PerSource      map[SourceName]SourceActivity `json:"per_source"`
	Temporal       *TemporalAnalysis             `json:"temporal_analysis,omitempty"`
	Interpretation string                        `json:"interpretation"`
}

// -- Risk Schemas --

// RiskLevel buckets the aggregate risk score.
type RiskLevel string

// Constants for the aggregate risk levels.
const (
	RiskCritical RiskLevel = "critical"
	RiskElevated RiskLevel = "elevated"
	RiskModerate RiskLevel = "moderate"
	RiskLow      RiskLevel = "low"
)

// ValidRiskLevel reports whether s is one of the defined risk levels.
func ValidRiskLevel(s string) bool {
	switch RiskLevel(s) {
	case RiskCritical, RiskElevated, RiskModerate, RiskLow:
		return true
	}
	return false
}

// Trend classifies how signal volume is developing within the run window.
type Trend string

// Constants for the trend classifications.
const (
	TrendIncreasing Trend = "increasing"
	TrendStable     Trend = "stable"
	TrendDecreasing Trend = "decreasing"
)

// RiskAssessment is the derived, run-scoped risk verdict. It is recomputed on
// every pipeline invocation and never mutated incrementally.
type RiskAssessment struct {
	Score      int       `json:"score"`      // 0..100
	Level      RiskLevel `json:"level"`
	Trend      Trend     `json:"trend"`
	Confidence int       `json:"confidence"` // 0..95, additive heuristic
}

// -- Enrichment Schemas --

// EnrichmentResult is the narrative produced by the external generation call,
// or by the deterministic heuristic when that call fails. Model records the
// provenance; consumers must treat both provenances as equally valid.
type EnrichmentResult struct {
	Summary         string    `json:"summary"`
	Findings        []string  `json:"findings"`
	Recommendations []string  `json:"recommendations"`
	RiskLevelGuess  RiskLevel `json:"risk_level_guess"`
	Model           string    `json:"model"`
}
