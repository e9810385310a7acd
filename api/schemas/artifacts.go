package schemas

import "time"

// -- Persisted Artifact Schemas --
//
// These are the JSON artifacts consumed by the presentation layer. Field names
// are part of the external contract and must stay stable.

// IntelSummary aggregates counts over the normalized intermediate artifact.
type IntelSummary struct {
	TotalThreats int                `json:"totalThreats"`
	BySeverity   map[Severity]int   `json:"bySeverity"`
	ByCategory   map[string]int     `json:"byCategory"`
	BySource     map[SourceName]int `json:"bySource"`
}

// CorrelationSummary carries run-level correlation counts.
type CorrelationSummary struct {
	CorrelatedSignals int `json:"correlatedSignals"`
}

// CorrelationReport is the correlation section of the intermediate artifact.
type CorrelationReport struct {
	Signals         []CorrelationSignal `json:"signals"`
	DominantPattern TemporalPattern     `json:"dominantPattern"`
	Summary         CorrelationSummary  `json:"summary"`
}

// IntelArtifact is the normalized intermediate artifact: typed indicators,
// threat signals, technique evidence, and the correlation report.
type IntelArtifact struct {
	Threats     []ThreatSignal      `json:"threats"`
	Indicators  []Indicator         `json:"indicators"`
	Techniques  []TechniqueEvidence `json:"techniques,omitempty"`
	Summary     IntelSummary        `json:"summary"`
	Correlation *CorrelationReport  `json:"correlation,omitempty"`
}

// RunArtifact is the final artifact of one pipeline invocation. It combines
// everything the presentation layer needs: the risk banner fields, the
// normalized intel, the enrichment narrative with its provenance tag, and the
// per-source fetch outcomes.
type RunArtifact struct {
	RunID       string           `json:"run_id"`
	GeneratedAt time.Time        `json:"generated_at"`
	Risk        RiskAssessment   `json:"risk"`
	Intel       IntelArtifact    `json:"intel"`
	Enrichment  EnrichmentResult `json:"enrichment"`
	Fetches     []FetchOutcome   `json:"fetches"`
}
