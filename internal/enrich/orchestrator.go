package enrich

import (
	"context"

	"go.uber.org/zap"

	"github.com/vexlio/sigcor-cli/api/schemas"
)

// Orchestrator runs the enrichment step: build the compact context, make one
// bounded generation attempt, parse the response, and fall back field-by-field
// to the deterministic heuristic. It always returns a usable result.
type Orchestrator struct {
	generator Generator
	model     string
	logger    *zap.Logger
}

// NewOrchestrator creates the enrichment orchestrator. A nil generator
// disables the external call entirely; every run then uses the heuristic.
func NewOrchestrator(generator Generator, model string, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		generator: generator,
		model:     model,
		logger:    logger.Named("enrich"),
	}
}

// Enrich produces the narrative for one run. Any failure of the external call
// or of all parsing strategies degrades to the heuristic result; a parsed
// response with missing or out-of-domain fields keeps its valid fields and
// substitutes the heuristic value for the rest.
func (o *Orchestrator) Enrich(ctx context.Context, intel schemas.IntelArtifact, assessment schemas.RiskAssessment) schemas.EnrichmentResult {
	fallback := Heuristic(intel, assessment)

	if o.generator == nil {
		o.logger.Info("Enrichment disabled, using heuristic narrative",
			zap.String("model", HeuristicModelTag))
		return fallback
	}

	prompt := BuildContext(intel, assessment)
	text, err := o.generator.Generate(ctx, prompt)
	if err != nil {
		o.logger.Warn("Narrative generation failed, falling back to heuristic",
			zap.Error(err), zap.String("model", HeuristicModelTag))
		return fallback
	}

	parsed, ok := parseNarrative(text)
	if !ok {
		o.logger.Warn("Narrative response unparseable, falling back to heuristic",
			zap.String("model", HeuristicModelTag))
		return fallback
	}

	result := schemas.EnrichmentResult{
		Summary:         parsed.Summary,
		Findings:        parsed.Findings,
		Recommendations: parsed.Recommendations,
		RiskLevelGuess:  parsed.RiskLevelGuess,
		Model:           o.model,
	}
	if result.Summary == "" {
		result.Summary = fallback.Summary
	}
	if len(result.Findings) == 0 {
		result.Findings = fallback.Findings
	}
	if len(result.Recommendations) == 0 {
		result.Recommendations = fallback.Recommendations
	}
	if result.RiskLevelGuess == "" {
		result.RiskLevelGuess = fallback.RiskLevelGuess
	}

	o.logger.Info("Enrichment complete", zap.String("model", result.Model))
	return result
}
