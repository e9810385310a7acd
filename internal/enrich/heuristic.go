package enrich

import (
	"fmt"
	"sort"

	"github.com/vexlio/sigcor-cli/api/schemas"
)

// HeuristicModelTag is the provenance tag on fallback results. Consumers must
// treat heuristic and model-generated narratives as equally valid inputs.
const HeuristicModelTag = "heuristic-v1"

const maxHeuristicFindings = 5

// recommendationsByLevel is the fixed recommendation baseline per risk level.
var recommendationsByLevel = map[schemas.RiskLevel][]string{
	schemas.RiskCritical: {
		"Initiate incident response review of all critical findings immediately.",
		"Prioritize patching of any correlated CVEs before the next collection run.",
	},
	schemas.RiskElevated: {
		"Review high-severity exposures and schedule remediation within the current cycle.",
		"Increase collection cadence while the elevated level persists.",
	},
	schemas.RiskModerate: {
		"Triage medium-severity findings during routine review.",
	},
	schemas.RiskLow: {
		"Continue monitoring at the standard cadence.",
	},
}

// categoryRecommendations adds one targeted recommendation per observed signal
// category.
var categoryRecommendations = map[string]string{
	"remote-access":      "Restrict exposed remote-access services to VPN or allow-listed ranges.",
	"remote-desktop":     "Disable direct internet exposure of remote-desktop services.",
	"file-sharing":       "Block inbound SMB/file-sharing at the network perimeter.",
	"exposed-data-store": "Move exposed data stores behind authentication and private networking.",
	"vulnerability":      "Verify patch status for each CVE observed on scanned infrastructure.",
}

// Heuristic computes a fully deterministic enrichment from the numeric and
// context data alone. Identical input yields identical output, which is what
// makes the fallback safe to substitute for the external call.
func Heuristic(intel schemas.IntelArtifact, assessment schemas.RiskAssessment) schemas.EnrichmentResult {
	result := schemas.EnrichmentResult{
		Summary:        heuristicSummary(intel, assessment),
		RiskLevelGuess: assessment.Level,
		Model:          HeuristicModelTag,
	}

	for _, t := range topThreats(intel.Threats, maxHeuristicFindings) {
		result.Findings = append(result.Findings, fmt.Sprintf("[%s] %s", t.Severity, t.Title))
	}
	if intel.Correlation != nil {
		for i, sig := range intel.Correlation.Signals {
			if i == 2 {
				break
			}
			result.Findings = append(result.Findings, sig.Interpretation)
		}
	}

	result.Recommendations = append(result.Recommendations, recommendationsByLevel[assessment.Level]...)
	for _, category := range sortedCategories(intel.Summary.ByCategory) {
		if rec, ok := categoryRecommendations[category]; ok {
			result.Recommendations = append(result.Recommendations, rec)
		}
	}
	return result
}

func heuristicSummary(intel schemas.IntelArtifact, assessment schemas.RiskAssessment) string {
	correlated := 0
	pattern := schemas.PatternInsufficient
	if intel.Correlation != nil {
		correlated = intel.Correlation.Summary.CorrelatedSignals
		pattern = intel.Correlation.DominantPattern
	}
	return fmt.Sprintf(
		"Automated assessment: %d threat signals collected; aggregate risk %s (score %d/100), trend %s. %d topics correlated across sources; dominant temporal pattern: %s.",
		intel.Summary.TotalThreats, assessment.Level, assessment.Score, assessment.Trend, correlated, pattern)
}

func sortedCategories(byCategory map[string]int) []string {
	categories := make([]string, 0, len(byCategory))
	for category, count := range byCategory {
		if count > 0 {
			categories = append(categories, category)
		}
	}
	sort.Strings(categories)
	return categories
}
