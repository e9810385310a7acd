package enrich

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/vexlio/sigcor-cli/api/schemas"
)

// Bounds for the compact generation context. The context is a few dozen lines
// at most regardless of how much intel the run produced.
const (
	maxContextThreats        = 10
	maxContextIndicators     = 5
	maxContextCorrelations   = 8
	maxContextObservationLen = 120
)

// BuildContext renders the compact textual context for the generation call:
// top threats ranked by severity, top indicators per type, and the correlated
// topics with their temporal reading.
func BuildContext(intel schemas.IntelArtifact, assessment schemas.RiskAssessment) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Cross-source threat intelligence for one collection run.\n")
	fmt.Fprintf(&b, "Risk score %d/100 (%s), trend %s, confidence %d.\n",
		assessment.Score, assessment.Level, assessment.Trend, assessment.Confidence)
	fmt.Fprintf(&b, "Signals: %d total; critical=%d high=%d medium=%d low=%d.\n",
		intel.Summary.TotalThreats,
		intel.Summary.BySeverity[schemas.SeverityCritical],
		intel.Summary.BySeverity[schemas.SeverityHigh],
		intel.Summary.BySeverity[schemas.SeverityMedium],
		intel.Summary.BySeverity[schemas.SeverityLow])

	if threats := topThreats(intel.Threats, maxContextThreats); len(threats) > 0 {
		b.WriteString("Top threats:\n")
		for _, t := range threats {
			fmt.Fprintf(&b, "- [%s] %s\n", t.Severity, truncate(t.Title, maxContextObservationLen))
		}
	}

	if lines := indicatorLines(intel.Indicators); len(lines) > 0 {
		b.WriteString("Indicators:\n")
		for _, line := range lines {
			b.WriteString("- " + line + "\n")
		}
	}

	if intel.Correlation != nil && len(intel.Correlation.Signals) > 0 {
		b.WriteString("Correlated topics:\n")
		for i, sig := range intel.Correlation.Signals {
			if i == maxContextCorrelations {
				break
			}
			b.WriteString("- " + truncate(sig.Interpretation, maxContextObservationLen) + "\n")
		}
		fmt.Fprintf(&b, "Dominant temporal pattern: %s.\n", intel.Correlation.DominantPattern)
	}

	b.WriteString("\nWrite a threat briefing with these sections: SUMMARY, KEY FINDINGS, RISK, RECOMMENDATIONS.\n")
	b.WriteString("Use bullet lists for findings and recommendations. State RISK as one of: critical, elevated, moderate, low.\n")
	return b.String()
}

// topThreats returns up to n threats ordered by severity, then recency.
func topThreats(threats []schemas.ThreatSignal, n int) []schemas.ThreatSignal {
	ranked := append([]schemas.ThreatSignal(nil), threats...)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Severity.Rank() != ranked[j].Severity.Rank() {
			return ranked[i].Severity.Rank() < ranked[j].Severity.Rank()
		}
		return ranked[i].Timestamp.After(ranked[j].Timestamp)
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

// indicatorLines renders up to maxContextIndicators values per indicator type.
func indicatorLines(indicators []schemas.Indicator) []string {
	byType := make(map[schemas.IndicatorType][]string)
	for _, ind := range indicators {
		if len(byType[ind.Type]) < maxContextIndicators {
			byType[ind.Type] = append(byType[ind.Type], ind.Value)
		}
	}

	types := make([]string, 0, len(byType))
	for t := range byType {
		types = append(types, string(t))
	}
	sort.Strings(types)

	lines := make([]string, 0, len(types))
	for _, t := range types {
		lines = append(lines, fmt.Sprintf("%s: %s", t, strings.Join(byType[schemas.IndicatorType(t)], ", ")))
	}
	return lines
}

// truncate bounds s to maxLen bytes, cutting on a rune boundary so multibyte
// text stays valid UTF-8.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
