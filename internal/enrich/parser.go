package enrich

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/vexlio/sigcor-cli/api/schemas"
)

// narrative is a partially parsed generation response. Empty fields are filled
// from the heuristic result by the orchestrator; RiskLevelGuess is only set
// when it is a valid risk label.
type narrative struct {
	Summary         string
	Findings        []string
	Recommendations []string
	RiskLevelGuess  schemas.RiskLevel
}

func (n narrative) empty() bool {
	return n.Summary == "" && len(n.Findings) == 0
}

var (
	// Raw strings cannot contain backticks, hence \x60 for markdown fences.
	fencedJSONRegex = regexp.MustCompile("(?s)\x60\x60\x60(?:json)?\\s*({.*})\\s*\x60\x60\x60")

	summaryLineRegex = regexp.MustCompile(`(?im)^\s*(?:#+\s*|\*{0,2})summary\*{0,2}\s*[:\-]\s*(.+)$`)
	riskLabelRegex   = regexp.MustCompile(`(?i)\brisk(?:\s+level)?\*{0,2}\s*[:\-]?\s*\*{0,2}\s*(critical|elevated|moderate|low)\b`)
	bulletRegex      = regexp.MustCompile(`^\s*(?:[-*\x{2022}]|\d+[.)])\s+(.+)$`)
	headerRegex      = regexp.MustCompile(`(?i)^\s*(?:#+\s*|\*{2})?\s*(summary|key\s+findings|findings|risk(?:\s+(?:level|assessment))?|recommendations?)\b[:\s*]*$`)
)

// parserStrategies is the ordered list of parsing strategies. Each is a pure
// function over the response text returning a partial narrative; the first
// strategy producing a non-empty result wins.
var parserStrategies = []func(string) narrative{
	parseEmbeddedJSON,
	parseLabeledFields,
	parseSections,
}

// parseNarrative runs the strategies in order and returns the first non-empty
// partial result.
func parseNarrative(text string) (narrative, bool) {
	for _, strategy := range parserStrategies {
		if n := strategy(text); !n.empty() {
			return n, true
		}
	}
	return narrative{}, false
}

// parseEmbeddedJSON locates a structured object inside the response, either in
// a markdown fence or between the outermost braces of conversational text.
func parseEmbeddedJSON(text string) narrative {
	text = strings.TrimSpace(text)
	candidate := text

	if m := fencedJSONRegex.FindStringSubmatch(text); len(m) > 1 {
		candidate = m[1]
	} else if !strings.HasPrefix(text, "{") {
		first := strings.Index(text, "{")
		last := strings.LastIndex(text, "}")
		if first == -1 || last <= first {
			return narrative{}
		}
		candidate = text[first : last+1]
	}

	var payload struct {
		Summary         string   `json:"summary"`
		Findings        []string `json:"findings"`
		Recommendations []string `json:"recommendations"`
		RiskLevel       string   `json:"risk_level"`
	}
	if err := json.Unmarshal([]byte(candidate), &payload); err != nil {
		return narrative{}
	}

	return narrative{
		Summary:         strings.TrimSpace(payload.Summary),
		Findings:        trimAll(payload.Findings),
		Recommendations: trimAll(payload.Recommendations),
		RiskLevelGuess:  validRiskLabel(payload.RiskLevel),
	}
}

// parseLabeledFields regex-extracts individually named fields from free text.
func parseLabeledFields(text string) narrative {
	var n narrative
	if m := summaryLineRegex.FindStringSubmatch(text); len(m) > 1 {
		n.Summary = strings.TrimSpace(m[1])
	}
	if m := riskLabelRegex.FindStringSubmatch(text); len(m) > 1 {
		n.RiskLevelGuess = validRiskLabel(m[1])
	}
	return n
}

// parseSections handles prose responses: it locates SUMMARY / KEY FINDINGS /
// RISK / RECOMMENDATIONS headers and collects the bullet lists (or prose)
// within each block.
func parseSections(text string) narrative {
	var n narrative
	section := ""
	var summaryLines []string

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		if m := headerRegex.FindStringSubmatch(trimmed); len(m) > 1 {
			section = normalizeHeader(m[1])
			continue
		}

		switch section {
		case "summary":
			if m := bulletRegex.FindStringSubmatch(line); len(m) > 1 {
				summaryLines = append(summaryLines, strings.TrimSpace(m[1]))
			} else {
				summaryLines = append(summaryLines, trimmed)
			}
		case "findings":
			if m := bulletRegex.FindStringSubmatch(line); len(m) > 1 {
				n.Findings = append(n.Findings, strings.TrimSpace(m[1]))
			}
		case "risk":
			if n.RiskLevelGuess == "" {
				if m := riskLabelRegex.FindStringSubmatch("risk: " + trimmed); len(m) > 1 {
					n.RiskLevelGuess = validRiskLabel(m[1])
				}
			}
		case "recommendations":
			if m := bulletRegex.FindStringSubmatch(line); len(m) > 1 {
				n.Recommendations = append(n.Recommendations, strings.TrimSpace(m[1]))
			}
		}
	}

	n.Summary = strings.Join(summaryLines, " ")
	return n
}

func normalizeHeader(header string) string {
	h := strings.ToLower(strings.TrimSpace(header))
	switch {
	case strings.Contains(h, "finding"):
		return "findings"
	case strings.Contains(h, "recommendation"):
		return "recommendations"
	case strings.Contains(h, "risk"):
		return "risk"
	default:
		return "summary"
	}
}

// validRiskLabel returns the label as a RiskLevel when it is in-domain, else
// empty so the heuristic value substitutes for this one field.
func validRiskLabel(label string) schemas.RiskLevel {
	lowered := strings.ToLower(strings.TrimSpace(label))
	if schemas.ValidRiskLevel(lowered) {
		return schemas.RiskLevel(lowered)
	}
	return ""
}

func trimAll(items []string) []string {
	var out []string
	for _, item := range items {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
