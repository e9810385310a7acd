package enrich

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vexlio/sigcor-cli/api/schemas"
)

func TestParseFencedJSON(t *testing.T) {
	response := "Here is the briefing you asked for:\n" +
		"```json\n" +
		`{"summary": "Two correlated CVE topics.", "findings": ["RDP exposed", "CVE chatter rising"], "recommendations": ["Patch now"], "risk_level": "elevated"}` +
		"\n```\nLet me know if you need more detail."

	n, ok := parseNarrative(response)
	require.True(t, ok)
	assert.Equal(t, "Two correlated CVE topics.", n.Summary)
	assert.Equal(t, []string{"RDP exposed", "CVE chatter rising"}, n.Findings)
	assert.Equal(t, []string{"Patch now"}, n.Recommendations)
	assert.Equal(t, schemas.RiskElevated, n.RiskLevelGuess)
}

func TestParseBareJSON(t *testing.T) {
	response := `{"summary": "Quiet run.", "findings": ["nothing notable"], "risk_level": "low"}`

	n, ok := parseNarrative(response)
	require.True(t, ok)
	assert.Equal(t, "Quiet run.", n.Summary)
	assert.Equal(t, schemas.RiskLow, n.RiskLevelGuess)
}

func TestParseJSONInConversationalText(t *testing.T) {
	response := "Sure! Based on the data: {\"summary\": \"One exposure.\", \"findings\": [\"SSH open\"]} Hope that helps."

	n, ok := parseNarrative(response)
	require.True(t, ok)
	assert.Equal(t, "One exposure.", n.Summary)
	assert.Equal(t, []string{"SSH open"}, n.Findings)
}

func TestParseLabeledFields(t *testing.T) {
	response := "Summary: Elevated chatter around one CVE.\n" +
		"Risk level: Moderate\n"

	n, ok := parseNarrative(response)
	require.True(t, ok)
	assert.Equal(t, "Elevated chatter around one CVE.", n.Summary)
	assert.Equal(t, schemas.RiskModerate, n.RiskLevelGuess)
}

func TestParseSectionedProse(t *testing.T) {
	response := `SUMMARY
Infrastructure exposure preceded social discussion for two topics.

KEY FINDINGS
- RDP exposed on two hosts
- CVE-2024-21893 discussed with rising engagement
* VNC exposure uncorroborated

RISK
elevated

RECOMMENDATIONS
1. Patch CVE-2024-21893 immediately
2) Restrict RDP to the VPN
`

	n, ok := parseNarrative(response)
	require.True(t, ok)
	assert.Equal(t, "Infrastructure exposure preceded social discussion for two topics.", n.Summary)
	assert.Equal(t, []string{
		"RDP exposed on two hosts",
		"CVE-2024-21893 discussed with rising engagement",
		"VNC exposure uncorroborated",
	}, n.Findings)
	assert.Equal(t, schemas.RiskElevated, n.RiskLevelGuess)
	assert.Equal(t, []string{
		"Patch CVE-2024-21893 immediately",
		"Restrict RDP to the VPN",
	}, n.Recommendations)
}

func TestParseMarkdownHeaders(t *testing.T) {
	response := "## Summary\nOne correlated topic.\n\n## Findings\n- SMB exposed\n\n## Risk\nlow\n"

	n, ok := parseNarrative(response)
	require.True(t, ok)
	assert.Equal(t, "One correlated topic.", n.Summary)
	assert.Equal(t, []string{"SMB exposed"}, n.Findings)
	assert.Equal(t, schemas.RiskLow, n.RiskLevelGuess)
}

func TestParseRejectsOutOfDomainRiskLabel(t *testing.T) {
	response := `{"summary": "Busy run.", "findings": ["x"], "risk_level": "catastrophic"}`

	n, ok := parseNarrative(response)
	require.True(t, ok)
	assert.Empty(t, n.RiskLevelGuess,
		"an out-of-domain risk label is dropped so the heuristic value substitutes")
}

func TestParseUnparseableResponse(t *testing.T) {
	for name, response := range map[string]string{
		"empty":      "",
		"smallTalk":  "I'm sorry, I cannot help with that request.",
		"brokenJSON": "```json\n{\"summary\": \n```",
	} {
		t.Run(name, func(t *testing.T) {
			_, ok := parseNarrative(response)
			assert.False(t, ok)
		})
	}
}
