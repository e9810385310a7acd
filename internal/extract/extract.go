// Package extract turns raw per-source payloads into typed indicators and
// threat signals. Extraction is a pure, deterministic function of the payload
// and the supplied clock; a missing, empty, or malformed payload yields zero
// results, never an error.
package extract

import (
	"encoding/json"
	"fmt"
	"net"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/vexlio/sigcor-cli/api/schemas"
)

var (
	cveRegex    = regexp.MustCompile(`(?i)CVE-(\d{4})-(\d{4,})`)
	ipRegex     = regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`)
	domainRegex = regexp.MustCompile(`\b[a-zA-Z0-9][a-zA-Z0-9-]*(?:\.[a-zA-Z0-9][a-zA-Z0-9-]*)*\.[a-zA-Z]{2,}\b`)
)

// Extraction is the combined output of one source's extraction pass.
type Extraction struct {
	Indicators []schemas.Indicator
	Signals    []schemas.ThreatSignal
	Techniques []schemas.TechniqueEvidence
}

// Infrastructure extracts indicators and signals from a raw
// infrastructure-scan payload.
func Infrastructure(payload []byte, now time.Time) Extraction {
	var out Extraction
	var scan schemas.InfraScanPayload
	if len(payload) == 0 || json.Unmarshal(payload, &scan) != nil {
		return out
	}

	dedup := newIndicatorSet()
	for _, match := range scan.Matches {
		ts := match.Timestamp
		if ts.IsZero() {
			ts = now
		}

		if match.IP != "" {
			dedup.add(&out.Indicators, schemas.Indicator{
				Type: schemas.IndicatorIP, Value: match.IP,
				SourceOrigin: schemas.SourceInfra, FirstSeen: ts,
			})
		}
		for _, host := range match.Hostnames {
			dedup.add(&out.Indicators, schemas.Indicator{
				Type: schemas.IndicatorDomain, Value: strings.ToLower(host),
				SourceOrigin: schemas.SourceInfra, FirstSeen: ts,
			})
		}

		svc, known := portTable[match.Port]
		label := exposureLabel(match, svc, known)
		title := exposureTitle(match, svc, known)

		severity := schemas.SeverityInfo
		category := "exposed-service"
		if known {
			severity = svc.Severity
			category = svc.Category
		}

		out.Signals = append(out.Signals, schemas.ThreatSignal{
			ID:        uuid.New().String(),
			Title:     title,
			Severity:  severity,
			Category:  category,
			Label:     label,
			Sources:   []schemas.SourceName{schemas.SourceInfra},
			Timestamp: ts,
		})

		if known && svc.Technique != "" {
			observation := match.Banner
			if observation == "" {
				observation = title
			}
			out.Techniques = append(out.Techniques, schemas.TechniqueEvidence{
				Technique:   svc.Technique,
				Service:     svc.Service,
				Port:        match.Port,
				Observation: observation,
			})
		}

		// One signal per CVE so vulnerabilities correlate with social
		// discussion of the same id.
		for _, vuln := range match.Vulns {
			cve, ok := normalizeCVE(vuln)
			if !ok {
				continue
			}
			dedup.add(&out.Indicators, schemas.Indicator{
				Type: schemas.IndicatorCVE, Value: cve,
				SourceOrigin: schemas.SourceInfra, FirstSeen: ts,
			})
			out.Signals = append(out.Signals, schemas.ThreatSignal{
				ID:        uuid.New().String(),
				Title:     fmt.Sprintf("%s observed on %s:%d", cve, match.IP, match.Port),
				Severity:  cveSeverity(cve, now),
				Category:  "vulnerability",
				Label:     strings.ToLower(cve),
				Sources:   []schemas.SourceName{schemas.SourceInfra},
				Timestamp: ts,
			})
		}
	}
	return out
}

// Social extracts indicators and signals from a raw social-media payload.
func Social(payload []byte, now time.Time) Extraction {
	var out Extraction
	var feed schemas.SocialPayload
	if len(payload) == 0 || json.Unmarshal(payload, &feed) != nil {
		return out
	}

	dedup := newIndicatorSet()
	for _, post := range feed.Posts {
		ts := post.CreatedAt
		if ts.IsZero() {
			ts = now
		}
		engagement := post.EngagementScore()
		excerpt := excerptOf(post.Text)

		for _, raw := range cveRegex.FindAllString(post.Text, -1) {
			cve, ok := normalizeCVE(raw)
			if !ok {
				continue
			}
			dedup.add(&out.Indicators, schemas.Indicator{
				Type: schemas.IndicatorCVE, Value: cve,
				SourceOrigin: schemas.SourceSocial, FirstSeen: ts,
			})
			out.Signals = append(out.Signals, schemas.ThreatSignal{
				ID:         uuid.New().String(),
				Title:      excerpt,
				Severity:   cveSeverity(cve, now),
				Category:   "vulnerability-discussion",
				Label:      strings.ToLower(cve),
				Sources:    []schemas.SourceName{schemas.SourceSocial},
				Timestamp:  ts,
				Engagement: engagement,
			})
		}

		lowered := strings.ToLower(post.Text)
		for _, keyword := range keywordOrder {
			if !containsWord(lowered, keyword) {
				continue
			}
			entry := keywordLexicon[keyword]
			dedup.add(&out.Indicators, schemas.Indicator{
				Type: schemas.IndicatorKeyword, Value: keyword,
				SourceOrigin: schemas.SourceSocial, FirstSeen: ts,
			})
			out.Signals = append(out.Signals, schemas.ThreatSignal{
				ID:         uuid.New().String(),
				Title:      excerpt,
				Severity:   entry.Severity,
				Category:   entry.Category,
				Label:      keyword,
				Sources:    []schemas.SourceName{schemas.SourceSocial},
				Timestamp:  ts,
				Engagement: engagement,
			})
		}

		for _, ip := range ipRegex.FindAllString(post.Text, -1) {
			if net.ParseIP(ip) == nil {
				continue
			}
			dedup.add(&out.Indicators, schemas.Indicator{
				Type: schemas.IndicatorIP, Value: ip,
				SourceOrigin: schemas.SourceSocial, FirstSeen: ts,
			})
		}
		for _, domain := range domainRegex.FindAllString(post.Text, -1) {
			dedup.add(&out.Indicators, schemas.Indicator{
				Type: schemas.IndicatorDomain, Value: strings.ToLower(domain),
				SourceOrigin: schemas.SourceSocial, FirstSeen: ts,
			})
		}
	}
	return out
}

// MergeIndicators combines indicator lists with set semantics on (type, value),
// preserving first-insertion order for display.
func MergeIndicators(lists ...[]schemas.Indicator) []schemas.Indicator {
	dedup := newIndicatorSet()
	var merged []schemas.Indicator
	for _, list := range lists {
		for _, ind := range list {
			dedup.add(&merged, ind)
		}
	}
	return merged
}

// normalizeCVE validates and uppercases a CVE identifier.
func normalizeCVE(raw string) (string, bool) {
	m := cveRegex.FindStringSubmatch(raw)
	if m == nil {
		return "", false
	}
	return strings.ToUpper(m[0]), true
}

// cveSeverity derives a conservative default severity from the CVE's year
// component. It applies only when no authoritative severity accompanies the
// CVE; it is not a vulnerability-scoring system.
func cveSeverity(cve string, now time.Time) schemas.Severity {
	m := cveRegex.FindStringSubmatch(cve)
	if m == nil {
		return schemas.SeverityMedium
	}
	year, err := strconv.Atoi(m[1])
	if err != nil {
		return schemas.SeverityMedium
	}
	switch {
	case year >= now.Year()-1:
		return schemas.SeverityHigh
	case year >= now.Year()-3:
		return schemas.SeverityMedium
	default:
		return schemas.SeverityLow
	}
}

// exposureLabel picks the correlation label for a scan match: the product
// name when the provider reports one, else the service from the port table,
// else a port placeholder.
func exposureLabel(match schemas.InfraMatch, svc portService, known bool) string {
	if match.Product != "" {
		return strings.ToLower(match.Product)
	}
	if known {
		return svc.Service
	}
	return fmt.Sprintf("port-%d", match.Port)
}

func exposureTitle(match schemas.InfraMatch, svc portService, known bool) string {
	name := match.Product
	if name == "" && known {
		name = svc.Service
	}
	if name == "" {
		name = "Service"
	}
	return fmt.Sprintf("%s exposed on %s:%d", name, match.IP, match.Port)
}

// excerptOf returns a bounded single-line excerpt of post text.
func excerptOf(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	const maxLen = 140
	if len(text) <= maxLen {
		return text
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + "..."
}

// containsWord reports whether keyword occurs in text on word boundaries, so
// "ssh" does not match inside "sshd_config" paths or unrelated words.
func containsWord(text, keyword string) bool {
	idx := 0
	for {
		i := strings.Index(text[idx:], keyword)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(keyword)
		beforeOK := start == 0 || !isWordChar(text[start-1])
		afterOK := end == len(text) || !isWordChar(text[end])
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
	}
}

func isWordChar(b byte) bool {
	return b == '_' || b == '-' ||
		(b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

// indicatorSet enforces (type, value) set semantics during extraction.
type indicatorSet map[string]struct{}

func newIndicatorSet() indicatorSet { return make(indicatorSet) }

func (s indicatorSet) add(dst *[]schemas.Indicator, ind schemas.Indicator) {
	key := ind.Key()
	if _, seen := s[key]; seen {
		return
	}
	s[key] = struct{}{}
	*dst = append(*dst, ind)
}
