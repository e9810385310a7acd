package schemas

import "time"

// -- Source Schemas --

// SourceName identifies one of the external intelligence sources.
type SourceName string

// Constants for the supported sources.
const (
	SourceInfra  SourceName = "infra-scan"
	SourceSocial SourceName = "social-media"
)

// FetchOutcome records the per-source result of the fetch stage. A disabled
// source or a cache hit is still a success; a provider failure is surfaced
// here and never aborts the run.
type FetchOutcome struct {
	Source    SourceName `json:"source"`
	OK        bool       `json:"ok"`
	FromCache bool       `json:"from_cache"`
	Skipped   bool       `json:"skipped"`
	Error     string     `json:"error,omitempty"`
}

// -- Raw Provider Payload Shapes --
//
// The concrete HTTP clients for each provider are external collaborators; the
// pipeline only assumes their raw payloads match these documented shapes.

// InfraScanPayload is the raw infrastructure-scan payload shape.
type InfraScanPayload struct {
	Matches []InfraMatch `json:"matches"`
}

// InfraMatch is one exposed-service observation from the scan provider.
type InfraMatch struct {
	IP        string    `json:"ip"`
	Port      int       `json:"port"`
	Hostnames []string  `json:"hostnames"`
	Product   string    `json:"product"`
	Vulns     []string  `json:"vulns"`
	Banner    string    `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// SocialPayload is the raw social-media payload shape.
type SocialPayload struct {
	Posts []SocialPost `json:"posts"`
}

// SocialPost is one post from the social provider.
type SocialPost struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"created_at"`
	Likes     int       `json:"likes"`
	Reposts   int       `json:"reposts"`
	Comments  int       `json:"comments"`
}

// EngagementScore sums the post's like/repost-equivalent counters. It is used
// to rank representative excerpts, not to score risk.
func (p SocialPost) EngagementScore() int {
	return p.Likes + p.Reposts + p.Comments
}
