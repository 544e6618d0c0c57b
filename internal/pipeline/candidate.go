// Package pipeline implements the article candidate pipeline: discovery
// from configured sources, model-backed relevance evaluation, and ranked
// selection against the user's preference profile.
package pipeline

import (
	"net/url"
	"strings"
	"time"
)

// Candidate is one discovered article, identified by URL, not yet scored.
type Candidate struct {
	Title        string
	URL          string
	Source       string // bare domain, via ExtractDomain
	PublishedAt  *time.Time
	Snippet      string
	OriginSource string // the source URL it was discovered from
}

// ScoredCandidate is a candidate enriched with the model's judgment.
// Selector returns fresh values rather than mutating its input, so a
// caller's candidates keep their original score and Selected flag.
type ScoredCandidate struct {
	Candidate

	Topics          []string
	RelevanceScore  float64 // [0,1]
	IsOpinion       *bool   // nil when the model could not tell
	IsAnalysis      *bool
	GeographicFocus string
	KeywordsMatched []string
	EvaluationNotes string
	Selected        bool
}

// ExtractDomain returns the bare host of a URL with any leading "www."
// stripped, or "" when the URL has no parseable host. Source preference
// lists are matched against this value by exact string equality, so
// subdomains count as distinct sources.
func ExtractDomain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ""
	}
	return strings.TrimPrefix(u.Host, "www.")
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
