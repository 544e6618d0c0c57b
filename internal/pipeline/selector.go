package pipeline

import (
	"sort"

	"github.com/deusflow/newsdigest/internal/config"
	"github.com/deusflow/newsdigest/internal/logger"
)

// Selector filters scored candidates against the preference profile,
// boosts preferred sources, and keeps the top N by relevance. It builds
// new ScoredCandidate values; the input slice's elements are never
// modified.
type Selector struct {
	prefs config.Preferences
	boost float64 // preferred-source score multiplier, >= 1.0
}

func NewSelector(prefs config.Preferences, boost float64) *Selector {
	if boost < 1.0 {
		boost = 1.0
	}
	return &Selector{prefs: prefs, boost: boost}
}

func (s *Selector) Select(candidates []ScoredCandidate) []ScoredCandidate {
	excluded := toSet(s.prefs.ExcludedSources)
	preferred := toSet(s.prefs.PreferredSources)

	kept := make([]ScoredCandidate, 0, len(candidates))
	for _, c := range candidates {
		// Excluded sources are filtered again here: the evaluator already
		// skips them, but selection must hold even for candidates scored
		// elsewhere.
		if _, drop := excluded[c.Source]; drop {
			continue
		}
		if c.RelevanceScore < s.prefs.RelevanceThreshold {
			continue
		}
		// Only an explicit true drops a piece; an unknown flag passes.
		if !s.prefs.IncludeOpinion && c.IsOpinion != nil && *c.IsOpinion {
			continue
		}
		if !s.prefs.IncludeAnalysis && c.IsAnalysis != nil && *c.IsAnalysis {
			continue
		}

		if _, ok := preferred[c.Source]; ok {
			c.RelevanceScore = c.RelevanceScore * s.boost
			if c.RelevanceScore > 1.0 {
				c.RelevanceScore = 1.0
			}
		}

		kept = append(kept, c)
	}

	// Stable sort: equal scores keep their evaluation order.
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].RelevanceScore > kept[j].RelevanceScore
	})

	if len(kept) > s.prefs.MaxArticles {
		kept = kept[:s.prefs.MaxArticles]
	}

	for i := range kept {
		kept[i].Selected = true
	}

	logger.Info("Selected articles", "kept", len(kept), "scored", len(candidates))
	return kept
}
