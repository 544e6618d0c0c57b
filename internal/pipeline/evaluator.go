package pipeline

import (
	"fmt"

	"github.com/deusflow/newsdigest/internal/config"
	"github.com/deusflow/newsdigest/internal/gemini"
	"github.com/deusflow/newsdigest/internal/logger"
	"github.com/deusflow/newsdigest/internal/metrics"
)

// Judge rates one candidate against the preference profile.
type Judge interface {
	JudgeArticle(prefs config.Preferences, title, source, snippet string) (*gemini.Judgment, error)
}

// Evaluator attaches a model judgment to each candidate. Candidates from
// excluded sources are skipped before any judgment request is spent, and
// candidates whose judgment fails are dropped; input order is preserved
// for the rest.
type Evaluator struct {
	judge Judge
	prefs config.Preferences
}

func NewEvaluator(judge Judge, prefs config.Preferences) *Evaluator {
	return &Evaluator{judge: judge, prefs: prefs}
}

func (e *Evaluator) Evaluate(candidates []Candidate) []ScoredCandidate {
	excluded := toSet(e.prefs.ExcludedSources)

	var scored []ScoredCandidate
	for _, c := range candidates {
		if _, skip := excluded[c.Source]; skip {
			logger.Info("Skipping excluded source", "source", c.Source, "title", c.Title)
			continue
		}

		snippet := c.Snippet
		if snippet == "" {
			snippet = fmt.Sprintf("[No preview for %s]", c.Title)
		}

		metrics.Global.IncrementJudgmentsIssued()
		judgment, err := e.judge.JudgeArticle(e.prefs, c.Title, c.Source, snippet)
		if err != nil {
			logger.Warn("Judgment failed, dropping candidate", "title", c.Title, "source", c.Source, "error", err)
			metrics.Global.IncrementJudgmentFailures()
			continue
		}

		sc := ScoredCandidate{
			Candidate:       c,
			Topics:          judgment.Topics,
			RelevanceScore:  judgment.RelevanceScore,
			IsOpinion:       judgment.IsOpinion,
			IsAnalysis:      judgment.IsAnalysis,
			GeographicFocus: judgment.GeographicFocus,
			KeywordsMatched: judgment.KeywordsMatched,
			EvaluationNotes: judgment.EvaluationNotes,
		}
		sc.Snippet = snippet
		scored = append(scored, sc)
	}

	return scored
}
