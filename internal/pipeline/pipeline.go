package pipeline

import (
	"fmt"

	"github.com/deusflow/newsdigest/internal/logger"
	"github.com/deusflow/newsdigest/internal/metrics"
)

// Pipeline runs discovery, evaluation and selection end to end.
type Pipeline struct {
	discoverer  *Discoverer
	evaluator   *Evaluator
	selector    *Selector
	maxArticles int
}

func New(discoverer *Discoverer, evaluator *Evaluator, selector *Selector, maxArticles int) *Pipeline {
	return &Pipeline{
		discoverer:  discoverer,
		evaluator:   evaluator,
		selector:    selector,
		maxArticles: maxArticles,
	}
}

// GetArticleURLs runs the full pipeline for the given sources and returns
// the selected article URLs, best first. It never fails: any error or
// panic in a stage yields an empty list, which the caller treats as a
// signal to fall back to direct source handling.
func (p *Pipeline) GetArticleURLs(sourceURLs []string) (urls []string) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Article selection pipeline panicked", "panic", r)
			metrics.Global.SetError(fmt.Sprintf("pipeline panic: %v", r))
			urls = nil
		}
	}()

	candidates := p.discoverer.Discover(sourceURLs, p.maxArticles)
	if len(candidates) == 0 {
		logger.Warn("No article candidates discovered from configured sources")
		return nil
	}

	scored := p.evaluator.Evaluate(candidates)
	if len(scored) == 0 {
		logger.Warn("No candidates survived evaluation")
		return nil
	}

	selected := p.selector.Select(scored)
	metrics.Global.AddCandidatesSelected(len(selected))

	urls = make([]string, 0, len(selected))
	for _, c := range selected {
		urls = append(urls, c.URL)
	}
	return urls
}
