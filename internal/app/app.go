// Package app wires the digest components together and runs one digest
// cycle end to end.
package app

import (
	"fmt"
	"time"

	"github.com/deusflow/newsdigest/internal/config"
	"github.com/deusflow/newsdigest/internal/digest"
	"github.com/deusflow/newsdigest/internal/fetch"
	"github.com/deusflow/newsdigest/internal/gemini"
	"github.com/deusflow/newsdigest/internal/logger"
	"github.com/deusflow/newsdigest/internal/metrics"
	"github.com/deusflow/newsdigest/internal/pipeline"
	"github.com/deusflow/newsdigest/internal/sources"
	"github.com/deusflow/newsdigest/internal/storage"
)

type App struct {
	cfg       *config.Config
	ai        *gemini.Client
	lister    sources.Lister
	fetcher   fetch.Fetcher
	pipeline  *pipeline.Pipeline
	publisher *storage.VaultPublisher
}

func New(cfg *config.Config) (*App, error) {
	ai, err := gemini.NewClient(cfg)
	if err != nil {
		return nil, err
	}

	lister := sources.NewSiteLister(cfg.RequestTimeout)
	fetcher := fetch.NewReadabilityFetcher(cfg.RequestTimeout)

	discoverer := pipeline.NewDiscoverer(lister, fetcher, cfg.DiscoveryHeadroom, cfg.FetchDelay, cfg.Preferences.MaxAgeHours)
	evaluator := pipeline.NewEvaluator(ai, cfg.Preferences)
	selector := pipeline.NewSelector(cfg.Preferences, cfg.PreferredBoost)

	return &App{
		cfg:       cfg,
		ai:        ai,
		lister:    lister,
		fetcher:   fetcher,
		pipeline:  pipeline.New(discoverer, evaluator, selector, cfg.Preferences.MaxArticles),
		publisher: storage.NewVaultPublisher(cfg.VaultPath, cfg.OutputFolder),
	}, nil
}

func (a *App) Close() {
	if a.ai != nil {
		a.ai.Close()
	}
}

// Run executes one digest cycle: pick article URLs, summarize them, and
// publish the digest into the vault.
func (a *App) Run() error {
	start := time.Now()

	srcs, err := sources.LoadSources(a.cfg.SourcesConfigPath)
	if err != nil {
		metrics.Global.SetError(err.Error())
		return fmt.Errorf("failed to load sources: %w", err)
	}
	if len(srcs) == 0 {
		metrics.Global.SetError("no sources configured")
		return fmt.Errorf("no sources configured in %s", a.cfg.SourcesConfigPath)
	}
	logger.Info("Starting digest run", "sources", len(srcs), "intelligent", a.cfg.UseIntelligentSelection)

	var urls []string
	if a.cfg.UseIntelligentSelection {
		urls = a.pipeline.GetArticleURLs(srcs)
	}
	if len(urls) == 0 {
		logger.Warn("Intelligent selection yielded nothing, using direct source handling")
		urls = a.directURLs(srcs)
	}
	logger.Info("Articles chosen for the digest", "count", len(urls))

	summaries := a.summarize(urls)

	now := time.Now()
	content := digest.Format(summaries, now)
	path, err := a.publisher.Publish(digest.Filename(now), content)
	if err != nil {
		metrics.Global.SetError(err.Error())
		return err
	}

	metrics.Global.SetLastRun()
	metrics.Global.RecordRunDuration(time.Since(start))
	logger.Info("Digest run finished", "path", path, "articles", len(summaries), "took", time.Since(start))
	return nil
}

// directURLs is the fallback path when selection produces nothing: take
// the first links of each source, splitting the article budget evenly.
func (a *App) directURLs(srcs []string) []string {
	perSource := a.cfg.Preferences.MaxArticles / len(srcs)
	if perSource < 1 {
		perSource = 1
	}

	var urls []string
	for _, src := range srcs {
		links, err := a.lister.ListArticleLinks(src)
		if err != nil {
			logger.Warn("Source failed during fallback, skipping", "source", src, "error", err)
			metrics.Global.IncrementSourceFailures()
			continue
		}
		if len(links) > perSource {
			links = links[:perSource]
		}
		urls = append(urls, links...)
	}

	if len(urls) > a.cfg.Preferences.MaxArticles {
		urls = urls[:a.cfg.Preferences.MaxArticles]
	}
	return urls
}

// summarize fetches each article and produces its digest block. A failing
// model call degrades to an extractive fallback, a failing fetch drops
// the article.
func (a *App) summarize(urls []string) []string {
	var summaries []string
	for _, u := range urls {
		meta, err := a.fetcher.FetchMetadata(u)
		if err != nil {
			logger.Warn("Failed to fetch article, dropping", "url", u, "error", err)
			continue
		}

		summary, err := a.ai.SummarizeArticle(meta.Title, u, pipeline.ExtractDomain(u), meta.Text)
		if err != nil {
			logger.Warn("Summarization failed, using fallback", "url", u, "error", err)
			summary = gemini.FallbackSummary(meta.Title, u, meta.Text)
		} else {
			metrics.Global.IncrementSummariesGenerated()
		}
		summaries = append(summaries, summary)

		if a.cfg.FetchDelay > 0 {
			time.Sleep(a.cfg.FetchDelay)
		}
	}
	return summaries
}
