package pipeline

import (
	"time"
	"unicode/utf8"

	"github.com/deusflow/newsdigest/internal/fetch"
	"github.com/deusflow/newsdigest/internal/logger"
	"github.com/deusflow/newsdigest/internal/metrics"
	"github.com/deusflow/newsdigest/internal/sources"
)

const snippetMaxChars = 200

// Discoverer turns source URLs into article candidates. Each source is
// independent: a failing source is logged and skipped, never fatal.
type Discoverer struct {
	lister      sources.Lister
	fetcher     fetch.Fetcher
	headroom    int           // link prefix multiplier over the per-source cap
	fetchDelay  time.Duration // pause between metadata fetches
	maxAgeHours int           // 0 = no age cutoff
}

func NewDiscoverer(lister sources.Lister, fetcher fetch.Fetcher, headroom int, fetchDelay time.Duration, maxAgeHours int) *Discoverer {
	if headroom < 1 {
		headroom = 1
	}
	return &Discoverer{
		lister:      lister,
		fetcher:     fetcher,
		headroom:    headroom,
		fetchDelay:  fetchDelay,
		maxAgeHours: maxAgeHours,
	}
}

// Discover collects up to maxPerSource candidates from each source URL,
// preserving source order and per-source link order.
func (d *Discoverer) Discover(sourceURLs []string, maxPerSource int) []Candidate {
	var all []Candidate

	for _, sourceURL := range sourceURLs {
		metrics.Global.IncrementSourcesScanned()

		candidates, err := d.discoverSource(sourceURL, maxPerSource)
		if err != nil {
			logger.Warn("Source discovery failed, skipping", "source", sourceURL, "error", err)
			metrics.Global.IncrementSourceFailures()
			continue
		}

		logger.Info("Discovered candidates", "source", sourceURL, "count", len(candidates))
		metrics.Global.AddCandidatesDiscovered(len(candidates))
		all = append(all, candidates...)
	}

	return all
}

func (d *Discoverer) discoverSource(sourceURL string, maxPerSource int) ([]Candidate, error) {
	links, err := d.lister.ListArticleLinks(sourceURL)
	if err != nil {
		return nil, err
	}

	// Inspect a prefix larger than the cap so links that fail or turn out
	// empty still leave enough usable candidates.
	limit := d.headroom * maxPerSource
	if len(links) > limit {
		links = links[:limit]
	}

	var candidates []Candidate
	for _, link := range links {
		if len(candidates) >= maxPerSource {
			break
		}

		meta, err := d.fetcher.FetchMetadata(link)
		d.pause()
		if err != nil {
			logger.Debug("Metadata fetch failed, skipping link", "url", link, "error", err)
			continue
		}
		if meta.Title == "" {
			logger.Debug("Skipping link without a title", "url", link)
			continue
		}
		if d.tooOld(meta.PublishedAt) {
			logger.Debug("Skipping stale article", "url", link, "published", meta.PublishedAt)
			continue
		}

		candidates = append(candidates, Candidate{
			Title:        meta.Title,
			URL:          link,
			Source:       ExtractDomain(link),
			PublishedAt:  meta.PublishedAt,
			Snippet:      snippet(meta.Text),
			OriginSource: sourceURL,
		})
	}

	return candidates, nil
}

// pause keeps metadata fetches polite to the target site.
func (d *Discoverer) pause() {
	if d.fetchDelay > 0 {
		time.Sleep(d.fetchDelay)
	}
}

// tooOld reports whether a publish time falls outside the freshness
// window. Articles without a publish time are kept.
func (d *Discoverer) tooOld(publishedAt *time.Time) bool {
	if d.maxAgeHours <= 0 || publishedAt == nil {
		return false
	}
	cutoff := time.Now().Add(-time.Duration(d.maxAgeHours) * time.Hour)
	return publishedAt.Before(cutoff)
}

func snippet(text string) string {
	if utf8.RuneCountInString(text) <= snippetMaxChars {
		return text
	}
	return string([]rune(text)[:snippetMaxChars])
}
