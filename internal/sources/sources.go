// Package sources loads the configured news source list and resolves each
// source into a list of candidate article links.
package sources

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"gopkg.in/yaml.v3"
)

// SourcesConfig is the YAML config structure
// sources:
//   - https://...
type SourcesConfig struct {
	Sources []string `yaml:"sources"`
}

// LoadSources reads the news source URL list from a YAML file.
func LoadSources(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg SourcesConfig
	dec := yaml.NewDecoder(f)
	if err := dec.Decode(&cfg); err != nil {
		return nil, err
	}
	return cfg.Sources, nil
}

// Lister resolves a source URL into its article link list, newest first.
type Lister interface {
	ListArticleLinks(sourceURL string) ([]string, error)
}

// SiteLister lists article links from a live site. It first tries to parse
// the source URL as an RSS/Atom feed; if that fails it scrapes the page
// for same-host article links in document order.
type SiteLister struct {
	parser *gofeed.Parser
	client *http.Client
}

func NewSiteLister(timeout time.Duration) *SiteLister {
	return &SiteLister{
		parser: gofeed.NewParser(),
		client: &http.Client{Timeout: timeout},
	}
}

func (l *SiteLister) ListArticleLinks(sourceURL string) ([]string, error) {
	if feed, err := l.parser.ParseURL(sourceURL); err == nil {
		links := make([]string, 0, len(feed.Items))
		for _, item := range feed.Items {
			if item.Link != "" {
				links = append(links, item.Link)
			}
		}
		return links, nil
	}

	return l.scrapeLinks(sourceURL)
}

// scrapeLinks collects anchor links from a landing page. News sites list
// headline links first, so document order is kept.
func (l *SiteLister) scrapeLinks(sourceURL string) ([]string, error) {
	req, err := http.NewRequest("GET", sourceURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "newsdigest/1.0 (news digest generator)")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch source page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	base, err := url.Parse(sourceURL)
	if err != nil {
		return nil, fmt.Errorf("invalid source URL: %w", err)
	}

	seen := map[string]struct{}{}
	var links []string
	doc.Find("a[href]").Each(func(i int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		link := resolveArticleLink(base, href)
		if link == "" {
			return
		}
		if _, dup := seen[link]; dup {
			return
		}
		seen[link] = struct{}{}
		links = append(links, link)
	})

	return links, nil
}

// resolveArticleLink resolves href against base and returns it if it looks
// like a same-host article page, else "".
func resolveArticleLink(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "mailto:") || strings.HasPrefix(href, "javascript:") {
		return ""
	}

	u, err := base.Parse(href)
	if err != nil {
		return ""
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	if u.Host != base.Host {
		return ""
	}

	// A bare path is the landing page itself, not an article.
	path := strings.Trim(u.Path, "/")
	if path == "" {
		return ""
	}

	u.Fragment = ""
	return u.String()
}
