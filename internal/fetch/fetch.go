// Package fetch retrieves article pages and extracts title, body text and
// publish time.
package fetch

import (
	"fmt"
	"time"

	readability "github.com/go-shiori/go-readability"
)

// Metadata is the extracted content of one article page.
type Metadata struct {
	Title       string
	Text        string
	PublishedAt *time.Time
}

// Fetcher retrieves article metadata for a URL.
type Fetcher interface {
	FetchMetadata(url string) (*Metadata, error)
}

// ReadabilityFetcher extracts article content with go-readability.
type ReadabilityFetcher struct {
	timeout time.Duration
}

func NewReadabilityFetcher(timeout time.Duration) *ReadabilityFetcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &ReadabilityFetcher{timeout: timeout}
}

func (f *ReadabilityFetcher) FetchMetadata(url string) (*Metadata, error) {
	if url == "" {
		return nil, fmt.Errorf("article URL is empty")
	}

	article, err := readability.FromURL(url, f.timeout)
	if err != nil {
		return nil, fmt.Errorf("readability extraction failed: %w", err)
	}

	return &Metadata{
		Title:       article.Title,
		Text:        article.TextContent,
		PublishedAt: article.PublishedTime,
	}, nil
}
