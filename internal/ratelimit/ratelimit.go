// Package ratelimit tracks the per-run Gemini request budget.
package ratelimit

import (
	"sync"
)

// Budget counts AI requests against a per-run cap. A cap of 0 means
// unlimited.
type Budget struct {
	mu        sync.Mutex
	count     int
	max       int
	cacheHits int
}

func NewBudget(max int) *Budget {
	return &Budget{max: max}
}

// Allow reports whether another request may be issued and, if so, counts
// it against the budget.
func (b *Budget) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.max > 0 && b.count >= b.max {
		return false
	}
	b.count++
	return true
}

// RecordCacheHit notes a request that was answered from cache and so did
// not consume budget.
func (b *Budget) RecordCacheHit() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cacheHits++
}

func (b *Budget) Used() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

func (b *Budget) CacheHits() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cacheHits
}
