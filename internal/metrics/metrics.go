package metrics

import (
	"sync"
	"time"
)

type Metrics struct {
	mu sync.RWMutex

	// Counters
	SourcesScanned       int64
	SourceFailures       int64
	CandidatesDiscovered int64
	JudgmentsIssued      int64
	JudgmentFailures     int64
	CandidatesSelected   int64
	SummariesGenerated   int64
	DigestsPublished     int64

	// Timings
	LastRunDuration    time.Duration
	TotalRunDuration   time.Duration
	AverageRunDuration time.Duration
	RunCount           int64

	// Status
	LastRunTime   time.Time
	LastErrorTime time.Time
	LastError     string
	IsHealthy     bool
}

var Global = &Metrics{IsHealthy: true}

func (m *Metrics) IncrementSourcesScanned() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SourcesScanned++
}

func (m *Metrics) IncrementSourceFailures() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SourceFailures++
}

func (m *Metrics) AddCandidatesDiscovered(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CandidatesDiscovered += int64(n)
}

func (m *Metrics) IncrementJudgmentsIssued() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.JudgmentsIssued++
}

func (m *Metrics) IncrementJudgmentFailures() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.JudgmentFailures++
}

func (m *Metrics) AddCandidatesSelected(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CandidatesSelected += int64(n)
}

func (m *Metrics) IncrementSummariesGenerated() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SummariesGenerated++
}

func (m *Metrics) IncrementDigestsPublished() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DigestsPublished++
}

func (m *Metrics) RecordRunDuration(duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.LastRunDuration = duration
	m.TotalRunDuration += duration
	m.RunCount++

	if m.RunCount > 0 {
		m.AverageRunDuration = m.TotalRunDuration / time.Duration(m.RunCount)
	}
}

func (m *Metrics) SetLastRun() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastRunTime = time.Now()
	m.IsHealthy = true
}

func (m *Metrics) SetError(err string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastError = err
	m.LastErrorTime = time.Now()
	m.IsHealthy = false
}

func (m *Metrics) GetStats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return map[string]interface{}{
		"sources_scanned":         m.SourcesScanned,
		"source_failures":         m.SourceFailures,
		"candidates_discovered":   m.CandidatesDiscovered,
		"judgments_issued":        m.JudgmentsIssued,
		"judgment_failures":       m.JudgmentFailures,
		"candidates_selected":     m.CandidatesSelected,
		"summaries_generated":     m.SummariesGenerated,
		"digests_published":       m.DigestsPublished,
		"last_run_duration_ms":    m.LastRunDuration.Milliseconds(),
		"average_run_duration_ms": m.AverageRunDuration.Milliseconds(),
		"last_run_time":           m.LastRunTime.Format(time.RFC3339),
		"last_error_time":         m.LastErrorTime.Format(time.RFC3339),
		"last_error":              m.LastError,
		"is_healthy":              m.IsHealthy,
	}
}
