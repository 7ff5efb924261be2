// Package metrics tracks conversion throughput and latency per output
// format, in memory. Counters reset on restart; there is no export layer.
package metrics

import (
	"sort"
	"sync"
	"time"
)

// keep only the most recent measurements per format so the maps stay bounded
const maxSamples = 100

// ConversionMetrics records outcome and duration of every conversion the
// server runs, keyed by output format.
type ConversionMetrics struct {
	mu           sync.RWMutex
	samples      map[string][]time.Duration
	successCount map[string]int64
	errorCount   map[string]int64
	total        int64
	totalErrors  int64
	lastUpdated  time.Time
}

// New returns an empty collector.
func New() *ConversionMetrics {
	return &ConversionMetrics{
		samples:      make(map[string][]time.Duration),
		successCount: make(map[string]int64),
		errorCount:   make(map[string]int64),
		lastUpdated:  time.Now(),
	}
}

// Observe records one conversion attempt for the format.
func (m *ConversionMetrics) Observe(format string, duration time.Duration, success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.samples[format] = append(m.samples[format], duration)
	if len(m.samples[format]) > maxSamples {
		m.samples[format] = m.samples[format][1:]
	}

	if success {
		m.successCount[format]++
		m.total++
	} else {
		m.errorCount[format]++
		m.totalErrors++
	}
	m.lastUpdated = time.Now()
}

// FormatStats summarizes one output format.
type FormatStats struct {
	Format       string  `json:"format"`
	SuccessCount int64   `json:"successCount"`
	ErrorCount   int64   `json:"errorCount"`
	TotalCount   int64   `json:"totalCount"`
	AverageMs    int64   `json:"averageMs"`
	MinMs        int64   `json:"minMs"`
	MaxMs        int64   `json:"maxMs"`
	P95Ms        int64   `json:"p95Ms"`
	SuccessRate  float64 `json:"successRate"`
}

// Stats is the full collector snapshot served by the stats endpoint.
type Stats struct {
	TotalConverted int64                  `json:"totalConverted"`
	TotalErrors    int64                  `json:"totalErrors"`
	SuccessRate    float64                `json:"successRate"`
	Formats        map[string]FormatStats `json:"formats"`
	LastUpdated    time.Time              `json:"lastUpdated"`
}

// Snapshot returns a copy of everything recorded so far.
func (m *ConversionMetrics) Snapshot() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	formats := make(map[string]FormatStats, len(m.samples))
	for format := range m.samples {
		formats[format] = m.formatStatsLocked(format)
	}

	return Stats{
		TotalConverted: m.total,
		TotalErrors:    m.totalErrors,
		SuccessRate:    rate(m.total, m.totalErrors),
		Formats:        formats,
		LastUpdated:    m.lastUpdated,
	}
}

// FormatStatsFor summarizes a single format.
func (m *ConversionMetrics) FormatStatsFor(format string) FormatStats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.formatStatsLocked(format)
}

// Reset clears all recorded data.
func (m *ConversionMetrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.samples = make(map[string][]time.Duration)
	m.successCount = make(map[string]int64)
	m.errorCount = make(map[string]int64)
	m.total = 0
	m.totalErrors = 0
	m.lastUpdated = time.Now()
}

// formatStatsLocked computes the per-format summary. Caller holds the lock.
func (m *ConversionMetrics) formatStatsLocked(format string) FormatStats {
	stats := FormatStats{
		Format:       format,
		SuccessCount: m.successCount[format],
		ErrorCount:   m.errorCount[format],
		TotalCount:   m.successCount[format] + m.errorCount[format],
		SuccessRate:  rate(m.successCount[format], m.errorCount[format]),
	}

	times := m.samples[format]
	if len(times) == 0 {
		return stats
	}

	sorted := make([]time.Duration, len(times))
	copy(sorted, times)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var total time.Duration
	for _, t := range sorted {
		total += t
	}

	stats.AverageMs = (total / time.Duration(len(sorted))).Milliseconds()
	stats.MinMs = sorted[0].Milliseconds()
	stats.MaxMs = sorted[len(sorted)-1].Milliseconds()
	stats.P95Ms = sorted[int(float64(len(sorted)-1)*0.95)].Milliseconds()

	return stats
}

func rate(success, failure int64) float64 {
	total := success + failure
	if total == 0 {
		return 0
	}
	return float64(success) / float64(total) * 100.0
}
