package stats

import (
	"sort"
	"sync"
	"time"
)

// ConversionStats tracks produced output sizes and codec latency per target
// format. Only newly produced outputs are recorded.
type ConversionStats struct {
	mu      sync.Mutex
	targets map[string]*targetStats
}

type targetStats struct {
	files       int64
	sourceBytes int64
	outputBytes int64
	durations   *StreamingStats // seconds per codec call
	ratios      *StreamingStats // output size / source size
}

// NewConversionStats creates an empty ConversionStats
func NewConversionStats() *ConversionStats {
	return &ConversionStats{targets: make(map[string]*targetStats)}
}

// RecordConversion records one successful codec call
func (s *ConversionStats) RecordConversion(target string, sourceBytes, outputBytes int64, elapsed time.Duration) {
	s.mu.Lock()
	ts, ok := s.targets[target]
	if !ok {
		ts = &targetStats{
			durations: NewStreamingStats(),
			ratios:    NewStreamingStats(),
		}
		s.targets[target] = ts
	}
	ts.files++
	ts.sourceBytes += sourceBytes
	ts.outputBytes += outputBytes
	s.mu.Unlock()

	ts.durations.Update(elapsed.Seconds())
	if sourceBytes > 0 && outputBytes >= 0 {
		ts.ratios.Update(float64(outputBytes) / float64(sourceBytes))
	}
}

// TargetSummary describes everything produced for one target
type TargetSummary struct {
	Target      string  `json:"target" yaml:"target"`
	Files       int64   `json:"files" yaml:"files"`
	SourceBytes int64   `json:"source_bytes" yaml:"source_bytes"`
	OutputBytes int64   `json:"output_bytes" yaml:"output_bytes"`
	SizeRatio   float64 `json:"size_ratio" yaml:"size_ratio"`
	Durations   Summary `json:"durations_seconds" yaml:"durations_seconds"`
	Ratios      Summary `json:"ratios" yaml:"ratios"`
}

// Summaries returns one entry per target that produced output, sorted by name
func (s *ConversionStats) Summaries() []TargetSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	summaries := make([]TargetSummary, 0, len(s.targets))
	for name, ts := range s.targets {
		summary := TargetSummary{
			Target:      name,
			Files:       ts.files,
			SourceBytes: ts.sourceBytes,
			OutputBytes: ts.outputBytes,
			Durations:   ts.durations.GetSummary(),
			Ratios:      ts.ratios.GetSummary(),
		}
		if ts.sourceBytes > 0 {
			summary.SizeRatio = float64(ts.outputBytes) / float64(ts.sourceBytes)
		}
		summaries = append(summaries, summary)
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].Target < summaries[j].Target
	})
	return summaries
}

// TotalOutputBytes returns the bytes written across all targets
func (s *ConversionStats) TotalOutputBytes() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	var total int64
	for _, ts := range s.targets {
		total += ts.outputBytes
	}
	return total
}
