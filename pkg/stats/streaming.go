package stats

import (
	"math"
	"sync"
	"time"
)

// StreamingStats keeps running statistics in constant memory using
// Welford's online algorithm. It is safe for concurrent use.
type StreamingStats struct {
	mu          sync.RWMutex
	count       int64
	sum         float64
	mean        float64
	m2          float64 // Sum of squared distances from the mean
	min         float64
	max         float64
	lastUpdated time.Time
}

// NewStreamingStats creates a new StreamingStats instance
func NewStreamingStats() *StreamingStats {
	return &StreamingStats{
		min: math.Inf(1),
		max: math.Inf(-1),
	}
}

// Update adds a new value to the statistics
func (s *StreamingStats) Update(value float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.count++
	s.sum += value

	delta := value - s.mean
	s.mean += delta / float64(s.count)
	s.m2 += delta * (value - s.mean)

	if value < s.min {
		s.min = value
	}
	if value > s.max {
		s.max = value
	}

	s.lastUpdated = time.Now()
}

// Count returns the number of values processed
func (s *StreamingStats) Count() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.count
}

// Sum returns the sum of all values
func (s *StreamingStats) Sum() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sum
}

// Mean returns the arithmetic mean of all values
func (s *StreamingStats) Mean() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mean
}

// Variance returns the sample variance
func (s *StreamingStats) Variance() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.variance()
}

func (s *StreamingStats) variance() float64 {
	if s.count < 2 {
		return 0
	}
	return s.m2 / float64(s.count-1)
}

// Summary is a point-in-time copy of a StreamingStats
type Summary struct {
	Count      int64     `json:"count" yaml:"count"`
	Sum        float64   `json:"sum" yaml:"sum"`
	Mean       float64   `json:"mean" yaml:"mean"`
	Min        float64   `json:"min" yaml:"min"`
	Max        float64   `json:"max" yaml:"max"`
	StdDev     float64   `json:"std_dev" yaml:"std_dev"`
	LastUpdate time.Time `json:"last_update" yaml:"last_update,omitempty"`
}

// GetSummary returns a consistent snapshot of all statistics
func (s *StreamingStats) GetSummary() Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summary := Summary{
		Count:      s.count,
		Sum:        s.sum,
		Mean:       s.mean,
		StdDev:     math.Sqrt(s.variance()),
		LastUpdate: s.lastUpdated,
	}
	// Empty stats report zero bounds rather than infinities
	if s.count > 0 {
		summary.Min = s.min
		summary.Max = s.max
	}
	return summary
}

// Reset clears all statistics
func (s *StreamingStats) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.count = 0
	s.sum = 0
	s.mean = 0
	s.m2 = 0
	s.min = math.Inf(1)
	s.max = math.Inf(-1)
	s.lastUpdated = time.Time{}
}
