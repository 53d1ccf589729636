package convert

import "sync"

// Aggregator owns the run counters and the outcome collection. All methods
// are safe for concurrent use.
type Aggregator struct {
	mu       sync.Mutex
	stats    Statistics
	outcomes []Outcome
}

// NewAggregator creates an empty Aggregator
func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// SetTotal records the number of discovered files
func (a *Aggregator) SetTotal(n int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stats.Total = n
}

// Record appends one outcome and applies its counter deltas as a single update
func (a *Aggregator) Record(outcome Outcome, convertedDelta, erroredDelta int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.outcomes = append(a.outcomes, outcome)
	a.stats.Converted += convertedDelta
	a.stats.Errored += erroredDelta
	if outcome.Status == StatusSkipped {
		a.stats.Skipped++
	}
}

// Snapshot returns the counters and a copy of the outcomes recorded so far
func (a *Aggregator) Snapshot() (Statistics, []Outcome) {
	a.mu.Lock()
	defer a.mu.Unlock()

	outcomes := make([]Outcome, len(a.outcomes))
	copy(outcomes, a.outcomes)
	return a.stats, outcomes
}

// Recorded returns the number of outcomes recorded so far
func (a *Aggregator) Recorded() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.outcomes)
}
