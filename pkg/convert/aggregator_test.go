package convert

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAggregatorConcurrentRecords(t *testing.T) {
	agg := NewAggregator()
	agg.SetTotal(400)

	var wg sync.WaitGroup
	for i := 0; i < 400; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			status := StatusSuccess
			converted, errored := 2, 0
			switch i % 4 {
			case 1:
				status, converted = StatusSkipped, 0
			case 2:
				status, converted, errored = Status("webp_failed"), 1, 1
			}
			agg.Record(Outcome{OriginalPath: fmt.Sprintf("f%d", i), Status: status}, converted, errored)
		}(i)
	}
	wg.Wait()

	stats, outcomes := agg.Snapshot()
	assert.Len(t, outcomes, 400)
	assert.Equal(t, 400, agg.Recorded())
	assert.Equal(t, Statistics{Converted: 200*2 + 100*1, Skipped: 100, Errored: 100, Total: 400}, stats)
}

func TestAggregatorSnapshotIsCopy(t *testing.T) {
	agg := NewAggregator()
	agg.Record(Outcome{OriginalPath: "a", Status: StatusSuccess}, 1, 0)

	_, outcomes := agg.Snapshot()
	outcomes[0].OriginalPath = "changed"

	_, again := agg.Snapshot()
	assert.Equal(t, "a", again[0].OriginalPath)
}
