package coordinator

import (
	"sync"

	"github.com/aliskhannn/image-converter/internal/model"
)

// Counters aggregates per-run results. All five counters are guarded by one
// mutex so every update and every read sees them as a single unit.
type Counters struct {
	mu sync.Mutex
	c  model.Counts
}

// NewCounters returns zeroed counters for a run of total items.
func NewCounters(total int) *Counters {
	return &Counters{c: model.Counts{Total: total}}
}

// Record folds one outcome into the counters and returns the snapshot taken
// inside the same critical section.
func (c *Counters) Record(out model.Outcome) model.ProgressSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.c.Processed++
	switch {
	case out.Kind == model.OutcomeConverted:
		c.c.Converted++
	case out.Skipped():
		c.c.Skipped++
	default:
		c.c.Errored++
	}

	return model.NewSnapshot(c.c)
}

// Snapshot returns a consistent copy of the counters.
func (c *Counters) Snapshot() model.ProgressSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	return model.NewSnapshot(c.c)
}
