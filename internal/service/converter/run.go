package converter

import (
	"sync"

	"github.com/google/uuid"

	"github.com/aliskhannn/image-converter/internal/model"
)

// Run is the handle of a started conversion run.
type Run struct {
	ID   uuid.UUID
	done chan struct{}

	mu       sync.Mutex
	state    model.RunState
	progress model.ProgressSnapshot
	summary  model.Summary
	err      error
}

func newRun() *Run {
	return &Run{ID: uuid.New(), done: make(chan struct{}), state: model.StateIdle}
}

// Done is closed once the run has completed and OnComplete was delivered.
func (r *Run) Done() <-chan struct{} {
	return r.done
}

// State returns the current lifecycle state.
func (r *Run) State() model.RunState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Progress returns the latest snapshot reported by the run.
func (r *Run) Progress() model.ProgressSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.progress
}

// Summary blocks until the run is done and returns its result.
func (r *Run) Summary() (model.Summary, error) {
	<-r.done
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.summary, r.err
}

func (r *Run) setState(s model.RunState) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
}

func (r *Run) setProgress(s model.ProgressSnapshot) {
	r.mu.Lock()
	r.progress = s
	r.mu.Unlock()
}
