package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RunState is the lifecycle state of one run.
type RunState string

const (
	StateIdle      RunState = "idle"
	StateCounting  RunState = "counting"
	StateRunning   RunState = "running"
	StateCompleted RunState = "completed"
	StateAborted   RunState = "aborted"
	StateCancelled RunState = "cancelled"
)

// Counts is a plain copy of the run counters.
type Counts struct {
	Total     int `json:"total"`
	Processed int `json:"processed"`
	Converted int `json:"converted"`
	Skipped   int `json:"skipped"`
	Errored   int `json:"errored"`
}

// Consistent reports whether processed equals converted + skipped + errored
// and does not exceed total.
func (c Counts) Consistent() bool {
	return c.Processed == c.Converted+c.Skipped+c.Errored && c.Processed <= c.Total
}

// ProgressSnapshot is an immutable point-in-time copy of run counters.
type ProgressSnapshot struct {
	Counts
	Fraction float64 `json:"fraction"`
}

// NewSnapshot derives a snapshot from counts.
func NewSnapshot(c Counts) ProgressSnapshot {
	s := ProgressSnapshot{Counts: c}
	if c.Total > 0 {
		s.Fraction = float64(c.Processed) / float64(c.Total)
	}
	return s
}

// Status renders the snapshot as a one-line status message.
func (s ProgressSnapshot) Status() string {
	return fmt.Sprintf("Processed %d/%d | Converted: %d | Skipped: %d | Errors: %d",
		s.Processed, s.Total, s.Converted, s.Skipped, s.Errored)
}

// Summary is the terminal report of a run.
type Summary struct {
	RunID      uuid.UUID `json:"run_id"`
	State      RunState  `json:"state"`
	Counts               // final counters
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Error      string    `json:"error,omitempty"` // abort reason
}

// Elapsed returns the wall-clock duration of the run.
func (s Summary) Elapsed() time.Duration {
	if s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

func (s Summary) String() string {
	switch s.State {
	case StateAborted:
		return "Aborted: " + s.Error
	case StateCompleted:
		if s.Total == 0 {
			return "No supported images found."
		}
	}
	msg := fmt.Sprintf("Done. Converted: %d / %d. Skipped: %d. Errors: %d.",
		s.Converted, s.Total, s.Skipped, s.Errored)
	if s.State == StateCancelled {
		msg += fmt.Sprintf(" Cancelled with %d not started.", s.Total-s.Processed)
	}
	return msg
}
