// Package sink delivers run progress to whoever is watching a conversion:
// a terminal, the log, a message broker or metrics.
//
// Every method may be called from a goroutine other than the one that
// started the run. Within a run OnProgress and OnLog are called one at a
// time, followed by a single OnComplete.
package sink

import (
	"github.com/google/uuid"

	"github.com/aliskhannn/image-converter/internal/model"
)

// Sink receives the progress stream of a run.
type Sink interface {
	OnProgress(snapshot model.ProgressSnapshot)
	OnLog(line string)
	OnComplete(summary model.Summary)
}

// Scoped is implemented by observers that keep per-run state. They are
// asked for a dedicated sink at the start of every run.
type Scoped interface {
	ForRun(id uuid.UUID) Sink
}

// Funcs adapts plain callbacks to a Sink. Nil callbacks are skipped.
type Funcs struct {
	Progress func(model.ProgressSnapshot)
	Log      func(string)
	Complete func(model.Summary)
}

// OnProgress calls f.Progress.
func (f Funcs) OnProgress(s model.ProgressSnapshot) {
	if f.Progress != nil {
		f.Progress(s)
	}
}

// OnLog calls f.Log.
func (f Funcs) OnLog(line string) {
	if f.Log != nil {
		f.Log(line)
	}
}

// OnComplete calls f.Complete.
func (f Funcs) OnComplete(s model.Summary) {
	if f.Complete != nil {
		f.Complete(s)
	}
}

// Discard ignores everything.
var Discard Sink = Funcs{}

type multi []Sink

// Multi fans every call out to sinks in order. Nil sinks are dropped.
func Multi(sinks ...Sink) Sink {
	m := make(multi, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			m = append(m, s)
		}
	}
	return m
}

// OnProgress forwards s to every sink.
func (m multi) OnProgress(s model.ProgressSnapshot) {
	for _, x := range m {
		x.OnProgress(s)
	}
}

// OnLog forwards line to every sink.
func (m multi) OnLog(line string) {
	for _, x := range m {
		x.OnLog(line)
	}
}

// OnComplete forwards s to every sink.
func (m multi) OnComplete(s model.Summary) {
	for _, x := range m {
		x.OnComplete(s)
	}
}
