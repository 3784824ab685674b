package sink

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/image-converter/internal/model"
)

// Event types published by Events.
const (
	EventProgress = "progress"
	EventComplete = "complete"
)

// Event is the message published for a run.
type Event struct {
	Type     string                  `json:"type"`
	RunID    uuid.UUID               `json:"run_id"`
	Progress *model.ProgressSnapshot `json:"progress,omitempty"`
	Summary  *model.Summary          `json:"summary,omitempty"`
	At       time.Time               `json:"at"`
}

// publisher sends an event keyed by run.
type publisher interface {
	Publish(ctx context.Context, key string, event any) error
}

// Events publishes progress snapshots and the final summary of one run.
// Publishing errors are logged and otherwise ignored.
type Events struct {
	ctx   context.Context
	pub   publisher
	runID uuid.UUID
	every int
}

// NewEvents creates an Events sink for runID. Progress is published every
// `every` processed items and for the last one.
func NewEvents(ctx context.Context, pub publisher, runID uuid.UUID, every int) *Events {
	if every < 1 {
		every = 1
	}
	return &Events{ctx: ctx, pub: pub, runID: runID, every: every}
}

// OnProgress publishes a progress event every e.every items and for the
// last one.
func (e *Events) OnProgress(s model.ProgressSnapshot) {
	if s.Processed%e.every != 0 && s.Processed != s.Total {
		return
	}
	e.publish(Event{Type: EventProgress, RunID: e.runID, Progress: &s, At: time.Now()})
}

// OnLog is a no-op; log lines are not published.
func (e *Events) OnLog(string) {}

// OnComplete publishes the summary event.
func (e *Events) OnComplete(s model.Summary) {
	e.publish(Event{Type: EventComplete, RunID: e.runID, Summary: &s, At: time.Now()})
}

func (e *Events) publish(evt Event) {
	// A cancelled run still reports its summary.
	ctx := context.WithoutCancel(e.ctx)
	if err := e.pub.Publish(ctx, e.runID.String(), evt); err != nil {
		zlog.Logger.Warn().
			Err(err).
			Str("run_id", e.runID.String()).
			Str("type", evt.Type).
			Msg("failed to publish run event")
	}
}
