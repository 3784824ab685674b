package converter

import (
	"context"
	"fmt"
	"time"

	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/image-converter/internal/coordinator"
	"github.com/aliskhannn/image-converter/internal/discovery"
	"github.com/aliskhannn/image-converter/internal/model"
	"github.com/aliskhannn/image-converter/internal/sink"
)

// runner executes the discovered work items.
type runner interface {
	Run(ctx context.Context, job model.JobConfig, items []model.WorkItem, rep coordinator.Reporter) model.Summary
}

// dirMaker creates the output root before any worker starts.
type dirMaker interface {
	EnsureDir(dir string) error
}

// publisher sends run events to a message broker.
type publisher interface {
	Publish(ctx context.Context, key string, event any) error
}

// discoverFunc lists the work items of a run.
type discoverFunc func(root string, recursive bool) ([]model.WorkItem, error)

// Service drives a conversion run from configuration to summary.
type Service struct {
	runner   runner
	fs       dirMaker
	discover discoverFunc

	publisher publisher
	every     int
	observers []sink.Sink
}

// NewService creates a new Service.
func NewService(r runner, fs dirMaker) *Service {
	return &Service{runner: r, fs: fs, discover: discovery.Discover}
}

// SetPublisher publishes progress (every N processed items) and summaries
// of every run through p.
func (s *Service) SetPublisher(p publisher, every int) {
	s.publisher = p
	s.every = every
}

// Observe adds a sink that receives the progress stream of every run,
// e.g. metrics. An observer implementing sink.Scoped gets its own sink per
// run.
func (s *Service) Observe(o sink.Sink) {
	s.observers = append(s.observers, o)
}

// Run executes job and blocks until it completes.
//
// The returned error is non-nil when the run was aborted before any work
// item started (invalid config, discovery failure, output root not
// creatable) or when ctx was cancelled mid-run. The summary is always
// delivered to out.OnComplete.
func (s *Service) Run(ctx context.Context, job model.JobConfig, out sink.Sink) (model.Summary, error) {
	r := newRun()
	s.execute(ctx, r, job, out)
	return r.summary, r.err
}

// StartRun executes job in the background and returns its handle.
func (s *Service) StartRun(ctx context.Context, job model.JobConfig, out sink.Sink) *Run {
	r := newRun()
	go s.execute(ctx, r, job, out)
	return r
}

func (s *Service) execute(ctx context.Context, r *Run, job model.JobConfig, out sink.Sink) {
	defer close(r.done)

	started := time.Now()
	rep := s.sinkFor(ctx, r, out)
	log := zlog.Logger.With().Str("run_id", r.ID.String()).Logger()

	finish := func(summary model.Summary, err error) {
		summary.RunID = r.ID
		summary.StartedAt = started
		if summary.FinishedAt.IsZero() {
			summary.FinishedAt = time.Now()
		}
		if err != nil && summary.State == model.StateAborted {
			summary.Error = err.Error()
		}

		r.mu.Lock()
		r.state = summary.State
		r.summary, r.err = summary, err
		r.mu.Unlock()

		rep.OnComplete(summary)
	}
	abort := func(err error) {
		log.Error().Err(err).Str("input", job.InputRoot).Msg("run aborted")
		finish(model.Summary{State: model.StateAborted}, err)
	}

	if err := job.Validate(); err != nil {
		abort(err)
		return
	}

	r.setState(model.StateCounting)
	rep.OnLog("Counting files...")

	items, err := s.discover(job.InputRoot, job.Recursive)
	if err != nil {
		abort(fmt.Errorf("discover: %w", err))
		return
	}

	if len(items) == 0 {
		log.Info().Str("input", job.InputRoot).Msg("no supported images found")
		finish(model.Summary{State: model.StateCompleted}, nil)
		return
	}

	if job.OutputRoot != "" {
		if err := s.fs.EnsureDir(job.OutputRoot); err != nil {
			abort(fmt.Errorf("prepare output root: %w", err))
			return
		}
	}

	r.setState(model.StateRunning)
	rep.OnLog(fmt.Sprintf("Found %d images. Using %d workers. Starting...", len(items), job.Workers))
	rep.OnProgress(model.NewSnapshot(model.Counts{Total: len(items)}))

	summary := s.runner.Run(ctx, job, items, rep)
	if summary.State == model.StateCancelled {
		finish(summary, fmt.Errorf("run cancelled: %w", ctx.Err()))
		return
	}
	finish(summary, nil)
}

// sinkFor fans the run's progress out to the handle, out, the observers
// and, when configured, the event publisher.
func (s *Service) sinkFor(ctx context.Context, r *Run, out sink.Sink) sink.Sink {
	sinks := make([]sink.Sink, 0, len(s.observers)+3)
	sinks = append(sinks, sink.Funcs{Progress: r.setProgress}, out)
	for _, o := range s.observers {
		if sc, ok := o.(sink.Scoped); ok {
			o = sc.ForRun(r.ID)
		}
		sinks = append(sinks, o)
	}
	if s.publisher != nil {
		sinks = append(sinks, sink.NewEvents(ctx, s.publisher, r.ID, s.every))
	}
	return sink.Multi(sinks...)
}
