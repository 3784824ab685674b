// Package coordinator runs conversion work items on a bounded worker pool
// and aggregates their outcomes.
//
// Workers never touch shared state. Each one returns an Outcome on the
// results channel; the goroutine that called Run is the only consumer of
// that channel, so counter updates, log lines and progress snapshots are
// delivered one at a time and snapshots never go backwards.
package coordinator

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/image-converter/internal/model"
	"github.com/aliskhannn/image-converter/internal/policy"
)

// converter performs the decode/re-encode of one file.
type converter interface {
	DetectFormat(ctx context.Context, path string) (string, error)
	Convert(ctx context.Context, srcPath, dstPath string, format model.Format) error
}

// fileSystem checks and prepares destination paths.
type fileSystem interface {
	EnsureDir(dir string) error
	Exists(path string) (bool, error)
}

// mirror copies converted files to secondary storage.
type mirror interface {
	Upload(ctx context.Context, localPath, rel string) (string, error)
}

// Reporter receives the serialized progress stream of a run.
type Reporter interface {
	OnProgress(snapshot model.ProgressSnapshot)
	OnLog(line string)
}

// Coordinator owns the worker pool of a conversion run.
type Coordinator struct {
	converter converter
	fs        fileSystem
	mirror    mirror
}

// New creates a new Coordinator.
func New(c converter, fs fileSystem) *Coordinator {
	return &Coordinator{converter: c, fs: fs}
}

// SetMirror enables uploading every converted file to m.
func (c *Coordinator) SetMirror(m mirror) {
	c.mirror = m
}

// Run processes items with job.Workers concurrent workers and blocks until
// every started item has produced exactly one outcome.
//
// Cancelling ctx stops new items from being started; items already handed
// to a worker still finish. The returned summary is computed after the
// pool has drained.
func (c *Coordinator) Run(ctx context.Context, job model.JobConfig, items []model.WorkItem, rep Reporter) model.Summary {
	summary := model.Summary{StartedAt: time.Now()}
	counters := NewCounters(len(items))

	workers := job.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(items) {
		workers = len(items)
	}

	zlog.Logger.Info().
		Int("total", len(items)).
		Int("workers", workers).
		Str("format", string(job.Format)).
		Msg("starting conversion pool")

	queue := make(chan model.WorkItem)
	results := make(chan model.Outcome)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range queue {
				results <- c.process(ctx, job, item)
			}
		}()
	}

	// Feed items until done or cancelled; checked between items only.
	go func() {
		defer close(queue)
		for _, item := range items {
			if ctx.Err() != nil {
				return
			}
			select {
			case <-ctx.Done():
				return
			case queue <- item:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	for out := range results {
		snap := counters.Record(out)
		logOutcome(out)
		rep.OnLog(out.Line())
		rep.OnProgress(snap)
	}

	final := counters.Snapshot()
	summary.Counts = final.Counts
	summary.FinishedAt = time.Now()
	summary.State = model.StateCompleted
	if final.Processed < final.Total {
		summary.State = model.StateCancelled
	}

	zlog.Logger.Info().
		Str("state", string(summary.State)).
		Int("converted", final.Converted).
		Int("skipped", final.Skipped).
		Int("errored", final.Errored).
		Dur("elapsed", summary.Elapsed()).
		Msg("conversion pool drained")

	return summary
}

// process runs policy and converter for one item. Every exit path is an
// Outcome; errors and panics never escape the worker.
//
// Cancellation is checked between items only, so an item that has started
// runs to completion on a context detached from the run's cancellation.
func (c *Coordinator) process(ctx context.Context, job model.JobConfig, item model.WorkItem) (out model.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = model.Failed(item.SourcePath, fmt.Errorf("panic while converting: %v", r))
		}
	}()

	ctx = context.WithoutCancel(ctx)

	dst, err := policy.Destination(item, job)
	if err != nil {
		return model.Failed(item.SourcePath, err)
	}

	if err := c.fs.EnsureDir(filepath.Dir(dst)); err != nil {
		return model.Failed(item.SourcePath, err)
	}

	exists, err := c.fs.Exists(dst)
	if err != nil {
		return model.Failed(item.SourcePath, fmt.Errorf("%w: %v", model.ErrWriteError, err))
	}

	// An existing output is skipped before the source is even opened.
	if exists && !job.Overwrite {
		return model.SkippedExists(item.SourcePath, dst)
	}

	srcFormat, err := c.converter.DetectFormat(ctx, item.SourcePath)
	if err != nil {
		return model.Failed(item.SourcePath, err)
	}

	switch policy.Decide(exists, srcFormat, job.Format, job.Overwrite) {
	case model.DecisionSkipExists:
		return model.SkippedExists(item.SourcePath, dst)
	case model.DecisionSkipSameFormat:
		return model.SkippedSameFormat(item.SourcePath, job.Format.Extension())
	}

	if err := c.converter.Convert(ctx, item.SourcePath, dst, job.Format); err != nil {
		return model.Failed(item.SourcePath, err)
	}

	if c.mirror != nil {
		if _, err := c.mirror.Upload(ctx, dst, mirrorKey(job, dst)); err != nil {
			return model.Failed(item.SourcePath, fmt.Errorf("%w: %v", model.ErrMirrorFailed, err))
		}
	}

	out = model.Converted(item.SourcePath, dst)
	out.Format = srcFormat

	return out
}

// mirrorKey is dst relative to the output root, or to the input root for
// in-place jobs.
func mirrorKey(job model.JobConfig, dst string) string {
	base := job.OutputRoot
	if base == "" {
		base = job.InputRoot
	}
	if abs, err := filepath.Abs(base); err == nil {
		base = abs
	}
	if abs, err := filepath.Abs(dst); err == nil {
		dst = abs
	}

	rel, err := filepath.Rel(base, dst)
	if err != nil || !model.IsLocalRel(rel) {
		return filepath.Base(dst)
	}
	return rel
}

func logOutcome(out model.Outcome) {
	switch out.Kind {
	case model.OutcomeFailed:
		zlog.Logger.Warn().
			Err(out.Err).
			Str("source", out.Source).
			Str("kind", out.ErrorKind()).
			Msg("conversion failed")
	default:
		zlog.Logger.Debug().
			Str("source", out.Source).
			Str("dest", out.Dest).
			Str("outcome", out.Kind.String()).
			Msg("item processed")
	}
}
