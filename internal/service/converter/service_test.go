package converter

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/image-converter/internal/coordinator"
	"github.com/aliskhannn/image-converter/internal/model"
	"github.com/aliskhannn/image-converter/internal/processor"
	"github.com/aliskhannn/image-converter/internal/sink"
	"github.com/aliskhannn/image-converter/internal/storage/file"
)

func TestMain(m *testing.M) {
	zlog.Init()
	os.Exit(m.Run())
}

// recorder collects everything a run reports.
type recorder struct {
	mu        sync.Mutex
	lines     []string
	snaps     []model.ProgressSnapshot
	summaries []model.Summary
}

func (r *recorder) OnProgress(s model.ProgressSnapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snaps = append(r.snaps, s)
}

func (r *recorder) OnLog(line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, line)
}

func (r *recorder) OnComplete(s model.Summary) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.summaries = append(r.summaries, s)
}

// scoped hands out one recorder per run.
type scoped struct {
	recorder
	runsMu sync.Mutex
	runs   map[uuid.UUID]*recorder
}

func (s *scoped) ForRun(id uuid.UUID) sink.Sink {
	s.runsMu.Lock()
	defer s.runsMu.Unlock()
	if s.runs == nil {
		s.runs = make(map[uuid.UUID]*recorder)
	}
	r := &recorder{}
	s.runs[id] = r
	return r
}

type fakePublisher struct {
	mu   sync.Mutex
	keys []string
}

func (p *fakePublisher) Publish(_ context.Context, key string, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, key)
	return nil
}

// failingDirs refuses to create any directory.
type failingDirs struct{}

func (failingDirs) EnsureDir(dir string) error {
	return fmt.Errorf("%w: %s", model.ErrDirectoryCreate, dir)
}

// panicRunner fails the test if the coordinator is reached.
type panicRunner struct{ t *testing.T }

func (p panicRunner) Run(context.Context, model.JobConfig, []model.WorkItem, coordinator.Reporter) model.Summary {
	p.t.Fatal("coordinator must not run")
	return model.Summary{}
}

func newService() *Service {
	fs := file.NewStorage()
	return NewService(coordinator.New(processor.New(fs, processor.Options{}), fs), fs)
}

func writePNG(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, imaging.Save(imaging.New(4, 4, color.NRGBA{R: 200, A: 255}), path))
}

func TestRun_ConvertsTree(t *testing.T) {
	in, out := t.TempDir(), filepath.Join(t.TempDir(), "converted")
	writePNG(t, filepath.Join(in, "a.png"))
	writePNG(t, filepath.Join(in, "b.png"))
	writePNG(t, filepath.Join(in, "nested", "c.png"))
	require.NoError(t, os.WriteFile(filepath.Join(in, "notes.txt"), []byte("x"), 0o644))

	svc := newService()
	pub := &fakePublisher{}
	svc.SetPublisher(pub, 1)
	observer := &recorder{}
	svc.Observe(observer)

	rec := &recorder{}
	job := model.JobConfig{InputRoot: in, OutputRoot: out, Format: model.FormatJPG, Recursive: true, Workers: 2}
	summary, err := svc.Run(context.Background(), job, rec)
	require.NoError(t, err)

	assert.Equal(t, model.StateCompleted, summary.State)
	assert.Equal(t, model.Counts{Total: 3, Processed: 3, Converted: 3}, summary.Counts)
	assert.NotEqual(t, [16]byte{}, [16]byte(summary.RunID))
	assert.FileExists(t, filepath.Join(out, "a.jpg"))
	assert.FileExists(t, filepath.Join(out, "nested", "c.jpg"))

	require.NotEmpty(t, rec.lines)
	assert.Equal(t, "Counting files...", rec.lines[0])
	assert.Equal(t, "Found 3 images. Using 2 workers. Starting...", rec.lines[1])
	require.Len(t, rec.summaries, 1)
	assert.Equal(t, summary, rec.summaries[0])
	assert.Equal(t, "Done. Converted: 3 / 3. Skipped: 0. Errors: 0.", summary.String())

	// initial zero snapshot plus one per item, monotonic
	require.Len(t, rec.snaps, 4)
	for i, s := range rec.snaps {
		assert.Equal(t, i, s.Processed)
		assert.True(t, s.Consistent())
	}

	assert.Len(t, observer.summaries, 1)
	// three progress events (plus the initial one) and the summary, all keyed by run
	require.Len(t, pub.keys, 5)
	for _, k := range pub.keys {
		assert.Equal(t, summary.RunID.String(), k)
	}

	// second run skips everything
	summary, err = svc.Run(context.Background(), job, sink.Discard)
	require.NoError(t, err)
	assert.Equal(t, model.Counts{Total: 3, Processed: 3, Skipped: 3}, summary.Counts)
}

func TestRun_NoImages(t *testing.T) {
	in := t.TempDir()
	out := filepath.Join(t.TempDir(), "never")
	require.NoError(t, os.WriteFile(filepath.Join(in, "readme.md"), []byte("x"), 0o644))

	rec := &recorder{}
	svc := NewService(panicRunner{t}, file.NewStorage())
	summary, err := svc.Run(context.Background(), model.JobConfig{InputRoot: in, OutputRoot: out, Format: model.FormatPNG, Workers: 1}, rec)
	require.NoError(t, err)

	assert.Equal(t, model.StateCompleted, summary.State)
	assert.Equal(t, "No supported images found.", summary.String())
	assert.NoDirExists(t, out)
	assert.Empty(t, rec.snaps)
}

func TestRun_Aborts(t *testing.T) {
	in := t.TempDir()
	writePNG(t, filepath.Join(in, "a.png"))

	tests := []struct {
		name    string
		job     model.JobConfig
		dirs    dirMaker
		wantErr error
	}{
		{
			name:    "invalid config",
			job:     model.JobConfig{InputRoot: in, Format: model.FormatJPG, Workers: 0},
			dirs:    file.NewStorage(),
			wantErr: model.ErrInvalidConfig,
		},
		{
			name:    "missing input root",
			job:     model.JobConfig{InputRoot: filepath.Join(in, "missing"), Format: model.FormatJPG, Workers: 1},
			dirs:    file.NewStorage(),
			wantErr: model.ErrNotFound,
		},
		{
			name:    "output root not creatable",
			job:     model.JobConfig{InputRoot: in, OutputRoot: filepath.Join(in, "out"), Format: model.FormatJPG, Workers: 1},
			dirs:    failingDirs{},
			wantErr: model.ErrDirectoryCreate,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{}
			svc := NewService(panicRunner{t}, tt.dirs)

			summary, err := svc.Run(context.Background(), tt.job, rec)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, model.StateAborted, summary.State)
			assert.NotEmpty(t, summary.Error)
			require.Len(t, rec.summaries, 1)
			assert.Equal(t, model.StateAborted, rec.summaries[0].State)
			assert.Empty(t, rec.snaps)
		})
	}
}

// cancellingRunner reports a cancelled pool the way the coordinator does.
type cancellingRunner struct{}

func (cancellingRunner) Run(_ context.Context, _ model.JobConfig, items []model.WorkItem, _ coordinator.Reporter) model.Summary {
	return model.Summary{State: model.StateCancelled, Counts: model.Counts{Total: len(items)}}
}

func TestRun_CancelledReturnsError(t *testing.T) {
	in := t.TempDir()
	writePNG(t, filepath.Join(in, "a.png"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	svc := NewService(cancellingRunner{}, file.NewStorage())
	summary, err := svc.Run(ctx, model.JobConfig{InputRoot: in, Format: model.FormatJPG, Workers: 1}, sink.Discard)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, model.StateCancelled, summary.State)
}

func TestStartRun(t *testing.T) {
	in := t.TempDir()
	writePNG(t, filepath.Join(in, "a.png"))

	r := newService().StartRun(context.Background(), model.JobConfig{InputRoot: in, Format: model.FormatJPG, Workers: 1}, sink.Discard)
	<-r.Done()

	summary, err := r.Summary()
	require.NoError(t, err)
	assert.Equal(t, r.ID, summary.RunID)
	assert.Equal(t, model.StateCompleted, r.State())
	assert.Equal(t, 1, summary.Converted)
	assert.Equal(t, 1, r.Progress().Processed)
	assert.FileExists(t, filepath.Join(in, "a.jpg"))
}

func TestStartRun_AbortedState(t *testing.T) {
	r := NewService(panicRunner{t}, file.NewStorage()).StartRun(context.Background(), model.JobConfig{}, sink.Discard)

	_, err := r.Summary()
	assert.True(t, errors.Is(err, model.ErrInvalidConfig))
	assert.Equal(t, model.StateAborted, r.State())
}

func TestRun_ScopedObserverGetsSinkPerRun(t *testing.T) {
	in := t.TempDir()
	writePNG(t, filepath.Join(in, "a.png"))

	svc := newService()
	obs := &scoped{}
	svc.Observe(obs)

	job := model.JobConfig{InputRoot: in, OutputRoot: t.TempDir(), Format: model.FormatJPG, Workers: 1}
	first, err := svc.Run(context.Background(), job, sink.Discard)
	require.NoError(t, err)
	second, err := svc.Run(context.Background(), job, sink.Discard)
	require.NoError(t, err)

	require.Len(t, obs.runs, 2)
	for _, s := range []model.Summary{first, second} {
		r := obs.runs[s.RunID]
		require.NotNil(t, r)
		require.Len(t, r.summaries, 1)
		assert.Equal(t, s.RunID, r.summaries[0].RunID)
		assert.Len(t, r.snaps, 2)
	}
	assert.Empty(t, obs.recorder.summaries)
}
