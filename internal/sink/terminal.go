package sink

import (
	"fmt"
	"io"
	"sync"

	"github.com/schollz/progressbar/v3"

	"github.com/aliskhannn/image-converter/internal/model"
)

// Terminal renders a progress bar with a status line and prints log lines
// above it. Each line is written whole under a mutex.
type Terminal struct {
	mu  sync.Mutex
	w   io.Writer
	bar *progressbar.ProgressBar
}

// NewTerminal creates a Terminal sink writing to w.
func NewTerminal(w io.Writer) *Terminal {
	return &Terminal{w: w}
}

// OnProgress advances the progress bar, creating it on the first snapshot.
func (t *Terminal) OnProgress(s model.ProgressSnapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.bar == nil {
		t.bar = progressbar.NewOptions(s.Total,
			progressbar.OptionSetWriter(t.w),
			progressbar.OptionShowCount(),
			progressbar.OptionSetWidth(30),
			progressbar.OptionSetPredictTime(false),
		)
	}
	t.bar.Describe(s.Status())
	_ = t.bar.Set(s.Processed)
}

// OnLog prints line above the progress bar.
func (t *Terminal) OnLog(line string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.bar != nil {
		_ = t.bar.Clear()
	}
	fmt.Fprintln(t.w, line)
}

// OnComplete finishes the bar and prints the summary line.
func (t *Terminal) OnComplete(s model.Summary) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.bar != nil {
		_ = t.bar.Finish()
		fmt.Fprintln(t.w)
	}
	fmt.Fprintln(t.w, s.String())
}
