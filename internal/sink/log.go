package sink

import (
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/image-converter/internal/model"
)

// Log writes the progress stream through the application logger.
type Log struct{}

// NewLog creates a new Log sink.
func NewLog() *Log {
	return &Log{}
}

// OnProgress logs the snapshot at debug level.
func (*Log) OnProgress(s model.ProgressSnapshot) {
	zlog.Logger.Debug().
		Int("processed", s.Processed).
		Int("total", s.Total).
		Float64("fraction", s.Fraction).
		Msg("progress")
}

// OnLog logs line at info level.
func (*Log) OnLog(line string) {
	zlog.Logger.Info().Msg(line)
}

// OnComplete logs the summary, at error level for an aborted run.
func (*Log) OnComplete(s model.Summary) {
	evt := zlog.Logger.Info()
	if s.State == model.StateAborted {
		evt = zlog.Logger.Error()
	}
	evt.
		Str("run_id", s.RunID.String()).
		Str("state", string(s.State)).
		Int("total", s.Total).
		Int("converted", s.Converted).
		Int("skipped", s.Skipped).
		Int("errored", s.Errored).
		Dur("elapsed", s.Elapsed()).
		Msg(s.String())
}
