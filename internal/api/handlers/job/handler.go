package job

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/wb-go/wbf/ginext"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/image-converter/internal/api/respond"
	"github.com/aliskhannn/image-converter/internal/model"
	"github.com/aliskhannn/image-converter/internal/service/converter"
	"github.com/aliskhannn/image-converter/internal/sink"
)

// service starts conversion runs in the background.
type service interface {
	StartRun(ctx context.Context, job model.JobConfig, out sink.Sink) *converter.Run
}

// Status is the API view of a run.
type Status struct {
	ID       uuid.UUID              `json:"id"`
	State    model.RunState         `json:"state"`
	Progress model.ProgressSnapshot `json:"progress"`
	Summary  *model.Summary         `json:"summary,omitempty"`
	Message  string                 `json:"message,omitempty"`
}

// Handler provides HTTP handlers for conversion runs. Runs are kept in
// memory for the lifetime of the process.
type Handler struct {
	ctx      context.Context
	service  service
	defaults model.JobConfig

	mu   sync.RWMutex
	runs map[uuid.UUID]*converter.Run
}

// NewHandler creates a new Handler. Runs are bound to ctx rather than to
// the request that started them.
func NewHandler(ctx context.Context, s service, defaults model.JobConfig) *Handler {
	return &Handler{
		ctx:      ctx,
		service:  s,
		defaults: defaults,
		runs:     make(map[uuid.UUID]*converter.Run),
	}
}

// Health reports that the process is serving.
func (h *Handler) Health(c *ginext.Context) {
	respond.OK(c, "ok")
}

// Create starts a run from a JSON job request.
func (h *Handler) Create(c *ginext.Context) {
	var req model.JobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		zlog.Logger.Err(err).Msg("failed to decode job request")
		respond.Fail(c, http.StatusBadRequest, fmt.Errorf("invalid request body"))
		return
	}

	job, err := req.JobConfig(h.defaults)
	if err != nil {
		zlog.Logger.Warn().Err(err).Msg("invalid job request")
		respond.Fail(c, http.StatusBadRequest, err)
		return
	}

	r := h.service.StartRun(h.ctx, job, sink.NewLog())

	h.mu.Lock()
	h.runs[r.ID] = r
	h.mu.Unlock()

	zlog.Logger.Info().
		Str("run_id", r.ID.String()).
		Str("input", job.InputRoot).
		Msg("run started")

	respond.Accepted(c, status(r))
}

// Get returns the status of a run, including its summary once done.
func (h *Handler) Get(c *ginext.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respond.Fail(c, http.StatusBadRequest, fmt.Errorf("invalid id: %v", err))
		return
	}

	h.mu.RLock()
	r, ok := h.runs[id]
	h.mu.RUnlock()
	if !ok {
		respond.Fail(c, http.StatusNotFound, errors.New("run not found"))
		return
	}

	respond.OK(c, status(r))
}

// List returns the status of every known run.
func (h *Handler) List(c *ginext.Context) {
	h.mu.RLock()
	out := make([]Status, 0, len(h.runs))
	for _, r := range h.runs {
		out = append(out, status(r))
	}
	h.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].ID.String() < out[j].ID.String()
	})

	respond.OK(c, out)
}

// Wait blocks until every run started through the handler has finished.
func (h *Handler) Wait() {
	h.mu.RLock()
	runs := make([]*converter.Run, 0, len(h.runs))
	for _, r := range h.runs {
		runs = append(runs, r)
	}
	h.mu.RUnlock()

	for _, r := range runs {
		<-r.Done()
	}
}

func status(r *converter.Run) Status {
	st := Status{ID: r.ID, State: r.State(), Progress: r.Progress()}

	select {
	case <-r.Done():
		summary, _ := r.Summary()
		st.State = summary.State
		st.Summary = &summary
		st.Message = summary.String()
	default:
	}

	return st
}
