package job

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/segmentio/kafka-go"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/image-converter/internal/model"
	"github.com/aliskhannn/image-converter/internal/sink"
)

// service runs a conversion job to completion.
type service interface {
	Run(ctx context.Context, job model.JobConfig, s sink.Sink) (model.Summary, error)
}

// RequestHandler handles Kafka messages asking for a conversion run.
type RequestHandler struct {
	service  service
	defaults model.JobConfig
}

// NewRequestHandler creates a handler. Format and Workers of defaults are
// used for requests that omit them.
func NewRequestHandler(s service, defaults model.JobConfig) *RequestHandler {
	return &RequestHandler{service: s, defaults: defaults}
}

// Handle decodes a job request and runs it.
//
// Requests that can never succeed (malformed JSON, invalid configuration,
// missing input root) are logged and acknowledged. Other failures, including
// a run cancelled by shutdown, are returned so the message is not committed.
func (h *RequestHandler) Handle(ctx context.Context, msg kafka.Message) error {
	var req model.JobRequest
	if err := json.Unmarshal(msg.Value, &req); err != nil {
		zlog.Logger.Error().Err(err).Int64("offset", msg.Offset).Msg("dropping malformed job request")
		return nil
	}

	job, err := req.JobConfig(h.defaults)
	if err != nil {
		zlog.Logger.Error().Err(err).Str("input", req.Input).Msg("dropping invalid job request")
		return nil
	}

	summary, err := h.service.Run(ctx, job, sink.NewLog())
	if err != nil {
		if errors.Is(err, model.ErrNotFound) || errors.Is(err, model.ErrInvalidConfig) {
			zlog.Logger.Error().Err(err).Str("input", job.InputRoot).Msg("dropping job request")
			return nil
		}

		return fmt.Errorf("run job: %w", err)
	}

	zlog.Logger.Info().
		Str("run_id", summary.RunID.String()).
		Msgf("job processed: %s", summary)

	return nil
}
