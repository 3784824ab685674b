package consumer

import (
	"context"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	wbfkafka "github.com/wb-go/wbf/kafka"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/image-converter/internal/config"
)

// fetchBackoff is the pause after a failed fetch.
const fetchBackoff = 500 * time.Millisecond

// client is the part of the wbf Kafka consumer used here.
type client interface {
	Fetch(ctx context.Context) (kafka.Message, error)
	Commit(ctx context.Context, msg kafka.Message) error
	Close() error
}

// jobHandler handles one job request message.
type jobHandler interface {
	Handle(ctx context.Context, msg kafka.Message) error
}

// Consumer reads job requests from Kafka and hands them to a handler one
// at a time.
type Consumer struct {
	Client   client
	handler  jobHandler
	topic    string
	strategy retry.Strategy
}

// New creates a new Consumer for cfg.RequestsTopic.
func New(cfg *config.Kafka, s retry.Strategy, h jobHandler) *Consumer {
	return &Consumer{
		Client:   wbfkafka.NewConsumer(cfg.Brokers, cfg.RequestsTopic, cfg.GroupID),
		handler:  h,
		topic:    cfg.RequestsTopic,
		strategy: s,
	}
}

// Consume fetches messages until ctx is cancelled. A message is committed
// only after the handler accepted it.
func (c *Consumer) Consume(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	zlog.Logger.Info().
		Str("topic", c.topic).
		Msg("starting consumer")

	for {
		if ctx.Err() != nil {
			zlog.Logger.Info().Msg("shutdown signal received, stopping consumer")
			return
		}

		var msg kafka.Message
		err := retry.Do(func() error {
			var fetchErr error
			msg, fetchErr = c.Client.Fetch(ctx)
			return fetchErr
		}, c.strategy)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			zlog.Logger.Err(err).Msg("failed to fetch message")
			select {
			case <-ctx.Done():
			case <-time.After(fetchBackoff):
			}
			continue
		}

		if err := c.handler.Handle(ctx, msg); err != nil {
			zlog.Logger.Err(err).
				Str("message", string(msg.Value)).
				Msg("failed to handle job request")
			continue
		}

		err = retry.Do(func() error {
			return c.Client.Commit(ctx, msg)
		}, c.strategy)
		if err != nil {
			zlog.Logger.Err(err).Msg("failed to commit message after retries")
			continue
		}

		zlog.Logger.Info().
			Int64("offset", msg.Offset).
			Msg("job request handled")
	}
}
