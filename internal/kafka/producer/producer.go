package producer

import (
	"context"
	"encoding/json"
	"fmt"

	wbfkafka "github.com/wb-go/wbf/kafka"
	"github.com/wb-go/wbf/retry"

	"github.com/aliskhannn/image-converter/internal/config"
)

// client is the part of the wbf Kafka producer used here.
type client interface {
	SendWithRetry(ctx context.Context, strategy retry.Strategy, key, value []byte) error
	Close() error
}

// Producer publishes run events to Kafka.
type Producer struct {
	Client   client
	strategy retry.Strategy
	topic    string
}

// New creates a new Producer writing to cfg.Topic.
func New(cfg *config.Kafka, s retry.Strategy) *Producer {
	return &Producer{
		Client:   wbfkafka.NewProducer(cfg.Brokers, cfg.Topic),
		strategy: s,
		topic:    cfg.Topic,
	}
}

// Publish serializes event to JSON and sends it with key.
// Events of one run share the run ID as key so they stay ordered on a partition.
func (p *Producer) Publish(ctx context.Context, key string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err = p.Client.SendWithRetry(ctx, p.strategy, []byte(key), data); err != nil {
		return fmt.Errorf("failed to send event to %s: %w", p.topic, err)
	}

	return nil
}

// Close closes the underlying client.
func (p *Producer) Close() error {
	return p.Client.Close()
}
