package commands

import (
	"context"
	"fmt"

	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/image-converter/internal/config"
	"github.com/aliskhannn/image-converter/internal/coordinator"
	"github.com/aliskhannn/image-converter/internal/kafka/producer"
	"github.com/aliskhannn/image-converter/internal/processor"
	"github.com/aliskhannn/image-converter/internal/service/converter"
	"github.com/aliskhannn/image-converter/internal/storage/file"
	"github.com/aliskhannn/image-converter/internal/storage/object"
)

// app wires the conversion service and its optional collaborators.
type app struct {
	service  *converter.Service
	producer *producer.Producer
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	strategy := cfg.Retry.Strategy()

	fs := file.NewStorage()
	proc := processor.New(fs, processor.Options{
		JPEGQuality: cfg.Converter.JPEGQuality,
		Background:  cfg.Converter.Background,
	})
	coord := coordinator.New(proc, fs)

	if cfg.Storage.Enabled {
		mirror, err := object.NewStorage(ctx, object.Options{
			Endpoint:   cfg.Storage.Endpoint,
			AccessKey:  cfg.Storage.AccessKey,
			SecretKey:  cfg.Storage.SecretKey,
			BucketName: cfg.Storage.BucketName,
			UseSSL:     cfg.Storage.UseSSL,
			Prefix:     cfg.Storage.Prefix,
		}, strategy)
		if err != nil {
			return nil, fmt.Errorf("connect to storage: %w", err)
		}
		coord.SetMirror(mirror)
	}

	a := &app{service: converter.NewService(coord, fs)}

	if cfg.Kafka.Enabled {
		a.producer = producer.New(&cfg.Kafka, strategy)
		a.service.SetPublisher(a.producer, cfg.Kafka.ProgressEvery)
	}

	return a, nil
}

func (a *app) Close() {
	if a.producer == nil {
		return
	}
	if err := a.producer.Close(); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to close kafka producer client")
	}
}
