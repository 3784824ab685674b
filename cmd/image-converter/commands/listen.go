package commands

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/wb-go/wbf/zlog"

	jobapi "github.com/aliskhannn/image-converter/internal/api/handlers/job"
	"github.com/aliskhannn/image-converter/internal/api/router"
	"github.com/aliskhannn/image-converter/internal/api/server"
	"github.com/aliskhannn/image-converter/internal/kafka/consumer"
	jobmsg "github.com/aliskhannn/image-converter/internal/kafka/handlers/job"
	"github.com/aliskhannn/image-converter/internal/metrics"
)

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Run conversion jobs received over Kafka or HTTP",
	Long: `Consume JSON job requests from kafka.requests_topic and run them one at a
time, publishing progress and summaries to kafka.topic. With server.addr set,
also serve the run API (/api/jobs), /healthz and Prometheus /metrics.`,
	RunE: runListen,
}

func init() {
	f := listenCmd.Flags()
	f.String("addr", "", "HTTP listen address, e.g. :8080")
	f.Bool("kafka", false, "consume job requests from Kafka")

	cobra.CheckErr(bindFlags(v, f, map[string]string{
		"addr":  "server.addr",
		"kafka": "kafka.enabled",
	}))

	rootCmd.AddCommand(listenCmd)
}

func runListen(cmd *cobra.Command, _ []string) error {
	if !cfg.Kafka.Enabled && cfg.Server.Addr == "" {
		return errors.New("nothing to listen on: enable kafka or set server.addr")
	}

	defaults, err := cfg.Job.JobConfig()
	if err != nil {
		return err
	}

	// Context & signals: used for graceful shutdown on system interrupts.
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	m := metrics.New()
	a.service.Observe(m)

	var wg sync.WaitGroup

	var c *consumer.Consumer
	if cfg.Kafka.Enabled {
		c = consumer.New(&cfg.Kafka, cfg.Retry.Strategy(), jobmsg.NewRequestHandler(a.service, defaults))
		wg.Add(1)
		go c.Consume(ctx, &wg)
	}

	var (
		s *http.Server
		h *jobapi.Handler
	)
	if cfg.Server.Addr != "" {
		h = jobapi.NewHandler(ctx, a.service, defaults)
		s = server.New(cfg.Server.Addr, router.Setup(h, m.Handler()))
		go func() {
			zlog.Logger.Info().Str("addr", cfg.Server.Addr).Msg("starting server")
			if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				zlog.Logger.Fatal().Err(err).Msg("failed to start server")
			}
		}()
	}

	// Block until context is canceled (SIGINT/SIGTERM).
	<-ctx.Done()
	zlog.Logger.Info().Msg("context done")

	// Wait for the consumer to finish the job in progress.
	wg.Wait()

	if s != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		zlog.Logger.Info().Msg("shutting down server")
		if err := s.Shutdown(shutdownCtx); err != nil {
			zlog.Logger.Error().Err(err).Msg("failed to shutdown server")
		}
		if errors.Is(shutdownCtx.Err(), context.DeadlineExceeded) {
			zlog.Logger.Info().Msg("timeout exceeded, forcing shutdown")
		}

		// Runs started over HTTP share ctx and stop after their current items.
		h.Wait()
		zlog.Logger.Info().Msg("http runs finished")
	}

	if c != nil {
		if err := c.Client.Close(); err != nil {
			zlog.Logger.Error().Err(err).Msg("failed to close kafka consumer client")
		}
	}

	return nil
}
