package eventpipeline

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	service "git.platform.alem.school/amibragim/brew-events/internal/app/notificationservice"
	"git.platform.alem.school/amibragim/brew-events/internal/shared/bootstrap"
	"git.platform.alem.school/amibragim/brew-events/internal/shared/config"
	"git.platform.alem.school/amibragim/brew-events/internal/shared/logger"
	"git.platform.alem.school/amibragim/brew-events/internal/shared/metrics"
	"git.platform.alem.school/amibragim/brew-events/internal/shared/rabbitmq"
)

// Run wires the transaction-change consumer and blocks until ctx is cancelled.
// metricsPort 0 disables the /metrics listener.
func Run(ctx context.Context, prefetch int, skipAgeCheck bool, metricsPort int) error {
	// set up a new logger for the event pipeline with a static request ID for startup logs
	logger := logger.NewLogger("event-pipeline")
	defer logger.Sync()
	ctx = logger.WithRequestID(ctx, "startup-001")

	// load a config from file
	cfg, err := config.LoadFromFile("config/config.yaml")
	if err != nil {
		logger.Error(ctx, "config_load_failed", "Failed to load configuration", err)
		return err
	}

	// connect storage, analytics and channel adapters
	stack, err := bootstrap.Build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer stack.Close()

	// connect to RabbitMQ
	rmq, err := rabbitmq.ConnectRabbitMQ(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "rabbitmq_connection_failed", "Failed to connect to RabbitMQ", err)
		return err
	}
	defer rmq.Close()

	// expose metrics on a side port
	var srv *http.Server
	if metricsPort > 0 {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler(stack.Registry))
		srv = &http.Server{
			Addr:              fmt.Sprintf(":%d", metricsPort),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
			BaseContext:       func(net.Listener) context.Context { return ctx },
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error(ctx, "metrics_server_failed", "Metrics listener stopped", err)
			}
		}()
	}

	// log service start
	logger.Info(ctx, "service_started", "Event pipeline started", map[string]any{
		"prefetch":       prefetch,
		"skip_age_check": skipAgeCheck,
		"metrics_port":   metricsPort,
	})

	// start a single consumer loop
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		service.ConsumeForever(ctx, rmq, stack.Pipeline, service.ConsumerOptions{
			Prefetch:     prefetch,
			SkipAgeCheck: skipAgeCheck,
		}, logger)
	}()

	// create a channel to signal when the consumer goroutine is done
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		// normal shutdown path
	case <-done:
		// consumer exited unexpectedly -> return error to let main exit non-zero or restart
		return fmt.Errorf("event pipeline consumer exited unexpectedly")
	}

	logger.Info(logger.WithRequestID(context.Background(), "shutdown-001"), "graceful_shutdown", "Shutting down event pipeline", nil)

	if srv != nil {
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
	}

	// allow consumer goroutine to exit cleanly
	wg.Wait()
	return nil
}
