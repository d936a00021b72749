package webhookservice

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	service "git.platform.alem.school/amibragim/brew-events/internal/app/webhookservice"
	"git.platform.alem.school/amibragim/brew-events/internal/shared/bootstrap"
	"git.platform.alem.school/amibragim/brew-events/internal/shared/config"
	"git.platform.alem.school/amibragim/brew-events/internal/shared/logger"
	"git.platform.alem.school/amibragim/brew-events/internal/shared/metrics"
	"git.platform.alem.school/amibragim/brew-events/internal/shared/rabbitmq"
)

// Run wires the webhook and messaging HTTP API and blocks until ctx is cancelled.
// port 0 falls back to http.port from the config file.
// It returns the first terminal error (server or startup failure).
func Run(ctx context.Context, port int) error {
	// set up a new logger for the webhook service
	logger := logger.NewLogger("webhook-service")
	defer logger.Sync()
	ctx = logger.WithRequestID(ctx, "startup-001")

	// load a config from file
	cfg, err := config.LoadFromFile("config/config.yaml")
	if err != nil {
		logger.Error(ctx, "config_load_failed", "Failed to load configuration", err)
		return err
	}
	if port == 0 {
		port = cfg.HTTP.Port
	}

	// connect storage, analytics and channel adapters
	stack, err := bootstrap.Build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer stack.Close()

	// RabbitMQ is optional here; without it ?async=true is rejected
	deps := service.Deps{
		Changes:          stack.Pipeline,
		Sender:           stack.Sender,
		AnalyticsEnabled: stack.AnalyticsEnabled(),
		Metrics:          metrics.Handler(stack.Registry),
		Checks: map[string]service.HealthCheck{
			"postgres": stack.Pool.Ping,
			"mongo":    stack.Mongo.Ping,
		},
	}

	rmq, err := rabbitmq.ConnectRabbitMQ(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "rabbitmq_connection_failed", "RabbitMQ unavailable; async webhooks are disabled", err)
	} else {
		defer rmq.Close()
		deps.Publisher = &rabbitmq.MQPublisher{Client: rmq}
		deps.Checks["rabbitmq"] = func(context.Context) error { return rmq.Ping(2 * time.Second) }
	}

	h := service.NewHandler(deps, logger)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           h.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		// Tie server lifetime to incoming ctx.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	logger.Info(ctx, "service_started",
		fmt.Sprintf("Webhook service started on port %d", port),
		map[string]any{"port": port, "async_enabled": deps.Publisher != nil},
	)

	// ---- Serve + graceful shutdown -------------------------------------------
	errCh := make(chan error, 1)
	go func() {
		// http.ErrServerClosed is returned on Shutdown; treat that as clean exit.
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		// Graceful HTTP shutdown (drain keep-alives / in-flight requests).
		logger.Info(logger.WithRequestID(context.Background(), "shutdown-001"), "graceful_shutdown", "Shutting down webhook service", nil)
		shCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shCtx)
	case err := <-errCh:
		if err != nil {
			logger.Error(ctx, "http_server_failed", "HTTP server stopped", err)
		}
		return err
	}
}
