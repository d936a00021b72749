// Package bootstrap builds the dependency graph shared by the event pipeline and the webhook service.
package bootstrap

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"git.platform.alem.school/amibragim/brew-events/internal/app/notificationservice"
	"git.platform.alem.school/amibragim/brew-events/internal/domain/notifications"
	"git.platform.alem.school/amibragim/brew-events/internal/ports"
	"git.platform.alem.school/amibragim/brew-events/internal/shared/config"
	"git.platform.alem.school/amibragim/brew-events/internal/shared/gateway"
	"git.platform.alem.school/amibragim/brew-events/internal/shared/kafka"
	"git.platform.alem.school/amibragim/brew-events/internal/shared/logger"
	"git.platform.alem.school/amibragim/brew-events/internal/shared/metrics"
	"git.platform.alem.school/amibragim/brew-events/internal/shared/mongo"
	pg "git.platform.alem.school/amibragim/brew-events/internal/shared/postgres"
)

// Stack holds the connected adapters and the application services built on top of them.
type Stack struct {
	Pool     *pgxpool.Pool
	Mongo    *mongo.Storage
	Sink     *kafka.AnalyticsSink // nil when analytics is disabled
	Registry *prometheus.Registry
	Metrics  *metrics.Pipeline
	Sender   *notificationservice.FallbackSender
	Pipeline *notificationservice.Pipeline

	logger *logger.Logger
}

// Build connects to Postgres and MongoDB, opens the Kafka writer, and wires sender, dispatcher and pipeline.
// On error every resource opened so far is released.
func Build(ctx context.Context, cfg *config.Config, logger *logger.Logger) (_ *Stack, err error) {
	stack := &Stack{logger: logger}
	defer func() {
		if err != nil {
			stack.Close()
		}
	}()

	// metrics registry with the standard runtime collectors
	stack.Registry = prometheus.NewRegistry()
	stack.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	stack.Metrics = metrics.NewPipeline(stack.Registry)

	// order ledger
	stack.Pool, err = pg.NewPool(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "db_connection_failed", "Failed to initialize Postgres pool", err)
		return nil, err
	}

	// device tokens
	stack.Mongo, err = mongo.New(ctx, cfg)
	if err != nil {
		logger.Error(ctx, "mongo_connection_failed", "Failed to connect to MongoDB", err)
		return nil, err
	}
	if err := stack.Mongo.EnsureIndexes(ctx); err != nil {
		logger.Error(ctx, "mongo_indexes_failed", "Failed to ensure MongoDB indexes", err)
	}
	logger.Info(ctx, "mongo_connected", "Connected to MongoDB", map[string]any{"database": cfg.Mongo.Database})

	// analytics
	var analytics ports.AnalyticsSink
	sink, err := kafka.NewAnalyticsSink(cfg.KafkaBrokers(), cfg.Kafka.Topic)
	switch {
	case errors.Is(err, kafka.ErrDisabled):
		logger.Info(ctx, "analytics_disabled", "No Kafka brokers configured; analytics is disabled", nil)
		err = nil
	case err != nil:
		return nil, err
	default:
		stack.Sink = sink
		analytics = sink
		logger.Info(ctx, "analytics_enabled", "Analytics records go to Kafka", map[string]any{"topic": cfg.Kafka.Topic})
	}

	// channel adapters
	tokens := mongo.NewPushTokenRepository(stack.Mongo.Database())
	push := gateway.NewPushGateway(cfg.Push, tokens)
	sms := gateway.NewMessageGateway(notifications.ChannelSMS, cfg.SMS)
	whatsapp := gateway.NewMessageGateway(notifications.ChannelWhatsApp, cfg.WhatsApp)

	catalog := notifications.DefaultCatalog(cfg.Notifications.Locale)
	stack.Sender = notificationservice.NewFallbackSender(catalog, push, sms, whatsapp, logger, stack.Metrics)

	dispatcher := notificationservice.NewDispatcher(
		pg.NewLedgerRepo(stack.Pool),
		analytics,
		stack.Sender,
		catalog,
		notificationservice.DispatcherSettings{
			Currency: cfg.Analytics.Currency,
			MaxAge:   cfg.Notifications.MaxAge,
		},
		logger,
		stack.Metrics,
	)
	stack.Pipeline = notificationservice.NewPipeline(dispatcher, logger, stack.Metrics)

	logger.Info(ctx, "pipeline_ready", "Event pipeline wired", map[string]any{
		"locale":           cfg.Notifications.Locale,
		"max_age":          cfg.Notifications.MaxAge.String(),
		"sms_enabled":      sms.Enabled(),
		"whatsapp_enabled": whatsapp.Enabled(),
	})

	return stack, nil
}

// AnalyticsEnabled reports whether a Kafka sink is wired.
func (s *Stack) AnalyticsEnabled() bool { return s.Sink != nil }

// Close releases every opened resource.
func (s *Stack) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if s.Sink != nil {
		if err := s.Sink.Close(); err != nil {
			s.logger.Error(ctx, "kafka_close_failed", "Failed to close Kafka writer", err)
		}
	}
	if s.Mongo != nil {
		if err := s.Mongo.Close(ctx); err != nil {
			s.logger.Error(ctx, "mongo_close_failed", "Failed to disconnect from MongoDB", err)
		}
	}
	if s.Pool != nil {
		s.Pool.Close()
	}
}
