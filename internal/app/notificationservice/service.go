package notificationservice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"git.platform.alem.school/amibragim/brew-events/internal/domain/orders"
	"git.platform.alem.school/amibragim/brew-events/internal/ports"
	"git.platform.alem.school/amibragim/brew-events/internal/shared/contracts"
	"git.platform.alem.school/amibragim/brew-events/internal/shared/logger"
	"git.platform.alem.school/amibragim/brew-events/internal/shared/rabbitmq"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// ConsumerOptions tune the transaction-change consumer.
type ConsumerOptions struct {
	Prefetch     int
	SkipAgeCheck bool // applied to every delivery in addition to the per-message flag
}

// ConsumeForever continuously (re)creates a channel and starts consuming from the durable transaction changes queue.
func ConsumeForever(ctx context.Context, rmq *rabbitmq.Client, pipeline *Pipeline, opts ConsumerOptions, logger *logger.Logger) {
	const (
		retryBaseDelay = time.Second      // backoff base
		retryMaxDelay  = 30 * time.Second // backoff cap
		consumerName   = ""               // let the server generate a unique consumer tag
		autoAck        = false
		exclusive      = false
		noLocal        = false
		noWait         = false
	)

	prefetch := opts.Prefetch
	if prefetch <= 0 {
		prefetch = 10
	}

	backoff := retryBaseDelay
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		// acquire a fresh channel with QoS
		ch, err := rmq.NewConsumerChannel(prefetch)
		if err != nil {
			logger.Error(ctx, "rabbitmq_channel_open_failed", "Failed to open consumer channel", err)
			if !sleepWithContext(ctx, backoff) {
				return
			}
			backoff = nextBackoff(backoff, retryMaxDelay)
			continue
		}

		// reset backoff on successful channel creation
		backoff = retryBaseDelay

		deliveries, err := ch.Consume(rabbitmq.TransactionChangesQueue, consumerName, autoAck, exclusive, noLocal, noWait, nil)
		if err != nil {
			_ = ch.Close()
			logger.Error(ctx, "rabbitmq_consume_failed", "Failed to start consuming transaction changes", err)
			if !sleepWithContext(ctx, backoff) {
				return
			}
			backoff = nextBackoff(backoff, retryMaxDelay)
			continue
		}

		// watch for channel close to trigger a re-open
		closed := ch.NotifyClose(make(chan *amqp.Error, 1))

	consumption:
		for {
			select {
			case <-ctx.Done():
				_ = ch.Close()
				break consumption

			case amqpErr := <-closed:
				if amqpErr != nil {
					logger.Error(ctx, "rabbitmq_channel_closed", "Consumer channel closed", amqpErr)
				} else {
					logger.Error(ctx, "rabbitmq_channel_closed", "Consumer channel closed", errors.New("unknown channel close"))
				}
				break consumption

			case d, ok := <-deliveries:
				if !ok {
					logger.Error(ctx, "rabbitmq_deliveries_closed", "Deliveries channel closed", errors.New("deliveries channel closed"))
					break consumption
				}

				handleDelivery(ctx, logger, pipeline, opts, d)
			}
		}

		// small delay before attempting to recreate channel (avoid hot loop)
		if !sleepWithContext(ctx, backoff) {
			return
		}
		backoff = nextBackoff(backoff, retryMaxDelay)
	}
}

// acknowledger is the part of amqp.Delivery the handler needs.
type acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

// handleDelivery decodes one poll cycle, runs it through the pipeline and acks/nacks.
func handleDelivery(ctx context.Context, logger *logger.Logger, pipeline *Pipeline, opts ConsumerOptions, d amqp.Delivery) {
	rid := d.MessageId
	if rid == "" {
		rid = uuid.NewString()
	}
	ctx = logger.WithRequestID(ctx, rid)

	processDelivery(ctx, logger, pipeline, opts, d.Body, &d)
}

func processDelivery(ctx context.Context, logger *logger.Logger, pipeline *Pipeline, opts ConsumerOptions, body []byte, ack acknowledger) {
	changes, dispatchOpts, err := decodeChanges(body)
	if err != nil {
		logger.Error(ctx, "transaction_changes_decode_failed", "Failed to decode transaction changes", err)
		_ = ack.Nack(false, false) // DLX for unrecoverable malformed JSON
		return
	}
	dispatchOpts.SkipAgeCheck = dispatchOpts.SkipAgeCheck || opts.SkipAgeCheck

	res, err := pipeline.HandleChanges(ctx, changes, dispatchOpts)
	switch {
	case err == nil:
		logger.Info(ctx, "transaction_changes_processed", "Processed transaction changes", map[string]any{
			"changes":            len(changes),
			"analytics_count":    res.AnalyticsCount,
			"notification_count": res.NotificationCount,
			"delivered_count":    res.DeliveredCount,
		})
		if err := ack.Ack(false); err != nil {
			logger.Error(ctx, "rabbitmq_ack_failed", "Failed to ack transaction changes", err)
		}
	case IsRetryable(err):
		logger.Error(ctx, "processing_retryable", "Processing interrupted; requeuing", err)
		_ = ack.Nack(false, true)
	default:
		logger.Error(ctx, "processing_failed", "Processing failed; nacking to DLX", err)
		_ = ack.Nack(false, false)
	}
}

// decodeChanges parses a poll-cycle message into domain changes.
func decodeChanges(body []byte) ([]orders.TransactionChange, ports.DispatchOptions, error) {
	var msg contracts.TransactionChangesMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return nil, ports.DispatchOptions{}, fmt.Errorf("decode message: %w", err)
	}

	changes, err := msg.ToDomain()
	if err != nil {
		return nil, ports.DispatchOptions{}, err
	}

	return changes, ports.DispatchOptions{
		SkipAgeCheck:      msg.SkipAgeCheck,
		SkipNotifications: msg.SkipNotifications,
	}, nil
}

// Helpers

// sleepWithContext sleeps for the given duration or returns early if ctx is done.
func sleepWithContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// nextBackoff calculates the next backoff duration with exponential growth capped at max.
func nextBackoff(curr, cap time.Duration) time.Duration {
	n := curr * 2
	if n > cap {
		return cap
	}
	return n
}
