package notificationservice

import (
	"context"

	"git.platform.alem.school/amibragim/brew-events/internal/domain/orders"
	"git.platform.alem.school/amibragim/brew-events/internal/ports"
	"git.platform.alem.school/amibragim/brew-events/internal/shared/logger"
	"git.platform.alem.school/amibragim/brew-events/internal/shared/metrics"
)

// Pipeline derives lifecycle events from one poll cycle and hands them to the dispatcher as a single batch.
type Pipeline struct {
	dispatcher ports.Dispatcher
	logger     *logger.Logger
	metrics    *metrics.Pipeline
}

// NewPipeline creates a Pipeline.
func NewPipeline(dispatcher ports.Dispatcher, logger *logger.Logger, m *metrics.Pipeline) *Pipeline {
	return &Pipeline{dispatcher: dispatcher, logger: logger, metrics: m}
}

// HandleChanges derives events for every change and dispatches them together, so the ledger is queried once per cycle.
//
// A context that has already ended yields a Retryable error without dispatching. A context that ends
// while dispatching yields a Retryable error only when some notification went undelivered; the
// redelivered batch then resends every notification of the cycle, including those that did arrive.
// A dispatch that settled fully is not retried even if the deadline expires right after it.
func (p *Pipeline) HandleChanges(ctx context.Context, changes []orders.TransactionChange, opts ports.DispatchOptions) (ports.DispatchResult, error) {
	if err := ctx.Err(); err != nil {
		return ports.DispatchResult{}, Retryable(err)
	}

	var events []orders.OrderEvent
	for _, c := range changes {
		for _, e := range orders.Derive(c) {
			p.metrics.ObserveDerived(string(e.EventType))
			events = append(events, e)
		}
	}

	p.logger.Debug(ctx, "events_derived", "Derived lifecycle events", map[string]any{
		"changes": len(changes),
		"events":  len(events),
	})

	res, err := p.dispatcher.Process(ctx, events, opts)
	if err != nil {
		return res, err
	}
	if ctx.Err() != nil && res.DeliveredCount < res.NotificationCount {
		return res, Retryable(ctx.Err())
	}
	return res, nil
}
