package notificationservice

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"git.platform.alem.school/amibragim/brew-events/internal/domain/notifications"
	"git.platform.alem.school/amibragim/brew-events/internal/domain/orders"
	"git.platform.alem.school/amibragim/brew-events/internal/ports"
	"git.platform.alem.school/amibragim/brew-events/internal/shared/logger"
	"git.platform.alem.school/amibragim/brew-events/internal/shared/metrics"
)

// MaxNotificationAge is the default freshness cutoff. Older orders surfaced by a catch-up poll are not notified.
const MaxNotificationAge = 10 * time.Minute

// dispatchChannels is the channel list used for lifecycle notifications.
var dispatchChannels = []notifications.Channel{notifications.ChannelPush}

// DispatcherSettings carries the deployment-specific knobs of a Dispatcher.
type DispatcherSettings struct {
	Currency string        // ISO code attached to revenue properties
	MaxAge   time.Duration // zero means MaxNotificationAge
}

// dispatcher implements ports.Dispatcher.
type dispatcher struct {
	ledger    ports.LedgerRepository
	analytics ports.AnalyticsSink // nil disables analytics
	sender    ports.Sender
	catalog   notifications.Catalog
	settings  DispatcherSettings
	now       func() time.Time
	logger    *logger.Logger
	metrics   *metrics.Pipeline
}

// NewDispatcher creates a Dispatcher with the required dependencies.
func NewDispatcher(
	ledger ports.LedgerRepository,
	analytics ports.AnalyticsSink,
	sender ports.Sender,
	catalog notifications.Catalog,
	settings DispatcherSettings,
	logger *logger.Logger,
	m *metrics.Pipeline,
) ports.Dispatcher {
	return newDispatcher(ledger, analytics, sender, catalog, settings, logger, m)
}

func newDispatcher(
	ledger ports.LedgerRepository,
	analytics ports.AnalyticsSink,
	sender ports.Sender,
	catalog notifications.Catalog,
	settings DispatcherSettings,
	logger *logger.Logger,
	m *metrics.Pipeline,
) *dispatcher {
	if settings.MaxAge <= 0 {
		settings.MaxAge = MaxNotificationAge
	}
	if settings.Currency == "" {
		settings.Currency = "KZT"
	}

	return &dispatcher{
		ledger:    ledger,
		analytics: analytics,
		sender:    sender,
		catalog:   catalog,
		settings:  settings,
		now:       time.Now,
		logger:    logger,
		metrics:   m,
	}
}

// notificationJob is one qualifying event with its resolved payload.
type notificationJob struct {
	event   orders.OrderEvent
	payload notifications.Payload
}

// Process enriches closed orders with lifetime counts, emits one analytics batch, and sends push
// notifications concurrently. It returns once every task has settled. Downstream failures are logged
// and never returned; only malformed events produce an error, before any I/O happens.
func (d *dispatcher) Process(ctx context.Context, events []orders.OrderEvent, opts ports.DispatchOptions) (ports.DispatchResult, error) {
	var res ports.DispatchResult

	if err := validateEvents(events); err != nil {
		return res, err
	}
	if len(events) == 0 {
		return res, nil
	}

	start := time.Now()
	defer d.metrics.ObserveDispatch(start)

	counts := d.lifetimeOrderCounts(ctx, events)
	records := d.analyticsRecords(events, counts)

	var jobs []notificationJob
	if !opts.SkipNotifications {
		jobs = d.notificationJobs(ctx, events, opts)
	}

	// each task owns its slot; nothing else is shared between goroutines
	delivered := make([]bool, len(jobs))
	analyticsOK := false

	var wg sync.WaitGroup
	if len(records) > 0 && d.analytics != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			analyticsOK = d.emitAnalytics(ctx, records)
		}()
	}
	for i := range jobs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			delivered[i] = d.notify(ctx, jobs[i])
		}(i)
	}
	wg.Wait()

	if analyticsOK {
		res.AnalyticsCount = len(records)
	}
	res.NotificationCount = len(jobs)
	for _, ok := range delivered {
		if ok {
			res.DeliveredCount++
		}
	}

	d.logger.Debug(ctx, "dispatch_completed", "Dispatched order events", map[string]any{
		"events":             len(events),
		"analytics_count":    res.AnalyticsCount,
		"notification_count": res.NotificationCount,
		"delivered_count":    res.DeliveredCount,
	})

	return res, nil
}

// validateEvents rejects events no deriver would produce.
func validateEvents(events []orders.OrderEvent) error {
	for i, e := range events {
		if e.TransactionID <= 0 {
			return fmt.Errorf("%w: event %d has transaction id %d", ErrInvalidEvent, i, e.TransactionID)
		}
		if !e.EventType.Valid() {
			return fmt.Errorf("%w: event %d has unknown type %q", ErrInvalidEvent, i, e.EventType)
		}
	}
	return nil
}

// lifetimeOrderCounts queries the ledger once for every distinct customer with a closed order.
// A ledger failure yields an empty map.
func (d *dispatcher) lifetimeOrderCounts(ctx context.Context, events []orders.OrderEvent) map[int64]int {
	seen := map[int64]struct{}{}
	var ids []int64
	for _, e := range events {
		if e.EventType != orders.EventClosed || !e.HasCustomer() {
			continue
		}
		if _, ok := seen[*e.CustomerID]; ok {
			continue
		}
		seen[*e.CustomerID] = struct{}{}
		ids = append(ids, *e.CustomerID)
	}
	if len(ids) == 0 || d.ledger == nil {
		return map[int64]int{}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	counts, err := d.ledger.CountTransactionsByCustomer(ctx, ids)
	d.metrics.ObserveLedger(err == nil)
	if err != nil {
		d.logger.Error(ctx, "ledger_query_failed", "Failed to load lifetime order counts; continuing without them", err)
		return map[int64]int{}
	}
	if counts == nil {
		counts = map[int64]int{}
	}
	return counts
}

// analyticsRecords builds one record per attributable event.
func (d *dispatcher) analyticsRecords(events []orders.OrderEvent, counts map[int64]int) []ports.AnalyticsRecord {
	records := make([]ports.AnalyticsRecord, 0, len(events))
	for _, e := range events {
		if !e.HasCustomer() {
			continue
		}

		props := map[string]any{
			"service_mode":   serviceModeProperty(e.ServiceMode),
			"transaction_id": e.TransactionID,
		}
		rec := ports.AnalyticsRecord{
			DistinctID: strconv.FormatInt(*e.CustomerID, 10),
			Event:      string(e.EventType),
			Properties: props,
		}

		if e.EventType == orders.EventClosed {
			if e.IncomeAmount != nil {
				props["amount"] = e.IncomeAmount.ToFloat2()
				props["currency"] = d.settings.Currency
			}
			if n, ok := counts[*e.CustomerID]; ok {
				rec.UserProperties = map[string]any{"order_count": n}
			}
		}

		records = append(records, rec)
	}
	return records
}

func serviceModeProperty(m orders.ServiceMode) any {
	if m == "" {
		return nil
	}
	return string(m)
}

// notificationJobs applies the freshness filter and the catalog lookup.
func (d *dispatcher) notificationJobs(ctx context.Context, events []orders.OrderEvent, opts ports.DispatchOptions) []notificationJob {
	now := d.now()

	var jobs []notificationJob
	for _, e := range events {
		if !e.HasCustomer() {
			continue
		}

		if !opts.SkipAgeCheck && e.OrderDate != nil && now.Sub(*e.OrderDate) > d.settings.MaxAge {
			d.logger.Debug(ctx, "notification_skipped_stale", "Order too old to notify", map[string]any{
				"transaction_id": e.TransactionID,
				"event_type":     e.EventType,
				"order_date":     e.OrderDate.UTC().Format(time.RFC3339),
			})
			continue
		}

		kind := notifications.KindForEvent(e.EventType)
		if _, ok := d.catalog.Lookup(kind); !ok {
			continue
		}

		jobs = append(jobs, notificationJob{
			event: e,
			payload: notifications.Payload{
				Kind:          kind,
				TransactionID: e.TransactionID,
				CustomerID:    e.CustomerID,
			},
		})
	}
	return jobs
}

// notify sends one job and reports whether it was delivered. A panicking adapter only fails its own job.
func (d *dispatcher) notify(ctx context.Context, job notificationJob) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error(ctx, "notification_panicked", "Notification send panicked", fmt.Errorf("panic: %v", r))
			ok = false
		}
	}()

	results := d.sender.Send(ctx, dispatchChannels, job.payload)
	if notifications.Delivered(results) {
		return true
	}

	d.logger.Warn(ctx, "notification_failed", "Notification was not delivered on any channel", map[string]any{
		"transaction_id": job.event.TransactionID,
		"customer_id":    *job.event.CustomerID,
		"event_type":     job.event.EventType,
		"attempts":       results,
	})
	return false
}

// emitAnalytics hands the batch to the sink.
func (d *dispatcher) emitAnalytics(ctx context.Context, records []ports.AnalyticsRecord) bool {
	err := d.analytics.TrackBatch(ctx, records)
	d.metrics.ObserveAnalytics(len(records), err == nil)
	if err != nil {
		d.logger.Error(ctx, "analytics_emit_failed", "Failed to emit analytics batch", err)
		return false
	}
	return true
}
