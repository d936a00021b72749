package notificationservice

import (
	"context"
	"errors"
	"sync"
	"time"

	"git.platform.alem.school/amibragim/brew-events/internal/domain/notifications"
	"git.platform.alem.school/amibragim/brew-events/internal/domain/orders"
	"git.platform.alem.school/amibragim/brew-events/internal/ports"
	"git.platform.alem.school/amibragim/brew-events/internal/shared/logger"
)

var testLogger = logger.NewNop("test")

type fakePush struct {
	mu      sync.Mutex
	outcome ports.PushOutcome
	err     error
	calls   []int64
	last    ports.PushMessage
}

func (f *fakePush) SendToCustomer(_ context.Context, customerID int64, msg ports.PushMessage) (ports.PushOutcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, customerID)
	f.last = msg
	return f.outcome, f.err
}

func (f *fakePush) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeGateway struct {
	enabled bool
	err     error
	calls   []ports.TextMessage
}

func (f *fakeGateway) Enabled() bool { return f.enabled }

func (f *fakeGateway) Send(_ context.Context, msg ports.TextMessage) (string, error) {
	f.calls = append(f.calls, msg)
	if f.err != nil {
		return "", f.err
	}
	return "provider-1", nil
}

type fakeLedger struct {
	mu     sync.Mutex
	counts map[int64]int
	err    error
	calls  [][]int64
}

func (f *fakeLedger) CountTransactionsByCustomer(_ context.Context, ids []int64) (map[int64]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, append([]int64(nil), ids...))
	if f.err != nil {
		return nil, f.err
	}
	out := map[int64]int{}
	for _, id := range ids {
		if n, ok := f.counts[id]; ok {
			out[id] = n
		}
	}
	return out, nil
}

type fakeAnalytics struct {
	mu      sync.Mutex
	err     error
	batches [][]ports.AnalyticsRecord
}

func (f *fakeAnalytics) TrackBatch(_ context.Context, records []ports.AnalyticsRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, records)
	return f.err
}

// fakeSender records every payload; deliver decides the outcome per customer.
type fakeSender struct {
	mu       sync.Mutex
	payloads []notifications.Payload
	channels [][]notifications.Channel
	deliver  func(notifications.Payload) bool
	panicOn  int64
}

func (f *fakeSender) Send(_ context.Context, channels []notifications.Channel, p notifications.Payload) []notifications.SendResult {
	f.mu.Lock()
	f.payloads = append(f.payloads, p)
	f.channels = append(f.channels, channels)
	f.mu.Unlock()

	if f.panicOn != 0 && p.CustomerID != nil && *p.CustomerID == f.panicOn {
		panic("adapter exploded")
	}
	ok := f.deliver == nil || f.deliver(p)
	if ok {
		return []notifications.SendResult{{Channel: channels[0], Success: true}}
	}
	return []notifications.SendResult{{Channel: channels[0], Error: "no registered push tokens"}}
}

func (f *fakeSender) sent() []notifications.Payload {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]notifications.Payload(nil), f.payloads...)
}

// fakeDispatcher reports every event as notified; delivered sets how many arrived
// and during runs inside Process.
type fakeDispatcher struct {
	events    []orders.OrderEvent
	opts      ports.DispatchOptions
	err       error
	delivered int
	during    func()
	calls     int
}

func (f *fakeDispatcher) Process(_ context.Context, events []orders.OrderEvent, opts ports.DispatchOptions) (ports.DispatchResult, error) {
	f.calls++
	f.events = append(f.events, events...)
	f.opts = opts
	if f.during != nil {
		f.during()
	}
	return ports.DispatchResult{NotificationCount: len(events), DeliveredCount: f.delivered}, f.err
}

type fakeAck struct {
	acked   bool
	nacked  bool
	requeue bool
}

func (a *fakeAck) Ack(bool) error { a.acked = true; return nil }

func (a *fakeAck) Nack(_ bool, requeue bool) error {
	a.nacked = true
	a.requeue = requeue
	return nil
}

var errBoom = errors.New("boom")

func int64p(v int64) *int64 { return &v }
func intp(v int) *int       { return &v }
func boolp(v bool) *bool    { return &v }

// barrierSender holds every Send until n calls are in flight at once, or gives up after wait.
type barrierSender struct {
	n       int
	wait    time.Duration
	mu      sync.Mutex
	arrived int
	all     chan struct{}
}

func newBarrierSender(n int, wait time.Duration) *barrierSender {
	return &barrierSender{n: n, wait: wait, all: make(chan struct{})}
}

func (b *barrierSender) Send(_ context.Context, channels []notifications.Channel, _ notifications.Payload) []notifications.SendResult {
	b.mu.Lock()
	b.arrived++
	if b.arrived == b.n {
		close(b.all)
	}
	b.mu.Unlock()

	select {
	case <-b.all:
		return []notifications.SendResult{{Channel: channels[0], Success: true}}
	case <-time.After(b.wait):
		return []notifications.SendResult{{Channel: channels[0], Error: "barrier not reached"}}
	}
}

// gatedAnalytics blocks TrackBatch until gate closes, failing after wait.
type gatedAnalytics struct {
	gate <-chan struct{}
	wait time.Duration
}

func (g gatedAnalytics) TrackBatch(context.Context, []ports.AnalyticsRecord) error {
	select {
	case <-g.gate:
		return nil
	case <-time.After(g.wait):
		return errors.New("sends never started")
	}
}
