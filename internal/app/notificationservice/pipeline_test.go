package notificationservice

import (
	"context"
	"testing"

	"git.platform.alem.school/amibragim/brew-events/internal/domain/orders"
	"git.platform.alem.school/amibragim/brew-events/internal/ports"
)

func TestHandleChangesDerivesOneBatch(t *testing.T) {
	fd := &fakeDispatcher{}
	p := NewPipeline(fd, testLogger, nil)

	changes := []orders.TransactionChange{
		{TransactionID: 501, Action: orders.ActionCreated, IsAccepted: boolp(true), Status: intp(1), CustomerID: int64p(7)},
		{TransactionID: 502, Action: orders.ActionUpdated, ProcessingStatus: intp(30), OldProcessingStatus: intp(20)},
		{TransactionID: 503, Action: orders.ActionUpdated, ProcessingStatus: intp(20), OldProcessingStatus: intp(10)},
	}

	res, err := p.HandleChanges(context.Background(), changes, ports.DispatchOptions{SkipAgeCheck: true})
	if err != nil {
		t.Fatalf("HandleChanges: %v", err)
	}

	var got []orders.EventType
	for _, e := range fd.events {
		got = append(got, e.EventType)
	}
	want := []orders.EventType{orders.EventCreated, orders.EventAccepted, orders.EventReady}
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("events = %v, want %v", got, want)
		}
	}
	if !fd.opts.SkipAgeCheck {
		t.Error("dispatch options were not forwarded")
	}
	if res.NotificationCount != 3 {
		t.Errorf("result not forwarded: %+v", res)
	}
}

func TestHandleChangesCancelledIsRetryable(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fd := &fakeDispatcher{}
	p := NewPipeline(fd, testLogger, nil)
	_, err := p.HandleChanges(ctx, nil, ports.DispatchOptions{})
	if !IsRetryable(err) {
		t.Fatalf("err = %v, want retryable", err)
	}
	if fd.calls != 0 {
		t.Fatalf("dispatcher called %d times for an ended context", fd.calls)
	}
}

func TestHandleChangesContextEndingDuringDispatch(t *testing.T) {
	changes := []orders.TransactionChange{
		{TransactionID: 1, Action: orders.ActionUpdated, ProcessingStatus: intp(30), OldProcessingStatus: intp(20), CustomerID: int64p(4)},
		{TransactionID: 2, Action: orders.ActionUpdated, ProcessingStatus: intp(50), OldProcessingStatus: intp(30), CustomerID: int64p(5)},
	}

	tests := []struct {
		name      string
		delivered int
		retryable bool
	}{
		{name: "every notification settled", delivered: 2, retryable: false},
		{name: "a notification was cut short", delivered: 1, retryable: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			fd := &fakeDispatcher{delivered: tt.delivered, during: cancel}
			_, err := NewPipeline(fd, testLogger, nil).HandleChanges(ctx, changes, ports.DispatchOptions{})
			if IsRetryable(err) != tt.retryable {
				t.Fatalf("err = %v, want retryable %v", err, tt.retryable)
			}
			if !tt.retryable && err != nil {
				t.Fatalf("err = %v, want nil", err)
			}
		})
	}
}

func TestHandleChangesInvalidEventIsNotRetryable(t *testing.T) {
	p := NewPipeline(&fakeDispatcher{err: ErrInvalidEvent}, testLogger, nil)
	_, err := p.HandleChanges(context.Background(), nil, ports.DispatchOptions{})
	if err == nil || IsRetryable(err) {
		t.Fatalf("err = %v, want a permanent error", err)
	}
}
