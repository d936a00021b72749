package contracts

import (
	"encoding/json"
	"testing"
	"time"

	"git.platform.alem.school/amibragim/brew-events/internal/domain/orders"
)

func TestTransactionChangesMessageToDomain(t *testing.T) {
	body := `{
		"polled_at": "2026-03-01T10:00:00Z",
		"skip_age_check": true,
		"changes": [
			{"transaction_id": 501, "action": "created", "status": 0, "processing_status": 20,
			 "is_accepted": true, "customer_id": 9, "service_mode": "takeout",
			 "date_start": "2026-03-01T09:58:00Z", "income_amount": 150000},
			{"transaction_id": 502, "action": "UPDATED", "customer_id": null, "service_mode": null}
		]
	}`

	var msg TransactionChangesMessage
	if err := json.Unmarshal([]byte(body), &msg); err != nil {
		t.Fatal(err)
	}
	if !msg.SkipAgeCheck {
		t.Error("skip_age_check not decoded")
	}

	changes, err := msg.ToDomain()
	if err != nil {
		t.Fatalf("ToDomain() error = %v", err)
	}
	if len(changes) != 2 {
		t.Fatalf("got %d changes", len(changes))
	}

	first := changes[0]
	if first.Action != orders.ActionCreated || first.ServiceMode != orders.ServiceModeTakeaway {
		t.Errorf("first = %+v", first)
	}
	if first.IncomeAmount == nil || *first.IncomeAmount != 150000 {
		t.Errorf("income = %v", first.IncomeAmount)
	}
	if !first.DateStart.Equal(time.Date(2026, 3, 1, 9, 58, 0, 0, time.UTC)) {
		t.Errorf("date start = %v", first.DateStart)
	}
	if first.IsAccepted == nil || !*first.IsAccepted {
		t.Errorf("is_accepted = %v", first.IsAccepted)
	}

	second := changes[1]
	if second.Action != orders.ActionUpdated || second.CustomerID != nil || second.ServiceMode != "" {
		t.Errorf("second = %+v", second)
	}
	if !second.DateStart.IsZero() {
		t.Errorf("date start = %v, want zero", second.DateStart)
	}
}

func TestTransactionChangeMessageRequiresID(t *testing.T) {
	msg := TransactionChangesMessage{Changes: []TransactionChangeMessage{{TransactionID: 1}, {TransactionID: 0}}}
	if _, err := msg.ToDomain(); err == nil {
		t.Fatal("ToDomain() error = nil for a zero transaction id")
	}
}

func TestParseServiceMode(t *testing.T) {
	tests := map[string]orders.ServiceMode{
		"dine-in":  orders.ServiceModeDineIn,
		"2":        orders.ServiceModeTakeaway,
		"Delivery": orders.ServiceModeDelivery,
		"drone":    orders.ServiceModeUnknown,
		" ":        "",
	}
	for in, want := range tests {
		if got := parseServiceMode(in); got != want {
			t.Errorf("parseServiceMode(%q) = %q, want %q", in, got, want)
		}
	}
}
