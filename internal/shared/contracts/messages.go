package contracts

import (
	"fmt"
	"strings"
	"time"

	"git.platform.alem.school/amibragim/brew-events/internal/domain/orders"
)

// TransactionChangeMessage is the wire-format of one observed transaction diff.
type TransactionChangeMessage struct {
	TransactionID       int64      `json:"transaction_id"`
	Action              string     `json:"action"` // "created" | "updated"
	Status              *int       `json:"status,omitempty"`
	OldStatus           *int       `json:"old_status,omitempty"`
	ProcessingStatus    *int       `json:"processing_status,omitempty"`
	OldProcessingStatus *int       `json:"old_processing_status,omitempty"`
	IsAccepted          *bool      `json:"is_accepted,omitempty"`
	OldIsAccepted       *bool      `json:"old_is_accepted,omitempty"`
	CustomerID          *int64     `json:"customer_id"`  // null for walk-in orders
	ServiceMode         *string    `json:"service_mode"` // "dine_in" | "takeaway" | "delivery"
	DateStart           *time.Time `json:"date_start,omitempty"`
	DateClose           *time.Time `json:"date_close,omitempty"`
	OldDateClose        *time.Time `json:"old_date_close,omitempty"`
	IncomeAmount        *int64     `json:"income_amount,omitempty"` // minor units
	PayedSum            *int64     `json:"payed_sum,omitempty"`     // minor units
}

// TransactionChangesMessage is published to "transactions_topic" once per poll cycle.
type TransactionChangesMessage struct {
	PolledAt          time.Time                  `json:"polled_at"`
	SkipAgeCheck      bool                       `json:"skip_age_check,omitempty"`
	SkipNotifications bool                       `json:"skip_notifications,omitempty"`
	Changes           []TransactionChangeMessage `json:"changes"`
}

// ToDomain converts the message into a domain change. Only the identity is mandatory.
func (m TransactionChangeMessage) ToDomain() (orders.TransactionChange, error) {
	if m.TransactionID <= 0 {
		return orders.TransactionChange{}, fmt.Errorf("transaction_id must be > 0, got %d", m.TransactionID)
	}

	change := orders.TransactionChange{
		TransactionID:       m.TransactionID,
		Action:              orders.Action(strings.ToLower(strings.TrimSpace(m.Action))),
		Status:              m.Status,
		OldStatus:           m.OldStatus,
		ProcessingStatus:    m.ProcessingStatus,
		OldProcessingStatus: m.OldProcessingStatus,
		IsAccepted:          m.IsAccepted,
		OldIsAccepted:       m.OldIsAccepted,
		CustomerID:          m.CustomerID,
		DateClose:           m.DateClose,
		OldDateClose:        m.OldDateClose,
		IncomeAmount:        money(m.IncomeAmount),
		PayedSum:            money(m.PayedSum),
	}
	if m.ServiceMode != nil {
		change.ServiceMode = parseServiceMode(*m.ServiceMode)
	}
	if m.DateStart != nil {
		change.DateStart = *m.DateStart
	}

	return change, nil
}

// ToDomain converts every change of the cycle, reporting the first invalid one.
func (m TransactionChangesMessage) ToDomain() ([]orders.TransactionChange, error) {
	out := make([]orders.TransactionChange, 0, len(m.Changes))
	for i, c := range m.Changes {
		change, err := c.ToDomain()
		if err != nil {
			return nil, fmt.Errorf("changes[%d]: %w", i, err)
		}
		out = append(out, change)
	}
	return out, nil
}

func money(p *int64) *orders.Money {
	if p == nil {
		return nil
	}
	m := orders.Money(*p)
	return &m
}

// parseServiceMode accepts the POS spellings of service modes.
func parseServiceMode(s string) orders.ServiceMode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return ""
	case "dine_in", "dine-in", "1":
		return orders.ServiceModeDineIn
	case "takeaway", "takeout", "2":
		return orders.ServiceModeTakeaway
	case "delivery", "3":
		return orders.ServiceModeDelivery
	default:
		return orders.ServiceModeUnknown
	}
}
