package orders

import "time"

// EventType is one discrete lifecycle transition of an order.
type EventType string

const (
	EventCreated   EventType = "order:created"
	EventAccepted  EventType = "order:accepted"
	EventReady     EventType = "order:ready"
	EventDelivered EventType = "order:delivered"
	EventClosed    EventType = "order:closed"
	EventDeclined  EventType = "order:declined"
)

// Valid reports whether t is a known lifecycle event type.
func (t EventType) Valid() bool {
	switch t {
	case EventCreated, EventAccepted, EventReady, EventDelivered, EventClosed, EventDeclined:
		return true
	default:
		return false
	}
}

// OrderEvent is a lifecycle event derived from a TransactionChange.
type OrderEvent struct {
	TransactionID int64
	CustomerID    *int64
	ServiceMode   ServiceMode
	EventType     EventType
	IncomeAmount  *Money
	PayedSum      *Money
	OrderDate     *time.Time // used only by the notification freshness filter
}

// HasCustomer reports whether the event is attributable to a known customer.
func (e OrderEvent) HasCustomer() bool { return e.CustomerID != nil }
