package orders

import "time"

// Action tells whether a transaction is observed for the first time or changed since the previous poll.
type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
)

// ServiceMode is the dine-in/takeaway/delivery classification of an order.
type ServiceMode string

const (
	ServiceModeDineIn   ServiceMode = "dine_in"
	ServiceModeTakeaway ServiceMode = "takeaway"
	ServiceModeDelivery ServiceMode = "delivery"
	ServiceModeUnknown  ServiceMode = "unknown"
)

// TransactionChange compares the previous polled state of one POS transaction to the current one.
// Optional signals are nil when the poller did not observe them.
type TransactionChange struct {
	TransactionID int64
	Action        Action

	Status    *int
	OldStatus *int

	ProcessingStatus    *int
	OldProcessingStatus *int

	IsAccepted    *bool
	OldIsAccepted *bool

	CustomerID  *int64 // nil for walk-in orders
	ServiceMode ServiceMode

	DateStart    time.Time // zero when unknown
	DateClose    *time.Time
	OldDateClose *time.Time

	IncomeAmount *Money // net income, excludes wallet/bonus balances
	PayedSum     *Money
}
