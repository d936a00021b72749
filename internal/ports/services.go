package ports

import (
	"context"

	"git.platform.alem.school/amibragim/brew-events/internal/domain/notifications"
	"git.platform.alem.school/amibragim/brew-events/internal/domain/orders"
)

// PushMessage is a push notification addressed to all devices of a customer.
type PushMessage struct {
	Title string
	Body  string
	Data  map[string]string
}

// PushOutcome counts per-device delivery. Zero of both means the customer has no registered tokens.
type PushOutcome struct {
	Sent   int
	Failed int
}

// PushSender delivers push notifications through the push gateway.
type PushSender interface {
	SendToCustomer(ctx context.Context, customerID int64, msg PushMessage) (PushOutcome, error)
}

// TextMessage is either a plain body (SMS) or a provider template with variables (WhatsApp).
type TextMessage struct {
	Phone      string
	Body       string
	TemplateID string
	Variables  map[string]string
}

// MessageSender is one phone-addressed gateway (SMS or WhatsApp).
type MessageSender interface {
	// Enabled reports whether the gateway credentials are configured.
	Enabled() bool
	// Send returns the provider message id.
	Send(ctx context.Context, msg TextMessage) (string, error)
}

// AnalyticsRecord is one product analytics event.
type AnalyticsRecord struct {
	DistinctID     string         `json:"distinct_id"`
	Event          string         `json:"event"`
	Properties     map[string]any `json:"properties"`
	UserProperties map[string]any `json:"user_properties,omitempty"` // "set" semantics on the user profile
}

// AnalyticsSink accepts batches of analytics records.
type AnalyticsSink interface {
	TrackBatch(ctx context.Context, records []AnalyticsRecord) error
}

// Sender tries channels in order and stops at the first successful delivery.
type Sender interface {
	Send(ctx context.Context, channels []notifications.Channel, payload notifications.Payload) []notifications.SendResult
}

// DispatchOptions tune one Process call.
type DispatchOptions struct {
	SkipAgeCheck      bool // notify regardless of how old the order is (replays, tests)
	SkipNotifications bool // analytics only
}

// DispatchResult summarizes one Process call.
type DispatchResult struct {
	AnalyticsCount    int `json:"analytics_count"`
	NotificationCount int `json:"notification_count"`
	DeliveredCount    int `json:"delivered_count"`
}

// Dispatcher fans lifecycle events out to analytics and customer notifications.
type Dispatcher interface {
	Process(ctx context.Context, events []orders.OrderEvent, opts DispatchOptions) (DispatchResult, error)
}
