package notifications

import "git.platform.alem.school/amibragim/brew-events/internal/domain/orders"

// Channel is a notification delivery mechanism.
type Channel string

const (
	ChannelPush     Channel = "push"
	ChannelSMS      Channel = "sms"
	ChannelWhatsApp Channel = "whatsapp"
)

// ParseChannel normalizes a channel name coming from config or an API request.
func ParseChannel(s string) (Channel, bool) {
	switch Channel(s) {
	case ChannelPush, ChannelSMS, ChannelWhatsApp:
		return Channel(s), true
	default:
		return "", false
	}
}

// MessageKind selects catalog text. Order lifecycle kinds equal their event type.
type MessageKind string

// KindOTP is the one-time code message sent by the authentication flow.
const KindOTP MessageKind = "auth:otp"

// KindForEvent returns the catalog kind of a lifecycle event.
func KindForEvent(t orders.EventType) MessageKind { return MessageKind(t) }

// Payload is what one multi-channel send delivers.
type Payload struct {
	Kind          MessageKind
	TransactionID int64
	CustomerID    *int64 // push destination
	Phone         string // sms/whatsapp destination
	Variables     map[string]string
}

// SendResult records one channel attempt.
type SendResult struct {
	Channel Channel `json:"channel"`
	Success bool    `json:"success"`
	Error   string  `json:"error,omitempty"`
}

// Delivered reports whether any attempt in results succeeded.
func Delivered(results []SendResult) bool {
	for _, r := range results {
		if r.Success {
			return true
		}
	}
	return false
}
