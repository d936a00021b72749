package notifications

import (
	"sort"
	"strings"

	"git.platform.alem.school/amibragim/brew-events/internal/domain/orders"
)

// Message is the localized content for one message kind.
type Message struct {
	Title            string
	Body             string // may contain {placeholders} filled from payload variables
	WhatsAppTemplate string // provider template id, empty when the kind has no approved template
}

// Catalog maps message kinds to their content. Kinds missing from the catalog are not notified.
type Catalog map[MessageKind]Message

// Lookup returns the message for kind.
func (c Catalog) Lookup(kind MessageKind) (Message, bool) {
	m, ok := c[kind]
	return m, ok
}

// Render fills {name} placeholders of text from vars. Unknown placeholders are left as is.
func Render(text string, vars map[string]string) string {
	if len(vars) == 0 || !strings.Contains(text, "{") {
		return text
	}

	// deterministic replacement order
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys)*2)
	for _, k := range keys {
		pairs = append(pairs, "{"+k+"}", vars[k])
	}
	return strings.NewReplacer(pairs...).Replace(text)
}

// order:created is absent on purpose: creation is acknowledged by the checkout flow itself.
var catalogs = map[string]Catalog{
	"en": {
		KindForEvent(orders.EventAccepted):  {Title: "Order accepted", Body: "Your order #{transaction_id} has been accepted and is being prepared.", WhatsAppTemplate: "order_accepted_en"},
		KindForEvent(orders.EventReady):     {Title: "Order ready", Body: "Your order #{transaction_id} is ready. Enjoy your coffee!", WhatsAppTemplate: "order_ready_en"},
		KindForEvent(orders.EventDelivered): {Title: "Order delivered", Body: "Your order #{transaction_id} has been delivered.", WhatsAppTemplate: "order_delivered_en"},
		KindForEvent(orders.EventClosed):    {Title: "Thank you!", Body: "Order #{transaction_id} is complete. See you soon!", WhatsAppTemplate: "order_closed_en"},
		KindForEvent(orders.EventDeclined):  {Title: "Order declined", Body: "Unfortunately your order #{transaction_id} was declined.", WhatsAppTemplate: "order_declined_en"},
		KindOTP:                             {Title: "Verification code", Body: "Your verification code is {code}", WhatsAppTemplate: "otp_code_en"},
	},
	"ru": {
		KindForEvent(orders.EventAccepted):  {Title: "Заказ принят", Body: "Ваш заказ #{transaction_id} принят и уже готовится.", WhatsAppTemplate: "order_accepted_ru"},
		KindForEvent(orders.EventReady):     {Title: "Заказ готов", Body: "Ваш заказ #{transaction_id} готов. Приятного кофе!", WhatsAppTemplate: "order_ready_ru"},
		KindForEvent(orders.EventDelivered): {Title: "Заказ доставлен", Body: "Ваш заказ #{transaction_id} доставлен.", WhatsAppTemplate: "order_delivered_ru"},
		KindForEvent(orders.EventClosed):    {Title: "Спасибо!", Body: "Заказ #{transaction_id} завершён. Ждём вас снова!", WhatsAppTemplate: "order_closed_ru"},
		KindForEvent(orders.EventDeclined):  {Title: "Заказ отклонён", Body: "К сожалению, ваш заказ #{transaction_id} был отклонён.", WhatsAppTemplate: "order_declined_ru"},
		KindOTP:                             {Title: "Код подтверждения", Body: "Ваш код подтверждения: {code}", WhatsAppTemplate: "otp_code_ru"},
	},
}

// DefaultCatalog returns a copy of the built-in catalog for locale, falling back to English.
func DefaultCatalog(locale string) Catalog {
	src, ok := catalogs[strings.ToLower(strings.TrimSpace(locale))]
	if !ok {
		src = catalogs["en"]
	}

	out := make(Catalog, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
