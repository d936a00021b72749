package notificationservice

import (
	"context"
	"strings"
	"testing"

	"git.platform.alem.school/amibragim/brew-events/internal/domain/notifications"
	"git.platform.alem.school/amibragim/brew-events/internal/domain/orders"
	"git.platform.alem.school/amibragim/brew-events/internal/ports"
)

var (
	push     = notifications.ChannelPush
	sms      = notifications.ChannelSMS
	whatsapp = notifications.ChannelWhatsApp
)

func readyPayload() notifications.Payload {
	return notifications.Payload{
		Kind:          notifications.KindForEvent(orders.EventReady),
		TransactionID: 501,
		CustomerID:    int64p(9),
		Phone:         "+77010000000",
	}
}

func TestSendFallsBackToSMSWhenPushHasNoTokens(t *testing.T) {
	p := &fakePush{} // zero outcome: no tokens
	s := &fakeGateway{enabled: true}
	sender := NewFallbackSender(notifications.DefaultCatalog("en"), p, s, nil, testLogger, nil)

	results := sender.Send(context.Background(), []notifications.Channel{push, sms}, readyPayload())

	if len(results) != 2 {
		t.Fatalf("got %d results, want 2: %+v", len(results), results)
	}
	if results[0].Success || results[0].Error != "no registered push tokens" {
		t.Errorf("push result = %+v", results[0])
	}
	if !results[1].Success || results[1].Channel != sms {
		t.Errorf("sms result = %+v", results[1])
	}
	if len(s.calls) != 1 {
		t.Fatalf("sms adapter called %d times, want 1", len(s.calls))
	}
	if s.calls[0].Body != "Your order #501 is ready. Enjoy your coffee!" {
		t.Errorf("sms body = %q", s.calls[0].Body)
	}
}

func TestSendStopsAtFirstSuccess(t *testing.T) {
	p := &fakePush{outcome: ports.PushOutcome{Sent: 2}}
	s := &fakeGateway{enabled: true}
	sender := NewFallbackSender(notifications.DefaultCatalog("en"), p, s, nil, testLogger, nil)

	results := sender.Send(context.Background(), []notifications.Channel{push, sms}, readyPayload())

	if len(results) != 1 || !results[0].Success || results[0].Channel != push {
		t.Fatalf("results = %+v", results)
	}
	if len(s.calls) != 0 {
		t.Fatal("sms adapter was called after push succeeded")
	}
	if p.last.Title != "Order ready" || p.last.Data["transaction_id"] != "501" {
		t.Errorf("push message = %+v", p.last)
	}
}

func TestSendReportsEveryFailedAttempt(t *testing.T) {
	p := &fakePush{err: errBoom}
	s := &fakeGateway{enabled: true, err: errBoom}
	w := &fakeGateway{enabled: false}
	sender := NewFallbackSender(notifications.DefaultCatalog("en"), p, s, w, testLogger, nil)

	results := sender.Send(context.Background(), []notifications.Channel{push, sms, whatsapp}, readyPayload())

	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	wantReasons := []string{"push gateway: boom", "sms gateway: boom", "whatsapp gateway credentials are not configured"}
	for i, r := range results {
		if r.Success {
			t.Errorf("result %d unexpectedly succeeded", i)
		}
		if r.Error != wantReasons[i] {
			t.Errorf("result %d reason = %q, want %q", i, r.Error, wantReasons[i])
		}
	}
	if len(w.calls) != 0 {
		t.Error("disabled whatsapp gateway was invoked")
	}
}

func TestSendMissingRequirements(t *testing.T) {
	tests := []struct {
		name    string
		channel notifications.Channel
		payload notifications.Payload
		sender  *FallbackSender
		reason  string
	}{
		{
			name:    "push without customer",
			channel: push,
			payload: notifications.Payload{Kind: notifications.KindOTP, Phone: "+7"},
			sender:  NewFallbackSender(notifications.DefaultCatalog("en"), &fakePush{}, nil, nil, testLogger, nil),
			reason:  "push requires a customer id",
		},
		{
			name:    "push not deployed",
			channel: push,
			payload: readyPayload(),
			sender:  NewFallbackSender(notifications.DefaultCatalog("en"), nil, nil, nil, testLogger, nil),
			reason:  "push gateway is not configured",
		},
		{
			name:    "sms without phone",
			channel: sms,
			payload: notifications.Payload{Kind: notifications.KindOTP},
			sender:  NewFallbackSender(notifications.DefaultCatalog("en"), nil, &fakeGateway{enabled: true}, nil, testLogger, nil),
			reason:  "sms requires a phone number",
		},
		{
			name:    "sms not deployed",
			channel: sms,
			payload: readyPayload(),
			sender:  NewFallbackSender(notifications.DefaultCatalog("en"), nil, nil, nil, testLogger, nil),
			reason:  "sms gateway credentials are not configured",
		},
		{
			name:    "whatsapp without template",
			channel: whatsapp,
			payload: readyPayload(),
			sender: NewFallbackSender(notifications.Catalog{
				notifications.KindForEvent(orders.EventReady): {Title: "t", Body: "b"},
			}, nil, nil, &fakeGateway{enabled: true}, testLogger, nil),
			reason: "no whatsapp template",
		},
		{
			name:    "kind missing from catalog",
			channel: push,
			payload: notifications.Payload{Kind: notifications.KindForEvent(orders.EventCreated), CustomerID: int64p(1)},
			sender:  NewFallbackSender(notifications.DefaultCatalog("en"), &fakePush{}, nil, nil, testLogger, nil),
			reason:  "no catalog message",
		},
		{
			name:    "unknown channel",
			channel: notifications.Channel("fax"),
			payload: readyPayload(),
			sender:  NewFallbackSender(notifications.DefaultCatalog("en"), nil, nil, nil, testLogger, nil),
			reason:  "unsupported channel",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results := tt.sender.Send(context.Background(), []notifications.Channel{tt.channel}, tt.payload)
			if len(results) != 1 || results[0].Success {
				t.Fatalf("results = %+v", results)
			}
			if !strings.Contains(results[0].Error, tt.reason) {
				t.Fatalf("reason = %q, want it to contain %q", results[0].Error, tt.reason)
			}
		})
	}
}

func TestSendPushAllTokensFailed(t *testing.T) {
	sender := NewFallbackSender(notifications.DefaultCatalog("en"), &fakePush{outcome: ports.PushOutcome{Failed: 3}}, nil, nil, testLogger, nil)
	results := sender.Send(context.Background(), []notifications.Channel{push}, readyPayload())
	if results[0].Success || results[0].Error != "push delivery failed for 3 tokens" {
		t.Fatalf("result = %+v", results[0])
	}
}

func TestSendWhatsAppTemplateWithVariables(t *testing.T) {
	w := &fakeGateway{enabled: true}
	sender := NewFallbackSender(notifications.DefaultCatalog("ru"), nil, nil, w, testLogger, nil)

	payload := notifications.Payload{Kind: notifications.KindOTP, Phone: "+77010000000", Variables: map[string]string{"code": "4821"}}
	results := sender.Send(context.Background(), []notifications.Channel{whatsapp, sms}, payload)

	if len(results) != 1 || !results[0].Success {
		t.Fatalf("results = %+v", results)
	}
	got := w.calls[0]
	if got.TemplateID != "otp_code_ru" || got.Variables["code"] != "4821" || got.Body != "" {
		t.Fatalf("whatsapp message = %+v", got)
	}
}

func TestSendOTPOverSMSRendersCode(t *testing.T) {
	s := &fakeGateway{enabled: true}
	sender := NewFallbackSender(notifications.DefaultCatalog("en"), nil, s, nil, testLogger, nil)

	sender.Send(context.Background(), []notifications.Channel{sms}, notifications.Payload{
		Kind: notifications.KindOTP, Phone: "+1", Variables: map[string]string{"code": "0042"},
	})
	if s.calls[0].Body != "Your verification code is 0042" {
		t.Fatalf("body = %q", s.calls[0].Body)
	}
}

func TestSendWithNoChannels(t *testing.T) {
	sender := NewFallbackSender(notifications.DefaultCatalog("en"), nil, nil, nil, testLogger, nil)
	if got := sender.Send(context.Background(), nil, readyPayload()); len(got) != 0 {
		t.Fatalf("results = %+v, want none", got)
	}
}
