package notificationservice

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"git.platform.alem.school/amibragim/brew-events/internal/domain/notifications"
	"git.platform.alem.school/amibragim/brew-events/internal/ports"
	"git.platform.alem.school/amibragim/brew-events/internal/shared/logger"
	"git.platform.alem.school/amibragim/brew-events/internal/shared/metrics"
)

// FallbackSender delivers one message over the first channel that works, keeping a log of every attempt.
type FallbackSender struct {
	catalog  notifications.Catalog
	push     ports.PushSender
	gateways map[notifications.Channel]ports.MessageSender
	logger   *logger.Logger
	metrics  *metrics.Pipeline
}

// NewFallbackSender wires the channel adapters. Any adapter may be nil when the channel is not deployed.
func NewFallbackSender(
	catalog notifications.Catalog,
	push ports.PushSender,
	sms ports.MessageSender,
	whatsapp ports.MessageSender,
	logger *logger.Logger,
	m *metrics.Pipeline,
) *FallbackSender {
	gateways := map[notifications.Channel]ports.MessageSender{}
	if sms != nil {
		gateways[notifications.ChannelSMS] = sms
	}
	if whatsapp != nil {
		gateways[notifications.ChannelWhatsApp] = whatsapp
	}

	return &FallbackSender{
		catalog:  catalog,
		push:     push,
		gateways: gateways,
		logger:   logger,
		metrics:  m,
	}
}

// Send tries channels in order and stops at the first success. It never returns an error:
// every failure, configuration or transport, becomes a failed SendResult.
func (s *FallbackSender) Send(ctx context.Context, channels []notifications.Channel, payload notifications.Payload) []notifications.SendResult {
	results := make([]notifications.SendResult, 0, len(channels))
	vars := variables(payload)

	for _, ch := range channels {
		err := s.sendOne(ctx, ch, payload, vars)
		s.metrics.ObserveAttempt(string(ch), err == nil)

		if err == nil {
			results = append(results, notifications.SendResult{Channel: ch, Success: true})
			return results
		}

		results = append(results, notifications.SendResult{Channel: ch, Error: err.Error()})
		s.logger.Debug(ctx, "channel_attempt_failed", "Channel could not deliver, trying next", map[string]any{
			"channel":        ch,
			"kind":           payload.Kind,
			"transaction_id": payload.TransactionID,
			"reason":         err.Error(),
		})
	}

	return results
}

// sendOne performs one channel attempt; a nil error means the channel delivered.
func (s *FallbackSender) sendOne(ctx context.Context, ch notifications.Channel, payload notifications.Payload, vars map[string]string) error {
	msg, ok := s.catalog.Lookup(payload.Kind)
	if !ok {
		return fmt.Errorf("no catalog message for %q", payload.Kind)
	}

	switch ch {
	case notifications.ChannelPush:
		return s.sendPush(ctx, msg, payload, vars)
	case notifications.ChannelSMS:
		if msg.Body == "" {
			return fmt.Errorf("no sms text for %q", payload.Kind)
		}
		return s.sendText(ctx, ch, payload, ports.TextMessage{
			Phone: payload.Phone,
			Body:  notifications.Render(msg.Body, vars),
		})
	case notifications.ChannelWhatsApp:
		if msg.WhatsAppTemplate == "" {
			return fmt.Errorf("no whatsapp template for %q", payload.Kind)
		}
		return s.sendText(ctx, ch, payload, ports.TextMessage{
			Phone:      payload.Phone,
			TemplateID: msg.WhatsAppTemplate,
			Variables:  vars,
		})
	default:
		return fmt.Errorf("unsupported channel %q", ch)
	}
}

func (s *FallbackSender) sendPush(ctx context.Context, msg notifications.Message, payload notifications.Payload, vars map[string]string) error {
	if s.push == nil {
		return errors.New("push gateway is not configured")
	}
	if payload.CustomerID == nil {
		return errors.New("push requires a customer id")
	}

	data := map[string]string{"kind": string(payload.Kind)}
	if payload.TransactionID > 0 {
		data["transaction_id"] = strconv.FormatInt(payload.TransactionID, 10)
	}

	out, err := s.push.SendToCustomer(ctx, *payload.CustomerID, ports.PushMessage{
		Title: notifications.Render(msg.Title, vars),
		Body:  notifications.Render(msg.Body, vars),
		Data:  data,
	})
	switch {
	case err != nil:
		return fmt.Errorf("push gateway: %w", err)
	case out.Sent > 0:
		return nil
	case out.Failed > 0:
		return fmt.Errorf("push delivery failed for %d tokens", out.Failed)
	default:
		return errors.New("no registered push tokens")
	}
}

func (s *FallbackSender) sendText(ctx context.Context, ch notifications.Channel, payload notifications.Payload, msg ports.TextMessage) error {
	gw, ok := s.gateways[ch]
	if !ok || !gw.Enabled() {
		return fmt.Errorf("%s gateway credentials are not configured", ch)
	}
	if payload.Phone == "" {
		return fmt.Errorf("%s requires a phone number", ch)
	}

	id, err := gw.Send(ctx, msg)
	if err != nil {
		return fmt.Errorf("%s gateway: %w", ch, err)
	}

	s.logger.Debug(ctx, "message_sent", "Message accepted by gateway", map[string]any{
		"channel":     ch,
		"provider_id": id,
	})
	return nil
}

// variables merges the payload variables with the transaction id placeholder.
func variables(payload notifications.Payload) map[string]string {
	vars := make(map[string]string, len(payload.Variables)+1)
	for k, v := range payload.Variables {
		vars[k] = v
	}
	if payload.TransactionID > 0 {
		if _, ok := vars["transaction_id"]; !ok {
			vars["transaction_id"] = strconv.FormatInt(payload.TransactionID, 10)
		}
	}
	return vars
}
