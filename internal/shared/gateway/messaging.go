package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"git.platform.alem.school/amibragim/brew-events/internal/domain/notifications"
	"git.platform.alem.school/amibragim/brew-events/internal/ports"
	"git.platform.alem.school/amibragim/brew-events/internal/shared/config"
)

// ErrNotConfigured is returned by a gateway without endpoint or credentials.
var ErrNotConfigured = errors.New("gateway is not configured")

// MessageGateway sends SMS or WhatsApp messages through an HTTP messaging provider.
type MessageGateway struct {
	channel    notifications.Channel
	baseURL    string
	apiKey     string
	sender     string
	configured bool
	client     *http.Client
}

// NewMessageGateway creates a gateway for one phone-addressed channel.
func NewMessageGateway(channel notifications.Channel, cfg config.Gateway) *MessageGateway {
	return &MessageGateway{
		channel:    channel,
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		sender:     cfg.Sender,
		configured: cfg.Configured(),
		client:     httpClient(cfg.Timeout),
	}
}

// Enabled reports whether the gateway can send.
func (g *MessageGateway) Enabled() bool {
	return g.configured
}

type messageTemplate struct {
	ID        string            `json:"id"`
	Variables map[string]string `json:"variables,omitempty"`
}

type messageRequest struct {
	Channel  string           `json:"channel"`
	From     string           `json:"from,omitempty"`
	To       string           `json:"to"`
	Text     string           `json:"text,omitempty"`
	Template *messageTemplate `json:"template,omitempty"`
}

type messageResponse struct {
	ID string `json:"id"`
}

// Send submits one message and returns the provider message id.
func (g *MessageGateway) Send(ctx context.Context, msg ports.TextMessage) (string, error) {
	if !g.Enabled() {
		return "", fmt.Errorf("%s: %w", g.channel, ErrNotConfigured)
	}
	if msg.Phone == "" {
		return "", errors.New("phone number is required")
	}
	if msg.Body == "" && msg.TemplateID == "" {
		return "", errors.New("either body or template is required")
	}

	payload := messageRequest{
		Channel: string(g.channel),
		From:    g.sender,
		To:      msg.Phone,
		Text:    msg.Body,
	}
	if msg.TemplateID != "" {
		payload.Text = ""
		payload.Template = &messageTemplate{ID: msg.TemplateID, Variables: msg.Variables}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return "", statusError(resp)
	}

	var out messageResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode message response: %w", err)
	}
	if out.ID == "" {
		return "", errors.New("provider returned no message id")
	}

	return out.ID, nil
}
