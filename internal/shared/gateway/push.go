package gateway

import (
	"context"
	"fmt"
	"net/http"

	expo "github.com/oliveroneill/exponent-server-sdk-golang/sdk"

	"git.platform.alem.school/amibragim/brew-events/internal/ports"
	"git.platform.alem.school/amibragim/brew-events/internal/shared/config"
)

// PushGateway sends push notifications through the Expo push service.
type PushGateway struct {
	client *expo.PushClient
	tokens ports.TokenStore
}

// NewPushGateway creates a gateway that resolves device tokens through tokens.
// cfg.URL is the push service host; an API key enables Expo enhanced push security.
func NewPushGateway(cfg config.Gateway, tokens ports.TokenStore) *PushGateway {
	hc := httpClient(cfg.Timeout)
	if cfg.APIKey != "" {
		hc.Transport = &bearerTransport{token: cfg.APIKey, base: http.DefaultTransport}
	}

	return &PushGateway{
		client: expo.NewPushClient(&expo.ClientConfig{
			Host:       cfg.URL,
			HTTPClient: hc,
		}),
		tokens: tokens,
	}
}

// SendToCustomer delivers msg to every registered device of the customer, one ticket per token.
// A customer without tokens yields a zero outcome and no request. Tokens that are not Expo
// push tokens count as failed without being sent.
func (g *PushGateway) SendToCustomer(ctx context.Context, customerID int64, msg ports.PushMessage) (ports.PushOutcome, error) {
	tokens, err := g.tokens.TokensForCustomer(ctx, customerID)
	if err != nil {
		return ports.PushOutcome{}, fmt.Errorf("load push tokens: %w", err)
	}

	var outcome ports.PushOutcome
	messages := make([]expo.PushMessage, 0, len(tokens))
	for _, raw := range tokens {
		tok, err := expo.NewExponentPushToken(raw)
		if err != nil {
			outcome.Failed++
			continue
		}
		messages = append(messages, expo.PushMessage{
			To:       []expo.ExponentPushToken{tok},
			Title:    msg.Title,
			Body:     msg.Body,
			Data:     msg.Data,
			Sound:    "default",
			Priority: expo.DefaultPriority,
		})
	}
	if len(messages) == 0 {
		return outcome, nil
	}
	if err := ctx.Err(); err != nil {
		return ports.PushOutcome{}, err
	}

	responses, err := g.client.PublishMultiple(messages)
	if err != nil {
		return ports.PushOutcome{}, fmt.Errorf("publish push messages: %w", err)
	}

	for i := range responses {
		if responses[i].ValidateResponse() == nil {
			outcome.Sent++
		} else {
			outcome.Failed++
		}
	}
	return outcome, nil
}
