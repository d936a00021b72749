package webhookservice

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/google/uuid"

	"git.platform.alem.school/amibragim/brew-events/internal/app/notificationservice"
	"git.platform.alem.school/amibragim/brew-events/internal/domain/notifications"
	"git.platform.alem.school/amibragim/brew-events/internal/domain/orders"
	"git.platform.alem.school/amibragim/brew-events/internal/ports"
	"git.platform.alem.school/amibragim/brew-events/internal/shared/contracts"
	"git.platform.alem.school/amibragim/brew-events/internal/shared/logger"
	"git.platform.alem.school/amibragim/brew-events/internal/shared/rabbitmq"
)

const maxBodyBytes = 1 << 20 // 1 MiB

// ChangeHandler runs a batch of transaction changes through derivation and dispatch.
type ChangeHandler interface {
	HandleChanges(ctx context.Context, changes []orders.TransactionChange, opts ports.DispatchOptions) (ports.DispatchResult, error)
}

// Publisher queues a poll-cycle message for the event pipeline.
type Publisher interface {
	Publish(ctx context.Context, routingKey, messageID string, body []byte) error
}

// HealthCheck reports whether one dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Deps are the collaborators of the HTTP API. Publisher, Sender and Metrics may be nil.
type Deps struct {
	Changes          ChangeHandler
	Publisher        Publisher
	Sender           ports.Sender
	Checks           map[string]HealthCheck
	AnalyticsEnabled bool
	Metrics          http.Handler
	RequestTimeout   time.Duration
}

// WebhookHTTPHandler adapts HTTP requests to the event pipeline and the fallback sender.
type WebhookHTTPHandler struct {
	deps   Deps
	logger *logger.Logger
}

// NewHandler wires an HTTP handler around the pipeline.
func NewHandler(deps Deps, logger *logger.Logger) *WebhookHTTPHandler {
	if deps.RequestTimeout <= 0 {
		deps.RequestTimeout = 10 * time.Second
	}
	return &WebhookHTTPHandler{deps: deps, logger: logger}
}

// Routes mounts every endpoint on a chi router.
func (handler *WebhookHTTPHandler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", handler.health)

		r.Post("/webhooks/transactions", handler.transactionWebhook)
		r.Post("/webhooks/transactions/batch", handler.transactionBatchWebhook)

		r.Post("/messages", handler.sendMessage)
	})

	if handler.deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", handler.deps.Metrics)
	}

	return r
}

// --- Request/Response DTOs (HTTP boundary) ---

type webhookResponse struct {
	Changes           int    `json:"changes"`
	AnalyticsCount    int    `json:"analytics_count"`
	NotificationCount int    `json:"notification_count"`
	DeliveredCount    int    `json:"delivered_count"`
	Queued            bool   `json:"queued,omitempty"`
	MessageID         string `json:"message_id,omitempty"`
}

type sendMessageRequest struct {
	Channels      []string          `json:"channels"`
	Kind          string            `json:"kind"`
	CustomerID    *int64            `json:"customer_id,omitempty"`
	Phone         string            `json:"phone,omitempty"`
	TransactionID int64             `json:"transaction_id,omitempty"`
	Variables     map[string]string `json:"variables,omitempty"`
}

type sendMessageResponse struct {
	Results   []notifications.SendResult `json:"results"`
	Delivered bool                       `json:"delivered"`
}

// --- Handlers ---

// transactionWebhook handles POST /api/v1/webhooks/transactions with a single change.
func (handler *WebhookHTTPHandler) transactionWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	var change contracts.TransactionChangeMessage
	if !handler.decode(ctx, w, r, &change) {
		return
	}

	handler.dispatch(ctx, w, r, contracts.TransactionChangesMessage{
		PolledAt: time.Now().UTC(),
		Changes:  []contracts.TransactionChangeMessage{change},
	})
}

// transactionBatchWebhook handles POST /api/v1/webhooks/transactions/batch with one poll cycle.
func (handler *WebhookHTTPHandler) transactionBatchWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	var msg contracts.TransactionChangesMessage
	if !handler.decode(ctx, w, r, &msg) {
		return
	}
	if msg.PolledAt.IsZero() {
		msg.PolledAt = time.Now().UTC()
	}

	handler.dispatch(ctx, w, r, msg)
}

// dispatch applies the query flags, then either queues the cycle or processes it inline.
func (handler *WebhookHTTPHandler) dispatch(ctx context.Context, w http.ResponseWriter, r *http.Request, msg contracts.TransactionChangesMessage) {
	q := r.URL.Query()
	msg.SkipAgeCheck = msg.SkipAgeCheck || queryBool(q.Get("skip_age_check"))
	msg.SkipNotifications = msg.SkipNotifications || queryBool(q.Get("skip_notifications"))

	changes, err := msg.ToDomain()
	if err != nil {
		handler.writeErr(ctx, w, http.StatusBadRequest, err.Error(), err)
		return
	}

	if queryBool(q.Get("async")) {
		handler.enqueue(ctx, w, msg)
		return
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, handler.deps.RequestTimeout)
	defer cancel()

	res, err := handler.deps.Changes.HandleChanges(ctxWithTimeout, changes, ports.DispatchOptions{
		SkipAgeCheck:      msg.SkipAgeCheck,
		SkipNotifications: msg.SkipNotifications,
	})
	switch {
	case errors.Is(err, notificationservice.ErrInvalidEvent):
		handler.writeErr(ctx, w, http.StatusBadRequest, err.Error(), err)
		return
	case notificationservice.IsRetryable(err):
		handler.writeErr(ctx, w, http.StatusServiceUnavailable, "processing interrupted, retry later", err)
		return
	case err != nil:
		handler.writeErr(ctx, w, http.StatusInternalServerError, "processing failed", err)
		return
	}

	handler.logger.Info(ctx, "webhook_processed", "Processed webhook transaction changes", map[string]any{
		"changes":            len(changes),
		"analytics_count":    res.AnalyticsCount,
		"notification_count": res.NotificationCount,
		"delivered_count":    res.DeliveredCount,
	})

	handler.writeJSON(w, http.StatusOK, webhookResponse{
		Changes:           len(changes),
		AnalyticsCount:    res.AnalyticsCount,
		NotificationCount: res.NotificationCount,
		DeliveredCount:    res.DeliveredCount,
	})
}

// enqueue publishes the cycle to the transactions exchange for the event pipeline to pick up.
func (handler *WebhookHTTPHandler) enqueue(ctx context.Context, w http.ResponseWriter, msg contracts.TransactionChangesMessage) {
	if handler.deps.Publisher == nil {
		handler.writeErr(ctx, w, http.StatusServiceUnavailable, "async delivery is not configured", errors.New("no publisher"))
		return
	}

	body, err := json.Marshal(msg)
	if err != nil {
		handler.writeErr(ctx, w, http.StatusInternalServerError, "failed to encode message", err)
		return
	}

	id := logger.RequestIDFrom(ctx)
	if id == "" {
		id = uuid.NewString()
	}

	if err := handler.deps.Publisher.Publish(ctx, rabbitmq.RoutingKeyWebhook, id, body); err != nil {
		handler.writeErr(ctx, w, http.StatusServiceUnavailable, "failed to queue transaction changes", err)
		return
	}

	handler.logger.Debug(ctx, "webhook_queued", "Queued webhook transaction changes", map[string]any{
		"changes":    len(msg.Changes),
		"message_id": id,
	})
	handler.writeJSON(w, http.StatusAccepted, webhookResponse{Changes: len(msg.Changes), Queued: true, MessageID: id})
}

// sendMessage handles POST /api/v1/messages: a direct multi-channel send such as an OTP code.
func (handler *WebhookHTTPHandler) sendMessage(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	if handler.deps.Sender == nil {
		handler.writeErr(ctx, w, http.StatusServiceUnavailable, "messaging is not configured", errors.New("no sender"))
		return
	}

	var req sendMessageRequest
	if !handler.decode(ctx, w, r, &req) {
		return
	}

	channels, payload, err := toPayload(req)
	if err != nil {
		handler.writeErr(ctx, w, http.StatusBadRequest, err.Error(), err)
		return
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, handler.deps.RequestTimeout)
	defer cancel()

	results := handler.deps.Sender.Send(ctxWithTimeout, channels, payload)
	delivered := notifications.Delivered(results)

	handler.logger.Info(ctx, "message_dispatched", "Processed direct message request", map[string]any{
		"kind":      payload.Kind,
		"attempts":  len(results),
		"delivered": delivered,
	})
	handler.writeJSON(w, http.StatusOK, sendMessageResponse{Results: results, Delivered: delivered})
}

// health handles GET /api/v1/health.
func (handler *WebhookHTTPHandler) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	status := "ok"
	code := http.StatusOK
	checks := make(map[string]string, len(handler.deps.Checks))
	for name, check := range handler.deps.Checks {
		if err := check(ctx); err != nil {
			checks[name] = err.Error()
			status = "degraded"
			code = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	handler.writeJSON(w, code, map[string]any{
		"status":            status,
		"checks":            checks,
		"analytics_enabled": handler.deps.AnalyticsEnabled,
	})
}

// --- Helpers ---

func toPayload(req sendMessageRequest) ([]notifications.Channel, notifications.Payload, error) {
	if len(req.Channels) == 0 {
		return nil, notifications.Payload{}, errors.New("channels must not be empty")
	}
	if strings.TrimSpace(req.Kind) == "" {
		return nil, notifications.Payload{}, errors.New("kind is required")
	}

	channels := make([]notifications.Channel, 0, len(req.Channels))
	for _, c := range req.Channels {
		ch, ok := notifications.ParseChannel(strings.ToLower(strings.TrimSpace(c)))
		if !ok {
			return nil, notifications.Payload{}, errors.New("unknown channel: " + c)
		}
		channels = append(channels, ch)
	}

	return channels, notifications.Payload{
		Kind:          notifications.MessageKind(req.Kind),
		TransactionID: req.TransactionID,
		CustomerID:    req.CustomerID,
		Phone:         strings.TrimSpace(req.Phone),
		Variables:     req.Variables,
	}, nil
}

// decode reads a strict JSON body into v, writing the error response itself on failure.
func (handler *WebhookHTTPHandler) decode(ctx context.Context, w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer r.Body.Close()

	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "application/json") {
		handler.writeErr(ctx, w, http.StatusUnsupportedMediaType, "Content-Type must be application/json", errors.New("unsupported content type: "+ct))
		return false
	}

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		handler.writeErr(ctx, w, http.StatusBadRequest, "invalid JSON: "+err.Error(), err)
		return false
	}
	return true
}

func queryBool(s string) bool {
	b, err := strconv.ParseBool(s)
	return err == nil && b
}

// writeJSON writes the provided value as a JSON response with the given status code.
func (handler *WebhookHTTPHandler) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeErr logs the failure and writes a JSON error body.
func (handler *WebhookHTTPHandler) writeErr(ctx context.Context, w http.ResponseWriter, code int, msg string, err error) {
	action := "request_failed"
	if code >= 500 {
		action = "http_internal_error"
	} else if code == http.StatusBadRequest {
		action = "validation_failed"
	} else if code == http.StatusUnsupportedMediaType {
		action = "unsupported_media_type"
	}
	handler.logger.Error(ctx, action, msg, err)

	handler.writeJSON(w, code, map[string]any{"error": msg})
}

// withReqID reuses the chi request id, or the caller's X-Request-ID, as the log correlation id.
func (handler *WebhookHTTPHandler) withReqID(ctx context.Context, r *http.Request) context.Context {
	reqID := r.Header.Get("X-Request-ID")
	if reqID == "" {
		reqID = middleware.GetReqID(ctx)
	}
	if reqID == "" {
		reqID = uuid.NewString()
	}
	return handler.logger.WithRequestID(ctx, reqID)
}
