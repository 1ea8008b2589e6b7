package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-core/internal/config"
	"github.com/spec-kit/helpdesk-core/internal/events"
	"github.com/spec-kit/helpdesk-core/internal/observability"
)

// NotificationService delivers best-effort webhook notifications for domain
// events. Every failure is absorbed here: delivery outcome never reaches the
// code path that triggered the event.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
	cfg        config.NotificationConfig
	http       *http.Client
}

// NewNotificationService creates the service. The HTTP client timeout bounds
// each delivery attempt.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, metrics *observability.Metrics, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		metrics:    metrics,
		cfg:        cfg,
		http:       &http.Client{Timeout: cfg.Timeout()},
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.dispatcher.Subscribe(events.EventTicketRecategorized, n.handleTicketRecategorized)
}

// ticketWebhookPayload is the body the notification endpoint expects.
type ticketWebhookPayload struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Subject     string `json:"subject"`
	Description string `json:"description"`
}

func (n *NotificationService) handleTicketCreated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketCreatedPayload)
	if !ok {
		n.logger.Warn("unexpected ticket_created payload", zap.Any("payload", event.Payload))
		return nil
	}
	n.logger.Info("TicketCreated",
		zap.Int64("ticket_id", event.TicketID),
		zap.String("priority", string(payload.Priority)),
		zap.String("category", payload.Category))

	n.sendWebhook(ctx, ticketWebhookPayload{
		Name:        payload.ReporterName,
		Email:       payload.ReporterEmail,
		Subject:     fmt.Sprintf("New Ticket - %s Priority", payload.Priority),
		Description: payload.Issue,
	})
	return nil
}

func (n *NotificationService) handleTicketRecategorized(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketRecategorized", zap.Any("payload", event.Payload))
	return nil
}

// sendWebhook POSTs the payload to the configured endpoint. Non-2xx
// responses, timeouts and encoding problems are logged and counted only.
func (n *NotificationService) sendWebhook(ctx context.Context, payload ticketWebhookPayload) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}

	body, err := json.Marshal(payload)
	if err != nil {
		n.recordFailure("encode webhook payload", err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.cfg.WebhookURL, bytes.NewReader(body))
	if err != nil {
		n.recordFailure("build webhook request", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.http.Do(req)
	if err != nil {
		n.recordFailure("deliver webhook", err)
		return
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		n.metrics.RecordNotification("failed")
		n.logger.Warn("webhook rejected notification",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", raw))
		return
	}

	n.metrics.RecordNotification("delivered")
	n.logger.Debug("webhook notification delivered", zap.String("url", n.cfg.WebhookURL))
}

func (n *NotificationService) recordFailure(action string, err error) {
	n.metrics.RecordNotification("failed")
	n.logger.Warn("notification failed", zap.String("action", action), zap.Error(err))
}
