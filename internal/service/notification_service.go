package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/forms-service/internal/config"
	"github.com/spec-kit/forms-service/internal/events"
)

// NotificationService handles emitting notifications for domain events.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventFormPublished, n.handleFormPublished)
	n.dispatcher.Subscribe(events.EventSubmissionCreated, n.handleSubmissionCreated)
	n.dispatcher.Subscribe(events.EventSubmissionCompleted, n.handleSubmissionCompleted)
	n.dispatcher.Subscribe(events.EventSubmissionsExported, n.handleSubmissionsExported)
}

func (n *NotificationService) handleFormPublished(ctx context.Context, event events.Event) error {
	n.logger.Info("FormPublished", zap.Int64("form_id", event.FormID), zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleSubmissionCreated(ctx context.Context, event events.Event) error {
	n.logger.Info("SubmissionCreated", zap.Int64("form_id", event.FormID), zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleSubmissionCompleted(ctx context.Context, event events.Event) error {
	n.logger.Info("SubmissionCompleted", zap.Int64("form_id", event.FormID), zap.Any("payload", event.Payload))
	n.sendEmailNotificationStub(ctx, event)
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleSubmissionsExported(ctx context.Context, event events.Event) error {
	n.logger.Info("SubmissionsExported", zap.Int64("form_id", event.FormID), zap.Any("payload", event.Payload))
	return nil
}

func (n *NotificationService) sendEmailNotificationStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	n.logger.Debug("sendEmailNotificationStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.Int64("form_id", event.FormID),
		zap.String("event_type", string(event.Type)))
}

func (n *NotificationService) sendWebhookNotificationStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookNotificationStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.Int64("form_id", event.FormID),
		zap.String("event_type", string(event.Type)))
}
