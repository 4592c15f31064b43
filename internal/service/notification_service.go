package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/claimdesk/claims-service/internal/config"
	"github.com/claimdesk/claims-service/internal/events"
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
	n.dispatcher.Subscribe(events.EventClaimCreated, n.handleClaimCreated)
	n.dispatcher.Subscribe(events.EventClaimStateChanged, n.handleClaimStateChanged)
	n.dispatcher.Subscribe(events.EventClaimAssigned, n.handleClaimAssigned)
	n.dispatcher.Subscribe(events.EventClaimCommentAdded, n.handleClaimCommentAdded)
}

func (n *NotificationService) handleClaimCreated(ctx context.Context, event events.Event) error {
	n.logger.Info("ClaimCreated", zap.String("claim_id", event.ClaimID), zap.Any("payload", event.Payload))
	n.sendEmailNotificationStub(ctx, event)
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleClaimStateChanged(ctx context.Context, event events.Event) error {
	n.logger.Info("ClaimStateChanged", zap.String("claim_id", event.ClaimID), zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleClaimAssigned(ctx context.Context, event events.Event) error {
	n.logger.Info("ClaimAssigned", zap.String("claim_id", event.ClaimID), zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleClaimCommentAdded(ctx context.Context, event events.Event) error {
	n.logger.Info("ClaimCommentAdded", zap.String("claim_id", event.ClaimID), zap.Any("payload", event.Payload))
	n.sendEmailNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) sendEmailNotificationStub(_ context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	n.logger.Debug("sendEmailNotificationStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("claim_id", event.ClaimID),
		zap.String("event_type", string(event.Type)))
}

func (n *NotificationService) sendWebhookNotificationStub(_ context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookNotificationStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("claim_id", event.ClaimID),
		zap.String("event_type", string(event.Type)))
}
