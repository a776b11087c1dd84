package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/ride-auth-service/internal/events"
)

// AuditService writes an audit trail line for each auth event.
type AuditService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewAuditService creates the service.
func NewAuditService(dispatcher events.Dispatcher, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{dispatcher: dispatcher, logger: logger}
}

// RegisterHandlers subscribes to events.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.Subscribe(events.EventActorRegistered, a.record)
	a.dispatcher.Subscribe(events.EventActorLoggedIn, a.record)
	a.dispatcher.Subscribe(events.EventActorLoggedOut, a.record)
}

func (a *AuditService) record(_ context.Context, event events.Event) error {
	fields := []zap.Field{
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)),
		zap.String("actor_id", event.ActorID),
		zap.String("actor_kind", string(event.ActorKind)),
		zap.Time("at", event.Timestamp),
	}
	if event.Payload != nil {
		fields = append(fields, zap.Any("payload", event.Payload))
	}
	a.logger.Info("auth audit", fields...)
	return nil
}
