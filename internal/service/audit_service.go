package service

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/snbp-backend/internal/config"
	"github.com/stemsi/snbp-backend/internal/model"
)

// AuditPublisher hands audit events to the external sink. Fire-and-forget:
// the engine never blocks or fails on audit delivery.
type AuditPublisher interface {
	Publish(ctx context.Context, event model.AuditEvent)
}

// AuditService enqueues audit events onto a Redis list consumed by the
// external audit collaborator. Delivery failures are logged and dropped.
type AuditService struct {
	rdb *redis.Client
	log zerolog.Logger
}

func NewAuditService(rdb *redis.Client, log zerolog.Logger) *AuditService {
	return &AuditService{
		rdb: rdb,
		log: log.With().Str("component", "audit_service").Logger(),
	}
}

func (s *AuditService) Publish(ctx context.Context, event model.AuditEvent) {
	raw, err := json.Marshal(event)
	if err != nil {
		s.log.Error().Err(err).Str("action", event.Action).Msg("Failed to marshal audit event")
		return
	}
	if err := s.rdb.RPush(ctx, config.WorkerKey.AuditEventQueue, raw).Err(); err != nil {
		s.log.Warn().Err(err).Str("action", event.Action).Msg("Failed to enqueue audit event")
	}
}
