package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/talentbridge/talentbridge-backend/pkg/db/models"
	"github.com/talentbridge/talentbridge-backend/pkg/enums"
	"github.com/talentbridge/talentbridge-backend/pkg/logger"
	"github.com/talentbridge/talentbridge-backend/pkg/metrics"
)

const envelopeVersion = 1

type DomainEvent struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	AggregateID   uuid.UUID
	Actor         *ActorRef
	Data          interface{}
	OccurredAt    time.Time
}

// Notifier receives domain events once the operation that produced them has
// committed. Delivery is best-effort: implementations never fail the caller.
type Notifier interface {
	Notify(ctx context.Context, event DomainEvent)
}

type Service struct {
	db      *gorm.DB
	repo    *Repository
	logg    *logger.Logger
	metrics *metrics.OutboxMetrics
}

func NewService(db *gorm.DB, repo *Repository, logg *logger.Logger, m *metrics.OutboxMetrics) *Service {
	return &Service{db: db, repo: repo, logg: logg, metrics: m}
}

// Emit queues the event inside the caller's transaction.
func (s *Service) Emit(ctx context.Context, tx *gorm.DB, event DomainEvent) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if event.Actor == nil {
		event.Actor = ActorFromContext(ctx)
	}
	row, envelope, err := buildRow(event)
	if err != nil {
		return err
	}
	if err := s.repo.Insert(tx.WithContext(ctx), row); err != nil {
		return err
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithFields(ctx, eventFields(event, envelope.EventID)), "outbox event queued")
	}
	return nil
}

// Notify writes the event on its own connection. Failures are logged and counted.
func (s *Service) Notify(ctx context.Context, event DomainEvent) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := s.Emit(ctx, s.db, event); err != nil {
		s.metrics.IncNotifyFailure(string(event.EventType))
		if s.logg != nil {
			s.logg.Error(s.logg.WithFields(ctx, eventFields(event, "")), "notification dropped", err)
		}
	}
}

func buildRow(event DomainEvent) (models.OutboxEvent, PayloadEnvelope, error) {
	payload, err := json.Marshal(event.Data)
	if err != nil {
		return models.OutboxEvent{}, PayloadEnvelope{}, err
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	envelope := PayloadEnvelope{
		Version:    envelopeVersion,
		EventID:    uuid.NewString(),
		OccurredAt: event.OccurredAt,
		Actor:      event.Actor,
		Data:       payload,
	}
	payloadJSON, err := json.Marshal(envelope)
	if err != nil {
		return models.OutboxEvent{}, PayloadEnvelope{}, err
	}
	return models.OutboxEvent{
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       json.RawMessage(payloadJSON),
	}, envelope, nil
}

func eventFields(event DomainEvent, eventID string) map[string]any {
	fields := map[string]any{
		"event_type":     event.EventType,
		"aggregate_id":   event.AggregateID.String(),
		"aggregate_type": event.AggregateType,
	}
	if eventID != "" {
		fields["event_id"] = eventID
	}
	return fields
}
