package registry

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/talentbridge/talentbridge-backend/pkg/config"
	"github.com/talentbridge/talentbridge-backend/pkg/db/models"
	"github.com/talentbridge/talentbridge-backend/pkg/enums"
	"github.com/talentbridge/talentbridge-backend/pkg/outbox"
	"github.com/talentbridge/talentbridge-backend/pkg/outbox/payloads"
)

// EventDescriptor links an event type to its aggregate/topic/payload schema.
type EventDescriptor struct {
	EventType      enums.OutboxEventType
	AggregateType  enums.OutboxAggregateType
	Topic          string
	PayloadFactory func() interface{}
}

// ResolvedEvent is the result of decoding an outbox row.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    interface{}
}

// EventRegistry maps each supported event type to its descriptor.
type EventRegistry struct {
	entries map[enums.OutboxEventType]EventDescriptor
}

// NonRetryableError signals the dispatcher should stop retrying a row.
type NonRetryableError struct {
	Err error
}

func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

func (e NonRetryableError) Unwrap() error {
	return e.Err
}

// NewNonRetryableError wraps an error to signal no retries.
func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}

var commissionEvents = []enums.OutboxEventType{
	enums.EventCommissionAwarded,
	enums.EventCommissionRequested,
	enums.EventCommissionConfirmed,
	enums.EventCommissionPaid,
	enums.EventCommissionDisputed,
	enums.EventCommissionDisputeResolved,
	enums.EventCommissionClawedBack,
	enums.EventCommissionCancelled,
}

var withdrawalEvents = []enums.OutboxEventType{
	enums.EventWithdrawalRequested,
	enums.EventWithdrawalCancelled,
	enums.EventWithdrawalApproved,
	enums.EventWithdrawalRejected,
	enums.EventWithdrawalProcessing,
	enums.EventWithdrawalCompleted,
}

// NewEventRegistry builds the registry with the configured topic names.
// Commission and withdrawal events go to the earnings topic; reconciliation
// alerts go to the ledger topic.
func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	if cfg.EarningsTopic == "" {
		return nil, fmt.Errorf("earnings topic is required")
	}
	if cfg.LedgerTopic == "" {
		return nil, fmt.Errorf("ledger topic is required")
	}

	reg := &EventRegistry{entries: make(map[enums.OutboxEventType]EventDescriptor)}
	for _, eventType := range commissionEvents {
		reg.register(EventDescriptor{
			EventType:      eventType,
			AggregateType:  enums.AggregateCommission,
			Topic:          cfg.EarningsTopic,
			PayloadFactory: func() interface{} { return &payloads.CommissionEvent{} },
		})
	}
	for _, eventType := range withdrawalEvents {
		reg.register(EventDescriptor{
			EventType:      eventType,
			AggregateType:  enums.AggregateWithdrawal,
			Topic:          cfg.EarningsTopic,
			PayloadFactory: func() interface{} { return &payloads.WithdrawalEvent{} },
		})
	}
	reg.register(EventDescriptor{
		EventType:      enums.EventLedgerDriftDetected,
		AggregateType:  enums.AggregateVirtualAccount,
		Topic:          cfg.LedgerTopic,
		PayloadFactory: func() interface{} { return &payloads.LedgerDriftEvent{} },
	})

	return reg, nil
}

func (r *EventRegistry) register(desc EventDescriptor) {
	if desc.PayloadFactory == nil {
		return
	}
	r.entries[desc.EventType] = desc
}

// Topics lists every topic the registry routes to, deduplicated.
func (r *EventRegistry) Topics() []string {
	seen := map[string]struct{}{}
	var topics []string
	for _, desc := range r.entries {
		if _, ok := seen[desc.Topic]; ok {
			continue
		}
		seen[desc.Topic] = struct{}{}
		topics = append(topics, desc.Topic)
	}
	return topics
}

// Resolve validates the row and decodes its typed payload.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.entries[event.EventType]
	if !ok {
		return nil, NewNonRetryableError(fmt.Errorf("unsupported event type %s", event.EventType))
	}
	if desc.AggregateType != event.AggregateType {
		return nil, NewNonRetryableError(fmt.Errorf("aggregate mismatch: expected %s got %s", desc.AggregateType, event.AggregateType))
	}
	if event.AggregateID == uuid.Nil {
		return nil, NewNonRetryableError(fmt.Errorf("missing aggregate_id"))
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(event.Payload, &envelope); err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("decode envelope: %w", err))
	}

	trimmed := bytes.TrimSpace(envelope.Data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, NewNonRetryableError(fmt.Errorf("payload missing for %s", event.EventType))
	}

	payload := desc.PayloadFactory()
	if err := json.Unmarshal(envelope.Data, payload); err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("decode %s payload: %w", event.EventType, err))
	}

	return &ResolvedEvent{
		Descriptor: desc,
		Envelope:   envelope,
		Payload:    payload,
	}, nil
}
