package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/talentbridge/talentbridge-backend/pkg/redis"
)

// Manager records which outbox events a stage already handled, in Redis with a TTL.
// The publisher checks before sending and marks after a confirmed send, so a
// crash between the send and the database update does not publish twice.
// Keys follow the `tb:idempotency:evt:processed:<stage>:<event_id>` pattern.
type Manager struct {
	store redis.IdempotencyStore
	ttl   time.Duration
}

// NewManager builds an idempotency guard that marks events as processed for the given TTL.
func NewManager(store redis.IdempotencyStore, ttl time.Duration) (*Manager, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	return &Manager{
		store: store,
		ttl:   ttl,
	}, nil
}

// WasProcessed reports whether the event carries a processed mark for stage.
func (m *Manager) WasProcessed(ctx context.Context, stage string, eventID uuid.UUID) (bool, error) {
	key, err := m.processedKey(stage, eventID)
	if err != nil {
		return false, err
	}
	if _, err := m.store.Get(ctx, key); err != nil {
		if errors.Is(err, goredis.Nil) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// MarkProcessed sets the processed mark. Returns false when the mark already existed.
func (m *Manager) MarkProcessed(ctx context.Context, stage string, eventID uuid.UUID) (bool, error) {
	key, err := m.processedKey(stage, eventID)
	if err != nil {
		return false, err
	}
	return m.store.SetNX(ctx, key, "1", m.ttl)
}

func (m *Manager) processedKey(stage string, eventID uuid.UUID) (string, error) {
	if stage == "" {
		return "", errors.New("stage name is required")
	}
	if eventID == uuid.Nil {
		return "", errors.New("event id is required")
	}
	scope := fmt.Sprintf("evt:processed:%s", stage)
	return m.store.IdempotencyKey(scope, eventID.String()), nil
}
