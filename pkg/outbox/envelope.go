package outbox

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/talentbridge/talentbridge-backend/pkg/enums"
)

// ActorRef identifies who triggered the event. Nil for system actors (cron, rails).
type ActorRef struct {
	UserID uuid.UUID       `json:"userId"`
	Role   enums.ActorRole `json:"role,omitempty"`
}

// PayloadEnvelope is the stable payload structure stored in outbox_events.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}

type actorCtxKey struct{}

// WithActor stores the acting user so events emitted further down pick it up.
func WithActor(ctx context.Context, actor ActorRef) context.Context {
	return context.WithValue(ctx, actorCtxKey{}, actor)
}

// ActorFromContext returns the actor stored by WithActor, or nil.
func ActorFromContext(ctx context.Context) *ActorRef {
	if ctx == nil {
		return nil
	}
	if actor, ok := ctx.Value(actorCtxKey{}).(ActorRef); ok {
		return &actor
	}
	return nil
}
