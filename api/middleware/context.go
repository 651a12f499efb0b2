package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/talentbridge/talentbridge-backend/internal/ledger"
	"github.com/talentbridge/talentbridge-backend/pkg/enums"
)

type contextKey string

const (
	ctxUserID contextKey = "user_id"
	ctxRole   contextKey = "actor_role"
)

func UserIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxUserID).(string); ok {
		return v
	}
	return ""
}

func RoleFromContext(ctx context.Context) enums.ActorRole {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxRole).(enums.ActorRole); ok {
		return v
	}
	return ""
}

// OwnerFromContext maps the authenticated consultant or sales agent onto the
// ledger owner their earnings live under.
func OwnerFromContext(ctx context.Context) (ledger.Owner, bool) {
	ownerType, ok := RoleFromContext(ctx).OwnerType()
	if !ok || !ownerType.Earns() {
		return ledger.Owner{}, false
	}
	id, err := uuid.Parse(UserIDFromContext(ctx))
	if err != nil {
		return ledger.Owner{}, false
	}
	return ledger.Owner{Type: ownerType, ID: id}, true
}

// WithIdentity injects the caller into the context. Tests use it to skip token parsing.
func WithIdentity(ctx context.Context, userID string, role enums.ActorRole) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxUserID, userID)
	return context.WithValue(ctx, ctxRole, role)
}
