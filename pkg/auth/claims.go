package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/talentbridge/talentbridge-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID uuid.UUID
	Role   enums.ActorRole
	JTI    string
}

// AccessTokenClaims is the verified token. The caller id travels in the
// standard sub claim and is lifted into UserID after parsing.
type AccessTokenClaims struct {
	UserID uuid.UUID       `json:"-"`
	Role   enums.ActorRole `json:"role"`
	jwt.RegisteredClaims
}
