package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/talentbridge/talentbridge-backend/pkg/config"
	"github.com/talentbridge/talentbridge-backend/pkg/enums"
)

func testJWTConfig(minutes int) config.JWTConfig {
	return config.JWTConfig{
		Secret:            "secret",
		Issuer:            "talentbridge",
		ExpirationMinutes: minutes,
	}
}

func TestMintAndParseAccessToken(t *testing.T) {
	cfg := testJWTConfig(30)
	now := time.Now().UTC()
	userID := uuid.New()

	token, err := MintAccessToken(cfg, now, AccessTokenPayload{
		UserID: userID,
		Role:   enums.ActorRoleSalesAgent,
		JTI:    "fixed-jti",
	})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	claims, err := ParseAccessToken(cfg, token)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}

	if claims.UserID != userID {
		t.Fatalf("expected user_id %s, got %s", userID, claims.UserID)
	}
	if claims.Role != enums.ActorRoleSalesAgent {
		t.Fatalf("unexpected role %s", claims.Role)
	}
	if claims.ID != "fixed-jti" {
		t.Fatalf("expected jti to be preserved, got %q", claims.ID)
	}
	if claims.Issuer != cfg.Issuer {
		t.Fatalf("expected issuer %s, got %s", cfg.Issuer, claims.Issuer)
	}

	exp := now.Add(time.Duration(cfg.ExpirationMinutes) * time.Minute)
	diff := claims.ExpiresAt.Sub(exp)
	if diff < 0 {
		diff = -diff
	}
	if diff >= time.Second {
		t.Fatalf("expected exp roughly %v, got %v (diff %v)", exp.UTC(), claims.ExpiresAt.UTC(), diff)
	}
}

func TestMintAccessTokenGeneratesJTI(t *testing.T) {
	cfg := testJWTConfig(5)
	token, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{UserID: uuid.New(), Role: enums.ActorRoleAdmin})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}
	claims, err := ParseAccessToken(cfg, token)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if _, err := uuid.Parse(claims.ID); err != nil {
		t.Fatalf("expected uuid jti, got %q", claims.ID)
	}
}

func TestParseAccessTokenInvalidSignature(t *testing.T) {
	cfg := testJWTConfig(10)
	token, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{
		UserID: uuid.New(),
		Role:   enums.ActorRoleConsultant,
	})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	if _, err := ParseAccessToken(cfg, token+"x"); err == nil {
		t.Fatal("expected invalid signature error")
	}

	other := cfg
	other.Issuer = "someone-else"
	if _, err := ParseAccessToken(other, token); err == nil {
		t.Fatal("expected issuer mismatch error")
	}
}

func TestParseAccessTokenExpired(t *testing.T) {
	cfg := testJWTConfig(15)
	token, err := MintAccessToken(cfg, time.Now().Add(-time.Hour), AccessTokenPayload{
		UserID: uuid.New(),
		Role:   enums.ActorRoleConsultant,
	})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	_, err = ParseAccessToken(cfg, token)
	if err == nil {
		t.Fatal("expected expiration error")
	}
	if !strings.Contains(err.Error(), "expired") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestMintAccessTokenValidatesPayload(t *testing.T) {
	cfg := testJWTConfig(5)
	now := time.Now()

	if _, err := MintAccessToken(cfg, now, AccessTokenPayload{UserID: uuid.New(), Role: ""}); !errors.Is(err, ErrInvalidRole) {
		t.Fatalf("expected invalid role error, got %v", err)
	}
	if _, err := MintAccessToken(cfg, now, AccessTokenPayload{Role: enums.ActorRoleAdmin}); !errors.Is(err, ErrInvalidSub) {
		t.Fatalf("expected missing user error, got %v", err)
	}
	if _, err := MintAccessToken(testJWTConfig(0), now, AccessTokenPayload{UserID: uuid.New(), Role: enums.ActorRoleAdmin}); !errors.Is(err, ErrInvalidTTL) {
		t.Fatalf("expected ttl error, got %v", err)
	}
}

func TestParseAccessTokenCarriesUserInSubject(t *testing.T) {
	cfg := testJWTConfig(5)
	userID := uuid.New()
	token, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{UserID: userID, Role: enums.ActorRoleConsultant})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}
	claims, err := ParseAccessToken(cfg, token)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.Subject != userID.String() || claims.UserID != userID {
		t.Fatalf("expected subject %s, got %q / %s", userID, claims.Subject, claims.UserID)
	}
}

func TestParseAccessTokenRejectsForeignClaims(t *testing.T) {
	cfg := testJWTConfig(5)
	now := time.Now()
	sign := func(claims jwt.Claims) string {
		t.Helper()
		signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.Secret))
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		return signed
	}
	registered := func(sub string) jwt.RegisteredClaims {
		return jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			Subject:   sub,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
		}
	}

	if _, err := ParseAccessToken(cfg, sign(AccessTokenClaims{Role: enums.ActorRoleAdmin, RegisteredClaims: registered("not-a-uuid")})); !errors.Is(err, ErrInvalidSub) {
		t.Fatalf("expected subject error, got %v", err)
	}
	if _, err := ParseAccessToken(cfg, sign(AccessTokenClaims{Role: "superuser", RegisteredClaims: registered(uuid.NewString())})); !errors.Is(err, ErrInvalidRole) {
		t.Fatalf("expected role error, got %v", err)
	}

	noExpiry := registered(uuid.NewString())
	noExpiry.ExpiresAt = nil
	if _, err := ParseAccessToken(cfg, sign(AccessTokenClaims{Role: enums.ActorRoleAdmin, RegisteredClaims: noExpiry})); err == nil {
		t.Fatal("expected token without exp to be rejected")
	}
}

func TestParseAccessTokenRejectsOtherAlgorithms(t *testing.T) {
	cfg := testJWTConfig(5)
	now := time.Now()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, AccessTokenClaims{
		Role: enums.ActorRoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			Subject:   uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
		},
	}).SignedString([]byte(cfg.Secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := ParseAccessToken(cfg, token); err == nil || !strings.Contains(err.Error(), "signing method") {
		t.Fatalf("expected signing method error, got %v", err)
	}
}
