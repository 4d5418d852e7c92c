package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/prosupplyhq/prosupply-backend/pkg/config"
	"github.com/prosupplyhq/prosupply-backend/pkg/enums"
)

func TestMintAndParseAccessToken(t *testing.T) {
	cfg := config.JWTConfig{
		Secret:            "secret",
		Issuer:            "prosupply",
		ExpirationMinutes: 30,
	}
	now := time.Now().UTC()
	userID := uuid.New()

	payload := AccessTokenPayload{
		UserID: userID,
		Role:   enums.UserRolePurchaser,
	}

	token, err := MintAccessToken(cfg, now, payload)
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
	if claims.Role != enums.UserRolePurchaser {
		t.Fatalf("unexpected role %s", claims.Role)
	}
	if claims.ID == "" {
		t.Fatal("expected a generated jti")
	}

	// RegisteredClaims is embedded, so access fields directly.
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

func TestMintAccessTokenKeepsProvidedJTI(t *testing.T) {
	cfg := config.JWTConfig{
		Secret:            "secret",
		Issuer:            "prosupply",
		ExpirationMinutes: 5,
	}
	payload := AccessTokenPayload{
		UserID: uuid.New(),
		Role:   enums.UserRoleSupplier,
		JTI:    "fixed-access-id",
	}

	token, err := MintAccessToken(cfg, time.Now(), payload)
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}
	claims, err := ParseAccessToken(cfg, token)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.ID != "fixed-access-id" {
		t.Fatalf("expected jti preserved, got %q", claims.ID)
	}
}

func TestParseAccessTokenInvalidSignature(t *testing.T) {
	cfg := config.JWTConfig{
		Secret:            "secret",
		Issuer:            "prosupply",
		ExpirationMinutes: 10,
	}
	payload := AccessTokenPayload{
		UserID: uuid.New(),
		Role:   enums.UserRoleAdmin,
	}

	token, err := MintAccessToken(cfg, time.Now(), payload)
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	if _, err = ParseAccessToken(cfg, token+"x"); err == nil {
		t.Fatal("expected invalid signature error")
	}
}

func TestParseAccessTokenExpired(t *testing.T) {
	cfg := config.JWTConfig{
		Secret:            "secret",
		Issuer:            "prosupply",
		ExpirationMinutes: 15,
	}
	now := time.Now().Add(-time.Hour)
	payload := AccessTokenPayload{
		UserID: uuid.New(),
		Role:   enums.UserRolePurchaser,
	}

	token, err := MintAccessToken(cfg, now, payload)
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

	claims, err := ParseAccessTokenAllowExpired(cfg, token)
	if err != nil {
		t.Fatalf("expected expired token to still parse: %v", err)
	}
	if claims.UserID != payload.UserID {
		t.Fatalf("expected user_id %s, got %s", payload.UserID, claims.UserID)
	}
}

func TestMintAccessTokenInvalidRole(t *testing.T) {
	cfg := config.JWTConfig{
		Secret:            "secret",
		Issuer:            "prosupply",
		ExpirationMinutes: 5,
	}
	payload := AccessTokenPayload{
		UserID: uuid.New(),
		Role:   "",
	}

	if _, err := MintAccessToken(cfg, time.Now(), payload); err == nil {
		t.Fatal("expected invalid role error")
	}
}
