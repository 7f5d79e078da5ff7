package services_test

import (
	"testing"

	"wager-escrow-backend/internal/config"
	"wager-escrow-backend/internal/services"
)

func newTestJWT(secret string) *services.JWTService {
	return services.NewJWTService(&config.Config{
		Auth: config.AuthConfig{JWTSecret: secret, TokenTTL: 3600},
	})
}

func TestJWTRoundTrip(t *testing.T) {
	svc := newTestJWT("test-secret")

	token, err := svc.GenerateToken(playerA.Hex(), services.RolePlatform)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("validate token: %v", err)
	}
	if claims.Address != playerA.Hex() {
		t.Errorf("address = %s, want %s", claims.Address, playerA.Hex())
	}
	if claims.Role != services.RolePlatform {
		t.Errorf("role = %s, want %s", claims.Role, services.RolePlatform)
	}
}

func TestJWTWrongSecret(t *testing.T) {
	token, err := newTestJWT("secret-one").GenerateToken(playerA.Hex(), services.RoleUser)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	if _, err := newTestJWT("secret-two").ValidateToken(token); err == nil {
		t.Error("token signed with a different secret accepted")
	}
}

func TestJWTGarbage(t *testing.T) {
	if _, err := newTestJWT("test-secret").ValidateToken("not-a-token"); err == nil {
		t.Error("malformed token accepted")
	}
}
