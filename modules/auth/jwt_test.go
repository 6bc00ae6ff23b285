package auth

import (
	"errors"
	"testing"
	"time"
)

func testJWTConfig() JWTConfig {
	return JWTConfig{
		SecretKey:            "test-secret",
		AccessTokenDuration:  15 * time.Minute,
		RefreshTokenDuration: 24 * time.Hour,
		Issuer:               "task-sync-test",
	}
}

func TestJWTManager_AccessTokenRoundTrip(t *testing.T) {
	manager := NewJWTManager(testJWTConfig())

	token, err := manager.GenerateAccessToken("user-1", "alice@example.com")
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}

	claims, err := manager.ValidateAccessToken(token)
	if err != nil {
		t.Fatalf("ValidateAccessToken() error = %v", err)
	}
	if claims.UserID != "user-1" || claims.Email != "alice@example.com" {
		t.Errorf("claims = %+v, want user-1/alice@example.com", claims)
	}
	if claims.Subject != "user-1" {
		t.Errorf("claims.Subject = %q, want user-1", claims.Subject)
	}
}

func TestJWTManager_TokenKindsAreNotInterchangeable(t *testing.T) {
	manager := NewJWTManager(testJWTConfig())

	access, err := manager.GenerateAccessToken("user-1", "alice@example.com")
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}
	refresh, err := manager.GenerateRefreshToken("user-1", "alice@example.com")
	if err != nil {
		t.Fatalf("GenerateRefreshToken() error = %v", err)
	}

	if _, err := manager.ValidateRefreshToken(access); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("ValidateRefreshToken(access) error = %v, want ErrInvalidToken", err)
	}
	if _, err := manager.ValidateAccessToken(refresh); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("ValidateAccessToken(refresh) error = %v, want ErrInvalidToken", err)
	}
	if _, err := manager.ValidateRefreshToken(refresh); err != nil {
		t.Errorf("ValidateRefreshToken(refresh) error = %v", err)
	}
}

func TestJWTManager_Rejects(t *testing.T) {
	manager := NewJWTManager(testJWTConfig())

	otherSecret := testJWTConfig()
	otherSecret.SecretKey = "another-secret"
	forged, err := NewJWTManager(otherSecret).GenerateAccessToken("user-1", "alice@example.com")
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}

	otherIssuer := testJWTConfig()
	otherIssuer.Issuer = "someone-else"
	foreign, err := NewJWTManager(otherIssuer).GenerateAccessToken("user-1", "alice@example.com")
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}

	tests := []struct {
		name  string
		token string
	}{
		{name: "empty", token: ""},
		{name: "garbage", token: "not.a.token"},
		{name: "truncated", token: "eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9.e30"},
		{name: "wrong secret", token: forged},
		{name: "wrong issuer", token: foreign},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := manager.ValidateAccessToken(tt.token); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("ValidateAccessToken() error = %v, want ErrInvalidToken", err)
			}
		})
	}
}

func TestJWTManager_Expired(t *testing.T) {
	manager := NewJWTManager(testJWTConfig())
	issued := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	manager.now = func() time.Time { return issued }

	token, err := manager.GenerateAccessToken("user-1", "alice@example.com")
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}

	manager.now = func() time.Time { return issued.Add(16 * time.Minute) }
	if _, err := manager.ValidateAccessToken(token); !errors.Is(err, ErrExpiredToken) {
		t.Errorf("ValidateAccessToken() error = %v, want ErrExpiredToken", err)
	}
}

func TestJWTManager_AccessTokenDuration(t *testing.T) {
	manager := NewJWTManager(testJWTConfig())
	if got := manager.AccessTokenDuration(); got != 900 {
		t.Errorf("AccessTokenDuration() = %d, want 900", got)
	}
}
