package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func newTestManager() *Manager {
	return NewManager("unit-test-secret", 15*time.Minute, 7*24*time.Hour)
}

func TestAccessTokenRoundTrip(t *testing.T) {
	m := newTestManager()

	token, err := m.GenerateAccessToken("user-1", "budi@example.com", "PATIENT")
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}

	claims, err := m.VerifyAccessToken(token)
	if err != nil {
		t.Fatalf("VerifyAccessToken: %v", err)
	}

	if claims.UserID != "user-1" || claims.Email != "budi@example.com" || claims.Role != "PATIENT" {
		t.Fatalf("claims mismatch: %+v", claims)
	}
}

func TestTokenTypesAreNotInterchangeable(t *testing.T) {
	m := newTestManager()

	access, err := m.GenerateAccessToken("user-1", "budi@example.com", "PATIENT")
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}

	refresh, _, _, err := m.GenerateRefreshToken("user-1", "budi@example.com", "PATIENT")
	if err != nil {
		t.Fatalf("GenerateRefreshToken: %v", err)
	}

	if _, err := m.VerifyRefreshToken(access); err == nil {
		t.Fatalf("access token accepted as refresh token")
	}

	if _, err := m.VerifyAccessToken(refresh); err == nil {
		t.Fatalf("refresh token accepted as access token")
	}
}

func TestVerifyAccessToken_ForeignIssuer(t *testing.T) {
	m := newTestManager()

	// Same secret, different issuer: simulates a token minted by another
	// service that shares the signing key.
	foreign := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID:    "user-1",
		TokenType: "access",
		JTI:       "jti-1",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "some-other-service",
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
			Subject:   "user-1",
		},
	})

	signed, err := foreign.SignedString([]byte("unit-test-secret"))
	if err != nil {
		t.Fatalf("SignedString: %v", err)
	}

	if _, err := m.VerifyAccessToken(signed); err == nil {
		t.Fatalf("token from foreign issuer verified")
	}
}

func TestVerifyAccessToken_WrongSecret(t *testing.T) {
	token, err := newTestManager().GenerateAccessToken("user-1", "budi@example.com", "PATIENT")
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}

	other := NewManager("different-secret", 15*time.Minute, 7*24*time.Hour)

	if _, err := other.VerifyAccessToken(token); err == nil {
		t.Fatalf("token verified with wrong secret")
	}
}

func TestVerifyAccessToken_Expired(t *testing.T) {
	m := NewManager("unit-test-secret", -time.Minute, 7*24*time.Hour)

	token, err := m.GenerateAccessToken("user-1", "budi@example.com", "PATIENT")
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}

	if _, err := m.VerifyAccessToken(token); err == nil {
		t.Fatalf("expired token verified")
	}
}

func TestHashRefreshToken(t *testing.T) {
	m := newTestManager()

	raw, _, _, err := m.GenerateRefreshToken("user-1", "budi@example.com", "PATIENT")
	if err != nil {
		t.Fatalf("GenerateRefreshToken: %v", err)
	}

	h1 := m.HashRefreshToken(raw)
	h2 := m.HashRefreshToken(raw)

	if h1 != h2 {
		t.Fatalf("hash not deterministic")
	}

	if h1 == raw {
		t.Fatalf("hash equals raw token")
	}

	// different pepper, different hash
	other := NewManager("different-secret", time.Minute, time.Hour)

	if other.HashRefreshToken(raw) == h1 {
		t.Fatalf("hash ignores the secret")
	}
}
