package auth

import (
	"testing"
	"time"

	"github.com/techmax/helpdesk-service/internal/domain"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("test-secret", 15)

	token, expiresAt, err := tm.GenerateToken("user-42", domain.RoleAgent)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	if token == "" {
		t.Fatal("GenerateToken() returned empty token")
	}
	if time.Until(expiresAt) <= 0 {
		t.Errorf("expiresAt = %v, want in the future", expiresAt)
	}

	claims, err := tm.ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}
	if claims.UserID != "user-42" {
		t.Errorf("UserID = %q, want user-42", claims.UserID)
	}
	if claims.Role != domain.RoleAgent {
		t.Errorf("Role = %q, want agent", claims.Role)
	}
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	tm := NewTokenManager("secret-a", 15)
	other := NewTokenManager("secret-b", 15)

	token, _, err := tm.GenerateToken("user-1", domain.RoleCustomer)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	if _, err := other.ParseToken(token); err == nil {
		t.Error("ParseToken() with wrong secret should fail")
	}
}

func TestParseTokenRejectsGarbage(t *testing.T) {
	tm := NewTokenManager("secret", 15)
	if _, err := tm.ParseToken("not-a-jwt"); err == nil {
		t.Error("ParseToken(garbage) should fail")
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("hunter2hunter2", 4)
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if err := ComparePassword(hash, "hunter2hunter2"); err != nil {
		t.Errorf("ComparePassword(correct) error = %v", err)
	}
	if err := ComparePassword(hash, "wrong-password"); err == nil {
		t.Error("ComparePassword(wrong) should fail")
	}
}
