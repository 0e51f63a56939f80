package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/techmax/helpdesk-service/internal/config"
	"github.com/techmax/helpdesk-service/internal/domain"
	"github.com/techmax/helpdesk-service/internal/repository"
	apperrors "github.com/techmax/helpdesk-service/pkg/util"
)

type fakeResetRepo struct {
	mu     sync.Mutex
	tokens map[string]repository.PasswordResetToken
}

func newFakeResetRepo() *fakeResetRepo {
	return &fakeResetRepo{tokens: make(map[string]repository.PasswordResetToken)}
}

func (r *fakeResetRepo) Create(_ context.Context, token *repository.PasswordResetToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[token.Token] = *token
	return nil
}

func (r *fakeResetRepo) Consume(_ context.Context, tokenStr string) (*repository.PasswordResetToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	token, ok := r.tokens[tokenStr]
	if !ok || time.Now().After(token.ExpiresAt) {
		return nil, repository.ErrResetTokenInvalid
	}
	delete(r.tokens, tokenStr)
	return &token, nil
}

func newAuthFixture(t *testing.T) (*AuthService, *fakeUserRepo, *fakeResetRepo) {
	t.Helper()
	users := newFakeUserRepo()
	roles := newFakeRoleRepo()
	for _, name := range []domain.RoleName{domain.RoleCustomer, domain.RoleAgent, domain.RoleSupervisor, domain.RoleAdmin} {
		if err := roles.Create(context.Background(), &domain.Role{Name: name}); err != nil {
			t.Fatalf("seed role %s: %v", name, err)
		}
	}
	resets := newFakeResetRepo()
	cfg := config.Config{
		Auth: config.AuthConfig{
			JWTSecret:               "test-secret",
			AccessTokenTTLMinutes:   15,
			PasswordResetTTLMinutes: 30,
			BcryptCost:              4,
		},
	}
	svc := NewAuthService(cfg, AuthDependencies{
		UserRepo:          users,
		RoleRepo:          roles,
		PasswordResetRepo: resets,
	})
	return svc, users, resets
}

func TestRegisterAssignsCustomerRole(t *testing.T) {
	svc, _, _ := newAuthFixture(t)

	user, token, _, err := svc.Register(context.Background(), RegisterInput{
		Username: "jane.doe",
		Email:    "Jane.Doe@TechMax.com",
		FullName: "Jane Doe",
		Password: "sup3rsecret",
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if user.RoleName() != domain.RoleCustomer {
		t.Errorf("RoleName = %q, want customer; registration never grants staff roles", user.RoleName())
	}
	if user.Email != "jane.doe@techmax.com" {
		t.Errorf("Email = %q, want lowercased", user.Email)
	}
	if token == "" {
		t.Error("Register() returned empty token")
	}

	// Duplicate registrations conflict.
	_, _, _, err = svc.Register(context.Background(), RegisterInput{
		Username: "jane.doe",
		Email:    "other@techmax.com",
		FullName: "Jane Doe",
		Password: "sup3rsecret",
	})
	if !apperrors.IsCode(err, "CONFLICT") {
		t.Errorf("Register(duplicate username) = %v, want CONFLICT", err)
	}
}

func TestLogin(t *testing.T) {
	svc, users, _ := newAuthFixture(t)
	if _, _, _, err := svc.Register(context.Background(), RegisterInput{
		Username: "sam", Email: "sam@techmax.com", FullName: "Sam", Password: "pass-word-1",
	}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if _, _, _, err := svc.Login(context.Background(), "sam", "pass-word-1"); err != nil {
		t.Errorf("Login(username) error = %v", err)
	}
	if _, _, _, err := svc.Login(context.Background(), "sam@techmax.com", "pass-word-1"); err != nil {
		t.Errorf("Login(email) error = %v", err)
	}
	if _, _, _, err := svc.Login(context.Background(), "sam", "wrong"); !apperrors.IsCode(err, "UNAUTHENTICATED") {
		t.Errorf("Login(bad password) = %v, want UNAUTHENTICATED", err)
	}
	if _, _, _, err := svc.Login(context.Background(), "nobody", "pass"); !apperrors.IsCode(err, "UNAUTHENTICATED") {
		t.Errorf("Login(unknown) = %v, want UNAUTHENTICATED", err)
	}

	// Deactivated accounts authenticate but are refused.
	user, _ := users.GetByUsernameOrEmail(context.Background(), "sam")
	user.Active = false
	if err := users.Update(context.Background(), user); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if _, _, _, err := svc.Login(context.Background(), "sam", "pass-word-1"); !apperrors.IsCode(err, "FORBIDDEN") {
		t.Errorf("Login(inactive) = %v, want FORBIDDEN", err)
	}
}

func TestPasswordResetFlow(t *testing.T) {
	svc, _, _ := newAuthFixture(t)
	if _, _, _, err := svc.Register(context.Background(), RegisterInput{
		Username: "lee", Email: "lee@techmax.com", FullName: "Lee", Password: "original-pw",
	}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	token, err := svc.RequestPasswordReset(context.Background(), "lee@techmax.com")
	if err != nil {
		t.Fatalf("RequestPasswordReset() error = %v", err)
	}

	if err := svc.ConfirmPasswordReset(context.Background(), token.Token, "brand-new-pw"); err != nil {
		t.Fatalf("ConfirmPasswordReset() error = %v", err)
	}
	if _, _, _, err := svc.Login(context.Background(), "lee", "brand-new-pw"); err != nil {
		t.Errorf("Login(new password) error = %v", err)
	}
	if _, _, _, err := svc.Login(context.Background(), "lee", "original-pw"); !apperrors.IsCode(err, "UNAUTHENTICATED") {
		t.Errorf("Login(old password) = %v, want UNAUTHENTICATED", err)
	}

	// Tokens are single use.
	if err := svc.ConfirmPasswordReset(context.Background(), token.Token, "another-pw"); !apperrors.IsCode(err, "VALIDATION_FAILED") {
		t.Errorf("ConfirmPasswordReset(reused) = %v, want VALIDATION_FAILED", err)
	}
	if err := svc.ConfirmPasswordReset(context.Background(), "bogus-token", "pw"); !apperrors.IsCode(err, "VALIDATION_FAILED") {
		t.Errorf("ConfirmPasswordReset(unknown) = %v, want VALIDATION_FAILED", err)
	}
}

func TestChangePassword(t *testing.T) {
	svc, _, _ := newAuthFixture(t)
	user, _, _, err := svc.Register(context.Background(), RegisterInput{
		Username: "kim", Email: "kim@techmax.com", FullName: "Kim", Password: "first-pw-123",
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if err := svc.ChangePassword(context.Background(), user.ID, "wrong", "next-pw-123"); !apperrors.IsCode(err, "UNAUTHENTICATED") {
		t.Errorf("ChangePassword(wrong current) = %v, want UNAUTHENTICATED", err)
	}
	if err := svc.ChangePassword(context.Background(), user.ID, "first-pw-123", "next-pw-123"); err != nil {
		t.Fatalf("ChangePassword() error = %v", err)
	}
	if _, _, _, err := svc.Login(context.Background(), "kim", "next-pw-123"); err != nil {
		t.Errorf("Login(new password) error = %v", err)
	}
}
