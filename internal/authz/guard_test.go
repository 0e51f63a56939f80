package authz

import (
	"testing"

	"github.com/techmax/helpdesk-service/internal/domain"
	apperrors "github.com/techmax/helpdesk-service/pkg/util"
)

func userWithRole(name domain.RoleName, active bool) *domain.User {
	return &domain.User{
		ID:     "user-" + string(name),
		Active: active,
		Role:   &domain.Role{Name: name},
	}
}

func TestGuardHasRank(t *testing.T) {
	guard := NewGuard(NewDefaultRegistry())

	tests := []struct {
		name    string
		user    *domain.User
		minimum domain.RoleName
		want    bool
	}{
		{"nil user", nil, domain.RoleCustomer, false},
		{"customer at customer floor", userWithRole(domain.RoleCustomer, true), domain.RoleCustomer, true},
		{"customer at agent floor", userWithRole(domain.RoleCustomer, true), domain.RoleAgent, false},
		{"agent at agent floor", userWithRole(domain.RoleAgent, true), domain.RoleAgent, true},
		{"agent at supervisor floor", userWithRole(domain.RoleAgent, true), domain.RoleSupervisor, false},
		{"supervisor at agent floor", userWithRole(domain.RoleSupervisor, true), domain.RoleAgent, true},
		{"admin at supervisor floor", userWithRole(domain.RoleAdmin, true), domain.RoleSupervisor, true},
		{"inactive admin", userWithRole(domain.RoleAdmin, false), domain.RoleCustomer, false},
		{"no role at customer floor", &domain.User{ID: "u", Active: true}, domain.RoleCustomer, false},
		{"unknown role name", &domain.User{ID: "u", Active: true, Role: &domain.Role{Name: "manager"}}, domain.RoleCustomer, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := guard.HasRank(tt.user, tt.minimum); got != tt.want {
				t.Errorf("HasRank() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGuardHasPermission(t *testing.T) {
	guard := NewGuard(NewDefaultRegistry())

	tests := []struct {
		name       string
		user       *domain.User
		permission string
		want       bool
	}{
		{"admin delete tickets", userWithRole(domain.RoleAdmin, true), PermTicketsDeleteAny, true},
		{"supervisor delete tickets", userWithRole(domain.RoleSupervisor, true), PermTicketsDeleteAny, false},
		{"agent escalate", userWithRole(domain.RoleAgent, true), PermTicketsEscalate, true},
		{"customer escalate", userWithRole(domain.RoleCustomer, true), PermTicketsEscalate, false},
		{"admin manage roles", userWithRole(domain.RoleAdmin, true), PermRolesManage, true},
		{"inactive admin manage roles", userWithRole(domain.RoleAdmin, false), PermRolesManage, false},
		{"no role", &domain.User{ID: "u", Active: true}, PermTicketsCreateOwn, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := guard.HasPermission(tt.user, tt.permission); got != tt.want {
				t.Errorf("HasPermission(%q) = %v, want %v", tt.permission, got, tt.want)
			}
		})
	}
}

func TestGuardRequireActive(t *testing.T) {
	guard := NewGuard(NewDefaultRegistry())

	if err := guard.RequireActive(nil); !apperrors.IsCode(err, "UNAUTHENTICATED") {
		t.Errorf("RequireActive(nil) = %v, want UNAUTHENTICATED", err)
	}
	if err := guard.RequireActive(userWithRole(domain.RoleAgent, false)); !apperrors.IsCode(err, "FORBIDDEN") {
		t.Errorf("RequireActive(inactive) = %v, want FORBIDDEN", err)
	}
	if err := guard.RequireActive(userWithRole(domain.RoleCustomer, true)); err != nil {
		t.Errorf("RequireActive(active) = %v, want nil", err)
	}
}

func TestGuardRequireRank(t *testing.T) {
	guard := NewGuard(NewDefaultRegistry())

	if err := guard.RequireRank(userWithRole(domain.RoleCustomer, true), domain.RoleAgent); !apperrors.IsCode(err, "FORBIDDEN") {
		t.Errorf("RequireRank(customer, agent) = %v, want FORBIDDEN", err)
	}
	if err := guard.RequireRank(userWithRole(domain.RoleSupervisor, true), domain.RoleAgent); err != nil {
		t.Errorf("RequireRank(supervisor, agent) = %v, want nil", err)
	}
	if err := guard.RequireRank(nil, domain.RoleCustomer); !apperrors.IsCode(err, "UNAUTHENTICATED") {
		t.Errorf("RequireRank(nil) = %v, want UNAUTHENTICATED", err)
	}
}
