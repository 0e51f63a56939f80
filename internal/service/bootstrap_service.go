package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/techmax/helpdesk-service/internal/auth"
	"github.com/techmax/helpdesk-service/internal/authz"
	"github.com/techmax/helpdesk-service/internal/config"
	"github.com/techmax/helpdesk-service/internal/domain"
	"github.com/techmax/helpdesk-service/internal/repository"
)

var roleDescriptions = map[domain.RoleName]string{
	domain.RoleCustomer:   "End users who open and follow their own tickets",
	domain.RoleAgent:      "Staff who work tickets and reply to customers",
	domain.RoleSupervisor: "Team management: assignment, escalations, oversight",
	domain.RoleAdmin:      "Full system and user administration",
}

// BootstrapService runs one-time startup initialization: seeding the role
// catalog and, only while the store holds zero identities, creating the
// first admin account. Ordinary registration never grants admin.
type BootstrapService struct {
	users      repository.UserRepository
	roles      repository.RoleRepository
	registry   *authz.Registry
	bcryptCost int
	logger     *zap.Logger
}

// NewBootstrapService constructs the service.
func NewBootstrapService(users repository.UserRepository, roles repository.RoleRepository, registry *authz.Registry, bcryptCost int, logger *zap.Logger) *BootstrapService {
	return &BootstrapService{
		users:      users,
		roles:      roles,
		registry:   registry,
		bcryptCost: bcryptCost,
		logger:     logger,
	}
}

// SeedRoles inserts the four canonical roles with their registry permission
// sets. Existing roles are left untouched.
func (s *BootstrapService) SeedRoles(ctx context.Context) error {
	for _, name := range []domain.RoleName{domain.RoleCustomer, domain.RoleAgent, domain.RoleSupervisor, domain.RoleAdmin} {
		role := &domain.Role{
			Name:        name,
			Description: roleDescriptions[name],
			Permissions: s.registry.Resolve(name),
		}
		if err := s.roles.Create(ctx, role); err != nil {
			return err
		}
	}
	s.logger.Info("role catalog seeded")
	return nil
}

// EnsureFirstAdmin creates the configured admin account iff no identity
// exists yet. The zero-identities gate keeps this from ever escalating an
// ordinary registrant.
func (s *BootstrapService) EnsureFirstAdmin(ctx context.Context, cfg config.BootstrapConfig) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		s.logger.Info("bootstrap admin not configured; skipping")
		return nil
	}
	count, err := s.users.Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	adminRole, err := s.roles.GetByName(ctx, domain.RoleAdmin)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return errors.New("admin role missing; seed roles before bootstrapping")
		}
		return err
	}
	hash, err := auth.HashPassword(cfg.AdminPassword, s.bcryptCost)
	if err != nil {
		return err
	}
	admin := &domain.User{
		Username:     cfg.AdminUsername,
		Email:        cfg.AdminEmail,
		FullName:     "System Administrator",
		PasswordHash: hash,
		RoleID:       &adminRole.ID,
		Role:         adminRole,
		Status:       domain.UserStatusActive,
		Active:       true,
	}
	if err := s.users.Create(ctx, admin); err != nil {
		return err
	}
	s.logger.Info("bootstrap admin created", zap.String("email", cfg.AdminEmail))
	return nil
}
