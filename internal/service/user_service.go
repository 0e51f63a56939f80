package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/techmax/helpdesk-service/internal/auth"
	"github.com/techmax/helpdesk-service/internal/authz"
	"github.com/techmax/helpdesk-service/internal/domain"
	"github.com/techmax/helpdesk-service/internal/events"
	"github.com/techmax/helpdesk-service/internal/repository"
	apperrors "github.com/techmax/helpdesk-service/pkg/util"
)

// foreignKeyViolation is the Postgres error code raised when deleting a user
// who still authored tickets or comments.
const foreignKeyViolation = "23503"

// UserService handles account administration: listing, profile updates, role
// assignment and activation state.
type UserService struct {
	users      repository.UserRepository
	roles      repository.RoleRepository
	guard      *authz.Guard
	dispatcher events.Dispatcher
	bcryptCost int
}

// UserDependencies bundles collaborators.
type UserDependencies struct {
	UserRepo   repository.UserRepository
	RoleRepo   repository.RoleRepository
	Guard      *authz.Guard
	Dispatcher events.Dispatcher
	BcryptCost int
}

// UserCreateInput describes an admin-created account.
type UserCreateInput struct {
	Username   string
	Email      string
	FullName   string
	Password   string
	RoleName   domain.RoleName
	Department *string
	Phone      *string
}

// ProfileUpdateInput describes the fields a user may change on themselves.
type ProfileUpdateInput struct {
	Username *string
	FullName *string
	Phone    *string
}

// NewUserService constructs the service.
func NewUserService(deps UserDependencies) *UserService {
	return &UserService{
		users:      deps.UserRepo,
		roles:      deps.RoleRepo,
		guard:      deps.Guard,
		dispatcher: deps.Dispatcher,
		bcryptCost: deps.BcryptCost,
	}
}

// Get returns a single account. Admins see anyone; others only themselves.
func (s *UserService) Get(ctx context.Context, actor *domain.User, userID string) (*domain.User, error) {
	if err := s.guard.RequireActive(actor); err != nil {
		return nil, err
	}
	if actor.ID != userID && !s.guard.HasRank(actor, domain.RoleSupervisor) {
		return nil, apperrors.NewForbidden("no access to this user")
	}
	return s.loadUser(ctx, userID)
}

// List returns accounts for supervisor rank and above. Supervisors are
// scoped to their own department when they have one; admins see everyone.
func (s *UserService) List(ctx context.Context, actor *domain.User, filter repository.UserFilter) ([]domain.User, error) {
	if err := s.guard.RequireRank(actor, domain.RoleSupervisor); err != nil {
		return nil, err
	}
	if !actor.IsSystemAdmin() && actor.Department != nil {
		filter.Department = actor.Department
	}
	users, err := s.users.List(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return users, nil
}

// Create provisions an account with an explicit role. Admin only.
func (s *UserService) Create(ctx context.Context, actor *domain.User, input UserCreateInput) (*domain.User, error) {
	if err := s.guard.RequirePermission(actor, authz.PermUsersCreate); err != nil {
		return nil, err
	}
	roleName := input.RoleName
	if roleName == "" {
		roleName = domain.RoleCustomer
	}
	role, err := s.roles.GetByName(ctx, roleName)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("role", map[string]any{"role": roleName})
		}
		return nil, apperrors.MapError(err)
	}

	if err := s.checkLoginAvailable(ctx, input.Username, input.Email, ""); err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	user := &domain.User{
		Username:     strings.TrimSpace(input.Username),
		Email:        strings.ToLower(strings.TrimSpace(input.Email)),
		FullName:     strings.TrimSpace(input.FullName),
		PasswordHash: hash,
		RoleID:       &role.ID,
		Role:         role,
		Department:   input.Department,
		Phone:        input.Phone,
		Status:       domain.UserStatusActive,
		Active:       true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, apperrors.MapError(err)
	}
	return user, nil
}

// UpdateProfile lets a user change their own username, full name and phone.
func (s *UserService) UpdateProfile(ctx context.Context, actor *domain.User, input ProfileUpdateInput) (*domain.User, error) {
	if err := s.guard.RequireActive(actor); err != nil {
		return nil, err
	}
	user, err := s.loadUser(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	if input.Username != nil {
		username := strings.TrimSpace(*input.Username)
		if username == "" {
			return nil, apperrors.NewValidationError("username must not be empty", nil)
		}
		if username != user.Username {
			if err := s.checkLoginAvailable(ctx, username, "", user.ID); err != nil {
				return nil, err
			}
		}
		user.Username = username
	}
	if input.FullName != nil {
		user.FullName = strings.TrimSpace(*input.FullName)
	}
	if input.Phone != nil {
		user.Phone = input.Phone
	}
	if err := s.users.Update(ctx, user); err != nil {
		return nil, apperrors.MapError(err)
	}
	return user, nil
}

// AssignRole reassigns the target's role. Admin only; an admin can never
// change their own role, even to another valid one.
func (s *UserService) AssignRole(ctx context.Context, actor *domain.User, targetUserID, roleID string) (*domain.User, error) {
	if err := s.guard.RequirePermission(actor, authz.PermRolesManage); err != nil {
		return nil, err
	}
	if actor.ID == targetUserID {
		return nil, apperrors.NewForbidden("cannot change your own role")
	}
	role, err := s.roles.GetByID(ctx, roleID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("role", map[string]any{"role_id": roleID})
		}
		return nil, apperrors.MapError(err)
	}
	target, err := s.loadUser(ctx, targetUserID)
	if err != nil {
		return nil, err
	}

	oldRole := target.RoleName()
	target.RoleID = &role.ID
	target.Role = role
	if err := s.users.Update(ctx, target); err != nil {
		return nil, apperrors.MapError(err)
	}

	if s.dispatcher != nil {
		_ = s.dispatcher.Publish(ctx, events.Event{
			ID:        uuid.NewString(),
			Type:      events.EventUserRoleChanged,
			ActorID:   actor.ID,
			Timestamp: time.Now(),
			Payload: events.UserRoleChangedPayload{
				UserID:  target.ID,
				OldRole: oldRole,
				NewRole: role.Name,
			},
		})
	}
	return target, nil
}

// SetActive toggles an account's activation. Admin only; self-deactivation
// is rejected regardless of rank.
func (s *UserService) SetActive(ctx context.Context, actor *domain.User, targetUserID string, active bool) (*domain.User, error) {
	if err := s.guard.RequireRank(actor, domain.RoleAdmin); err != nil {
		return nil, err
	}
	if actor.ID == targetUserID && !active {
		return nil, apperrors.NewForbidden("cannot deactivate your own account")
	}
	target, err := s.loadUser(ctx, targetUserID)
	if err != nil {
		return nil, err
	}
	target.Active = active
	if active {
		target.Status = domain.UserStatusActive
	} else {
		target.Status = domain.UserStatusInactive
	}
	if err := s.users.Update(ctx, target); err != nil {
		return nil, apperrors.MapError(err)
	}
	return target, nil
}

// Delete removes an account. Admin only; accounts that still own tickets or
// comments are rejected by the store's reference constraints.
func (s *UserService) Delete(ctx context.Context, actor *domain.User, targetUserID string) error {
	if err := s.guard.RequirePermission(actor, authz.PermUsersDeleteAny); err != nil {
		return err
	}
	if actor.ID == targetUserID {
		return apperrors.NewForbidden("cannot delete your own account")
	}
	if err := s.users.Delete(ctx, targetUserID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("user", map[string]any{"user_id": targetUserID})
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
			return apperrors.NewConflict("user has authored tickets or comments", map[string]any{"user_id": targetUserID})
		}
		return apperrors.MapError(err)
	}
	return nil
}

// Roles lists the role catalog for staff callers.
func (s *UserService) Roles(ctx context.Context, actor *domain.User) ([]domain.Role, error) {
	if err := s.guard.RequireRank(actor, domain.RoleSupervisor); err != nil {
		return nil, err
	}
	roles, err := s.roles.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return roles, nil
}

func (s *UserService) loadUser(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("user", map[string]any{"user_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return user, nil
}

func (s *UserService) checkLoginAvailable(ctx context.Context, username, email, excludeID string) error {
	if username != "" {
		existing, err := s.users.GetByUsernameOrEmail(ctx, username)
		if err == nil && existing.ID != excludeID {
			return apperrors.NewConflict("username already in use", map[string]any{"username": username})
		}
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return apperrors.MapError(err)
		}
	}
	if email != "" {
		existing, err := s.users.GetByEmail(ctx, email)
		if err == nil && existing.ID != excludeID {
			return apperrors.NewConflict("email already registered", map[string]any{"email": email})
		}
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return apperrors.MapError(err)
		}
	}
	return nil
}
