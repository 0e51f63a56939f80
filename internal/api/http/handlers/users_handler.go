package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/samber/lo"

	"github.com/techmax/helpdesk-service/internal/api/dto"
	"github.com/techmax/helpdesk-service/internal/auth"
	"github.com/techmax/helpdesk-service/internal/domain"
	"github.com/techmax/helpdesk-service/internal/repository"
	"github.com/techmax/helpdesk-service/internal/service"
	apperrors "github.com/techmax/helpdesk-service/pkg/util"
)

// UsersHandler exposes authentication, profile and user administration
// endpoints.
type UsersHandler struct {
	auth  *service.AuthService
	users *service.UserService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(authService *service.AuthService, userService *service.UserService) *UsersHandler {
	return &UsersHandler{auth: authService, users: userService}
}

// Register POST /auth/register.
func (h *UsersHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	user, token, exp, err := h.auth.Register(c.UserContext(), service.RegisterInput{
		Username:   req.Username,
		Email:      req.Email,
		FullName:   req.FullName,
		Password:   req.Password,
		Department: req.Department,
		Phone:      req.Phone,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"data": dto.AuthResponse{Token: token, ExpiresAt: exp, User: userResponse(user)},
	})
}

// Login POST /auth/login.
func (h *UsersHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	user, token, exp, err := h.auth.Login(c.UserContext(), req.Login, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"data": dto.AuthResponse{Token: token, ExpiresAt: exp, User: userResponse(user)},
	})
}

// RequestPasswordReset POST /auth/password-reset.
func (h *UsersHandler) RequestPasswordReset(c *fiber.Ctx) error {
	var req dto.PasswordResetRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	// The token is delivered out of band; the response never reveals
	// whether the email exists.
	_, _ = h.auth.RequestPasswordReset(c.UserContext(), req.Email)
	return c.JSON(fiber.Map{"data": fiber.Map{"status": "accepted"}})
}

// ConfirmPasswordReset POST /auth/password-reset/confirm.
func (h *UsersHandler) ConfirmPasswordReset(c *fiber.Ctx) error {
	var req dto.PasswordResetConfirmRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := h.auth.ConfirmPasswordReset(c.UserContext(), req.Token, req.NewPassword); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"status": "password_updated"}})
}

// ChangePassword POST /auth/change-password.
func (h *UsersHandler) ChangePassword(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}
	var req dto.ChangePasswordRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := h.auth.ChangePassword(c.UserContext(), actor.ID, req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"status": "password_updated"}})
}

// Me GET /users/me.
func (h *UsersHandler) Me(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}
	return c.JSON(fiber.Map{"data": userResponse(actor)})
}

// UpdateProfile PATCH /users/me.
func (h *UsersHandler) UpdateProfile(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}
	var req dto.UpdateProfileRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	user, err := h.users.UpdateProfile(c.UserContext(), actor, service.ProfileUpdateInput{
		Username: req.Username,
		FullName: req.FullName,
		Phone:    req.Phone,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": userResponse(user)})
}

// CreateUser POST /users.
func (h *UsersHandler) CreateUser(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}
	var req dto.CreateUserRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	user, err := h.users.Create(c.UserContext(), actor, service.UserCreateInput{
		Username:   req.Username,
		Email:      req.Email,
		FullName:   req.FullName,
		Password:   req.Password,
		RoleName:   req.Role,
		Department: req.Department,
		Phone:      req.Phone,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": userResponse(user)})
}

// ListUsers GET /users.
func (h *UsersHandler) ListUsers(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}
	users, err := h.users.List(c.UserContext(), actor, parseUserQuery(c))
	if err != nil {
		return err
	}
	items := lo.Map(users, func(user domain.User, _ int) dto.UserResponse {
		return userResponse(&user)
	})
	return c.JSON(fiber.Map{"data": items})
}

// GetUser GET /users/:id.
func (h *UsersHandler) GetUser(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}
	user, err := h.users.Get(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": userResponse(user)})
}

// AssignRole PUT /users/:id/role.
func (h *UsersHandler) AssignRole(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}
	var req dto.AssignRoleRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	user, err := h.users.AssignRole(c.UserContext(), actor, c.Params("id"), req.RoleID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": userResponse(user)})
}

// SetActive PUT /users/:id/active.
func (h *UsersHandler) SetActive(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}
	var req dto.SetActiveRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	user, err := h.users.SetActive(c.UserContext(), actor, c.Params("id"), req.Active)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": userResponse(user)})
}

// DeleteUser DELETE /users/:id.
func (h *UsersHandler) DeleteUser(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}
	if err := h.users.Delete(c.UserContext(), actor, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// ListRoles GET /roles.
func (h *UsersHandler) ListRoles(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}
	roles, err := h.users.Roles(c.UserContext(), actor)
	if err != nil {
		return err
	}
	items := lo.Map(roles, func(role domain.Role, _ int) dto.RoleResponse {
		return roleResponse(&role)
	})
	return c.JSON(fiber.Map{"data": items})
}

func parseUserQuery(c *fiber.Ctx) repository.UserFilter {
	filter := repository.UserFilter{}
	if role := strings.TrimSpace(c.Query("role")); role != "" {
		name := domain.RoleName(role)
		filter.RoleName = &name
	}
	if department := strings.TrimSpace(c.Query("department")); department != "" {
		filter.Department = &department
	}
	if status := strings.TrimSpace(c.Query("status")); status != "" {
		userStatus := domain.UserStatus(status)
		filter.Status = &userStatus
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter
}

func userResponse(user *domain.User) dto.UserResponse {
	resp := dto.UserResponse{
		ID:         user.ID,
		Username:   user.Username,
		Email:      user.Email,
		FullName:   user.FullName,
		Department: user.Department,
		Phone:      user.Phone,
		Status:     user.Status,
		Active:     user.Active,
		IsAdmin:    user.IsSystemAdmin(),
		CreatedAt:  user.CreatedAt,
		UpdatedAt:  user.UpdatedAt,
	}
	if user.Role != nil {
		role := roleResponse(user.Role)
		resp.Role = &role
	}
	return resp
}

func roleResponse(role *domain.Role) dto.RoleResponse {
	return dto.RoleResponse{
		ID:          role.ID,
		Name:        role.Name,
		Description: role.Description,
		Permissions: role.Permissions,
	}
}
