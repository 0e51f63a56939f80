package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/techmax/helpdesk-service/internal/api/http/handlers"
	"github.com/techmax/helpdesk-service/internal/auth"
	"github.com/techmax/helpdesk-service/internal/authz"
	"github.com/techmax/helpdesk-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Tickets        *handlers.TicketsHandler
	AuthMiddleware *auth.AuthMiddleware
	Guard          *authz.Guard
}

// RegisterRoutes wires HTTP routes. Route-level guards reject early with the
// right status; the service layer re-checks authorization on every call.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Users.Register)
	authGroup.Post("/login", cfg.Users.Login)
	authGroup.Post("/password-reset", cfg.Users.RequestPasswordReset)
	authGroup.Post("/password-reset/confirm", cfg.Users.ConfirmPasswordReset)
	authGroup.Post("/change-password", cfg.AuthMiddleware.Handle, cfg.Users.ChangePassword)

	tickets := app.Group("/tickets", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())
	tickets.Post("/", cfg.Tickets.CreateTicket)
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Get("/mine", cfg.Tickets.ListMyTickets)
	tickets.Get("/assigned", auth.RequireRank(cfg.Guard, domain.RoleAgent), cfg.Tickets.ListAssignedTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Patch("/:id", cfg.Tickets.UpdateTicket)
	tickets.Delete("/:id", auth.RequirePermission(cfg.Guard, authz.PermTicketsDeleteAny), cfg.Tickets.DeleteTicket)
	tickets.Post("/:id/assign", auth.RequireRank(cfg.Guard, domain.RoleSupervisor), cfg.Tickets.AssignTicket)
	tickets.Post("/:id/escalate", auth.RequireRank(cfg.Guard, domain.RoleAgent), cfg.Tickets.EscalateTicket)
	tickets.Post("/:id/resolve", cfg.Tickets.ResolveTicket)
	tickets.Post("/:id/close", auth.RequireRank(cfg.Guard, domain.RoleSupervisor), cfg.Tickets.CloseTicket)
	tickets.Post("/:id/reopen", auth.RequireRank(cfg.Guard, domain.RoleAgent), cfg.Tickets.ReopenTicket)
	tickets.Post("/:id/comments", cfg.Tickets.AddComment)
	tickets.Get("/:id/comments", cfg.Tickets.ListComments)
	tickets.Post("/:id/attachments", cfg.Tickets.AddAttachment)

	users := app.Group("/users", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())
	users.Get("/me", cfg.Users.Me)
	users.Patch("/me", cfg.Users.UpdateProfile)
	users.Post("/", auth.RequirePermission(cfg.Guard, authz.PermUsersCreate), cfg.Users.CreateUser)
	users.Get("/", auth.RequireRank(cfg.Guard, domain.RoleSupervisor), cfg.Users.ListUsers)
	users.Get("/:id", cfg.Users.GetUser)
	users.Put("/:id/role", auth.RequirePermission(cfg.Guard, authz.PermRolesManage), cfg.Users.AssignRole)
	users.Put("/:id/active", auth.RequireRank(cfg.Guard, domain.RoleAdmin), cfg.Users.SetActive)
	users.Delete("/:id", auth.RequirePermission(cfg.Guard, authz.PermUsersDeleteAny), cfg.Users.DeleteUser)

	app.Get("/roles", cfg.AuthMiddleware.Handle, auth.RequireRank(cfg.Guard, domain.RoleSupervisor), cfg.Users.ListRoles)
}
