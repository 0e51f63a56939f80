package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/techmax/helpdesk-service/internal/authz"
	"github.com/techmax/helpdesk-service/internal/domain"
	apperrors "github.com/techmax/helpdesk-service/pkg/util"
)

// RequireRank ensures the caller holds at least the given role rank.
func RequireRank(guard *authz.Guard, minimum domain.RoleName) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, ok := ActorFromContext(c)
		if !ok {
			return apperrors.NewUnauthenticated("authentication required")
		}
		if err := guard.RequireRank(actor, minimum); err != nil {
			return err
		}
		return c.Next()
	}
}

// RequirePermission ensures the caller's role grants a named permission.
func RequirePermission(guard *authz.Guard, permission string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, ok := ActorFromContext(c)
		if !ok {
			return apperrors.NewUnauthenticated("authentication required")
		}
		if err := guard.RequirePermission(actor, permission); err != nil {
			return err
		}
		return c.Next()
	}
}

// RequireAuthenticated ensures a caller is present.
func RequireAuthenticated() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := ActorFromContext(c); !ok {
			return apperrors.NewUnauthenticated("authentication required")
		}
		return c.Next()
	}
}
