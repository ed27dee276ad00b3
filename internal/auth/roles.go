package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/worklist-service/internal/domain"
	apperrors "github.com/spec-kit/worklist-service/pkg/util/errorutil"
)

// RequireRole ensures the authenticated actor holds role.
func RequireRole(role domain.ActorRole) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, ok := ActorFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if actor.Role != role {
			return apperrors.NewPermissionDenied(string(role) + " role required")
		}
		return c.Next()
	}
}
