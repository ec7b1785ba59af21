package auth

import (
	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// RequireIdentity ensures a caller was authenticated upstream.
func RequireIdentity() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := IdentityFromContext(c); !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		return c.Next()
	}
}

// RequireAdmin restricts a route to administrators.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, ok := IdentityFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if !identity.IsAdmin() {
			return apperrors.NewForbidden("admin role required")
		}
		return c.Next()
	}
}
