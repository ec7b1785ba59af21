package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/domain"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

const identityKey = "auth_identity"

// AuthMiddleware validates bearer tokens and stores the caller identity.
type AuthMiddleware struct {
	tokens *TokenManager
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(strings.TrimSpace(parts[1]))
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	identity := claims.Identity()
	c.Locals(identityKey, &identity)
	return c.Next()
}

// IdentityFromContext retrieves the authenticated caller.
func IdentityFromContext(c *fiber.Ctx) (*domain.Identity, bool) {
	val := c.Locals(identityKey)
	if val == nil {
		return nil, false
	}
	identity, ok := val.(*domain.Identity)
	return identity, ok
}
