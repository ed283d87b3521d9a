package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/forms-service/internal/access"
	"github.com/spec-kit/forms-service/internal/domain"
	"github.com/spec-kit/forms-service/internal/repository"
	apperrors "github.com/spec-kit/forms-service/pkg/util"
)

const principalKey = "auth_principal"

// Principal represents the authenticated caller.
type Principal struct {
	User *domain.User
}

// AuthMiddleware validates bearer tokens and loads principals.
type AuthMiddleware struct {
	tokens *TokenManager
	users  repository.UserRepository
	cache  *PrincipalCache
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager, users repository.UserRepository, cache *PrincipalCache) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, users: users, cache: cache}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	principal, err := m.resolve(c)
	if err != nil {
		return err
	}
	if principal == nil {
		return apperrors.NewUnauthorized("missing authorization header")
	}
	c.Locals(principalKey, principal)
	return c.Next()
}

// Optional resolves a principal when a bearer token is present but lets
// anonymous requests through; public-form endpoints need both cases.
func (m *AuthMiddleware) Optional(c *fiber.Ctx) error {
	principal, err := m.resolve(c)
	if err != nil {
		return err
	}
	if principal != nil {
		c.Locals(principalKey, principal)
	}
	return c.Next()
}

func (m *AuthMiddleware) resolve(c *fiber.Ctx) (*Principal, error) {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return nil, nil
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return nil, apperrors.NewUnauthorized("invalid authorization header")
	}
	tokenStr := parts[1]

	claims, err := m.tokens.ParseToken(tokenStr)
	if err != nil {
		return nil, apperrors.NewUnauthorized("invalid token")
	}
	userID, err := claims.UserID()
	if err != nil {
		return nil, apperrors.NewUnauthorized("invalid token subject")
	}

	if cached := m.cache.Get(c.UserContext(), tokenStr); cached != nil {
		return &Principal{User: cached}, nil
	}

	user, err := m.users.GetByID(c.UserContext(), userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewUnauthorized("user not found")
		}
		return nil, apperrors.MapError(err)
	}
	if user.Status != domain.UserStatusActive {
		return nil, apperrors.NewForbidden("account disabled")
	}
	m.cache.Put(c.UserContext(), tokenStr, user)
	return &Principal{User: user}, nil
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}

// AuthorizationContextFromRequest builds the explicit context handed to the
// access resolver: the caller's grants when authenticated, anonymous
// otherwise.
func AuthorizationContextFromRequest(c *fiber.Ctx) access.AuthorizationContext {
	if principal, ok := PrincipalFromContext(c); ok && principal.User != nil {
		return ContextForUser(principal.User)
	}
	return access.Anonymous()
}

// RequireRole ensures the caller holds one of the allowed roles.
func RequireRole(allowed ...domain.Role) fiber.Handler {
	allowedSet := make(map[domain.Role]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok || principal.User == nil {
			return apperrors.NewUnauthorized("authentication required")
		}
		if principal.User.IsPlatformAdmin || len(allowedSet) == 0 {
			return c.Next()
		}
		for _, role := range principal.User.Roles {
			if _, exists := allowedSet[role]; exists {
				return c.Next()
			}
		}
		return apperrors.NewForbidden("insufficient role")
	}
}
