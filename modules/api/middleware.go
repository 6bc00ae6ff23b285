package api

import (
	"context"
	"strings"

	domain "github.com/example/task-sync/domain/user"
	"github.com/gofiber/fiber/v2"
)

const (
	// UserContextKey holds the caller's *domain.Claims.
	UserContextKey = "user"
	// UserIDContextKey holds the caller's user id, read by the rate limiter.
	UserIDContextKey = "user_id"
)

type callerKey struct{}

// CallerFromContext returns the authenticated user id that AuthMiddleware put
// on the request context, for the audit trail of service calls.
func CallerFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(callerKey{}).(string)
	return id, ok && id != ""
}

// TokenValidator validates bearer tokens.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*domain.Claims, error)
}

// AuthMiddleware rejects requests without a valid bearer access token.
func AuthMiddleware(validator TokenValidator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return unauthorized(c, "Authorization header is required")
		}
		if !strings.HasPrefix(authHeader, "Bearer ") {
			return unauthorized(c, "Invalid authorization header format. Use: Bearer <token>")
		}
		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if token == "" {
			return unauthorized(c, "Token is required")
		}

		claims, err := validator.ValidateToken(c.UserContext(), token)
		if err != nil {
			return unauthorized(c, "Invalid or expired token")
		}

		c.Locals(UserContextKey, claims)
		c.Locals(UserIDContextKey, claims.UserID)
		c.SetUserContext(context.WithValue(c.UserContext(), callerKey{}, claims.UserID))
		return c.Next()
	}
}

// pathOwner returns the :userId path parameter after checking that the caller
// is that user. It writes the 401 or 403 response itself when it fails.
func pathOwner(c *fiber.Ctx) (string, bool, error) {
	claims, ok := c.Locals(UserContextKey).(*domain.Claims)
	if !ok || claims == nil {
		return "", false, unauthorized(c, "User not authenticated")
	}
	owner := c.Params("userId")
	if owner != claims.UserID {
		return "", false, c.Status(fiber.StatusForbidden).JSON(ErrorResponse{
			Error:   CodeForbidden,
			Message: "cannot act on behalf of another user",
		})
	}
	return owner, true, nil
}

func unauthorized(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
		Error:   CodeUnauthorized,
		Message: message,
	})
}
