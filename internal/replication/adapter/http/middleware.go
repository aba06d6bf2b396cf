package http

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"

	"replication-connector/internal/replication/adapter/security"
	"replication-connector/internal/shared/contextkeys"
	apperrors "replication-connector/internal/shared/errors"
	"replication-connector/internal/shared/utils"
)

const requestIDLocal = "requestid"

// TokenValidator validates bearer tokens
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*security.Claims, error)
}

// RequestID assigns every request an id, honoring an incoming X-Request-ID
func RequestID() fiber.Handler {
	return requestid.New(requestid.Config{
		Header:     fiber.HeaderXRequestID,
		Generator:  uuid.NewString,
		ContextKey: requestIDLocal,
	})
}

// RequestContext copies the request id into the user context. It runs after RequestID.
func RequestContext() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if id, ok := c.Locals(requestIDLocal).(string); ok && id != "" {
			c.SetUserContext(utils.WithRequestID(c.UserContext(), id))
		}
		return c.Next()
	}
}

// BearerAuth requires a valid bearer token. A nil validator disables the check.
func BearerAuth(validator TokenValidator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if validator == nil {
			return c.Next()
		}

		token := extractToken(c)
		if token == "" {
			return writeError(c, apperrors.NewAuthenticationError("Authorization token required").
				WithCode("authentication_required"))
		}

		claims, err := validator.ValidateToken(c.UserContext(), token)
		if err != nil {
			message := "Invalid token"
			if errors.Is(err, apperrors.ErrTokenExpired) {
				message = "Token expired"
			}
			return writeError(c, apperrors.NewAuthenticationError(message).
				WithCode("invalid_token"))
		}

		c.SetUserContext(context.WithValue(c.UserContext(), contextkeys.ClaimsKey, claims))
		return c.Next()
	}
}

// extractToken reads the Authorization header, then the token query parameter used by websocket clients
func extractToken(c *fiber.Ctx) string {
	if header := c.Get(fiber.HeaderAuthorization); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return c.Query("token")
}
