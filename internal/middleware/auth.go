package middleware

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/fusecpt/ats/internal/auth"
	"github.com/fusecpt/ats/internal/model"
	"github.com/fusecpt/ats/pkg/response"
)

// AccessTokenCookie is the cookie carrying the access token.
const AccessTokenCookie = "accessToken"

// UserResolver maps an externally verified email to a local user.
type UserResolver interface {
	ResolveByEmail(ctx context.Context, email string) (*model.User, error)
}

// AuthMiddleware handles JWT authentication
type AuthMiddleware struct {
	tokens   auth.TokenVerifier
	external auth.TokenVerifier
	users    UserResolver
}

// NewAuthMiddleware accepts session tokens signed by this service.
func NewAuthMiddleware(tokens auth.TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

// WithExternal also accepts bearer tokens from an OIDC issuer, mapped to local
// users by email.
func (m *AuthMiddleware) WithExternal(verifier auth.TokenVerifier, users UserResolver) *AuthMiddleware {
	m.external = verifier
	m.users = users
	return m
}

// Authenticate validates the access token from the accessToken cookie or the
// Authorization header.
func (m *AuthMiddleware) Authenticate() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString, err := extractToken(c)
		if err != nil {
			return response.Unauthorized(c, err.Error())
		}

		if claims, err := m.tokens.Validate(tokenString); err == nil {
			setIdentity(c, claims.UserID, claims.Email, claims.Name, claims.Role)
			return c.Next()
		}

		if m.external != nil && m.users != nil {
			claims, err := m.external.Validate(tokenString)
			if err == nil {
				u, err := m.users.ResolveByEmail(c.UserContext(), claims.Email)
				if err != nil {
					return response.Unauthorized(c, "Unknown user")
				}
				setIdentity(c, u.ID, u.Email, u.Name, u.Role)
				return c.Next()
			}
		}

		return response.Unauthorized(c, "Invalid or expired token")
	}
}

type authError string

func (e authError) Error() string { return string(e) }

func extractToken(c *fiber.Ctx) (string, error) {
	if cookie := c.Cookies(AccessTokenCookie); cookie != "" {
		return cookie, nil
	}

	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return "", authError("Missing access token")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || parts[1] == "" {
		return "", authError("Invalid authorization header format")
	}
	return parts[1], nil
}

func setIdentity(c *fiber.Ctx, userID, email, name string, role model.Role) {
	c.Locals("userId", userID)
	c.Locals("email", email)
	c.Locals("name", name)
	c.Locals("role", role)
}

// GetUserID extracts user ID from context
func GetUserID(c *fiber.Ctx) string {
	if userID, ok := c.Locals("userId").(string); ok {
		return userID
	}
	return ""
}

// GetUserEmail extracts user email from context
func GetUserEmail(c *fiber.Ctx) string {
	if email, ok := c.Locals("email").(string); ok {
		return email
	}
	return ""
}

// GetUserName extracts user name from context
func GetUserName(c *fiber.Ctx) string {
	if name, ok := c.Locals("name").(string); ok {
		return name
	}
	return ""
}

// GetRole extracts the user role from context
func GetRole(c *fiber.Ctx) model.Role {
	if role, ok := c.Locals("role").(model.Role); ok {
		return role
	}
	return ""
}

// GetActor returns the name recorded in history entries for the current
// user: the display name, or the email when the user has none.
func GetActor(c *fiber.Ctx) string {
	if name := strings.TrimSpace(GetUserName(c)); name != "" {
		return name
	}
	return GetUserEmail(c)
}
