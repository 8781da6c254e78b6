package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fusecpt/ats/internal/access"
	"github.com/fusecpt/ats/internal/auth"
	"github.com/fusecpt/ats/internal/config"
	"github.com/fusecpt/ats/internal/model"
)

func testIssuer() *auth.Issuer {
	return auth.NewIssuer(&config.JWTConfig{AccessSecret: "a", RefreshSecret: "r", AccessTTL: 15, RefreshTTL: 24})
}

type stubVerifier struct {
	claims *auth.Claims
}

func (s stubVerifier) Validate(string) (*auth.Claims, error) {
	if s.claims == nil {
		return nil, errors.New("invalid")
	}
	return s.claims, nil
}

func (stubVerifier) Close() error { return nil }

type stubUsers map[string]*model.User

func (s stubUsers) ResolveByEmail(_ context.Context, email string) (*model.User, error) {
	if u, ok := s[email]; ok {
		return u, nil
	}
	return nil, errors.New("unknown")
}

func setupApp(m *AuthMiddleware, capability access.Capability) *fiber.App {
	app := fiber.New()
	app.Get("/whoami", m.Authenticate(), RequireCapability(capability), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"id":    GetUserID(c),
			"role":  string(GetRole(c)),
			"actor": GetActor(c),
		})
	})
	return app
}

func TestAuthenticate(t *testing.T) {
	iss := testIssuer()
	user := &model.User{ID: "u-1", Name: "Rita", Email: "rita@example.com", Role: model.RoleUser}
	token, err := iss.IssueAccess(user)
	require.NoError(t, err)

	app := setupApp(NewAuthMiddleware(iss), access.CandidatesWrite)

	tests := []struct {
		name   string
		header string
		cookie string
		status int
	}{
		{"no token", "", "", fiber.StatusUnauthorized},
		{"bad scheme", "Basic abc", "", fiber.StatusUnauthorized},
		{"garbage bearer", "Bearer nope", "", fiber.StatusUnauthorized},
		{"bearer", "Bearer " + token, "", fiber.StatusOK},
		{"cookie", "", token, fiber.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/whoami", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.cookie != "" {
				req.Header.Set("Cookie", AccessTokenCookie+"="+tt.cookie)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestRequireCapability_Forbidden(t *testing.T) {
	iss := testIssuer()
	token, err := iss.IssueAccess(&model.User{ID: "u-1", Name: "Rita", Role: model.RoleUser})
	require.NoError(t, err)

	app := setupApp(NewAuthMiddleware(iss), access.JobsWrite)

	resp, err := app.Test(withBearer(token))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestAuthenticate_ExternalIssuer(t *testing.T) {
	users := stubUsers{"sam@example.com": {ID: "u-9", Name: "", Email: "sam@example.com", Role: model.RoleAdmin}}

	app := setupApp(
		NewAuthMiddleware(testIssuer()).WithExternal(stubVerifier{claims: &auth.Claims{Email: "sam@example.com"}}, users),
		access.JobsWrite,
	)
	resp, err := app.Test(withBearer("external-token"))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	unknown := setupApp(
		NewAuthMiddleware(testIssuer()).WithExternal(stubVerifier{claims: &auth.Claims{Email: "eve@example.com"}}, users),
		access.JobsRead,
	)
	resp, err = unknown.Test(withBearer("external-token"))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func withBearer(token string) *http.Request {
	req := httptest.NewRequest("GET", "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestRateLimiter_WithoutRedisAllows(t *testing.T) {
	rl := NewRateLimiter(nil, nil)
	app := fiber.New()
	app.Post("/login", rl.LoginLimit(1), func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) })

	for i := 0; i < 3; i++ {
		resp, err := app.Test(httptest.NewRequest("POST", "/login", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	}
}
