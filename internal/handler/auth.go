package handler

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/fusecpt/ats/internal/config"
	"github.com/fusecpt/ats/internal/middleware"
	"github.com/fusecpt/ats/internal/model"
	"github.com/fusecpt/ats/internal/service"
	"github.com/fusecpt/ats/pkg/response"
)

// RefreshTokenCookie carries the long-lived refresh token.
const RefreshTokenCookie = "refreshToken"

type AuthHandler struct {
	service    *service.AuthService
	validator  *validator.Validate
	cookie     config.CookieConfig
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewAuthHandler(svc *service.AuthService, v *validator.Validate, cookie config.CookieConfig, accessTTL, refreshTTL time.Duration) *AuthHandler {
	return &AuthHandler{
		service:    svc,
		validator:  v,
		cookie:     cookie,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

func (h *AuthHandler) setCookie(c *fiber.Ctx, name, value string, ttl time.Duration) {
	cookie := &fiber.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   h.cookie.Domain,
		HTTPOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: h.sameSite(),
	}
	if ttl > 0 {
		cookie.Expires = time.Now().Add(ttl)
		cookie.MaxAge = int(ttl.Seconds())
	} else {
		cookie.Expires = time.Unix(0, 0)
		cookie.MaxAge = -1
	}
	c.Cookie(cookie)
}

func (h *AuthHandler) sameSite() string {
	switch strings.ToLower(h.cookie.SameSite) {
	case "strict":
		return fiber.CookieSameSiteStrictMode
	case "none":
		return fiber.CookieSameSiteNoneMode
	default:
		return fiber.CookieSameSiteLaxMode
	}
}

func (h *AuthHandler) writeSession(c *fiber.Ctx, session *service.Session) {
	h.setCookie(c, middleware.AccessTokenCookie, session.AccessToken, h.accessTTL)
	h.setCookie(c, RefreshTokenCookie, session.RefreshToken, h.refreshTTL)
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req model.LoginRequest
	if err := parseBody(c, h.validator, &req); err != nil {
		return err
	}

	session, err := h.service.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}

	h.writeSession(c, session)
	return response.OK(c, session.User)
}

// Refresh handles POST /api/auth/refresh-token
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	session, err := h.service.Refresh(c.UserContext(), c.Cookies(RefreshTokenCookie))
	if err != nil {
		return err
	}

	h.writeSession(c, session)
	return response.OK(c, session.User)
}

// Logout handles POST /api/auth/logout
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	if err := h.service.EndSession(c.UserContext(), c.Cookies(RefreshTokenCookie)); err != nil {
		return err
	}

	h.setCookie(c, middleware.AccessTokenCookie, "", 0)
	h.setCookie(c, RefreshTokenCookie, "", 0)
	return response.Message(c, "Logged out successfully")
}

// Me handles GET /api/auth/me
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	user, err := h.service.Me(c.UserContext(), middleware.GetUserID(c))
	if err != nil {
		return err
	}
	return response.OK(c, user)
}

// ForgotPassword handles POST /api/auth/forgot-password
func (h *AuthHandler) ForgotPassword(c *fiber.Ctx) error {
	var req model.ForgotPasswordRequest
	if err := parseBody(c, h.validator, &req); err != nil {
		return err
	}

	if err := h.service.ForgotPassword(c.UserContext(), req.Email); err != nil {
		return err
	}

	return response.Message(c, "If the email is registered, a reset link has been sent")
}

// ResetPassword handles POST /api/auth/reset-password
func (h *AuthHandler) ResetPassword(c *fiber.Ctx) error {
	var req model.ResetPasswordRequest
	if err := parseBody(c, h.validator, &req); err != nil {
		return err
	}

	if err := h.service.ResetPassword(c.UserContext(), req.Token, req.Password); err != nil {
		return err
	}

	return response.Message(c, "Password has been reset")
}
