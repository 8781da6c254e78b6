package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/fusecpt/ats/internal/auth"
	"github.com/fusecpt/ats/internal/model"
	"github.com/fusecpt/ats/internal/storage"
	"github.com/fusecpt/ats/pkg/apperr"
)

const invalidCredentials = "Invalid email or password"

// Session is the outcome of a login or refresh.
type Session struct {
	User         *model.User
	AccessToken  string
	RefreshToken string
}

// AuthService handles login sessions and password resets.
type AuthService struct {
	store  *storage.Store
	tokens *auth.Issuer
	mail   MailEnqueuer
	logger *zap.Logger
	now    func() time.Time
}

func NewAuthService(store *storage.Store, tokens *auth.Issuer, mail MailEnqueuer, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		store:  store,
		tokens: tokens,
		mail:   mail,
		logger: logger,
		now:    utcNow,
	}
}

// Login checks credentials and opens a session.
func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	u, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperr.Unauthorized(invalidCredentials)
		}
		return nil, apperr.Server("", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, apperr.Unauthorized(invalidCredentials)
	}

	session, err := s.openSession(ctx, u)
	if err != nil {
		return nil, err
	}
	s.logger.Info("user logged in", zap.String("user_id", u.ID))
	return session, nil
}

// Refresh exchanges a refresh token for a new pair. Only the most recently
// issued refresh token of a user is accepted.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	if refreshToken == "" {
		return nil, apperr.Unauthorized("Missing refresh token")
	}
	claims, err := s.tokens.ValidateRefresh(refreshToken)
	if err != nil {
		return nil, apperr.Unauthorized("Invalid or expired refresh token")
	}

	u, err := s.store.GetUser(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperr.Unauthorized("Invalid or expired refresh token")
		}
		return nil, apperr.Server("", err)
	}
	presented := auth.HashToken(refreshToken)
	if u.RefreshTokenHash == "" || subtle.ConstantTimeCompare([]byte(presented), []byte(u.RefreshTokenHash)) != 1 {
		s.logger.Warn("refresh token reuse rejected", zap.String("user_id", u.ID))
		return nil, apperr.Unauthorized("Invalid or expired refresh token")
	}

	return s.openSession(ctx, u)
}

func (s *AuthService) openSession(ctx context.Context, u *model.User) (*Session, error) {
	access, err := s.tokens.IssueAccess(u)
	if err != nil {
		return nil, apperr.Server("", err)
	}
	refresh, err := s.tokens.IssueRefresh(u)
	if err != nil {
		return nil, apperr.Server("", err)
	}

	u.RefreshTokenHash = auth.HashToken(refresh)
	if err := s.store.SaveUser(ctx, u); err != nil {
		return nil, apperr.Server("", err)
	}
	return &Session{User: u, AccessToken: access, RefreshToken: refresh}, nil
}

// Logout forgets the user's refresh token.
func (s *AuthService) Logout(ctx context.Context, userID string) error {
	if userID == "" {
		return nil
	}
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		return apperr.Server("", err)
	}
	u.RefreshTokenHash = ""
	if err := s.store.SaveUser(ctx, u); err != nil {
		return apperr.Server("", err)
	}
	return nil
}

// EndSession logs out the owner of refreshToken. Unknown, expired or already
// rotated tokens are ignored.
func (s *AuthService) EndSession(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	claims, err := s.tokens.ValidateRefresh(refreshToken)
	if err != nil {
		return nil
	}
	u, err := s.store.GetUser(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		return apperr.Server("", err)
	}
	if subtle.ConstantTimeCompare([]byte(auth.HashToken(refreshToken)), []byte(u.RefreshTokenHash)) != 1 {
		return nil
	}
	return s.Logout(ctx, u.ID)
}

// Me returns the authenticated user.
func (s *AuthService) Me(ctx context.Context, userID string) (*model.User, error) {
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, mapStoreErr(err, userNotFound)
	}
	return u, nil
}

// ResolveByEmail maps an externally authenticated identity to a local user.
func (s *AuthService) ResolveByEmail(ctx context.Context, email string) (*model.User, error) {
	u, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperr.Unauthorized("Unknown user")
		}
		return nil, apperr.Server("", err)
	}
	return u, nil
}

// ForgotPassword issues a reset link when the email belongs to a user. The
// outcome is the same whether or not it does.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	u, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.logger.Info("password reset requested for unknown email")
			return nil
		}
		return apperr.Server("", err)
	}

	prevHash, prevExpiry := u.ResetTokenHash, u.ResetTokenExpiresAt
	token, err := setResetToken(u, s.now())
	if err != nil {
		return apperr.Server("", err)
	}
	if err := s.store.SaveUser(ctx, u); err != nil {
		return apperr.Server("", err)
	}

	if err := s.mail.EnqueueMail(ctx, &model.MailTaskPayload{
		Kind:      model.MailKindPasswordReset,
		UserID:    u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Token:     token,
		ExpiresAt: *u.ResetTokenExpiresAt,
	}); err != nil {
		u.ResetTokenHash, u.ResetTokenExpiresAt = prevHash, prevExpiry
		if saveErr := s.store.SaveUser(ctx, u); saveErr != nil {
			s.logger.Error("failed to restore reset token", zap.String("user_id", u.ID), zap.Error(saveErr))
		}
		return apperr.Server("Failed to send password reset email", err)
	}
	return nil
}

// ResetPassword sets a new password using a reset token. Existing sessions
// end.
func (s *AuthService) ResetPassword(ctx context.Context, token, password string) error {
	if len(strings.TrimSpace(password)) < 8 {
		return apperr.Validation("Password must be at least 8 characters")
	}

	u, err := s.store.GetUserByResetTokenHash(ctx, auth.HashToken(token))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return apperr.Validation("Invalid or expired reset token")
		}
		return apperr.Server("", err)
	}
	if u.ResetTokenExpiresAt == nil || !s.now().Before(*u.ResetTokenExpiresAt) {
		return apperr.Validation("Invalid or expired reset token")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return apperr.Server("", err)
	}
	u.PasswordHash = string(hash)
	u.ResetTokenHash = ""
	u.ResetTokenExpiresAt = nil
	u.MustChangePassword = false
	u.RefreshTokenHash = ""
	if err := s.store.SaveUser(ctx, u); err != nil {
		return apperr.Server("", err)
	}

	s.logger.Info("password reset", zap.String("user_id", u.ID))
	return nil
}
