package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/fusecpt/ats/internal/auth"
	"github.com/fusecpt/ats/internal/config"
	"github.com/fusecpt/ats/internal/model"
	"github.com/fusecpt/ats/pkg/apperr"
)

func newAuthService(t *testing.T) (*AuthService, *fakeMail) {
	t.Helper()
	store := openTestStore(t)
	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, store.CreateUser(context.Background(), &model.User{
		ID: "u-1", Name: "Rita", Email: "rita@example.com", Role: model.RoleAdmin, PasswordHash: string(hash),
	}))

	issuer := auth.NewIssuer(&config.JWTConfig{AccessSecret: "a", RefreshSecret: "r", AccessTTL: 15, RefreshTTL: 24})
	mail := &fakeMail{}
	return NewAuthService(store, issuer, mail, nil), mail
}

func TestAuthService_Login(t *testing.T) {
	svc, _ := newAuthService(t)
	ctx := context.Background()

	session, err := svc.Login(ctx, "RITA@example.com", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, "u-1", session.User.ID)
	assert.NotEmpty(t, session.AccessToken)
	assert.NotEmpty(t, session.RefreshToken)

	_, err = svc.Login(ctx, "rita@example.com", "wrong")
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
	_, err = svc.Login(ctx, "nobody@example.com", "correct-horse")
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
}

func TestAuthService_RefreshRotates(t *testing.T) {
	svc, _ := newAuthService(t)
	ctx := context.Background()

	first, err := svc.Login(ctx, "rita@example.com", "correct-horse")
	require.NoError(t, err)

	second, err := svc.Refresh(ctx, first.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

	_, err = svc.Refresh(ctx, first.RefreshToken)
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))

	_, err = svc.Refresh(ctx, second.AccessToken)
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))

	require.NoError(t, svc.Logout(ctx, "u-1"))
	_, err = svc.Refresh(ctx, second.RefreshToken)
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
}

func TestAuthService_EndSession(t *testing.T) {
	svc, _ := newAuthService(t)
	ctx := context.Background()

	require.NoError(t, svc.EndSession(ctx, ""))
	require.NoError(t, svc.EndSession(ctx, "garbage"))

	session, err := svc.Login(ctx, "rita@example.com", "correct-horse")
	require.NoError(t, err)
	require.NoError(t, svc.EndSession(ctx, session.RefreshToken))

	_, err = svc.Refresh(ctx, session.RefreshToken)
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
}

func TestAuthService_PasswordReset(t *testing.T) {
	svc, mail := newAuthService(t)
	ctx := context.Background()

	require.NoError(t, svc.ForgotPassword(ctx, "nobody@example.com"))
	assert.Empty(t, mail.payloads)

	require.NoError(t, svc.ForgotPassword(ctx, "rita@example.com"))
	reset := mail.last()
	assert.Equal(t, model.MailKindPasswordReset, reset.Kind)

	assert.Equal(t, apperr.KindValidation, apperr.KindOf(svc.ResetPassword(ctx, "bogus", "new-password")))
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(svc.ResetPassword(ctx, reset.Token, "short")))

	require.NoError(t, svc.ResetPassword(ctx, reset.Token, "new-password"))
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(svc.ResetPassword(ctx, reset.Token, "again-password")))

	_, err := svc.Login(ctx, "rita@example.com", "new-password")
	require.NoError(t, err)

	me, err := svc.Me(ctx, "u-1")
	require.NoError(t, err)
	assert.False(t, me.MustChangePassword)
}

func TestAuthService_ResetTokenExpires(t *testing.T) {
	svc, mail := newAuthService(t)
	ctx := context.Background()

	require.NoError(t, svc.ForgotPassword(ctx, "rita@example.com"))
	svc.now = func() time.Time { return time.Now().Add(25 * time.Hour) }

	err := svc.ResetPassword(ctx, mail.last().Token, "new-password")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestAuthService_ForgotPasswordQueueFailure(t *testing.T) {
	svc, mail := newAuthService(t)
	mail.err = errQueueDown
	ctx := context.Background()

	err := svc.ForgotPassword(ctx, "rita@example.com")
	assert.Equal(t, apperr.KindServer, apperr.KindOf(err))

	u, err := svc.Me(ctx, "u-1")
	require.NoError(t, err)
	assert.Empty(t, u.ResetTokenHash)
}
