package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/fusecpt/ats/internal/access"
	"github.com/fusecpt/ats/internal/auth"
	"github.com/fusecpt/ats/internal/model"
	"github.com/fusecpt/ats/internal/storage"
	"github.com/fusecpt/ats/pkg/apperr"
)

const (
	userNotFound  = "User not found"
	resetTokenTTL = 24 * time.Hour
)

// Actor is the authenticated user performing a request.
type Actor struct {
	ID   string
	Role model.Role
}

// UserService manages recruiter accounts.
type UserService struct {
	store  *storage.Store
	mail   MailEnqueuer
	logger *zap.Logger
	now    func() time.Time
}

func NewUserService(store *storage.Store, mail MailEnqueuer, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{
		store:  store,
		mail:   mail,
		logger: logger,
		now:    utcNow,
	}
}

// Create adds a user and sends an invitation carrying a set-password link.
// When the invitation cannot be queued the user is removed again.
func (s *UserService) Create(ctx context.Context, req *model.CreateUserRequest, actor Actor) (*model.User, error) {
	if !access.CanManageRole(actor.Role, req.Role) {
		return nil, apperr.Forbidden("You are not allowed to create users with this role")
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := s.store.GetUserByEmail(ctx, email); err == nil {
		return nil, apperr.Conflict("A user with this email already exists")
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.Server("", err)
	}

	// The temporary password is never sent; the user sets one via the link.
	temp, err := auth.NewOpaqueToken()
	if err != nil {
		return nil, apperr.Server("", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(temp), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperr.Server("", err)
	}

	u := &model.User{
		ID:                 uuid.New().String(),
		Name:               strings.TrimSpace(req.Name),
		Email:              email,
		Role:               req.Role,
		PasswordHash:       string(hash),
		MustChangePassword: true,
	}
	token, err := setResetToken(u, s.now())
	if err != nil {
		return nil, apperr.Server("", err)
	}

	if err := s.store.CreateUser(ctx, u); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, apperr.Conflict("A user with this email already exists")
		}
		return nil, apperr.Server("", err)
	}

	if err := s.mail.EnqueueMail(ctx, &model.MailTaskPayload{
		Kind:      model.MailKindInvite,
		UserID:    u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Token:     token,
		ExpiresAt: *u.ResetTokenExpiresAt,
	}); err != nil {
		if delErr := s.store.DeleteUser(ctx, u.ID); delErr != nil {
			s.logger.Error("failed to remove user after invitation failure",
				zap.String("user_id", u.ID),
				zap.Error(delErr),
			)
		}
		return nil, apperr.Server("Failed to send invitation email", err)
	}

	s.logger.Info("user invited",
		zap.String("user_id", u.ID),
		zap.String("role", string(u.Role)),
		zap.String("invited_by", actor.ID),
	)
	return u, nil
}

// setResetToken stores the hash of a fresh reset token on u and returns the
// clear token.
func setResetToken(u *model.User, now time.Time) (string, error) {
	token, err := auth.NewOpaqueToken()
	if err != nil {
		return "", err
	}
	expires := now.Add(resetTokenTTL)
	u.ResetTokenHash = auth.HashToken(token)
	u.ResetTokenExpiresAt = &expires
	return token, nil
}

func (s *UserService) List(ctx context.Context, q *model.UserListQuery) (*model.UserPage, error) {
	page, limit, offset := storage.Page(q.Page, q.Limit, defaultPageSize, maxPageSize)

	users, total, err := s.store.ListUsers(ctx, storage.UserFilter{
		Role:   strings.TrimSpace(q.Role),
		Offset: offset,
		Limit:  limit,
	})
	if err != nil {
		return nil, apperr.Server("", err)
	}

	return &model.UserPage{
		Total:      total,
		Page:       page,
		TotalPages: storage.TotalPages(total, limit),
		Users:      users,
	}, nil
}

func (s *UserService) Get(ctx context.Context, id string) (*model.User, error) {
	u, err := s.store.GetUser(ctx, id)
	if err != nil {
		return nil, mapStoreErr(err, userNotFound)
	}
	return u, nil
}

// Update changes a user's name or role. Nobody changes their own role and
// admins only edit plain users.
func (s *UserService) Update(ctx context.Context, id string, req *model.UpdateUserRequest, actor Actor) (*model.User, error) {
	var updated *model.User
	err := s.store.Transaction(ctx, func(tx *storage.Store) error {
		u, err := tx.GetUser(ctx, id)
		if err != nil {
			return err
		}
		if u.ID != actor.ID && !access.CanManageRole(actor.Role, u.Role) {
			return apperr.Forbidden("You are not allowed to modify this user")
		}
		if req.Role != nil && *req.Role != u.Role {
			if u.ID == actor.ID {
				return apperr.Forbidden("You cannot change your own role")
			}
			if !access.CanManageRole(actor.Role, *req.Role) {
				return apperr.Forbidden("You are not allowed to assign this role")
			}
			u.Role = *req.Role
		}
		if req.Name != nil {
			u.Name = strings.TrimSpace(*req.Name)
		}
		if err := tx.SaveUser(ctx, u); err != nil {
			return err
		}
		updated = u
		return nil
	})
	if err != nil {
		return nil, mapStoreErr(err, userNotFound)
	}
	return updated, nil
}

// Delete removes a user. Job history keeps the user id; the user shows as
// null there afterwards.
func (s *UserService) Delete(ctx context.Context, id string, actor Actor) error {
	if id == actor.ID {
		return apperr.Forbidden("You cannot delete yourself")
	}
	err := s.store.Transaction(ctx, func(tx *storage.Store) error {
		u, err := tx.GetUser(ctx, id)
		if err != nil {
			return err
		}
		if !access.CanManageRole(actor.Role, u.Role) {
			return apperr.Forbidden("You are not allowed to delete this user")
		}
		return tx.DeleteUser(ctx, id)
	})
	if err != nil {
		return mapStoreErr(err, userNotFound)
	}
	s.logger.Info("user deleted", zap.String("user_id", id), zap.String("deleted_by", actor.ID))
	return nil
}

// Bootstrap makes sure the configured super-admin exists. It does nothing
// when no email is configured or the user is already there.
func (s *UserService) Bootstrap(ctx context.Context, name, email, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil
	}
	if _, err := s.store.GetUserByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, storage.ErrNotFound) {
		return err
	}
	if len(password) < 8 {
		return errors.New("bootstrap admin password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if name == "" {
		name = "Super Admin"
	}
	u := &model.User{
		ID:           uuid.New().String(),
		Name:         name,
		Email:        email,
		Role:         model.RoleSuperAdmin,
		PasswordHash: string(hash),
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		return err
	}
	s.logger.Info("bootstrap super-admin created", zap.String("email", email))
	return nil
}
