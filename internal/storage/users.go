package storage

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/fusecpt/ats/internal/model"
)

// UserFilter selects users.
type UserFilter struct {
	Role   string
	Offset int
	Limit  int
}

// CreateUser inserts a user. Emails are stored lower-cased. A second user
// with the same email fails with ErrDuplicate.
func (s *Store) CreateUser(ctx context.Context, u *model.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if err := s.db.WithContext(ctx).Create(u).Error; err != nil {
		return fmt.Errorf("create user: %w", duplicate(err))
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, id string) (*model.User, error) {
	var u model.User
	if err := s.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	var u model.User
	err := s.db.WithContext(ctx).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&u).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

// GetUserByResetTokenHash finds the user holding a password reset token.
func (s *Store) GetUserByResetTokenHash(ctx context.Context, hash string) (*model.User, error) {
	if hash == "" {
		return nil, ErrNotFound
	}
	var u model.User
	if err := s.db.WithContext(ctx).Where("reset_token_hash = ?", hash).First(&u).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (s *Store) SaveUser(ctx context.Context, u *model.User) error {
	if err := s.db.WithContext(ctx).Save(u).Error; err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	return nil
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	tx := s.db.WithContext(ctx).Where("id = ?", id).Delete(&model.User{})
	if tx.Error != nil {
		return fmt.Errorf("delete user: %w", tx.Error)
	}
	if tx.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListUsers returns one page of users ordered by name, and the total count.
func (s *Store) ListUsers(ctx context.Context, f UserFilter) ([]model.User, int64, error) {
	var total int64
	if err := applyUserFilters(s.db.WithContext(ctx).Model(&model.User{}), f).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	query := applyUserFilters(s.db.WithContext(ctx).Model(&model.User{}), f).Order("name ASC").Order("id ASC")
	if f.Offset > 0 {
		query = query.Offset(f.Offset)
	}
	if f.Limit > 0 {
		query = query.Limit(f.Limit)
	}

	users := []model.User{}
	if err := query.Find(&users).Error; err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	return users, total, nil
}

func applyUserFilters(db *gorm.DB, f UserFilter) *gorm.DB {
	if f.Role != "" {
		db = db.Where("role = ?", f.Role)
	}
	return db
}
