// Package storage persists candidates, jobs and users with GORM. History rows
// are owned by their parent: they are inserted, read in sequence order and
// deleted together with the parent, never updated.
package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/fusecpt/ats/internal/model"
)

// ErrNotFound is returned when a lookup by id or key matches nothing.
var ErrNotFound = errors.New("record not found")

// ErrDuplicate is returned when an insert violates a unique index.
var ErrDuplicate = errors.New("duplicate record")

// Store wraps a *gorm.DB. A Store returned to a Transaction callback is bound
// to that transaction.
type Store struct {
	db *gorm.DB
}

// Open connects to the configured database. driver is "sqlite" (dsn is a file
// path or ":memory:") or "postgres".
func Open(driver, dsn string) (*Store, error) {
	gcfg := &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
		// History rows reference users that may be deleted later.
		DisableForeignKeyConstraintWhenMigrating: true,
	}

	var (
		db  *gorm.DB
		err error
	)
	switch strings.ToLower(driver) {
	case "", "sqlite":
		if dsn != ":memory:" && !strings.HasPrefix(dsn, "file:") {
			if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
				return nil, fmt.Errorf("create db dir: %w", err)
			}
		}
		db, err = gorm.Open(sqlite.Open(dsn), gcfg)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		// SQLite allows one writer; a single connection also keeps
		// ":memory:" databases visible to every query.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("get sql DB: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	case "postgres":
		db, err = gorm.Open(postgres.Open(dsn), gcfg)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	return &Store{db: db}, nil
}

// New wraps an existing connection.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Migrate creates or updates the tables.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(
		&model.User{},
		&model.Job{},
		&model.JobHistoryEntry{},
		&model.Candidate{},
		&model.PipelineEntry{},
	); err != nil {
		return fmt.Errorf("auto migrate models: %w", err)
	}
	return nil
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("get sql DB: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("get sql DB: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("close db: %w", err)
	}
	return nil
}

// Transaction runs fn inside a database transaction. fn must only use the
// Store it receives.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

// Page converts a 1-based page and a limit into an offset, applying defaults.
func Page(page, limit, defaultLimit, maxLimit int) (int, int, int) {
	if limit <= 0 {
		limit = defaultLimit
	}
	if maxLimit > 0 && limit > maxLimit {
		limit = maxLimit
	}
	if page <= 0 {
		page = 1
	}
	return page, limit, (page - 1) * limit
}

// TotalPages returns the number of pages needed for total rows.
func TotalPages(total int64, limit int) int {
	if limit <= 0 || total == 0 {
		return 0
	}
	return int((total + int64(limit) - 1) / int64(limit))
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func duplicate(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	return err
}

// likePattern builds a case-insensitive substring pattern, escaping the LIKE
// wildcards in term.
func likePattern(term string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + strings.ToLower(r.Replace(term)) + "%"
}

func nextSeq(db *gorm.DB, value interface{}, column, id string) (int, error) {
	var max int
	err := db.Model(value).
		Where(column+" = ?", id).
		Select("COALESCE(MAX(seq), 0)").
		Scan(&max).Error
	if err != nil {
		return 0, err
	}
	return max + 1, nil
}
