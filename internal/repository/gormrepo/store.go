// Package gormrepo implements the repositories on gorm (postgres, sqlite).
package gormrepo

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/example/storefront/internal/database"
	"github.com/example/storefront/internal/repository"
)

// Store implements repository.Store over a gorm connection.
type Store struct {
	db   *gorm.DB
	inTx bool
}

// New wraps an open gorm connection.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying connection.
func (s *Store) DB() *gorm.DB { return s.db }

func (s *Store) Customers() repository.CustomerRepository {
	return &customerRepo{db: s.db}
}

func (s *Store) Sessions() repository.OTPSessionRepository {
	return &sessionRepo{db: s.db}
}

func (s *Store) Orders() repository.OrderRepository {
	return &orderRepo{db: s.db, lock: s.inTx && s.db.Dialector.Name() == "postgres"}
}

func (s *Store) Notifications() repository.NotificationRepository {
	return &notificationRepo{db: s.db}
}

func (s *Store) Transaction(ctx context.Context, fn func(ctx context.Context, tx repository.Store) error) error {
	if s.inTx {
		return fn(ctx, s)
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, &Store{db: tx, inTx: true})
	})
}

func (s *Store) Migrate(ctx context.Context) error {
	return database.Migrate(s.db.WithContext(ctx))
}

func (s *Store) Close(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// translate maps driver errors onto the repository sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return repository.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return repository.ErrDuplicate
	}
	msg := err.Error()
	if strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "duplicate key value") {
		return repository.ErrDuplicate
	}
	return err
}
