// Package repository declares the persistence contracts used by the
// services. Implementations live in gormrepo (postgres, sqlite) and
// mongorepo.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/example/storefront/internal/models"
)

var (
	ErrNotFound  = errors.New("repository: record not found")
	ErrDuplicate = errors.New("repository: duplicate key")
	// ErrStale is returned when a versioned update lost a race.
	ErrStale = errors.New("repository: stale record")
)

// Page is a limit/offset window.
type Page struct {
	Limit  int
	Offset int
}

type CustomerRepository interface {
	FindByKey(ctx context.Context, key models.IdentityKey) (*models.Customer, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Customer, error)
	Create(ctx context.Context, customer *models.Customer) error
	// SetOTP stores code and expiry together.
	SetOTP(ctx context.Context, id uuid.UUID, code string, expiresAt time.Time) error
	// ConsumeOTP clears the code pair only if the stored code still equals
	// code, backfilling name when the stored one is empty. It reports
	// whether the row was updated.
	ConsumeOTP(ctx context.Context, id uuid.UUID, code, name string) (bool, error)
	// CompleteName sets name only while the stored name is empty.
	CompleteName(ctx context.Context, id uuid.UUID, name string) (bool, error)
	UpdateName(ctx context.Context, id uuid.UUID, name string) error
	Count(ctx context.Context) (int64, error)

	AddAddress(ctx context.Context, address *models.CustomerAddress) error
	ListAddresses(ctx context.Context, customerID uuid.UUID) ([]models.CustomerAddress, error)
	UpdateAddress(ctx context.Context, customerID, addressID uuid.UUID, fields map[string]any) (*models.CustomerAddress, error)
	DeleteAddress(ctx context.Context, customerID, addressID uuid.UUID) error
}

type OTPSessionRepository interface {
	Find(ctx context.Context, key string) (*models.OTPSession, error)
	// Upsert replaces the code pair for session.Key, creating the row if needed.
	Upsert(ctx context.Context, session *models.OTPSession) error
	// Consume deletes the session only if it still holds code.
	Consume(ctx context.Context, key, code string) (bool, error)
}

// OrderFilter narrows order listings; zero values match everything.
type OrderFilter struct {
	CustomerID    *uuid.UUID
	PaymentStatus string
	PaymentMethod string
}

// OrderStats aggregates orders by payment status.
type OrderStats struct {
	TotalOrders   int64            `json:"total_orders"`
	ByStatus      map[string]int64 `json:"orders_by_status"`
	PaidRevenue   float64          `json:"paid_revenue"`
	PendingAmount float64          `json:"pending_amount"`
}

type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	// FindByProviderOrderID locks the row when called inside a transaction
	// on stores that support row locks.
	FindByProviderOrderID(ctx context.Context, providerOrderID string) (*models.Order, error)
	// Update writes every mutable column when order.Version still matches
	// the stored version, then bumps it. Returns ErrStale otherwise.
	Update(ctx context.Context, order *models.Order) error
	List(ctx context.Context, filter OrderFilter, page Page) ([]models.Order, int64, error)
	Stats(ctx context.Context) (*OrderStats, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Notification, error)
	// Claim moves a due pending or sending row to sending, increments its
	// attempts and leases it until leaseUntil.
	Claim(ctx context.Context, id uuid.UUID, now, leaseUntil time.Time) (*models.Notification, error)
	MarkSent(ctx context.Context, id uuid.UUID, at time.Time) error
	MarkRetry(ctx context.Context, id uuid.UUID, lastErr string, next time.Time) error
	MarkFailed(ctx context.Context, id uuid.UUID, lastErr string) error
	// Reset returns a failed row to pending with zero attempts.
	Reset(ctx context.Context, id uuid.UUID, now time.Time) error
	ListDue(ctx context.Context, now time.Time, limit int) ([]models.Notification, error)
	List(ctx context.Context, status string, page Page) ([]models.Notification, int64, error)
}

// Store bundles the repositories and their transaction boundary.
type Store interface {
	Customers() CustomerRepository
	Sessions() OTPSessionRepository
	Orders() OrderRepository
	Notifications() NotificationRepository
	// Transaction runs fn against a store bound to one unit of work. The
	// ctx handed to fn must be used for every call inside it.
	Transaction(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
	Migrate(ctx context.Context) error
	Close(ctx context.Context) error
}
