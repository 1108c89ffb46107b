// Package mongorepo implements the repositories on MongoDB.
package mongorepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/example/storefront/internal/repository"
)

const (
	customersCollection     = "customers"
	sessionsCollection      = "otp_sessions"
	ordersCollection        = "orders"
	notificationsCollection = "notifications"
)

// Store implements repository.Store over a MongoDB database.
type Store struct {
	client       *mongo.Client
	db           *mongo.Database
	transactions bool
}

// Connect dials uri and pings the primary. Multi-document transactions are
// used only when transactions is true (replica sets and sharded clusters).
func Connect(ctx context.Context, uri, database string, transactions bool) (*Store, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	opts := options.Client().ApplyURI(uri).
		SetConnectTimeout(5 * time.Second).
		SetServerSelectionTimeout(5 * time.Second)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo: connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo: ping: %w", err)
	}

	return &Store{client: client, db: client.Database(database), transactions: transactions}, nil
}

func (s *Store) Customers() repository.CustomerRepository {
	return &customerRepo{col: s.db.Collection(customersCollection)}
}

func (s *Store) Sessions() repository.OTPSessionRepository {
	return &sessionRepo{col: s.db.Collection(sessionsCollection)}
}

func (s *Store) Orders() repository.OrderRepository {
	return &orderRepo{col: s.db.Collection(ordersCollection)}
}

func (s *Store) Notifications() repository.NotificationRepository {
	return &notificationRepo{col: s.db.Collection(notificationsCollection)}
}

func (s *Store) Transaction(ctx context.Context, fn func(ctx context.Context, tx repository.Store) error) error {
	if !s.transactions {
		return fn(ctx, s)
	}

	session, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("mongo: start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc, s)
	})
	return err
}

// Migrate creates the unique and lookup indexes.
func (s *Store) Migrate(ctx context.Context) error {
	unique := func(keys bson.D) mongo.IndexModel {
		return mongo.IndexModel{Keys: keys, Options: options.Index().SetUnique(true).SetSparse(true)}
	}
	plain := func(keys bson.D) mongo.IndexModel {
		return mongo.IndexModel{Keys: keys}
	}

	indexes := map[string][]mongo.IndexModel{
		customersCollection: {
			unique(bson.D{{Key: "email", Value: 1}}),
			unique(bson.D{{Key: "phone", Value: 1}}),
		},
		sessionsCollection: {
			unique(bson.D{{Key: "identity_key", Value: 1}}),
		},
		ordersCollection: {
			unique(bson.D{{Key: "razorpay_order_id", Value: 1}}),
			plain(bson.D{{Key: "customer_id", Value: 1}, {Key: "created_at", Value: -1}}),
			plain(bson.D{{Key: "payment_status", Value: 1}}),
		},
		notificationsCollection: {
			plain(bson.D{{Key: "status", Value: 1}, {Key: "next_attempt_at", Value: 1}}),
		},
	}

	for name, idx := range indexes {
		if _, err := s.db.Collection(name).Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("mongo: indexes for %s: %w", name, err)
		}
	}
	zap.L().Info("mongo indexes ensured", zap.String("database", s.db.Name()))
	return nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return repository.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return repository.ErrDuplicate
	}
	return err
}

func findOptions(page repository.Page) *options.FindOptions {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if page.Limit > 0 {
		opts.SetLimit(int64(page.Limit)).SetSkip(int64(page.Offset))
	}
	return opts
}
