package gormrepo_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/storefront/internal/database"
	"github.com/example/storefront/internal/models"
	"github.com/example/storefront/internal/repository"
	"github.com/example/storefront/internal/repository/gormrepo"
)

func newStore(t *testing.T) *gormrepo.Store {
	t.Helper()
	db, err := database.Connect("sqlite", "file::memory:", false)
	require.NoError(t, err)
	store := gormrepo.New(db)
	require.NoError(t, store.Migrate(context.Background()))
	t.Cleanup(func() { _ = store.Close(context.Background()) })
	return store
}

func strPtr(s string) *string { return &s }

func TestCustomerOTPConsumeIsConditional(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	customers := store.Customers()

	c := &models.Customer{Email: strPtr("asha@example.com")}
	require.NoError(t, customers.Create(ctx, c))

	exp := time.Now().Add(5 * time.Minute).UTC()
	require.NoError(t, customers.SetOTP(ctx, c.ID, "123456", exp))

	ok, err := customers.ConsumeOTP(ctx, c.ID, "654321", "")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = customers.ConsumeOTP(ctx, c.ID, "123456", "Asha")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = customers.ConsumeOTP(ctx, c.ID, "123456", "Asha")
	require.NoError(t, err)
	assert.False(t, ok, "second consume must not apply")

	got, err := customers.FindByKey(ctx, models.IdentityKey{Channel: models.ChannelEmail, Value: "asha@example.com"})
	require.NoError(t, err)
	assert.Nil(t, got.OTP)
	assert.Nil(t, got.OTPExpiresAt)
	assert.Equal(t, "Asha", got.Name)
}

func TestConsumeOTPKeepsExistingName(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	customers := store.Customers()

	c := &models.Customer{Name: "Ravi", Phone: strPtr("+919800000001")}
	require.NoError(t, customers.Create(ctx, c))
	require.NoError(t, customers.SetOTP(ctx, c.ID, "111111", time.Now().Add(time.Minute)))

	ok, err := customers.ConsumeOTP(ctx, c.ID, "111111", "Someone Else")
	require.NoError(t, err)
	require.True(t, ok)

	got, err := customers.FindByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ravi", got.Name)
}

func TestCustomerDuplicateKey(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	require.NoError(t, store.Customers().Create(ctx, &models.Customer{Email: strPtr("dup@example.com")}))
	err := store.Customers().Create(ctx, &models.Customer{Email: strPtr("dup@example.com")})
	assert.ErrorIs(t, err, repository.ErrDuplicate)
}

func TestCompleteNameOnlyOnce(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	c := &models.Customer{Email: strPtr("n@example.com")}
	require.NoError(t, store.Customers().Create(ctx, c))

	ok, err := store.Customers().CompleteName(ctx, c.ID, "First")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Customers().CompleteName(ctx, c.ID, "Second")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSessionUpsertAndConsume(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	sessions := store.Sessions()

	exp := time.Now().Add(5 * time.Minute).UTC()
	require.NoError(t, sessions.Upsert(ctx, &models.OTPSession{Key: "new@example.com", Channel: models.ChannelEmail, OTP: "111111", OTPExpiresAt: exp}))
	require.NoError(t, sessions.Upsert(ctx, &models.OTPSession{Key: "new@example.com", Channel: models.ChannelEmail, OTP: "222222", OTPExpiresAt: exp}))

	got, err := sessions.Find(ctx, "new@example.com")
	require.NoError(t, err)
	assert.Equal(t, "222222", got.OTP)

	ok, err := sessions.Consume(ctx, "new@example.com", "111111")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = sessions.Consume(ctx, "new@example.com", "222222")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = sessions.Find(ctx, "new@example.com")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestOrderVersionedUpdate(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	orders := store.Orders()

	order := &models.Order{
		RazorpayOrderID: strPtr("order_abc"),
		PaymentMethod:   models.PaymentMethodRazorpay,
		Amount:          499,
		Items:           []models.OrderItem{{ProductID: "p1", Name: "Ghee", Qty: 1, Price: 499}},
	}
	require.NoError(t, orders.Create(ctx, order))
	assert.Equal(t, models.PaymentStatusPending, order.PaymentStatus)

	stale := *order

	order.PaymentStatus = models.PaymentStatusPaid
	require.NoError(t, orders.Update(ctx, order))
	assert.Equal(t, 2, order.Version)

	stale.PaymentStatus = models.PaymentStatusFailed
	assert.ErrorIs(t, orders.Update(ctx, &stale), repository.ErrStale)

	got, err := orders.FindByProviderOrderID(ctx, "order_abc")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, got.PaymentStatus)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "Ghee", got.Items[0].Name)

	dup := &models.Order{RazorpayOrderID: strPtr("order_abc"), PaymentMethod: models.PaymentMethodRazorpay, Amount: 1}
	assert.ErrorIs(t, orders.Create(ctx, dup), repository.ErrDuplicate)
}

func TestOrderListAndStats(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	orders := store.Orders()
	customerID := uuid.New()

	require.NoError(t, orders.Create(ctx, &models.Order{CustomerID: &customerID, PaymentMethod: models.PaymentMethodCOD, Amount: 250}))
	require.NoError(t, orders.Create(ctx, &models.Order{CustomerID: &customerID, PaymentMethod: models.PaymentMethodRazorpay, PaymentStatus: models.PaymentStatusPaid, Amount: 100}))
	require.NoError(t, orders.Create(ctx, &models.Order{PaymentMethod: models.PaymentMethodRazorpay, Amount: 40}))

	list, total, err := orders.List(ctx, repository.OrderFilter{CustomerID: &customerID}, repository.Page{Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, list, 2)

	stats, err := orders.Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, stats.TotalOrders)
	assert.EqualValues(t, 1, stats.ByStatus[models.PaymentStatusCODPending])
	assert.InDelta(t, 100, stats.PaidRevenue, 0.001)
	assert.InDelta(t, 290, stats.PendingAmount, 0.001)
}

func TestNotificationClaimLifecycle(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	repo := store.Notifications()
	now := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)

	n := &models.Notification{Kind: models.NotificationAdminOrderAlert, Status: models.NotificationPending, NextAttemptAt: now}
	require.NoError(t, repo.Create(ctx, n))

	due, err := repo.ListDue(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, due, 1)

	claimed, err := repo.Claim(ctx, n.ID, now, now.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, claimed.Attempts)
	assert.Equal(t, models.NotificationSending, claimed.Status)

	_, err = repo.Claim(ctx, n.ID, now, now.Add(time.Minute))
	assert.ErrorIs(t, err, repository.ErrStale, "leased row cannot be claimed twice")

	require.NoError(t, repo.MarkFailed(ctx, n.ID, "smtp down"))
	require.NoError(t, repo.Reset(ctx, n.ID, now))

	got, err := repo.FindByID(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, models.NotificationPending, got.Status)
	assert.Equal(t, 0, got.Attempts)

	assert.ErrorIs(t, repo.Reset(ctx, n.ID, now), repository.ErrNotFound)
}

func TestTransactionRollsBack(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	err := store.Transaction(ctx, func(ctx context.Context, tx repository.Store) error {
		if err := tx.Customers().Create(ctx, &models.Customer{Email: strPtr("tx@example.com")}); err != nil {
			return err
		}
		return repository.ErrStale
	})
	assert.ErrorIs(t, err, repository.ErrStale)

	_, err = store.Customers().FindByKey(ctx, models.IdentityKey{Channel: models.ChannelEmail, Value: "tx@example.com"})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
