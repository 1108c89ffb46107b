package outbox

import (
	"context"
	"errors"
	"sync/atomic"
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

var testNow = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func newTestDispatcher(t *testing.T) (*Dispatcher, *MemoryDriver, repository.NotificationRepository) {
	t.Helper()
	db, err := database.Connect("sqlite", "file::memory:", false)
	require.NoError(t, err)
	store := gormrepo.New(db)
	require.NoError(t, store.Migrate(context.Background()))
	t.Cleanup(func() { _ = store.Close(context.Background()) })

	driver := NewMemoryDriver(16)
	d := NewDispatcher(store.Notifications(), driver, Options{
		Workers:     2,
		MaxAttempts: 3,
		Backoff:     time.Minute,
		Lease:       5 * time.Minute,
	})
	d.now = func() time.Time { return testNow }
	return d, driver, store.Notifications()
}

func popID(t *testing.T, driver *MemoryDriver) uuid.UUID {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	payload, err := driver.Pop(ctx)
	require.NoError(t, err)
	id, err := uuid.ParseBytes(payload)
	require.NoError(t, err)
	return id
}

func TestEnqueueStoresPendingRowAndPushesID(t *testing.T) {
	ctx := context.Background()
	d, driver, repo := newTestDispatcher(t)

	require.NoError(t, d.Enqueue(ctx, models.NotificationAdminOrderAlert, "", map[string]any{"order_id": "abc"}))

	id := popID(t, driver)
	n, err := repo.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.NotificationPending, n.Status)
	assert.Equal(t, "abc", n.Payload["order_id"])
	assert.Zero(t, n.Attempts)
}

func TestProcessMarksSentOnce(t *testing.T) {
	ctx := context.Background()
	d, driver, repo := newTestDispatcher(t)

	var calls atomic.Int32
	d.Handle("ping", func(ctx context.Context, n *models.Notification) error {
		calls.Add(1)
		return nil
	})
	require.NoError(t, d.Enqueue(ctx, "ping", "ops@example.com", nil))
	id := popID(t, driver)

	d.process(ctx, id)
	d.process(ctx, id)

	assert.Equal(t, int32(1), calls.Load(), "a sent row must not be delivered twice")
	n, err := repo.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.NotificationSent, n.Status)
	require.NotNil(t, n.SentAt)
	assert.Equal(t, 1, n.Attempts)
}

func TestProcessRetriesThenFails(t *testing.T) {
	ctx := context.Background()
	d, driver, repo := newTestDispatcher(t)

	d.Handle("flaky", func(ctx context.Context, n *models.Notification) error {
		return errors.New("smtp unavailable")
	})
	require.NoError(t, d.Enqueue(ctx, "flaky", "a@example.com", nil))
	id := popID(t, driver)

	d.process(ctx, id)
	n, err := repo.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.NotificationPending, n.Status)
	assert.Equal(t, 1, n.Attempts)
	assert.Equal(t, "smtp unavailable", n.LastError)
	assert.True(t, n.NextAttemptAt.Equal(testNow.Add(time.Minute)), "got %s", n.NextAttemptAt)

	// not due yet
	d.process(ctx, id)
	n, err = repo.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 1, n.Attempts)

	d.now = func() time.Time { return testNow.Add(time.Hour) }
	d.process(ctx, id)
	d.now = func() time.Time { return testNow.Add(2 * time.Hour) }
	d.process(ctx, id)

	n, err = repo.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.NotificationFailed, n.Status)
	assert.Equal(t, 3, n.Attempts)
}

func TestProcessWithoutHandlerFails(t *testing.T) {
	ctx := context.Background()
	d, driver, repo := newTestDispatcher(t)

	require.NoError(t, d.Enqueue(ctx, "unknown", "", nil))
	id := popID(t, driver)
	d.process(ctx, id)

	n, err := repo.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.NotificationFailed, n.Status)
	assert.Contains(t, n.LastError, "no handler")
}

func TestSweepPushesOnlyDueRows(t *testing.T) {
	ctx := context.Background()
	d, driver, repo := newTestDispatcher(t)

	d.Handle("flaky", func(ctx context.Context, n *models.Notification) error {
		return errors.New("down")
	})
	require.NoError(t, d.Enqueue(ctx, "flaky", "", nil))
	retried := popID(t, driver)
	d.process(ctx, retried)

	require.NoError(t, d.Enqueue(ctx, "flaky", "", nil))
	due := popID(t, driver)

	pushed, err := d.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, pushed)
	assert.Equal(t, due, popID(t, driver))

	d.now = func() time.Time { return testNow.Add(2 * time.Minute) }
	pushed, err = d.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, pushed)

	_, err = repo.FindByID(ctx, retried)
	require.NoError(t, err)
}

func TestRetryResetsFailedRow(t *testing.T) {
	ctx := context.Background()
	d, driver, repo := newTestDispatcher(t)

	require.NoError(t, d.Enqueue(ctx, "unknown", "", nil))
	id := popID(t, driver)

	assert.ErrorIs(t, d.Retry(ctx, id), repository.ErrNotFound, "pending rows cannot be retried")

	d.process(ctx, id)
	require.NoError(t, d.Retry(ctx, id))
	assert.Equal(t, id, popID(t, driver))

	n, err := repo.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.NotificationPending, n.Status)
	assert.Zero(t, n.Attempts)
}

func TestRunDeliversUntilCancelled(t *testing.T) {
	d, _, repo := newTestDispatcher(t)
	d.now = func() time.Time { return time.Now().UTC() }

	delivered := make(chan uuid.UUID, 1)
	d.Handle("ping", func(ctx context.Context, n *models.Notification) error {
		delivered <- n.ID
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	require.NoError(t, d.Enqueue(ctx, "ping", "", nil))

	var id uuid.UUID
	select {
	case id = <-delivered:
	case <-time.After(3 * time.Second):
		t.Fatal("notification was not delivered")
	}

	require.Eventually(t, func() bool {
		n, err := repo.FindByID(context.Background(), id)
		return err == nil && n.Status == models.NotificationSent
	}, 3*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
