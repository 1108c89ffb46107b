package outbox

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/example/storefront/internal/database"
	"github.com/example/storefront/internal/models"
	"github.com/example/storefront/internal/repository"
	"github.com/example/storefront/internal/repository/gormrepo"
)

type mockDriver struct {
	mock.Mock
}

func (m *mockDriver) Push(ctx context.Context, payload []byte) error {
	return m.Called(ctx, payload).Error(0)
}

func (m *mockDriver) Pop(ctx context.Context) ([]byte, error) {
	args := m.Called(ctx)
	payload, _ := args.Get(0).([]byte)
	return payload, args.Error(1)
}

func (m *mockDriver) Close() error {
	return m.Called().Error(0)
}

func TestEnqueueSurvivesPushFailure(t *testing.T) {
	ctx := context.Background()
	db, err := database.Connect("sqlite", "file::memory:", false)
	require.NoError(t, err)
	store := gormrepo.New(db)
	require.NoError(t, store.Migrate(ctx))
	t.Cleanup(func() { _ = store.Close(ctx) })

	driver := new(mockDriver)
	driver.On("Push", mock.Anything, mock.Anything).Return(errors.New("broker down"))

	d := NewDispatcher(store.Notifications(), driver, Options{})
	d.now = func() time.Time { return testNow }

	require.NoError(t, d.Enqueue(ctx, models.NotificationAdminOrderAlert, "", map[string]any{"order_id": "x"}))

	rows, total, err := store.Notifications().List(ctx, models.NotificationPending, repository.Page{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Len(t, rows, 1)

	_, err = d.Sweep(ctx)
	assert.Error(t, err, "sweep reports the driver failure")
	driver.AssertNumberOfCalls(t, "Push", 2)
}

func TestMemoryDriver(t *testing.T) {
	ctx := context.Background()
	d := NewMemoryDriver(1)

	require.NoError(t, d.Push(ctx, []byte("a")))
	assert.ErrorIs(t, d.Push(ctx, []byte("b")), ErrQueueFull)

	got, err := d.Pop(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("a"), got)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = d.Pop(cancelled)
	assert.ErrorIs(t, err, context.Canceled)

	require.NoError(t, d.Close())
	require.NoError(t, d.Close())
	assert.ErrorIs(t, d.Push(ctx, []byte("c")), ErrDriverClosed)
	_, err = d.Pop(ctx)
	assert.ErrorIs(t, err, ErrDriverClosed)
}

func TestNewDriverRejectsUnknownName(t *testing.T) {
	_, err := NewDriver(context.Background(), DriverConfig{Name: "kafka"})
	assert.Error(t, err)

	d, err := NewDriver(context.Background(), DriverConfig{})
	require.NoError(t, err)
	assert.IsType(t, &MemoryDriver{}, d)
}
