package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/example/storefront/internal/database"
	"github.com/example/storefront/internal/models"
	"github.com/example/storefront/internal/repository/gormrepo"
)

const testSecret = "test-jwt-secret"

func newTestStore(t *testing.T) *gormrepo.Store {
	t.Helper()
	db, err := database.Connect("sqlite", "file::memory:", false)
	require.NoError(t, err)
	store := gormrepo.New(db)
	require.NoError(t, store.Migrate(context.Background()))
	t.Cleanup(func() { _ = store.Close(context.Background()) })
	return store
}

type clock struct{ now time.Time }

func newClock() *clock {
	return &clock{now: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time { return c.now }

func (c *clock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type sentCode struct {
	Key  models.IdentityKey
	Code string
}

type fakeSender struct {
	mu   sync.Mutex
	sent []sentCode
	err  error
}

func (f *fakeSender) SendOTP(_ context.Context, key models.IdentityKey, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentCode{Key: key, Code: code})
	return f.err
}

func (f *fakeSender) last(t *testing.T) string {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.sent, "no code was sent")
	return f.sent[len(f.sent)-1].Code
}

type fakeProvider struct {
	calls   int
	lastReq ProviderOrderRequest
	orderID string
	err     error
}

func (f *fakeProvider) CreateOrder(_ context.Context, req ProviderOrderRequest) (*ProviderOrder, error) {
	f.calls++
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	id := f.orderID
	if id == "" {
		id = "order_test123"
	}
	return &ProviderOrder{ID: id, Entity: "order", Amount: req.Amount, Currency: req.Currency, Receipt: req.Receipt, Status: "created"}, nil
}

func (f *fakeProvider) KeyID() string { return "rzp_test_key" }

type queued struct {
	Kind      string
	Recipient string
	Payload   map[string]any
}

type fakeNotifier struct {
	mu    sync.Mutex
	items []queued
	err   error
}

func (f *fakeNotifier) Enqueue(_ context.Context, kind, recipient string, payload map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.items = append(f.items, queued{Kind: kind, Recipient: recipient, Payload: payload})
	return nil
}

func (f *fakeNotifier) kinds() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.items))
	for _, item := range f.items {
		out = append(out, item.Kind)
	}
	return out
}

var errBoom = errors.New("boom")

func strPtr(s string) *string { return &s }

func completeAddress() models.AddressSnapshot {
	return models.AddressSnapshot{
		Name:    "Asha Rao",
		Phone:   "9876543210",
		Line1:   "12 MG Road",
		City:    "Bengaluru",
		Pincode: "560001",
	}
}
