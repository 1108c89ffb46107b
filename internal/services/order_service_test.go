package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/storefront/internal/models"
	"github.com/example/storefront/internal/repository"
	"github.com/example/storefront/internal/repository/gormrepo"
)

func newOrderService(t *testing.T) (*OrderService, *gormrepo.Store, *fakeProvider, *fakeNotifier) {
	t.Helper()
	store := newTestStore(t)
	provider := &fakeProvider{}
	notifier := &fakeNotifier{}
	svc := NewOrderService(store, provider, notifier)
	svc.now = newClock().Now
	return svc, store, provider, notifier
}

func sampleItems() []models.OrderItem {
	return []models.OrderItem{
		{ProductID: "p1", Name: "Mango Pickle", Qty: 2, Price: 100},
		{ProductID: "p2", Name: "Lemon Pickle", Qty: 1, Price: 50},
	}
}

func TestCreateCODOrderIsCODPending(t *testing.T) {
	ctx := context.Background()
	svc, store, provider, notifier := newOrderService(t)

	res, err := svc.Create(ctx, CreateOrderInput{
		Items:         sampleItems(),
		Amount:        250,
		Address:       completeAddress(),
		PaymentMethod: "COD",
	})
	require.NoError(t, err)
	require.NotNil(t, res.Order)
	assert.Nil(t, res.ProviderOrder)
	assert.Zero(t, provider.calls)

	stored, err := store.Orders().FindByID(ctx, res.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentMethodCOD, stored.PaymentMethod)
	assert.Equal(t, models.PaymentStatusCODPending, stored.PaymentStatus)
	assert.True(t, stored.CashOnDelivery)
	assert.Equal(t, 250.0, stored.Amount)
	assert.Equal(t, "INR", stored.Currency)
	assert.Equal(t, "rcpt_1709287200000", stored.Receipt)
	assert.Len(t, stored.Items, 2)
	assert.Equal(t, "560001", stored.Address.Pincode)

	assert.Equal(t, []string{models.NotificationAdminOrderAlert}, notifier.kinds())
}

func TestCreateRejectsInvalidInputBeforeProvider(t *testing.T) {
	ctx := context.Background()
	svc, _, provider, _ := newOrderService(t)

	noPincode := completeAddress()
	noPincode.Pincode = ""

	cases := map[string]CreateOrderInput{
		"zero amount":     {Items: sampleItems(), Amount: 0, Address: completeAddress(), PaymentMethod: "razorpay"},
		"negative amount": {Items: sampleItems(), Amount: -5, Address: completeAddress(), PaymentMethod: "razorpay"},
		"no items":        {Amount: 250, Address: completeAddress(), PaymentMethod: "razorpay"},
		"empty items":     {Items: []models.OrderItem{}, Amount: 250, Address: completeAddress(), PaymentMethod: "razorpay"},
		"bad item qty":    {Items: []models.OrderItem{{Name: "x", Qty: 0, Price: 1}}, Amount: 250, Address: completeAddress(), PaymentMethod: "razorpay"},
		"no pincode":      {Items: sampleItems(), Amount: 250, Address: noPincode, PaymentMethod: "razorpay"},
		"unknown method":  {Items: sampleItems(), Amount: 250, Address: completeAddress(), PaymentMethod: "upi"},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Create(ctx, in)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
	assert.Zero(t, provider.calls)
}

func TestCreateRazorpayOrder(t *testing.T) {
	ctx := context.Background()
	svc, store, provider, notifier := newOrderService(t)

	res, err := svc.Create(ctx, CreateOrderInput{
		CustomerEmail: "Asha@Example.com",
		Items:         sampleItems(),
		Amount:        250.5,
		Address:       completeAddress(),
		PaymentMethod: "razorpay",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, provider.calls)
	assert.Equal(t, int64(25050), provider.lastReq.Amount)
	assert.Equal(t, "INR", provider.lastReq.Currency)
	assert.Equal(t, "rzp_test_key", res.KeyID)
	require.NotNil(t, res.ProviderOrder)
	require.NotNil(t, res.Order)

	stored, err := store.Orders().FindByProviderOrderID(ctx, "order_test123")
	require.NoError(t, err)
	assert.Equal(t, res.Order.ID, stored.ID)
	assert.Equal(t, models.PaymentStatusPending, stored.PaymentStatus)
	assert.Equal(t, "asha@example.com", stored.CustomerEmail)
	assert.Empty(t, notifier.kinds(), "unpaid online orders send nothing")
}

func TestCreateRazorpayReportsSuccessWhenLocalSaveFails(t *testing.T) {
	ctx := context.Background()
	svc, store, _, _ := newOrderService(t)

	taken := "order_test123"
	require.NoError(t, store.Orders().Create(ctx, &models.Order{RazorpayOrderID: &taken, PaymentMethod: models.PaymentMethodRazorpay, Amount: 1}))

	res, err := svc.Create(ctx, CreateOrderInput{
		Items:         sampleItems(),
		Amount:        250,
		Address:       completeAddress(),
		PaymentMethod: "razorpay",
	})
	require.NoError(t, err)
	require.NotNil(t, res.ProviderOrder)
	assert.Equal(t, "order_test123", res.ProviderOrder.ID)
	assert.Nil(t, res.Order)
}

func TestCreateRazorpayProviderFailure(t *testing.T) {
	ctx := context.Background()
	svc, store, provider, _ := newOrderService(t)
	provider.err = errBoom

	_, err := svc.Create(ctx, CreateOrderInput{
		Items:         sampleItems(),
		Amount:        250,
		Address:       completeAddress(),
		PaymentMethod: "razorpay",
	})
	assert.ErrorIs(t, err, ErrUpstream)

	_, total, err := store.Orders().List(ctx, repository.OrderFilter{}, repository.Page{})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestMarkPaidIsIdempotent(t *testing.T) {
	ctx := context.Background()
	svc, store, _, notifier := newOrderService(t)

	created, err := svc.Create(ctx, CreateOrderInput{
		CustomerEmail: "asha@example.com",
		Items:         sampleItems(),
		Amount:        250,
		Address:       completeAddress(),
		PaymentMethod: "razorpay",
	})
	require.NoError(t, err)

	in := MarkPaidInput{
		ProviderOrderID:   "order_test123",
		ProviderPaymentID: "pay_1",
		Signature:         "sig",
		Source:            "checkout",
		Amount:            999,
	}
	first, transitioned, err := svc.MarkPaid(ctx, in)
	require.NoError(t, err)
	assert.True(t, transitioned)
	assert.Equal(t, created.Order.ID, first.ID)
	require.NotNil(t, first.PaidAt)

	second, transitioned, err := svc.MarkPaid(ctx, in)
	require.NoError(t, err)
	assert.False(t, transitioned)
	assert.Equal(t, first.ID, second.ID)
	assert.True(t, first.PaidAt.Equal(*second.PaidAt))

	orders, total, err := store.Orders().List(ctx, repository.OrderFilter{}, repository.Page{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, models.PaymentStatusPaid, orders[0].PaymentStatus)
	assert.Equal(t, 250.0, orders[0].Amount, "existing amount is never overwritten")
	assert.Equal(t, "pay_1", orders[0].RazorpayPaymentID)
	assert.Equal(t, "sig", orders[0].RazorpaySignature)

	assert.ElementsMatch(t,
		[]string{models.NotificationOrderConfirmation, models.NotificationAdminOrderAlert},
		notifier.kinds(), "notifications go out once")
}

func TestMarkPaidSynthesizesMissingOrder(t *testing.T) {
	ctx := context.Background()
	svc, store, _, _ := newOrderService(t)

	order, transitioned, err := svc.MarkPaid(ctx, MarkPaidInput{
		ProviderOrderID:   "order_orphan",
		ProviderPaymentID: "pay_9",
		Signature:         "sig",
		Items:             sampleItems(),
		Amount:            250,
		Address:           completeAddress(),
	})
	require.NoError(t, err)
	assert.True(t, transitioned)

	stored, err := store.Orders().FindByProviderOrderID(ctx, "order_orphan")
	require.NoError(t, err)
	assert.Equal(t, order.ID, stored.ID)
	assert.Equal(t, models.PaymentStatusPaid, stored.PaymentStatus)
	assert.Equal(t, models.PaymentMethodRazorpay, stored.PaymentMethod)
	assert.Equal(t, true, stored.PaymentDetails["synthesized"])
	assert.Equal(t, 250.0, stored.Amount)
	assert.Len(t, stored.Items, 2)
}

func TestMarkPaidFillsOnlyMissingFields(t *testing.T) {
	ctx := context.Background()
	svc, store, _, _ := newOrderService(t)

	pid := "order_sparse"
	require.NoError(t, store.Orders().Create(ctx, &models.Order{
		RazorpayOrderID: &pid,
		PaymentMethod:   models.PaymentMethodRazorpay,
		Amount:          120,
	}))

	order, _, err := svc.MarkPaid(ctx, MarkPaidInput{
		ProviderOrderID:   pid,
		ProviderPaymentID: "pay_2",
		Items:             sampleItems(),
		Amount:            999,
		Address:           completeAddress(),
		CustomerEmail:     "late@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, 120.0, order.Amount)
	assert.Len(t, order.Items, 2)
	assert.Equal(t, "Bengaluru", order.Address.City)
	assert.Equal(t, "late@example.com", order.CustomerEmail)
}

func TestGetHidesOtherCustomersOrders(t *testing.T) {
	ctx := context.Background()
	svc, store, _, _ := newOrderService(t)
	owner := &models.Customer{Name: "Asha", Email: strPtr("asha@example.com")}
	other := &models.Customer{Name: "Ravi", Email: strPtr("ravi@example.com")}
	require.NoError(t, store.Customers().Create(ctx, owner))
	require.NoError(t, store.Customers().Create(ctx, other))

	res, err := svc.Create(ctx, CreateOrderInput{
		CustomerID:    &owner.ID,
		Items:         sampleItems(),
		Amount:        250,
		Address:       completeAddress(),
		PaymentMethod: "cod",
	})
	require.NoError(t, err)
	assert.Equal(t, "asha@example.com", res.Order.CustomerEmail)

	got, err := svc.Get(ctx, owner.ID, res.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, res.Order.ID, got.ID)

	_, err = svc.Get(ctx, other.ID, res.Order.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	orders, total, err := svc.List(ctx, owner.ID, repository.Page{Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Len(t, orders, 1)
}

func TestMarkPaidConcurrentDuplicatesConverge(t *testing.T) {
	ctx := context.Background()
	svc, store, _, notifier := newOrderService(t)

	_, err := svc.Create(ctx, CreateOrderInput{
		CustomerEmail: "asha@example.com",
		Items:         sampleItems(),
		Amount:        250,
		Address:       completeAddress(),
		PaymentMethod: "razorpay",
	})
	require.NoError(t, err)

	in := MarkPaidInput{ProviderOrderID: "order_test123", ProviderPaymentID: "pay_1", Signature: "sig"}
	assertConvergent(t, svc, in)

	orders, total, err := store.Orders().List(ctx, repository.OrderFilter{}, repository.Page{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, models.PaymentStatusPaid, orders[0].PaymentStatus)
	assert.Len(t, notifier.kinds(), 2, "notifications go out once")
}

func TestMarkPaidConcurrentSynthesisCreatesOneOrder(t *testing.T) {
	ctx := context.Background()
	svc, store, _, _ := newOrderService(t)

	assertConvergent(t, svc, MarkPaidInput{
		ProviderOrderID:   "order_orphan",
		ProviderPaymentID: "pay_9",
		Signature:         "sig",
		Items:             sampleItems(),
		Amount:            250,
		Address:           completeAddress(),
	})

	orders, total, err := store.Orders().List(ctx, repository.OrderFilter{}, repository.Page{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, models.PaymentStatusPaid, orders[0].PaymentStatus)
}

// assertConvergent fans in out to several callers and checks that all
// succeed with the same order and exactly one performs the transition.
func assertConvergent(t *testing.T, svc *OrderService, in MarkPaidInput) {
	t.Helper()
	const callers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		ids     = map[string]int{}
		changed int
		errs    []error
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			order, transitioned, err := svc.MarkPaid(context.Background(), in)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			ids[order.ID.String()]++
			if transitioned {
				changed++
			}
		}()
	}
	wg.Wait()

	require.Empty(t, errs)
	assert.Len(t, ids, 1, "every caller sees the same order")
	assert.Equal(t, 1, changed)
}
