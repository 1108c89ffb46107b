package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/example/storefront/internal/metrics"
	"github.com/example/storefront/internal/models"
	"github.com/example/storefront/internal/repository"
)

const (
	defaultCurrency  = "INR"
	markPaidAttempts = 3
)

// PaymentProvider creates checkout orders at the payment gateway.
type PaymentProvider interface {
	CreateOrder(ctx context.Context, req ProviderOrderRequest) (*ProviderOrder, error)
	KeyID() string
}

// ProviderOrderRequest carries the amount in the smallest currency unit.
type ProviderOrderRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

// ProviderOrder is the gateway's view of a checkout order.
type ProviderOrder struct {
	ID         string         `json:"id"`
	Entity     string         `json:"entity"`
	Amount     int64          `json:"amount"`
	AmountPaid int64          `json:"amount_paid"`
	AmountDue  int64          `json:"amount_due"`
	Currency   string         `json:"currency"`
	Receipt    string         `json:"receipt"`
	Status     string         `json:"status"`
	Attempts   int            `json:"attempts"`
	Notes      map[string]any `json:"notes,omitempty"`
	CreatedAt  int64          `json:"created_at"`
}

// Notifier queues a notification for background delivery.
type Notifier interface {
	Enqueue(ctx context.Context, kind, recipient string, payload map[string]any) error
}

// CreateOrderInput is a checkout request.
type CreateOrderInput struct {
	CustomerID    *uuid.UUID             `json:"customerId"`
	CustomerEmail string                 `json:"customerEmail"`
	Items         []models.OrderItem     `json:"items" validate:"required,min=1,dive"`
	Amount        float64                `json:"amount" validate:"gt=0"`
	Currency      string                 `json:"currency"`
	Receipt       string                 `json:"receipt"`
	Address       models.AddressSnapshot `json:"address"`
	PaymentMethod string                 `json:"paymentMethod" validate:"required,oneof=razorpay cod"`
}

// CreateOrderResult holds the stored order and, for online payments, the
// provider order the client needs to open checkout.
type CreateOrderResult struct {
	Order         *models.Order  `json:"dbOrder"`
	ProviderOrder *ProviderOrder `json:"order,omitempty"`
	KeyID         string         `json:"keyId,omitempty"`
}

// MarkPaidInput identifies a captured payment plus optional fields used to
// fill gaps in the stored order.
type MarkPaidInput struct {
	ProviderOrderID   string
	ProviderPaymentID string
	Signature         string
	Source            string

	CustomerID    *uuid.UUID
	CustomerEmail string
	Items         []models.OrderItem
	Amount        float64
	Currency      string
	Address       models.AddressSnapshot
}

// OrderService creates orders and reconciles payments against them.
type OrderService struct {
	store    repository.Store
	provider PaymentProvider
	notifier Notifier
	now      func() time.Time
	log      *zap.Logger
}

func NewOrderService(store repository.Store, provider PaymentProvider, notifier Notifier) *OrderService {
	return &OrderService{
		store:    store,
		provider: provider,
		notifier: notifier,
		now:      func() time.Time { return time.Now().UTC() },
		log:      zap.L().With(zap.String("component", "orders")),
	}
}

// Create validates the checkout and stores the order. Cash-on-delivery
// orders are stored as cod_pending. Online orders are registered with the
// provider first; a failed local write after that is logged and the
// provider order is still returned so payment can proceed.
func (s *OrderService) Create(ctx context.Context, in CreateOrderInput) (*CreateOrderResult, error) {
	in.PaymentMethod = strings.ToLower(strings.TrimSpace(in.PaymentMethod))
	if err := validate.Struct(in); err != nil {
		return nil, validationError(err)
	}

	if in.Currency == "" {
		in.Currency = defaultCurrency
	}
	if in.Receipt == "" {
		in.Receipt = fmt.Sprintf("rcpt_%d", s.now().UnixMilli())
	}
	if in.CustomerID != nil && in.CustomerEmail == "" {
		customer, err := s.store.Customers().FindByID(ctx, *in.CustomerID)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, NewError(KindValidation, "customer not found")
		case err != nil:
			return nil, Wrap(KindInternal, "failed to load customer", err)
		case customer.Email != nil:
			in.CustomerEmail = *customer.Email
		}
	}

	order := &models.Order{
		CustomerID:    in.CustomerID,
		CustomerEmail: strings.ToLower(strings.TrimSpace(in.CustomerEmail)),
		Items:         datatypes.NewJSONSlice(in.Items),
		Amount:        in.Amount,
		Currency:      in.Currency,
		Receipt:       in.Receipt,
		Address:       in.Address,
		PaymentMethod: in.PaymentMethod,
	}

	if in.PaymentMethod == models.PaymentMethodCOD {
		if err := s.store.Orders().Create(ctx, order); err != nil {
			return nil, Wrap(KindInternal, "failed to save order", err)
		}
		metrics.OrdersCreated.WithLabelValues(models.PaymentMethodCOD).Inc()
		s.log.Info("cod order created", zap.String("order_id", order.ID.String()), zap.Float64("amount", order.Amount))
		s.enqueue(ctx, models.NotificationAdminOrderAlert, "", order, "cod_created")
		return &CreateOrderResult{Order: order}, nil
	}

	if s.provider == nil {
		return nil, NewError(KindConfig, "online payments are not configured")
	}
	providerOrder, err := s.provider.CreateOrder(ctx, ProviderOrderRequest{
		Amount:   toMinorUnits(in.Amount),
		Currency: in.Currency,
		Receipt:  in.Receipt,
	})
	if err != nil {
		var svcErr *Error
		if errors.As(err, &svcErr) {
			return nil, svcErr
		}
		return nil, Wrap(KindUpstream, "failed to create payment order", err)
	}

	providerID := providerOrder.ID
	order.RazorpayOrderID = &providerID
	order.PaymentStatus = models.PaymentStatusPending
	order.PaymentDetails = datatypes.JSONMap{"provider_status": providerOrder.Status}
	metrics.OrdersCreated.WithLabelValues(models.PaymentMethodRazorpay).Inc()

	result := &CreateOrderResult{ProviderOrder: providerOrder, KeyID: s.provider.KeyID()}
	if err := s.store.Orders().Create(ctx, order); err != nil {
		s.log.Error("provider order created but local save failed",
			zap.String("provider_order_id", providerID),
			zap.String("receipt", in.Receipt),
			zap.Float64("amount", in.Amount),
			zap.Error(err))
		return result, nil
	}
	result.Order = order
	return result, nil
}

// MarkPaid moves the order for in.ProviderOrderID to paid, creating it from
// in when no local order exists. Replays refresh the stored fields but
// report transitioned only for the first move to paid.
func (s *OrderService) MarkPaid(ctx context.Context, in MarkPaidInput) (*models.Order, bool, error) {
	if in.ProviderOrderID == "" || in.ProviderPaymentID == "" {
		return nil, false, NewError(KindValidation, "provider order and payment ids are required")
	}

	var (
		order        *models.Order
		transitioned bool
		err          error
	)
	for attempt := 1; attempt <= markPaidAttempts; attempt++ {
		order, transitioned, err = s.markPaidOnce(ctx, in)
		if errors.Is(err, repository.ErrStale) || errors.Is(err, repository.ErrDuplicate) {
			s.log.Debug("mark paid raced, retrying",
				zap.String("provider_order_id", in.ProviderOrderID),
				zap.Int("attempt", attempt))
			continue
		}
		break
	}
	if err != nil {
		return nil, false, Wrap(KindInternal, "failed to save payment", err)
	}

	if transitioned {
		s.log.Info("order paid",
			zap.String("order_id", order.ID.String()),
			zap.String("provider_order_id", in.ProviderOrderID),
			zap.String("source", in.Source))
		if order.CustomerEmail != "" {
			s.enqueue(ctx, models.NotificationOrderConfirmation, order.CustomerEmail, order, "paid")
		}
		s.enqueue(ctx, models.NotificationAdminOrderAlert, "", order, "paid")
	}
	return order, transitioned, nil
}

func (s *OrderService) markPaidOnce(ctx context.Context, in MarkPaidInput) (*models.Order, bool, error) {
	var (
		order        *models.Order
		transitioned bool
	)
	err := s.store.Transaction(ctx, func(ctx context.Context, tx repository.Store) error {
		existing, err := tx.Orders().FindByProviderOrderID(ctx, in.ProviderOrderID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return err
		}

		now := s.now()
		if existing == nil {
			providerID := in.ProviderOrderID
			order = &models.Order{
				PaymentMethod:   models.PaymentMethodRazorpay,
				RazorpayOrderID: &providerID,
				PaymentDetails:  datatypes.JSONMap{"synthesized": true},
			}
			mergeReconciliation(order, in)
			applyPaid(order, in, now)
			if err := tx.Orders().Create(ctx, order); err != nil {
				return err
			}
			s.log.Warn("payment captured for unknown order, synthesized one",
				zap.String("provider_order_id", in.ProviderOrderID),
				zap.String("source", in.Source))
			transitioned = true
			return nil
		}

		wasPaid := existing.PaymentStatus == models.PaymentStatusPaid
		mergeReconciliation(existing, in)
		applyPaid(existing, in, now)
		if err := tx.Orders().Update(ctx, existing); err != nil {
			return err
		}
		order = existing
		transitioned = !wasPaid
		return nil
	})
	return order, transitioned, err
}

// mergeReconciliation fills only the fields the order is missing.
func mergeReconciliation(order *models.Order, in MarkPaidInput) {
	if order.CustomerID == nil && in.CustomerID != nil {
		id := *in.CustomerID
		order.CustomerID = &id
	}
	if order.CustomerEmail == "" && in.CustomerEmail != "" {
		order.CustomerEmail = strings.ToLower(strings.TrimSpace(in.CustomerEmail))
	}
	if len(order.Items) == 0 && len(in.Items) > 0 {
		order.Items = datatypes.NewJSONSlice(in.Items)
	}
	if order.Amount <= 0 && in.Amount > 0 {
		order.Amount = in.Amount
	}
	if order.Currency == "" {
		order.Currency = in.Currency
	}
	if order.Address.IsZero() && !in.Address.IsZero() {
		order.Address = in.Address
	}
}

func applyPaid(order *models.Order, in MarkPaidInput, now time.Time) {
	order.PaymentStatus = models.PaymentStatusPaid
	order.RazorpayPaymentID = in.ProviderPaymentID
	// Webhook signatures cover the event body, so they never replace a
	// checkout signature.
	if in.Signature != "" && (in.Source != "webhook" || order.RazorpaySignature == "") {
		order.RazorpaySignature = in.Signature
	}
	if order.PaidAt == nil {
		order.PaidAt = &now
	}
	if order.PaymentDetails == nil {
		order.PaymentDetails = datatypes.JSONMap{}
	}
	if in.Source != "" {
		order.PaymentDetails["source"] = in.Source
	}
	order.PaymentDetails["payment_id"] = in.ProviderPaymentID
}

func (s *OrderService) enqueue(ctx context.Context, kind, recipient string, order *models.Order, event string) {
	if s.notifier == nil {
		return
	}
	payload := map[string]any{"order_id": order.ID.String(), "event": event}
	if err := s.notifier.Enqueue(ctx, kind, recipient, payload); err != nil {
		s.log.Error("failed to queue notification",
			zap.String("kind", kind),
			zap.String("order_id", order.ID.String()),
			zap.Error(err))
	}
}

// Get returns an order owned by customerID.
func (s *OrderService) Get(ctx context.Context, customerID, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.Find(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.CustomerID == nil || *order.CustomerID != customerID {
		return nil, NewError(KindNotFound, "order not found")
	}
	return order, nil
}

// Find loads any order by id.
func (s *OrderService) Find(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.store.Orders().FindByID(ctx, orderID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, NewError(KindNotFound, "order not found")
	}
	if err != nil {
		return nil, Wrap(KindInternal, "failed to load order", err)
	}
	return order, nil
}

// List returns the customer's orders, newest first.
func (s *OrderService) List(ctx context.Context, customerID uuid.UUID, page repository.Page) ([]models.Order, int64, error) {
	return s.AdminList(ctx, repository.OrderFilter{CustomerID: &customerID}, page)
}

func (s *OrderService) AdminList(ctx context.Context, filter repository.OrderFilter, page repository.Page) ([]models.Order, int64, error) {
	orders, total, err := s.store.Orders().List(ctx, filter, page)
	if err != nil {
		return nil, 0, Wrap(KindInternal, "failed to list orders", err)
	}
	if orders == nil {
		orders = []models.Order{}
	}
	return orders, total, nil
}

func (s *OrderService) Stats(ctx context.Context) (*repository.OrderStats, error) {
	stats, err := s.store.Orders().Stats(ctx)
	if err != nil {
		return nil, Wrap(KindInternal, "failed to load stats", err)
	}
	return stats, nil
}

func toMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
