package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/storefront/internal/metrics"
	"github.com/example/storefront/internal/models"
)

// SupportHint is returned when a verified payment could not be recorded.
const SupportHint = "Payment verified but order save failed. Please contact support with your payment id."

// VerifyPaymentInput is the client callback after checkout. The optional
// fields fill gaps in the stored order.
type VerifyPaymentInput struct {
	OrderID   string `json:"razorpay_order_id"`
	PaymentID string `json:"razorpay_payment_id"`
	Signature string `json:"razorpay_signature"`

	CustomerID    *uuid.UUID             `json:"customerId,omitempty"`
	CustomerEmail string                 `json:"customerEmail,omitempty"`
	Items         []models.OrderItem     `json:"items,omitempty"`
	Amount        float64                `json:"amount,omitempty"`
	Address       models.AddressSnapshot `json:"address"`
}

// VerifyPaymentResult holds the paid order, or nil with Hint set when the
// payment was genuine but could not be stored.
type VerifyPaymentResult struct {
	Order        *models.Order `json:"order"`
	Transitioned bool          `json:"-"`
	Hint         string        `json:"message,omitempty"`
}

// WebhookResult reports what a provider event did.
type WebhookResult struct {
	Event   string        `json:"event"`
	Handled bool          `json:"handled"`
	Order   *models.Order `json:"-"`
}

// PaymentService authenticates payment callbacks before reconciling orders.
type PaymentService struct {
	orders        *OrderService
	keySecret     string
	webhookSecret string
	log           *zap.Logger
}

func NewPaymentService(orders *OrderService, keySecret, webhookSecret string) *PaymentService {
	return &PaymentService{
		orders:        orders,
		keySecret:     keySecret,
		webhookSecret: webhookSecret,
		log:           zap.L().With(zap.String("component", "payments")),
	}
}

// ComputeSignature returns hex(HMAC-SHA256(secret, orderID|paymentID)).
func ComputeSignature(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a checkout signature in constant time.
func VerifySignature(orderID, paymentID, signature, secret string) error {
	if secret == "" {
		return NewError(KindConfig, "payment verification is not configured")
	}
	expected := ComputeSignature(secret, orderID, paymentID)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return NewError(KindInvalidSignature, "invalid payment signature")
	}
	return nil
}

// VerifyWebhookSignature checks hex(HMAC-SHA256(secret, body)).
func VerifyWebhookSignature(body []byte, signature, secret string) error {
	if secret == "" {
		return NewError(KindConfig, "webhook verification is not configured")
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(strings.TrimSpace(signature))) {
		return NewError(KindInvalidSignature, "invalid webhook signature")
	}
	return nil
}

// Verify authenticates the checkout callback and marks the order paid.
// Once the signature holds, storage failures are reported as success with
// a nil order and a support hint.
func (s *PaymentService) Verify(ctx context.Context, in VerifyPaymentInput) (*VerifyPaymentResult, error) {
	in.OrderID = strings.TrimSpace(in.OrderID)
	in.PaymentID = strings.TrimSpace(in.PaymentID)
	in.Signature = strings.TrimSpace(in.Signature)
	if in.OrderID == "" || in.PaymentID == "" || in.Signature == "" {
		metrics.PaymentsVerified.WithLabelValues(string(KindValidation)).Inc()
		return nil, NewError(KindValidation, "razorpay_order_id, razorpay_payment_id and razorpay_signature are required")
	}

	if err := VerifySignature(in.OrderID, in.PaymentID, in.Signature, s.keySecret); err != nil {
		kind := KindOf(err)
		metrics.PaymentsVerified.WithLabelValues(string(kind)).Inc()
		s.log.Warn("payment verification rejected",
			zap.String("provider_order_id", in.OrderID),
			zap.String("reason", string(kind)))
		return nil, err
	}

	order, transitioned, err := s.orders.MarkPaid(ctx, MarkPaidInput{
		ProviderOrderID:   in.OrderID,
		ProviderPaymentID: in.PaymentID,
		Signature:         in.Signature,
		Source:            "checkout",
		CustomerID:        in.CustomerID,
		CustomerEmail:     in.CustomerEmail,
		Items:             in.Items,
		Amount:            in.Amount,
		Address:           in.Address,
	})
	if err != nil {
		metrics.PaymentsVerified.WithLabelValues("save_failed").Inc()
		s.log.Error("payment verified but order save failed",
			zap.String("provider_order_id", in.OrderID),
			zap.String("provider_payment_id", in.PaymentID),
			zap.Error(err))
		return &VerifyPaymentResult{Hint: SupportHint}, nil
	}

	metrics.PaymentsVerified.WithLabelValues("success").Inc()
	return &VerifyPaymentResult{Order: order, Transitioned: transitioned}, nil
}

type webhookEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID       string `json:"id"`
				OrderID  string `json:"order_id"`
				Amount   int64  `json:"amount"`
				Currency string `json:"currency"`
				Email    string `json:"email"`
			} `json:"entity"`
		} `json:"payment"`
		Order struct {
			Entity struct {
				ID string `json:"id"`
			} `json:"entity"`
		} `json:"order"`
	} `json:"payload"`
}

// HandleWebhook authenticates a provider event and reconciles captured
// payments. Unknown events are acknowledged and ignored. Storage failures
// are returned so the provider redelivers.
func (s *PaymentService) HandleWebhook(ctx context.Context, body []byte, signature string) (*WebhookResult, error) {
	if err := VerifyWebhookSignature(body, signature, s.webhookSecret); err != nil {
		s.log.Warn("webhook rejected", zap.String("reason", string(KindOf(err))))
		return nil, err
	}

	var event webhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, Wrap(KindValidation, "malformed webhook payload", err)
	}

	result := &WebhookResult{Event: event.Event}
	switch event.Event {
	case "payment.captured", "order.paid":
	default:
		s.log.Debug("webhook event ignored", zap.String("event", event.Event))
		return result, nil
	}

	entity := event.Payload.Payment.Entity
	orderID := entity.OrderID
	if orderID == "" {
		orderID = event.Payload.Order.Entity.ID
	}
	if orderID == "" || entity.ID == "" {
		return nil, NewError(KindValidation, "webhook payload is missing order or payment id")
	}

	order, _, err := s.orders.MarkPaid(ctx, MarkPaidInput{
		ProviderOrderID:   orderID,
		ProviderPaymentID: entity.ID,
		Signature:         signature,
		Source:            "webhook",
		CustomerEmail:     entity.Email,
		Amount:            float64(entity.Amount) / 100,
		Currency:          strings.ToUpper(entity.Currency),
	})
	if err != nil {
		return nil, err
	}
	result.Handled = true
	result.Order = order
	return result, nil
}
