package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/example/storefront/internal/middleware"
	"github.com/example/storefront/internal/services"
)

// RazorpaySignatureHeader carries the webhook body HMAC.
const RazorpaySignatureHeader = "X-Razorpay-Signature"

// PaymentHandler serves checkout verification and provider webhooks.
type PaymentHandler struct {
	payments *services.PaymentService
}

func NewPaymentHandler(payments *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

// Verify checks the checkout signature and marks the order paid. A charged
// customer always gets success; a storage failure is reported as a null
// order with a support message.
func (h *PaymentHandler) Verify(c *fiber.Ctx) error {
	var req services.VerifyPaymentInput
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if req.CustomerID == nil {
		if userID, ok := middleware.GetCurrentUserID(c); ok {
			req.CustomerID = &userID
		}
	}

	result, err := h.payments.Verify(c.UserContext(), req)
	if err != nil {
		return err
	}

	response := fiber.Map{
		"success": true,
		"order":   result.Order,
	}
	if result.Hint != "" {
		response["message"] = result.Hint
	}
	return c.JSON(response)
}

// Webhook reconciles provider events. It answers 200 for handled and
// ignored events so the provider stops redelivering.
func (h *PaymentHandler) Webhook(c *fiber.Ctx) error {
	result, err := h.payments.HandleWebhook(c.UserContext(), c.Body(), c.Get(RazorpaySignatureHeader))
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"event":   result.Event,
		"handled": result.Handled,
	})
}
