package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/storefront/internal/middleware"
	"github.com/example/storefront/internal/models"
	"github.com/example/storefront/internal/services"
	"github.com/example/storefront/internal/utils"
)

// OrderHandler manages order endpoints.
type OrderHandler struct {
	orders *services.OrderService
}

// NewOrderHandler constructs OrderHandler.
func NewOrderHandler(orders *services.OrderService) *OrderHandler {
	return &OrderHandler{orders: orders}
}

// CreateOrder places a razorpay or cash-on-delivery order. Razorpay orders
// return the provider order for checkout alongside the stored one.
func (h *OrderHandler) CreateOrder(c *fiber.Ctx) error {
	var req services.CreateOrderInput
	if err := parseBody(c, &req); err != nil {
		return err
	}
	return h.create(c, req)
}

// CreateCODOrder places a cash-on-delivery order regardless of the
// paymentMethod in the body.
func (h *OrderHandler) CreateCODOrder(c *fiber.Ctx) error {
	var req services.CreateOrderInput
	if err := parseBody(c, &req); err != nil {
		return err
	}
	req.PaymentMethod = models.PaymentMethodCOD
	return h.create(c, req)
}

func (h *OrderHandler) create(c *fiber.Ctx, req services.CreateOrderInput) error {
	if userID, ok := middleware.GetCurrentUserID(c); ok {
		req.CustomerID = &userID
	}

	result, err := h.orders.Create(c.UserContext(), req)
	if err != nil {
		return err
	}

	if result.ProviderOrder == nil {
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"success": true,
			"order":   result.Order,
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"order":   result.ProviderOrder,
		"keyId":   result.KeyID,
		"dbOrder": result.Order,
	})
}

// ListOrders returns the bearer's orders, newest first.
func (h *OrderHandler) ListOrders(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	pagination := utils.ParsePagination(c)
	orders, total, err := h.orders.List(c.UserContext(), userID, pagination.Window())
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"data":       orders,
		"pagination": pagination.Meta(total),
	})
}

// GetOrder returns one of the bearer's orders.
func (h *OrderHandler) GetOrder(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	orderID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid order id")
	}

	order, err := h.orders.Get(c.UserContext(), userID, orderID)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    order,
	})
}
