package handlers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/storefront/internal/models"
	"github.com/example/storefront/internal/repository"
	"github.com/example/storefront/internal/services"
	"github.com/example/storefront/internal/utils"
)

// NotificationAdmin lists and retries outbox rows.
type NotificationAdmin interface {
	List(ctx context.Context, status string, page repository.Page) ([]models.Notification, int64, error)
	Retry(ctx context.Context, id uuid.UUID) error
}

// AdminHandler manages admin-only endpoints.
type AdminHandler struct {
	orders        *services.OrderService
	notifications NotificationAdmin
}

// NewAdminHandler constructs AdminHandler.
func NewAdminHandler(orders *services.OrderService, notifications NotificationAdmin) *AdminHandler {
	return &AdminHandler{orders: orders, notifications: notifications}
}

// DashboardStats returns order counts and revenue by payment status.
func (h *AdminHandler) DashboardStats(c *fiber.Ctx) error {
	stats, err := h.orders.Stats(c.UserContext())
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    stats,
	})
}

// ListOrders filters every order by payment_status and payment_method.
func (h *AdminHandler) ListOrders(c *fiber.Ctx) error {
	pagination := utils.ParsePagination(c)
	filter := repository.OrderFilter{
		PaymentStatus: c.Query("payment_status"),
		PaymentMethod: c.Query("payment_method"),
	}

	orders, total, err := h.orders.AdminList(c.UserContext(), filter, pagination.Window())
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"data":       orders,
		"pagination": pagination.Meta(total),
	})
}

func (h *AdminHandler) ListNotifications(c *fiber.Ctx) error {
	pagination := utils.ParsePagination(c)

	rows, total, err := h.notifications.List(c.UserContext(), c.Query("status"), pagination.Window())
	if err != nil {
		return err
	}
	if rows == nil {
		rows = []models.Notification{}
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"data":       rows,
		"pagination": pagination.Meta(total),
	})
}

// RetryNotification requeues a failed notification.
func (h *AdminHandler) RetryNotification(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid notification id")
	}

	if err := h.notifications.Retry(c.UserContext(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "no failed notification with that id")
		}
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "notification queued",
	})
}
