package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/example/storefront/internal/models"
	"github.com/example/storefront/internal/repository"
)

// NotificationHandlers deliver queued notifications. Payloads carry only
// the order id; the order is reloaded so deliveries see its latest state.
type NotificationHandlers struct {
	store    repository.Store
	mail     *MailService
	telegram *TelegramService
}

func NewNotificationHandlers(store repository.Store, mail *MailService, telegram *TelegramService) *NotificationHandlers {
	return &NotificationHandlers{store: store, mail: mail, telegram: telegram}
}

func (h *NotificationHandlers) loadOrder(ctx context.Context, n *models.Notification) (*models.Order, error) {
	raw, _ := n.Payload["order_id"].(string)
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("notification %s: bad order id %q", n.ID, raw)
	}
	return h.store.Orders().FindByID(ctx, id)
}

// OrderConfirmation emails the customer once their order is paid.
func (h *NotificationHandlers) OrderConfirmation(ctx context.Context, n *models.Notification) error {
	order, err := h.loadOrder(ctx, n)
	if err != nil {
		return err
	}
	return h.mail.SendOrderConfirmation(ctx, n.Recipient, order)
}

// AdminOrderAlert posts the order to the admin Telegram chat.
func (h *NotificationHandlers) AdminOrderAlert(ctx context.Context, n *models.Notification) error {
	order, err := h.loadOrder(ctx, n)
	if err != nil {
		return err
	}
	event, _ := n.Payload["event"].(string)
	return h.telegram.NotifyOrder(ctx, order, event)
}
