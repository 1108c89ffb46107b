package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	NotificationOrderConfirmation = "order_confirmation"
	NotificationAdminOrderAlert   = "admin_order_alert"
)

const (
	NotificationPending = "pending"
	NotificationSending = "sending"
	NotificationSent    = "sent"
	NotificationFailed  = "failed"
)

// Notification is an outbox row delivered by the background dispatcher.
type Notification struct {
	BaseModel
	Kind          string            `gorm:"not null;index" json:"kind"`
	Recipient     string            `json:"recipient"`
	Payload       datatypes.JSONMap `json:"payload"`
	Status        string            `gorm:"not null;index" json:"status"`
	Attempts      int               `gorm:"not null;default:0" json:"attempts"`
	LastError     string            `json:"last_error,omitempty"`
	NextAttemptAt time.Time         `gorm:"index" json:"next_attempt_at"`
	SentAt        *time.Time        `json:"sent_at,omitempty"`
}
