package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	PaymentMethodRazorpay = "razorpay"
	PaymentMethodCOD      = "cod"
)

const (
	PaymentStatusPending    = "pending"
	PaymentStatusPaid       = "paid"
	PaymentStatusFailed     = "failed"
	PaymentStatusCODPending = "cod_pending"
)

type Order struct {
	BaseModel
	CustomerID        *uuid.UUID                     `gorm:"type:uuid;index" json:"customer_id"`
	CustomerEmail     string                         `json:"customer_email,omitempty"`
	Items             datatypes.JSONSlice[OrderItem] `json:"items"`
	Amount            float64                        `json:"amount"`
	Currency          string                         `gorm:"not null;default:'INR'" json:"currency"`
	Receipt           string                         `json:"receipt,omitempty"`
	Address           AddressSnapshot                `gorm:"embedded;embeddedPrefix:address_" json:"address"`
	PaymentMethod     string                         `gorm:"not null;index" json:"payment_method"`
	PaymentStatus     string                         `gorm:"not null;index" json:"payment_status"`
	CashOnDelivery    bool                           `json:"cash_on_delivery"`
	PaymentDetails    datatypes.JSONMap              `json:"payment_details,omitempty"`
	RazorpayOrderID   *string                        `gorm:"uniqueIndex" json:"razorpay_order_id,omitempty"`
	RazorpayPaymentID string                         `json:"razorpay_payment_id,omitempty"`
	RazorpaySignature string                         `json:"razorpay_signature,omitempty"`
	PaidAt            *time.Time                     `json:"paid_at,omitempty"`
	Version           int                            `gorm:"not null;default:1" json:"-"`
}

type OrderItem struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name" validate:"required"`
	Qty       int     `json:"qty" validate:"gte=1"`
	Price     float64 `json:"price" validate:"gte=0"`
}

// ApplyPaymentDefaults moves cash-on-delivery orders into cod_pending and
// fills a pending status for everything else.
func (o *Order) ApplyPaymentDefaults() {
	if o.Version == 0 {
		o.Version = 1
	}
	if o.Currency == "" {
		o.Currency = "INR"
	}
	if o.PaymentMethod == PaymentMethodCOD {
		o.CashOnDelivery = true
		if o.PaymentStatus == "" || o.PaymentStatus == PaymentStatusPending {
			o.PaymentStatus = PaymentStatusCODPending
		}
	}
	if o.PaymentStatus == "" {
		o.PaymentStatus = PaymentStatusPending
	}
}

// BeforeCreate generates the id and applies payment defaults.
func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if err := o.BaseModel.BeforeCreate(tx); err != nil {
		return err
	}
	o.ApplyPaymentDefaults()
	return nil
}

// ProviderOrderID returns the payment provider order id or "".
func (o *Order) ProviderOrderID() string {
	if o.RazorpayOrderID == nil {
		return ""
	}
	return *o.RazorpayOrderID
}
