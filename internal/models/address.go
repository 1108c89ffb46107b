package models

import (
	"github.com/google/uuid"
)

type CustomerAddress struct {
	BaseModel
	CustomerID uuid.UUID `gorm:"type:uuid;index" json:"customer_id"`
	Name       string    `json:"name"`
	Phone      string    `json:"phone"`
	Line1      string    `json:"line1"`
	Line2      string    `json:"line2"`
	City       string    `json:"city"`
	Pincode    string    `json:"pincode"`
	IsDefault  bool      `json:"is_default"`
}

// AddressSnapshot is the delivery address copied onto an order.
type AddressSnapshot struct {
	Name    string `json:"name" validate:"required"`
	Phone   string `json:"phone" validate:"required"`
	Line1   string `json:"line1" validate:"required"`
	Line2   string `json:"line2"`
	City    string `json:"city" validate:"required"`
	Pincode string `json:"pincode" validate:"required"`
}

// IsZero reports whether no field has been set.
func (a AddressSnapshot) IsZero() bool {
	return a == AddressSnapshot{}
}

// Snapshot copies the address into an order snapshot.
func (a CustomerAddress) Snapshot() AddressSnapshot {
	return AddressSnapshot{
		Name:    a.Name,
		Phone:   a.Phone,
		Line1:   a.Line1,
		Line2:   a.Line2,
		City:    a.City,
		Pincode: a.Pincode,
	}
}
