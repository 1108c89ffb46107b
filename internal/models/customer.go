package models

import (
	"time"
)

// Channel identifies how a customer receives one-time codes.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelPhone Channel = "phone"
)

// IdentityKey is the normalized natural key of a customer.
type IdentityKey struct {
	Channel Channel `json:"channel"`
	Value   string  `json:"value"`
}

func (k IdentityKey) String() string {
	return string(k.Channel) + ":" + k.Value
}

// Customer represents a storefront identity reachable by email or phone.
// OTP and OTPExpiresAt are written and cleared together.
type Customer struct {
	BaseModel
	Name         string            `gorm:"not null;default:''" json:"name"`
	Email        *string           `gorm:"uniqueIndex" json:"email,omitempty"`
	Phone        *string           `gorm:"uniqueIndex" json:"phone,omitempty"`
	OTP          *string           `json:"-"`
	OTPExpiresAt *time.Time        `json:"-"`
	Addresses    []CustomerAddress `gorm:"foreignKey:CustomerID;constraint:OnDelete:CASCADE" json:"addresses,omitempty"`
}

// Key returns the identity key the customer was registered with.
func (c *Customer) Key() IdentityKey {
	if c.Email != nil && *c.Email != "" {
		return IdentityKey{Channel: ChannelEmail, Value: *c.Email}
	}
	if c.Phone != nil {
		return IdentityKey{Channel: ChannelPhone, Value: *c.Phone}
	}
	return IdentityKey{}
}

// SetKey stores key in the matching column.
func (c *Customer) SetKey(key IdentityKey) {
	value := key.Value
	switch key.Channel {
	case ChannelEmail:
		c.Email = &value
	case ChannelPhone:
		c.Phone = &value
	}
}

// OTPSession holds a code for an identity that has no Customer record yet.
type OTPSession struct {
	BaseModel
	Key          string    `gorm:"column:identity_key;uniqueIndex;not null" json:"key"`
	Channel      Channel   `gorm:"not null" json:"channel"`
	OTP          string    `gorm:"not null" json:"-"`
	OTPExpiresAt time.Time `json:"otp_expires_at"`
}
