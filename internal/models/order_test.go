package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplyPaymentDefaults(t *testing.T) {
	cod := Order{PaymentMethod: PaymentMethodCOD}
	cod.ApplyPaymentDefaults()
	assert.Equal(t, PaymentStatusCODPending, cod.PaymentStatus)
	assert.True(t, cod.CashOnDelivery)
	assert.Equal(t, "INR", cod.Currency)
	assert.Equal(t, 1, cod.Version)

	failed := Order{PaymentMethod: PaymentMethodCOD, PaymentStatus: PaymentStatusFailed}
	failed.ApplyPaymentDefaults()
	assert.Equal(t, PaymentStatusFailed, failed.PaymentStatus)

	online := Order{PaymentMethod: PaymentMethodRazorpay, Currency: "USD"}
	online.ApplyPaymentDefaults()
	assert.Equal(t, PaymentStatusPending, online.PaymentStatus)
	assert.False(t, online.CashOnDelivery)
	assert.Equal(t, "USD", online.Currency)
}

func TestCustomerKey(t *testing.T) {
	var c Customer
	c.SetKey(IdentityKey{Channel: ChannelPhone, Value: "+919876543210"})
	assert.Equal(t, IdentityKey{Channel: ChannelPhone, Value: "+919876543210"}, c.Key())

	c.SetKey(IdentityKey{Channel: ChannelEmail, Value: "a@b.co"})
	assert.Equal(t, ChannelEmail, c.Key().Channel)
	assert.Equal(t, "email:a@b.co", c.Key().String())
}
