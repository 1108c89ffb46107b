package mongorepo

import (
	"time"

	"github.com/google/uuid"

	"github.com/example/storefront/internal/models"
)

type addressDoc struct {
	ID        string    `bson:"_id"`
	Name      string    `bson:"name"`
	Phone     string    `bson:"phone"`
	Line1     string    `bson:"line1"`
	Line2     string    `bson:"line2"`
	City      string    `bson:"city"`
	Pincode   string    `bson:"pincode"`
	IsDefault bool      `bson:"is_default"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

type customerDoc struct {
	ID           string       `bson:"_id"`
	Name         string       `bson:"name"`
	Email        *string      `bson:"email,omitempty"`
	Phone        *string      `bson:"phone,omitempty"`
	OTP          *string      `bson:"otp,omitempty"`
	OTPExpiresAt *time.Time   `bson:"otp_expires_at,omitempty"`
	Addresses    []addressDoc `bson:"addresses"`
	CreatedAt    time.Time    `bson:"created_at"`
	UpdatedAt    time.Time    `bson:"updated_at"`
}

type sessionDoc struct {
	ID           string    `bson:"_id"`
	Key          string    `bson:"identity_key"`
	Channel      string    `bson:"channel"`
	OTP          string    `bson:"otp"`
	OTPExpiresAt time.Time `bson:"otp_expires_at"`
	CreatedAt    time.Time `bson:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at"`
}

type orderItemDoc struct {
	ProductID string  `bson:"product_id"`
	Name      string  `bson:"name"`
	Qty       int     `bson:"qty"`
	Price     float64 `bson:"price"`
}

type snapshotDoc struct {
	Name    string `bson:"name"`
	Phone   string `bson:"phone"`
	Line1   string `bson:"line1"`
	Line2   string `bson:"line2"`
	City    string `bson:"city"`
	Pincode string `bson:"pincode"`
}

type orderDoc struct {
	ID                string                 `bson:"_id"`
	CustomerID        string                 `bson:"customer_id,omitempty"`
	CustomerEmail     string                 `bson:"customer_email,omitempty"`
	Items             []orderItemDoc         `bson:"items"`
	Amount            float64                `bson:"amount"`
	Currency          string                 `bson:"currency"`
	Receipt           string                 `bson:"receipt,omitempty"`
	Address           snapshotDoc            `bson:"address"`
	PaymentMethod     string                 `bson:"payment_method"`
	PaymentStatus     string                 `bson:"payment_status"`
	CashOnDelivery    bool                   `bson:"cash_on_delivery"`
	PaymentDetails    map[string]interface{} `bson:"payment_details,omitempty"`
	RazorpayOrderID   *string                `bson:"razorpay_order_id,omitempty"`
	RazorpayPaymentID string                 `bson:"razorpay_payment_id,omitempty"`
	RazorpaySignature string                 `bson:"razorpay_signature,omitempty"`
	PaidAt            *time.Time             `bson:"paid_at,omitempty"`
	Version           int                    `bson:"version"`
	CreatedAt         time.Time              `bson:"created_at"`
	UpdatedAt         time.Time              `bson:"updated_at"`
}

type notificationDoc struct {
	ID            string                 `bson:"_id"`
	Kind          string                 `bson:"kind"`
	Recipient     string                 `bson:"recipient"`
	Payload       map[string]interface{} `bson:"payload"`
	Status        string                 `bson:"status"`
	Attempts      int                    `bson:"attempts"`
	LastError     string                 `bson:"last_error"`
	NextAttemptAt time.Time              `bson:"next_attempt_at"`
	SentAt        *time.Time             `bson:"sent_at,omitempty"`
	CreatedAt     time.Time              `bson:"created_at"`
	UpdatedAt     time.Time              `bson:"updated_at"`
}

func parseID(raw string) uuid.UUID {
	id, _ := uuid.Parse(raw)
	return id
}

func base(id string, created, updated time.Time) models.BaseModel {
	return models.BaseModel{ID: parseID(id), CreatedAt: created, UpdatedAt: updated}
}

func toAddressDoc(a *models.CustomerAddress) addressDoc {
	return addressDoc{
		ID:        a.ID.String(),
		Name:      a.Name,
		Phone:     a.Phone,
		Line1:     a.Line1,
		Line2:     a.Line2,
		City:      a.City,
		Pincode:   a.Pincode,
		IsDefault: a.IsDefault,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

func (d addressDoc) model(customerID uuid.UUID) models.CustomerAddress {
	return models.CustomerAddress{
		BaseModel:  base(d.ID, d.CreatedAt, d.UpdatedAt),
		CustomerID: customerID,
		Name:       d.Name,
		Phone:      d.Phone,
		Line1:      d.Line1,
		Line2:      d.Line2,
		City:       d.City,
		Pincode:    d.Pincode,
		IsDefault:  d.IsDefault,
	}
}

func toCustomerDoc(c *models.Customer) customerDoc {
	doc := customerDoc{
		ID:           c.ID.String(),
		Name:         c.Name,
		Email:        c.Email,
		Phone:        c.Phone,
		OTP:          c.OTP,
		OTPExpiresAt: c.OTPExpiresAt,
		Addresses:    []addressDoc{},
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
	for i := range c.Addresses {
		doc.Addresses = append(doc.Addresses, toAddressDoc(&c.Addresses[i]))
	}
	return doc
}

func (d customerDoc) model() *models.Customer {
	c := &models.Customer{
		BaseModel:    base(d.ID, d.CreatedAt, d.UpdatedAt),
		Name:         d.Name,
		Email:        d.Email,
		Phone:        d.Phone,
		OTP:          d.OTP,
		OTPExpiresAt: d.OTPExpiresAt,
	}
	return c
}

func (d sessionDoc) model() *models.OTPSession {
	return &models.OTPSession{
		BaseModel:    base(d.ID, d.CreatedAt, d.UpdatedAt),
		Key:          d.Key,
		Channel:      models.Channel(d.Channel),
		OTP:          d.OTP,
		OTPExpiresAt: d.OTPExpiresAt,
	}
}

func toOrderDoc(o *models.Order) orderDoc {
	doc := orderDoc{
		ID:            o.ID.String(),
		CustomerEmail: o.CustomerEmail,
		Items:         make([]orderItemDoc, 0, len(o.Items)),
		Amount:        o.Amount,
		Currency:      o.Currency,
		Receipt:       o.Receipt,
		Address: snapshotDoc{
			Name:    o.Address.Name,
			Phone:   o.Address.Phone,
			Line1:   o.Address.Line1,
			Line2:   o.Address.Line2,
			City:    o.Address.City,
			Pincode: o.Address.Pincode,
		},
		PaymentMethod:     o.PaymentMethod,
		PaymentStatus:     o.PaymentStatus,
		CashOnDelivery:    o.CashOnDelivery,
		PaymentDetails:    o.PaymentDetails,
		RazorpayOrderID:   o.RazorpayOrderID,
		RazorpayPaymentID: o.RazorpayPaymentID,
		RazorpaySignature: o.RazorpaySignature,
		PaidAt:            o.PaidAt,
		Version:           o.Version,
		CreatedAt:         o.CreatedAt,
		UpdatedAt:         o.UpdatedAt,
	}
	if o.CustomerID != nil {
		doc.CustomerID = o.CustomerID.String()
	}
	for _, item := range o.Items {
		doc.Items = append(doc.Items, orderItemDoc(item))
	}
	return doc
}

func (d orderDoc) model() *models.Order {
	o := &models.Order{
		BaseModel:     base(d.ID, d.CreatedAt, d.UpdatedAt),
		CustomerEmail: d.CustomerEmail,
		Amount:        d.Amount,
		Currency:      d.Currency,
		Receipt:       d.Receipt,
		Address: models.AddressSnapshot{
			Name:    d.Address.Name,
			Phone:   d.Address.Phone,
			Line1:   d.Address.Line1,
			Line2:   d.Address.Line2,
			City:    d.Address.City,
			Pincode: d.Address.Pincode,
		},
		PaymentMethod:     d.PaymentMethod,
		PaymentStatus:     d.PaymentStatus,
		CashOnDelivery:    d.CashOnDelivery,
		PaymentDetails:    d.PaymentDetails,
		RazorpayOrderID:   d.RazorpayOrderID,
		RazorpayPaymentID: d.RazorpayPaymentID,
		RazorpaySignature: d.RazorpaySignature,
		PaidAt:            d.PaidAt,
		Version:           d.Version,
	}
	if d.CustomerID != "" {
		id := parseID(d.CustomerID)
		o.CustomerID = &id
	}
	for _, item := range d.Items {
		o.Items = append(o.Items, models.OrderItem(item))
	}
	return o
}

func toNotificationDoc(n *models.Notification) notificationDoc {
	return notificationDoc{
		ID:            n.ID.String(),
		Kind:          n.Kind,
		Recipient:     n.Recipient,
		Payload:       n.Payload,
		Status:        n.Status,
		Attempts:      n.Attempts,
		LastError:     n.LastError,
		NextAttemptAt: n.NextAttemptAt,
		SentAt:        n.SentAt,
		CreatedAt:     n.CreatedAt,
		UpdatedAt:     n.UpdatedAt,
	}
}

func (d notificationDoc) model() *models.Notification {
	return &models.Notification{
		BaseModel:     base(d.ID, d.CreatedAt, d.UpdatedAt),
		Kind:          d.Kind,
		Recipient:     d.Recipient,
		Payload:       d.Payload,
		Status:        d.Status,
		Attempts:      d.Attempts,
		LastError:     d.LastError,
		NextAttemptAt: d.NextAttemptAt,
		SentAt:        d.SentAt,
	}
}
