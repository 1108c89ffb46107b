package services

import (
	"context"
	"fmt"

	"github.com/example/storefront/internal/models"
)

type emailSender interface {
	SendOTP(ctx context.Context, email, code string) error
}

type smsSender interface {
	SendOTP(ctx context.Context, phone, code string) error
}

// OTPDispatcher routes codes to email or SMS by identity channel.
type OTPDispatcher struct {
	mail emailSender
	sms  smsSender
}

func NewOTPDispatcher(mail *MailService, sms *SMSService) *OTPDispatcher {
	return &OTPDispatcher{mail: mail, sms: sms}
}

func (d *OTPDispatcher) SendOTP(ctx context.Context, key models.IdentityKey, code string) error {
	switch key.Channel {
	case models.ChannelEmail:
		return d.mail.SendOTP(ctx, key.Value, code)
	case models.ChannelPhone:
		return d.sms.SendOTP(ctx, key.Value, code)
	default:
		return fmt.Errorf("unsupported channel %q", key.Channel)
	}
}
