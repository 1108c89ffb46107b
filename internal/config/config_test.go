package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("JWT_TTL_DAYS", "90")
	t.Setenv("ALLOWED_ORIGINS", " https://shop.example.com, ,http://localhost:3000 ")
	t.Setenv("OUTBOX_BACKOFF", "45")
	t.Setenv("OTP_SEND_TIMEOUT", "3s")
	t.Setenv("SMTP_USER", "mailer@example.com")
	t.Setenv("SUPPORT_EMAIL", "")
	t.Setenv("OUTBOX_INLINE", "false")

	cfg := Load()

	assert.Equal(t, "test-secret", cfg.JWTSecret)
	assert.Equal(t, 30*24*time.Hour, cfg.TokenExpires)
	assert.Equal(t, []string{"https://shop.example.com", "http://localhost:3000"}, cfg.AllowedOrigins)
	assert.Equal(t, 45*time.Second, cfg.OutboxBackoff)
	assert.Equal(t, 3*time.Second, cfg.OTPSendTimeout)
	assert.Equal(t, "mailer@example.com", cfg.SupportEmail)
	assert.False(t, cfg.OutboxInline)
}

func TestClampTokenTTL(t *testing.T) {
	assert.Equal(t, 7*24*time.Hour, ClampTokenTTL(time.Hour))
	assert.Equal(t, 10*24*time.Hour, ClampTokenTTL(10*24*time.Hour))
	assert.Equal(t, 30*24*time.Hour, ClampTokenTTL(365*24*time.Hour))
}
