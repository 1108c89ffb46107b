package handlers

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/storefront/internal/services"
)

func TestErrorHandlerMapsKinds(t *testing.T) {
	tests := []struct {
		err     error
		status  int
		message string
	}{
		{services.NewError(services.KindValidation, "amount must be greater than 0"), fiber.StatusBadRequest, "amount must be greater than 0"},
		{services.NewError(services.KindExpired, "code expired"), fiber.StatusBadRequest, "code expired"},
		{services.NewError(services.KindNoCodeIssued, "no code issued"), fiber.StatusBadRequest, "no code issued"},
		{services.NewError(services.KindNotFound, "account not found"), fiber.StatusNotFound, "account not found"},
		{services.NewError(services.KindConflict, "already registered"), fiber.StatusConflict, "already registered"},
		{services.Wrap(services.KindUpstream, "payment provider unavailable", errors.New("dial tcp")), fiber.StatusBadGateway, "payment provider unavailable"},
		{services.NewError(services.KindInvalidSignature, "webhook hmac mismatch"), fiber.StatusBadRequest, "invalid payment signature"},
		{services.NewError(services.KindConfig, "RAZORPAY_KEY_SECRET missing"), fiber.StatusInternalServerError, "payments are not configured"},
		{services.NewError(services.KindInvalidExpiry, "bad expiry"), fiber.StatusInternalServerError, "bad expiry"},
		{errors.New("boom"), fiber.StatusInternalServerError, "internal server error"},
		{fiber.NewError(fiber.StatusUnauthorized, "invalid token"), fiber.StatusUnauthorized, "invalid token"},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
			app.Get("/", func(c *fiber.Ctx) error { return tt.err })

			resp, err := app.Test(httptest.NewRequest("GET", "/", nil), -1)
			require.NoError(t, err)
			defer resp.Body.Close()

			var body map[string]any
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, tt.message, body["message"])
		})
	}
}
