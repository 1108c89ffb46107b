package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/example/storefront/internal/services"
)

var kindStatus = map[services.Kind]int{
	services.KindValidation:       fiber.StatusBadRequest,
	services.KindNoCodeIssued:     fiber.StatusBadRequest,
	services.KindExpired:          fiber.StatusBadRequest,
	services.KindMismatch:         fiber.StatusBadRequest,
	services.KindInvalidSignature: fiber.StatusBadRequest,
	services.KindNotFound:         fiber.StatusNotFound,
	services.KindConflict:         fiber.StatusConflict,
	services.KindUnauthorized:     fiber.StatusUnauthorized,
	services.KindUpstream:         fiber.StatusBadGateway,
	services.KindInvalidExpiry:    fiber.StatusInternalServerError,
	services.KindConfig:           fiber.StatusInternalServerError,
	services.KindInternal:         fiber.StatusInternalServerError,
}

// ErrorHandler renders every error as {"success": false, "message": ...}.
// Server-side kinds hide their cause from the client and log it instead.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return c.Status(fiberErr.Code).JSON(fiber.Map{
			"success": false,
			"message": fiberErr.Message,
		})
	}

	kind := services.KindOf(err)
	status, ok := kindStatus[kind]
	if !ok {
		status = fiber.StatusInternalServerError
	}

	message := "internal server error"
	var svcErr *services.Error
	if errors.As(err, &svcErr) && svcErr.Message != "" {
		message = svcErr.Message
	}

	switch kind {
	case services.KindConfig:
		message = "payments are not configured"
	case services.KindInvalidSignature:
		message = "invalid payment signature"
	}

	if status >= fiber.StatusInternalServerError || kind == services.KindInvalidSignature {
		zap.L().Error("request failed",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Any("request_id", c.Locals("requestid")),
			zap.String("kind", string(kind)),
			zap.Error(err))
	}

	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"message": message,
	})
}

func parseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	return nil
}
