package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/example/storefront/internal/middleware"
	"github.com/example/storefront/internal/services"
)

// AuthHandler serves the passwordless login and signup endpoints.
type AuthHandler struct {
	otp     *services.OTPService
	signup  *services.SignupService
	account *services.AccountService
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(otp *services.OTPService, signup *services.SignupService, account *services.AccountService) *AuthHandler {
	return &AuthHandler{otp: otp, signup: signup, account: account}
}

// identityRequest accepts the key under any of the names clients send.
type identityRequest struct {
	Identifier string `json:"identifier"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	OTP        string `json:"otp"`
	Name       string `json:"name"`
}

func (r identityRequest) key() string {
	for _, v := range []string{r.Identifier, r.Email, r.Phone} {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// Check reports whether an account exists for the identifier.
func (h *AuthHandler) Check(c *fiber.Ctx) error {
	var req identityRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	result, err := h.otp.Check(c.UserContext(), req.key())
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"exists":  result.Exists,
		"name":    result.Name,
	})
}

// SendOTP issues a login or signup code. Delivery failures do not change
// the response.
func (h *AuthHandler) SendOTP(c *fiber.Ctx) error {
	var req identityRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	result, err := h.otp.Issue(c.UserContext(), req.key())
	if err != nil {
		return err
	}

	message := "OTP sent for signup"
	if result.Exists {
		message = "OTP sent"
	}
	return c.JSON(fiber.Map{
		"success": true,
		"exists":  result.Exists,
		"message": message,
	})
}

// VerifyOTP logs an existing customer in.
func (h *AuthHandler) VerifyOTP(c *fiber.Ctx) error {
	var req identityRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	result, err := h.otp.Verify(c.UserContext(), req.key(), req.OTP, req.Name)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"token":   result.Token,
		"user":    result.User,
	})
}

// Signup completes registration for an identity that requested a code
// without an account.
func (h *AuthHandler) Signup(c *fiber.Ctx) error {
	var req identityRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	result, err := h.signup.Complete(c.UserContext(), req.key(), req.Name, req.OTP)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"token":   result.Token,
		"user":    result.User,
	})
}

// Me returns the authenticated customer.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	account, err := h.account.Account(c.UserContext(), userID)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"user":    account.User,
	})
}
