package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/storefront/internal/middleware"
	"github.com/example/storefront/internal/services"
)

// AccountHandler manages the customer's profile and saved addresses.
type AccountHandler struct {
	accounts *services.AccountService
}

// NewAccountHandler constructs AccountHandler.
func NewAccountHandler(accounts *services.AccountService) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

// GetAccount returns the customer with addresses and orders.
func (h *AccountHandler) GetAccount(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	account, err := h.accounts.Account(c.UserContext(), userID)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success":   true,
		"user":      account.User,
		"addresses": account.Addresses,
		"orders":    account.Orders,
	})
}

type updateProfileRequest struct {
	Name string `json:"name"`
}

// UpdateProfile changes the display name.
func (h *AccountHandler) UpdateProfile(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var req updateProfileRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	customer, err := h.accounts.UpdateProfile(c.UserContext(), userID, req.Name)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"user":    customer,
	})
}

type saveAddressRequest struct {
	services.AddressInput
	CustomerID string `json:"customerId"`
}

// SaveAddress stores an address for the bearer's account, or for the
// customerId in the body on anonymous requests.
func (h *AccountHandler) SaveAddress(c *fiber.Ctx) error {
	var req saveAddressRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	customerID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		raw := strings.TrimSpace(req.CustomerID)
		if raw == "" {
			return services.NewError(services.KindValidation, "customerId is required")
		}
		parsed, err := uuid.Parse(raw)
		if err != nil {
			return services.NewError(services.KindValidation, "customerId is invalid")
		}
		customerID = parsed
	}

	address, err := h.accounts.SaveAddress(c.UserContext(), customerID, req.AddressInput)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"address": address,
	})
}

// ListAddresses returns the bearer's saved addresses.
func (h *AccountHandler) ListAddresses(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	addresses, err := h.accounts.ListAddresses(c.UserContext(), userID)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    addresses,
	})
}

func (h *AccountHandler) UpdateAddress(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	addressID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid address id")
	}

	var req services.AddressInput
	if err := parseBody(c, &req); err != nil {
		return err
	}

	address, err := h.accounts.UpdateAddress(c.UserContext(), userID, addressID, req)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"address": address,
	})
}

func (h *AccountHandler) DeleteAddress(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	addressID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid address id")
	}

	if err := h.accounts.DeleteAddress(c.UserContext(), userID, addressID); err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "address deleted",
	})
}
