package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/example/storefront/internal/models"
	"github.com/example/storefront/internal/repository"
)

// AddressInput is the body of save and update address requests.
type AddressInput struct {
	Name      string `json:"name"`
	Phone     string `json:"phone" validate:"required"`
	Line1     string `json:"line1" validate:"required"`
	Line2     string `json:"line2"`
	City      string `json:"city" validate:"required"`
	Pincode   string `json:"pincode" validate:"required"`
	IsDefault bool   `json:"isDefault"`
}

func (in *AddressInput) trim() {
	in.Name = strings.TrimSpace(in.Name)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Line1 = strings.TrimSpace(in.Line1)
	in.Line2 = strings.TrimSpace(in.Line2)
	in.City = strings.TrimSpace(in.City)
	in.Pincode = strings.TrimSpace(in.Pincode)
}

// Account is the aggregate returned to a signed-in customer.
type Account struct {
	User      *models.Customer         `json:"user"`
	Addresses []models.CustomerAddress `json:"addresses"`
	Orders    []models.Order           `json:"orders"`
}

// AccountService manages customer profiles and saved addresses.
type AccountService struct {
	store repository.Store
}

func NewAccountService(store repository.Store) *AccountService {
	return &AccountService{store: store}
}

func (s *AccountService) customer(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	customer, err := s.store.Customers().FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, NewError(KindNotFound, "customer not found")
	}
	if err != nil {
		return nil, Wrap(KindInternal, "failed to load customer", err)
	}
	return customer, nil
}

// Account loads the customer with addresses and orders, newest order first.
func (s *AccountService) Account(ctx context.Context, customerID uuid.UUID) (*Account, error) {
	customer, err := s.customer(ctx, customerID)
	if err != nil {
		return nil, err
	}

	addresses, err := s.store.Customers().ListAddresses(ctx, customerID)
	if err != nil {
		return nil, Wrap(KindInternal, "failed to load addresses", err)
	}
	orders, _, err := s.store.Orders().List(ctx, repository.OrderFilter{CustomerID: &customerID}, repository.Page{})
	if err != nil {
		return nil, Wrap(KindInternal, "failed to load orders", err)
	}

	if addresses == nil {
		addresses = []models.CustomerAddress{}
	}
	if orders == nil {
		orders = []models.Order{}
	}
	return &Account{User: customer, Addresses: addresses, Orders: orders}, nil
}

// UpdateProfile changes the display name.
func (s *AccountService) UpdateProfile(ctx context.Context, customerID uuid.UUID, name string) (*models.Customer, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, NewError(KindValidation, "name is required")
	}
	if err := s.store.Customers().UpdateName(ctx, customerID, name); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NewError(KindNotFound, "customer not found")
		}
		return nil, Wrap(KindInternal, "failed to update profile", err)
	}
	return s.customer(ctx, customerID)
}

// SaveAddress adds an address for the customer. The recipient name falls
// back to the customer's display name.
func (s *AccountService) SaveAddress(ctx context.Context, customerID uuid.UUID, in AddressInput) (*models.CustomerAddress, error) {
	if customerID == uuid.Nil {
		return nil, NewError(KindValidation, "customerId is required")
	}
	in.trim()
	if err := validate.Struct(in); err != nil {
		return nil, validationError(err)
	}

	customer, err := s.customer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if in.Name == "" {
		in.Name = customer.Name
	}

	address := &models.CustomerAddress{
		CustomerID: customerID,
		Name:       in.Name,
		Phone:      in.Phone,
		Line1:      in.Line1,
		Line2:      in.Line2,
		City:       in.City,
		Pincode:    in.Pincode,
		IsDefault:  in.IsDefault,
	}
	if err := s.store.Customers().AddAddress(ctx, address); err != nil {
		return nil, Wrap(KindInternal, "failed to save address", err)
	}
	return address, nil
}

func (s *AccountService) ListAddresses(ctx context.Context, customerID uuid.UUID) ([]models.CustomerAddress, error) {
	addresses, err := s.store.Customers().ListAddresses(ctx, customerID)
	if err != nil {
		return nil, Wrap(KindInternal, "failed to load addresses", err)
	}
	if addresses == nil {
		addresses = []models.CustomerAddress{}
	}
	return addresses, nil
}

func (s *AccountService) UpdateAddress(ctx context.Context, customerID, addressID uuid.UUID, in AddressInput) (*models.CustomerAddress, error) {
	in.trim()
	if err := validate.Struct(in); err != nil {
		return nil, validationError(err)
	}

	fields := map[string]any{
		"phone":      in.Phone,
		"line1":      in.Line1,
		"line2":      in.Line2,
		"city":       in.City,
		"pincode":    in.Pincode,
		"is_default": in.IsDefault,
	}
	if in.Name != "" {
		fields["name"] = in.Name
	}

	address, err := s.store.Customers().UpdateAddress(ctx, customerID, addressID, fields)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, NewError(KindNotFound, "address not found")
	}
	if err != nil {
		return nil, Wrap(KindInternal, "failed to update address", err)
	}
	return address, nil
}

func (s *AccountService) DeleteAddress(ctx context.Context, customerID, addressID uuid.UUID) error {
	err := s.store.Customers().DeleteAddress(ctx, customerID, addressID)
	if errors.Is(err, repository.ErrNotFound) {
		return NewError(KindNotFound, "address not found")
	}
	if err != nil {
		return Wrap(KindInternal, "failed to delete address", err)
	}
	return nil
}
