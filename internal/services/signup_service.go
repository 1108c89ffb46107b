package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/example/storefront/internal/models"
	"github.com/example/storefront/internal/repository"
)

// SignupService completes registration for identities that received their
// code through a pre-registration session.
type SignupService struct {
	store  repository.Store
	tokens *TokenIssuer
	now    func() time.Time
	log    *zap.Logger
}

func NewSignupService(store repository.Store, tokens *TokenIssuer) *SignupService {
	return &SignupService{
		store:  store,
		tokens: tokens,
		now:    func() time.Time { return time.Now().UTC() },
		log:    zap.L().With(zap.String("component", "signup")),
	}
}

// Complete checks the session code and creates the customer, or names an
// existing unnamed one. The session is consumed in the same transaction,
// so a code completes signup at most once.
func (s *SignupService) Complete(ctx context.Context, identifier, name, code string) (*AuthResult, error) {
	key, err := ParseIdentityKey(identifier)
	if err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, NewError(KindValidation, "name is required")
	}
	submitted := strings.TrimSpace(code)
	if submitted == "" {
		return nil, NewError(KindValidation, "otp is required")
	}

	existing, err := s.store.Customers().FindByKey(ctx, key)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		existing = nil
	case err != nil:
		return nil, Wrap(KindInternal, "failed to look up account", err)
	case existing.Name != "":
		return nil, NewError(KindConflict, "account already exists, please log in")
	}

	session, err := s.store.Sessions().Find(ctx, key.Value)
	if errors.Is(err, repository.ErrNotFound) {
		if existing == nil && s.registered(ctx, key) {
			return nil, NewError(KindConflict, "account already exists, please log in")
		}
		return nil, NewError(KindNotFound, "no signup in progress, request a code first")
	}
	if err != nil {
		return nil, Wrap(KindInternal, "failed to look up session", err)
	}
	if err := checkCode(&session.OTP, &session.OTPExpiresAt, submitted, s.now()); err != nil {
		return nil, err
	}

	var customer *models.Customer
	err = s.store.Transaction(ctx, func(ctx context.Context, tx repository.Store) error {
		consumed, err := tx.Sessions().Consume(ctx, key.Value, submitted)
		if err != nil {
			return err
		}
		if !consumed {
			// A concurrent signup consumed the session first.
			return NewError(KindConflict, "account already exists, please log in")
		}

		if existing == nil {
			customer = &models.Customer{Name: name}
			customer.SetKey(key)
			if err := tx.Customers().Create(ctx, customer); err != nil {
				if errors.Is(err, repository.ErrDuplicate) {
					return NewError(KindConflict, "account already exists, please log in")
				}
				return err
			}
			return nil
		}

		named, err := tx.Customers().CompleteName(ctx, existing.ID, name)
		if err != nil {
			return err
		}
		if !named {
			return NewError(KindConflict, "account already exists, please log in")
		}
		customer, err = tx.Customers().FindByID(ctx, existing.ID)
		return err
	})
	if err != nil {
		var svcErr *Error
		if errors.As(err, &svcErr) {
			return nil, svcErr
		}
		return nil, Wrap(KindInternal, "failed to complete signup", err)
	}

	s.log.Info("signup completed",
		zap.String("customer_id", customer.ID.String()),
		zap.String("channel", string(key.Channel)))
	return s.tokens.issue(customer)
}

// registered reports whether a named customer now holds key.
func (s *SignupService) registered(ctx context.Context, key models.IdentityKey) bool {
	c, err := s.store.Customers().FindByKey(ctx, key)
	return err == nil && c.Name != ""
}
