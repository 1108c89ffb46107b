package services

import (
	"time"

	"github.com/example/storefront/internal/models"
	"github.com/example/storefront/internal/utils"
)

// TokenIssuer mints session tokens for authenticated customers.
type TokenIssuer struct {
	secret string
	ttl    time.Duration
}

func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: secret, ttl: ttl}
}

// AuthResult is returned by login and signup.
type AuthResult struct {
	Token string           `json:"token"`
	User  *models.Customer `json:"user"`
}

func (t *TokenIssuer) issue(customer *models.Customer) (*AuthResult, error) {
	subject := utils.TokenSubject{ID: customer.ID, Name: customer.Name}
	if customer.Email != nil {
		subject.Email = *customer.Email
	}
	if customer.Phone != nil {
		subject.Phone = *customer.Phone
	}

	token, err := utils.GenerateToken(t.secret, subject, t.ttl)
	if err != nil {
		return nil, Wrap(KindInternal, "failed to generate token", err)
	}
	return &AuthResult{Token: token, User: customer}, nil
}
