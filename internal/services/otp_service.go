package services

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"math/big"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/example/storefront/internal/metrics"
	"github.com/example/storefront/internal/models"
	"github.com/example/storefront/internal/repository"
)

// OTPTTL is how long an issued code stays valid.
const OTPTTL = 5 * time.Minute

// NotificationSender delivers one-time codes to a customer.
type NotificationSender interface {
	SendOTP(ctx context.Context, key models.IdentityKey, code string) error
}

// IssueResult tells the caller whether to continue with login or signup.
type IssueResult struct {
	Exists    bool      `json:"exists"`
	Reused    bool      `json:"-"`
	ExpiresAt time.Time `json:"-"`
}

// CheckResult reports whether an identity is registered.
type CheckResult struct {
	Exists bool   `json:"exists"`
	Name   string `json:"name,omitempty"`
}

// OTPService issues and verifies one-time codes.
type OTPService struct {
	store       repository.Store
	sender      NotificationSender
	tokens      *TokenIssuer
	sendTimeout time.Duration
	now         func() time.Time
	log         *zap.Logger
}

func NewOTPService(store repository.Store, sender NotificationSender, tokens *TokenIssuer, sendTimeout time.Duration) *OTPService {
	return &OTPService{
		store:       store,
		sender:      sender,
		tokens:      tokens,
		sendTimeout: sendTimeout,
		now:         func() time.Time { return time.Now().UTC() },
		log:         zap.L().With(zap.String("component", "otp")),
	}
}

// Check looks up identifier without issuing anything.
func (s *OTPService) Check(ctx context.Context, identifier string) (*CheckResult, error) {
	key, err := ParseIdentityKey(identifier)
	if err != nil {
		return nil, err
	}

	customer, err := s.store.Customers().FindByKey(ctx, key)
	if errors.Is(err, repository.ErrNotFound) {
		return &CheckResult{}, nil
	}
	if err != nil {
		return nil, Wrap(KindInternal, "failed to look up account", err)
	}
	return &CheckResult{Exists: true, Name: customer.Name}, nil
}

// Issue stores a fresh code for identifier, or reuses the live one, and
// dispatches it. Dispatch failures are logged, never returned.
func (s *OTPService) Issue(ctx context.Context, identifier string) (*IssueResult, error) {
	key, err := ParseIdentityKey(identifier)
	if err != nil {
		return nil, err
	}

	now := s.now()
	var (
		code   string
		result IssueResult
	)

	customer, err := s.store.Customers().FindByKey(ctx, key)
	switch {
	case err == nil:
		result.Exists = true
		if live(customer.OTP, customer.OTPExpiresAt, now) {
			code, result.Reused, result.ExpiresAt = *customer.OTP, true, *customer.OTPExpiresAt
			break
		}
		if code, err = generateCode(); err != nil {
			return nil, Wrap(KindInternal, "failed to generate code", err)
		}
		result.ExpiresAt = now.Add(OTPTTL)
		if err := s.store.Customers().SetOTP(ctx, customer.ID, code, result.ExpiresAt); err != nil {
			return nil, Wrap(KindInternal, "failed to store code", err)
		}

	case errors.Is(err, repository.ErrNotFound):
		session, err := s.store.Sessions().Find(ctx, key.Value)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, Wrap(KindInternal, "failed to look up session", err)
		}
		if session != nil && live(&session.OTP, &session.OTPExpiresAt, now) {
			code, result.Reused, result.ExpiresAt = session.OTP, true, session.OTPExpiresAt
			break
		}
		if code, err = generateCode(); err != nil {
			return nil, Wrap(KindInternal, "failed to generate code", err)
		}
		result.ExpiresAt = now.Add(OTPTTL)
		if err := s.store.Sessions().Upsert(ctx, &models.OTPSession{
			Key:          key.Value,
			Channel:      key.Channel,
			OTP:          code,
			OTPExpiresAt: result.ExpiresAt,
		}); err != nil {
			return nil, Wrap(KindInternal, "failed to store code", err)
		}

	default:
		return nil, Wrap(KindInternal, "failed to look up account", err)
	}

	metrics.OTPIssued.WithLabelValues(string(key.Channel), strconv.FormatBool(result.Reused)).Inc()
	s.dispatch(ctx, key, code)
	return &result, nil
}

func (s *OTPService) dispatch(ctx context.Context, key models.IdentityKey, code string) {
	if s.sender == nil {
		return
	}
	sendCtx := ctx
	if s.sendTimeout > 0 {
		var cancel context.CancelFunc
		sendCtx, cancel = context.WithTimeout(ctx, s.sendTimeout)
		defer cancel()
	}
	if err := s.sender.SendOTP(sendCtx, key, code); err != nil {
		s.log.Warn("code dispatch failed",
			zap.String("channel", string(key.Channel)),
			zap.Error(err))
	}
}

// Verify consumes the customer's code and returns a session token. Failed
// attempts leave the stored code untouched. name backfills an empty
// display name.
func (s *OTPService) Verify(ctx context.Context, identifier, code, name string) (*AuthResult, error) {
	key, err := ParseIdentityKey(identifier)
	if err != nil {
		return nil, err
	}
	submitted := strings.TrimSpace(code)
	if submitted == "" {
		return nil, NewError(KindValidation, "otp is required")
	}

	customer, err := s.store.Customers().FindByKey(ctx, key)
	if errors.Is(err, repository.ErrNotFound) {
		s.recordVerify(KindNotFound)
		return nil, NewError(KindNotFound, "account not found")
	}
	if err != nil {
		return nil, Wrap(KindInternal, "failed to look up account", err)
	}

	if err := checkCode(customer.OTP, customer.OTPExpiresAt, submitted, s.now()); err != nil {
		s.recordVerify(KindOf(err))
		return nil, err
	}

	name = strings.TrimSpace(name)
	ok, err := s.store.Customers().ConsumeOTP(ctx, customer.ID, submitted, name)
	if err != nil {
		return nil, Wrap(KindInternal, "failed to consume code", err)
	}
	if !ok {
		// Another request consumed or rotated the code first.
		s.recordVerify(KindNoCodeIssued)
		return nil, NewError(KindNoCodeIssued, "no code issued, request a new one")
	}

	customer.OTP, customer.OTPExpiresAt = nil, nil
	if customer.Name == "" && name != "" {
		customer.Name = name
	}
	s.recordVerify("")
	return s.tokens.issue(customer)
}

func (s *OTPService) recordVerify(kind Kind) {
	result := "success"
	if kind != "" {
		result = string(kind)
	}
	metrics.OTPVerifications.WithLabelValues(result).Inc()
}

// checkCode walks the verification states shared by login and signup.
func checkCode(stored *string, expiresAt *time.Time, submitted string, now time.Time) error {
	if stored == nil || *stored == "" {
		return NewError(KindNoCodeIssued, "no code issued, request a new one")
	}
	if expiresAt == nil {
		return NewError(KindNoCodeIssued, "no code issued, request a new one")
	}
	if expiresAt.IsZero() {
		return NewError(KindInvalidExpiry, "stored code has no valid expiry")
	}
	if now.After(*expiresAt) {
		return NewError(KindExpired, "code expired, request a new one")
	}
	if subtle.ConstantTimeCompare([]byte(submitted), []byte(*stored)) != 1 {
		return NewError(KindMismatch, "invalid code")
	}
	return nil
}

func live(code *string, expiresAt *time.Time, now time.Time) bool {
	return code != nil && *code != "" &&
		expiresAt != nil && !expiresAt.IsZero() && now.Before(*expiresAt)
}

var codeRange = big.NewInt(900000)

// generateCode returns a uniform code in [100000, 999999].
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, codeRange)
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(n.Int64()+100000, 10), nil
}
