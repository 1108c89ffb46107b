package utils

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenSubject carries the profile fields embedded in a session token.
type TokenSubject struct {
	ID    uuid.UUID
	Name  string
	Email string
	Phone string
}

// Claims is the session token payload.
type Claims struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
	jwt.RegisteredClaims
}

// UserID parses the subject claim.
func (c *Claims) UserID() (uuid.UUID, error) {
	return uuid.Parse(c.Subject)
}

// GenerateToken creates a signed HS256 JWT for subject.
func GenerateToken(secret string, subject TokenSubject, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		Name:  subject.Name,
		Email: subject.Email,
		Phone: subject.Phone,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject.ID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseToken validates the token and returns its claims.
func ParseToken(secret, tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	if _, err := claims.UserID(); err != nil {
		return nil, jwt.ErrTokenInvalidSubject
	}
	return claims, nil
}
