package utils

import "golang.org/x/crypto/bcrypt"

// HashSecret returns a bcrypt hash suitable for ADMIN_KEY_HASH.
func HashSecret(secret string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckSecret reports whether secret matches the bcrypt hash.
func CheckSecret(hash, secret string) bool {
	if hash == "" || secret == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}
