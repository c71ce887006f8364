package auth

import (
	"crypto/subtle"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword returns a bcrypt hash suitable for ADMIN_PASSWORD_HASH.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckCredentials reports whether username and password match the
// configured admin account.
func CheckCredentials(username, password string) bool {
	if settings.AdminPasswordHash == "" {
		// Development mode: accept any credentials.
		return true
	}
	if subtle.ConstantTimeCompare([]byte(username), []byte(settings.AdminUsername)) != 1 {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(settings.AdminPasswordHash), []byte(password)) == nil
}
