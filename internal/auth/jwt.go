package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Settings holds token and admin credential configuration.
type Settings struct {
	Secret   string
	Issuer   string
	Audience string
	TokenTTL time.Duration

	AdminUsername string
	// AdminPasswordHash is a bcrypt hash. When empty any credentials are
	// accepted, which is only meant for local development.
	AdminPasswordHash string
}

// DefaultSettings are the development settings used until Configure is called.
func DefaultSettings() Settings {
	return Settings{
		Secret:        "development-insecure-secret-change-me",
		Issuer:        "cache-countdown-api",
		Audience:      "cache-countdown-clients",
		TokenTTL:      24 * time.Hour,
		AdminUsername: "admin",
	}
}

var settings = DefaultSettings()

// Configure replaces the package settings. It must be called before the
// server starts handling requests.
func Configure(s Settings) error {
	if s.Secret == "" {
		return errors.New("jwt secret must not be empty")
	}
	if s.TokenTTL <= 0 {
		return fmt.Errorf("jwt token ttl must be positive, got %s", s.TokenTTL)
	}
	settings = s
	return nil
}

// Claims represents the JWT claims
type Claims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// GenerateToken generates a JWT token for the given user
func GenerateToken(userID, username string) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:   userID,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(settings.TokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    settings.Issuer,
			Audience:  jwt.ClaimStrings{settings.Audience},
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(settings.Secret))
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// ValidateToken validates a JWT token and returns the claims
func ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return []byte(settings.Secret), nil
	},
		jwt.WithIssuer(settings.Issuer),
		jwt.WithAudience(settings.Audience),
	)
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("invalid token")
}
