package auth

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidateToken(t *testing.T) {
	token, err := GenerateToken("admin-1", "alice")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := ValidateToken(token)
	require.NoError(t, err)
	require.Equal(t, "admin-1", claims.UserID)
	require.Equal(t, "alice", claims.Username)
	require.Equal(t, settings.Issuer, claims.Issuer)
}

func TestValidateToken_Invalid(t *testing.T) {
	_, err := ValidateToken("invalid.token")
	require.Error(t, err)
}

func TestValidateToken_WrongAudience(t *testing.T) {
	token, err := GenerateToken("admin-1", "alice")
	require.NoError(t, err)

	prev := settings
	settings.Audience = "someone-else"
	t.Cleanup(func() { settings = prev })

	_, err = ValidateToken(token)
	require.Error(t, err)
}

func TestCheckCredentials(t *testing.T) {
	require.True(t, CheckCredentials("anyone", "anything"), "development mode accepts any credentials")

	hash, err := HashPassword("s3cret")
	require.NoError(t, err)

	prev := settings
	settings.AdminUsername = "admin"
	settings.AdminPasswordHash = hash
	t.Cleanup(func() { settings = prev })

	require.True(t, CheckCredentials("admin", "s3cret"))
	require.False(t, CheckCredentials("admin", "wrong"))
	require.False(t, CheckCredentials("mallory", "s3cret"))
}

func TestConfigure(t *testing.T) {
	prev := settings
	t.Cleanup(func() { settings = prev })

	s := DefaultSettings()
	s.Secret = ""
	require.Error(t, Configure(s))

	s = DefaultSettings()
	s.TokenTTL = 0
	require.Error(t, Configure(s))

	s = DefaultSettings()
	s.Issuer = "other-issuer"
	require.NoError(t, Configure(s))

	token, err := GenerateToken("admin-1", "alice")
	require.NoError(t, err)
	claims, err := ValidateToken(token)
	require.NoError(t, err)
	require.Equal(t, "other-issuer", claims.Issuer)
}
