package auth

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func testSecret() []byte { return []byte("test-secret-key-at-least-32-bytes-long") }

func TestGenerateAndVerifyToken(t *testing.T) {
	m := NewJWTManager(testSecret())

	token, err := m.GenerateToken("user123", []string{"admin"})
	require.NoError(t, err)

	claims, err := m.VerifyToken(token)
	require.NoError(t, err)
	require.Equal(t, "user123", claims.Subject)
	require.Equal(t, []string{"admin"}, claims.Roles)
	require.Equal(t, defaultIssuer, claims.Issuer)
	require.NotEmpty(t, claims.JTI)
}

func TestGenerateAndVerifyRefreshToken(t *testing.T) {
	m := NewJWTManager(testSecret())

	token, err := m.GenerateRefreshToken("user123")
	require.NoError(t, err)

	userID, err := m.VerifyRefreshToken(token)
	require.NoError(t, err)
	require.Equal(t, "user123", userID)
}

func TestVerifyTokenRejectsGarbage(t *testing.T) {
	m := NewJWTManager(testSecret())
	_, err := m.VerifyToken("invalid.token.here")
	require.Error(t, err)
}

func TestVerifyTokenRejectsWrongSecret(t *testing.T) {
	m1 := NewJWTManager([]byte("secret1-at-least-32-bytes-long-abc"))
	m2 := NewJWTManager([]byte("secret2-at-least-32-bytes-long-xyz"))

	token, err := m1.GenerateToken("user123", []string{"admin"})
	require.NoError(t, err)

	_, err = m2.VerifyToken(token)
	require.Error(t, err)
}

func TestRefreshAccessTokenIssuesNewAccessTokenWithUpdatedRoles(t *testing.T) {
	m := NewJWTManager(testSecret())

	refreshToken, err := m.GenerateRefreshToken("user123")
	require.NoError(t, err)

	accessToken, err := m.RefreshAccessToken(refreshToken, []string{"developer"})
	require.NoError(t, err)

	claims, err := m.VerifyToken(accessToken)
	require.NoError(t, err)
	require.Equal(t, "user123", claims.Subject)
	require.Equal(t, []string{"developer"}, claims.Roles)
}

func TestJWTManagerOptionsOverrideDefaults(t *testing.T) {
	m := NewJWTManager(testSecret(), WithIssuer("custom-issuer"), WithAccessExpiry(3600))

	token, err := m.GenerateToken("user123", []string{"admin"})
	require.NoError(t, err)

	claims, err := m.VerifyToken(token)
	require.NoError(t, err)
	require.Equal(t, "custom-issuer", claims.Issuer)
}

func TestVerifyRefreshTokenRejectsAccessToken(t *testing.T) {
	m := NewJWTManager(testSecret())

	accessToken, err := m.GenerateToken("user123", []string{"admin"})
	require.NoError(t, err)

	_, err = m.VerifyRefreshToken(accessToken)
	require.Error(t, err)
}
