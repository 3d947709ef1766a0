package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCreateKeyHasPrefixAndFields(t *testing.T) {
	ctx := context.Background()
	m := NewAPIKeyManager(NewMemoryAPIKeyStore())

	days := 30
	key, err := m.CreateKey(ctx, "user123", []string{"workflow:read", "workflow:execute"}, "Test Key", &days)
	require.NoError(t, err)

	require.True(t, len(key.Key) > len(apiKeyPrefix))
	require.Equal(t, apiKeyPrefix, key.Key[:len(apiKeyPrefix)])
	require.Equal(t, "user123", key.UserID)
	require.Len(t, key.Scopes, 2)
	require.Equal(t, "Test Key", key.Name)
	require.NotNil(t, key.ExpiresAt)
}

func TestLookupValidKeyUpdatesLastUsed(t *testing.T) {
	ctx := context.Background()
	m := NewAPIKeyManager(NewMemoryAPIKeyStore())

	key, err := m.CreateKey(ctx, "user123", []string{"workflow:read"}, "", nil)
	require.NoError(t, err)

	info, err := m.LookupKey(ctx, key.Key)
	require.NoError(t, err)
	require.Equal(t, "user123", info.UserID)
	require.Equal(t, []string{"workflow:read"}, info.Scopes)
	require.NotNil(t, info.LastUsedAt)
}

func TestLookupUnknownKeyReturnsNotFound(t *testing.T) {
	m := NewAPIKeyManager(NewMemoryAPIKeyStore())
	_, err := m.LookupKey(context.Background(), "nonexistent")
	require.ErrorIs(t, err, ErrAPIKeyNotFound)
}

func TestRevokeKeyRemovesIt(t *testing.T) {
	ctx := context.Background()
	m := NewAPIKeyManager(NewMemoryAPIKeyStore())

	key, err := m.CreateKey(ctx, "user123", []string{"workflow:read"}, "", nil)
	require.NoError(t, err)

	require.NoError(t, m.RevokeKey(ctx, key.ID))

	_, err = m.LookupKey(ctx, key.Key)
	require.ErrorIs(t, err, ErrAPIKeyNotFound)
}

func TestListKeysScopesToUser(t *testing.T) {
	ctx := context.Background()
	m := NewAPIKeyManager(NewMemoryAPIKeyStore())

	_, err := m.CreateKey(ctx, "user123", []string{"workflow:read"}, "", nil)
	require.NoError(t, err)
	_, err = m.CreateKey(ctx, "user123", []string{"workflow:write"}, "", nil)
	require.NoError(t, err)
	_, err = m.CreateKey(ctx, "user456", []string{"workflow:read"}, "", nil)
	require.NoError(t, err)

	keys123, err := m.ListKeys(ctx, "user123")
	require.NoError(t, err)
	require.Len(t, keys123, 2)

	keys456, err := m.ListKeys(ctx, "user456")
	require.NoError(t, err)
	require.Len(t, keys456, 1)
}

func TestHashKeyIsDeterministicAndDistinct(t *testing.T) {
	h1 := hashKey("test_key_123")
	h2 := hashKey("test_key_123")
	require.Equal(t, h1, h2)

	require.NotEqual(t, hashKey("key1"), hashKey("key2"))
}

func TestGenerateRawKeyProducesDistinct48CharKeys(t *testing.T) {
	k1, err := generateRawKey()
	require.NoError(t, err)
	k2, err := generateRawKey()
	require.NoError(t, err)

	require.NotEqual(t, k1, k2)
	require.Len(t, k1, 48)
	require.Len(t, k2, 48)
}
