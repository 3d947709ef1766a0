package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/google/uuid"
)

const apiKeyPrefix = "llm_orch_"

const apiKeyAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// APIKeyStore is the pluggable backend for API key persistence,
// grounded on api_keys.rs's ApiKeyStore trait.
type APIKeyStore interface {
	CreateKey(ctx context.Context, key ApiKey) error
	LookupKey(ctx context.Context, keyHash string) (*ApiKeyInfo, error)
	RevokeKey(ctx context.Context, keyID string) error
	ListKeys(ctx context.Context, userID string) ([]ApiKeyInfo, error)
	UpdateLastUsed(ctx context.Context, keyID string) error
}

// APIKeyManager issues, looks up, and revokes API keys, grounded on
// api_keys.rs's ApiKeyManager.
type APIKeyManager struct {
	store APIKeyStore
}

// NewAPIKeyManager returns a manager backed by store.
func NewAPIKeyManager(store APIKeyStore) *APIKeyManager {
	return &APIKeyManager{store: store}
}

// CreateKey generates a new key, prefixed and SHA-256-hashed for
// storage, scoped to scopes and optionally named and time-limited.
// The returned ApiKey carries the raw key — the only time it is ever
// available in full.
func (m *APIKeyManager) CreateKey(ctx context.Context, userID string, scopes []string, name string, expiresInDays *int) (ApiKey, error) {
	rawKey, err := generateRawKey()
	if err != nil {
		return ApiKey{}, err
	}
	fullKey := apiKeyPrefix + rawKey
	keyHash := hashKey(fullKey)

	var expiresAt *time.Time
	if expiresInDays != nil {
		t := time.Now().UTC().AddDate(0, 0, *expiresInDays)
		expiresAt = &t
	}

	key := ApiKey{
		ID:        uuid.NewString(),
		Key:       fullKey,
		KeyHash:   keyHash,
		UserID:    userID,
		Scopes:    scopes,
		CreatedAt: time.Now().UTC(),
		ExpiresAt: expiresAt,
		Name:      name,
	}

	if err := m.store.CreateKey(ctx, key); err != nil {
		return ApiKey{}, err
	}
	return key, nil
}

// LookupKey validates a raw API key, rejecting unknown or expired
// keys, and records the access as the key's last-used time.
func (m *APIKeyManager) LookupKey(ctx context.Context, rawKey string) (ApiKeyInfo, error) {
	keyHash := hashKey(rawKey)
	info, err := m.store.LookupKey(ctx, keyHash)
	if err != nil {
		return ApiKeyInfo{}, err
	}
	if info == nil {
		return ApiKeyInfo{}, ErrAPIKeyNotFound
	}
	if info.ExpiresAt != nil && time.Now().UTC().After(*info.ExpiresAt) {
		return ApiKeyInfo{}, ErrAPIKeyExpired
	}

	if err := m.store.UpdateLastUsed(ctx, info.ID); err != nil {
		return ApiKeyInfo{}, err
	}

	refreshed, err := m.store.LookupKey(ctx, keyHash)
	if err != nil {
		return ApiKeyInfo{}, err
	}
	if refreshed == nil {
		return ApiKeyInfo{}, ErrAPIKeyNotFound
	}
	return *refreshed, nil
}

// RevokeKey revokes a key by id.
func (m *APIKeyManager) RevokeKey(ctx context.Context, keyID string) error {
	return m.store.RevokeKey(ctx, keyID)
}

// ListKeys lists every key belonging to userID.
func (m *APIKeyManager) ListKeys(ctx context.Context, userID string) ([]ApiKeyInfo, error) {
	return m.store.ListKeys(ctx, userID)
}

func generateRawKey() (string, error) {
	buf := make([]byte, 48)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	out := make([]byte, 48)
	for i, b := range buf {
		out[i] = apiKeyAlphabet[int(b)%len(apiKeyAlphabet)]
	}
	return string(out), nil
}

func hashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// MemoryAPIKeyStore is an in-process APIKeyStore for tests and simple
// deployments, grounded on api_keys.rs's InMemoryApiKeyStore.
type MemoryAPIKeyStore struct {
	mu       sync.Mutex
	byHash   map[string]ApiKeyInfo
	byUserID map[string][]string // userID -> key IDs
}

// NewMemoryAPIKeyStore returns an empty MemoryAPIKeyStore.
func NewMemoryAPIKeyStore() *MemoryAPIKeyStore {
	return &MemoryAPIKeyStore{
		byHash:   make(map[string]ApiKeyInfo),
		byUserID: make(map[string][]string),
	}
}

func (s *MemoryAPIKeyStore) CreateKey(ctx context.Context, key ApiKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.byHash[key.KeyHash] = ApiKeyInfo{
		ID:        key.ID,
		KeyHash:   key.KeyHash,
		UserID:    key.UserID,
		Scopes:    key.Scopes,
		CreatedAt: key.CreatedAt,
		ExpiresAt: key.ExpiresAt,
		Name:      key.Name,
	}
	s.byUserID[key.UserID] = append(s.byUserID[key.UserID], key.ID)
	return nil
}

func (s *MemoryAPIKeyStore) LookupKey(ctx context.Context, keyHash string) (*ApiKeyInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	info, ok := s.byHash[keyHash]
	if !ok {
		return nil, nil
	}
	return &info, nil
}

func (s *MemoryAPIKeyStore) RevokeKey(ctx context.Context, keyID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for hash, info := range s.byHash {
		if info.ID == keyID {
			delete(s.byHash, hash)
		}
	}
	for userID, ids := range s.byUserID {
		kept := ids[:0:0]
		for _, id := range ids {
			if id != keyID {
				kept = append(kept, id)
			}
		}
		s.byUserID[userID] = kept
	}
	return nil
}

func (s *MemoryAPIKeyStore) ListKeys(ctx context.Context, userID string) ([]ApiKeyInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := s.byUserID[userID]
	idSet := make(map[string]bool, len(ids))
	for _, id := range ids {
		idSet[id] = true
	}

	var keys []ApiKeyInfo
	for _, info := range s.byHash {
		if idSet[info.ID] {
			keys = append(keys, info)
		}
	}
	return keys, nil
}

func (s *MemoryAPIKeyStore) UpdateLastUsed(ctx context.Context, keyID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for hash, info := range s.byHash {
		if info.ID == keyID {
			now := time.Now().UTC()
			info.LastUsedAt = &now
			s.byHash[hash] = info
			return nil
		}
	}
	return nil
}
