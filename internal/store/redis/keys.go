package redis

import (
	"fmt"
	"net/url"
	"strings"
)

const (
	// KeyPrefixContext is the prefix for mirrored context handles
	KeyPrefixContext = "tabgate:context:"
	// KeyPrefixUserContexts is the prefix for the per-user set of handle IDs
	KeyPrefixUserContexts = "tabgate:contexts:user:"
	// KeyAllContexts is the key for the set of all mirrored handle IDs
	KeyAllContexts = "tabgate:contexts:all"
	// KeyPrefixIdempotency is the prefix for history idempotency tokens
	KeyPrefixIdempotency = "tabgate:idem:"
)

// ContextKey returns the Redis key for a context handle
func ContextKey(id string) string {
	return KeyPrefixContext + id
}

// UserContextsKey returns the key for the set of handle IDs of a user
func UserContextsKey(userID string) string {
	return KeyPrefixUserContexts + userSegment(userID)
}

// AllContextsKey returns the key for the set of all handle IDs
func AllContextsKey() string {
	return KeyAllContexts
}

// IdempotencyKey returns the key for an idempotency token of a user.
func IdempotencyKey(userID, token string) string {
	return KeyPrefixIdempotency + userSegment(userID) + ":" + token
}

// userSegment escapes a user id so it contains neither the ':' separator
// nor glob metacharacters.
func userSegment(userID string) string {
	return url.QueryEscape(userID)
}

// ExtractUserID extracts the user ID from a per-user set key
func ExtractUserID(key string) (string, error) {
	if !strings.HasPrefix(key, KeyPrefixUserContexts) || len(key) <= len(KeyPrefixUserContexts) {
		return "", fmt.Errorf("invalid user contexts key: %s", key)
	}
	id, err := url.QueryUnescape(key[len(KeyPrefixUserContexts):])
	if err != nil {
		return "", fmt.Errorf("invalid user contexts key %s: %w", key, err)
	}
	return id, nil
}
