package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/forms-service/internal/domain"
)

// PrincipalCache caches resolved principals keyed by session-token hash so a
// burst of requests with the same bearer does not hit the users table each
// time. It lives outside the access core; the core always receives an
// explicit AuthorizationContext.
type PrincipalCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewPrincipalCache constructs the cache; a nil client disables caching.
func NewPrincipalCache(client *redis.Client, ttl time.Duration) *PrincipalCache {
	return &PrincipalCache{client: client, ttl: ttl}
}

func cacheKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "principal:" + hex.EncodeToString(sum[:])
}

// Get returns the cached user for the token, or nil on miss.
func (c *PrincipalCache) Get(ctx context.Context, token string) *domain.User {
	if c == nil || c.client == nil {
		return nil
	}
	raw, err := c.client.Get(ctx, cacheKey(token)).Bytes()
	if err != nil {
		return nil
	}
	var user domain.User
	if err := json.Unmarshal(raw, &user); err != nil {
		return nil
	}
	return &user
}

// Put stores the resolved user for the token.
func (c *PrincipalCache) Put(ctx context.Context, token string, user *domain.User) {
	if c == nil || c.client == nil || user == nil {
		return
	}
	copied := *user
	copied.PasswordHash = ""
	raw, err := json.Marshal(&copied)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, cacheKey(token), raw, c.ttl).Err()
}
