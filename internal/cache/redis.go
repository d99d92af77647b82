// Package cache holds the Redis-backed cache for resolved organization
// access. The service degrades gracefully when no Redis address is
// configured: a nil *Cache is a valid no-op handle.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/roundupgames/audit-backend/internal/models"
)

type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

func New(ctx context.Context, addr string, ttl time.Duration) (*Cache, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("redis connect: %w", err)
	}
	return &Cache{client: client, ttl: ttl}, nil
}

func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}

func accessKey(userID, orgID string) string {
	return fmt.Sprintf("orgaccess:%s:%s", userID, orgID)
}

// GetRole returns the cached resolved role for a user on an org. The second
// return reports a hit; a cached "no access" is a hit with RoleNone.
func (c *Cache) GetRole(ctx context.Context, userID, orgID string) (models.Role, bool, error) {
	if c == nil {
		return models.RoleNone, false, nil
	}
	v, err := c.client.Get(ctx, accessKey(userID, orgID)).Result()
	if err == redis.Nil {
		return models.RoleNone, false, nil
	}
	if err != nil {
		return models.RoleNone, false, err
	}
	return models.Role(v), true, nil
}

func (c *Cache) SetRole(ctx context.Context, userID, orgID string, role models.Role) error {
	if c == nil {
		return nil
	}
	return c.client.Set(ctx, accessKey(userID, orgID), string(role), c.ttl).Err()
}

// InvalidateUser drops every cached resolution for a user, called after any
// membership or delegation change.
func (c *Cache) InvalidateUser(ctx context.Context, userID string) error {
	if c == nil {
		return nil
	}
	iter := c.client.Scan(ctx, 0, accessKey(userID, "*"), 100).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}
