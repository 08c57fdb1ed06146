package store

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/antihype/morpheus-gateway/types"
)

// DefaultPageLimits are the page sizes the channels actually request: 5 for
// the Telegram history keyboard, 15 for the web list. Session mutations
// invalidate the first page for each of them; deeper pages age out by TTL,
// which is the documented staleness window.
var DefaultPageLimits = []int{5, 15}

type SessionCache struct {
	client *RedisClient
	ttl    time.Duration
}

func NewSessionCache(redisClient *RedisClient, ttlMinutes int) *SessionCache {
	ttl := time.Duration(ttlMinutes) * time.Minute
	if ttlMinutes <= 0 {
		ttl = time.Hour
	}
	return &SessionCache{
		client: redisClient,
		ttl:    ttl,
	}
}

func SessionsKey(userID string, page, limit int) string {
	return fmt.Sprintf("sessions:user-%s:page-%d:limit-%d", userID, page, limit)
}

func SessionKey(sessionID string) string {
	return fmt.Sprintf("session:%s", sessionID)
}

func UserKey(userID string) string {
	return fmt.Sprintf("user:%s", userID)
}

func (c *SessionCache) GetPage(ctx context.Context, userID string, page, limit int) *types.SessionPage {
	key := c.client.generateKey(SessionsKey(userID, page, limit))
	var p types.SessionPage
	if err := c.client.Get(ctx, key, &p); err != nil {
		if err != ErrCacheMiss {
			log.Printf("cache: get %s: %v", key, err)
		}
		return nil
	}
	return &p
}

func (c *SessionCache) SetPage(ctx context.Context, userID string, page, limit int, p *types.SessionPage) {
	key := c.client.generateKey(SessionsKey(userID, page, limit))
	if err := c.client.Set(ctx, key, p, c.ttl); err != nil {
		log.Printf("cache: set %s: %v", key, err)
	}
}

func (c *SessionCache) GetDetail(ctx context.Context, sessionID string) *types.SessionDetail {
	key := c.client.generateKey(SessionKey(sessionID))
	var d types.SessionDetail
	if err := c.client.Get(ctx, key, &d); err != nil {
		if err != ErrCacheMiss {
			log.Printf("cache: get %s: %v", key, err)
		}
		return nil
	}
	return &d
}

func (c *SessionCache) SetDetail(ctx context.Context, sessionID string, d *types.SessionDetail) {
	key := c.client.generateKey(SessionKey(sessionID))
	if err := c.client.Set(ctx, key, d, c.ttl); err != nil {
		log.Printf("cache: set %s: %v", key, err)
	}
}

func (c *SessionCache) GetUser(ctx context.Context, userID string) *types.User {
	key := c.client.generateKey(UserKey(userID))
	var u types.User
	if err := c.client.Get(ctx, key, &u); err != nil {
		if err != ErrCacheMiss {
			log.Printf("cache: get %s: %v", key, err)
		}
		return nil
	}
	return &u
}

func (c *SessionCache) SetUser(ctx context.Context, userID string, u *types.User) {
	key := c.client.generateKey(UserKey(userID))
	if err := c.client.Set(ctx, key, u, c.ttl); err != nil {
		log.Printf("cache: set %s: %v", key, err)
	}
}

// InvalidateSessions drops the detail entry for one session and the first
// list page for each known limit. Only the affected keys are touched, never
// a blanket flush.
func (c *SessionCache) InvalidateSessions(ctx context.Context, userID, sessionID string) error {
	keys := make([]string, 0, len(DefaultPageLimits)+1)
	if sessionID != "" {
		keys = append(keys, c.client.generateKey(SessionKey(sessionID)))
	}
	for _, limit := range DefaultPageLimits {
		keys = append(keys, c.client.generateKey(SessionsKey(userID, 1, limit)))
	}
	return c.client.Del(ctx, keys...)
}

func (c *SessionCache) InvalidateUser(ctx context.Context, userID string) error {
	return c.client.Del(ctx, c.client.generateKey(UserKey(userID)))
}
