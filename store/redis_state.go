package store

import (
	"context"
	"fmt"
	"time"
)

// DialogStore keeps the active chat session per Telegram user, so follow-up
// messages land in the same conversation. Entries expire on their own: an
// abandoned dialogue simply starts a new session next time.
type DialogStore struct {
	client *RedisClient
	ttl    time.Duration
}

func NewDialogStore(redisClient *RedisClient, ttlHours int) *DialogStore {
	ttl := time.Duration(ttlHours) * time.Hour
	if ttlHours <= 0 {
		ttl = 24 * time.Hour
	}
	return &DialogStore{
		client: redisClient,
		ttl:    ttl,
	}
}

func (s *DialogStore) activeSessionKey(telegramID int64) string {
	return s.client.generateKey("tg_dialog", fmt.Sprintf("%d", telegramID))
}

func (s *DialogStore) GetActiveSession(ctx context.Context, telegramID int64) string {
	var sessionID string
	if err := s.client.Get(ctx, s.activeSessionKey(telegramID), &sessionID); err != nil {
		return ""
	}
	return sessionID
}

func (s *DialogStore) SetActiveSession(ctx context.Context, telegramID int64, sessionID string) error {
	return s.client.Set(ctx, s.activeSessionKey(telegramID), sessionID, s.ttl)
}

func (s *DialogStore) ClearActiveSession(ctx context.Context, telegramID int64) error {
	return s.client.Del(ctx, s.activeSessionKey(telegramID))
}
