package identity

import (
	"context"
	"encoding/json"
	"log"
	"net/url"

	"github.com/antihype/morpheus-gateway/types"
)

// TelegramIdentity is the user payload of a Telegram WebApp init string.
// Signature validation of the init string happens upstream, before this core
// is reached.
type TelegramIdentity struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	Username  string `json:"username"`
}

// DisplayName picks the best human-readable name the payload offers.
func (t *TelegramIdentity) DisplayName() string {
	if t.FirstName != "" {
		return t.FirstName
	}
	if t.Username != "" {
		return t.Username
	}
	return "пользователь"
}

// ParseInitData extracts the Telegram identity from a WebApp initData query
// string.
func ParseInitData(initData string) (*TelegramIdentity, error) {
	values, err := url.ParseQuery(initData)
	if err != nil {
		return nil, types.NewValidationError("telegramInitData", "malformed init data")
	}
	rawUser := values.Get("user")
	if rawUser == "" {
		return nil, types.NewValidationError("telegramInitData", "missing user payload")
	}
	var ident TelegramIdentity
	if err := json.Unmarshal([]byte(rawUser), &ident); err != nil || ident.ID == 0 {
		return nil, types.NewValidationError("telegramInitData", "malformed user payload")
	}
	return &ident, nil
}

// Resolver maps channel credentials to canonical users and performs account
// linking. Web identities arrive already resolved; only Telegram needs work.
type Resolver struct {
	users types.UserStore
	cache types.SessionCache
}

func NewResolver(users types.UserStore, cache types.SessionCache) *Resolver {
	return &Resolver{users: users, cache: cache}
}

// ResolveTelegram looks up the canonical user behind a Telegram id and warms
// the user projection cache, so follow-up reads within the dialog hit Redis
// instead of Postgres.
func (r *Resolver) ResolveTelegram(ctx context.Context, telegramID int64) (*types.User, error) {
	u, err := r.users.GetUserByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, err
	}
	r.cache.SetUser(ctx, u.ID, u)
	return u, nil
}

// Link binds a Telegram identity to the user. Repeating an existing link is a
// no-op; an identity owned by a different user fails with ErrConflict and the
// original mapping stays untouched.
func (r *Resolver) Link(ctx context.Context, userID string, telegramID int64) (*types.User, error) {
	u, err := r.users.LinkTelegramID(ctx, userID, telegramID)
	if err != nil {
		return nil, err
	}
	if err := r.cache.InvalidateUser(ctx, userID); err != nil {
		log.Printf("identity: invalidating user %s: %v", userID, err)
	}
	return u, nil
}
