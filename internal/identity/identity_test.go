package identity

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/antihype/morpheus-gateway/types"
)

type fakeUsers struct {
	users map[string]*types.User
}

func (f *fakeUsers) CreateUser(ctx context.Context, u *types.User) error { return nil }

func (f *fakeUsers) GetUser(ctx context.Context, id string) (*types.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, types.ErrNotFound
	}
	return u, nil
}

func (f *fakeUsers) GetUserByEmail(ctx context.Context, email string) (*types.User, error) {
	return nil, types.ErrNotFound
}

func (f *fakeUsers) GetUserByTelegramID(ctx context.Context, telegramID int64) (*types.User, error) {
	for _, u := range f.users {
		if u.TelegramID != nil && *u.TelegramID == telegramID {
			return u, nil
		}
	}
	return nil, types.ErrNotFound
}

func (f *fakeUsers) LinkTelegramID(ctx context.Context, userID string, telegramID int64) (*types.User, error) {
	for _, u := range f.users {
		if u.TelegramID != nil && *u.TelegramID == telegramID && u.ID != userID {
			return nil, types.ErrConflict
		}
	}
	u, ok := f.users[userID]
	if !ok {
		return nil, types.ErrNotFound
	}
	u.TelegramID = &telegramID
	return u, nil
}

func (f *fakeUsers) ConsumeInterpretation(ctx context.Context, userID string) (int, error) {
	return 0, nil
}

func (f *fakeUsers) UpgradeToPremium(ctx context.Context, userID string, allotment int) (*types.User, error) {
	return nil, types.ErrNotFound
}

func (f *fakeUsers) ResetPremiumQuota(ctx context.Context, allotment int) (int64, error) {
	return 0, nil
}

func (f *fakeUsers) ReplenishFreeQuota(ctx context.Context, allotment int, notUsedFor time.Duration) (int64, error) {
	return 0, nil
}

func (f *fakeUsers) RecordPayment(ctx context.Context, p types.Payment) (bool, error) {
	return true, nil
}

// fakeCache records user projection traffic so tests can watch the resolver
// warm and invalidate it.
type fakeCache struct {
	users       map[string]*types.User
	invalidated []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{users: make(map[string]*types.User)}
}

func (c *fakeCache) GetPage(ctx context.Context, userID string, page, limit int) *types.SessionPage {
	return nil
}
func (c *fakeCache) SetPage(ctx context.Context, userID string, page, limit int, p *types.SessionPage) {
}
func (c *fakeCache) GetDetail(ctx context.Context, sessionID string) *types.SessionDetail {
	return nil
}
func (c *fakeCache) SetDetail(ctx context.Context, sessionID string, d *types.SessionDetail) {}
func (c *fakeCache) GetUser(ctx context.Context, userID string) *types.User {
	return c.users[userID]
}
func (c *fakeCache) SetUser(ctx context.Context, userID string, u *types.User) {
	c.users[userID] = u
}
func (c *fakeCache) InvalidateSessions(ctx context.Context, userID, sessionID string) error {
	return nil
}
func (c *fakeCache) InvalidateUser(ctx context.Context, userID string) error {
	delete(c.users, userID)
	c.invalidated = append(c.invalidated, userID)
	return nil
}

func TestParseInitData(t *testing.T) {
	initData := url.Values{
		"user": {`{"id":1210,"first_name":"Анна","username":"anna"}`},
		"hash": {"abc"},
	}.Encode()

	ident, err := ParseInitData(initData)
	if err != nil {
		t.Fatalf("ParseInitData: %v", err)
	}
	if ident.ID != 1210 {
		t.Errorf("wrong id: %d", ident.ID)
	}
	if ident.DisplayName() != "Анна" {
		t.Errorf("wrong display name: %q", ident.DisplayName())
	}
}

func TestParseInitDataMissingUser(t *testing.T) {
	_, err := ParseInitData("hash=abc")
	var verr *types.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestParseInitDataMalformedPayload(t *testing.T) {
	for _, initData := range []string{
		"user=not-json",
		"user=%7B%22id%22%3A0%7D", // {"id":0}
		"user=;%zz",
	} {
		if _, err := ParseInitData(initData); err == nil {
			t.Errorf("expected error for %q", initData)
		}
	}
}

func TestDisplayNameFallbacks(t *testing.T) {
	ident := &TelegramIdentity{ID: 1, Username: "dreamer"}
	if ident.DisplayName() != "dreamer" {
		t.Errorf("expected username fallback, got %q", ident.DisplayName())
	}
	ident = &TelegramIdentity{ID: 1}
	if ident.DisplayName() != "пользователь" {
		t.Errorf("expected generic fallback, got %q", ident.DisplayName())
	}
}

func TestLinkIdempotent(t *testing.T) {
	users := &fakeUsers{users: map[string]*types.User{
		"u1": {ID: "u1"},
	}}
	r := NewResolver(users, newFakeCache())

	if _, err := r.Link(context.Background(), "u1", 500); err != nil {
		t.Fatalf("first link: %v", err)
	}
	u, err := r.Link(context.Background(), "u1", 500)
	if err != nil {
		t.Fatalf("repeated link must be a no-op: %v", err)
	}
	if u.TelegramID == nil || *u.TelegramID != 500 {
		t.Errorf("wrong telegram id after relink: %v", u.TelegramID)
	}
}

func TestLinkConflictKeepsOriginal(t *testing.T) {
	tg := int64(500)
	users := &fakeUsers{users: map[string]*types.User{
		"u1": {ID: "u1", TelegramID: &tg},
		"u2": {ID: "u2"},
	}}
	r := NewResolver(users, newFakeCache())

	_, err := r.Link(context.Background(), "u2", 500)
	if !errors.Is(err, types.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	owner, err := r.ResolveTelegram(context.Background(), 500)
	if err != nil {
		t.Fatalf("ResolveTelegram: %v", err)
	}
	if owner.ID != "u1" {
		t.Errorf("original mapping must survive the conflict, resolved to %s", owner.ID)
	}
}

func TestResolveTelegramWarmsCache(t *testing.T) {
	tg := int64(500)
	users := &fakeUsers{users: map[string]*types.User{
		"u1": {ID: "u1", TelegramID: &tg},
	}}
	cache := newFakeCache()
	r := NewResolver(users, cache)

	u, err := r.ResolveTelegram(context.Background(), 500)
	if err != nil {
		t.Fatalf("ResolveTelegram: %v", err)
	}
	cached := cache.GetUser(context.Background(), u.ID)
	if cached == nil || cached.ID != "u1" {
		t.Fatalf("expected the resolved user to be cached, got %+v", cached)
	}

	if _, err := r.ResolveTelegram(context.Background(), 999); !errors.Is(err, types.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if len(cache.users) != 1 {
		t.Errorf("a failed resolution must not touch the cache, got %d entries", len(cache.users))
	}
}

func TestLinkInvalidatesUserProjection(t *testing.T) {
	users := &fakeUsers{users: map[string]*types.User{
		"u1": {ID: "u1"},
	}}
	cache := newFakeCache()
	cache.SetUser(context.Background(), "u1", &types.User{ID: "u1"})
	r := NewResolver(users, cache)

	if _, err := r.Link(context.Background(), "u1", 500); err != nil {
		t.Fatalf("Link: %v", err)
	}
	if cache.GetUser(context.Background(), "u1") != nil {
		t.Error("the stale projection must be dropped after linking")
	}
	if len(cache.invalidated) != 1 || cache.invalidated[0] != "u1" {
		t.Errorf("expected one invalidation for u1, got %v", cache.invalidated)
	}
}
