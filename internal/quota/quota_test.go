package quota

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/antihype/morpheus-gateway/types"
)

type fakeUsers struct {
	remaining map[string]int
	status    map[string]types.SubscriptionStatus

	resetAllotment     int
	replenishAllotment int
	replenishCutoff    time.Duration
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{
		remaining: make(map[string]int),
		status:    make(map[string]types.SubscriptionStatus),
	}
}

func (f *fakeUsers) CreateUser(ctx context.Context, u *types.User) error { return nil }

func (f *fakeUsers) GetUser(ctx context.Context, id string) (*types.User, error) {
	r, ok := f.remaining[id]
	if !ok {
		return nil, types.ErrNotFound
	}
	return &types.User{ID: id, RemainingInterpretations: r, SubscriptionStatus: f.status[id]}, nil
}

func (f *fakeUsers) GetUserByEmail(ctx context.Context, email string) (*types.User, error) {
	return nil, types.ErrNotFound
}

func (f *fakeUsers) GetUserByTelegramID(ctx context.Context, telegramID int64) (*types.User, error) {
	return nil, types.ErrNotFound
}

func (f *fakeUsers) LinkTelegramID(ctx context.Context, userID string, telegramID int64) (*types.User, error) {
	return nil, types.ErrNotFound
}

func (f *fakeUsers) ConsumeInterpretation(ctx context.Context, userID string) (int, error) {
	r, ok := f.remaining[userID]
	if !ok {
		return 0, types.ErrNotFound
	}
	if r <= 0 {
		return 0, types.ErrQuotaExceeded
	}
	f.remaining[userID] = r - 1
	return r - 1, nil
}

func (f *fakeUsers) UpgradeToPremium(ctx context.Context, userID string, allotment int) (*types.User, error) {
	if _, ok := f.remaining[userID]; !ok {
		return nil, types.ErrNotFound
	}
	f.status[userID] = types.StatusPremium
	f.remaining[userID] = allotment
	return f.GetUser(ctx, userID)
}

func (f *fakeUsers) ResetPremiumQuota(ctx context.Context, allotment int) (int64, error) {
	f.resetAllotment = allotment
	return 4, nil
}

func (f *fakeUsers) ReplenishFreeQuota(ctx context.Context, allotment int, notUsedFor time.Duration) (int64, error) {
	f.replenishAllotment = allotment
	f.replenishCutoff = notUsedFor
	return 9, nil
}

func (f *fakeUsers) RecordPayment(ctx context.Context, p types.Payment) (bool, error) {
	return true, nil
}

type spyCache struct {
	invalidatedUsers []string
}

func (c *spyCache) GetPage(ctx context.Context, userID string, page, limit int) *types.SessionPage {
	return nil
}
func (c *spyCache) SetPage(ctx context.Context, userID string, page, limit int, p *types.SessionPage) {
}
func (c *spyCache) GetDetail(ctx context.Context, sessionID string) *types.SessionDetail { return nil }
func (c *spyCache) SetDetail(ctx context.Context, sessionID string, d *types.SessionDetail) {}
func (c *spyCache) GetUser(ctx context.Context, userID string) *types.User { return nil }
func (c *spyCache) SetUser(ctx context.Context, userID string, u *types.User) {}
func (c *spyCache) InvalidateSessions(ctx context.Context, userID, sessionID string) error {
	return nil
}
func (c *spyCache) InvalidateUser(ctx context.Context, userID string) error {
	c.invalidatedUsers = append(c.invalidatedUsers, userID)
	return nil
}

func TestTryConsume(t *testing.T) {
	users := newFakeUsers()
	users.remaining["u1"] = 2
	cache := &spyCache{}
	m := NewManager(users, cache)

	remaining, err := m.TryConsume(context.Background(), "u1")
	if err != nil {
		t.Fatalf("TryConsume: %v", err)
	}
	if remaining != 1 {
		t.Errorf("expected 1 remaining, got %d", remaining)
	}
	if len(cache.invalidatedUsers) != 1 || cache.invalidatedUsers[0] != "u1" {
		t.Errorf("expected user projection invalidation, got %v", cache.invalidatedUsers)
	}
}

func TestTryConsumeExhausted(t *testing.T) {
	users := newFakeUsers()
	users.remaining["u1"] = 0
	cache := &spyCache{}
	m := NewManager(users, cache)

	_, err := m.TryConsume(context.Background(), "u1")
	if !errors.Is(err, types.ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}
	if len(cache.invalidatedUsers) != 0 {
		t.Errorf("no invalidation expected on a failed consume, got %v", cache.invalidatedUsers)
	}
}

func TestTryConsumeUnknownUser(t *testing.T) {
	m := NewManager(newFakeUsers(), &spyCache{})
	if _, err := m.TryConsume(context.Background(), "ghost"); !errors.Is(err, types.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpgradeTier(t *testing.T) {
	users := newFakeUsers()
	users.remaining["u1"] = 0
	cache := &spyCache{}
	m := NewManager(users, cache)

	u, err := m.UpgradeTier(context.Background(), "u1")
	if err != nil {
		t.Fatalf("UpgradeTier: %v", err)
	}
	if u.SubscriptionStatus != types.StatusPremium {
		t.Errorf("expected PREMIUM, got %s", u.SubscriptionStatus)
	}
	if u.RemainingInterpretations != types.PremiumDailyCount {
		t.Errorf("expected %d interpretations, got %d", types.PremiumDailyCount, u.RemainingInterpretations)
	}
	if len(cache.invalidatedUsers) != 1 {
		t.Errorf("expected user projection invalidation, got %v", cache.invalidatedUsers)
	}
}

func TestRunReset(t *testing.T) {
	users := newFakeUsers()
	m := NewManager(users, &spyCache{})

	premium, free, err := m.RunReset(context.Background())
	if err != nil {
		t.Fatalf("RunReset: %v", err)
	}
	if premium != 4 || free != 9 {
		t.Errorf("wrong counts: premium %d, free %d", premium, free)
	}
	if users.resetAllotment != types.PremiumDailyCount {
		t.Errorf("wrong premium allotment: %d", users.resetAllotment)
	}
	if users.replenishAllotment != types.FreeInterpretationsCount {
		t.Errorf("wrong free allotment: %d", users.replenishAllotment)
	}
	if users.replenishCutoff != types.FreeReplenishAfter {
		t.Errorf("wrong replenish cutoff: %v", users.replenishCutoff)
	}
}
