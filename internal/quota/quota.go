package quota

import (
	"context"
	"log"

	"github.com/antihype/morpheus-gateway/types"
)

// Manager owns the remaining-interpretations counter. The store performs the
// actual conditional decrement; the manager adds the allotment policy and
// keeps cached user projections honest.
type Manager struct {
	users types.UserStore
	cache types.SessionCache
}

func NewManager(users types.UserStore, cache types.SessionCache) *Manager {
	return &Manager{users: users, cache: cache}
}

// TryConsume atomically spends one interpretation. ErrQuotaExceeded is a
// normal outcome the caller turns into a subscribe hint.
func (m *Manager) TryConsume(ctx context.Context, userID string) (int, error) {
	remaining, err := m.users.ConsumeInterpretation(ctx, userID)
	if err != nil {
		return 0, err
	}
	if cerr := m.cache.InvalidateUser(ctx, userID); cerr != nil {
		log.Printf("quota: invalidating user %s: %v", userID, cerr)
	}
	return remaining, nil
}

// UpgradeTier switches the user to PREMIUM and restores the premium daily
// allotment. Called when a payment capture event reaches the core.
func (m *Manager) UpgradeTier(ctx context.Context, userID string) (*types.User, error) {
	u, err := m.users.UpgradeToPremium(ctx, userID, types.PremiumDailyCount)
	if err != nil {
		return nil, err
	}
	if cerr := m.cache.InvalidateUser(ctx, userID); cerr != nil {
		log.Printf("quota: invalidating user %s: %v", userID, cerr)
	}
	return u, nil
}

// RunReset is the externally triggered replenishment: premium users get their
// daily allotment back, exhausted free users regain theirs once enough time
// has passed since the last free interpretation.
func (m *Manager) RunReset(ctx context.Context) (premium, free int64, err error) {
	premium, err = m.users.ResetPremiumQuota(ctx, types.PremiumDailyCount)
	if err != nil {
		return 0, 0, err
	}
	free, err = m.users.ReplenishFreeQuota(ctx, types.FreeInterpretationsCount, types.FreeReplenishAfter)
	if err != nil {
		return premium, 0, err
	}
	return premium, free, nil
}
