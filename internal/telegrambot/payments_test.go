package telegrambot

import (
	"context"
	"testing"
	"time"

	"github.com/go-telegram/bot/models"

	"github.com/antihype/morpheus-gateway/internal/messages"
	"github.com/antihype/morpheus-gateway/types"
)

// paymentUsers keeps recorded charge ids, so a repeated charge id is rejected
// the way the unique index does it in Postgres.
type paymentUsers struct {
	charges  map[string]bool
	recorded []types.Payment
}

func newPaymentUsers() *paymentUsers {
	return &paymentUsers{charges: make(map[string]bool)}
}

func (f *paymentUsers) CreateUser(ctx context.Context, u *types.User) error { return nil }

func (f *paymentUsers) GetUser(ctx context.Context, id string) (*types.User, error) {
	return nil, types.ErrNotFound
}

func (f *paymentUsers) GetUserByEmail(ctx context.Context, email string) (*types.User, error) {
	return nil, types.ErrNotFound
}

func (f *paymentUsers) GetUserByTelegramID(ctx context.Context, telegramID int64) (*types.User, error) {
	return nil, types.ErrNotFound
}

func (f *paymentUsers) LinkTelegramID(ctx context.Context, userID string, telegramID int64) (*types.User, error) {
	return nil, types.ErrNotFound
}

func (f *paymentUsers) ConsumeInterpretation(ctx context.Context, userID string) (int, error) {
	return 0, types.ErrNotFound
}

func (f *paymentUsers) UpgradeToPremium(ctx context.Context, userID string, allotment int) (*types.User, error) {
	return nil, types.ErrNotFound
}

func (f *paymentUsers) ResetPremiumQuota(ctx context.Context, allotment int) (int64, error) {
	return 0, nil
}

func (f *paymentUsers) ReplenishFreeQuota(ctx context.Context, allotment int, notUsedFor time.Duration) (int64, error) {
	return 0, nil
}

func (f *paymentUsers) RecordPayment(ctx context.Context, p types.Payment) (bool, error) {
	if f.charges[p.TelegramPaymentCharge] {
		return false, nil
	}
	f.charges[p.TelegramPaymentCharge] = true
	f.recorded = append(f.recorded, p)
	return true, nil
}

type countingQuota struct {
	upgrades int
	err      error
}

func (q *countingQuota) UpgradeTier(ctx context.Context, userID string) (*types.User, error) {
	q.upgrades++
	if q.err != nil {
		return nil, q.err
	}
	return &types.User{ID: userID, SubscriptionStatus: types.StatusPremium}, nil
}

func newPaymentHandlers(users *paymentUsers, quota *countingQuota) *Handlers {
	return NewHandlers(users, nil, nil, quota, nil, Config{
		SubscribePayload: "premium_subscription",
		PremiumPriceXTR:  250,
	})
}

func starsPayment(chargeID string) *models.SuccessfulPayment {
	return &models.SuccessfulPayment{
		Currency:                "XTR",
		TotalAmount:             250,
		InvoicePayload:          "premium_subscription",
		TelegramPaymentChargeID: chargeID,
		ProviderPaymentChargeID: chargeID,
	}
}

func TestApplyPayment(t *testing.T) {
	users := newPaymentUsers()
	quota := &countingQuota{}
	bh := newPaymentHandlers(users, quota)
	user := &types.User{ID: "u1"}

	got := bh.applyPayment(context.Background(), user, starsPayment("charge-1"))
	if got != messages.PaymentSucceeded {
		t.Fatalf("expected success answer, got %q", got)
	}
	if quota.upgrades != 1 {
		t.Errorf("expected one upgrade, got %d", quota.upgrades)
	}
	if len(users.recorded) != 1 {
		t.Fatalf("expected one recorded payment, got %d", len(users.recorded))
	}
	p := users.recorded[0]
	if p.UserID != "u1" || p.Provider != "stars" || p.Currency != "XTR" || p.TotalAmount != 250 {
		t.Errorf("wrong recorded payment: %+v", p)
	}
}

func TestApplyPaymentReplay(t *testing.T) {
	users := newPaymentUsers()
	quota := &countingQuota{}
	bh := newPaymentHandlers(users, quota)
	user := &types.User{ID: "u1"}

	if got := bh.applyPayment(context.Background(), user, starsPayment("charge-7")); got != messages.PaymentSucceeded {
		t.Fatalf("first charge must succeed, got %q", got)
	}

	got := bh.applyPayment(context.Background(), user, starsPayment("charge-7"))
	if got != messages.PaymentAlreadyProcessed {
		t.Fatalf("replayed charge must answer already-processed, got %q", got)
	}
	if quota.upgrades != 1 {
		t.Errorf("a replayed charge must not upgrade again, got %d upgrades", quota.upgrades)
	}

	// A genuinely new charge still goes through.
	if got := bh.applyPayment(context.Background(), user, starsPayment("charge-8")); got != messages.PaymentSucceeded {
		t.Errorf("a fresh charge after the replay must succeed, got %q", got)
	}
	if quota.upgrades != 2 {
		t.Errorf("expected 2 upgrades, got %d", quota.upgrades)
	}
}

func TestApplyPaymentUpgradeFailure(t *testing.T) {
	users := newPaymentUsers()
	quota := &countingQuota{err: types.ErrNotFound}
	bh := newPaymentHandlers(users, quota)

	got := bh.applyPayment(context.Background(), &types.User{ID: "ghost"}, starsPayment("charge-2"))
	if got != messages.ErrorDefault {
		t.Errorf("expected the default error answer, got %q", got)
	}
}
