package types

import (
	"context"
	"time"
)

type UserStore interface {
	CreateUser(ctx context.Context, u *User) error
	GetUser(ctx context.Context, id string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUserByTelegramID(ctx context.Context, telegramID int64) (*User, error)

	// LinkTelegramID binds a Telegram identity to the user. Linking the same
	// identity to the same user again is a no-op; an identity already bound
	// to a different user fails with ErrConflict.
	LinkTelegramID(ctx context.Context, userID string, telegramID int64) (*User, error)

	// ConsumeInterpretation atomically decrements the remaining counter,
	// only if it is positive. Returns ErrQuotaExceeded otherwise.
	ConsumeInterpretation(ctx context.Context, userID string) (remaining int, err error)

	UpgradeToPremium(ctx context.Context, userID string, allotment int) (*User, error)
	ResetPremiumQuota(ctx context.Context, allotment int) (int64, error)
	ReplenishFreeQuota(ctx context.Context, allotment int, notUsedFor time.Duration) (int64, error)

	RecordPayment(ctx context.Context, p Payment) (inserted bool, err error)
}

type SessionStore interface {
	CreateSession(ctx context.Context, s *ChatSession) error
	GetSession(ctx context.Context, id string) (*ChatSession, error)
	GetSessionsPage(ctx context.Context, userID string, page, limit int) ([]ChatSession, int, error)
	GetSessionMessages(ctx context.Context, sessionID string) ([]Message, error)
	AddMessage(ctx context.Context, m *Message) error
	GetPreviousDreams(ctx context.Context, userID, excludeSessionID string, max int) ([]string, error)
	DeleteSession(ctx context.Context, id string) error
}

// SessionCache is the read-through cache over session lists and details.
// Reads answer nil on a miss, writes are best-effort; only invalidation
// reports failure, because serving a stale entry after a write is the one
// cache fault that matters.
type SessionCache interface {
	GetPage(ctx context.Context, userID string, page, limit int) *SessionPage
	SetPage(ctx context.Context, userID string, page, limit int, p *SessionPage)
	GetDetail(ctx context.Context, sessionID string) *SessionDetail
	SetDetail(ctx context.Context, sessionID string, d *SessionDetail)

	// The user projection is keyed by canonical user id. Quota and linking
	// writes invalidate it, so a cached read never reports a stale counter
	// or subscription tier past the next write.
	GetUser(ctx context.Context, userID string) *User
	SetUser(ctx context.Context, userID string, u *User)

	InvalidateSessions(ctx context.Context, userID, sessionID string) error
	InvalidateUser(ctx context.Context, userID string) error
}

// QuotaService is the orchestrator's view of the Quota Manager.
type QuotaService interface {
	TryConsume(ctx context.Context, userID string) (remaining int, err error)
}

// Interpreter is the AI client adapter port.
type Interpreter interface {
	Interpret(ctx context.Context, user UserInfo, text string, history []Message, previousDreams []string) (string, error)
}

// Notifier delivers best-effort events to live client connections. A missing
// connection is not an error; the return value only says whether anyone was
// listening.
type Notifier interface {
	Notify(target, event string, payload interface{}) bool
}
