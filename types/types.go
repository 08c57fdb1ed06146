package types

import "time"

type SubscriptionStatus string

const (
	StatusFree    SubscriptionStatus = "FREE"
	StatusPremium SubscriptionStatus = "PREMIUM"
)

type Channel string

const (
	ChannelWeb      Channel = "web"
	ChannelTelegram Channel = "telegram"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

const (
	// Interpretation allotments. Free quota is replenished no earlier than
	// FreeReplenishAfter since the last free interpretation; the premium
	// allotment is restored by the daily reset trigger.
	FreeInterpretationsCount = 3
	PremiumDailyCount        = 50
	FreeReplenishAfter       = 72 * time.Hour
)

// ActionSubscribe is returned instead of an interpretation when the user's
// quota is exhausted. It is a hint for the channel, not an error.
const ActionSubscribe = "subscribe"

type User struct {
	ID                       string             `json:"id"`
	Email                    string             `json:"email"`
	PasswordHash             string             `json:"-"`
	Name                     string             `json:"name,omitempty"`
	BirthDate                *time.Time         `json:"birthDate,omitempty"`
	TelegramID               *int64             `json:"telegramId,omitempty"`
	SubscriptionStatus       SubscriptionStatus `json:"subscriptionStatus"`
	RemainingInterpretations int                `json:"remainingInterpretations"`
	LastFreeInterpretationAt *time.Time         `json:"lastFreeInterpretationAt,omitempty"`
	CreatedAt                time.Time          `json:"createdAt"`
	UpdatedAt                time.Time          `json:"updatedAt"`
}

// UserInfo is the user projection sent to the interpretation engine.
type UserInfo struct {
	Name      string     `json:"name"`
	BirthDate *time.Time `json:"birthDate,omitempty"`
}

func (u *User) Info() UserInfo {
	name := u.Name
	if name == "" {
		name = "Пользователь"
	}
	return UserInfo{Name: name, BirthDate: u.BirthDate}
}

type ChatSession struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Title     string    `json:"title"`
	Channel   Channel   `json:"channel"`
	CreatedAt time.Time `json:"createdAt"`
}

type Message struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

type SessionDetail struct {
	Session  ChatSession `json:"session"`
	Messages []Message   `json:"messages"`
}

type SessionPage struct {
	Sessions   []ChatSession `json:"sessions"`
	Page       int           `json:"page"`
	Limit      int           `json:"limit"`
	Total      int           `json:"total"`
	TotalPages int           `json:"totalPages"`
}

// ChatResult is the orchestrator's answer to one inbound message. Exactly one
// of AssistantMessage, Action or ErrorText is meaningful besides UserMessage:
// a generated reply, a subscribe hint on exhausted quota, or the user-facing
// text of an interpretation failure (the user message stays persisted).
type ChatResult struct {
	Session          *ChatSession `json:"session,omitempty"`
	UserMessage      *Message     `json:"message,omitempty"`
	AssistantMessage *Message     `json:"assistantMessage,omitempty"`
	Interpretation   string       `json:"interpretation,omitempty"`
	Action           string       `json:"action,omitempty"`
	ErrorText        string       `json:"error,omitempty"`
	Remaining        int          `json:"remainingInterpretations"`
}

type Payment struct {
	UserID                string
	Provider              string
	Currency              string
	TotalAmount           int64
	InvoicePayload        string
	TelegramPaymentCharge string
	ProviderPaymentCharge string
	CreatedAt             time.Time
}
