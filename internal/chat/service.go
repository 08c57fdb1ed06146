package chat

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/antihype/morpheus-gateway/internal/messages"
	"github.com/antihype/morpheus-gateway/types"
)

// previousDreamsLimit caps how many earlier dreams are sent to the engine as
// context.
const previousDreamsLimit = 5

const (
	defaultPageLimit = 15
	maxPageLimit     = 50
)

// Service owns the session and message lifecycle. For every inbound message
// it sequences ownership check, quota consumption, persistence, the AI call
// and cache invalidation, in that order.
type Service struct {
	users    types.UserStore
	sessions types.SessionStore
	quota    types.QuotaService
	cache    types.SessionCache
	ai       types.Interpreter
}

func NewService(users types.UserStore, sessions types.SessionStore, quota types.QuotaService, cache types.SessionCache, ai types.Interpreter) *Service {
	return &Service{
		users:    users,
		sessions: sessions,
		quota:    quota,
		cache:    cache,
		ai:       ai,
	}
}

// CreateNewChat opens a session owned by userID and handles text as its first
// message.
func (s *Service) CreateNewChat(ctx context.Context, userID, text string, channel types.Channel) (*types.ChatResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, types.NewValidationError("text", "text is required")
	}

	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	session := &types.ChatSession{
		UserID:  userID,
		Title:   deriveTitle(text),
		Channel: channel,
	}
	if err := s.sessions.CreateSession(ctx, session); err != nil {
		return nil, err
	}
	// The session row exists now, so the first list page is stale regardless
	// of how the quota check below turns out.
	s.invalidate(ctx, userID, "")

	return s.process(ctx, user, session, text)
}

// AddMessageToChat appends a user turn to an existing session and asks the
// engine for a reply. Ownership and quota are checked before any mutation;
// once the user message is persisted, downstream failures are reported but
// never rolled back.
func (s *Service) AddMessageToChat(ctx context.Context, sessionID, userID, text string, channel types.Channel) (*types.ChatResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, types.NewValidationError("text", "text is required")
	}

	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.UserID != userID {
		return nil, types.ErrForbidden
	}

	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	return s.process(ctx, user, session, text)
}

func (s *Service) process(ctx context.Context, user *types.User, session *types.ChatSession, text string) (*types.ChatResult, error) {
	remaining, err := s.quota.TryConsume(ctx, user.ID)
	if errors.Is(err, types.ErrQuotaExceeded) {
		return &types.ChatResult{
			Session: session,
			Action:  types.ActionSubscribe,
		}, nil
	}
	if err != nil {
		return nil, err
	}

	history, err := s.sessions.GetSessionMessages(ctx, session.ID)
	if err != nil {
		return nil, err
	}

	userMsg := &types.Message{
		SessionID: session.ID,
		Role:      types.RoleUser,
		Content:   text,
	}
	if err := s.sessions.AddMessage(ctx, userMsg); err != nil {
		return nil, err
	}

	previousDreams, err := s.sessions.GetPreviousDreams(ctx, user.ID, session.ID, previousDreamsLimit)
	if err != nil {
		// Context only; the interpretation can proceed without it.
		log.Printf("chat: loading previous dreams for %s: %v", user.ID, err)
		previousDreams = nil
	}

	interpretation, err := s.ai.Interpret(ctx, user.Info(), text, history, previousDreams)
	if err != nil {
		// The user message above stays persisted: the session is valid and
		// resumable, the caller may re-issue the request.
		s.invalidate(ctx, user.ID, session.ID)
		return &types.ChatResult{
			Session:     session,
			UserMessage: userMsg,
			ErrorText:   userFacing(err),
			Remaining:   remaining,
		}, nil
	}

	assistantMsg := &types.Message{
		SessionID: session.ID,
		Role:      types.RoleAssistant,
		Content:   interpretation,
	}
	if err := s.sessions.AddMessage(ctx, assistantMsg); err != nil {
		s.invalidate(ctx, user.ID, session.ID)
		return nil, err
	}

	s.invalidate(ctx, user.ID, session.ID)

	return &types.ChatResult{
		Session:          session,
		UserMessage:      userMsg,
		AssistantMessage: assistantMsg,
		Interpretation:   interpretation,
		Remaining:        remaining,
	}, nil
}

// GetSessionsByUser is a read-through over the list cache, most recent
// session first.
func (s *Service) GetSessionsByUser(ctx context.Context, userID string, page, limit int) (*types.SessionPage, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	if cached := s.cache.GetPage(ctx, userID, page, limit); cached != nil {
		return cached, nil
	}

	sessions, total, err := s.sessions.GetSessionsPage(ctx, userID, page, limit)
	if err != nil {
		return nil, err
	}

	result := &types.SessionPage{
		Sessions:   sessions,
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: (total + limit - 1) / limit,
	}
	s.cache.SetPage(ctx, userID, page, limit, result)
	return result, nil
}

// GetSessionDetail is a read-through over the detail cache.
func (s *Service) GetSessionDetail(ctx context.Context, sessionID string) (*types.SessionDetail, error) {
	if cached := s.cache.GetDetail(ctx, sessionID); cached != nil {
		return cached, nil
	}

	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	msgs, err := s.sessions.GetSessionMessages(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	detail := &types.SessionDetail{Session: *session, Messages: msgs}
	s.cache.SetDetail(ctx, sessionID, detail)
	return detail, nil
}

// DeleteSession hard-deletes a session and its messages after an ownership
// check.
func (s *Service) DeleteSession(ctx context.Context, sessionID, userID string) error {
	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.UserID != userID {
		return types.ErrForbidden
	}

	if err := s.sessions.DeleteSession(ctx, sessionID); err != nil {
		return err
	}
	s.invalidate(ctx, userID, sessionID)
	return nil
}

// getUser is a read-through over the user projection cache. Quota and
// linking writes invalidate the entry, so a hit is as fresh as the last
// counter change.
func (s *Service) getUser(ctx context.Context, userID string) (*types.User, error) {
	if cached := s.cache.GetUser(ctx, userID); cached != nil {
		return cached, nil
	}
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.cache.SetUser(ctx, userID, user)
	return user, nil
}

func (s *Service) invalidate(ctx context.Context, userID, sessionID string) {
	if err := s.cache.InvalidateSessions(ctx, userID, sessionID); err != nil {
		// Entries carry a TTL, so a failed invalidation is bounded staleness,
		// not permanent corruption.
		log.Printf("chat: cache invalidation for user %s: %v", userID, err)
	}
}

func userFacing(err error) string {
	var rejected *types.InterpretationRejectedError
	if errors.As(err, &rejected) {
		return rejected.Message
	}
	return messages.AIUnavailable
}

func deriveTitle(text string) string {
	runes := []rune(text)
	if len(runes) <= 80 {
		return text
	}
	return string(runes[:80]) + "…"
}
