package httpapi

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/antihype/morpheus-gateway/internal/contextkeys"
	"github.com/antihype/morpheus-gateway/internal/ws"
	"github.com/antihype/morpheus-gateway/types"
	"github.com/gorilla/mux"
)

// ChatService is the orchestrator as the HTTP layer sees it.
type ChatService interface {
	CreateNewChat(ctx context.Context, userID, text string, channel types.Channel) (*types.ChatResult, error)
	AddMessageToChat(ctx context.Context, sessionID, userID, text string, channel types.Channel) (*types.ChatResult, error)
	GetSessionsByUser(ctx context.Context, userID string, page, limit int) (*types.SessionPage, error)
	GetSessionDetail(ctx context.Context, sessionID string) (*types.SessionDetail, error)
	DeleteSession(ctx context.Context, sessionID, userID string) error
}

type IdentityService interface {
	ResolveTelegram(ctx context.Context, telegramID int64) (*types.User, error)
	Link(ctx context.Context, userID string, telegramID int64) (*types.User, error)
}

type QuotaAdmin interface {
	UpgradeTier(ctx context.Context, userID string) (*types.User, error)
	RunReset(ctx context.Context) (premium, free int64, err error)
}

// TelegramSender lets the auth-success handler confirm linking into the
// user's Telegram chat. Nil when the bot is not running.
type TelegramSender func(ctx context.Context, telegramID int64, text string)

type Server struct {
	chat     ChatService
	ids      IdentityService
	quota    QuotaAdmin
	users    types.UserStore
	notifier types.Notifier
	wsHub    *ws.Hub

	sendTelegram TelegramSender

	cookieSecret   []byte
	internalSecret string
}

func NewServer(chat ChatService, ids IdentityService, quota QuotaAdmin, users types.UserStore, notifier types.Notifier, wsHub *ws.Hub, sendTelegram TelegramSender, cookieSecret, internalSecret string) *Server {
	return &Server{
		chat:           chat,
		ids:            ids,
		quota:          quota,
		users:          users,
		notifier:       notifier,
		wsHub:          wsHub,
		sendTelegram:   sendTelegram,
		cookieSecret:   []byte(cookieSecret),
		internalSecret: internalSecret,
	}
}

func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(loggingMiddleware)

	r.HandleFunc("/auth/register", s.handleRegister).Methods("POST")
	r.Handle("/auth/link-telegram", s.authMiddleware(http.HandlerFunc(s.handleLinkTelegram))).Methods("POST")

	r.Handle("/interpret", s.authMiddleware(http.HandlerFunc(s.handleInterpret))).Methods("POST")
	r.Handle("/interpret/{sessionId}", s.authMiddleware(http.HandlerFunc(s.handleFollowUp))).Methods("POST")
	r.Handle("/history/{userId}", s.authMiddleware(http.HandlerFunc(s.handleHistory))).Methods("GET")
	r.Handle("/session/{sessionId}", s.authMiddleware(http.HandlerFunc(s.handleSessionDetail))).Methods("GET")
	r.Handle("/session/{sessionId}", s.authMiddleware(http.HandlerFunc(s.handleDeleteSession))).Methods("DELETE")

	r.HandleFunc("/telegram/auth-success", s.handleAuthSuccess).Methods("POST")
	r.Handle("/telegram/user/{telegramId}", s.internalMiddleware(http.HandlerFunc(s.handleFindTelegramUser))).Methods("GET")

	r.Handle("/payment/success", s.internalMiddleware(http.HandlerFunc(s.handlePaymentSuccess))).Methods("POST")
	r.Handle("/admin/quota/reset", s.internalMiddleware(http.HandlerFunc(s.handleQuotaReset))).Methods("POST")

	r.Handle("/ws", s.authMiddleware(http.HandlerFunc(s.handleWS))).Methods("GET")

	return r
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %v", r.Method, r.URL.Path, time.Since(start))
	})
}

// authMiddleware resolves the already-issued signed identity cookie. Issuing
// the credential is the upstream auth layer's job, not this core's.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(identityCookie)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Требуется авторизация"})
			return
		}
		userID, err := VerifyCookie(s.cookieSecret, cookie.Value)
		if err != nil || userID == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Требуется авторизация"})
			return
		}
		ctx := contextkeys.WithUserID(r.Context(), userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) internalMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.internalSecret == "" || r.Header.Get("X-Internal-Secret") != s.internalSecret {
			writeJSON(w, http.StatusForbidden, map[string]string{"error": "Доступ запрещен."})
			return
		}
		next.ServeHTTP(w, r)
	})
}
