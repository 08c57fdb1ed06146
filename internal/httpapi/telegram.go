package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/antihype/morpheus-gateway/internal/identity"
	"github.com/antihype/morpheus-gateway/internal/messages"
	"github.com/antihype/morpheus-gateway/types"
	"github.com/gorilla/mux"
)

type authSuccessRequest struct {
	TelegramInitData string `json:"telegramInitData"`
}

// handleAuthSuccess fires after the WebApp linking flow completes. Both
// notifications are best-effort and never fail the request: the web client
// learns its authenticated state changed, the Telegram chat gets the
// confirmation text.
func (s *Server) handleAuthSuccess(w http.ResponseWriter, r *http.Request) {
	var req authSuccessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, types.NewValidationError("telegramInitData", "invalid request body"))
		return
	}
	ident, err := identity.ParseInitData(req.TelegramInitData)
	if err != nil {
		writeError(w, err)
		return
	}

	name := ident.DisplayName()
	notified := false

	user, err := s.ids.ResolveTelegram(r.Context(), ident.ID)
	if err != nil && !errors.Is(err, types.ErrNotFound) {
		writeError(w, err)
		return
	}
	if user != nil {
		if user.Name != "" {
			name = user.Name
		}
		notified = s.notifier.Notify(user.ID, "user_authed", map[string]string{
			"telegramId": strconv.FormatInt(ident.ID, 10),
			"name":       name,
		})
	}

	// The chat confirmation only makes sense for a linked account; an unknown
	// Telegram identity has nothing to confirm.
	if user != nil && s.sendTelegram != nil {
		telegramID := ident.ID
		text := messages.AccountLinked(name)
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			s.sendTelegram(ctx, telegramID, text)
		}()
	}

	writeJSON(w, http.StatusOK, map[string]bool{"notified": notified})
}

func (s *Server) handleFindTelegramUser(w http.ResponseWriter, r *http.Request) {
	telegramID, err := strconv.ParseInt(mux.Vars(r)["telegramId"], 10, 64)
	if err != nil {
		writeError(w, types.NewValidationError("telegramId", "must be an integer"))
		return
	}

	user, err := s.ids.ResolveTelegram(r.Context(), telegramID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

type paymentSuccessRequest struct {
	UserID string `json:"userId"`
}

// handlePaymentSuccess is the inbound edge of an external payment capture:
// the provider's webhook relay reports a completed purchase and the core
// upgrades the tier.
func (s *Server) handlePaymentSuccess(w http.ResponseWriter, r *http.Request) {
	var req paymentSuccessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		writeError(w, types.NewValidationError("userId", "userId is required"))
		return
	}

	user, err := s.quota.UpgradeTier(r.Context(), req.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// handleQuotaReset is the external daily-reset trigger.
func (s *Server) handleQuotaReset(w http.ResponseWriter, r *http.Request) {
	premium, free, err := s.quota.RunReset(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{
		"premiumReset":    premium,
		"freeReplenished": free,
	})
}
