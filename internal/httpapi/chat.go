package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/antihype/morpheus-gateway/internal/contextkeys"
	"github.com/antihype/morpheus-gateway/internal/ws"
	"github.com/antihype/morpheus-gateway/types"
	"github.com/gorilla/mux"
)

type interpretRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleInterpret(w http.ResponseWriter, r *http.Request) {
	userID, _ := contextkeys.GetUserID(r.Context())

	var req interpretRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, types.NewValidationError("text", "invalid request body"))
		return
	}

	result, err := s.chat.CreateNewChat(r.Context(), userID, req.Text, types.ChannelWeb)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (s *Server) handleFollowUp(w http.ResponseWriter, r *http.Request) {
	userID, _ := contextkeys.GetUserID(r.Context())
	sessionID := mux.Vars(r)["sessionId"]

	var req interpretRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, types.NewValidationError("text", "invalid request body"))
		return
	}

	result, err := s.chat.AddMessageToChat(r.Context(), sessionID, userID, req.Text, types.ChannelWeb)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	authedID, _ := contextkeys.GetUserID(r.Context())
	requestedID := mux.Vars(r)["userId"]
	if requestedID != authedID {
		writeError(w, types.ErrForbidden)
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	result, err := s.chat.GetSessionsByUser(r.Context(), authedID, page, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleSessionDetail(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionId"]

	detail, err := s.chat.GetSessionDetail(r.Context(), sessionID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	userID, _ := contextkeys.GetUserID(r.Context())
	sessionID := mux.Vars(r)["sessionId"]

	if err := s.chat.DeleteSession(r.Context(), sessionID, userID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	userID, _ := contextkeys.GetUserID(r.Context())
	if s.wsHub == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "Уведомления недоступны"})
		return
	}
	ws.ServeWS(s.wsHub, w, r, userID)
}
