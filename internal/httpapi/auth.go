package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/antihype/morpheus-gateway/internal/contextkeys"
	"github.com/antihype/morpheus-gateway/internal/identity"
	"github.com/antihype/morpheus-gateway/types"
	"golang.org/x/crypto/bcrypt"
)

type registerRequest struct {
	Email            string `json:"email"`
	Password         string `json:"password"`
	Name             string `json:"name"`
	BirthDate        string `json:"birthDate"`
	TelegramInitData string `json:"telegramInitData"`
}

func validateRegister(req *registerRequest) *types.ValidationError {
	var fields []types.FieldError
	if strings.TrimSpace(req.Email) == "" {
		fields = append(fields, types.FieldError{Field: "email", Message: "email is required"})
	}
	if len(req.Password) < 8 {
		fields = append(fields, types.FieldError{Field: "password", Message: "password must be at least 8 characters"})
	}
	if req.BirthDate != "" {
		if _, err := time.Parse("2006-01-02", req.BirthDate); err != nil {
			fields = append(fields, types.FieldError{Field: "birthDate", Message: "birthDate must be YYYY-MM-DD"})
		}
	}
	if len(fields) > 0 {
		return &types.ValidationError{Fields: fields}
	}
	return nil
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, types.NewValidationError("body", "invalid request body"))
		return
	}
	if verr := validateRegister(&req); verr != nil {
		writeError(w, verr)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, err)
		return
	}

	user := &types.User{
		Email:                    req.Email,
		PasswordHash:             string(hash),
		Name:                     strings.TrimSpace(req.Name),
		SubscriptionStatus:       types.StatusFree,
		RemainingInterpretations: types.FreeInterpretationsCount,
	}
	if req.BirthDate != "" {
		bd, _ := time.Parse("2006-01-02", req.BirthDate)
		user.BirthDate = &bd
	}
	if req.TelegramInitData != "" {
		ident, err := identity.ParseInitData(req.TelegramInitData)
		if err != nil {
			writeError(w, err)
			return
		}
		user.TelegramID = &ident.ID
		if user.Name == "" {
			user.Name = ident.DisplayName()
		}
	}

	if err := s.users.CreateUser(r.Context(), user); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

type linkTelegramRequest struct {
	TelegramInitData string `json:"telegramInitData"`
}

func (s *Server) handleLinkTelegram(w http.ResponseWriter, r *http.Request) {
	userID, _ := contextkeys.GetUserID(r.Context())

	var req linkTelegramRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, types.NewValidationError("telegramInitData", "invalid request body"))
		return
	}
	ident, err := identity.ParseInitData(req.TelegramInitData)
	if err != nil {
		writeError(w, err)
		return
	}

	user, err := s.ids.Link(r.Context(), userID, ident.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
