package httpapi

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/antihype/morpheus-gateway/types"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		if err := json.NewEncoder(w).Encode(v); err != nil {
			log.Printf("http: encoding response: %v", err)
		}
	}
}

// writeError maps the domain error taxonomy onto HTTP statuses. Internal
// detail is logged, never echoed to the caller.
func writeError(w http.ResponseWriter, err error) {
	var validation *types.ValidationError
	switch {
	case errors.As(err, &validation):
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":  "Некорректные данные запроса",
			"detail": validation.Fields,
		})
	case errors.Is(err, types.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Не найдено"})
	case errors.Is(err, types.ErrForbidden):
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "Доступ запрещен."})
	case errors.Is(err, types.ErrConflict):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "Конфликт данных"})
	default:
		log.Printf("http: internal error: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Внутренняя ошибка сервера"})
	}
}
