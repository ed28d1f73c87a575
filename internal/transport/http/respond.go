package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"sysdesign-quiz-service/internal/domain"
)

const userHeader = "X-User-ID"

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError maps domain errors to status codes; unknown errors are logged and hidden.
func writeError(w http.ResponseWriter, logger *zap.Logger, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		logger.Error("request failed", zap.Error(err))
		msg = "internal error"
	}
	writeJSON(w, status, errorBody{Error: msg})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized
	case domain.IsNotFound(err):
		return http.StatusNotFound
	case domain.IsInvalidInput(err):
		return http.StatusBadRequest
	case domain.IsConflict(err):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func userID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(userHeader))
}

func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errors.Join(domain.ErrInvalidInput, err)
	}
	return nil
}
