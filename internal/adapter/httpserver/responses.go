// Package httpserver contains the HTTP handlers and middleware.
//
// It exposes the REST API: account registration and login, resume
// upload, interview session progression, answer submission and report
// retrieval. HTTP concerns stay here; business rules live in usecase.
package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

type errorEnvelope struct {
	Error apiError `json:"error"`
}

type apiError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain sentinels onto HTTP statuses. Anything unmapped is a
// 500 with a generic message so internals never leak to clients.
func writeError(w http.ResponseWriter, _ *http.Request, err error, details interface{}) {
	code := http.StatusInternalServerError
	codeStr := "INTERNAL"
	message := err.Error()
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		code = http.StatusBadRequest
		codeStr = "INVALID_ARGUMENT"
	case errors.Is(err, domain.ErrUnauthorized):
		code = http.StatusUnauthorized
		codeStr = "UNAUTHORIZED"
	case errors.Is(err, domain.ErrNotFound):
		code = http.StatusNotFound
		codeStr = "NOT_FOUND"
	case errors.Is(err, domain.ErrUnsupportedFormat):
		code = http.StatusUnsupportedMediaType
		codeStr = "UNSUPPORTED_MEDIA_TYPE"
	case errors.Is(err, domain.ErrQuestionMismatch):
		code = http.StatusUnprocessableEntity
		codeStr = "QUESTION_MISMATCH"
	case errors.Is(err, domain.ErrAlreadyCompleted):
		code = http.StatusConflict
		codeStr = "ALREADY_COMPLETED"
	case errors.Is(err, domain.ErrReportNotReady):
		code = http.StatusConflict
		codeStr = "REPORT_NOT_READY"
	case errors.Is(err, domain.ErrIncompleteResponses):
		code = http.StatusConflict
		codeStr = "INCOMPLETE_RESPONSES"
	case errors.Is(err, domain.ErrConflict):
		code = http.StatusConflict
		codeStr = "CONFLICT"
	case errors.Is(err, domain.ErrRateLimited):
		code = http.StatusTooManyRequests
		codeStr = "RATE_LIMITED"
	}
	if code == http.StatusInternalServerError {
		message = "internal error"
	}
	writeJSON(w, code, errorEnvelope{Error: apiError{Code: codeStr, Message: message, Details: details}})
}
