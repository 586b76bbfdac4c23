// Package handler contains the HTTP handlers for the fleetcore API.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/pilotos/fleetcore/internal/domain"
)

// ErrorResponse writes an error response to the client, mapping domain error
// codes to HTTP status codes. Gated errors carry the blocking task reference;
// validation errors carry the full violation list.
func ErrorResponse(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		logger.Info("validation error",
			"op", ve.Op,
			"violations", len(ve.Violations),
			"path", r.URL.Path)
		writeError(w, http.StatusBadRequest, errorBody{
			Code:       domain.EINVALID,
			Message:    "validation failed",
			Violations: ve.Violations,
		})
		return
	}

	code := domain.ErrorCode(err)
	status := ErrorCodeToHTTPStatus(code)
	logError(logger, r, err, code, status)

	body := errorBody{
		Code:    code,
		Message: domain.ErrorMessage(err),
		Rule:    domain.ErrorRule(err),
	}
	if taskID := domain.ErrorTaskID(err); taskID != uuid.Nil {
		id := taskID.String()
		body.TaskID = &id
	}
	writeError(w, status, body)
}

// ErrorCodeToHTTPStatus maps domain error codes to HTTP status codes.
func ErrorCodeToHTTPStatus(code string) int {
	switch code {
	case domain.EINVALID:
		return http.StatusBadRequest // 400
	case domain.EUNAUTHORIZED:
		return http.StatusUnauthorized // 401
	case domain.EFORBIDDEN, domain.EGATED, domain.ELOCKED:
		return http.StatusForbidden // 403
	case domain.ENOTFOUND:
		return http.StatusNotFound // 404
	case domain.ECONFLICT:
		return http.StatusConflict // 409
	case domain.EINTERNAL:
		return http.StatusInternalServerError // 500
	default:
		return http.StatusInternalServerError // 500
	}
}

// NotFoundResponse is a convenience wrapper for 404 errors.
func NotFoundResponse(w http.ResponseWriter, r *http.Request, logger *slog.Logger) {
	ErrorResponse(w, r, logger, domain.Errorf(domain.ENOTFOUND, "", "the requested resource was not found"))
}

// errorBody is the JSON error envelope.
type errorBody struct {
	Code       string                 `json:"code"`
	Message    string                 `json:"message"`
	Rule       string                 `json:"rule,omitempty"`
	TaskID     *string                `json:"task_id,omitempty"`
	Violations []domain.RuleViolation `json:"violations,omitempty"`
}

func writeError(w http.ResponseWriter, status int, body errorBody) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]errorBody{"error": body})
}

// logError logs with level based on status: 5xx are server errors, 4xx are
// expected client errors.
func logError(logger *slog.Logger, r *http.Request, err error, code string, status int) {
	attrs := []any{
		"error", err.Error(),
		"code", code,
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
	}
	if op := domain.ErrorOp(err); op != "" {
		attrs = append(attrs, "op", op)
	}

	if status >= 500 {
		logger.Error("server error", attrs...)
	} else {
		logger.Info("client error", attrs...)
	}
}
