package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pilotos/fleetcore/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestErrorCodeToHTTPStatus(t *testing.T) {
	tests := []struct {
		code   string
		status int
	}{
		{domain.EINVALID, http.StatusBadRequest},
		{domain.EUNAUTHORIZED, http.StatusUnauthorized},
		{domain.EFORBIDDEN, http.StatusForbidden},
		{domain.EGATED, http.StatusForbidden},
		{domain.ELOCKED, http.StatusForbidden},
		{domain.ENOTFOUND, http.StatusNotFound},
		{domain.ECONFLICT, http.StatusConflict},
		{domain.EINTERNAL, http.StatusInternalServerError},
		{"something_else", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.status, ErrorCodeToHTTPStatus(tt.code), tt.code)
	}
}

func TestErrorResponseGated(t *testing.T) {
	taskID := uuid.New()
	req := httptest.NewRequest("POST", "/api/reports", nil)
	rec := httptest.NewRecorder()

	ErrorResponse(rec, req, testLogger(), domain.Gated("report.submit", taskID))

	assert.Equal(t, http.StatusForbidden, rec.Code)

	var body map[string]struct {
		Code   string `json:"code"`
		TaskID string `json:"task_id"`
		Rule   string `json:"rule"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, domain.EGATED, body["error"].Code)
	assert.Equal(t, taskID.String(), body["error"].TaskID)
	assert.NotEmpty(t, body["error"].Rule)
}

func TestErrorResponseValidation(t *testing.T) {
	ve := &domain.ValidationError{Op: "report.validate"}
	ve.Add(domain.RuleReportOdometerOrder, "end_odometer_km", "end_odometer_km must be strictly greater than start_odometer_km")
	ve.Add(domain.RuleReportRevenueOrder, "total_revenue_cents", "total_revenue_cents must be greater than or equal to card_revenue_cents")

	req := httptest.NewRequest("POST", "/api/reports", nil)
	rec := httptest.NewRecorder()

	ErrorResponse(rec, req, testLogger(), ve)

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body map[string]struct {
		Code       string                 `json:"code"`
		Violations []domain.RuleViolation `json:"violations"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, domain.EINVALID, body["error"].Code)
	require.Len(t, body["error"].Violations, 2)
	assert.Equal(t, "end_odometer_km", body["error"].Violations[0].Field)

	// Internal operation names stay out of the response.
	assert.NotContains(t, rec.Body.String(), "report.validate")
}

func TestErrorResponseHidesInternalDetail(t *testing.T) {
	req := httptest.NewRequest("GET", "/api/reports", nil)
	rec := httptest.NewRecorder()

	ErrorResponse(rec, req, testLogger(), domain.Internal(assert.AnError, "report.list", "failed to list reports"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), assert.AnError.Error())
}
