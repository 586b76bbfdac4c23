package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pilotos/fleetcore/internal/domain"
	"github.com/pilotos/fleetcore/internal/repository"
	"github.com/pilotos/fleetcore/internal/service"
)

type mockReportService struct {
	submitFn func(ctx context.Context, params domain.CreateReportParams) (*service.SubmitResult, error)
	getFn    func(ctx context.Context, id uuid.UUID) (*domain.DailyReport, error)
	listFn   func(ctx context.Context, f repository.ReportFilter) ([]domain.DailyReport, error)
}

func (m *mockReportService) Submit(ctx context.Context, params domain.CreateReportParams) (*service.SubmitResult, error) {
	return m.submitFn(ctx, params)
}

func (m *mockReportService) GetByID(ctx context.Context, id uuid.UUID) (*domain.DailyReport, error) {
	return m.getFn(ctx, id)
}

func (m *mockReportService) List(ctx context.Context, f repository.ReportFilter) ([]domain.DailyReport, error) {
	return m.listFn(ctx, f)
}

type mockEvidenceService struct {
	listByReportFn func(ctx context.Context, reportID uuid.UUID) ([]domain.PhotoEvidence, error)
	replaceFn      func(ctx context.Context, evidenceID uuid.UUID, newRef, reason string) (*domain.PhotoEvidence, error)
}

func (m *mockEvidenceService) Attach(ctx context.Context, reportID uuid.UUID, kind domain.EvidenceKind, storageRef string) (*service.AttachResult, error) {
	return nil, nil
}

func (m *mockEvidenceService) AttachCleared(ctx context.Context, reportID uuid.UUID, driverID uuid.UUID, kind domain.EvidenceKind, storageRef string) (*service.AttachResult, error) {
	return nil, nil
}

func (m *mockEvidenceService) Replace(ctx context.Context, evidenceID uuid.UUID, newRef, reason string) (*domain.PhotoEvidence, error) {
	return m.replaceFn(ctx, evidenceID, newRef, reason)
}

func (m *mockEvidenceService) Unlock(ctx context.Context, evidenceID, incidentID, actorID uuid.UUID, reason string) (*domain.PhotoEvidence, error) {
	return nil, nil
}

func (m *mockEvidenceService) GetByID(ctx context.Context, id uuid.UUID) (*domain.PhotoEvidence, error) {
	return nil, nil
}

func (m *mockEvidenceService) ListByReport(ctx context.Context, reportID uuid.UUID) ([]domain.PhotoEvidence, error) {
	return m.listByReportFn(ctx, reportID)
}

func (m *mockEvidenceService) History(ctx context.Context, evidenceID uuid.UUID) ([]domain.EvidenceHistory, error) {
	return nil, nil
}

func newReportMux(reports service.ReportService, evidence service.EvidenceService) *http.ServeMux {
	mux := http.NewServeMux()
	NewReportHandler(reports, evidence, testLogger()).RegisterRoutes(mux)
	return mux
}

func TestReportHandlerSubmit(t *testing.T) {
	vehicleID := uuid.New()
	driverID := uuid.New()

	body := `{
		"vehicle_id": "` + vehicleID.String() + `",
		"driver_id": "` + driverID.String() + `",
		"work_date": "2024-03-15",
		"start_odometer_km": 125000,
		"end_odometer_km": 125230,
		"total_revenue_cents": 18450,
		"card_revenue_cents": 9200,
		"meter_photo_ref": "evidence/meter.jpg"
	}`

	t.Run("valid submission returns 201", func(t *testing.T) {
		reports := &mockReportService{
			submitFn: func(ctx context.Context, params domain.CreateReportParams) (*service.SubmitResult, error) {
				assert.Equal(t, vehicleID, params.VehicleID)
				assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), params.WorkDate)
				report := &domain.DailyReport{
					ID:        uuid.New(),
					VehicleID: params.VehicleID,
					DriverID:  params.DriverID,
					WorkDate:  params.WorkDate,
					Status:    domain.ReportStatusSubmitted,
				}
				return &service.SubmitResult{
					Report: report,
					Meter: &service.AttachResult{
						Evidence: &domain.PhotoEvidence{ID: uuid.New(), Status: domain.EvidenceStatusValid},
					},
				}, nil
			},
		}
		mux := newReportMux(reports, &mockEvidenceService{})

		req := httptest.NewRequest("POST", "/api/reports", strings.NewReader(body))
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code)

		var resp struct {
			Report struct {
				WorkDate string `json:"work_date"`
				Status   string `json:"status"`
			} `json:"report"`
			Meter struct {
				Evidence struct {
					Status string `json:"status"`
				} `json:"evidence"`
			} `json:"meter"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "2024-03-15", resp.Report.WorkDate)
		assert.Equal(t, "SUBMITTED", resp.Report.Status)
		assert.Equal(t, "VALID", resp.Meter.Evidence.Status)
	})

	t.Run("gated submission returns 403 with the task reference", func(t *testing.T) {
		taskID := uuid.New()
		reports := &mockReportService{
			submitFn: func(ctx context.Context, params domain.CreateReportParams) (*service.SubmitResult, error) {
				return nil, domain.Gated("report.submit", taskID)
			},
		}
		mux := newReportMux(reports, &mockEvidenceService{})

		req := httptest.NewRequest("POST", "/api/reports", strings.NewReader(body))
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Contains(t, rec.Body.String(), taskID.String())
	})

	t.Run("malformed body returns 400", func(t *testing.T) {
		mux := newReportMux(&mockReportService{}, &mockEvidenceService{})

		req := httptest.NewRequest("POST", "/api/reports", strings.NewReader("{nope"))
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("duplicate day returns 409", func(t *testing.T) {
		reports := &mockReportService{
			submitFn: func(ctx context.Context, params domain.CreateReportParams) (*service.SubmitResult, error) {
				return nil, domain.Conflict("report.submit", domain.RuleReportUniquePerDay,
					"a report already exists for this vehicle and work date")
			},
		}
		mux := newReportMux(reports, &mockEvidenceService{})

		req := httptest.NewRequest("POST", "/api/reports", strings.NewReader(body))
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Contains(t, rec.Body.String(), domain.RuleReportUniquePerDay)
	})
}

func TestReportHandlerGet(t *testing.T) {
	reportID := uuid.New()

	t.Run("unknown report returns 404", func(t *testing.T) {
		reports := &mockReportService{
			getFn: func(ctx context.Context, id uuid.UUID) (*domain.DailyReport, error) {
				return nil, domain.NotFound("report.get", "report", id.String())
			},
		}
		mux := newReportMux(reports, &mockEvidenceService{})

		req := httptest.NewRequest("GET", "/api/reports/"+reportID.String(), nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("garbage id returns 400", func(t *testing.T) {
		mux := newReportMux(&mockReportService{}, &mockEvidenceService{})

		req := httptest.NewRequest("GET", "/api/reports/not-a-uuid", nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestReportHandlerList(t *testing.T) {
	vehicleID := uuid.New()

	reports := &mockReportService{
		listFn: func(ctx context.Context, f repository.ReportFilter) ([]domain.DailyReport, error) {
			assert.Equal(t, vehicleID, f.VehicleID)
			assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), f.From)
			return []domain.DailyReport{
				{ID: uuid.New(), VehicleID: vehicleID, WorkDate: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)},
			}, nil
		},
	}
	mux := newReportMux(reports, &mockEvidenceService{})

	req := httptest.NewRequest("GET", "/api/reports?vehicle_id="+vehicleID.String()+"&from=2024-03-01", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Reports []json.RawMessage `json:"reports"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Reports, 1)
}
