// This file implements the monthly report workbook: one xlsx per vehicle and
// month, with the daily reports and the expense log.
package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/pilotos/fleetcore/internal/domain"
	"github.com/pilotos/fleetcore/internal/repository"
	"github.com/pilotos/fleetcore/internal/storage"
	"github.com/xuri/excelize/v2"
)

const (
	reportSheet  = "Informe"
	expenseSheet = "Gastos"
)

// ExportService builds monthly report workbooks.
type ExportService interface {
	// Monthly generates the workbook for a vehicle and month, stores it,
	// and returns the bytes plus the storage key.
	Monthly(ctx context.Context, vehicleID uuid.UUID, year int, month time.Month) ([]byte, string, error)
}

// exportStore is the slice of the repository the service needs.
type exportStore interface {
	GetVehicleByID(ctx context.Context, id uuid.UUID) (*domain.Vehicle, error)
	ListReports(ctx context.Context, f repository.ReportFilter) ([]domain.DailyReport, error)
	ListExpensesByVehicle(ctx context.Context, vehicleID uuid.UUID, from, to time.Time) ([]domain.Expense, error)
}

type exportService struct {
	store   exportStore
	storage storage.Storage
	logger  *slog.Logger
}

// NewExportService creates a new ExportService.
func NewExportService(store exportStore, files storage.Storage, logger *slog.Logger) ExportService {
	return &exportService{
		store:   store,
		storage: files,
		logger:  logger,
	}
}

func (s *exportService) Monthly(ctx context.Context, vehicleID uuid.UUID, year int, month time.Month) ([]byte, string, error) {
	const op = "export.monthly"

	vehicle, err := s.store.GetVehicleByID(ctx, vehicleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", domain.NotFound(op, "vehicle", vehicleID.String())
		}
		return nil, "", domain.Internal(err, op, "failed to load vehicle")
	}

	from := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	reports, err := s.store.ListReports(ctx, repository.ReportFilter{
		VehicleID: vehicleID,
		From:      from,
		To:        to.Add(-24 * time.Hour),
	})
	if err != nil {
		return nil, "", domain.Internal(err, op, "failed to list reports")
	}

	expenses, err := s.store.ListExpensesByVehicle(ctx, vehicleID, from, to)
	if err != nil {
		return nil, "", domain.Internal(err, op, "failed to list expenses")
	}

	data, err := buildWorkbook(vehicle, reports, expenses, from)
	if err != nil {
		return nil, "", domain.Internal(err, op, "failed to build workbook")
	}

	key := storage.ExportKey(vehicleID, year, month)
	err = s.storage.Put(ctx, key, bytes.NewReader(data), storage.PutOptions{
		ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		Overwrite:   true,
	})
	if err != nil {
		return nil, "", domain.Internal(err, op, "failed to store workbook")
	}

	s.logger.Info("monthly export generated",
		"vehicle_id", vehicleID,
		"month", from.Format("2006-01"),
		"reports", len(reports),
		"expenses", len(expenses))
	return data, key, nil
}

func buildWorkbook(vehicle *domain.Vehicle, reports []domain.DailyReport, expenses []domain.Expense, month time.Time) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", reportSheet)
	if _, err := f.NewSheet(expenseSheet); err != nil {
		return nil, err
	}

	title := fmt.Sprintf("%s / %s", vehicle.Plate, month.Format("January 2006"))
	f.SetCellValue(reportSheet, "A1", title)

	headers := []string{"Fecha", "Km inicio", "Km fin", "Distancia", "Ingresos €", "Tarjeta €", "Gasoil €", "Estado"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 3)
		f.SetCellValue(reportSheet, cell, h)
	}

	var totalRevenue, totalCard, totalFuel, totalKm int64
	for i, r := range reports {
		rowN := i + 4
		setRow(f, reportSheet, rowN,
			r.WorkDate.Format("2006-01-02"),
			r.StartOdometerKm,
			r.EndOdometerKm,
			r.DistanceKm(),
			euros(r.TotalRevenueCents),
			euros(r.CardRevenueCents),
			euros(r.FuelExpenseCents),
			string(r.Status))
		totalRevenue += r.TotalRevenueCents
		totalCard += r.CardRevenueCents
		totalFuel += r.FuelExpenseCents
		totalKm += r.DistanceKm()
	}
	totalsRow := len(reports) + 5
	setRow(f, reportSheet, totalsRow,
		"Totales", "", "", totalKm,
		euros(totalRevenue), euros(totalCard), euros(totalFuel), "")

	expHeaders := []string{"Fecha", "Tipo", "Descripción", "Importe €"}
	for i, h := range expHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(expenseSheet, cell, h)
	}
	var totalExpenses int64
	for i, e := range expenses {
		setRow(f, expenseSheet, i+2,
			e.IncurredAt.Format("2006-01-02"),
			string(e.Kind),
			e.Description,
			euros(e.AmountCents))
		totalExpenses += e.AmountCents
	}
	setRow(f, expenseSheet, len(expenses)+3, "Total", "", "", euros(totalExpenses))

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func setRow(f *excelize.File, sheet string, row int, values ...any) {
	for i, v := range values {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		f.SetCellValue(sheet, cell, v)
	}
}

func euros(cents int64) float64 {
	return float64(cents) / 100
}
