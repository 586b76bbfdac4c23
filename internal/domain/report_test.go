package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validParams() CreateReportParams {
	return CreateReportParams{
		VehicleID:         uuid.New(),
		DriverID:          uuid.New(),
		WorkDate:          time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		StartOdometerKm:   100,
		EndOdometerKm:     150,
		TotalRevenueCents: 8000,
		CardRevenueCents:  5000,
	}
}

func TestValidateReport(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*CreateReportParams)
		current   int64
		wantRules []string
	}{
		{
			name:    "valid report",
			mutate:  func(p *CreateReportParams) {},
			current: 100,
		},
		{
			name: "end odometer equal to start",
			mutate: func(p *CreateReportParams) {
				p.EndOdometerKm = p.StartOdometerKm
			},
			current:   100,
			wantRules: []string{RuleReportOdometerOrder},
		},
		{
			name: "end odometer below start",
			mutate: func(p *CreateReportParams) {
				p.EndOdometerKm = 50
			},
			current:   100,
			wantRules: []string{RuleReportOdometerOrder, RuleReportOdometerRegress},
		},
		{
			name: "card revenue exceeds total",
			mutate: func(p *CreateReportParams) {
				p.CardRevenueCents = p.TotalRevenueCents + 1
			},
			current:   100,
			wantRules: []string{RuleReportRevenueOrder},
		},
		{
			name: "fuel expense without fuel photo",
			mutate: func(p *CreateReportParams) {
				p.FuelExpenseCents = 3500
			},
			current:   100,
			wantRules: []string{RuleReportFuelEvidence},
		},
		{
			name: "fuel expense with fuel photo",
			mutate: func(p *CreateReportParams) {
				p.FuelExpenseCents = 3500
				p.FuelPhotoRef = "evidence/fuel-1.jpg"
			},
			current: 100,
		},
		{
			name:      "end odometer below vehicle reading",
			mutate:    func(p *CreateReportParams) {},
			current:   160,
			wantRules: []string{RuleReportOdometerRegress},
		},
		{
			name: "missing vehicle and driver",
			mutate: func(p *CreateReportParams) {
				p.VehicleID = uuid.Nil
				p.DriverID = uuid.Nil
			},
			current:   100,
			wantRules: []string{RuleReportFieldsRequired, RuleReportFieldsRequired},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validParams()
			tt.mutate(&p)

			err := ValidateReport(p, tt.current)
			if len(tt.wantRules) == 0 {
				assert.NoError(t, err)
				return
			}

			var ve *ValidationError
			require.True(t, errors.As(err, &ve), "expected *ValidationError, got %T", err)
			require.Len(t, ve.Violations, len(tt.wantRules))
			for i, rule := range tt.wantRules {
				assert.Equal(t, rule, ve.Violations[i].Rule)
			}
		})
	}
}

func TestReportStatusTransitions(t *testing.T) {
	assert.True(t, ReportStatusSubmitted.CanTransitionTo(ReportStatusPhotoReplaced))
	assert.False(t, ReportStatusPhotoReplaced.CanTransitionTo(ReportStatusSubmitted))
	assert.False(t, ReportStatusPhotoReplaced.CanTransitionTo(ReportStatusPhotoReplaced))
}

func TestNormalizeWorkDate(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	in := time.Date(2024, 3, 15, 23, 45, 0, 0, loc)
	got := NormalizeWorkDate(in)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), got)
	assert.Equal(t, time.UTC, got.Location())
}
