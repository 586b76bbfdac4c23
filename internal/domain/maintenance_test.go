package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func km(v int64) *int64 { return &v }

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestIsDue(t *testing.T) {
	now := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		state    VehicleMaintenanceState
		odometer int64
		want     bool
	}{
		{
			name:     "distance not yet reached",
			state:    VehicleMaintenanceState{NextDueKm: km(62000)},
			odometer: 61999,
			want:     false,
		},
		{
			name:     "distance exactly reached",
			state:    VehicleMaintenanceState{NextDueKm: km(62000)},
			odometer: 62000,
			want:     true,
		},
		{
			name:     "distance exceeded",
			state:    VehicleMaintenanceState{NextDueKm: km(62000)},
			odometer: 62500,
			want:     true,
		},
		{
			name:  "date in the future",
			state: VehicleMaintenanceState{NextDueDate: date(2024, 7, 1)},
			want:  false,
		},
		{
			name:  "date passed",
			state: VehicleMaintenanceState{NextDueDate: date(2024, 5, 1)},
			want:  true,
		},
		{
			name: "either trigger suffices",
			state: VehicleMaintenanceState{
				NextDueKm:   km(99000),
				NextDueDate: date(2024, 5, 1),
			},
			odometer: 50000,
			want:     true,
		},
		{
			name:  "wear-based has neither trigger",
			state: VehicleMaintenanceState{},
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.state.IsDue(tt.odometer, now))
		})
	}
}

func TestIsApproaching(t *testing.T) {
	now := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		state    VehicleMaintenanceState
		odometer int64
		want     bool
	}{
		{
			name:     "inside distance window",
			state:    VehicleMaintenanceState{Status: MaintenanceStatusPending, NextDueKm: km(62000)},
			odometer: 61200,
			want:     true,
		},
		{
			name:     "outside distance window",
			state:    VehicleMaintenanceState{Status: MaintenanceStatusPending, NextDueKm: km(62000)},
			odometer: 60000,
			want:     false,
		},
		{
			name:  "inside time window",
			state: VehicleMaintenanceState{Status: MaintenanceStatusPending, NextDueDate: date(2024, 6, 20)},
			want:  true,
		},
		{
			name:  "outside time window",
			state: VehicleMaintenanceState{Status: MaintenanceStatusPending, NextDueDate: date(2024, 8, 1)},
			want:  false,
		},
		{
			name:     "overdue item never approaches",
			state:    VehicleMaintenanceState{Status: MaintenanceStatusOverdue, NextDueKm: km(62000)},
			odometer: 61500,
			want:     false,
		},
		{
			name:     "resolved item never approaches",
			state:    VehicleMaintenanceState{Status: MaintenanceStatusResolved, NextDueKm: km(62000)},
			odometer: 61500,
			want:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.state.IsApproaching(tt.odometer, now, 1000, 30))
		})
	}
}

func TestNextDue(t *testing.T) {
	performedAt := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	t.Run("distance interval", func(t *testing.T) {
		nextKm, nextDate := NextDue(Trigger{Kind: TriggerDistance, IntervalKm: 12000}, 12000, 50000, performedAt)
		require.NotNil(t, nextKm)
		assert.Equal(t, int64(62000), *nextKm)
		assert.Nil(t, nextDate)
	})

	t.Run("learned override wins", func(t *testing.T) {
		nextKm, _ := NextDue(Trigger{Kind: TriggerDistance, IntervalKm: 12000}, 9000, 50000, performedAt)
		require.NotNil(t, nextKm)
		assert.Equal(t, int64(59000), *nextKm)
	})

	t.Run("time interval uses 30-day months", func(t *testing.T) {
		nextKm, nextDate := NextDue(Trigger{Kind: TriggerTime, IntervalMonths: 6}, 0, 50000, performedAt)
		assert.Nil(t, nextKm)
		require.NotNil(t, nextDate)
		assert.Equal(t, performedAt.Add(6*30*24*time.Hour), *nextDate)
	})

	t.Run("wear-based schedules nothing", func(t *testing.T) {
		nextKm, nextDate := NextDue(Trigger{Kind: TriggerWear}, 0, 50000, performedAt)
		assert.Nil(t, nextKm)
		assert.Nil(t, nextDate)
	})
}

func TestEffectiveIntervalKm(t *testing.T) {
	item := MaintenanceCatalogItem{Trigger: Trigger{Kind: TriggerDistance, IntervalKm: 12000}}

	s := &VehicleMaintenanceState{}
	assert.Equal(t, int64(12000), s.EffectiveIntervalKm(item))

	s.LearnedKm = km(9000)
	assert.Equal(t, int64(9000), s.EffectiveIntervalKm(item))
}
