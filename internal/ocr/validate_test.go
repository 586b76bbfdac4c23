package ocr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateMeterTicket(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		wantValid bool
		wantCents int64
	}{
		{
			name:      "labeled total with date",
			text:      "TAXI LICENCIA 1234\n15/03/2024\nTOTAL: 84,50 EUR",
			wantValid: true,
			wantCents: 8450,
		},
		{
			name:      "dot separator",
			text:      "IMPORTE 12.30\n01-02-2024",
			wantValid: true,
			wantCents: 1230,
		},
		{
			name:      "unlabeled amount falls back to last number",
			text:      "3,20 45,80\n15/03/24",
			wantValid: true,
			wantCents: 4580,
		},
		{
			name:      "missing date",
			text:      "TOTAL: 84,50",
			wantValid: false,
			wantCents: 8450,
		},
		{
			name:      "missing amount",
			text:      "recibo sin cifras 15/03/2024",
			wantValid: false,
		},
		{
			name:      "empty text",
			text:      "",
			wantValid: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ValidateMeterTicket(tt.text)
			assert.Equal(t, tt.wantValid, got.Valid)
			assert.Equal(t, tt.wantCents, got.AmountCents)
			if !tt.wantValid {
				assert.NotEmpty(t, got.Problems)
			}
		})
	}
}

func TestValidateFuelTicket(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		wantValid  bool
		wantCents  int64
		wantLiters float64
	}{
		{
			name:       "keyword and liters",
			text:       "ESTACION REPSOL\nGASOIL A\n32,45 L\nTOTAL 52,10 EUR",
			wantValid:  true,
			wantCents:  5210,
			wantLiters: 32.45,
		},
		{
			name:       "liters only, no keyword",
			text:       "40,00 lt\nimporte 61,25",
			wantValid:  true,
			wantCents:  6125,
			wantLiters: 40.0,
		},
		{
			name:      "keyword but no amount",
			text:      "diesel repostaje",
			wantValid: false,
		},
		{
			name:      "amount but nothing fuel-like",
			text:      "TOTAL 10,00",
			wantValid: false,
			wantCents: 1000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ValidateFuelTicket(tt.text)
			assert.Equal(t, tt.wantValid, got.Valid)
			assert.Equal(t, tt.wantCents, got.AmountCents)
			assert.InDelta(t, tt.wantLiters, got.Liters, 0.001)
		})
	}
}
