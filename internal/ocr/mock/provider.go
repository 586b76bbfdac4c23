// Package mock provides a configurable OCR provider for testing and
// development.
package mock

import (
	"context"
	"log/slog"

	"github.com/pilotos/fleetcore/internal/ocr"
)

// Provider is a mock OCR provider.
type Provider struct {
	logger *slog.Logger

	// Configurable responses for testing
	ExtractResponse *ocr.Result
	ExtractError    error

	// Call tracking for testing
	ExtractCalls int
}

// New creates a new mock OCR provider.
func New(logger *slog.Logger) *Provider {
	return &Provider{logger: logger}
}

// Extract returns the configured response, or a canned legible ticket.
func (p *Provider) Extract(ctx context.Context, photoRef string) (*ocr.Result, error) {
	p.ExtractCalls++

	if p.ExtractError != nil {
		return nil, p.ExtractError
	}
	if p.ExtractResponse != nil {
		return p.ExtractResponse, nil
	}

	p.logger.Debug("mock ocr extraction", "photo_ref", photoRef)

	return &ocr.Result{
		Text:       "TAXI LICENCIA 1234\n15/03/2024\nTOTAL: 84,50 EUR",
		Confidence: 91.2,
	}, nil
}
