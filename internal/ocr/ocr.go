package ocr

import "context"

// Provider extracts text from ticket photos. Implementations wrap an OCR
// engine; the evidence service only cares about text and confidence.
type Provider interface {
	// Extract runs character recognition against the stored photo and
	// returns the recognized text with an overall confidence percentage.
	Extract(ctx context.Context, photoRef string) (*Result, error)
}

// Result contains the outcome of a single extraction.
type Result struct {
	Text       string  // Raw recognized text
	Confidence float64 // Engine confidence, 0-100
}

// Legible reports whether the extraction cleared the given confidence
// threshold.
func (r *Result) Legible(threshold float64) bool {
	return r.Confidence >= threshold
}
