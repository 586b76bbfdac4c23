// Package tesseract implements the OCR provider against a Tesseract HTTP
// server (tesseract-server or any compatible endpoint).
package tesseract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/pilotos/fleetcore/internal/ocr"
)

const (
	// DefaultLanguage is the recognition language passed to Tesseract.
	// Meter and fuel tickets in the fleet are Spanish.
	DefaultLanguage = "spa"

	// MaxImageSize is the largest photo the provider will send (20MB).
	MaxImageSize = 20 * 1024 * 1024
)

// Opener loads a stored photo by its reference key.
type Opener interface {
	Get(ctx context.Context, key string) (io.ReadCloser, error)
}

// Config contains configuration for the Tesseract provider.
type Config struct {
	Endpoint       string        // Base URL of the Tesseract server
	Language       string        // Recognition language, defaults to spa
	RequestTimeout time.Duration // Per-request timeout, defaults to 60s
}

// Provider implements ocr.Provider using a Tesseract HTTP server.
type Provider struct {
	config Config
	client *http.Client
	opener Opener
	logger *slog.Logger
}

// New creates a new Tesseract OCR provider.
func New(config Config, opener Opener, logger *slog.Logger) (*Provider, error) {
	if config.Endpoint == "" {
		return nil, fmt.Errorf("tesseract endpoint is required")
	}
	if config.Language == "" {
		config.Language = DefaultLanguage
	}
	if config.RequestTimeout == 0 {
		config.RequestTimeout = 60 * time.Second
	}

	return &Provider{
		config: config,
		client: &http.Client{Timeout: config.RequestTimeout},
		opener: opener,
		logger: logger,
	}, nil
}

// tesseractResponse mirrors the tesseract-server JSON response.
type tesseractResponse struct {
	Data struct {
		Stdout     string  `json:"stdout"`
		Confidence float64 `json:"confidence"`
	} `json:"data"`
}

// Extract sends the stored photo to the Tesseract server and returns the
// recognized text with its confidence.
func (p *Provider) Extract(ctx context.Context, photoRef string) (*ocr.Result, error) {
	photo, err := p.opener.Get(ctx, photoRef)
	if err != nil {
		return nil, fmt.Errorf("load photo %s: %w", photoRef, err)
	}
	defer photo.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	part, err := mw.CreateFormFile("file", photoRef)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if _, err := io.Copy(part, io.LimitReader(photo, MaxImageSize)); err != nil {
		return nil, fmt.Errorf("read photo %s: %w", photoRef, err)
	}
	options := fmt.Sprintf(`{"languages":["%s"]}`, p.config.Language)
	if err := mw.WriteField("options", options); err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.Endpoint+"/tesseract", &body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tesseract request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("tesseract returned %d: %s", resp.StatusCode, raw)
	}

	var tr tesseractResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("decode tesseract response: %w", err)
	}

	p.logger.Debug("ocr extraction complete",
		"photo_ref", photoRef,
		"confidence", tr.Data.Confidence,
		"duration", time.Since(start))

	return &ocr.Result{
		Text:       tr.Data.Stdout,
		Confidence: tr.Data.Confidence,
	}, nil
}
