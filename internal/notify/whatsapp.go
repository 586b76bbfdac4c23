package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const (
	// GraphAPIVersion is the Meta Graph API version in use.
	GraphAPIVersion = "v21.0"

	// GraphBaseURL is the Meta Graph API host.
	GraphBaseURL = "https://graph.facebook.com"
)

// WhatsAppConfig contains credentials for the WhatsApp Cloud API.
type WhatsAppConfig struct {
	Token          string
	PhoneNumberID  string
	RequestTimeout time.Duration
}

// WhatsAppSender sends text messages through the WhatsApp Cloud API.
type WhatsAppSender struct {
	config WhatsAppConfig
	client *http.Client
	logger *slog.Logger
}

// NewWhatsAppSender creates a WhatsApp Cloud API sender.
func NewWhatsAppSender(config WhatsAppConfig, logger *slog.Logger) (*WhatsAppSender, error) {
	if config.Token == "" {
		return nil, fmt.Errorf("whatsapp token is required")
	}
	if config.PhoneNumberID == "" {
		return nil, fmt.Errorf("whatsapp phone number id is required")
	}
	if config.RequestTimeout == 0 {
		config.RequestTimeout = 30 * time.Second
	}

	return &WhatsAppSender{
		config: config,
		client: &http.Client{Timeout: config.RequestTimeout},
		logger: logger,
	}, nil
}

type whatsAppMessage struct {
	MessagingProduct string       `json:"messaging_product"`
	To               string       `json:"to"`
	Type             string       `json:"type"`
	Text             whatsAppText `json:"text"`
}

type whatsAppText struct {
	Body string `json:"body"`
}

type whatsAppResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Send posts a text message to the Cloud API messages endpoint.
func (s *WhatsAppSender) Send(ctx context.Context, phone, text string) error {
	payload, err := json.Marshal(whatsAppMessage{
		MessagingProduct: "whatsapp",
		To:               phone,
		Type:             "text",
		Text:             whatsAppText{Body: text},
	})
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}

	url := fmt.Sprintf("%s/%s/%s/messages", GraphBaseURL, GraphAPIVersion, s.config.PhoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.config.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("whatsapp request: %w", err)
	}
	defer resp.Body.Close()

	var wr whatsAppResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&wr); err != nil {
		return fmt.Errorf("decode whatsapp response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if wr.Error.Message != "" {
			return fmt.Errorf("whatsapp api: %s", wr.Error.Message)
		}
		return fmt.Errorf("whatsapp api returned %d", resp.StatusCode)
	}

	if len(wr.Messages) > 0 {
		s.logger.Info("whatsapp message sent",
			"phone", phone,
			"message_id", wr.Messages[0].ID)
	}
	return nil
}
