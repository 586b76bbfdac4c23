package notify

import (
	"context"
	"log/slog"
	"sync"
)

// SentMessage records one delivery attempt made through the mock sender.
type SentMessage struct {
	Phone string
	Text  string
}

// MockSender is an in-memory Sender for testing and development. It records
// every message and can be primed with errors per call.
type MockSender struct {
	logger *slog.Logger

	mu   sync.Mutex
	sent []SentMessage

	// SendErrors is consumed one per call; nil entries mean success.
	SendErrors []error
}

// NewMockSender creates a recording sender.
func NewMockSender(logger *slog.Logger) *MockSender {
	return &MockSender{logger: logger}
}

// Send records the message and pops the next configured error, if any.
func (s *MockSender) Send(ctx context.Context, phone, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sent = append(s.sent, SentMessage{Phone: phone, Text: text})
	s.logger.Debug("mock message recorded", "phone", phone)

	if len(s.SendErrors) > 0 {
		err := s.SendErrors[0]
		s.SendErrors = s.SendErrors[1:]
		return err
	}
	return nil
}

// Sent returns a copy of the recorded messages.
func (s *MockSender) Sent() []SentMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]SentMessage, len(s.sent))
	copy(out, s.sent)
	return out
}
