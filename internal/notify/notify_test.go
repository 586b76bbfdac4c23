package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNotifierRetriesOnce(t *testing.T) {
	t.Run("first attempt succeeds", func(t *testing.T) {
		sender := NewMockSender(testLogger())
		n := New(sender, time.Millisecond, testLogger())

		err := n.Send(context.Background(), "+34600111222", "hola")
		require.NoError(t, err)
		assert.Len(t, sender.Sent(), 1)
	})

	t.Run("retry succeeds after transient failure", func(t *testing.T) {
		sender := NewMockSender(testLogger())
		sender.SendErrors = []error{errors.New("timeout"), nil}
		n := New(sender, time.Millisecond, testLogger())

		err := n.Send(context.Background(), "+34600111222", "hola")
		require.NoError(t, err)
		assert.Len(t, sender.Sent(), 2)
	})

	t.Run("gives up after second failure", func(t *testing.T) {
		sender := NewMockSender(testLogger())
		sender.SendErrors = []error{errors.New("down"), errors.New("still down")}
		n := New(sender, time.Millisecond, testLogger())

		err := n.Send(context.Background(), "+34600111222", "hola")
		require.Error(t, err)
		assert.Len(t, sender.Sent(), 2)
	})

	t.Run("cancelled context stops the retry", func(t *testing.T) {
		sender := NewMockSender(testLogger())
		sender.SendErrors = []error{errors.New("down")}
		n := New(sender, time.Minute, testLogger())

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := n.Send(ctx, "+34600111222", "hola")
		require.ErrorIs(t, err, context.Canceled)
		assert.Len(t, sender.Sent(), 1)
	})
}

func TestAlertTemplates(t *testing.T) {
	anomaly := AnomalyAlert("Juan Pérez", 6, "Facturación baja reiterada")
	assert.Contains(t, anomaly, "Juan Pérez")
	assert.Contains(t, anomaly, "6")

	due := MaintenanceAlert("1234-ABC", "Cambio de aceite", false)
	assert.Contains(t, due, "PRÓXIMO")
	assert.Contains(t, due, "1234-ABC")

	overdue := MaintenanceAlert("1234-ABC", "Cambio de aceite", true)
	assert.Contains(t, overdue, "VENCIDO")

	incident := IncidentAlert("Juan Pérez", "1234-ABC", "Avería taxímetro")
	assert.Contains(t, incident, "Avería taxímetro")
}

func TestFormatEuros(t *testing.T) {
	got := FormatEuros(8450)
	assert.True(t, strings.Contains(got, "84") && strings.Contains(got, "50"), got)
	assert.Contains(t, got, "€")
}
