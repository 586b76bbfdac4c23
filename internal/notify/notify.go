// Package notify delivers compliance alerts to owners over WhatsApp.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Sender delivers a single text message to a phone number.
type Sender interface {
	Send(ctx context.Context, phone, text string) error
}

// Notifier wraps a Sender with the delivery policy: one retry after a fixed
// delay, then give up and log. Alert delivery never fails the compliance
// operation that triggered it.
type Notifier struct {
	sender     Sender
	retryDelay time.Duration
	logger     *slog.Logger
}

// New creates a Notifier around the given sender.
func New(sender Sender, retryDelay time.Duration, logger *slog.Logger) *Notifier {
	return &Notifier{
		sender:     sender,
		retryDelay: retryDelay,
		logger:     logger,
	}
}

// Send delivers the message, retrying once after the configured delay.
// Returns the final error for callers that want to record delivery state.
func (n *Notifier) Send(ctx context.Context, phone, text string) error {
	err := n.sender.Send(ctx, phone, text)
	if err == nil {
		return nil
	}

	n.logger.Warn("message delivery failed, retrying",
		"phone", phone,
		"error", err)

	select {
	case <-time.After(n.retryDelay):
	case <-ctx.Done():
		return ctx.Err()
	}

	if err := n.sender.Send(ctx, phone, text); err != nil {
		n.logger.Error("message delivery failed after retry",
			"phone", phone,
			"error", err)
		return err
	}
	return nil
}

var esPrinter = message.NewPrinter(language.Spanish)

// FormatEuros renders an amount in cents as a localized euro string.
func FormatEuros(cents int64) string {
	return esPrinter.Sprintf("%v", currency.Symbol(currency.EUR.Amount(float64(cents)/100)))
}

// AnomalyAlert builds the owner-facing message for accumulated anomalies.
func AnomalyAlert(driverName string, total int, reason string) string {
	return fmt.Sprintf(`*Aviso de anomalías*

Conductor: %s
Anomalías acumuladas: %d
Motivo: %s

Revisa el panel para más detalles.`, driverName, total, reason)
}

// MaintenanceAlert builds the owner-facing message for a maintenance item
// that is approaching or overdue.
func MaintenanceAlert(plate, item string, overdue bool) string {
	state := "PRÓXIMO"
	detail := "Este mantenimiento está próximo a vencer."
	if overdue {
		state = "VENCIDO"
		detail = "Este mantenimiento ha superado su límite."
	}
	return fmt.Sprintf(`*Mantenimiento %s*

Vehículo: %s
Mantenimiento: %s

%s`, state, plate, item, detail)
}

// IncidentAlert builds the approver-facing message for a newly raised
// incident.
func IncidentAlert(driverName, plate, description string) string {
	return fmt.Sprintf(`*Incidencia abierta*

Conductor: %s
Vehículo: %s
Descripción: %s

Requiere tu aprobación.`, driverName, plate, description)
}
