// Package notify abstracts outbound reminder delivery. The engine only
// records that a reminder was sent; actual delivery belongs to whatever
// Sender is wired in.
package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Reminder describes one appointment reminder to deliver.
type Reminder struct {
	AppointmentID uuid.UUID
	PatientID     uuid.UUID
	PatientName   string
	ProviderName  string
	Start         time.Time
}

// Sender delivers reminders.
type Sender interface {
	SendReminder(ctx context.Context, r Reminder) error
}

// LogSender writes reminders to the log instead of delivering them.
type LogSender struct {
	logger zerolog.Logger
}

// NewLogSender creates a LogSender.
func NewLogSender(logger zerolog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

// SendReminder implements Sender.
func (s *LogSender) SendReminder(_ context.Context, r Reminder) error {
	s.logger.Info().
		Str("appointment_id", r.AppointmentID.String()).
		Str("patient", r.PatientName).
		Str("provider", r.ProviderName).
		Time("start", r.Start).
		Msg("appointment reminder")
	return nil
}
