package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/careflow/careflow/internal/platform/apperror"
	"github.com/careflow/careflow/internal/platform/directory"
	"github.com/careflow/careflow/internal/platform/notify"
)

// Service implements the appointment lifecycle on top of a Repository.
type Service struct {
	repo     Repository
	dir      directory.Directory
	notifier notify.Sender
	logger   zerolog.Logger
}

// NewService creates the scheduling service.
func NewService(repo Repository, dir directory.Directory, notifier notify.Sender, logger zerolog.Logger) *Service {
	return &Service{repo: repo, dir: dir, notifier: notifier, logger: logger}
}

// CreateInput carries the caller-supplied appointment fields.
type CreateInput struct {
	PatientID       uuid.UUID   `json:"patient_id"`
	ProviderID      uuid.UUID   `json:"provider_id"`
	FacilityID      uuid.UUID   `json:"facility_id"`
	RoomID          *uuid.UUID  `json:"room_id,omitempty"`
	Reason          string      `json:"reason"`
	Start           time.Time   `json:"start"`
	DurationMinutes int         `json:"duration_minutes"`
	Status          Status      `json:"status,omitempty"`
	Recurrence      *Recurrence `json:"recurrence,omitempty"`
}

// Create validates and persists a new appointment. Patient and provider
// names are denormalized from the directory at creation time.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Appointment, error) {
	if in.PatientID == uuid.Nil {
		return nil, apperror.Validation("patient_id is required")
	}
	if in.ProviderID == uuid.Nil {
		return nil, apperror.Validation("provider_id is required")
	}
	if in.FacilityID == uuid.Nil {
		return nil, apperror.Validation("facility_id is required")
	}
	if in.Start.IsZero() {
		return nil, apperror.Validation("start is required")
	}
	if in.DurationMinutes <= 0 {
		return nil, apperror.Validation("duration_minutes must be positive")
	}
	status := in.Status
	if status == "" {
		status = StatusBooked
	}
	switch status {
	case StatusProposed, StatusPending, StatusBooked:
	default:
		return nil, apperror.Validation("appointments cannot be created in status %q", status)
	}
	if in.Recurrence != nil {
		switch in.Recurrence.Frequency {
		case "daily", "weekly", "monthly":
		default:
			return nil, apperror.Validation("recurrence frequency must be daily, weekly or monthly")
		}
		if in.Recurrence.Interval < 1 {
			return nil, apperror.Validation("recurrence interval must be at least 1")
		}
	}

	patient, err := s.dir.Patient(in.PatientID)
	if err != nil {
		return nil, err
	}
	provider, err := s.dir.Provider(in.ProviderID)
	if err != nil {
		return nil, err
	}

	end := in.Start.Add(time.Duration(in.DurationMinutes) * time.Minute)
	if err := s.checkProviderConflict(ctx, in.ProviderID, in.Start, end, uuid.Nil); err != nil {
		return nil, err
	}

	a := &Appointment{
		Status:          status,
		PatientID:       in.PatientID,
		ProviderID:      in.ProviderID,
		FacilityID:      in.FacilityID,
		RoomID:          in.RoomID,
		PatientName:     patient.Name,
		ProviderName:    provider.Name,
		Reason:          in.Reason,
		Start:           in.Start,
		End:             end,
		DurationMinutes: in.DurationMinutes,
		Recurrence:      in.Recurrence,
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("appointment_id", a.ID.String()).
		Str("provider", a.ProviderName).
		Time("start", a.Start).
		Msg("appointment created")
	return a, nil
}

// Get returns one appointment.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.repo.Get(ctx, id)
}

// Search returns appointments matching the params plus the total count
// before paging.
func (s *Service) Search(ctx context.Context, p SearchParams) ([]*Appointment, int, error) {
	for _, st := range p.Statuses {
		if !st.Valid() {
			return nil, 0, apperror.Validation("unknown status %q", st)
		}
	}
	return s.repo.Search(ctx, p)
}

// Confirm moves a proposed or pending appointment to booked and records
// who confirmed it.
func (s *Service) Confirm(ctx context.Context, id uuid.UUID, actor string) (*Appointment, error) {
	return s.transition(ctx, id, ActionConfirm, func(a *Appointment, now time.Time) {
		a.ConfirmedAt = &now
		a.ConfirmedBy = actor
	})
}

// MarkArrived records the patient's arrival. Arrival is a waiting-room
// event, not a table transition: it only applies to booked appointments.
func (s *Service) MarkArrived(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	a, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Status != StatusBooked {
		return nil, apperror.InvalidTransition("cannot mark arrival for an appointment in status %q", a.Status)
	}
	now := time.Now().UTC()
	a.Status = StatusArrived
	a.ArrivedAt = &now
	if err := s.repo.Update(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// CheckIn moves a booked or arrived appointment to checked-in.
func (s *Service) CheckIn(ctx context.Context, id uuid.UUID, actor string) (*Appointment, error) {
	return s.transition(ctx, id, ActionCheckIn, func(a *Appointment, now time.Time) {
		a.CheckedInAt = &now
		a.CheckedInBy = actor
		if a.ArrivedAt == nil {
			a.ArrivedAt = &now
		}
	})
}

// StartEncounter moves a checked-in appointment to in-progress.
func (s *Service) StartEncounter(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.transition(ctx, id, ActionStartEncounter, nil)
}

// Complete moves an in-progress appointment to fulfilled.
func (s *Service) Complete(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.transition(ctx, id, ActionComplete, nil)
}

// Cancel terminates the appointment and records who cancelled it and why.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, actor, reason string) (*Appointment, error) {
	return s.transition(ctx, id, ActionCancel, func(a *Appointment, now time.Time) {
		a.CancelledAt = &now
		a.CancelledBy = actor
		a.CancellationReason = reason
	})
}

// MarkNoShow terminates the appointment as a no-show.
func (s *Service) MarkNoShow(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.transition(ctx, id, ActionNoShow, func(a *Appointment, now time.Time) {
		a.NoShowAt = &now
	})
}

func (s *Service) transition(ctx context.Context, id uuid.UUID, action Action, apply func(*Appointment, time.Time)) (*Appointment, error) {
	a, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	next, err := Transition(a.Status, action)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	a.Status = next
	if apply != nil {
		apply(a, now)
	}
	if err := s.repo.Update(ctx, a); err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("appointment_id", a.ID.String()).
		Str("action", string(action)).
		Str("status", string(a.Status)).
		Msg("appointment transition")
	return a, nil
}

// checkProviderConflict rejects a [start, end) interval that intersects
// another calendar-blocking appointment for the provider. exclude skips
// the appointment currently being moved.
func (s *Service) checkProviderConflict(ctx context.Context, providerID uuid.UUID, start, end time.Time, exclude uuid.UUID) error {
	booked, err := s.repo.ListActiveByProviderOnDay(ctx, providerID, start)
	if err != nil {
		return err
	}
	for _, b := range booked {
		if b.ID == exclude {
			continue
		}
		if start.Before(b.End) && end.After(b.Start) {
			return apperror.Conflict("provider is already booked from %s to %s",
				b.Start.Format("15:04"), b.End.Format("15:04"))
		}
	}
	return nil
}

// Reschedule moves the appointment to a new start time, optionally with a
// new duration. Only appointments that have not yet begun may move.
func (s *Service) Reschedule(ctx context.Context, id uuid.UUID, start time.Time, durationMinutes int) (*Appointment, error) {
	a, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	switch a.Status {
	case StatusProposed, StatusPending, StatusBooked:
	default:
		return nil, apperror.InvalidTransition("cannot reschedule an appointment in status %q", a.Status)
	}
	if start.IsZero() {
		return nil, apperror.Validation("start is required")
	}
	if durationMinutes == 0 {
		durationMinutes = a.DurationMinutes
	}
	if durationMinutes <= 0 {
		return nil, apperror.Validation("duration_minutes must be positive")
	}
	end := start.Add(time.Duration(durationMinutes) * time.Minute)
	if err := s.checkProviderConflict(ctx, a.ProviderID, start, end, a.ID); err != nil {
		return nil, err
	}
	a.Start = start
	a.DurationMinutes = durationMinutes
	a.End = end
	if err := s.repo.Update(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// SendReminder delivers a reminder for the appointment and records that it
// was sent. It never changes the appointment status.
func (s *Service) SendReminder(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	a, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Status.Terminal() {
		return nil, apperror.InvalidTransition("cannot send a reminder for an appointment in status %q", a.Status)
	}
	if err := s.notifier.SendReminder(ctx, notify.Reminder{
		AppointmentID: a.ID,
		PatientID:     a.PatientID,
		PatientName:   a.PatientName,
		ProviderName:  a.ProviderName,
		Start:         a.Start,
	}); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	a.ReminderSent = true
	a.ReminderSentAt = &now
	if err := s.repo.Update(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// GetAvailableSlots computes the provider's bookable slots for one day.
func (s *Service) GetAvailableSlots(ctx context.Context, date time.Time, providerID, facilityID uuid.UUID, durationMinutes int) ([]Slot, error) {
	if providerID == uuid.Nil {
		return nil, apperror.Validation("provider_id is required")
	}
	booked, err := s.repo.ListActiveByProviderOnDay(ctx, providerID, date)
	if err != nil {
		return nil, err
	}
	return AvailableSlots(date, providerID, facilityID, durationMinutes, booked)
}
