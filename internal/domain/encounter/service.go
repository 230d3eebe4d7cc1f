package encounter

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/careflow/careflow/internal/platform/apperror"
	"github.com/careflow/careflow/internal/platform/directory"
)

// Service implements the encounter lifecycle on top of a Repository.
type Service struct {
	repo   Repository
	dir    directory.Directory
	logger zerolog.Logger
}

// NewService creates the encounter service.
func NewService(repo Repository, dir directory.Directory, logger zerolog.Logger) *Service {
	return &Service{repo: repo, dir: dir, logger: logger}
}

// CreateInput carries the caller-supplied encounter fields.
type CreateInput struct {
	PatientID      uuid.UUID  `json:"patient_id"`
	ProviderID     uuid.UUID  `json:"provider_id"`
	AppointmentID  *uuid.UUID `json:"appointment_id,omitempty"`
	Class          Class      `json:"class"`
	ChiefComplaint string     `json:"chief_complaint"`
	StartTime      time.Time  `json:"start_time"`
	Status         Status     `json:"status,omitempty"`
}

// Create validates and persists a new encounter.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Encounter, error) {
	if in.PatientID == uuid.Nil {
		return nil, apperror.Validation("patient_id is required")
	}
	if in.ProviderID == uuid.Nil {
		return nil, apperror.Validation("provider_id is required")
	}
	if in.Class == "" {
		in.Class = ClassAmbulatory
	}
	if !in.Class.Valid() {
		return nil, apperror.Validation("unknown encounter class %q", in.Class)
	}
	status := in.Status
	if status == "" {
		status = StatusPlanned
	}
	switch status {
	case StatusPlanned, StatusArrived, StatusInProgress:
	default:
		return nil, apperror.Validation("encounters cannot be created in status %q", status)
	}
	if in.StartTime.IsZero() {
		in.StartTime = time.Now().UTC()
	}

	patient, err := s.dir.Patient(in.PatientID)
	if err != nil {
		return nil, err
	}
	provider, err := s.dir.Provider(in.ProviderID)
	if err != nil {
		return nil, err
	}

	e := &Encounter{
		Status:         status,
		Class:          in.Class,
		PatientID:      in.PatientID,
		ProviderID:     in.ProviderID,
		AppointmentID:  in.AppointmentID,
		PatientName:    patient.Name,
		ProviderName:   provider.Name,
		ChiefComplaint: in.ChiefComplaint,
		StartTime:      in.StartTime,
	}
	if err := s.repo.Create(ctx, e); err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("encounter_id", e.ID.String()).
		Str("class", string(e.Class)).
		Str("provider", e.ProviderName).
		Msg("encounter created")
	return e, nil
}

// Get returns one encounter.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Encounter, error) {
	return s.repo.Get(ctx, id)
}

// Search returns encounters matching the params plus the total count
// before paging.
func (s *Service) Search(ctx context.Context, p SearchParams) ([]*Encounter, int, error) {
	for _, st := range p.Statuses {
		if !st.Valid() {
			return nil, 0, apperror.Validation("unknown status %q", st)
		}
	}
	if p.Class != "" && !p.Class.Valid() {
		return nil, 0, apperror.Validation("unknown encounter class %q", p.Class)
	}
	return s.repo.Search(ctx, p)
}

// MarkArrived moves a planned encounter to arrived.
func (s *Service) MarkArrived(ctx context.Context, id uuid.UUID) (*Encounter, error) {
	return s.transition(ctx, id, ActionArrive)
}

// Triage moves an arrived encounter to triaged.
func (s *Service) Triage(ctx context.Context, id uuid.UUID) (*Encounter, error) {
	return s.transition(ctx, id, ActionTriage)
}

// Start moves the encounter to in-progress.
func (s *Service) Start(ctx context.Context, id uuid.UUID) (*Encounter, error) {
	return s.transition(ctx, id, ActionStart)
}

// Pause moves an in-progress encounter to onleave.
func (s *Service) Pause(ctx context.Context, id uuid.UUID) (*Encounter, error) {
	return s.transition(ctx, id, ActionPause)
}

func (s *Service) transition(ctx context.Context, id uuid.UUID, action Action) (*Encounter, error) {
	e, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	next, err := Transition(e.Status, action)
	if err != nil {
		return nil, err
	}
	e.Status = next
	if err := s.repo.Update(ctx, e); err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("encounter_id", e.ID.String()).
		Str("action", string(action)).
		Str("status", string(e.Status)).
		Msg("encounter transition")
	return e, nil
}

// Sign finishes the encounter and freezes its sections. The end time
// defaults to the signing time when the clinician never set one.
func (s *Service) Sign(ctx context.Context, id uuid.UUID, signedBy, attestation string) (*Encounter, error) {
	if signedBy == "" {
		return nil, apperror.Validation("signed_by is required")
	}
	e, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.Status.Terminal() {
		return nil, apperror.InvalidTransition("cannot sign an encounter in status %q", e.Status)
	}
	now := time.Now().UTC()
	e.Status = StatusFinished
	e.SignedAt = &now
	e.SignedBy = signedBy
	e.Attestation = attestation
	if e.EndTime == nil {
		e.EndTime = &now
	}
	if err := s.repo.Update(ctx, e); err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("encounter_id", e.ID.String()).
		Str("signed_by", signedBy).
		Msg("encounter signed")
	return e, nil
}

// Cancel terminates the encounter. Finished encounters are part of the
// clinical record and cannot be cancelled.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, reason string) (*Encounter, error) {
	e, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.Status.Terminal() {
		return nil, apperror.InvalidTransition("cannot cancel an encounter in status %q", e.Status)
	}
	now := time.Now().UTC()
	e.Status = StatusCancelled
	e.CancelledAt = &now
	e.CancellationReason = reason
	if err := s.repo.Update(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// UpdateSections replaces the note body. Rejected once the encounter is
// finished or cancelled: signed sections are an immutable record.
func (s *Service) UpdateSections(ctx context.Context, id uuid.UUID, sections Sections) (*Encounter, error) {
	e, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.Status.Terminal() {
		return nil, apperror.InvalidTransition("cannot edit sections of an encounter in status %q", e.Status)
	}
	e.Sections = sections
	if err := s.repo.Update(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// ApplyTemplate merges a named template into the note. Fields the
// clinician already filled are never overwritten.
func (s *Service) ApplyTemplate(ctx context.Context, id uuid.UUID, templateID string) (*Encounter, error) {
	t, err := LookupTemplate(templateID)
	if err != nil {
		return nil, err
	}
	e, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.Status.Terminal() {
		return nil, apperror.InvalidTransition("cannot apply a template to an encounter in status %q", e.Status)
	}
	e.Sections = t.merge(e.Sections)
	if err := s.repo.Update(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// AddAddendum appends a post-signature amendment to a finished
// encounter. The signed sections stay untouched.
func (s *Service) AddAddendum(ctx context.Context, id uuid.UUID, author, text string) (*Encounter, error) {
	if author == "" {
		return nil, apperror.Validation("author is required")
	}
	if text == "" {
		return nil, apperror.Validation("text is required")
	}
	e, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.Status != StatusFinished {
		return nil, apperror.InvalidTransition("cannot amend an encounter in status %q", e.Status)
	}
	e.Addenda = append(e.Addenda, Addendum{
		Author:    author,
		Text:      text,
		CreatedAt: time.Now().UTC(),
	})
	if err := s.repo.Update(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}
