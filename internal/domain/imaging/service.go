package imaging

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/careflow/careflow/internal/platform/apperror"
	"github.com/careflow/careflow/internal/platform/directory"
)

// Service implements the imaging order lifecycle on top of a Repository.
type Service struct {
	repo   Repository
	dir    directory.Directory
	logger zerolog.Logger
}

// NewService creates the imaging service.
func NewService(repo Repository, dir directory.Directory, logger zerolog.Logger) *Service {
	return &Service{repo: repo, dir: dir, logger: logger}
}

// CreateInput carries the caller-supplied order fields.
type CreateInput struct {
	PatientID            uuid.UUID        `json:"patient_id"`
	OrderingProviderID   uuid.UUID        `json:"ordering_provider_id"`
	Modality             string           `json:"modality"`
	ProcedureCode        string           `json:"procedure_code"`
	ProcedureDescription string           `json:"procedure_description"`
	BodyRegion           string           `json:"body_region"`
	Priority             Priority         `json:"priority,omitempty"`
	RequiresContrast     bool             `json:"requires_contrast"`
	ClinicalIndication   string           `json:"clinical_indication"`
	Safety               *SafetyScreening `json:"safety_screening,omitempty"`
	Status               Status           `json:"status,omitempty"`
}

// Create validates and persists a new imaging order. The accession
// number is generated here and never supplied by the caller.
func (s *Service) Create(ctx context.Context, in CreateInput) (*ImagingOrder, error) {
	if in.PatientID == uuid.Nil {
		return nil, apperror.Validation("patient_id is required")
	}
	if in.OrderingProviderID == uuid.Nil {
		return nil, apperror.Validation("ordering_provider_id is required")
	}
	if !ValidModality(in.Modality) {
		return nil, apperror.Validation("unknown modality %q", in.Modality)
	}
	if in.ProcedureCode == "" {
		return nil, apperror.Validation("procedure_code is required")
	}
	if in.Priority == "" {
		in.Priority = PriorityRoutine
	}
	if !in.Priority.Valid() {
		return nil, apperror.Validation("unknown priority %q", in.Priority)
	}
	status := in.Status
	if status == "" {
		status = StatusPending
	}
	switch status {
	case StatusDraft, StatusPending:
	default:
		return nil, apperror.Validation("imaging orders cannot be created in status %q", status)
	}

	patient, err := s.dir.Patient(in.PatientID)
	if err != nil {
		return nil, err
	}
	provider, err := s.dir.Provider(in.OrderingProviderID)
	if err != nil {
		return nil, err
	}
	accession, err := s.repo.NextAccessionNumber(ctx)
	if err != nil {
		return nil, err
	}

	o := &ImagingOrder{
		Status:               status,
		AccessionNumber:      accession,
		PatientID:            in.PatientID,
		OrderingProviderID:   in.OrderingProviderID,
		PatientName:          patient.Name,
		OrderingProviderName: provider.Name,
		Modality:             in.Modality,
		ProcedureCode:        in.ProcedureCode,
		ProcedureDescription: in.ProcedureDescription,
		BodyRegion:           in.BodyRegion,
		Priority:             in.Priority,
		RequiresContrast:     in.RequiresContrast,
		ClinicalIndication:   in.ClinicalIndication,
		OrderedDate:          time.Now().UTC(),
		Safety:               in.Safety,
	}
	if err := s.repo.Create(ctx, o); err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("order_id", o.ID.String()).
		Str("accession", o.AccessionNumber).
		Str("modality", o.Modality).
		Str("priority", string(o.Priority)).
		Msg("imaging order created")
	return o, nil
}

// Get returns one imaging order.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*ImagingOrder, error) {
	return s.repo.Get(ctx, id)
}

// Search returns imaging orders matching the params plus the total count
// before paging.
func (s *Service) Search(ctx context.Context, p SearchParams) ([]*ImagingOrder, int, error) {
	for _, st := range p.Statuses {
		if !st.Valid() {
			return nil, 0, apperror.Validation("unknown status %q", st)
		}
	}
	if p.Priority != "" && !p.Priority.Valid() {
		return nil, 0, apperror.Validation("unknown priority %q", p.Priority)
	}
	return s.repo.Search(ctx, p)
}

// Schedule books the study at a facility and moves the order to
// scheduled.
func (s *Service) Schedule(ctx context.Context, id uuid.UUID, date time.Time, facilityID uuid.UUID) (*ImagingOrder, error) {
	if date.IsZero() {
		return nil, apperror.Validation("scheduled date is required")
	}
	o, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	next, err := Transition(o.Status, ActionSchedule)
	if err != nil {
		return nil, err
	}
	o.Status = next
	o.ScheduledDate = &date
	if facilityID != uuid.Nil {
		o.FacilityID = &facilityID
	}
	if err := s.repo.Update(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// Start begins the study and records the performed date.
func (s *Service) Start(ctx context.Context, id uuid.UUID) (*ImagingOrder, error) {
	o, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	next, err := Transition(o.Status, ActionStart)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	o.Status = next
	o.PerformedDate = &now
	if err := s.repo.Update(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// Complete marks the study done and ready to read.
func (s *Service) Complete(ctx context.Context, id uuid.UUID) (*ImagingOrder, error) {
	o, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	next, err := Transition(o.Status, ActionComplete)
	if err != nil {
		return nil, err
	}
	o.Status = next
	if err := s.repo.Update(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// ReportInput carries the radiologist's read.
type ReportInput struct {
	Findings            string `json:"findings"`
	Impression          string `json:"impression"`
	HasCriticalFindings bool   `json:"has_critical_findings"`
	Final               bool   `json:"final"`
}

// SaveDraftReport stores the radiologist's working read without moving
// the order. Submission later promotes the draft. No draft may exist
// before the study was performed.
func (s *Service) SaveDraftReport(ctx context.Context, id uuid.UUID, authoredBy string, in ReportInput) (*ImagingOrder, error) {
	if authoredBy == "" {
		return nil, apperror.Validation("report author is required")
	}
	o, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.PerformedDate == nil {
		return nil, apperror.InvalidTransition("cannot draft a report before the study is performed")
	}
	if o.Status != StatusInProgress && o.Status != StatusCompleted {
		return nil, apperror.InvalidTransition("cannot draft a report for an order in status %q", o.Status)
	}
	if o.Report != nil && o.Report.Status != ReportDraft {
		return nil, apperror.InvalidTransition("a %s report already exists", o.Report.Status)
	}

	o.Report = &Report{
		Status:              ReportDraft,
		AuthoredBy:          authoredBy,
		Findings:            in.Findings,
		Impression:          in.Impression,
		HasCriticalFindings: in.HasCriticalFindings,
	}
	if err := s.repo.Update(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// AmendReport corrects the findings or impression of a finalized report
// in place. Unlike an addendum it rewrites the narrative; the report is
// marked amended so readers know it changed after finalization. The
// order status and any recorded acknowledgment stay as they are.
func (s *Service) AmendReport(ctx context.Context, id uuid.UUID, authoredBy string, in ReportInput) (*ImagingOrder, error) {
	if authoredBy == "" {
		return nil, apperror.Validation("report author is required")
	}
	o, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.Status != StatusFinal && o.Status != StatusAddendum {
		return nil, apperror.InvalidTransition("cannot amend a report for an order in status %q", o.Status)
	}

	o.Report.Status = ReportAmended
	o.Report.AuthoredBy = authoredBy
	o.Report.Findings = in.Findings
	o.Report.Impression = in.Impression
	o.Report.HasCriticalFindings = in.HasCriticalFindings
	if err := s.repo.Update(ctx, o); err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("order_id", o.ID.String()).
		Str("accession", o.AccessionNumber).
		Msg("imaging report amended")
	return o, nil
}

// SubmitReport attaches or finalizes the report. A preliminary read
// requires a completed study; a final read may also upgrade a
// preliminary one. No report may exist before the study was performed.
func (s *Service) SubmitReport(ctx context.Context, id uuid.UUID, authoredBy string, in ReportInput) (*ImagingOrder, error) {
	if authoredBy == "" {
		return nil, apperror.Validation("report author is required")
	}
	o, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.PerformedDate == nil {
		return nil, apperror.InvalidTransition("cannot report an imaging order before the study is performed")
	}

	if in.Final {
		if o.Status != StatusCompleted && o.Status != StatusPreliminary {
			return nil, apperror.InvalidTransition("cannot finalize a report for an order in status %q", o.Status)
		}
	} else if o.Status != StatusCompleted {
		return nil, apperror.InvalidTransition("cannot submit a preliminary report for an order in status %q", o.Status)
	}

	report := o.Report
	if report == nil {
		report = &Report{}
	}
	report.AuthoredBy = authoredBy
	report.Findings = in.Findings
	report.Impression = in.Impression
	report.HasCriticalFindings = in.HasCriticalFindings

	if in.Final {
		now := time.Now().UTC()
		report.Status = ReportFinal
		o.Status = StatusFinal
		o.ReportedDate = &now
	} else {
		report.Status = ReportPreliminary
		o.Status = StatusPreliminary
	}
	o.Report = report

	if err := s.repo.Update(ctx, o); err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("order_id", o.ID.String()).
		Str("accession", o.AccessionNumber).
		Bool("final", in.Final).
		Bool("critical", in.HasCriticalFindings).
		Msg("imaging report submitted")
	return o, nil
}

// AddAddendum appends an amendment to a finalized report. The earlier
// report content stays untouched.
func (s *Service) AddAddendum(ctx context.Context, id uuid.UUID, author, text string) (*ImagingOrder, error) {
	if author == "" {
		return nil, apperror.Validation("author is required")
	}
	if text == "" {
		return nil, apperror.Validation("text is required")
	}
	o, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.Status != StatusFinal && o.Status != StatusAddendum {
		return nil, apperror.InvalidTransition("cannot amend a report for an order in status %q", o.Status)
	}
	o.Status = StatusAddendum
	o.Report.Status = ReportAddendum
	o.Report.Addenda = append(o.Report.Addenda, Addendum{
		Author:    author,
		Text:      text,
		CreatedAt: time.Now().UTC(),
	})
	if err := s.repo.Update(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// Cancel terminates the order. A performed study cannot be cancelled.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, actor, reason string) (*ImagingOrder, error) {
	o, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !o.Status.Cancellable() {
		return nil, apperror.InvalidTransition("cannot cancel an imaging order in status %q", o.Status)
	}
	now := time.Now().UTC()
	o.Status = StatusCancelled
	o.CancelledAt = &now
	o.CancelledBy = actor
	o.CancellationReason = reason
	if err := s.repo.Update(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// AcknowledgeCriticalFinding records that someone took responsibility
// for a critical result. Orthogonal to the order status; once
// acknowledged, repeated calls succeed without touching the recorded
// actor or time.
func (s *Service) AcknowledgeCriticalFinding(ctx context.Context, id uuid.UUID, actor string) (*ImagingOrder, error) {
	if actor == "" {
		return nil, apperror.Validation("actor is required")
	}
	o, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.Report == nil || !o.Report.HasCriticalFindings {
		return nil, apperror.Validation("imaging order %s has no critical finding to acknowledge", id)
	}
	if o.Report.CriticalFindingCommunicated {
		return o, nil
	}
	now := time.Now().UTC()
	o.Report.CriticalFindingCommunicated = true
	o.Report.CriticalFindingAcknowledgedBy = actor
	o.Report.CriticalFindingAcknowledgedAt = &now
	if err := s.repo.Update(ctx, o); err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("order_id", o.ID.String()).
		Str("accession", o.AccessionNumber).
		Str("acknowledged_by", actor).
		Msg("critical finding acknowledged")
	return o, nil
}
