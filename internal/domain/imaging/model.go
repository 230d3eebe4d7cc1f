package imaging

import (
	"time"

	"github.com/google/uuid"

	"github.com/careflow/careflow/internal/platform/apperror"
)

// Status is the imaging order lifecycle state. The report statuses
// (preliminary, final, addendum) continue the order lifecycle after the
// study itself is done.
type Status string

const (
	StatusDraft       Status = "draft"
	StatusPending     Status = "pending"
	StatusScheduled   Status = "scheduled"
	StatusInProgress  Status = "in-progress"
	StatusCompleted   Status = "completed"
	StatusPreliminary Status = "preliminary"
	StatusFinal       Status = "final"
	StatusAddendum    Status = "addendum"
	StatusCancelled   Status = "cancelled"
)

var validStatuses = map[Status]bool{
	StatusDraft:       true,
	StatusPending:     true,
	StatusScheduled:   true,
	StatusInProgress:  true,
	StatusCompleted:   true,
	StatusPreliminary: true,
	StatusFinal:       true,
	StatusAddendum:    true,
	StatusCancelled:   true,
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool { return validStatuses[s] }

// Cancellable reports whether the order may still be cancelled. A
// performed study (completed or later) is a fact; it cannot be undone.
func (s Status) Cancellable() bool {
	switch s {
	case StatusCompleted, StatusFinal, StatusAddendum, StatusCancelled:
		return false
	}
	return true
}

// Priority is the order urgency.
type Priority string

const (
	PriorityRoutine Priority = "routine"
	PriorityUrgent  Priority = "urgent"
	PriorityStat    Priority = "stat"
)

var validPriorities = map[Priority]bool{
	PriorityRoutine: true,
	PriorityUrgent:  true,
	PriorityStat:    true,
}

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool { return validPriorities[p] }

var validModalities = map[string]bool{
	"CT": true, "MR": true, "US": true, "XR": true,
	"CR": true, "DX": true, "MG": true, "NM": true, "PT": true,
}

// ValidModality reports whether m is a known DICOM modality code.
func ValidModality(m string) bool { return validModalities[m] }

// Action is a lifecycle operation on an imaging order. Report
// submission, addenda and cancellation have their own guards in the
// service.
type Action string

const (
	ActionSchedule Action = "schedule"
	ActionStart    Action = "start"
	ActionComplete Action = "complete"
)

var transitions = map[Action]map[Status]Status{
	ActionSchedule: {
		StatusDraft:   StatusScheduled,
		StatusPending: StatusScheduled,
	},
	ActionStart: {
		StatusScheduled: StatusInProgress,
	},
	ActionComplete: {
		StatusInProgress: StatusCompleted,
	},
}

// Transition returns the status reached by applying action from s.
func Transition(s Status, action Action) (Status, error) {
	if to, ok := transitions[action][s]; ok {
		return to, nil
	}
	return "", apperror.InvalidTransition("cannot %s an imaging order in status %q", action, s)
}

// SafetyScreening is the pre-study questionnaire payload.
type SafetyScreening struct {
	PregnancyStatus    string   `json:"pregnancy_status,omitempty"`
	HasPacemaker       bool     `json:"has_pacemaker"`
	HasMetalImplants   bool     `json:"has_metal_implants"`
	HasContrastAllergy bool     `json:"has_contrast_allergy"`
	EGFR               *float64 `json:"egfr,omitempty"`
	Notes              string   `json:"notes,omitempty"`
}

// ReportStatus is the radiology report's own state.
type ReportStatus string

const (
	ReportDraft       ReportStatus = "draft"
	ReportPreliminary ReportStatus = "preliminary"
	ReportFinal       ReportStatus = "final"
	ReportAddendum    ReportStatus = "addendum"
	ReportAmended     ReportStatus = "amended"
)

// Addendum is a post-final report amendment. Appended, never edited.
type Addendum struct {
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Report is the radiologist's read of a performed study.
type Report struct {
	Status     ReportStatus `json:"status"`
	AuthoredBy string       `json:"authored_by,omitempty"`
	Findings   string       `json:"findings,omitempty"`
	Impression string       `json:"impression,omitempty"`

	HasCriticalFindings           bool       `json:"has_critical_findings"`
	CriticalFindingCommunicated   bool       `json:"critical_finding_communicated"`
	CriticalFindingAcknowledgedBy string     `json:"critical_finding_acknowledged_by,omitempty"`
	CriticalFindingAcknowledgedAt *time.Time `json:"critical_finding_acknowledged_at,omitempty"`

	Addenda []Addendum `json:"addenda,omitempty"`
}

// ImagingOrder is one radiology order with its optional report.
type ImagingOrder struct {
	ID              uuid.UUID `json:"id"`
	Status          Status    `json:"status"`
	AccessionNumber string    `json:"accession_number"`

	PatientID            uuid.UUID  `json:"patient_id"`
	OrderingProviderID   uuid.UUID  `json:"ordering_provider_id"`
	ReadingProviderID    *uuid.UUID `json:"reading_provider_id,omitempty"`
	PatientName          string     `json:"patient_name"`           // snapshot taken at creation
	OrderingProviderName string     `json:"ordering_provider_name"` // snapshot taken at creation

	Modality             string   `json:"modality"`
	ProcedureCode        string   `json:"procedure_code"`
	ProcedureDescription string   `json:"procedure_description,omitempty"`
	BodyRegion           string   `json:"body_region,omitempty"`
	Priority             Priority `json:"priority"`
	RequiresContrast     bool     `json:"requires_contrast"`
	ClinicalIndication   string   `json:"clinical_indication,omitempty"`

	FacilityID    *uuid.UUID `json:"facility_id,omitempty"`
	OrderedDate   time.Time  `json:"ordered_date"`
	ScheduledDate *time.Time `json:"scheduled_date,omitempty"`
	PerformedDate *time.Time `json:"performed_date,omitempty"`
	ReportedDate  *time.Time `json:"reported_date,omitempty"`

	Safety *SafetyScreening `json:"safety_screening,omitempty"`
	Report *Report          `json:"report,omitempty"`

	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`
	CancelledBy        string     `json:"cancelled_by,omitempty"`
	CancellationReason string     `json:"cancellation_reason,omitempty"`

	VersionID int       `json:"version_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EntityID returns the order id.
func (o *ImagingOrder) EntityID() uuid.UUID { return o.ID }

// GetVersionID returns the current version.
func (o *ImagingOrder) GetVersionID() int { return o.VersionID }

// SetVersionID sets the current version.
func (o *ImagingOrder) SetVersionID(v int) { o.VersionID = v }

// Clone returns a deep copy.
func (o *ImagingOrder) Clone() *ImagingOrder {
	cp := *o
	cp.ReadingProviderID = copyUUIDPtr(o.ReadingProviderID)
	cp.FacilityID = copyUUIDPtr(o.FacilityID)
	cp.ScheduledDate = copyTimePtr(o.ScheduledDate)
	cp.PerformedDate = copyTimePtr(o.PerformedDate)
	cp.ReportedDate = copyTimePtr(o.ReportedDate)
	cp.CancelledAt = copyTimePtr(o.CancelledAt)
	if o.Safety != nil {
		s := *o.Safety
		s.EGFR = copyFloatPtr(o.Safety.EGFR)
		cp.Safety = &s
	}
	if o.Report != nil {
		r := *o.Report
		r.CriticalFindingAcknowledgedAt = copyTimePtr(o.Report.CriticalFindingAcknowledgedAt)
		if o.Report.Addenda != nil {
			r.Addenda = make([]Addendum, len(o.Report.Addenda))
			copy(r.Addenda, o.Report.Addenda)
		}
		cp.Report = &r
	}
	return &cp
}

// AwaitingCriticalAck reports the outstanding safety obligation: a
// critical finding nobody has acknowledged yet. Independent of status.
func (o *ImagingOrder) AwaitingCriticalAck() bool {
	return o.Report != nil && o.Report.HasCriticalFindings && !o.Report.CriticalFindingCommunicated
}

func copyTimePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func copyUUIDPtr(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

func copyFloatPtr(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}
