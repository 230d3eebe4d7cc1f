package encounter

import (
	"time"

	"github.com/google/uuid"

	"github.com/careflow/careflow/internal/platform/apperror"
)

// Status is the encounter lifecycle state.
type Status string

const (
	StatusPlanned    Status = "planned"
	StatusArrived    Status = "arrived"
	StatusTriaged    Status = "triaged"
	StatusInProgress Status = "in-progress"
	StatusOnLeave    Status = "onleave"
	StatusFinished   Status = "finished"
	StatusCancelled  Status = "cancelled"
)

var validStatuses = map[Status]bool{
	StatusPlanned:    true,
	StatusArrived:    true,
	StatusTriaged:    true,
	StatusInProgress: true,
	StatusOnLeave:    true,
	StatusFinished:   true,
	StatusCancelled:  true,
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool { return validStatuses[s] }

// Terminal reports whether no further transitions leave s.
func (s Status) Terminal() bool { return s == StatusFinished || s == StatusCancelled }

// Class is the encounter setting.
type Class string

const (
	ClassAmbulatory  Class = "ambulatory"
	ClassEmergency   Class = "emergency"
	ClassInpatient   Class = "inpatient"
	ClassObservation Class = "observation"
	ClassVirtual     Class = "virtual"
	ClassHome        Class = "home"
)

var validClasses = map[Class]bool{
	ClassAmbulatory:  true,
	ClassEmergency:   true,
	ClassInpatient:   true,
	ClassObservation: true,
	ClassVirtual:     true,
	ClassHome:        true,
}

// Valid reports whether c is a known class.
func (c Class) Valid() bool { return validClasses[c] }

// Action is a progress operation on an encounter. Sign and cancel fire
// from any non-terminal state and are guarded in the service instead.
type Action string

const (
	ActionArrive Action = "arrive"
	ActionTriage Action = "triage"
	ActionStart  Action = "start"
	ActionPause  Action = "pause"
)

var transitions = map[Action]map[Status]Status{
	ActionArrive: {
		StatusPlanned: StatusArrived,
	},
	ActionTriage: {
		StatusArrived: StatusTriaged,
	},
	ActionStart: {
		StatusPlanned: StatusInProgress,
		StatusArrived: StatusInProgress,
		StatusTriaged: StatusInProgress,
		StatusOnLeave: StatusInProgress,
	},
	ActionPause: {
		StatusInProgress: StatusOnLeave,
	},
}

// Transition returns the status reached by applying action from s.
func Transition(s Status, action Action) (Status, error) {
	if to, ok := transitions[action][s]; ok {
		return to, nil
	}
	return "", apperror.InvalidTransition("cannot %s an encounter in status %q", action, s)
}

// Diagnosis is one coded assessment entry.
type Diagnosis struct {
	System         string `json:"system"` // coding system, e.g. icd-10
	Code           string `json:"code"`
	Description    string `json:"description,omitempty"`
	Role           string `json:"role,omitempty"` // primary, secondary, differential
	ClinicalStatus string `json:"clinical_status,omitempty"`
}

// Vitals is the measured-signs section. Nil fields were not taken.
type Vitals struct {
	TemperatureC     *float64   `json:"temperature_c,omitempty"`
	HeartRate        *int       `json:"heart_rate,omitempty"`
	RespiratoryRate  *int       `json:"respiratory_rate,omitempty"`
	SystolicBP       *int       `json:"systolic_bp,omitempty"`
	DiastolicBP      *int       `json:"diastolic_bp,omitempty"`
	OxygenSaturation *float64   `json:"oxygen_saturation,omitempty"`
	HeightCM         *float64   `json:"height_cm,omitempty"`
	WeightKG         *float64   `json:"weight_kg,omitempty"`
	RecordedAt       *time.Time `json:"recorded_at,omitempty"`
}

// Assessment is the clinician's impression plus its coded diagnoses.
type Assessment struct {
	Summary   string      `json:"summary,omitempty"`
	Diagnoses []Diagnosis `json:"diagnoses,omitempty"`
}

// Sections is the clinical note body. Once the encounter is signed the
// sections are an immutable record; amendments land in Addenda.
type Sections struct {
	Vitals     *Vitals    `json:"vitals,omitempty"`
	Subjective string     `json:"subjective,omitempty"`
	Objective  string     `json:"objective,omitempty"`
	Assessment Assessment `json:"assessment"`
	Plan       string     `json:"plan,omitempty"`
}

// Addendum is a post-signature amendment. Appended, never edited.
type Addendum struct {
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Encounter is one clinical visit with its note.
type Encounter struct {
	ID            uuid.UUID  `json:"id"`
	Status        Status     `json:"status"`
	Class         Class      `json:"class"`
	PatientID     uuid.UUID  `json:"patient_id"`
	ProviderID    uuid.UUID  `json:"provider_id"`
	AppointmentID *uuid.UUID `json:"appointment_id,omitempty"`
	PatientName   string     `json:"patient_name"`  // snapshot taken at creation
	ProviderName  string     `json:"provider_name"` // snapshot taken at creation

	ChiefComplaint string     `json:"chief_complaint,omitempty"`
	StartTime      time.Time  `json:"start_time"`
	EndTime        *time.Time `json:"end_time,omitempty"`

	Sections Sections   `json:"sections"`
	Addenda  []Addendum `json:"addenda,omitempty"`

	SignedAt    *time.Time `json:"signed_at,omitempty"`
	SignedBy    string     `json:"signed_by,omitempty"`
	Attestation string     `json:"attestation,omitempty"`

	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`
	CancellationReason string     `json:"cancellation_reason,omitempty"`

	VersionID int       `json:"version_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EntityID returns the encounter id.
func (e *Encounter) EntityID() uuid.UUID { return e.ID }

// GetVersionID returns the current version.
func (e *Encounter) GetVersionID() int { return e.VersionID }

// SetVersionID sets the current version.
func (e *Encounter) SetVersionID(v int) { e.VersionID = v }

// Clone returns a deep copy.
func (e *Encounter) Clone() *Encounter {
	cp := *e
	cp.AppointmentID = copyUUIDPtr(e.AppointmentID)
	cp.EndTime = copyTimePtr(e.EndTime)
	cp.SignedAt = copyTimePtr(e.SignedAt)
	cp.CancelledAt = copyTimePtr(e.CancelledAt)
	cp.Sections = e.Sections.clone()
	if e.Addenda != nil {
		cp.Addenda = make([]Addendum, len(e.Addenda))
		copy(cp.Addenda, e.Addenda)
	}
	return &cp
}

func (s Sections) clone() Sections {
	cp := s
	if s.Vitals != nil {
		v := Vitals{
			TemperatureC:     copyFloatPtr(s.Vitals.TemperatureC),
			HeartRate:        copyIntPtr(s.Vitals.HeartRate),
			RespiratoryRate:  copyIntPtr(s.Vitals.RespiratoryRate),
			SystolicBP:       copyIntPtr(s.Vitals.SystolicBP),
			DiastolicBP:      copyIntPtr(s.Vitals.DiastolicBP),
			OxygenSaturation: copyFloatPtr(s.Vitals.OxygenSaturation),
			HeightCM:         copyFloatPtr(s.Vitals.HeightCM),
			WeightKG:         copyFloatPtr(s.Vitals.WeightKG),
			RecordedAt:       copyTimePtr(s.Vitals.RecordedAt),
		}
		cp.Vitals = &v
	}
	if s.Assessment.Diagnoses != nil {
		cp.Assessment.Diagnoses = make([]Diagnosis, len(s.Assessment.Diagnoses))
		copy(cp.Assessment.Diagnoses, s.Assessment.Diagnoses)
	}
	return cp
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

func copyIntPtr(n *int) *int {
	if n == nil {
		return nil
	}
	v := *n
	return &v
}

func copyFloatPtr(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}
