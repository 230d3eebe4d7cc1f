package scheduling

import (
	"time"

	"github.com/google/uuid"

	"github.com/careflow/careflow/internal/platform/apperror"
)

// Status is the appointment lifecycle state. Transitions are monotonic
// except cancelled/noshow, which are terminal from any non-terminal state.
type Status string

const (
	StatusProposed   Status = "proposed"
	StatusPending    Status = "pending"
	StatusBooked     Status = "booked"
	StatusArrived    Status = "arrived"
	StatusCheckedIn  Status = "checked-in"
	StatusInProgress Status = "in-progress"
	StatusFulfilled  Status = "fulfilled"
	StatusCancelled  Status = "cancelled"
	StatusNoShow     Status = "noshow"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	_, ok := statusInfo[s]
	return ok
}

// Terminal reports whether no further transitions leave s.
func (s Status) Terminal() bool {
	return s == StatusFulfilled || s == StatusCancelled || s == StatusNoShow
}

// StatusInfo carries the presentation attributes for a status. Display
// concerns live here, never in the status value itself.
type StatusInfo struct {
	Label string `json:"label"`
	Color string `json:"color"`
	Icon  string `json:"icon"`
}

var statusInfo = map[Status]StatusInfo{
	StatusProposed:   {Label: "Proposed", Color: "gray", Icon: "calendar-question"},
	StatusPending:    {Label: "Pending", Color: "amber", Icon: "calendar-clock"},
	StatusBooked:     {Label: "Booked", Color: "blue", Icon: "calendar-check"},
	StatusArrived:    {Label: "Arrived", Color: "teal", Icon: "door-open"},
	StatusCheckedIn:  {Label: "Checked In", Color: "cyan", Icon: "clipboard-check"},
	StatusInProgress: {Label: "In Progress", Color: "indigo", Icon: "stethoscope"},
	StatusFulfilled:  {Label: "Fulfilled", Color: "green", Icon: "check-circle"},
	StatusCancelled:  {Label: "Cancelled", Color: "red", Icon: "calendar-x"},
	StatusNoShow:     {Label: "No Show", Color: "orange", Icon: "user-x"},
}

// Info returns the presentation attributes for s.
func (s Status) Info() StatusInfo { return statusInfo[s] }

// Action is a lifecycle operation on an appointment.
type Action string

const (
	ActionConfirm        Action = "confirm"
	ActionCheckIn        Action = "check-in"
	ActionStartEncounter Action = "start-encounter"
	ActionComplete       Action = "complete"
	ActionCancel         Action = "cancel"
	ActionNoShow         Action = "no-show"
)

// transitions lists, per action, every status the action may fire from
// and the status it lands in.
var transitions = map[Action]map[Status]Status{
	ActionConfirm: {
		StatusProposed: StatusBooked,
		StatusPending:  StatusBooked,
	},
	ActionCheckIn: {
		StatusBooked:  StatusCheckedIn,
		StatusArrived: StatusCheckedIn,
	},
	ActionStartEncounter: {
		StatusCheckedIn: StatusInProgress,
	},
	ActionComplete: {
		StatusInProgress: StatusFulfilled,
	},
	ActionCancel: {
		StatusProposed:   StatusCancelled,
		StatusPending:    StatusCancelled,
		StatusBooked:     StatusCancelled,
		StatusArrived:    StatusCancelled,
		StatusCheckedIn:  StatusCancelled,
		StatusInProgress: StatusCancelled,
	},
	ActionNoShow: {
		StatusProposed:   StatusNoShow,
		StatusPending:    StatusNoShow,
		StatusBooked:     StatusNoShow,
		StatusArrived:    StatusNoShow,
		StatusCheckedIn:  StatusNoShow,
		StatusInProgress: StatusNoShow,
	},
}

// Transition returns the status reached by applying action from s. It is
// pure: it never mutates anything and always returns the same result for
// the same inputs.
func Transition(s Status, action Action) (Status, error) {
	if to, ok := transitions[action][s]; ok {
		return to, nil
	}
	return "", apperror.InvalidTransition("cannot %s an appointment in status %q", action, s)
}

// Recurrence describes a repeating appointment series.
type Recurrence struct {
	Frequency string     `json:"frequency"` // daily, weekly, monthly
	Interval  int        `json:"interval"`
	Count     int        `json:"count,omitempty"`
	Until     *time.Time `json:"until,omitempty"`
}

// Appointment is a scheduled patient visit. End always equals
// Start + DurationMinutes.
type Appointment struct {
	ID              uuid.UUID   `json:"id"`
	Status          Status      `json:"status"`
	PatientID       uuid.UUID   `json:"patient_id"`
	ProviderID      uuid.UUID   `json:"provider_id"`
	FacilityID      uuid.UUID   `json:"facility_id"`
	RoomID          *uuid.UUID  `json:"room_id,omitempty"`
	PatientName     string      `json:"patient_name"`  // snapshot taken at creation
	ProviderName    string      `json:"provider_name"` // snapshot taken at creation
	Reason          string      `json:"reason,omitempty"`
	Start           time.Time   `json:"start"`
	End             time.Time   `json:"end"`
	DurationMinutes int         `json:"duration_minutes"`
	Recurrence      *Recurrence `json:"recurrence,omitempty"`

	ReminderSent   bool       `json:"reminder_sent"`
	ReminderSentAt *time.Time `json:"reminder_sent_at,omitempty"`
	ConfirmedAt    *time.Time `json:"confirmed_at,omitempty"`
	ConfirmedBy    string     `json:"confirmed_by,omitempty"`
	ArrivedAt      *time.Time `json:"arrived_at,omitempty"`
	CheckedInAt    *time.Time `json:"checked_in_at,omitempty"`
	CheckedInBy    string     `json:"checked_in_by,omitempty"`
	NoShowAt       *time.Time `json:"no_show_at,omitempty"`

	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`
	CancelledBy        string     `json:"cancelled_by,omitempty"`
	CancellationReason string     `json:"cancellation_reason,omitempty"`

	VersionID int       `json:"version_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EntityID returns the appointment id.
func (a *Appointment) EntityID() uuid.UUID { return a.ID }

// GetVersionID returns the current version.
func (a *Appointment) GetVersionID() int { return a.VersionID }

// SetVersionID sets the current version.
func (a *Appointment) SetVersionID(v int) { a.VersionID = v }

// Clone returns a deep copy.
func (a *Appointment) Clone() *Appointment {
	cp := *a
	cp.RoomID = copyUUIDPtr(a.RoomID)
	cp.ReminderSentAt = copyTimePtr(a.ReminderSentAt)
	cp.ConfirmedAt = copyTimePtr(a.ConfirmedAt)
	cp.ArrivedAt = copyTimePtr(a.ArrivedAt)
	cp.CheckedInAt = copyTimePtr(a.CheckedInAt)
	cp.NoShowAt = copyTimePtr(a.NoShowAt)
	cp.CancelledAt = copyTimePtr(a.CancelledAt)
	if a.Recurrence != nil {
		r := *a.Recurrence
		r.Until = copyTimePtr(a.Recurrence.Until)
		cp.Recurrence = &r
	}
	return &cp
}

// Active reports whether the appointment still blocks its provider's
// calendar. Cancelled and no-show appointments free their slot.
func (a *Appointment) Active() bool {
	return a.Status != StatusCancelled && a.Status != StatusNoShow
}

// Slot is a bookable time window. Slots are computed on demand and never
// persisted.
type Slot struct {
	Start           time.Time `json:"start"`
	End             time.Time `json:"end"`
	DurationMinutes int       `json:"duration_minutes"`
	ProviderID      uuid.UUID `json:"provider_id"`
	FacilityID      uuid.UUID `json:"facility_id"`
	Available       bool      `json:"available"`
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
