package scheduling

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/careflow/careflow/internal/platform/apperror"
	"github.com/careflow/careflow/internal/platform/directory"
	"github.com/careflow/careflow/internal/platform/notify"
)

type captureSender struct {
	sent []notify.Reminder
}

func (s *captureSender) SendReminder(_ context.Context, r notify.Reminder) error {
	s.sent = append(s.sent, r)
	return nil
}

type schedFixture struct {
	svc        *Service
	repo       Repository
	sender     *captureSender
	dir        *directory.InMemory
	patientID  uuid.UUID
	providerID uuid.UUID
	facilityID uuid.UUID
}

func newSchedFixture(t *testing.T) *schedFixture {
	t.Helper()
	dir := directory.NewInMemory()
	patientID, providerID := uuid.New(), uuid.New()
	dir.AddPatient(directory.Person{ID: patientID, Name: "Ada Lovelace"})
	dir.AddProvider(directory.Person{ID: providerID, Name: "Dr. Gregory House"})

	repo := NewMemoryRepository()
	sender := &captureSender{}
	return &schedFixture{
		svc:        NewService(repo, dir, sender, zerolog.Nop()),
		repo:       repo,
		sender:     sender,
		dir:        dir,
		patientID:  patientID,
		providerID: providerID,
		facilityID: uuid.New(),
	}
}

func (f *schedFixture) create(t *testing.T, status Status, start time.Time) *Appointment {
	t.Helper()
	a, err := f.svc.Create(context.Background(), CreateInput{
		PatientID:       f.patientID,
		ProviderID:      f.providerID,
		FacilityID:      f.facilityID,
		Reason:          "annual physical",
		Start:           start,
		DurationMinutes: 30,
		Status:          status,
	})
	if err != nil {
		t.Fatalf("create appointment: %v", err)
	}
	return a
}

func TestCreateAppointment(t *testing.T) {
	f := newSchedFixture(t)
	start := day(9, 0)
	a := f.create(t, "", start)

	if a.Status != StatusBooked {
		t.Errorf("status = %s, want booked", a.Status)
	}
	if a.PatientName != "Ada Lovelace" || a.ProviderName != "Dr. Gregory House" {
		t.Errorf("name snapshots not taken: %q / %q", a.PatientName, a.ProviderName)
	}
	if want := start.Add(30 * time.Minute); !a.End.Equal(want) {
		t.Errorf("end = %s, want start+duration", a.End)
	}
	if a.VersionID != 1 {
		t.Errorf("version = %d, want 1", a.VersionID)
	}

	got, err := f.svc.Get(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ID != a.ID {
		t.Error("stored appointment does not round-trip")
	}
}

func TestCreateAppointmentValidation(t *testing.T) {
	f := newSchedFixture(t)
	base := CreateInput{
		PatientID:       f.patientID,
		ProviderID:      f.providerID,
		FacilityID:      f.facilityID,
		Start:           day(9, 0),
		DurationMinutes: 30,
	}

	cases := []struct {
		name   string
		mutate func(*CreateInput)
	}{
		{"missing patient", func(in *CreateInput) { in.PatientID = uuid.Nil }},
		{"missing provider", func(in *CreateInput) { in.ProviderID = uuid.Nil }},
		{"missing facility", func(in *CreateInput) { in.FacilityID = uuid.Nil }},
		{"zero start", func(in *CreateInput) { in.Start = time.Time{} }},
		{"zero duration", func(in *CreateInput) { in.DurationMinutes = 0 }},
		{"negative duration", func(in *CreateInput) { in.DurationMinutes = -10 }},
		{"terminal initial status", func(in *CreateInput) { in.Status = StatusFulfilled }},
		{"bad recurrence frequency", func(in *CreateInput) {
			in.Recurrence = &Recurrence{Frequency: "hourly", Interval: 1}
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := base
			tc.mutate(&in)
			if _, err := f.svc.Create(context.Background(), in); !apperror.IsValidation(err) {
				t.Errorf("got %v, want validation error", err)
			}
		})
	}
}

func TestCreateAppointmentUnknownPatient(t *testing.T) {
	f := newSchedFixture(t)
	_, err := f.svc.Create(context.Background(), CreateInput{
		PatientID:       uuid.New(),
		ProviderID:      f.providerID,
		FacilityID:      f.facilityID,
		Start:           day(9, 0),
		DurationMinutes: 30,
	})
	if !apperror.IsNotFound(err) {
		t.Errorf("got %v, want not found", err)
	}
}

func TestAppointmentHappyPath(t *testing.T) {
	f := newSchedFixture(t)
	ctx := context.Background()
	a := f.create(t, StatusPending, day(9, 0))

	a, err := f.svc.Confirm(ctx, a.ID, "front desk")
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if a.Status != StatusBooked || a.ConfirmedAt == nil || a.ConfirmedBy != "front desk" {
		t.Errorf("confirm side effects missing: %+v", a)
	}

	a, err = f.svc.MarkArrived(ctx, a.ID)
	if err != nil {
		t.Fatalf("arrive: %v", err)
	}
	if a.Status != StatusArrived || a.ArrivedAt == nil {
		t.Errorf("arrival not recorded: %+v", a)
	}

	a, err = f.svc.CheckIn(ctx, a.ID, "registrar")
	if err != nil {
		t.Fatalf("check-in: %v", err)
	}
	if a.Status != StatusCheckedIn || a.CheckedInAt == nil || a.CheckedInBy != "registrar" {
		t.Errorf("check-in side effects missing: %+v", a)
	}

	if a, err = f.svc.StartEncounter(ctx, a.ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	if a.Status != StatusInProgress {
		t.Errorf("status = %s, want in-progress", a.Status)
	}

	if a, err = f.svc.Complete(ctx, a.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if a.Status != StatusFulfilled {
		t.Errorf("status = %s, want fulfilled", a.Status)
	}
	// Each transition bumps the version once.
	if a.VersionID != 6 {
		t.Errorf("version = %d, want 6", a.VersionID)
	}
}

func TestCheckInWithoutArrival(t *testing.T) {
	f := newSchedFixture(t)
	a := f.create(t, StatusBooked, day(9, 0))

	a, err := f.svc.CheckIn(context.Background(), a.ID, "registrar")
	if err != nil {
		t.Fatalf("check-in: %v", err)
	}
	if a.Status != StatusCheckedIn {
		t.Errorf("status = %s, want checked-in", a.Status)
	}
	if a.ArrivedAt == nil {
		t.Error("check-in should backfill arrival time")
	}
}

func TestInvalidTransitions(t *testing.T) {
	f := newSchedFixture(t)
	ctx := context.Background()

	t.Run("complete from booked", func(t *testing.T) {
		a := f.create(t, StatusBooked, day(9, 0))
		if _, err := f.svc.Complete(ctx, a.ID); !apperror.IsInvalidTransition(err) {
			t.Errorf("got %v, want invalid transition", err)
		}
	})

	t.Run("confirm twice", func(t *testing.T) {
		a := f.create(t, StatusPending, day(10, 0))
		if _, err := f.svc.Confirm(ctx, a.ID, "x"); err != nil {
			t.Fatalf("first confirm: %v", err)
		}
		if _, err := f.svc.Confirm(ctx, a.ID, "x"); !apperror.IsInvalidTransition(err) {
			t.Errorf("got %v, want invalid transition", err)
		}
	})

	t.Run("cancel after fulfilled", func(t *testing.T) {
		a := f.create(t, StatusBooked, day(11, 0))
		for _, step := range []func() (*Appointment, error){
			func() (*Appointment, error) { return f.svc.CheckIn(ctx, a.ID, "x") },
			func() (*Appointment, error) { return f.svc.StartEncounter(ctx, a.ID) },
			func() (*Appointment, error) { return f.svc.Complete(ctx, a.ID) },
		} {
			if _, err := step(); err != nil {
				t.Fatalf("step: %v", err)
			}
		}
		if _, err := f.svc.Cancel(ctx, a.ID, "x", "too late"); !apperror.IsInvalidTransition(err) {
			t.Errorf("got %v, want invalid transition", err)
		}
	})

	t.Run("no-show after cancel", func(t *testing.T) {
		a := f.create(t, StatusBooked, day(14, 0))
		if _, err := f.svc.Cancel(ctx, a.ID, "x", "patient called"); err != nil {
			t.Fatalf("cancel: %v", err)
		}
		if _, err := f.svc.MarkNoShow(ctx, a.ID); !apperror.IsInvalidTransition(err) {
			t.Errorf("got %v, want invalid transition", err)
		}
	})
}

func TestFailedTransitionLeavesRecordUntouched(t *testing.T) {
	f := newSchedFixture(t)
	ctx := context.Background()
	a := f.create(t, StatusBooked, day(9, 0))

	if _, err := f.svc.Complete(ctx, a.ID); err == nil {
		t.Fatal("complete from booked should fail")
	}
	got, err := f.svc.Get(ctx, a.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != StatusBooked || got.VersionID != a.VersionID {
		t.Errorf("record changed after failed transition: %+v", got)
	}
}

func TestCancelRecordsActorAndReason(t *testing.T) {
	f := newSchedFixture(t)
	a := f.create(t, StatusBooked, day(9, 0))

	a, err := f.svc.Cancel(context.Background(), a.ID, "Dr. Wilson", "equipment failure")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if a.Status != StatusCancelled || a.CancelledAt == nil {
		t.Errorf("cancellation not recorded: %+v", a)
	}
	if a.CancelledBy != "Dr. Wilson" || a.CancellationReason != "equipment failure" {
		t.Errorf("actor/reason not recorded: %q %q", a.CancelledBy, a.CancellationReason)
	}
}

func TestReschedule(t *testing.T) {
	f := newSchedFixture(t)
	ctx := context.Background()
	a := f.create(t, StatusBooked, day(9, 0))

	newStart := day(15, 0)
	a, err := f.svc.Reschedule(ctx, a.ID, newStart, 45)
	if err != nil {
		t.Fatalf("reschedule: %v", err)
	}
	if !a.Start.Equal(newStart) || a.DurationMinutes != 45 {
		t.Errorf("reschedule not applied: %+v", a)
	}
	if want := newStart.Add(45 * time.Minute); !a.End.Equal(want) {
		t.Errorf("end = %s, want recomputed from duration", a.End)
	}

	// Duration 0 keeps the previous duration.
	a, err = f.svc.Reschedule(ctx, a.ID, day(16, 0), 0)
	if err != nil {
		t.Fatalf("reschedule: %v", err)
	}
	if a.DurationMinutes != 45 {
		t.Errorf("duration = %d, want carried over 45", a.DurationMinutes)
	}

	if _, err := f.svc.CheckIn(ctx, a.ID, "x"); err != nil {
		t.Fatalf("check-in: %v", err)
	}
	if _, err := f.svc.Reschedule(ctx, a.ID, day(16, 30), 0); !apperror.IsInvalidTransition(err) {
		t.Errorf("got %v, want invalid transition once checked in", err)
	}
}

func TestSendReminder(t *testing.T) {
	f := newSchedFixture(t)
	ctx := context.Background()
	a := f.create(t, StatusBooked, day(9, 0))

	a, err := f.svc.SendReminder(ctx, a.ID)
	if err != nil {
		t.Fatalf("send reminder: %v", err)
	}
	if !a.ReminderSent || a.ReminderSentAt == nil {
		t.Error("reminder flags not set")
	}
	if a.Status != StatusBooked {
		t.Errorf("reminder must not change status, got %s", a.Status)
	}
	if len(f.sender.sent) != 1 {
		t.Fatalf("sender received %d reminders, want 1", len(f.sender.sent))
	}
	if r := f.sender.sent[0]; r.AppointmentID != a.ID || r.PatientName != "Ada Lovelace" {
		t.Errorf("reminder payload wrong: %+v", r)
	}

	if _, err := f.svc.Cancel(ctx, a.ID, "x", ""); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, err := f.svc.SendReminder(ctx, a.ID); !apperror.IsInvalidTransition(err) {
		t.Errorf("got %v, want invalid transition for cancelled appointment", err)
	}

	done := f.create(t, StatusBooked, day(10, 0))
	if _, err := f.svc.CheckIn(ctx, done.ID, "reg"); err != nil {
		t.Fatalf("check in: %v", err)
	}
	if _, err := f.svc.StartEncounter(ctx, done.ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := f.svc.Complete(ctx, done.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if _, err := f.svc.SendReminder(ctx, done.ID); !apperror.IsInvalidTransition(err) {
		t.Errorf("got %v, want invalid transition for fulfilled appointment", err)
	}
}

func TestCreateRejectsProviderOverlap(t *testing.T) {
	f := newSchedFixture(t)
	ctx := context.Background()
	f.create(t, StatusBooked, day(9, 0))

	_, err := f.svc.Create(ctx, CreateInput{
		PatientID:       f.patientID,
		ProviderID:      f.providerID,
		FacilityID:      f.facilityID,
		Start:           day(9, 15),
		DurationMinutes: 30,
	})
	if !apperror.IsConflict(err) {
		t.Errorf("got %v, want conflict for overlapping interval", err)
	}

	// Touching endpoints do not overlap.
	if _, err := f.svc.Create(ctx, CreateInput{
		PatientID:       f.patientID,
		ProviderID:      f.providerID,
		FacilityID:      f.facilityID,
		Start:           day(9, 30),
		DurationMinutes: 30,
	}); err != nil {
		t.Errorf("back-to-back appointment rejected: %v", err)
	}
}

func TestCreateOverlapIgnoresCancelledAndOtherProviders(t *testing.T) {
	f := newSchedFixture(t)
	ctx := context.Background()

	cancelled := f.create(t, StatusBooked, day(9, 0))
	if _, err := f.svc.Cancel(ctx, cancelled.ID, "x", ""); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, err := f.svc.Create(ctx, CreateInput{
		PatientID:       f.patientID,
		ProviderID:      f.providerID,
		FacilityID:      f.facilityID,
		Start:           day(9, 0),
		DurationMinutes: 30,
	}); err != nil {
		t.Errorf("cancelled appointment still blocks its slot: %v", err)
	}

	other := uuid.New()
	f.dir.AddProvider(directory.Person{ID: other, Name: "Dr. Eric Foreman"})
	if _, err := f.svc.Create(ctx, CreateInput{
		PatientID:       f.patientID,
		ProviderID:      other,
		FacilityID:      f.facilityID,
		Start:           day(9, 0),
		DurationMinutes: 30,
	}); err != nil {
		t.Errorf("another provider's calendar blocked the slot: %v", err)
	}
}

func TestRescheduleRejectsProviderOverlap(t *testing.T) {
	f := newSchedFixture(t)
	ctx := context.Background()
	f.create(t, StatusBooked, day(9, 0))
	b := f.create(t, StatusBooked, day(10, 0))

	if _, err := f.svc.Reschedule(ctx, b.ID, day(9, 15), 0); !apperror.IsConflict(err) {
		t.Errorf("got %v, want conflict for overlapping reschedule", err)
	}

	// Moving within its own current interval is not a conflict with itself.
	moved, err := f.svc.Reschedule(ctx, b.ID, day(10, 15), 0)
	if err != nil {
		t.Fatalf("reschedule within own slot: %v", err)
	}
	if !moved.End.Equal(day(10, 45)) {
		t.Errorf("end = %v, want 10:45", moved.End)
	}
}

func TestGetAvailableSlotsExcludesCancelled(t *testing.T) {
	f := newSchedFixture(t)
	ctx := context.Background()

	blocked := f.create(t, StatusBooked, day(9, 0))
	cancelled := f.create(t, StatusBooked, day(10, 0))
	if _, err := f.svc.Cancel(ctx, cancelled.ID, "x", ""); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	slots, err := f.svc.GetAvailableSlots(ctx, day(0, 0), f.providerID, f.facilityID, 30)
	if err != nil {
		t.Fatalf("slots: %v", err)
	}
	for _, s := range slots {
		switch {
		case s.Start.Equal(blocked.Start):
			if s.Available {
				t.Error("09:00 should be blocked by the booked appointment")
			}
		case s.Start.Equal(cancelled.Start):
			if !s.Available {
				t.Error("10:00 should be free again after cancellation")
			}
		}
	}
}

func TestSearchAppointments(t *testing.T) {
	f := newSchedFixture(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		f.create(t, StatusBooked, day(9, 0).Add(time.Duration(i)*time.Hour))
	}
	cancelled := f.create(t, StatusBooked, day(15, 0))
	if _, err := f.svc.Cancel(ctx, cancelled.ID, "x", ""); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	items, total, err := f.svc.Search(ctx, SearchParams{
		Statuses: []Status{StatusBooked},
		Page:     1,
		PageSize: 3,
	})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if total != 5 {
		t.Errorf("total = %d, want 5 before paging", total)
	}
	if len(items) != 3 {
		t.Errorf("page has %d items, want 3", len(items))
	}
	for i := 1; i < len(items); i++ {
		if items[i].Start.Before(items[i-1].Start) {
			t.Error("results not sorted by start ascending")
		}
	}

	// Past-end page returns an empty slice, not an error.
	items, total, err = f.svc.Search(ctx, SearchParams{Page: 99, PageSize: 10})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if total != 6 || len(items) != 0 {
		t.Errorf("past-end page: total=%d len=%d, want 6 and 0", total, len(items))
	}

	if _, _, err := f.svc.Search(ctx, SearchParams{Statuses: []Status{"bogus"}}); !apperror.IsValidation(err) {
		t.Errorf("got %v, want validation error for unknown status", err)
	}
}

func TestConcurrentUpdateConflict(t *testing.T) {
	f := newSchedFixture(t)
	ctx := context.Background()
	a := f.create(t, StatusPending, day(9, 0))

	stale, err := f.repo.Get(ctx, a.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if _, err := f.svc.Confirm(ctx, a.ID, "first"); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	stale.Reason = "rewritten"
	if err := f.repo.Update(ctx, stale); !apperror.IsConflict(err) {
		t.Errorf("got %v, want conflict on stale version", err)
	}
}
