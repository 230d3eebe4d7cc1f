package scheduling

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/careflow/careflow/internal/platform/apperror"
)

func day(hour, min int) time.Time {
	return time.Date(2026, 3, 10, hour, min, 0, 0, time.UTC)
}

func appt(start, end time.Time) *Appointment {
	return &Appointment{
		ID:     uuid.New(),
		Status: StatusBooked,
		Start:  start,
		End:    end,
	}
}

func TestAvailableSlotsEmptyDay(t *testing.T) {
	slots, err := AvailableSlots(day(0, 0), uuid.New(), uuid.New(), 30, nil)
	if err != nil {
		t.Fatalf("AvailableSlots: %v", err)
	}
	// 8 per morning period, 8 per afternoon period
	if len(slots) != 16 {
		t.Fatalf("got %d slots, want 16", len(slots))
	}
	for _, s := range slots {
		if !s.Available {
			t.Errorf("slot %s should be available on an empty day", s.Start.Format("15:04"))
		}
	}
	if got := slots[0].Start; !got.Equal(day(8, 0)) {
		t.Errorf("first slot starts at %s, want 08:00", got.Format("15:04"))
	}
	if got := slots[7].End; !got.Equal(day(12, 0)) {
		t.Errorf("last morning slot ends at %s, want 12:00", got.Format("15:04"))
	}
	if got := slots[8].Start; !got.Equal(day(13, 0)) {
		t.Errorf("first afternoon slot starts at %s, want 13:00", got.Format("15:04"))
	}
	if got := slots[15].End; !got.Equal(day(17, 0)) {
		t.Errorf("last slot ends at %s, want 17:00", got.Format("15:04"))
	}
}

func TestAvailableSlotsAroundBookedAppointment(t *testing.T) {
	booked := []*Appointment{appt(day(9, 0), day(9, 30))}
	slots, err := AvailableSlots(day(0, 0), uuid.New(), uuid.New(), 30, booked)
	if err != nil {
		t.Fatalf("AvailableSlots: %v", err)
	}

	want := map[string]bool{
		"08:00": true,
		"08:30": true,
		"09:00": false,
		"09:30": true,
	}
	for _, s := range slots {
		key := s.Start.Format("15:04")
		if expect, ok := want[key]; ok && s.Available != expect {
			t.Errorf("slot %s available=%v, want %v", key, s.Available, expect)
		}
	}
}

func TestAvailableSlotsNeverSpanMiddayBreak(t *testing.T) {
	slots, err := AvailableSlots(day(0, 0), uuid.New(), uuid.New(), 45, nil)
	if err != nil {
		t.Fatalf("AvailableSlots: %v", err)
	}
	noon := day(12, 0)
	resume := day(13, 0)
	for _, s := range slots {
		if s.Start.Before(noon) && s.End.After(noon) {
			t.Errorf("slot %s-%s spans the midday break",
				s.Start.Format("15:04"), s.End.Format("15:04"))
		}
		if !s.Start.Before(noon) && s.Start.Before(resume) {
			t.Errorf("slot starts inside the midday break at %s", s.Start.Format("15:04"))
		}
	}
	// 45 min into a 4h period leaves 5 whole windows per period.
	if len(slots) != 10 {
		t.Errorf("got %d slots, want 10", len(slots))
	}
}

func TestAvailableSlotsTouchingEndpointsDoNotOverlap(t *testing.T) {
	// Booked 08:30-09:00. 08:00-08:30 and 09:00-09:30 touch it but do
	// not intersect it.
	booked := []*Appointment{appt(day(8, 30), day(9, 0))}
	slots, err := AvailableSlots(day(0, 0), uuid.New(), uuid.New(), 30, booked)
	if err != nil {
		t.Fatalf("AvailableSlots: %v", err)
	}
	for _, s := range slots {
		switch s.Start.Format("15:04") {
		case "08:00", "09:00":
			if !s.Available {
				t.Errorf("slot %s should be available, it only touches the booked window", s.Start.Format("15:04"))
			}
		case "08:30":
			if s.Available {
				t.Error("slot 08:30 should be unavailable")
			}
		}
	}
}

func TestAvailableSlotsPartialOverlapBlocks(t *testing.T) {
	// A 20-minute appointment at 09:10 blocks the 09:00 30-minute window.
	booked := []*Appointment{appt(day(9, 10), day(9, 30))}
	slots, err := AvailableSlots(day(0, 0), uuid.New(), uuid.New(), 30, booked)
	if err != nil {
		t.Fatalf("AvailableSlots: %v", err)
	}
	for _, s := range slots {
		if s.Start.Equal(day(9, 0)) && s.Available {
			t.Error("slot 09:00 should be blocked by a partially overlapping appointment")
		}
	}
}

func TestAvailableSlotsOddDurationLeavesRemainder(t *testing.T) {
	// 50-minute windows: 4 per period, the trailing 40 minutes are not
	// offered.
	slots, err := AvailableSlots(day(0, 0), uuid.New(), uuid.New(), 50, nil)
	if err != nil {
		t.Fatalf("AvailableSlots: %v", err)
	}
	if len(slots) != 8 {
		t.Fatalf("got %d slots, want 8", len(slots))
	}
	for _, s := range slots {
		if s.End.After(day(12, 0)) && s.Start.Before(day(13, 0)) && s.Start.Before(day(12, 0)) {
			t.Errorf("slot %s-%s crosses noon", s.Start.Format("15:04"), s.End.Format("15:04"))
		}
	}
}

func TestAvailableSlotsRejectsNonPositiveDuration(t *testing.T) {
	for _, d := range []int{0, -15} {
		if _, err := AvailableSlots(day(0, 0), uuid.New(), uuid.New(), d, nil); !apperror.IsValidation(err) {
			t.Errorf("duration %d: got %v, want validation error", d, err)
		}
	}
}

func TestAvailableSlotsDeterministic(t *testing.T) {
	providerID, facilityID := uuid.New(), uuid.New()
	booked := []*Appointment{
		appt(day(9, 0), day(9, 30)),
		appt(day(14, 0), day(15, 0)),
	}
	first, err := AvailableSlots(day(0, 0), providerID, facilityID, 30, booked)
	if err != nil {
		t.Fatalf("AvailableSlots: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := AvailableSlots(day(0, 0), providerID, facilityID, 30, booked)
		if err != nil {
			t.Fatalf("AvailableSlots: %v", err)
		}
		if len(again) != len(first) {
			t.Fatalf("run %d: got %d slots, want %d", i, len(again), len(first))
		}
		for j := range first {
			if again[j] != first[j] {
				t.Fatalf("run %d: slot %d differs", i, j)
			}
		}
	}
}
