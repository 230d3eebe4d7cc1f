package scheduling

import (
	"time"

	"github.com/google/uuid"

	"github.com/careflow/careflow/internal/platform/apperror"
)

// workingPeriods are the clinic's bookable hours. Each period is sliced
// independently, so no slot ever spans the midday break.
var workingPeriods = []struct {
	startHour, endHour int
}{
	{8, 12},  // morning
	{13, 17}, // afternoon
}

// AvailableSlots computes the bookable windows for one provider on one
// day. booked is the provider's set of calendar-blocking appointments for
// that day; a window is unavailable when it intersects any of them under
// the half-open rule window.Start < a.End && window.End > a.Start
// (touching endpoints do not overlap). The function is pure: identical
// inputs always yield identical output.
func AvailableSlots(date time.Time, providerID, facilityID uuid.UUID, durationMinutes int, booked []*Appointment) ([]Slot, error) {
	if durationMinutes <= 0 {
		return nil, apperror.Validation("slot duration must be positive, got %d", durationMinutes)
	}

	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	step := time.Duration(durationMinutes) * time.Minute

	var slots []Slot
	for _, p := range workingPeriods {
		windowStart := day.Add(time.Duration(p.startHour) * time.Hour)
		periodEnd := day.Add(time.Duration(p.endHour) * time.Hour)

		for !windowStart.Add(step).After(periodEnd) {
			windowEnd := windowStart.Add(step)
			slots = append(slots, Slot{
				Start:           windowStart,
				End:             windowEnd,
				DurationMinutes: durationMinutes,
				ProviderID:      providerID,
				FacilityID:      facilityID,
				Available:       !overlapsAny(windowStart, windowEnd, booked),
			})
			windowStart = windowEnd
		}
	}
	return slots, nil
}

func overlapsAny(start, end time.Time, booked []*Appointment) bool {
	for _, a := range booked {
		if start.Before(a.End) && end.After(a.Start) {
			return true
		}
	}
	return false
}
