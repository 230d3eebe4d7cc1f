package scheduling

import (
	"testing"

	"github.com/careflow/careflow/internal/platform/apperror"
)

func TestTransitionTable(t *testing.T) {
	cases := []struct {
		from   Status
		action Action
		to     Status
		ok     bool
	}{
		{StatusProposed, ActionConfirm, StatusBooked, true},
		{StatusPending, ActionConfirm, StatusBooked, true},
		{StatusBooked, ActionConfirm, "", false},
		{StatusBooked, ActionCheckIn, StatusCheckedIn, true},
		{StatusArrived, ActionCheckIn, StatusCheckedIn, true},
		{StatusCheckedIn, ActionStartEncounter, StatusInProgress, true},
		{StatusInProgress, ActionComplete, StatusFulfilled, true},
		{StatusBooked, ActionComplete, "", false},
		{StatusInProgress, ActionCancel, StatusCancelled, true},
		{StatusFulfilled, ActionCancel, "", false},
		{StatusCancelled, ActionCancel, "", false},
		{StatusNoShow, ActionConfirm, "", false},
		{StatusBooked, ActionNoShow, StatusNoShow, true},
		{StatusFulfilled, ActionNoShow, "", false},
	}
	for _, tc := range cases {
		got, err := Transition(tc.from, tc.action)
		if tc.ok {
			if err != nil {
				t.Errorf("%s + %s: unexpected error %v", tc.from, tc.action, err)
			} else if got != tc.to {
				t.Errorf("%s + %s = %s, want %s", tc.from, tc.action, got, tc.to)
			}
			continue
		}
		if !apperror.IsInvalidTransition(err) {
			t.Errorf("%s + %s: got %v, want invalid transition", tc.from, tc.action, err)
		}
	}
}

func TestTerminalStatusesHaveNoExits(t *testing.T) {
	for _, s := range []Status{StatusFulfilled, StatusCancelled, StatusNoShow} {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
		for action := range transitions {
			if _, err := Transition(s, action); err == nil {
				t.Errorf("terminal status %s must reject %s", s, action)
			}
		}
	}
}

func TestStatusInfoCoversEveryStatus(t *testing.T) {
	for s := range statusInfo {
		info := s.Info()
		if info.Label == "" || info.Color == "" || info.Icon == "" {
			t.Errorf("status %s has incomplete presentation info: %+v", s, info)
		}
	}
	if Status("bogus").Valid() {
		t.Error("unknown status must not validate")
	}
}

func TestCloneIsDeep(t *testing.T) {
	a := appt(day(9, 0), day(9, 30))
	now := day(8, 0)
	a.ConfirmedAt = &now
	a.Recurrence = &Recurrence{Frequency: "weekly", Interval: 1}

	cp := a.Clone()
	*cp.ConfirmedAt = day(10, 0)
	cp.Recurrence.Interval = 99

	if !a.ConfirmedAt.Equal(day(8, 0)) {
		t.Error("clone shares ConfirmedAt pointer")
	}
	if a.Recurrence.Interval != 1 {
		t.Error("clone shares Recurrence pointer")
	}
}
