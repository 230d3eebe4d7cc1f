package imaging

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
		{StatusDraft, ActionSchedule, StatusScheduled, true},
		{StatusPending, ActionSchedule, StatusScheduled, true},
		{StatusScheduled, ActionSchedule, "", false},
		{StatusScheduled, ActionStart, StatusInProgress, true},
		{StatusPending, ActionStart, "", false},
		{StatusInProgress, ActionComplete, StatusCompleted, true},
		{StatusScheduled, ActionComplete, "", false},
		{StatusCancelled, ActionSchedule, "", false},
		{StatusFinal, ActionStart, "", false},
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

func TestCancellable(t *testing.T) {
	cancellable := []Status{StatusDraft, StatusPending, StatusScheduled, StatusInProgress, StatusPreliminary}
	for _, s := range cancellable {
		if !s.Cancellable() {
			t.Errorf("%s should be cancellable", s)
		}
	}
	blocked := []Status{StatusCompleted, StatusFinal, StatusAddendum, StatusCancelled}
	for _, s := range blocked {
		if s.Cancellable() {
			t.Errorf("%s should not be cancellable", s)
		}
	}
}

func TestCloneIsDeep(t *testing.T) {
	egfr := 55.0
	o := &ImagingOrder{
		Safety: &SafetyScreening{EGFR: &egfr},
		Report: &Report{
			Findings: "original",
			Addenda:  []Addendum{{Author: "a", Text: "first"}},
		},
	}

	cp := o.Clone()
	*cp.Safety.EGFR = 90
	cp.Report.Findings = "mutated"
	cp.Report.Addenda[0].Text = "mutated"

	if *o.Safety.EGFR != 55.0 {
		t.Error("clone shares safety screening pointer")
	}
	if o.Report.Findings != "original" {
		t.Error("clone shares report pointer")
	}
	if o.Report.Addenda[0].Text != "first" {
		t.Error("clone shares addenda slice")
	}
}
