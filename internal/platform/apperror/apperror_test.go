package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKindPredicates(t *testing.T) {
	if !IsNotFound(NotFound("appointment %s", "x")) {
		t.Error("expected IsNotFound")
	}
	if !IsInvalidTransition(InvalidTransition("cannot check in")) {
		t.Error("expected IsInvalidTransition")
	}
	if !IsValidation(Validation("duration must be positive")) {
		t.Error("expected IsValidation")
	}
	if !IsConflict(Conflict("stale version")) {
		t.Error("expected IsConflict")
	}
	if IsNotFound(errors.New("plain")) {
		t.Error("plain error must not match a kind")
	}
}

func TestKindSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("load appointment: %w", NotFound("unknown id"))
	if !IsNotFound(err) {
		t.Error("wrapped NotFound not recognized")
	}
}

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{NotFound("x"), http.StatusNotFound},
		{Validation("x"), http.StatusBadRequest},
		{InvalidTransition("x"), http.StatusConflict},
		{Conflict("x"), http.StatusConflict},
		{errors.New("x"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := HTTPStatus(tc.err); got != tc.want {
			t.Errorf("HTTPStatus(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}
