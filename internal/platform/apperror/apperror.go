// Package apperror defines the error kinds every domain service reports:
// unknown entity, guard violations, malformed input, and lost write races.
// Handlers translate kinds to HTTP status codes; services never touch HTTP.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure.
type Kind int

const (
	// KindNotFound means the entity id is unknown.
	KindNotFound Kind = iota
	// KindInvalidTransition means the action is not permitted from the
	// entity's current status.
	KindInvalidTransition
	// KindValidation means the input is malformed (non-positive duration,
	// missing required field, end before start).
	KindValidation
	// KindConflict means a concurrent write won the race; the caller should
	// re-fetch and re-apply.
	KindConflict
)

// Error carries a kind plus a caller-facing message.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

// NotFound reports an unknown entity id.
func NotFound(format string, args ...interface{}) error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

// InvalidTransition reports an action not permitted from the current status.
func InvalidTransition(format string, args ...interface{}) error {
	return &Error{Kind: KindInvalidTransition, Msg: fmt.Sprintf(format, args...)}
}

// Validation reports malformed input.
func Validation(format string, args ...interface{}) error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

// Conflict reports a lost concurrent-write race.
func Conflict(format string, args ...interface{}) error {
	return &Error{Kind: KindConflict, Msg: fmt.Sprintf(format, args...)}
}

// KindOf extracts the kind of err, reporting whether err is an apperror.
func KindOf(err error) (Kind, bool) {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind, true
	}
	return 0, false
}

// IsNotFound reports whether err is a NotFound error.
func IsNotFound(err error) bool {
	k, ok := KindOf(err)
	return ok && k == KindNotFound
}

// IsInvalidTransition reports whether err is an InvalidTransition error.
func IsInvalidTransition(err error) bool {
	k, ok := KindOf(err)
	return ok && k == KindInvalidTransition
}

// IsValidation reports whether err is a Validation error.
func IsValidation(err error) bool {
	k, ok := KindOf(err)
	return ok && k == KindValidation
}

// IsConflict reports whether err is a Conflict error.
func IsConflict(err error) bool {
	k, ok := KindOf(err)
	return ok && k == KindConflict
}

// HTTPStatus maps an error to the status code handlers should return.
// Unrecognized errors map to 500.
func HTTPStatus(err error) int {
	switch k, ok := KindOf(err); {
	case !ok:
		return http.StatusInternalServerError
	case k == KindNotFound:
		return http.StatusNotFound
	case k == KindValidation:
		return http.StatusBadRequest
	case k == KindInvalidTransition, k == KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
