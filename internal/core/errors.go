package core

import "errors"

// Error classes. Callers match them with errors.Is; the API layer maps
// each class to a status code.
var (
	ErrValidation      = errors.New("validation error")
	ErrUnauthenticated = errors.New("authentication required")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
)

var (
	ErrInvalidKind     = classified(ErrValidation, "invalid entry kind")
	ErrInvalidAmount   = classified(ErrValidation, "invalid amount")
	ErrTeamNotFound    = classified(ErrNotFound, "team not found")
	ErrEntryNotFound   = classified(ErrNotFound, "entry not found")
	ErrTeamExists      = classified(ErrConflict, "team name already exists")
	ErrNotTeamCreator  = classified(ErrForbidden, "only the team creator can do this")
	ErrTeamWriteDenied = classified(ErrForbidden, "no access to this team")
	ErrMissingIdentity = classified(ErrUnauthenticated, "missing acting user")
)

type classifiedError struct {
	class error
	msg   string
}

func classified(class error, msg string) error {
	return &classifiedError{class: class, msg: msg}
}

func (e *classifiedError) Error() string { return e.msg }
func (e *classifiedError) Unwrap() error { return e.class }

// FieldError is a validation failure tied to one input field.
type FieldError struct {
	Field   string
	Message string
}

func NewFieldError(field, message string) *FieldError {
	return &FieldError{Field: field, Message: message}
}

func (e *FieldError) Error() string {
	return e.Field + ": " + e.Message
}

func (e *FieldError) Unwrap() error {
	return ErrValidation
}
