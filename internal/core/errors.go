package core

import "errors"

var (
	ErrUnauthorized      = errors.New("core: unauthorized")
	ErrForbidden         = errors.New("core: forbidden")
	ErrNotFound          = errors.New("core: not found")
	ErrInvalidInput      = errors.New("core: invalid input")
	ErrInvalidPagination = errors.New("core: invalid pagination")
	ErrConflict          = errors.New("core: conflict")
	ErrIncorrectCurrent  = errors.New("core: incorrect current password")
)

// ValidationError carries field-level detail for boundary responses.
// errors.Is(err, ErrInvalidInput) holds for any ValidationError.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Field + ": " + e.Message }

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }
