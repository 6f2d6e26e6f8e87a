package model

import "errors"

// Error kinds surfaced by the core operations. Callers wrap them with
// fmt.Errorf("%w: reason") and handlers map them onto HTTP statuses.
var (
	ErrConflict          = errors.New("slot conflict")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrNotFound          = errors.New("not found")
	ErrValidation        = errors.New("validation failed")
)
