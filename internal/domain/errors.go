package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Specific errors wrap one of these so callers can branch with errors.Is.
var (
	ErrValidation  = errors.New("validation failed")
	ErrConflict    = errors.New("conflict")
	ErrNotFound    = errors.New("not found")
	ErrPersistence = errors.New("persistence")
)

var (
	ErrInvalidID        = fmt.Errorf("%w: invalid id", ErrValidation)
	ErrInvalidName      = fmt.Errorf("%w: name is required", ErrValidation)
	ErrInvalidEstimate  = fmt.Errorf("%w: estimated minutes must be a positive number no larger than one week (10080)", ErrValidation)
	ErrInvalidActual    = fmt.Errorf("%w: actual minutes must be a number >= 0", ErrValidation)
	ErrInvalidStartTime = fmt.Errorf("%w: start time is required", ErrValidation)
	ErrInvalidEndTime   = fmt.Errorf("%w: invalid end time", ErrValidation)
	ErrActualWithoutEnd = fmt.Errorf("%w: actual minutes need an end time", ErrValidation)
	ErrInvalidStatus    = fmt.Errorf("%w: invalid status", ErrValidation)
	ErrInvalidField     = fmt.Errorf("%w: unknown field", ErrValidation)

	ErrActivityActive = fmt.Errorf("%w: an activity is already in progress", ErrConflict)
	ErrDeleteActive   = fmt.Errorf("%w: cannot delete the activity in progress", ErrConflict)

	ErrNoActiveActivity = fmt.Errorf("%w: no activity in progress", ErrNotFound)
	ErrActivityNotFound = fmt.Errorf("%w: activity", ErrNotFound)
)
