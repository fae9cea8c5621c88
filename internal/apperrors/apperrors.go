package apperrors

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound    = errors.New("resource not found")
	ErrValidation  = errors.New("validation failed")
	ErrConflict    = errors.New("operation conflicts with current state")
	ErrPersistence = errors.New("storage failure")

	ErrInvalidRequest = errors.New("invalid request body")

	ErrNotReviewService = errors.New("service is not a review-type service")
	ErrClaimLocked      = errors.New("claim is no longer a draft")
	ErrNoPlannedCycle   = errors.New("no planned review cycle left")
)

// ValidationError is returned before any write happens.
type ValidationError struct {
	Errors []string
}

func NewValidationError(msgs ...string) *ValidationError {
	return &ValidationError{Errors: msgs}
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Errors, ", ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// ProtectedCycle names a review cycle that carries manual progress.
type ProtectedCycle struct {
	ReviewID int64  `json:"review_id"`
	CycleNo  int    `json:"cycle_no"`
	Reason   string `json:"reason"`
}

// ProtectedCyclesError aborts a destructive regeneration that was asked to keep manual work.
type ProtectedCyclesError struct {
	ServiceID int64
	Cycles    []ProtectedCycle
}

func (e *ProtectedCyclesError) Error() string {
	nos := make([]string, len(e.Cycles))
	for i, c := range e.Cycles {
		nos[i] = fmt.Sprintf("#%d (%s)", c.CycleNo, c.Reason)
	}

	return fmt.Sprintf("service %d: regeneration would discard manually altered cycles %s",
		e.ServiceID, strings.Join(nos, ", "))
}

func (e *ProtectedCyclesError) Is(target error) bool { return target == ErrConflict }

// CompletionLookupError reports which service broke claim generation.
type CompletionLookupError struct {
	ServiceID   int64
	ServiceCode string
	Err         error
}

func (e *CompletionLookupError) Error() string {
	return fmt.Sprintf("completion lookup failed for service %d (%s): %v", e.ServiceID, e.ServiceCode, e.Err)
}

func (e *CompletionLookupError) Unwrap() error { return e.Err }

type PersistenceError struct {
	Err error
}

func Persistence(err error) error {
	if err == nil {
		return nil
	}

	return &PersistenceError{Err: err}
}

func (e *PersistenceError) Error() string        { return fmt.Sprintf("%s: %v", ErrPersistence, e.Err) }
func (e *PersistenceError) Unwrap() error        { return e.Err }
func (e *PersistenceError) Is(target error) bool { return target == ErrPersistence }
