package core

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for comparison with errors.Is(). Structured errors below
// wrap one of these so callers can branch on kind without type-asserting.
var (
	// ErrNotFound is returned by Get/resolve on an unknown id.
	ErrNotFound = errors.New("constraint not found")

	// ErrDuplicateID is returned when add_atomic/add_composite is called
	// with an id already present in either map.
	ErrDuplicateID = errors.New("duplicate constraint id")

	// ErrReferenceValidation is returned when a composite references an id
	// absent from the library at insert time, or (for the resolver) absent
	// at resolve time.
	ErrReferenceValidation = errors.New("dangling constraint reference")

	// ErrCircularReference is returned when resolving an id re-enters an id
	// already on the in-progress path.
	ErrCircularReference = errors.New("circular constraint reference")

	// ErrConstraintInUse is returned by remove() when another composite
	// still references the id being removed.
	ErrConstraintInUse = errors.New("constraint is referenced by another composite")

	// ErrValidation is wrapped by every ValidationError.
	ErrValidation = errors.New("validation error")

	// ErrActivationBudgetExceeded names the condition where the soft
	// activation deadline is hit before all composites could be evaluated.
	// The Activator does not return it; it reports the condition through
	// ActivationResult.BudgetExceeded.
	ErrActivationBudgetExceeded = errors.New("activation budget exceeded")

	// ErrLoadFailed wraps failures from a LibraryLoader implementation.
	ErrLoadFailed = errors.New("library load failed")
)

// ValidationError reports that a constructor argument violated a structural
// rule (empty title, priority out of range, empty keyword, mismatched
// weights, ...). Every constructor in this package returns one of these
// immediately; none of them panic on bad input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: field %q: %s", e.Field, e.Reason)
}
func (e *ValidationError) Unwrap() error { return ErrValidation }

// DuplicateIDError reports that id already exists in the library.
type DuplicateIDError struct {
	ID ConstraintID
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("duplicate id %q", e.ID)
}
func (e *DuplicateIDError) Unwrap() error { return ErrDuplicateID }

// ReferenceValidationError reports ids referenced by a composite (directly,
// or discovered mid-resolve) that do not exist in the library.
type ReferenceValidationError struct {
	Missing []ConstraintID
}

func (e *ReferenceValidationError) Error() string {
	ids := make([]string, len(e.Missing))
	for i, id := range e.Missing {
		ids[i] = string(id)
	}
	return fmt.Sprintf("missing referenced ids: [%s]", strings.Join(ids, ", "))
}
func (e *ReferenceValidationError) Unwrap() error { return ErrReferenceValidation }

// CircularReferenceError reports the in-progress id chain at the point a
// cycle was detected; Chain begins and ends at the same id.
type CircularReferenceError struct {
	Chain []ConstraintID
}

func (e *CircularReferenceError) Error() string {
	ids := make([]string, len(e.Chain))
	for i, id := range e.Chain {
		ids[i] = string(id)
	}
	return fmt.Sprintf("circular reference: %s", strings.Join(ids, " -> "))
}
func (e *CircularReferenceError) Unwrap() error { return ErrCircularReference }

// ConstraintInUseError reports the composites still referencing the id a
// caller attempted to remove.
type ConstraintInUseError struct {
	ID           ConstraintID
	ReferencedBy []ConstraintID
}

func (e *ConstraintInUseError) Error() string {
	ids := make([]string, len(e.ReferencedBy))
	for i, id := range e.ReferencedBy {
		ids[i] = string(id)
	}
	return fmt.Sprintf("constraint %q is referenced by: [%s]", e.ID, strings.Join(ids, ", "))
}
func (e *ConstraintInUseError) Unwrap() error { return ErrConstraintInUse }

// NotFoundError reports a lookup against an unknown id.
type NotFoundError struct {
	ID ConstraintID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("constraint %q not found", e.ID)
}
func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// LoadError reports a LibraryLoader failure at startup. Unlike the other
// errors in this file, this one is never isolated to a single constraint:
// per spec.md §7 it is the one condition (besides an empty-result
// ActivationBudgetExceeded) that prevents the core from producing a
// response at all.
type LoadError struct {
	Reason string
	Err    error
}

func (e *LoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("library load failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("library load failed: %s", e.Reason)
}
func (e *LoadError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrLoadFailed, e.Err}
	}
	return []error{ErrLoadFailed}
}

// IsNotFound reports whether err is, or wraps, a not-found condition.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsValidationError reports whether err is a caller-fix structural error.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsRecoverable reports whether err is isolable to a single constraint
// during activation (cycles, dangling references, not-found) rather than a
// startup-fatal condition (LoadError) per spec.md §7's propagation policy.
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrCircularReference) ||
		errors.Is(err, ErrReferenceValidation) ||
		errors.Is(err, ErrNotFound)
}
