package core_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/constraintd/constraintd/core"
)

func TestDuplicateIDErrorIsSentinel(t *testing.T) {
	err := &core.DuplicateIDError{ID: "a1"}
	assert.True(t, errors.Is(err, core.ErrDuplicateID))
}

func TestCircularReferenceErrorIsSentinel(t *testing.T) {
	err := &core.CircularReferenceError{Chain: []core.ConstraintID{"a", "b", "a"}}
	assert.True(t, errors.Is(err, core.ErrCircularReference))
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, core.IsNotFound(&core.NotFoundError{ID: "a1"}))
	assert.False(t, core.IsNotFound(&core.DuplicateIDError{ID: "a1"}))
}

func TestIsValidationError(t *testing.T) {
	assert.True(t, core.IsValidationError(&core.ValidationError{Field: "f", Reason: "r"}))
	assert.False(t, core.IsValidationError(&core.NotFoundError{ID: "a1"}))
}

func TestIsRecoverable(t *testing.T) {
	assert.True(t, core.IsRecoverable(&core.CircularReferenceError{Chain: []core.ConstraintID{"a"}}))
	assert.True(t, core.IsRecoverable(&core.ReferenceValidationError{Missing: []core.ConstraintID{"a"}}))
	assert.True(t, core.IsRecoverable(&core.NotFoundError{ID: "a1"}))
	assert.False(t, core.IsRecoverable(&core.LoadError{Reason: "boot failure"}))
}

func TestLoadErrorUnwrapsUnderlyingErr(t *testing.T) {
	inner := errors.New("disk read failed")
	err := &core.LoadError{Reason: "reading library file", Err: inner}
	assert.True(t, errors.Is(err, inner))
}
