package loop

import (
	"errors"
	"fmt"
)

// Sentinel errors. Typed errors below match these through errors.Is.
var (
	// ErrCapability marks a failed provider call. It never leaves a step.
	ErrCapability = errors.New("capability failure")

	// ErrInvalidPatch is returned when a resume patch is rejected.
	ErrInvalidPatch = errors.New("invalid patch")

	// ErrInvalidTransition is returned for operations not allowed in the
	// session's current phase.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrSessionNotFound is returned for unknown session IDs.
	ErrSessionNotFound = errors.New("session not found")
)

// PatchError describes why a patch was rejected.
type PatchError struct {
	Mode   Mode
	Reason string
}

func (e *PatchError) Error() string {
	return fmt.Sprintf("invalid patch for %s: %s", e.Mode, e.Reason)
}

func (e *PatchError) Is(target error) bool {
	return target == ErrInvalidPatch
}

// TransitionError describes an operation attempted in the wrong phase.
type TransitionError struct {
	ID   string
	From Phase
	Op   string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("session %s: cannot %s while %s", e.ID, e.Op, e.From)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// NewTransitionError creates a TransitionError.
func NewTransitionError(id string, from Phase, op string) *TransitionError {
	return &TransitionError{ID: id, From: from, Op: op}
}

// NotFoundError reports an unknown session ID.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("session %s not found", e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrSessionNotFound
}

// NewNotFoundError creates a NotFoundError.
func NewNotFoundError(id string) *NotFoundError {
	return &NotFoundError{ID: id}
}

// CapabilityError wraps a provider failure with the call that failed.
type CapabilityError struct {
	Op  string
	Err error
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *CapabilityError) Unwrap() error {
	return e.Err
}

func (e *CapabilityError) Is(target error) bool {
	return target == ErrCapability
}
