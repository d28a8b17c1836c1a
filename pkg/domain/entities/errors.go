package entities

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors, use with errors.Is()
var (
	ErrNotFound            = errors.New("not found")
	ErrConfiguration       = errors.New("invalid planning configuration")
	ErrCyclicDependency    = errors.New("cyclic bill of materials")
	ErrRunFailed           = errors.New("mrp run failed")
	ErrScopeLocked         = errors.New("an mrp run is already in progress for an overlapping scope")
	ErrConcurrencyConflict = errors.New("concurrent modification detected")
	ErrInvalidTransition   = errors.New("invalid state transition")
	ErrDuplicateEvent      = errors.New("duplicate event")
	ErrInvalidInput        = errors.New("invalid input")
)

// ConfigurationError reports a missing or invalid planning parameter
type ConfigurationError struct {
	PartNumber PartNumber
	Field      string
	Reason     string
}

func (e *ConfigurationError) Error() string {
	if e.PartNumber == "" {
		return fmt.Sprintf("configuration error: %s %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("configuration error for %s: %s %s", e.PartNumber, e.Field, e.Reason)
}

func (e *ConfigurationError) Unwrap() error {
	return ErrConfiguration
}

// CyclicDependencyError carries the BOM path that loops back on itself
type CyclicDependencyError struct {
	Path []PartNumber
}

func (e *CyclicDependencyError) Error() string {
	parts := make([]string, len(e.Path))
	for i, pn := range e.Path {
		parts[i] = string(pn)
	}
	return fmt.Sprintf("cyclic bill of materials: %s", strings.Join(parts, " -> "))
}

func (e *CyclicDependencyError) Unwrap() error {
	return ErrCyclicDependency
}

// RunFailure marks a whole MRP run as failed; nothing from it was committed
type RunFailure struct {
	RunID string
	Cause error
}

func (e *RunFailure) Error() string {
	return fmt.Sprintf("mrp run %s failed: %v", e.RunID, e.Cause)
}

func (e *RunFailure) Unwrap() []error {
	return []error{ErrRunFailed, e.Cause}
}

// ConflictError reports an optimistic concurrency failure on a versioned record
type ConflictError struct {
	Resource string
	Expected int
	Actual   int
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s: expected version %d, found %d", e.Resource, e.Expected, e.Actual)
}

func (e *ConflictError) Unwrap() error {
	return ErrConcurrencyConflict
}

// TransitionError reports a state change the match state machine does not allow
type TransitionError struct {
	From   MatchStatus
	To     MatchStatus
	Reason string
}

func (e *TransitionError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("cannot move from %s to %s: %s", e.From, e.To, e.Reason)
	}
	return fmt.Sprintf("cannot move from %s to %s", e.From, e.To)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrencyConflict) || errors.Is(err, ErrScopeLocked)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
