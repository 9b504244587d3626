package onboarding

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when no record matches the lookup.
	ErrNotFound = errors.New("onboarding record not found")

	// ErrConflict is the repository's compare-and-set miss. The service
	// never returns it; it re-reads and reports the domain error instead.
	ErrConflict = errors.New("onboarding record changed concurrently")

	ErrCredentialsAlreadySet   = errors.New("credentials already set")
	ErrPINAlreadySet           = errors.New("pin already set")
	ErrProfileAlreadyCompleted = errors.New("profile already completed")
	ErrRiskNotApproved         = errors.New("risk decision does not allow account creation")
	ErrKYCAlreadySubmitted     = errors.New("kyc already submitted")
	ErrInvalidCredentials      = errors.New("invalid credentials")

	// ErrInvalidState is matched by every *StateError.
	ErrInvalidState = errors.New("invalid onboarding state")

	// ErrInvalidInput is matched by every *ValidationError.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInfrastructure tags durable store transport failures.
	ErrInfrastructure = errors.New("onboarding store unavailable")
)

// StateError reports a step attempted from the wrong lifecycle state.
type StateError struct {
	Current  State
	Expected []State
}

func (e *StateError) Error() string {
	expected := make([]string, len(e.Expected))
	for i, s := range e.Expected {
		expected[i] = string(s)
	}
	return fmt.Sprintf("invalid onboarding state %s, expected %s", e.Current, strings.Join(expected, " or "))
}

func (e *StateError) Is(target error) bool { return target == ErrInvalidState }

// ValidationError names the offending input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrInvalidInput }

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// storeError passes domain sentinels through and tags anything else as an
// infrastructure fault.
func storeError(op string, err error) error {
	if err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict) || errors.Is(err, ErrInfrastructure) {
		return err
	}
	return fmt.Errorf("%w: %s: %v", ErrInfrastructure, op, err)
}
