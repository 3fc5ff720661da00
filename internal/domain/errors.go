package domain

import "fmt"

// ============================================================
// Input
// ============================================================

// ErrValidation rejects a malformed record or query parameter. Maps to 400.
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// ErrNotFound is returned when the addressed row does not exist, or exists
// but belongs to another user.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	if e.ID == "" {
		return e.Resource + " not found"
	}
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// ============================================================
// Store consistency
// ============================================================

// ErrConflict means the write would leave dangling references, e.g. a
// recurring template still linked from expenses.
type ErrConflict struct {
	Message string
}

func (e *ErrConflict) Error() string {
	return e.Message
}

// ErrPartialFailure reports a multi-step write that stopped half-way.
// Steps before Step were applied and are not rolled back.
type ErrPartialFailure struct {
	Operation string
	Step      string
	Err       error
}

func (e *ErrPartialFailure) Error() string {
	return fmt.Sprintf("%s: stopped at %q after earlier steps were applied: %v", e.Operation, e.Step, e.Err)
}

func (e *ErrPartialFailure) Unwrap() error { return e.Err }

// ============================================================
// Upstreams (Supabase, price oracle)
// ============================================================

// ErrExternalService wraps a failed call to the store or the price oracle.
type ErrExternalService struct {
	Service string
	Err     error
}

func (e *ErrExternalService) Error() string {
	return fmt.Sprintf("%s request failed: %v", e.Service, e.Err)
}

func (e *ErrExternalService) Unwrap() error { return e.Err }

// ErrTimeout is returned when an upstream call runs past its deadline.
type ErrTimeout struct {
	Operation string
}

func (e *ErrTimeout) Error() string {
	return e.Operation + ": deadline exceeded"
}

// ErrCircuitOpen is returned without calling Service while its breaker is open.
type ErrCircuitOpen struct {
	Service string
}

func (e *ErrCircuitOpen) Error() string {
	return e.Service + " unavailable: circuit open"
}
