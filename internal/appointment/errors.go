package appointment

import (
	"errors"
	"fmt"
)

// ConflictReason classifies why a slot or transition was refused.
type ConflictReason string

const (
	// ReasonBooked means another active booking occupies the slot.
	ReasonBooked ConflictReason = "booked"
	// ReasonBlocked means the provider declared the slot unavailable.
	ReasonBlocked ConflictReason = "blocked"
	// ReasonTerminal means the target appointment already reached a
	// terminal status.
	ReasonTerminal ConflictReason = "terminal"
	// ReasonInvalidState means the current status does not permit the
	// requested transition.
	ReasonInvalidState ConflictReason = "invalid_state"
)

// ErrSlotBusy signals that the slot lock could not be acquired within
// the bounded wait. The request may be retried as-is.
var ErrSlotBusy = errors.New("appointment: slot temporarily unavailable, retry")

// ErrNotFound signals that no appointment exists for the identifier.
var ErrNotFound = errors.New("appointment: not found")

// ValidationError rejects malformed input before any lock is taken.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("appointment: invalid %s: %s", e.Field, e.Message)
}

// PermissionError rejects an actor that does not own the appointment.
type PermissionError struct {
	Message string
}

func (e *PermissionError) Error() string {
	return "appointment: " + e.Message
}

// ConflictError reports a slot occupied by a blocking row or an
// appointment in a status that forbids the operation. The caller
// decides whether to pick another slot; the core never retries.
type ConflictError struct {
	Reason ConflictReason
	// CurrentStatus names the status that caused the refusal: the
	// occupying row's status for slot conflicts, the appointment's own
	// status for lifecycle conflicts.
	CurrentStatus Status
}

func (e *ConflictError) Error() string {
	switch e.Reason {
	case ReasonBlocked:
		return "appointment: slot blocked by provider"
	case ReasonBooked:
		return "appointment: slot already booked"
	case ReasonTerminal:
		return fmt.Sprintf("appointment: already in terminal status %q", e.CurrentStatus)
	default:
		return fmt.Sprintf("appointment: operation not allowed in status %q", e.CurrentStatus)
	}
}

// StorageError wraps a persistence failure. The in-progress operation
// is fully rolled back before it surfaces.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("appointment: storage failure during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// conflictFor classifies a blocking row into the caller-facing variant:
// provider blocks are reported distinctly from patient bookings.
func conflictFor(existing *Appointment) *ConflictError {
	if existing.Status == StatusBlocked {
		return &ConflictError{Reason: ReasonBlocked, CurrentStatus: existing.Status}
	}
	return &ConflictError{Reason: ReasonBooked, CurrentStatus: existing.Status}
}
