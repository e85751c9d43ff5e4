package appointment

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store persists appointments. Implementations must make every write a
// single atomic unit: a failed write leaves the row exactly as it was.
type Store interface {
	// Insert persists a new appointment. A second blocking row for the
	// same slot is refused with a ConflictError even if the caller
	// bypassed the slot lock.
	Insert(ctx context.Context, appt *Appointment) error

	// GetByID returns the appointment or ErrNotFound.
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)

	// FindBlocking returns the blocking appointment occupying the
	// provider's slot, nil when the slot is free. excludeID, when
	// non-nil, hides that row from the scan (used by reschedule).
	FindBlocking(ctx context.Context, providerID uuid.UUID, at time.Time, excludeID uuid.UUID) (*Appointment, error)

	// UpdateSlot atomically moves an appointment to a new timestamp and
	// status in one write. Fee and ownership are untouched.
	UpdateSlot(ctx context.Context, id uuid.UUID, at time.Time, status Status) (*Appointment, error)

	// UpdateStatus sets only the status.
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status) (*Appointment, error)

	// MarkCancelled sets the cancelled status together with the
	// cancellation metadata in one write.
	MarkCancelled(ctx context.Context, id uuid.UUID, c Cancellation) (*Appointment, error)

	// ListByProvider returns the provider's appointments ordered by
	// scheduled time, newest first.
	ListByProvider(ctx context.Context, providerID uuid.UUID, limit int) ([]*Appointment, error)

	// ListByPatient returns the patient's appointments ordered by
	// scheduled time, newest first.
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit int) ([]*Appointment, error)
}
