package appointment

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// blockingFinder is the single Store capability conflict detection
// needs.
type blockingFinder interface {
	FindBlocking(ctx context.Context, providerID uuid.UUID, at time.Time, excludeID uuid.UUID) (*Appointment, error)
}

// ConflictDetector reports the blocking appointment occupying a slot,
// if any. It performs no synchronization of its own: callers must hold
// the SlotLock for the slot before asking.
type ConflictDetector struct {
	store blockingFinder
}

// NewConflictDetector creates a detector over the store.
func NewConflictDetector(store blockingFinder) *ConflictDetector {
	if store == nil {
		panic("appointment: store required")
	}
	return &ConflictDetector{store: store}
}

// Detect returns the blocking row for the provider's slot, nil when the
// slot is free. excludeID hides that appointment from the scan so a
// reschedule does not conflict with itself.
func (d *ConflictDetector) Detect(ctx context.Context, providerID uuid.UUID, at time.Time, excludeID uuid.UUID) (*Appointment, error) {
	return d.store.FindBlocking(ctx, providerID, SlotTime(at), excludeID)
}
