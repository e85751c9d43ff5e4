package appointment

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/HELLO-50/Sahatak-sub003/internal/actor"
	"github.com/HELLO-50/Sahatak-sub003/pkg/logging"
)

// RescheduleCoordinator moves an existing booking to a new slot. The
// destination slot is locked and conflict-checked exactly like a fresh
// reservation; the original appointment is left untouched unless the
// whole move commits.
type RescheduleCoordinator struct {
	store    Store
	locks    SlotLock
	detector *ConflictDetector
	effects  *SideEffects
	logger   *logging.Logger
	lockWait LockWaitObserver
	now      func() time.Time
}

// NewRescheduleCoordinator constructs the coordinator.
func NewRescheduleCoordinator(store Store, locks SlotLock, effects *SideEffects, logger *logging.Logger) *RescheduleCoordinator {
	if store == nil {
		panic("appointment: store required")
	}
	if locks == nil {
		panic("appointment: slot lock required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &RescheduleCoordinator{
		store:    store,
		locks:    locks,
		detector: NewConflictDetector(store),
		effects:  effects,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the time source for tests.
func (c *RescheduleCoordinator) WithClock(now func() time.Time) *RescheduleCoordinator {
	if now != nil {
		c.now = now
	}
	return c
}

// WithLockWaitObserver reports slot-lock acquisition waits.
func (c *RescheduleCoordinator) WithLockWaitObserver(observe LockWaitObserver) *RescheduleCoordinator {
	c.lockWait = observe
	return c
}

// Reschedule moves the appointment to newAt. Only the owning patient
// may reschedule, only from scheduled or confirmed, and only to a
// strictly future, free slot. The timestamp change and the status reset
// to scheduled commit as one write; a conflict leaves the stored row
// exactly as it was.
func (c *RescheduleCoordinator) Reschedule(ctx context.Context, appointmentID uuid.UUID, newAt time.Time, by actor.Actor) (*Appointment, error) {
	ctx, span := tracer.Start(ctx, "appointment.reschedule")
	defer span.End()
	span.SetAttributes(attribute.String("sahatak.appointment_id", appointmentID.String()))

	appt, err := c.store.GetByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if by.Role != actor.RolePatient || by.ID != appt.PatientID {
		return nil, &PermissionError{Message: "only the owning patient may reschedule"}
	}

	next, err := Transition(appt.Status, EventReschedule)
	if err != nil {
		return nil, err
	}

	now := c.now()
	slot := SlotTime(newAt)
	if !slot.After(now) {
		return nil, &ValidationError{Field: "timestamp", Message: "must be in the future"}
	}

	lockStart := time.Now()
	guard, err := c.locks.Acquire(ctx, appt.ProviderID, slot)
	if c.lockWait != nil {
		c.lockWait("reschedule", time.Since(lockStart))
	}
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	defer guard.Release()

	existing, err := c.detector.Detect(ctx, appt.ProviderID, slot, appointmentID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if existing != nil {
		return nil, conflictFor(existing)
	}

	updated, err := c.store.UpdateSlot(ctx, appointmentID, slot, next)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	guard.Release()

	c.logger.Info("appointment rescheduled",
		"appointment_id", appointmentID,
		"provider_id", appt.ProviderID,
		"from", appt.ScheduledAt,
		"to", slot,
	)
	c.effects.Fire(AuditEntry{
		Action:        EventKindRescheduled,
		AppointmentID: appointmentID,
		ProviderID:    appt.ProviderID,
		ActorID:       by.ID,
		ActorRole:     by.Role,
		BeforeStatus:  appt.Status,
		AfterStatus:   updated.Status,
		At:            now,
	}, updated, EventKindRescheduled)

	return updated, nil
}
