package appointment

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/HELLO-50/Sahatak-sub003/internal/actor"
	"github.com/HELLO-50/Sahatak-sub003/pkg/logging"
)

// CancellationHandler terminates a booking. Cancellation needs no slot
// lock: it only removes a uniquely-identified row from future
// contention and can never create a second blocking row.
type CancellationHandler struct {
	store   Store
	effects *SideEffects
	logger  *logging.Logger
	now     func() time.Time
}

// NewCancellationHandler constructs the handler.
func NewCancellationHandler(store Store, effects *SideEffects, logger *logging.Logger) *CancellationHandler {
	if store == nil {
		panic("appointment: store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &CancellationHandler{
		store:   store,
		effects: effects,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the time source for tests.
func (h *CancellationHandler) WithClock(now func() time.Time) *CancellationHandler {
	if now != nil {
		h.now = now
	}
	return h
}

// Cancel moves the appointment to cancelled and records reason, actor
// role, and timestamp. The owning patient or the owning provider may
// cancel; a terminal appointment is refused with a ConflictError naming
// its current status, and the row stays unmodified.
func (h *CancellationHandler) Cancel(ctx context.Context, appointmentID uuid.UUID, by actor.Actor, reason string) (*Appointment, error) {
	ctx, span := tracer.Start(ctx, "appointment.cancel")
	defer span.End()
	span.SetAttributes(attribute.String("sahatak.appointment_id", appointmentID.String()))

	appt, err := h.store.GetByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if err := h.checkOwnership(appt, by); err != nil {
		return nil, err
	}

	next, err := Transition(appt.Status, EventCancel)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	now := h.now()
	updated, err := h.store.MarkCancelled(ctx, appointmentID, Cancellation{
		Reason: reason,
		Actor:  by.Role,
		At:     now,
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	h.logger.Info("appointment cancelled",
		"appointment_id", appointmentID,
		"provider_id", appt.ProviderID,
		"by_role", by.Role,
	)
	h.effects.Fire(AuditEntry{
		Action:        EventKindCancelled,
		AppointmentID: appointmentID,
		ProviderID:    appt.ProviderID,
		ActorID:       by.ID,
		ActorRole:     by.Role,
		BeforeStatus:  appt.Status,
		AfterStatus:   next,
		At:            now,
	}, updated, EventKindCancelled)

	return updated, nil
}

func (h *CancellationHandler) checkOwnership(appt *Appointment, by actor.Actor) error {
	// Provider blocks are cleared through UnblockSlot, never cancelled
	// by patient actions.
	if appt.Status == StatusBlocked {
		return &PermissionError{Message: "blocked slots are cleared by the provider"}
	}
	switch by.Role {
	case actor.RolePatient:
		if by.ID == appt.PatientID {
			return nil
		}
	case actor.RoleProvider:
		if by.ID == appt.ProviderID {
			return nil
		}
	}
	return &PermissionError{Message: "only the owning patient or provider may cancel"}
}
