package appointment

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/HELLO-50/Sahatak-sub003/pkg/logging"
)

// SessionTransitions applies external session-start and session-end
// events to the lifecycle. The events come from the consultation
// session infrastructure, not from patient or provider requests, so
// there is no actor guard here.
type SessionTransitions struct {
	store   Store
	effects *SideEffects
	logger  *logging.Logger
	now     func() time.Time
}

// NewSessionTransitions constructs the session event applier.
func NewSessionTransitions(store Store, effects *SideEffects, logger *logging.Logger) *SessionTransitions {
	if store == nil {
		panic("appointment: store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &SessionTransitions{
		store:   store,
		effects: effects,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Begin marks the consultation as in progress.
func (s *SessionTransitions) Begin(ctx context.Context, appointmentID uuid.UUID) (*Appointment, error) {
	return s.apply(ctx, appointmentID, EventBeginSession, EventKindSessionStarted)
}

// End marks the consultation as completed.
func (s *SessionTransitions) End(ctx context.Context, appointmentID uuid.UUID) (*Appointment, error) {
	return s.apply(ctx, appointmentID, EventEndSession, EventKindSessionEnded)
}

func (s *SessionTransitions) apply(ctx context.Context, appointmentID uuid.UUID, event Event, kind EventKind) (*Appointment, error) {
	appt, err := s.store.GetByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	next, err := Transition(appt.Status, event)
	if err != nil {
		return nil, err
	}
	updated, err := s.store.UpdateStatus(ctx, appointmentID, next)
	if err != nil {
		return nil, err
	}

	s.logger.Info("session transition applied",
		"appointment_id", appointmentID,
		"event", event,
		"status", next,
	)
	s.effects.Fire(AuditEntry{
		Action:        kind,
		AppointmentID: appointmentID,
		ProviderID:    appt.ProviderID,
		BeforeStatus:  appt.Status,
		AfterStatus:   next,
		At:            s.now(),
	}, updated, kind)

	return updated, nil
}
