package appointment

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/HELLO-50/Sahatak-sub003/internal/actor"
	"github.com/HELLO-50/Sahatak-sub003/pkg/logging"
)

var tracer = otel.Tracer("sahatak.internal.appointment")

// CreateRequest carries the inputs for a new reservation.
type CreateRequest struct {
	ProviderID  uuid.UUID
	PatientID   uuid.UUID
	ScheduledAt time.Time
	Kind        Kind
	Notes       string
}

// ReservationService orchestrates creation: validate, consult the
// directory, acquire the slot lock, detect conflicts, persist, then
// fire best-effort side effects.
type ReservationService struct {
	store     Store
	locks     SlotLock
	detector  *ConflictDetector
	directory ProfileDirectory
	effects   *SideEffects
	logger    *logging.Logger

	// requireCompleteProfile gates bookings on profile completeness.
	// Off by default; enabled through config.
	requireCompleteProfile bool

	lockWait LockWaitObserver
	now      func() time.Time
}

// ReservationOption customizes a ReservationService.
type ReservationOption func(*ReservationService)

// WithProfileGuard enables the profile-completeness precondition.
func WithProfileGuard(enabled bool) ReservationOption {
	return func(s *ReservationService) { s.requireCompleteProfile = enabled }
}

// WithLockWaitObserver reports slot-lock acquisition waits, typically
// into the booking metrics histogram.
func WithLockWaitObserver(observe LockWaitObserver) ReservationOption {
	return func(s *ReservationService) { s.lockWait = observe }
}

// WithClock overrides the time source. Tests use this.
func WithClock(now func() time.Time) ReservationOption {
	return func(s *ReservationService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewReservationService constructs the reservation orchestrator.
func NewReservationService(store Store, locks SlotLock, directory ProfileDirectory, effects *SideEffects, logger *logging.Logger, opts ...ReservationOption) *ReservationService {
	if store == nil {
		panic("appointment: store required")
	}
	if locks == nil {
		panic("appointment: slot lock required")
	}
	if directory == nil {
		panic("appointment: profile directory required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	s := &ReservationService{
		store:     store,
		locks:     locks,
		detector:  NewConflictDetector(store),
		directory: directory,
		effects:   effects,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Create reserves the provider's slot for the patient. Pure input
// errors fail before any lock is taken; the conflict check and the
// insert run inside the slot lock's critical section.
func (s *ReservationService) Create(ctx context.Context, req CreateRequest) (*Appointment, error) {
	ctx, span := tracer.Start(ctx, "appointment.create")
	defer span.End()
	span.SetAttributes(
		attribute.String("sahatak.provider_id", req.ProviderID.String()),
		attribute.String("sahatak.kind", string(req.Kind)),
	)

	now := s.now()
	slot := SlotTime(req.ScheduledAt)
	if err := s.validateCreate(req, slot, now); err != nil {
		return nil, err
	}

	fee, err := s.checkProvider(ctx, req.ProviderID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	lockStart := time.Now()
	guard, err := s.locks.Acquire(ctx, req.ProviderID, slot)
	s.reportLockWait("create", time.Since(lockStart))
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	defer guard.Release()

	existing, err := s.detector.Detect(ctx, req.ProviderID, slot, uuid.Nil)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if existing != nil {
		return nil, conflictFor(existing)
	}

	initial, err := Transition(statusNone, EventCreate)
	if err != nil {
		return nil, err
	}

	appt := &Appointment{
		ID:          uuid.New(),
		ProviderID:  req.ProviderID,
		PatientID:   req.PatientID,
		ScheduledAt: slot,
		Kind:        req.Kind,
		Status:      initial,
		FeeCents:    fee,
		Notes:       req.Notes,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.Insert(ctx, appt); err != nil {
		span.RecordError(err)
		return nil, err
	}
	guard.Release()

	s.logger.Info("appointment created",
		"appointment_id", appt.ID,
		"provider_id", appt.ProviderID,
		"scheduled_at", appt.ScheduledAt,
		"kind", appt.Kind,
	)
	s.effects.Fire(AuditEntry{
		Action:        EventKindCreated,
		AppointmentID: appt.ID,
		ProviderID:    appt.ProviderID,
		ActorID:       appt.PatientID,
		ActorRole:     actor.RolePatient,
		BeforeStatus:  statusNone,
		AfterStatus:   appt.Status,
		At:            now,
	}, appt, EventKindCreated)

	return appt, nil
}

// BlockSlot records provider-declared unavailability for the slot. It
// occupies the slot exactly like a booking and reports conflicts the
// same way, but carries no patient and no fee.
func (s *ReservationService) BlockSlot(ctx context.Context, providerID uuid.UUID, at time.Time, by actor.Actor) (*Appointment, error) {
	ctx, span := tracer.Start(ctx, "appointment.block_slot")
	defer span.End()

	if by.Role != actor.RoleProvider || by.ID != providerID {
		return nil, &PermissionError{Message: "only the provider may block their own slots"}
	}
	now := s.now()
	slot := SlotTime(at)
	if !slot.After(now) {
		return nil, &ValidationError{Field: "timestamp", Message: "must be in the future"}
	}

	lockStart := time.Now()
	guard, err := s.locks.Acquire(ctx, providerID, slot)
	s.reportLockWait("block", time.Since(lockStart))
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	defer guard.Release()

	existing, err := s.detector.Detect(ctx, providerID, slot, uuid.Nil)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, conflictFor(existing)
	}

	status, err := Transition(statusNone, EventBlock)
	if err != nil {
		return nil, err
	}
	appt := &Appointment{
		ID:          uuid.New(),
		ProviderID:  providerID,
		ScheduledAt: slot,
		Status:      status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.Insert(ctx, appt); err != nil {
		span.RecordError(err)
		return nil, err
	}
	guard.Release()

	s.logger.Info("slot blocked", "provider_id", providerID, "scheduled_at", slot)
	s.effects.Fire(AuditEntry{
		Action:        EventKindSlotBlocked,
		AppointmentID: appt.ID,
		ProviderID:    providerID,
		ActorID:       by.ID,
		ActorRole:     by.Role,
		BeforeStatus:  statusNone,
		AfterStatus:   appt.Status,
		At:            now,
	}, appt, EventKindSlotBlocked)

	return appt, nil
}

// UnblockSlot clears a provider's own block.
func (s *ReservationService) UnblockSlot(ctx context.Context, appointmentID uuid.UUID, by actor.Actor) (*Appointment, error) {
	appt, err := s.store.GetByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if by.Role != actor.RoleProvider || by.ID != appt.ProviderID {
		return nil, &PermissionError{Message: "only the provider may clear their own block"}
	}
	next, err := Transition(appt.Status, EventUnblock)
	if err != nil {
		return nil, err
	}
	now := s.now()
	updated, err := s.store.MarkCancelled(ctx, appointmentID, Cancellation{
		Actor: by.Role,
		At:    now,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("slot unblocked", "provider_id", appt.ProviderID, "scheduled_at", appt.ScheduledAt)
	s.effects.Fire(AuditEntry{
		Action:        EventKindSlotUnblocked,
		AppointmentID: appt.ID,
		ProviderID:    appt.ProviderID,
		ActorID:       by.ID,
		ActorRole:     by.Role,
		BeforeStatus:  appt.Status,
		AfterStatus:   next,
		At:            now,
	}, updated, EventKindSlotUnblocked)

	return updated, nil
}

func (s *ReservationService) validateCreate(req CreateRequest, slot time.Time, now time.Time) error {
	if req.ProviderID == uuid.Nil {
		return &ValidationError{Field: "provider_id", Message: "required"}
	}
	if req.PatientID == uuid.Nil {
		return &ValidationError{Field: "patient_id", Message: "required"}
	}
	if !req.Kind.Valid() {
		return &ValidationError{Field: "kind", Message: "must be one of video, audio, chat"}
	}
	if !slot.After(now) {
		return &ValidationError{Field: "timestamp", Message: "must be in the future"}
	}
	return nil
}

func (s *ReservationService) reportLockWait(operation string, wait time.Duration) {
	if s.lockWait != nil {
		s.lockWait(operation, wait)
	}
}

func (s *ReservationService) checkProvider(ctx context.Context, providerID uuid.UUID) (int64, error) {
	bookable, err := s.directory.IsProviderBookable(ctx, providerID)
	if err != nil {
		return 0, err
	}
	if !bookable {
		return 0, &ValidationError{Field: "provider_id", Message: "provider is not accepting bookings"}
	}
	if s.requireCompleteProfile {
		complete, err := s.directory.IsProfileComplete(ctx, providerID)
		if err != nil {
			return 0, err
		}
		if !complete {
			return 0, &ValidationError{Field: "provider_id", Message: "provider profile is incomplete"}
		}
	}
	return s.directory.FeeOf(ctx, providerID)
}
