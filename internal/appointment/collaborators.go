package appointment

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/HELLO-50/Sahatak-sub003/internal/actor"
	"github.com/HELLO-50/Sahatak-sub003/pkg/logging"
)

// EventKind names a committed state change for downstream consumers.
type EventKind string

const (
	EventKindCreated        EventKind = "appointment.created"
	EventKindRescheduled    EventKind = "appointment.rescheduled"
	EventKindCancelled      EventKind = "appointment.cancelled"
	EventKindSessionStarted EventKind = "appointment.session_started"
	EventKindSessionEnded   EventKind = "appointment.session_ended"
	EventKindSlotBlocked    EventKind = "appointment.slot_blocked"
	EventKindSlotUnblocked  EventKind = "appointment.slot_unblocked"
)

// AuditEntry is the record handed to the audit sink after a commit.
type AuditEntry struct {
	Action        EventKind
	AppointmentID uuid.UUID
	ProviderID    uuid.UUID
	ActorID       uuid.UUID
	ActorRole     actor.Role
	BeforeStatus  Status
	AfterStatus   Status
	At            time.Time
}

// AuditSink receives action records. Failures never roll back the core
// operation.
type AuditSink interface {
	Record(ctx context.Context, entry AuditEntry) error
}

// CacheInvalidator is notified after any committed state change so
// provider-facing caches drop stale schedules.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, providerID uuid.UUID) error
}

// NotificationDispatcher is notified of creations, reschedules, and
// cancellations. Message content is the dispatcher's concern.
type NotificationDispatcher interface {
	Notify(ctx context.Context, appt *Appointment, kind EventKind) error
}

// ProfileDirectory supplies provider verification and fee lookups. It
// is owned outside the core; the core only reads it.
type ProfileDirectory interface {
	IsProviderBookable(ctx context.Context, providerID uuid.UUID) (bool, error)
	FeeOf(ctx context.Context, providerID uuid.UUID) (int64, error)
	IsProfileComplete(ctx context.Context, providerID uuid.UUID) (bool, error)
}

// SideEffects fans a committed change out to the best-effort
// collaborators. Any of the three sinks may be nil; failures are logged
// and never surfaced to the caller.
type SideEffects struct {
	Audit   AuditSink
	Cache   CacheInvalidator
	Notify  NotificationDispatcher
	Logger  *logging.Logger
	Timeout time.Duration
}

// NewSideEffects wires the collaborator set with a default timeout.
func NewSideEffects(audit AuditSink, cache CacheInvalidator, notify NotificationDispatcher, logger *logging.Logger) *SideEffects {
	if logger == nil {
		logger = logging.Default()
	}
	return &SideEffects{
		Audit:   audit,
		Cache:   cache,
		Notify:  notify,
		Logger:  logger,
		Timeout: 5 * time.Second,
	}
}

// Fire runs the post-commit hooks. It detaches from the caller's
// context so a client disconnect after commit does not skip the hooks,
// but stays bounded by the configured timeout.
func (s *SideEffects) Fire(entry AuditEntry, appt *Appointment, kind EventKind) {
	if s == nil {
		return
	}
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if s.Audit != nil {
		if err := s.Audit.Record(ctx, entry); err != nil {
			s.Logger.Error("audit record failed", "error", err, "appointment_id", entry.AppointmentID, "action", entry.Action)
		}
	}
	if s.Cache != nil {
		if err := s.Cache.Invalidate(ctx, entry.ProviderID); err != nil {
			s.Logger.Error("cache invalidation failed", "error", err, "provider_id", entry.ProviderID)
		}
	}
	if s.Notify != nil && appt != nil {
		if err := s.Notify.Notify(ctx, appt, kind); err != nil {
			s.Logger.Error("notification dispatch failed", "error", err, "appointment_id", appt.ID, "event", kind)
		}
	}
}
