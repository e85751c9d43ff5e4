package appointment

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/HELLO-50/Sahatak-sub003/pkg/logging"
)

// stubDirectory answers provider lookups from fixed values.
type stubDirectory struct {
	bookable bool
	complete bool
	feeCents int64
	err      error
}

func (d *stubDirectory) IsProviderBookable(ctx context.Context, providerID uuid.UUID) (bool, error) {
	return d.bookable, d.err
}

func (d *stubDirectory) FeeOf(ctx context.Context, providerID uuid.UUID) (int64, error) {
	return d.feeCents, d.err
}

func (d *stubDirectory) IsProfileComplete(ctx context.Context, providerID uuid.UUID) (bool, error) {
	return d.complete, d.err
}

// recordingSink captures audit entries, invalidations and notifications.
type recordingSink struct {
	mu            sync.Mutex
	entries       []AuditEntry
	invalidated   []uuid.UUID
	notifications []EventKind
}

func (r *recordingSink) Record(ctx context.Context, entry AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	return nil
}

func (r *recordingSink) Invalidate(ctx context.Context, providerID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invalidated = append(r.invalidated, providerID)
	return nil
}

func (r *recordingSink) Notify(ctx context.Context, appt *Appointment, kind EventKind) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifications = append(r.notifications, kind)
	return nil
}

func (r *recordingSink) effects() *SideEffects {
	return NewSideEffects(r, r, r, testLogger())
}

// countingLock wraps a SlotLock and counts acquisitions.
type countingLock struct {
	inner    SlotLock
	mu       sync.Mutex
	acquired int
}

func (l *countingLock) Acquire(ctx context.Context, providerID uuid.UUID, at time.Time) (Guard, error) {
	l.mu.Lock()
	l.acquired++
	l.mu.Unlock()
	return l.inner.Acquire(ctx, providerID, at)
}

func (l *countingLock) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.acquired
}

func testLogger() *logging.Logger {
	return logging.New("error")
}

func futureSlot() time.Time {
	return SlotTime(time.Now().UTC().Add(24 * time.Hour))
}

func newTestReservationService(store Store, dir ProfileDirectory, sink *recordingSink, opts ...ReservationOption) (*ReservationService, *countingLock) {
	lock := &countingLock{inner: NewKeyedMutex(2 * time.Second)}
	svc := NewReservationService(store, lock, dir, sink.effects(), testLogger(), opts...)
	return svc, lock
}
