package appointment

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Guard holds an acquired slot lock. Release is idempotent and must be
// called on every exit path of the critical section.
type Guard interface {
	Release()
}

// SlotLock serializes check-then-write sequences per (provider,
// timestamp) slot. Acquisition waits at most a bounded interval and
// then fails with ErrSlotBusy; it never blocks indefinitely.
//
// Any implementation must yield a total order of conflicting critical
// sections for the same key. Optimistic read-then-write schemes are not
// acceptable: two callers could each observe a free slot and both
// write.
type SlotLock interface {
	Acquire(ctx context.Context, providerID uuid.UUID, at time.Time) (Guard, error)
}

// LockWaitObserver receives the time an operation spent acquiring its
// slot lock, including attempts that ended in ErrSlotBusy.
type LockWaitObserver func(operation string, wait time.Duration)

type slotKey struct {
	provider uuid.UUID
	at       int64
}

type slotEntry struct {
	sem  chan struct{}
	refs int
}

// KeyedMutex is the in-process SlotLock for single-instance deployments
// and tests. Each slot key gets its own one-slot semaphore; entries are
// reference-counted so the key table does not grow without bound.
type KeyedMutex struct {
	mu      sync.Mutex
	entries map[slotKey]*slotEntry
	maxWait time.Duration
}

// NewKeyedMutex creates a keyed mutex with the given bounded wait.
func NewKeyedMutex(maxWait time.Duration) *KeyedMutex {
	if maxWait <= 0 {
		maxWait = 3 * time.Second
	}
	return &KeyedMutex{
		entries: make(map[slotKey]*slotEntry),
		maxWait: maxWait,
	}
}

func (m *KeyedMutex) Acquire(ctx context.Context, providerID uuid.UUID, at time.Time) (Guard, error) {
	key := slotKey{provider: providerID, at: SlotTime(at).Unix()}

	m.mu.Lock()
	entry, ok := m.entries[key]
	if !ok {
		entry = &slotEntry{sem: make(chan struct{}, 1)}
		m.entries[key] = entry
	}
	entry.refs++
	m.mu.Unlock()

	timer := time.NewTimer(m.maxWait)
	defer timer.Stop()

	select {
	case entry.sem <- struct{}{}:
		return &mutexGuard{m: m, key: key, entry: entry}, nil
	case <-timer.C:
		m.unref(key, entry)
		return nil, ErrSlotBusy
	case <-ctx.Done():
		m.unref(key, entry)
		return nil, ErrSlotBusy
	}
}

func (m *KeyedMutex) unref(key slotKey, entry *slotEntry) {
	m.mu.Lock()
	entry.refs--
	if entry.refs == 0 {
		delete(m.entries, key)
	}
	m.mu.Unlock()
}

type mutexGuard struct {
	m     *KeyedMutex
	key   slotKey
	entry *slotEntry
	once  sync.Once
}

func (g *mutexGuard) Release() {
	g.once.Do(func() {
		<-g.entry.sem
		g.m.unref(g.key, g.entry)
	})
}
