package appointment

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store for tests and single-instance
// deployments without a database. Pair it with a KeyedMutex slot lock.
type MemoryStore struct {
	mu    sync.RWMutex
	rows  map[uuid.UUID]*Appointment
	clock func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rows:  make(map[uuid.UUID]*Appointment),
		clock: func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryStore) Insert(ctx context.Context, appt *Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Same uniqueness guarantee as the partial unique index in Postgres.
	if appt.Status.Blocking() {
		for _, row := range s.rows {
			if row.ProviderID == appt.ProviderID && row.ScheduledAt.Equal(appt.ScheduledAt) && row.Status.Blocking() {
				return conflictFor(row)
			}
		}
	}
	s.rows[appt.ID] = appt.clone()
	return nil
}

func (s *MemoryStore) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row, ok := s.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	return row.clone(), nil
}

func (s *MemoryStore) FindBlocking(ctx context.Context, providerID uuid.UUID, at time.Time, excludeID uuid.UUID) (*Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, row := range s.rows {
		if row.ID == excludeID {
			continue
		}
		if row.ProviderID == providerID && row.ScheduledAt.Equal(at) && row.Status.Blocking() {
			return row.clone(), nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) UpdateSlot(ctx context.Context, id uuid.UUID, at time.Time, status Status) (*Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	row.ScheduledAt = at
	row.Status = status
	row.UpdatedAt = s.clock()
	return row.clone(), nil
}

func (s *MemoryStore) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) (*Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	row.Status = status
	row.UpdatedAt = s.clock()
	return row.clone(), nil
}

func (s *MemoryStore) MarkCancelled(ctx context.Context, id uuid.UUID, c Cancellation) (*Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	row.Status = StatusCancelled
	row.Cancellation = &c
	row.UpdatedAt = s.clock()
	return row.clone(), nil
}

func (s *MemoryStore) ListByProvider(ctx context.Context, providerID uuid.UUID, limit int) ([]*Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Appointment
	for _, row := range s.rows {
		if row.ProviderID == providerID {
			out = append(out, row.clone())
		}
	}
	return sortAndCap(out, limit), nil
}

func (s *MemoryStore) ListByPatient(ctx context.Context, patientID uuid.UUID, limit int) ([]*Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Appointment
	for _, row := range s.rows {
		if row.PatientID == patientID {
			out = append(out, row.clone())
		}
	}
	return sortAndCap(out, limit), nil
}

func sortAndCap(rows []*Appointment, limit int) []*Appointment {
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].ScheduledAt.After(rows[j].ScheduledAt)
	})
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows
}
