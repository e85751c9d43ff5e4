package appointment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/HELLO-50/Sahatak-sub003/internal/actor"
)

// querier is the subset of pgxpool.Pool the store needs. Tests inject a
// pgxmock pool through newPGStoreWithQuerier.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PGStore is the Postgres-backed Store. The partial unique index on
// (provider_id, scheduled_at) over blocking statuses backs up the slot
// lock: even a caller that skipped the lock cannot commit a second
// blocking row.
type PGStore struct {
	db querier
}

// NewPGStore creates a store backed by a pgx pool.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	if pool == nil {
		panic("appointment: pgx pool required")
	}
	return &PGStore{db: pool}
}

func newPGStoreWithQuerier(q querier) *PGStore {
	if q == nil {
		panic("appointment: querier required")
	}
	return &PGStore{db: q}
}

const appointmentColumns = `
	id, provider_id, patient_id, scheduled_at, COALESCE(kind, ''), status, fee_cents,
	COALESCE(notes, ''), COALESCE(cancel_reason, ''), COALESCE(cancelled_by, ''),
	cancelled_at, created_at, updated_at`

func (s *PGStore) Insert(ctx context.Context, appt *Appointment) error {
	query := `
		INSERT INTO appointments
			(id, provider_id, patient_id, scheduled_at, kind, status, fee_cents, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := s.db.Exec(ctx, query,
		appt.ID,
		appt.ProviderID,
		nullableUUID(appt.PatientID),
		appt.ScheduledAt,
		nullableText(string(appt.Kind)),
		string(appt.Status),
		appt.FeeCents,
		nullableText(appt.Notes),
		appt.CreatedAt,
		appt.UpdatedAt,
	)
	if err != nil {
		if isSlotViolation(err) {
			return &ConflictError{Reason: ReasonBooked, CurrentStatus: StatusScheduled}
		}
		return &StorageError{Op: "insert", Err: err}
	}
	return nil
}

func (s *PGStore) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	query := `SELECT` + appointmentColumns + ` FROM appointments WHERE id = $1`
	appt, err := scanAppointment(s.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, &StorageError{Op: "get", Err: err}
	}
	return appt, nil
}

func (s *PGStore) FindBlocking(ctx context.Context, providerID uuid.UUID, at time.Time, excludeID uuid.UUID) (*Appointment, error) {
	query := `
		SELECT` + appointmentColumns + `
		FROM appointments
		WHERE provider_id = $1
			AND scheduled_at = $2
			AND status = ANY($3)
			AND ($4::uuid IS NULL OR id <> $4)
		LIMIT 1
	`
	statuses := make([]string, 0, 4)
	for _, st := range BlockingStatuses() {
		statuses = append(statuses, string(st))
	}
	appt, err := scanAppointment(s.db.QueryRow(ctx, query, providerID, at, statuses, nullableUUID(excludeID)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, &StorageError{Op: "find blocking", Err: err}
	}
	return appt, nil
}

func (s *PGStore) UpdateSlot(ctx context.Context, id uuid.UUID, at time.Time, status Status) (*Appointment, error) {
	query := `
		UPDATE appointments
		SET scheduled_at = $2, status = $3, updated_at = now()
		WHERE id = $1
		RETURNING` + appointmentColumns
	appt, err := scanAppointment(s.db.QueryRow(ctx, query, id, at, string(status)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		if isSlotViolation(err) {
			return nil, &ConflictError{Reason: ReasonBooked, CurrentStatus: status}
		}
		return nil, &StorageError{Op: "update slot", Err: err}
	}
	return appt, nil
}

func (s *PGStore) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) (*Appointment, error) {
	query := `
		UPDATE appointments
		SET status = $2, updated_at = now()
		WHERE id = $1
		RETURNING` + appointmentColumns
	appt, err := scanAppointment(s.db.QueryRow(ctx, query, id, string(status)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, &StorageError{Op: "update status", Err: err}
	}
	return appt, nil
}

func (s *PGStore) MarkCancelled(ctx context.Context, id uuid.UUID, c Cancellation) (*Appointment, error) {
	query := `
		UPDATE appointments
		SET status = $2, cancel_reason = $3, cancelled_by = $4, cancelled_at = $5, updated_at = now()
		WHERE id = $1
		RETURNING` + appointmentColumns
	appt, err := scanAppointment(s.db.QueryRow(ctx, query, id, string(StatusCancelled), nullableText(c.Reason), string(c.Actor), c.At))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, &StorageError{Op: "mark cancelled", Err: err}
	}
	return appt, nil
}

func (s *PGStore) ListByProvider(ctx context.Context, providerID uuid.UUID, limit int) ([]*Appointment, error) {
	query := `
		SELECT` + appointmentColumns + `
		FROM appointments
		WHERE provider_id = $1
		ORDER BY scheduled_at DESC
		LIMIT $2
	`
	return s.list(ctx, query, providerID, normalizeLimit(limit))
}

func (s *PGStore) ListByPatient(ctx context.Context, patientID uuid.UUID, limit int) ([]*Appointment, error) {
	query := `
		SELECT` + appointmentColumns + `
		FROM appointments
		WHERE patient_id = $1
		ORDER BY scheduled_at DESC
		LIMIT $2
	`
	return s.list(ctx, query, patientID, normalizeLimit(limit))
}

func (s *PGStore) list(ctx context.Context, query string, id uuid.UUID, limit int) ([]*Appointment, error) {
	rows, err := s.db.Query(ctx, query, id, limit)
	if err != nil {
		return nil, &StorageError{Op: "list", Err: err}
	}
	defer rows.Close()

	var out []*Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, &StorageError{Op: "list scan", Err: err}
		}
		out = append(out, appt)
	}
	if rows.Err() != nil {
		return nil, &StorageError{Op: "list", Err: rows.Err()}
	}
	return out, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var appt Appointment
	var patientID *uuid.UUID
	var kind string
	var status string
	var cancelReason, cancelledBy string
	var cancelledAt *time.Time

	err := row.Scan(
		&appt.ID,
		&appt.ProviderID,
		&patientID,
		&appt.ScheduledAt,
		&kind,
		&status,
		&appt.FeeCents,
		&appt.Notes,
		&cancelReason,
		&cancelledBy,
		&cancelledAt,
		&appt.CreatedAt,
		&appt.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if patientID != nil {
		appt.PatientID = *patientID
	}
	appt.Kind = Kind(kind)
	appt.Status = Status(status)
	if cancelledAt != nil {
		appt.Cancellation = &Cancellation{
			Reason: cancelReason,
			Actor:  cancelledActor(cancelledBy),
			At:     *cancelledAt,
		}
	}
	return &appt, nil
}

func cancelledActor(role string) actor.Role {
	if role == string(actor.RoleProvider) {
		return actor.RoleProvider
	}
	return actor.RolePatient
}

// isSlotViolation matches the partial unique index on active slots
// (23505) and exclusion constraints (23P01).
func isSlotViolation(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "23505" || pgErr.Code == "23P01"
}

func nullableUUID(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}

func nullableText(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return 50
	}
	return limit
}
