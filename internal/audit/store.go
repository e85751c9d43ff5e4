// Package audit persists an immutable trail of appointment lifecycle
// actions. Entries are written after commit and never updated.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/HELLO-50/Sahatak-sub003/internal/actor"
	"github.com/HELLO-50/Sahatak-sub003/internal/appointment"
)

// Store writes and queries audit records. It implements
// appointment.AuditSink.
type Store struct {
	db *sql.DB
}

// NewStore creates an audit store on the given database.
func NewStore(db *sql.DB) *Store {
	if db == nil {
		panic("audit: db required")
	}
	return &Store{db: db}
}

// Record appends one audit row.
func (s *Store) Record(ctx context.Context, entry appointment.AuditEntry) error {
	query := `
		INSERT INTO appointment_audit_events (
			id, action, appointment_id, provider_id, actor_id, actor_role,
			before_status, after_status, occurred_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	at := entry.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, query,
		uuid.NewString(),
		string(entry.Action),
		entry.AppointmentID,
		entry.ProviderID,
		nullUUID(entry.ActorID),
		string(entry.ActorRole),
		nullString(string(entry.BeforeStatus)),
		string(entry.AfterStatus),
		at,
	)
	if err != nil {
		return fmt.Errorf("audit: failed to record event: %w", err)
	}
	return nil
}

// Filter narrows a trail query. Zero fields are ignored.
type Filter struct {
	AppointmentID uuid.UUID
	ProviderID    uuid.UUID
	Action        appointment.EventKind
	Start         time.Time
	End           time.Time
	Limit         int
}

// Query retrieves matching audit entries, newest first.
func (s *Store) Query(ctx context.Context, filter Filter) ([]appointment.AuditEntry, error) {
	query := `
		SELECT action, appointment_id, provider_id, COALESCE(actor_id, '00000000-0000-0000-0000-000000000000'),
			   actor_role, COALESCE(before_status, ''), after_status, occurred_at
		FROM appointment_audit_events
		WHERE 1=1
	`
	var args []interface{}
	argIdx := 1

	if filter.AppointmentID != uuid.Nil {
		query += fmt.Sprintf(" AND appointment_id = $%d", argIdx)
		args = append(args, filter.AppointmentID)
		argIdx++
	}
	if filter.ProviderID != uuid.Nil {
		query += fmt.Sprintf(" AND provider_id = $%d", argIdx)
		args = append(args, filter.ProviderID)
		argIdx++
	}
	if filter.Action != "" {
		query += fmt.Sprintf(" AND action = $%d", argIdx)
		args = append(args, string(filter.Action))
		argIdx++
	}
	if !filter.Start.IsZero() {
		query += fmt.Sprintf(" AND occurred_at >= $%d", argIdx)
		args = append(args, filter.Start)
		argIdx++
	}
	if !filter.End.IsZero() {
		query += fmt.Sprintf(" AND occurred_at <= $%d", argIdx)
		args = append(args, filter.End)
		argIdx++
	}

	query += " ORDER BY occurred_at DESC"
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("audit: failed to query events: %w", err)
	}
	defer rows.Close()

	var out []appointment.AuditEntry
	for rows.Next() {
		var entry appointment.AuditEntry
		var action, role, before, after string
		if err := rows.Scan(
			&action,
			&entry.AppointmentID,
			&entry.ProviderID,
			&entry.ActorID,
			&role,
			&before,
			&after,
			&entry.At,
		); err != nil {
			return nil, fmt.Errorf("audit: failed to scan event: %w", err)
		}
		entry.Action = appointment.EventKind(action)
		entry.ActorRole = actor.Role(role)
		entry.BeforeStatus = appointment.Status(before)
		entry.AfterStatus = appointment.Status(after)
		out = append(out, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("audit: failed to read events: %w", err)
	}
	return out, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullUUID(id uuid.UUID) interface{} {
	if id == uuid.Nil {
		return nil
	}
	return id
}
