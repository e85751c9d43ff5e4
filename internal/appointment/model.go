// Package appointment implements the slot-reservation and lifecycle
// engine: one blocking booking per (provider, timestamp) slot, enforced
// status transitions, and race-free reschedule/cancel.
package appointment

import (
	"time"

	"github.com/google/uuid"

	"github.com/HELLO-50/Sahatak-sub003/internal/actor"
)

// Status is the lifecycle state of an appointment.
type Status string

const (
	StatusScheduled  Status = "scheduled"
	StatusConfirmed  Status = "confirmed"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
	// StatusBlocked marks provider-declared unavailability. It occupies
	// the slot like an active booking but is never patient-owned.
	StatusBlocked Status = "blocked"

	// statusNone is the pseudo-state before creation.
	statusNone Status = ""
)

// Blocking reports whether a row in this status occupies its slot
// against new bookings.
func (s Status) Blocking() bool {
	switch s {
	case StatusScheduled, StatusConfirmed, StatusInProgress, StatusBlocked:
		return true
	}
	return false
}

// Terminal reports whether no further transition is allowed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Valid reports whether the value is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusScheduled, StatusConfirmed, StatusInProgress, StatusCompleted, StatusCancelled, StatusBlocked:
		return true
	}
	return false
}

// BlockingStatuses lists every status visible to conflict detection.
func BlockingStatuses() []Status {
	return []Status{StatusScheduled, StatusConfirmed, StatusInProgress, StatusBlocked}
}

// Kind is the consultation medium.
type Kind string

const (
	KindVideo Kind = "video"
	KindAudio Kind = "audio"
	KindChat  Kind = "chat"
)

// Valid reports whether the value is a known consultation kind.
func (k Kind) Valid() bool {
	switch k {
	case KindVideo, KindAudio, KindChat:
		return true
	}
	return false
}

// Cancellation records why, by whom, and when an appointment was
// cancelled. Present if and only if the status is cancelled.
type Cancellation struct {
	Reason string     `json:"reason,omitempty"`
	Actor  actor.Role `json:"actor"`
	At     time.Time  `json:"at"`
}

// Appointment is a booking of one provider slot by one patient.
// FeeCents is copied from the provider at creation and never mutated
// afterward. Blocked rows have a nil patient and a zero fee.
type Appointment struct {
	ID           uuid.UUID     `json:"id"`
	ProviderID   uuid.UUID     `json:"provider_id"`
	PatientID    uuid.UUID     `json:"patient_id,omitempty"`
	ScheduledAt  time.Time     `json:"scheduled_at"`
	Kind         Kind          `json:"kind,omitempty"`
	Status       Status        `json:"status"`
	FeeCents     int64         `json:"fee_cents"`
	Notes        string        `json:"notes,omitempty"`
	Cancellation *Cancellation `json:"cancellation,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// clone returns a copy safe to hand out across goroutines.
func (a *Appointment) clone() *Appointment {
	if a == nil {
		return nil
	}
	cp := *a
	if a.Cancellation != nil {
		c := *a.Cancellation
		cp.Cancellation = &c
	}
	return &cp
}

// SlotTime normalizes a timestamp to its slot key: UTC, truncated to
// the minute. Two requests for the same clock minute contend for the
// same slot regardless of sub-minute jitter.
func SlotTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Minute)
}
