package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/HELLO-50/Sahatak-sub003/internal/actor"
	"github.com/HELLO-50/Sahatak-sub003/internal/appointment"
)

func TestCreateAppointment(t *testing.T) {
	s := newTestStack(t)
	patient := patientActor()
	provider := providerActor()

	rec := s.do(t, http.MethodPost, "/api/v1/appointments", patient, createRequest{
		ProviderID:  provider.ID,
		ScheduledAt: futureSlot(),
		Kind:        "video",
	})

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	appt := decodeAppointment(t, rec)
	if appt.PatientID != patient.ID {
		t.Fatalf("patient taken from token, got %s", appt.PatientID)
	}
	if appt.FeeCents != 5000 {
		t.Fatalf("fee snapshot missing, got %d", appt.FeeCents)
	}
	if appt.Status != appointment.StatusScheduled {
		t.Fatalf("expected scheduled, got %s", appt.Status)
	}
}

func TestCreateRequiresAuthentication(t *testing.T) {
	s := newTestStack(t)

	rec := s.do(t, http.MethodPost, "/api/v1/appointments", actor.Actor{}, createRequest{
		ProviderID:  providerActor().ID,
		ScheduledAt: futureSlot(),
		Kind:        "video",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestCreateRejectsProviderCaller(t *testing.T) {
	s := newTestStack(t)

	rec := s.do(t, http.MethodPost, "/api/v1/appointments", providerActor(), createRequest{
		ProviderID:  providerActor().ID,
		ScheduledAt: futureSlot(),
		Kind:        "video",
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestCreateValidationError(t *testing.T) {
	s := newTestStack(t)

	rec := s.do(t, http.MethodPost, "/api/v1/appointments", patientActor(), createRequest{
		ProviderID:  providerActor().ID,
		ScheduledAt: time.Now().UTC().Add(-time.Hour),
		Kind:        "video",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if resp := decodeError(t, rec); resp.Field != "timestamp" {
		t.Fatalf("expected timestamp field, got %+v", resp)
	}
}

func TestCreateConflictPayload(t *testing.T) {
	s := newTestStack(t)
	provider := providerActor()
	slot := futureSlot()

	first := s.do(t, http.MethodPost, "/api/v1/appointments", patientActor(), createRequest{
		ProviderID: provider.ID, ScheduledAt: slot, Kind: "video",
	})
	if first.Code != http.StatusCreated {
		t.Fatalf("seed create failed: %d", first.Code)
	}

	second := s.do(t, http.MethodPost, "/api/v1/appointments", patientActor(), createRequest{
		ProviderID: provider.ID, ScheduledAt: slot, Kind: "audio",
	})
	if second.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", second.Code)
	}
	if resp := decodeError(t, second); resp.Reason != "booked" {
		t.Fatalf("expected booked reason, got %+v", resp)
	}
}

func TestCreateSlotBusyAnswers503(t *testing.T) {
	s := newTestStack(t)
	provider := providerActor()
	slot := futureSlot()

	guard, err := s.locks.Acquire(context.Background(), provider.ID, slot)
	if err != nil {
		t.Fatalf("pre-acquire failed: %v", err)
	}
	defer guard.Release()

	rec := s.do(t, http.MethodPost, "/api/v1/appointments", patientActor(), createRequest{
		ProviderID: provider.ID, ScheduledAt: slot, Kind: "video",
	})
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatal("expected a Retry-After header")
	}
}

func TestRescheduleFlow(t *testing.T) {
	s := newTestStack(t)
	patient := patientActor()
	provider := providerActor()
	slot := futureSlot()

	created := decodeAppointment(t, s.do(t, http.MethodPost, "/api/v1/appointments", patient, createRequest{
		ProviderID: provider.ID, ScheduledAt: slot, Kind: "video",
	}))

	dest := slot.Add(2 * time.Hour)
	rec := s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/appointments/%s/reschedule", created.ID), patient, rescheduleRequest{ScheduledAt: dest})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	moved := decodeAppointment(t, rec)
	if !moved.ScheduledAt.Equal(dest) {
		t.Fatalf("expected %v, got %v", dest, moved.ScheduledAt)
	}

	// A foreign patient gets 403.
	other := s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/appointments/%s/reschedule", created.ID), patientActor(), rescheduleRequest{ScheduledAt: dest.Add(time.Hour)})
	if other.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", other.Code)
	}
}

func TestCancelTerminalAnswers409(t *testing.T) {
	s := newTestStack(t)
	patient := patientActor()
	provider := providerActor()

	created := decodeAppointment(t, s.do(t, http.MethodPost, "/api/v1/appointments", patient, createRequest{
		ProviderID: provider.ID, ScheduledAt: futureSlot(), Kind: "chat",
	}))

	first := s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/appointments/%s/cancel", created.ID), patient, cancelRequest{Reason: "done"})
	if first.Code != http.StatusOK {
		t.Fatalf("cancel failed: %d", first.Code)
	}

	second := s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/appointments/%s/cancel", created.ID), patient, cancelRequest{})
	if second.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", second.Code)
	}
	resp := decodeError(t, second)
	if resp.Reason != "terminal" || resp.CurrentStatus != "cancelled" {
		t.Fatalf("expected terminal/cancelled, got %+v", resp)
	}
}

func TestSessionEndpoints(t *testing.T) {
	s := newTestStack(t)
	patient := patientActor()
	provider := providerActor()

	created := decodeAppointment(t, s.do(t, http.MethodPost, "/api/v1/appointments", patient, createRequest{
		ProviderID: provider.ID, ScheduledAt: futureSlot(), Kind: "video",
	}))

	begin := s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/appointments/%s/begin", created.ID), provider, nil)
	if begin.Code != http.StatusOK {
		t.Fatalf("begin failed: %d: %s", begin.Code, begin.Body.String())
	}
	if decodeAppointment(t, begin).Status != appointment.StatusInProgress {
		t.Fatal("expected in_progress after begin")
	}

	end := s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/appointments/%s/end", created.ID), provider, nil)
	if end.Code != http.StatusOK {
		t.Fatalf("end failed: %d", end.Code)
	}
	if decodeAppointment(t, end).Status != appointment.StatusCompleted {
		t.Fatal("expected completed after end")
	}
}

func TestGetEnforcesParties(t *testing.T) {
	s := newTestStack(t)
	patient := patientActor()
	provider := providerActor()

	created := decodeAppointment(t, s.do(t, http.MethodPost, "/api/v1/appointments", patient, createRequest{
		ProviderID: provider.ID, ScheduledAt: futureSlot(), Kind: "video",
	}))

	own := s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/appointments/%s", created.ID), patient, nil)
	if own.Code != http.StatusOK {
		t.Fatalf("party read failed: %d", own.Code)
	}
	asProvider := s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/appointments/%s", created.ID), actor.Actor{ID: provider.ID, Role: actor.RoleProvider}, nil)
	if asProvider.Code != http.StatusOK {
		t.Fatalf("provider read failed: %d", asProvider.Code)
	}
	stranger := s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/appointments/%s", created.ID), patientActor(), nil)
	if stranger.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for stranger, got %d", stranger.Code)
	}
}

func TestBlockAndUnblock(t *testing.T) {
	s := newTestStack(t)
	provider := providerActor()
	slot := futureSlot()

	created := s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/providers/%s/blocks", provider.ID), provider, blockRequest{ScheduledAt: slot})
	if created.Code != http.StatusCreated {
		t.Fatalf("block failed: %d: %s", created.Code, created.Body.String())
	}
	block := decodeAppointment(t, created)
	if block.Status != appointment.StatusBlocked {
		t.Fatalf("expected blocked, got %s", block.Status)
	}

	// The blocked slot now rejects bookings with the blocked variant.
	conflicted := s.do(t, http.MethodPost, "/api/v1/appointments", patientActor(), createRequest{
		ProviderID: provider.ID, ScheduledAt: slot, Kind: "video",
	})
	if conflicted.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", conflicted.Code)
	}
	if resp := decodeError(t, conflicted); resp.Reason != "blocked" {
		t.Fatalf("expected blocked reason, got %+v", resp)
	}

	cleared := s.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/providers/%s/blocks/%s", provider.ID, block.ID), provider, nil)
	if cleared.Code != http.StatusOK {
		t.Fatalf("unblock failed: %d", cleared.Code)
	}
}

func TestProviderScheduleUsesCache(t *testing.T) {
	s := newTestStack(t)
	patient := patientActor()
	provider := providerActor()

	s.do(t, http.MethodPost, "/api/v1/appointments", patient, createRequest{
		ProviderID: provider.ID, ScheduledAt: futureSlot(), Kind: "video",
	})

	first := s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/providers/%s/schedule", provider.ID), patient, nil)
	if first.Code != http.StatusOK {
		t.Fatalf("schedule read failed: %d", first.Code)
	}
	var schedule []*appointment.Appointment
	if err := json.NewDecoder(first.Body).Decode(&schedule); err != nil {
		t.Fatalf("decode schedule: %v", err)
	}
	if len(schedule) != 1 {
		t.Fatalf("expected 1 appointment, got %d", len(schedule))
	}

	// A second booking invalidates the snapshot, so the next read sees it.
	s.do(t, http.MethodPost, "/api/v1/appointments", patient, createRequest{
		ProviderID: provider.ID, ScheduledAt: futureSlot().Add(time.Hour), Kind: "video",
	})
	second := s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/providers/%s/schedule", provider.ID), patient, nil)
	schedule = nil
	if err := json.NewDecoder(second.Body).Decode(&schedule); err != nil {
		t.Fatalf("decode schedule: %v", err)
	}
	if len(schedule) != 2 {
		t.Fatalf("expected invalidated cache to show 2 appointments, got %d", len(schedule))
	}
}

func TestListMine(t *testing.T) {
	s := newTestStack(t)
	patient := patientActor()
	provider := providerActor()

	s.do(t, http.MethodPost, "/api/v1/appointments", patient, createRequest{
		ProviderID: provider.ID, ScheduledAt: futureSlot(), Kind: "video",
	})

	rec := s.do(t, http.MethodGet, "/api/v1/appointments", patient, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list failed: %d", rec.Code)
	}
	var mine []*appointment.Appointment
	if err := json.NewDecoder(rec.Body).Decode(&mine); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(mine) != 1 {
		t.Fatalf("expected 1 appointment, got %d", len(mine))
	}

	empty := s.do(t, http.MethodGet, "/api/v1/appointments", patientActor(), nil)
	var none []*appointment.Appointment
	if err := json.NewDecoder(empty.Body).Decode(&none); err != nil {
		t.Fatalf("decode empty list: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("expected empty list, got %d", len(none))
	}
}

func TestBookingStatsSnapshot(t *testing.T) {
	s := newTestStack(t)
	provider := providerActor()
	slot := futureSlot()

	s.do(t, http.MethodPost, "/api/v1/appointments", patientActor(), createRequest{
		ProviderID: provider.ID, ScheduledAt: slot, Kind: "video",
	})
	s.do(t, http.MethodPost, "/api/v1/appointments", patientActor(), createRequest{
		ProviderID: provider.ID, ScheduledAt: slot, Kind: "video",
	})

	rec := s.do(t, http.MethodGet, "/api/v1/stats/bookings", patientActor(), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("stats failed: %d", rec.Code)
	}
	var resp BookingStatsResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if resp.Reservations["create:success"] != 1 {
		t.Fatalf("expected one successful create, got %+v", resp.Reservations)
	}
	if resp.Conflicts["booked"] != 1 {
		t.Fatalf("expected one booked conflict, got %+v", resp.Conflicts)
	}
}
