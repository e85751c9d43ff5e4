package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/HELLO-50/Sahatak-sub003/internal/actor"
	"github.com/HELLO-50/Sahatak-sub003/internal/appointment"
	"github.com/HELLO-50/Sahatak-sub003/internal/cache"
	"github.com/HELLO-50/Sahatak-sub003/internal/observability/metrics"
	"github.com/HELLO-50/Sahatak-sub003/pkg/logging"
)

// AppointmentsHandler serves the appointment lifecycle endpoints.
type AppointmentsHandler struct {
	reservations  *appointment.ReservationService
	reschedules   *appointment.RescheduleCoordinator
	cancellations *appointment.CancellationHandler
	sessions      *appointment.SessionTransitions
	store         appointment.Store
	schedules     *cache.ScheduleCache
	metrics       *metrics.BookingMetrics
	logger        *logging.Logger
}

// NewAppointmentsHandler creates the handler. The schedule cache and
// metrics may be nil.
func NewAppointmentsHandler(
	reservations *appointment.ReservationService,
	reschedules *appointment.RescheduleCoordinator,
	cancellations *appointment.CancellationHandler,
	sessions *appointment.SessionTransitions,
	store appointment.Store,
	schedules *cache.ScheduleCache,
	bookingMetrics *metrics.BookingMetrics,
	logger *logging.Logger,
) *AppointmentsHandler {
	if reservations == nil || reschedules == nil || cancellations == nil || sessions == nil || store == nil {
		panic("handlers: appointment services required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &AppointmentsHandler{
		reservations:  reservations,
		reschedules:   reschedules,
		cancellations: cancellations,
		sessions:      sessions,
		store:         store,
		schedules:     schedules,
		metrics:       bookingMetrics,
		logger:        logger,
	}
}

type createRequest struct {
	ProviderID  uuid.UUID `json:"provider_id"`
	ScheduledAt time.Time `json:"scheduled_at"`
	Kind        string    `json:"kind"`
	Notes       string    `json:"notes,omitempty"`
}

// Create books a slot for the authenticated patient.
func (h *AppointmentsHandler) Create(w http.ResponseWriter, r *http.Request) {
	caller, ok := actor.FromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "authentication required"})
		return
	}
	if caller.Role != actor.RolePatient {
		writeJSON(w, http.StatusForbidden, errorResponse{Error: "only patients book appointments"})
		return
	}

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	appt, err := h.reservations.Create(r.Context(), appointment.CreateRequest{
		ProviderID:  req.ProviderID,
		PatientID:   caller.ID,
		ScheduledAt: req.ScheduledAt,
		Kind:        appointment.Kind(req.Kind),
		Notes:       req.Notes,
	})
	h.observe("create", err)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, appt)
}

type rescheduleRequest struct {
	ScheduledAt time.Time `json:"scheduled_at"`
}

// Reschedule moves the appointment to a new slot.
func (h *AppointmentsHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := h.callerAndID(w, r)
	if !ok {
		return
	}
	var req rescheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	appt, err := h.reschedules.Reschedule(r.Context(), id, req.ScheduledAt, caller)
	h.observe("reschedule", err)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

type cancelRequest struct {
	Reason string `json:"reason,omitempty"`
}

// Cancel terminates the appointment.
func (h *AppointmentsHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := h.callerAndID(w, r)
	if !ok {
		return
	}
	var req cancelRequest
	if r.Body != nil {
		// An empty body means no reason given.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	appt, err := h.cancellations.Cancel(r.Context(), id, caller, req.Reason)
	h.observe("cancel", err)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

// Begin marks the consultation session as started.
func (h *AppointmentsHandler) Begin(w http.ResponseWriter, r *http.Request) {
	h.session(w, r, h.sessions.Begin, "begin")
}

// End marks the consultation session as finished.
func (h *AppointmentsHandler) End(w http.ResponseWriter, r *http.Request) {
	h.session(w, r, h.sessions.End, "end")
}

func (h *AppointmentsHandler) session(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error), name string) {
	_, id, ok := h.callerAndID(w, r)
	if !ok {
		return
	}
	appt, err := op(r.Context(), id)
	h.observe(name, err)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

// Get returns one appointment to its own parties.
func (h *AppointmentsHandler) Get(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := h.callerAndID(w, r)
	if !ok {
		return
	}
	appt, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if caller.ID != appt.PatientID && caller.ID != appt.ProviderID {
		writeJSON(w, http.StatusForbidden, errorResponse{Error: "not a party to this appointment"})
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

// ListMine returns the caller's appointments, newest first.
func (h *AppointmentsHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	caller, ok := actor.FromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "authentication required"})
		return
	}

	var appts []*appointment.Appointment
	var err error
	if caller.Role == actor.RoleProvider {
		appts, err = h.store.ListByProvider(r.Context(), caller.ID, 0)
	} else {
		appts, err = h.store.ListByPatient(r.Context(), caller.ID, 0)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	if appts == nil {
		appts = []*appointment.Appointment{}
	}
	writeJSON(w, http.StatusOK, appts)
}

// ProviderSchedule returns a provider's appointments, served from the
// schedule cache when warm.
func (h *AppointmentsHandler) ProviderSchedule(w http.ResponseWriter, r *http.Request) {
	providerID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid provider id", Field: "id"})
		return
	}

	if h.schedules != nil {
		if cached, hit, err := h.schedules.Get(r.Context(), providerID); err == nil && hit {
			writeJSON(w, http.StatusOK, cached)
			return
		}
	}

	appts, err := h.store.ListByProvider(r.Context(), providerID, 0)
	if err != nil {
		writeError(w, err)
		return
	}
	if appts == nil {
		appts = []*appointment.Appointment{}
	}
	if h.schedules != nil {
		if err := h.schedules.Set(r.Context(), providerID, appts); err != nil {
			h.logger.Warn("schedule cache write failed", "error", err, "provider_id", providerID)
		}
	}
	writeJSON(w, http.StatusOK, appts)
}

type blockRequest struct {
	ScheduledAt time.Time `json:"scheduled_at"`
}

// BlockSlot records provider unavailability for a slot.
func (h *AppointmentsHandler) BlockSlot(w http.ResponseWriter, r *http.Request) {
	caller, ok := actor.FromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "authentication required"})
		return
	}
	providerID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid provider id", Field: "id"})
		return
	}
	var req blockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	appt, err := h.reservations.BlockSlot(r.Context(), providerID, req.ScheduledAt, caller)
	h.observe("block", err)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, appt)
}

// UnblockSlot clears a provider's block.
func (h *AppointmentsHandler) UnblockSlot(w http.ResponseWriter, r *http.Request) {
	caller, ok := actor.FromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "authentication required"})
		return
	}
	blockID, err := uuid.Parse(chi.URLParam(r, "blockID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid block id", Field: "blockID"})
		return
	}

	appt, err := h.reservations.UnblockSlot(r.Context(), blockID, caller)
	h.observe("unblock", err)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

func (h *AppointmentsHandler) callerAndID(w http.ResponseWriter, r *http.Request) (actor.Actor, uuid.UUID, bool) {
	caller, ok := actor.FromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "authentication required"})
		return actor.Actor{}, uuid.Nil, false
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid appointment id", Field: "id"})
		return actor.Actor{}, uuid.Nil, false
	}
	return caller, id, true
}

func (h *AppointmentsHandler) observe(operation string, err error) {
	outcome := "success"
	var conflict *appointment.ConflictError
	switch {
	case err == nil:
	case errors.As(err, &conflict):
		outcome = "conflict"
		h.metrics.ObserveConflict(string(conflict.Reason))
	case errors.Is(err, appointment.ErrSlotBusy):
		outcome = "busy"
	default:
		outcome = "error"
	}
	h.metrics.ObserveReservation(operation, outcome)
}
