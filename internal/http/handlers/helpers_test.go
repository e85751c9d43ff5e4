package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/HELLO-50/Sahatak-sub003/internal/actor"
	"github.com/HELLO-50/Sahatak-sub003/internal/appointment"
	"github.com/HELLO-50/Sahatak-sub003/internal/cache"
	"github.com/HELLO-50/Sahatak-sub003/internal/observability/metrics"
	"github.com/HELLO-50/Sahatak-sub003/pkg/logging"
)

type fixedDirectory struct {
	bookable bool
	feeCents int64
}

func (d *fixedDirectory) IsProviderBookable(ctx context.Context, providerID uuid.UUID) (bool, error) {
	return d.bookable, nil
}

func (d *fixedDirectory) FeeOf(ctx context.Context, providerID uuid.UUID) (int64, error) {
	return d.feeCents, nil
}

func (d *fixedDirectory) IsProfileComplete(ctx context.Context, providerID uuid.UUID) (bool, error) {
	return true, nil
}

// testStack is the full in-memory wiring the handler tests run against.
type testStack struct {
	handler  *AppointmentsHandler
	stats    *StatsHandler
	store    *appointment.MemoryStore
	locks    *appointment.KeyedMutex
	registry *prometheus.Registry
	router   chi.Router
}

func newTestStack(t *testing.T) *testStack {
	t.Helper()
	logger := logging.New("error")
	store := appointment.NewMemoryStore()
	locks := appointment.NewKeyedMutex(200 * time.Millisecond)

	mr := miniredis.RunT(t)
	schedules := cache.NewScheduleCache(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	effects := appointment.NewSideEffects(nil, schedules, nil, logger)

	registry := prometheus.NewRegistry()
	bookingMetrics := metrics.NewBookingMetrics(registry)

	dir := &fixedDirectory{bookable: true, feeCents: 5000}
	reservations := appointment.NewReservationService(store, locks, dir, effects, logger)
	reschedules := appointment.NewRescheduleCoordinator(store, locks, effects, logger)
	cancellations := appointment.NewCancellationHandler(store, effects, logger)
	sessions := appointment.NewSessionTransitions(store, effects, logger)

	h := NewAppointmentsHandler(reservations, reschedules, cancellations, sessions, store, schedules, bookingMetrics, logger)
	stats := NewStatsHandler(registry, logger)

	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/appointments", h.Create)
		r.Get("/appointments", h.ListMine)
		r.Get("/appointments/{id}", h.Get)
		r.Post("/appointments/{id}/reschedule", h.Reschedule)
		r.Post("/appointments/{id}/cancel", h.Cancel)
		r.Post("/appointments/{id}/begin", h.Begin)
		r.Post("/appointments/{id}/end", h.End)
		r.Post("/providers/{id}/blocks", h.BlockSlot)
		r.Delete("/providers/{id}/blocks/{blockID}", h.UnblockSlot)
		r.Get("/providers/{id}/schedule", h.ProviderSchedule)
		r.Get("/stats/bookings", stats.Bookings)
	})

	return &testStack{
		handler:  h,
		stats:    stats,
		store:    store,
		locks:    locks,
		registry: registry,
		router:   r,
	}
}

// do performs a request as the given actor. A zero actor means
// unauthenticated.
func (s *testStack) do(t *testing.T, method, path string, as actor.Actor, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if as.ID != uuid.Nil {
		req = req.WithContext(actor.WithActor(req.Context(), as))
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decodeAppointment(t *testing.T, rec *httptest.ResponseRecorder) *appointment.Appointment {
	t.Helper()
	var appt appointment.Appointment
	if err := json.NewDecoder(rec.Body).Decode(&appt); err != nil {
		t.Fatalf("decode appointment: %v (body %q)", err, rec.Body.String())
	}
	return &appt
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var resp errorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error: %v (body %q)", err, rec.Body.String())
	}
	return resp
}

func patientActor() actor.Actor {
	return actor.Actor{ID: uuid.New(), Role: actor.RolePatient}
}

func providerActor() actor.Actor {
	return actor.Actor{ID: uuid.New(), Role: actor.RoleProvider}
}

func futureSlot() time.Time {
	return time.Now().UTC().Add(24 * time.Hour).Truncate(time.Minute)
}
