package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/HELLO-50/Sahatak-sub003/internal/appointment"
	"github.com/HELLO-50/Sahatak-sub003/internal/cache"
	"github.com/HELLO-50/Sahatak-sub003/internal/http/handlers"
	"github.com/HELLO-50/Sahatak-sub003/internal/observability/metrics"
	"github.com/HELLO-50/Sahatak-sub003/pkg/logging"
)

const testAuthSecret = "router-test-secret"

type allowAllDirectory struct{}

func (allowAllDirectory) IsProviderBookable(ctx context.Context, providerID uuid.UUID) (bool, error) {
	return true, nil
}

func (allowAllDirectory) FeeOf(ctx context.Context, providerID uuid.UUID) (int64, error) {
	return 5000, nil
}

func (allowAllDirectory) IsProfileComplete(ctx context.Context, providerID uuid.UUID) (bool, error) {
	return true, nil
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	logger := logging.New("error")
	store := appointment.NewMemoryStore()
	locks := appointment.NewKeyedMutex(time.Second)

	mr := miniredis.RunT(t)
	schedules := cache.NewScheduleCache(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	effects := appointment.NewSideEffects(nil, schedules, nil, logger)

	registry := prometheus.NewRegistry()
	bookingMetrics := metrics.NewBookingMetrics(registry)

	dir := allowAllDirectory{}
	appts := handlers.NewAppointmentsHandler(
		appointment.NewReservationService(store, locks, dir, effects, logger),
		appointment.NewRescheduleCoordinator(store, locks, effects, logger),
		appointment.NewCancellationHandler(store, effects, logger),
		appointment.NewSessionTransitions(store, effects, logger),
		store,
		schedules,
		bookingMetrics,
		logger,
	)

	return New(&Config{
		Logger:         logger,
		Appointments:   appts,
		Stats:          handlers.NewStatsHandler(registry, logger),
		MetricsHandler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		AuthSecret:     testAuthSecret,
	})
}

func bearerToken(t *testing.T, subject uuid.UUID, role string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  subject.String(),
		"role": role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testAuthSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return "Bearer " + token
}

func TestRouterHealthEndpoint(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	var resp map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode health response: %v", err)
	}
	if resp["status"] != "ok" {
		t.Errorf("expected status 'ok', got %q", resp["status"])
	}
}

func TestRouterMetricsEndpointIsPublic(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 from /metrics, got %d", rr.Code)
	}
}

func TestRouterRequiresAuth(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/appointments", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without a token, got %d", rr.Code)
	}
}

func TestRouterBookingFlow(t *testing.T) {
	router := newTestRouter(t)

	patient := uuid.New()
	provider := uuid.New()

	payload, _ := json.Marshal(map[string]any{
		"provider_id":  provider,
		"scheduled_at": time.Now().UTC().Add(24 * time.Hour).Truncate(time.Minute),
		"kind":         "video",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/appointments", bytes.NewReader(payload))
	req.Header.Set("Authorization", bearerToken(t, patient, "patient"))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var appt appointment.Appointment
	if err := json.NewDecoder(rr.Body).Decode(&appt); err != nil {
		t.Fatalf("decode appointment: %v", err)
	}
	if appt.PatientID != patient {
		t.Fatalf("expected patient from token, got %s", appt.PatientID)
	}

	// The authenticated patient sees their booking.
	listReq := httptest.NewRequest(http.MethodGet, "/api/v1/appointments", nil)
	listReq.Header.Set("Authorization", bearerToken(t, patient, "patient"))
	listRR := httptest.NewRecorder()
	router.ServeHTTP(listRR, listReq)

	if listRR.Code != http.StatusOK {
		t.Fatalf("list failed: %d", listRR.Code)
	}
	var mine []*appointment.Appointment
	if err := json.NewDecoder(listRR.Body).Decode(&mine); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(mine) != 1 || mine[0].ID != appt.ID {
		t.Fatalf("expected the new booking in the list, got %+v", mine)
	}
}
