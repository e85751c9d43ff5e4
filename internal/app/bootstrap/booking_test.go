package bootstrap

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/HELLO-50/Sahatak-sub003/internal/appointment"
	appconfig "github.com/HELLO-50/Sahatak-sub003/internal/config"
	"github.com/HELLO-50/Sahatak-sub003/internal/directory"
	"github.com/HELLO-50/Sahatak-sub003/internal/observability/metrics"
	"github.com/HELLO-50/Sahatak-sub003/pkg/logging"
)

func TestBuildBookingRequiresConfig(t *testing.T) {
	if _, _, err := BuildBooking(context.Background(), nil, nil, nil); err == nil {
		t.Fatalf("expected error for nil config")
	}
}

func TestBuildBookingWithoutDatabaseUsesMemoryStore(t *testing.T) {
	cfg := &appconfig.Config{SlotLockWait: time.Second}

	b, cleanup, err := BuildBooking(nil, cfg, nil, logging.New("error"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer cleanup()

	if _, ok := b.Store.(*appointment.MemoryStore); !ok {
		t.Fatalf("expected MemoryStore, got %T", b.Store)
	}
	if _, ok := b.Locks.(*appointment.KeyedMutex); !ok {
		t.Fatalf("expected KeyedMutex, got %T", b.Locks)
	}
	if _, ok := b.Directory.(directory.Static); !ok {
		t.Fatalf("expected static directory, got %T", b.Directory)
	}
	if b.Schedules != nil {
		t.Fatalf("expected no schedule cache without redis")
	}
	if b.Reservations == nil || b.Reschedules == nil || b.Cancellations == nil || b.Sessions == nil {
		t.Fatalf("expected all booking services wired")
	}
}

func TestBuildBookingMemoryStackAcceptsBookings(t *testing.T) {
	cfg := &appconfig.Config{SlotLockWait: time.Second}

	b, cleanup, err := BuildBooking(context.Background(), cfg, nil, logging.New("error"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer cleanup()

	appt, err := b.Reservations.Create(context.Background(), appointment.CreateRequest{
		ProviderID:  uuid.New(),
		PatientID:   uuid.New(),
		ScheduledAt: time.Now().UTC().Add(24 * time.Hour),
		Kind:        appointment.KindVideo,
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if appt.Status != appointment.StatusScheduled {
		t.Fatalf("expected scheduled, got %s", appt.Status)
	}
}

func TestBuildBookingRecordsLockWait(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := metrics.NewBookingMetrics(registry)
	cfg := &appconfig.Config{SlotLockWait: time.Second}

	b, cleanup, err := BuildBooking(context.Background(), cfg, m, logging.New("error"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer cleanup()

	if _, err := b.Reservations.Create(context.Background(), appointment.CreateRequest{
		ProviderID:  uuid.New(),
		PatientID:   uuid.New(),
		ScheduledAt: time.Now().UTC().Add(24 * time.Hour),
		Kind:        appointment.KindVideo,
	}); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}
	var samples uint64
	for _, f := range families {
		if f.GetName() != "sahatak_booking_lock_wait_seconds" {
			continue
		}
		for _, metric := range f.GetMetric() {
			samples += metric.GetHistogram().GetSampleCount()
		}
	}
	if samples == 0 {
		t.Fatalf("expected lock wait histogram to record the create acquisition")
	}
}

func TestBuildBookingWiresScheduleCacheFromRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := &appconfig.Config{SlotLockWait: time.Second, RedisAddr: mr.Addr()}

	b, cleanup, err := BuildBooking(context.Background(), cfg, nil, logging.New("error"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer cleanup()

	if b.Schedules == nil {
		t.Fatalf("expected schedule cache when redis is configured")
	}
}

func TestBuildRedisClientEmptyAddrReturnsNil(t *testing.T) {
	cfg := &appconfig.Config{}
	if client := BuildRedisClient(context.Background(), cfg, logging.New("error"), false); client != nil {
		t.Fatalf("expected nil client without REDIS_ADDR")
	}
}

func TestBuildRedisClientVerifyFailureReturnsNil(t *testing.T) {
	cfg := &appconfig.Config{RedisAddr: "127.0.0.1:1"}
	if client := BuildRedisClient(context.Background(), cfg, logging.New("error"), true); client != nil {
		t.Fatalf("expected nil client when ping fails")
	}
}

func TestBuildEmailSenderDisabled(t *testing.T) {
	cfg := &appconfig.Config{EmailProvider: "none"}

	sender, err := BuildEmailSender(context.Background(), cfg, logging.New("error"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sender != nil {
		t.Fatalf("expected no sender when notifications are disabled")
	}
}

func TestBuildEmailSenderUnknownProvider(t *testing.T) {
	cfg := &appconfig.Config{EmailProvider: "carrier-pigeon"}

	if _, err := BuildEmailSender(context.Background(), cfg, logging.New("error")); err == nil {
		t.Fatalf("expected error for unknown provider")
	}
}

func TestBuildEmailSenderSendGridWithoutKeyDisables(t *testing.T) {
	cfg := &appconfig.Config{EmailProvider: "sendgrid"}

	sender, err := BuildEmailSender(context.Background(), cfg, logging.New("error"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sender != nil {
		t.Fatalf("expected nil sender without an API key")
	}
}
