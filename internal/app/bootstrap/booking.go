package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/HELLO-50/Sahatak-sub003/internal/appointment"
	"github.com/HELLO-50/Sahatak-sub003/internal/audit"
	"github.com/HELLO-50/Sahatak-sub003/internal/cache"
	appconfig "github.com/HELLO-50/Sahatak-sub003/internal/config"
	"github.com/HELLO-50/Sahatak-sub003/internal/directory"
	"github.com/HELLO-50/Sahatak-sub003/internal/notify"
	"github.com/HELLO-50/Sahatak-sub003/internal/observability/metrics"
	"github.com/HELLO-50/Sahatak-sub003/pkg/logging"
)

// Booking bundles the reservation engine and its collaborators as
// wired from config.
type Booking struct {
	Store         appointment.Store
	Locks         appointment.SlotLock
	Directory     appointment.ProfileDirectory
	Schedules     *cache.ScheduleCache
	Effects       *appointment.SideEffects
	Reservations  *appointment.ReservationService
	Reschedules   *appointment.RescheduleCoordinator
	Cancellations *appointment.CancellationHandler
	Sessions      *appointment.SessionTransitions
}

// BuildBooking wires the full reservation stack. With a DATABASE_URL it
// runs on Postgres with advisory slot locks; without one it falls back
// to the in-memory store for local development. Lock waits are reported
// into m when given. The returned cleanup closes every connection the
// builder opened.
func BuildBooking(ctx context.Context, cfg *appconfig.Config, m *metrics.BookingMetrics, logger *logging.Logger) (*Booking, func(), error) {
	if cfg == nil {
		return nil, nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisClient := BuildRedisClient(ctx, cfg, logger, true)

	pool, sqlDB, err := BuildDatabase(ctx, cfg, logger)
	if err != nil {
		if redisClient != nil {
			_ = redisClient.Close()
		}
		return nil, nil, err
	}

	b := &Booking{}
	var (
		auditSink  appointment.AuditSink
		contacts   notify.Contacts
		cacheInval appointment.CacheInvalidator
		dispatch   appointment.NotificationDispatcher
	)

	if pool != nil {
		b.Store = appointment.NewPGStore(pool)
		b.Locks = appointment.NewAdvisoryLock(pool, cfg.SlotLockWait, logger)
		dir := directory.NewDirectory(pool, redisClient, logger)
		b.Directory = dir
		contacts = dir
		auditSink = audit.NewStore(sqlDB)
	} else {
		logger.Warn("DATABASE_URL not set; using in-memory appointment store")
		b.Store = appointment.NewMemoryStore()
		b.Locks = appointment.NewKeyedMutex(cfg.SlotLockWait)
		b.Directory = directory.Static{}
	}

	if redisClient != nil {
		b.Schedules = cache.NewScheduleCache(redisClient)
		cacheInval = b.Schedules
	}

	sender, err := BuildEmailSender(ctx, cfg, logger)
	if err != nil {
		cleanupConnections(pool, sqlDB, redisClient)
		return nil, nil, err
	}
	if sender != nil {
		dispatch = notify.NewDispatcher(sender, contacts, logger)
	}

	b.Effects = appointment.NewSideEffects(auditSink, cacheInval, dispatch, logger)
	if cfg.SideEffectTimeout > 0 {
		b.Effects.Timeout = cfg.SideEffectTimeout
	}

	observeLockWait := func(operation string, wait time.Duration) {
		m.ObserveLockWait(operation, wait.Seconds())
	}
	b.Reservations = appointment.NewReservationService(
		b.Store, b.Locks, b.Directory, b.Effects, logger,
		appointment.WithProfileGuard(cfg.RequireCompleteProfile),
		appointment.WithLockWaitObserver(observeLockWait),
	)
	b.Reschedules = appointment.NewRescheduleCoordinator(b.Store, b.Locks, b.Effects, logger).
		WithLockWaitObserver(observeLockWait)
	b.Cancellations = appointment.NewCancellationHandler(b.Store, b.Effects, logger)
	b.Sessions = appointment.NewSessionTransitions(b.Store, b.Effects, logger)

	cleanup := func() { cleanupConnections(pool, sqlDB, redisClient) }
	return b, cleanup, nil
}

func cleanupConnections(pool *pgxpool.Pool, sqlDB *sql.DB, redisClient *redis.Client) {
	if pool != nil {
		pool.Close()
	}
	if sqlDB != nil {
		_ = sqlDB.Close()
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
}
