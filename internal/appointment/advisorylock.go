package appointment

import (
	"context"
	"errors"
	"hash/fnv"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/HELLO-50/Sahatak-sub003/pkg/logging"
)

// AdvisoryLock is the Postgres-backed SlotLock. It pins a pooled
// connection and takes a session advisory lock keyed by the slot, so
// the exclusion holds across every instance sharing the database. The
// bounded wait is enforced by cancelling the pg_advisory_lock call.
type AdvisoryLock struct {
	pool    *pgxpool.Pool
	maxWait time.Duration
	logger  *logging.Logger
}

// NewAdvisoryLock creates an advisory lock manager over the pool.
func NewAdvisoryLock(pool *pgxpool.Pool, maxWait time.Duration, logger *logging.Logger) *AdvisoryLock {
	if pool == nil {
		panic("appointment: pgx pool required")
	}
	if maxWait <= 0 {
		maxWait = 3 * time.Second
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &AdvisoryLock{pool: pool, maxWait: maxWait, logger: logger}
}

func (l *AdvisoryLock) Acquire(ctx context.Context, providerID uuid.UUID, at time.Time) (Guard, error) {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return nil, &StorageError{Op: "acquire lock connection", Err: err}
	}

	key := slotLockKey(providerID, at)
	waitCtx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()

	if _, err := conn.Exec(waitCtx, "SELECT pg_advisory_lock($1)", key); err != nil {
		conn.Release()
		if errors.Is(waitCtx.Err(), context.DeadlineExceeded) || errors.Is(ctx.Err(), context.Canceled) {
			return nil, ErrSlotBusy
		}
		return nil, &StorageError{Op: "acquire advisory lock", Err: err}
	}
	return &advisoryGuard{conn: conn, key: key, logger: l.logger}, nil
}

type advisoryGuard struct {
	conn   *pgxpool.Conn
	key    int64
	logger *logging.Logger
	once   sync.Once
}

func (g *advisoryGuard) Release() {
	g.once.Do(func() {
		// Unlock on a fresh context: the request context may already be
		// cancelled, and the lock must still be freed.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if _, err := g.conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", g.key); err != nil {
			// Releasing the connection drops the session lock anyway.
			g.logger.Warn("advisory unlock failed, relying on connection release", "error", err, "key", g.key)
		}
		g.conn.Release()
	})
}

// slotLockKey derives the 64-bit advisory lock key from the slot.
func slotLockKey(providerID uuid.UUID, at time.Time) int64 {
	h := fnv.New64a()
	h.Write(providerID[:])
	h.Write([]byte(strconv.FormatInt(SlotTime(at).Unix(), 10)))
	return int64(h.Sum64())
}
