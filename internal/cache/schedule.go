// Package cache holds the Redis-backed schedule cache. Provider
// schedules are cached as JSON snapshots and dropped on every committed
// lifecycle change.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/HELLO-50/Sahatak-sub003/internal/appointment"
)

// DefaultTTL bounds staleness for snapshots that miss an invalidation.
const DefaultTTL = 5 * time.Minute

// ScheduleCache stores provider schedule snapshots. It implements
// appointment.CacheInvalidator.
type ScheduleCache struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewScheduleCache creates a cache with the default TTL.
func NewScheduleCache(redisClient *redis.Client) *ScheduleCache {
	if redisClient == nil {
		panic("cache: redis client required")
	}
	return &ScheduleCache{redis: redisClient, ttl: DefaultTTL}
}

func (c *ScheduleCache) key(providerID uuid.UUID) string {
	return fmt.Sprintf("schedule:provider:%s", providerID)
}

// Get retrieves a cached schedule. A miss returns (nil, false, nil).
func (c *ScheduleCache) Get(ctx context.Context, providerID uuid.UUID) ([]*appointment.Appointment, bool, error) {
	data, err := c.redis.Get(ctx, c.key(providerID)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache: get schedule: %w", err)
	}

	var appts []*appointment.Appointment
	if err := json.Unmarshal(data, &appts); err != nil {
		return nil, false, fmt.Errorf("cache: unmarshal schedule: %w", err)
	}
	return appts, true, nil
}

// Set stores a schedule snapshot under the provider key.
func (c *ScheduleCache) Set(ctx context.Context, providerID uuid.UUID, appts []*appointment.Appointment) error {
	data, err := json.Marshal(appts)
	if err != nil {
		return fmt.Errorf("cache: marshal schedule: %w", err)
	}
	if err := c.redis.Set(ctx, c.key(providerID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache: set schedule: %w", err)
	}
	return nil
}

// Invalidate drops the provider's snapshot.
func (c *ScheduleCache) Invalidate(ctx context.Context, providerID uuid.UUID) error {
	if err := c.redis.Del(ctx, c.key(providerID)).Err(); err != nil {
		return fmt.Errorf("cache: invalidate schedule: %w", err)
	}
	return nil
}
