// Package directory reads provider profiles for booking checks. The
// booking engine only asks three questions of a profile: is the
// provider bookable, what do they charge, and is the profile complete.
package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/HELLO-50/Sahatak-sub003/internal/appointment"
	"github.com/HELLO-50/Sahatak-sub003/pkg/logging"
)

// profileTTL bounds how stale a cached profile may get.
const profileTTL = 10 * time.Minute

// Profile is the provider record the booking engine consults.
type Profile struct {
	ID                uuid.UUID `json:"id"`
	DisplayName       string    `json:"display_name"`
	Specialty         string    `json:"specialty"`
	FeeCents          int64     `json:"fee_cents"`
	AcceptingBookings bool      `json:"accepting_bookings"`
	Verified          bool      `json:"verified"`
	ProfileComplete   bool      `json:"profile_complete"`
}

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Directory reads profiles from Postgres with a Redis read-through
// cache. It implements appointment.ProfileDirectory.
type Directory struct {
	db     rowQuerier
	redis  *redis.Client
	logger *logging.Logger
}

// NewDirectory creates a directory. The Redis client may be nil; reads
// then always hit the database.
func NewDirectory(pool *pgxpool.Pool, redisClient *redis.Client, logger *logging.Logger) *Directory {
	if pool == nil {
		panic("directory: pgx pool required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Directory{db: pool, redis: redisClient, logger: logger}
}

func newDirectoryWithQuerier(q rowQuerier, redisClient *redis.Client, logger *logging.Logger) *Directory {
	if logger == nil {
		logger = logging.Default()
	}
	return &Directory{db: q, redis: redisClient, logger: logger}
}

func (d *Directory) key(providerID uuid.UUID) string {
	return fmt.Sprintf("directory:provider:%s", providerID)
}

// Get returns the provider's profile, ErrNotFound when the provider
// does not exist.
func (d *Directory) Get(ctx context.Context, providerID uuid.UUID) (*Profile, error) {
	if cached := d.fromCache(ctx, providerID); cached != nil {
		return cached, nil
	}

	query := `
		SELECT id, COALESCE(display_name, ''), COALESCE(specialty, ''), fee_cents,
			   accepting_bookings, verified, profile_complete
		FROM provider_profiles
		WHERE id = $1
	`
	var p Profile
	err := d.db.QueryRow(ctx, query, providerID).Scan(
		&p.ID,
		&p.DisplayName,
		&p.Specialty,
		&p.FeeCents,
		&p.AcceptingBookings,
		&p.Verified,
		&p.ProfileComplete,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, appointment.ErrNotFound
		}
		return nil, fmt.Errorf("directory: get profile: %w", err)
	}

	d.toCache(ctx, &p)
	return &p, nil
}

// IsProviderBookable reports whether the provider accepts new bookings.
// Unverified providers are never bookable. An unknown provider is
// simply not bookable rather than an error.
func (d *Directory) IsProviderBookable(ctx context.Context, providerID uuid.UUID) (bool, error) {
	p, err := d.Get(ctx, providerID)
	if errors.Is(err, appointment.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return p.Verified && p.AcceptingBookings, nil
}

// FeeOf returns the provider's consultation fee in cents.
func (d *Directory) FeeOf(ctx context.Context, providerID uuid.UUID) (int64, error) {
	p, err := d.Get(ctx, providerID)
	if err != nil {
		return 0, err
	}
	return p.FeeCents, nil
}

// IsProfileComplete reports whether the provider finished onboarding.
func (d *Directory) IsProfileComplete(ctx context.Context, providerID uuid.UUID) (bool, error) {
	p, err := d.Get(ctx, providerID)
	if err != nil {
		return false, err
	}
	return p.ProfileComplete, nil
}

func (d *Directory) fromCache(ctx context.Context, providerID uuid.UUID) *Profile {
	if d.redis == nil {
		return nil
	}
	data, err := d.redis.Get(ctx, d.key(providerID)).Bytes()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		d.logger.Warn("directory cache read failed", "error", err, "provider_id", providerID)
		return nil
	}
	var p Profile
	if err := json.Unmarshal(data, &p); err != nil {
		d.logger.Warn("directory cache decode failed", "error", err, "provider_id", providerID)
		return nil
	}
	return &p
}

func (d *Directory) toCache(ctx context.Context, p *Profile) {
	if d.redis == nil {
		return
	}
	data, err := json.Marshal(p)
	if err != nil {
		return
	}
	if err := d.redis.Set(ctx, d.key(p.ID), data, profileTTL).Err(); err != nil {
		d.logger.Warn("directory cache write failed", "error", err, "provider_id", p.ID)
	}
}
