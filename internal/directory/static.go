package directory

import (
	"context"

	"github.com/google/uuid"
)

// Static is a fixed-answer directory for environments without a
// database. Every provider is bookable with a complete profile and the
// configured fee.
type Static struct {
	FeeCents int64
}

func (s Static) IsProviderBookable(ctx context.Context, providerID uuid.UUID) (bool, error) {
	return true, nil
}

func (s Static) FeeOf(ctx context.Context, providerID uuid.UUID) (int64, error) {
	return s.FeeCents, nil
}

func (s Static) IsProfileComplete(ctx context.Context, providerID uuid.UUID) (bool, error) {
	return true, nil
}
