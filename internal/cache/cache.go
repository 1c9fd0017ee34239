package cache

import (
	"context"

	"glow-backend-go/internal/models"
)

// PlanCache holds effective plan records in front of the userPlans collection.
// A miss returns (nil, nil).
type PlanCache interface {
	Get(ctx context.Context, userID string) (*models.UserPlanRecord, error)
	// Set stores record, replacing any entry. Used after a plan write.
	Set(ctx context.Context, record *models.UserPlanRecord) error
	// SetIfAbsent stores record only when no entry exists. Used to fill after a
	// store read, so a record read before a concurrent write never replaces it.
	SetIfAbsent(ctx context.Context, record *models.UserPlanRecord) error
	Delete(ctx context.Context, userID string) error
}

// NoopCache never stores anything. Used when Redis is not configured.
type NoopCache struct{}

func (NoopCache) Get(context.Context, string) (*models.UserPlanRecord, error) { return nil, nil }
func (NoopCache) Set(context.Context, *models.UserPlanRecord) error { return nil }
func (NoopCache) SetIfAbsent(context.Context, *models.UserPlanRecord) error { return nil }
func (NoopCache) Delete(context.Context, string) error { return nil }
