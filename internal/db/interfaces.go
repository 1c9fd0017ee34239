package db

import (
	"context"

	"glow-backend-go/internal/models"
)

// UserRepository defines the interface for user data storage operations.
type UserRepository interface {
	GetByID(ctx context.Context, userID string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
}

// PlanRepository stores one UserPlanRecord per user.
type PlanRepository interface {
	Get(ctx context.Context, userID string) (*models.UserPlanRecord, error)
	// Put replaces the whole document; no fields of an older record survive.
	Put(ctx context.Context, record *models.UserPlanRecord) error
}

// RecordRepository provides owner-scoped CRUD over the salon data collections.
type RecordRepository interface {
	Create(ctx context.Context, collection string, data map[string]interface{}) (*models.Record, error)
	Get(ctx context.Context, collection, id string) (*models.Record, error)
	List(ctx context.Context, query models.OwnerScopedQuery) ([]*models.Record, error)
	Update(ctx context.Context, collection, id string, data map[string]interface{}) error
	Delete(ctx context.Context, collection, id string) error
}

// AuditRepository defines the interface for audit log storage.
type AuditRepository interface {
	Create(ctx context.Context, logEntry models.AuditLog) error
}

// SnapshotStream yields the full result set of a live query each time it changes.
type SnapshotStream interface {
	// Next blocks until the next result set is available or the stream fails.
	Next() ([]models.Record, error)
	// Stop releases the listener. It may be called while Next is blocked.
	Stop()
}

// LiveSource opens live queries against the document store.
type LiveSource interface {
	Listen(ctx context.Context, query models.OwnerScopedQuery) (SnapshotStream, error)
}
