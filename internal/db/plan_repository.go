package db

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"glow-backend-go/internal/models"
)

const userPlansCollection = "userPlans"

type firestorePlanRepository struct {
	client *firestore.Client
}

// NewFirestorePlanRepository stores plan records under userPlans/{userId}.
func NewFirestorePlanRepository(client *firestore.Client) PlanRepository {
	return &firestorePlanRepository{client: client}
}

func (r *firestorePlanRepository) Get(ctx context.Context, userID string) (*models.UserPlanRecord, error) {
	if userID == "" {
		return nil, errors.New("userID cannot be empty for plan Get operation")
	}
	docSnap, err := r.client.Collection(userPlansCollection).Doc(userID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("plan for user '%s' not found: %w", userID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get plan for user '%s': %w", userID, err)
	}

	var record models.UserPlanRecord
	if err := docSnap.DataTo(&record); err != nil {
		return nil, fmt.Errorf("failed to decode plan for user '%s': %w", userID, err)
	}
	record.UserID = docSnap.Ref.ID
	return &record, nil
}

// Put overwrites the document without MergeAll so the stored record is exactly record.
func (r *firestorePlanRepository) Put(ctx context.Context, record *models.UserPlanRecord) error {
	if record.UserID == "" {
		return errors.New("userID cannot be empty for plan Put operation")
	}
	if _, err := r.client.Collection(userPlansCollection).Doc(record.UserID).Set(ctx, record); err != nil {
		return fmt.Errorf("failed to write plan for user '%s': %w", record.UserID, err)
	}
	return nil
}
