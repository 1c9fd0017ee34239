package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"glow-backend-go/internal/models"
)

// firestoreRecordRepository implements RecordRepository over any owner-scoped collection.
type firestoreRecordRepository struct {
	client *firestore.Client
	now    func() time.Time
}

// NewFirestoreRecordRepository creates a new instance of firestoreRecordRepository.
func NewFirestoreRecordRepository(client *firestore.Client) RecordRepository {
	return &firestoreRecordRepository{client: client, now: time.Now}
}

// Create adds a document with an auto-generated ID. The caller sets ownerId in data.
func (r *firestoreRecordRepository) Create(ctx context.Context, collection string, data map[string]interface{}) (*models.Record, error) {
	now := r.now().UTC()
	data[models.FieldCreatedAt] = now
	data[models.FieldUpdatedAt] = now

	docRef := r.client.Collection(collection).NewDoc()
	if _, err := docRef.Create(ctx, data); err != nil {
		return nil, fmt.Errorf("failed to create %s record: %w", collection, err)
	}
	return &models.Record{ID: docRef.ID, Data: data}, nil
}

// Get retrieves a document by ID without any ownership check.
func (r *firestoreRecordRepository) Get(ctx context.Context, collection, id string) (*models.Record, error) {
	if id == "" {
		return nil, errors.New("record ID cannot be empty for Get operation")
	}
	docSnap, err := r.client.Collection(collection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("%s record '%s' not found: %w", collection, id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get %s record '%s': %w", collection, id, err)
	}
	return &models.Record{ID: docSnap.Ref.ID, Data: docSnap.Data()}, nil
}

// List returns the owner's documents in insertion order.
func (r *firestoreRecordRepository) List(ctx context.Context, q models.OwnerScopedQuery) ([]*models.Record, error) {
	if q.OwnerID == "" {
		return nil, errors.New("ownerID cannot be empty for List operation")
	}

	iter := ownerQuery(r.client, q).Documents(ctx)
	defer iter.Stop()

	records := make([]*models.Record, 0)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate %s for owner '%s': %w", q.Collection, q.OwnerID, err)
		}
		records = append(records, &models.Record{ID: doc.Ref.ID, Data: doc.Data()})
	}
	return records, nil
}

// Update merges data into an existing document and refreshes updatedAt.
func (r *firestoreRecordRepository) Update(ctx context.Context, collection, id string, data map[string]interface{}) error {
	if id == "" {
		return errors.New("record ID cannot be empty for Update operation")
	}
	data[models.FieldUpdatedAt] = r.now().UTC()
	if _, err := r.client.Collection(collection).Doc(id).Set(ctx, data, firestore.MergeAll); err != nil {
		return fmt.Errorf("failed to update %s record '%s': %w", collection, id, err)
	}
	return nil
}

// Delete removes a document.
func (r *firestoreRecordRepository) Delete(ctx context.Context, collection, id string) error {
	if id == "" {
		return errors.New("record ID cannot be empty for Delete operation")
	}
	if _, err := r.client.Collection(collection).Doc(id).Delete(ctx); err != nil {
		if status.Code(err) == codes.NotFound {
			return fmt.Errorf("%s record '%s' not found for deletion: %w", collection, id, ErrNotFound)
		}
		return fmt.Errorf("failed to delete %s record '%s': %w", collection, id, err)
	}
	return nil
}

// ownerQuery builds collection where ownerId == owner [and field == value] ordered by createdAt.
func ownerQuery(client *firestore.Client, q models.OwnerScopedQuery) firestore.Query {
	query := client.Collection(q.Collection).Where(models.FieldOwnerID, "==", q.OwnerID)
	if q.Filter != nil && q.Filter.Field != "" {
		query = query.Where(q.Filter.Field, "==", q.Filter.Value)
	}
	return query.OrderBy(models.FieldCreatedAt, firestore.Asc)
}
