package db

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"

	"glow-backend-go/internal/models"
)

// firestoreLiveSource opens Firestore real-time listeners.
type firestoreLiveSource struct {
	client *firestore.Client
}

// NewFirestoreLiveSource creates a LiveSource backed by Query.Snapshots.
func NewFirestoreLiveSource(client *firestore.Client) LiveSource {
	return &firestoreLiveSource{client: client}
}

// Listen registers a snapshot listener for q. Every query is constrained to q.OwnerID.
func (s *firestoreLiveSource) Listen(ctx context.Context, q models.OwnerScopedQuery) (SnapshotStream, error) {
	if q.Collection == "" {
		return nil, errors.New("collection cannot be empty for Listen")
	}
	if q.OwnerID == "" {
		return nil, errors.New("ownerID cannot be empty for Listen")
	}
	listenCtx, cancel := context.WithCancel(ctx)
	return &firestoreSnapshotStream{
		collection: q.Collection,
		iter:       ownerQuery(s.client, q).Snapshots(listenCtx),
		cancel:     cancel,
	}, nil
}

// firestoreSnapshotStream must only call iter.Stop from the goroutine running Next,
// so Stop cancels the listen context and Next releases the iterator once it fails.
type firestoreSnapshotStream struct {
	collection string
	iter       *firestore.QuerySnapshotIterator
	cancel     context.CancelFunc
}

func (s *firestoreSnapshotStream) Next() ([]models.Record, error) {
	snap, err := s.iter.Next()
	if err != nil {
		s.iter.Stop()
		return nil, fmt.Errorf("%s listener: %w", s.collection, err)
	}
	docs, err := snap.Documents.GetAll()
	if err != nil {
		return nil, fmt.Errorf("%s listener: reading snapshot: %w", s.collection, err)
	}
	records := make([]models.Record, 0, len(docs))
	for _, doc := range docs {
		records = append(records, models.Record{ID: doc.Ref.ID, Data: doc.Data()})
	}
	return records, nil
}

// Stop may be called while Next is blocked; Next then returns an error.
func (s *firestoreSnapshotStream) Stop() {
	s.cancel()
}
