package db

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"

	"glow-backend-go/internal/models"
)

const auditLogsCollection = "auditLogs"

type firestoreAuditRepository struct {
	client *firestore.Client
}

// NewFirestoreAuditRepository creates an AuditRepository writing to the auditLogs collection.
func NewFirestoreAuditRepository(client *firestore.Client) AuditRepository {
	return &firestoreAuditRepository{client: client}
}

func (r *firestoreAuditRepository) Create(ctx context.Context, logEntry models.AuditLog) error {
	if _, _, err := r.client.Collection(auditLogsCollection).Add(ctx, logEntry); err != nil {
		return fmt.Errorf("failed to create audit log (action %s): %w", logEntry.Action, err)
	}
	return nil
}
