package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"glow-backend-go/internal/db"
	"glow-backend-go/internal/models"
)

var (
	ErrUnknownCollection   = errors.New("unknown collection")
	ErrRecordNotFound      = errors.New("record not found")
	ErrRecordForbidden     = errors.New("record belongs to another owner")
	ErrOwnerRequired       = errors.New("owner ID is required")
	ErrInvalidRecordFilter = errors.New("invalid record filter")
)

// reservedFields are managed by the server and stripped from client payloads.
var reservedFields = []string{"id", models.FieldOwnerID, models.FieldCreatedAt, models.FieldUpdatedAt}

type recordService struct {
	recordRepo   db.RecordRepository
	auditService AuditService
	logger       *zap.Logger
}

// NewRecordService creates a RecordService. auditService may be nil.
func NewRecordService(recordRepo db.RecordRepository, auditService AuditService, logger *zap.Logger) RecordService {
	return &recordService{
		recordRepo:   recordRepo,
		auditService: auditService,
		logger:       logger,
	}
}

func (s *recordService) Create(ctx context.Context, ownerID, collection string, data map[string]interface{}) (*models.Record, error) {
	if err := checkScope(ownerID, collection); err != nil {
		return nil, err
	}

	// The owner always comes from the authenticated caller, never from the payload.
	doc := sanitize(data)
	doc[models.FieldOwnerID] = ownerID
	record, err := s.recordRepo.Create(ctx, collection, doc)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s record: %w", collection, err)
	}

	s.audit(ctx, ownerID, AuditActionRecordCreate, collection, record.ID, map[string]interface{}{"fields": len(doc)})
	return record, nil
}

func (s *recordService) List(ctx context.Context, query models.OwnerScopedQuery) ([]*models.Record, error) {
	if err := checkScope(query.OwnerID, query.Collection); err != nil {
		return nil, err
	}
	if query.Filter != nil && (query.Filter.Field == "" || isReserved(query.Filter.Field)) {
		return nil, fmt.Errorf("%w: cannot filter on %q", ErrInvalidRecordFilter, query.Filter.Field)
	}
	records, err := s.recordRepo.List(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s records: %w", query.Collection, err)
	}
	return records, nil
}

func (s *recordService) Get(ctx context.Context, ownerID, collection, id string) (*models.Record, error) {
	if err := checkScope(ownerID, collection); err != nil {
		return nil, err
	}
	return s.owned(ctx, ownerID, collection, id)
}

// Update merges data into the record and returns the merged document.
func (s *recordService) Update(ctx context.Context, ownerID, collection, id string, data map[string]interface{}) (*models.Record, error) {
	if err := checkScope(ownerID, collection); err != nil {
		return nil, err
	}
	existing, err := s.owned(ctx, ownerID, collection, id)
	if err != nil {
		return nil, err
	}

	// ownerId and timestamps cannot be changed through an update.
	changes := sanitize(data)
	if err := s.recordRepo.Update(ctx, collection, id, changes); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s/%s", ErrRecordNotFound, collection, id)
		}
		return nil, fmt.Errorf("failed to update %s record '%s': %w", collection, id, err)
	}

	// Return the merged document without a second read.
	for k, v := range changes {
		existing.Data[k] = v
	}
	s.audit(ctx, ownerID, AuditActionRecordUpdate, collection, id, map[string]interface{}{"fields": len(changes)})
	return existing, nil
}

func (s *recordService) Delete(ctx context.Context, ownerID, collection, id string) error {
	if err := checkScope(ownerID, collection); err != nil {
		return err
	}
	if _, err := s.owned(ctx, ownerID, collection, id); err != nil {
		return err
	}
	if err := s.recordRepo.Delete(ctx, collection, id); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return fmt.Errorf("%w: %s/%s", ErrRecordNotFound, collection, id)
		}
		return fmt.Errorf("failed to delete %s record '%s': %w", collection, id, err)
	}
	s.audit(ctx, ownerID, AuditActionRecordDelete, collection, id, nil)
	return nil
}

// owned loads a record and verifies it belongs to ownerID.
func (s *recordService) owned(ctx context.Context, ownerID, collection, id string) (*models.Record, error) {
	record, err := s.recordRepo.Get(ctx, collection, id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s/%s", ErrRecordNotFound, collection, id)
		}
		return nil, fmt.Errorf("failed to get %s record '%s': %w", collection, id, err)
	}
	if record.OwnerID() != ownerID {
		return nil, ErrRecordForbidden
	}
	return record, nil
}

func (s *recordService) audit(ctx context.Context, ownerID, action, collection, id string, details map[string]interface{}) {
	if s.auditService == nil {
		return
	}
	entry := models.AuditLog{
		UserID:     ownerID,
		Action:     action,
		TargetType: collection,
		TargetID:   id,
		Timestamp:  time.Now().UTC(),
		Details:    details,
	}
	if err := s.auditService.CreateAuditLog(ctx, entry); err != nil {
		// audit failures never fail the mutation
		s.logger.Warn("Failed to write audit log",
			zap.String("action", action),
			zap.String("targetID", id),
			zap.Error(err))
	}
}

func checkScope(ownerID, collection string) error {
	if ownerID == "" {
		return ErrOwnerRequired
	}
	if !models.IsOwnerScopedCollection(collection) {
		return fmt.Errorf("%w: %q", ErrUnknownCollection, collection)
	}
	return nil
}

// sanitize copies data without the server-managed fields.
func sanitize(data map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(data)+3)
	for k, v := range data {
		if isReserved(k) {
			continue
		}
		out[k] = v
	}
	return out
}

func isReserved(field string) bool {
	for _, f := range reservedFields {
		if f == field {
			return true
		}
	}
	return false
}
