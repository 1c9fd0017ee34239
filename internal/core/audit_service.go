package core

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"glow-backend-go/internal/db"
	"glow-backend-go/internal/models"
)

// Audit actions recorded for salon data mutations.
const (
	AuditActionRecordCreate = "RECORD_CREATE"
	AuditActionRecordUpdate = "RECORD_UPDATE"
	AuditActionRecordDelete = "RECORD_DELETE"
)

type auditService struct {
	auditRepo db.AuditRepository
	logger    *zap.Logger
}

// NewAuditService creates a new AuditService instance.
func NewAuditService(auditRepo db.AuditRepository, logger *zap.Logger) AuditService {
	return &auditService{
		auditRepo: auditRepo,
		logger:    logger,
	}
}

// CreateAuditLog stores one audit entry.
// It delegates the actual storage to the AuditRepository.
func (s *auditService) CreateAuditLog(ctx context.Context, logEntry models.AuditLog) error {
	if s.auditRepo == nil {
		return fmt.Errorf("AuditRepository not initialized in AuditService")
	}

	if err := s.auditRepo.Create(ctx, logEntry); err != nil {
		return fmt.Errorf("failed to create audit log via repository: %w", err)
	}
	s.logger.Debug("Audit log written",
		zap.String("action", logEntry.Action),
		zap.String("userID", logEntry.UserID),
		zap.String("targetType", logEntry.TargetType),
		zap.String("targetID", logEntry.TargetID))
	return nil
}
