package models

import "time"

// AuditLog records a mutation of salon data.
type AuditLog struct {
	ID         string                 `json:"id" firestore:"-"`
	Timestamp  time.Time              `json:"timestamp" firestore:"timestamp,serverTimestamp"`
	UserID     string                 `json:"userId" firestore:"userId"`
	Action     string                 `json:"action" firestore:"action"` // RECORD_CREATE, RECORD_UPDATE, RECORD_DELETE
	TargetType string                 `json:"targetType,omitempty" firestore:"targetType,omitempty"`
	TargetID   string                 `json:"targetId,omitempty" firestore:"targetId,omitempty"`
	IPAddress  string                 `json:"ipAddress,omitempty" firestore:"ipAddress,omitempty"`
	UserAgent  string                 `json:"userAgent,omitempty" firestore:"userAgent,omitempty"`
	Details    map[string]interface{} `json:"details,omitempty" firestore:"details,omitempty"`
}
