package services

import (
	"encoding/json"

	"gorm.io/gorm"

	"spendcycle/internal/logger"
	"spendcycle/internal/models"
)

const defaultActor = "user"

type auditService struct {
	db *gorm.DB
}

// NewAuditService creates a new AuditServicer.
func NewAuditService(db *gorm.DB) AuditServicer {
	return &auditService{db: db}
}

// Log records entry. A failed write is logged and dropped: the audited
// mutation has already committed and is not undone by its audit trail.
func (s *auditService) Log(entry AuditEntry) {
	log := logger.ForOwner(entry.Owner).With("action", entry.Action, "resource_id", entry.ResourceID)

	row := &models.AuditLog{
		UserID:       entry.Owner,
		Actor:        entry.Actor,
		Action:       entry.Action,
		ResourceType: entry.ResourceType,
		ResourceID:   entry.ResourceID,
		IPAddress:    entry.IPAddress,
	}
	if row.Actor == "" {
		row.Actor = defaultActor
	}
	if len(entry.Changes) > 0 {
		data, err := json.Marshal(entry.Changes)
		if err != nil {
			log.Warnw("audit changes not serializable", "error", err)
			data = []byte("{}")
		}
		row.Changes = string(data)
	}

	if err := s.db.Create(row).Error; err != nil {
		log.Errorw("failed to write audit log", "error", err)
	}
}
