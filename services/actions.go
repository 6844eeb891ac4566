package services

import (
	"time"

	"gorm.io/gorm"

	"aquacare/database"
)

// logAction appends an audit trail entry using the caller's transaction
// handle, so the entry commits or rolls back together with the entity
// mutation it records. Entries must reference at least one owning entity.
func logAction(tx *gorm.DB, entry *database.ActionHistory) error {
	if !entry.HasEntityRef() {
		return BadRequestError("action history entry requires at least one entity reference")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if err := tx.Create(entry).Error; err != nil {
		return InternalError(err, "failed to write action history")
	}
	return nil
}

// ListServiceRequestHistory returns the audit trail for a service request,
// oldest first.
func (s *Services) ListServiceRequestHistory(serviceRequestID uint, actor Actor) ([]database.ActionHistory, error) {
	req, err := s.loadServiceRequest(serviceRequestID)
	if err != nil {
		return nil, err
	}
	if err := CanViewServiceRequest(actor, req); err != nil {
		return nil, err
	}

	var entries []database.ActionHistory
	query := s.DB.Where("service_request_id = ?", serviceRequestID)
	if req.InstallationRequestID != nil {
		query = s.DB.Where("service_request_id = ? OR installation_request_id = ?",
			serviceRequestID, *req.InstallationRequestID)
	}
	if err := query.Order("created_at ASC, id ASC").Find(&entries).Error; err != nil {
		return nil, InternalError(err, "failed to load action history")
	}
	return entries, nil
}
