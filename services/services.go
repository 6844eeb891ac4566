package services

import (
	"errors"

	"gorm.io/gorm"

	"aquacare/database"
)

// Services bundles the shared dependencies of all core operations: the
// transactional store, the payment gateway client, the post-commit
// notification dispatcher and the view-as session store.
type Services struct {
	DB       *gorm.DB
	Gateway  PaymentGateway
	Notifier *Notifier
	ViewAs   *ViewAsStore
}

// New wires up a Services instance
func New(db *gorm.DB, gateway PaymentGateway, notifier *Notifier, viewAs *ViewAsStore) *Services {
	return &Services{DB: db, Gateway: gateway, Notifier: notifier, ViewAs: viewAs}
}

func (s *Services) loadServiceRequest(id uint) (*database.ServiceRequest, error) {
	var req database.ServiceRequest
	if err := s.DB.Preload("InstallationRequest").First(&req, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFoundError("service request %d not found", id)
		}
		return nil, InternalError(err, "failed to load service request")
	}
	return &req, nil
}
