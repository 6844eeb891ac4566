package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"aquacare/database"
)

// CreateInstallationRequestInput carries a new installation request from
// a customer
type CreateInstallationRequestInput struct {
	ProductID uint
	ZipCode   string
}

// CreateInstallationRequest registers a customer's request to have a
// product installed. The owning franchise is resolved from the zip code.
func (s *Services) CreateInstallationRequest(actor Actor, input CreateInstallationRequestInput) (*database.InstallationRequest, error) {
	if actor.Role != database.RoleCustomer {
		return nil, ForbiddenError("only customers can request installations")
	}

	var product database.Product
	if err := s.DB.First(&product, input.ProductID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFoundError("product %d not found", input.ProductID)
		}
		return nil, InternalError(err, "failed to load product")
	}
	if !product.IsActive {
		return nil, BadRequestError("product is not available")
	}

	zipCode := input.ZipCode
	if zipCode == "" {
		var customer database.User
		if err := s.DB.First(&customer, actor.UserID).Error; err != nil {
			return nil, InternalError(err, "failed to load customer")
		}
		zipCode = customer.ZipCode
	}

	var location database.Location
	if err := s.DB.Where("zip_code = ?", zipCode).First(&location).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, BadRequestError("no franchise serves zip code %s", zipCode)
		}
		return nil, InternalError(err, "failed to resolve franchise")
	}

	inst := database.InstallationRequest{
		CustomerID:  actor.UserID,
		ProductID:   input.ProductID,
		FranchiseID: location.FranchiseID,
		Status:      database.InstallationStatusCreated,
	}
	if err := s.DB.Create(&inst).Error; err != nil {
		return nil, InternalError(err, "failed to create installation request")
	}

	s.notifyFranchiseOwner(inst.FranchiseID, "New Installation Request",
		fmt.Sprintf("A customer has requested installation of %s.", product.Name), inst.ID)

	return &inst, nil
}

// ApproveInstallationRequest approves a pending installation request:
// it creates the gateway subscription with its payment link, moves the
// request to APPROVED, and opens the linked installation service request
// that drives the rest of the flow.
func (s *Services) ApproveInstallationRequest(id uint, actor Actor) (*database.InstallationRequest, error) {
	if actor.Role != database.RoleAdmin && actor.Role != database.RoleFranchiseOwner {
		return nil, ForbiddenError("only admins and franchise owners can approve installation requests")
	}

	var inst database.InstallationRequest
	if err := s.DB.Preload("Product").First(&inst, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFoundError("installation request %d not found", id)
		}
		return nil, InternalError(err, "failed to load installation request")
	}
	if actor.Role == database.RoleFranchiseOwner && !actor.inFranchise(inst.FranchiseID) {
		return nil, ForbiddenError("installation request belongs to another franchise")
	}
	if inst.Status != database.InstallationStatusCreated {
		return nil, BadRequestError("installation request is not pending approval (status %s)", inst.Status)
	}
	if inst.Product.PlanName == "" {
		return nil, BadRequestError("product has no billing plan configured")
	}

	// the gateway call happens before the transaction; a failure here
	// leaves the request untouched in CREATED
	link, err := s.Gateway.CreateSubscription(inst.Product.PlanName, 12, map[string]interface{}{
		"installation_request_id": fmt.Sprintf("%d", inst.ID),
		"customer_id":             fmt.Sprintf("%d", inst.CustomerID),
	})
	if err != nil {
		return nil, BadRequestError("failed to create subscription with payment gateway")
	}

	txErr := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&database.InstallationRequest{}).
			Where("id = ?", inst.ID).
			Updates(map[string]interface{}{
				"status":                   database.InstallationStatusApproved,
				"razorpay_subscription_id": link.SubscriptionID,
				"razorpay_payment_link":    link.ShortURL,
			}).Error; err != nil {
			return InternalError(err, "failed to approve installation request")
		}

		req := database.ServiceRequest{
			CustomerID:            inst.CustomerID,
			ProductID:             inst.ProductID,
			InstallationRequestID: &inst.ID,
			Type:                  database.ServiceTypeInstallation,
			Description:           fmt.Sprintf("Installation of %s", inst.Product.Name),
			Status:                database.ServiceStatusCreated,
			FranchiseID:           inst.FranchiseID,
			RequiresPayment:       true,
		}
		if err := tx.Create(&req).Error; err != nil {
			return InternalError(err, "failed to create installation service request")
		}

		if err := logAction(tx, &database.ActionHistory{
			InstallationRequestID: &inst.ID,
			ActionType:            database.ActionStatusChanged,
			FromStatus:            string(database.InstallationStatusCreated),
			ToStatus:              string(database.InstallationStatusApproved),
			PerformedBy:           actor.UserID,
			PerformedByRole:       actor.Role,
		}); err != nil {
			return err
		}
		return logAction(tx, &database.ActionHistory{
			ServiceRequestID:      &req.ID,
			InstallationRequestID: &inst.ID,
			ActionType:            database.ActionServiceRequestCreated,
			ToStatus:              string(database.ServiceStatusCreated),
			PerformedBy:           actor.UserID,
			PerformedByRole:       actor.Role,
		})
	})
	if txErr != nil {
		return nil, asServiceError(txErr, "failed to approve installation request")
	}

	s.Notifier.Notify(inst.CustomerID, "Installation Approved",
		"Your installation request has been approved. Complete the payment to schedule installation.",
		"installation_request", inst.ID, "installation_request")

	return s.GetInstallationRequest(inst.ID, actor)
}

// RejectInstallationRequest cancels a pending installation request
func (s *Services) RejectInstallationRequest(id uint, actor Actor, reason string) (*database.InstallationRequest, error) {
	if actor.Role != database.RoleAdmin && actor.Role != database.RoleFranchiseOwner {
		return nil, ForbiddenError("only admins and franchise owners can reject installation requests")
	}

	var inst database.InstallationRequest
	if err := s.DB.First(&inst, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFoundError("installation request %d not found", id)
		}
		return nil, InternalError(err, "failed to load installation request")
	}
	if actor.Role == database.RoleFranchiseOwner && !actor.inFranchise(inst.FranchiseID) {
		return nil, ForbiddenError("installation request belongs to another franchise")
	}
	if inst.Status != database.InstallationStatusCreated {
		return nil, BadRequestError("installation request is not pending approval (status %s)", inst.Status)
	}

	txErr := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&database.InstallationRequest{}).
			Where("id = ?", inst.ID).
			Update("status", database.InstallationStatusCancelled).Error; err != nil {
			return InternalError(err, "failed to reject installation request")
		}
		return logAction(tx, &database.ActionHistory{
			InstallationRequestID: &inst.ID,
			ActionType:            database.ActionCancelled,
			FromStatus:            string(database.InstallationStatusCreated),
			ToStatus:              string(database.InstallationStatusCancelled),
			PerformedBy:           actor.UserID,
			PerformedByRole:       actor.Role,
			Comment:               reason,
		})
	})
	if txErr != nil {
		return nil, asServiceError(txErr, "failed to reject installation request")
	}

	s.Notifier.Notify(inst.CustomerID, "Installation Request Rejected",
		"Your installation request could not be approved.",
		"installation_request", inst.ID, "installation_request")

	return s.GetInstallationRequest(inst.ID, actor)
}

// ListInstallationRequests returns installation requests visible to the
// actor, newest first
func (s *Services) ListInstallationRequests(actor Actor) ([]database.InstallationRequest, error) {
	query := s.DB.Model(&database.InstallationRequest{}).
		Preload("Customer").
		Preload("Product").
		Preload("Franchise")

	switch actor.Role {
	case database.RoleAdmin:
	case database.RoleFranchiseOwner, database.RoleServiceAgent:
		if actor.FranchiseID == nil {
			return nil, ForbiddenError("user has no franchise")
		}
		query = query.Where("franchise_id = ?", *actor.FranchiseID)
	case database.RoleCustomer:
		query = query.Where("customer_id = ?", actor.UserID)
	default:
		return nil, ForbiddenError("invalid role")
	}

	var requests []database.InstallationRequest
	if err := query.Order("created_at DESC").Find(&requests).Error; err != nil {
		return nil, InternalError(err, "failed to load installation requests")
	}
	return requests, nil
}

// GetInstallationRequest returns one installation request after an
// access check
func (s *Services) GetInstallationRequest(id uint, actor Actor) (*database.InstallationRequest, error) {
	var inst database.InstallationRequest
	err := s.DB.
		Preload("Customer").
		Preload("Product").
		Preload("Franchise").
		First(&inst, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFoundError("installation request %d not found", id)
		}
		return nil, InternalError(err, "failed to load installation request")
	}
	if err := CanViewInstallationRequest(actor, &inst); err != nil {
		return nil, err
	}
	return &inst, nil
}
