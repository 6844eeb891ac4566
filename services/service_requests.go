package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"aquacare/database"
)

// serviceStatusTransitions is the full transition table of the service
// request state machine. COMPLETED is terminal; CANCELLED is reversible
// back into the active flow.
var serviceStatusTransitions = map[database.ServiceRequestStatus][]database.ServiceRequestStatus{
	database.ServiceStatusCreated: {
		database.ServiceStatusAssigned,
		database.ServiceStatusCancelled,
	},
	database.ServiceStatusAssigned: {
		database.ServiceStatusScheduled,
		database.ServiceStatusCancelled,
		database.ServiceStatusAssigned, // reassign
	},
	database.ServiceStatusScheduled: {
		database.ServiceStatusInProgress,
		database.ServiceStatusCancelled,
	},
	database.ServiceStatusInProgress: {
		database.ServiceStatusPaymentPending,
		database.ServiceStatusCompleted,
		database.ServiceStatusCancelled,
	},
	database.ServiceStatusPaymentPending: {
		database.ServiceStatusCompleted,
		database.ServiceStatusCancelled,
	},
	database.ServiceStatusCompleted: {},
	database.ServiceStatusCancelled: {
		database.ServiceStatusAssigned,
		database.ServiceStatusScheduled,
	},
}

func validTransition(from, to database.ServiceRequestStatus) bool {
	for _, target := range serviceStatusTransitions[from] {
		if target == to {
			return true
		}
	}
	return false
}

func validTargetNames(from database.ServiceRequestStatus) []string {
	targets := serviceStatusTransitions[from]
	names := make([]string, 0, len(targets))
	for _, target := range targets {
		names = append(names, string(target))
	}
	return names
}

// StatusUpdateInput carries the per-status payload of a transition
type StatusUpdateInput struct {
	AgentID       *uint
	ScheduledDate *time.Time
	BeforeImages  []string
	AfterImages   []string
	Comment       string
}

// CreateServiceRequestInput carries the data for a new service request.
// Exactly one of SubscriptionID, InstallationRequestID or neither drives
// franchise resolution.
type CreateServiceRequestInput struct {
	CustomerID            uint
	ProductID             uint
	SubscriptionID        *uint
	InstallationRequestID *uint
	Type                  database.ServiceRequestType
	Description           string
	RequiresPayment       bool
}

// ServiceRequestDetail is the joined representation returned by core
// operations, including the payment status derived from linked records.
type ServiceRequestDetail struct {
	database.ServiceRequest
	PaymentStatus string `json:"payment_status"`
}

// UpdateServiceRequestStatus validates and executes one status
// transition. All writes (service request, installation cascade, audit
// trail) happen in a single transaction; notifications are dispatched
// after commit and never affect the outcome.
func (s *Services) UpdateServiceRequestStatus(id uint, newStatus database.ServiceRequestStatus, actor Actor, input StatusUpdateInput) (*ServiceRequestDetail, error) {
	req, err := s.loadServiceRequest(id)
	if err != nil {
		return nil, err
	}
	if err := CanUpdateServiceRequestStatus(actor, req, newStatus, input.AgentID); err != nil {
		return nil, err
	}
	if !validTransition(req.Status, newStatus) {
		return nil, BadRequestError("invalid transition from %s to %s; valid targets: %s",
			req.Status, newStatus, strings.Join(validTargetNames(req.Status), ", "))
	}

	updates := map[string]interface{}{"status": newStatus}

	switch newStatus {
	case database.ServiceStatusAssigned:
		if input.AgentID == nil {
			return nil, BadRequestError("agent_id is required to assign a service request")
		}
		if err := s.verifyServiceAgent(*input.AgentID, req.FranchiseID); err != nil {
			return nil, err
		}
		if req.Status == database.ServiceStatusCancelled {
			if err := checkReactivation(req); err != nil {
				return nil, err
			}
		}
		updates["assigned_to_id"] = *input.AgentID

	case database.ServiceStatusScheduled:
		if req.AssignedToID == nil {
			return nil, BadRequestError("service request must be assigned before it can be scheduled")
		}
		if req.Status == database.ServiceStatusCancelled {
			if err := checkReactivation(req); err != nil {
				return nil, err
			}
		}
		if input.ScheduledDate == nil {
			return nil, BadRequestError("scheduled_date is required to schedule a service request")
		}
		updates["scheduled_date"] = *input.ScheduledDate

	case database.ServiceStatusInProgress:
		before := input.BeforeImages
		if len(before) == 0 {
			before = req.BeforeImages
		}
		if req.Type == database.ServiceTypeInstallation && len(before) == 0 {
			return nil, BadRequestError("before images are required to start an installation")
		}
		if len(input.BeforeImages) > 0 {
			updates["before_images"] = database.StringArray(input.BeforeImages)
		}

	case database.ServiceStatusPaymentPending:
		if !req.RequiresPayment {
			return nil, BadRequestError("service request does not require payment")
		}
		after := input.AfterImages
		if len(after) == 0 {
			after = req.AfterImages
		}
		if len(after) == 0 {
			return nil, BadRequestError("completion images are required before requesting payment")
		}
		if len(input.AfterImages) > 0 {
			updates["after_images"] = database.StringArray(input.AfterImages)
		}

	case database.ServiceStatusCompleted:
		after := input.AfterImages
		if len(after) == 0 {
			after = req.AfterImages
		}
		if req.InstallationRequestID == nil && len(after) == 0 {
			return nil, BadRequestError("completion images are required to complete a service request")
		}
		if req.RequiresPayment && req.Status == database.ServiceStatusInProgress {
			return nil, BadRequestError("service request requires payment and must go through PAYMENT_PENDING")
		}
		if req.RequiresPayment && req.InstallationRequestID != nil {
			var count int64
			if err := s.DB.Model(&database.Payment{}).
				Where("installation_request_id = ? AND status = ?",
					*req.InstallationRequestID, database.PaymentStatusCompleted).
				Count(&count).Error; err != nil {
				return nil, InternalError(err, "failed to check payment state")
			}
			if count == 0 {
				return nil, BadRequestError("no completed payment found for the linked installation request")
			}
		}
		if len(input.AfterImages) > 0 {
			updates["after_images"] = database.StringArray(input.AfterImages)
		}
		updates["completed_date"] = time.Now().UTC()

	case database.ServiceStatusCancelled:
		// cancellation discards any captured work evidence
		updates["before_images"] = nil
		updates["after_images"] = nil
	}

	fromStatus := req.Status

	txErr := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&database.ServiceRequest{}).
			Where("id = ?", req.ID).
			Updates(updates).Error; err != nil {
			return InternalError(err, "failed to update service request")
		}

		if req.InstallationRequestID != nil && req.InstallationRequest != nil {
			if err := syncInstallationStatus(tx, req.InstallationRequest, newStatus, actor); err != nil {
				return err
			}
		}

		if err := logAction(tx, &database.ActionHistory{
			ServiceRequestID: &req.ID,
			ActionType:       actionForTransition(newStatus, input.AgentID != nil),
			FromStatus:       string(fromStatus),
			ToStatus:         string(newStatus),
			PerformedBy:      actor.UserID,
			PerformedByRole:  actor.Role,
			Comment:          input.Comment,
		}); err != nil {
			return err
		}

		if req.SubscriptionID != nil {
			if err := logAction(tx, &database.ActionHistory{
				SubscriptionID:  req.SubscriptionID,
				ActionType:      database.ActionStatusChanged,
				FromStatus:      string(fromStatus),
				ToStatus:        string(newStatus),
				PerformedBy:     actor.UserID,
				PerformedByRole: actor.Role,
				Comment:         fmt.Sprintf("service request #%d moved to %s", req.ID, newStatus),
			}); err != nil {
				return err
			}
		}

		return nil
	})
	if txErr != nil {
		return nil, asServiceError(txErr, "failed to update service request")
	}

	s.notifyStatusChange(req, newStatus, input)

	return s.GetServiceRequest(req.ID, actor)
}

// AssignServiceRequest assigns an agent on behalf of an admin or
// franchise owner
func (s *Services) AssignServiceRequest(id, agentID uint, actor Actor) (*ServiceRequestDetail, error) {
	if actor.Role != database.RoleAdmin && actor.Role != database.RoleFranchiseOwner {
		return nil, ForbiddenError("only admins and franchise owners can assign service requests")
	}

	req, err := s.loadServiceRequest(id)
	if err != nil {
		return nil, err
	}
	if req.AssignedToID != nil && *req.AssignedToID == agentID {
		return nil, BadRequestError("service request is already assigned to this agent")
	}

	return s.UpdateServiceRequestStatus(id, database.ServiceStatusAssigned, actor, StatusUpdateInput{AgentID: &agentID})
}

// SelfAssignServiceRequest lets a service agent claim an unassigned
// request in their franchise
func (s *Services) SelfAssignServiceRequest(id uint, actor Actor) (*ServiceRequestDetail, error) {
	if actor.Role != database.RoleServiceAgent {
		return nil, ForbiddenError("only service agents can self-assign service requests")
	}

	req, err := s.loadServiceRequest(id)
	if err != nil {
		return nil, err
	}
	if req.AssignedToID != nil {
		return nil, BadRequestError("service request is already assigned")
	}

	agentID := actor.UserID
	return s.UpdateServiceRequestStatus(id, database.ServiceStatusAssigned, actor, StatusUpdateInput{AgentID: &agentID})
}

// CreateServiceRequest creates a new service request in CREATED state.
// The owning franchise is resolved from the linked subscription, the
// linked installation request, or the customer's zip code, in that order.
func (s *Services) CreateServiceRequest(actor Actor, input CreateServiceRequestInput) (*ServiceRequestDetail, error) {
	if input.SubscriptionID != nil && input.InstallationRequestID != nil {
		return nil, BadRequestError("a service request may reference a subscription or an installation request, not both")
	}
	if input.Type == database.ServiceTypeInstallation && input.InstallationRequestID == nil {
		return nil, BadRequestError("installation service requests must reference an installation request")
	}

	customerID := input.CustomerID
	if actor.Role == database.RoleCustomer {
		customerID = actor.UserID
	}
	if customerID == 0 {
		return nil, BadRequestError("customer_id is required")
	}

	req := database.ServiceRequest{
		CustomerID:      customerID,
		Type:            input.Type,
		Description:     input.Description,
		Status:          database.ServiceStatusCreated,
		RequiresPayment: input.RequiresPayment,
	}

	switch {
	case input.SubscriptionID != nil:
		var sub database.Subscription
		if err := s.DB.First(&sub, *input.SubscriptionID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, NotFoundError("subscription %d not found", *input.SubscriptionID)
			}
			return nil, InternalError(err, "failed to load subscription")
		}
		if actor.Role == database.RoleCustomer && sub.CustomerID != actor.UserID {
			return nil, ForbiddenError("subscription doesn't belong to you")
		}
		if sub.Status != database.SubscriptionStatusActive {
			return nil, BadRequestError("cannot create a service request for an inactive subscription")
		}
		req.SubscriptionID = &sub.ID
		req.ProductID = sub.ProductID
		req.FranchiseID = sub.FranchiseID

	case input.InstallationRequestID != nil:
		var inst database.InstallationRequest
		if err := s.DB.First(&inst, *input.InstallationRequestID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, NotFoundError("installation request %d not found", *input.InstallationRequestID)
			}
			return nil, InternalError(err, "failed to load installation request")
		}
		if actor.Role == database.RoleCustomer && inst.CustomerID != actor.UserID {
			return nil, ForbiddenError("installation request doesn't belong to you")
		}
		var count int64
		if err := s.DB.Model(&database.ServiceRequest{}).
			Where("installation_request_id = ?", inst.ID).
			Count(&count).Error; err != nil {
			return nil, InternalError(err, "failed to check installation linkage")
		}
		if count > 0 {
			return nil, ConflictError("a service request already exists for installation request %d", inst.ID)
		}
		req.InstallationRequestID = &inst.ID
		req.CustomerID = inst.CustomerID
		req.ProductID = inst.ProductID
		req.FranchiseID = inst.FranchiseID

	default:
		if input.ProductID == 0 {
			return nil, BadRequestError("product_id is required")
		}
		franchiseID, err := s.resolveFranchiseForCustomer(customerID)
		if err != nil {
			return nil, err
		}
		req.ProductID = input.ProductID
		req.FranchiseID = franchiseID
	}

	txErr := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&req).Error; err != nil {
			return InternalError(err, "failed to create service request")
		}
		return logAction(tx, &database.ActionHistory{
			ServiceRequestID: &req.ID,
			ActionType:       database.ActionServiceRequestCreated,
			ToStatus:         string(database.ServiceStatusCreated),
			PerformedBy:      actor.UserID,
			PerformedByRole:  actor.Role,
		})
	})
	if txErr != nil {
		return nil, asServiceError(txErr, "failed to create service request")
	}

	s.Notifier.Notify(req.CustomerID, "Service Request Created",
		"Your service request has been created and is pending assignment.",
		"service_request", req.ID, "service_request")
	s.notifyFranchiseOwner(req.FranchiseID, "New Service Request",
		"A new service request has been created and needs your attention.", req.ID)

	return s.GetServiceRequest(req.ID, actor)
}

// ListServiceRequests returns service requests visible to the actor,
// newest first
func (s *Services) ListServiceRequests(actor Actor) ([]ServiceRequestDetail, error) {
	query := s.DB.Model(&database.ServiceRequest{}).
		Preload("Customer").
		Preload("Product").
		Preload("Franchise").
		Preload("AssignedTo").
		Preload("InstallationRequest")

	switch actor.Role {
	case database.RoleAdmin:
		// admins see everything
	case database.RoleFranchiseOwner:
		if actor.FranchiseID == nil {
			return nil, ForbiddenError("franchise owner has no franchise")
		}
		query = query.Where("franchise_id = ?", *actor.FranchiseID)
	case database.RoleServiceAgent:
		if actor.FranchiseID != nil {
			query = query.Where("assigned_to_id = ? OR (franchise_id = ? AND status = ?)",
				actor.UserID, *actor.FranchiseID, database.ServiceStatusCreated)
		} else {
			query = query.Where("assigned_to_id = ?", actor.UserID)
		}
	case database.RoleCustomer:
		query = query.Where("customer_id = ?", actor.UserID)
	default:
		return nil, ForbiddenError("invalid role")
	}

	var requests []database.ServiceRequest
	if err := query.Order("created_at DESC").Find(&requests).Error; err != nil {
		return nil, InternalError(err, "failed to load service requests")
	}

	details := make([]ServiceRequestDetail, 0, len(requests))
	for i := range requests {
		status, err := s.paymentStatusFor(&requests[i])
		if err != nil {
			return nil, err
		}
		details = append(details, ServiceRequestDetail{ServiceRequest: requests[i], PaymentStatus: status})
	}
	return details, nil
}

// GetServiceRequest returns the joined representation of one service
// request, including the derived payment status
func (s *Services) GetServiceRequest(id uint, actor Actor) (*ServiceRequestDetail, error) {
	var req database.ServiceRequest
	err := s.DB.
		Preload("Customer").
		Preload("Product").
		Preload("Franchise").
		Preload("AssignedTo").
		Preload("InstallationRequest").
		First(&req, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFoundError("service request %d not found", id)
		}
		return nil, InternalError(err, "failed to load service request")
	}

	if err := CanViewServiceRequest(actor, &req); err != nil {
		return nil, err
	}

	status, err := s.paymentStatusFor(&req)
	if err != nil {
		return nil, err
	}
	return &ServiceRequestDetail{ServiceRequest: req, PaymentStatus: status}, nil
}

func (s *Services) paymentStatusFor(req *database.ServiceRequest) (string, error) {
	if !req.RequiresPayment {
		return "not_required", nil
	}

	query := s.DB.Model(&database.Payment{}).Where("status = ?", database.PaymentStatusCompleted)
	if req.InstallationRequestID != nil {
		query = query.Where("service_request_id = ? OR installation_request_id = ?", req.ID, *req.InstallationRequestID)
	} else {
		query = query.Where("service_request_id = ?", req.ID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return "", InternalError(err, "failed to derive payment status")
	}
	if count > 0 {
		return string(database.PaymentStatusCompleted), nil
	}
	return string(database.PaymentStatusPending), nil
}

func (s *Services) verifyServiceAgent(agentID, franchiseID uint) error {
	var count int64
	if err := s.DB.Model(&database.User{}).
		Where("id = ? AND role = ? AND franchise_id = ?", agentID, database.RoleServiceAgent, franchiseID).
		Count(&count).Error; err != nil {
		return InternalError(err, "failed to verify service agent")
	}
	if count == 0 {
		return BadRequestError("invalid service agent for this franchise")
	}
	return nil
}

func (s *Services) resolveFranchiseForCustomer(customerID uint) (uint, error) {
	var customer database.User
	if err := s.DB.First(&customer, customerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, NotFoundError("customer %d not found", customerID)
		}
		return 0, InternalError(err, "failed to load customer")
	}

	var location database.Location
	if err := s.DB.Where("zip_code = ?", customer.ZipCode).First(&location).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, BadRequestError("no franchise serves zip code %s", customer.ZipCode)
		}
		return 0, InternalError(err, "failed to resolve franchise")
	}
	return location.FranchiseID, nil
}

// checkReactivation guards the CANCELLED -> ASSIGNED/SCHEDULED path: a
// request whose linked installation was independently cancelled stays
// cancelled.
func checkReactivation(req *database.ServiceRequest) error {
	if req.InstallationRequestID != nil && req.InstallationRequest != nil &&
		req.InstallationRequest.Status == database.InstallationStatusCancelled {
		return BadRequestError("cannot reactivate: linked installation request has been cancelled")
	}
	return nil
}

func actionForTransition(newStatus database.ServiceRequestStatus, hasAgent bool) database.ActionType {
	switch {
	case newStatus == database.ServiceStatusAssigned && hasAgent:
		return database.ActionAgentAssigned
	case newStatus == database.ServiceStatusCancelled:
		return database.ActionCancelled
	default:
		return database.ActionStatusChanged
	}
}

func (s *Services) notifyStatusChange(req *database.ServiceRequest, newStatus database.ServiceRequestStatus, input StatusUpdateInput) {
	s.Notifier.Notify(req.CustomerID, "Service Request Updated",
		fmt.Sprintf("Your service request status has been updated to %s.", newStatus),
		"service_request", req.ID, "service_request")

	if input.AgentID != nil {
		s.Notifier.Notify(*input.AgentID, "New Service Assignment",
			fmt.Sprintf("You have been assigned to service request #%d.", req.ID),
			"service_request", req.ID, "service_request")
	}
}

func (s *Services) notifyFranchiseOwner(franchiseID uint, title, message string, relatedID uint) {
	var franchise database.Franchise
	if err := s.DB.First(&franchise, franchiseID).Error; err != nil || franchise.OwnerID == nil {
		return
	}
	s.Notifier.Notify(*franchise.OwnerID, title, message, "service_request", relatedID, "service_request")
}

// asServiceError passes typed service errors through and wraps anything
// else as an internal failure
func asServiceError(err error, message string) error {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr
	}
	return InternalError(err, message)
}
