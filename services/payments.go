package services

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"aquacare/database"
)

// PaymentRefreshResult reports the outcome of one reconciliation pass
type PaymentRefreshResult struct {
	Status              database.PaymentStatus      `json:"status"`
	ServiceRequestID    uint                        `json:"service_request_id"`
	InstallationStatus  database.InstallationStatus `json:"installation_status"`
	SubscriptionCreated bool                        `json:"subscription_created"`
}

// RefreshPaymentStatus reconciles a PAYMENT_PENDING installation service
// request against the payment gateway. It reads the gateway state first
// and only then opens a transaction, so gateway latency never holds
// database locks. The whole operation is idempotent: calling it again
// after success re-verifies local state and returns COMPLETED without
// creating duplicate payments or subscriptions.
func (s *Services) RefreshPaymentStatus(serviceRequestID uint, actor Actor) (*PaymentRefreshResult, error) {
	req, err := s.loadServiceRequest(serviceRequestID)
	if err != nil {
		return nil, err
	}
	if err := CanViewServiceRequest(actor, req); err != nil {
		return nil, err
	}

	if req.InstallationRequestID == nil || req.InstallationRequest == nil {
		return nil, BadRequestError("service request %d has no linked installation request", serviceRequestID)
	}
	inst := req.InstallationRequest

	switch inst.Status {
	case database.InstallationStatusPaymentPending, database.InstallationStatusCompleted:
	default:
		return nil, BadRequestError("installation request is not awaiting payment (status %s)", inst.Status)
	}
	if inst.RazorpaySubscriptionID == "" {
		return nil, BadRequestError("installation request has no gateway subscription")
	}

	// gateway reads happen before any local write
	gatewaySub, err := s.Gateway.FetchSubscription(inst.RazorpaySubscriptionID)
	if err != nil {
		return nil, BadRequestError("failed to fetch subscription from payment gateway")
	}
	invoices, err := s.Gateway.ListInvoices(inst.RazorpaySubscriptionID)
	if err != nil {
		return nil, BadRequestError("failed to fetch invoices from payment gateway")
	}

	var paid *GatewayInvoice
	for i := range invoices {
		if invoices[i].Status == "paid" {
			paid = &invoices[i]
			break
		}
	}
	if paid == nil {
		return &PaymentRefreshResult{
			Status:             database.PaymentStatusPending,
			ServiceRequestID:   req.ID,
			InstallationStatus: inst.Status,
		}, nil
	}

	result := &PaymentRefreshResult{
		Status:           database.PaymentStatusCompleted,
		ServiceRequestID: req.ID,
	}

	txErr := s.DB.Transaction(func(tx *gorm.DB) error {
		var existing database.Payment
		err := tx.Where("installation_request_id = ? AND razorpay_payment_id = ?",
			*req.InstallationRequestID, paid.PaymentID).
			First(&existing).Error
		if err == nil {
			// payment row already exists; promote it to completed if an
			// earlier run recorded it in a non-final state, then repair
			// any missing downstream state
			if existing.Status != database.PaymentStatusCompleted {
				fromStatus := existing.Status
				now := time.Now().UTC()
				if err := tx.Model(&existing).Updates(map[string]interface{}{
					"status":    database.PaymentStatusCompleted,
					"paid_date": now,
				}).Error; err != nil {
					return InternalError(err, "failed to update payment")
				}
				existing.Status = database.PaymentStatusCompleted
				existing.PaidDate = &now

				if err := logAction(tx, &database.ActionHistory{
					ServiceRequestID:      &req.ID,
					InstallationRequestID: req.InstallationRequestID,
					PaymentID:             &existing.ID,
					ActionType:            database.ActionPaymentCompleted,
					FromStatus:            string(fromStatus),
					ToStatus:              string(database.PaymentStatusCompleted),
					PerformedBy:           actor.UserID,
					PerformedByRole:       actor.Role,
					Comment:               fmt.Sprintf("gateway payment %s confirmed", paid.PaymentID),
				}); err != nil {
					return err
				}
			}

			created, repairErr := s.ensureSubscription(tx, req, inst, gatewaySub, &existing, actor)
			if repairErr != nil {
				return repairErr
			}
			result.SubscriptionCreated = created
			result.InstallationStatus = database.InstallationStatusCompleted
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return InternalError(err, "failed to look up payment")
		}

		now := time.Now().UTC()
		payment := database.Payment{
			CustomerID:             inst.CustomerID,
			InstallationRequestID:  req.InstallationRequestID,
			ServiceRequestID:       &req.ID,
			Amount:                 paid.Amount,
			Type:                   database.PaymentTypeInstallation,
			Status:                 database.PaymentStatusCompleted,
			PaymentMethod:          "razorpay",
			RazorpayPaymentID:      paid.PaymentID,
			RazorpaySubscriptionID: inst.RazorpaySubscriptionID,
			PaidDate:               &now,
		}
		if err := tx.Create(&payment).Error; err != nil {
			return InternalError(err, "failed to record payment")
		}

		created, err := s.ensureSubscription(tx, req, inst, gatewaySub, &payment, actor)
		if err != nil {
			return err
		}
		result.SubscriptionCreated = created
		result.InstallationStatus = database.InstallationStatusCompleted

		if err := logAction(tx, &database.ActionHistory{
			ServiceRequestID:      &req.ID,
			InstallationRequestID: req.InstallationRequestID,
			PaymentID:             &payment.ID,
			ActionType:            database.ActionPaymentCompleted,
			ToStatus:              string(database.PaymentStatusCompleted),
			PerformedBy:           actor.UserID,
			PerformedByRole:       actor.Role,
			Comment:               fmt.Sprintf("gateway payment %s confirmed", paid.PaymentID),
		}); err != nil {
			return err
		}
		return nil
	})
	if txErr != nil {
		return nil, asServiceError(txErr, "failed to reconcile payment")
	}

	s.Notifier.Notify(inst.CustomerID, "Payment Received",
		"Your installation payment has been received. Your subscription is now active.",
		"payment", req.ID, "service_request")

	return result, nil
}

// ensureSubscription brings the local records in line with a confirmed
// gateway payment: create the subscription once, stamp the connect id on
// the installation request, and move the installation and service
// request to their completed states. Every step is a no-op when already
// done, so repeated reconciliation converges instead of duplicating.
func (s *Services) ensureSubscription(tx *gorm.DB, req *database.ServiceRequest, inst *database.InstallationRequest, gatewaySub *GatewaySubscription, payment *database.Payment, actor Actor) (bool, error) {
	var sub database.Subscription
	err := tx.Where("request_id = ?", inst.ID).First(&sub).Error
	created := false
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		var product database.Product
		if err := tx.First(&product, inst.ProductID).Error; err != nil {
			return false, InternalError(err, "failed to load product")
		}

		connectID := inst.ConnectID
		if connectID == "" {
			connectID = fmt.Sprintf("AC-%05d", inst.ID)
		}

		now := time.Now().UTC()
		sub = database.Subscription{
			ConnectID:              connectID,
			RequestID:              inst.ID,
			CustomerID:             inst.CustomerID,
			ProductID:              inst.ProductID,
			FranchiseID:            inst.FranchiseID,
			PlanName:               product.PlanName,
			Status:                 database.SubscriptionStatusActive,
			StartDate:              now,
			CurrentPeriodStartDate: gatewaySub.CurrentStart,
			CurrentPeriodEndDate:   gatewaySub.CurrentEnd,
			NextPaymentDate:        gatewaySub.CurrentEnd,
			MonthlyAmount:          product.MonthlyRent,
			DepositAmount:          product.SecurityDeposit,
			RazorpaySubscriptionID: inst.RazorpaySubscriptionID,
		}
		if err := tx.Create(&sub).Error; err != nil {
			return false, InternalError(err, "failed to create subscription")
		}
		created = true

		if err := logAction(tx, &database.ActionHistory{
			SubscriptionID:        &sub.ID,
			InstallationRequestID: &inst.ID,
			ActionType:            database.ActionSubscriptionCreated,
			ToStatus:              string(database.SubscriptionStatusActive),
			PerformedBy:           actor.UserID,
			PerformedByRole:       actor.Role,
			Comment:               fmt.Sprintf("subscription activated with connect id %s", connectID),
		}); err != nil {
			return false, err
		}

		if inst.ConnectID == "" {
			if err := tx.Model(&database.InstallationRequest{}).
				Where("id = ?", inst.ID).
				Update("connect_id", connectID).Error; err != nil {
				return false, InternalError(err, "failed to assign connect id")
			}
			inst.ConnectID = connectID
		}
	case err != nil:
		return false, InternalError(err, "failed to look up subscription")
	}

	if payment.SubscriptionID == nil {
		if err := tx.Model(&database.Payment{}).
			Where("id = ?", payment.ID).
			Update("subscription_id", sub.ID).Error; err != nil {
			return false, InternalError(err, "failed to link payment to subscription")
		}
		payment.SubscriptionID = &sub.ID
	}

	if inst.Status != database.InstallationStatusCompleted {
		now := time.Now().UTC()
		if err := tx.Model(&database.InstallationRequest{}).
			Where("id = ?", inst.ID).
			Updates(map[string]interface{}{
				"status":         database.InstallationStatusCompleted,
				"completed_date": now,
			}).Error; err != nil {
			return false, InternalError(err, "failed to complete installation request")
		}
		if err := logAction(tx, &database.ActionHistory{
			InstallationRequestID: &inst.ID,
			ActionType:            database.ActionInstallationCompleted,
			FromStatus:            string(inst.Status),
			ToStatus:              string(database.InstallationStatusCompleted),
			PerformedBy:           actor.UserID,
			PerformedByRole:       actor.Role,
		}); err != nil {
			return false, err
		}
		inst.Status = database.InstallationStatusCompleted
	}

	if req.Status != database.ServiceStatusCompleted {
		now := time.Now().UTC()
		if err := tx.Model(&database.ServiceRequest{}).
			Where("id = ?", req.ID).
			Updates(map[string]interface{}{
				"status":         database.ServiceStatusCompleted,
				"completed_date": now,
			}).Error; err != nil {
			return false, InternalError(err, "failed to complete service request")
		}
		if err := logAction(tx, &database.ActionHistory{
			ServiceRequestID: &req.ID,
			ActionType:       database.ActionStatusChanged,
			FromStatus:       string(req.Status),
			ToStatus:         string(database.ServiceStatusCompleted),
			PerformedBy:      actor.UserID,
			PerformedByRole:  actor.Role,
			Comment:          "payment confirmed by gateway reconciliation",
		}); err != nil {
			return false, err
		}
		req.Status = database.ServiceStatusCompleted
	}

	return created, nil
}

// ListPayments returns payments visible to the actor, newest first
func (s *Services) ListPayments(actor Actor) ([]database.Payment, error) {
	query := s.DB.Model(&database.Payment{}).Preload("Customer")

	switch actor.Role {
	case database.RoleAdmin:
	case database.RoleFranchiseOwner:
		if actor.FranchiseID == nil {
			return nil, ForbiddenError("franchise owner has no franchise")
		}
		query = query.
			Joins("LEFT JOIN installation_requests ON installation_requests.id = payments.installation_request_id").
			Joins("LEFT JOIN service_requests ON service_requests.id = payments.service_request_id").
			Where("installation_requests.franchise_id = ? OR service_requests.franchise_id = ?",
				*actor.FranchiseID, *actor.FranchiseID)
	case database.RoleCustomer:
		query = query.Where("payments.customer_id = ?", actor.UserID)
	default:
		return nil, ForbiddenError("payments are not visible to this role")
	}

	var payments []database.Payment
	if err := query.Order("payments.created_at DESC").Find(&payments).Error; err != nil {
		return nil, InternalError(err, "failed to load payments")
	}
	return payments, nil
}

// GetPayment returns one payment after an access check
func (s *Services) GetPayment(id uint, actor Actor) (*database.Payment, error) {
	var payment database.Payment
	if err := s.DB.Preload("Customer").First(&payment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFoundError("payment %d not found", id)
		}
		return nil, InternalError(err, "failed to load payment")
	}

	var franchiseID *uint
	if actor.Role == database.RoleFranchiseOwner {
		var err error
		franchiseID, err = s.paymentFranchiseID(&payment)
		if err != nil {
			return nil, err
		}
	}
	if err := CanViewPayment(actor, &payment, franchiseID); err != nil {
		return nil, err
	}
	return &payment, nil
}

// paymentFranchiseID resolves the franchise a payment belongs to through
// its linked installation or service request
func (s *Services) paymentFranchiseID(payment *database.Payment) (*uint, error) {
	if payment.InstallationRequestID != nil {
		var inst database.InstallationRequest
		if err := s.DB.Select("franchise_id").First(&inst, *payment.InstallationRequestID).Error; err != nil {
			return nil, InternalError(err, "failed to load installation request")
		}
		return &inst.FranchiseID, nil
	}
	if payment.ServiceRequestID != nil {
		var req database.ServiceRequest
		if err := s.DB.Select("franchise_id").First(&req, *payment.ServiceRequestID).Error; err != nil {
			return nil, InternalError(err, "failed to load service request")
		}
		return &req.FranchiseID, nil
	}
	return nil, nil
}
