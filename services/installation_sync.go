package services

import (
	"time"

	"gorm.io/gorm"

	"aquacare/database"
)

// installationCascade maps a service request status to the installation
// request status and audit action it implies. Unmapped statuses are
// no-ops.
var installationCascade = map[database.ServiceRequestStatus]struct {
	Status database.InstallationStatus
	Action database.ActionType
}{
	database.ServiceStatusScheduled:      {database.InstallationStatusScheduled, database.ActionInstallationScheduled},
	database.ServiceStatusInProgress:     {database.InstallationStatusInProgress, database.ActionInstallationStarted},
	database.ServiceStatusPaymentPending: {database.InstallationStatusPaymentPending, database.ActionPaymentPending},
	database.ServiceStatusCompleted:      {database.InstallationStatusCompleted, database.ActionInstallationCompleted},
	database.ServiceStatusCancelled:      {database.InstallationStatusCancelled, database.ActionCancelled},
}

// syncInstallationStatus cascades a service request status change onto
// the linked installation request. It runs entirely inside the caller's
// transaction handle and never opens its own.
func syncInstallationStatus(tx *gorm.DB, inst *database.InstallationRequest, srStatus database.ServiceRequestStatus, actor Actor) error {
	cascade, ok := installationCascade[srStatus]
	if !ok {
		return nil
	}

	fromStatus := inst.Status
	updates := map[string]interface{}{"status": cascade.Status}

	switch cascade.Status {
	case database.InstallationStatusCompleted:
		now := time.Now().UTC()
		updates["completed_date"] = now
		inst.CompletedDate = &now
	case database.InstallationStatusCancelled:
		// a cancelled installation must not keep a live payment link
		updates["razorpay_subscription_id"] = ""
		updates["razorpay_payment_link"] = ""
		inst.RazorpaySubscriptionID = ""
		inst.RazorpayPaymentLink = ""
	}

	if err := tx.Model(&database.InstallationRequest{}).
		Where("id = ?", inst.ID).
		Updates(updates).Error; err != nil {
		return InternalError(err, "failed to sync installation request status")
	}
	inst.Status = cascade.Status

	return logAction(tx, &database.ActionHistory{
		InstallationRequestID: &inst.ID,
		ActionType:            cascade.Action,
		FromStatus:            string(fromStatus),
		ToStatus:              string(cascade.Status),
		PerformedBy:           actor.UserID,
		PerformedByRole:       actor.Role,
	})
}
