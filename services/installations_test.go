package services

import (
	"testing"

	"github.com/stretchr/testify/require"

	"aquacare/database"
)

func TestCreateInstallationRequest(t *testing.T) {
	svc, _ := newTestServices(t)
	f := seedFixture(t, svc.DB)

	inst, err := svc.CreateInstallationRequest(f.customerActor(), CreateInstallationRequestInput{
		ProductID: f.Product.ID,
	})
	require.NoError(t, err)
	require.Equal(t, database.InstallationStatusCreated, inst.Status)
	require.Equal(t, f.Franchise.ID, inst.FranchiseID)

	// unknown zip code cannot be served
	_, err = svc.CreateInstallationRequest(f.customerActor(), CreateInstallationRequestInput{
		ProductID: f.Product.ID,
		ZipCode:   "000000",
	})
	require.Equal(t, KindBadRequest, KindOf(err))

	// staff don't create installation requests
	_, err = svc.CreateInstallationRequest(f.agentActor(), CreateInstallationRequestInput{
		ProductID: f.Product.ID,
	})
	require.Equal(t, KindForbidden, KindOf(err))
}

func TestApproveInstallationRequest(t *testing.T) {
	svc, gateway := newTestServices(t)
	f := seedFixture(t, svc.DB)

	inst, err := svc.CreateInstallationRequest(f.customerActor(), CreateInstallationRequestInput{
		ProductID: f.Product.ID,
	})
	require.NoError(t, err)

	approved, err := svc.ApproveInstallationRequest(inst.ID, f.ownerActor())
	require.NoError(t, err)
	require.Equal(t, database.InstallationStatusApproved, approved.Status)
	require.Equal(t, "sub_test123", approved.RazorpaySubscriptionID)
	require.NotEmpty(t, approved.RazorpayPaymentLink)
	require.Equal(t, 1, gateway.createCalls)

	// the linked service request was opened atomically
	var req database.ServiceRequest
	require.NoError(t, svc.DB.Where("installation_request_id = ?", inst.ID).First(&req).Error)
	require.Equal(t, database.ServiceTypeInstallation, req.Type)
	require.Equal(t, database.ServiceStatusCreated, req.Status)
	require.True(t, req.RequiresPayment)
	require.Equal(t, f.Franchise.ID, req.FranchiseID)

	// approving twice fails without a second gateway call
	_, err = svc.ApproveInstallationRequest(inst.ID, f.ownerActor())
	require.Equal(t, KindBadRequest, KindOf(err))
	require.Equal(t, 1, gateway.createCalls)
}

func TestApproveScopedToFranchise(t *testing.T) {
	svc, _ := newTestServices(t)
	f := seedFixture(t, svc.DB)

	other := database.Franchise{Name: "South Zone", IsActive: true}
	require.NoError(t, svc.DB.Create(&other).Error)
	outsideOwner := database.User{
		Name: "Other Owner", Email: "other@example.com",
		Role: database.RoleFranchiseOwner, FranchiseID: &other.ID,
	}
	require.NoError(t, svc.DB.Create(&outsideOwner).Error)

	inst, err := svc.CreateInstallationRequest(f.customerActor(), CreateInstallationRequestInput{
		ProductID: f.Product.ID,
	})
	require.NoError(t, err)

	_, err = svc.ApproveInstallationRequest(inst.ID, Actor{
		UserID: outsideOwner.ID, Role: database.RoleFranchiseOwner, FranchiseID: &other.ID,
	})
	require.Equal(t, KindForbidden, KindOf(err))
}

func TestRejectInstallationRequest(t *testing.T) {
	svc, _ := newTestServices(t)
	f := seedFixture(t, svc.DB)

	inst, err := svc.CreateInstallationRequest(f.customerActor(), CreateInstallationRequestInput{
		ProductID: f.Product.ID,
	})
	require.NoError(t, err)

	rejected, err := svc.RejectInstallationRequest(inst.ID, adminActor(), "out of coverage")
	require.NoError(t, err)
	require.Equal(t, database.InstallationStatusCancelled, rejected.Status)

	var entry database.ActionHistory
	require.NoError(t, svc.DB.Where("installation_request_id = ?", inst.ID).First(&entry).Error)
	require.Equal(t, database.ActionCancelled, entry.ActionType)
	require.Equal(t, "out of coverage", entry.Comment)
}

// TestFullInstallationLifecycle walks the whole happy path: request,
// approval, assignment, scheduling, field work, payment reconciliation.
func TestFullInstallationLifecycle(t *testing.T) {
	svc, gateway := newTestServices(t)
	f := seedFixture(t, svc.DB)

	inst, err := svc.CreateInstallationRequest(f.customerActor(), CreateInstallationRequestInput{
		ProductID: f.Product.ID,
	})
	require.NoError(t, err)

	_, err = svc.ApproveInstallationRequest(inst.ID, adminActor())
	require.NoError(t, err)

	var req database.ServiceRequest
	require.NoError(t, svc.DB.Where("installation_request_id = ?", inst.ID).First(&req).Error)

	_, err = svc.AssignServiceRequest(req.ID, f.Agent.ID, f.ownerActor())
	require.NoError(t, err)

	when := timeNowPlusHours(24)
	_, err = svc.UpdateServiceRequestStatus(req.ID, database.ServiceStatusScheduled, f.ownerActor(), StatusUpdateInput{
		ScheduledDate: &when,
	})
	require.NoError(t, err)

	_, err = svc.UpdateServiceRequestStatus(req.ID, database.ServiceStatusInProgress, f.agentActor(), StatusUpdateInput{
		BeforeImages: []string{"before-1.jpg", "before-2.jpg"},
	})
	require.NoError(t, err)

	_, err = svc.UpdateServiceRequestStatus(req.ID, database.ServiceStatusPaymentPending, f.agentActor(), StatusUpdateInput{
		AfterImages: []string{"after-1.jpg"},
	})
	require.NoError(t, err)

	var midInst database.InstallationRequest
	require.NoError(t, svc.DB.First(&midInst, inst.ID).Error)
	require.Equal(t, database.InstallationStatusPaymentPending, midInst.Status)

	// completing without a recorded payment is rejected
	_, err = svc.UpdateServiceRequestStatus(req.ID, database.ServiceStatusCompleted, f.agentActor(), StatusUpdateInput{})
	require.Equal(t, KindBadRequest, KindOf(err))

	gateway.invoices = []GatewayInvoice{{Status: "paid", PaymentID: "pay_flow", Amount: 2099}}
	result, err := svc.RefreshPaymentStatus(req.ID, f.customerActor())
	require.NoError(t, err)
	require.Equal(t, database.PaymentStatusCompleted, result.Status)
	require.True(t, result.SubscriptionCreated)

	var finalInst database.InstallationRequest
	require.NoError(t, svc.DB.First(&finalInst, inst.ID).Error)
	require.Equal(t, database.InstallationStatusCompleted, finalInst.Status)
	require.NotEmpty(t, finalInst.ConnectID)

	var sub database.Subscription
	require.NoError(t, svc.DB.Where("request_id = ?", inst.ID).First(&sub).Error)
	require.Equal(t, database.SubscriptionStatusActive, sub.Status)
	require.InDelta(t, f.Product.MonthlyRent, sub.MonthlyAmount, 0.01)

	detail, err := svc.GetServiceRequest(req.ID, f.customerActor())
	require.NoError(t, err)
	require.Equal(t, database.ServiceStatusCompleted, detail.Status)
	require.Equal(t, string(database.PaymentStatusCompleted), detail.PaymentStatus)

	// the audit trail covers every step of the journey
	history, err := svc.ListServiceRequestHistory(req.ID, adminActor())
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(history), 6)
}
