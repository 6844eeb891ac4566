package services

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"aquacare/database"
)

func TestInvalidTransitionsRejected(t *testing.T) {
	cases := []struct {
		from database.ServiceRequestStatus
		to   database.ServiceRequestStatus
	}{
		{database.ServiceStatusCreated, database.ServiceStatusScheduled},
		{database.ServiceStatusCreated, database.ServiceStatusInProgress},
		{database.ServiceStatusCreated, database.ServiceStatusCompleted},
		{database.ServiceStatusCreated, database.ServiceStatusPaymentPending},
		{database.ServiceStatusAssigned, database.ServiceStatusInProgress},
		{database.ServiceStatusAssigned, database.ServiceStatusCompleted},
		{database.ServiceStatusScheduled, database.ServiceStatusCompleted},
		{database.ServiceStatusScheduled, database.ServiceStatusPaymentPending},
		{database.ServiceStatusPaymentPending, database.ServiceStatusInProgress},
		{database.ServiceStatusCompleted, database.ServiceStatusAssigned},
		{database.ServiceStatusCompleted, database.ServiceStatusCancelled},
		{database.ServiceStatusCancelled, database.ServiceStatusInProgress},
		{database.ServiceStatusCancelled, database.ServiceStatusCompleted},
	}

	for _, tc := range cases {
		t.Run(fmt.Sprintf("%s_to_%s", tc.from, tc.to), func(t *testing.T) {
			svc, _ := newTestServices(t)
			f := seedFixture(t, svc.DB)

			req := seedServiceRequest(t, svc.DB, f, tc.from, func(r *database.ServiceRequest) {
				r.AssignedToID = &f.Agent.ID
			})

			_, err := svc.UpdateServiceRequestStatus(req.ID, tc.to, adminActor(), StatusUpdateInput{
				AgentID: &f.Agent.ID,
			})
			require.Error(t, err)
			require.Equal(t, KindBadRequest, KindOf(err))

			var stored database.ServiceRequest
			require.NoError(t, svc.DB.First(&stored, req.ID).Error)
			require.Equal(t, tc.from, stored.Status)
			require.Zero(t, countActions(t, svc.DB, req.ID))
		})
	}
}

func TestAssignRequiresValidAgent(t *testing.T) {
	svc, _ := newTestServices(t)
	f := seedFixture(t, svc.DB)

	req := seedServiceRequest(t, svc.DB, f, database.ServiceStatusCreated)

	_, err := svc.UpdateServiceRequestStatus(req.ID, database.ServiceStatusAssigned, adminActor(), StatusUpdateInput{})
	require.Equal(t, KindBadRequest, KindOf(err))

	// customer is not a service agent
	_, err = svc.UpdateServiceRequestStatus(req.ID, database.ServiceStatusAssigned, adminActor(), StatusUpdateInput{
		AgentID: &f.Customer.ID,
	})
	require.Equal(t, KindBadRequest, KindOf(err))

	detail, err := svc.UpdateServiceRequestStatus(req.ID, database.ServiceStatusAssigned, adminActor(), StatusUpdateInput{
		AgentID: &f.Agent.ID,
	})
	require.NoError(t, err)
	require.Equal(t, database.ServiceStatusAssigned, detail.Status)
	require.Equal(t, f.Agent.ID, *detail.AssignedToID)
}

func TestAssignRejectsAgentFromAnotherFranchise(t *testing.T) {
	svc, _ := newTestServices(t)
	f := seedFixture(t, svc.DB)

	other := database.Franchise{Name: "South Zone", IsActive: true}
	require.NoError(t, svc.DB.Create(&other).Error)
	outsider := database.User{
		Name: "Outsider", Email: "outsider@example.com",
		Role: database.RoleServiceAgent, FranchiseID: &other.ID,
	}
	require.NoError(t, svc.DB.Create(&outsider).Error)

	req := seedServiceRequest(t, svc.DB, f, database.ServiceStatusCreated)

	_, err := svc.AssignServiceRequest(req.ID, outsider.ID, adminActor())
	require.Equal(t, KindBadRequest, KindOf(err))
}

func TestAssignAlreadyAssigned(t *testing.T) {
	svc, _ := newTestServices(t)
	f := seedFixture(t, svc.DB)

	req := seedServiceRequest(t, svc.DB, f, database.ServiceStatusAssigned, func(r *database.ServiceRequest) {
		r.AssignedToID = &f.Agent.ID
	})

	_, err := svc.AssignServiceRequest(req.ID, f.Agent.ID, adminActor())
	require.Equal(t, KindBadRequest, KindOf(err))
}

func TestSelfAssign(t *testing.T) {
	svc, _ := newTestServices(t)
	f := seedFixture(t, svc.DB)

	req := seedServiceRequest(t, svc.DB, f, database.ServiceStatusCreated)

	detail, err := svc.SelfAssignServiceRequest(req.ID, f.agentActor())
	require.NoError(t, err)
	require.Equal(t, f.Agent.ID, *detail.AssignedToID)

	// a second claim fails, even by the same agent
	_, err = svc.SelfAssignServiceRequest(req.ID, f.agentActor())
	require.Equal(t, KindBadRequest, KindOf(err))
}

func TestScheduleRequiresAssignmentAndDate(t *testing.T) {
	svc, _ := newTestServices(t)
	f := seedFixture(t, svc.DB)

	unassigned := seedServiceRequest(t, svc.DB, f, database.ServiceStatusAssigned)
	_, err := svc.UpdateServiceRequestStatus(unassigned.ID, database.ServiceStatusScheduled, adminActor(), StatusUpdateInput{})
	require.Equal(t, KindBadRequest, KindOf(err))

	req := seedServiceRequest(t, svc.DB, f, database.ServiceStatusAssigned, func(r *database.ServiceRequest) {
		r.AssignedToID = &f.Agent.ID
	})

	_, err = svc.UpdateServiceRequestStatus(req.ID, database.ServiceStatusScheduled, adminActor(), StatusUpdateInput{})
	require.Equal(t, KindBadRequest, KindOf(err))

	when := time.Now().Add(48 * time.Hour)
	detail, err := svc.UpdateServiceRequestStatus(req.ID, database.ServiceStatusScheduled, adminActor(), StatusUpdateInput{
		ScheduledDate: &when,
	})
	require.NoError(t, err)
	require.Equal(t, database.ServiceStatusScheduled, detail.Status)
	require.NotNil(t, detail.ScheduledDate)
}

func TestInstallationStartRequiresBeforeImages(t *testing.T) {
	svc, _ := newTestServices(t)
	f := seedFixture(t, svc.DB)

	inst := database.InstallationRequest{
		CustomerID: f.Customer.ID, ProductID: f.Product.ID,
		FranchiseID: f.Franchise.ID, Status: database.InstallationStatusApproved,
	}
	require.NoError(t, svc.DB.Create(&inst).Error)

	req := seedServiceRequest(t, svc.DB, f, database.ServiceStatusScheduled, func(r *database.ServiceRequest) {
		r.Type = database.ServiceTypeInstallation
		r.InstallationRequestID = &inst.ID
		r.AssignedToID = &f.Agent.ID
		r.RequiresPayment = true
	})

	_, err := svc.UpdateServiceRequestStatus(req.ID, database.ServiceStatusInProgress, f.agentActor(), StatusUpdateInput{})
	require.Equal(t, KindBadRequest, KindOf(err))

	detail, err := svc.UpdateServiceRequestStatus(req.ID, database.ServiceStatusInProgress, f.agentActor(), StatusUpdateInput{
		BeforeImages: []string{"before-1.jpg"},
	})
	require.NoError(t, err)
	require.Equal(t, database.ServiceStatusInProgress, detail.Status)

	// the cascade moved the installation request too
	var storedInst database.InstallationRequest
	require.NoError(t, svc.DB.First(&storedInst, inst.ID).Error)
	require.Equal(t, database.InstallationStatusInProgress, storedInst.Status)
}

func TestPaymentPendingPreconditions(t *testing.T) {
	svc, _ := newTestServices(t)
	f := seedFixture(t, svc.DB)

	noPayment := seedServiceRequest(t, svc.DB, f, database.ServiceStatusInProgress, func(r *database.ServiceRequest) {
		r.AssignedToID = &f.Agent.ID
	})
	_, err := svc.UpdateServiceRequestStatus(noPayment.ID, database.ServiceStatusPaymentPending, f.agentActor(), StatusUpdateInput{
		AfterImages: []string{"after-1.jpg"},
	})
	require.Equal(t, KindBadRequest, KindOf(err))

	req := seedServiceRequest(t, svc.DB, f, database.ServiceStatusInProgress, func(r *database.ServiceRequest) {
		r.AssignedToID = &f.Agent.ID
		r.RequiresPayment = true
	})

	_, err = svc.UpdateServiceRequestStatus(req.ID, database.ServiceStatusPaymentPending, f.agentActor(), StatusUpdateInput{})
	require.Equal(t, KindBadRequest, KindOf(err))

	detail, err := svc.UpdateServiceRequestStatus(req.ID, database.ServiceStatusPaymentPending, f.agentActor(), StatusUpdateInput{
		AfterImages: []string{"after-1.jpg"},
	})
	require.NoError(t, err)
	require.Equal(t, database.ServiceStatusPaymentPending, detail.Status)
}

func TestCompleteSkippingPaymentRejected(t *testing.T) {
	svc, _ := newTestServices(t)
	f := seedFixture(t, svc.DB)

	req := seedServiceRequest(t, svc.DB, f, database.ServiceStatusInProgress, func(r *database.ServiceRequest) {
		r.AssignedToID = &f.Agent.ID
		r.RequiresPayment = true
	})

	_, err := svc.UpdateServiceRequestStatus(req.ID, database.ServiceStatusCompleted, f.agentActor(), StatusUpdateInput{
		AfterImages: []string{"after-1.jpg"},
	})
	require.Equal(t, KindBadRequest, KindOf(err))
	require.Contains(t, err.Error(), "PAYMENT_PENDING")
}

func TestCompleteWithoutPaymentRequirement(t *testing.T) {
	svc, _ := newTestServices(t)
	f := seedFixture(t, svc.DB)

	req := seedServiceRequest(t, svc.DB, f, database.ServiceStatusInProgress, func(r *database.ServiceRequest) {
		r.AssignedToID = &f.Agent.ID
	})

	// completion images are still required
	_, err := svc.UpdateServiceRequestStatus(req.ID, database.ServiceStatusCompleted, f.agentActor(), StatusUpdateInput{})
	require.Equal(t, KindBadRequest, KindOf(err))

	detail, err := svc.UpdateServiceRequestStatus(req.ID, database.ServiceStatusCompleted, f.agentActor(), StatusUpdateInput{
		AfterImages: []string{"after-1.jpg"},
	})
	require.NoError(t, err)
	require.Equal(t, database.ServiceStatusCompleted, detail.Status)
	require.NotNil(t, detail.CompletedDate)
	require.Equal(t, "not_required", detail.PaymentStatus)
}

func TestCancellationClearsImagesAndReactivation(t *testing.T) {
	svc, _ := newTestServices(t)
	f := seedFixture(t, svc.DB)

	req := seedServiceRequest(t, svc.DB, f, database.ServiceStatusInProgress, func(r *database.ServiceRequest) {
		r.AssignedToID = &f.Agent.ID
		r.BeforeImages = database.StringArray{"before-1.jpg"}
		r.AfterImages = database.StringArray{"after-1.jpg"}
	})

	detail, err := svc.UpdateServiceRequestStatus(req.ID, database.ServiceStatusCancelled, adminActor(), StatusUpdateInput{
		Comment: "customer unavailable",
	})
	require.NoError(t, err)
	require.Equal(t, database.ServiceStatusCancelled, detail.Status)
	require.Empty(t, detail.BeforeImages)
	require.Empty(t, detail.AfterImages)

	// cancelled requests can come back into the flow via assignment
	detail, err = svc.UpdateServiceRequestStatus(req.ID, database.ServiceStatusAssigned, adminActor(), StatusUpdateInput{
		AgentID: &f.Agent.ID,
	})
	require.NoError(t, err)
	require.Equal(t, database.ServiceStatusAssigned, detail.Status)
}

func TestReactivationBlockedByCancelledInstallation(t *testing.T) {
	svc, _ := newTestServices(t)
	f := seedFixture(t, svc.DB)

	inst := database.InstallationRequest{
		CustomerID: f.Customer.ID, ProductID: f.Product.ID,
		FranchiseID: f.Franchise.ID, Status: database.InstallationStatusCancelled,
	}
	require.NoError(t, svc.DB.Create(&inst).Error)

	req := seedServiceRequest(t, svc.DB, f, database.ServiceStatusCancelled, func(r *database.ServiceRequest) {
		r.Type = database.ServiceTypeInstallation
		r.InstallationRequestID = &inst.ID
	})

	_, err := svc.UpdateServiceRequestStatus(req.ID, database.ServiceStatusAssigned, adminActor(), StatusUpdateInput{
		AgentID: &f.Agent.ID,
	})
	require.Equal(t, KindBadRequest, KindOf(err))
}

func TestCustomerCanOnlyCancelOrComplete(t *testing.T) {
	svc, _ := newTestServices(t)
	f := seedFixture(t, svc.DB)

	req := seedServiceRequest(t, svc.DB, f, database.ServiceStatusCreated)

	_, err := svc.UpdateServiceRequestStatus(req.ID, database.ServiceStatusAssigned, f.customerActor(), StatusUpdateInput{
		AgentID: &f.Agent.ID,
	})
	require.Equal(t, KindForbidden, KindOf(err))

	detail, err := svc.UpdateServiceRequestStatus(req.ID, database.ServiceStatusCancelled, f.customerActor(), StatusUpdateInput{})
	require.NoError(t, err)
	require.Equal(t, database.ServiceStatusCancelled, detail.Status)
}

func TestCustomerCompletesGeneralRequest(t *testing.T) {
	svc, _ := newTestServices(t)
	f := seedFixture(t, svc.DB)

	req := seedServiceRequest(t, svc.DB, f, database.ServiceStatusInProgress, func(r *database.ServiceRequest) {
		r.Type = database.ServiceTypeGeneral
		r.AssignedToID = &f.Agent.ID
	})

	detail, err := svc.UpdateServiceRequestStatus(req.ID, database.ServiceStatusCompleted, f.customerActor(), StatusUpdateInput{
		AfterImages: []string{"u1"},
	})
	require.NoError(t, err)
	require.Equal(t, database.ServiceStatusCompleted, detail.Status)
	require.NotNil(t, detail.CompletedDate)

	history, err := svc.ListServiceRequestHistory(req.ID, f.customerActor())
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, string(database.ServiceStatusInProgress), history[0].FromStatus)
	require.Equal(t, string(database.ServiceStatusCompleted), history[0].ToStatus)
}

func TestCustomerCannotSkipPaymentPending(t *testing.T) {
	svc, _ := newTestServices(t)
	f := seedFixture(t, svc.DB)

	req := seedServiceRequest(t, svc.DB, f, database.ServiceStatusInProgress, func(r *database.ServiceRequest) {
		r.Type = database.ServiceTypeGeneral
		r.AssignedToID = &f.Agent.ID
		r.RequiresPayment = true
	})

	_, err := svc.UpdateServiceRequestStatus(req.ID, database.ServiceStatusCompleted, f.customerActor(), StatusUpdateInput{
		AfterImages: []string{"u1"},
	})
	require.Equal(t, KindBadRequest, KindOf(err))
	require.Contains(t, err.Error(), "PAYMENT_PENDING")
}

func TestAuditTrailPerTransition(t *testing.T) {
	svc, _ := newTestServices(t)
	f := seedFixture(t, svc.DB)

	req := seedServiceRequest(t, svc.DB, f, database.ServiceStatusCreated)

	_, err := svc.UpdateServiceRequestStatus(req.ID, database.ServiceStatusAssigned, adminActor(), StatusUpdateInput{
		AgentID: &f.Agent.ID,
	})
	require.NoError(t, err)

	when := time.Now().Add(24 * time.Hour)
	_, err = svc.UpdateServiceRequestStatus(req.ID, database.ServiceStatusScheduled, adminActor(), StatusUpdateInput{
		ScheduledDate: &when,
	})
	require.NoError(t, err)

	require.EqualValues(t, 2, countActions(t, svc.DB, req.ID))

	history, err := svc.ListServiceRequestHistory(req.ID, adminActor())
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.Equal(t, database.ActionAgentAssigned, history[0].ActionType)
	require.Equal(t, string(database.ServiceStatusCreated), history[0].FromStatus)
	require.Equal(t, string(database.ServiceStatusAssigned), history[0].ToStatus)
	require.Equal(t, string(database.ServiceStatusScheduled), history[1].ToStatus)
}

func TestTransitionRollsBackAsOneUnit(t *testing.T) {
	svc, _ := newTestServices(t)
	f := seedFixture(t, svc.DB)

	req := seedServiceRequest(t, svc.DB, f, database.ServiceStatusCreated)

	// force the audit write to fail after the entity update
	require.NoError(t, svc.DB.Migrator().DropTable(&database.ActionHistory{}))

	_, err := svc.UpdateServiceRequestStatus(req.ID, database.ServiceStatusAssigned, adminActor(), StatusUpdateInput{
		AgentID: &f.Agent.ID,
	})
	require.Error(t, err)

	var stored database.ServiceRequest
	require.NoError(t, svc.DB.First(&stored, req.ID).Error)
	require.Equal(t, database.ServiceStatusCreated, stored.Status)
	require.Nil(t, stored.AssignedToID)
}

func TestSubscriptionLinkedTransitionAudit(t *testing.T) {
	svc, _ := newTestServices(t)
	f := seedFixture(t, svc.DB)

	sub := database.Subscription{
		ConnectID: "AC-00007", RequestID: 7, CustomerID: f.Customer.ID,
		ProductID: f.Product.ID, FranchiseID: f.Franchise.ID,
		Status: database.SubscriptionStatusActive,
	}
	require.NoError(t, svc.DB.Create(&sub).Error)

	req := seedServiceRequest(t, svc.DB, f, database.ServiceStatusCreated, func(r *database.ServiceRequest) {
		r.SubscriptionID = &sub.ID
	})

	_, err := svc.UpdateServiceRequestStatus(req.ID, database.ServiceStatusAssigned, adminActor(), StatusUpdateInput{
		AgentID: &f.Agent.ID,
	})
	require.NoError(t, err)

	// one entry against the request, one mirrored onto the subscription
	require.EqualValues(t, 1, countActions(t, svc.DB, req.ID))

	var subEntries []database.ActionHistory
	require.NoError(t, svc.DB.Where("subscription_id = ?", sub.ID).Find(&subEntries).Error)
	require.Len(t, subEntries, 1)
	require.Equal(t, database.ActionStatusChanged, subEntries[0].ActionType)
	require.Equal(t, string(database.ServiceStatusCreated), subEntries[0].FromStatus)
	require.Equal(t, string(database.ServiceStatusAssigned), subEntries[0].ToStatus)

	// both entries commit with the status change or not at all
	require.NoError(t, svc.DB.Migrator().DropTable(&database.ActionHistory{}))

	when := timeNowPlusHours(24)
	_, err = svc.UpdateServiceRequestStatus(req.ID, database.ServiceStatusScheduled, adminActor(), StatusUpdateInput{
		ScheduledDate: &when,
	})
	require.Error(t, err)

	require.NoError(t, svc.DB.AutoMigrate(&database.ActionHistory{}))

	var stored database.ServiceRequest
	require.NoError(t, svc.DB.First(&stored, req.ID).Error)
	require.Equal(t, database.ServiceStatusAssigned, stored.Status)
	require.Nil(t, stored.ScheduledDate)
	require.Zero(t, countActions(t, svc.DB, req.ID))

	var subCount int64
	require.NoError(t, svc.DB.Model(&database.ActionHistory{}).
		Where("subscription_id = ?", sub.ID).Count(&subCount).Error)
	require.Zero(t, subCount)
}

func TestCreateServiceRequestLinkage(t *testing.T) {
	svc, _ := newTestServices(t)
	f := seedFixture(t, svc.DB)

	subID := uint(1)
	instID := uint(1)
	_, err := svc.CreateServiceRequest(f.customerActor(), CreateServiceRequestInput{
		Type:                  database.ServiceTypeMaintenance,
		SubscriptionID:        &subID,
		InstallationRequestID: &instID,
	})
	require.Equal(t, KindBadRequest, KindOf(err))

	// franchise resolved from the customer's zip code
	detail, err := svc.CreateServiceRequest(f.customerActor(), CreateServiceRequestInput{
		ProductID:   f.Product.ID,
		Type:        database.ServiceTypeRepair,
		Description: "Leaking tap",
	})
	require.NoError(t, err)
	require.Equal(t, database.ServiceStatusCreated, detail.Status)
	require.Equal(t, f.Franchise.ID, detail.FranchiseID)
	require.EqualValues(t, 1, countActions(t, svc.DB, detail.ID))
}

func TestCreateServiceRequestFromSubscription(t *testing.T) {
	svc, _ := newTestServices(t)
	f := seedFixture(t, svc.DB)

	sub := database.Subscription{
		ConnectID: "AC-00001", RequestID: 99, CustomerID: f.Customer.ID,
		ProductID: f.Product.ID, FranchiseID: f.Franchise.ID,
		Status: database.SubscriptionStatusActive,
	}
	require.NoError(t, svc.DB.Create(&sub).Error)

	detail, err := svc.CreateServiceRequest(f.customerActor(), CreateServiceRequestInput{
		SubscriptionID: &sub.ID,
		Type:           database.ServiceTypeMaintenance,
		Description:    "Quarterly filter change",
	})
	require.NoError(t, err)
	require.Equal(t, sub.ID, *detail.SubscriptionID)
	require.Equal(t, f.Franchise.ID, detail.FranchiseID)
	require.Equal(t, f.Product.ID, detail.ProductID)

	// cancelled subscriptions cannot open new requests
	require.NoError(t, svc.DB.Model(&sub).Update("status", database.SubscriptionStatusCancelled).Error)
	_, err = svc.CreateServiceRequest(f.customerActor(), CreateServiceRequestInput{
		SubscriptionID: &sub.ID,
		Type:           database.ServiceTypeMaintenance,
	})
	require.Equal(t, KindBadRequest, KindOf(err))
}

func TestListServiceRequestsScoping(t *testing.T) {
	svc, _ := newTestServices(t)
	f := seedFixture(t, svc.DB)

	other := database.Franchise{Name: "South Zone", IsActive: true}
	require.NoError(t, svc.DB.Create(&other).Error)
	stranger := database.User{Name: "Stranger", Email: "stranger@example.com", Role: database.RoleCustomer}
	require.NoError(t, svc.DB.Create(&stranger).Error)

	seedServiceRequest(t, svc.DB, f, database.ServiceStatusCreated)
	seedServiceRequest(t, svc.DB, f, database.ServiceStatusAssigned, func(r *database.ServiceRequest) {
		r.AssignedToID = &f.Agent.ID
	})
	require.NoError(t, svc.DB.Create(&database.ServiceRequest{
		CustomerID: stranger.ID, ProductID: f.Product.ID,
		Type: database.ServiceTypeRepair, Status: database.ServiceStatusCreated,
		FranchiseID: other.ID,
	}).Error)

	all, err := svc.ListServiceRequests(adminActor())
	require.NoError(t, err)
	require.Len(t, all, 3)

	mine, err := svc.ListServiceRequests(f.customerActor())
	require.NoError(t, err)
	require.Len(t, mine, 2)

	franchise, err := svc.ListServiceRequests(f.ownerActor())
	require.NoError(t, err)
	require.Len(t, franchise, 2)

	// agents see their assignments plus claimable requests in franchise
	agent, err := svc.ListServiceRequests(f.agentActor())
	require.NoError(t, err)
	require.Len(t, agent, 2)
}
