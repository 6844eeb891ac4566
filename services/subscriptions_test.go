package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"aquacare/database"
)

func seedSubscription(t *testing.T, svc *Services, f *fixture) *database.Subscription {
	t.Helper()

	sub := &database.Subscription{
		ConnectID:   "AC-00042",
		RequestID:   42,
		CustomerID:  f.Customer.ID,
		ProductID:   f.Product.ID,
		FranchiseID: f.Franchise.ID,
		Status:      database.SubscriptionStatusActive,
		StartDate:   time.Now().UTC(),
	}
	require.NoError(t, svc.DB.Create(sub).Error)
	return sub
}

func TestSubscriptionScoping(t *testing.T) {
	svc, _ := newTestServices(t)
	f := seedFixture(t, svc.DB)
	sub := seedSubscription(t, svc, f)

	stranger := Actor{UserID: 9999, Role: database.RoleCustomer}
	_, err := svc.GetSubscription(sub.ID, stranger)
	require.Equal(t, KindForbidden, KindOf(err))

	got, err := svc.GetSubscription(sub.ID, f.customerActor())
	require.NoError(t, err)
	require.Equal(t, sub.ConnectID, got.ConnectID)

	mine, err := svc.ListSubscriptions(f.customerActor())
	require.NoError(t, err)
	require.Len(t, mine, 1)

	franchise, err := svc.ListSubscriptions(f.ownerActor())
	require.NoError(t, err)
	require.Len(t, franchise, 1)
}

func TestCancelSubscription(t *testing.T) {
	svc, _ := newTestServices(t)
	f := seedFixture(t, svc.DB)
	sub := seedSubscription(t, svc, f)

	cancelled, err := svc.CancelSubscription(sub.ID, f.customerActor(), "moving out")
	require.NoError(t, err)
	require.Equal(t, database.SubscriptionStatusCancelled, cancelled.Status)

	var entry database.ActionHistory
	require.NoError(t, svc.DB.Where("subscription_id = ?", sub.ID).First(&entry).Error)
	require.Equal(t, database.ActionSubscriptionCancelled, entry.ActionType)
	require.Equal(t, string(database.SubscriptionStatusActive), entry.FromStatus)
	require.Equal(t, "moving out", entry.Comment)

	// cancelling twice fails
	_, err = svc.CancelSubscription(sub.ID, f.customerActor(), "")
	require.Equal(t, KindBadRequest, KindOf(err))
}

func TestCancelSubscriptionForbiddenForAgents(t *testing.T) {
	svc, _ := newTestServices(t)
	f := seedFixture(t, svc.DB)
	sub := seedSubscription(t, svc, f)

	_, err := svc.CancelSubscription(sub.ID, f.agentActor(), "")
	require.Equal(t, KindForbidden, KindOf(err))
}
