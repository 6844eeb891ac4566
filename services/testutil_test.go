package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"aquacare/database"
)

// fakeGateway is a scriptable PaymentGateway for tests
type fakeGateway struct {
	sub         GatewaySubscription
	invoices    []GatewayInvoice
	createErr   error
	fetchErr    error
	listErr     error
	createCalls int
}

func (g *fakeGateway) CreateSubscription(planID string, totalCount int, notes map[string]interface{}) (*GatewaySubscriptionLink, error) {
	g.createCalls++
	if g.createErr != nil {
		return nil, g.createErr
	}
	return &GatewaySubscriptionLink{
		SubscriptionID: "sub_test123",
		ShortURL:       "https://rzp.io/i/test",
	}, nil
}

func (g *fakeGateway) FetchSubscription(subscriptionID string) (*GatewaySubscription, error) {
	if g.fetchErr != nil {
		return nil, g.fetchErr
	}
	sub := g.sub
	sub.ID = subscriptionID
	return &sub, nil
}

func (g *fakeGateway) ListInvoices(subscriptionID string) ([]GatewayInvoice, error) {
	if g.listErr != nil {
		return nil, g.listErr
	}
	return g.invoices, nil
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&database.User{},
		&database.Product{},
		&database.Franchise{},
		&database.Location{},
		&database.InstallationRequest{},
		&database.ServiceRequest{},
		&database.Subscription{},
		&database.Payment{},
		&database.Notification{},
		&database.ActionHistory{},
	))

	return db
}

func newTestServices(t *testing.T) (*Services, *fakeGateway) {
	t.Helper()

	db := newTestDB(t)
	gateway := &fakeGateway{
		sub: GatewaySubscription{
			Status:       "active",
			PlanID:       "plan_test",
			CurrentStart: time.Now().UTC(),
			CurrentEnd:   time.Now().UTC().AddDate(0, 1, 0),
		},
	}

	return New(db, gateway, NewNotifier(db, nil), NewViewAsStore(time.Hour)), gateway
}

// fixture is a fully wired franchise with one of each role plus a
// product and zip mapping
type fixture struct {
	Franchise database.Franchise
	Owner     database.User
	Agent     database.User
	Customer  database.User
	Product   database.Product
}

func (f *fixture) ownerActor() Actor {
	return Actor{UserID: f.Owner.ID, Role: database.RoleFranchiseOwner, FranchiseID: &f.Franchise.ID}
}

func (f *fixture) agentActor() Actor {
	return Actor{UserID: f.Agent.ID, Role: database.RoleServiceAgent, FranchiseID: &f.Franchise.ID}
}

func (f *fixture) customerActor() Actor {
	return Actor{UserID: f.Customer.ID, Role: database.RoleCustomer}
}

func adminActor() Actor {
	return Actor{UserID: 1, Role: database.RoleAdmin}
}

func seedFixture(t *testing.T, db *gorm.DB) *fixture {
	t.Helper()

	f := &fixture{}

	f.Franchise = database.Franchise{Name: "North Zone", City: "Pune", IsActive: true}
	require.NoError(t, db.Create(&f.Franchise).Error)

	f.Owner = database.User{
		Name: "Owner", Email: "owner@example.com", Role: database.RoleFranchiseOwner,
		FranchiseID: &f.Franchise.ID,
	}
	require.NoError(t, db.Create(&f.Owner).Error)
	require.NoError(t, db.Model(&f.Franchise).Update("owner_id", f.Owner.ID).Error)
	f.Franchise.OwnerID = &f.Owner.ID

	f.Agent = database.User{
		Name: "Agent", Email: "agent@example.com", Role: database.RoleServiceAgent,
		FranchiseID: &f.Franchise.ID,
	}
	require.NoError(t, db.Create(&f.Agent).Error)

	f.Customer = database.User{
		Name: "Customer", Email: "customer@example.com", Role: database.RoleCustomer,
		ZipCode: "411001",
	}
	require.NoError(t, db.Create(&f.Customer).Error)

	f.Product = database.Product{
		Name: "AquaPure X1", MonthlyRent: 599, SecurityDeposit: 1500,
		PlanName: "plan_test", IsActive: true,
	}
	require.NoError(t, db.Create(&f.Product).Error)

	require.NoError(t, db.Create(&database.Location{
		ZipCode: "411001", FranchiseID: f.Franchise.ID,
	}).Error)

	return f
}

// seedServiceRequest inserts a service request directly in the given
// status, bypassing the state machine
func seedServiceRequest(t *testing.T, db *gorm.DB, f *fixture, status database.ServiceRequestStatus, mutate ...func(*database.ServiceRequest)) *database.ServiceRequest {
	t.Helper()

	req := &database.ServiceRequest{
		CustomerID:  f.Customer.ID,
		ProductID:   f.Product.ID,
		Type:        database.ServiceTypeMaintenance,
		Status:      status,
		FranchiseID: f.Franchise.ID,
	}
	for _, m := range mutate {
		m(req)
	}
	require.NoError(t, db.Create(req).Error)
	return req
}

func timeNowPlusHours(h int) time.Time {
	return time.Now().Add(time.Duration(h) * time.Hour)
}

func countActions(t *testing.T, db *gorm.DB, serviceRequestID uint) int64 {
	t.Helper()

	var count int64
	require.NoError(t, db.Model(&database.ActionHistory{}).
		Where("service_request_id = ?", serviceRequestID).
		Count(&count).Error)
	return count
}
