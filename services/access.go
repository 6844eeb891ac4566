package services

import (
	"aquacare/database"
)

// Actor is the authenticated identity every core operation runs as. It is
// produced by the auth middleware (possibly substituted by an admin
// view-as session) and trusted as-is.
type Actor struct {
	UserID      uint
	Role        string
	FranchiseID *uint
}

func (a Actor) inFranchise(franchiseID uint) bool {
	return a.FranchiseID != nil && *a.FranchiseID == franchiseID
}

// CanViewServiceRequest decides whether the actor may read the request
func CanViewServiceRequest(actor Actor, req *database.ServiceRequest) error {
	switch actor.Role {
	case database.RoleAdmin:
		return nil
	case database.RoleFranchiseOwner:
		if actor.inFranchise(req.FranchiseID) {
			return nil
		}
	case database.RoleServiceAgent:
		if req.AssignedToID != nil && *req.AssignedToID == actor.UserID {
			return nil
		}
		if actor.inFranchise(req.FranchiseID) {
			return nil
		}
	case database.RoleCustomer:
		if req.CustomerID == actor.UserID {
			return nil
		}
	}
	return ForbiddenError("you don't have permission to view this service request")
}

// CanUpdateServiceRequestStatus decides whether the actor may move the
// request to newStatus. Customers may only cancel or confirm completion
// of their own requests;
// agents act on requests assigned to them (or self-assign within their
// franchise); franchise owners are scoped to their franchise.
func CanUpdateServiceRequestStatus(actor Actor, req *database.ServiceRequest, newStatus database.ServiceRequestStatus, agentID *uint) error {
	switch actor.Role {
	case database.RoleAdmin:
		return nil
	case database.RoleFranchiseOwner:
		if actor.inFranchise(req.FranchiseID) {
			return nil
		}
		return ForbiddenError("service request belongs to another franchise")
	case database.RoleServiceAgent:
		if req.AssignedToID != nil && *req.AssignedToID == actor.UserID {
			return nil
		}
		// unassigned requests: agents may only self-assign within their franchise
		if newStatus == database.ServiceStatusAssigned &&
			agentID != nil && *agentID == actor.UserID &&
			actor.inFranchise(req.FranchiseID) {
			return nil
		}
		return ForbiddenError("service request is not assigned to you")
	case database.RoleCustomer:
		if req.CustomerID != actor.UserID {
			return ForbiddenError("service request doesn't belong to you")
		}
		if newStatus != database.ServiceStatusCancelled && newStatus != database.ServiceStatusCompleted {
			return ForbiddenError("customers can only cancel or confirm completion of service requests")
		}
		return nil
	}
	return ForbiddenError("invalid role")
}

// CanViewInstallationRequest decides whether the actor may read the
// installation request
func CanViewInstallationRequest(actor Actor, inst *database.InstallationRequest) error {
	switch actor.Role {
	case database.RoleAdmin:
		return nil
	case database.RoleFranchiseOwner, database.RoleServiceAgent:
		if actor.inFranchise(inst.FranchiseID) {
			return nil
		}
	case database.RoleCustomer:
		if inst.CustomerID == actor.UserID {
			return nil
		}
	}
	return ForbiddenError("you don't have permission to view this installation request")
}

// CanViewSubscription decides whether the actor may read the subscription
func CanViewSubscription(actor Actor, sub *database.Subscription) error {
	switch actor.Role {
	case database.RoleAdmin:
		return nil
	case database.RoleFranchiseOwner:
		if actor.inFranchise(sub.FranchiseID) {
			return nil
		}
	case database.RoleCustomer:
		if sub.CustomerID == actor.UserID {
			return nil
		}
	}
	return ForbiddenError("you don't have permission to view this subscription")
}

// CanViewPayment decides whether the actor may read the payment.
// franchiseID is the franchise of the linked installation or service
// request, nil when the payment links to neither.
func CanViewPayment(actor Actor, payment *database.Payment, franchiseID *uint) error {
	switch actor.Role {
	case database.RoleAdmin:
		return nil
	case database.RoleFranchiseOwner:
		if franchiseID != nil && actor.inFranchise(*franchiseID) {
			return nil
		}
	case database.RoleCustomer:
		if payment.CustomerID == actor.UserID {
			return nil
		}
	}
	return ForbiddenError("you don't have permission to view this payment")
}
