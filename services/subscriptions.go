package services

import (
	"errors"

	"gorm.io/gorm"

	"aquacare/database"
)

// ListSubscriptions returns subscriptions visible to the actor, newest
// first
func (s *Services) ListSubscriptions(actor Actor) ([]database.Subscription, error) {
	query := s.DB.Model(&database.Subscription{}).
		Preload("Customer").
		Preload("Product").
		Preload("Franchise")

	switch actor.Role {
	case database.RoleAdmin:
	case database.RoleFranchiseOwner:
		if actor.FranchiseID == nil {
			return nil, ForbiddenError("franchise owner has no franchise")
		}
		query = query.Where("franchise_id = ?", *actor.FranchiseID)
	case database.RoleCustomer:
		query = query.Where("customer_id = ?", actor.UserID)
	default:
		return nil, ForbiddenError("subscriptions are not visible to this role")
	}

	var subs []database.Subscription
	if err := query.Order("created_at DESC").Find(&subs).Error; err != nil {
		return nil, InternalError(err, "failed to load subscriptions")
	}
	return subs, nil
}

// GetSubscription returns one subscription after an access check
func (s *Services) GetSubscription(id uint, actor Actor) (*database.Subscription, error) {
	var sub database.Subscription
	err := s.DB.
		Preload("Customer").
		Preload("Product").
		Preload("Franchise").
		First(&sub, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFoundError("subscription %d not found", id)
		}
		return nil, InternalError(err, "failed to load subscription")
	}
	if err := CanViewSubscription(actor, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

// CancelSubscription cancels an active subscription. Customers may only
// cancel their own; admins and franchise owners may cancel within their
// scope.
func (s *Services) CancelSubscription(id uint, actor Actor, reason string) (*database.Subscription, error) {
	sub, err := s.GetSubscription(id, actor)
	if err != nil {
		return nil, err
	}
	if actor.Role == database.RoleServiceAgent {
		return nil, ForbiddenError("service agents cannot cancel subscriptions")
	}
	if sub.Status == database.SubscriptionStatusCancelled {
		return nil, BadRequestError("subscription is already cancelled")
	}

	fromStatus := sub.Status
	txErr := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&database.Subscription{}).
			Where("id = ?", sub.ID).
			Update("status", database.SubscriptionStatusCancelled).Error; err != nil {
			return InternalError(err, "failed to cancel subscription")
		}
		return logAction(tx, &database.ActionHistory{
			SubscriptionID:  &sub.ID,
			ActionType:      database.ActionSubscriptionCancelled,
			FromStatus:      string(fromStatus),
			ToStatus:        string(database.SubscriptionStatusCancelled),
			PerformedBy:     actor.UserID,
			PerformedByRole: actor.Role,
			Comment:         reason,
		})
	})
	if txErr != nil {
		return nil, asServiceError(txErr, "failed to cancel subscription")
	}

	s.Notifier.Notify(sub.CustomerID, "Subscription Cancelled",
		"Your subscription has been cancelled.",
		"subscription", sub.ID, "subscription")

	sub.Status = database.SubscriptionStatusCancelled
	return sub, nil
}
