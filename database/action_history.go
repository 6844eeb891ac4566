package database

import "time"

// ActionType classifies an action history entry
type ActionType string

const (
	ActionServiceRequestCreated ActionType = "SERVICE_REQUEST_CREATED"
	ActionStatusChanged         ActionType = "STATUS_CHANGED"
	ActionAgentAssigned         ActionType = "AGENT_ASSIGNED"
	ActionInstallationScheduled ActionType = "INSTALLATION_SCHEDULED"
	ActionInstallationStarted   ActionType = "INSTALLATION_IN_PROGRESS"
	ActionPaymentPending        ActionType = "PAYMENT_PENDING"
	ActionInstallationCompleted ActionType = "INSTALLATION_COMPLETED"
	ActionCancelled             ActionType = "CANCELLED"
	ActionPaymentCompleted      ActionType = "PAYMENT_COMPLETED"
	ActionSubscriptionCreated   ActionType = "SUBSCRIPTION_CREATED"
	ActionSubscriptionCancelled ActionType = "SUBSCRIPTION_CANCELLED"
)

// ActionHistory is an append-only audit trail entry. Entries are written
// inside the same transaction as the state change they record and are
// never updated or deleted afterwards, so the model deliberately carries
// no UpdatedAt or DeletedAt.
type ActionHistory struct {
	ID                    uint       `gorm:"primaryKey" json:"id"`
	ServiceRequestID      *uint      `json:"service_request_id"`
	InstallationRequestID *uint      `json:"installation_request_id"`
	SubscriptionID        *uint      `json:"subscription_id"`
	PaymentID             *uint      `json:"payment_id"`
	ActionType            ActionType `json:"action_type"`
	FromStatus            string     `json:"from_status"`
	ToStatus              string     `json:"to_status"`
	PerformedBy           uint       `json:"performed_by"`
	PerformedByRole       string     `json:"performed_by_role"`
	Comment               string     `json:"comment"`
	Metadata              JSONMap    `json:"metadata"`
	CreatedAt             time.Time  `json:"created_at"`
}

// HasEntityRef reports whether the entry carries at least one owning
// entity reference.
func (a ActionHistory) HasEntityRef() bool {
	return a.ServiceRequestID != nil || a.InstallationRequestID != nil ||
		a.SubscriptionID != nil || a.PaymentID != nil
}
