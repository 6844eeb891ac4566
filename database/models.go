package database

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

// StringArray is an ordered list of strings stored as a JSON TEXT column.
// Invalid or missing JSON scans to an empty list, never an error.
type StringArray []string

// Scan implements sql.Scanner
func (a *StringArray) Scan(value interface{}) error {
	if value == nil {
		*a = nil
		return nil
	}

	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		*a = StringArray{}
		return nil
	}

	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		*a = StringArray{}
		return nil
	}
	*a = out
	return nil
}

// Value implements driver.Valuer
func (a StringArray) Value() (driver.Value, error) {
	if a == nil {
		return nil, nil
	}
	data, err := json.Marshal([]string(a))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// GormDataType tells gorm to use a TEXT column
func (StringArray) GormDataType() string {
	return "text"
}

// JSONMap is a free-form key/value map stored as a JSON TEXT column,
// with the same defensive scan behavior as StringArray.
type JSONMap map[string]interface{}

// Scan implements sql.Scanner
func (m *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*m = nil
		return nil
	}

	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		*m = JSONMap{}
		return nil
	}

	var out map[string]interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		*m = JSONMap{}
		return nil
	}
	*m = out
	return nil
}

// Value implements driver.Valuer
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	data, err := json.Marshal(map[string]interface{}(m))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// GormDataType tells gorm to use a TEXT column
func (JSONMap) GormDataType() string {
	return "text"
}

// ServiceRequestStatus is the closed set of service request states
type ServiceRequestStatus string

const (
	ServiceStatusCreated        ServiceRequestStatus = "CREATED"
	ServiceStatusAssigned       ServiceRequestStatus = "ASSIGNED"
	ServiceStatusScheduled      ServiceRequestStatus = "SCHEDULED"
	ServiceStatusInProgress     ServiceRequestStatus = "IN_PROGRESS"
	ServiceStatusPaymentPending ServiceRequestStatus = "PAYMENT_PENDING"
	ServiceStatusCompleted      ServiceRequestStatus = "COMPLETED"
	ServiceStatusCancelled      ServiceRequestStatus = "CANCELLED"
)

// ServiceRequestType is the closed set of service request kinds
type ServiceRequestType string

const (
	ServiceTypeGeneral        ServiceRequestType = "GENERAL"
	ServiceTypeInstallation   ServiceRequestType = "INSTALLATION"
	ServiceTypeMaintenance    ServiceRequestType = "MAINTENANCE"
	ServiceTypeRepair         ServiceRequestType = "REPAIR"
	ServiceTypeUninstallation ServiceRequestType = "UNINSTALLATION"
)

// InstallationStatus is the closed set of installation request states.
// It mirrors, but is not identical to, the service request states.
type InstallationStatus string

const (
	InstallationStatusCreated        InstallationStatus = "CREATED"
	InstallationStatusApproved       InstallationStatus = "APPROVED"
	InstallationStatusScheduled      InstallationStatus = "INSTALLATION_SCHEDULED"
	InstallationStatusInProgress     InstallationStatus = "INSTALLATION_IN_PROGRESS"
	InstallationStatusPaymentPending InstallationStatus = "PAYMENT_PENDING"
	InstallationStatusCompleted      InstallationStatus = "INSTALLATION_COMPLETED"
	InstallationStatusCancelled      InstallationStatus = "CANCELLED"
)

// SubscriptionStatus is the closed set of subscription states
type SubscriptionStatus string

const (
	SubscriptionStatusActive    SubscriptionStatus = "ACTIVE"
	SubscriptionStatusPaused    SubscriptionStatus = "PAUSED"
	SubscriptionStatusCancelled SubscriptionStatus = "CANCELLED"
	SubscriptionStatusExpired   SubscriptionStatus = "EXPIRED"
)

// PaymentStatus is the closed set of payment states
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

// PaymentType classifies what a payment was for
type PaymentType string

const (
	PaymentTypeInstallation PaymentType = "installation"
	PaymentTypeMonthly      PaymentType = "monthly"
	PaymentTypeService      PaymentType = "service"
)

// User role constants
const (
	RoleAdmin          = "admin"
	RoleFranchiseOwner = "franchise_owner"
	RoleServiceAgent   = "service_agent"
	RoleCustomer       = "customer"
)

// User represents a user in the system
type User struct {
	gorm.Model
	Name         string `json:"name"`
	Email        string `json:"email" gorm:"uniqueIndex"`
	PasswordHash string `json:"-"`
	Role         string `json:"role"`
	FranchiseID  *uint  `json:"franchise_id"`
	Phone        string `json:"phone"`
	Address      string `json:"address"`
	City         string `json:"city"`
	State        string `json:"state"`
	ZipCode      string `json:"zip_code"`
	PushToken    string `json:"-"`
}

// Product represents a water purifier product
type Product struct {
	gorm.Model
	Name            string  `json:"name"`
	Description     string  `json:"description"`
	MonthlyRent     float64 `json:"monthly_rent"`
	SecurityDeposit float64 `json:"security_deposit"`
	InstallationFee float64 `json:"installation_fee"`
	ImageURL        string  `json:"image_url"`
	PlanName        string  `json:"plan_name"`
	IsActive        bool    `json:"is_active" gorm:"column:is_active"`
}

// Franchise represents a franchise area
type Franchise struct {
	gorm.Model
	OwnerID     *uint  `json:"owner_id"` // nil means company-managed
	Name        string `json:"name"`
	Address     string `json:"address"`
	City        string `json:"city"`
	State       string `json:"state"`
	ZipCode     string `json:"zip_code"`
	Phone       string `json:"phone"`
	Email       string `json:"email"`
	IsActive    bool   `json:"is_active"`
	ServiceArea string `json:"service_area"`
	Owner       *User  `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
}

// Location maps a serviceable zip code to the franchise that covers it
type Location struct {
	gorm.Model
	ZipCode     string    `json:"zip_code" gorm:"uniqueIndex"`
	FranchiseID uint      `json:"franchise_id"`
	Franchise   Franchise `gorm:"foreignKey:FranchiseID" json:"franchise"`
}

// InstallationRequest represents a customer's request to get a product
// installed. It is owned 1:1 by at most one ServiceRequest of type
// INSTALLATION.
type InstallationRequest struct {
	gorm.Model
	CustomerID             uint               `json:"customer_id"`
	ProductID              uint               `json:"product_id"`
	FranchiseID            uint               `json:"franchise_id"`
	Status                 InstallationStatus `json:"status"`
	AssignedTechnicianID   *uint              `json:"assigned_technician_id"`
	ConnectID              string             `json:"connect_id"` // assigned once, at first successful payment
	RazorpaySubscriptionID string             `json:"razorpay_subscription_id"`
	RazorpayPaymentLink    string             `json:"razorpay_payment_link"`
	CompletedDate          *time.Time         `json:"completed_date"`
	Customer               User               `gorm:"foreignKey:CustomerID" json:"customer"`
	Product                Product            `gorm:"foreignKey:ProductID" json:"product"`
	Franchise              Franchise          `gorm:"foreignKey:FranchiseID" json:"franchise"`
}

// ServiceRequest represents a maintenance/installation/service request.
// Rows are never hard-deleted; CANCELLED is terminal-but-reversible.
type ServiceRequest struct {
	gorm.Model
	CustomerID            uint                 `json:"customer_id"`
	ProductID             uint                 `json:"product_id"`
	SubscriptionID        *uint                `json:"subscription_id"`
	InstallationRequestID *uint                `json:"installation_request_id"`
	Type                  ServiceRequestType   `json:"type"`
	Description           string               `json:"description"`
	Status                ServiceRequestStatus `json:"status"`
	AssignedToID          *uint                `json:"assigned_to_id"`
	FranchiseID           uint                 `json:"franchise_id"`
	ScheduledDate         *time.Time           `json:"scheduled_date"`
	CompletedDate         *time.Time           `json:"completed_date"`
	BeforeImages          StringArray          `json:"before_images"`
	AfterImages           StringArray          `json:"after_images"`
	RequiresPayment       bool                 `json:"requires_payment"`
	Customer              User                 `gorm:"foreignKey:CustomerID" json:"customer"`
	Product               Product              `gorm:"foreignKey:ProductID" json:"product"`
	Franchise             Franchise            `gorm:"foreignKey:FranchiseID" json:"franchise"`
	AssignedTo            *User                `gorm:"foreignKey:AssignedToID" json:"assigned_to,omitempty"`
	InstallationRequest   *InstallationRequest `gorm:"foreignKey:InstallationRequestID" json:"installation_request,omitempty"`
}

// Subscription represents an active rental subscription. Exactly one
// subscription ever exists per installation request; the unique index on
// request_id backs the idempotency guard in payment reconciliation.
type Subscription struct {
	gorm.Model
	ConnectID              string             `json:"connect_id"`
	RequestID              uint               `json:"request_id" gorm:"uniqueIndex"` // back-reference to InstallationRequest
	CustomerID             uint               `json:"customer_id"`
	ProductID              uint               `json:"product_id"`
	FranchiseID            uint               `json:"franchise_id"`
	PlanName               string             `json:"plan_name"`
	Status                 SubscriptionStatus `json:"status"`
	StartDate              time.Time          `json:"start_date"`
	CurrentPeriodStartDate time.Time          `json:"current_period_start_date"`
	CurrentPeriodEndDate   time.Time          `json:"current_period_end_date"`
	NextPaymentDate        time.Time          `json:"next_payment_date"`
	MonthlyAmount          float64            `json:"monthly_amount"`
	DepositAmount          float64            `json:"deposit_amount"`
	RazorpaySubscriptionID string             `json:"razorpay_subscription_id"`
	Customer               User               `gorm:"foreignKey:CustomerID" json:"customer"`
	Product                Product            `gorm:"foreignKey:ProductID" json:"product"`
	Franchise              Franchise          `gorm:"foreignKey:FranchiseID" json:"franchise"`
}

// Payment represents a payment made in the system
type Payment struct {
	gorm.Model
	CustomerID             uint          `json:"customer_id"`
	InstallationRequestID  *uint         `json:"installation_request_id" gorm:"uniqueIndex:idx_payments_install_gateway"`
	ServiceRequestID       *uint         `json:"service_request_id"`
	SubscriptionID         *uint         `json:"subscription_id"`
	Amount                 float64       `json:"amount"`
	Type                   PaymentType   `json:"type"`
	Status                 PaymentStatus `json:"status"`
	PaymentMethod          string        `json:"payment_method"`
	RazorpayPaymentID      string        `json:"razorpay_payment_id" gorm:"uniqueIndex:idx_payments_install_gateway"`
	RazorpayOrderID        string        `json:"razorpay_order_id"`
	RazorpaySubscriptionID string        `json:"razorpay_subscription_id"`
	PaidDate               *time.Time    `json:"paid_date"`
	Customer               User          `gorm:"foreignKey:CustomerID" json:"customer"`
}

// Notification represents an in-app notification
type Notification struct {
	gorm.Model
	UserID      uint   `json:"user_id"`
	Title       string `json:"title"`
	Message     string `json:"message"`
	Type        string `json:"type"`
	RelatedID   *uint  `json:"related_id"`
	RelatedType string `json:"related_type"`
	IsRead      bool   `json:"is_read"`
	User        User   `gorm:"foreignKey:UserID" json:"user"`
}
