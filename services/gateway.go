package services

import (
	"fmt"
	"time"

	"github.com/razorpay/razorpay-go"
)

// GatewaySubscription is the authoritative subscription state reported by
// the payment gateway.
type GatewaySubscription struct {
	ID           string
	Status       string
	PlanID       string
	CurrentStart time.Time
	CurrentEnd   time.Time
}

// GatewayInvoice is one invoice of a gateway subscription. Status "paid"
// means the underlying payment is complete.
type GatewayInvoice struct {
	Status    string
	PaymentID string
	Amount    float64
}

// GatewaySubscriptionLink is the result of creating a gateway
// subscription: its id plus the customer-facing payment link.
type GatewaySubscriptionLink struct {
	SubscriptionID string
	ShortURL       string
}

// PaymentGateway is the external payment gateway boundary consumed by
// payment reconciliation and the installation approval flow.
type PaymentGateway interface {
	CreateSubscription(planID string, totalCount int, notes map[string]interface{}) (*GatewaySubscriptionLink, error)
	FetchSubscription(subscriptionID string) (*GatewaySubscription, error)
	ListInvoices(subscriptionID string) ([]GatewayInvoice, error)
}

// RazorpayGateway implements PaymentGateway against Razorpay
type RazorpayGateway struct {
	client *razorpay.Client
}

// NewRazorpayGateway creates a gateway client with the given credentials
func NewRazorpayGateway(key, secret string) *RazorpayGateway {
	return &RazorpayGateway{client: razorpay.NewClient(key, secret)}
}

// CreateSubscription creates a gateway subscription on the given plan and
// returns its id and payment link
func (g *RazorpayGateway) CreateSubscription(planID string, totalCount int, notes map[string]interface{}) (*GatewaySubscriptionLink, error) {
	data := map[string]interface{}{
		"plan_id":         planID,
		"total_count":     totalCount,
		"customer_notify": 1,
		"notes":           notes,
	}

	sub, err := g.client.Subscription.Create(data, nil)
	if err != nil {
		return nil, fmt.Errorf("razorpay subscription create: %w", err)
	}

	return &GatewaySubscriptionLink{
		SubscriptionID: asString(sub, "id"),
		ShortURL:       asString(sub, "short_url"),
	}, nil
}

// FetchSubscription fetches the current state of a gateway subscription
func (g *RazorpayGateway) FetchSubscription(subscriptionID string) (*GatewaySubscription, error) {
	sub, err := g.client.Subscription.Fetch(subscriptionID, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("razorpay subscription fetch: %w", err)
	}

	return &GatewaySubscription{
		ID:           asString(sub, "id"),
		Status:       asString(sub, "status"),
		PlanID:       asString(sub, "plan_id"),
		CurrentStart: asUnixTime(sub, "current_start"),
		CurrentEnd:   asUnixTime(sub, "current_end"),
	}, nil
}

// ListInvoices lists the invoices of a gateway subscription
func (g *RazorpayGateway) ListInvoices(subscriptionID string) ([]GatewayInvoice, error) {
	resp, err := g.client.Invoice.All(map[string]interface{}{
		"subscription_id": subscriptionID,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("razorpay invoice list: %w", err)
	}

	items, _ := resp["items"].([]interface{})
	invoices := make([]GatewayInvoice, 0, len(items))
	for _, item := range items {
		entry, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		invoices = append(invoices, GatewayInvoice{
			Status:    asString(entry, "status"),
			PaymentID: asString(entry, "payment_id"),
			Amount:    asNumber(entry, "amount") / 100, // paise to rupees
		})
	}
	return invoices, nil
}

func asString(m map[string]interface{}, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func asNumber(m map[string]interface{}, key string) float64 {
	switch v := m[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return 0
}

func asUnixTime(m map[string]interface{}, key string) time.Time {
	secs := asNumber(m, key)
	if secs == 0 {
		return time.Time{}
	}
	return time.Unix(int64(secs), 0).UTC()
}
