package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Provider is a hosted-checkout billing provider.
type Provider interface {
	CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutLink, error)
	// ParseWebhook verifies signature and normalizes the payload.
	ParseWebhook(ctx context.Context, payload []byte, signature string) (*Event, error)
}

type CheckoutRequest struct {
	PriceID     string
	WorkspaceID uuid.UUID
	CustomerID  string
	SuccessURL  string
}

type CheckoutLink struct {
	URL           string    `json:"url"`
	TransactionID string    `json:"transaction_id"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// EventType is the provider's event name.
type EventType string

const (
	EventSubscriptionCreated  EventType = "subscription.created"
	EventSubscriptionUpdated  EventType = "subscription.updated"
	EventSubscriptionResumed  EventType = "subscription.resumed"
	EventSubscriptionActivate EventType = "subscription.activated"
	EventSubscriptionCanceled EventType = "subscription.canceled"
	EventSubscriptionPaused   EventType = "subscription.paused"
)

// Event is a verified, normalized subscription webhook.
type Event struct {
	ID             string
	Type           EventType
	OccurredAt     time.Time
	SubscriptionID string
	CustomerID     string
	Status         string
	PriceID        string
	WorkspaceID    uuid.UUID
	PeriodEndsAt   *time.Time
	CanceledAt     *time.Time
}
