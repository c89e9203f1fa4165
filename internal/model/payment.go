package model

import (
	"context"
	"time"
)

// Checkout session metadata keys. They are the only channel from checkout to the webhook.
const (
	MetadataUserID   = "userId"
	MetadataTier     = "tier"
	MetadataPeriodID = "weekId"
)

// EventCheckoutCompleted is the only event type that records a purchase.
const EventCheckoutCompleted = "checkout.session.completed"

// CheckoutSessionRequest describes a single line item checkout session.
type CheckoutSessionRequest struct {
	ProductName    string
	Description    string
	AmountCents    int64
	Currency       string
	SuccessURL     string
	CancelURL      string
	Metadata       map[string]string
	IdempotencyKey string
	// ExpiresAt is derived from the same window as IdempotencyKey so that retries under
	// one key send identical parameters.
	ExpiresAt time.Time
}

// CheckoutSession is the processor's answer to a CheckoutSessionRequest.
type CheckoutSession struct {
	ID  string
	URL string
}

// PaymentEvent is a signature-verified processor notification.
type PaymentEvent struct {
	ID        string
	Type      string
	SessionID string
	Metadata  map[string]string
}

// PaymentProcessor creates hosted checkout sessions.
type PaymentProcessor interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutSessionRequest) (CheckoutSession, error)
}

// EventVerifier authenticates a raw webhook body against its signature header.
// Implementations must not interpret the body before the signature verifies.
type EventVerifier interface {
	Verify(payload []byte, signatureHeader string) (PaymentEvent, error)
}
