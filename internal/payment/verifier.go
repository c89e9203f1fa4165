package payment

import (
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/dtroode/vaultdrop-server/internal/model"
)

var _ model.EventVerifier = (*Verifier)(nil)

// Verifier authenticates Stripe webhook payloads with the endpoint signing secret.
type Verifier struct {
	secret    string
	tolerance time.Duration
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: secret, tolerance: webhook.DefaultTolerance}
}

// Verify checks the Stripe-Signature header against payload and decodes the event.
// Checkout session events carry their session id and metadata; other events only
// their id and type.
func (v *Verifier) Verify(payload []byte, signatureHeader string) (model.PaymentEvent, error) {
	if signatureHeader == "" {
		return model.PaymentEvent{}, fmt.Errorf("%w: missing signature header", model.ErrInvalidSignature)
	}

	evt, err := webhook.ConstructEventWithOptions(payload, signatureHeader, v.secret, webhook.ConstructEventOptions{
		Tolerance:                v.tolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return model.PaymentEvent{}, fmt.Errorf("%w: %v", model.ErrInvalidSignature, err)
	}

	out := model.PaymentEvent{ID: evt.ID, Type: string(evt.Type)}
	if evt.Type != stripe.EventTypeCheckoutSessionCompleted {
		return out, nil
	}

	if evt.Data == nil || len(evt.Data.Raw) == 0 {
		return out, fmt.Errorf("%w: event has no data", model.ErrMalformedEvent)
	}
	var s stripe.CheckoutSession
	if err := json.Unmarshal(evt.Data.Raw, &s); err != nil {
		return out, fmt.Errorf("%w: %v", model.ErrMalformedEvent, err)
	}
	if s.ID == "" {
		return out, errors.Join(model.ErrMalformedEvent, errors.New("checkout session has no id"))
	}

	out.SessionID = s.ID
	out.Metadata = s.Metadata
	return out, nil
}
