// Package payment adapts Stripe Checkout to the payment interfaces of the model package.
package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"

	"github.com/dtroode/vaultdrop-server/internal/logger"
	"github.com/dtroode/vaultdrop-server/internal/model"
)

const breakerName = "stripe-checkout"

// sessionAPI is the subset of the Stripe checkout session client used here.
type sessionAPI interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

var _ model.PaymentProcessor = (*Processor)(nil)

// ProcessorConfig holds Processor parameters.
type ProcessorConfig struct {
	BreakerFailures  uint32
	BreakerOpenDelay time.Duration
}

// Processor creates hosted checkout sessions.
type Processor struct {
	sessions sessionAPI
	breaker  *gobreaker.CircuitBreaker[*stripe.CheckoutSession]
	logger   *logger.Logger
}

// NewProcessor creates a Processor talking to Stripe with secretKey.
func NewProcessor(secretKey string, cfg ProcessorConfig, logger *logger.Logger) *Processor {
	sc := client.New(secretKey, nil)
	return NewProcessorWithAPI(sc.CheckoutSessions, cfg, logger)
}

// NewProcessorWithAPI creates a Processor on top of an existing session client.
func NewProcessorWithAPI(sessions sessionAPI, cfg ProcessorConfig, logger *logger.Logger) *Processor {
	failures := cfg.BreakerFailures
	if failures == 0 {
		failures = 5
	}

	breaker := gobreaker.NewCircuitBreaker[*stripe.CheckoutSession](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Timeout:     cfg.BreakerOpenDelay,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
		// Rejections of our own request say nothing about Stripe's health.
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			var se *stripe.Error
			return errors.As(err, &se) && se.HTTPStatusCode > 0 && se.HTTPStatusCode < 500
		},
	})

	return &Processor{
		sessions: sessions,
		breaker:  breaker,
		logger:   logger,
	}
}

// CreateCheckoutSession opens a one-off payment session for a single line item. The
// parameters depend only on req, so a retry under the same idempotency key replays the
// original request.
func (p *Processor) CreateCheckoutSession(ctx context.Context, req model.CheckoutSessionRequest) (model.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(req.Currency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name:        stripe.String(req.ProductName),
						Description: stripe.String(req.Description),
					},
					UnitAmount: stripe.Int64(req.AmountCents),
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
	}
	if !req.ExpiresAt.IsZero() {
		params.ExpiresAt = stripe.Int64(req.ExpiresAt.Unix())
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}
	params.Context = ctx

	s, err := p.breaker.Execute(func() (*stripe.CheckoutSession, error) {
		return p.sessions.New(params)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return model.CheckoutSession{}, fmt.Errorf("%w: %v", model.ErrProcessorUnavailable, err)
		}
		return model.CheckoutSession{}, fmt.Errorf("failed to create checkout session: %w", err)
	}
	if s == nil || s.URL == "" {
		return model.CheckoutSession{}, errors.New("checkout session has no redirect url")
	}

	return model.CheckoutSession{ID: s.ID, URL: s.URL}, nil
}
