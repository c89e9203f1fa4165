package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dtroode/vaultdrop-server/internal/logger"
	"github.com/dtroode/vaultdrop-server/internal/metrics"
	"github.com/dtroode/vaultdrop-server/internal/model"
)

// idempotencyWindow groups repeated checkout attempts for the same bundle onto one
// processor session.
const idempotencyWindow = 30 * time.Minute

// CheckoutConfig holds Checkout parameters.
type CheckoutConfig struct {
	AppURL   string
	Currency string
	// SessionExpiry is the minimum lifetime of a processor session. Zero leaves the
	// processor default.
	SessionExpiry time.Duration
}

// CheckoutParams describes the bundle a user wants to buy.
type CheckoutParams struct {
	UserID   uuid.UUID
	Tier     model.Tier
	PeriodID string
}

// Checkout turns purchase intents into processor checkout sessions.
// It never writes to the entitlement store.
type Checkout struct {
	purchases model.PurchaseStore
	periods   model.PeriodStore
	processor model.PaymentProcessor
	cfg       CheckoutConfig
	now       func() time.Time
	logger    *logger.Logger
}

// NewCheckout creates a Checkout. A nil processor makes every call fail with
// model.ErrProcessorUnavailable.
func NewCheckout(
	purchases model.PurchaseStore,
	periods model.PeriodStore,
	processor model.PaymentProcessor,
	cfg CheckoutConfig,
	logger *logger.Logger,
) *Checkout {
	if cfg.Currency == "" {
		cfg.Currency = model.DefaultCurrency
	}
	cfg.AppURL = strings.TrimRight(cfg.AppURL, "/")

	return &Checkout{
		purchases: purchases,
		periods:   periods,
		processor: processor,
		cfg:       cfg,
		now:       time.Now,
		logger:    logger,
	}
}

// CreateCheckout opens a processor checkout session for the bundle in params. It fails
// with model.ErrAlreadyPurchased when the bundle is already owned.
func (s *Checkout) CreateCheckout(ctx context.Context, params CheckoutParams) (model.CheckoutSession, error) {
	b := model.Bundle{UserID: params.UserID, Tier: params.Tier, PeriodID: strings.TrimSpace(params.PeriodID)}
	if err := b.Validate(); err != nil {
		metrics.CheckoutSessions.WithLabelValues(string(params.Tier), metrics.OutcomeRejected).Inc()
		return model.CheckoutSession{}, err
	}

	log := s.logger.With("user_id", b.UserID, "tier", b.Tier, "period_id", b.PeriodID)

	if s.processor == nil {
		return model.CheckoutSession{}, fmt.Errorf("%w: processor is not configured", model.ErrProcessorUnavailable)
	}

	_, err := s.periods.Get(ctx, b.PeriodID)
	if errors.Is(err, model.ErrNotFound) {
		metrics.CheckoutSessions.WithLabelValues(string(b.Tier), metrics.OutcomeRejected).Inc()
		return model.CheckoutSession{}, fmt.Errorf("%w: unknown period %q", model.ErrInvalidRequest, b.PeriodID)
	}
	if err != nil {
		log.Error("failed to get period", "error", err)
		return model.CheckoutSession{}, fmt.Errorf("failed to get period: %w", err)
	}

	_, err = s.purchases.Get(ctx, b)
	if err == nil {
		metrics.CheckoutSessions.WithLabelValues(string(b.Tier), metrics.OutcomeAlreadyPurchased).Inc()
		return model.CheckoutSession{}, model.ErrAlreadyPurchased
	}
	if !errors.Is(err, model.ErrNotFound) {
		log.Error("failed to check existing purchase", "error", err)
		return model.CheckoutSession{}, fmt.Errorf("failed to check existing purchase: %w", err)
	}

	window := idempotencyWindowFor(b, s.now())
	spec := b.Tier.Spec()
	req := model.CheckoutSessionRequest{
		ProductName: spec.DisplayName,
		Description: fmt.Sprintf("%s - Accès permanent", b.PeriodID),
		AmountCents: spec.PriceCents,
		Currency:    s.cfg.Currency,
		SuccessURL:  s.successURL(b),
		CancelURL:   s.cfg.AppURL + "/offers?canceled=true",
		Metadata: map[string]string{
			model.MetadataUserID:   b.UserID.String(),
			model.MetadataTier:     string(b.Tier),
			model.MetadataPeriodID: b.PeriodID,
		},
		IdempotencyKey: window.key,
	}
	if s.cfg.SessionExpiry > 0 {
		req.ExpiresAt = window.end.Add(s.cfg.SessionExpiry)
	}

	session, err := s.processor.CreateCheckoutSession(ctx, req)
	if err != nil {
		metrics.CheckoutSessions.WithLabelValues(string(b.Tier), metrics.OutcomeFailed).Inc()
		log.Error("failed to create checkout session", "error", err)
		return model.CheckoutSession{}, fmt.Errorf("failed to create checkout session: %w", err)
	}

	metrics.CheckoutSessions.WithLabelValues(string(b.Tier), metrics.OutcomeCreated).Inc()
	log.Info("checkout session created", "session_id", session.ID)

	return session, nil
}

func (s *Checkout) successURL(b model.Bundle) string {
	q := url.Values{}
	q.Set("success", "true")
	q.Set("tier", string(b.Tier))
	q.Set("week", b.PeriodID)
	return s.cfg.AppURL + "/offers?" + q.Encode()
}

// checkoutWindow is the idempotency window a checkout attempt falls in.
type checkoutWindow struct {
	key string
	end time.Time
}

// idempotencyWindowFor returns a key that is stable for one bundle within one idempotency
// window, so a double submit reuses the processor session instead of opening a second one.
// Everything sent with the key must be derived from the window, never from now.
func idempotencyWindowFor(b model.Bundle, now time.Time) checkoutWindow {
	sum := sha256.Sum256([]byte(b.UserID.String() + "|" + string(b.Tier) + "|" + b.PeriodID))
	width := int64(idempotencyWindow / time.Second)
	bucket := now.Unix() / width
	return checkoutWindow{
		key: "checkout-" + hex.EncodeToString(sum[:16]) + "-" + strconv.FormatInt(bucket, 10),
		end: time.Unix((bucket+1)*width, 0).UTC(),
	}
}
