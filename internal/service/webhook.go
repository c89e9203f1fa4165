package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/dtroode/vaultdrop-server/internal/logger"
	"github.com/dtroode/vaultdrop-server/internal/metrics"
	"github.com/dtroode/vaultdrop-server/internal/model"
)

// WebhookOutcome is the acknowledged result of a delivery.
type WebhookOutcome string

const (
	WebhookRecorded  WebhookOutcome = "recorded"
	WebhookDuplicate WebhookOutcome = "duplicate"
	WebhookIgnored   WebhookOutcome = "ignored"
)

// WebhookDelivery is one raw notification as received.
type WebhookDelivery struct {
	Payload    []byte
	Signature  string
	RemoteAddr string
}

// Webhook records completed payments announced by the processor.
type Webhook struct {
	verifier  model.EventVerifier
	purchases model.PurchaseStore
	logger    *logger.Logger
}

// NewWebhook creates a Webhook. A nil verifier means the processor is not configured.
func NewWebhook(verifier model.EventVerifier, purchases model.PurchaseStore, logger *logger.Logger) *Webhook {
	return &Webhook{
		verifier:  verifier,
		purchases: purchases,
		logger:    logger,
	}
}

// Configured reports whether deliveries can be verified.
func (s *Webhook) Configured() bool {
	return s.verifier != nil
}

// HandleDelivery verifies a delivery and records its purchase. A nil error means the
// delivery must be acknowledged; repeated deliveries of the same event succeed without
// writing again.
func (s *Webhook) HandleDelivery(ctx context.Context, d WebhookDelivery) (WebhookOutcome, error) {
	if s.verifier == nil {
		return "", fmt.Errorf("%w: webhook secret is not configured", model.ErrProcessorUnavailable)
	}

	evt, err := s.verifier.Verify(d.Payload, d.Signature)
	switch {
	case errors.Is(err, model.ErrInvalidSignature):
		metrics.WebhookEvents.WithLabelValues(metrics.OutcomeInvalidSignature).Inc()
		s.logger.Warn("potential forged webhook", "remote_addr", d.RemoteAddr, "error", err)
		return "", err
	case errors.Is(err, model.ErrMalformedEvent):
		metrics.WebhookEvents.WithLabelValues(metrics.OutcomeMalformed).Inc()
		s.logger.Error("malformed webhook event", "event_id", evt.ID, "error", err)
		return "", err
	case err != nil:
		return "", fmt.Errorf("failed to verify event: %w", err)
	}

	if evt.Type != model.EventCheckoutCompleted {
		metrics.WebhookEvents.WithLabelValues(metrics.OutcomeIgnored).Inc()
		s.logger.Debug("webhook event ignored", "event_id", evt.ID, "type", evt.Type)
		return WebhookIgnored, nil
	}

	p, err := purchaseFromEvent(evt)
	if err != nil {
		metrics.WebhookEvents.WithLabelValues(metrics.OutcomeMalformed).Inc()
		s.logger.Error("malformed checkout event", "event_id", evt.ID, "session_id", evt.SessionID, "error", err)
		return "", err
	}

	log := s.logger.With("user_id", p.UserID, "tier", p.Tier, "period_id", p.PeriodID, "session_id", p.CheckoutSessionID)

	_, err = s.purchases.InsertIfAbsent(ctx, p)
	if errors.Is(err, model.ErrAlreadyExists) {
		metrics.WebhookEvents.WithLabelValues(metrics.OutcomeDuplicate).Inc()
		s.reportDuplicate(ctx, log, p)
		return WebhookDuplicate, nil
	}
	if err != nil {
		metrics.WebhookEvents.WithLabelValues(metrics.OutcomeFailed).Inc()
		log.Error("failed to record purchase", "error", err)
		return "", fmt.Errorf("failed to record purchase: %w", err)
	}

	metrics.WebhookEvents.WithLabelValues(metrics.OutcomeRecorded).Inc()
	metrics.PurchasesRecorded.WithLabelValues(string(p.Tier)).Inc()
	log.Info("purchase recorded")

	return WebhookRecorded, nil
}

// reportDuplicate tells redeliveries apart from a second paid session for a bundle that
// was already bought. The latter needs a manual refund.
func (s *Webhook) reportDuplicate(ctx context.Context, log *logger.Logger, p model.Purchase) {
	existing, err := s.purchases.Get(ctx, model.Bundle{UserID: p.UserID, Tier: p.Tier, PeriodID: p.PeriodID})
	if err != nil {
		log.Info("duplicate delivery acknowledged", "lookup_error", err)
		return
	}
	if existing.CheckoutSessionID != "" && p.CheckoutSessionID != "" && existing.CheckoutSessionID != p.CheckoutSessionID {
		log.Warn("bundle paid twice, refund required", "recorded_session_id", existing.CheckoutSessionID)
		return
	}
	log.Info("duplicate delivery acknowledged")
}

func purchaseFromEvent(evt model.PaymentEvent) (model.Purchase, error) {
	rawUser := evt.Metadata[model.MetadataUserID]
	rawTier := evt.Metadata[model.MetadataTier]
	periodID := evt.Metadata[model.MetadataPeriodID]
	if rawUser == "" || rawTier == "" || periodID == "" {
		return model.Purchase{}, fmt.Errorf("%w: session metadata is incomplete", model.ErrMalformedEvent)
	}

	userID, err := uuid.Parse(rawUser)
	if err != nil {
		return model.Purchase{}, fmt.Errorf("%w: user id %q: %v", model.ErrMalformedEvent, rawUser, err)
	}
	tier, err := model.ParseTier(rawTier)
	if err != nil {
		return model.Purchase{}, fmt.Errorf("%w: %v", model.ErrMalformedEvent, err)
	}

	return model.Purchase{
		UserID:            userID,
		Tier:              tier,
		PeriodID:          periodID,
		CheckoutSessionID: evt.SessionID,
	}, nil
}
