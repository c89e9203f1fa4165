package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/dtroode/vaultdrop-server/internal/logger"
	"github.com/dtroode/vaultdrop-server/internal/model"
)

// OwnedBundle is a purchase together with its progression.
type OwnedBundle struct {
	Purchase model.Purchase
	State    BundleState
}

// Library reads and resets a user's entitlements.
type Library struct {
	purchases    model.PurchaseStore
	reveals      model.RevealStore
	periods      model.PeriodStore
	resetEnabled bool
	logger       *logger.Logger
}

// NewLibrary creates a Library. Reset is refused unless resetEnabled is set.
func NewLibrary(
	purchases model.PurchaseStore,
	reveals model.RevealStore,
	periods model.PeriodStore,
	resetEnabled bool,
	logger *logger.Logger,
) *Library {
	return &Library{
		purchases:    purchases,
		reveals:      reveals,
		periods:      periods,
		resetEnabled: resetEnabled,
		logger:       logger,
	}
}

// Bundles returns every bundle userID owns in purchase order.
func (s *Library) Bundles(ctx context.Context, userID uuid.UUID) ([]OwnedBundle, error) {
	purchases, err := s.purchases.ListByUser(ctx, userID)
	if err != nil {
		s.logger.Error("failed to list purchases", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to list purchases: %w", err)
	}
	reveals, err := s.reveals.ListByUser(ctx, userID)
	if err != nil {
		s.logger.Error("failed to list reveals", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to list reveals: %w", err)
	}

	byBundle := make(map[model.Bundle][]model.Reveal)
	for _, r := range reveals {
		b := model.Bundle{UserID: r.UserID, Tier: r.Tier, PeriodID: r.PeriodID}
		byBundle[b] = append(byBundle[b], r)
	}

	out := make([]OwnedBundle, 0, len(purchases))
	for _, p := range purchases {
		b := model.Bundle{UserID: p.UserID, Tier: p.Tier, PeriodID: p.PeriodID}
		out = append(out, OwnedBundle{Purchase: p, State: deriveState(b, byBundle[b])})
	}
	return out, nil
}

// ResetEnabled reports whether Reset may be used.
func (s *Library) ResetEnabled() bool {
	return s.resetEnabled
}

// Reset deletes every reveal and purchase of userID. It fails with model.ErrNotFound
// when resets are disabled.
func (s *Library) Reset(ctx context.Context, userID uuid.UUID) (purchases, reveals int64, err error) {
	if !s.resetEnabled {
		return 0, 0, model.ErrNotFound
	}

	reveals, err = s.reveals.DeleteByUser(ctx, userID)
	if err != nil {
		s.logger.Error("failed to delete reveals", "user_id", userID, "error", err)
		return 0, 0, fmt.Errorf("failed to delete reveals: %w", err)
	}
	purchases, err = s.purchases.DeleteByUser(ctx, userID)
	if err != nil {
		s.logger.Error("failed to delete purchases", "user_id", userID, "error", err)
		return 0, reveals, fmt.Errorf("failed to delete purchases: %w", err)
	}

	s.logger.Warn("entitlements reset", "user_id", userID, "purchases", purchases, "reveals", reveals)
	return purchases, reveals, nil
}

// Periods lists content periods, newest first.
func (s *Library) Periods(ctx context.Context) ([]model.Period, error) {
	periods, err := s.periods.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list periods: %w", err)
	}
	return periods, nil
}

// ActivePeriod returns the active period or model.ErrNotFound.
func (s *Library) ActivePeriod(ctx context.Context) (model.Period, error) {
	p, err := s.periods.GetActive(ctx)
	if errors.Is(err, model.ErrNotFound) {
		return model.Period{}, err
	}
	if err != nil {
		return model.Period{}, fmt.Errorf("failed to get active period: %w", err)
	}
	return p, nil
}
