package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/dtroode/vaultdrop-server/internal/logger"
	"github.com/dtroode/vaultdrop-server/internal/metrics"
	"github.com/dtroode/vaultdrop-server/internal/model"
)

// BundleState is the progression of one purchased bundle, derived from its reveals.
type BundleState struct {
	Bundle    model.Bundle
	ItemCount int
	Revealed  []int
	// NextIndex is the lowest unrevealed index, or ItemCount+1 once exhausted.
	NextIndex int
	Exhausted bool
}

// IsRevealed reports whether index has a reveal.
func (s BundleState) IsRevealed(index int) bool {
	for _, i := range s.Revealed {
		if i == index {
			return true
		}
	}
	return false
}

// RevealResult is the outcome of an advance or an on-demand reveal.
type RevealResult struct {
	State BundleState
	// Index is the item the call targeted, zero when the bundle was already exhausted.
	Index int
	// Created is false when the call was a no-op.
	Created bool
}

// Progression walks purchased bundles item by item. All state is re-derived from the
// entitlement store on every call.
type Progression struct {
	purchases model.PurchaseStore
	reveals   model.RevealStore
	now       func() time.Time
	logger    *logger.Logger
}

// NewProgression creates a Progression over the given entitlement stores.
func NewProgression(purchases model.PurchaseStore, reveals model.RevealStore, logger *logger.Logger) *Progression {
	return &Progression{
		purchases: purchases,
		reveals:   reveals,
		now:       time.Now,
		logger:    logger,
	}
}

// State returns the progression of b. It fails with model.ErrNotEntitled without a purchase.
func (s *Progression) State(ctx context.Context, b model.Bundle) (BundleState, error) {
	if err := b.Validate(); err != nil {
		return BundleState{}, err
	}
	if err := s.requirePurchase(ctx, b); err != nil {
		return BundleState{}, err
	}
	return s.load(ctx, b)
}

// Advance reveals the bundle's current item. When expected is set, an index that is
// already revealed is a no-op and an index past the current item fails with
// model.ErrOutOfSequence. Advancing an exhausted bundle is a no-op.
func (s *Progression) Advance(ctx context.Context, b model.Bundle, expected *int) (RevealResult, error) {
	if err := b.Validate(); err != nil {
		return RevealResult{}, err
	}
	if expected != nil && (*expected < 1 || *expected > b.Tier.ItemCount()) {
		return RevealResult{}, fmt.Errorf("%w: item index %d out of range for tier %s", model.ErrInvalidRequest, *expected, b.Tier)
	}
	if err := s.requirePurchase(ctx, b); err != nil {
		return RevealResult{}, err
	}

	state, err := s.load(ctx, b)
	if err != nil {
		return RevealResult{}, err
	}

	if expected != nil {
		switch {
		case state.IsRevealed(*expected):
			return RevealResult{State: state, Index: *expected}, nil
		case *expected > state.NextIndex:
			return RevealResult{}, fmt.Errorf("%w: item %d requested, current item is %d", model.ErrOutOfSequence, *expected, state.NextIndex)
		}
	}
	if state.Exhausted {
		return RevealResult{State: state}, nil
	}

	return s.reveal(ctx, b, state.NextIndex)
}

// RevealItem reveals index out of order. It serves browsing of an owned bundle, where
// any item may be opened directly.
func (s *Progression) RevealItem(ctx context.Context, b model.Bundle, index int) (RevealResult, error) {
	if err := b.Validate(); err != nil {
		return RevealResult{}, err
	}
	if err := b.Item(index).Validate(); err != nil {
		return RevealResult{}, err
	}
	if err := s.requirePurchase(ctx, b); err != nil {
		return RevealResult{}, err
	}

	return s.reveal(ctx, b, index)
}

// CanAccess reports whether user may fetch item: the bundle must be owned and the item
// either revealed or the bundle's current item.
func (s *Progression) CanAccess(ctx context.Context, userID uuid.UUID, item model.MediaItem) error {
	if err := item.Validate(); err != nil {
		return err
	}
	state, err := s.State(ctx, model.Bundle{UserID: userID, Tier: item.Tier, PeriodID: item.PeriodID})
	if err != nil {
		return err
	}
	if state.IsRevealed(item.Index) || item.Index == state.NextIndex {
		return nil
	}
	return fmt.Errorf("%w: item %d is not revealed yet", model.ErrNotEntitled, item.Index)
}

func (s *Progression) reveal(ctx context.Context, b model.Bundle, index int) (RevealResult, error) {
	item := b.Item(index)
	_, err := s.reveals.InsertIfAbsent(ctx, model.Reveal{
		UserID:     b.UserID,
		Tier:       b.Tier,
		MediaKey:   item.MediaKey(),
		ItemIndex:  index,
		PeriodID:   b.PeriodID,
		RevealedAt: s.now().UTC(),
	})

	created := true
	switch {
	case errors.Is(err, model.ErrAlreadyExists):
		created = false
	case errors.Is(err, model.ErrNotEntitled):
		return RevealResult{}, err
	case err != nil:
		s.logger.Error("failed to record reveal",
			"user_id", b.UserID, "tier", b.Tier, "period_id", b.PeriodID, "index", index, "error", err)
		return RevealResult{}, fmt.Errorf("failed to record reveal: %w", err)
	}

	if created {
		metrics.RevealsRecorded.WithLabelValues(string(b.Tier)).Inc()
	}

	state, err := s.load(ctx, b)
	if err != nil {
		return RevealResult{}, err
	}
	return RevealResult{State: state, Index: index, Created: created}, nil
}

func (s *Progression) requirePurchase(ctx context.Context, b model.Bundle) error {
	_, err := s.purchases.Get(ctx, b)
	if errors.Is(err, model.ErrNotFound) {
		return model.ErrNotEntitled
	}
	if err != nil {
		s.logger.Error("failed to get purchase",
			"user_id", b.UserID, "tier", b.Tier, "period_id", b.PeriodID, "error", err)
		return fmt.Errorf("failed to get purchase: %w", err)
	}
	return nil
}

func (s *Progression) load(ctx context.Context, b model.Bundle) (BundleState, error) {
	reveals, err := s.reveals.ListForBundle(ctx, b)
	if err != nil {
		s.logger.Error("failed to list reveals",
			"user_id", b.UserID, "tier", b.Tier, "period_id", b.PeriodID, "error", err)
		return BundleState{}, fmt.Errorf("failed to list reveals: %w", err)
	}
	return deriveState(b, reveals), nil
}

func deriveState(b model.Bundle, reveals []model.Reveal) BundleState {
	count := b.Tier.ItemCount()
	seen := make([]bool, count+1)
	revealed := make([]int, 0, len(reveals))
	for _, r := range reveals {
		if r.ItemIndex < 1 || r.ItemIndex > count || seen[r.ItemIndex] {
			continue
		}
		seen[r.ItemIndex] = true
		revealed = append(revealed, r.ItemIndex)
	}

	slices.Sort(revealed)

	next := count + 1
	for i := 1; i <= count; i++ {
		if !seen[i] {
			next = i
			break
		}
	}

	return BundleState{
		Bundle:    b,
		ItemCount: count,
		Revealed:  revealed,
		NextIndex: next,
		Exhausted: next > count,
	}
}
