package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/vaultdrop-server/internal/model"
	"github.com/dtroode/vaultdrop-server/internal/testutil"
)

func ownedBundle(t *testing.T, store *testutil.MemStore, tier model.Tier) model.Bundle {
	t.Helper()
	b := model.Bundle{UserID: uuid.New(), Tier: tier, PeriodID: "week-1"}
	_, err := store.InsertIfAbsent(context.Background(), model.Purchase{UserID: b.UserID, Tier: b.Tier, PeriodID: b.PeriodID})
	require.NoError(t, err)
	return b
}

func intPtr(i int) *int { return &i }

func TestProgression_SequentialAdvanceExhaustsBundle(t *testing.T) {
	store := testutil.NewMemStore()
	s := NewProgression(store, store.Reveals(), testutil.MakeNoopLogger())
	b := ownedBundle(t, store, model.TierPremium)
	ctx := context.Background()

	for i := 1; i <= 10; i++ {
		res, err := s.Advance(ctx, b, nil)
		require.NoError(t, err)
		assert.True(t, res.Created)
		assert.Equal(t, i, res.Index)
		assert.Equal(t, i+1, res.State.NextIndex)
	}

	state, err := s.State(ctx, b)
	require.NoError(t, err)
	assert.True(t, state.Exhausted)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, state.Revealed)

	res, err := s.Advance(ctx, b, nil)
	require.NoError(t, err)
	assert.False(t, res.Created)
	assert.Zero(t, res.Index)
	assert.True(t, res.State.Exhausted)
	assert.Equal(t, 10, store.RevealCount())
}

func TestProgression_NotEntitled(t *testing.T) {
	store := testutil.NewMemStore()
	s := NewProgression(store, store.Reveals(), testutil.MakeNoopLogger())
	b := model.Bundle{UserID: uuid.New(), Tier: model.TierEssential, PeriodID: "week-1"}

	_, err := s.Advance(context.Background(), b, nil)
	assert.ErrorIs(t, err, model.ErrNotEntitled)

	_, err = s.RevealItem(context.Background(), b, 2)
	assert.ErrorIs(t, err, model.ErrNotEntitled)

	_, err = s.State(context.Background(), b)
	assert.ErrorIs(t, err, model.ErrNotEntitled)
	assert.Zero(t, store.RevealCount())
}

func TestProgression_RetriedAdvanceIsNoop(t *testing.T) {
	store := testutil.NewMemStore()
	s := NewProgression(store, store.Reveals(), testutil.MakeNoopLogger())
	b := ownedBundle(t, store, model.TierEssential)
	ctx := context.Background()

	first, err := s.Advance(ctx, b, intPtr(1))
	require.NoError(t, err)
	assert.True(t, first.Created)

	retry, err := s.Advance(ctx, b, intPtr(1))
	require.NoError(t, err)
	assert.False(t, retry.Created)
	assert.Equal(t, 1, retry.Index)
	assert.Equal(t, 2, retry.State.NextIndex)
	assert.Equal(t, 1, store.RevealCount())
}

func TestProgression_AdvanceExpectedIndex(t *testing.T) {
	store := testutil.NewMemStore()
	s := NewProgression(store, store.Reveals(), testutil.MakeNoopLogger())
	b := ownedBundle(t, store, model.TierEssential)
	ctx := context.Background()

	_, err := s.Advance(ctx, b, intPtr(3))
	assert.ErrorIs(t, err, model.ErrOutOfSequence)

	_, err = s.Advance(ctx, b, intPtr(6))
	assert.ErrorIs(t, err, model.ErrInvalidRequest)

	_, err = s.Advance(ctx, b, intPtr(0))
	assert.ErrorIs(t, err, model.ErrInvalidRequest)
	assert.Zero(t, store.RevealCount())
}

func TestProgression_RevealOnDemand(t *testing.T) {
	store := testutil.NewMemStore()
	s := NewProgression(store, store.Reveals(), testutil.MakeNoopLogger())
	b := ownedBundle(t, store, model.TierEssential)
	ctx := context.Background()

	res, err := s.RevealItem(ctx, b, 4)
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.Equal(t, []int{4}, res.State.Revealed)
	assert.Equal(t, 1, res.State.NextIndex)

	again, err := s.RevealItem(ctx, b, 4)
	require.NoError(t, err)
	assert.False(t, again.Created)

	_, err = s.RevealItem(ctx, b, 9)
	assert.ErrorIs(t, err, model.ErrInvalidRequest)

	// Sequential advance skips items already revealed on demand.
	for _, want := range []int{1, 2, 3, 5} {
		res, err := s.Advance(ctx, b, nil)
		require.NoError(t, err)
		assert.Equal(t, want, res.Index)
	}
	state, err := s.State(ctx, b)
	require.NoError(t, err)
	assert.True(t, state.Exhausted)
	assert.Equal(t, 5, store.RevealCount())
}

func TestProgression_CanAccess(t *testing.T) {
	store := testutil.NewMemStore()
	s := NewProgression(store, store.Reveals(), testutil.MakeNoopLogger())
	b := ownedBundle(t, store, model.TierPremium)
	ctx := context.Background()

	_, err := s.RevealItem(ctx, b, 7)
	require.NoError(t, err)

	assert.NoError(t, s.CanAccess(ctx, b.UserID, b.Item(1)), "current item")
	assert.NoError(t, s.CanAccess(ctx, b.UserID, b.Item(7)), "revealed item")
	assert.ErrorIs(t, s.CanAccess(ctx, b.UserID, b.Item(2)), model.ErrNotEntitled)
	assert.ErrorIs(t, s.CanAccess(ctx, uuid.New(), b.Item(1)), model.ErrNotEntitled)
	assert.ErrorIs(t, s.CanAccess(ctx, b.UserID, b.Item(11)), model.ErrInvalidRequest)
}

func TestDeriveState_IgnoresForeignIndexes(t *testing.T) {
	b := model.Bundle{UserID: uuid.New(), Tier: model.TierEssential, PeriodID: "week-1"}
	state := deriveState(b, []model.Reveal{{ItemIndex: 2}, {ItemIndex: 1}, {ItemIndex: 2}, {ItemIndex: 42}})

	assert.Equal(t, []int{1, 2}, state.Revealed)
	assert.Equal(t, 3, state.NextIndex)
	assert.False(t, state.Exhausted)
	assert.Equal(t, 5, state.ItemCount)
}
