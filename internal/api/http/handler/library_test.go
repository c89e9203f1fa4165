package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	httpcontext "github.com/dtroode/vaultdrop-server/internal/api/http/context"
	"github.com/dtroode/vaultdrop-server/internal/model"
	"github.com/dtroode/vaultdrop-server/internal/service"
	"github.com/dtroode/vaultdrop-server/internal/testutil"
)

func TestLibrary_Get(t *testing.T) {
	userID := uuid.New()
	bought := time.Date(2026, 1, 6, 12, 0, 0, 0, time.UTC)
	b := model.Bundle{UserID: userID, Tier: model.TierPremium, PeriodID: "week-1"}

	svc := new(MockLibraryService)
	svc.On("Bundles", mock.Anything, userID).Return([]service.OwnedBundle{{
		Purchase: model.Purchase{UserID: userID, Tier: model.TierPremium, PeriodID: "week-1", CreatedAt: bought},
		State:    service.BundleState{Bundle: b, ItemCount: 10, Revealed: []int{1, 2}, NextIndex: 3},
	}}, nil).Once()
	h := NewLibrary(svc, httpcontext.NewManager(), testutil.MakeNoopLogger())

	rec := httptest.NewRecorder()
	h.Get(rec, newRequest(t, http.MethodGet, "/api/library", "", userID, nil))

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[libraryResponse](t, rec)
	require.Len(t, resp.Bundles, 1)
	assert.Equal(t, "premium", resp.Bundles[0].Tier)
	assert.Equal(t, []int{1, 2}, resp.Bundles[0].Revealed)
	assert.True(t, bought.Equal(resp.Bundles[0].PurchasedAt))
	svc.AssertExpectations(t)
}

func TestLibrary_Reset(t *testing.T) {
	userID := uuid.New()

	t.Run("disabled", func(t *testing.T) {
		svc := new(MockLibraryService)
		svc.On("ResetEnabled").Return(false)
		h := NewLibrary(svc, httpcontext.NewManager(), testutil.MakeNoopLogger())

		rec := httptest.NewRecorder()
		h.Reset(rec, newRequest(t, http.MethodDelete, "/api/account/entitlements", "", userID, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
		svc.AssertNotCalled(t, "Reset", mock.Anything, mock.Anything)
	})

	t.Run("enabled", func(t *testing.T) {
		svc := new(MockLibraryService)
		svc.On("ResetEnabled").Return(true)
		svc.On("Reset", mock.Anything, userID).Return(int64(2), int64(7), nil).Once()
		h := NewLibrary(svc, httpcontext.NewManager(), testutil.MakeNoopLogger())

		rec := httptest.NewRecorder()
		h.Reset(rec, newRequest(t, http.MethodDelete, "/api/account/entitlements", "", userID, nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"purchasesDeleted":2,"revealsDeleted":7}`, rec.Body.String())
	})
}

func TestLibrary_Periods(t *testing.T) {
	starts := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	svc := new(MockLibraryService)
	svc.On("Periods", mock.Anything).Return([]model.Period{{ID: "week-1", DisplayName: "Semaine 1", IsActive: true, StartsAt: starts}}, nil).Once()
	svc.On("ActivePeriod", mock.Anything).Return(model.Period{}, model.ErrNotFound).Once()
	h := NewLibrary(svc, httpcontext.NewManager(), testutil.MakeNoopLogger())

	rec := httptest.NewRecorder()
	h.Periods(rec, newRequest(t, http.MethodGet, "/api/periods", "", uuid.New(), nil))
	require.Equal(t, http.StatusOK, rec.Code)
	periods := decodeBody[[]periodResponse](t, rec)
	require.Len(t, periods, 1)
	assert.Equal(t, "Semaine 1", periods[0].DisplayName)

	rec = httptest.NewRecorder()
	h.ActivePeriod(rec, newRequest(t, http.MethodGet, "/api/periods/active", "", uuid.New(), nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(_ context.Context) error { return f.err }

func TestHealth_Check(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHealth(fakePinger{}, testutil.MakeNoopLogger()).Check(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	NewHealth(fakePinger{err: errors.New("down")}, testutil.MakeNoopLogger()).Check(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
