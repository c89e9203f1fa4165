package service

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/dtroode/vaultdrop-server/internal/model"
	"github.com/dtroode/vaultdrop-server/internal/testutil"
)

var week1 = model.Period{
	ID:          "week-1",
	DisplayName: "Semaine 1",
	IsActive:    true,
	StartsAt:    time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
}

func testPeriods() *testutil.MemPeriods {
	return testutil.NewMemPeriods(week1, model.Period{
		ID:          "week-2",
		DisplayName: "Semaine 2",
		StartsAt:    time.Date(2026, 1, 12, 0, 0, 0, 0, time.UTC),
	})
}

// MockProcessor mocks the PaymentProcessor interface
type MockProcessor struct {
	mock.Mock
}

func (m *MockProcessor) CreateCheckoutSession(ctx context.Context, req model.CheckoutSessionRequest) (model.CheckoutSession, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(model.CheckoutSession), args.Error(1)
}

// MockPresigner mocks the Presigner interface
type MockPresigner struct {
	mock.Mock
}

func (m *MockPresigner) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	args := m.Called(ctx, key, ttl)
	return args.String(0), args.Error(1)
}

// failingPurchases fails every write with err.
type failingPurchases struct {
	*testutil.MemStore
	err error
}

func (f *failingPurchases) InsertIfAbsent(_ context.Context, _ model.Purchase) (model.Purchase, error) {
	return model.Purchase{}, f.err
}

func (f *failingPurchases) Get(_ context.Context, _ model.Bundle) (model.Purchase, error) {
	return model.Purchase{}, f.err
}
