package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	httpcontext "github.com/dtroode/vaultdrop-server/internal/api/http/context"
	"github.com/dtroode/vaultdrop-server/internal/model"
	"github.com/dtroode/vaultdrop-server/internal/service"
)

// MockCheckoutService mocks the CheckoutService interface
type MockCheckoutService struct {
	mock.Mock
}

func (m *MockCheckoutService) CreateCheckout(ctx context.Context, params service.CheckoutParams) (model.CheckoutSession, error) {
	args := m.Called(ctx, params)
	return args.Get(0).(model.CheckoutSession), args.Error(1)
}

// MockWebhookService mocks the WebhookService interface
type MockWebhookService struct {
	mock.Mock
}

func (m *MockWebhookService) Configured() bool {
	return m.Called().Bool(0)
}

func (m *MockWebhookService) HandleDelivery(ctx context.Context, d service.WebhookDelivery) (service.WebhookOutcome, error) {
	args := m.Called(ctx, d)
	return args.Get(0).(service.WebhookOutcome), args.Error(1)
}

// MockMediaService mocks the MediaService interface
type MockMediaService struct {
	mock.Mock
}

func (m *MockMediaService) URL(ctx context.Context, userID uuid.UUID, item model.MediaItem) (service.SignedURL, error) {
	args := m.Called(ctx, userID, item)
	return args.Get(0).(service.SignedURL), args.Error(1)
}

// MockProgressionService mocks the ProgressionService interface
type MockProgressionService struct {
	mock.Mock
}

func (m *MockProgressionService) State(ctx context.Context, b model.Bundle) (service.BundleState, error) {
	args := m.Called(ctx, b)
	return args.Get(0).(service.BundleState), args.Error(1)
}

func (m *MockProgressionService) Advance(ctx context.Context, b model.Bundle, expected *int) (service.RevealResult, error) {
	args := m.Called(ctx, b, expected)
	return args.Get(0).(service.RevealResult), args.Error(1)
}

func (m *MockProgressionService) RevealItem(ctx context.Context, b model.Bundle, index int) (service.RevealResult, error) {
	args := m.Called(ctx, b, index)
	return args.Get(0).(service.RevealResult), args.Error(1)
}

// MockLibraryService mocks the LibraryService interface
type MockLibraryService struct {
	mock.Mock
}

func (m *MockLibraryService) Bundles(ctx context.Context, userID uuid.UUID) ([]service.OwnedBundle, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]service.OwnedBundle), args.Error(1)
}

func (m *MockLibraryService) ResetEnabled() bool {
	return m.Called().Bool(0)
}

func (m *MockLibraryService) Reset(ctx context.Context, userID uuid.UUID) (int64, int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Get(1).(int64), args.Error(2)
}

func (m *MockLibraryService) Periods(ctx context.Context) ([]model.Period, error) {
	args := m.Called(ctx)
	return args.Get(0).([]model.Period), args.Error(1)
}

func (m *MockLibraryService) ActivePeriod(ctx context.Context) (model.Period, error) {
	args := m.Called(ctx)
	return args.Get(0).(model.Period), args.Error(1)
}

// newRequest builds a request authenticated as userID. A nil userID leaves it anonymous.
func newRequest(t *testing.T, method, target, body string, userID uuid.UUID, params map[string]string) *http.Request {
	t.Helper()

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	ctx := req.Context()
	if userID != uuid.Nil {
		ctx = httpcontext.NewManager().SetUserIDToContext(ctx, userID)
	}
	if len(params) > 0 {
		rctx := chi.NewRouteContext()
		for k, v := range params {
			rctx.URLParams.Add(k, v)
		}
		ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
	}
	return req.WithContext(ctx)
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}
