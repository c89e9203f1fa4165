package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/dtroode/vaultdrop-server/internal/logger"
	"github.com/dtroode/vaultdrop-server/internal/model"
	"github.com/dtroode/vaultdrop-server/internal/service"
)

// LibraryService reads and resets entitlements and the period catalogue.
type LibraryService interface {
	Bundles(ctx context.Context, userID uuid.UUID) ([]service.OwnedBundle, error)
	ResetEnabled() bool
	Reset(ctx context.Context, userID uuid.UUID) (purchases, reveals int64, err error)
	Periods(ctx context.Context) ([]model.Period, error)
	ActivePeriod(ctx context.Context) (model.Period, error)
}

type ownedBundleResponse struct {
	bundleStateResponse
	PurchasedAt time.Time `json:"purchasedAt"`
}

type libraryResponse struct {
	Bundles []ownedBundleResponse `json:"bundles"`
}

type periodResponse struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"displayName"`
	IsActive    bool      `json:"isActive"`
	StartsAt    time.Time `json:"startsAt"`
}

type resetResponse struct {
	Purchases int64 `json:"purchasesDeleted"`
	Reveals   int64 `json:"revealsDeleted"`
}

func toPeriodResponse(p model.Period) periodResponse {
	return periodResponse{ID: p.ID, DisplayName: p.DisplayName, IsActive: p.IsActive, StartsAt: p.StartsAt}
}

// Library serves the caller's collection, the period catalogue and account resets.
type Library struct {
	libraryService LibraryService
	contextManager model.ContextManager
	logger         *logger.Logger
}

func NewLibrary(libraryService LibraryService, contextManager model.ContextManager, logger *logger.Logger) *Library {
	return &Library{
		libraryService: libraryService,
		contextManager: contextManager,
		logger:         logger,
	}
}

func (h *Library) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.contextManager.GetUserIDFromContext(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	bundles, err := h.libraryService.Bundles(r.Context(), userID)
	if err != nil {
		handleError(w, err)
		return
	}

	resp := libraryResponse{Bundles: make([]ownedBundleResponse, 0, len(bundles))}
	for _, b := range bundles {
		resp.Bundles = append(resp.Bundles, ownedBundleResponse{
			bundleStateResponse: toBundleStateResponse(b.State),
			PurchasedAt:         b.Purchase.CreatedAt,
		})
	}
	WriteJSON(w, http.StatusOK, resp)
}

// Reset deletes the caller's purchases and reveals. It answers 404 when resets are
// disabled.
func (h *Library) Reset(w http.ResponseWriter, r *http.Request) {
	if !h.libraryService.ResetEnabled() {
		WriteError(w, http.StatusNotFound, http.StatusText(http.StatusNotFound))
		return
	}
	userID, ok := h.contextManager.GetUserIDFromContext(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	purchases, reveals, err := h.libraryService.Reset(r.Context(), userID)
	if err != nil {
		handleError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, resetResponse{Purchases: purchases, Reveals: reveals})
}

func (h *Library) Periods(w http.ResponseWriter, r *http.Request) {
	periods, err := h.libraryService.Periods(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}

	resp := make([]periodResponse, 0, len(periods))
	for _, p := range periods {
		resp = append(resp, toPeriodResponse(p))
	}
	WriteJSON(w, http.StatusOK, resp)
}

func (h *Library) ActivePeriod(w http.ResponseWriter, r *http.Request) {
	p, err := h.libraryService.ActivePeriod(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, toPeriodResponse(p))
}
