package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dtroode/vaultdrop-server/internal/logger"
	"github.com/dtroode/vaultdrop-server/internal/model"
	"github.com/dtroode/vaultdrop-server/internal/service"
)

// ProgressionService drives bundle reveals.
type ProgressionService interface {
	State(ctx context.Context, b model.Bundle) (service.BundleState, error)
	Advance(ctx context.Context, b model.Bundle, expected *int) (service.RevealResult, error)
	RevealItem(ctx context.Context, b model.Bundle, index int) (service.RevealResult, error)
}

type advanceRequest struct {
	Index *int `json:"index" validate:"omitempty,min=1"`
}

type bundleStateResponse struct {
	PeriodID  string `json:"periodId"`
	Tier      string `json:"tier"`
	ItemCount int    `json:"itemCount"`
	Revealed  []int  `json:"revealed"`
	NextIndex int    `json:"nextIndex"`
	Exhausted bool   `json:"exhausted"`
}

type revealResponse struct {
	bundleStateResponse
	Index   int  `json:"index,omitempty"`
	Created bool `json:"created"`
}

func toBundleStateResponse(s service.BundleState) bundleStateResponse {
	revealed := s.Revealed
	if revealed == nil {
		revealed = []int{}
	}
	return bundleStateResponse{
		PeriodID:  s.Bundle.PeriodID,
		Tier:      string(s.Bundle.Tier),
		ItemCount: s.ItemCount,
		Revealed:  revealed,
		NextIndex: s.NextIndex,
		Exhausted: s.Exhausted,
	}
}

// Bundle exposes reveal progression of the caller's bundles.
type Bundle struct {
	progressionService ProgressionService
	contextManager     model.ContextManager
	logger             *logger.Logger
}

func NewBundle(progressionService ProgressionService, contextManager model.ContextManager, logger *logger.Logger) *Bundle {
	return &Bundle{
		progressionService: progressionService,
		contextManager:     contextManager,
		logger:             logger,
	}
}

func (h *Bundle) State(w http.ResponseWriter, r *http.Request) {
	b, ok := h.bundle(w, r)
	if !ok {
		return
	}

	state, err := h.progressionService.State(r.Context(), b)
	if err != nil {
		handleError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, toBundleStateResponse(state))
}

// Advance reveals the current item. Clients should always send {"index": nextIndex}
// with the nextIndex of the last state they saw: a retried or double-submitted request
// then answers with created=false instead of revealing the following item. Without a
// body every call reveals one more item.
func (h *Bundle) Advance(w http.ResponseWriter, r *http.Request) {
	b, ok := h.bundle(w, r)
	if !ok {
		return
	}

	var req advanceRequest
	if err := decodeJSON(r, &req, true); err != nil {
		WriteJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "InvalidRequest"})
		return
	}

	res, err := h.progressionService.Advance(r.Context(), b, req.Index)
	if err != nil {
		handleError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, revealResponse{bundleStateResponse: toBundleStateResponse(res.State), Index: res.Index, Created: res.Created})
}

// Reveal opens one item of an owned bundle out of order.
func (h *Bundle) Reveal(w http.ResponseWriter, r *http.Request) {
	b, ok := h.bundle(w, r)
	if !ok {
		return
	}

	index, err := model.ParseIndex(b.Tier, chi.URLParam(r, "n"))
	if err != nil {
		handleError(w, err)
		return
	}

	res, err := h.progressionService.RevealItem(r.Context(), b, index)
	if err != nil {
		handleError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, revealResponse{bundleStateResponse: toBundleStateResponse(res.State), Index: res.Index, Created: res.Created})
}

func (h *Bundle) bundle(w http.ResponseWriter, r *http.Request) (model.Bundle, bool) {
	userID, ok := h.contextManager.GetUserIDFromContext(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "authentication required")
		return model.Bundle{}, false
	}

	tier, err := model.ParseTier(chi.URLParam(r, "tier"))
	if err != nil {
		handleError(w, err)
		return model.Bundle{}, false
	}

	return model.Bundle{UserID: userID, Tier: tier, PeriodID: chi.URLParam(r, "periodId")}, true
}
