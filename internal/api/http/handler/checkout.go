package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/dtroode/vaultdrop-server/internal/logger"
	"github.com/dtroode/vaultdrop-server/internal/model"
	"github.com/dtroode/vaultdrop-server/internal/service"
)

// CheckoutService creates processor checkout sessions.
type CheckoutService interface {
	CreateCheckout(ctx context.Context, params service.CheckoutParams) (model.CheckoutSession, error)
}

type checkoutRequest struct {
	Tier     string `json:"tier" validate:"required,oneof=essential premium exclusive"`
	PeriodID string `json:"periodId" validate:"required"`
	UserID   string `json:"userId" validate:"omitempty,uuid"`
}

type checkoutResponse struct {
	URL       string `json:"url"`
	SessionID string `json:"sessionId"`
}

// Checkout handles purchase intents.
type Checkout struct {
	checkoutService CheckoutService
	contextManager  model.ContextManager
	logger          *logger.Logger
}

func NewCheckout(checkoutService CheckoutService, contextManager model.ContextManager, logger *logger.Logger) *Checkout {
	return &Checkout{
		checkoutService: checkoutService,
		contextManager:  contextManager,
		logger:          logger,
	}
}

// Create opens a checkout session for the caller. A userId in the body must match the
// authenticated user.
func (h *Checkout) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.contextManager.GetUserIDFromContext(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req checkoutRequest
	if err := decodeJSON(r, &req, false); err != nil {
		WriteJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "InvalidRequest"})
		return
	}
	if req.UserID != "" && !sameUser(req.UserID, userID) {
		h.logger.Warn("checkout for another user rejected", "user_id", userID, "requested_user_id", req.UserID)
		WriteError(w, http.StatusForbidden, "user does not match the authenticated user")
		return
	}

	session, err := h.checkoutService.CreateCheckout(r.Context(), service.CheckoutParams{
		UserID:   userID,
		Tier:     model.Tier(req.Tier),
		PeriodID: req.PeriodID,
	})
	if errors.Is(err, model.ErrProcessorUnavailable) {
		WriteJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "payment processor unavailable", Code: "ProcessorUnavailable"})
		return
	}
	if err != nil {
		handleError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, checkoutResponse{URL: session.URL, SessionID: session.ID})
}

func sameUser(raw string, userID uuid.UUID) bool {
	id, err := uuid.Parse(raw)
	return err == nil && id == userID
}
