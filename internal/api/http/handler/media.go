package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dtroode/vaultdrop-server/internal/logger"
	"github.com/dtroode/vaultdrop-server/internal/model"
	"github.com/dtroode/vaultdrop-server/internal/service"
)

// MediaService issues signed URLs for items the caller may see.
type MediaService interface {
	URL(ctx context.Context, userID uuid.UUID, item model.MediaItem) (service.SignedURL, error)
}

type mediaURLResponse struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Media serves signed media URLs.
type Media struct {
	mediaService   MediaService
	contextManager model.ContextManager
	defaultWeek    string
	logger         *logger.Logger
}

func NewMedia(mediaService MediaService, contextManager model.ContextManager, defaultWeek string, logger *logger.Logger) *Media {
	return &Media{
		mediaService:   mediaService,
		contextManager: contextManager,
		defaultWeek:    defaultWeek,
		logger:         logger,
	}
}

// URL handles GET ?tier=&n=&week=. The week defaults to the configured period.
func (h *Media) URL(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.contextManager.GetUserIDFromContext(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	q := r.URL.Query()
	rawTier, rawIndex := strings.TrimSpace(q.Get("tier")), strings.TrimSpace(q.Get("n"))
	if rawTier == "" || rawIndex == "" {
		WriteJSON(w, http.StatusBadRequest, ErrorResponse{Error: "tier and n are required", Code: "InvalidRequest"})
		return
	}
	week := strings.TrimSpace(q.Get("week"))
	if week == "" {
		week = h.defaultWeek
	}

	tier, err := model.ParseTier(rawTier)
	if err != nil {
		handleError(w, err)
		return
	}
	index, err := model.ParseIndex(tier, rawIndex)
	if err != nil {
		handleError(w, err)
		return
	}

	signed, err := h.mediaService.URL(r.Context(), userID, model.MediaItem{PeriodID: week, Tier: tier, Index: index})
	if err != nil {
		handleError(w, err)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	WriteJSON(w, http.StatusOK, mediaURLResponse{URL: signed.URL, ExpiresAt: signed.ExpiresAt})
}
