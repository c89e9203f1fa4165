package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/dtroode/vaultdrop-server/internal/logger"
	"github.com/dtroode/vaultdrop-server/internal/model"
	"github.com/dtroode/vaultdrop-server/internal/service"
)

const signatureHeader = "Stripe-Signature"

// WebhookService records processor notifications.
type WebhookService interface {
	Configured() bool
	HandleDelivery(ctx context.Context, d service.WebhookDelivery) (service.WebhookOutcome, error)
}

type webhookResponse struct {
	Received bool `json:"received"`
}

// Webhook receives payment notifications. It is not authenticated by bearer token; the
// processor signature authenticates it.
type Webhook struct {
	webhookService WebhookService
	logger         *logger.Logger
}

func NewWebhook(webhookService WebhookService, logger *logger.Logger) *Webhook {
	return &Webhook{webhookService: webhookService, logger: logger}
}

// Receive acknowledges a delivery with 200 unless it is forged, malformed or could not
// be stored.
func (h *Webhook) Receive(w http.ResponseWriter, r *http.Request) {
	if !h.webhookService.Configured() {
		WriteJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: "payment processor is not configured", Code: "ProcessorUnavailable"})
		return
	}

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteError(w, http.StatusRequestEntityTooLarge, "payload too large")
			return
		}
		WriteError(w, http.StatusBadRequest, "failed to read body")
		return
	}

	_, err = h.webhookService.HandleDelivery(r.Context(), service.WebhookDelivery{
		Payload:    payload,
		Signature:  r.Header.Get(signatureHeader),
		RemoteAddr: r.RemoteAddr,
	})
	if err != nil {
		status, code := errorStatus(err)
		if errors.Is(err, model.ErrInvalidSignature) {
			WriteJSON(w, status, ErrorResponse{Error: "invalid signature", Code: code})
			return
		}
		handleError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, webhookResponse{Received: true})
}
