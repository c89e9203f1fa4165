package handler

import (
	"errors"
	"net/http"

	"github.com/dtroode/vaultdrop-server/internal/model"
)

// errorStatus maps domain errors to a status code and a stable error code.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, model.ErrInvalidRequest):
		return http.StatusBadRequest, "InvalidRequest"
	case errors.Is(err, model.ErrAlreadyPurchased):
		return http.StatusBadRequest, "AlreadyPurchased"
	case errors.Is(err, model.ErrInvalidSignature):
		return http.StatusBadRequest, "InvalidSignature"
	case errors.Is(err, model.ErrMalformedEvent):
		return http.StatusBadRequest, "MalformedEvent"
	case errors.Is(err, model.ErrNotEntitled):
		return http.StatusForbidden, "NotEntitled"
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound, "NotFound"
	case errors.Is(err, model.ErrOutOfSequence):
		return http.StatusConflict, "OutOfSequence"
	case errors.Is(err, model.ErrProcessorUnavailable):
		return http.StatusServiceUnavailable, "ProcessorUnavailable"
	case errors.Is(err, model.ErrStorageTimeout):
		return http.StatusServiceUnavailable, "StorageTimeout"
	case errors.Is(err, model.ErrIssuance):
		return http.StatusInternalServerError, "IssuanceError"
	default:
		return http.StatusInternalServerError, "Internal"
	}
}

// handleError writes err as a JSON error. Messages of 4xx errors are passed through,
// 5xx errors are reduced to their code.
func handleError(w http.ResponseWriter, err error) {
	status, code := errorStatus(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		msg = http.StatusText(status)
	}
	WriteJSON(w, status, ErrorResponse{Error: msg, Code: code})
}
