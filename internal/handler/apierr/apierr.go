// Package apierr maps service errors onto HTTP statuses and client messages.
package apierr

import (
	"errors"
	"log"
	"net/http"

	"github.com/zhouzirui/empathai/backend/internal/analysis/emotion"
	"github.com/zhouzirui/empathai/backend/internal/service/ai"
	"github.com/zhouzirui/empathai/backend/internal/service/companion"
	"github.com/zhouzirui/empathai/backend/internal/service/vision"
	"github.com/zhouzirui/empathai/backend/pkg/utils"
)

// Status returns the HTTP status and the message safe to show the client.
// Remote failures are checked first because they may wrap validation errors
// such as an unparseable classifier label.
func Status(err error) (int, string) {
	switch {
	case errors.Is(err, ai.ErrNotConfigured):
		return http.StatusInternalServerError, ai.ErrNotConfigured.Error()
	case errors.Is(err, companion.ErrClassification):
		return http.StatusInternalServerError, companion.ErrClassification.Error()
	case errors.Is(err, companion.ErrResponse):
		return http.StatusInternalServerError, companion.ErrResponse.Error()
	case errors.Is(err, companion.ErrEmptyText),
		errors.Is(err, vision.ErrInvalidSample),
		errors.Is(err, emotion.ErrUnknownLabel):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, companion.ErrSessionNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, companion.ErrSubmissionInFlight):
		return http.StatusConflict, err.Error()
	case errors.Is(err, vision.ErrCameraUnavailable):
		return http.StatusServiceUnavailable, err.Error()
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

// Respond writes err as a JSON {error} body and logs server-side failures.
func Respond(w http.ResponseWriter, err error) {
	status, message := Status(err)
	if status >= http.StatusInternalServerError {
		log.Printf("[http] request failed: %v", err)
	}
	utils.RespondError(w, status, message)
}
