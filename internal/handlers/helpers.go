package handlers

import (
	"errors"
	"net/http"

	"github.com/kukshaus/transcribe-sub000/internal/ledger"
	"github.com/kukshaus/transcribe-sub000/internal/transcription"
	"github.com/kukshaus/transcribe-sub000/internal/usage"
	"github.com/labstack/echo/v4"
)

// Identity headers set by the (out-of-scope) auth layer in front of
// this API. Authenticated requests carry the account id; anonymous
// requests carry the device fingerprint.
const (
	headerAccountID   = "X-Account-ID"
	headerFingerprint = "X-Device-Fingerprint"
)

// callerFrom builds the caller identity from the request.
func callerFrom(c echo.Context) transcription.Caller {
	return transcription.Caller{
		OwnerID:     c.Request().Header.Get(headerAccountID),
		Fingerprint: c.Request().Header.Get(headerFingerprint),
		ClientIP:    c.RealIP(),
		UserAgent:   c.Request().UserAgent(),
	}
}

// respondError maps core errors onto HTTP statuses.
func respondError(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, transcription.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, ledger.ErrInsufficientFunds):
		status = http.StatusPaymentRequired
	case errors.Is(err, usage.ErrLimitReached):
		status = http.StatusTooManyRequests
	case errors.Is(err, transcription.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, transcription.ErrAccessDenied):
		status = http.StatusForbidden
	case errors.Is(err, transcription.ErrNotesRequired),
		errors.Is(err, transcription.ErrNotReady):
		status = http.StatusConflict
	}
	return c.JSON(status, map[string]string{"error": err.Error()})
}
