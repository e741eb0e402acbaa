package handlers

import (
	"net/http"

	"github.com/kukshaus/transcribe-sub000/internal/ledger"
	"github.com/labstack/echo/v4"
)

// CreditsHandler exposes the caller's credit balance and history.
type CreditsHandler struct {
	ledger *ledger.Ledger
}

// NewCreditsHandler creates a new CreditsHandler.
func NewCreditsHandler(l *ledger.Ledger) *CreditsHandler {
	return &CreditsHandler{ledger: l}
}

// Balance returns the caller's balance with recent history.
// GET /api/credits
func (h *CreditsHandler) Balance(c echo.Context) error {
	ctx := c.Request().Context()

	caller := callerFrom(c)
	if caller.OwnerID == "" {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "account required"})
	}

	summary, err := h.ledger.Summary(ctx, caller.OwnerID, 50)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, summary)
}
