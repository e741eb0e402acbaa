package handlers

import (
	"net/http"

	"github.com/kukshaus/transcribe-sub000/internal/usage"
	"github.com/labstack/echo/v4"
)

// AccountHandler exposes account reconciliation, called by the auth
// layer after every sign-in.
type AccountHandler struct {
	reconciler *usage.Reconciler
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(reconciler *usage.Reconciler) *AccountHandler {
	return &AccountHandler{reconciler: reconciler}
}

// Reconcile grants the starter credit and migrates any anonymous
// history for the caller's device. Idempotent; safe on every sign-in.
// POST /api/account/reconcile
func (h *AccountHandler) Reconcile(c echo.Context) error {
	ctx := c.Request().Context()

	caller := callerFrom(c)
	if caller.OwnerID == "" {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "account required"})
	}

	result, err := h.reconciler.Reconcile(ctx, caller.OwnerID, caller.Fingerprint)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}
