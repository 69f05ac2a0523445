// Package handlers maps HTTP requests onto the engine's services and the
// engine's error taxonomy onto HTTP statuses.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/groupdreaming/rosca-backend/internal/models"
)

// respondError translates a service error into an HTTP response. The
// mapping keys off the sentinel the service wrapped, so the status
// survives however deep the wrapping goes.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, models.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, models.ErrInvalidScheduleInput):
		status = http.StatusBadRequest
	case errors.Is(err, models.ErrGroupFull),
		errors.Is(err, models.ErrAlreadyMember),
		errors.Is(err, models.ErrInvalidTransition),
		errors.Is(err, models.ErrTransientConflict):
		status = http.StatusConflict
	case errors.Is(err, models.ErrBidTooLow),
		errors.Is(err, models.ErrInsufficientRemainingTerm),
		errors.Is(err, models.ErrNotEligible),
		errors.Is(err, models.ErrAuctionWindowExpired),
		errors.Is(err, models.ErrBuyerDefault),
		errors.Is(err, models.ErrReserveFundInsufficient):
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
