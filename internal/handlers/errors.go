package handlers

import (
	"errors"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"

	"wager-escrow-backend/internal/models"
)

// respondError maps the engine error classes onto HTTP statuses while
// passing the specific rejection reason through to the caller.
func respondError(c *gin.Context, err error) {
	status := http.StatusBadRequest
	switch {
	case errors.Is(err, models.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, models.ErrAlreadyExists):
		status = http.StatusConflict
	case errors.Is(err, models.ErrUnauthorized), errors.Is(err, models.ErrBadSignature):
		status = http.StatusForbidden
	case errors.Is(err, models.ErrWrongStatus),
		errors.Is(err, models.ErrDeadlinePassed),
		errors.Is(err, models.ErrDeadlineNotReached),
		errors.Is(err, models.ErrAlreadyDeposited),
		errors.Is(err, models.ErrAlreadyPlaced),
		errors.Is(err, models.ErrAlreadyClaimed),
		errors.Is(err, models.ErrNothingToClaim),
		errors.Is(err, models.ErrInsufficientFunds):
		status = http.StatusConflict
	case errors.Is(err, models.ErrPaused):
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, gin.H{"error": err.Error()})
}

// callerAddress reads the authenticated wallet address set by the auth
// middleware.
func callerAddress(c *gin.Context) common.Address {
	return common.HexToAddress(c.GetString("address"))
}

func isPlatform(c *gin.Context) bool {
	return c.GetString("role") == "platform"
}

// pathID parses the :id route parameter as a 32-byte record id.
func pathID(c *gin.Context) (common.Hash, bool) {
	id, err := models.ParseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return common.Hash{}, false
	}
	return id, true
}
