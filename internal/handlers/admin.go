package handlers

import (
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"

	"wager-escrow-backend/internal/models"
	"wager-escrow-backend/internal/services"
)

// AdminHandler exposes the platform-only configuration surface plus the
// ledger credit hook the platform uses to mirror external on-ramp deposits.
type AdminHandler struct {
	config *services.ConfigService
	ledger services.TokenLedger
}

func NewAdminHandler(config *services.ConfigService, ledger services.TokenLedger) *AdminHandler {
	return &AdminHandler{config: config, ledger: ledger}
}

func (h *AdminHandler) GetConfig(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"config":  h.config.Snapshot(),
	})
}

func (h *AdminHandler) SetFee(c *gin.Context) {
	var req models.SetFeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	if err := h.config.SetFeeBps(c.Request.Context(), req.FeeBps); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *AdminHandler) SetFeeRecipient(c *gin.Context) {
	addr, ok := h.bindAddress(c)
	if !ok {
		return
	}
	if err := h.config.SetFeeRecipient(c.Request.Context(), addr); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *AdminHandler) SetResultSigner(c *gin.Context) {
	addr, ok := h.bindAddress(c)
	if !ok {
		return
	}
	if err := h.config.SetResultSigner(c.Request.Context(), addr); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *AdminHandler) AllowToken(c *gin.Context) {
	addr, ok := h.bindAddress(c)
	if !ok {
		return
	}
	if err := h.config.AllowToken(c.Request.Context(), addr); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *AdminHandler) RemoveToken(c *gin.Context) {
	token, err := models.ParseAddress(c.Param("address"))
	if err != nil {
		respondError(c, err)
		return
	}
	if err := h.config.RemoveToken(c.Request.Context(), token); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *AdminHandler) Pause(c *gin.Context) {
	if err := h.config.Pause(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *AdminHandler) Unpause(c *gin.Context) {
	if err := h.config.Unpause(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *AdminHandler) Credit(c *gin.Context) {
	var req models.CreditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	account, err := models.ParseAddress(req.Account)
	if err != nil {
		respondError(c, err)
		return
	}
	token, err := models.ParseAddress(req.Token)
	if err != nil {
		respondError(c, err)
		return
	}
	amount, err := models.ParseAmount(req.Amount)
	if err != nil {
		respondError(c, err)
		return
	}

	if err := h.ledger.Credit(c.Request.Context(), token, account, amount); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// GetBalance reads the caller's custodial ledger balance for one token.
func (h *AdminHandler) GetBalance(c *gin.Context) {
	token, err := models.ParseAddress(c.Query("token"))
	if err != nil {
		respondError(c, err)
		return
	}

	balance, err := h.ledger.BalanceOf(c.Request.Context(), token, callerAddress(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"token":   token.Hex(),
		"balance": balance.String(),
	})
}

func (h *AdminHandler) bindAddress(c *gin.Context) (common.Address, bool) {
	var req models.SetAddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return common.Address{}, false
	}
	parsed, err := models.ParseAddress(req.Address)
	if err != nil {
		respondError(c, err)
		return common.Address{}, false
	}
	return parsed, true
}
