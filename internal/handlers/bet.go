package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"wager-escrow-backend/internal/models"
	"wager-escrow-backend/internal/services"
)

type BetHandler struct {
	engine *services.BetEngine
}

func NewBetHandler(engine *services.BetEngine) *BetHandler {
	return &BetHandler{engine: engine}
}

func (h *BetHandler) CreateBet(c *gin.Context) {
	var req models.CreateBetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	params, err := req.ToParams()
	if err != nil {
		respondError(c, err)
		return
	}

	bet, err := h.engine.CreateBet(c.Request.Context(), callerAddress(c), params)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"bet":     bet,
	})
}

func (h *BetHandler) PlaceBet(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req models.PlaceBetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	bet, err := h.engine.PlaceBet(c.Request.Context(), callerAddress(c), id, req.Outcome)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"bet":     bet,
	})
}

func (h *BetHandler) LockBet(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	bet, err := h.engine.LockBet(c.Request.Context(), isPlatform(c), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"bet":     bet,
	})
}

func (h *BetHandler) SettleBet(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req models.SettleBetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	sig, err := models.ParseSignature(req.Signature)
	if err != nil {
		respondError(c, err)
		return
	}

	bet, err := h.engine.SettleBet(c.Request.Context(), callerAddress(c), id, &models.BetResult{
		WinningOutcome: req.WinningOutcome,
		Timestamp:      req.Timestamp,
		Signature:      sig,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"bet":     bet,
	})
}

func (h *BetHandler) CancelBet(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	bet, err := h.engine.CancelBet(c.Request.Context(), callerAddress(c), isPlatform(c), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"bet":     bet,
	})
}

func (h *BetHandler) ClaimWinnings(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	payout, err := h.engine.ClaimWinnings(c.Request.Context(), callerAddress(c), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"payout":  payout.String(),
	})
}

func (h *BetHandler) ClaimRefund(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	amount, err := h.engine.ClaimRefund(c.Request.Context(), callerAddress(c), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"refund":  amount.String(),
	})
}

func (h *BetHandler) EmergencyRefund(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	bet, err := h.engine.EmergencyRefund(c.Request.Context(), callerAddress(c), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"bet":     bet,
	})
}

func (h *BetHandler) GetBet(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	bet, err := h.engine.GetBet(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"bet":     bet,
	})
}

func (h *BetHandler) GetBettor(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	bettor, err := models.ParseAddress(c.Param("address"))
	if err != nil {
		respondError(c, err)
		return
	}

	record, err := h.engine.GetBettor(c.Request.Context(), id, bettor)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"bettor":  record,
	})
}
