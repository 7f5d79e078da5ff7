package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"wager-escrow-backend/internal/models"
	"wager-escrow-backend/internal/services"
)

type MatchHandler struct {
	engine *services.MatchEngine
}

func NewMatchHandler(engine *services.MatchEngine) *MatchHandler {
	return &MatchHandler{engine: engine}
}

func (h *MatchHandler) CreateMatch(c *gin.Context) {
	var req models.CreateMatchRequest
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

	match, err := h.engine.CreateMatch(c.Request.Context(), callerAddress(c), params)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"match":   match,
	})
}

func (h *MatchHandler) AcceptMatch(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	match, err := h.engine.AcceptMatch(c.Request.Context(), callerAddress(c), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"match":   match,
	})
}

func (h *MatchHandler) Deposit(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	match, err := h.engine.Deposit(c.Request.Context(), callerAddress(c), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"match":   match,
	})
}

func (h *MatchHandler) CancelMatch(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	match, err := h.engine.CancelMatch(c.Request.Context(), callerAddress(c), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"match":   match,
	})
}

func (h *MatchHandler) Settle(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req models.SettleMatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	winner, err := models.ParseAddress(req.Winner)
	if err != nil {
		respondError(c, err)
		return
	}
	scoreHash, err := models.ParseID(req.ScoreHash)
	if err != nil {
		respondError(c, err)
		return
	}
	sig, err := models.ParseSignature(req.Signature)
	if err != nil {
		respondError(c, err)
		return
	}

	match, err := h.engine.Settle(c.Request.Context(), callerAddress(c), id, &models.MatchResult{
		Winner:    winner,
		ScoreHash: scoreHash,
		Timestamp: req.Timestamp,
		Signature: sig,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"match":   match,
	})
}

func (h *MatchHandler) SettleDraw(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req models.SettleDrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	scoreHash, err := models.ParseID(req.ScoreHash)
	if err != nil {
		respondError(c, err)
		return
	}
	sig, err := models.ParseSignature(req.Signature)
	if err != nil {
		respondError(c, err)
		return
	}

	match, err := h.engine.SettleDraw(c.Request.Context(), callerAddress(c), id, &models.MatchResult{
		ScoreHash: scoreHash,
		Timestamp: req.Timestamp,
		Signature: sig,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"match":   match,
	})
}

func (h *MatchHandler) EmergencyRefund(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	match, err := h.engine.EmergencyRefund(c.Request.Context(), callerAddress(c), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"match":   match,
	})
}

func (h *MatchHandler) GetMatch(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	match, err := h.engine.GetMatch(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"match":   match,
	})
}
