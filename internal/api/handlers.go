package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/quantforge/decider/internal/domain"
)

// decisionRequest is the body of POST /api/v1/decisions.
type decisionRequest struct {
	Symbol    string            `json:"symbol" binding:"required"`
	Portfolio *domain.Portfolio `json:"portfolio" binding:"required"`
}

// batchRequest is the body of POST /api/v1/decisions/batch.
type batchRequest struct {
	Symbols   []string          `json:"symbols" binding:"required,min=1"`
	Portfolio *domain.Portfolio `json:"portfolio" binding:"required"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   "decider",
		"timestamp": time.Now().UTC(),
	})
}

func (s *Server) handleMakeDecision(c *gin.Context) {
	var req decisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	result := s.engine.MakeDecision(c.Request.Context(), req.Symbol, req.Portfolio)
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleBatchDecisions(c *gin.Context) {
	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	results := s.engine.MakeBatchDecisions(c.Request.Context(), req.Symbols, req.Portfolio)
	c.JSON(http.StatusOK, gin.H{
		"decisions": results,
		"requested": len(req.Symbols),
		"returned":  len(results),
	})
}

func (s *Server) handleDecisionHistory(c *gin.Context) {
	if s.history == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "decision history is not configured"})
		return
	}

	symbol := c.Param("symbol")
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 500 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be an integer between 1 and 500"})
			return
		}
		limit = parsed
	}

	decisions, err := s.history.RecentDecisions(c.Request.Context(), symbol, limit)
	if err != nil {
		s.logger.Error().Err(err).Str("symbol", symbol).Msg("Failed to load decision history")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load decision history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"symbol":    symbol,
		"decisions": decisions,
		"count":     len(decisions),
	})
}
