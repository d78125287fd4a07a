package dashboard

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/enterprise/anomaly-engine/internal/dashauth"
)

func (s *Server) handleIndex(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(indexHTML))
}

func (s *Server) handleMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, s.metrics.Snapshot())
}

func (s *Server) handleAnomalies(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"anomalies": s.metrics.RecentAnomalies(),
	})
}

func (s *Server) handleDistribution(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"distribution": s.metrics.Distribution(),
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	healthy := s.metrics.Healthy()
	snap := s.metrics.Snapshot()

	body := gin.H{
		"healthy":          healthy,
		"timestamp":        time.Now(),
		"processing_rate":  snap.ProcessingRatePerSec,
		"uptime_check":     "OK",
	}

	if !healthy {
		c.JSON(http.StatusServiceUnavailable, body)
		return
	}
	c.JSON(http.StatusOK, body)
}

// handleResult serves the additive per-transaction lookup, backed by the
// result cache. Absent the cache, or on a cache miss, it reports 404 —
// this endpoint is a convenience, not a system of record.
func (s *Server) handleResult(c *gin.Context) {
	if s.cache == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "result cache not configured"})
		return
	}

	txnID := c.Param("txn_id")
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	result, ok := s.cache.Get(ctx, txnID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "result not found"})
		return
	}
	c.JSON(http.StatusOK, result)
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// handleAdminLogin mints a session token for the single configured
// dashboard operator, following the teacher's bind-check-respond shape.
func (s *Server) handleAdminLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if req.Username != s.cfg.AdminUsername || !dashauth.CheckPassword(req.Password, s.cfg.AdminPasswordHash) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	token, err := s.jwtManager.Generate(req.Username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue token"})
		return
	}

	c.JSON(http.StatusOK, loginResponse{
		Token:     token,
		ExpiresAt: time.Now().Add(24 * time.Hour),
	})
}

type thresholdRequest struct {
	AnomalyThreshold float64 `json:"anomaly_threshold" binding:"required"`
}

// handleSetThreshold lets an authenticated operator override the engine's
// base anomaly threshold at runtime, per the dashboard's one mutating
// concern. The new value takes effect on the detector's next read.
func (s *Server) handleSetThreshold(c *gin.Context) {
	var req thresholdRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.AnomalyThreshold <= 0 || req.AnomalyThreshold > 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "anomaly_threshold must be in (0,1]"})
		return
	}

	s.applyThreshold(req.AnomalyThreshold)
	c.JSON(http.StatusOK, gin.H{"anomaly_threshold": req.AnomalyThreshold})
}
