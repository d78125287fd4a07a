// Package dashboard is the thin HTTP reader described by the component
// design: JSON snapshots of the pipeline's counters plus an embedded
// static page, built on the teacher's gin middleware stack.
package dashboard

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/enterprise/anomaly-engine/internal/cache"
	"github.com/enterprise/anomaly-engine/internal/dashauth"
	"github.com/enterprise/anomaly-engine/internal/detect"
	"github.com/enterprise/anomaly-engine/internal/metrics"
)

// Config carries the dashboard HTTP server's tuning options.
type Config struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Environment  string

	AdminUsername     string
	AdminPasswordHash string
}

// Server is the dashboard's embedded HTTP server.
type Server struct {
	cfg         Config
	httpServer  *http.Server
	metrics     *metrics.Metrics
	cache       *cache.ResultCache
	jwtManager  *dashauth.JWTManager
	thresholder detect.ThresholdSetter

	lastThresholdMu sync.RWMutex
	lastThreshold   *float64
}

// New builds a Server wired to m for reads, an optional cache for the
// /api/results/:txn_id lookup, jwtManager for the admin routes, and an
// optional ThresholdSetter (the live detector) for the runtime threshold
// override. thresholder may be nil, in which case the override endpoint
// reports the request as accepted but inert.
func New(cfg Config, m *metrics.Metrics, resultCache *cache.ResultCache, jwtManager *dashauth.JWTManager, thresholder detect.ThresholdSetter) *Server {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{cfg: cfg, metrics: m, cache: resultCache, jwtManager: jwtManager, thresholder: thresholder}

	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(gin.Recovery())
	router.Use(requestIDMiddleware())
	router.Use(loggingMiddleware())
	router.Use(corsMiddleware())

	s.routes(router)

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})
	router.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "method not allowed"})
	})

	s.httpServer = &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

func (s *Server) routes(router *gin.Engine) {
	router.GET("/", s.handleIndex)

	api := router.Group("/api")
	api.GET("/metrics", s.handleMetrics)
	api.GET("/anomalies", s.handleAnomalies)
	api.GET("/distribution", s.handleDistribution)
	api.GET("/health", s.handleHealth)
	api.GET("/results/:txn_id", s.handleResult)

	api.POST("/admin/login", s.handleAdminLogin)

	admin := api.Group("/admin")
	admin.Use(dashauth.Middleware(s.jwtManager))
	admin.POST("/threshold", s.handleSetThreshold)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// ListenAndServe starts the HTTP server; it blocks until the server is
// shut down or fails to bind.
func (s *Server) ListenAndServe() error {
	log.Info().Str("port", s.cfg.Port).Msg("dashboard server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("dashboard server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server within ctx's deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// LastThreshold returns the most recently applied operator threshold
// override, if any.
func (s *Server) LastThreshold() (float64, bool) {
	s.lastThresholdMu.RLock()
	defer s.lastThresholdMu.RUnlock()
	if s.lastThreshold == nil {
		return 0, false
	}
	return *s.lastThreshold, true
}

func (s *Server) applyThreshold(v float64) {
	s.lastThresholdMu.Lock()
	s.lastThreshold = &v
	s.lastThresholdMu.Unlock()

	if s.thresholder != nil {
		s.thresholder.SetAnomalyThreshold(v)
	}
}

func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = fmt.Sprintf("%d", time.Now().UnixNano())
		}
		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

func loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		log.Info().
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Str("request_id", c.GetString("request_id")).
			Msg("dashboard request completed")
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization, X-Request-ID")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
