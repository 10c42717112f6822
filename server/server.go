// Package server stellt die HTTP-API bereit: Empfehlung, Admin-Jobs,
// Health-Check und Metriken.
package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"poem-mood/models"
	"poem-mood/sentiment"
	"poem-mood/services"
)

// Recommender wählt ein Gedicht für Stimmung und Schlagwort.
type Recommender interface {
	Recommend(ctx context.Context, mood, keyword string) (*services.Match, error)
}

// JobRunner führt einen Admin-Job außerhalb des Prozesses aus.
type JobRunner interface {
	Run(ctx context.Context, job services.Job) (services.JobResult, error)
}

// Store ist der Teil des Stores, den die API direkt braucht.
type Store interface {
	RecordInteraction(ctx context.Context, entry *models.Interaction) error
	IncrementRecommended(ctx context.Context, id uint) error
	Ping(ctx context.Context) error
}

// Options bündelt die Abhängigkeiten des Servers.
type Options struct {
	Store       Store
	Backend     sentiment.Backend
	Recommender Recommender
	Jobs        JobRunner
	Logger      *zap.Logger

	APIKey      string
	CORSOrigins []string
	// CSVPath ist die Quelle für /api/import_poems.
	CSVPath string
}

// Server hält die Abhängigkeiten der Handler.
type Server struct {
	opts   Options
	logger *zap.Logger

	// laufende Protokollierungen von Interaktionen
	pending sync.WaitGroup
}

// New erstellt einen Server.
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Server{opts: opts, logger: opts.Logger}
}

// Wait blockiert, bis alle Hintergrund-Schreibvorgänge beendet sind.
func (s *Server) Wait() {
	s.pending.Wait()
}

// Router baut die gin-Engine mit allen Routen.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestIDMiddleware())
	router.Use(loggingMiddleware(s.logger))
	router.Use(cors.New(corsConfig(s.opts.CORSOrigins)))

	router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "API de Poesia Rodando!")
	})
	router.GET("/healthz", s.handleHealth)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	api.POST("/recommend", s.handleRecommend)

	admin := api.Group("")
	admin.Use(apiKeyAuthMiddleware(s.opts.APIKey))
	s.setupAdminRoutes(admin)

	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowHeaders = append(cfg.AllowHeaders, "X-API-KEY", requestIDHeader)
	cfg.ExposeHeaders = []string{requestIDHeader}
	cfg.AllowAllOrigins = len(origins) == 0
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
		}
	}
	if !cfg.AllowAllOrigins {
		cfg.AllowOrigins = origins
	}
	return cfg
}

const requestIDHeader = "X-Request-ID"

func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func loggingMiddleware(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("Request handled",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("request_id", c.GetString("request_id")))
	}
}

func apiKeyAuthMiddleware(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key == "" {
			c.Next()
			return
		}
		if c.GetHeader("X-API-KEY") != key {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "Unauthorized: Invalid API Key"})
			return
		}
		c.Next()
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := s.opts.Store.Ping(ctx); err != nil {
		s.logger.Warn("Health check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
