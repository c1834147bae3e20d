// Package server wires the portfolio REST API onto a gin engine.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/hyzmat-tm/portfolio/internal/analytics"
	"github.com/hyzmat-tm/portfolio/internal/auth"
	"github.com/hyzmat-tm/portfolio/internal/mail"
	"github.com/hyzmat-tm/portfolio/internal/metrics"
	"github.com/hyzmat-tm/portfolio/internal/models"
	"github.com/hyzmat-tm/portfolio/internal/upload"
)

// ProjectStore is the persistence the project handlers need.
type ProjectStore interface {
	ListByCategory(c models.Category) []models.Project
	Get(id int) (models.Project, error)
	Create(p models.Project) (models.Project, error)
	Update(id int, patch []byte) (models.Project, error)
	Delete(id int) error
}

// Deps are the components the server routes to.
type Deps struct {
	Projects ProjectStore
	Mailer   mail.Sender
	Auth     *auth.Service
	Tracker  *analytics.Tracker
	Uploads  *upload.Store
	Logger   *zap.Logger
}

// Config holds HTTP server configuration.
type Config struct {
	Addr           string
	Development    bool
	CORSOrigins    []string
	TrustedProxies []string
	// Per-IP limits for the unauthenticated write endpoints. Zero values
	// use the defaults.
	ContactRate  rate.Limit
	ContactBurst int
	LoginRate    rate.Limit
	LoginBurst   int
}

// Server provides the HTTP API.
type Server struct {
	engine *gin.Engine
	http   *http.Server
	deps   Deps
	config Config
	logger *zap.Logger
}

// New builds the engine and registers all routes.
func New(cfg Config, deps Deps) (*Server, error) {
	if deps.Projects == nil {
		return nil, fmt.Errorf("project store cannot be nil")
	}
	if deps.Mailer == nil {
		return nil, fmt.Errorf("mailer cannot be nil")
	}
	if deps.Auth == nil {
		return nil, fmt.Errorf("auth service cannot be nil")
	}
	if deps.Tracker == nil {
		return nil, fmt.Errorf("tracker cannot be nil")
	}
	if deps.Uploads == nil {
		return nil, fmt.Errorf("upload store cannot be nil")
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if cfg.Addr == "" {
		cfg.Addr = ":3001"
	}
	if cfg.ContactRate == 0 {
		cfg.ContactRate, cfg.ContactBurst = rate.Every(time.Minute), 5
	}
	if cfg.LoginRate == 0 {
		cfg.LoginRate, cfg.LoginBurst = rate.Every(6*time.Second), 10
	}

	e := gin.New()
	if err := e.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, fmt.Errorf("invalid trusted proxies: %w", err)
	}

	s := &Server{
		engine: e,
		deps:   deps,
		config: cfg,
		logger: deps.Logger.Named("http"),
	}

	e.Use(s.requestLogger())
	e.Use(s.recovery())
	e.Use(cors.New(corsConfig(cfg.CORSOrigins)))

	s.registerRoutes()

	s.http = &http.Server{
		Addr:              cfg.Addr,
		Handler:           e,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	return s, nil
}

// Handler returns the root handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) registerRoutes() {
	requireAdmin := s.deps.Auth.Middleware()
	contactLimit := newIPLimiter(s.config.ContactRate, s.config.ContactBurst)
	loginLimit := newIPLimiter(s.config.LoginRate, s.config.LoginBurst)

	s.engine.GET("/health", s.handleHealth)
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	s.engine.Static("/uploads", s.deps.Uploads.Dir())

	api := s.engine.Group("/api")
	api.Use(s.deps.Tracker.Middleware("/api/projects"))

	api.GET("/projects", s.listProjects)
	api.GET("/projects/:id", s.getProject)
	api.POST("/projects", requireAdmin, s.createProject)
	api.PUT("/projects/:id", requireAdmin, s.updateProject)
	api.DELETE("/projects/:id", requireAdmin, s.deleteProject)

	api.POST("/send-email", contactLimit.Middleware(), s.sendEmail)
	api.POST("/upload-image", requireAdmin, s.uploadImage)

	admin := api.Group("/admin")
	admin.POST("/login", loginLimit.Middleware(), s.login)
	admin.POST("/logout", s.logout)
	admin.GET("/session", requireAdmin, s.session)
	admin.GET("/stats", requireAdmin, s.stats)

	s.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	})
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting http server", zap.String("addr", s.config.Addr))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info("shutting down http server")
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	return nil
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// requestLogger logs one line per request and records request metrics.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := time.Since(start)

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		metrics.HTTPRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(c.Request.Method, route).Observe(duration.Seconds())

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("duration", duration),
			zap.String("client_ip", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}
		switch {
		case status >= http.StatusInternalServerError:
			s.logger.Error("http request", fields...)
		case route == "/health" || route == "/metrics":
			s.logger.Debug("http request", fields...)
		default:
			s.logger.Info("http request", fields...)
		}
	}
}

// recovery turns handler panics into a JSON 500.
func (s *Server) recovery() gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, err any) {
		s.logger.Error("panic recovered",
			zap.Any("panic", err),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	})
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	switch {
	case slices.Contains(origins, "*"):
		cfg.AllowAllOrigins = true
	case len(origins) == 0:
		cfg.AllowOriginFunc = func(string) bool { return false }
	default:
		cfg.AllowOrigins = origins
	}
	return cfg
}
