package web

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vzahanych/styleai/internal/config"
	"github.com/vzahanych/styleai/internal/gender"
	"github.com/vzahanych/styleai/internal/logger"
	"github.com/vzahanych/styleai/internal/profile"
	"github.com/vzahanych/styleai/internal/recommend"
	"github.com/vzahanych/styleai/internal/service"
	"github.com/vzahanych/styleai/internal/state"
	"github.com/vzahanych/styleai/internal/telemetry"
)

// Analyzer runs the profile pipeline
type Analyzer interface {
	Run(ctx context.Context, req profile.Request) (*profile.Profile, error)
}

// Recommender produces styling advice for an accepted profile
type Recommender interface {
	Recommend(ctx context.Context, q recommend.Query) (string, error)
}

// StatsSource reports persisted pipeline outcome counters
type StatsSource interface {
	OutcomeCounts(ctx context.Context) (*state.OutcomeStats, error)
}

// MetricsSource provides the latest telemetry snapshot
type MetricsSource interface {
	Last(ctx context.Context) *telemetry.Snapshot
}

// ModelStatusSource reports the active gender estimator
type ModelStatusSource interface {
	Status(ctx context.Context) gender.Status
}

// Server represents the web server service
type Server struct {
	*service.ServiceBase
	config      config.ServerConfig
	logger      *logger.Logger
	httpServer  *http.Server
	router      *gin.Engine
	analyzer    Analyzer
	recommender Recommender
	stats       StatsSource
	metrics     MetricsSource
	registry    *telemetry.Registry
	modelStatus ModelStatusSource
	version     string
	startTime   time.Time
}

// NewServer creates a new web server service
func NewServer(cfg config.ServerConfig, log *logger.Logger) *Server {
	// Debug mode can be enabled via GIN_MODE environment variable
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(requestID())
	router.Use(ginLogger(log))
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	s := &Server{
		ServiceBase: service.NewServiceBase("web-server", log),
		config:      cfg,
		logger:      log,
		router:      router,
		version:     "dev",
		startTime:   time.Now(),
	}
	s.setupRoutes()
	return s
}

// SetVersion sets the application version
func (s *Server) SetVersion(version string) {
	s.version = version
}

// SetDependencies sets the pipeline and recommender used by /api/analyze
func (s *Server) SetDependencies(analyzer Analyzer, recommender Recommender) {
	s.analyzer = analyzer
	s.recommender = recommender
}

// SetStatsSource sets the outcome counter source for /api/stats
func (s *Server) SetStatsSource(stats StatsSource) {
	s.stats = stats
}

// SetTelemetry sets the metrics sources for /api/metrics
func (s *Server) SetTelemetry(metrics MetricsSource, registry *telemetry.Registry) {
	s.metrics = metrics
	s.registry = registry
}

// SetModelStatus sets the estimator status source for /api/status
func (s *Server) SetModelStatus(src ModelStatusSource) {
	s.modelStatus = src
}

// Handler returns the HTTP handler, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the web server
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	s.httpServer = &http.Server{
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.LogError("Web server error", err, "address", addr)
			s.GetStatus().SetError(err)
		}
	}()

	s.GetStatus().SetStatus(service.StatusRunning)
	s.LogInfo("Web server started", "address", ln.Addr().String())
	return nil
}

// Stop stops the web server
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}

	s.LogInfo("Stopping web server")
	s.GetStatus().SetStatus(service.StatusStopped)
	return s.httpServer.Shutdown(ctx)
}

// Name returns the service name
func (s *Server) Name() string {
	return "web-server"
}

// setupRoutes sets up all API routes
func (s *Server) setupRoutes() {
	api := s.router.Group("/api")
	{
		api.GET("/health", s.handleHealth)
		api.GET("/status", s.handleStatus)
		api.GET("/stats", s.handleStats)
		api.GET("/metrics", s.handleMetrics)

		api.POST("/analyze", s.handleAnalyze)
		api.POST("/skin-tone", s.handleSkinTone)
		api.GET("/shopping-links", s.handleShoppingLinks)
	}

	// Route used by the original form client
	s.router.POST("/analyze", s.handleAnalyze)

	s.router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"status": "error", "error": "Not found"})
	})
}
