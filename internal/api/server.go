package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"example.com/backstage/services/fieldservice/config"
	"example.com/backstage/services/fieldservice/internal/api/handlers"
	"example.com/backstage/services/fieldservice/internal/metrics"
	"example.com/backstage/services/fieldservice/internal/service"
	"example.com/backstage/services/fieldservice/internal/tracing"
)

// Handler registers its routes on the router
type Handler interface {
	RegisterRoutes(router *gin.Engine)
}

// Services bundles the service-layer dependencies of the HTTP server
type Services struct {
	Orders   *service.OrderService
	Billing  *service.BillingService
	Catalog  *service.CatalogService
	Registry *service.RegistryService
}

// Server represents the HTTP server
type Server struct {
	config     config.Config
	router     *gin.Engine
	httpServer *http.Server
	services   Services
	metrics    *metrics.Metrics
	tracer     tracing.Tracer
}

// NewServer creates a new HTTP server
func NewServer(cfg config.Config, services Services, collector *metrics.Metrics, tracer tracing.Tracer) *Server {
	server := &Server{
		config:   cfg,
		services: services,
		metrics:  collector,
		tracer:   tracer,
	}

	router := server.setupRouter()
	server.router = router

	httpServer := &http.Server{
		Addr:    cfg.ServerAddress,
		Handler: router,
	}
	server.httpServer = httpServer

	return server
}

// setupRouter configures the HTTP router
func (s *Server) setupRouter() *gin.Engine {
	if s.config.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLogger())
	if s.config.MetricsEnabled {
		router.Use(RequestMetrics(s.metrics))
	}

	s.registerHandlers(router)

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return router
}

func (s *Server) registerHandlers(router *gin.Engine) {
	for _, h := range s.handlers() {
		h.RegisterRoutes(router)
	}
}

func (s *Server) handlers() []Handler {
	return []Handler{
		handlers.NewOrderHandler(s.services.Orders, s.services.Billing, s.tracer),
		handlers.NewCatalogHandler(s.services.Catalog, s.services.Billing, s.tracer),
		handlers.NewTechnicianHandler(s.services.Catalog, s.services.Registry, s.tracer),
		handlers.NewPublicHandler(s.services.Orders, s.services.Catalog),
		handlers.NewMetricsHandler(s.metrics, s.tracer),
	}
}

// Start starts the HTTP server
func (s *Server) Start() error {
	log.Info().Str("address", s.config.ServerAddress).Msg("starting HTTP server")

	if err := s.httpServer.ListenAndServe(); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "HTTP server error")
	}

	return nil
}

// Shutdown gracefully stops the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("shutting down HTTP server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "HTTP server shutdown error")
	}

	log.Info().Msg("HTTP server shut down successfully")
	return nil
}
