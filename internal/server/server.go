// Package server exposes the fleet over HTTP and WebSocket: task
// submission, status queries, progress checks, the agent roster, and a
// live event stream.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/taskfleet/taskfleet/internal/orchestrator"
	"github.com/taskfleet/taskfleet/internal/registry"
	"github.com/taskfleet/taskfleet/internal/version"
)

// Config holds the HTTP server settings.
type Config struct {
	// Host is the bind address.
	Host string `json:"host"`
	// Port is the listen port.
	Port int `json:"port"`
	// EnableCORS allows cross-origin requests, for browser dashboards.
	EnableCORS bool `json:"enable_cors"`
	// Debug keeps gin in debug mode with request logging.
	Debug bool `json:"debug"`
	// ReadTimeout bounds request reads.
	ReadTimeout time.Duration `json:"read_timeout"`
	// WriteTimeout bounds response writes.
	WriteTimeout time.Duration `json:"write_timeout"`
}

// DefaultConfig returns the local-only defaults.
func DefaultConfig() Config {
	return Config{
		Host:         "127.0.0.1",
		Port:         8844,
		EnableCORS:   true,
		Debug:        false,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}

// Pinger reports whether the backing store is reachable. The health
// endpoint uses it to distinguish a live process from a usable one.
type Pinger interface {
	Ping() error
}

// Server serves the fleet API.
type Server struct {
	master   *orchestrator.Master
	registry *registry.AgentRegistry
	hub      *Hub
	store    Pinger
	logger   *orchestrator.DebugLogger

	engine     *gin.Engine
	httpServer *http.Server
	startTime  time.Time
}

// New wires the API around a master coordinator, an agent registry, an
// event hub, and the store's liveness check.
func New(cfg Config, master *orchestrator.Master, reg *registry.AgentRegistry, hub *Hub, store Pinger, logger *orchestrator.DebugLogger) *Server {
	if logger == nil {
		logger = orchestrator.NopLogger()
	}
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	if cfg.Debug {
		engine.Use(gin.Logger())
	}
	if cfg.EnableCORS {
		corsConfig := cors.DefaultConfig()
		corsConfig.AllowAllOrigins = true
		corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
		corsConfig.AllowHeaders = []string{"Origin", "Content-Type"}
		corsConfig.AllowWebSockets = true
		engine.Use(cors.New(corsConfig))
	}

	s := &Server{
		master:    master,
		registry:  reg,
		hub:       hub,
		store:     store,
		logger:    logger,
		engine:    engine,
		startTime: time.Now(),
	}
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      engine,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.engine.Group("/api")

	api.GET("/health", s.handleHealth)
	api.GET("/agents", s.handleListAgents)

	tasks := api.Group("/tasks")
	{
		tasks.POST("", s.handleCreateTask)
		tasks.GET("/:id", s.handleGetTask)
		tasks.POST("/:id/check", s.handleCheckProgress)
		tasks.POST("/:id/interact", s.handleInteract)
	}

	s.engine.GET("/ws", func(c *gin.Context) {
		s.hub.ServeWS(c.Writer, c.Request)
	})
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Handler exposes the router, used by tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start listens and serves until Shutdown is called. It returns nil on
// a clean shutdown.
func (s *Server) Start() error {
	s.logger.Log("[server] listening on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Log("[server] shutting down")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(c *gin.Context) {
	if s.store != nil {
		if err := s.store.Ping(); err != nil {
			s.logger.Log("[server] health ping failed: %v", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    "degraded",
				"error":     err.Error(),
				"timestamp": time.Now(),
			})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"version":    version.Get(),
		"uptime":     time.Since(s.startTime).String(),
		"ws_clients": s.hub.ClientCount(),
		"timestamp":  time.Now(),
	})
}
