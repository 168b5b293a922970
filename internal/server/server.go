// Package server exposes the orchestrator over HTTP.
//
// Routes live under /api/v1. Agents are created from the worker catalog by
// type name, tasks are started and stopped per agent, and lifecycle and
// progress events stream over a WebSocket at /api/v1/events when a hub is
// configured.
package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Iron-Ham/fleet/internal/logging"
	"github.com/Iron-Ham/fleet/internal/orchestrator"
	"github.com/Iron-Ham/fleet/internal/worker"
)

// DefaultStopTimeout bounds how long stop and unregister requests wait for
// a task to wind down.
const DefaultStopTimeout = 30 * time.Second

// Server holds the HTTP handlers for one orchestrator.
type Server struct {
	orch        *orchestrator.Orchestrator
	catalog     *worker.Catalog
	events      http.Handler
	logger      *logging.Logger
	stopTimeout time.Duration
}

// Option configures a Server.
type Option func(*Server)

// WithEvents mounts h (usually a *notify.Hub) at /api/v1/events.
func WithEvents(h http.Handler) Option {
	return func(s *Server) { s.events = h }
}

// WithLogger sets the request logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l.WithComponent("http")
		}
	}
}

// WithStopTimeout sets the wait bound for stop and unregister requests.
// Non-positive values are ignored.
func WithStopTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.stopTimeout = d
		}
	}
}

// New creates a Server. A nil catalog means the built-in workers.
func New(orch *orchestrator.Orchestrator, catalog *worker.Catalog, opts ...Option) *Server {
	if catalog == nil {
		catalog = worker.Builtin()
	}
	s := &Server{
		orch:        orch,
		catalog:     catalog,
		logger:      logging.NopLogger(),
		stopTimeout: DefaultStopTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler builds the gin engine serving every route.
func (s *Server) Handler() http.Handler {
	g := gin.New()
	g.Use(gin.Recovery(), s.requestLogger())
	s.attachRoutes(g)
	return g
}

func (s *Server) attachRoutes(r *gin.Engine) {
	r.GET("/healthz", s.health)

	v1 := r.Group("/api/v1")
	{
		v1.POST("/agents", s.registerAgent)
		v1.GET("/agents", s.listAgents)
		v1.GET("/agents/:id", s.getAgent)
		v1.DELETE("/agents/:id", s.unregisterAgent)
		v1.GET("/agents/:id/metrics", s.agentMetrics)

		v1.POST("/agents/:id/tasks", s.startTask)
		v1.DELETE("/agents/:id/tasks", s.stopTask)
		v1.POST("/tasks/cleanup", s.cleanupTasks)

		v1.GET("/metrics", s.systemMetrics)
		v1.GET("/agent-types", s.agentTypes)

		if s.events != nil {
			v1.GET("/events", gin.WrapH(s.events))
		}
	}
}

// requestLogger logs one line per request through the structured logger.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		args := []any{
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			s.logger.Warn("request failed", args...)
			return
		}
		s.logger.Debug("request", args...)
	}
}
