package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Iron-Ham/fleet/internal/agent"
	"github.com/Iron-Ham/fleet/internal/errors"
)

// RegisterRequest is the body of POST /api/v1/agents.
type RegisterRequest struct {
	AgentType string         `json:"agent_type" binding:"required"`
	Metadata  map[string]any `json:"metadata"`
}

// RegisterResponse is returned with 201 Created.
type RegisterResponse struct {
	AgentID string       `json:"agent_id"`
	Agent   agent.Record `json:"agent"`
}

// ListResponse is returned by GET /api/v1/agents.
type ListResponse struct {
	Agents []agent.Record `json:"agents"`
	Count  int            `json:"count"`
}

// StartTaskRequest is the body of POST /api/v1/agents/:id/tasks.
type StartTaskRequest struct {
	TaskData agent.TaskData `json:"task_data"`
}

// StartTaskResponse is returned with 202 Accepted.
type StartTaskResponse struct {
	AgentID   string    `json:"agent_id"`
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
}

// StopTaskResponse is returned by DELETE /api/v1/agents/:id/tasks.
type StopTaskResponse struct {
	AgentID string `json:"agent_id"`
	Stopped bool   `json:"stopped"`
}

// UnregisterResponse is returned by DELETE /api/v1/agents/:id.
type UnregisterResponse struct {
	AgentID      string `json:"agent_id"`
	Unregistered bool   `json:"unregistered"`
}

// CleanupResponse is returned by POST /api/v1/tasks/cleanup.
type CleanupResponse struct {
	Cleaned int `json:"cleaned"`
}

// HealthResponse is returned by GET /healthz.
type HealthResponse struct {
	Status       string `json:"status"`
	Agents       int    `json:"agents"`
	RunningTasks int    `json:"running_tasks"`
	MaxAgents    int    `json:"max_concurrent_agents"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:       "ok",
		Agents:       s.orch.AgentCount(),
		RunningTasks: s.orch.RunningTasks(),
		MaxAgents:    s.orch.MaxConcurrentAgents(),
	})
}

func (s *Server) registerAgent(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	work, err := s.catalog.Build(req.AgentType, req.Metadata)
	if err != nil {
		// An unknown type is a bad request, not a missing resource.
		if errors.IsNotFound(err) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}
		s.writeError(c, err)
		return
	}

	id, err := s.orch.Register(req.AgentType, work, req.Metadata)
	if err != nil {
		s.writeError(c, err)
		return
	}
	rec, _ := s.orch.GetAgentInfo(id)
	c.JSON(http.StatusCreated, RegisterResponse{AgentID: id, Agent: rec})
}

func (s *Server) listAgents(c *gin.Context) {
	var statuses []agent.Status
	for _, raw := range c.QueryArray("status") {
		for name := range strings.SplitSeq(raw, ",") {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			st, err := agent.ParseStatus(name)
			if err != nil {
				c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
				return
			}
			statuses = append(statuses, st)
		}
	}

	agents := s.orch.ListAgents(statuses...)
	if agents == nil {
		agents = []agent.Record{}
	}
	c.JSON(http.StatusOK, ListResponse{Agents: agents, Count: len(agents)})
}

func (s *Server) getAgent(c *gin.Context) {
	rec, ok := s.orch.GetAgentInfo(c.Param("id"))
	if !ok {
		s.writeError(c, errors.NewAgentNotFoundError(c.Param("id")))
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *Server) agentMetrics(c *gin.Context) {
	m, ok := s.orch.GetAgentMetrics(c.Param("id"))
	if !ok {
		s.writeError(c, errors.NewAgentNotFoundError(c.Param("id")))
		return
	}
	c.JSON(http.StatusOK, m)
}

func (s *Server) unregisterAgent(c *gin.Context) {
	id := c.Param("id")
	ctx, cancel := context.WithTimeout(c.Request.Context(), s.stopTimeout)
	defer cancel()

	ok, err := s.orch.Unregister(ctx, id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	if !ok {
		s.writeError(c, errors.NewAgentNotFoundError(id))
		return
	}
	c.JSON(http.StatusOK, UnregisterResponse{AgentID: id, Unregistered: true})
}

func (s *Server) startTask(c *gin.Context) {
	var req StartTaskRequest
	// An empty body starts the task with no input.
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}
	}
	if req.TaskData == nil {
		req.TaskData = agent.TaskData{}
	}

	t, err := s.orch.StartTask(c.Request.Context(), c.Param("id"), req.TaskData)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, StartTaskResponse{
		AgentID:   t.AgentID(),
		Status:    agent.StatusRunning.String(),
		StartedAt: t.StartedAt(),
	})
}

func (s *Server) stopTask(c *gin.Context) {
	id := c.Param("id")
	ctx, cancel := context.WithTimeout(c.Request.Context(), s.stopTimeout)
	defer cancel()

	stopped, err := s.orch.StopTask(ctx, id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	if !stopped {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "no running task for agent '" + id + "'"})
		return
	}
	c.JSON(http.StatusOK, StopTaskResponse{AgentID: id, Stopped: true})
}

func (s *Server) cleanupTasks(c *gin.Context) {
	c.JSON(http.StatusOK, CleanupResponse{Cleaned: s.orch.CleanupCompletedTasks()})
}

func (s *Server) systemMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, s.orch.GetSystemMetrics())
}

func (s *Server) agentTypes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"agent_types": s.catalog.Types()})
}

// writeError maps the orchestrator's error taxonomy onto HTTP status codes.
// Retryable errors carry a Retry-After header. Errors that are not safe to
// show clients are logged and replaced by the status text.
func (s *Server) writeError(c *gin.Context, err error) {
	status := StatusFor(err)
	if errors.IsRetryable(err) {
		c.Header("Retry-After", "1")
	}

	msg := err.Error()
	if !errors.IsUserFacing(err) {
		msg = http.StatusText(status)
	}
	if errors.IsPrecondition(err) {
		s.logger.Debug("request rejected", "path", c.FullPath(), "status", status, "error", err.Error())
	} else {
		s.logger.Log(errors.GetSeverity(err).Level(), "request error",
			"path", c.FullPath(), "status", status, "error", err.Error())
	}
	c.JSON(status, ErrorResponse{Error: msg})
}

// StatusFor returns the HTTP status code for err.
func StatusFor(err error) int {
	switch {
	case errors.IsNotFound(err):
		return http.StatusNotFound
	case errors.IsInvalidState(err):
		return http.StatusConflict
	case errors.IsCapacity(err):
		return http.StatusTooManyRequests
	case errors.IsValidation(err):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
