package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/taskfleet/taskfleet/internal/orchestrator"
)

// statusFor maps a result code to an HTTP status.
func statusFor(code string) int {
	switch code {
	case orchestrator.CodeValidation:
		return http.StatusBadRequest
	case orchestrator.CodeNotFound:
		return http.StatusNotFound
	case orchestrator.CodePersistence:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleCreateTask(c *gin.Context) {
	var req orchestrator.TaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	result := s.master.ReceiveTask(c.Request.Context(), req)
	if !result.Success {
		c.JSON(statusFor(result.Code), result)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (s *Server) handleGetTask(c *gin.Context) {
	result := s.master.GetTaskStatus(c.Param("id"))
	if result.Error != "" {
		c.JSON(statusFor(result.Code), gin.H{"error": result.Error})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleCheckProgress(c *gin.Context) {
	result := s.master.CheckProgress(c.Param("id"))
	if result.Error != "" {
		c.JSON(statusFor(result.Code), gin.H{"error": result.Error})
		return
	}
	c.JSON(http.StatusOK, result)
}

type interactRequest struct {
	Message string `json:"message"`
}

func (s *Server) handleInteract(c *gin.Context) {
	var req interactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if req.Message == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		return
	}

	result := s.master.Interact(c.Request.Context(), c.Param("id"), req.Message)
	if result.Error != "" {
		c.JSON(statusFor(result.Code), gin.H{"error": result.Error})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleListAgents(c *gin.Context) {
	agents, err := s.registry.List(false)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"agents": agents})
}
