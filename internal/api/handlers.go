// Package api contains the HTTP handlers for the document pipeline service
package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"scribeflow/backend/internal/logging"
	"scribeflow/backend/internal/repository"
	"scribeflow/backend/internal/services"
	"scribeflow/backend/pkg/models"
)

// Server holds the dependencies for the API server.
type Server struct {
	Store    repository.Store
	Pipeline *services.PipelineService
	Logger   *logging.Logger
}

// NewServer creates a new Server.
func NewServer(store repository.Store, pipeline *services.PipelineService, logger *logging.Logger) *Server {
	return &Server{Store: store, Pipeline: pipeline, Logger: logger}
}

// RegisterHandlers mounts all REST routes on the given group.
func RegisterHandlers(g *echo.Group, s *Server) {
	g.GET("/health", s.HandleHealth)

	g.GET("/workflows", s.ListWorkflows)
	g.POST("/workflows", s.CreateWorkflow)
	g.GET("/workflows/:id", s.GetWorkflow)
	g.DELETE("/workflows/:id", s.DeleteWorkflow)
	g.PUT("/workflows/:id/variables", s.PutWorkflowVariables)
	g.PUT("/workflows/:id/agent", s.PutWorkflowAgent)
	g.GET("/workflows/:id/documents", s.ListWorkflowDocuments)
	g.POST("/workflows/:id/execute", s.ExecuteWorkflow)

	g.POST("/agents/:type/execute", s.ExecuteAgent)
	g.GET("/agents/:type/documents", s.ListAgentDocuments)

	g.GET("/documents/:id", s.GetDocument)
	g.PATCH("/documents/:id", s.UpdateDocument)
	g.DELETE("/documents/:id", s.DeleteDocument)
	g.GET("/documents/:id/versions", s.ListDocumentVersions)
	g.GET("/documents/:id/export", s.ExportDocument)
	g.POST("/documents/:id/validate", s.ValidateDocument)

	g.GET("/constitution", s.GetConstitution)
	g.PUT("/constitution", s.PutConstitution)
}

// HandleHealth returns basic health status (always returns 200 OK)
func (s *Server) HandleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, models.HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Service:   "scribeflow",
		Version:   "1.0.0",
	})
}

// problem writes an RFC 7807 Problem Details JSON error response
func problem(c echo.Context, status int, title, detail string) error {
	return c.JSON(status, models.ProblemDetails{
		Type:   "about:blank",
		Title:  title,
		Status: status,
		Detail: detail,
	})
}

// mapError converts store and service errors to the right problem response.
func mapError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return problem(c, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, services.ErrInvalidInput):
		return problem(c, http.StatusBadRequest, "Bad Request", err.Error())
	default:
		return problem(c, http.StatusInternalServerError, "Internal Server Error", err.Error())
	}
}
