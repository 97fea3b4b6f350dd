package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"scribeflow/backend/internal/repository"
	"scribeflow/backend/internal/services"
	"scribeflow/backend/pkg/models"
)

// ListWorkflows returns all workflows, newest first
// (GET /api/v1/workflows)
func (s *Server) ListWorkflows(c echo.Context) error {
	workflows, err := s.Store.ListWorkflows(c.Request().Context())
	if err != nil {
		return mapError(c, err)
	}
	if workflows == nil {
		workflows = []*models.Workflow{}
	}
	return c.JSON(http.StatusOK, workflows)
}

// CreateWorkflow creates a new draft workflow
// (POST /api/v1/workflows)
func (s *Server) CreateWorkflow(c echo.Context) error {
	var workflow models.Workflow
	if err := c.Bind(&workflow); err != nil {
		return problem(c, http.StatusBadRequest, "Bad Request", "invalid request body: "+err.Error())
	}

	if err := s.Pipeline.CreateWorkflow(c.Request().Context(), &workflow); err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusCreated, workflow)
}

// GetWorkflow retrieves one workflow
// (GET /api/v1/workflows/:id)
func (s *Server) GetWorkflow(c echo.Context) error {
	workflow, err := s.Store.GetWorkflow(c.Request().Context(), c.Param("id"))
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusOK, workflow)
}

// DeleteWorkflow removes a workflow and cascades to its documents
// (DELETE /api/v1/workflows/:id)
func (s *Server) DeleteWorkflow(c echo.Context) error {
	if err := s.Store.DeleteWorkflow(c.Request().Context(), c.Param("id")); err != nil {
		return mapError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// PutWorkflowVariables replaces the workflow's variable list wholesale
// (PUT /api/v1/workflows/:id/variables)
func (s *Server) PutWorkflowVariables(c echo.Context) error {
	var vars []models.ContextVariable
	if err := c.Bind(&vars); err != nil {
		return problem(c, http.StatusBadRequest, "Bad Request", "invalid request body: "+err.Error())
	}
	if err := s.Store.UpdateWorkflowVariables(c.Request().Context(), c.Param("id"), vars); err != nil {
		return mapError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// PutWorkflowAgent moves the workflow's current agent pointer
// (PUT /api/v1/workflows/:id/agent)
func (s *Server) PutWorkflowAgent(c echo.Context) error {
	var body struct {
		Agent models.AgentType `json:"agent"`
	}
	if err := c.Bind(&body); err != nil {
		return problem(c, http.StatusBadRequest, "Bad Request", "invalid request body: "+err.Error())
	}
	if !body.Agent.Valid() {
		return problem(c, http.StatusBadRequest, "Bad Request", "unknown agent type")
	}
	if err := s.Store.SetWorkflowAgent(c.Request().Context(), c.Param("id"), body.Agent); err != nil {
		return mapError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ListWorkflowDocuments returns a workflow's documents, newest first
// (GET /api/v1/workflows/:id/documents)
func (s *Server) ListWorkflowDocuments(c echo.Context) error {
	ctx := c.Request().Context()
	if _, err := s.Store.GetWorkflow(ctx, c.Param("id")); err != nil {
		return mapError(c, err)
	}
	docs, err := s.Store.ListWorkflowDocuments(ctx, c.Param("id"))
	if err != nil {
		return mapError(c, err)
	}
	if docs == nil {
		docs = []*models.Document{}
	}
	return c.JSON(http.StatusOK, docs)
}

// ExecuteWorkflow runs the workflow's current agent, relaying provider
// chunks to the client as newline-delimited JSON events
// (POST /api/v1/workflows/:id/execute)
func (s *Server) ExecuteWorkflow(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")

	// resolve not-found before the response is committed to a stream
	if _, err := s.Store.GetWorkflow(ctx, id); err != nil {
		return mapError(c, err)
	}

	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, "application/x-ndjson")
	resp.WriteHeader(http.StatusOK)

	sink := newNDJSONSink(resp)
	if err := s.Pipeline.ExecuteWorkflow(ctx, id, sink); err != nil {
		s.Logger.Error("workflow execution failed: id=%s err=%v", id, err)
		s.closeStream(sink, err)
	}
	return nil
}

// ExecuteAgent runs one agent standalone with the supplied variables
// (POST /api/v1/agents/:type/execute)
func (s *Server) ExecuteAgent(c echo.Context) error {
	agent := models.AgentType(c.Param("type"))
	if !agent.Valid() {
		return problem(c, http.StatusBadRequest, "Bad Request", "unknown agent type")
	}

	var body struct {
		Variables []models.ContextVariable `json:"variables"`
	}
	if err := c.Bind(&body); err != nil {
		return problem(c, http.StatusBadRequest, "Bad Request", "invalid request body: "+err.Error())
	}

	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, "application/x-ndjson")
	resp.WriteHeader(http.StatusOK)

	sink := newNDJSONSink(resp)
	if err := s.Pipeline.ExecuteAgent(c.Request().Context(), agent, body.Variables, sink); err != nil {
		if !errors.Is(err, services.ErrInvalidInput) && !errors.Is(err, repository.ErrNotFound) {
			s.Logger.Error("agent execution failed: agent=%s err=%v", agent, err)
		}
		s.closeStream(sink, err)
	}
	return nil
}

// closeStream makes sure an execution response ends with a terminal event.
// Failures before the provider call (a rejected status transition, a render
// error) never reach the sink, and the 200 header is already committed, so
// the contract that every stream ends in done or error is enforced here.
func (s *Server) closeStream(sink *ndjsonSink, err error) {
	if sink.terminal {
		return
	}
	msg := "execution failed"
	if errors.Is(err, services.ErrInvalidInput) {
		msg = err.Error()
	}
	if failErr := sink.Fail(msg); failErr != nil {
		s.Logger.Error("failed to write terminal stream event: %v", failErr)
	}
}

// ListAgentDocuments returns an agent's documents, newest first
// (GET /api/v1/agents/:type/documents)
func (s *Server) ListAgentDocuments(c echo.Context) error {
	agent := models.AgentType(c.Param("type"))
	if !agent.Valid() {
		return problem(c, http.StatusBadRequest, "Bad Request", "unknown agent type")
	}
	docs, err := s.Store.ListAgentDocuments(c.Request().Context(), agent)
	if err != nil {
		return mapError(c, err)
	}
	if docs == nil {
		docs = []*models.Document{}
	}
	return c.JSON(http.StatusOK, docs)
}
