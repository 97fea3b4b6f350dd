// Package mcp exposes the pipeline over the Model Context Protocol so
// agent-capable clients can drive executions without the REST surface.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"scribeflow/backend/internal/repository"
	"scribeflow/backend/internal/services"
	"scribeflow/backend/pkg/models"
)

type Server struct {
	mcpServer *server.MCPServer
	store     repository.Store
	pipeline  *services.PipelineService
}

func NewServer(store repository.Store, pipeline *services.PipelineService) *Server {
	s := &Server{
		mcpServer: server.NewMCPServer(
			"Scribeflow Pipeline",
			"1.0.0",
			server.WithToolCapabilities(true),
		),
		store:    store,
		pipeline: pipeline,
	}

	s.registerTools()
	return s
}

func (s *Server) GetMCPServer() *server.MCPServer {
	return s.mcpServer
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		mcp.NewTool(
			"list_workflows",
			mcp.WithDescription("List all document pipeline workflows"),
		),
		s.handleListWorkflows,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"get_document",
			mcp.WithDescription("Fetch a generated document by id"),
			mcp.WithString("id", mcp.Required(), mcp.Description("The document id")),
		),
		s.handleGetDocument,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"run_agent",
			mcp.WithDescription("Run one pipeline agent standalone and return the generated document"),
			mcp.WithString("agent", mcp.Required(), mcp.Description("Agent type: decision_author, analyst, architect, scrum_master or developer")),
			mcp.WithString("variables", mcp.Description("JSON array of {key, value} context variables")),
		),
		s.handleRunAgent,
	)
}

func (s *Server) handleListWorkflows(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	workflows, err := s.store.ListWorkflows(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list workflows: %v", err)), nil
	}

	jsonBytes, _ := json.Marshal(workflows)
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) handleGetDocument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return mcp.NewToolResultError("Invalid arguments type"), nil
	}

	id, ok := args["id"].(string)
	if !ok || id == "" {
		return mcp.NewToolResultError("Missing required parameter: id"), nil
	}

	doc, err := s.store.GetDocument(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get document: %v", err)), nil
	}

	jsonBytes, _ := json.Marshal(doc)
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) handleRunAgent(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return mcp.NewToolResultError("Invalid arguments type"), nil
	}

	agent, ok := args["agent"].(string)
	if !ok || agent == "" {
		return mcp.NewToolResultError("Missing required parameter: agent"), nil
	}

	var vars []models.ContextVariable
	if raw, ok := args["variables"].(string); ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &vars); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Invalid variables JSON: %v", err)), nil
		}
	}

	sink := &collectSink{}
	if err := s.pipeline.ExecuteAgent(ctx, models.AgentType(agent), vars, sink); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to run agent: %v", err)), nil
	}
	if sink.doc == nil {
		return mcp.NewToolResultError("Agent run produced no document"), nil
	}

	jsonBytes, _ := json.Marshal(sink.doc)
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

// collectSink discards chunk-level events; MCP tool calls return the final
// document only.
type collectSink struct {
	doc *models.Document
}

func (c *collectSink) Content(string) error { return nil }
func (c *collectSink) Step(int) error       { return nil }
func (c *collectSink) Done(doc *models.Document) error {
	c.doc = doc
	return nil
}
func (c *collectSink) Fail(string) error { return nil }

func MountHTTPHandlers(mux *http.ServeMux, mcpServer *server.MCPServer) {
	// Use SSE server for /mcp/sse and /mcp/message endpoints
	sseServer := server.NewSSEServer(mcpServer, server.WithStaticBasePath("/mcp"))

	mux.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
		// Direct POST for tool calls
		if r.Method == http.MethodPost {
			sseServer.ServeHTTP(w, r)
			return
		}
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	})

	// SSE endpoints
	mux.HandleFunc("/mcp/sse", sseServer.ServeHTTP)
	mux.HandleFunc("/mcp/message", sseServer.ServeHTTP)
}
