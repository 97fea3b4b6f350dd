package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scribeflow/backend/internal/logging"
	"scribeflow/backend/internal/services"
	"scribeflow/backend/internal/testutil"
	"scribeflow/backend/pkg/models"
)

func newTestServer(provider *testutil.ScriptedProvider) (*echo.Echo, *testutil.MemStore) {
	store := testutil.NewMemStore()
	logger := logging.NewLogger()
	pipeline := services.NewPipelineService(store, provider, logger)

	e := echo.New()
	RegisterHandlers(e.Group("/api/v1"), NewServer(store, pipeline, logger))
	return e, store
}

func doJSON(t *testing.T, e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

// decodeStream parses a newline-delimited JSON response body.
func decodeStream(t *testing.T, body string) []map[string]any {
	t.Helper()
	var events []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(body), "\n") {
		if line == "" {
			continue
		}
		var event map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &event), "line: %s", line)
		events = append(events, event)
	}
	return events
}

func TestHealth(t *testing.T) {
	e, _ := newTestServer(&testutil.ScriptedProvider{FailAfter: -1})
	rec := doJSON(t, e, http.MethodGet, "/api/v1/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestWorkflowCRUD(t *testing.T) {
	e, _ := newTestServer(&testutil.ScriptedProvider{FailAfter: -1})

	rec := doJSON(t, e, http.MethodPost, "/api/v1/workflows", `{"name":"Billing","description":"revamp"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created models.Workflow
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, models.StatusDraft, created.Status)
	assert.Equal(t, models.AgentDecisionAuthor, created.CurrentAgent)

	rec = doJSON(t, e, http.MethodGet, "/api/v1/workflows/"+created.ID, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, e, http.MethodGet, "/api/v1/workflows", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, e, http.MethodPut, "/api/v1/workflows/"+created.ID+"/variables",
		`[{"key":"project_name","value":"Billing"}]`)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, e, http.MethodPut, "/api/v1/workflows/"+created.ID+"/agent", `{"agent":"analyst"}`)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, e, http.MethodDelete, "/api/v1/workflows/"+created.ID, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, e, http.MethodGet, "/api/v1/workflows/"+created.ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderContentType), "json")
}

func TestWorkflowValidation(t *testing.T) {
	e, _ := newTestServer(&testutil.ScriptedProvider{FailAfter: -1})

	rec := doJSON(t, e, http.MethodPost, "/api/v1/workflows", `{"description":"nameless"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, e, http.MethodPut, "/api/v1/workflows/any/agent", `{"agent":"poet"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExecuteWorkflowStream(t *testing.T) {
	e, store := newTestServer(&testutil.ScriptedProvider{Chunks: []string{"hello ", "world"}, FailAfter: -1})

	w := &models.Workflow{Name: "Run", CurrentAgent: models.AgentAnalyst, Status: models.StatusDraft}
	require.NoError(t, store.CreateWorkflow(context.Background(), w))

	rec := doJSON(t, e, http.MethodPost, "/api/v1/workflows/"+w.ID+"/execute", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/x-ndjson", rec.Header().Get(echo.HeaderContentType))

	events := decodeStream(t, rec.Body.String())
	require.Len(t, events, 4)

	assert.Equal(t, float64(models.AgentAnalyst.StepIndex()), events[0]["stepIndex"])
	assert.Equal(t, "hello ", events[1]["content"])
	assert.Equal(t, "world", events[2]["content"])

	final := events[3]
	assert.Equal(t, true, final["done"])
	doc := final["document"].(map[string]any)
	assert.Equal(t, "hello world", doc["content"])
	assert.Equal(t, w.ID, doc["workflow_id"])
}

func TestExecuteWorkflowStreamFailure(t *testing.T) {
	e, store := newTestServer(&testutil.ScriptedProvider{Chunks: []string{"one", "two", "x"}, FailAfter: 2})

	w := &models.Workflow{Name: "Doomed", CurrentAgent: models.AgentArchitect, Status: models.StatusDraft}
	require.NoError(t, store.CreateWorkflow(context.Background(), w))

	rec := doJSON(t, e, http.MethodPost, "/api/v1/workflows/"+w.ID+"/execute", "")
	require.Equal(t, http.StatusOK, rec.Code)

	events := decodeStream(t, rec.Body.String())
	require.Len(t, events, 4) // step, two chunks, error

	assert.Equal(t, "one", events[1]["content"])
	assert.Equal(t, "two", events[2]["content"])
	assert.NotEmpty(t, events[3]["error"])
	_, hasDone := events[3]["done"]
	assert.False(t, hasDone)

	updated, err := store.GetWorkflow(context.Background(), w.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusError, updated.Status)

	docs, err := store.ListWorkflowDocuments(context.Background(), w.ID)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestExecuteWorkflowRejectedEndsWithErrorEvent(t *testing.T) {
	e, store := newTestServer(&testutil.ScriptedProvider{Chunks: []string{"x"}, FailAfter: -1})

	w := &models.Workflow{Name: "Busy", CurrentAgent: models.AgentAnalyst, Status: models.StatusDraft}
	require.NoError(t, store.CreateWorkflow(context.Background(), w))
	require.NoError(t, store.UpdateWorkflowStatus(context.Background(), w.ID, models.StatusInProgress))

	rec := doJSON(t, e, http.MethodPost, "/api/v1/workflows/"+w.ID+"/execute", "")
	require.Equal(t, http.StatusOK, rec.Code)

	// the rejection happens before any provider call, but the committed
	// stream still has to carry a terminal event
	events := decodeStream(t, rec.Body.String())
	require.Len(t, events, 1)
	assert.Contains(t, events[0]["error"], "transition")
	_, hasDone := events[0]["done"]
	assert.False(t, hasDone)
}

func TestExecuteWorkflowNotFound(t *testing.T) {
	e, _ := newTestServer(&testutil.ScriptedProvider{FailAfter: -1})
	rec := doJSON(t, e, http.MethodPost, "/api/v1/workflows/00000000-0000-0000-0000-000000000000/execute", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExecuteAgentStandalone(t *testing.T) {
	e, _ := newTestServer(&testutil.ScriptedProvider{Chunks: []string{"solo"}, FailAfter: -1})

	rec := doJSON(t, e, http.MethodPost, "/api/v1/agents/developer/execute",
		`{"variables":[{"key":"project_name","value":"Solo"}]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	events := decodeStream(t, rec.Body.String())
	require.Len(t, events, 2) // no step event for standalone runs
	assert.Equal(t, "solo", events[0]["content"])
	assert.Equal(t, true, events[1]["done"])

	rec = doJSON(t, e, http.MethodPost, "/api/v1/agents/poet/execute", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDocumentLifecycle(t *testing.T) {
	e, store := newTestServer(&testutil.ScriptedProvider{FailAfter: -1})
	ctx := context.Background()

	doc := &models.Document{
		AgentType:  models.AgentAnalyst,
		Title:      "Reqs",
		Content:    "v1",
		OutputType: models.AgentAnalyst.OutputType(),
	}
	require.NoError(t, store.CreateDocument(ctx, doc))

	rec := doJSON(t, e, http.MethodPatch, "/api/v1/documents/"+doc.ID, `{"content":"v2"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var updated models.Document
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, 2, updated.Version)

	rec = doJSON(t, e, http.MethodGet, "/api/v1/documents/"+doc.ID+"/versions", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var versions []models.DocumentVersion
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &versions))
	require.Len(t, versions, 1)
	assert.Equal(t, "v1", versions[0].Content)

	rec = doJSON(t, e, http.MethodPatch, "/api/v1/documents/"+doc.ID, `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "empty update is rejected")

	rec = doJSON(t, e, http.MethodDelete, "/api/v1/documents/"+doc.ID, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, e, http.MethodGet, "/api/v1/documents/"+doc.ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExportDocument(t *testing.T) {
	e, store := newTestServer(&testutil.ScriptedProvider{FailAfter: -1})

	doc := &models.Document{
		AgentType:  models.AgentArchitect,
		Title:      "Design",
		Content:    "the design body",
		OutputType: models.AgentArchitect.OutputType(),
	}
	require.NoError(t, store.CreateDocument(context.Background(), doc))

	rec := doJSON(t, e, http.MethodGet, "/api/v1/documents/"+doc.ID+"/export?format=markdown", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderContentType), "text/markdown")
	assert.Contains(t, rec.Body.String(), "# Design\n\nthe design body")

	rec = doJSON(t, e, http.MethodGet, "/api/v1/documents/"+doc.ID+"/export?format=json", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var exported map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &exported))
	assert.Equal(t, "Design", exported["title"])
	assert.Equal(t, "architecture_design", exported["outputType"])
	assert.Equal(t, float64(1), exported["version"])

	rec = doJSON(t, e, http.MethodGet, "/api/v1/documents/"+doc.ID+"/export?format=pdf", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestValidateDocumentEndpoint(t *testing.T) {
	e, store := newTestServer(&testutil.ScriptedProvider{FailAfter: -1, Response: "not json at all"})

	doc := &models.Document{
		AgentType:  models.AgentDeveloper,
		Title:      "Plan",
		Content:    "body",
		OutputType: models.AgentDeveloper.OutputType(),
	}
	require.NoError(t, store.CreateDocument(context.Background(), doc))

	rec := doJSON(t, e, http.MethodPost, "/api/v1/documents/"+doc.ID+"/validate", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var report models.QualityReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.False(t, report.Parsed)
	assert.NotEmpty(t, report.Reason)

	rec = doJSON(t, e, http.MethodPost, "/api/v1/documents/missing/validate", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestConstitutionEndpoints(t *testing.T) {
	e, _ := newTestServer(&testutil.ScriptedProvider{FailAfter: -1})

	rec := doJSON(t, e, http.MethodGet, "/api/v1/constitution", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"content":""`)

	rec = doJSON(t, e, http.MethodPut, "/api/v1/constitution", `{"content":"Be concise."}`)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, e, http.MethodGet, "/api/v1/constitution", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Be concise.")
}
