package api

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"scribeflow/backend/pkg/models"
)

// GetDocument retrieves one document with its live content
// (GET /api/v1/documents/:id)
func (s *Server) GetDocument(c echo.Context) error {
	doc, err := s.Store.GetDocument(c.Request().Context(), c.Param("id"))
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusOK, doc)
}

// UpdateDocument applies a partial edit; the pre-edit content is snapshotted
// into the version history and the version number bumped by one. Restoring
// an old version is just this operation with that version's content.
// (PATCH /api/v1/documents/:id)
func (s *Server) UpdateDocument(c echo.Context) error {
	var upd models.DocumentUpdate
	if err := c.Bind(&upd); err != nil {
		return problem(c, http.StatusBadRequest, "Bad Request", "invalid request body: "+err.Error())
	}
	if upd.Title == nil && upd.Content == nil {
		return problem(c, http.StatusBadRequest, "Bad Request", "update must set title or content")
	}

	doc, err := s.Store.UpdateDocument(c.Request().Context(), c.Param("id"), upd)
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusOK, doc)
}

// DeleteDocument removes a document and its version history
// (DELETE /api/v1/documents/:id)
func (s *Server) DeleteDocument(c echo.Context) error {
	if err := s.Store.DeleteDocument(c.Request().Context(), c.Param("id")); err != nil {
		return mapError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ListDocumentVersions returns the version snapshots, highest version first
// (GET /api/v1/documents/:id/versions)
func (s *Server) ListDocumentVersions(c echo.Context) error {
	ctx := c.Request().Context()
	if _, err := s.Store.GetDocument(ctx, c.Param("id")); err != nil {
		return mapError(c, err)
	}
	versions, err := s.Store.ListDocumentVersions(ctx, c.Param("id"))
	if err != nil {
		return mapError(c, err)
	}
	if versions == nil {
		versions = []*models.DocumentVersion{}
	}
	return c.JSON(http.StatusOK, versions)
}

// ExportDocument renders the document in the requested format: markdown
// (title as heading plus content) or json (the structured document object)
// (GET /api/v1/documents/:id/export?format=markdown|json)
func (s *Server) ExportDocument(c echo.Context) error {
	doc, err := s.Store.GetDocument(c.Request().Context(), c.Param("id"))
	if err != nil {
		return mapError(c, err)
	}

	format := c.QueryParam("format")
	if format == "" {
		format = "markdown"
	}

	switch format {
	case "markdown":
		body := fmt.Sprintf("# %s\n\n%s\n", doc.Title, doc.Content)
		return c.Blob(http.StatusOK, "text/markdown; charset=utf-8", []byte(body))
	case "json":
		return c.JSON(http.StatusOK, map[string]any{
			"title":      doc.Title,
			"content":    doc.Content,
			"outputType": doc.OutputType,
			"agentType":  doc.AgentType,
			"version":    doc.Version,
			"createdAt":  doc.CreatedAt,
			"updatedAt":  doc.UpdatedAt,
		})
	default:
		return problem(c, http.StatusBadRequest, "Bad Request", "unsupported export format: "+format)
	}
}

// ValidateDocument runs the non-streaming quality review. The response is
// always a well-shaped report; Parsed=false flags an unusable provider
// response.
// (POST /api/v1/documents/:id/validate)
func (s *Server) ValidateDocument(c echo.Context) error {
	report, err := s.Pipeline.ValidateDocument(c.Request().Context(), c.Param("id"))
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusOK, report)
}
