package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// GetConstitution returns the global constitution text; empty when unset
// (GET /api/v1/constitution)
func (s *Server) GetConstitution(c echo.Context) error {
	text, err := s.Pipeline.Constitution(c.Request().Context())
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"content": text})
}

// PutConstitution overwrites the constitution singleton in place
// (PUT /api/v1/constitution)
func (s *Server) PutConstitution(c echo.Context) error {
	var body struct {
		Content string `json:"content"`
	}
	if err := c.Bind(&body); err != nil {
		return problem(c, http.StatusBadRequest, "Bad Request", "invalid request body: "+err.Error())
	}
	if err := s.Pipeline.SaveConstitution(c.Request().Context(), body.Content); err != nil {
		return mapError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
