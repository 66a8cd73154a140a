package api

import (
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/modelfork/modelfork/pkg/catalog"
)

// ModelsResponse is the HTTP response for GET /api/v1/models.
type ModelsResponse struct {
	Models []catalog.ModelDescriptor `json:"models"`
}

// listModelsHandler handles GET /api/v1/models.
// The catalog is static; membership in it gates completion requests.
func (s *Server) listModelsHandler(c *echo.Context) error {
	return c.JSON(http.StatusOK, ModelsResponse{Models: catalog.Models})
}
