package api

import (
	"errors"
	"log/slog"
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/modelfork/modelfork/pkg/provider"
	"github.com/modelfork/modelfork/pkg/services"
)

// mapServiceError maps service-layer errors to HTTP error responses.
func mapServiceError(err error) *echo.HTTPError {
	var validErr *services.ValidationError
	if errors.As(err, &validErr) {
		return echo.NewHTTPError(http.StatusBadRequest, validErr.Error())
	}
	if errors.Is(err, services.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "resource not found")
	}
	if errors.Is(err, provider.ErrUnsupportedModel) {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if errors.Is(err, provider.ErrModelNotAvailable) {
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}

	var apiErr *provider.APIError
	if errors.As(err, &apiErr) {
		// relay the provider's status when it maps cleanly, else 502
		status := http.StatusBadGateway
		if apiErr.StatusCode >= 400 && apiErr.StatusCode < 600 {
			status = apiErr.StatusCode
		}
		return echo.NewHTTPError(status, apiErr.Message)
	}

	// Unexpected error
	slog.Error("Unexpected service error", "error", err)
	return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
}
