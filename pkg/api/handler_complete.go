package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/modelfork/modelfork/pkg/completion"
	"github.com/modelfork/modelfork/pkg/events"
)

const maxContentLength = 100_000

// completeHandler handles POST /api/v1/complete.
// Runs a synchronous completion and returns the full reply.
func (s *Server) completeHandler(c *echo.Context) error {
	var req completion.Request
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := validateContent(req.Content); err != nil {
		return err
	}

	result, err := s.completer.Complete(c.Request().Context(), req)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, result)
}

// completeStreamHandler handles POST /api/v1/complete/stream.
// Relays the provider's stream as server-sent events. Request validation
// errors surface as HTTP errors; anything after the first byte of the SSE
// body is reported in-band as an error event.
func (s *Server) completeStreamHandler(c *echo.Context) error {
	var req completion.Request
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := validateContent(req.Content); err != nil {
		return err
	}

	sink := events.NewSSEWriter(c.Response())
	err := s.completer.CompleteStream(c.Request().Context(), req, sink)
	return finishStream(c, err)
}

// compareHandler handles POST /api/v1/complete/compare.
// Runs both models concurrently and returns both outcomes.
func (s *Server) compareHandler(c *echo.Context) error {
	var req completion.CompareRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := validateContent(req.Content); err != nil {
		return err
	}

	result, err := s.completer.Compare(c.Request().Context(), req)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, result)
}

// compareStreamHandler handles POST /api/v1/complete/compare/stream.
func (s *Server) compareStreamHandler(c *echo.Context) error {
	var req completion.CompareRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := validateContent(req.Content); err != nil {
		return err
	}

	sink := events.NewSSEWriter(c.Response())
	err := s.completer.CompareStream(c.Request().Context(), req, sink)
	return finishStream(c, err)
}

func validateContent(content string) error {
	if content == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "content is required")
	}
	if len(content) > maxContentLength {
		return echo.NewHTTPError(http.StatusBadRequest, "content exceeds maximum length of 100,000 characters")
	}
	return nil
}

// finishStream decides what a streaming handler returns after the completer
// finishes. Errors raised before any SSE bytes were written become normal
// HTTP errors; once the stream has started the client already received an
// in-band error event, so the handler just ends the response.
func finishStream(c *echo.Context, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		// client went away mid-stream
		return nil
	}
	if resp, uerr := echo.UnwrapResponse(c.Response()); uerr == nil && !resp.Committed {
		return mapServiceError(err)
	}
	slog.Error("Stream ended with error after headers were sent", "error", err)
	return nil
}
