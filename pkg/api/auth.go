package api

import (
	echo "github.com/labstack/echo/v5"
)

// extractOwnerKey extracts the caller's session identity.
// Priority: X-Session-ID header > session_id query parameter.
// There is no authentication; the key only partitions anonymous chats.
func extractOwnerKey(c *echo.Context) string {
	if key := c.Request().Header.Get("X-Session-ID"); key != "" {
		return key
	}
	return c.QueryParam("session_id")
}
