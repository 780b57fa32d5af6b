package middleware

import (
	"github.com/labstack/echo/v4"
	"github.com/leaflog/leaflog-backend/internal/logctx"
)

// RequestContext copies the request id set by echo's RequestID middleware
// into the request context for log lines below the handler layer.
func RequestContext(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		rid := c.Response().Header().Get(echo.HeaderXRequestID)
		if rid == "" {
			rid = c.Request().Header.Get(echo.HeaderXRequestID)
		}
		if rid != "" {
			req := c.Request()
			c.SetRequest(req.WithContext(logctx.WithRID(req.Context(), rid)))
		}
		return next(c)
	}
}
