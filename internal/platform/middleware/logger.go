package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ctms/ctms/internal/platform/auth"
)

// Logger emits one structured line per request, tagged with the request id
// set by RequestID and, once auth has run, the authenticated subject and
// roles.
func Logger(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()

			err := next(c)

			evt := logger.Info()
			if err != nil {
				evt = logger.Error().Err(err)
			}
			if rid, ok := c.Get(requestIDKey).(string); ok {
				evt = evt.Str("request_id", rid)
			}
			if claims, ok := auth.FromContext(c); ok {
				evt = evt.Str("user", claims.Subject).Strs("roles", claims.Roles)
			}
			evt.
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("status", c.Response().Status).
				Int64("bytes_out", c.Response().Size).
				Dur("latency", time.Since(start)).
				Str("remote_ip", c.RealIP()).
				Msg("request")

			return err
		}
	}
}
