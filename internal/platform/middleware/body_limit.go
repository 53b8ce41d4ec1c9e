package middleware

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
)

// importPath accepts whole FHIR bundle documents, so it gets a higher cap
// than ordinary JSON bodies.
const importPath = "/api/v1/fhir/import"

// BodyLimit caps request body sizes in bytes. defaultLimit applies
// everywhere, importLimit to the bundle import route. Oversized requests
// answer 413, rejected from the Content-Length header when present and
// otherwise as soon as reading crosses the cap.
func BodyLimit(defaultLimit, importLimit int64) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if req.Body == nil || req.Body == http.NoBody {
				return next(c)
			}

			limit := defaultLimit
			if req.Method == http.MethodPost && req.URL.Path == importPath {
				limit = importLimit
			}

			if req.ContentLength > limit {
				return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "request body too large")
			}
			req.Body = &cappedBody{ReadCloser: req.Body, remaining: limit}
			return next(c)
		}
	}
}

// cappedBody enforces the limit even when Content-Length is missing or
// lies. It reads at most one byte past the cap to detect overflow.
type cappedBody struct {
	io.ReadCloser
	remaining int64
}

func (b *cappedBody) Read(p []byte) (int, error) {
	if b.remaining < 0 {
		return 0, echo.NewHTTPError(http.StatusRequestEntityTooLarge, "request body too large")
	}
	if int64(len(p)) > b.remaining+1 {
		p = p[:b.remaining+1]
	}
	n, err := b.ReadCloser.Read(p)
	b.remaining -= int64(n)
	if b.remaining < 0 {
		return 0, echo.NewHTTPError(http.StatusRequestEntityTooLarge, "request body too large")
	}
	return n, err
}
