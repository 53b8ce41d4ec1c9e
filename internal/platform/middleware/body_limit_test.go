package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func drainBody(c echo.Context) error {
	if _, err := io.ReadAll(c.Request().Body); err != nil {
		return err
	}
	return c.NoContent(http.StatusOK)
}

func TestBodyLimit_RejectsByContentLength(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/studies", strings.NewReader(strings.Repeat("x", 100)))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := BodyLimit(10, 1000)(drainBody)(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %v", err)
	}
}

func TestBodyLimit_RejectsWhileReading(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/studies", strings.NewReader(strings.Repeat("x", 100)))
	req.ContentLength = -1 // chunked upload, length unknown up front
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := BodyLimit(10, 1000)(drainBody)(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %v", err)
	}
}

func TestBodyLimit_ImportRouteGetsHigherCap(t *testing.T) {
	e := echo.New()
	body := strings.Repeat("x", 100)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/fhir/import", strings.NewReader(body))
	rec := httptest.NewRecorder()
	if err := BodyLimit(10, 1000)(drainBody)(e.NewContext(req, rec)); err != nil {
		t.Errorf("import route should accept 100 bytes under the 1000 byte cap: %v", err)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/exports", strings.NewReader(body))
	rec = httptest.NewRecorder()
	err := BodyLimit(10, 1000)(drainBody)(e.NewContext(req, rec))
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("other routes keep the default cap, got %v", err)
	}
}

func TestBodyLimit_AllowsWithinLimit(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/studies", strings.NewReader("small"))
	rec := httptest.NewRecorder()
	if err := BodyLimit(10, 1000)(drainBody)(e.NewContext(req, rec)); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
