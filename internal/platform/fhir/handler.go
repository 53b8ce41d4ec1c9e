package fhir

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ctms/ctms/internal/platform/auth"
)

// BundleSource builds the export bundle for one study. It returns the
// bundle together with the study's protocol number, which names the
// download file. A missing study is reported by wrapping ErrNotFound.
type BundleSource interface {
	StudyBundle(ctx context.Context, studyID uuid.UUID) (*Bundle, string, error)
}

// Handler serves the FHIR surface. newImporter builds a fresh importer per
// upload because imports resolve cross-references between entries of the
// same bundle.
type Handler struct {
	source      BundleSource
	newImporter func() ResourceImporter
	client      *Client
	logger      zerolog.Logger
}

func NewHandler(source BundleSource, newImporter func() ResourceImporter, client *Client, logger zerolog.Logger) *Handler {
	return &Handler{source: source, newImporter: newImporter, client: client, logger: logger}
}

// RegisterRoutes wires the FHIR surface. authn establishes the caller's
// identity; /fhir/metadata stays outside it so clients can probe the
// capability statement before negotiating auth. The api group is expected
// to carry authn already.
func (h *Handler) RegisterRoutes(api *echo.Group, fhirGroup *echo.Group, authn echo.MiddlewareFunc) {
	fhirGroup.GET("/metadata", h.Metadata)

	fhirRead := fhirGroup.Group("", authn, auth.RequireRole("admin", "investigator", "sponsor"))
	fhirRead.GET("/ResearchStudy/:id/$export", h.ExportStudy)

	interop := api.Group("/fhir", auth.RequireRole("admin", "investigator"))
	interop.POST("/import", h.ImportBundle)
	interop.POST("/push", h.PushStudy)
	interop.POST("/query", h.QueryServer)
}

// Metadata serves the server's CapabilityStatement. Unauthenticated, as
// FHIR clients probe it before negotiating auth.
func (h *Handler) Metadata(c echo.Context) error {
	return c.JSON(http.StatusOK, NewCapabilityStatement())
}

// ExportStudy returns the study's full bundle as a downloadable
// application/fhir+json document.
func (h *Handler) ExportStudy(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorOutcome("invalid study id"))
	}
	bundle, protocol, err := h.source.StudyBundle(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return c.JSON(http.StatusNotFound, NotFoundOutcome("ResearchStudy", c.Param("id")))
		}
		h.logger.Error().Err(err).Str("study_id", id.String()).Msg("fhir export failed")
		return c.JSON(http.StatusInternalServerError, ErrorOutcome("export failed"))
	}
	body, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ErrorOutcome("encode bundle failed"))
	}
	filename := fmt.Sprintf("fhir-export-%s-%s.json", protocol, time.Now().UTC().Format("2006-01-02"))
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Blob(http.StatusOK, fhirContentType, body)
}

// ImportBundle persists an uploaded bundle document. A malformed document
// answers 400; the first entry that fails to persist aborts the import and
// answers 422 naming the offending entry.
func (h *Handler) ImportBundle(c echo.Context) error {
	raw, err := io.ReadAll(c.Request().Body)
	if err != nil {
		// The body cap middleware surfaces oversized uploads as a 413
		// through the reader.
		var httpErr *echo.HTTPError
		if errors.As(err, &httpErr) {
			return httpErr
		}
		return echo.NewHTTPError(http.StatusBadRequest, "read body: "+err.Error())
	}
	res, err := ImportBundle(c.Request().Context(), h.newImporter(), raw)
	if err != nil {
		var parseErr *ParseError
		if errors.As(err, &parseErr) {
			return c.JSON(http.StatusBadRequest, echo.Map{
				"error":   "invalid bundle",
				"details": parseErr.Error(),
			})
		}
		var importErr *ImportError
		if errors.As(err, &importErr) {
			h.logger.Warn().Err(importErr).Int("entry", importErr.Index).Msg("bundle import aborted")
			return c.JSON(http.StatusUnprocessableEntity, echo.Map{
				"error":         "import failed",
				"details":       importErr.Error(),
				"entry":         importErr.Index,
				"resource_type": importErr.ResourceType,
			})
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, res)
}

type pushRequest struct {
	StudyID       uuid.UUID `json:"study_id"`
	URL           string    `json:"url"`
	Authorization string    `json:"authorization"`
}

// PushStudy builds the study bundle and POSTs it to an external FHIR
// server. The authorization header is passed through from the request.
func (h *Handler) PushStudy(c echo.Context) error {
	var req pushRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.StudyID == uuid.Nil || req.URL == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "study_id and url are required")
	}
	ctx := c.Request().Context()
	bundle, _, err := h.source.StudyBundle(ctx, req.StudyID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "study not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	body, err := json.Marshal(bundle)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if _, err := h.client.Send(ctx, req.URL, req.Authorization, body); err != nil {
		h.logger.Error().Err(err).Str("url", req.URL).Msg("fhir push failed")
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	return c.JSON(http.StatusOK, echo.Map{
		"status":  "sent",
		"entries": len(bundle.Entry),
	})
}

type queryRequest struct {
	URL           string `json:"url"`
	Authorization string `json:"authorization"`
}

// QueryServer proxies a GET to an external FHIR endpoint and relays the
// response body.
func (h *Handler) QueryServer(c echo.Context) error {
	var req queryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.URL == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "url is required")
	}
	body, err := h.client.Query(c.Request().Context(), req.URL, req.Authorization)
	if err != nil {
		h.logger.Error().Err(err).Str("url", req.URL).Msg("fhir query failed")
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	return c.Blob(http.StatusOK, fhirContentType, body)
}
