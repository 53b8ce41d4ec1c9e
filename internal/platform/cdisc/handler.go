package cdisc

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ctms/ctms/internal/platform/auth"
)

type Handler struct {
	runner *Runner
	logger zerolog.Logger
}

func NewHandler(runner *Runner, logger zerolog.Logger) *Handler {
	return &Handler{runner: runner, logger: logger}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	exportGroup := api.Group("", auth.RequireRole("admin", "investigator", "sponsor"))
	exportGroup.POST("/exports", h.RunExport)
}

// RunExport executes one export and returns the artifact as a pretty
// printed downloadable JSON document.
func (h *Handler) RunExport(c echo.Context) error {
	var req ExportRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error":   "invalid request",
			"details": err.Error(),
		})
	}

	export, err := h.runner.Run(c.Request().Context(), req)
	if err != nil {
		var validationErr *ValidationError
		if errors.As(err, &validationErr) {
			return c.JSON(http.StatusBadRequest, echo.Map{
				"error":   "invalid request",
				"details": validationErr.Error(),
			})
		}
		if errors.Is(err, ErrStudyNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{
				"error": "study not found",
			})
		}
		h.logger.Error().Err(err).Str("study_id", req.StudyID.String()).Msg("export failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error":   "export failed",
			"details": err.Error(),
		})
	}

	body, err := json.MarshalIndent(export.Artifact, "", "  ")
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	filename := exportFilename(export.Study.Name, req.Format, time.Now().UTC())
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Blob(http.StatusOK, echo.MIMEApplicationJSON, body)
}

// exportFilename builds "{studyName}_{format}_{isoDate}.json" with
// whitespace and path separators squashed out of the name.
func exportFilename(studyName string, format Format, now time.Time) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '/', '\\':
			return '-'
		default:
			return r
		}
	}, studyName)
	return fmt.Sprintf("%s_%s_%s.json", name, format, now.Format("2006-01-02"))
}
