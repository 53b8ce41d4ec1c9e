package cdisc

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func newHandlerTest(source DataSource) (*Handler, *echo.Echo) {
	h := NewHandler(NewRunner(source, zerolog.Nop()), zerolog.Nop())
	return h, echo.New()
}

func postExport(e *echo.Echo, body string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestHandler_RunExport(t *testing.T) {
	h, e := newHandlerTest(&fakeSource{data: exportData()})
	body := fmt.Sprintf(`{"studyId":%q,"format":"SDTM","domains":["DM"],"includeMetadata":true}`, uuid.New())
	c, rec := postExport(e, body)
	if err := h.RunExport(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	want := fmt.Sprintf(`attachment; filename="Demo_SDTM_%s.json"`, time.Now().UTC().Format("2006-01-02"))
	if got := rec.Header().Get(echo.HeaderContentDisposition); got != want {
		t.Errorf("expected disposition %s, got %s", want, got)
	}

	var artifact Artifact
	if err := json.Unmarshal(rec.Body.Bytes(), &artifact); err != nil {
		t.Fatalf("decode artifact: %v", err)
	}
	if _, ok := artifact.Domains[DomainDM]; !ok {
		t.Error("expected DM in artifact")
	}
	if artifact.Metadata == nil || artifact.Metadata.ParticipantCount != 1 {
		t.Errorf("metadata wrong: %+v", artifact.Metadata)
	}
}

func TestHandler_RunExport_UnknownFormat(t *testing.T) {
	h, e := newHandlerTest(&fakeSource{data: exportData()})
	body := fmt.Sprintf(`{"studyId":%q,"format":"CSV"}`, uuid.New())
	c, rec := postExport(e, body)
	if err := h.RunExport(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
	var resp map[string]string
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp["error"] != "invalid request" {
		t.Errorf("error body wrong: %v", resp)
	}
}

func TestHandler_RunExport_StudyNotFound(t *testing.T) {
	h, e := newHandlerTest(&fakeSource{err: fmt.Errorf("study x: %w", ErrStudyNotFound)})
	body := fmt.Sprintf(`{"studyId":%q,"format":"ODM"}`, uuid.New())
	c, rec := postExport(e, body)
	if err := h.RunExport(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestExportFilename(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	got := exportFilename("Pain Study/Phase 2", FormatSDTM, now)
	if got != "Pain-Study-Phase-2_SDTM_2024-06-01.json" {
		t.Errorf("filename wrong: %s", got)
	}
}
