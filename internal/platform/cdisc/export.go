package cdisc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrStudyNotFound marks an export request whose study does not exist.
// Data sources wrap their own not-found errors with this sentinel.
var ErrStudyNotFound = errors.New("study not found")

// ValidationError reports an export request the pipeline cannot serve.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// DataSource fetches the snapshot one export runs against. Empty subject
// or response sequences are valid results, not errors.
type DataSource interface {
	FetchStudyData(ctx context.Context, studyID uuid.UUID) (*StudyData, error)
}

// Export couples the assembled artifact with the study header, which the
// transport layer needs to name the download file.
type Export struct {
	Artifact *Artifact
	Study    StudyInfo
}

// Runner orchestrates one export: validate the request, fetch the
// snapshot, dispatch to the format's generator, attach the optional
// metadata and Define.xml blocks.
type Runner struct {
	source DataSource
	logger zerolog.Logger
}

func NewRunner(source DataSource, logger zerolog.Logger) *Runner {
	return &Runner{source: source, logger: logger}
}

// defaultDomains is the tabulation set used when a request names none.
var defaultDomains = []Domain{DomainDM, DomainQS, DomainDS}

func (r *Runner) Run(ctx context.Context, req ExportRequest) (*Export, error) {
	return r.run(ctx, req, time.Now().UTC())
}

// run threads a single reference time through the whole export so that
// repeated runs against unchanged data differ only in metadata.exportDate
// and the Define.xml creation stamp.
func (r *Runner) run(ctx context.Context, req ExportRequest, now time.Time) (*Export, error) {
	if err := validateRequest(&req); err != nil {
		return nil, err
	}

	data, err := r.source.FetchStudyData(ctx, req.StudyID)
	if err != nil {
		return nil, err
	}

	artifact := &Artifact{}
	switch req.Format {
	case FormatSDTM:
		artifact.Domains = GenerateSDTM(data, req.Domains, now)
	case FormatODM:
		artifact.ODM = GenerateODM(data.Study)
	case FormatADaM:
		artifact.Datasets = GenerateADaM(data, now)
	}

	if req.IncludeMetadata {
		artifact.Metadata = &Metadata{
			StudyID:          data.Study.ID,
			StudyName:        data.Study.Name,
			Protocol:         data.Study.Protocol,
			ExportDate:       now.Format(time.RFC3339),
			Format:           req.Format,
			Domains:          req.Domains,
			ParticipantCount: len(data.Subjects),
			ResponseCount:    len(data.Responses),
		}
	}

	// Define.xml accompanies tabulation data only.
	if req.IncludeDefineXML && req.Format == FormatSDTM {
		defineXML, err := GenerateDefine(data.Study, req.Domains, now)
		if err != nil {
			return nil, err
		}
		artifact.DefineXML = defineXML
	}

	r.logger.Info().
		Str("study_id", req.StudyID.String()).
		Str("format", string(req.Format)).
		Int("participants", len(data.Subjects)).
		Int("responses", len(data.Responses)).
		Msg("export generated")

	return &Export{Artifact: artifact, Study: data.Study}, nil
}

func validateRequest(req *ExportRequest) error {
	if req.StudyID == uuid.Nil {
		return &ValidationError{Field: "studyId", Reason: "is required"}
	}
	switch req.Format {
	case FormatODM, FormatSDTM, FormatADaM:
	case "":
		return &ValidationError{Field: "format", Reason: "is required"}
	default:
		return &ValidationError{Field: "format", Reason: fmt.Sprintf("unknown format %q", req.Format)}
	}
	for _, d := range req.Domains {
		if !knownDomains[d] {
			return &ValidationError{Field: "domains", Reason: fmt.Sprintf("unknown domain %q", d)}
		}
	}
	if len(req.Domains) == 0 {
		req.Domains = defaultDomains
	}
	return nil
}
