package trial

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ctms/ctms/internal/platform/fhir"
)

// BundleImporter persists FHIR bundle entries into trial records. It is
// built fresh per import because entries cross-reference each other:
// Patient entries are held until a ResearchSubject links them to a study,
// and QuestionnaireResponse subjects resolve through the patients imported
// earlier in the same bundle.
type BundleImporter struct {
	svc *Service

	// pending patients keyed by their FHIR id, awaiting a ResearchSubject.
	patients map[string]*patientDraft
	// FHIR patient id to the participant record it became.
	imported map[string]uuid.UUID
}

type patientDraft struct {
	subjectID   string
	firstName   string
	lastName    string
	email       string
	gender      *string
	dateOfBirth *time.Time
}

// NewBundleImporter returns an importer for one bundle document.
func (s *Service) NewBundleImporter() fhir.ResourceImporter {
	return &BundleImporter{
		svc:      s,
		patients: make(map[string]*patientDraft),
		imported: make(map[string]uuid.UUID),
	}
}

// ImportResource persists one bundle entry. Observation entries are
// accepted and skipped: no internal record type stores them.
func (imp *BundleImporter) ImportResource(ctx context.Context, resourceType string, resource json.RawMessage) (bool, error) {
	switch resourceType {
	case "ResearchStudy":
		return true, imp.importStudy(ctx, resource)
	case "Patient":
		return true, imp.stagePatient(resource)
	case "ResearchSubject":
		return true, imp.importSubject(ctx, resource)
	case "QuestionnaireResponse":
		return true, imp.importResponse(ctx, resource)
	default:
		return false, nil
	}
}

// Wire shapes for the resource fields the importer reads. These are
// deliberately partial: unknown fields are ignored, not rejected.
type fhirIdentifier struct {
	System string `json:"system"`
	Value  string `json:"value"`
}

type fhirCodeableConcept struct {
	Coding []struct {
		Code string `json:"code"`
	} `json:"coding"`
}

type fhirReference struct {
	Reference string `json:"reference"`
	Display   string `json:"display"`
}

type fhirPeriod struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type fhirResearchStudy struct {
	ID          string               `json:"id"`
	Title       string               `json:"title"`
	Status      string               `json:"status"`
	Identifier  []fhirIdentifier     `json:"identifier"`
	Phase       *fhirCodeableConcept `json:"phase"`
	Description *string              `json:"description"`
	Sponsor     *fhirReference       `json:"sponsor"`
	Period      *fhirPeriod          `json:"period"`
}

func (imp *BundleImporter) importStudy(ctx context.Context, resource json.RawMessage) error {
	var in fhirResearchStudy
	if err := json.Unmarshal(resource, &in); err != nil {
		return fmt.Errorf("decode ResearchStudy: %w", err)
	}

	protocol := in.ID
	for _, ident := range in.Identifier {
		if ident.Value != "" {
			protocol = ident.Value
			break
		}
	}
	if protocol == "" {
		return fmt.Errorf("ResearchStudy has neither identifier nor id")
	}

	// Idempotent on protocol: re-importing a bundle updates the study
	// instead of duplicating it.
	if existing, err := imp.svc.studies.GetByProtocol(ctx, protocol); err == nil {
		existing.Name = pickNonEmpty(in.Title, existing.Name)
		existing.Status = mapFHIRStudyStatus(in.Status)
		in.applyOptionals(existing)
		return imp.svc.UpdateStudy(ctx, existing)
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	study := &Study{
		Protocol: protocol,
		Name:     pickNonEmpty(in.Title, protocol),
		Status:   mapFHIRStudyStatus(in.Status),
	}
	in.applyOptionals(study)
	return imp.svc.CreateStudy(ctx, study)
}

func (in *fhirResearchStudy) applyOptionals(study *Study) {
	if in.Phase != nil && len(in.Phase.Coding) > 0 && in.Phase.Coding[0].Code != "" {
		code := in.Phase.Coding[0].Code
		study.Phase = &code
	}
	if in.Description != nil && *in.Description != "" {
		study.Description = in.Description
	}
	if in.Sponsor != nil && in.Sponsor.Display != "" {
		display := in.Sponsor.Display
		study.Sponsor = &display
	}
	if in.Period != nil {
		if t := parseFHIRDate(in.Period.Start); t != nil {
			study.StartDate = t
		}
		if t := parseFHIRDate(in.Period.End); t != nil {
			study.EndDate = t
		}
	}
}

func mapFHIRStudyStatus(status string) string {
	mapping := map[string]string{
		"in-review":                     "draft",
		"approved":                      "draft",
		"active":                        "active",
		"temporarily-closed-to-accrual": "paused",
		"completed":                     "completed",
		"closed-to-accrual":             "archived",
		"withdrawn":                     "archived",
	}
	if mapped, ok := mapping[status]; ok {
		return mapped
	}
	return "active"
}

type fhirPatient struct {
	ID         string           `json:"id"`
	Identifier []fhirIdentifier `json:"identifier"`
	Name       []struct {
		Family string   `json:"family"`
		Given  []string `json:"given"`
	} `json:"name"`
	Telecom []struct {
		System string `json:"system"`
		Value  string `json:"value"`
	} `json:"telecom"`
	Gender    string `json:"gender"`
	BirthDate string `json:"birthDate"`
}

func (imp *BundleImporter) stagePatient(resource json.RawMessage) error {
	var in fhirPatient
	if err := json.Unmarshal(resource, &in); err != nil {
		return fmt.Errorf("decode Patient: %w", err)
	}
	if in.ID == "" {
		return fmt.Errorf("Patient has no id")
	}

	draft := &patientDraft{subjectID: in.ID}
	for _, ident := range in.Identifier {
		if ident.Value != "" {
			draft.subjectID = ident.Value
			break
		}
	}
	if len(in.Name) > 0 {
		draft.lastName = in.Name[0].Family
		if len(in.Name[0].Given) > 0 {
			draft.firstName = in.Name[0].Given[0]
		}
	}
	for _, tel := range in.Telecom {
		if tel.System == "email" {
			draft.email = tel.Value
			break
		}
	}
	if in.Gender != "" && in.Gender != "unknown" {
		gender := in.Gender
		draft.gender = &gender
	}
	draft.dateOfBirth = parseFHIRDate(in.BirthDate)

	imp.patients[in.ID] = draft
	return nil
}

type fhirResearchSubject struct {
	Status      string        `json:"status"`
	Study       fhirReference `json:"study"`
	Individual  fhirReference `json:"individual"`
	AssignedArm string        `json:"assignedArm"`
	Period      *fhirPeriod   `json:"period"`
}

func (imp *BundleImporter) importSubject(ctx context.Context, resource json.RawMessage) error {
	var in fhirResearchSubject
	if err := json.Unmarshal(resource, &in); err != nil {
		return fmt.Errorf("decode ResearchSubject: %w", err)
	}

	study, err := imp.resolveStudy(ctx, in.Study.Reference)
	if err != nil {
		return err
	}
	patientID := referenceID(in.Individual.Reference, "Patient")
	if patientID == "" {
		return fmt.Errorf("ResearchSubject has no resolvable individual reference %q", in.Individual.Reference)
	}
	draft, ok := imp.patients[patientID]
	if !ok {
		return fmt.Errorf("ResearchSubject references Patient %q not present in bundle", patientID)
	}

	p := &Participant{
		StudyID:     study.ID,
		SubjectID:   draft.subjectID,
		FirstName:   draft.firstName,
		LastName:    draft.lastName,
		Email:       draft.email,
		Gender:      draft.gender,
		DateOfBirth: draft.dateOfBirth,
		Status:      mapFHIRSubjectStatus(in.Status),
	}
	if in.AssignedArm != "" {
		arm := in.AssignedArm
		p.Arm = &arm
	}
	if in.Period != nil {
		p.EnrollmentDate = parseFHIRDate(in.Period.Start)
		p.CompletionDate = parseFHIRDate(in.Period.End)
	}
	if err := imp.svc.CreateParticipant(ctx, p); err != nil {
		return err
	}
	imp.imported[patientID] = p.ID
	return nil
}

func mapFHIRSubjectStatus(status string) string {
	mapping := map[string]string{
		"screening":             "screening",
		"candidate":             "screening",
		"eligible":              "screening",
		"on-study":              "active",
		"on-study-intervention": "active",
		"on-study-observation":  "active",
		"off-study":             "completed",
		"withdrawn":             "withdrawn",
	}
	if mapped, ok := mapping[status]; ok {
		return mapped
	}
	return "enrolled"
}

type fhirAnswer struct {
	ValueString  *string  `json:"valueString"`
	ValueDecimal *float64 `json:"valueDecimal"`
	ValueInteger *int64   `json:"valueInteger"`
	ValueBoolean *bool    `json:"valueBoolean"`
}

type fhirQuestionnaireResponse struct {
	Questionnaire string        `json:"questionnaire"`
	Status        string        `json:"status"`
	Subject       fhirReference `json:"subject"`
	Authored      string        `json:"authored"`
	Item          []struct {
		LinkID string       `json:"linkId"`
		Text   string       `json:"text"`
		Answer []fhirAnswer `json:"answer"`
	} `json:"item"`
}

func (imp *BundleImporter) importResponse(ctx context.Context, resource json.RawMessage) error {
	var in fhirQuestionnaireResponse
	if err := json.Unmarshal(resource, &in); err != nil {
		return fmt.Errorf("decode QuestionnaireResponse: %w", err)
	}

	patientID := referenceID(in.Subject.Reference, "Patient")
	if patientID == "" {
		return fmt.Errorf("QuestionnaireResponse has no resolvable subject reference %q", in.Subject.Reference)
	}
	participantID, ok := imp.imported[patientID]
	if !ok {
		return fmt.Errorf("QuestionnaireResponse references Patient %q with no imported participant", patientID)
	}

	qr := &QuestionnaireResponse{
		ParticipantID:   participantID,
		QuestionnaireID: strings.TrimPrefix(in.Questionnaire, "Questionnaire/"),
		Status:          mapFHIRResponseStatus(in.Status),
		Answers:         make(Answers, 0, len(in.Item)),
	}
	if qr.QuestionnaireID == "" {
		qr.QuestionnaireID = "imported"
	}
	if t := parseFHIRDateTime(in.Authored); t != nil {
		qr.SubmittedAt = t
	}
	for _, item := range in.Item {
		key := item.LinkID
		if key == "" {
			key = item.Text
		}
		if key == "" || len(item.Answer) == 0 {
			continue
		}
		qr.Answers = append(qr.Answers, Answer{Key: key, Value: fhirAnswerValue(item.Answer)})
	}
	return imp.svc.CreateResponse(ctx, qr)
}

func mapFHIRResponseStatus(status string) string {
	switch status {
	case "in-progress", "completed", "amended":
		return status
	default:
		return "completed"
	}
}

func fhirAnswerValue(answers []fhirAnswer) AnswerValue {
	if len(answers) > 1 {
		multi := make([]string, 0, len(answers))
		for _, a := range answers {
			if a.ValueString != nil {
				multi = append(multi, *a.ValueString)
			}
		}
		return AnswerValue{Kind: AnswerMultiSelect, Multi: multi}
	}
	a := answers[0]
	switch {
	case a.ValueDecimal != nil:
		return AnswerValue{Kind: AnswerNumber, Number: *a.ValueDecimal}
	case a.ValueInteger != nil:
		return AnswerValue{Kind: AnswerNumber, Number: float64(*a.ValueInteger)}
	case a.ValueBoolean != nil:
		return AnswerValue{Kind: AnswerString, String: fmt.Sprintf("%t", *a.ValueBoolean)}
	case a.ValueString != nil:
		return AnswerValue{Kind: AnswerString, String: *a.ValueString}
	default:
		return AnswerValue{Kind: AnswerString}
	}
}

// resolveStudy finds the study a ResearchSubject points at. The reference
// id is tried as a record id first, then as a protocol number.
func (imp *BundleImporter) resolveStudy(ctx context.Context, reference string) (*Study, error) {
	refID := referenceID(reference, "ResearchStudy")
	if refID == "" {
		return nil, fmt.Errorf("ResearchSubject has no resolvable study reference %q", reference)
	}
	if id, err := uuid.Parse(refID); err == nil {
		study, err := imp.svc.GetStudy(ctx, id)
		if err == nil {
			return study, nil
		}
		if !errors.Is(err, ErrStudyNotFound) {
			return nil, err
		}
	}
	study, err := imp.svc.studies.GetByProtocol(ctx, refID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("study %q not found for ResearchSubject", refID)
		}
		return nil, err
	}
	return study, nil
}

// referenceID extracts the id from a relative literal reference of the
// given type ("Patient/abc" with type Patient yields "abc").
func referenceID(reference, resourceType string) string {
	rest, ok := strings.CutPrefix(reference, resourceType+"/")
	if !ok || rest == "" {
		return ""
	}
	return rest
}

func parseFHIRDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return &t
	}
	return parseFHIRDateTime(s)
}

func parseFHIRDateTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t
	}
	return nil
}

func pickNonEmpty(candidates ...string) string {
	for _, c := range candidates {
		if c != "" {
			return c
		}
	}
	return ""
}
