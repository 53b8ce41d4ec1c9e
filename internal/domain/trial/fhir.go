package trial

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ctms/ctms/internal/platform/fhir"
)

const (
	protocolIdentifierSystem = "urn:ctms:study:protocol"
	subjectIdentifierSystem  = "urn:ctms:participant:subject-id"
)

// ToFHIR maps a study to a FHIR ResearchStudy resource.
func (s *Study) ToFHIR() map[string]interface{} {
	result := map[string]interface{}{
		"resourceType": "ResearchStudy",
		"id":           s.ID.String(),
		"title":        s.Name,
		"status":       mapStudyStatusToFHIR(s.Status),
		"identifier": []fhir.Identifier{{
			Use:    "official",
			System: protocolIdentifierSystem,
			Value:  s.Protocol,
		}},
		"meta": fhir.Meta{
			LastUpdated: s.UpdatedAt,
			Profile:     []string{"http://hl7.org/fhir/StructureDefinition/ResearchStudy"},
		},
	}
	if s.Phase != nil {
		result["phase"] = fhir.CodeableConcept{
			Coding: []fhir.Coding{{
				System: "http://terminology.hl7.org/CodeSystem/research-study-phase",
				Code:   *s.Phase,
			}},
		}
	}
	if s.Description != nil {
		result["description"] = *s.Description
	}
	if s.Sponsor != nil {
		result["sponsor"] = fhir.Reference{Display: *s.Sponsor}
	}
	if s.StartDate != nil || s.EndDate != nil {
		period := fhir.Period{}
		if s.StartDate != nil {
			period.Start = s.StartDate.Format("2006-01-02")
		}
		if s.EndDate != nil {
			period.End = s.EndDate.Format("2006-01-02")
		}
		result["period"] = period
	}
	return result
}

func mapStudyStatusToFHIR(status string) string {
	mapping := map[string]string{
		"draft":     "in-review",
		"active":    "active",
		"paused":    "temporarily-closed-to-accrual",
		"completed": "completed",
		"archived":  "closed-to-accrual",
	}
	if mapped, ok := mapping[status]; ok {
		return mapped
	}
	return "active"
}

// ToFHIRPatient maps a participant to a FHIR Patient resource.
func (p *Participant) ToFHIRPatient() map[string]interface{} {
	result := map[string]interface{}{
		"resourceType": "Patient",
		"id":           p.ID.String(),
		"identifier": []fhir.Identifier{{
			Use:    "official",
			System: subjectIdentifierSystem,
			Value:  p.SubjectID,
		}},
		"name": []fhir.HumanName{{
			Family: p.LastName,
			Given:  []string{p.FirstName},
		}},
		"gender": mapGenderToFHIR(p.Gender),
		"meta": fhir.Meta{
			LastUpdated: p.UpdatedAt,
			Profile:     []string{"http://hl7.org/fhir/StructureDefinition/Patient"},
		},
	}
	if p.Email != "" {
		result["telecom"] = []fhir.ContactPoint{{System: "email", Value: p.Email}}
	}
	if p.DateOfBirth != nil {
		result["birthDate"] = p.DateOfBirth.Format("2006-01-02")
	}
	return result
}

func mapGenderToFHIR(gender *string) string {
	if gender == nil {
		return "unknown"
	}
	switch *gender {
	case "male", "m", "M", "Male":
		return "male"
	case "female", "f", "F", "Female":
		return "female"
	case "other":
		return "other"
	default:
		return "unknown"
	}
}

// ToFHIRResearchSubject maps a participant's study membership to a FHIR
// ResearchSubject resource. Its individual reference points at the
// participant's Patient entry and its study reference at the study's
// ResearchStudy entry, both within the same bundle.
func (p *Participant) ToFHIRResearchSubject() map[string]interface{} {
	result := map[string]interface{}{
		"resourceType": "ResearchSubject",
		"id":           "rs-" + p.ID.String(),
		"status":       mapParticipantStatusToFHIR(p.Status),
		"study": fhir.Reference{
			Reference: fhir.FormatReference("ResearchStudy", p.StudyID.String()),
		},
		"individual": fhir.Reference{
			Reference: fhir.FormatReference("Patient", p.ID.String()),
		},
	}
	if p.Arm != nil {
		result["assignedArm"] = *p.Arm
	}
	if p.EnrollmentDate != nil || p.CompletionDate != nil {
		period := fhir.Period{}
		if p.EnrollmentDate != nil {
			period.Start = p.EnrollmentDate.Format("2006-01-02")
		}
		if p.CompletionDate != nil {
			period.End = p.CompletionDate.Format("2006-01-02")
		}
		result["period"] = period
	}
	return result
}

func mapParticipantStatusToFHIR(status string) string {
	mapping := map[string]string{
		"screening": "screening",
		"enrolled":  "on-study",
		"active":    "on-study",
		"completed": "off-study",
		"withdrawn": "withdrawn",
	}
	if mapped, ok := mapping[status]; ok {
		return mapped
	}
	return "on-study"
}

// ToFHIR maps a questionnaire response to a FHIR QuestionnaireResponse
// resource. Items keep the submission order of the answers.
func (qr *QuestionnaireResponse) ToFHIR() map[string]interface{} {
	items := make([]map[string]interface{}, 0, len(qr.Answers))
	for _, ans := range qr.Answers {
		items = append(items, map[string]interface{}{
			"linkId": ans.Key,
			"text":   ans.Key,
			"answer": answerToFHIR(ans.Value),
		})
	}
	result := map[string]interface{}{
		"resourceType":  "QuestionnaireResponse",
		"id":            qr.ID.String(),
		"questionnaire": "Questionnaire/" + qr.QuestionnaireID,
		"status":        qr.Status,
		"subject": fhir.Reference{
			Reference: fhir.FormatReference("Patient", qr.ParticipantID.String()),
		},
		"item": items,
	}
	if qr.SubmittedAt != nil {
		result["authored"] = qr.SubmittedAt.UTC().Format(time.RFC3339)
	}
	return result
}

func answerToFHIR(v AnswerValue) []map[string]interface{} {
	switch v.Kind {
	case AnswerNumber:
		return []map[string]interface{}{{"valueDecimal": v.Number}}
	case AnswerMultiSelect:
		answers := make([]map[string]interface{}, 0, len(v.Multi))
		for _, item := range v.Multi {
			answers = append(answers, map[string]interface{}{"valueString": item})
		}
		return answers
	default:
		return []map[string]interface{}{{"valueString": v.String}}
	}
}

// StudyBundle assembles the export bundle for a study: the ResearchStudy
// first, then a Patient and ResearchSubject per participant, then every
// QuestionnaireResponse. The second return value is the protocol number
// used to name the download file.
func (s *Service) StudyBundle(ctx context.Context, studyID uuid.UUID) (*fhir.Bundle, string, error) {
	study, err := s.GetStudy(ctx, studyID)
	if err != nil {
		if errors.Is(err, ErrStudyNotFound) {
			return nil, "", fmt.Errorf("study %s: %w", studyID, fhir.ErrNotFound)
		}
		return nil, "", err
	}
	participants, err := s.ListAllParticipants(ctx, studyID)
	if err != nil {
		return nil, "", err
	}
	ids := make([]uuid.UUID, len(participants))
	for i, p := range participants {
		ids[i] = p.ID
	}
	responses, err := s.ListResponsesForParticipants(ctx, ids)
	if err != nil {
		return nil, "", err
	}

	resources := make([]interface{}, 0, 1+2*len(participants)+len(responses))
	resources = append(resources, study.ToFHIR())
	for _, p := range participants {
		resources = append(resources, p.ToFHIRPatient(), p.ToFHIRResearchSubject())
	}
	for _, qr := range responses {
		resources = append(resources, qr.ToFHIR())
	}
	bundle, err := fhir.NewCollectionBundle(resources)
	if err != nil {
		return nil, "", err
	}
	return bundle, study.StudyIdentifier(), nil
}
