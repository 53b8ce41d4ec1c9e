package trial

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/ctms/ctms/internal/platform/cdisc"
)

// FetchStudyData implements cdisc.DataSource: it assembles the snapshot
// one export runs against. Participants arrive in subject-id order and
// responses in submission order, which the sequence-numbered domains
// depend on.
func (s *Service) FetchStudyData(ctx context.Context, studyID uuid.UUID) (*cdisc.StudyData, error) {
	study, err := s.GetStudy(ctx, studyID)
	if err != nil {
		if errors.Is(err, ErrStudyNotFound) {
			return nil, fmt.Errorf("study %s: %w", studyID, cdisc.ErrStudyNotFound)
		}
		return nil, err
	}

	participants, err := s.ListAllParticipants(ctx, studyID)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, len(participants))
	for i, p := range participants {
		ids[i] = p.ID
	}
	responses, err := s.ListResponsesForParticipants(ctx, ids)
	if err != nil {
		return nil, err
	}

	data := &cdisc.StudyData{
		Study: cdisc.StudyInfo{
			ID:         study.ID,
			Identifier: study.StudyIdentifier(),
			Name:       study.Name,
			Protocol:   study.Protocol,
		},
		Subjects:  make([]cdisc.Subject, 0, len(participants)),
		Responses: make([]cdisc.Response, 0, len(responses)),
	}
	for _, p := range participants {
		data.Subjects = append(data.Subjects, cdisc.Subject{
			ID:             p.ID.String(),
			SubjectID:      p.SubjectIdentifier(),
			DateOfBirth:    p.DateOfBirth,
			Gender:         p.Gender,
			Arm:            p.Arm,
			Country:        p.Country,
			EnrollmentDate: p.EnrollmentDate,
			CompletionDate: p.CompletionDate,
			Status:         p.Status,
		})
	}
	for _, qr := range responses {
		items := make([]cdisc.ResponseItem, 0, len(qr.Answers))
		for _, ans := range qr.Answers {
			items = append(items, cdisc.ResponseItem{
				Key:   ans.Key,
				Value: ans.Value.Stringify(),
			})
		}
		data.Responses = append(data.Responses, cdisc.Response{
			ParticipantID: qr.ParticipantID.String(),
			Title:         qr.Title,
			SubmittedAt:   qr.SubmittedAt,
			Items:         items,
		})
	}
	return data, nil
}
