package trial

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ErrStudyNotFound is returned when a requested study id does not exist.
var ErrStudyNotFound = errors.New("study not found")

type Service struct {
	studies      StudyRepository
	participants ParticipantRepository
	responses    ResponseRepository
}

func NewService(
	studies StudyRepository,
	participants ParticipantRepository,
	responses ResponseRepository,
) *Service {
	return &Service{
		studies:      studies,
		participants: participants,
		responses:    responses,
	}
}

// -- Study --

var validStudyStatuses = map[string]bool{
	"draft": true, "active": true, "paused": true, "completed": true, "archived": true,
}

func (s *Service) CreateStudy(ctx context.Context, st *Study) error {
	if st.Protocol == "" {
		return fmt.Errorf("protocol is required")
	}
	if st.Name == "" {
		return fmt.Errorf("name is required")
	}
	if st.Status == "" {
		st.Status = "draft"
	}
	if !validStudyStatuses[st.Status] {
		return fmt.Errorf("invalid status: %s", st.Status)
	}
	return s.studies.Create(ctx, st)
}

func (s *Service) GetStudy(ctx context.Context, id uuid.UUID) (*Study, error) {
	st, err := s.studies.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStudyNotFound
		}
		return nil, err
	}
	return st, nil
}

func (s *Service) UpdateStudy(ctx context.Context, st *Study) error {
	if st.Status != "" && !validStudyStatuses[st.Status] {
		return fmt.Errorf("invalid status: %s", st.Status)
	}
	return s.studies.Update(ctx, st)
}

func (s *Service) DeleteStudy(ctx context.Context, id uuid.UUID) error {
	return s.studies.Delete(ctx, id)
}

func (s *Service) ListStudies(ctx context.Context, limit, offset int) ([]*Study, int, error) {
	return s.studies.List(ctx, limit, offset)
}

// -- Participant --

var validParticipantStatuses = map[string]bool{
	"screening": true, "enrolled": true, "active": true,
	"completed": true, "withdrawn": true,
}

func (s *Service) CreateParticipant(ctx context.Context, p *Participant) error {
	if p.StudyID == uuid.Nil {
		return fmt.Errorf("study_id is required")
	}
	if p.SubjectID == "" {
		return fmt.Errorf("subject_id is required")
	}
	if p.Status == "" {
		p.Status = "screening"
	}
	if !validParticipantStatuses[p.Status] {
		return fmt.Errorf("invalid status: %s", p.Status)
	}
	return s.participants.Create(ctx, p)
}

func (s *Service) GetParticipant(ctx context.Context, id uuid.UUID) (*Participant, error) {
	return s.participants.GetByID(ctx, id)
}

func (s *Service) UpdateParticipant(ctx context.Context, p *Participant) error {
	if p.Status != "" && !validParticipantStatuses[p.Status] {
		return fmt.Errorf("invalid status: %s", p.Status)
	}
	return s.participants.Update(ctx, p)
}

func (s *Service) DeleteParticipant(ctx context.Context, id uuid.UUID) error {
	return s.participants.Delete(ctx, id)
}

func (s *Service) ListParticipantsByStudy(ctx context.Context, studyID uuid.UUID, limit, offset int) ([]*Participant, int, error) {
	return s.participants.ListByStudy(ctx, studyID, limit, offset)
}

// -- Questionnaire Response --

var validResponseStatuses = map[string]bool{
	"in-progress": true, "completed": true, "amended": true,
}

func (s *Service) CreateResponse(ctx context.Context, qr *QuestionnaireResponse) error {
	if qr.ParticipantID == uuid.Nil {
		return fmt.Errorf("participant_id is required")
	}
	if qr.QuestionnaireID == "" {
		return fmt.Errorf("questionnaire_id is required")
	}
	if qr.Status == "" {
		qr.Status = "completed"
	}
	if !validResponseStatuses[qr.Status] {
		return fmt.Errorf("invalid status: %s", qr.Status)
	}
	return s.responses.Create(ctx, qr)
}

func (s *Service) GetResponse(ctx context.Context, id uuid.UUID) (*QuestionnaireResponse, error) {
	return s.responses.GetByID(ctx, id)
}

func (s *Service) DeleteResponse(ctx context.Context, id uuid.UUID) error {
	return s.responses.Delete(ctx, id)
}

func (s *Service) ListResponsesByParticipant(ctx context.Context, participantID uuid.UUID, limit, offset int) ([]*QuestionnaireResponse, int, error) {
	return s.responses.ListByParticipant(ctx, participantID, limit, offset)
}

// -- Export read contract --

// ListAllParticipants returns every participant of a study in subject-id
// order. Exports iterate this snapshot, so the order is part of the
// contract (DSSEQ derives from it).
func (s *Service) ListAllParticipants(ctx context.Context, studyID uuid.UUID) ([]*Participant, error) {
	return s.participants.ListAllByStudy(ctx, studyID)
}

// ListResponsesForParticipants returns every response belonging to the
// given participant set.
func (s *Service) ListResponsesForParticipants(ctx context.Context, participantIDs []uuid.UUID) ([]*QuestionnaireResponse, error) {
	return s.responses.ListAllByParticipants(ctx, participantIDs)
}
