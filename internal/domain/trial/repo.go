package trial

import (
	"context"

	"github.com/google/uuid"
)

type StudyRepository interface {
	Create(ctx context.Context, s *Study) error
	GetByID(ctx context.Context, id uuid.UUID) (*Study, error)
	GetByProtocol(ctx context.Context, protocol string) (*Study, error)
	Update(ctx context.Context, s *Study) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*Study, int, error)
}

type ParticipantRepository interface {
	Create(ctx context.Context, p *Participant) error
	GetByID(ctx context.Context, id uuid.UUID) (*Participant, error)
	Update(ctx context.Context, p *Participant) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByStudy(ctx context.Context, studyID uuid.UUID, limit, offset int) ([]*Participant, int, error)
	// ListAllByStudy returns every participant of a study ordered by
	// subject id, for export snapshots.
	ListAllByStudy(ctx context.Context, studyID uuid.UUID) ([]*Participant, error)
}

type ResponseRepository interface {
	Create(ctx context.Context, r *QuestionnaireResponse) error
	GetByID(ctx context.Context, id uuid.UUID) (*QuestionnaireResponse, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListByParticipant(ctx context.Context, participantID uuid.UUID, limit, offset int) ([]*QuestionnaireResponse, int, error)
	// ListAllByParticipants returns every response belonging to the given
	// participant set ordered by submission time, for export snapshots.
	ListAllByParticipants(ctx context.Context, participantIDs []uuid.UUID) ([]*QuestionnaireResponse, error)
}
