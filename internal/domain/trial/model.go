package trial

import (
	"time"

	"github.com/google/uuid"
)

// Study maps to the studies table. The protocol number is the stable
// human-readable identifier reused as STUDYID in every exported row.
type Study struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	Protocol    string     `db:"protocol" json:"protocol"`
	Name        string     `db:"name" json:"name"`
	Phase       *string    `db:"phase" json:"phase,omitempty"`
	Status      string     `db:"status" json:"status"`
	Sponsor     *string    `db:"sponsor" json:"sponsor,omitempty"`
	Description *string    `db:"description" json:"description,omitempty"`
	StartDate   *time.Time `db:"start_date" json:"start_date,omitempty"`
	EndDate     *time.Time `db:"end_date" json:"end_date,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// StudyIdentifier returns the value used as STUDYID in tabulation rows:
// the protocol number when present, otherwise the record id.
func (s *Study) StudyIdentifier() string {
	if s.Protocol != "" {
		return s.Protocol
	}
	return s.ID.String()
}

// Participant maps to the participants table. SubjectID is unique within a
// study and is the USUBJID basis in exported domains.
type Participant struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	StudyID        uuid.UUID  `db:"study_id" json:"study_id"`
	SubjectID      string     `db:"subject_id" json:"subject_id"`
	FirstName      string     `db:"first_name" json:"first_name"`
	LastName       string     `db:"last_name" json:"last_name"`
	Email          string     `db:"email" json:"email"`
	DateOfBirth    *time.Time `db:"date_of_birth" json:"date_of_birth,omitempty"`
	Gender         *string    `db:"gender" json:"gender,omitempty"`
	Arm            *string    `db:"arm" json:"arm,omitempty"`
	Country        *string    `db:"country" json:"country,omitempty"`
	EnrollmentDate *time.Time `db:"enrollment_date" json:"enrollment_date,omitempty"`
	CompletionDate *time.Time `db:"completion_date" json:"completion_date,omitempty"`
	Status         string     `db:"status" json:"status"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// SubjectIdentifier returns the value used as USUBJID in tabulation rows:
// the subject id when present, otherwise the record id.
func (p *Participant) SubjectIdentifier() string {
	if p.SubjectID != "" {
		return p.SubjectID
	}
	return p.ID.String()
}

// QuestionnaireResponse maps to the questionnaire_responses table. Answers
// preserve the submission order of the response document.
type QuestionnaireResponse struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	ParticipantID   uuid.UUID  `db:"participant_id" json:"participant_id"`
	QuestionnaireID string     `db:"questionnaire_id" json:"questionnaire_id"`
	Title           string     `db:"title" json:"title"`
	Answers         Answers    `db:"answers" json:"answers"`
	Status          string     `db:"status" json:"status"`
	SubmittedAt     *time.Time `db:"submitted_at" json:"submitted_at,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
}
