package trial

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// =========== Study Repository ===========

type studyRepoPG struct{ pool *pgxpool.Pool }

func NewStudyRepoPG(pool *pgxpool.Pool) StudyRepository {
	return &studyRepoPG{pool: pool}
}

const studyCols = `id, protocol, name, phase, status, sponsor, description,
	start_date, end_date, created_at, updated_at`

func scanStudy(row pgx.Row) (*Study, error) {
	var s Study
	err := row.Scan(&s.ID, &s.Protocol, &s.Name, &s.Phase, &s.Status, &s.Sponsor, &s.Description,
		&s.StartDate, &s.EndDate, &s.CreatedAt, &s.UpdatedAt)
	return &s, err
}

func (r *studyRepoPG) Create(ctx context.Context, s *Study) error {
	s.ID = uuid.New()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO studies (id, protocol, name, phase, status, sponsor, description, start_date, end_date)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		s.ID, s.Protocol, s.Name, s.Phase, s.Status, s.Sponsor, s.Description, s.StartDate, s.EndDate)
	return err
}

func (r *studyRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Study, error) {
	return scanStudy(r.pool.QueryRow(ctx, `SELECT `+studyCols+` FROM studies WHERE id = $1`, id))
}

func (r *studyRepoPG) GetByProtocol(ctx context.Context, protocol string) (*Study, error) {
	return scanStudy(r.pool.QueryRow(ctx, `SELECT `+studyCols+` FROM studies WHERE protocol = $1`, protocol))
}

func (r *studyRepoPG) Update(ctx context.Context, s *Study) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE studies SET name=$2, phase=$3, status=$4, sponsor=$5, description=$6,
			start_date=$7, end_date=$8, updated_at=NOW()
		WHERE id = $1`,
		s.ID, s.Name, s.Phase, s.Status, s.Sponsor, s.Description, s.StartDate, s.EndDate)
	return err
}

func (r *studyRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM studies WHERE id = $1`, id)
	return err
}

func (r *studyRepoPG) List(ctx context.Context, limit, offset int) ([]*Study, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM studies`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `SELECT `+studyCols+` FROM studies ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Study
	for rows.Next() {
		s, err := scanStudy(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, s)
	}
	return items, total, rows.Err()
}

// =========== Participant Repository ===========

type participantRepoPG struct{ pool *pgxpool.Pool }

func NewParticipantRepoPG(pool *pgxpool.Pool) ParticipantRepository {
	return &participantRepoPG{pool: pool}
}

const participantCols = `id, study_id, subject_id, first_name, last_name, email,
	date_of_birth, gender, arm, country, enrollment_date, completion_date,
	status, created_at, updated_at`

func scanParticipant(row pgx.Row) (*Participant, error) {
	var p Participant
	err := row.Scan(&p.ID, &p.StudyID, &p.SubjectID, &p.FirstName, &p.LastName, &p.Email,
		&p.DateOfBirth, &p.Gender, &p.Arm, &p.Country, &p.EnrollmentDate, &p.CompletionDate,
		&p.Status, &p.CreatedAt, &p.UpdatedAt)
	return &p, err
}

func (r *participantRepoPG) Create(ctx context.Context, p *Participant) error {
	p.ID = uuid.New()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO participants (id, study_id, subject_id, first_name, last_name, email,
			date_of_birth, gender, arm, country, enrollment_date, completion_date, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		p.ID, p.StudyID, p.SubjectID, p.FirstName, p.LastName, p.Email,
		p.DateOfBirth, p.Gender, p.Arm, p.Country, p.EnrollmentDate, p.CompletionDate, p.Status)
	return err
}

func (r *participantRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Participant, error) {
	return scanParticipant(r.pool.QueryRow(ctx, `SELECT `+participantCols+` FROM participants WHERE id = $1`, id))
}

func (r *participantRepoPG) Update(ctx context.Context, p *Participant) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE participants SET subject_id=$2, first_name=$3, last_name=$4, email=$5,
			date_of_birth=$6, gender=$7, arm=$8, country=$9,
			enrollment_date=$10, completion_date=$11, status=$12, updated_at=NOW()
		WHERE id = $1`,
		p.ID, p.SubjectID, p.FirstName, p.LastName, p.Email,
		p.DateOfBirth, p.Gender, p.Arm, p.Country,
		p.EnrollmentDate, p.CompletionDate, p.Status)
	return err
}

func (r *participantRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM participants WHERE id = $1`, id)
	return err
}

func (r *participantRepoPG) ListByStudy(ctx context.Context, studyID uuid.UUID, limit, offset int) ([]*Participant, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM participants WHERE study_id = $1`, studyID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `SELECT `+participantCols+` FROM participants
		WHERE study_id = $1 ORDER BY subject_id LIMIT $2 OFFSET $3`, studyID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	items, err := collectParticipants(rows)
	return items, total, err
}

func (r *participantRepoPG) ListAllByStudy(ctx context.Context, studyID uuid.UUID) ([]*Participant, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+participantCols+` FROM participants
		WHERE study_id = $1 ORDER BY subject_id`, studyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectParticipants(rows)
}

func collectParticipants(rows pgx.Rows) ([]*Participant, error) {
	var items []*Participant
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

// =========== Response Repository ===========

type responseRepoPG struct{ pool *pgxpool.Pool }

func NewResponseRepoPG(pool *pgxpool.Pool) ResponseRepository {
	return &responseRepoPG{pool: pool}
}

const responseCols = `id, participant_id, questionnaire_id, title, answers, status, submitted_at, created_at`

func scanResponse(row pgx.Row) (*QuestionnaireResponse, error) {
	var qr QuestionnaireResponse
	var answers []byte
	err := row.Scan(&qr.ID, &qr.ParticipantID, &qr.QuestionnaireID, &qr.Title, &answers,
		&qr.Status, &qr.SubmittedAt, &qr.CreatedAt)
	if err != nil {
		return nil, err
	}
	if len(answers) > 0 {
		if err := json.Unmarshal(answers, &qr.Answers); err != nil {
			return nil, fmt.Errorf("decode answers for response %s: %w", qr.ID, err)
		}
	}
	return &qr, nil
}

func (r *responseRepoPG) Create(ctx context.Context, qr *QuestionnaireResponse) error {
	qr.ID = uuid.New()
	answers, err := json.Marshal(qr.Answers)
	if err != nil {
		return fmt.Errorf("encode answers: %w", err)
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO questionnaire_responses (id, participant_id, questionnaire_id, title, answers, status, submitted_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		qr.ID, qr.ParticipantID, qr.QuestionnaireID, qr.Title, answers, qr.Status, qr.SubmittedAt)
	return err
}

func (r *responseRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*QuestionnaireResponse, error) {
	return scanResponse(r.pool.QueryRow(ctx, `SELECT `+responseCols+` FROM questionnaire_responses WHERE id = $1`, id))
}

func (r *responseRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM questionnaire_responses WHERE id = $1`, id)
	return err
}

func (r *responseRepoPG) ListByParticipant(ctx context.Context, participantID uuid.UUID, limit, offset int) ([]*QuestionnaireResponse, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM questionnaire_responses WHERE participant_id = $1`, participantID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `SELECT `+responseCols+` FROM questionnaire_responses
		WHERE participant_id = $1 ORDER BY created_at LIMIT $2 OFFSET $3`, participantID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	items, err := collectResponses(rows)
	return items, total, err
}

func (r *responseRepoPG) ListAllByParticipants(ctx context.Context, participantIDs []uuid.UUID) ([]*QuestionnaireResponse, error) {
	if len(participantIDs) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT `+responseCols+` FROM questionnaire_responses
		WHERE participant_id = ANY($1) ORDER BY created_at`, participantIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectResponses(rows)
}

func collectResponses(rows pgx.Rows) ([]*QuestionnaireResponse, error) {
	var items []*QuestionnaireResponse
	for rows.Next() {
		qr, err := scanResponse(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, qr)
	}
	return items, rows.Err()
}
