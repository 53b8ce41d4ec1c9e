package sandbox

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ctms/ctms/internal/domain/trial"
)

type recordingStore struct {
	studies      []*trial.Study
	participants []*trial.Participant
	responses    []*trial.QuestionnaireResponse
}

func (r *recordingStore) CreateStudy(_ context.Context, st *trial.Study) error {
	st.ID = uuid.New()
	r.studies = append(r.studies, st)
	return nil
}

func (r *recordingStore) CreateParticipant(_ context.Context, p *trial.Participant) error {
	p.ID = uuid.New()
	r.participants = append(r.participants, p)
	return nil
}

func (r *recordingStore) CreateResponse(_ context.Context, qr *trial.QuestionnaireResponse) error {
	qr.ID = uuid.New()
	r.responses = append(r.responses, qr)
	return nil
}

func TestSeeder_Volumes(t *testing.T) {
	store := &recordingStore{}
	s := NewSeeder(store, zerolog.Nop())
	summary, err := s.Seed(nil, SeedConfig{
		StudyCount:              2,
		ParticipantsPerStudy:    3,
		ResponsesPerParticipant: 2,
		Seed:                    42,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Studies != 2 || summary.Participants != 6 || summary.Responses != 12 {
		t.Errorf("summary wrong: %+v", summary)
	}
	if len(store.studies) != 2 || len(store.participants) != 6 || len(store.responses) != 12 {
		t.Errorf("store counts wrong: %d/%d/%d", len(store.studies), len(store.participants), len(store.responses))
	}
}

func TestSeeder_Reproducible(t *testing.T) {
	run := func() *recordingStore {
		store := &recordingStore{}
		s := NewSeeder(store, zerolog.Nop())
		if _, err := s.Seed(nil, SeedConfig{StudyCount: 1, ParticipantsPerStudy: 5, ResponsesPerParticipant: 1, Seed: 7}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		return store
	}
	a, b := run(), run()
	for i := range a.participants {
		if a.participants[i].FirstName != b.participants[i].FirstName ||
			a.participants[i].DateOfBirth.String() != b.participants[i].DateOfBirth.String() {
			t.Fatalf("participant %d differs between identically seeded runs", i)
		}
	}
}

func TestSeeder_ValidRecords(t *testing.T) {
	store := &recordingStore{}
	s := NewSeeder(store, zerolog.Nop())
	if _, err := s.Seed(nil, SeedConfig{StudyCount: 1, ParticipantsPerStudy: 2, ResponsesPerParticipant: 1, Seed: 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	st := store.studies[0]
	if st.Protocol != "SBX-001" || st.Status != "active" {
		t.Errorf("study wrong: %+v", st)
	}
	p := store.participants[0]
	if p.SubjectID != "001" || p.Status != "enrolled" || p.DateOfBirth == nil {
		t.Errorf("participant wrong: %+v", p)
	}
	qr := store.responses[0]
	if len(qr.Answers) != 3 || qr.Answers[0].Key != "pain_level" || qr.Answers[2].Value.Kind != trial.AnswerMultiSelect {
		t.Errorf("response answers wrong: %+v", qr.Answers)
	}
	if qr.SubmittedAt == nil || qr.Status != "completed" {
		t.Errorf("response wrong: %+v", qr)
	}
}
