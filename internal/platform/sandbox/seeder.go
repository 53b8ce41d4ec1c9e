// Package sandbox generates reproducible synthetic trial data for demo and
// development environments: studies, enrolled participants, and completed
// questionnaire responses shaped like real capture output.
package sandbox

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ctms/ctms/internal/domain/trial"
)

// SeedConfig controls the volume of generated data. The Seed field makes a
// run reproducible; zero means derive one from the clock.
type SeedConfig struct {
	StudyCount              int   `json:"studyCount"`
	ParticipantsPerStudy    int   `json:"participantsPerStudy"`
	ResponsesPerParticipant int   `json:"responsesPerParticipant"`
	Seed                    int64 `json:"seed"`
}

func DefaultSeedConfig() SeedConfig {
	return SeedConfig{
		StudyCount:              2,
		ParticipantsPerStudy:    20,
		ResponsesPerParticipant: 3,
	}
}

// SeedSummary reports what one seeding run created.
type SeedSummary struct {
	Studies      int   `json:"studies"`
	Participants int   `json:"participants"`
	Responses    int   `json:"responses"`
	Seed         int64 `json:"seed"`
}

// Store is the write surface the seeder needs. *trial.Service satisfies it.
type Store interface {
	CreateStudy(ctx context.Context, st *trial.Study) error
	CreateParticipant(ctx context.Context, p *trial.Participant) error
	CreateResponse(ctx context.Context, qr *trial.QuestionnaireResponse) error
}

type Seeder struct {
	store  Store
	logger zerolog.Logger
}

func NewSeeder(store Store, logger zerolog.Logger) *Seeder {
	return &Seeder{store: store, logger: logger}
}

var (
	firstNames = []string{"Ana", "Ben", "Carla", "Dmitri", "Elena", "Farid", "Grace", "Hugo", "Iris", "Jonas"}
	lastNames  = []string{"Alvarez", "Brandt", "Chen", "Dube", "Eriksen", "Fontaine", "Garcia", "Hansen", "Ito", "Jansen"}
	genders    = []string{"female", "male", "other"}
	arms       = []string{"treatment", "placebo"}
	countries  = []string{"USA", "DEU", "JPN", "BRA"}
	phases     = []string{"Phase 1", "Phase 2", "Phase 3"}
	moods      = []string{"good", "fair", "poor"}
	symptoms   = []string{"headache", "nausea", "fatigue", "dizziness", "insomnia"}
)

// Seed creates the configured volume of synthetic data. Partial failures
// abort the run; everything created before the failure stays.
func (s *Seeder) Seed(ctx context.Context, cfg SeedConfig) (*SeedSummary, error) {
	if cfg.StudyCount <= 0 {
		cfg = DefaultSeedConfig()
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(cfg.Seed))

	summary := &SeedSummary{Seed: cfg.Seed}
	for i := 0; i < cfg.StudyCount; i++ {
		study, err := s.seedStudy(ctx, rng, i)
		if err != nil {
			return nil, fmt.Errorf("seed study %d: %w", i, err)
		}
		summary.Studies++

		for j := 0; j < cfg.ParticipantsPerStudy; j++ {
			p, err := s.seedParticipant(ctx, rng, study, j)
			if err != nil {
				return nil, fmt.Errorf("seed participant %d of study %s: %w", j, study.Protocol, err)
			}
			summary.Participants++

			for k := 0; k < cfg.ResponsesPerParticipant; k++ {
				if err := s.seedResponse(ctx, rng, p, k); err != nil {
					return nil, fmt.Errorf("seed response %d of participant %s: %w", k, p.SubjectID, err)
				}
				summary.Responses++
			}
		}
	}

	s.logger.Info().
		Int("studies", summary.Studies).
		Int("participants", summary.Participants).
		Int("responses", summary.Responses).
		Int64("seed", summary.Seed).
		Msg("sandbox data seeded")
	return summary, nil
}

func (s *Seeder) seedStudy(ctx context.Context, rng *rand.Rand, i int) (*trial.Study, error) {
	phase := phases[rng.Intn(len(phases))]
	sponsor := "Sandbox Research Group"
	start := time.Now().UTC().AddDate(0, -rng.Intn(18)-1, 0)
	st := &trial.Study{
		Protocol:  fmt.Sprintf("SBX-%03d", i+1),
		Name:      fmt.Sprintf("Sandbox Study %d", i+1),
		Phase:     &phase,
		Status:    "active",
		Sponsor:   &sponsor,
		StartDate: &start,
	}
	if err := s.store.CreateStudy(ctx, st); err != nil {
		return nil, err
	}
	return st, nil
}

func (s *Seeder) seedParticipant(ctx context.Context, rng *rand.Rand, study *trial.Study, j int) (*trial.Participant, error) {
	gender := genders[rng.Intn(len(genders))]
	arm := arms[rng.Intn(len(arms))]
	country := countries[rng.Intn(len(countries))]
	dob := time.Date(1950+rng.Intn(55), time.Month(1+rng.Intn(12)), 1+rng.Intn(28), 0, 0, 0, 0, time.UTC)
	enrolled := time.Now().UTC().AddDate(0, 0, -rng.Intn(365))
	first := firstNames[rng.Intn(len(firstNames))]
	last := lastNames[rng.Intn(len(lastNames))]

	p := &trial.Participant{
		StudyID:        study.ID,
		SubjectID:      fmt.Sprintf("%03d", j+1),
		FirstName:      first,
		LastName:       last,
		Email:          fmt.Sprintf("%s.%s.%03d@example.org", first, last, j+1),
		DateOfBirth:    &dob,
		Gender:         &gender,
		Arm:            &arm,
		Country:        &country,
		EnrollmentDate: &enrolled,
		Status:         "enrolled",
	}
	if err := s.store.CreateParticipant(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Seeder) seedResponse(ctx context.Context, rng *rand.Rand, p *trial.Participant, k int) error {
	picked := []string{symptoms[rng.Intn(len(symptoms))]}
	if rng.Intn(2) == 0 {
		picked = append(picked, symptoms[rng.Intn(len(symptoms))])
	}
	submitted := time.Now().UTC().AddDate(0, 0, -rng.Intn(90))

	qr := &trial.QuestionnaireResponse{
		ParticipantID:   p.ID,
		QuestionnaireID: fmt.Sprintf("daily-diary-%d", k+1),
		Title:           "Daily Diary",
		Status:          "completed",
		SubmittedAt:     &submitted,
		Answers: trial.Answers{
			{Key: "pain_level", Value: trial.AnswerValue{Kind: trial.AnswerNumber, Number: float64(rng.Intn(11))}},
			{Key: "mood", Value: trial.AnswerValue{Kind: trial.AnswerString, String: moods[rng.Intn(len(moods))]}},
			{Key: "symptoms", Value: trial.AnswerValue{Kind: trial.AnswerMultiSelect, Multi: picked}},
		},
	}
	return s.store.CreateResponse(ctx, qr)
}

// Handler exposes seeding over HTTP. Registered in development only.
type Handler struct {
	seeder *Seeder
}

func NewHandler(seeder *Seeder) *Handler {
	return &Handler{seeder: seeder}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/sandbox/seed", h.RunSeed)
}

func (h *Handler) RunSeed(c echo.Context) error {
	var cfg SeedConfig
	if err := c.Bind(&cfg); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	summary, err := h.seeder.Seed(c.Request().Context(), cfg)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, summary)
}
