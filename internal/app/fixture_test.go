package service_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	service "github.com/Aimisnotavailable/DEPEDHRMPSB/internal/app"
	model "github.com/Aimisnotavailable/DEPEDHRMPSB/internal/domain/model"
	scoring "github.com/Aimisnotavailable/DEPEDHRMPSB/internal/domain/scoring"
	"github.com/Aimisnotavailable/DEPEDHRMPSB/pkg/logger"
)

func init() {
	// Initialize logging for tests
	if err := logger.Init(logger.WithLevel("error")); err != nil {
		panic(err)
	}
}

// clerkCatalog weights: baseline 30, applicant 20, evaluation 50.
const clerkCatalog = `
rubrics:
  - key: clerk
    label: Administrative Aide
    increments:
      education:  {"0": {MAX: 0}, "5": {MAX: 1}, "25": {MAX: 4}}
      experience: {"0": {MAX: 0}, "5": {MAX: 1}, "25": {MAX: 4}}
      training:   {"0": {MAX: 0}, "5": {MAX: 1}, "25": {MAX: 4}}
    labels:
      education: {"30": "Master's degree"}
    applicant:
      written_exam: {LABEL: Written Examination, WEIGHT: 20, MAX_SCORE: 100}
    evaluation:
      Interview:
        criteria: {communication: 5, judgment: 5}
        TOTAL: 10
        WEIGHT: 50
`

func rubricSet() *scoring.RubricSet {
	set, err := scoring.LoadRubricSet([]byte(clerkCatalog), scoring.WithWeightTotalCheck(true))
	if err != nil {
		panic(err)
	}
	return set
}

func newService(t *testing.T, dbPath string, opts ...service.Option) *service.Service {
	if dbPath == "" {
		dbPath = filepath.Join(t.TempDir(), "psb.db")
	}
	base := []service.Option{
		service.WithDBPath(dbPath),
		service.WithRubricSet(rubricSet()),
		service.WithRubricOptions(scoring.WithWeightTotalCheck(true)),
		service.WithWorkerCount(2),
		service.WithQueueSize(100),
	}
	return service.New(append(base, opts...)...)
}

func interview(evaluator string, communication, judgment float64) scoring.Submission {
	return scoring.Submission{
		EvaluatorID: evaluator,
		Scores: map[string]map[string]float64{
			"Interview": {"communication": communication, "judgment": judgment},
		},
	}
}

// seedRound creates a round with baseline education 5 and three candidates:
//
//	A: baseline 20, written exam 16, interview 47.5 -> 83.5
//	B: baseline 0, interview 50 -> 50
//	C: baseline 10, not interviewed -> 10, provisional
func seedRound(ctx context.Context, svc *service.Service) model.Round {
	round, err := svc.CreateRound(ctx, model.NewRoundRequest{NewRoundParams: model.NewRoundParams{
		ID:            "aa-2026-01",
		RubricKey:     "clerk",
		PositionTitle: "Administrative Aide I",
		SalaryGrade:   1,
		Baseline:      scoring.RawQualification{Education: 5},
	}})
	must(err)

	for _, p := range []model.NewCandidateParams{
		{Code: "A", Name: "Ana", Qualification: scoring.RawQualification{Education: 30, Experience: 10}},
		{Code: "B", Name: "Ben", Qualification: scoring.RawQualification{Education: 5}},
		{Code: "C", Name: "Cris", Qualification: scoring.RawQualification{Education: 9}},
	} {
		_, err := svc.AddCandidate(ctx, round.ID, p)
		must(err)
	}

	_, err = svc.SetApplicantScores(ctx, round.ID, "A", map[string]float64{"written_exam": 80})
	must(err)

	a1 := interview("e1", 4, 5)
	a1.Comment = "clear answers"
	_, err = svc.SubmitEvaluation(ctx, round.ID, "A", a1)
	must(err)
	_, err = svc.SubmitEvaluation(ctx, round.ID, "A", interview("e2", 5, 5))
	must(err)
	_, err = svc.SubmitEvaluation(ctx, round.ID, "B", interview("e1", 5, 5))
	must(err)
	return round
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

// eventually polls cond until it holds or two seconds have passed.
func eventually(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}
