package simulate

import (
	"fmt"
	"math/rand/v2"
	"sort"

	"github.com/google/uuid"

	scoring "github.com/Aimisnotavailable/DEPEDHRMPSB/internal/domain/scoring"
)

// Qualification ranges for generated candidates.
const (
	maxEducation  = 30
	maxTraining   = 60
	maxExperience = 48
	seedMix       = 0x9e3779b97f4a7c15
)

// Plan is everything a run submits, generated up front from one seed.
type Plan struct {
	RoundID    string             `json:"round_id"`
	Seed       uint64             `json:"seed"`
	Evaluators []string           `json:"evaluators"`
	Candidates []PlannedCandidate `json:"candidates"`
}

// PlannedCandidate is one generated applicant with every score it will receive.
type PlannedCandidate struct {
	Code          string                   `json:"code"`
	Name          string                   `json:"name"`
	Qualification scoring.RawQualification `json:"qualification"`
	Applicant     map[string]float64       `json:"applicant,omitempty"`
	// Evaluations maps evaluator id to category to criterion score.
	Evaluations map[string]map[string]map[string]float64 `json:"evaluations"`
}

// Submissions returns the number of evaluations the plan submits.
func (p Plan) Submissions() int {
	return len(p.Candidates) * len(p.Evaluators)
}

// newPlan generates candidates and scores that are valid under spec.
func newPlan(roundID string, spec scoring.RubricSpec, candidates, evaluators int, seed uint64) Plan {
	rng := rand.New(rand.NewPCG(seed, seed^seedMix))

	p := Plan{RoundID: roundID, Seed: seed, Evaluators: make([]string, evaluators)}
	for i := range p.Evaluators {
		p.Evaluators[i] = uuid.NewString()
	}
	sort.Strings(p.Evaluators)

	fields := sortedKeys(spec.Applicant)
	categories := sortedKeys(spec.Evaluation)

	p.Candidates = make([]PlannedCandidate, candidates)
	for i := range p.Candidates {
		c := PlannedCandidate{
			Code: fmt.Sprintf("C-%04d", i+1),
			Name: fmt.Sprintf("Candidate %d", i+1),
			Qualification: scoring.RawQualification{
				Education:  rng.IntN(maxEducation + 1),
				Training:   rng.IntN(maxTraining + 1),
				Experience: rng.IntN(maxExperience + 1),
			},
			Evaluations: make(map[string]map[string]map[string]float64, evaluators),
		}
		if len(fields) > 0 {
			c.Applicant = make(map[string]float64, len(fields))
			for _, name := range fields {
				c.Applicant[name] = halfStep(rng, spec.Applicant[name].MaxScore)
			}
		}
		for _, evaluator := range p.Evaluators {
			scores := make(map[string]map[string]float64, len(categories))
			for _, cat := range categories {
				criteria := spec.Evaluation[cat].Criteria
				values := make(map[string]float64, len(criteria))
				for _, crit := range sortedKeys(criteria) {
					values[crit] = halfStep(rng, criteria[crit])
				}
				scores[cat] = values
			}
			c.Evaluations[evaluator] = scores
		}
		p.Candidates[i] = c
	}
	return p
}

// halfStep returns a score in (0, limit] on a 0.5 grid, or limit itself
// when limit is below one step.
func halfStep(rng *rand.Rand, limit float64) float64 {
	steps := int(limit * 2)
	if steps < 1 {
		return limit
	}
	return float64(1+rng.IntN(steps)) / 2
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
