package scoring

import (
	"errors"
	"sort"
)

// Composite is the final score of one candidate with its breakdown.
// Provisional is set while no evaluator has scored the candidate.
type Composite struct {
	Baseline        BaselineScores  `json:"baseline"`
	Applicant       ApplicantScores `json:"applicant"`
	Evaluation      Evaluation      `json:"evaluation"`
	BaselineTotal   float64         `json:"baseline_total"`
	ApplicantTotal  float64         `json:"applicant_total"`
	EvaluationTotal float64         `json:"evaluation_total"`
	Total           float64         `json:"total"`
	Provisional     bool            `json:"provisional"`
}

// Compose sums the three partial scores. An ungraded evaluation contributes
// nothing and marks the composite provisional.
func Compose(baseline BaselineScores, applicant ApplicantScores, eval Evaluation) Composite {
	c := Composite{
		Baseline:       baseline,
		Applicant:      applicant,
		Evaluation:     eval,
		BaselineTotal:  float64(baseline.Total()),
		ApplicantTotal: applicant.Total(),
	}
	if sub, err := eval.Total(); errors.Is(err, ErrUngraded) {
		c.Provisional = true
	} else {
		c.EvaluationTotal = sub
	}
	c.Total = round2(c.BaselineTotal + c.ApplicantTotal + c.EvaluationTotal)
	return c
}

// Input is everything the engine needs to score one candidate.
type Input struct {
	Qualification RawQualification
	Baseline      RawQualification
	// Applicant holds raw auxiliary values by field name.
	Applicant   map[string]float64
	Submissions []Submission
}

// Evaluate computes the composite of one candidate under r. It is a pure
// function of its inputs: identical inputs give bit-identical results.
func Evaluate(r *Rubric, in Input) (Composite, error) {
	baseline, err := ScoreBaseline(in.Qualification, in.Baseline, r)
	if err != nil {
		return Composite{}, err
	}
	applicant, err := ScoreApplicant(in.Applicant, r)
	if err != nil {
		return Composite{}, err
	}
	eval, err := Aggregate(in.Submissions, r.Evaluation())
	if err != nil {
		return Composite{}, err
	}
	return Compose(baseline, applicant, eval), nil
}

// Standing is one candidate's entry into a ranking. Seq is the candidate's
// insertion order and breaks ties: the earlier candidate ranks higher.
type Standing struct {
	ID          string  `json:"id"`
	Seq         int64   `json:"seq"`
	Score       float64 `json:"score"`
	Provisional bool    `json:"provisional"`
}

// Ranked is a Standing with its 1-based position.
type Ranked struct {
	Standing
	Rank int `json:"rank"`
}

// Rank orders standings by score descending, ties by Seq ascending. The
// input slice is not modified.
func Rank(standings []Standing) []Ranked {
	sorted := make([]Standing, len(standings))
	copy(sorted, standings)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Score != sorted[j].Score {
			return sorted[i].Score > sorted[j].Score
		}
		return sorted[i].Seq < sorted[j].Seq
	})
	out := make([]Ranked, len(sorted))
	for i, s := range sorted {
		out[i] = Ranked{Standing: s, Rank: i + 1}
	}
	return out
}
