package scoring_test

import (
	scoring "github.com/Aimisnotavailable/DEPEDHRMPSB/internal/domain/scoring"
)

func fifthsTable() map[string]scoring.BracketEntry {
	return map[string]scoring.BracketEntry{
		"0":  {Max: 0},
		"5":  {Max: 2},
		"10": {Max: 4},
		"15": {Max: 6},
		"20": {Max: 8},
		"25": {Max: 10},
	}
}

// teachingSpec declares weights summing to 100:
// baseline 30, applicant 30, evaluation 40.
func teachingSpec() scoring.RubricSpec {
	return scoring.RubricSpec{
		Key:   "teaching",
		Label: "Teacher I",
		Step:  5,
		Weights: map[scoring.Kind]int{
			scoring.Education:  10,
			scoring.Experience: 10,
			scoring.Training:   10,
		},
		Increments: map[scoring.Kind]map[string]scoring.BracketEntry{
			scoring.Education:  fifthsTable(),
			scoring.Experience: fifthsTable(),
			scoring.Training:   fifthsTable(),
		},
		Labels: map[scoring.Kind]map[string]string{
			scoring.Education: {"17": "Master's degree units"},
		},
		Applicant: map[string]scoring.ApplicantFieldSpec{
			"performance":  {Label: "Performance Rating", Weight: 20, MaxScore: 5},
			"written_exam": {Label: "Written Examination", Weight: 10, MaxScore: 100},
		},
		Evaluation: map[string]scoring.CategorySpec{
			"Behavior Interview": {
				Criteria: map[string]float64{
					"aptitude": 1, "character": 1, "communication": 1, "fitness": 1, "leadership": 1,
				},
				Total:  5,
				Weight: 5,
			},
			"Classroom Observation": {
				Criteria: map[string]float64{"delivery": 10, "management": 10},
				Total:    20,
				Weight:   35,
			},
		},
	}
}

func mustRubric(spec scoring.RubricSpec, opts ...scoring.RubricOption) *scoring.Rubric {
	r, err := scoring.NewRubric(spec, opts...)
	if err != nil {
		panic(err)
	}
	return r
}

// submission with a Behavior Interview raw total of behavior and a
// Classroom Observation of delivery+management.
func submission(evaluator string, revision int, behavior [5]float64, delivery, management float64) scoring.Submission {
	return scoring.Submission{
		EvaluatorID: evaluator,
		Revision:    revision,
		Scores: map[string]map[string]float64{
			"Behavior Interview": {
				"aptitude":      behavior[0],
				"character":     behavior[1],
				"communication": behavior[2],
				"fitness":       behavior[3],
				"leadership":    behavior[4],
			},
			"Classroom Observation": {
				"delivery":   delivery,
				"management": management,
			},
		},
	}
}
