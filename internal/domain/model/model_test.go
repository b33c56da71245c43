package model_test

import (
	"errors"
	"testing"
	"time"

	model "github.com/Aimisnotavailable/DEPEDHRMPSB/internal/domain/model"
	scoring "github.com/Aimisnotavailable/DEPEDHRMPSB/internal/domain/scoring"
	"github.com/smartystreets/goconvey/convey"
)

func testRubric() *scoring.Rubric {
	table := map[string]scoring.BracketEntry{"0": {Max: 0}, "5": {Max: 2}, "25": {Max: 10}}
	r, err := scoring.NewRubric(scoring.RubricSpec{
		Key: "teaching",
		Increments: map[scoring.Kind]map[string]scoring.BracketEntry{
			scoring.Education: table, scoring.Experience: table, scoring.Training: table,
		},
		Applicant: map[string]scoring.ApplicantFieldSpec{"written_exam": {Weight: 10, MaxScore: 100}},
		Evaluation: map[string]scoring.CategorySpec{
			"Interview": {Criteria: map[string]float64{"communication": 5}, Total: 5, Weight: 10},
		},
	})
	if err != nil {
		panic(err)
	}
	return r
}

func TestNewRound(t *testing.T) {
	convey.Convey("Given valid round parameters", t, func() {
		now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.FixedZone("PHT", 8*3600))
		params := model.NewRoundParams{
			ID:            "2026-T1-001",
			RubricKey:     "teaching",
			PositionTitle: "  Teacher I ",
			SalaryGrade:   11,
			Baseline:      scoring.RawQualification{Education: 5, Experience: 4, Training: 5},
		}

		convey.Convey("When the round is built", func() {
			round, err := model.NewRound(params, testRubric(), now)

			convey.Convey("Then it is open and carries the rubric", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(round.Closed, convey.ShouldBeFalse)
				convey.So(round.PositionTitle, convey.ShouldEqual, "Teacher I")
				convey.So(round.RubricKey, convey.ShouldEqual, "teaching")
				convey.So(round.Rubric.Step, convey.ShouldEqual, scoring.DefaultBracketStep)
				convey.So(round.CreatedAt.Location(), convey.ShouldEqual, time.UTC)
			})

			convey.Convey("Then the stored rubric rebuilds", func() {
				r, err := round.RubricFor()
				convey.So(err, convey.ShouldBeNil)
				convey.So(r.Weight(scoring.Training), convey.ShouldEqual, scoring.DefaultBaselineWeight)
			})
		})

		convey.Convey("When the id has illegal characters", func() {
			params.ID = "round/1"
			_, err := model.NewRound(params, testRubric(), now)

			convey.Convey("Then the input is rejected", func() {
				convey.So(errors.Is(err, model.ErrInvalidInput), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "id")
			})
		})

		convey.Convey("When the baseline is negative", func() {
			params.Baseline.Experience = -2
			_, err := model.NewRound(params, testRubric(), now)

			convey.Convey("Then the input is rejected", func() {
				convey.So(errors.Is(err, model.ErrInvalidInput), convey.ShouldBeTrue)
			})
		})
	})
}

func TestNewCandidate(t *testing.T) {
	convey.Convey("Given candidate parameters", t, func() {
		now := time.Now()
		params := model.NewCandidateParams{
			Code:          "APP-0001",
			Name:          "Juan dela Cruz",
			Qualification: scoring.RawQualification{Education: 17, Experience: 8, Training: 3},
		}

		convey.Convey("When they are valid", func() {
			c, err := model.NewCandidate("r1", params, now)

			convey.Convey("Then the candidate belongs to the round", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(c.RoundID, convey.ShouldEqual, "r1")
				convey.So(c.Seq, convey.ShouldEqual, 0)
			})
		})

		convey.Convey("When the name is blank", func() {
			params.Name = "   "
			_, err := model.NewCandidate("r1", params, now)

			convey.Convey("Then the input is rejected", func() {
				convey.So(errors.Is(err, model.ErrInvalidInput), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "name")
			})
		})

		convey.Convey("When a qualification value is negative", func() {
			params.Qualification.Experience = -2
			_, err := model.NewCandidate("r1", params, now)

			convey.Convey("Then it is invalid input carrying the out-of-range value", func() {
				convey.So(errors.Is(err, model.ErrInvalidInput), convey.ShouldBeTrue)
				convey.So(errors.Is(err, scoring.ErrOutOfRange), convey.ShouldBeTrue)
				var oor *scoring.OutOfRangeError
				convey.So(errors.As(err, &oor), convey.ShouldBeTrue)
				convey.So(oor.Field, convey.ShouldEqual, "experience")
			})
		})
	})
}

func TestRoundInput(t *testing.T) {
	convey.Convey("Given a round, a candidate and a stored submission", t, func() {
		round := model.Round{ID: "r1", Baseline: scoring.RawQualification{Education: 5}}
		c := model.Candidate{Code: "c1", Qualification: scoring.RawQualification{Education: 9}, Applicant: map[string]float64{"written_exam": 50}}
		subs := []model.Submission{{RoundID: "r1", CandidateCode: "c1", Submission: scoring.Submission{EvaluatorID: "e1", Revision: 2}}}

		convey.Convey("When the scoring input is assembled", func() {
			in := round.Input(c, subs)

			convey.Convey("Then every part is carried over", func() {
				convey.So(in.Baseline.Education, convey.ShouldEqual, 5)
				convey.So(in.Qualification.Education, convey.ShouldEqual, 9)
				convey.So(in.Applicant["written_exam"], convey.ShouldEqual, 50)
				convey.So(len(in.Submissions), convey.ShouldEqual, 1)
				convey.So(in.Submissions[0].Revision, convey.ShouldEqual, 2)
			})
		})
	})
}

func TestRoundClosedError(t *testing.T) {
	convey.Convey("Given a closed-round error", t, func() {
		err := error(&model.RoundClosedError{RoundID: "r1", Op: "submit evaluation"})

		convey.Convey("Then it matches the sentinel and names the operation", func() {
			convey.So(errors.Is(err, model.ErrRoundClosed), convey.ShouldBeTrue)
			convey.So(err.Error(), convey.ShouldContainSubstring, "submit evaluation")
		})
	})
}
