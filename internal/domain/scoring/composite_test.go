package scoring_test

import (
	"errors"
	"testing"

	scoring "github.com/Aimisnotavailable/DEPEDHRMPSB/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

func TestScoreBaseline(t *testing.T) {
	Convey("Given the teaching rubric and a baseline of 5/4/5", t, func() {
		r := mustRubric(teachingSpec())
		baseline := scoring.RawQualification{Education: 5, Experience: 4, Training: 5}

		Convey("When a candidate has 17/8/3", func() {
			scores, err := scoring.ScoreBaseline(scoring.RawQualification{Education: 17, Experience: 8, Training: 3}, baseline, r)

			Convey("Then each kind is scored through its brackets", func() {
				So(err, ShouldBeNil)
				So(scores.Education.Delta, ShouldEqual, 12)
				So(scores.Education.Level, ShouldEqual, 25)
				So(scores.Education.Points, ShouldEqual, 10)
				So(scores.Education.Label, ShouldEqual, "Master's degree units")
				So(scores.Experience.Level, ShouldEqual, 10)
				So(scores.Experience.Points, ShouldEqual, 4)
				So(scores.Training.Delta, ShouldEqual, 0)
				So(scores.Training.Points, ShouldEqual, 0)
				So(scores.Total(), ShouldEqual, 14)
			})
		})

		Convey("Then a maxed-out candidate never exceeds the baseline weights", func() {
			scores, err := scoring.ScoreBaseline(scoring.RawQualification{Education: 500, Experience: 500, Training: 500}, baseline, r)
			So(err, ShouldBeNil)
			So(scores.Total(), ShouldEqual, 30)
		})
	})

	Convey("Given a negative raw value", t, func() {
		q := scoring.RawQualification{Education: -1}

		Convey("Then validation rejects it", func() {
			So(errors.Is(q.Validate(), scoring.ErrOutOfRange), ShouldBeTrue)
		})
	})
}

func TestEvaluate(t *testing.T) {
	Convey("Given a candidate with every input entered", t, func() {
		r := mustRubric(teachingSpec())
		in := scoring.Input{
			Qualification: scoring.RawQualification{Education: 17, Experience: 8, Training: 3},
			Baseline:      scoring.RawQualification{Education: 5, Experience: 4, Training: 5},
			Applicant:     map[string]float64{"performance": 4.5, "written_exam": 80},
			Submissions: []scoring.Submission{
				submission("eval-a", 1, [5]float64{1, 1, 1, 0.5, 0.5}, 8, 6),
				submission("eval-b", 1, [5]float64{1, 1, 1, 1, 1}, 10, 8),
			},
		}

		Convey("When the composite is computed", func() {
			c, err := scoring.Evaluate(r, in)

			Convey("Then it is the sum of the three partial scores", func() {
				So(err, ShouldBeNil)
				So(c.BaselineTotal, ShouldEqual, 14)
				So(c.ApplicantTotal, ShouldEqual, 26)
				So(c.EvaluationTotal, ShouldEqual, 32.5)
				So(c.Total, ShouldEqual, 72.5)
				So(c.Provisional, ShouldBeFalse)
				So(c.Total, ShouldBeLessThanOrEqualTo, r.MaxComposite())
			})

			Convey("Then recomputing gives an identical result", func() {
				again, err := scoring.Evaluate(r, in)
				So(err, ShouldBeNil)
				So(again, ShouldResemble, c)
			})
		})

		Convey("When no evaluator has scored yet", func() {
			in.Submissions = nil
			c, err := scoring.Evaluate(r, in)

			Convey("Then the composite is provisional", func() {
				So(err, ShouldBeNil)
				So(c.Provisional, ShouldBeTrue)
				So(c.EvaluationTotal, ShouldEqual, 0)
				So(c.Total, ShouldEqual, 40)
			})
		})

		Convey("When an applicant value is invalid", func() {
			in.Applicant["performance"] = 9
			_, err := scoring.Evaluate(r, in)

			Convey("Then no composite is produced", func() {
				So(errors.Is(err, scoring.ErrOutOfRange), ShouldBeTrue)
			})
		})
	})
}

func TestRank(t *testing.T) {
	Convey("Given composites 70.5, 70.5 and 82.0 in insertion order", t, func() {
		standings := []scoring.Standing{
			{ID: "first", Seq: 1, Score: 70.5},
			{ID: "second", Seq: 2, Score: 70.5},
			{ID: "third", Seq: 3, Score: 82.0},
		}

		Convey("When they are ranked", func() {
			ranked := scoring.Rank(standings)

			Convey("Then the highest leads and ties keep insertion order", func() {
				So(len(ranked), ShouldEqual, 3)
				So(ranked[0].ID, ShouldEqual, "third")
				So(ranked[1].ID, ShouldEqual, "first")
				So(ranked[2].ID, ShouldEqual, "second")
				for i, r := range ranked {
					So(r.Rank, ShouldEqual, i+1)
				}
			})

			Convey("Then the input is left untouched", func() {
				So(standings[0].ID, ShouldEqual, "first")
			})
		})

		Convey("When the input order is shuffled", func() {
			shuffled := []scoring.Standing{standings[2], standings[1], standings[0]}

			Convey("Then the ranking is the same", func() {
				So(scoring.Rank(shuffled), ShouldResemble, scoring.Rank(standings))
			})
		})
	})

	Convey("Given no standings", t, func() {
		Convey("Then the ranking is empty", func() {
			So(scoring.Rank(nil), ShouldBeEmpty)
		})
	})
}
