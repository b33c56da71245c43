package scoring_test

import (
	"errors"
	"testing"

	scoring "github.com/Aimisnotavailable/DEPEDHRMPSB/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

func TestAggregate(t *testing.T) {
	Convey("Given the teaching evaluation structure", t, func() {
		structure := mustRubric(teachingSpec()).Evaluation()
		a := submission("eval-a", 1, [5]float64{1, 1, 1, 0.5, 0.5}, 8, 6)
		b := submission("eval-b", 1, [5]float64{1, 1, 1, 1, 1}, 10, 8)

		Convey("When two evaluators give raw totals 4 and 5 on a category worth 5 of 5", func() {
			eval, err := scoring.Aggregate([]scoring.Submission{a, b}, structure)

			Convey("Then the category score is 4.50", func() {
				So(err, ShouldBeNil)
				So(eval.Graded, ShouldBeTrue)
				So(eval.Raters, ShouldEqual, 2)
				So(eval.Categories[0].Name, ShouldEqual, "Behavior Interview")
				So(eval.Categories[0].RawMean, ShouldEqual, 4.5)
				So(eval.Categories[0].Score, ShouldEqual, 4.50)
			})

			Convey("Then the other category uses the mean of sums", func() {
				So(eval.Categories[1].RawMean, ShouldEqual, 16)
				So(eval.Categories[1].Score, ShouldEqual, 28)
				So(eval.Subtotal, ShouldEqual, 32.5)
			})
		})

		Convey("When the submissions arrive in a different order", func() {
			first, err := scoring.Aggregate([]scoring.Submission{a, b}, structure)
			So(err, ShouldBeNil)
			second, err := scoring.Aggregate([]scoring.Submission{b, a}, structure)
			So(err, ShouldBeNil)

			Convey("Then the result is identical", func() {
				So(second, ShouldResemble, first)
			})
		})

		Convey("When an evaluator resubmits", func() {
			revised := submission("eval-a", 2, [5]float64{1, 1, 1, 1, 1}, 10, 8)
			eval, err := scoring.Aggregate([]scoring.Submission{revised, a, b}, structure)

			Convey("Then only the latest revision counts", func() {
				So(err, ShouldBeNil)
				So(eval.Raters, ShouldEqual, 2)
				So(eval.Categories[0].Score, ShouldEqual, 5)
				So(eval.Categories[1].Score, ShouldEqual, 31.5)
			})
		})

		Convey("When one evaluator has two submissions with the same revision", func() {
			twin := submission("eval-a", 1, [5]float64{1, 1, 1, 1, 1}, 10, 8)
			first, err := scoring.Aggregate([]scoring.Submission{a, twin, b}, structure)
			So(err, ShouldBeNil)
			second, err := scoring.Aggregate([]scoring.Submission{b, twin, a}, structure)
			So(err, ShouldBeNil)

			Convey("Then the same one is chosen whatever the order", func() {
				So(first.Raters, ShouldEqual, 2)
				So(second, ShouldResemble, first)
			})
		})

		Convey("When nobody has submitted", func() {
			eval, err := scoring.Aggregate(nil, structure)

			Convey("Then the evaluation is ungraded, not zero", func() {
				So(err, ShouldBeNil)
				So(eval.Graded, ShouldBeFalse)
				_, terr := eval.Total()
				So(errors.Is(terr, scoring.ErrUngraded), ShouldBeTrue)
			})
		})

		Convey("When a criterion is zero or above its max", func() {
			zero := submission("eval-c", 1, [5]float64{0, 1, 1, 1, 1}, 10, 8)
			high := submission("eval-d", 1, [5]float64{1, 1, 1, 1, 1}, 11, 8)

			Convey("Then the submission is rejected", func() {
				err := scoring.ValidateSubmission(zero, structure)
				So(errors.Is(err, scoring.ErrOutOfRange), ShouldBeTrue)
				var oor *scoring.OutOfRangeError
				So(errors.As(err, &oor), ShouldBeTrue)
				So(oor.Field, ShouldEqual, "Behavior Interview.aptitude")
				So(oor.MinExclusive, ShouldBeTrue)

				_, err = scoring.Aggregate([]scoring.Submission{a, high}, structure)
				So(errors.Is(err, scoring.ErrOutOfRange), ShouldBeTrue)
			})
		})

		Convey("When a submission names an undeclared category", func() {
			bad := submission("eval-e", 1, [5]float64{1, 1, 1, 1, 1}, 10, 8)
			bad.Scores["Demo Teaching"] = map[string]float64{"delivery": 3}

			Convey("Then it is an unknown field", func() {
				err := scoring.ValidateSubmission(bad, structure)
				So(errors.Is(err, scoring.ErrUnknownField), ShouldBeTrue)
			})
		})

		Convey("When a submission has no evaluator id", func() {
			anon := submission("", 1, [5]float64{1, 1, 1, 1, 1}, 10, 8)

			Convey("Then it is rejected", func() {
				So(scoring.ValidateSubmission(anon, structure), ShouldNotBeNil)
			})
		})
	})
}
