package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	service "github.com/Aimisnotavailable/DEPEDHRMPSB/internal/app"
	model "github.com/Aimisnotavailable/DEPEDHRMPSB/internal/domain/model"
	scoring "github.com/Aimisnotavailable/DEPEDHRMPSB/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a new service", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		Convey("When it is used before Start", func() {
			svc := newService(t, "")
			_, err := svc.GetRound(ctx, "x")

			Convey("Then operations report it is not started", func() {
				So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			})
		})

		Convey("When it has no rubric set", func() {
			svc := service.New(service.WithDBPath(t.TempDir() + "/psb.db"))
			err := svc.Start(ctx)

			Convey("Then Start fails with a config error", func() {
				So(errors.Is(err, scoring.ErrConfig), ShouldBeTrue)
			})
		})

		Convey("When started and stopped twice", func() {
			svc := newService(t, "")
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.Start(ctx), ShouldBeNil)
			svc.Stop()
			svc.Stop()

			Convey("Then it refuses work afterwards", func() {
				_, err := svc.GetStats(ctx)
				So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			})
		})
	})
}

func TestService_Scoring(t *testing.T) {
	Convey("Given a started service with a seeded round", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		svc := newService(t, "")
		So(svc.Start(ctx), ShouldBeNil)
		Reset(svc.Stop)
		round := seedRound(ctx, svc)

		Convey("When reading a rating sheet", func() {
			sheet, err := svc.Sheet(ctx, round.ID, "A")
			So(err, ShouldBeNil)

			Convey("Then it shows every partial score", func() {
				c := sheet.Composite
				So(c.Baseline.Education.Delta, ShouldEqual, 25)
				So(c.Baseline.Education.Points, ShouldEqual, 10)
				So(c.Baseline.Education.Label, ShouldEqual, "Master's degree")
				So(c.Baseline.Experience.Points, ShouldEqual, 10)
				So(c.Baseline.Training.Points, ShouldEqual, 0)
				So(c.BaselineTotal, ShouldEqual, 20)
				So(c.ApplicantTotal, ShouldEqual, 16)
				So(c.Evaluation.Raters, ShouldEqual, 2)
				So(c.EvaluationTotal, ShouldEqual, 47.5)
				So(c.Total, ShouldEqual, 83.5)
				So(c.Provisional, ShouldBeFalse)
				So(sheet.Submissions, ShouldHaveLength, 2)
			})
		})

		Convey("When a candidate has not been interviewed", func() {
			sheet, err := svc.Sheet(ctx, round.ID, "C")
			So(err, ShouldBeNil)

			Convey("Then the composite is provisional", func() {
				So(sheet.Composite.Provisional, ShouldBeTrue)
				So(sheet.Composite.Total, ShouldEqual, 10)
				So(sheet.Submissions, ShouldBeEmpty)
			})
		})

		Convey("When computing the ranking", func() {
			ranking, err := svc.Ranking(ctx, round.ID)
			So(err, ShouldBeNil)

			Convey("Then candidates are ordered by total", func() {
				So(ranking.PositionTitle, ShouldEqual, "Administrative Aide I")
				So(ranking.Rows, ShouldHaveLength, 3)
				So(ranking.Rows[0].CandidateCode, ShouldEqual, "A")
				So(ranking.Rows[0].Total, ShouldEqual, 83.5)
				So(ranking.Rows[0].Comments, ShouldResemble, []string{"clear answers"})
				So(ranking.Rows[1].CandidateCode, ShouldEqual, "B")
				So(ranking.Rows[1].Evaluation, ShouldEqual, 50)
				So(ranking.Rows[2].CandidateCode, ShouldEqual, "C")
				So(ranking.Rows[2].Provisional, ShouldBeTrue)
				for i, row := range ranking.Rows {
					So(row.Rank, ShouldEqual, i+1)
				}
			})

			Convey("And computing it again gives the same result", func() {
				again, err := svc.Ranking(ctx, round.ID)
				So(err, ShouldBeNil)
				So(again, ShouldResemble, ranking)
			})
		})

		Convey("When two candidates tie", func() {
			_, err := svc.SubmitEvaluation(ctx, round.ID, "C", interview("e1", 5, 5))
			So(err, ShouldBeNil)
			So(svc.UpdateQualification(ctx, round.ID, "C", scoring.RawQualification{Education: 5}), ShouldBeNil)

			Convey("Then the earlier candidate ranks first", func() {
				ranking, err := svc.Ranking(ctx, round.ID)
				So(err, ShouldBeNil)
				So(ranking.Rows[1].CandidateCode, ShouldEqual, "B")
				So(ranking.Rows[2].CandidateCode, ShouldEqual, "C")
				So(ranking.Rows[1].Total, ShouldEqual, ranking.Rows[2].Total)
			})
		})

		Convey("When an evaluator resubmits", func() {
			sub, err := svc.SubmitEvaluation(ctx, round.ID, "A", interview("e1", 1, 1))
			So(err, ShouldBeNil)

			Convey("Then the latest revision replaces the earlier one", func() {
				So(sub.Revision, ShouldEqual, 2)
				sheet, err := svc.Sheet(ctx, round.ID, "A")
				So(err, ShouldBeNil)
				So(sheet.Composite.Evaluation.Raters, ShouldEqual, 2)
				So(sheet.Composite.EvaluationTotal, ShouldEqual, 30)
			})
		})

		Convey("When the leaderboard cache catches up", func() {
			converged := eventually(func() bool {
				entries, err := svc.Leaderboard(ctx, round.ID, 10)
				return err == nil && len(entries) == 3 &&
					entries[0].CandidateCode == "A" && entries[0].Score == 83.5 &&
					entries[1].CandidateCode == "B" && entries[2].CandidateCode == "C"
			})

			Convey("Then it agrees with the ranking", func() {
				So(converged, ShouldBeTrue)
				entry, err := svc.CandidateRank(ctx, round.ID, "B")
				So(err, ShouldBeNil)
				So(entry.Rank, ShouldEqual, 2)
				So(entry.Score, ShouldEqual, 50)
			})
		})

		Convey("When the leaderboard limit is not positive", func() {
			_, err := svc.Leaderboard(ctx, round.ID, 0)

			Convey("Then it is rejected", func() {
				So(err, ShouldNotBeNil)
			})
		})

		Convey("When reading stats", func() {
			stats, err := svc.GetStats(ctx)
			So(err, ShouldBeNil)

			Convey("Then they count the stored rows", func() {
				So(stats.Rounds, ShouldEqual, 1)
				So(stats.OpenRounds, ShouldEqual, 1)
				So(stats.Candidates, ShouldEqual, 3)
				So(stats.Submissions, ShouldEqual, 3)
				So(stats.Workers, ShouldEqual, 2)
				So(stats.QueueCapacity, ShouldEqual, 100)
			})
		})
	})
}

func TestService_ClosedRound(t *testing.T) {
	Convey("Given a closed round", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		svc := newService(t, "")
		So(svc.Start(ctx), ShouldBeNil)
		Reset(svc.Stop)
		round := seedRound(ctx, svc)

		closed, err := svc.CloseRound(ctx, round.ID)
		So(err, ShouldBeNil)
		So(closed.Closed, ShouldBeTrue)
		So(closed.ClosedAt, ShouldNotBeNil)

		Convey("When closing it again", func() {
			again, err := svc.CloseRound(ctx, round.ID)

			Convey("Then it is returned unchanged", func() {
				So(err, ShouldBeNil)
				So(again.ClosedAt.Equal(*closed.ClosedAt), ShouldBeTrue)
			})
		})

		Convey("When any input changes", func() {
			_, addErr := svc.AddCandidate(ctx, round.ID, model.NewCandidateParams{Code: "D", Name: "Dee"})
			qualErr := svc.UpdateQualification(ctx, round.ID, "A", scoring.RawQualification{Education: 1})
			_, appErr := svc.SetApplicantScores(ctx, round.ID, "A", map[string]float64{"written_exam": 10})
			_, subErr := svc.SubmitEvaluation(ctx, round.ID, "C", interview("e1", 5, 5))

			Convey("Then every write is rejected with the round named", func() {
				for _, err := range []error{addErr, qualErr, appErr, subErr} {
					So(errors.Is(err, model.ErrRoundClosed), ShouldBeTrue)
					var rc *model.RoundClosedError
					So(errors.As(err, &rc), ShouldBeTrue)
					So(rc.RoundID, ShouldEqual, round.ID)
				}
			})

			Convey("And the ranking is unchanged", func() {
				ranking, err := svc.Ranking(ctx, round.ID)
				So(err, ShouldBeNil)
				So(ranking.Closed, ShouldBeTrue)
				So(ranking.Rows[0].Total, ShouldEqual, 83.5)
				So(ranking.Rows, ShouldHaveLength, 3)
			})
		})
	})
}

func TestService_Validation(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		svc := newService(t, "")
		So(svc.Start(ctx), ShouldBeNil)
		Reset(svc.Stop)

		Convey("When creating a round with an unknown rubric", func() {
			_, err := svc.CreateRound(ctx, model.NewRoundRequest{NewRoundParams: model.NewRoundParams{
				RubricKey: "nurse", PositionTitle: "Nurse I",
			}})

			Convey("Then it is a config error", func() {
				So(errors.Is(err, scoring.ErrConfig), ShouldBeTrue)
			})
		})

		Convey("When creating a round without an id", func() {
			round, err := svc.CreateRound(ctx, model.NewRoundRequest{NewRoundParams: model.NewRoundParams{
				RubricKey: "clerk", PositionTitle: "Clerk",
			}})

			Convey("Then one is generated", func() {
				So(err, ShouldBeNil)
				So(round.ID, ShouldNotBeEmpty)
				So(round.Rubric.Key, ShouldEqual, "clerk")
			})
		})

		Convey("When creating a round with an invalid inline rubric", func() {
			_, err := svc.CreateRound(ctx, model.NewRoundRequest{
				NewRoundParams: model.NewRoundParams{PositionTitle: "Clerk"},
				Rubric:         &scoring.RubricSpec{Key: "broken"},
			})

			Convey("Then the rubric is rejected", func() {
				So(errors.Is(err, scoring.ErrInvalidRubric), ShouldBeTrue)
			})
		})

		Convey("When reading an unknown round", func() {
			_, err := svc.Ranking(ctx, "missing")

			Convey("Then it is not found", func() {
				So(errors.Is(err, model.ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("With a seeded round", func() {
			round := seedRound(ctx, svc)

			Convey("When one applicant value is out of range", func() {
				_, err := svc.SetApplicantScores(ctx, round.ID, "B", map[string]float64{"written_exam": 120})

				Convey("Then nothing is stored", func() {
					So(errors.Is(err, scoring.ErrOutOfRange), ShouldBeTrue)
					sheet, err := svc.Sheet(ctx, round.ID, "B")
					So(err, ShouldBeNil)
					So(sheet.Composite.ApplicantTotal, ShouldEqual, 0)
				})
			})

			Convey("When an applicant field is unknown", func() {
				_, err := svc.SetApplicantScores(ctx, round.ID, "B", map[string]float64{"essay": 1})

				Convey("Then it is rejected", func() {
					So(errors.Is(err, scoring.ErrUnknownField), ShouldBeTrue)
				})
			})

			Convey("When a criterion is left at zero", func() {
				_, err := svc.SubmitEvaluation(ctx, round.ID, "C", interview("e3", 0, 5))

				Convey("Then the submission is rejected", func() {
					So(errors.Is(err, scoring.ErrOutOfRange), ShouldBeTrue)
				})
			})

			Convey("When a qualification is negative", func() {
				err := svc.UpdateQualification(ctx, round.ID, "B", scoring.RawQualification{Training: -1})

				Convey("Then it is rejected", func() {
					So(errors.Is(err, scoring.ErrOutOfRange), ShouldBeTrue)
				})
			})

			Convey("When a new candidate has a negative qualification", func() {
				_, err := svc.AddCandidate(ctx, round.ID, model.NewCandidateParams{
					Code: "N", Name: "Neg", Qualification: scoring.RawQualification{Training: -1},
				})

				Convey("Then it is rejected with the same out-of-range kind", func() {
					So(errors.Is(err, scoring.ErrOutOfRange), ShouldBeTrue)
				})
			})

			Convey("When a candidate code is reused", func() {
				_, err := svc.AddCandidate(ctx, round.ID, model.NewCandidateParams{Code: "A", Name: "Again"})

				Convey("Then it conflicts", func() {
					So(errors.Is(err, model.ErrConflict), ShouldBeTrue)
				})
			})

			Convey("When replacing the rubric after candidates exist", func() {
				_, err := svc.ReplaceRubric(ctx, round.ID, "clerk", nil)

				Convey("Then the rubric is locked", func() {
					So(errors.Is(err, model.ErrRubricLocked), ShouldBeTrue)
				})
			})
		})

		Convey("When replacing the rubric of an empty round", func() {
			round, err := svc.CreateRound(ctx, model.NewRoundRequest{NewRoundParams: model.NewRoundParams{
				ID: "empty", RubricKey: "clerk", PositionTitle: "Clerk",
			}})
			So(err, ShouldBeNil)

			spec := round.Rubric
			spec.Key = "clerk-2"
			spec.Label = "Clerk, revised"
			updated, err := svc.ReplaceRubric(ctx, round.ID, "", &spec)

			Convey("Then the new rubric is stored", func() {
				So(err, ShouldBeNil)
				So(updated.RubricKey, ShouldEqual, "clerk-2")
				So(updated.Rubric.Label, ShouldEqual, "Clerk, revised")
			})
		})
	})
}

func TestService_WarmStart(t *testing.T) {
	Convey("Given a database written by an earlier run", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		dbPath := t.TempDir() + "/psb.db"
		first := newService(t, dbPath)
		So(first.Start(ctx), ShouldBeNil)
		round := seedRound(ctx, first)
		first.Stop()

		Convey("When a new service starts on it", func() {
			svc := newService(t, dbPath)
			So(svc.Start(ctx), ShouldBeNil)
			Reset(svc.Stop)

			Convey("Then the leaderboard is filled before any write", func() {
				entries, err := svc.Leaderboard(ctx, round.ID, 10)
				So(err, ShouldBeNil)
				So(entries, ShouldHaveLength, 3)
				So(entries[0].CandidateCode, ShouldEqual, "A")
				So(entries[0].Score, ShouldEqual, 83.5)
				So(entries[2].Provisional, ShouldBeTrue)
			})
		})
	})
}

func TestService_RestartWithStricterWeightCheck(t *testing.T) {
	Convey("Given a round stored while the weight total check was off", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		catalog, err := scoring.ParseCatalog([]byte(clerkCatalog))
		So(err, ShouldBeNil)
		spec := catalog.Rubrics[0]
		category := spec.Evaluation["Interview"]
		category.Weight = 40
		spec.Evaluation["Interview"] = category

		dbPath := t.TempDir() + "/psb.db"
		lenient := newService(t, dbPath, service.WithRubricOptions(scoring.WithWeightTotalCheck(false)))
		So(lenient.Start(ctx), ShouldBeNil)
		round, err := lenient.CreateRound(ctx, model.NewRoundRequest{
			NewRoundParams: model.NewRoundParams{ID: "r90", PositionTitle: "Clerk"},
			Rubric:         &spec,
		})
		So(err, ShouldBeNil)
		_, err = lenient.AddCandidate(ctx, round.ID, model.NewCandidateParams{Code: "A", Name: "Ana"})
		So(err, ShouldBeNil)
		_, err = lenient.SubmitEvaluation(ctx, round.ID, "A", interview("e1", 5, 5))
		So(err, ShouldBeNil)
		lenient.Stop()

		Convey("When the service restarts with the check on", func() {
			svc := newService(t, dbPath)
			So(svc.Start(ctx), ShouldBeNil)
			Reset(svc.Stop)

			Convey("Then the stored round still scores", func() {
				sheet, err := svc.Sheet(ctx, round.ID, "A")
				So(err, ShouldBeNil)
				So(sheet.Composite.Total, ShouldEqual, 40)

				ranking, err := svc.Ranking(ctx, round.ID)
				So(err, ShouldBeNil)
				So(ranking.Rows, ShouldHaveLength, 1)
			})

			Convey("And new rounds are still checked", func() {
				_, err := svc.CreateRound(ctx, model.NewRoundRequest{
					NewRoundParams: model.NewRoundParams{PositionTitle: "Clerk"},
					Rubric:         &spec,
				})
				So(errors.Is(err, scoring.ErrInvalidRubric), ShouldBeTrue)
			})
		})
	})
}
