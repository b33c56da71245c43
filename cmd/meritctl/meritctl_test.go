package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	model "github.com/Aimisnotavailable/DEPEDHRMPSB/internal/domain/model"
)

const clerkCatalog = `
rubrics:
  - key: clerk
    increments:
      education:  {"0": {MAX: 0}, "5": {MAX: 1}, "25": {MAX: 4}}
      experience: {"0": {MAX: 0}, "5": {MAX: 1}, "25": {MAX: 4}}
      training:   {"0": {MAX: 0}, "5": {MAX: 1}, "25": {MAX: 4}}
    applicant:
      written_exam: {WEIGHT: 20, MAX_SCORE: 100}
    evaluation:
      Interview:
        criteria: {communication: 5, judgment: 5}
        TOTAL: 10
        WEIGHT: 50
`

const brokenCatalog = `
rubrics:
  - key: broken
    increments:
      education: {"0": {MAX: 3}, "5": {MAX: 1}}
    applicant: {}
    evaluation:
      Interview: {criteria: {communication: 0}, TOTAL: 10, WEIGHT: 50}
`

const clerkRound = `
round_id: aa-2026-01
position_title: Administrative Aide I
baseline: {education: 5}
candidates:
  - code: A
    name: Ana
    qualification: {education: 30, experience: 10}
    applicant: {written_exam: 80}
    evaluations:
      - evaluator_id: e2
        scores: {Interview: {communication: 5, judgment: 5}}
      - evaluator_id: e1
        scores: {Interview: {communication: 4, judgment: 5}}
        comment: clear answers
  - code: B
    name: Ben
    qualification: {education: 5}
    evaluations:
      - evaluator_id: e1
        scores: {Interview: {communication: 5, judgment: 5}}
  - code: C
    name: Cris
    qualification: {education: 9}
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func execute(args ...string) (string, error) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestValidateCommand(t *testing.T) {
	convey.Convey("Given the validate command", t, func() {
		convey.Convey("When the embedded catalog is checked", func() {
			out, err := execute("validate")

			convey.Convey("Then both rubrics pass", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out, convey.ShouldContainSubstring, "ok   teaching")
				convey.So(out, convey.ShouldContainSubstring, "ok   non-teaching")
			})
		})

		convey.Convey("When a catalog has a broken rubric", func() {
			path := writeFile(t, "broken.yaml", brokenCatalog)
			out, err := execute("validate", "--rubrics", path)

			convey.Convey("Then every violation is listed", func() {
				convey.So(errors.Is(err, ErrInvalidCatalog), convey.ShouldBeTrue)
				convey.So(out, convey.ShouldContainSubstring, "FAIL broken")
				convey.So(out, convey.ShouldContainSubstring, "increments.education")
				convey.So(out, convey.ShouldContainSubstring, "increments.experience: missing bracket table")
				convey.So(out, convey.ShouldContainSubstring, "weights")
			})

			convey.Convey("Then the weight check can be relaxed but structure still fails", func() {
				out, err := execute("validate", "--rubrics", path, "--enforce-weights=false")
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(out, convey.ShouldNotContainSubstring, "weights: declared")
			})
		})
	})
}

func TestScoreCommand(t *testing.T) {
	convey.Convey("Given a clerk catalog and a round file", t, func() {
		rubrics := writeFile(t, "rubrics.yaml", clerkCatalog)
		round := writeFile(t, "round.yaml", clerkRound)

		convey.Convey("When the round is scored", func() {
			out, err := execute("score", "--rubrics", rubrics, "--input", round, "--key", "clerk")
			convey.So(err, convey.ShouldBeNil)

			var ranking model.Ranking
			convey.So(json.Unmarshal([]byte(out), &ranking), convey.ShouldBeNil)

			convey.Convey("Then candidates are ranked by composite", func() {
				convey.So(ranking.RoundID, convey.ShouldEqual, "aa-2026-01")
				convey.So(ranking.Rows, convey.ShouldHaveLength, 3)

				a, b, c := ranking.Rows[0], ranking.Rows[1], ranking.Rows[2]
				convey.So(a.CandidateCode, convey.ShouldEqual, "A")
				convey.So(a.Total, convey.ShouldEqual, 83.5)
				convey.So(a.Applicant, convey.ShouldEqual, 16)
				convey.So(a.Evaluation, convey.ShouldEqual, 47.5)
				convey.So(a.Comments, convey.ShouldResemble, []string{"clear answers"})

				convey.So(b.CandidateCode, convey.ShouldEqual, "B")
				convey.So(b.Total, convey.ShouldEqual, 50)

				convey.So(c.CandidateCode, convey.ShouldEqual, "C")
				convey.So(c.Total, convey.ShouldEqual, 10)
				convey.So(c.Provisional, convey.ShouldBeTrue)
			})
		})

		convey.Convey("When no rubric key is given", func() {
			_, err := execute("score", "--rubrics", rubrics, "--input", round)
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(err.Error(), convey.ShouldContainSubstring, "rubric_key")
		})

		convey.Convey("When an evaluation exceeds a criterion maximum", func() {
			bad := writeFile(t, "bad.yaml", `
rubric_key: clerk
candidates:
  - code: A
    name: Ana
    evaluations:
      - evaluator_id: e1
        scores: {Interview: {communication: 6, judgment: 5}}
`)
			_, err := execute("score", "--rubrics", rubrics, "--input", bad)

			convey.Convey("Then scoring is refused", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "Interview.communication")
			})
		})
	})
}

func TestSimulateCommand(t *testing.T) {
	convey.Convey("Given no server at the target address", t, func() {
		_, err := execute("simulate", "--url", "http://127.0.0.1:1", "--timeout", "1s", "--candidates", "1")

		convey.Convey("Then the run fails at the health check", func() {
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(err.Error(), convey.ShouldContainSubstring, "health check")
		})
	})
}
