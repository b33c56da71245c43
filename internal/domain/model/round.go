// Package model contains the selection-board records passed between layers.
package model

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	scoring "github.com/Aimisnotavailable/DEPEDHRMPSB/internal/domain/scoring"
)

// Round is one selection round for a vacant position. Its rubric is fixed
// once candidates have been scored, and nothing changes after it is closed.
type Round struct {
	ID            string                   `json:"id"`
	RubricKey     string                   `json:"rubric_key"`
	PositionTitle string                   `json:"position_title"`
	SalaryGrade   int                      `json:"salary_grade,omitempty"`
	Baseline      scoring.RawQualification `json:"baseline"`
	Rubric        scoring.RubricSpec       `json:"rubric"`
	Closed        bool                     `json:"closed"`
	CreatedAt     time.Time                `json:"created_at"`
	ClosedAt      *time.Time               `json:"closed_at,omitempty"`
}

// Candidate is an applicant to a round. Seq records insertion order and
// breaks ranking ties.
type Candidate struct {
	RoundID       string                   `json:"round_id"`
	Code          string                   `json:"code"`
	Name          string                   `json:"name"`
	Seq           int64                    `json:"seq"`
	Qualification scoring.RawQualification `json:"qualification"`
	// Applicant holds the raw admin-entered auxiliary values.
	Applicant map[string]float64 `json:"applicant,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// Submission is one evaluator's stored rating of one candidate.
type Submission struct {
	RoundID       string `json:"round_id"`
	CandidateCode string `json:"candidate_code"`
	scoring.Submission
	SubmittedAt time.Time `json:"submitted_at"`
}

// NewRoundParams are the caller-supplied fields of a round.
type NewRoundParams struct {
	ID            string                   `json:"id" validate:"required,max=64,identifier"`
	RubricKey     string                   `json:"rubric_key" validate:"required"`
	PositionTitle string                   `json:"position_title" validate:"required,max=200"`
	SalaryGrade   int                      `json:"salary_grade" validate:"gte=0,lte=33"`
	Baseline      scoring.RawQualification `json:"baseline"`
}

// NewRoundRequest is a round creation request. Rubric, when set, is
// validated and used instead of looking RubricKey up in the rubric set.
type NewRoundRequest struct {
	NewRoundParams
	Rubric *scoring.RubricSpec `json:"rubric,omitempty"`
}

// NewCandidateParams are the caller-supplied fields of a candidate.
type NewCandidateParams struct {
	Code          string                   `json:"code" validate:"required,max=64,identifier"`
	Name          string                   `json:"name" validate:"required,max=200"`
	Qualification scoring.RawQualification `json:"qualification"`
}

var identifierPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	})
	_ = v.RegisterValidation("identifier", func(fl validator.FieldLevel) bool {
		return identifierPattern.MatchString(fl.Field().String())
	})
	return v
}

// NewRound validates p and builds an open round using rubric.
func NewRound(p NewRoundParams, rubric *scoring.Rubric, now time.Time) (Round, error) {
	p.ID = strings.TrimSpace(p.ID)
	p.PositionTitle = strings.TrimSpace(p.PositionTitle)
	if err := check(p); err != nil {
		return Round{}, err
	}
	if err := p.Baseline.Validate(); err != nil {
		return Round{}, fmt.Errorf("%w: baseline: %w", ErrInvalidInput, err)
	}
	return Round{
		ID:            p.ID,
		RubricKey:     rubric.Key(),
		PositionTitle: p.PositionTitle,
		SalaryGrade:   p.SalaryGrade,
		Baseline:      p.Baseline,
		Rubric:        rubric.Spec(),
		CreatedAt:     now.UTC(),
	}, nil
}

// NewCandidate validates p and builds a candidate of round. Seq is assigned by the store.
func NewCandidate(roundID string, p NewCandidateParams, now time.Time) (Candidate, error) {
	p.Code = strings.TrimSpace(p.Code)
	p.Name = strings.TrimSpace(p.Name)
	if err := check(p); err != nil {
		return Candidate{}, err
	}
	if err := p.Qualification.Validate(); err != nil {
		return Candidate{}, fmt.Errorf("%w: qualification: %w", ErrInvalidInput, err)
	}
	return Candidate{
		RoundID:       roundID,
		Code:          p.Code,
		Name:          p.Name,
		Qualification: p.Qualification,
		CreatedAt:     now.UTC(),
		UpdatedAt:     now.UTC(),
	}, nil
}

// RubricFor rebuilds the scoring rubric stored with the round.
func (r Round) RubricFor(opts ...scoring.RubricOption) (*scoring.Rubric, error) {
	return scoring.NewRubric(r.Rubric, opts...)
}

// Input assembles the scoring input of c under round r.
func (r Round) Input(c Candidate, subs []Submission) scoring.Input {
	in := scoring.Input{
		Qualification: c.Qualification,
		Baseline:      r.Baseline,
		Applicant:     c.Applicant,
		Submissions:   make([]scoring.Submission, 0, len(subs)),
	}
	for _, s := range subs {
		in.Submissions = append(in.Submissions, s.Submission)
	}
	return in
}

func check(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", ErrInvalidInput, strings.Join(fields, ", "))
}
