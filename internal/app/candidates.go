package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	repository "github.com/Aimisnotavailable/DEPEDHRMPSB/internal/adapters/repository"
	model "github.com/Aimisnotavailable/DEPEDHRMPSB/internal/domain/model"
	scoring "github.com/Aimisnotavailable/DEPEDHRMPSB/internal/domain/scoring"
	"github.com/Aimisnotavailable/DEPEDHRMPSB/pkg/logger"
	"github.com/Aimisnotavailable/DEPEDHRMPSB/pkg/metrics"
)

// openRound loads a round and fails with *model.RoundClosedError when it is
// closed. The store checks again inside its write transaction.
func (s *Service) openRound(ctx context.Context, roundID, op string) (repository.Store, model.Round, error) {
	store, err := s.ready()
	if err != nil {
		return nil, model.Round{}, err
	}
	round, err := store.GetRound(ctx, roundID)
	if err != nil {
		return nil, model.Round{}, err
	}
	if round.Closed {
		return nil, model.Round{}, &model.RoundClosedError{RoundID: roundID, Op: op}
	}
	return store, round, nil
}

// AddCandidate registers an applicant in an open round. An empty code is generated.
func (s *Service) AddCandidate(ctx context.Context, roundID string, p model.NewCandidateParams) (model.Candidate, error) {
	store, err := s.ready()
	if err != nil {
		return model.Candidate{}, err
	}
	if strings.TrimSpace(p.Code) == "" {
		p.Code = uuid.NewString()
	}
	c, err := model.NewCandidate(roundID, p, s.now())
	if err != nil {
		s.logger.Warn(ctx, "candidate rejected", logger.String("round", roundID), logger.Error(err))
		return model.Candidate{}, err
	}
	c, err = store.AddCandidate(ctx, c)
	if err != nil {
		return model.Candidate{}, err
	}

	s.logger.Info(ctx, "candidate added",
		logger.String("round", roundID),
		logger.String("candidate", c.Code),
		logger.Int64("seq", c.Seq))
	s.enqueueRecompute(ctx, roundID, c.Code)
	return c, nil
}

// GetCandidate returns a stored candidate.
func (s *Service) GetCandidate(ctx context.Context, roundID, code string) (model.Candidate, error) {
	store, err := s.ready()
	if err != nil {
		return model.Candidate{}, err
	}
	return store.GetCandidate(ctx, roundID, code)
}

// UpdateQualification replaces a candidate's raw qualification values.
func (s *Service) UpdateQualification(ctx context.Context, roundID, code string, q scoring.RawQualification) error {
	store, err := s.ready()
	if err != nil {
		return err
	}
	if err := q.Validate(); err != nil {
		s.logger.Warn(ctx, "qualification rejected",
			logger.String("round", roundID), logger.String("candidate", code), logger.Error(err))
		return err
	}
	if err := store.UpdateQualification(ctx, roundID, code, q, s.now()); err != nil {
		return err
	}

	s.logger.Info(ctx, "qualification updated",
		logger.String("round", roundID), logger.String("candidate", code))
	s.enqueueRecompute(ctx, roundID, code)
	return nil
}

// SetApplicantScores scores and stores the admin-entered auxiliary values.
// Either every value is accepted or none is stored.
func (s *Service) SetApplicantScores(ctx context.Context, roundID, code string, raw map[string]float64) (scoring.ApplicantScores, error) {
	store, round, err := s.openRound(ctx, roundID, "set applicant scores")
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: no applicant scores given", model.ErrInvalidInput)
	}
	rubric, err := s.rubricFor(round)
	if err != nil {
		return nil, err
	}
	points, err := scoring.ScoreApplicant(raw, rubric)
	if err != nil {
		s.logger.Warn(ctx, "applicant scores rejected",
			logger.String("round", roundID), logger.String("candidate", code), logger.Error(err))
		return nil, err
	}
	if err := store.SetApplicantScores(ctx, roundID, code, raw, points, s.now()); err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "applicant scores set",
		logger.String("round", roundID),
		logger.String("candidate", code),
		logger.Float64("total", points.Total()))
	s.enqueueRecompute(ctx, roundID, code)
	return points, nil
}

// SubmitEvaluation validates one evaluator's scores for a candidate and
// stores them, replacing the evaluator's previous submission.
func (s *Service) SubmitEvaluation(ctx context.Context, roundID, code string, sub scoring.Submission) (model.Submission, error) {
	store, round, err := s.openRound(ctx, roundID, "submit evaluation")
	if err != nil {
		if errors.Is(err, model.ErrRoundClosed) {
			metrics.RecordSubmissionRejected("round_closed")
		}
		return model.Submission{}, err
	}
	rubric, err := s.rubricFor(round)
	if err != nil {
		return model.Submission{}, err
	}
	sub.EvaluatorID = strings.TrimSpace(sub.EvaluatorID)
	if err := scoring.ValidateSubmission(sub, rubric.Evaluation()); err != nil {
		metrics.RecordSubmissionRejected(errorKind(err))
		s.logger.Warn(ctx, "evaluation rejected",
			logger.String("round", roundID),
			logger.String("candidate", code),
			logger.String("evaluator", sub.EvaluatorID),
			logger.Error(err))
		return model.Submission{}, err
	}

	stored, err := store.UpsertSubmission(ctx, model.Submission{
		RoundID:       roundID,
		CandidateCode: code,
		Submission:    sub,
		SubmittedAt:   s.now().UTC(),
	})
	if err != nil {
		if errors.Is(err, model.ErrRoundClosed) {
			metrics.RecordSubmissionRejected("round_closed")
		}
		return model.Submission{}, err
	}
	metrics.RecordSubmission()

	s.logger.Info(ctx, "evaluation submitted",
		logger.String("round", roundID),
		logger.String("candidate", code),
		logger.String("evaluator", stored.EvaluatorID),
		logger.Int("revision", stored.Revision))
	s.enqueueRecompute(ctx, roundID, code)
	return stored, nil
}
