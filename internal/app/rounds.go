package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	model "github.com/Aimisnotavailable/DEPEDHRMPSB/internal/domain/model"
	scoring "github.com/Aimisnotavailable/DEPEDHRMPSB/internal/domain/scoring"
	"github.com/Aimisnotavailable/DEPEDHRMPSB/pkg/logger"
)

// resolveRubric returns the inline rubric when given, else the named one.
func (s *Service) resolveRubric(key string, inline *scoring.RubricSpec) (*scoring.Rubric, error) {
	if inline != nil {
		return scoring.NewRubric(*inline, s.rubricOpts...)
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, fmt.Errorf("%w: rubric_key or rubric is required", model.ErrInvalidInput)
	}
	return s.rubrics.Lookup(key)
}

// CreateRound validates and stores a new open round. An empty ID is generated.
func (s *Service) CreateRound(ctx context.Context, req model.NewRoundRequest) (model.Round, error) {
	store, err := s.ready()
	if err != nil {
		return model.Round{}, err
	}
	rubric, err := s.resolveRubric(req.RubricKey, req.Rubric)
	if err != nil {
		s.logger.Warn(ctx, "round rejected", logger.Error(err))
		return model.Round{}, err
	}

	params := req.NewRoundParams
	params.RubricKey = rubric.Key()
	if strings.TrimSpace(params.ID) == "" {
		params.ID = uuid.NewString()
	}
	round, err := model.NewRound(params, rubric, s.now())
	if err != nil {
		s.logger.Warn(ctx, "round rejected", logger.Error(err))
		return model.Round{}, err
	}
	if err := store.CreateRound(ctx, round); err != nil {
		return model.Round{}, err
	}

	s.logger.Info(ctx, "round created",
		logger.String("round", round.ID),
		logger.String("rubric", round.RubricKey),
		logger.String("position", round.PositionTitle))
	return round, nil
}

// GetRound returns a stored round.
func (s *Service) GetRound(ctx context.Context, roundID string) (model.Round, error) {
	store, err := s.ready()
	if err != nil {
		return model.Round{}, err
	}
	return store.GetRound(ctx, roundID)
}

// ListRounds returns every stored round.
func (s *Service) ListRounds(ctx context.Context) ([]model.Round, error) {
	store, err := s.ready()
	if err != nil {
		return nil, err
	}
	return store.ListRounds(ctx)
}

// CloseRound closes a round. Closing a closed round returns it unchanged.
func (s *Service) CloseRound(ctx context.Context, roundID string) (model.Round, error) {
	store, err := s.ready()
	if err != nil {
		return model.Round{}, err
	}
	round, err := store.CloseRound(ctx, roundID, s.now())
	if err != nil {
		return model.Round{}, err
	}
	s.logger.Info(ctx, "round closed", logger.String("round", roundID))
	return round, nil
}

// ReplaceRubric swaps the rubric of an open round with no candidates yet.
func (s *Service) ReplaceRubric(ctx context.Context, roundID, key string, inline *scoring.RubricSpec) (model.Round, error) {
	store, err := s.ready()
	if err != nil {
		return model.Round{}, err
	}
	rubric, err := s.resolveRubric(key, inline)
	if err != nil {
		return model.Round{}, err
	}
	if err := store.ReplaceRubric(ctx, roundID, rubric.Key(), rubric.Spec()); err != nil {
		if errors.Is(err, model.ErrRubricLocked) {
			s.logger.Warn(ctx, "rubric replacement rejected", logger.String("round", roundID), logger.Error(err))
		}
		return model.Round{}, err
	}
	s.forgetRubric(roundID)

	s.logger.Info(ctx, "rubric replaced",
		logger.String("round", roundID),
		logger.String("rubric", rubric.Key()))
	return store.GetRound(ctx, roundID)
}
