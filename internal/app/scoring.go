package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"time"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/errgroup"

	repository "github.com/Aimisnotavailable/DEPEDHRMPSB/internal/adapters/repository"
	model "github.com/Aimisnotavailable/DEPEDHRMPSB/internal/domain/model"
	scoring "github.com/Aimisnotavailable/DEPEDHRMPSB/internal/domain/scoring"
	types "github.com/Aimisnotavailable/DEPEDHRMPSB/internal/domain/types"
	"github.com/Aimisnotavailable/DEPEDHRMPSB/pkg/metrics"
)

// currentStore returns the open store without requiring the service to
// accept new work, so workers can drain during Stop.
func (s *Service) currentStore() (repository.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.store == nil {
		return nil, ErrNotStarted
	}
	return s.store, nil
}

// rubricFor returns the rubric stored with round r, rebuilding it when the
// cached copy was built from a different stored spec. The weight total was
// checked when the round was created and is not checked again here.
func (s *Service) rubricFor(r model.Round) (*scoring.Rubric, error) {
	sum, err := specSum(r.Rubric)
	if err != nil {
		return nil, fmt.Errorf("rebuild rubric of round %s: %w", r.ID, err)
	}
	s.cacheMu.RLock()
	cached, ok := s.roundRubric[r.ID]
	s.cacheMu.RUnlock()
	if ok && cached.sum == sum {
		return cached.rubric, nil
	}

	opts := append(append([]scoring.RubricOption(nil), s.rubricOpts...), scoring.WithWeightTotalCheck(false))
	rubric, err := r.RubricFor(opts...)
	if err != nil {
		return nil, fmt.Errorf("rebuild rubric of round %s: %w", r.ID, err)
	}
	s.cacheMu.Lock()
	s.roundRubric[r.ID] = cachedRubric{sum: sum, rubric: rubric}
	s.cacheMu.Unlock()
	return rubric, nil
}

// specSum fingerprints a stored rubric so a cache entry built from a replaced
// rubric is never served.
func specSum(spec scoring.RubricSpec) (uint64, error) {
	data, err := json.Marshal(spec)
	if err != nil {
		return 0, fmt.Errorf("encode rubric: %w", err)
	}
	return xxhash.Sum64(data), nil
}

func (s *Service) forgetRubric(roundID string) {
	s.cacheMu.Lock()
	delete(s.roundRubric, roundID)
	s.cacheMu.Unlock()
}

// evaluate computes one candidate's composite.
func (s *Service) evaluate(r model.Round, c model.Candidate, subs []model.Submission) (scoring.Composite, error) {
	start := time.Now()
	rubric, err := s.rubricFor(r)
	if err != nil {
		metrics.RecordScoringError("rubric")
		return scoring.Composite{}, err
	}
	comp, err := scoring.Evaluate(rubric, r.Input(c, subs))
	if err != nil {
		metrics.RecordScoringError(errorKind(err))
		return scoring.Composite{}, fmt.Errorf("score candidate %s: %w", c.Code, err)
	}
	metrics.RecordCompositeComputed(float64(time.Since(start).Microseconds()) / 1000)
	return comp, nil
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, scoring.ErrOutOfRange):
		return "out_of_range"
	case errors.Is(err, scoring.ErrUnknownField):
		return "unknown_field"
	case errors.Is(err, scoring.ErrConfig):
		return "config"
	case errors.Is(err, scoring.ErrInvalidRubric):
		return "invalid_rubric"
	default:
		return "other"
	}
}

func standingOf(c model.Candidate, comp scoring.Composite) scoring.Standing {
	return scoring.Standing{ID: c.Code, Seq: c.Seq, Score: comp.Total, Provisional: comp.Provisional}
}

// Score computes the current standing of one candidate. Workers call it to
// refresh the leaderboard cache.
func (s *Service) Score(ctx context.Context, roundID, code string) (scoring.Standing, error) {
	store, err := s.currentStore()
	if err != nil {
		return scoring.Standing{}, err
	}
	round, err := store.GetRound(ctx, roundID)
	if err != nil {
		return scoring.Standing{}, err
	}
	c, err := store.GetCandidate(ctx, roundID, code)
	if err != nil {
		return scoring.Standing{}, err
	}
	subs, err := store.ListSubmissions(ctx, roundID, code)
	if err != nil {
		return scoring.Standing{}, err
	}
	comp, err := s.evaluate(round, c, subs)
	if err != nil {
		return scoring.Standing{}, err
	}
	return standingOf(c, comp), nil
}

type scored struct {
	candidate   model.Candidate
	submissions []model.Submission
	composite   scoring.Composite
}

// standings computes every candidate of round r concurrently. The returned
// slices are in insertion order.
func (s *Service) standings(ctx context.Context, store repository.Store, r model.Round) ([]scoring.Standing, []scored, error) {
	candidates, err := store.ListCandidates(ctx, r.ID)
	if err != nil {
		return nil, nil, err
	}
	subs, err := store.ListRoundSubmissions(ctx, r.ID)
	if err != nil {
		return nil, nil, err
	}

	results := make([]scored, len(candidates))
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, c := range candidates {
		g.Go(func() error {
			comp, err := s.evaluate(r, c, subs[c.Code])
			if err != nil {
				return err
			}
			results[i] = scored{candidate: c, submissions: subs[c.Code], composite: comp}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	out := make([]scoring.Standing, len(results))
	for i, res := range results {
		out[i] = standingOf(res.candidate, res.composite)
	}
	return out, results, nil
}

// Sheet returns the rating sheet of one candidate, computed from stored inputs.
func (s *Service) Sheet(ctx context.Context, roundID, code string) (model.Sheet, error) {
	store, err := s.ready()
	if err != nil {
		return model.Sheet{}, err
	}
	round, err := store.GetRound(ctx, roundID)
	if err != nil {
		return model.Sheet{}, err
	}
	c, err := store.GetCandidate(ctx, roundID, code)
	if err != nil {
		return model.Sheet{}, err
	}
	subs, err := store.ListSubmissions(ctx, roundID, code)
	if err != nil {
		return model.Sheet{}, err
	}
	comp, err := s.evaluate(round, c, subs)
	if err != nil {
		return model.Sheet{}, err
	}
	if subs == nil {
		subs = []model.Submission{}
	}
	return model.Sheet{Round: round, Candidate: c, Submissions: subs, Composite: comp}, nil
}

// Ranking returns the comparative assessment result of a round, computed
// from stored inputs. Ties keep insertion order.
func (s *Service) Ranking(ctx context.Context, roundID string) (model.Ranking, error) {
	store, err := s.ready()
	if err != nil {
		return model.Ranking{}, err
	}
	round, err := store.GetRound(ctx, roundID)
	if err != nil {
		return model.Ranking{}, err
	}
	standings, results, err := s.standings(ctx, store, round)
	if err != nil {
		return model.Ranking{}, err
	}

	byCode := make(map[string]scored, len(results))
	for _, res := range results {
		byCode[res.candidate.Code] = res
	}
	rows := make([]model.RankingRow, 0, len(standings))
	for _, ranked := range scoring.Rank(standings) {
		res := byCode[ranked.ID]
		comp := res.composite
		rows = append(rows, model.RankingRow{
			Rank:          ranked.Rank,
			CandidateCode: ranked.ID,
			Name:          res.candidate.Name,
			Seq:           ranked.Seq,
			Baseline:      comp.Baseline,
			Applicant:     comp.ApplicantTotal,
			Evaluation:    comp.EvaluationTotal,
			Total:         comp.Total,
			Provisional:   comp.Provisional,
			Comments:      comments(res.submissions),
		})
	}
	return model.Ranking{
		RoundID:       round.ID,
		PositionTitle: round.PositionTitle,
		Closed:        round.Closed,
		Rows:          rows,
	}, nil
}

// comments returns the non-empty evaluator comments ordered by evaluator id.
func comments(subs []model.Submission) []string {
	sorted := append([]model.Submission(nil), subs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].EvaluatorID < sorted[j].EvaluatorID })
	var out []string
	for _, sub := range sorted {
		if sub.Comment != "" {
			out = append(out, sub.Comment)
		}
	}
	return out
}

// Leaderboard returns up to n cached entries of a round. The cache trails
// writes by the recompute queue; Ranking is the authoritative read.
func (s *Service) Leaderboard(ctx context.Context, roundID string, n int) ([]types.Entry, error) {
	store, err := s.ready()
	if err != nil {
		return nil, err
	}
	if n <= 0 {
		return nil, repository.ErrInvalidLimit
	}
	if n > s.maxLimit {
		n = s.maxLimit
	}
	if _, err := store.GetRound(ctx, roundID); err != nil {
		return nil, err
	}
	entries, err := s.leaderboard.TopN(ctx, roundID, n)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []types.Entry{}
	}
	return entries, nil
}

// CandidateRank returns the cached leaderboard position of one candidate.
func (s *Service) CandidateRank(ctx context.Context, roundID, code string) (types.Entry, error) {
	store, err := s.ready()
	if err != nil {
		return types.Entry{}, err
	}
	if _, err := store.GetCandidate(ctx, roundID, code); err != nil {
		return types.Entry{}, err
	}
	return s.leaderboard.Rank(ctx, roundID, code)
}
