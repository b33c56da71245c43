package simulate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	model "github.com/Aimisnotavailable/DEPEDHRMPSB/internal/domain/model"
	scoring "github.com/Aimisnotavailable/DEPEDHRMPSB/internal/domain/scoring"
	types "github.com/Aimisnotavailable/DEPEDHRMPSB/internal/domain/types"
	"github.com/Aimisnotavailable/DEPEDHRMPSB/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
	filePermission      = 0600
)

// Baseline the simulated round is opened with.
var simulatedBaseline = scoring.RawQualification{Education: 5, Training: 8, Experience: 12}

// Runner executes simulations against one service.
type Runner struct {
	cfg    Config
	client *client
	log    logger.Logger
}

// NewRunner creates a runner; zero config fields take their defaults.
func NewRunner(cfg Config) *Runner {
	cfg = cfg.withDefaults()
	return &Runner{
		cfg:    cfg,
		client: newClient(cfg.BaseURL, cfg.Timeout),
		log:    logger.Get().Named("simulate"),
	}
}

// Run executes the complete simulation.
func (r *Runner) Run(ctx context.Context) (Report, error) {
	start := time.Now()
	cfg := r.cfg

	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(start.UnixNano())
	}
	roundID := cfg.RoundID
	if roundID == "" {
		roundID = "sim-" + uuid.NewString()[:8]
	}

	r.log.Info(ctx, "starting simulation",
		logger.String("baseURL", cfg.BaseURL),
		logger.String("round", roundID),
		logger.String("rubric", cfg.RubricKey),
		logger.Int("candidates", cfg.Candidates),
		logger.Int("evaluators", cfg.Evaluators),
		logger.Int("workers", cfg.Workers))

	if err := r.client.get(ctx, "/healthz", nil); err != nil {
		return Report{}, fmt.Errorf("service health check failed: %w", err)
	}

	round, err := r.openRound(ctx, roundID)
	if err != nil {
		return Report{}, err
	}

	plan := newPlan(round.ID, round.Rubric, cfg.Candidates, cfg.Evaluators, seed)
	if cfg.OutputFile != "" {
		if err := savePlan(plan, cfg.OutputFile); err != nil {
			r.log.Warn(ctx, "failed to save plan", logger.Error(err))
		}
	}

	if err := r.register(ctx, plan); err != nil {
		return Report{}, fmt.Errorf("candidate registration failed: %w", err)
	}

	submitted, failed := r.submit(ctx, plan)

	converged, rows, board, err := r.converge(ctx, plan.RoundID)
	if err != nil {
		return Report{}, err
	}

	// A second read must agree with the converged one.
	again, err := r.ranking(ctx, plan.RoundID)
	if err != nil {
		return Report{}, err
	}
	if err := sameRanking(rows, again.Rows); err != nil {
		return Report{}, err
	}

	rep := Report{
		RoundID:            plan.RoundID,
		Seed:               seed,
		Candidates:         len(plan.Candidates),
		Submissions:        submitted,
		SubmissionsFailed:  failed,
		LeaderboardEntries: len(board),
		Converged:          converged,
		Duration:           time.Since(start),
	}
	if len(rows) > 0 {
		rep.TopCode = rows[0].CandidateCode
		rep.TopScore = rows[0].Total
	}

	r.log.Info(ctx, "simulation completed",
		logger.String("round", rep.RoundID),
		logger.Int("submissions", rep.Submissions),
		logger.Int("failed", rep.SubmissionsFailed),
		logger.String("top", rep.TopCode),
		logger.Float64("topScore", rep.TopScore),
		logger.Duration("converged", rep.Converged),
		logger.Duration("duration", rep.Duration))
	return rep, nil
}

func (r *Runner) openRound(ctx context.Context, roundID string) (model.Round, error) {
	body := map[string]any{
		"id":             roundID,
		"rubric_key":     r.cfg.RubricKey,
		"position_title": "Simulated " + r.cfg.RubricKey + " position",
		"baseline":       simulatedBaseline,
	}
	var round model.Round
	if err := r.client.do(ctx, http.MethodPost, "/rounds", body, http.StatusCreated, &round); err != nil {
		return model.Round{}, fmt.Errorf("failed to open round: %w", err)
	}
	return round, nil
}

// register adds every candidate and its applicant scores.
func (r *Runner) register(ctx context.Context, plan Plan) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Workers)
	base := "/rounds/" + url.PathEscape(plan.RoundID) + "/candidates"
	for _, c := range plan.Candidates {
		g.Go(func() error {
			add := map[string]any{"code": c.Code, "name": c.Name, "qualification": c.Qualification}
			if err := r.client.do(gctx, http.MethodPost, base, add, http.StatusCreated, nil); err != nil {
				return err
			}
			if len(c.Applicant) == 0 {
				return nil
			}
			path := base + "/" + url.PathEscape(c.Code) + "/applicant-scores"
			return r.client.do(gctx, http.MethodPut, path, map[string]any{"scores": c.Applicant}, http.StatusOK, nil)
		})
	}
	return g.Wait()
}

// submit sends every evaluation concurrently. Individual failures are
// counted and logged rather than aborting the run.
func (r *Runner) submit(ctx context.Context, plan Plan) (submitted, failed int) {
	var ok, bad atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Workers)
	for _, c := range plan.Candidates {
		for _, evaluator := range plan.Evaluators {
			g.Go(func() error {
				path := fmt.Sprintf("/rounds/%s/candidates/%s/evaluations/%s",
					url.PathEscape(plan.RoundID), url.PathEscape(c.Code), url.PathEscape(evaluator))
				body := map[string]any{"scores": c.Evaluations[evaluator]}
				if err := r.client.do(gctx, http.MethodPut, path, body, http.StatusOK, nil); err != nil {
					bad.Add(1)
					r.log.Warn(gctx, "evaluation rejected",
						logger.String("candidate", c.Code),
						logger.String("evaluator", evaluator),
						logger.Error(err))
					return nil
				}
				ok.Add(1)
				return nil
			})
		}
	}
	_ = g.Wait()
	return int(ok.Load()), int(bad.Load())
}

// converge polls until the cached leaderboard matches the ranking.
func (r *Runner) converge(ctx context.Context, roundID string) (time.Duration, []model.RankingRow, []types.Entry, error) {
	start := time.Now()
	deadline := start.Add(r.cfg.Settle)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	var lastErr error
	for {
		ranking, err := r.ranking(ctx, roundID)
		if err != nil {
			return 0, nil, nil, err
		}
		if err := checkRanking(ranking.Rows); err != nil {
			return 0, nil, nil, err
		}
		var board []types.Entry
		path := fmt.Sprintf("/rounds/%s/leaderboard?limit=%d", url.PathEscape(roundID), r.cfg.TopN)
		if err := r.client.get(ctx, path, &board); err != nil {
			return 0, nil, nil, err
		}
		lastErr = compareLeaderboard(ranking.Rows, board, r.cfg.TopN)
		if lastErr == nil {
			return time.Since(start), ranking.Rows, board, nil
		}
		if time.Now().After(deadline) {
			return 0, nil, nil, fmt.Errorf("%w after %s: %w", ErrNotConverged, r.cfg.Settle, lastErr)
		}
		select {
		case <-ctx.Done():
			return 0, nil, nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (r *Runner) ranking(ctx context.Context, roundID string) (model.Ranking, error) {
	var ranking model.Ranking
	if err := r.client.get(ctx, "/rounds/"+url.PathEscape(roundID)+"/ranking", &ranking); err != nil {
		return model.Ranking{}, fmt.Errorf("ranking retrieval failed: %w", err)
	}
	return ranking, nil
}

// savePlan writes the generated plan as indented JSON.
func savePlan(plan Plan, filename string) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal plan: %w", err)
	}
	return os.WriteFile(filename, data, filePermission)
}
