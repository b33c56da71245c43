// Package repository persists selection rounds and caches their leaderboards.
package repository

import (
	"context"
	"time"

	model "github.com/Aimisnotavailable/DEPEDHRMPSB/internal/domain/model"
	scoring "github.com/Aimisnotavailable/DEPEDHRMPSB/internal/domain/scoring"
	types "github.com/Aimisnotavailable/DEPEDHRMPSB/internal/domain/types"
	"github.com/Aimisnotavailable/DEPEDHRMPSB/pkg/metrics"
)

// Counts are row totals across the store.
type Counts struct {
	Rounds      int
	OpenRounds  int
	Candidates  int
	Submissions int
}

// Store is the durable state of every round. All mutations of a round fail
// with *model.RoundClosedError once the round is closed; the check and the
// write happen in one transaction.
type Store interface {
	CreateRound(ctx context.Context, r model.Round) error
	GetRound(ctx context.Context, roundID string) (model.Round, error)
	ListRounds(ctx context.Context) ([]model.Round, error)
	// CloseRound closes the round. Closing a closed round returns it unchanged.
	CloseRound(ctx context.Context, roundID string, at time.Time) (model.Round, error)
	// ReplaceRubric swaps the rubric of an open round that has no candidates
	// yet; otherwise it fails with model.ErrRubricLocked.
	ReplaceRubric(ctx context.Context, roundID, key string, spec scoring.RubricSpec) error

	// AddCandidate stores c with the next insertion sequence of its round.
	AddCandidate(ctx context.Context, c model.Candidate) (model.Candidate, error)
	GetCandidate(ctx context.Context, roundID, code string) (model.Candidate, error)
	// ListCandidates returns the round's candidates in insertion order.
	ListCandidates(ctx context.Context, roundID string) ([]model.Candidate, error)
	UpdateQualification(ctx context.Context, roundID, code string, q scoring.RawQualification, at time.Time) error
	// SetApplicantScores merges raw values and their points into the
	// candidate's applicant scores.
	SetApplicantScores(ctx context.Context, roundID, code string, raw map[string]float64, points scoring.ApplicantScores, at time.Time) error

	// UpsertSubmission inserts or replaces the evaluator's submission for the
	// candidate and returns it with its new revision.
	UpsertSubmission(ctx context.Context, sub model.Submission) (model.Submission, error)
	ListSubmissions(ctx context.Context, roundID, code string) ([]model.Submission, error)
	// ListRoundSubmissions returns every submission of the round keyed by candidate code.
	ListRoundSubmissions(ctx context.Context, roundID string) (map[string][]model.Submission, error)

	Counts(ctx context.Context) (Counts, error)
	Close() error
}

// Leaderboard is an in-memory ordering of candidate composites per round.
// It is a cache: the Store stays authoritative.
type Leaderboard interface {
	// Upsert sets the composite of a candidate, replacing any previous value.
	Upsert(ctx context.Context, roundID string, s scoring.Standing) error
	// Rank returns the position of one candidate. Returns ErrNotFound if unknown.
	Rank(ctx context.Context, roundID, code string) (types.Entry, error)
	// TopN returns the first n entries ordered by score desc, then insertion order.
	TopN(ctx context.Context, roundID string, n int) ([]types.Entry, error)
	// Count returns the number of cached entries across rounds.
	Count(ctx context.Context) int
	Close() error
}

func recordUpdate(start time.Time) {
	metrics.RecordRepositoryUpdateLatency(float64(time.Since(start).Microseconds()) / 1000)
}

func recordQuery(start time.Time) {
	metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Microseconds()) / 1000)
}
