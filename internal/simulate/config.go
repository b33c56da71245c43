// Package simulate drives a running board service over HTTP: it opens a
// round, registers candidates, submits evaluator scores concurrently and
// checks that the ranking and the cached leaderboard agree.
package simulate

import (
	"runtime"
	"time"
)

// Default configuration constants.
const (
	DefaultBaseURL    = "http://localhost:9080"
	DefaultRubricKey  = "non-teaching"
	DefaultCandidates = 50
	DefaultEvaluators = 3
	DefaultTopN       = 10
	DefaultTimeout    = 30 * time.Second
	DefaultSettle     = 30 * time.Second

	pollInterval     = 100 * time.Millisecond
	scoreTolerance   = 1e-9
	workerMultiplier = 2
)

// Config holds the parameters of one simulation run.
type Config struct {
	BaseURL    string        // Base URL of the service
	RubricKey  string        // Rubric the simulated round uses
	RoundID    string        // Round to create; generated when empty
	Candidates int           // Number of candidates to register
	Evaluators int           // Number of evaluators scoring every candidate
	TopN       int           // Leaderboard size compared against the ranking
	Workers    int           // Concurrent HTTP requests
	Timeout    time.Duration // HTTP request timeout
	Settle     time.Duration // How long to wait for the leaderboard to converge
	Seed       uint64        // Seed for generated scores; 0 picks one
	OutputFile string        // Optional JSON dump of the generated plan
}

// withDefaults fills zero fields.
func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.RubricKey == "" {
		c.RubricKey = DefaultRubricKey
	}
	if c.Candidates <= 0 {
		c.Candidates = DefaultCandidates
	}
	if c.Evaluators <= 0 {
		c.Evaluators = DefaultEvaluators
	}
	if c.TopN <= 0 {
		c.TopN = DefaultTopN
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU() * workerMultiplier
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Settle <= 0 {
		c.Settle = DefaultSettle
	}
	return c
}

// Report summarizes a run.
type Report struct {
	RoundID            string        `json:"round_id"`
	Seed               uint64        `json:"seed"`
	Candidates         int           `json:"candidates"`
	Submissions        int           `json:"submissions"`
	SubmissionsFailed  int           `json:"submissions_failed"`
	LeaderboardEntries int           `json:"leaderboard_entries"`
	Converged          time.Duration `json:"converged_ns"`
	TopCode            string        `json:"top_code"`
	TopScore           float64       `json:"top_score"`
	Duration           time.Duration `json:"duration_ns"`
}
