package model

import (
	"time"

	scoring "github.com/Aimisnotavailable/DEPEDHRMPSB/internal/domain/scoring"
)

// Sheet is the rating sheet of one candidate: inputs, every evaluator's
// latest submission and the computed composite.
type Sheet struct {
	Round       Round             `json:"round"`
	Candidate   Candidate         `json:"candidate"`
	Submissions []Submission      `json:"submissions"`
	Composite   scoring.Composite `json:"composite"`
}

// RankingRow is one line of the comparative assessment result.
type RankingRow struct {
	Rank          int                    `json:"rank"`
	CandidateCode string                 `json:"candidate_code"`
	Name          string                 `json:"name"`
	Seq           int64                  `json:"seq"`
	Baseline      scoring.BaselineScores `json:"baseline"`
	Applicant     float64                `json:"applicant_total"`
	Evaluation    float64                `json:"evaluation_total"`
	Total         float64                `json:"total"`
	Provisional   bool                   `json:"provisional"`
	Comments      []string               `json:"comments,omitempty"`
}

// Ranking is the comparative assessment result of a round.
type Ranking struct {
	RoundID       string       `json:"round_id"`
	PositionTitle string       `json:"position_title"`
	Closed        bool         `json:"closed"`
	Rows          []RankingRow `json:"rows"`
}

// Recompute asks a worker to refresh the cached composite of one candidate.
type Recompute struct {
	RoundID       string
	CandidateCode string
	EnqueuedAt    time.Time
}
