// Package types contains common types used across the application
package types

// Entry represents a leaderboard entry
type Entry struct {
	Rank          int     `json:"rank"`
	CandidateCode string  `json:"candidate_code"`
	Score         float64 `json:"score"`
	Provisional   bool    `json:"provisional"`
}

// Stats is the operational snapshot reported by /stats.
type Stats struct {
	Rounds        int `json:"rounds"`
	OpenRounds    int `json:"open_rounds"`
	Candidates    int `json:"candidates"`
	Submissions   int `json:"submissions"`
	QueueDepth    int `json:"queue_depth"`
	QueueCapacity int `json:"queue_capacity"`
	Pending       int `json:"pending_recomputes"`
	Workers       int `json:"workers"`
	Leaderboards  int `json:"leaderboards"`
}
