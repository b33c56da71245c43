package simulate

import (
	"errors"
	"fmt"
	"math"

	model "github.com/Aimisnotavailable/DEPEDHRMPSB/internal/domain/model"
	types "github.com/Aimisnotavailable/DEPEDHRMPSB/internal/domain/types"
)

// Verification failures.
var (
	ErrRankingOrder = errors.New("ranking out of order")
	ErrMismatch     = errors.New("leaderboard does not match ranking")
	ErrUnstable     = errors.New("ranking changed between reads")
	ErrNotConverged = errors.New("leaderboard did not converge")
)

// checkRanking verifies positional ranks, descending totals and the
// registration-order tie break.
func checkRanking(rows []model.RankingRow) error {
	for i, row := range rows {
		if row.Rank != i+1 {
			return fmt.Errorf("%w: row %d has rank %d", ErrRankingOrder, i, row.Rank)
		}
		if i == 0 {
			continue
		}
		prev := rows[i-1]
		if row.Total > prev.Total {
			return fmt.Errorf("%w: %s (%.3f) ranks below %s (%.3f)",
				ErrRankingOrder, row.CandidateCode, row.Total, prev.CandidateCode, prev.Total)
		}
		if row.Total == prev.Total && row.Seq < prev.Seq {
			return fmt.Errorf("%w: tie between %s and %s not broken by registration order",
				ErrRankingOrder, prev.CandidateCode, row.CandidateCode)
		}
	}
	return nil
}

// compareLeaderboard checks that entries are exactly the first n ranking rows.
func compareLeaderboard(rows []model.RankingRow, entries []types.Entry, n int) error {
	want := min(n, len(rows))
	if len(entries) != want {
		return fmt.Errorf("%w: %d entries, want %d", ErrMismatch, len(entries), want)
	}
	for i, e := range entries {
		row := rows[i]
		if e.CandidateCode != row.CandidateCode || e.Rank != row.Rank {
			return fmt.Errorf("%w: position %d is %s (rank %d), ranking has %s (rank %d)",
				ErrMismatch, i+1, e.CandidateCode, e.Rank, row.CandidateCode, row.Rank)
		}
		if math.Abs(e.Score-row.Total) > scoreTolerance {
			return fmt.Errorf("%w: %s scores %.6f, ranking has %.6f",
				ErrMismatch, e.CandidateCode, e.Score, row.Total)
		}
		if e.Provisional != row.Provisional {
			return fmt.Errorf("%w: %s provisional flag differs", ErrMismatch, e.CandidateCode)
		}
	}
	return nil
}

// sameRanking reports whether two reads of a ranking agree.
func sameRanking(a, b []model.RankingRow) error {
	if len(a) != len(b) {
		return fmt.Errorf("%w: %d rows then %d", ErrUnstable, len(a), len(b))
	}
	for i := range a {
		if a[i].CandidateCode != b[i].CandidateCode || a[i].Total != b[i].Total {
			return fmt.Errorf("%w: position %d was %s (%.3f), now %s (%.3f)", ErrUnstable,
				i+1, a[i].CandidateCode, a[i].Total, b[i].CandidateCode, b[i].Total)
		}
	}
	return nil
}
