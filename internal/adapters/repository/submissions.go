package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	model "github.com/Aimisnotavailable/DEPEDHRMPSB/internal/domain/model"
)

// UpsertSubmission stores the evaluator's submission, replacing any earlier
// one for the same candidate in the same transaction that checks the round is open.
func (s *SQLiteStore) UpsertSubmission(ctx context.Context, sub model.Submission) (model.Submission, error) {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := openRound(ctx, tx, sub.RoundID, "submit evaluation"); err != nil {
			return err
		}
		if err := candidateExists(ctx, tx, sub.RoundID, sub.CandidateCode); err != nil {
			return err
		}
		const q = `INSERT INTO submissions (round_id, candidate_code, evaluator_id, revision, comment, submitted_at)
			VALUES (?, ?, ?, 1, ?, ?)
			ON CONFLICT (round_id, candidate_code, evaluator_id) DO UPDATE SET
				revision = submissions.revision + 1,
				comment = excluded.comment,
				submitted_at = excluded.submitted_at
			RETURNING revision`
		if err := tx.QueryRowContext(ctx, q, sub.RoundID, sub.CandidateCode, sub.EvaluatorID,
			sub.Comment, unixNano(sub.SubmittedAt)).Scan(&sub.Revision); err != nil {
			return fmt.Errorf("upsert submission: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM submission_scores WHERE round_id = ? AND candidate_code = ? AND evaluator_id = ?`,
			sub.RoundID, sub.CandidateCode, sub.EvaluatorID); err != nil {
			return fmt.Errorf("clear submission scores: %w", err)
		}
		const ins = `INSERT INTO submission_scores (round_id, candidate_code, evaluator_id, category, criterion, value)
			VALUES (?, ?, ?, ?, ?, ?)`
		for _, cat := range sortedKeys(sub.Scores) {
			for _, crit := range sortedKeys(sub.Scores[cat]) {
				if _, err := tx.ExecContext(ctx, ins, sub.RoundID, sub.CandidateCode, sub.EvaluatorID,
					cat, crit, sub.Scores[cat][crit]); err != nil {
					return fmt.Errorf("insert submission score: %w", err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return model.Submission{}, err
	}
	return sub, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ListSubmissions returns the candidate's submissions ordered by evaluator.
func (s *SQLiteStore) ListSubmissions(ctx context.Context, roundID, code string) ([]model.Submission, error) {
	all, err := s.loadSubmissions(ctx, roundID, code)
	if err != nil {
		return nil, err
	}
	return all[code], nil
}

// ListRoundSubmissions returns every submission of the round keyed by candidate.
func (s *SQLiteStore) ListRoundSubmissions(ctx context.Context, roundID string) (map[string][]model.Submission, error) {
	return s.loadSubmissions(ctx, roundID, "")
}

func (s *SQLiteStore) loadSubmissions(ctx context.Context, roundID, code string) (map[string][]model.Submission, error) {
	var out map[string][]model.Submission
	err := s.readTx(ctx, func(tx *sql.Tx) error {
		var err error
		out, err = querySubmissions(ctx, tx, roundID, code)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// querySubmissions reads submissions and their scores inside tx. An empty
// code reads the whole round.
func querySubmissions(ctx context.Context, tx *sql.Tx, roundID, code string) (map[string][]model.Submission, error) {
	filter := ` WHERE round_id = ?`
	args := []any{roundID}
	if code != "" {
		filter += ` AND candidate_code = ?`
		args = append(args, code)
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT candidate_code, evaluator_id, revision, comment, submitted_at FROM submissions`+filter+
			` ORDER BY candidate_code, evaluator_id`, args...)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	type key struct{ cand, eval string }
	index := make(map[key]*model.Submission)
	var order []key
	for rows.Next() {
		var (
			sub model.Submission
			at  int64
		)
		if err := rows.Scan(&sub.CandidateCode, &sub.EvaluatorID, &sub.Revision, &sub.Comment, &at); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		sub.RoundID = roundID
		sub.SubmittedAt = fromUnixNano(at)
		sub.Scores = make(map[string]map[string]float64)
		k := key{sub.CandidateCode, sub.EvaluatorID}
		index[k] = &sub
		order = append(order, k)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	rows, err = tx.QueryContext(ctx,
		`SELECT candidate_code, evaluator_id, category, criterion, value FROM submission_scores`+filter, args...)
	if err != nil {
		return nil, fmt.Errorf("list submission scores: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			k              key
			category, crit string
			value          float64
		)
		if err := rows.Scan(&k.cand, &k.eval, &category, &crit, &value); err != nil {
			return nil, fmt.Errorf("scan submission score: %w", err)
		}
		sub, ok := index[k]
		if !ok {
			continue
		}
		if sub.Scores[category] == nil {
			sub.Scores[category] = make(map[string]float64)
		}
		sub.Scores[category][crit] = value
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make(map[string][]model.Submission)
	for _, k := range order {
		out[k.cand] = append(out[k.cand], *index[k])
	}
	return out, nil
}
