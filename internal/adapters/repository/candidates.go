package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	model "github.com/Aimisnotavailable/DEPEDHRMPSB/internal/domain/model"
	scoring "github.com/Aimisnotavailable/DEPEDHRMPSB/internal/domain/scoring"
)

// AddCandidate inserts c with the next sequence number of its round.
func (s *SQLiteStore) AddCandidate(ctx context.Context, c model.Candidate) (model.Candidate, error) {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := openRound(ctx, tx, c.RoundID, "add candidate"); err != nil {
			return err
		}
		var one int
		err := tx.QueryRowContext(ctx,
			`SELECT 1 FROM candidates WHERE round_id = ? AND code = ?`, c.RoundID, c.Code).Scan(&one)
		if err == nil {
			return fmt.Errorf("%w: candidate %s in round %s", model.ErrConflict, c.Code, c.RoundID)
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("read candidate: %w", err)
		}
		if err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(seq), 0) + 1 FROM candidates WHERE round_id = ?`, c.RoundID).Scan(&c.Seq); err != nil {
			return fmt.Errorf("next sequence: %w", err)
		}
		const q = `INSERT INTO candidates (round_id, code, name, seq, education, experience, training, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
		_, err = tx.ExecContext(ctx, q, c.RoundID, c.Code, c.Name, c.Seq,
			c.Qualification.Education, c.Qualification.Experience, c.Qualification.Training,
			unixNano(c.CreatedAt), unixNano(c.UpdatedAt))
		if err != nil {
			return fmt.Errorf("add candidate: %w", err)
		}
		return nil
	})
	if err != nil {
		return model.Candidate{}, err
	}
	return c, nil
}

const candidateColumns = `round_id, code, name, seq, education, experience, training, created_at, updated_at`

func scanCandidate(row rowScanner) (model.Candidate, error) {
	var (
		c                model.Candidate
		created, updated int64
	)
	err := row.Scan(&c.RoundID, &c.Code, &c.Name, &c.Seq,
		&c.Qualification.Education, &c.Qualification.Experience, &c.Qualification.Training,
		&created, &updated)
	if err != nil {
		return model.Candidate{}, err
	}
	c.CreatedAt = fromUnixNano(created)
	c.UpdatedAt = fromUnixNano(updated)
	return c, nil
}

// GetCandidate returns one candidate with its applicant values.
func (s *SQLiteStore) GetCandidate(ctx context.Context, roundID, code string) (model.Candidate, error) {
	defer recordQuery(time.Now())
	row := s.db.QueryRowContext(ctx,
		`SELECT `+candidateColumns+` FROM candidates WHERE round_id = ? AND code = ?`, roundID, code)
	c, err := scanCandidate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Candidate{}, model.NotFoundf("candidate %s in round %s", code, roundID)
	}
	if err != nil {
		return model.Candidate{}, fmt.Errorf("get candidate: %w", err)
	}
	applicant, err := s.applicantValues(ctx, roundID, code)
	if err != nil {
		return model.Candidate{}, err
	}
	c.Applicant = applicant[code]
	return c, nil
}

// ListCandidates returns the round's candidates ordered by sequence.
func (s *SQLiteStore) ListCandidates(ctx context.Context, roundID string) ([]model.Candidate, error) {
	defer recordQuery(time.Now())
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+candidateColumns+` FROM candidates WHERE round_id = ? ORDER BY seq`, roundID)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	defer rows.Close()

	var out []model.Candidate
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	applicant, err := s.applicantValues(ctx, roundID, "")
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Applicant = applicant[out[i].Code]
	}
	return out, nil
}

// applicantValues loads raw applicant values keyed by candidate code. An
// empty code loads the whole round.
func (s *SQLiteStore) applicantValues(ctx context.Context, roundID, code string) (map[string]map[string]float64, error) {
	q := `SELECT candidate_code, field, raw FROM applicant_scores WHERE round_id = ?`
	args := []any{roundID}
	if code != "" {
		q += ` AND candidate_code = ?`
		args = append(args, code)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list applicant scores: %w", err)
	}
	defer rows.Close()

	out := make(map[string]map[string]float64)
	for rows.Next() {
		var (
			cand, field string
			raw         float64
		)
		if err := rows.Scan(&cand, &field, &raw); err != nil {
			return nil, fmt.Errorf("scan applicant score: %w", err)
		}
		if out[cand] == nil {
			out[cand] = make(map[string]float64)
		}
		out[cand][field] = raw
	}
	return out, rows.Err()
}

// UpdateQualification replaces the candidate's raw qualification values.
func (s *SQLiteStore) UpdateQualification(ctx context.Context, roundID, code string, q scoring.RawQualification, at time.Time) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := openRound(ctx, tx, roundID, "update qualification"); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx,
			`UPDATE candidates SET education = ?, experience = ?, training = ?, updated_at = ?
			WHERE round_id = ? AND code = ?`,
			q.Education, q.Experience, q.Training, unixNano(at), roundID, code)
		if err != nil {
			return fmt.Errorf("update qualification: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return model.NotFoundf("candidate %s in round %s", code, roundID)
		}
		return nil
	})
}

// SetApplicantScores upserts each field's raw value and points.
func (s *SQLiteStore) SetApplicantScores(ctx context.Context, roundID, code string, raw map[string]float64, points scoring.ApplicantScores, at time.Time) error {
	fields := make([]string, 0, len(raw))
	for f := range raw {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := openRound(ctx, tx, roundID, "set applicant scores"); err != nil {
			return err
		}
		if err := candidateExists(ctx, tx, roundID, code); err != nil {
			return err
		}
		const q = `INSERT INTO applicant_scores (round_id, candidate_code, field, raw, points)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT (round_id, candidate_code, field) DO UPDATE SET raw = excluded.raw, points = excluded.points`
		for _, f := range fields {
			if _, err := tx.ExecContext(ctx, q, roundID, code, f, raw[f], points[f]); err != nil {
				return fmt.Errorf("set applicant score %s: %w", f, err)
			}
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE candidates SET updated_at = ? WHERE round_id = ? AND code = ?`, unixNano(at), roundID, code); err != nil {
			return fmt.Errorf("touch candidate: %w", err)
		}
		return nil
	})
}
