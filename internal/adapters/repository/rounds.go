package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	model "github.com/Aimisnotavailable/DEPEDHRMPSB/internal/domain/model"
	scoring "github.com/Aimisnotavailable/DEPEDHRMPSB/internal/domain/scoring"
)

const roundColumns = `round_id, rubric_key, position_title, salary_grade,
	baseline_education, baseline_experience, baseline_training,
	rubric_json, closed, created_at, closed_at`

// CreateRound inserts a new round. An existing id is model.ErrConflict.
func (s *SQLiteStore) CreateRound(ctx context.Context, r model.Round) error {
	spec, err := json.Marshal(r.Rubric)
	if err != nil {
		return fmt.Errorf("encode rubric: %w", err)
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var one int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM rounds WHERE round_id = ?`, r.ID).Scan(&one)
		if err == nil {
			return fmt.Errorf("%w: round %s", model.ErrConflict, r.ID)
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("read round %s: %w", r.ID, err)
		}
		const q = `INSERT INTO rounds (round_id, rubric_key, position_title, salary_grade,
			baseline_education, baseline_experience, baseline_training, rubric_json, closed, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, ?)`
		_, err = tx.ExecContext(ctx, q,
			r.ID, r.RubricKey, r.PositionTitle, r.SalaryGrade,
			r.Baseline.Education, r.Baseline.Experience, r.Baseline.Training,
			string(spec), unixNano(r.CreatedAt),
		)
		if err != nil {
			return fmt.Errorf("create round: %w", err)
		}
		return nil
	})
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRound(row rowScanner) (model.Round, error) {
	var (
		r        model.Round
		spec     string
		created  int64
		closedAt sql.NullInt64
	)
	err := row.Scan(&r.ID, &r.RubricKey, &r.PositionTitle, &r.SalaryGrade,
		&r.Baseline.Education, &r.Baseline.Experience, &r.Baseline.Training,
		&spec, &r.Closed, &created, &closedAt)
	if err != nil {
		return model.Round{}, err
	}
	if err := json.Unmarshal([]byte(spec), &r.Rubric); err != nil {
		return model.Round{}, fmt.Errorf("decode rubric of round %s: %w", r.ID, err)
	}
	r.CreatedAt = fromUnixNano(created)
	if closedAt.Valid {
		t := fromUnixNano(closedAt.Int64)
		r.ClosedAt = &t
	}
	return r, nil
}

// GetRound returns the round or ErrNotFound.
func (s *SQLiteStore) GetRound(ctx context.Context, roundID string) (model.Round, error) {
	defer recordQuery(time.Now())
	row := s.db.QueryRowContext(ctx, `SELECT `+roundColumns+` FROM rounds WHERE round_id = ?`, roundID)
	r, err := scanRound(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Round{}, model.NotFoundf("round %s", roundID)
	}
	if err != nil {
		return model.Round{}, fmt.Errorf("get round: %w", err)
	}
	return r, nil
}

// ListRounds returns every round, oldest first.
func (s *SQLiteStore) ListRounds(ctx context.Context) ([]model.Round, error) {
	defer recordQuery(time.Now())
	rows, err := s.db.QueryContext(ctx, `SELECT `+roundColumns+` FROM rounds ORDER BY created_at, round_id`)
	if err != nil {
		return nil, fmt.Errorf("list rounds: %w", err)
	}
	defer rows.Close()

	var out []model.Round
	for rows.Next() {
		r, err := scanRound(rows)
		if err != nil {
			return nil, fmt.Errorf("scan round: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// CloseRound marks the round closed. It is idempotent.
func (s *SQLiteStore) CloseRound(ctx context.Context, roundID string, at time.Time) (model.Round, error) {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE rounds SET closed = 1, closed_at = ? WHERE round_id = ? AND closed = 0`,
			unixNano(at), roundID)
		if err != nil {
			return fmt.Errorf("close round: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("check rows affected: %w", err)
		}
		if n == 0 {
			var one int
			err := tx.QueryRowContext(ctx, `SELECT 1 FROM rounds WHERE round_id = ?`, roundID).Scan(&one)
			if errors.Is(err, sql.ErrNoRows) {
				return model.NotFoundf("round %s", roundID)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return model.Round{}, err
	}
	return s.GetRound(ctx, roundID)
}

// ReplaceRubric swaps the rubric while nothing has been entered for the round.
func (s *SQLiteStore) ReplaceRubric(ctx context.Context, roundID, key string, spec scoring.RubricSpec) error {
	data, err := json.Marshal(spec)
	if err != nil {
		return fmt.Errorf("encode rubric: %w", err)
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := openRound(ctx, tx, roundID, "replace rubric"); err != nil {
			return err
		}
		var active bool
		err := tx.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM candidates WHERE round_id = ?)`, roundID).Scan(&active)
		if err != nil {
			return fmt.Errorf("check round activity: %w", err)
		}
		if active {
			return fmt.Errorf("%w: round %s already has candidates", model.ErrRubricLocked, roundID)
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE rounds SET rubric_key = ?, rubric_json = ? WHERE round_id = ?`, key, string(data), roundID)
		if err != nil {
			return fmt.Errorf("replace rubric: %w", err)
		}
		return nil
	})
}
