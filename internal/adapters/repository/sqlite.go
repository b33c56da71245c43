package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	model "github.com/Aimisnotavailable/DEPEDHRMPSB/internal/domain/model"
)

// schemaV1 defines the initial database schema.
const schemaV1 = `
CREATE TABLE IF NOT EXISTS rounds (
	round_id            TEXT PRIMARY KEY,
	rubric_key          TEXT NOT NULL,
	position_title      TEXT NOT NULL,
	salary_grade        INTEGER NOT NULL DEFAULT 0,
	baseline_education  INTEGER NOT NULL DEFAULT 0,
	baseline_experience INTEGER NOT NULL DEFAULT 0,
	baseline_training   INTEGER NOT NULL DEFAULT 0,
	rubric_json         TEXT NOT NULL,
	closed              INTEGER NOT NULL DEFAULT 0,
	created_at          INTEGER NOT NULL,
	closed_at           INTEGER
);

CREATE TABLE IF NOT EXISTS candidates (
	round_id   TEXT NOT NULL REFERENCES rounds(round_id),
	code       TEXT NOT NULL,
	name       TEXT NOT NULL,
	seq        INTEGER NOT NULL,
	education  INTEGER NOT NULL DEFAULT 0,
	experience INTEGER NOT NULL DEFAULT 0,
	training   INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL,
	PRIMARY KEY (round_id, code),
	UNIQUE (round_id, seq)
);

CREATE TABLE IF NOT EXISTS applicant_scores (
	round_id       TEXT NOT NULL,
	candidate_code TEXT NOT NULL,
	field          TEXT NOT NULL,
	raw            REAL NOT NULL,
	points         REAL NOT NULL,
	PRIMARY KEY (round_id, candidate_code, field),
	FOREIGN KEY (round_id, candidate_code) REFERENCES candidates(round_id, code)
);

CREATE TABLE IF NOT EXISTS submissions (
	round_id       TEXT NOT NULL,
	candidate_code TEXT NOT NULL,
	evaluator_id   TEXT NOT NULL,
	revision       INTEGER NOT NULL DEFAULT 1,
	comment        TEXT NOT NULL DEFAULT '',
	submitted_at   INTEGER NOT NULL,
	PRIMARY KEY (round_id, candidate_code, evaluator_id),
	FOREIGN KEY (round_id, candidate_code) REFERENCES candidates(round_id, code)
);

CREATE TABLE IF NOT EXISTS submission_scores (
	round_id       TEXT NOT NULL,
	candidate_code TEXT NOT NULL,
	evaluator_id   TEXT NOT NULL,
	category       TEXT NOT NULL,
	criterion      TEXT NOT NULL,
	value          REAL NOT NULL,
	PRIMARY KEY (round_id, candidate_code, evaluator_id, category, criterion),
	FOREIGN KEY (round_id, candidate_code, evaluator_id)
		REFERENCES submissions(round_id, candidate_code, evaluator_id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_submissions_round ON submissions(round_id);
`

// NewDB opens a SQLite database at the given path with recommended pragmas
// and runs the V1 schema migration.
func NewDB(path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// One writer; transactions serialize, which is what closed-round checks rely on.
	db.SetMaxOpenConns(1)

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate schema: %w", err)
	}
	return db, nil
}

func migrate(db *sql.DB) error {
	_, err := db.ExecContext(context.Background(), schemaV1)
	return err
}

// SQLiteStore implements Store on a SQLite database.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore opens (creating if needed) the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := NewDB(path)
	if err != nil {
		return nil, err
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

// Close releases the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// withTx runs fn in a transaction, committing on success.
func (s *SQLiteStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	start := time.Now()
	defer func() { recordUpdate(start) }()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// readTx runs fn in a transaction that is always rolled back, so several
// queries see one snapshot.
func (s *SQLiteStore) readTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	defer recordQuery(time.Now())

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin read tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	return fn(tx)
}

// openRound fails unless roundID exists and is open. It is the single gate
// every mutation passes inside its transaction.
func openRound(ctx context.Context, tx *sql.Tx, roundID, op string) error {
	var closed bool
	err := tx.QueryRowContext(ctx, `SELECT closed FROM rounds WHERE round_id = ?`, roundID).Scan(&closed)
	if errors.Is(err, sql.ErrNoRows) {
		return model.NotFoundf("round %s", roundID)
	}
	if err != nil {
		return fmt.Errorf("read round %s: %w", roundID, err)
	}
	if closed {
		return &model.RoundClosedError{RoundID: roundID, Op: op}
	}
	return nil
}

func candidateExists(ctx context.Context, tx *sql.Tx, roundID, code string) error {
	var one int
	err := tx.QueryRowContext(ctx,
		`SELECT 1 FROM candidates WHERE round_id = ? AND code = ?`, roundID, code).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return model.NotFoundf("candidate %s in round %s", code, roundID)
	}
	if err != nil {
		return fmt.Errorf("read candidate %s: %w", code, err)
	}
	return nil
}

func unixNano(t time.Time) int64 { return t.UTC().UnixNano() }

func fromUnixNano(n int64) time.Time { return time.Unix(0, n).UTC() }

// Counts returns row totals for /stats.
func (s *SQLiteStore) Counts(ctx context.Context) (Counts, error) {
	defer recordQuery(time.Now())
	var c Counts
	err := s.db.QueryRowContext(ctx, `SELECT
		(SELECT COUNT(*) FROM rounds),
		(SELECT COUNT(*) FROM rounds WHERE closed = 0),
		(SELECT COUNT(*) FROM candidates),
		(SELECT COUNT(*) FROM submissions)`).Scan(&c.Rounds, &c.OpenRounds, &c.Candidates, &c.Submissions)
	if err != nil {
		return Counts{}, fmt.Errorf("count rows: %w", err)
	}
	return c, nil
}
