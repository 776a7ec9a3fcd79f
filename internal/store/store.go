// Package store persists harvest runs in SQLite so the paper stage can resume
// from the faculty list of an earlier run.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/ppiankov/facultyscope/internal/model"
)

// ErrNoRun is returned when no run with faculty records exists
var ErrNoRun = errors.New("no harvest run found")

// timeLayout sorts lexicographically in time order
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Run statuses
const (
	StatusRunning  = "running"
	StatusComplete = "complete"
	StatusFailed   = "failed"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id          TEXT PRIMARY KEY,
    started_at  TEXT NOT NULL,
    finished_at TEXT,
    status      TEXT NOT NULL,
    faculty     INTEGER NOT NULL DEFAULT 0,
    papers      INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS faculty (
    run_id           TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    position         INTEGER NOT NULL,
    person_id        TEXT NOT NULL,
    name             TEXT NOT NULL,
    college          TEXT NOT NULL,
    academic_title   TEXT NOT NULL,
    profile          TEXT NOT NULL,
    personal_website TEXT NOT NULL,
    subject          TEXT NOT NULL,
    email            TEXT NOT NULL,
    phone            TEXT NOT NULL,
    PRIMARY KEY (run_id, position)
);
CREATE TABLE IF NOT EXISTS papers (
    run_id       TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    position     INTEGER NOT NULL,
    person_id    TEXT NOT NULL,
    author_cn    TEXT NOT NULL,
    author_en    TEXT NOT NULL,
    author_email TEXT NOT NULL,
    title_cn     TEXT NOT NULL,
    title_en     TEXT NOT NULL,
    keyword_cn   TEXT NOT NULL,
    keyword_en   TEXT NOT NULL,
    article_info TEXT NOT NULL,
    PRIMARY KEY (run_id, position)
);
CREATE INDEX IF NOT EXISTS idx_faculty_name ON faculty(name);
`

// Run describes one harvest run
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Status     string
	Faculty    int
	Papers     int
}

// Store manages run persistence backed by SQLite
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// Open initializes or connects to the database at path and applies the schema
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db, path: path, now: time.Now}, nil
}

// Path returns the database file path
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// BeginRun records a new running harvest and returns its id
func (s *Store) BeginRun(ctx context.Context) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, status) VALUES (?, ?, ?)`,
		id, formatTime(s.now()), StatusRunning,
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	return id, nil
}

// FinishRun marks a run finished with the given status
func (s *Store) FinishRun(ctx context.Context, runID, status string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, status = ? WHERE id = ?`,
		formatTime(s.now()), status, runID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finish run %s: %w", runID, ErrNoRun)
	}
	return nil
}

// SaveFaculty replaces the faculty records of a run, keeping their order
func (s *Store) SaveFaculty(ctx context.Context, runID string, records []model.FacultyRecord) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM faculty WHERE run_id = ?`, runID); err != nil {
			return fmt.Errorf("clear faculty: %w", err)
		}
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO faculty (
            run_id, position, person_id, name, college, academic_title,
            profile, personal_website, subject, email, phone
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare faculty insert: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for i, r := range records {
			if _, err := stmt.ExecContext(ctx, runID, i, r.PersonID, r.Name, r.College, r.AcademicTitle,
				r.Profile, r.PersonalWebsite, r.Subject, r.Email, r.Phone); err != nil {
				return fmt.Errorf("insert faculty %s: %w", r.Name, err)
			}
		}
		_, err = tx.ExecContext(ctx, `UPDATE runs SET faculty = ? WHERE id = ?`, len(records), runID)
		return err
	})
}

// SavePapers replaces the paper records of a run, keeping their order
func (s *Store) SavePapers(ctx context.Context, runID string, papers []model.PaperRecord) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM papers WHERE run_id = ?`, runID); err != nil {
			return fmt.Errorf("clear papers: %w", err)
		}
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO papers (
            run_id, position, person_id, author_cn, author_en, author_email,
            title_cn, title_en, keyword_cn, keyword_en, article_info
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare paper insert: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for i, p := range papers {
			if _, err := stmt.ExecContext(ctx, runID, i, p.PersonID, p.AuthorCN, p.AuthorEN, p.AuthorEmail,
				p.TitleCN, p.TitleEN, p.KeywordCN, p.KeywordEN, p.ArticleInfo); err != nil {
				return fmt.Errorf("insert paper: %w", err)
			}
		}
		_, err = tx.ExecContext(ctx, `UPDATE runs SET papers = ? WHERE id = ?`, len(papers), runID)
		return err
	})
}

// LatestFaculty returns the faculty records of the most recent run that
// stored any, together with that run's id
func (s *Store) LatestFaculty(ctx context.Context) ([]model.FacultyRecord, string, error) {
	var runID string
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM runs WHERE faculty > 0 ORDER BY started_at DESC, rowid DESC LIMIT 1`,
	).Scan(&runID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", ErrNoRun
	}
	if err != nil {
		return nil, "", fmt.Errorf("find latest run: %w", err)
	}

	records, err := s.Faculty(ctx, runID)
	if err != nil {
		return nil, "", err
	}
	return records, runID, nil
}

// Faculty returns the faculty records of a run in stored order
func (s *Store) Faculty(ctx context.Context, runID string) ([]model.FacultyRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT
            person_id, name, college, academic_title, profile,
            personal_website, subject, email, phone
        FROM faculty WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("query faculty: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []model.FacultyRecord
	for rows.Next() {
		var r model.FacultyRecord
		if err := rows.Scan(&r.PersonID, &r.Name, &r.College, &r.AcademicTitle, &r.Profile,
			&r.PersonalWebsite, &r.Subject, &r.Email, &r.Phone); err != nil {
			return nil, fmt.Errorf("scan faculty: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate faculty: %w", err)
	}
	return records, nil
}

// Papers returns the paper records of a run in stored order
func (s *Store) Papers(ctx context.Context, runID string) ([]model.PaperRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT
            person_id, author_cn, author_en, author_email, title_cn,
            title_en, keyword_cn, keyword_en, article_info
        FROM papers WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("query papers: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var papers []model.PaperRecord
	for rows.Next() {
		var p model.PaperRecord
		if err := rows.Scan(&p.PersonID, &p.AuthorCN, &p.AuthorEN, &p.AuthorEmail, &p.TitleCN,
			&p.TitleEN, &p.KeywordCN, &p.KeywordEN, &p.ArticleInfo); err != nil {
			return nil, fmt.Errorf("scan paper: %w", err)
		}
		papers = append(papers, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate papers: %w", err)
	}
	return papers, nil
}

// Runs lists runs, most recent first
func (s *Store) Runs(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, started_at, finished_at, status, faculty, papers
        FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []Run
	for rows.Next() {
		var (
			run      Run
			started  string
			finished sql.NullString
		)
		if err := rows.Scan(&run.ID, &started, &finished, &run.Status, &run.Faculty, &run.Papers); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.StartedAt = parseTime(started)
		if finished.Valid {
			run.FinishedAt = parseTime(finished.String)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

func (s *Store) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
