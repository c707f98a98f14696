package memory

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"github.com/rafabd1/Paleta/internal/types"
)

const schema = `
CREATE TABLE IF NOT EXISTS submissions (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	text       TEXT    NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS submissions_created ON submissions(created_at);
CREATE TABLE IF NOT EXISTS answers (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	question   TEXT    NOT NULL,
	answer     TEXT    NOT NULL,
	created_at INTEGER NOT NULL
);`

// Journal persists submitted commands and answered queries across daemon
// restarts. Recent submissions feed the suggestion corpus.
type Journal struct {
	db *sql.DB
}

// OpenJournal opens (creating if needed) the SQLite database at path.
func OpenJournal(path string) (*Journal, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, errors.Wrap(err, "create history directory")
		}
	}
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, errors.Wrapf(err, "open history %s", path)
	}
	// a single connection keeps ":memory:" databases shared
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "migrate history")
	}
	return &Journal{db: db}, nil
}

func (j *Journal) Close() error {
	return j.db.Close()
}

// RecordSubmission stores one accepted text submission.
func (j *Journal) RecordSubmission(ctx context.Context, text string) error {
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO submissions (text, created_at) VALUES (?, ?)`,
		text, time.Now().UnixNano())
	return errors.Wrap(err, "record submission")
}

// RecordAnswer stores one answered query.
func (j *Journal) RecordAnswer(ctx context.Context, qa types.QA) error {
	at := qa.At
	if at.IsZero() {
		at = time.Now()
	}
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO answers (question, answer, created_at) VALUES (?, ?, ?)`,
		qa.Question, qa.Answer, at.UnixNano())
	return errors.Wrap(err, "record answer")
}

// RecentSubmissions returns up to limit distinct texts, most recently used
// first.
func (j *Journal) RecentSubmissions(ctx context.Context, limit int) ([]string, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT text FROM submissions
		GROUP BY text
		ORDER BY MAX(id) DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "query submissions")
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var text string
		if err := rows.Scan(&text); err != nil {
			return nil, errors.Wrap(err, "scan submission")
		}
		out = append(out, text)
	}
	return out, errors.Wrap(rows.Err(), "iterate submissions")
}

// RecentAnswers returns up to limit answered queries, oldest first.
func (j *Journal) RecentAnswers(ctx context.Context, limit int) ([]types.QA, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT question, answer, created_at FROM (
			SELECT id, question, answer, created_at FROM answers ORDER BY id DESC LIMIT ?
		) ORDER BY id ASC`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "query answers")
	}
	defer rows.Close()

	var out []types.QA
	for rows.Next() {
		var qa types.QA
		var at int64
		if err := rows.Scan(&qa.Question, &qa.Answer, &at); err != nil {
			return nil, errors.Wrap(err, "scan answer")
		}
		qa.At = time.Unix(0, at)
		out = append(out, qa)
	}
	return out, errors.Wrap(rows.Err(), "iterate answers")
}
