// Package journal appends access-control decisions to a SQLite audit log.
// Journal failures are logged-and-dropped by the caller; the entry state
// machine never depends on a successful write.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/sweeney/dtmf-gate/internal/entry"
)

const schema = `
CREATE TABLE IF NOT EXISTS decisions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session TEXT NOT NULL,
	ts TEXT NOT NULL,
	pin TEXT NOT NULL,
	function TEXT NOT NULL,
	valid INTEGER NOT NULL CHECK(valid IN (0,1))
);

CREATE INDEX IF NOT EXISTS decisions_ts ON decisions(ts);
`

// Journal is an append-only decision log backed by SQLite.
type Journal struct {
	db *sql.DB
}

// Record is one journaled decision.
type Record struct {
	Session  string
	Time     time.Time
	Pin      string
	Function string
	Valid    bool
}

// Open creates or opens the journal database at path.
func Open(ctx context.Context, path string) (*Journal, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create journal dir: %w", err)
		}
	}
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping journal: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply journal schema: %w", err)
	}
	return &Journal{db: db}, nil
}

// Append records one decision.
func (j *Journal) Append(ctx context.Context, session string, outcome entry.Outcome) error {
	valid := 0
	if outcome.Valid {
		valid = 1
	}
	_, err := j.db.ExecContext(ctx, `
INSERT INTO decisions(session, ts, pin, function, valid)
VALUES (?, ?, ?, ?, ?)
`, session, outcome.Timestamp.UTC().Format(time.RFC3339Nano), outcome.Code, outcome.Label, valid)
	if err != nil {
		return fmt.Errorf("append decision: %w", err)
	}
	return nil
}

// Recent returns the newest decisions, most recent first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Record, error) {
	rows, err := j.db.QueryContext(ctx, `
SELECT session, ts, pin, function, valid
FROM decisions ORDER BY id DESC LIMIT ?
`, limit)
	if err != nil {
		return nil, fmt.Errorf("query decisions: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		var ts string
		var valid int
		if err := rows.Scan(&r.Session, &ts, &r.Pin, &r.Function, &valid); err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			r.Time = t
		}
		r.Valid = valid == 1
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate decisions: %w", err)
	}
	return out, nil
}

// Close closes the database.
func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}
