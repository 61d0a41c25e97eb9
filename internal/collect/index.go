package collect

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/giantswarm/kubelab/internal/fileutil"
)

// IndexFileName is the run index database's filename inside an output
// directory.
const IndexFileName = "runs.db"

const indexSchema = `
CREATE TABLE IF NOT EXISTS runs (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	cluster_id  TEXT NOT NULL,
	scenario    TEXT NOT NULL,
	created_at  TEXT NOT NULL,
	commands    INTEGER NOT NULL DEFAULT 0,
	failures    INTEGER NOT NULL DEFAULT 0,
	report_path TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS runs_cluster_idx ON runs (cluster_id, created_at);
`

// Index is the SQLite catalog of past collection runs, kept next to the
// archived files so the directory is self-describing.
type Index struct {
	db *sql.DB
}

// OpenIndex opens (and if needed initializes) the run index at path.
func OpenIndex(path string) (*Index, error) {
	if path == "" {
		return nil, fmt.Errorf("index path must not be empty")
	}
	if err := fileutil.EnsureDirForFile(path); err != nil {
		return nil, fmt.Errorf("prepare run index directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(30000)&_pragma=synchronous(NORMAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening run index %q: %w", path, err)
	}
	// modernc.org/sqlite serializes writers; a single connection avoids
	// SQLITE_BUSY churn entirely.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(indexSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing run index schema: %w", err)
	}
	return &Index{db: db}, nil
}

// Record inserts one completed run with its command and failure counts.
func (i *Index) Record(ctx context.Context, report *Report) error {
	failures := 0
	for _, a := range report.Assessments {
		if a.Result.ExitCode != 0 {
			failures++
		}
	}
	_, err := i.db.ExecContext(ctx,
		`INSERT INTO runs (cluster_id, scenario, created_at, commands, failures, report_path) VALUES (?, ?, ?, ?, ?, ?)`,
		report.ClusterID, report.Scenario, report.Timestamp.Format(time.RFC3339),
		len(report.Assessments), failures, report.Path)
	if err != nil {
		return fmt.Errorf("recording run: %w", err)
	}
	return nil
}

// Run is one row of the index.
type Run struct {
	ID         int64
	ClusterID  string
	Scenario   string
	CreatedAt  time.Time
	Commands   int
	Failures   int
	ReportPath string
}

// Recent returns up to limit runs, newest first.
func (i *Index) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := i.db.QueryContext(ctx,
		`SELECT id, cluster_id, scenario, created_at, commands, failures, report_path FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var createdAt string
		if err := rows.Scan(&r.ID, &r.ClusterID, &r.Scenario, &createdAt, &r.Commands, &r.Failures, &r.ReportPath); err != nil {
			return nil, fmt.Errorf("scanning run row: %w", err)
		}
		if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
			r.CreatedAt = t
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating run rows: %w", err)
	}
	return runs, nil
}

// Close releases the underlying database handle.
func (i *Index) Close() error {
	return i.db.Close()
}
