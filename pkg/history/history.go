// Package history records push and deployment runs in a single-file SQLite
// database so past runs survive across invocations.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/panshift/panshift/pkg/deploy"
	"github.com/panshift/panshift/pkg/push"
)

// Store is the run-history database. SQLite allows one writer, so the
// connection pool is pinned to a single connection.
type Store struct {
	db *sql.DB
}

// DefaultPath returns the history database location, ~/.panshift/history.db.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("history: get home directory: %w", err)
	}
	return filepath.Join(home, ".panshift", "history.db"), nil
}

// Open opens or creates the history database at path. An empty path uses
// DefaultPath.
func Open(path string) (*Store, error) {
	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return nil, err
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("history: create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history: open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS push_runs (
			id TEXT PRIMARY KEY,
			started TEXT NOT NULL,
			ended TEXT NOT NULL,
			total INTEGER NOT NULL,
			created INTEGER NOT NULL,
			updated INTEGER NOT NULL,
			skipped INTEGER NOT NULL,
			renamed INTEGER NOT NULL,
			failed INTEGER NOT NULL,
			errors INTEGER NOT NULL,
			strategy TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_push_runs_started
			ON push_runs(started DESC)`,
		`CREATE TABLE IF NOT EXISTS deployments (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			status TEXT NOT NULL,
			phase TEXT NOT NULL,
			firewalls INTEGER NOT NULL,
			failed INTEGER NOT NULL,
			verified INTEGER NOT NULL,
			started TEXT NOT NULL,
			ended TEXT NOT NULL,
			message TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_deployments_name_started
			ON deployments(name, started DESC)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("history: initialize schema: %w", err)
		}
	}
	return nil
}

// PushRun is one recorded configuration push.
type PushRun struct {
	ID        string
	StartedAt time.Time
	EndedAt   time.Time
	Total     int
	Created   int
	Updated   int
	Skipped   int
	Renamed   int
	Failed    int
	Errors    int
	Strategy  string
}

// DeploymentRun is one recorded deployment.
type DeploymentRun struct {
	ID        string
	Name      string
	Status    string
	Phase     string
	Firewalls int
	Failed    int
	Verified  bool
	StartedAt time.Time
	EndedAt   time.Time
	Message   string
}

// RecordPush stores a push summary and returns the run's id.
func (s *Store) RecordPush(ctx context.Context, sum *push.Summary) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO push_runs
			(id, started, ended, total, created, updated, skipped, renamed,
			 failed, errors, strategy)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id,
		formatTime(sum.StartedAt),
		formatTime(sum.EndedAt),
		sum.Total,
		sum.Created,
		sum.Updated,
		sum.Skipped,
		sum.Renamed,
		sum.Failed,
		len(sum.Errors),
		string(sum.Strategy),
	)
	if err != nil {
		return "", fmt.Errorf("history: record push run: %w", err)
	}
	return id, nil
}

// RecordDeployment stores a deployment result and returns the run's id.
func (s *Store) RecordDeployment(ctx context.Context, res *deploy.Result) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO deployments
			(id, name, status, phase, firewalls, failed, verified, started,
			 ended, message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id,
		res.Deployment,
		string(res.Status),
		string(res.Phase),
		len(res.FirewallResults),
		res.FailedFirewalls(),
		boolInt(res.Verified),
		formatTime(res.StartedAt),
		formatTime(res.EndedAt),
		res.Message,
	)
	if err != nil {
		return "", fmt.Errorf("history: record deployment: %w", err)
	}
	return id, nil
}

// ListPushRuns returns the most recent push runs, newest first.
func (s *Store) ListPushRuns(ctx context.Context, limit int) ([]PushRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started, ended, total, created, updated, skipped, renamed,
		       failed, errors, strategy
		FROM push_runs
		ORDER BY started DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("history: query push runs: %w", err)
	}
	defer rows.Close()

	var runs []PushRun
	for rows.Next() {
		run, err := scanPushRun(rows)
		if err != nil {
			return nil, fmt.Errorf("history: scan push run: %w", err)
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: iterate push runs: %w", err)
	}
	return runs, nil
}

// ListDeployments returns recorded deployments, newest first. An empty name
// lists runs across all deployments.
func (s *Store) ListDeployments(ctx context.Context, name string, limit int) ([]DeploymentRun, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `
		SELECT id, name, status, phase, firewalls, failed, verified, started,
		       ended, message
		FROM deployments`
	args := []any{}
	if name != "" {
		query += ` WHERE name = ?`
		args = append(args, name)
	}
	query += ` ORDER BY started DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("history: query deployments: %w", err)
	}
	defer rows.Close()

	var runs []DeploymentRun
	for rows.Next() {
		run, err := scanDeploymentRun(rows)
		if err != nil {
			return nil, fmt.Errorf("history: scan deployment: %w", err)
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: iterate deployments: %w", err)
	}
	return runs, nil
}

// LatestDeployment returns the newest run for a deployment, nil when the
// name has no history.
func (s *Store) LatestDeployment(ctx context.Context, name string) (*DeploymentRun, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, status, phase, firewalls, failed, verified, started,
		       ended, message
		FROM deployments
		WHERE name = ?
		ORDER BY started DESC
		LIMIT 1`, name)

	run, err := scanDeploymentRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("history: query latest deployment: %w", err)
	}
	return run, nil
}

// scanner covers *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanPushRun(sc scanner) (*PushRun, error) {
	var run PushRun
	var started, ended string
	err := sc.Scan(
		&run.ID, &started, &ended,
		&run.Total, &run.Created, &run.Updated, &run.Skipped, &run.Renamed,
		&run.Failed, &run.Errors, &run.Strategy,
	)
	if err != nil {
		return nil, err
	}
	if run.StartedAt, err = parseTime(started); err != nil {
		return nil, err
	}
	if run.EndedAt, err = parseTime(ended); err != nil {
		return nil, err
	}
	return &run, nil
}

func scanDeploymentRun(sc scanner) (*DeploymentRun, error) {
	var run DeploymentRun
	var verified int
	var started, ended string
	var message sql.NullString
	err := sc.Scan(
		&run.ID, &run.Name, &run.Status, &run.Phase,
		&run.Firewalls, &run.Failed, &verified,
		&started, &ended, &message,
	)
	if err != nil {
		return nil, err
	}
	run.Verified = verified != 0
	run.Message = message.String
	if run.StartedAt, err = parseTime(started); err != nil {
		return nil, err
	}
	if run.EndedAt, err = parseTime(ended); err != nil {
		return nil, err
	}
	return &run, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("history: parse timestamp %q: %w", s, err)
	}
	return t, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
