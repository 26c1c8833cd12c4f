// Package state persists the audit trail: agent snapshots and their
// per-tool activity log survive process restarts in an SQLite database
// under the data directory.
package state

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/aide-sh/aide/pkg/models"
)

// DB wraps an SQLite connection with audit-trail operations.
type DB struct {
	conn *sql.DB
	path string
	mu   sync.RWMutex
}

// DefaultPath returns the database path under the given data directory.
func DefaultPath(dataDir string) string {
	return filepath.Join(dataDir, "aide.db")
}

// Open opens the database at path, creating parent directories, and
// applies pending migrations. WAL mode is enabled for concurrent reads.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	db := &DB{conn: conn, path: path}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.conn.Close()
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

func (db *DB) migrate() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}

	var currentVersion int
	row := db.conn.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("get schema version: %w", err)
	}

	migrations := []struct {
		version int
		sql     string
	}{
		{1, migrationV1Agents},
		{2, migrationV2Activity},
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}

		tx, err := db.conn.Begin()
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}
		if _, err := tx.Exec(m.sql); err != nil {
			tx.Rollback()
			return fmt.Errorf("apply migration v%d: %w", m.version, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", m.version); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration v%d: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration v%d: %w", m.version, err)
		}
	}

	return nil
}

const migrationV1Agents = `
CREATE TABLE IF NOT EXISTS agents (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	task_description TEXT NOT NULL,
	linked_task_id TEXT,
	state TEXT NOT NULL,
	error TEXT,
	primary_artifact TEXT,
	completion_summary TEXT,
	workspace_dir TEXT,
	input_tokens INTEGER NOT NULL DEFAULT 0,
	output_tokens INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_agents_state ON agents(state);
`

const migrationV2Activity = `
CREATE TABLE IF NOT EXISTS activity (
	id TEXT PRIMARY KEY,
	agent_id TEXT NOT NULL,
	ts DATETIME NOT NULL,
	tool TEXT NOT NULL,
	input TEXT,
	status TEXT NOT NULL,
	model TEXT,
	result TEXT,
	error TEXT,
	duration_ms INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_activity_agent_id ON activity(agent_id);
`

// SaveAgentSnapshot upserts the current agent record.
func (db *DB) SaveAgentSnapshot(ag *models.Agent) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	_, err := db.conn.Exec(`
		INSERT INTO agents (id, name, task_description, linked_task_id, state, error, primary_artifact, completion_summary, workspace_dir, input_tokens, output_tokens, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			state = excluded.state,
			error = excluded.error,
			primary_artifact = excluded.primary_artifact,
			completion_summary = excluded.completion_summary,
			workspace_dir = excluded.workspace_dir,
			input_tokens = excluded.input_tokens,
			output_tokens = excluded.output_tokens,
			updated_at = excluded.updated_at
	`, ag.ID, ag.Name, ag.TaskDescription, ag.LinkedTaskID, string(ag.State),
		ag.Error, ag.PrimaryArtifact, ag.CompletionSummary, ag.WorkspaceDir,
		ag.InputTokens, ag.OutputTokens,
		formatTime(ag.CreatedAt), formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("save agent snapshot: %w", err)
	}
	return nil
}

// RecordActivity upserts one activity log entry. Entries are written
// first in their executing form and replaced when finalized, so the row
// keyed by the entry id always reflects the latest known status.
func (db *DB) RecordActivity(agentID string, entry models.ActivityLogEntry) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	_, err := db.conn.Exec(`
		INSERT OR REPLACE INTO activity (id, agent_id, ts, tool, input, status, model, result, error, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, entry.ID, agentID, formatTime(entry.Timestamp), entry.Tool, entry.Input,
		string(entry.Status), entry.Model, entry.Result, entry.Error,
		entry.Duration.Milliseconds())
	if err != nil {
		return fmt.Errorf("record activity: %w", err)
	}
	return nil
}

// AgentRow is a persisted agent snapshot.
type AgentRow struct {
	ID                string
	Name              string
	TaskDescription   string
	LinkedTaskID      string
	State             models.AgentState
	Error             string
	PrimaryArtifact   string
	CompletionSummary string
	WorkspaceDir      string
	InputTokens       int64
	OutputTokens      int64
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// ListAgents returns all persisted agent snapshots, newest first.
func (db *DB) ListAgents() ([]AgentRow, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	rows, err := db.conn.Query(`
		SELECT id, name, task_description, COALESCE(linked_task_id, ''), state,
		       COALESCE(error, ''), COALESCE(primary_artifact, ''),
		       COALESCE(completion_summary, ''), COALESCE(workspace_dir, ''),
		       input_tokens, output_tokens, created_at, updated_at
		FROM agents ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	defer rows.Close()

	var out []AgentRow
	for rows.Next() {
		var r AgentRow
		var state, createdAt, updatedAt string
		if err := rows.Scan(&r.ID, &r.Name, &r.TaskDescription, &r.LinkedTaskID,
			&state, &r.Error, &r.PrimaryArtifact, &r.CompletionSummary,
			&r.WorkspaceDir, &r.InputTokens, &r.OutputTokens,
			&createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan agent row: %w", err)
		}
		r.State = models.AgentState(state)
		r.CreatedAt, _ = parseTime(createdAt)
		r.UpdatedAt, _ = parseTime(updatedAt)
		out = append(out, r)
	}
	return out, rows.Err()
}

// ListActivity returns the activity log for one agent in timestamp order.
func (db *DB) ListActivity(agentID string) ([]models.ActivityLogEntry, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	rows, err := db.conn.Query(`
		SELECT id, ts, tool, COALESCE(input, ''), status, COALESCE(model, ''),
		       COALESCE(result, ''), COALESCE(error, ''), duration_ms
		FROM activity WHERE agent_id = ? ORDER BY ts, id
	`, agentID)
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	defer rows.Close()

	var out []models.ActivityLogEntry
	for rows.Next() {
		var e models.ActivityLogEntry
		var ts, status string
		var input []byte
		var durationMs int64
		if err := rows.Scan(&e.ID, &ts, &e.Tool, &input, &status, &e.Model,
			&e.Result, &e.Error, &durationMs); err != nil {
			return nil, fmt.Errorf("scan activity row: %w", err)
		}
		e.Input = json.RawMessage(input)
		e.Timestamp, _ = parseTime(ts)
		e.Status = models.ActivityStatus(status)
		e.Duration = time.Duration(durationMs) * time.Millisecond
		out = append(out, e)
	}
	return out, rows.Err()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}
