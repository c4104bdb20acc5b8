// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package sessionstore is the durable, SQLite-backed log of every session's
// messages and action results. Writes are expected to arrive from a single
// caller (the kernel's dedicated log-writer actor, see internal/actor) so
// they are never reordered with respect to one producer; reads bypass that
// discipline and hit storage directly, since they are safe to run
// concurrently against a single writer.
package sessionstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Level is a log severity, ordered DEBUG < INFO < WARN < ERROR.
type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

var levelRank = map[Level]int{
	LevelDebug: 0,
	LevelInfo:  1,
	LevelWarn:  2,
	LevelError: 3,
}

// NodeStatus is the latest-marker status of one node within a session.
type NodeStatus string

const (
	NodeStatusSuccess NodeStatus = "success"
	NodeStatusFailed  NodeStatus = "failed"
)

// SessionStatus is the terminal or in-progress status of a whole session.
type SessionStatus string

const (
	SessionRunning   SessionStatus = "RUNNING"
	SessionCompleted SessionStatus = "COMPLETED"
	SessionFailed    SessionStatus = "FAILED"
	SessionAborted   SessionStatus = "ABORTED"
)

// Session is one row of the sessions table.
type Session struct {
	ID            string
	WorkflowName  string
	OverlayName   string
	InventoryName string
	NodeCount     int
	StartedAt     time.Time
	EndedAt       *time.Time
	Status        SessionStatus
	Cwd           string
	GitCommit     string
	GitBranch     string
	CommandLine   string
	Version       string
	VersionCommit string
}

// LogEntry is one row of the logs table.
type LogEntry struct {
	ID         int64
	SessionID  string
	NodeID     string
	Label      string
	Level      Level
	ActionName string
	ExitCode   *int
	DurationMs *int64
	Message    string
	Timestamp  time.Time
}

// NodeResult is the latest marker for one (sessionID, nodeID) pair.
type NodeResult struct {
	SessionID string
	NodeID    string
	Status    NodeStatus
	Reason    string
	UpdatedAt time.Time
}

// Summary aggregates a session's node results, as returned by GetSummary
// (C10).
type Summary struct {
	Session      Session
	NodeCount    int
	SuccessCount int
	FailedCount  int
	NodeResults  []NodeResult
}

// Config configures the on-disk SQLite database.
type Config struct {
	// Path is the database file path.
	Path string

	// WAL enables Write-Ahead Logging for concurrent reads against the
	// single writer connection.
	WAL bool
}

// Store is the SQLite-backed session log store.
type Store struct {
	db *sql.DB
}

// New opens (creating if absent) the session database at cfg.Path, enforces
// the single-writer-connection discipline, and runs migrations.
func New(cfg Config) (*Store, error) {
	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open session store: %w", err)
	}

	// SQLite serializes writes; one connection keeps that explicit instead
	// of relying on busy_timeout retries under concurrent writers.
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to session store: %w", err)
	}

	s := &Store{db: db}

	if err := s.configurePragmas(ctx, cfg.WAL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to configure pragmas: %w", err)
	}

	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) configurePragmas(ctx context.Context, enableWAL bool) error {
	pragmas := []string{
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
		"PRAGMA auto_vacuum=INCREMENTAL",
		"PRAGMA synchronous=NORMAL",
	}
	if enableWAL {
		pragmas = append(pragmas, "PRAGMA journal_mode=WAL")
	}
	for _, pragma := range pragmas {
		if _, err := s.db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("failed to execute %s: %w", pragma, err)
		}
	}
	return nil
}

func (s *Store) migrate(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			workflow_name TEXT NOT NULL,
			overlay_name TEXT,
			inventory_name TEXT,
			node_count INTEGER DEFAULT 0,
			started_at TEXT NOT NULL,
			ended_at TEXT,
			status TEXT,
			cwd TEXT,
			git_commit TEXT,
			git_branch TEXT,
			command_line TEXT,
			version TEXT,
			version_commit TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_started_at ON sessions(started_at)`,
		`CREATE TABLE IF NOT EXISTS logs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			node_id TEXT,
			label TEXT,
			level TEXT NOT NULL,
			action_name TEXT,
			exit_code INTEGER,
			duration_ms INTEGER,
			message TEXT NOT NULL,
			timestamp TEXT NOT NULL,
			FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_logs_session_node ON logs(session_id, node_id)`,
		`CREATE INDEX IF NOT EXISTS idx_logs_session_level ON logs(session_id, level)`,
		`CREATE TABLE IF NOT EXISTS node_results (
			session_id TEXT NOT NULL,
			node_id TEXT NOT NULL,
			status TEXT NOT NULL,
			reason TEXT,
			updated_at TEXT NOT NULL,
			PRIMARY KEY (session_id, node_id),
			FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
		)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.ExecContext(ctx, migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// StartSession inserts a new session row and returns its generated ID.
func (s *Store) StartSession(ctx context.Context, name, overlay, inventoryName string, nodeCount int, opts SessionOptions) (string, error) {
	id := uuid.NewString()
	now := time.Now()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, workflow_name, overlay_name, inventory_name, node_count,
			started_at, status, cwd, git_commit, git_branch, command_line, version, version_commit)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		id, name, nullString(overlay), nullString(inventoryName), nodeCount,
		now.Format(time.RFC3339), string(SessionRunning),
		nullString(opts.Cwd), nullString(opts.GitCommit), nullString(opts.GitBranch),
		nullString(opts.CommandLine), nullString(opts.Version), nullString(opts.VersionCommit),
	)
	if err != nil {
		return "", fmt.Errorf("failed to start session: %w", err)
	}
	return id, nil
}

// SessionOptions carries the optional context fields startSession accepts.
type SessionOptions struct {
	Cwd           string
	GitCommit     string
	GitBranch     string
	CommandLine   string
	Version       string
	VersionCommit string
}

// Log appends a message-only log entry.
func (s *Store) Log(ctx context.Context, sessionID, nodeID, label string, level Level, message string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO logs (session_id, node_id, label, level, message, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)
	`, sessionID, nullString(nodeID), nullString(label), string(level), message, time.Now().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to write log entry: %w", err)
	}
	return nil
}

// LogAction appends a completed-action record. Level is derived: INFO when
// exitCode == 0, ERROR otherwise.
func (s *Store) LogAction(ctx context.Context, sessionID, nodeID, label, actionName string, exitCode int, durationMs int64, output string) error {
	level := LevelInfo
	if exitCode != 0 {
		level = LevelError
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO logs (session_id, node_id, label, level, action_name, exit_code, duration_ms, message, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, sessionID, nullString(nodeID), nullString(label), string(level), actionName, exitCode, durationMs, output, time.Now().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to write action log: %w", err)
	}
	return nil
}

// markNode upserts the latest-wins node_results row.
func (s *Store) markNode(ctx context.Context, sessionID, nodeID string, status NodeStatus, reason string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO node_results (session_id, node_id, status, reason, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (session_id, node_id) DO UPDATE SET
			status = excluded.status,
			reason = excluded.reason,
			updated_at = excluded.updated_at
	`, sessionID, nodeID, string(status), nullString(reason), time.Now().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to mark node %s: %w", nodeID, err)
	}
	return nil
}

// MarkNodeSuccess records the latest success marker for nodeID.
func (s *Store) MarkNodeSuccess(ctx context.Context, sessionID, nodeID, reason string) error {
	return s.markNode(ctx, sessionID, nodeID, NodeStatusSuccess, reason)
}

// MarkNodeFailed records the latest failure marker for nodeID.
func (s *Store) MarkNodeFailed(ctx context.Context, sessionID, nodeID, reason string) error {
	return s.markNode(ctx, sessionID, nodeID, NodeStatusFailed, reason)
}

// EndSession sets the terminal status and ended_at timestamp.
func (s *Store) EndSession(ctx context.Context, sessionID string, status SessionStatus) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET status = ?, ended_at = ? WHERE id = ?
	`, string(status), time.Now().Format(time.RFC3339), sessionID)
	if err != nil {
		return fmt.Errorf("failed to end session: %w", err)
	}
	return nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
