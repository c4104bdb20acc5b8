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

package sessionstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// GetLogsByNode returns every log entry for (sessionID, nodeID) in
// timestamp order.
func (s *Store) GetLogsByNode(ctx context.Context, sessionID, nodeID string) ([]LogEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, node_id, label, level, action_name, exit_code, duration_ms, message, timestamp
		FROM logs WHERE session_id = ? AND node_id = ?
		ORDER BY id ASC
	`, sessionID, nodeID)
	if err != nil {
		return nil, fmt.Errorf("failed to query logs by node: %w", err)
	}
	defer rows.Close()
	return scanLogEntries(rows)
}

// GetLogsByLevel returns every log entry for sessionID at or above minLevel.
func (s *Store) GetLogsByLevel(ctx context.Context, sessionID string, minLevel Level) ([]LogEntry, error) {
	allLevels := []Level{LevelDebug, LevelInfo, LevelWarn, LevelError}
	var included []string
	for _, lvl := range allLevels {
		if levelRank[lvl] >= levelRank[minLevel] {
			included = append(included, string(lvl))
		}
	}

	query := `SELECT id, session_id, node_id, label, level, action_name, exit_code, duration_ms, message, timestamp
		FROM logs WHERE session_id = ? AND level IN (`
	args := []any{sessionID}
	for i, lvl := range included {
		if i > 0 {
			query += ", "
		}
		query += "?"
		args = append(args, lvl)
	}
	query += ") ORDER BY id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query logs by level: %w", err)
	}
	defer rows.Close()
	return scanLogEntries(rows)
}

func scanLogEntries(rows *sql.Rows) ([]LogEntry, error) {
	var entries []LogEntry
	for rows.Next() {
		var e LogEntry
		var nodeID, label, actionName, timestamp sql.NullString
		var exitCode, durationMs sql.NullInt64

		if err := rows.Scan(&e.ID, &e.SessionID, &nodeID, &label, &e.Level, &actionName, &exitCode, &durationMs, &e.Message, &timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan log entry: %w", err)
		}

		e.NodeID = nodeID.String
		e.Label = label.String
		e.ActionName = actionName.String
		if exitCode.Valid {
			v := int(exitCode.Int64)
			e.ExitCode = &v
		}
		if durationMs.Valid {
			v := durationMs.Int64
			e.DurationMs = &v
		}
		if timestamp.Valid {
			e.Timestamp, _ = time.Parse(time.RFC3339, timestamp.String)
		}

		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// GetSummary aggregates node results for a session: nodeCount is the number
// of distinct nodeIds in node_results if non-empty, else the session's
// header value.
func (s *Store) GetSummary(ctx context.Context, sessionID string) (*Summary, error) {
	sess, err := s.getSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, node_id, status, reason, updated_at
		FROM node_results WHERE session_id = ?
		ORDER BY node_id ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query node results: %w", err)
	}
	defer rows.Close()

	var results []NodeResult
	successCount, failedCount := 0, 0
	for rows.Next() {
		var r NodeResult
		var reason, updatedAt sql.NullString
		if err := rows.Scan(&r.SessionID, &r.NodeID, &r.Status, &reason, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan node result: %w", err)
		}
		r.Reason = reason.String
		if updatedAt.Valid {
			r.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt.String)
		}
		if r.Status == NodeStatusSuccess {
			successCount++
		} else {
			failedCount++
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	nodeCount := len(results)
	if nodeCount == 0 {
		nodeCount = sess.NodeCount
	}

	return &Summary{
		Session:      *sess,
		NodeCount:    nodeCount,
		SuccessCount: successCount,
		FailedCount:  failedCount,
		NodeResults:  results,
	}, nil
}

func (s *Store) getSession(ctx context.Context, sessionID string) (*Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, workflow_name, overlay_name, inventory_name, node_count,
			started_at, ended_at, status, cwd, git_commit, git_branch, command_line, version, version_commit
		FROM sessions WHERE id = ?
	`, sessionID)

	return scanSession(row)
}

func scanSession(row *sql.Row) (*Session, error) {
	var sess Session
	var overlay, inventoryName, endedAt, status, cwd, gitCommit, gitBranch, commandLine, version, versionCommit sql.NullString
	var startedAt string

	err := row.Scan(&sess.ID, &sess.WorkflowName, &overlay, &inventoryName, &sess.NodeCount,
		&startedAt, &endedAt, &status, &cwd, &gitCommit, &gitBranch, &commandLine, &version, &versionCommit)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("session not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan session: %w", err)
	}

	sess.OverlayName = overlay.String
	sess.InventoryName = inventoryName.String
	sess.Status = SessionStatus(status.String)
	sess.Cwd = cwd.String
	sess.GitCommit = gitCommit.String
	sess.GitBranch = gitBranch.String
	sess.CommandLine = commandLine.String
	sess.Version = version.String
	sess.VersionCommit = versionCommit.String
	sess.StartedAt, _ = time.Parse(time.RFC3339, startedAt)
	if endedAt.Valid {
		t, _ := time.Parse(time.RFC3339, endedAt.String)
		sess.EndedAt = &t
	}

	return &sess, nil
}

// ListSessions returns the most recent limit sessions, newest first.
func (s *Store) ListSessions(ctx context.Context, limit int) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, workflow_name, overlay_name, inventory_name, node_count,
			started_at, ended_at, status, cwd, git_commit, git_branch, command_line, version, version_commit
		FROM sessions ORDER BY started_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var sess Session
		var overlay, inventoryName, endedAt, status, cwd, gitCommit, gitBranch, commandLine, version, versionCommit sql.NullString
		var startedAt string

		if err := rows.Scan(&sess.ID, &sess.WorkflowName, &overlay, &inventoryName, &sess.NodeCount,
			&startedAt, &endedAt, &status, &cwd, &gitCommit, &gitBranch, &commandLine, &version, &versionCommit); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}

		sess.OverlayName = overlay.String
		sess.InventoryName = inventoryName.String
		sess.Status = SessionStatus(status.String)
		sess.Cwd = cwd.String
		sess.GitCommit = gitCommit.String
		sess.GitBranch = gitBranch.String
		sess.CommandLine = commandLine.String
		sess.Version = version.String
		sess.VersionCommit = versionCommit.String
		sess.StartedAt, _ = time.Parse(time.RFC3339, startedAt)
		if endedAt.Valid {
			t, _ := time.Parse(time.RFC3339, endedAt.String)
			sess.EndedAt = &t
		}

		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// GetLatestSessionID returns the most recently started session's ID.
func (s *Store) GetLatestSessionID(ctx context.Context) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `SELECT id FROM sessions ORDER BY started_at DESC LIMIT 1`).Scan(&id)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("no sessions recorded")
	}
	if err != nil {
		return "", fmt.Errorf("failed to get latest session id: %w", err)
	}
	return id, nil
}
