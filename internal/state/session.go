package state

import (
	"database/sql"
	"fmt"
	"time"
)

// SessionStatus represents the status of a routing session.
type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionCompleted SessionStatus = "completed"
	SessionFailed    SessionStatus = "failed"
)

// Session is the audit record of one routeTask call.
type Session struct {
	ID          string        `json:"id"`
	Task        string        `json:"task"`
	ProjectID   string        `json:"project_id"`
	Handler     string        `json:"handler"`
	Status      SessionStatus `json:"status"`
	StartedAt   time.Time     `json:"started_at"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
}

// Step is the audit record of one handler execution within a session.
type Step struct {
	SessionID       string        `json:"session_id"`
	Index           int           `json:"index"`
	Handler         string        `json:"handler"`
	Success         bool          `json:"success"`
	Duration        time.Duration `json:"duration"`
	HandoffTo       string        `json:"handoff_to,omitempty"`
	HandoffReason   string        `json:"handoff_reason,omitempty"`
	HandoffPriority int           `json:"handoff_priority,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
}

// CreateSession records a new active session.
// Safe to call on a nil DB (no-op).
func (db *DB) CreateSession(s Session) error {
	if db == nil {
		return nil
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	_, err := db.conn.Exec(`
		INSERT INTO sessions (id, task, project_id, handler, status, started_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, s.ID, s.Task, s.ProjectID, s.Handler, string(SessionActive), formatTime(s.StartedAt))
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// FinishSession marks a session completed or failed and records the final
// handler. Safe to call on a nil DB (no-op).
func (db *DB) FinishSession(id string, status SessionStatus, finalHandler string) error {
	if db == nil {
		return nil
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	_, err := db.conn.Exec(`
		UPDATE sessions SET status = ?, handler = ?, completed_at = ? WHERE id = ?
	`, string(status), finalHandler, formatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("finish session: %w", err)
	}
	return nil
}

// RecordStep appends a step record to a session.
// Safe to call on a nil DB (no-op).
func (db *DB) RecordStep(s Step) error {
	if db == nil {
		return nil
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	_, err := db.conn.Exec(`
		INSERT INTO steps (session_id, idx, handler, success, duration_ms, handoff_to, handoff_reason, handoff_priority, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, s.SessionID, s.Index, s.Handler, boolToInt(s.Success), s.Duration.Milliseconds(),
		s.HandoffTo, s.HandoffReason, s.HandoffPriority, formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("record step: %w", err)
	}
	return nil
}

// GetSession fetches a session by id, or nil when absent.
func (db *DB) GetSession(id string) (*Session, error) {
	if db == nil {
		return nil, nil
	}

	db.mu.RLock()
	defer db.mu.RUnlock()

	var (
		s           Session
		status      string
		startedAt   string
		completedAt sql.NullString
	)
	row := db.conn.QueryRow(`
		SELECT id, task, project_id, handler, status, started_at, completed_at
		FROM sessions WHERE id = ?
	`, id)
	if err := row.Scan(&s.ID, &s.Task, &s.ProjectID, &s.Handler, &status, &startedAt, &completedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get session: %w", err)
	}

	s.Status = SessionStatus(status)
	t, err := parseTime(startedAt)
	if err != nil {
		return nil, fmt.Errorf("parse started_at: %w", err)
	}
	s.StartedAt = t
	s.CompletedAt = parseNullableTime(completedAt)
	return &s, nil
}

// ListSteps returns a session's steps in execution order.
func (db *DB) ListSteps(sessionID string) ([]Step, error) {
	if db == nil {
		return nil, nil
	}

	db.mu.RLock()
	defer db.mu.RUnlock()

	rows, err := db.conn.Query(`
		SELECT session_id, idx, handler, success, duration_ms, handoff_to, handoff_reason, handoff_priority, created_at
		FROM steps WHERE session_id = ? ORDER BY idx
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list steps: %w", err)
	}
	defer rows.Close()

	var steps []Step
	for rows.Next() {
		var (
			s          Step
			success    int
			durationMs int64
			createdAt  string
		)
		if err := rows.Scan(&s.SessionID, &s.Index, &s.Handler, &success, &durationMs,
			&s.HandoffTo, &s.HandoffReason, &s.HandoffPriority, &createdAt); err != nil {
			return nil, fmt.Errorf("scan step: %w", err)
		}
		s.Success = success != 0
		s.Duration = time.Duration(durationMs) * time.Millisecond
		if t, err := parseTime(createdAt); err == nil {
			s.CreatedAt = t
		}
		steps = append(steps, s)
	}
	return steps, rows.Err()
}

// RecentSessions returns up to limit sessions, newest first.
func (db *DB) RecentSessions(limit int) ([]Session, error) {
	if db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}

	db.mu.RLock()
	defer db.mu.RUnlock()

	rows, err := db.conn.Query(`
		SELECT id, task, project_id, handler, status, started_at, completed_at
		FROM sessions ORDER BY started_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var (
			s           Session
			status      string
			startedAt   string
			completedAt sql.NullString
		)
		if err := rows.Scan(&s.ID, &s.Task, &s.ProjectID, &s.Handler, &status, &startedAt, &completedAt); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		s.Status = SessionStatus(status)
		if t, err := parseTime(startedAt); err == nil {
			s.StartedAt = t
		}
		s.CompletedAt = parseNullableTime(completedAt)
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
