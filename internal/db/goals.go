package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/chris/plana/internal/timewin"
	"github.com/google/uuid"
)

// Goal statuses.
const (
	StatusActive    = "active"
	StatusPaused    = "paused"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
	StatusFailed    = "failed"
)

type Goal struct {
	GoalID         string         `json:"goal_id"`
	Name           string         `json:"name"`
	Description    string         `json:"description"`
	GoalType       string         `json:"goal_type"`
	Priority       string         `json:"priority"`
	CreatorID      string         `json:"creator_id"`
	ChatID         string         `json:"chat_id"`
	Status         string         `json:"status"`
	Deadline       string         `json:"deadline,omitempty"`
	Parameters     map[string]any `json:"parameters,omitempty"`
	Conditions     map[string]any `json:"conditions,omitempty"`
	Progress       int            `json:"progress"`
	LastExecutedAt string         `json:"last_executed_at,omitempty"`
	ExecutionCount int            `json:"execution_count"`
	CreatedAt      string         `json:"created_at"`
}

// GoalInput carries the fields for creating a goal.
type GoalInput struct {
	Name        string
	Description string
	GoalType    string
	Priority    string
	CreatorID   string
	ChatID      string
	Deadline    string
	Parameters  map[string]any
	Conditions  map[string]any
}

// TimeWindow returns the goal's scheduled window, reading the current
// location (parameters) first and falling back to the legacy location
// (conditions) for old records. The second return is false when the goal
// carries no usable window.
func (g *Goal) TimeWindow() (timewin.Window, bool) {
	if w, ok := windowFrom(g.Parameters); ok {
		return w, true
	}
	return windowFrom(g.Conditions)
}

func windowFrom(m map[string]any) (timewin.Window, bool) {
	raw, ok := m["time_window"]
	if !ok {
		return timewin.Window{}, false
	}
	pair, ok := raw.([]any)
	if !ok || len(pair) < 2 {
		return timewin.Window{}, false
	}
	start, ok1 := asInt(pair[0])
	end, ok2 := asInt(pair[1])
	if !ok1 || !ok2 {
		return timewin.Window{}, false
	}
	w, err := timewin.Normalize(start, end)
	if err != nil {
		return timewin.Window{}, false
	}
	return w, true
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case float64: // decoded JSON numbers
		return int(n), true
	case int:
		return n, true
	case int64:
		return int(n), true
	}
	return 0, false
}

const goalColumns = `goal_id, name, description, goal_type, priority, creator_id, chat_id, status,
	COALESCE(deadline,''), COALESCE(parameters,''), COALESCE(conditions,''), progress,
	COALESCE(last_executed_at,''), execution_count, created_at`

// CreateGoal inserts a single goal and returns its generated ID.
func (d *DB) CreateGoal(in GoalInput) (string, error) {
	id := uuid.NewString()
	if err := insertGoal(d.conn, id, in); err != nil {
		return "", err
	}
	return id, nil
}

// CreateGoalsBatch inserts all goals in one transaction. Either every
// goal is created or none are.
func (d *DB) CreateGoalsBatch(inputs []GoalInput) ([]string, error) {
	tx, err := d.conn.Begin()
	if err != nil {
		return nil, fmt.Errorf("starting batch: %w", err)
	}
	defer tx.Rollback()

	ids := make([]string, 0, len(inputs))
	for _, in := range inputs {
		id := uuid.NewString()
		if err := insertGoal(tx, id, in); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing batch: %w", err)
	}
	return ids, nil
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func insertGoal(e execer, id string, in GoalInput) error {
	if in.Name == "" {
		return fmt.Errorf("creating goal: name is required")
	}
	if in.GoalType == "" {
		in.GoalType = "custom"
	}
	if in.Priority == "" {
		in.Priority = "medium"
	}
	_, err := e.Exec(
		`INSERT INTO goals (goal_id, name, description, goal_type, priority, creator_id, chat_id, deadline, parameters, conditions)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, in.Name, in.Description, in.GoalType, in.Priority, in.CreatorID, in.ChatID,
		nullStr(in.Deadline), nullJSON(in.Parameters), nullJSON(in.Conditions),
	)
	if err != nil {
		return fmt.Errorf("creating goal %q: %w", in.Name, err)
	}
	return nil
}

// GetGoal returns a goal by ID, or nil when it does not exist.
func (d *DB) GetGoal(goalID string) (*Goal, error) {
	row := d.conn.QueryRow("SELECT "+goalColumns+" FROM goals WHERE goal_id = ?", goalID)
	g, err := scanGoal(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting goal %s: %w", goalID, err)
	}
	return g, nil
}

// ListGoals returns goals filtered by chat and/or status, newest first.
func (d *DB) ListGoals(chatID, status string) ([]Goal, error) {
	q := "SELECT " + goalColumns + " FROM goals WHERE 1=1"
	var args []any
	if chatID != "" {
		q += " AND chat_id = ?"
		args = append(args, chatID)
	}
	if status != "" {
		q += " AND status = ?"
		args = append(args, status)
	}
	q += " ORDER BY created_at DESC, goal_id"
	return d.scanGoals(q, args...)
}

// ListScheduleGoals returns active schedule goals (those carrying a time
// window) created on the given date, ordered by window start.
func (d *DB) ListScheduleGoals(chatID, date string) ([]Goal, error) {
	q := "SELECT " + goalColumns + ` FROM goals
		WHERE chat_id = ? AND status = ? AND date(created_at) = ?
		  AND parameters LIKE '%"time_window"%'`
	goals, err := d.scanGoals(q, chatID, StatusActive, date)
	if err != nil {
		return nil, err
	}
	sortGoalsByWindow(goals)
	return goals, nil
}

func sortGoalsByWindow(goals []Goal) {
	// Insertion sort keeps this dependency-free; schedule days are small.
	for i := 1; i < len(goals); i++ {
		for j := i; j > 0; j-- {
			wa, _ := goals[j-1].TimeWindow()
			wb, _ := goals[j].TimeWindow()
			if wb.Start >= wa.Start {
				break
			}
			goals[j-1], goals[j] = goals[j], goals[j-1]
		}
	}
}

// UpdateGoal updates a goal's fields, restricted to the allowed column set.
func (d *DB) UpdateGoal(goalID string, fields map[string]any) error {
	return d.updateGoalRow(goalID, fields)
}

// SetGoalStatus moves a goal to the given lifecycle status.
func (d *DB) SetGoalStatus(goalID, status string) error {
	switch status {
	case StatusActive, StatusPaused, StatusCompleted, StatusCancelled, StatusFailed:
	default:
		return fmt.Errorf("unknown goal status %q", status)
	}
	return d.updateGoalRow(goalID, map[string]any{"status": status})
}

// SetGoalProgress records progress, clamped to 0-100.
func (d *DB) SetGoalProgress(goalID string, progress int) error {
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	return d.updateGoalRow(goalID, map[string]any{"progress": progress})
}

// MarkGoalExecuted bumps the execution bookkeeping on a goal.
func (d *DB) MarkGoalExecuted(goalID string) error {
	res, err := d.conn.Exec(
		`UPDATE goals SET last_executed_at = datetime('now'), execution_count = execution_count + 1,
		 updated_at = datetime('now') WHERE goal_id = ?`, goalID)
	if err != nil {
		return fmt.Errorf("marking goal %s executed: %w", goalID, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("goal %s not found", goalID)
	}
	return nil
}

// DeleteGoal removes a goal by ID.
func (d *DB) DeleteGoal(goalID string) error {
	res, err := d.conn.Exec("DELETE FROM goals WHERE goal_id = ?", goalID)
	if err != nil {
		return fmt.Errorf("deleting goal %s: %w", goalID, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("goal %s not found", goalID)
	}
	return nil
}

// DeleteGoalsByStatus removes goals in the given status, optionally only
// those created before olderThan (a datetime string), returning the count.
func (d *DB) DeleteGoalsByStatus(status, olderThan string) (int64, error) {
	q := "DELETE FROM goals WHERE status = ?"
	args := []any{status}
	if olderThan != "" {
		q += " AND created_at < ?"
		args = append(args, olderThan)
	}
	res, err := d.conn.Exec(q, args...)
	if err != nil {
		return 0, fmt.Errorf("deleting %s goals: %w", status, err)
	}
	return res.RowsAffected()
}

// DeleteOutdatedScheduleGoals removes active schedule goals created
// before the given date. Each day's schedule replaces the previous one.
func (d *DB) DeleteOutdatedScheduleGoals(chatID, date string) (int64, error) {
	res, err := d.conn.Exec(
		`DELETE FROM goals WHERE chat_id = ? AND status = ? AND date(created_at) < ?
		 AND parameters LIKE '%"time_window"%'`,
		chatID, StatusActive, date)
	if err != nil {
		return 0, fmt.Errorf("deleting outdated schedule goals: %w", err)
	}
	return res.RowsAffected()
}

// CountScheduleGoals reports how many active schedule goals exist for the
// chat on the given date.
func (d *DB) CountScheduleGoals(chatID, date string) (int, error) {
	var n int
	err := d.conn.QueryRow(
		`SELECT COUNT(*) FROM goals WHERE chat_id = ? AND status = ? AND date(created_at) = ?
		 AND parameters LIKE '%"time_window"%'`,
		chatID, StatusActive, date).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting schedule goals: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGoal(row rowScanner) (*Goal, error) {
	var g Goal
	var paramsJSON, condsJSON string
	err := row.Scan(&g.GoalID, &g.Name, &g.Description, &g.GoalType, &g.Priority,
		&g.CreatorID, &g.ChatID, &g.Status, &g.Deadline, &paramsJSON, &condsJSON,
		&g.Progress, &g.LastExecutedAt, &g.ExecutionCount, &g.CreatedAt)
	if err != nil {
		return nil, err
	}
	if paramsJSON != "" {
		_ = json.Unmarshal([]byte(paramsJSON), &g.Parameters)
	}
	if condsJSON != "" {
		_ = json.Unmarshal([]byte(condsJSON), &g.Conditions)
	}
	return &g, nil
}

func (d *DB) scanGoals(query string, args ...any) ([]Goal, error) {
	rows, err := d.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying goals: %w", err)
	}
	defer rows.Close()
	var goals []Goal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning goal: %w", err)
		}
		goals = append(goals, *g)
	}
	return goals, rows.Err()
}

var allowedGoalColumns = map[string]bool{
	"name": true, "description": true, "goal_type": true, "priority": true,
	"status": true, "deadline": true, "parameters": true, "conditions": true,
	"progress": true,
}

func (d *DB) updateGoalRow(goalID string, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	var setClauses []string
	var args []any
	for col, val := range fields {
		if !allowedGoalColumns[col] {
			return fmt.Errorf("disallowed column %q for goals", col)
		}
		if m, ok := val.(map[string]any); ok {
			b, err := json.Marshal(m)
			if err != nil {
				return fmt.Errorf("encoding %s: %w", col, err)
			}
			val = string(b)
		}
		setClauses = append(setClauses, col+" = ?")
		args = append(args, val)
	}
	setClauses = append(setClauses, "updated_at = datetime('now')")
	args = append(args, goalID)
	query := fmt.Sprintf("UPDATE goals SET %s WHERE goal_id = ?", strings.Join(setClauses, ", "))
	res, err := d.conn.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("updating goal %s: %w", goalID, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("goal %s not found", goalID)
	}
	return nil
}

func nullStr(s string) any {
	if s == "" || s == "null" {
		return nil
	}
	return s
}

func nullJSON(m map[string]any) any {
	if len(m) == 0 {
		return nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil
	}
	return string(b)
}
