package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kuse-dev/cowork/internal/agent"
)

// CreateTask records the start of an agent session.
func (s *Store) CreateTask(message, projectPath string) (*Task, error) {
	t := &Task{
		ID:          uuid.New().String(),
		Message:     message,
		ProjectPath: projectPath,
		Status:      TaskRunning,
		CreatedAt:   time.Now().UTC(),
	}

	_, err := s.db.Exec(
		`INSERT INTO tasks (id, message, project_path, status, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		t.ID, t.Message, t.ProjectPath, t.Status, t.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}

	return t, nil
}

// FinishTask stores the final state of a session: its status, turn count,
// error and every tool execution in transcript order.
func (s *Store) FinishTask(id string, state agent.SessionState) error {
	status := TaskCompleted
	var errMsg string
	if state.Err != nil || state.TotalTurns == nil {
		status = TaskFailed
	}
	if state.Err != nil {
		errMsg = *state.Err
	}
	turns := state.Turn
	if state.TotalTurns != nil {
		turns = *state.TotalTurns
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.Exec(
		`UPDATE tasks SET status = ?, total_turns = ?, error = ?, finished_at = ?
		 WHERE id = ?`,
		status, turns, errMsg, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("task %s: %w", id, ErrNotFound)
	}

	for i, tool := range state.Tools {
		input, err := json.Marshal(tool.Input)
		if err != nil {
			return fmt.Errorf("encode tool input: %w", err)
		}
		var result string
		if tool.Result != nil {
			result = *tool.Result
		}
		_, err = tx.Exec(
			`INSERT INTO tool_runs (task_id, seq, tool, input, result, status)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			id, i+1, tool.Tool, string(input), result, string(tool.Status),
		)
		if err != nil {
			return fmt.Errorf("insert tool run: %w", err)
		}
	}

	return tx.Commit()
}

// GetTask retrieves a task by ID.
func (s *Store) GetTask(id string) (*Task, error) {
	row := s.db.QueryRow(
		`SELECT id, message, project_path, status, total_turns, error, created_at, finished_at
		 FROM tasks WHERE id = ?`,
		id,
	)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	return t, err
}

// ListTasks returns the most recent tasks, newest first.
func (s *Store) ListTasks(limit int) ([]Task, error) {
	rows, err := s.db.Query(
		`SELECT id, message, project_path, status, total_turns, error, created_at, finished_at
		 FROM tasks
		 ORDER BY created_at DESC, rowid DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tasks []Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return tasks, nil
}

// GetToolRuns returns the tool executions of a task in order.
func (s *Store) GetToolRuns(taskID string) ([]ToolRun, error) {
	rows, err := s.db.Query(
		`SELECT task_id, seq, tool, input, result, status
		 FROM tool_runs
		 WHERE task_id = ?
		 ORDER BY seq ASC`,
		taskID,
	)
	if err != nil {
		return nil, fmt.Errorf("query tool runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []ToolRun
	for rows.Next() {
		var r ToolRun
		if err := rows.Scan(&r.TaskID, &r.Seq, &r.Tool, &r.Input, &r.Result, &r.Status); err != nil {
			return nil, fmt.Errorf("scan tool run: %w", err)
		}
		runs = append(runs, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return runs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(row scanner) (*Task, error) {
	var t Task
	var finished sql.NullTime
	err := row.Scan(&t.ID, &t.Message, &t.ProjectPath, &t.Status, &t.TotalTurns, &t.Error, &t.CreatedAt, &finished)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan task: %w", err)
	}
	if finished.Valid {
		ft := finished.Time
		t.FinishedAt = &ft
	}
	return &t, nil
}
