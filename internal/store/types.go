// Package store provides SQLite-backed persistence for conversations and
// agent task history.
package store

import (
	"math"
	"time"
)

// Conversation is a titled chat thread.
type Conversation struct {
	ID        string
	Title     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Message is one chat message within a conversation.
type Message struct {
	ID             string
	ConversationID string
	Role           string // user, assistant
	Content        string
	Timestamp      time.Time
}

// Task status values.
const (
	TaskRunning   = "running"
	TaskCompleted = "completed"
	TaskFailed    = "failed"
)

// Task is the persisted record of one agent session.
type Task struct {
	ID          string
	Message     string
	ProjectPath string
	Status      string
	TotalTurns  int
	Error       string
	CreatedAt   time.Time
	FinishedAt  *time.Time
}

// ToolRun is one tool execution recorded for a task.
type ToolRun struct {
	TaskID string
	Seq    int
	Tool   string
	Input  string // JSON object
	Result string
	Status string
}

// Stats aggregates usage counters.
type Stats struct {
	TotalTasks         int
	CompletedTasks     int
	TotalConversations int
	TotalMessages      int
}

// SuccessRate returns the share of completed tasks as a rounded percentage,
// or 0 when no task has run.
func (s Stats) SuccessRate() int {
	if s.TotalTasks == 0 {
		return 0
	}
	return int(math.Round(float64(s.CompletedTasks) * 100 / float64(s.TotalTasks)))
}
