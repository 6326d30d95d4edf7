package store

import (
	"sync"

	"github.com/kuse-dev/cowork/internal/agent"
	"github.com/kuse-dev/cowork/internal/log"
)

// TaskRecorder persists agent sessions as tasks. It implements agent.Recorder.
// Persistence failures are logged and never reach the session.
type TaskRecorder struct {
	store  *Store
	logger *log.Logger

	mu    sync.Mutex
	tasks map[string]string // session id -> task id
}

// NewTaskRecorder returns a recorder writing to s. logger may be nil.
func NewTaskRecorder(s *Store, logger *log.Logger) *TaskRecorder {
	return &TaskRecorder{
		store:  s,
		logger: logger,
		tasks:  make(map[string]string),
	}
}

// SessionStarted creates the task row for a new session.
func (r *TaskRecorder) SessionStarted(id string, req agent.Request) {
	task, err := r.store.CreateTask(req.Message, req.ProjectPath)
	if err != nil {
		r.fail(id, err)
		return
	}

	r.mu.Lock()
	r.tasks[id] = task.ID
	r.mu.Unlock()
}

// SessionFinished stores the final transcript of a session.
func (r *TaskRecorder) SessionFinished(id string, state agent.SessionState) {
	r.mu.Lock()
	taskID, ok := r.tasks[id]
	delete(r.tasks, id)
	r.mu.Unlock()
	if !ok {
		return
	}

	if err := r.store.FinishTask(taskID, state); err != nil {
		r.fail(id, err)
	}
}

// TaskID returns the task recorded for a session.
func (r *TaskRecorder) TaskID(sessionID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.tasks[sessionID]
	return id, ok
}

func (r *TaskRecorder) fail(session string, err error) {
	if r.logger == nil {
		return
	}
	_ = r.logger.Append(log.LogEvent{Event: log.EventStoreFailed, Session: session, Error: err.Error()})
}
