package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kuse-dev/cowork/internal/agent"
	"github.com/kuse-dev/cowork/internal/agent/agenttest"
)

func TestTaskRecorderPersistsSession(t *testing.T) {
	s := newTestStore(t)
	rec := NewTaskRecorder(s, nil)

	runner := agenttest.NewScriptedRunner(
		agent.ToolStartEvent{Tool: "bash", Input: map[string]any{"command": "ls"}},
		agent.ToolEndEvent{Tool: "bash", Result: "ok", Success: true},
		agent.DoneEvent{TotalTurns: 1},
	)
	c := agent.New(runner, func(o *agent.Options) { o.Recorder = rec })

	stream, err := c.Submit(context.Background(), "run ls", agent.SubmitContext{ProjectPath: "/work"})
	require.NoError(t, err)
	require.NoError(t, stream.Consume(context.Background()))

	tasks, err := s.ListTasks(10)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "run ls", tasks[0].Message)
	assert.Equal(t, "/work", tasks[0].ProjectPath)
	assert.Equal(t, TaskCompleted, tasks[0].Status)

	runs, err := s.GetToolRuns(tasks[0].ID)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "bash", runs[0].Tool)

	_, tracked := rec.TaskID(stream.ID())
	assert.False(t, tracked, "finished sessions are forgotten")
}

func TestTaskRecorderRecordsStartFailure(t *testing.T) {
	s := newTestStore(t)
	rec := NewTaskRecorder(s, nil)

	runner := agenttest.NewScriptedRunner()
	runner.StartErr = assert.AnError
	c := agent.New(runner, func(o *agent.Options) { o.Recorder = rec })

	_, err := c.Submit(context.Background(), "x", agent.SubmitContext{})
	require.Error(t, err)

	st, err := s.Statistics()
	require.NoError(t, err)
	assert.Equal(t, 1, st.TotalTasks)
	assert.Equal(t, 0, st.CompletedTasks)
}

func TestTaskRecorderIgnoresUnknownSession(t *testing.T) {
	s := newTestStore(t)
	rec := NewTaskRecorder(s, nil)

	total := 1
	rec.SessionFinished("never-started", agent.SessionState{TotalTurns: &total})

	st, err := s.Statistics()
	require.NoError(t, err)
	assert.Zero(t, st.TotalTasks)
}

func TestTaskRecorderFailsResetSession(t *testing.T) {
	s := newTestStore(t)
	rec := NewTaskRecorder(s, nil)

	runner := agenttest.NewScriptedRunner(agent.TextEvent{Content: "partial"})
	c := agent.New(runner, func(o *agent.Options) { o.Recorder = rec })

	stream, err := c.Submit(context.Background(), "stuck", agent.SubmitContext{})
	require.NoError(t, err)
	require.ErrorIs(t, stream.Consume(context.Background()), agent.ErrStreamClosed)

	taskID, tracked := rec.TaskID(stream.ID())
	require.True(t, tracked)

	c.Reset()

	task, err := s.GetTask(taskID)
	require.NoError(t, err)
	assert.Equal(t, TaskFailed, task.Status)
	assert.Equal(t, agent.ResetMessage, task.Error)
	assert.NotNil(t, task.FinishedAt)

	_, tracked = rec.TaskID(stream.ID())
	assert.False(t, tracked, "reset sessions are forgotten")

	// A second reset has nothing left to report.
	c.Reset()
	st, err := s.Statistics()
	require.NoError(t, err)
	assert.Equal(t, 1, st.TotalTasks)
	assert.Equal(t, 0, st.CompletedTasks)
}
