package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kuse-dev/cowork/internal/agent"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "data", "cowork.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestConversationLifecycle(t *testing.T) {
	s := newTestStore(t)

	first, err := s.CreateConversation("First")
	require.NoError(t, err)
	second, err := s.CreateConversation("Second")
	require.NoError(t, err)

	convs, err := s.ListConversations()
	require.NoError(t, err)
	require.Len(t, convs, 2)
	assert.Equal(t, second.ID, convs[0].ID, "most recent first")
	assert.Equal(t, first.ID, convs[1].ID)

	got, err := s.GetConversation(first.ID)
	require.NoError(t, err)
	assert.Equal(t, "First", got.Title)

	require.NoError(t, s.DeleteConversation(first.ID))
	_, err = s.GetConversation(first.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, s.DeleteConversation(first.ID), ErrNotFound)
}

func TestAddMessageBumpsConversation(t *testing.T) {
	s := newTestStore(t)

	older, err := s.CreateConversation("Older")
	require.NoError(t, err)
	_, err = s.CreateConversation("Newer")
	require.NoError(t, err)

	_, err = s.AddMessage(older.ID, "user", "hello")
	require.NoError(t, err)

	convs, err := s.ListConversations()
	require.NoError(t, err)
	require.Len(t, convs, 2)
	assert.Equal(t, older.ID, convs[0].ID)
}

func TestMessagesChronological(t *testing.T) {
	s := newTestStore(t)
	conv, err := s.CreateConversation("Chat")
	require.NoError(t, err)

	for _, content := range []string{"one", "two", "three"} {
		_, err := s.AddMessage(conv.ID, "user", content)
		require.NoError(t, err)
	}

	msgs, err := s.GetMessages(conv.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "one", msgs[0].Content)
	assert.Equal(t, "three", msgs[2].Content)

	require.NoError(t, s.UpdateMessageContent(msgs[2].ID, "THREE"))
	msgs, err = s.GetMessages(conv.ID)
	require.NoError(t, err)
	assert.Equal(t, "THREE", msgs[2].Content)

	assert.ErrorIs(t, s.UpdateMessageContent("missing", "x"), ErrNotFound)
}

func TestAddMessageUnknownConversation(t *testing.T) {
	s := newTestStore(t)
	_, err := s.AddMessage("nope", "user", "hi")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteConversationRemovesMessages(t *testing.T) {
	s := newTestStore(t)
	conv, err := s.CreateConversation("Chat")
	require.NoError(t, err)
	_, err = s.AddMessage(conv.ID, "user", "hi")
	require.NoError(t, err)

	require.NoError(t, s.DeleteConversation(conv.ID))

	msgs, err := s.GetMessages(conv.ID)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	st, err := s.Statistics()
	require.NoError(t, err)
	assert.Zero(t, st.TotalMessages)
}

func finishedState(err *string, total *int, tools ...agent.ToolExecution) agent.SessionState {
	return agent.SessionState{Message: "m", Tools: tools, Err: err, TotalTurns: total}
}

func TestFinishTask(t *testing.T) {
	s := newTestStore(t)

	task, err := s.CreateTask("list files", "/tmp/project")
	require.NoError(t, err)
	assert.Equal(t, TaskRunning, task.Status)

	result := "main.go"
	success := true
	total := 2
	state := finishedState(nil, &total, agent.ToolExecution{
		ID:        1,
		Tool:      "list_dir",
		Input:     map[string]any{"path": "."},
		InputKeys: []string{"path"},
		Result:    &result,
		Success:   &success,
		Status:    agent.ToolCompleted,
	})
	require.NoError(t, s.FinishTask(task.ID, state))

	got, err := s.GetTask(task.ID)
	require.NoError(t, err)
	assert.Equal(t, TaskCompleted, got.Status)
	assert.Equal(t, 2, got.TotalTurns)
	assert.Empty(t, got.Error)
	require.NotNil(t, got.FinishedAt)

	runs, err := s.GetToolRuns(task.ID)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "list_dir", runs[0].Tool)
	assert.JSONEq(t, `{"path":"."}`, runs[0].Input)
	assert.Equal(t, "main.go", runs[0].Result)
	assert.Equal(t, "completed", runs[0].Status)
}

func TestFinishTaskFailed(t *testing.T) {
	s := newTestStore(t)
	task, err := s.CreateTask("x", "")
	require.NoError(t, err)

	msg := "Rate limited"
	require.NoError(t, s.FinishTask(task.ID, finishedState(&msg, nil)))

	got, err := s.GetTask(task.ID)
	require.NoError(t, err)
	assert.Equal(t, TaskFailed, got.Status)
	assert.Equal(t, "Rate limited", got.Error)

	assert.ErrorIs(t, s.FinishTask("missing", finishedState(nil, nil)), ErrNotFound)
}

func TestListTasks(t *testing.T) {
	s := newTestStore(t)
	for _, m := range []string{"a", "b", "c"} {
		_, err := s.CreateTask(m, "")
		require.NoError(t, err)
	}

	tasks, err := s.ListTasks(2)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "c", tasks[0].Message)
	assert.Nil(t, tasks[0].FinishedAt)
}

func TestStatistics(t *testing.T) {
	s := newTestStore(t)

	st, err := s.Statistics()
	require.NoError(t, err)
	assert.Equal(t, Stats{}, st)
	assert.Equal(t, 0, st.SuccessRate())

	total := 1
	for i := 0; i < 3; i++ {
		task, err := s.CreateTask("t", "")
		require.NoError(t, err)
		if i < 2 {
			require.NoError(t, s.FinishTask(task.ID, finishedState(nil, &total)))
		}
	}
	conv, err := s.CreateConversation("c")
	require.NoError(t, err)
	_, err = s.AddMessage(conv.ID, "user", "hi")
	require.NoError(t, err)

	st, err = s.Statistics()
	require.NoError(t, err)
	assert.Equal(t, Stats{TotalTasks: 3, CompletedTasks: 2, TotalConversations: 1, TotalMessages: 1}, st)
	assert.Equal(t, 67, st.SuccessRate())
}

func TestSuccessRateRounding(t *testing.T) {
	tests := []struct {
		stats Stats
		want  int
	}{
		{Stats{}, 0},
		{Stats{TotalTasks: 3, CompletedTasks: 1}, 33},
		{Stats{TotalTasks: 8, CompletedTasks: 1}, 13},
		{Stats{TotalTasks: 2, CompletedTasks: 1}, 50},
		{Stats{TotalTasks: 4, CompletedTasks: 4}, 100},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.stats.SuccessRate(), "%+v", tt.stats)
	}
}
