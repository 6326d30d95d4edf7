package chat

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kuse-dev/cowork/internal/log"
	"github.com/kuse-dev/cowork/internal/store"
)

func newTestState(t *testing.T) (*State, *store.Store) {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "cowork.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return New(s, nil), s
}

func TestLoadSelectsMostRecent(t *testing.T) {
	st, db := newTestState(t)

	_, err := db.CreateConversation("old")
	require.NoError(t, err)
	recent, err := db.CreateConversation("recent")
	require.NoError(t, err)
	_, err = db.AddMessage(recent.ID, "user", "hello")
	require.NoError(t, err)

	require.NoError(t, st.Load())
	assert.Len(t, st.Conversations(), 2)
	assert.Equal(t, recent.ID, st.ActiveID())
	require.Len(t, st.Messages(), 1)
	assert.Equal(t, "hello", st.Messages()[0].Content)
}

func TestLoadEmpty(t *testing.T) {
	st, _ := newTestState(t)
	require.NoError(t, st.Load())
	assert.Empty(t, st.Conversations())
	assert.Nil(t, st.Active())
	assert.Empty(t, st.ActiveID())
}

func TestCreatePrependsAndActivates(t *testing.T) {
	st, db := newTestState(t)
	existing, err := db.CreateConversation("existing")
	require.NoError(t, err)
	_, err = db.AddMessage(existing.ID, "user", "hi")
	require.NoError(t, err)
	require.NoError(t, st.Load())
	require.NotEmpty(t, st.Messages())

	conv, err := st.Create()
	require.NoError(t, err)

	assert.Equal(t, DefaultTitle, conv.Title)
	assert.Equal(t, conv.ID, st.ActiveID())
	assert.Equal(t, conv.ID, st.Conversations()[0].ID)
	assert.Empty(t, st.Messages())
}

func TestDeleteActiveSelectsFirstRemaining(t *testing.T) {
	st, db := newTestState(t)
	a, err := db.CreateConversation("a")
	require.NoError(t, err)
	b, err := db.CreateConversation("b")
	require.NoError(t, err)
	require.NoError(t, st.Load())
	require.Equal(t, b.ID, st.ActiveID())

	require.NoError(t, st.Delete(b.ID))
	assert.Equal(t, a.ID, st.ActiveID())
	assert.Len(t, st.Conversations(), 1)

	require.NoError(t, st.Delete(a.ID))
	assert.Empty(t, st.ActiveID())
	assert.Empty(t, st.Messages())
}

func TestDeleteInactiveKeepsSelection(t *testing.T) {
	st, db := newTestState(t)
	a, err := db.CreateConversation("a")
	require.NoError(t, err)
	b, err := db.CreateConversation("b")
	require.NoError(t, err)
	require.NoError(t, st.Load())

	require.NoError(t, st.Delete(a.ID))
	assert.Equal(t, b.ID, st.ActiveID())
	assert.Len(t, st.Conversations(), 1)
}

func TestSelectUnknown(t *testing.T) {
	st, db := newTestState(t)
	a, err := db.CreateConversation("a")
	require.NoError(t, err)
	require.NoError(t, st.Load())

	err = st.Select("missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Equal(t, a.ID, st.ActiveID(), "selection kept on error")
}

func TestLocalMessages(t *testing.T) {
	st, _ := newTestState(t)
	conv, err := st.Create()
	require.NoError(t, err)

	assert.False(t, (&State{}).UpdateLastMessage("x"))

	st.AddLocalMessage("user", "list files")
	msg := st.AddLocalMessage("assistant", "")
	assert.NotEmpty(t, msg.ID)
	assert.Equal(t, conv.ID, msg.ConversationID)

	assert.True(t, st.UpdateLastMessage("Here are the files"))
	msgs := st.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "list files", msgs[0].Content)
	assert.Equal(t, "Here are the files", msgs[1].Content)
}

type failingRepo struct {
	err error
}

func (f *failingRepo) CreateConversation(string) (*store.Conversation, error) { return nil, f.err }
func (f *failingRepo) ListConversations() ([]store.Conversation, error)       { return nil, f.err }
func (f *failingRepo) DeleteConversation(string) error                        { return f.err }
func (f *failingRepo) GetMessages(string) ([]store.Message, error)            { return nil, f.err }

func TestRepositoryErrorsAreReturnedAndLogged(t *testing.T) {
	logger, err := log.NewLogger(t.TempDir())
	require.NoError(t, err)
	boom := errors.New("disk full")
	st := New(&failingRepo{err: boom}, logger)

	assert.ErrorIs(t, st.Load(), boom)
	_, err = st.Create()
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, st.Conversations())
	assert.Empty(t, st.ActiveID())

	entries, err := logger.ReadAll()
	require.NoError(t, err)
	assert.Len(t, log.Filter(entries, log.EventStoreFailed), 2)
}
