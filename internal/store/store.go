package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when a row does not exist.
var ErrNotFound = errors.New("not found")

// Store provides SQLite-backed persistence.
type Store struct {
	db *sql.DB
}

// Open opens the SQLite database at dbPath, creating its directory and the
// tables if they don't exist.
func Open(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := createTables(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func createTables(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS conversations (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		conversation_id TEXT NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		timestamp DATETIME NOT NULL,
		FOREIGN KEY (conversation_id) REFERENCES conversations(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS tasks (
		id TEXT PRIMARY KEY,
		message TEXT NOT NULL,
		project_path TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		total_turns INTEGER NOT NULL DEFAULT 0,
		error TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		finished_at DATETIME
	);

	CREATE TABLE IF NOT EXISTS tool_runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		task_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		tool TEXT NOT NULL,
		input TEXT NOT NULL,
		result TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		FOREIGN KEY (task_id) REFERENCES tasks(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id);
	CREATE INDEX IF NOT EXISTS idx_tool_runs_task ON tool_runs(task_id);
	`
	_, err := db.Exec(schema)
	return err
}

// CreateConversation creates a new conversation with the given title.
func (s *Store) CreateConversation(title string) (*Conversation, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.Exec(
		`INSERT INTO conversations (id, title, created_at, updated_at)
		 VALUES (?, ?, ?, ?)`,
		id, title, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert conversation: %w", err)
	}

	return &Conversation{ID: id, Title: title, CreatedAt: now, UpdatedAt: now}, nil
}

// ListConversations returns all conversations, most recently updated first.
func (s *Store) ListConversations() ([]Conversation, error) {
	rows, err := s.db.Query(
		`SELECT id, title, created_at, updated_at
		 FROM conversations
		 ORDER BY updated_at DESC, rowid DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("query conversations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var convs []Conversation
	for rows.Next() {
		var c Conversation
		if err := rows.Scan(&c.ID, &c.Title, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		convs = append(convs, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return convs, nil
}

// GetConversation retrieves a conversation by ID.
func (s *Store) GetConversation(id string) (*Conversation, error) {
	row := s.db.QueryRow(
		`SELECT id, title, created_at, updated_at
		 FROM conversations WHERE id = ?`,
		id,
	)

	var c Conversation
	err := row.Scan(&c.ID, &c.Title, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("conversation %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scan conversation: %w", err)
	}

	return &c, nil
}

// DeleteConversation removes a conversation and its messages.
func (s *Store) DeleteConversation(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM messages WHERE conversation_id = ?`, id); err != nil {
		return fmt.Errorf("delete messages: %w", err)
	}
	res, err := tx.Exec(`DELETE FROM conversations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("conversation %s: %w", id, ErrNotFound)
	}

	return tx.Commit()
}

// AddMessage appends a message to a conversation and bumps its updated_at.
func (s *Store) AddMessage(conversationID, role, content string) (*Message, error) {
	msg := &Message{
		ID:             uuid.New().String(),
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		Timestamp:      time.Now().UTC(),
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.Exec(
		`UPDATE conversations SET updated_at = ? WHERE id = ?`,
		msg.Timestamp, conversationID,
	)
	if err != nil {
		return nil, fmt.Errorf("touch conversation: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, fmt.Errorf("conversation %s: %w", conversationID, ErrNotFound)
	}

	_, err = tx.Exec(
		`INSERT INTO messages (id, conversation_id, role, content, timestamp)
		 VALUES (?, ?, ?, ?, ?)`,
		msg.ID, msg.ConversationID, msg.Role, msg.Content, msg.Timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit message: %w", err)
	}
	return msg, nil
}

// GetMessages retrieves all messages of a conversation in chronological order.
func (s *Store) GetMessages(conversationID string) ([]Message, error) {
	rows, err := s.db.Query(
		`SELECT id, conversation_id, role, content, timestamp
		 FROM messages
		 WHERE conversation_id = ?
		 ORDER BY timestamp ASC, rowid ASC`,
		conversationID,
	)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var messages []Message
	for rows.Next() {
		var msg Message
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &msg.Role, &msg.Content, &msg.Timestamp); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return messages, nil
}

// UpdateMessageContent replaces the content of a message.
func (s *Store) UpdateMessageContent(id, content string) error {
	res, err := s.db.Exec(`UPDATE messages SET content = ? WHERE id = ?`, content, id)
	if err != nil {
		return fmt.Errorf("update message: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("message %s: %w", id, ErrNotFound)
	}
	return nil
}

// Statistics returns aggregate counters over all tables.
func (s *Store) Statistics() (Stats, error) {
	var st Stats
	err := s.db.QueryRow(
		`SELECT
			(SELECT COUNT(*) FROM tasks),
			(SELECT COUNT(*) FROM tasks WHERE status = ?),
			(SELECT COUNT(*) FROM conversations),
			(SELECT COUNT(*) FROM messages)`,
		TaskCompleted,
	).Scan(&st.TotalTasks, &st.CompletedTasks, &st.TotalConversations, &st.TotalMessages)
	if err != nil {
		return Stats{}, fmt.Errorf("query statistics: %w", err)
	}
	return st, nil
}
