package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite" // pure-Go SQLite driver (no CGO required)
)

// migrations defines the tables for the persistence layer. Version is
// tracked in the schema_versions table.
var migrations = []struct {
	version int
	sql     string
}{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_versions (
    version     INTEGER PRIMARY KEY,
    applied_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS conversations (
    id          TEXT PRIMARY KEY,
    session_id  TEXT UNIQUE,
    created_at  DATETIME NOT NULL,
    updated_at  DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS messages (
    id              TEXT PRIMARY KEY,
    conversation_id TEXT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
    role            TEXT NOT NULL CHECK(role IN ('user', 'assistant')),
    content         TEXT NOT NULL,
    sequence        INTEGER NOT NULL,
    created_at      DATETIME NOT NULL,
    UNIQUE(conversation_id, sequence)
);
CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, sequence ASC);

CREATE TABLE IF NOT EXISTS job_queue (
    id           TEXT PRIMARY KEY,
    type         TEXT NOT NULL,
    payload      TEXT NOT NULL DEFAULT '{}',
    status       TEXT NOT NULL CHECK(status IN ('queued', 'in_progress', 'completed', 'failed', 'dead_letter')),
    attempts     INTEGER NOT NULL DEFAULT 0,
    max_attempts INTEGER NOT NULL DEFAULT 3,
    error        TEXT,
    created_at   DATETIME NOT NULL,
    updated_at   DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_job_queue_claim ON job_queue(type, status, created_at);

CREATE TABLE IF NOT EXISTS sanitization_log (
    id          TEXT PRIMARY KEY,
    message_id  TEXT NOT NULL REFERENCES messages(id) ON DELETE CASCADE,
    issues      TEXT NOT NULL DEFAULT '[]',
    created_at  DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sanitization_log_message ON sanitization_log(message_id);

CREATE TABLE IF NOT EXISTS learnings (
    id              TEXT PRIMARY KEY,
    conversation_id TEXT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
    category        TEXT NOT NULL DEFAULT '',
    title           TEXT NOT NULL,
    content         TEXT NOT NULL,
    created_at      DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_learnings_conversation ON learnings(conversation_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_learnings_created_at ON learnings(created_at DESC);
`,
	},
}

type sqliteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at the given path and
// runs all pending schema migrations. Pass ":memory:" for an in-memory store.
func NewSQLiteStore(path string) (Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}

	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys=ON`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := db.Exec(`PRAGMA synchronous=NORMAL`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set synchronous mode: %w", err)
	}
	if _, err := db.Exec(`PRAGMA busy_timeout=5000`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	s := &sqliteStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// migrate applies any unapplied migrations in order.
func (s *sqliteStore) migrate() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_versions (
        version    INTEGER PRIMARY KEY,
        applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
    )`)
	if err != nil {
		return fmt.Errorf("create schema_versions: %w", err)
	}

	for _, m := range migrations {
		var count int
		err := s.db.QueryRow(`SELECT COUNT(*) FROM schema_versions WHERE version = ?`, m.version).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %d: %w", m.version, err)
		}
		if count > 0 {
			continue // already applied
		}

		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("apply migration %d: %w", m.version, err)
		}

		if _, err := s.db.Exec(`INSERT INTO schema_versions(version) VALUES(?)`, m.version); err != nil {
			return fmt.Errorf("record migration %d: %w", m.version, err)
		}
	}
	return nil
}

func (s *sqliteStore) Close() error { return s.db.Close() }

func (s *sqliteStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *sqliteStore) DB() *sql.DB { return s.db }

func newID() string {
	return ulid.Make().String()
}

// ─── Conversations ─────────────────────────────────────────────────────────

func (s *sqliteStore) GetOrCreateConversationBySession(ctx context.Context, sessionID string) (*Conversation, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	c := &Conversation{}
	var sessionNullable sql.NullString
	err = tx.QueryRowContext(ctx, `
        SELECT id, session_id, created_at, updated_at FROM conversations WHERE session_id = ?
    `, sessionID).Scan(&c.ID, &sessionNullable, &c.CreatedAt, &c.UpdatedAt)

	switch {
	case err == nil:
		c.SessionID = sessionNullable.String
		return c, tx.Commit()
	case err != sql.ErrNoRows:
		return nil, fmt.Errorf("lookup conversation: %w", err)
	}

	now := time.Now().UTC()
	c = &Conversation{
		ID:        newID(),
		SessionID: sessionID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err = tx.ExecContext(ctx, `
        INSERT INTO conversations(id, session_id, created_at, updated_at) VALUES(?,?,?,?)
    `, c.ID, nullableString(c.SessionID), c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert conversation: %w", err)
	}

	return c, tx.Commit()
}

func (s *sqliteStore) GetConversation(ctx context.Context, id string) (*Conversation, error) {
	c := &Conversation{}
	var sessionNullable sql.NullString
	err := s.db.QueryRowContext(ctx, `
        SELECT id, session_id, created_at, updated_at FROM conversations WHERE id = ?
    `, id).Scan(&c.ID, &sessionNullable, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	c.SessionID = sessionNullable.String
	return c, nil
}

func (s *sqliteStore) TouchConversation(ctx context.Context, id string, now time.Time) error {
	_, err := s.db.ExecContext(ctx, `UPDATE conversations SET updated_at = ? WHERE id = ?`, now.UTC(), id)
	if err != nil {
		return fmt.Errorf("touch conversation: %w", err)
	}
	return nil
}

func (s *sqliteStore) AppendMessage(ctx context.Context, conversationID, role, content string, now time.Time) (*Message, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var nextSeq int
	err = tx.QueryRowContext(ctx, `
        SELECT COALESCE(MAX(sequence), 0) + 1 FROM messages WHERE conversation_id = ?
    `, conversationID).Scan(&nextSeq)
	if err != nil {
		return nil, fmt.Errorf("compute next sequence: %w", err)
	}

	m := &Message{
		ID:             newID(),
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		Sequence:       nextSeq,
		CreatedAt:      now.UTC(),
	}
	_, err = tx.ExecContext(ctx, `
        INSERT INTO messages(id, conversation_id, role, content, sequence, created_at)
        VALUES(?,?,?,?,?,?)
    `, m.ID, m.ConversationID, m.Role, m.Content, m.Sequence, m.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE conversations SET updated_at = ? WHERE id = ?`, m.CreatedAt, conversationID); err != nil {
		return nil, fmt.Errorf("touch conversation: %w", err)
	}

	return m, tx.Commit()
}

func (s *sqliteStore) GetMessages(ctx context.Context, conversationID string) ([]*Message, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, conversation_id, role, content, sequence, created_at
        FROM messages WHERE conversation_id = ? ORDER BY sequence ASC
    `, conversationID)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var out []*Message
	for rows.Next() {
		m := &Message{}
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &m.Sequence, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *sqliteStore) GetMessage(ctx context.Context, id string) (*Message, error) {
	m := &Message{}
	err := s.db.QueryRowContext(ctx, `
        SELECT id, conversation_id, role, content, sequence, created_at FROM messages WHERE id = ?
    `, id).Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &m.Sequence, &m.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get message: %w", err)
	}
	return m, nil
}

// ─── Sanitization log ──────────────────────────────────────────────────────

func (s *sqliteStore) AppendSanitizationLog(ctx context.Context, messageID, issues string, now time.Time) (*SanitizationLogEntry, error) {
	e := &SanitizationLogEntry{
		ID:        newID(),
		MessageID: messageID,
		Issues:    issues,
		CreatedAt: now.UTC(),
	}
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO sanitization_log(id, message_id, issues, created_at) VALUES(?,?,?,?)
    `, e.ID, e.MessageID, e.Issues, e.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert sanitization log: %w", err)
	}
	return e, nil
}

func (s *sqliteStore) GetSanitizationLogsForMessage(ctx context.Context, messageID string) ([]*SanitizationLogEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, message_id, issues, created_at FROM sanitization_log
        WHERE message_id = ? ORDER BY created_at ASC
    `, messageID)
	if err != nil {
		return nil, fmt.Errorf("query sanitization log: %w", err)
	}
	defer rows.Close()

	var out []*SanitizationLogEntry
	for rows.Next() {
		e := &SanitizationLogEntry{}
		if err := rows.Scan(&e.ID, &e.MessageID, &e.Issues, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan sanitization log: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ─── Learnings ─────────────────────────────────────────────────────────────

func (s *sqliteStore) AppendLearning(ctx context.Context, conversationID, category, title, content string, now time.Time) (*Learning, error) {
	l := &Learning{
		ID:             newID(),
		ConversationID: conversationID,
		Category:       category,
		Title:          title,
		Content:        content,
		CreatedAt:      now.UTC(),
	}
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO learnings(id, conversation_id, category, title, content, created_at)
        VALUES(?,?,?,?,?,?)
    `, l.ID, l.ConversationID, l.Category, l.Title, l.Content, l.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert learning: %w", err)
	}
	return l, nil
}

func (s *sqliteStore) GetLearning(ctx context.Context, id string) (*Learning, error) {
	l := &Learning{}
	err := s.db.QueryRowContext(ctx, `
        SELECT id, conversation_id, category, title, content, created_at FROM learnings WHERE id = ?
    `, id).Scan(&l.ID, &l.ConversationID, &l.Category, &l.Title, &l.Content, &l.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get learning: %w", err)
	}
	return l, nil
}

// SearchLearnings delegates the substring match to SQL LIKE for the initial
// candidate set, then re-filters in Go for case-sensitive semantics (SQLite's
// LIKE is case-insensitive for ASCII by default).
func (s *sqliteStore) SearchLearnings(ctx context.Context, query string, limit int) ([]*Learning, error) {
	pattern := "%" + escapeLike(query) + "%"
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, conversation_id, category, title, content, created_at FROM learnings
        WHERE title LIKE ? ESCAPE '\' OR content LIKE ? ESCAPE '\'
        ORDER BY created_at DESC
    `, pattern, pattern)
	if err != nil {
		return nil, fmt.Errorf("search learnings: %w", err)
	}
	defer rows.Close()

	var out []*Learning
	for rows.Next() {
		l := &Learning{}
		if err := rows.Scan(&l.ID, &l.ConversationID, &l.Category, &l.Title, &l.Content, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan learning: %w", err)
		}
		if containsCaseSensitive(l.Title, query) || containsCaseSensitive(l.Content, query) {
			out = append(out, l)
			if len(out) >= limit {
				break
			}
		}
	}
	return out, rows.Err()
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// escapeLike escapes SQLite LIKE metacharacters so arbitrary user-supplied
// search text is treated literally.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// containsCaseSensitive narrows a case-insensitive LIKE candidate set down
// to exact case-sensitive substring matches, as SQLite's LIKE operator is
// case-insensitive for ASCII by default.
func containsCaseSensitive(haystack, needle string) bool {
	return strings.Contains(haystack, needle)
}
