package store

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/fyrsmithlabs/ctxmemd/internal/apperr"
	"github.com/fyrsmithlabs/ctxmemd/internal/model"
)

// UpsertConversation inserts or updates a Conversation by SessionID within tx and
// returns the resolved primary key plus whether the row was newly inserted. It never
// trusts the driver's last-insert-rowid after the ON CONFLICT branch: the id is always
// recovered with a follow-up SELECT keyed on session_id, per the store's upsert contract.
func UpsertConversation(ctx context.Context, tx *sql.Tx, c *model.Conversation) (id int64, inserted bool, err error) {
	fileRefs, err := json.Marshal(nonNil(c.FileReferences))
	if err != nil {
		return 0, false, apperr.Wrap(apperr.InvalidArgument, "store.UpsertConversation", "marshal file_references", err)
	}
	topics, err := json.Marshal(nonNil(c.Topics))
	if err != nil {
		return 0, false, apperr.Wrap(apperr.InvalidArgument, "store.UpsertConversation", "marshal topics", err)
	}
	keywords, err := json.Marshal(nonNil(c.Keywords))
	if err != nil {
		return 0, false, apperr.Wrap(apperr.InvalidArgument, "store.UpsertConversation", "marshal keywords", err)
	}

	// Check existence before the upsert: the ON CONFLICT branch always reports 1 row
	// affected in sqlite regardless of insert-vs-update, so "inserted" can only be
	// determined by looking first, never by trusting rows-affected after the fact.
	var preExistingID int64
	existsErr := tx.QueryRowContext(ctx, `SELECT id FROM conversations WHERE session_id = ?`, c.SessionID).Scan(&preExistingID)
	if existsErr != nil && existsErr != sql.ErrNoRows {
		return 0, false, apperr.Wrap(apperr.Transient, "store.UpsertConversation", "check existing conversation", existsErr)
	}
	inserted = existsErr == sql.ErrNoRows

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO conversations(
			session_id, project_hash, project_name, project_path,
			created_at, updated_at, message_count, total_tokens,
			file_references, topics, keywords
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			project_hash = excluded.project_hash,
			project_name = excluded.project_name,
			project_path = excluded.project_path,
			updated_at = excluded.updated_at,
			message_count = excluded.message_count,
			total_tokens = excluded.total_tokens,
			file_references = excluded.file_references,
			topics = excluded.topics,
			keywords = excluded.keywords`,
		c.SessionID, c.ProjectHash, c.ProjectName, c.ProjectPath,
		c.CreatedAt.Unix(), c.UpdatedAt.Unix(), c.MessageCount, c.TotalTokens,
		string(fileRefs), string(topics), string(keywords)); err != nil {
		return 0, false, apperr.Wrap(apperr.Transient, "store.UpsertConversation", "upsert conversation", err)
	}

	// Never trust the driver's last-insert-rowid after an ON CONFLICT upsert: resolve the
	// primary key with a fresh lookup, per the store's upsert contract.
	var id2 int64
	if err := tx.QueryRowContext(ctx, `SELECT id FROM conversations WHERE session_id = ?`, c.SessionID).Scan(&id2); err != nil {
		return 0, false, apperr.Wrap(apperr.Transient, "store.UpsertConversation", "resolve conversation id", err)
	}
	return id2, inserted, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// MaxMessageIndex returns the highest message_index already stored for a conversation,
// or -1 if none exist. The Indexer uses this to compute the suffix of new messages to
// insert for an append-only transcript.
func MaxMessageIndex(ctx context.Context, tx *sql.Tx, conversationID int64) (int, error) {
	var idx sql.NullInt64
	row := tx.QueryRowContext(ctx, `SELECT MAX(message_index) FROM messages WHERE conversation_id = ?`, conversationID)
	if err := row.Scan(&idx); err != nil {
		return -1, apperr.Wrap(apperr.Transient, "store.MaxMessageIndex", "query max message_index", err)
	}
	if !idx.Valid {
		return -1, nil
	}
	return int(idx.Int64), nil
}

// InsertMessages batch-inserts messages for a conversation within tx. Foreign-key
// violations abort the whole batch: the transaction is rolled back by the caller's Tx
// wrapper, surfacing as a fatal ingest error for the session.
func InsertMessages(ctx context.Context, tx *sql.Tx, conversationID int64, msgs []model.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO messages(
			conversation_id, message_index, uuid, timestamp, role, content_type,
			content, content_summary, tool_calls, file_references, tokens
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return apperr.Wrap(apperr.Transient, "store.InsertMessages", "prepare insert", err)
	}
	defer stmt.Close()

	for _, m := range msgs {
		toolCalls, err := json.Marshal(m.ToolCalls)
		if err != nil {
			return apperr.Wrap(apperr.InvalidArgument, "store.InsertMessages", "marshal tool_calls", err)
		}
		fileRefs, err := json.Marshal(nonNil(m.FileReferences))
		if err != nil {
			return apperr.Wrap(apperr.InvalidArgument, "store.InsertMessages", "marshal file_references", err)
		}
		if _, err := stmt.ExecContext(ctx,
			conversationID, m.Index, m.UUID, m.Timestamp.Unix(), string(m.Role), m.ContentType,
			m.Content, m.ContentSummary, string(toolCalls), string(fileRefs), m.Tokens,
		); err != nil {
			return apperr.Wrap(apperr.Fatal, "store.InsertMessages", "insert message batch", err)
		}
	}
	return nil
}

// GetConversationBySessionID returns the conversation header (without messages) for a
// session, or apperr.NotFound if no such session has been indexed.
func (s *Store) GetConversationBySessionID(ctx context.Context, sessionID string) (*model.Conversation, error) {
	row := s.readDB.QueryRowContext(ctx, `
		SELECT id, session_id, project_hash, project_name, project_path,
		       created_at, updated_at, message_count, total_tokens,
		       file_references, topics, keywords
		FROM conversations WHERE session_id = ?`, sessionID)
	c, err := scanConversation(row)
	if err == sql.ErrNoRows {
		return nil, apperr.New(apperr.NotFound, "store.GetConversationBySessionID", "unknown session: "+sessionID)
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Transient, "store.GetConversationBySessionID", "scan conversation", err)
	}
	return c, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanConversation(row scanner) (*model.Conversation, error) {
	var c model.Conversation
	var createdAt, updatedAt int64
	var fileRefs, topics, keywords string
	if err := row.Scan(&c.ID, &c.SessionID, &c.ProjectHash, &c.ProjectName, &c.ProjectPath,
		&createdAt, &updatedAt, &c.MessageCount, &c.TotalTokens,
		&fileRefs, &topics, &keywords); err != nil {
		return nil, err
	}
	c.CreatedAt = unixTime(createdAt)
	c.UpdatedAt = unixTime(updatedAt)
	_ = json.Unmarshal([]byte(fileRefs), &c.FileReferences)
	_ = json.Unmarshal([]byte(topics), &c.Topics)
	_ = json.Unmarshal([]byte(keywords), &c.Keywords)
	return &c, nil
}

// ListMessages returns the messages of a conversation ordered by message_index, filtered
// by role when roles is non-empty.
func (s *Store) ListMessages(ctx context.Context, conversationID int64, roles []model.Role) ([]model.Message, error) {
	query := `
		SELECT id, message_index, uuid, timestamp, role, content_type, content,
		       content_summary, tool_calls, file_references, tokens
		FROM messages WHERE conversation_id = ?`
	args := []interface{}{conversationID}
	if len(roles) > 0 {
		query += ` AND role IN (` + placeholders(len(roles)) + `)`
		for _, r := range roles {
			args = append(args, string(r))
		}
	}
	query += ` ORDER BY message_index ASC`

	rows, err := s.readDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperr.Wrap(apperr.Transient, "store.ListMessages", "query messages", err)
	}
	defer rows.Close()

	var out []model.Message
	for rows.Next() {
		var m model.Message
		var ts int64
		var role, toolCalls, fileRefs string
		if err := rows.Scan(&m.ID, &m.Index, &m.UUID, &ts, &role, &m.ContentType, &m.Content,
			&m.ContentSummary, &toolCalls, &fileRefs, &m.Tokens); err != nil {
			return nil, apperr.Wrap(apperr.Transient, "store.ListMessages", "scan message", err)
		}
		m.Timestamp = unixTime(ts)
		m.Role = model.Role(role)
		_ = json.Unmarshal([]byte(toolCalls), &m.ToolCalls)
		_ = json.Unmarshal([]byte(fileRefs), &m.FileReferences)
		out = append(out, m)
	}
	return out, rows.Err()
}

// ListRecentConversations returns conversations ordered by updated_at descending,
// optionally filtered by a project_path substring and a lower bound on created_at.
func (s *Store) ListRecentConversations(ctx context.Context, projectFilter string, since *int64, limit int) ([]model.Conversation, error) {
	query := `
		SELECT id, session_id, project_hash, project_name, project_path,
		       created_at, updated_at, message_count, total_tokens,
		       file_references, topics, keywords
		FROM conversations WHERE 1=1`
	var args []interface{}
	if projectFilter != "" {
		query += ` AND project_path LIKE ?`
		args = append(args, "%"+projectFilter+"%")
	}
	if since != nil {
		query += ` AND created_at >= ?`
		args = append(args, *since)
	}
	query += ` ORDER BY updated_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.readDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperr.Wrap(apperr.Transient, "store.ListRecentConversations", "query conversations", err)
	}
	defer rows.Close()

	var out []model.Conversation
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, apperr.Wrap(apperr.Transient, "store.ListRecentConversations", "scan conversation", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func placeholders(n int) string {
	b := make([]byte, 0, n*2-1)
	for i := 0; i < n; i++ {
		if i > 0 {
			b = append(b, ',')
		}
		b = append(b, '?')
	}
	return string(b)
}
