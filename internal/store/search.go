package store

import (
	"context"
	"database/sql"

	"github.com/fyrsmithlabs/ctxmemd/internal/apperr"
	"github.com/fyrsmithlabs/ctxmemd/internal/model"
)

// SearchHit is one FTS match row: a message plus its bm25 relevance score (lower is more
// relevant per sqlite's convention) and a pre-rendered `<mark>`-delimited snippet.
type SearchHit struct {
	ConversationID int64
	MessageID      int64
	Score          float64
	Snippet        string
}

// SearchMessages runs ftsQuery against messages_fts and returns every matching message
// ordered by bm25 ascending (ties broken by the parent conversation's updated_at
// descending then id descending), optionally filtered to conversations whose
// project_path contains projectFilter and whose created_at is >= since.
func (s *Store) SearchMessages(ctx context.Context, ftsQuery, projectFilter string, since *int64, limit, offset int) ([]SearchHit, error) {
	query := `
		SELECT m.conversation_id, m.id, bm25(messages_fts) AS score,
		       snippet(messages_fts, 0, '<mark>', '</mark>', '...', 32)
		FROM messages_fts
		JOIN messages m ON m.id = messages_fts.rowid
		JOIN conversations c ON c.id = m.conversation_id
		WHERE messages_fts MATCH ?`
	args := []interface{}{ftsQuery}
	if projectFilter != "" {
		query += ` AND c.project_path LIKE ?`
		args = append(args, "%"+projectFilter+"%")
	}
	if since != nil {
		query += ` AND c.created_at >= ?`
		args = append(args, *since)
	}
	query += ` ORDER BY score ASC, c.updated_at DESC, c.id DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := s.readDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperr.Wrap(apperr.Transient, "store.SearchMessages", "query messages_fts", err)
	}
	defer rows.Close()

	var out []SearchHit
	for rows.Next() {
		var h SearchHit
		if err := rows.Scan(&h.ConversationID, &h.MessageID, &h.Score, &h.Snippet); err != nil {
			return nil, apperr.Wrap(apperr.Transient, "store.SearchMessages", "scan search hit", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// GetConversationByID returns the conversation header for a primary key, or
// apperr.NotFound if it no longer exists.
func (s *Store) GetConversationByID(ctx context.Context, id int64) (*model.Conversation, error) {
	row := s.readDB.QueryRowContext(ctx, `
		SELECT id, session_id, project_hash, project_name, project_path,
		       created_at, updated_at, message_count, total_tokens,
		       file_references, topics, keywords
		FROM conversations WHERE id = ?`, id)
	c, err := scanConversation(row)
	if err == sql.ErrNoRows {
		return nil, apperr.New(apperr.NotFound, "store.GetConversationByID", "unknown conversation id")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Transient, "store.GetConversationByID", "scan conversation", err)
	}
	return c, nil
}
