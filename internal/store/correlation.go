package store

import (
	"context"
	"database/sql"

	"github.com/fyrsmithlabs/ctxmemd/internal/apperr"
	"github.com/fyrsmithlabs/ctxmemd/internal/model"
)

// RecordShadowCommit stores an auto-commit receipt from the external collaborator,
// keyed uniquely by commit_hash.
func (s *Store) RecordShadowCommit(ctx context.Context, sc *model.ShadowCommit) (int64, error) {
	var id int64
	err := s.Tx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO shadow_commits(
				commit_hash, shadow_branch, original_branch, repository_path, timestamp,
				files_changed, insertions, deletions, message, conversation_session_id, correlation_confidence
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(commit_hash) DO UPDATE SET
				shadow_branch = excluded.shadow_branch,
				original_branch = excluded.original_branch,
				conversation_session_id = excluded.conversation_session_id,
				correlation_confidence = excluded.correlation_confidence`,
			sc.CommitHash, sc.ShadowBranch, sc.OriginalBranch, sc.RepositoryPath, sc.Timestamp.Unix(),
			sc.FilesChanged, sc.Insertions, sc.Deletions, sc.Message, sc.ConversationSessionID, sc.CorrelationConfidence); err != nil {
			return apperr.Wrap(apperr.Transient, "store.RecordShadowCommit", "upsert shadow commit", err)
		}
		// Never trust last-insert-rowid after an ON CONFLICT upsert: resolve by the unique key.
		return tx.QueryRowContext(ctx, `SELECT id FROM shadow_commits WHERE commit_hash = ?`, sc.CommitHash).Scan(&id)
	})
	return id, err
}

// RecordGitCorrelation persists the Correlator's verdict for a (repository_path,
// file_path, session_id) observation.
func (s *Store) RecordGitCorrelation(ctx context.Context, c *model.GitCorrelation) error {
	return s.Tx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO conversation_git_correlations(
				repository_path, file_path, session_id, confidence, created_at
			) VALUES (?, ?, ?, ?, ?)`,
			c.RepositoryPath, c.FilePath, c.SessionID, c.Confidence, c.CreatedAt.Unix())
		if err != nil {
			return apperr.Wrap(apperr.Transient, "store.RecordGitCorrelation", "insert correlation", err)
		}
		return nil
	})
}

// RecentlyModifiedSessions returns distinct session_ids with shadow commits reported
// against repositoryPath since the given Unix-seconds lower bound, most recent first.
// The Correlator uses this to bound which transcripts are worth re-scanning.
func (s *Store) RecentlyModifiedSessions(ctx context.Context, repositoryPath string, since int64) ([]string, error) {
	rows, err := s.readDB.QueryContext(ctx, `
		SELECT DISTINCT conversation_session_id FROM shadow_commits
		WHERE repository_path = ? AND timestamp >= ? AND conversation_session_id != ''
		ORDER BY timestamp DESC`, repositoryPath, since)
	if err != nil {
		return nil, apperr.Wrap(apperr.Transient, "store.RecentlyModifiedSessions", "query shadow commits", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var sid string
		if err := rows.Scan(&sid); err != nil {
			return nil, apperr.Wrap(apperr.Transient, "store.RecentlyModifiedSessions", "scan session id", err)
		}
		out = append(out, sid)
	}
	return out, rows.Err()
}
