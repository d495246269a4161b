package store

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/fyrsmithlabs/ctxmemd/internal/apperr"
	"github.com/fyrsmithlabs/ctxmemd/internal/model"
)

// UpsertRepository inserts or updates a Repository by ProjectPath and returns its id.
// ON CONFLICT updates the discovered fields, matching §4.6/§4.7's "upsertRepository"
// contract; booleans are stored as 0/1.
func (s *Store) UpsertRepository(ctx context.Context, r *model.Repository) (int64, error) {
	var id int64
	err := s.Tx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO git_repositories(
				project_path, working_directory, git_directory, repository_root,
				subdirectory_path, is_monorepo_subdirectory, remote_url, current_branch, last_scanned
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(project_path) DO UPDATE SET
				working_directory = excluded.working_directory,
				git_directory = excluded.git_directory,
				repository_root = excluded.repository_root,
				subdirectory_path = excluded.subdirectory_path,
				is_monorepo_subdirectory = excluded.is_monorepo_subdirectory,
				remote_url = excluded.remote_url,
				current_branch = excluded.current_branch,
				last_scanned = excluded.last_scanned`,
			r.ProjectPath, r.WorkingDirectory, r.GitDirectory, r.RepositoryRoot,
			r.SubdirectoryPath, boolInt(r.IsMonorepoSubdirectory), r.RemoteURL, r.CurrentBranch, r.LastScanned.Unix(),
		); err != nil {
			return apperr.Wrap(apperr.Transient, "store.UpsertRepository", "upsert repository", err)
		}
		return tx.QueryRowContext(ctx, `SELECT id FROM git_repositories WHERE project_path = ?`, r.ProjectPath).Scan(&id)
	})
	return id, err
}

// GetRepositoryByProjectPath returns the repository row for a project path, or
// apperr.NotFound if it has never been discovered.
func (s *Store) GetRepositoryByProjectPath(ctx context.Context, projectPath string) (*model.Repository, error) {
	row := s.readDB.QueryRowContext(ctx, `
		SELECT id, project_path, working_directory, git_directory, repository_root,
		       subdirectory_path, is_monorepo_subdirectory, remote_url, current_branch, last_scanned
		FROM git_repositories WHERE project_path = ?`, projectPath)
	r, err := scanRepository(row)
	if err == sql.ErrNoRows {
		return nil, apperr.New(apperr.NotFound, "store.GetRepositoryByProjectPath", "no repository indexed for "+projectPath)
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Transient, "store.GetRepositoryByProjectPath", "scan repository", err)
	}
	return r, nil
}

func scanRepository(row scanner) (*model.Repository, error) {
	var r model.Repository
	var isMonorepo int
	var lastScanned int64
	if err := row.Scan(&r.ID, &r.ProjectPath, &r.WorkingDirectory, &r.GitDirectory, &r.RepositoryRoot,
		&r.SubdirectoryPath, &isMonorepo, &r.RemoteURL, &r.CurrentBranch, &lastScanned); err != nil {
		return nil, err
	}
	r.IsMonorepoSubdirectory = isMonorepo != 0
	r.LastScanned = unixTime(lastScanned)
	return &r, nil
}

// InsertCommit upserts a commit ON CONFLICT(repository_id, commit_hash); per-file changes
// are inserted only on the first insert, matching §4.7's "insertCommitFiles runs only on
// initial insert".
func (s *Store) InsertCommit(ctx context.Context, c *model.Commit) (int64, error) {
	var id int64
	err := s.Tx(ctx, func(tx *sql.Tx) error {
		parents, err := json.Marshal(nonNil(c.Parents))
		if err != nil {
			return apperr.Wrap(apperr.InvalidArgument, "store.InsertCommit", "marshal parent hashes", err)
		}

		var preExistingID int64
		existsErr := tx.QueryRowContext(ctx, `
			SELECT id FROM git_commits WHERE repository_id = ? AND commit_hash = ?`,
			c.RepositoryID, c.Hash).Scan(&preExistingID)
		if existsErr != nil && existsErr != sql.ErrNoRows {
			return apperr.Wrap(apperr.Transient, "store.InsertCommit", "check existing commit", existsErr)
		}
		isNew := existsErr == sql.ErrNoRows

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO git_commits(
				repository_id, commit_hash, branch, date, author_name, author_email,
				message, parent_hashes, is_merge, insertions, deletions, files_changed
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(repository_id, commit_hash) DO UPDATE SET
				branch = excluded.branch,
				date = excluded.date,
				author_name = excluded.author_name,
				author_email = excluded.author_email,
				message = excluded.message,
				parent_hashes = excluded.parent_hashes,
				is_merge = excluded.is_merge,
				insertions = excluded.insertions,
				deletions = excluded.deletions,
				files_changed = excluded.files_changed`,
			c.RepositoryID, c.Hash, c.Branch, c.Date.Unix(), c.AuthorName, c.AuthorEmail,
			c.Message, string(parents), boolInt(c.IsMerge), c.Insertions, c.Deletions, c.FilesChanged,
		); err != nil {
			return apperr.Wrap(apperr.Transient, "store.InsertCommit", "upsert commit", err)
		}

		if err := tx.QueryRowContext(ctx, `
			SELECT id FROM git_commits WHERE repository_id = ? AND commit_hash = ?`,
			c.RepositoryID, c.Hash).Scan(&id); err != nil {
			return apperr.Wrap(apperr.Transient, "store.InsertCommit", "resolve commit id", err)
		}

		if isNew && len(c.Files) > 0 {
			stmt, err := tx.PrepareContext(ctx, `
				INSERT INTO git_commit_files(commit_id, path, change_status) VALUES (?, ?, ?)`)
			if err != nil {
				return apperr.Wrap(apperr.Transient, "store.InsertCommit", "prepare commit file insert", err)
			}
			defer stmt.Close()
			for _, f := range c.Files {
				if _, err := stmt.ExecContext(ctx, id, f.Path, string(f.ChangeStatus)); err != nil {
					return apperr.Wrap(apperr.Fatal, "store.InsertCommit", "insert commit file", err)
				}
			}
		}
		return nil
	})
	return id, err
}

// ListCommits returns commits for a repository ordered by date descending, optionally
// bounded by a since timestamp (inclusive) and capped at limit (0 = no cap).
func (s *Store) ListCommits(ctx context.Context, repositoryID int64, since *int64, limit int) ([]model.Commit, error) {
	query := `
		SELECT id, repository_id, commit_hash, branch, date, author_name, author_email,
		       message, parent_hashes, is_merge, insertions, deletions, files_changed
		FROM git_commits WHERE repository_id = ?`
	args := []interface{}{repositoryID}
	if since != nil {
		query += ` AND date >= ?`
		args = append(args, *since)
	}
	query += ` ORDER BY date DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.readDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperr.Wrap(apperr.Transient, "store.ListCommits", "query commits", err)
	}
	defer rows.Close()

	var out []model.Commit
	for rows.Next() {
		var c model.Commit
		var date int64
		var parents string
		var isMerge int
		if err := rows.Scan(&c.ID, &c.RepositoryID, &c.Hash, &c.Branch, &date, &c.AuthorName, &c.AuthorEmail,
			&c.Message, &parents, &isMerge, &c.Insertions, &c.Deletions, &c.FilesChanged); err != nil {
			return nil, apperr.Wrap(apperr.Transient, "store.ListCommits", "scan commit", err)
		}
		c.Date = unixTime(date)
		c.IsMerge = isMerge != 0
		_ = json.Unmarshal([]byte(parents), &c.Parents)
		out = append(out, c)
	}
	return out, rows.Err()
}

// CreateRestorePoint inserts a restore point, rejecting a duplicate label within the
// repository with apperr.Conflict.
func (s *Store) CreateRestorePoint(ctx context.Context, rp *model.RestorePoint) (int64, error) {
	var id int64
	err := s.Tx(ctx, func(tx *sql.Tx) error {
		var existing string
		err := tx.QueryRowContext(ctx, `
			SELECT label FROM restore_points WHERE repository_id = ? AND label = ?`,
			rp.RepositoryID, rp.Label).Scan(&existing)
		if err == nil {
			return apperr.New(apperr.Conflict, "store.CreateRestorePoint", "restore point already exists: "+existing)
		}
		if err != sql.ErrNoRows {
			return apperr.Wrap(apperr.Transient, "store.CreateRestorePoint", "check duplicate label", err)
		}

		res, err := tx.ExecContext(ctx, `
			INSERT INTO restore_points(
				repository_id, commit_hash, label, description, auto_generated,
				test_status, created_at, created_by
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			rp.RepositoryID, rp.CommitHash, rp.Label, rp.Description, boolInt(rp.AutoGenerated),
			string(rp.TestStatus), rp.CreatedAt.Unix(), rp.CreatedBy)
		if err != nil {
			return apperr.Wrap(apperr.Transient, "store.CreateRestorePoint", "insert restore point", err)
		}
		id, err = res.LastInsertId()
		if err != nil {
			return apperr.Wrap(apperr.Transient, "store.CreateRestorePoint", "resolve restore point id", err)
		}
		return nil
	})
	return id, err
}

// ListRestorePoints returns restore points for a repository ordered by created_at
// descending, optionally excluding auto-generated ones and bounded by since.
func (s *Store) ListRestorePoints(ctx context.Context, repositoryID int64, includeAutoGenerated bool, since *int64, limit int) ([]model.RestorePoint, error) {
	query := `
		SELECT id, repository_id, commit_hash, label, description, auto_generated,
		       test_status, created_at, created_by
		FROM restore_points WHERE repository_id = ?`
	args := []interface{}{repositoryID}
	if !includeAutoGenerated {
		query += ` AND auto_generated = 0`
	}
	if since != nil {
		query += ` AND created_at >= ?`
		args = append(args, *since)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.readDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperr.Wrap(apperr.Transient, "store.ListRestorePoints", "query restore points", err)
	}
	defer rows.Close()

	var out []model.RestorePoint
	for rows.Next() {
		var rp model.RestorePoint
		var autoGen int
		var createdAt int64
		var testStatus string
		if err := rows.Scan(&rp.ID, &rp.RepositoryID, &rp.CommitHash, &rp.Label, &rp.Description,
			&autoGen, &testStatus, &createdAt, &rp.CreatedBy); err != nil {
			return nil, apperr.Wrap(apperr.Transient, "store.ListRestorePoints", "scan restore point", err)
		}
		rp.AutoGenerated = autoGen != 0
		rp.TestStatus = model.TestStatus(testStatus)
		rp.CreatedAt = unixTime(createdAt)
		out = append(out, rp)
	}
	return out, rows.Err()
}

// GetRestorePoint returns a single restore point by repository and id.
func (s *Store) GetRestorePoint(ctx context.Context, repositoryID, restorePointID int64) (*model.RestorePoint, error) {
	row := s.readDB.QueryRowContext(ctx, `
		SELECT id, repository_id, commit_hash, label, description, auto_generated,
		       test_status, created_at, created_by
		FROM restore_points WHERE repository_id = ? AND id = ?`, repositoryID, restorePointID)
	var rp model.RestorePoint
	var autoGen int
	var createdAt int64
	var testStatus string
	err := row.Scan(&rp.ID, &rp.RepositoryID, &rp.CommitHash, &rp.Label, &rp.Description,
		&autoGen, &testStatus, &createdAt, &rp.CreatedBy)
	if err == sql.ErrNoRows {
		return nil, apperr.New(apperr.NotFound, "store.GetRestorePoint", "unknown restore point")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Transient, "store.GetRestorePoint", "scan restore point", err)
	}
	rp.AutoGenerated = autoGen != 0
	rp.TestStatus = model.TestStatus(testStatus)
	rp.CreatedAt = unixTime(createdAt)
	return &rp, nil
}

// LinkConversationToGit records a conversation-git link via INSERT OR REPLACE on the
// natural key, matching §4.7's linkConversationToGit contract.
func (s *Store) LinkConversationToGit(ctx context.Context, link *model.ConversationGitLink) error {
	metadata, err := json.Marshal(link.Metadata)
	if err != nil {
		return apperr.Wrap(apperr.InvalidArgument, "store.LinkConversationToGit", "marshal metadata", err)
	}
	return s.Tx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO conversation_git_links(
				conversation_id, repository_id, commit_id, link_type, confidence, time_correlation, metadata
			) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			link.ConversationID, link.RepositoryID, link.CommitID, string(link.LinkType),
			link.Confidence, link.TimeCorrelation, string(metadata))
		if err != nil {
			return apperr.Wrap(apperr.Transient, "store.LinkConversationToGit", "insert link", err)
		}
		return nil
	})
}

// UpsertRepositorySettings seeds or updates per-repository defaults the first time a
// Git Repository row is created, so the auto-commit collaborator never reads an unset
// row (SUPPLEMENTED FEATURES: Repository Settings defaults seeding).
func (s *Store) UpsertRepositorySettings(ctx context.Context, rs *model.RepositorySettings) error {
	excluded, err := json.Marshal(nonNil(rs.ExcludedPatterns))
	if err != nil {
		return apperr.Wrap(apperr.InvalidArgument, "store.UpsertRepositorySettings", "marshal excluded_patterns", err)
	}
	return s.Tx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO repository_settings(
				repository_id, auto_commit_enabled, notification_preference, excluded_patterns,
				throttle_seconds, max_file_size_bytes, shadow_branch_prefix, commit_count
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(repository_id) DO UPDATE SET
				auto_commit_enabled = excluded.auto_commit_enabled,
				notification_preference = excluded.notification_preference,
				excluded_patterns = excluded.excluded_patterns,
				throttle_seconds = excluded.throttle_seconds,
				max_file_size_bytes = excluded.max_file_size_bytes,
				shadow_branch_prefix = excluded.shadow_branch_prefix,
				commit_count = excluded.commit_count`,
			rs.RepositoryID, boolInt(rs.AutoCommitEnabled), rs.NotificationPreference, string(excluded),
			rs.ThrottleSeconds, rs.MaxFileSizeBytes, rs.ShadowBranchPrefix, rs.CommitCount)
		if err != nil {
			return apperr.Wrap(apperr.Transient, "store.UpsertRepositorySettings", "upsert settings", err)
		}
		return nil
	})
}

// DefaultRepositorySettings returns the seed values applied the first time a repository
// is discovered.
func DefaultRepositorySettings(repositoryID int64) *model.RepositorySettings {
	return &model.RepositorySettings{
		RepositoryID:           repositoryID,
		NotificationPreference: "silent",
		ThrottleSeconds:        30,
		MaxFileSizeBytes:       5_000_000,
		ShadowBranchPrefix:     "shadow/",
	}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
