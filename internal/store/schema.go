package store

// schema is applied idempotently on every open. Statements are separated so that
// applySchema can execute them one at a time and tolerate UNIQUE-constraint conflicts on
// the seed inserts at the bottom (the index_stats bootstrap row).
const schema = `
CREATE TABLE IF NOT EXISTS conversations (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL UNIQUE,
	project_hash TEXT NOT NULL DEFAULT '',
	project_name TEXT NOT NULL DEFAULT '',
	project_path TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL,
	message_count INTEGER NOT NULL DEFAULT 0,
	total_tokens INTEGER NOT NULL DEFAULT 0,
	file_references TEXT NOT NULL DEFAULT '[]',
	topics TEXT NOT NULL DEFAULT '[]',
	keywords TEXT NOT NULL DEFAULT '[]'
);

CREATE INDEX IF NOT EXISTS idx_conversations_project_path ON conversations(project_path);
CREATE INDEX IF NOT EXISTS idx_conversations_updated_at ON conversations(updated_at DESC);

CREATE TABLE IF NOT EXISTS messages (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	conversation_id INTEGER NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
	message_index INTEGER NOT NULL,
	uuid TEXT NOT NULL DEFAULT '',
	timestamp INTEGER NOT NULL,
	role TEXT NOT NULL,
	content_type TEXT NOT NULL DEFAULT '',
	content TEXT NOT NULL DEFAULT '',
	content_summary TEXT NOT NULL DEFAULT '',
	tool_calls TEXT NOT NULL DEFAULT '[]',
	file_references TEXT NOT NULL DEFAULT '[]',
	tokens INTEGER NOT NULL DEFAULT 0,
	UNIQUE(conversation_id, message_index)
);

CREATE INDEX IF NOT EXISTS idx_messages_conversation_id ON messages(conversation_id);

CREATE VIRTUAL TABLE IF NOT EXISTS messages_fts USING fts5(
	content,
	topics,
	project_path,
	content='messages',
	content_rowid='id',
	tokenize='porter ascii'
);

CREATE TRIGGER IF NOT EXISTS messages_ai AFTER INSERT ON messages BEGIN
	INSERT INTO messages_fts(rowid, content, topics, project_path)
	SELECT new.id, new.content, c.topics, c.project_path
	FROM conversations c WHERE c.id = new.conversation_id;
END;

CREATE TRIGGER IF NOT EXISTS messages_ad AFTER DELETE ON messages BEGIN
	INSERT INTO messages_fts(messages_fts, rowid, content, topics, project_path)
	VALUES('delete', old.id, old.content, '', '');
END;

CREATE TRIGGER IF NOT EXISTS messages_au AFTER UPDATE ON messages BEGIN
	INSERT INTO messages_fts(messages_fts, rowid, content, topics, project_path)
	VALUES('delete', old.id, old.content, '', '');
	INSERT INTO messages_fts(rowid, content, topics, project_path)
	SELECT new.id, new.content, c.topics, c.project_path
	FROM conversations c WHERE c.id = new.conversation_id;
END;

CREATE TABLE IF NOT EXISTS conversation_search_cache (
	cache_key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	expires_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS index_stats (
	name TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS git_repositories (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	project_path TEXT NOT NULL UNIQUE,
	working_directory TEXT NOT NULL DEFAULT '',
	git_directory TEXT NOT NULL DEFAULT '',
	repository_root TEXT NOT NULL DEFAULT '',
	subdirectory_path TEXT NOT NULL DEFAULT '',
	is_monorepo_subdirectory INTEGER NOT NULL DEFAULT 0,
	remote_url TEXT NOT NULL DEFAULT '',
	current_branch TEXT NOT NULL DEFAULT '',
	last_scanned INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS git_commits (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	repository_id INTEGER NOT NULL REFERENCES git_repositories(id) ON DELETE CASCADE,
	commit_hash TEXT NOT NULL,
	branch TEXT NOT NULL DEFAULT '',
	date INTEGER NOT NULL,
	author_name TEXT NOT NULL DEFAULT '',
	author_email TEXT NOT NULL DEFAULT '',
	message TEXT NOT NULL DEFAULT '',
	parent_hashes TEXT NOT NULL DEFAULT '[]',
	is_merge INTEGER NOT NULL DEFAULT 0,
	insertions INTEGER NOT NULL DEFAULT 0,
	deletions INTEGER NOT NULL DEFAULT 0,
	files_changed INTEGER NOT NULL DEFAULT 0,
	UNIQUE(repository_id, commit_hash)
);

CREATE INDEX IF NOT EXISTS idx_git_commits_repo_date ON git_commits(repository_id, date DESC);

CREATE TABLE IF NOT EXISTS git_commit_files (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	commit_id INTEGER NOT NULL REFERENCES git_commits(id) ON DELETE CASCADE,
	path TEXT NOT NULL,
	change_status TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_git_commit_files_commit_id ON git_commit_files(commit_id);

CREATE TABLE IF NOT EXISTS restore_points (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	repository_id INTEGER NOT NULL REFERENCES git_repositories(id) ON DELETE CASCADE,
	commit_hash TEXT NOT NULL,
	label TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	auto_generated INTEGER NOT NULL DEFAULT 0,
	test_status TEXT NOT NULL DEFAULT 'unknown',
	created_at INTEGER NOT NULL,
	created_by TEXT NOT NULL DEFAULT '',
	UNIQUE(repository_id, label)
);

CREATE INDEX IF NOT EXISTS idx_restore_points_repo_created ON restore_points(repository_id, created_at DESC);

CREATE TABLE IF NOT EXISTS conversation_git_links (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	conversation_id INTEGER NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
	repository_id INTEGER NOT NULL REFERENCES git_repositories(id) ON DELETE CASCADE,
	commit_id INTEGER REFERENCES git_commits(id) ON DELETE SET NULL,
	link_type TEXT NOT NULL,
	confidence REAL NOT NULL DEFAULT 0,
	time_correlation REAL NOT NULL DEFAULT 0,
	metadata TEXT NOT NULL DEFAULT '{}',
	UNIQUE(conversation_id, repository_id, commit_id, link_type)
);

CREATE INDEX IF NOT EXISTS idx_conversation_git_links_conversation ON conversation_git_links(conversation_id);
CREATE INDEX IF NOT EXISTS idx_conversation_git_links_repository ON conversation_git_links(repository_id);

CREATE TABLE IF NOT EXISTS shadow_commits (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	commit_hash TEXT NOT NULL UNIQUE,
	shadow_branch TEXT NOT NULL DEFAULT '',
	original_branch TEXT NOT NULL DEFAULT '',
	repository_path TEXT NOT NULL DEFAULT '',
	timestamp INTEGER NOT NULL,
	files_changed INTEGER NOT NULL DEFAULT 0,
	insertions INTEGER NOT NULL DEFAULT 0,
	deletions INTEGER NOT NULL DEFAULT 0,
	message TEXT NOT NULL DEFAULT '',
	conversation_session_id TEXT NOT NULL DEFAULT '',
	correlation_confidence REAL NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS conversation_git_correlations (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	repository_path TEXT NOT NULL,
	file_path TEXT NOT NULL,
	session_id TEXT NOT NULL,
	confidence REAL NOT NULL,
	created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS repository_settings (
	repository_id INTEGER PRIMARY KEY REFERENCES git_repositories(id) ON DELETE CASCADE,
	auto_commit_enabled INTEGER NOT NULL DEFAULT 0,
	notification_preference TEXT NOT NULL DEFAULT 'silent',
	excluded_patterns TEXT NOT NULL DEFAULT '[]',
	throttle_seconds INTEGER NOT NULL DEFAULT 30,
	max_file_size_bytes INTEGER NOT NULL DEFAULT 5000000,
	shadow_branch_prefix TEXT NOT NULL DEFAULT 'shadow/',
	commit_count INTEGER NOT NULL DEFAULT 0
);

INSERT OR IGNORE INTO index_stats(name, value) VALUES ('schema_version', '1');
INSERT OR IGNORE INTO index_stats(name, value) VALUES ('total_conversations', '0');
INSERT OR IGNORE INTO index_stats(name, value) VALUES ('total_messages', '0');
INSERT OR IGNORE INTO index_stats(name, value) VALUES ('last_incremental_index', '0');
`
