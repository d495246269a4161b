package model

import "time"

// ChangeStatus is the per-file status recorded for a commit.
type ChangeStatus string

const (
	ChangeAdded    ChangeStatus = "added"
	ChangeModified ChangeStatus = "modified"
	ChangeDeleted  ChangeStatus = "deleted"
	ChangeRenamed  ChangeStatus = "renamed"
)

// TestStatus is the verification state recorded against a RestorePoint.
type TestStatus string

const (
	TestUnknown TestStatus = "unknown"
	TestPassing TestStatus = "passing"
	TestFailing TestStatus = "failing"
	TestSkipped TestStatus = "skipped"
)

// LinkType classifies a Conversation-Git link.
type LinkType string

const (
	LinkTemporal      LinkType = "temporal"
	LinkAutoCommit    LinkType = "auto_commit"
	LinkManualCommit  LinkType = "manual_commit"
	LinkRestorePoint  LinkType = "restore_point"
	LinkBranchSwitch  LinkType = "branch_switch"
)

// Repository is a discovered git working tree, unique by ProjectPath.
type Repository struct {
	ID                    int64     `json:"-"`
	ProjectPath           string    `json:"project_path"`
	WorkingDirectory      string    `json:"working_directory"`
	GitDirectory          string    `json:"git_directory"`
	RepositoryRoot        string    `json:"repository_root,omitempty"`
	SubdirectoryPath      string    `json:"subdirectory_path,omitempty"`
	IsMonorepoSubdirectory bool     `json:"is_monorepo_subdirectory"`
	RemoteURL             string    `json:"remote_url,omitempty"`
	CurrentBranch         string    `json:"current_branch"`
	LastScanned           time.Time `json:"last_scanned"`
}

// CommitFile is one file touched by a Commit.
type CommitFile struct {
	Path         string       `json:"path"`
	ChangeStatus ChangeStatus `json:"change_status"`
}

// Commit is a git commit, unique within a Repository by Hash.
type Commit struct {
	ID           int64        `json:"-"`
	RepositoryID int64        `json:"repository_id"`
	Hash         string       `json:"commit_hash"`
	Branch       string       `json:"branch"`
	Date         time.Time    `json:"date"`
	AuthorName   string       `json:"author_name"`
	AuthorEmail  string       `json:"author_email"`
	Message      string       `json:"message"`
	Parents      []string     `json:"parent_hashes"`
	IsMerge      bool         `json:"is_merge"`
	Insertions   int          `json:"insertions"`
	Deletions    int          `json:"deletions"`
	FilesChanged int          `json:"files_changed"`
	Files        []CommitFile `json:"files,omitempty"`
}

// RestorePoint is a named pointer to a commit in a repository.
type RestorePoint struct {
	ID            int64      `json:"-"`
	RepositoryID  int64      `json:"repository_id"`
	CommitHash    string     `json:"commit_hash"`
	Label         string     `json:"label"`
	Description   string     `json:"description,omitempty"`
	AutoGenerated bool       `json:"auto_generated"`
	TestStatus    TestStatus `json:"test_status"`
	CreatedAt     time.Time  `json:"created_at"`
	CreatedBy     string     `json:"created_by,omitempty"`
}

// ConversationGitLink binds a Conversation to a Repository and optionally a Commit.
type ConversationGitLink struct {
	ID              int64    `json:"-"`
	ConversationID  int64    `json:"conversation_id"`
	RepositoryID    int64    `json:"repository_id"`
	CommitID        *int64   `json:"commit_id,omitempty"`
	LinkType        LinkType `json:"link_type"`
	Confidence      float64  `json:"confidence"`
	TimeCorrelation float64  `json:"time_correlation"`
	Metadata        map[string]interface{} `json:"metadata,omitempty"`
}

// WorkingTreeStatus summarizes a working directory's modification state.
type WorkingTreeStatus struct {
	Clean     bool `json:"clean"`
	Modified  int  `json:"modified"`
	Untracked int  `json:"untracked"`
}

// ShadowCommit is an auto-commit receipt reported by the external collaborator.
type ShadowCommit struct {
	ID                    int64     `json:"-"`
	CommitHash            string    `json:"commit_hash"`
	ShadowBranch          string    `json:"shadow_branch"`
	OriginalBranch        string    `json:"original_branch"`
	RepositoryPath        string    `json:"repository_path"`
	Timestamp             time.Time `json:"timestamp"`
	FilesChanged          int       `json:"files_changed"`
	Insertions            int       `json:"insertions"`
	Deletions             int       `json:"deletions"`
	Message               string    `json:"message"`
	ConversationSessionID string    `json:"conversation_session_id,omitempty"`
	CorrelationConfidence float64   `json:"correlation_confidence"`
}

// GitCorrelation is the Correlator's (C8) persisted verdict binding a modified file to
// the session most plausibly responsible for it.
type GitCorrelation struct {
	ID             int64     `json:"-"`
	RepositoryPath string    `json:"repository_path"`
	FilePath       string    `json:"file_path"`
	SessionID      string    `json:"session_id"`
	Confidence     float64   `json:"confidence"`
	CreatedAt      time.Time `json:"created_at"`
}

// RepositorySettings are per-repository preferences consumed by the auto-commit
// collaborator but stored by this core.
type RepositorySettings struct {
	RepositoryID          int64    `json:"repository_id"`
	AutoCommitEnabled     bool     `json:"auto_commit_enabled"`
	NotificationPreference string  `json:"notification_preference"`
	ExcludedPatterns      []string `json:"excluded_patterns"`
	ThrottleSeconds       int      `json:"throttle_seconds"`
	MaxFileSizeBytes      int64    `json:"max_file_size_bytes"`
	ShadowBranchPrefix    string   `json:"shadow_branch_prefix"`
	CommitCount           int      `json:"commit_count"`
}
