package store

import (
	"context"
	"testing"
	"time"

	"github.com/fyrsmithlabs/ctxmemd/internal/model"
)

func TestRecordShadowCommit_UpsertByCommitHash(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	sc := &model.ShadowCommit{
		CommitHash:            "shadow-abc",
		ShadowBranch:          "shadow/main",
		OriginalBranch:        "main",
		RepositoryPath:        "/home/user/shadowed",
		Timestamp:             time.Now(),
		Message:               "autosave",
		ConversationSessionID: "sess-shadow",
		CorrelationConfidence: 0.5,
	}
	id1, err := st.RecordShadowCommit(ctx, sc)
	if err != nil {
		t.Fatalf("first RecordShadowCommit() error = %v", err)
	}

	sc.CorrelationConfidence = 0.9
	id2, err := st.RecordShadowCommit(ctx, sc)
	if err != nil {
		t.Fatalf("second RecordShadowCommit() error = %v", err)
	}
	if id1 != id2 {
		t.Errorf("id changed across upserts: %d != %d", id1, id2)
	}
}

func TestRecordGitCorrelation_Inserts(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	c := &model.GitCorrelation{
		RepositoryPath: "/home/user/correlated",
		FilePath:       "internal/store/store.go",
		SessionID:      "sess-correlated",
		Confidence:     0.75,
		CreatedAt:      time.Now(),
	}
	if err := st.RecordGitCorrelation(ctx, c); err != nil {
		t.Fatalf("RecordGitCorrelation() error = %v", err)
	}
}

func TestRecentlyModifiedSessions_FiltersBySinceAndRepository(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	old := &model.ShadowCommit{
		CommitHash:            "old-commit",
		RepositoryPath:        "/home/user/repo",
		Timestamp:             base,
		ConversationSessionID: "sess-old",
	}
	recent := &model.ShadowCommit{
		CommitHash:            "recent-commit",
		RepositoryPath:        "/home/user/repo",
		Timestamp:             base.Add(45 * time.Minute),
		ConversationSessionID: "sess-recent",
	}
	other := &model.ShadowCommit{
		CommitHash:            "other-repo-commit",
		RepositoryPath:        "/home/user/other",
		Timestamp:             base.Add(45 * time.Minute),
		ConversationSessionID: "sess-other",
	}
	for _, sc := range []*model.ShadowCommit{old, recent, other} {
		if _, err := st.RecordShadowCommit(ctx, sc); err != nil {
			t.Fatalf("RecordShadowCommit(%s) error = %v", sc.CommitHash, err)
		}
	}

	since := base.Add(30 * time.Minute).Unix()
	sessions, err := st.RecentlyModifiedSessions(ctx, "/home/user/repo", since)
	if err != nil {
		t.Fatalf("RecentlyModifiedSessions() error = %v", err)
	}
	if len(sessions) != 1 || sessions[0] != "sess-recent" {
		t.Errorf("sessions = %v, want [sess-recent]", sessions)
	}
}

func TestRecentlyModifiedSessions_ExcludesEmptySessionID(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	sc := &model.ShadowCommit{
		CommitHash:            "no-session",
		RepositoryPath:        "/home/user/repo",
		Timestamp:             time.Now(),
		ConversationSessionID: "",
	}
	if _, err := st.RecordShadowCommit(ctx, sc); err != nil {
		t.Fatalf("RecordShadowCommit() error = %v", err)
	}

	sessions, err := st.RecentlyModifiedSessions(ctx, "/home/user/repo", 0)
	if err != nil {
		t.Fatalf("RecentlyModifiedSessions() error = %v", err)
	}
	if len(sessions) != 0 {
		t.Errorf("sessions = %v, want none for an empty conversation_session_id", sessions)
	}
}
