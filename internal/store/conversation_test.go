package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/fyrsmithlabs/ctxmemd/internal/apperr"
	"github.com/fyrsmithlabs/ctxmemd/internal/model"
)

func TestUpsertConversation_SecondCallUpdatesNotInserts(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	conv := sampleConversation("sess-upsert")

	var firstID, secondID int64
	var firstInserted, secondInserted bool

	err := st.Tx(ctx, func(tx *sql.Tx) error {
		var err error
		firstID, firstInserted, err = UpsertConversation(ctx, tx, conv)
		return err
	})
	if err != nil {
		t.Fatalf("first UpsertConversation() error = %v", err)
	}
	if !firstInserted {
		t.Error("firstInserted = false, want true")
	}

	conv.ProjectName = "renamed"
	err = st.Tx(ctx, func(tx *sql.Tx) error {
		var err error
		secondID, secondInserted, err = UpsertConversation(ctx, tx, conv)
		return err
	})
	if err != nil {
		t.Fatalf("second UpsertConversation() error = %v", err)
	}
	if secondInserted {
		t.Error("secondInserted = true, want false")
	}
	if firstID != secondID {
		t.Errorf("id changed across upserts: %d != %d", firstID, secondID)
	}

	stored, err := st.GetConversationBySessionID(ctx, "sess-upsert")
	if err != nil {
		t.Fatalf("GetConversationBySessionID() error = %v", err)
	}
	if stored.ProjectName != "renamed" {
		t.Errorf("ProjectName = %q, want %q", stored.ProjectName, "renamed")
	}
}

func TestGetConversationBySessionID_NotFound(t *testing.T) {
	st := openTestStore(t)
	_, err := st.GetConversationBySessionID(context.Background(), "does-not-exist")
	if !apperr.Is(err, apperr.NotFound) {
		t.Errorf("error = %v, want apperr.NotFound", err)
	}
}

func TestMaxMessageIndex_NoMessagesReturnsNegativeOne(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	conv := sampleConversation("sess-empty")

	var convID int64
	err := st.Tx(ctx, func(tx *sql.Tx) error {
		var err error
		convID, _, err = UpsertConversation(ctx, tx, conv)
		return err
	})
	if err != nil {
		t.Fatalf("UpsertConversation() error = %v", err)
	}

	var idx int
	err = st.Tx(ctx, func(tx *sql.Tx) error {
		var err error
		idx, err = MaxMessageIndex(ctx, tx, convID)
		return err
	})
	if err != nil {
		t.Fatalf("MaxMessageIndex() error = %v", err)
	}
	if idx != -1 {
		t.Errorf("MaxMessageIndex() = %d, want -1", idx)
	}
}

func TestListMessages_FiltersByRole(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	conv := sampleConversation("sess-roles",
		model.Message{Index: 0, Role: model.RoleUser, Content: "q"},
		model.Message{Index: 1, Role: model.RoleAssistant, Content: "a"},
	)
	if _, err := st.IngestConversation(ctx, conv); err != nil {
		t.Fatalf("IngestConversation() error = %v", err)
	}
	stored, err := st.GetConversationBySessionID(ctx, "sess-roles")
	if err != nil {
		t.Fatalf("GetConversationBySessionID() error = %v", err)
	}

	userOnly, err := st.ListMessages(ctx, stored.ID, []model.Role{model.RoleUser})
	if err != nil {
		t.Fatalf("ListMessages() error = %v", err)
	}
	if len(userOnly) != 1 || userOnly[0].Role != model.RoleUser {
		t.Errorf("userOnly = %+v, want a single user message", userOnly)
	}

	all, err := st.ListMessages(ctx, stored.ID, nil)
	if err != nil {
		t.Fatalf("ListMessages() error = %v", err)
	}
	if len(all) != 2 {
		t.Errorf("len(all) = %d, want 2", len(all))
	}
}

func TestListRecentConversations_FiltersByProjectAndSince(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	a := sampleConversation("sess-a")
	a.ProjectPath = "/home/user/alpha"
	b := sampleConversation("sess-b")
	b.ProjectPath = "/home/user/beta"

	if _, err := st.IngestConversation(ctx, a); err != nil {
		t.Fatalf("ingest a: %v", err)
	}
	if _, err := st.IngestConversation(ctx, b); err != nil {
		t.Fatalf("ingest b: %v", err)
	}

	alphaOnly, err := st.ListRecentConversations(ctx, "alpha", nil, 10)
	if err != nil {
		t.Fatalf("ListRecentConversations() error = %v", err)
	}
	if len(alphaOnly) != 1 || alphaOnly[0].SessionID != "sess-a" {
		t.Errorf("alphaOnly = %+v, want only sess-a", alphaOnly)
	}

	future := a.CreatedAt.Add(time.Hour).Unix()
	none, err := st.ListRecentConversations(ctx, "", &future, 10)
	if err != nil {
		t.Fatalf("ListRecentConversations() error = %v", err)
	}
	if len(none) != 0 {
		t.Errorf("len(none) = %d, want 0 for a since bound in the future", len(none))
	}
}
