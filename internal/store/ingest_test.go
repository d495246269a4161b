package store

import (
	"context"
	"testing"
	"time"

	"github.com/fyrsmithlabs/ctxmemd/internal/model"
)

func sampleConversation(sessionID string, messages ...model.Message) *model.Conversation {
	return &model.Conversation{
		SessionID:    sessionID,
		ProjectName:  "ctxmemd",
		ProjectPath:  "/home/user/ctxmemd",
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
		MessageCount: len(messages),
		Messages:     messages,
	}
}

func TestIngestConversation_FirstIngestInsertsEverything(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	conv := sampleConversation("sess-1",
		model.Message{Index: 0, Role: model.RoleUser, Content: "hello"},
		model.Message{Index: 1, Role: model.RoleAssistant, Content: "hi there"},
	)

	result, err := st.IngestConversation(ctx, conv)
	if err != nil {
		t.Fatalf("IngestConversation() error = %v", err)
	}
	if !result.Inserted {
		t.Error("Inserted = false, want true")
	}
	if result.MessagesInserted != 2 {
		t.Errorf("MessagesInserted = %d, want 2", result.MessagesInserted)
	}

	stats, err := st.ReadStats(ctx)
	if err != nil {
		t.Fatalf("ReadStats() error = %v", err)
	}
	if stats.TotalConversations != 1 {
		t.Errorf("TotalConversations = %d, want 1", stats.TotalConversations)
	}
	if stats.TotalMessages != 2 {
		t.Errorf("TotalMessages = %d, want 2", stats.TotalMessages)
	}
}

func TestIngestConversation_ReingestOnlyInsertsNewSuffix(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	conv := sampleConversation("sess-2",
		model.Message{Index: 0, Role: model.RoleUser, Content: "first"},
	)
	if _, err := st.IngestConversation(ctx, conv); err != nil {
		t.Fatalf("first IngestConversation() error = %v", err)
	}

	conv2 := sampleConversation("sess-2",
		model.Message{Index: 0, Role: model.RoleUser, Content: "first"},
		model.Message{Index: 1, Role: model.RoleAssistant, Content: "second"},
	)
	result, err := st.IngestConversation(ctx, conv2)
	if err != nil {
		t.Fatalf("second IngestConversation() error = %v", err)
	}
	if result.Inserted {
		t.Error("Inserted = true on re-ingest, want false")
	}
	if result.MessagesInserted != 1 {
		t.Errorf("MessagesInserted = %d, want 1 (only the new suffix)", result.MessagesInserted)
	}

	stored, err := st.GetConversationBySessionID(ctx, "sess-2")
	if err != nil {
		t.Fatalf("GetConversationBySessionID() error = %v", err)
	}
	msgs, err := st.ListMessages(ctx, stored.ID, nil)
	if err != nil {
		t.Fatalf("ListMessages() error = %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("len(msgs) = %d, want 2", len(msgs))
	}
}

func TestIngestConversation_EmptyReingestDoesNotBumpMessageCounter(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	conv := sampleConversation("sess-3", model.Message{Index: 0, Role: model.RoleUser, Content: "only"})
	if _, err := st.IngestConversation(ctx, conv); err != nil {
		t.Fatalf("first IngestConversation() error = %v", err)
	}

	before, err := st.ReadStats(ctx)
	if err != nil {
		t.Fatalf("ReadStats() error = %v", err)
	}

	result, err := st.IngestConversation(ctx, conv)
	if err != nil {
		t.Fatalf("second IngestConversation() error = %v", err)
	}
	if result.MessagesInserted != 0 {
		t.Errorf("MessagesInserted = %d, want 0 for a no-op re-ingest", result.MessagesInserted)
	}

	after, err := st.ReadStats(ctx)
	if err != nil {
		t.Fatalf("ReadStats() error = %v", err)
	}
	if after.TotalMessages != before.TotalMessages {
		t.Errorf("TotalMessages changed from %d to %d on a no-op re-ingest", before.TotalMessages, after.TotalMessages)
	}
}

func TestIngestConversation_SetsLastIncrementalIndexAsUnixTimestamp(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	before := time.Now().Add(-time.Minute).UTC().Unix()
	conv := sampleConversation("sess-4", model.Message{Index: 0, Role: model.RoleUser, Content: "hi"})
	if _, err := st.IngestConversation(ctx, conv); err != nil {
		t.Fatalf("IngestConversation() error = %v", err)
	}

	stats, err := st.ReadStats(ctx)
	if err != nil {
		t.Fatalf("ReadStats() error = %v", err)
	}
	if stats.LastIncrementalIndex == 0 {
		t.Fatal("LastIncrementalIndex = 0, want a parsed Unix timestamp")
	}
	if stats.LastIncrementalIndex < before {
		t.Errorf("LastIncrementalIndex = %d, want at least %d", stats.LastIncrementalIndex, before)
	}
}
