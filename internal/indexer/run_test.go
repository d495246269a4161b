package indexer

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/fyrsmithlabs/ctxmemd/internal/logging"
	"github.com/fyrsmithlabs/ctxmemd/internal/model"
	"github.com/fyrsmithlabs/ctxmemd/internal/transcript"
	"github.com/fyrsmithlabs/ctxmemd/internal/watcher"
)

type fakeCompleter struct {
	mu        sync.Mutex
	completed []string
	done      chan struct{}
}

func newFakeCompleter(want int) *fakeCompleter {
	return &fakeCompleter{done: make(chan struct{}, want)}
}

func (f *fakeCompleter) MarkComplete(path string, mtimeAtEnqueue time.Time) {
	f.mu.Lock()
	f.completed = append(f.completed, path)
	f.mu.Unlock()
	f.done <- struct{}{}
}

func TestRun_IndexesEventsAndReportsCompletion(t *testing.T) {
	st := openTestStore(t)
	parser := &fakeParser{result: &transcript.ParseResult{
		Conversation: &model.Conversation{
			SessionID:    "sess-run",
			Messages:     []model.Message{{Index: 0, Role: model.RoleUser, Content: "hi"}},
			MessageCount: 1,
		},
	}}
	ix := New(parser, st, logging.Noop())

	events := make(chan watcher.Event, 1)
	completer := newFakeCompleter(1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go ix.Run(ctx, events, completer)

	ts := time.Now()
	events <- watcher.Event{Path: "/fake/run.jsonl", Timestamp: ts}

	select {
	case <-completer.done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for MarkComplete")
	}

	completer.mu.Lock()
	defer completer.mu.Unlock()
	if len(completer.completed) != 1 || completer.completed[0] != "/fake/run.jsonl" {
		t.Errorf("completed = %v, want [/fake/run.jsonl]", completer.completed)
	}

	conv, err := st.GetConversationBySessionID(context.Background(), "sess-run")
	if err != nil {
		t.Fatalf("GetConversationBySessionID() error = %v", err)
	}
	if conv.MessageCount != 1 {
		t.Errorf("stored MessageCount = %d, want 1", conv.MessageCount)
	}
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	st := openTestStore(t)
	parser := &fakeParser{result: &transcript.ParseResult{Conversation: &model.Conversation{SessionID: "sess-cancel"}}}
	ix := New(parser, st, logging.Noop())

	events := make(chan watcher.Event)
	completer := newFakeCompleter(0)

	ctx, cancel := context.WithCancel(context.Background())
	finished := make(chan struct{})
	go func() {
		ix.Run(ctx, events, completer)
		close(finished)
	}()

	cancel()

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
}

func TestRun_StopsWhenEventsChannelCloses(t *testing.T) {
	st := openTestStore(t)
	parser := &fakeParser{result: &transcript.ParseResult{Conversation: &model.Conversation{SessionID: "sess-close"}}}
	ix := New(parser, st, logging.Noop())

	events := make(chan watcher.Event)
	completer := newFakeCompleter(0)

	finished := make(chan struct{})
	go func() {
		ix.Run(context.Background(), events, completer)
		close(finished)
	}()

	close(events)

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after events channel closed")
	}
}
