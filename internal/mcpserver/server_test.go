package mcpserver

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/ctxmemd/internal/apperr"
	"github.com/fyrsmithlabs/ctxmemd/internal/gitadapter"
	"github.com/fyrsmithlabs/ctxmemd/internal/gitindexer"
	"github.com/fyrsmithlabs/ctxmemd/internal/logging"
	"github.com/fyrsmithlabs/ctxmemd/internal/query"
	"github.com/fyrsmithlabs/ctxmemd/internal/store"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ctxmemd.db")
	st, err := store.Open(context.Background(), path, store.DefaultOptions(), logging.Noop())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestNew_RequiresDependencies(t *testing.T) {
	st := openTestStore(t)
	engine := query.New(st)
	gi := gitindexer.New(gitadapter.New(), st, logging.Noop())

	_, err := New(nil, nil, gi, st, logging.Noop())
	require.Error(t, err)

	_, err = New(nil, engine, nil, st, logging.Noop())
	require.Error(t, err)

	_, err = New(nil, engine, gi, nil, logging.Noop())
	require.Error(t, err)
}

func TestNew_Succeeds(t *testing.T) {
	st := openTestStore(t)
	engine := query.New(st)
	gi := gitindexer.New(gitadapter.New(), st, logging.Noop())

	s, err := New(nil, engine, gi, st, logging.Noop())
	require.NoError(t, err)
	require.NotNil(t, s)
}

func TestSanitize_PassesThroughAppErrMessage(t *testing.T) {
	st := openTestStore(t)
	engine := query.New(st)
	gi := gitindexer.New(gitadapter.New(), st, logging.Noop())
	s, err := New(nil, engine, gi, st, logging.Noop())
	require.NoError(t, err)

	orig := apperr.Wrap(apperr.NotFound, "store.GetX", "no such session", errors.New("sqlite: no rows, path /home/user/secret/db.sqlite"))
	sanitized := s.sanitize(context.Background(), "get_conversation_context", orig)

	require.True(t, apperr.Is(sanitized, apperr.NotFound))
	require.Contains(t, sanitized.Error(), "no such session")
	require.NotContains(t, sanitized.Error(), "/home/user/secret")
}

func TestSanitize_RedactsUnclassifiedErrors(t *testing.T) {
	st := openTestStore(t)
	engine := query.New(st)
	gi := gitindexer.New(gitadapter.New(), st, logging.Noop())
	s, err := New(nil, engine, gi, st, logging.Noop())
	require.NoError(t, err)

	sanitized := s.sanitize(context.Background(), "search_conversations", errors.New("open /home/user/.claude/projects: permission denied"))

	require.True(t, apperr.Is(sanitized, apperr.Fatal))
	require.NotContains(t, sanitized.Error(), "/home/user/.claude")
}

func TestToolMetrics_StartRecordsWithoutError(t *testing.T) {
	m := newToolMetrics()
	var toolErr error
	done := m.start(context.Background(), "search_conversations", &toolErr)
	done()
}

func TestToolMetrics_StartRecordsError(t *testing.T) {
	m := newToolMetrics()
	toolErr := errors.New("boom")
	done := m.start(context.Background(), "search_conversations", &toolErr)
	done()
}
