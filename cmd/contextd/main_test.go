package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/ctxmemd/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.NewDefaultConfig()
	cfg.Store.DBPath = filepath.Join(t.TempDir(), "ctxmemd.db")
	cfg.Watcher.TranscriptRoot = filepath.Join(t.TempDir(), "transcripts")
	return cfg
}

func TestInitLogger_BuildsFromObservabilityConfig(t *testing.T) {
	cfg := testConfig(t)
	logger, err := initLogger(cfg)
	require.NoError(t, err)
	require.NotNil(t, logger)
}

func TestInitLogger_RejectsBadLevel(t *testing.T) {
	cfg := testConfig(t)
	cfg.Observability.LogLevel = "not-a-level"

	_, err := initLogger(cfg)
	require.Error(t, err)
}

func TestInitDependencies_WiresEveryComponent(t *testing.T) {
	cfg := testConfig(t)
	logger, err := initLogger(cfg)
	require.NoError(t, err)

	deps, err := initDependencies(context.Background(), cfg, logger)
	require.NoError(t, err)
	require.NotNil(t, deps.store)
	require.NotNil(t, deps.watcher)
	require.NotNil(t, deps.indexer)
	require.NotNil(t, deps.gitAdapter)
	require.NotNil(t, deps.gitIndexer)
	require.NotNil(t, deps.correlator)
	require.NotNil(t, deps.query)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_, err = deps.watcher.Start(ctx)
	require.NoError(t, err)

	deps.Close()
}
