// Contextd is a local, always-on indexer and retrieval daemon for AI-assistant
// conversation transcripts paired with git-repository activity.
//
// It watches a directory tree of JSON-lines conversation files, indexes them into
// a SQLite store, tracks git history for correlated repositories, and exposes a
// fixed set of tools over an injected MCP transport.
//
// Configuration is loaded from a YAML file (with environment variable overrides).
// See internal/config for details.
//
// Usage:
//
//	# Start the daemon with defaults
//	contextd
//
//	# Point at a specific config file
//	CTXMEMD_CONFIG=/etc/ctxmemd/config.yaml contextd
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ctxmemd/internal/config"
	"github.com/fyrsmithlabs/ctxmemd/internal/correlator"
	"github.com/fyrsmithlabs/ctxmemd/internal/gitadapter"
	"github.com/fyrsmithlabs/ctxmemd/internal/gitindexer"
	"github.com/fyrsmithlabs/ctxmemd/internal/indexer"
	"github.com/fyrsmithlabs/ctxmemd/internal/logging"
	"github.com/fyrsmithlabs/ctxmemd/internal/mcpserver"
	"github.com/fyrsmithlabs/ctxmemd/internal/query"
	"github.com/fyrsmithlabs/ctxmemd/internal/store"
	"github.com/fyrsmithlabs/ctxmemd/internal/transcript"
	"github.com/fyrsmithlabs/ctxmemd/internal/watcher"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	args := os.Args[1:]
	if len(args) > 0 {
		switch args[0] {
		case "version":
			printVersion()
			os.Exit(0)
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
			fmt.Fprintf(os.Stderr, "\nUsage:\n")
			fmt.Fprintf(os.Stderr, "  contextd           Start the ctxmemd daemon\n")
			fmt.Fprintf(os.Stderr, "  contextd version   Show version information\n")
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Printf("received signal %v, shutting down gracefully...", sig)
		cancel()
	}()

	if err := run(ctx); err != nil {
		log.Fatalf("daemon error: %v", err)
	}

	log.Println("shutdown complete")
}

func printVersion() {
	fmt.Printf("contextd by Fyrsmith Labs\n")
	fmt.Printf("Version:    %s\n", version)
	fmt.Printf("Commit:     %s\n", gitCommit)
	fmt.Printf("Build Date: %s\n", buildDate)
}

// run starts the daemon and blocks until ctx is cancelled.
//
// This function:
//  1. Loads and validates configuration
//  2. Initializes the structured logger
//  3. Opens the Store
//  4. Wires the Watcher, Indexer, Git Adapter, Git Indexer and Correlator
//  5. Starts the Tool Surface over a stdio transport
//  6. Performs graceful shutdown on context cancellation
func run(ctx context.Context) error {
	cfg, err := config.LoadWithFile(os.Getenv("CTXMEMD_CONFIG"))
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := initLogger(cfg)
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info(ctx, "starting ctxmemd",
		zap.String("service", cfg.Observability.ServiceName),
		zap.String("db_path", cfg.Store.DBPath),
		zap.String("transcript_root", cfg.Watcher.TranscriptRoot))

	deps, err := initDependencies(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize dependencies: %w", err)
	}
	defer deps.Close()

	if stats, err := deps.store.ReadStats(ctx); err != nil {
		logger.Warn(ctx, "failed to read index stats at startup", zap.Error(err))
	} else {
		logger.Info(ctx, "resumed store",
			zap.Int64("conversations", stats.TotalConversations),
			zap.Int64("messages", stats.TotalMessages))
	}

	events, err := deps.watcher.Start(ctx)
	if err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	go deps.indexer.Run(ctx, events, deps.watcher)

	srv, err := mcpserver.New(mcpserver.DefaultConfig(), deps.query, deps.gitIndexer, deps.store, logger.Named("mcpserver"))
	if err != nil {
		return fmt.Errorf("build tool surface: %w", err)
	}

	logger.Info(ctx, "tool surface ready, serving over stdio")
	return srv.Run(ctx, &mcp.StdioTransport{})
}

// dependencies holds the daemon's long-lived components.
type dependencies struct {
	store      *store.Store
	watcher    *watcher.Watcher
	indexer    *indexer.Indexer
	gitAdapter *gitadapter.Adapter
	gitIndexer *gitindexer.Indexer
	correlator *correlator.Correlator
	query      *query.Engine
}

// Close releases every resource dependencies opened, in reverse acquisition order.
func (d *dependencies) Close() {
	if d.watcher != nil {
		if err := d.watcher.Stop(); err != nil {
			log.Printf("watcher stop: %v", err)
		}
	}
	if d.store != nil {
		if err := d.store.Close(); err != nil {
			log.Printf("store close: %v", err)
		}
	}
}

// initLogger builds the daemon's structured logger from the observability section
// of the loaded configuration.
func initLogger(cfg *config.Config) (*logging.Logger, error) {
	level, err := logging.LevelFromString(cfg.Observability.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}

	logCfg := logging.NewDefaultConfig()
	logCfg.Level = level
	logCfg.Format = cfg.Observability.LogFormat
	logCfg.Fields = map[string]string{"service": cfg.Observability.ServiceName}

	return logging.NewLogger(logCfg)
}

// initDependencies opens the Store and wires every component that reads or writes it.
//
// The Correlator is constructed and held here but is not driven by an autonomous
// trigger in this daemon: correlating a file change to a conversation needs a
// filesystem signal from the repository's working tree, which the external
// auto-commit collaborator normally supplies over the IPC transport this core does
// not own (see the transport carve-out). It is wired so a future trigger source can
// call it without further plumbing.
func initDependencies(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*dependencies, error) {
	st, err := store.Open(ctx, cfg.Store.DBPath, store.DefaultOptions(), logger.Named("store"))
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	parser := transcript.NewParser()

	w := watcher.New(cfg.Watcher.TranscriptRoot, watcher.DefaultOptions(), logger.Named("watcher"))
	ix := indexer.New(parser, st, logger.Named("indexer"))

	adapter := gitadapter.New()
	gi := gitindexer.New(adapter, st, logger.Named("gitindexer"))

	corr := correlator.New(parser, cfg.Watcher.TranscriptRoot, st, logger.Named("correlator"),
		correlator.WithWindow(cfg.Correlator.Window.Duration()),
		correlator.WithMinConfidence(cfg.Correlator.MinConfidence),
	)

	qe := query.New(st)

	return &dependencies{
		store:      st,
		watcher:    w,
		indexer:    ix,
		gitAdapter: adapter,
		gitIndexer: gi,
		correlator: corr,
		query:      qe,
	}, nil
}
