// Package gitindexer wires the Git Adapter's read-only repository views into the
// Store: discovering a repository seeds its row and settings, syncing walks commit
// history into git_commits, and restore points record named pointers into that history.
package gitindexer

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ctxmemd/internal/apperr"
	"github.com/fyrsmithlabs/ctxmemd/internal/gitadapter"
	"github.com/fyrsmithlabs/ctxmemd/internal/logging"
	"github.com/fyrsmithlabs/ctxmemd/internal/model"
	"github.com/fyrsmithlabs/ctxmemd/internal/query"
	"github.com/fyrsmithlabs/ctxmemd/internal/store"
)

const instrumentationName = "github.com/fyrsmithlabs/ctxmemd/internal/gitindexer"

// defaultCommitLimit bounds how many commits a sync walks on each call; older history
// stays in the database from prior syncs and is never re-walked past this window.
const defaultCommitLimit = 200

// Adapter is the subset of gitadapter.Adapter the Indexer depends on.
type Adapter interface {
	Discover(ctx context.Context, path string) (*model.Repository, error)
	CurrentHead(ctx context.Context, path string) (string, error)
	CommitHistory(ctx context.Context, path string, opts gitadapter.CommitHistoryOptions) ([]model.Commit, error)
	DiffCommits(ctx context.Context, path, fromHash, toHash string) ([]model.CommitFile, error)
}

// Indexer glues the Adapter and Store together for one or more discovered repositories.
type Indexer struct {
	adapter Adapter
	store   *store.Store
	log     *logging.Logger

	tracer      trace.Tracer
	meter       metric.Meter
	syncedTotal metric.Int64Counter
}

// New builds an Indexer over an already-open Store.
func New(adapter Adapter, st *store.Store, log *logging.Logger) *Indexer {
	gi := &Indexer{
		adapter: adapter,
		store:   st,
		log:     log,
		tracer:  otel.Tracer(instrumentationName),
		meter:   otel.Meter(instrumentationName),
	}
	gi.initMetrics()
	return gi
}

func (gi *Indexer) initMetrics() {
	var err error
	gi.syncedTotal, err = gi.meter.Int64Counter(
		"ctxmemd.gitindexer.repositories_synced_total",
		metric.WithDescription("Repository discovery/commit-walk cycles completed"),
		metric.WithUnit("{repository}"),
	)
	if err != nil {
		gi.log.Warn(context.Background(), "failed to create repositories-synced counter", zap.Error(err))
	}
}

// SyncRepository discovers projectPath's repository, upserts it, seeds default
// repository settings on first discovery, and walks recent commit history into the
// store. Returns apperr.Precondition if no repository is found at or above projectPath.
func (gi *Indexer) SyncRepository(ctx context.Context, projectPath string) (*model.Repository, error) {
	ctx, span := gi.tracer.Start(ctx, "gitindexer.sync_repository")
	defer span.End()
	span.SetAttributes(attribute.String("project_path", projectPath))

	_, err := gi.store.GetRepositoryByProjectPath(ctx, projectPath)
	isNew := apperr.Is(err, apperr.NotFound)

	repo, err := gi.adapter.Discover(ctx, projectPath)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	repo.ProjectPath = projectPath
	repo.LastScanned = time.Now()

	id, err := gi.store.UpsertRepository(ctx, repo)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	repo.ID = id

	if isNew {
		if err := gi.store.UpsertRepositorySettings(ctx, store.DefaultRepositorySettings(id)); err != nil {
			gi.log.Warn(ctx, "gitindexer: failed to seed repository settings",
				zap.String("project_path", projectPath), zap.Error(err))
		}
	}

	commits, err := gi.adapter.CommitHistory(ctx, projectPath, gitadapter.CommitHistoryOptions{Limit: defaultCommitLimit})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	for i := range commits {
		commits[i].RepositoryID = id
		if _, err := gi.store.InsertCommit(ctx, &commits[i]); err != nil {
			gi.log.Warn(ctx, "gitindexer: failed to insert commit",
				zap.String("hash", commits[i].Hash), zap.Error(err))
		}
	}

	gi.syncedTotal.Add(ctx, 1)
	span.SetAttributes(attribute.Int("commit_count", len(commits)))
	return repo, nil
}

// ensureRepository returns the indexed repository for projectPath, attempting a fresh
// discovery if none is indexed yet. Per the error-handling design, restore-point
// creation against a repository-less path first attempts discovery, then returns
// apperr.Precondition if none exists.
func (gi *Indexer) ensureRepository(ctx context.Context, projectPath string) (*model.Repository, error) {
	repo, err := gi.store.GetRepositoryByProjectPath(ctx, projectPath)
	if err == nil {
		return repo, nil
	}
	if !apperr.Is(err, apperr.NotFound) {
		return nil, err
	}

	repo, discoverErr := gi.SyncRepository(ctx, projectPath)
	if discoverErr != nil {
		return nil, apperr.Wrap(apperr.Precondition, "gitindexer.ensureRepository", "no git repository found for "+projectPath, discoverErr)
	}
	return repo, nil
}

// GetGitContext returns a repository header and its recent commits, bounded by an
// optional timeframe expression and limit.
func (gi *Indexer) GetGitContext(ctx context.Context, projectPath, timeframe string, limit int) (*model.Repository, []model.Commit, error) {
	repo, err := gi.ensureRepository(ctx, projectPath)
	if err != nil {
		return nil, nil, err
	}

	var since *int64
	if lowerBound, ok := query.ParseTimeframe(time.Now(), timeframe); ok {
		s := lowerBound.Unix()
		since = &s
	}

	commits, err := gi.store.ListCommits(ctx, repo.ID, since, limit)
	if err != nil {
		return nil, nil, err
	}
	return repo, commits, nil
}
