// Package gitadapter reads git working trees: repository discovery, current
// head/branch/remote, working-tree status, and commit history. It never writes to a
// working tree.
package gitadapter

import (
	"context"
	"path/filepath"

	"github.com/go-git/go-git/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fyrsmithlabs/ctxmemd/internal/apperr"
	"github.com/fyrsmithlabs/ctxmemd/internal/model"
)

const instrumentationName = "github.com/fyrsmithlabs/ctxmemd/internal/gitadapter"

// Adapter reads git repositories reachable from discovered project paths.
type Adapter struct {
	tracer trace.Tracer
	meter  metric.Meter

	discoveredTotal metric.Int64Counter
}

// New builds an Adapter.
func New() *Adapter {
	a := &Adapter{
		tracer: otel.Tracer(instrumentationName),
		meter:  otel.Meter(instrumentationName),
	}
	a.initMetrics()
	return a
}

func (a *Adapter) initMetrics() {
	a.discoveredTotal, _ = a.meter.Int64Counter(
		"ctxmemd.gitadapter.repositories_discovered_total",
		metric.WithDescription("Repositories discovered by Discover"),
		metric.WithUnit("{repository}"),
	)
}

// Discover walks upwards from path to find the nearest git repository. If path is a
// subdirectory of the repository's working tree, RepositoryRoot and SubdirectoryPath
// are populated and IsMonorepoSubdirectory is set. Returns apperr.Precondition if no
// repository is found at or above path.
func (a *Adapter) Discover(ctx context.Context, path string) (*model.Repository, error) {
	ctx, span := a.tracer.Start(ctx, "gitadapter.discover")
	defer span.End()
	span.SetAttributes(attribute.String("path", path))

	cleanPath, err := filepath.Abs(path)
	if err != nil {
		span.RecordError(err)
		return nil, apperr.Wrap(apperr.InvalidArgument, "gitadapter.Discover", "resolve absolute path", err)
	}

	repo, err := git.PlainOpenWithOptions(cleanPath, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		span.RecordError(err)
		return nil, apperr.Wrap(apperr.Precondition, "gitadapter.Discover", "no git repository found", err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		span.RecordError(err)
		return nil, apperr.Wrap(apperr.Precondition, "gitadapter.Discover", "repository has no working tree", err)
	}
	root := wt.Filesystem.Root()

	rel, err := filepath.Rel(root, cleanPath)
	if err != nil {
		rel = ""
	}
	isSubdir := rel != "." && rel != ""

	r := &model.Repository{
		ProjectPath:            path,
		WorkingDirectory:       root,
		GitDirectory:           filepath.Join(root, ".git"),
		IsMonorepoSubdirectory: isSubdir,
	}
	if isSubdir {
		r.RepositoryRoot = root
		r.SubdirectoryPath = rel
	}

	r.CurrentBranch = currentBranch(repo)
	r.RemoteURL = remoteURL(repo)

	a.discoveredTotal.Add(ctx, 1)
	span.SetAttributes(
		attribute.String("repository_root", root),
		attribute.Bool("is_monorepo_subdirectory", isSubdir),
	)
	return r, nil
}
