package gitadapter

import (
	"context"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"go.opentelemetry.io/otel/attribute"

	"github.com/fyrsmithlabs/ctxmemd/internal/apperr"
	"github.com/fyrsmithlabs/ctxmemd/internal/model"
)

func openRepo(path string) (*git.Repository, error) {
	return git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
}

// CurrentHead returns the commit hash HEAD points to. Detached HEAD and branch HEADs
// resolve the same way here: both are plumbing.HashReference once dereferenced.
func (a *Adapter) CurrentHead(ctx context.Context, path string) (string, error) {
	_, span := a.tracer.Start(ctx, "gitadapter.current_head")
	defer span.End()

	repo, err := openRepo(path)
	if err != nil {
		span.RecordError(err)
		return "", apperr.Wrap(apperr.Precondition, "gitadapter.CurrentHead", "no git repository found", err)
	}
	head, err := repo.Head()
	if err != nil {
		span.RecordError(err)
		return "", apperr.Wrap(apperr.Precondition, "gitadapter.CurrentHead", "resolve HEAD", err)
	}
	return head.Hash().String(), nil
}

// CurrentBranch returns the branch HEAD points to, or the short commit hash when
// detached.
func (a *Adapter) CurrentBranch(ctx context.Context, path string) (string, error) {
	_, span := a.tracer.Start(ctx, "gitadapter.current_branch")
	defer span.End()

	repo, err := openRepo(path)
	if err != nil {
		span.RecordError(err)
		return "", apperr.Wrap(apperr.Precondition, "gitadapter.CurrentBranch", "no git repository found", err)
	}
	return currentBranch(repo), nil
}

func currentBranch(repo *git.Repository) string {
	head, err := repo.Head()
	if err != nil {
		return "unknown"
	}
	if head.Name().IsBranch() {
		return head.Name().Short()
	}
	if head.Type() == plumbing.HashReference {
		return head.Hash().String()[:8]
	}
	return "unknown"
}

// RemoteURL returns the fetch URL of the "origin" remote, or "" if none is configured.
func (a *Adapter) RemoteURL(ctx context.Context, path string) (string, error) {
	_, span := a.tracer.Start(ctx, "gitadapter.remote_url")
	defer span.End()

	repo, err := openRepo(path)
	if err != nil {
		span.RecordError(err)
		return "", apperr.Wrap(apperr.Precondition, "gitadapter.RemoteURL", "no git repository found", err)
	}
	return remoteURL(repo), nil
}

func remoteURL(repo *git.Repository) string {
	remote, err := repo.Remote("origin")
	if err != nil {
		return ""
	}
	urls := remote.Config().URLs
	if len(urls) == 0 {
		return ""
	}
	return urls[0]
}

// WorkingDirectoryStatus summarizes the working tree's modification state.
func (a *Adapter) WorkingDirectoryStatus(ctx context.Context, path string) (*model.WorkingTreeStatus, error) {
	_, span := a.tracer.Start(ctx, "gitadapter.working_directory_status")
	defer span.End()

	repo, err := openRepo(path)
	if err != nil {
		span.RecordError(err)
		return nil, apperr.Wrap(apperr.Precondition, "gitadapter.WorkingDirectoryStatus", "no git repository found", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		span.RecordError(err)
		return nil, apperr.Wrap(apperr.Precondition, "gitadapter.WorkingDirectoryStatus", "repository has no working tree", err)
	}
	status, err := wt.Status()
	if err != nil {
		span.RecordError(err)
		return nil, apperr.Wrap(apperr.Transient, "gitadapter.WorkingDirectoryStatus", "read worktree status", err)
	}

	out := &model.WorkingTreeStatus{Clean: status.IsClean()}
	for _, fileStatus := range status {
		if fileStatus.Worktree == git.Untracked || fileStatus.Staging == git.Untracked {
			out.Untracked++
			continue
		}
		out.Modified++
	}

	span.SetAttributes(
		attribute.Bool("clean", out.Clean),
		attribute.Int("modified", out.Modified),
		attribute.Int("untracked", out.Untracked),
	)
	return out, nil
}
