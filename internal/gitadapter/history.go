package gitadapter

import (
	"context"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
	"go.opentelemetry.io/otel/attribute"

	"github.com/fyrsmithlabs/ctxmemd/internal/apperr"
	"github.com/fyrsmithlabs/ctxmemd/internal/model"
)

// CommitHistoryOptions bounds a CommitHistory call.
type CommitHistoryOptions struct {
	Since *time.Time
	Limit int
}

// CommitHistory enumerates commits reachable from HEAD, most recent first. Branch is
// recorded as the repository's current branch for every entry: go-git's commit walk
// does not carry per-commit branch provenance, and reconstructing it from reflogs is
// out of scope here.
func (a *Adapter) CommitHistory(ctx context.Context, path string, opts CommitHistoryOptions) ([]model.Commit, error) {
	_, span := a.tracer.Start(ctx, "gitadapter.commit_history")
	defer span.End()
	span.SetAttributes(attribute.String("path", path))

	repo, err := openRepo(path)
	if err != nil {
		span.RecordError(err)
		return nil, apperr.Wrap(apperr.Precondition, "gitadapter.CommitHistory", "no git repository found", err)
	}
	head, err := repo.Head()
	if err != nil {
		span.RecordError(err)
		return nil, apperr.Wrap(apperr.Precondition, "gitadapter.CommitHistory", "resolve HEAD", err)
	}
	branch := currentBranch(repo)

	logOpts := &git.LogOptions{From: head.Hash()}
	if opts.Since != nil {
		logOpts.Since = opts.Since
	}
	iter, err := repo.Log(logOpts)
	if err != nil {
		span.RecordError(err)
		return nil, apperr.Wrap(apperr.Transient, "gitadapter.CommitHistory", "walk commit log", err)
	}
	defer iter.Close()

	var commits []model.Commit
	err = iter.ForEach(func(c *object.Commit) error {
		if opts.Limit > 0 && len(commits) >= opts.Limit {
			return storer.ErrStop
		}

		parents := make([]string, 0, c.NumParents())
		for _, h := range c.ParentHashes {
			parents = append(parents, h.String())
		}

		entry := model.Commit{
			Hash:        c.Hash.String(),
			Branch:      branch,
			Date:        c.Author.When,
			AuthorName:  c.Author.Name,
			AuthorEmail: c.Author.Email,
			Message:     c.Message,
			Parents:     parents,
			IsMerge:     c.NumParents() > 1,
		}

		if stats, statErr := c.Stats(); statErr == nil {
			entry.FilesChanged = len(stats)
			for _, fs := range stats {
				entry.Insertions += fs.Addition
				entry.Deletions += fs.Deletion
			}
		}

		if files, filesErr := commitChangedFiles(c); filesErr == nil {
			entry.Files = files
		}

		commits = append(commits, entry)
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, apperr.Wrap(apperr.Transient, "gitadapter.CommitHistory", "iterate commit log", err)
	}

	span.SetAttributes(attribute.Int("commit_count", len(commits)))
	return commits, nil
}

// commitChangedFiles classifies every file touched by c against its first parent (or an
// empty tree for a root commit), reusing diff.go's changePath/changeStatus so
// CommitHistory reports the same added/modified/deleted/renamed statuses DiffCommits does,
// instead of defaulting every file to modified.
func commitChangedFiles(c *object.Commit) ([]model.CommitFile, error) {
	tree, err := c.Tree()
	if err != nil {
		return nil, err
	}

	var parentTree *object.Tree
	if c.NumParents() > 0 {
		parent, err := c.Parent(0)
		if err != nil {
			return nil, err
		}
		parentTree, err = parent.Tree()
		if err != nil {
			return nil, err
		}
	}

	changes, err := object.DiffTree(parentTree, tree)
	if err != nil {
		return nil, err
	}

	files := make([]model.CommitFile, 0, len(changes))
	for _, change := range changes {
		files = append(files, model.CommitFile{Path: changePath(change), ChangeStatus: changeStatus(change)})
	}
	return files, nil
}
