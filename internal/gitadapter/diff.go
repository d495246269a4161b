package gitadapter

import (
	"context"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"go.opentelemetry.io/otel/attribute"

	"github.com/fyrsmithlabs/ctxmemd/internal/apperr"
	"github.com/fyrsmithlabs/ctxmemd/internal/model"
)

// DiffCommits lists the files that differ between two commits' trees, read-only. Used
// to produce a restore-point preview without touching the working tree.
func (a *Adapter) DiffCommits(ctx context.Context, path, fromHash, toHash string) ([]model.CommitFile, error) {
	_, span := a.tracer.Start(ctx, "gitadapter.diff_commits")
	defer span.End()
	span.SetAttributes(attribute.String("from", fromHash), attribute.String("to", toHash))

	repo, err := openRepo(path)
	if err != nil {
		span.RecordError(err)
		return nil, apperr.Wrap(apperr.Precondition, "gitadapter.DiffCommits", "no git repository found", err)
	}

	fromCommit, err := repo.CommitObject(plumbing.NewHash(fromHash))
	if err != nil {
		span.RecordError(err)
		return nil, apperr.Wrap(apperr.NotFound, "gitadapter.DiffCommits", "resolve source commit", err)
	}
	toCommit, err := repo.CommitObject(plumbing.NewHash(toHash))
	if err != nil {
		span.RecordError(err)
		return nil, apperr.Wrap(apperr.NotFound, "gitadapter.DiffCommits", "resolve target commit", err)
	}

	fromTree, err := fromCommit.Tree()
	if err != nil {
		span.RecordError(err)
		return nil, apperr.Wrap(apperr.Transient, "gitadapter.DiffCommits", "read source tree", err)
	}
	toTree, err := toCommit.Tree()
	if err != nil {
		span.RecordError(err)
		return nil, apperr.Wrap(apperr.Transient, "gitadapter.DiffCommits", "read target tree", err)
	}

	changes, err := fromTree.Diff(toTree)
	if err != nil {
		span.RecordError(err)
		return nil, apperr.Wrap(apperr.Transient, "gitadapter.DiffCommits", "diff trees", err)
	}

	files := make([]model.CommitFile, 0, len(changes))
	for _, change := range changes {
		files = append(files, model.CommitFile{
			Path:         changePath(change),
			ChangeStatus: changeStatus(change),
		})
	}

	span.SetAttributes(attribute.Int("file_count", len(files)))
	return files, nil
}

func changePath(change *object.Change) string {
	if change.To.Name != "" {
		return change.To.Name
	}
	return change.From.Name
}

func changeStatus(change *object.Change) model.ChangeStatus {
	switch {
	case change.From.Name == "" && change.To.Name != "":
		return model.ChangeAdded
	case change.From.Name != "" && change.To.Name == "":
		return model.ChangeDeleted
	case change.From.Name != change.To.Name:
		return model.ChangeRenamed
	default:
		return model.ChangeModified
	}
}
