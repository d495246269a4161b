package gitindexer

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/fyrsmithlabs/ctxmemd/internal/model"
	"github.com/fyrsmithlabs/ctxmemd/internal/query"
)

// CreateRestorePoint pins the current HEAD of projectPath's repository under label,
// discovering the repository first if it has not been indexed yet. Duplicate labels
// within a repository surface as apperr.Conflict from the store.
func (gi *Indexer) CreateRestorePoint(ctx context.Context, projectPath, label, description string, autoGenerated bool, testStatus model.TestStatus) (*model.RestorePoint, error) {
	ctx, span := gi.tracer.Start(ctx, "gitindexer.create_restore_point")
	defer span.End()
	span.SetAttributes(attribute.String("project_path", projectPath), attribute.String("label", label))

	repo, err := gi.ensureRepository(ctx, projectPath)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	head, err := gi.adapter.CurrentHead(ctx, projectPath)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	rp := &model.RestorePoint{
		RepositoryID:  repo.ID,
		CommitHash:    head,
		Label:         label,
		Description:   description,
		AutoGenerated: autoGenerated,
		TestStatus:    testStatus,
		CreatedAt:     time.Now(),
	}
	id, err := gi.store.CreateRestorePoint(ctx, rp)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	rp.ID = id
	return rp, nil
}

// ListRestorePoints returns the restore points recorded for projectPath's repository,
// most recent first.
func (gi *Indexer) ListRestorePoints(ctx context.Context, projectPath string, includeAutoGenerated bool, timeframe string, limit int) ([]model.RestorePoint, error) {
	ctx, span := gi.tracer.Start(ctx, "gitindexer.list_restore_points")
	defer span.End()

	repo, err := gi.store.GetRepositoryByProjectPath(ctx, projectPath)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	var since *int64
	if lowerBound, ok := query.ParseTimeframe(time.Now(), timeframe); ok {
		s := lowerBound.Unix()
		since = &s
	}
	return gi.store.ListRestorePoints(ctx, repo.ID, includeAutoGenerated, since, limit)
}

// PreviewRestore dry-runs a restore point: it diffs the restore point's commit against
// the repository's current HEAD and returns the files that would change. It never
// touches the working tree; restoring those files is delegated to the auto-commit
// collaborator.
func (gi *Indexer) PreviewRestore(ctx context.Context, projectPath string, restorePointID int64) ([]model.CommitFile, error) {
	ctx, span := gi.tracer.Start(ctx, "gitindexer.preview_restore")
	defer span.End()
	span.SetAttributes(attribute.Int64("restore_point_id", restorePointID))

	repo, err := gi.store.GetRepositoryByProjectPath(ctx, projectPath)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	rp, err := gi.store.GetRestorePoint(ctx, repo.ID, restorePointID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	head, err := gi.adapter.CurrentHead(ctx, projectPath)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return gi.adapter.DiffCommits(ctx, projectPath, rp.CommitHash, head)
}
