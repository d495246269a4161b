package mcpserver

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/fyrsmithlabs/ctxmemd/internal/model"
)

func (s *Server) registerGitTools() {
	registerListRestorePoints(s)
	registerCreateRestorePoint(s)
	registerPreviewRestore(s)
	registerGetGitContext(s)
}

type listRestorePointsInput struct {
	ProjectPath          string `json:"project_path" jsonschema:"required,Path inside the repository to inspect"`
	Timeframe            string `json:"timeframe,omitempty" jsonschema:"Relative timeframe filter"`
	IncludeAutoGenerated *bool  `json:"include_auto_generated,omitempty" jsonschema:"Include auto-generated restore points (default true)"`
	Limit                int    `json:"limit,omitempty" jsonschema:"Maximum results to return, capped at 100 (default 50)"`
}

type restorePointOutput struct {
	ID            int64  `json:"id"`
	CommitHash    string `json:"commit_hash"`
	Label         string `json:"label"`
	Description   string `json:"description,omitempty"`
	AutoGenerated bool   `json:"auto_generated"`
	TestStatus    string `json:"test_status"`
	CreatedAt     string `json:"created_at"`
}

type listRestorePointsOutput struct {
	RestorePoints []restorePointOutput `json:"restore_points"`
}

func registerListRestorePoints(s *Server) {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "list_restore_points",
		Description: "List named restore points recorded against a repository",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args listRestorePointsInput) (*mcp.CallToolResult, listRestorePointsOutput, error) {
		var toolErr error
		defer s.metrics.start(ctx, "list_restore_points", &toolErr)()

		limit := args.Limit
		if limit == 0 {
			limit = 50
		}
		if limit > 100 {
			limit = 100
		}
		includeAuto := args.IncludeAutoGenerated == nil || *args.IncludeAutoGenerated

		points, err := s.git.ListRestorePoints(ctx, args.ProjectPath, includeAuto, args.Timeframe, limit)
		if err != nil {
			toolErr = s.sanitize(ctx, "list_restore_points", err)
			return nil, listRestorePointsOutput{}, toolErr
		}

		out := listRestorePointsOutput{}
		for _, rp := range points {
			out.RestorePoints = append(out.RestorePoints, toRestorePointOutput(rp))
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("%d restore point(s)", len(out.RestorePoints))}},
		}, out, nil
	})
}

type createRestorePointInput struct {
	ProjectPath   string `json:"project_path" jsonschema:"required,Path inside the repository to snapshot"`
	Label         string `json:"label" jsonschema:"required,Unique label within the repository"`
	Description   string `json:"description,omitempty" jsonschema:"Human-readable description"`
	AutoGenerated bool   `json:"auto_generated,omitempty" jsonschema:"True if this point was system-generated (default false)"`
	TestStatus    string `json:"test_status,omitempty" jsonschema:"unknown, passing, failing, or skipped (default unknown)"`
}

func registerCreateRestorePoint(s *Server) {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "create_restore_point",
		Description: "Record a named restore point at the repository's current HEAD",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args createRestorePointInput) (*mcp.CallToolResult, restorePointOutput, error) {
		var toolErr error
		defer s.metrics.start(ctx, "create_restore_point", &toolErr)()

		testStatus := model.TestStatus(args.TestStatus)
		if testStatus == "" {
			testStatus = model.TestUnknown
		}

		rp, err := s.git.CreateRestorePoint(ctx, args.ProjectPath, args.Label, args.Description, args.AutoGenerated, testStatus)
		if err != nil {
			toolErr = s.sanitize(ctx, "create_restore_point", err)
			return nil, restorePointOutput{}, toolErr
		}

		out := toRestorePointOutput(*rp)
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("restore point %q created at %s", out.Label, out.CommitHash)}},
		}, out, nil
	})
}

type previewRestoreInput struct {
	ProjectPath    string `json:"project_path" jsonschema:"required,Path inside the repository to inspect"`
	RestorePointID int64  `json:"restore_point_id" jsonschema:"required,Restore point to diff against the current HEAD"`
}

type previewRestoreOutput struct {
	Files []model.CommitFile `json:"files"`
}

func registerPreviewRestore(s *Server) {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "preview_restore",
		Description: "Dry-run the file changes a restore would apply, without touching the working tree",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args previewRestoreInput) (*mcp.CallToolResult, previewRestoreOutput, error) {
		var toolErr error
		defer s.metrics.start(ctx, "preview_restore", &toolErr)()

		files, err := s.git.PreviewRestore(ctx, args.ProjectPath, args.RestorePointID)
		if err != nil {
			toolErr = s.sanitize(ctx, "preview_restore", err)
			return nil, previewRestoreOutput{}, toolErr
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("%d file(s) would change", len(files))}},
		}, previewRestoreOutput{Files: files}, nil
	})
}

type getGitContextInput struct {
	ProjectPath string `json:"project_path" jsonschema:"required,Path inside the repository to inspect"`
	Timeframe   string `json:"timeframe,omitempty" jsonschema:"Relative timeframe filter"`
	Limit       int    `json:"limit,omitempty" jsonschema:"Maximum commits to return (default 20)"`
}

type getGitContextOutput struct {
	CurrentBranch string         `json:"current_branch"`
	RemoteURL     string         `json:"remote_url,omitempty"`
	Commits       []model.Commit `json:"commits"`
}

func registerGetGitContext(s *Server) {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_git_context",
		Description: "Fetch a repository's header and recent commit history",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args getGitContextInput) (*mcp.CallToolResult, getGitContextOutput, error) {
		var toolErr error
		defer s.metrics.start(ctx, "get_git_context", &toolErr)()

		limit := args.Limit
		if limit == 0 {
			limit = 20
		}

		repo, commits, err := s.git.GetGitContext(ctx, args.ProjectPath, args.Timeframe, limit)
		if err != nil {
			toolErr = s.sanitize(ctx, "get_git_context", err)
			return nil, getGitContextOutput{}, toolErr
		}

		out := getGitContextOutput{
			CurrentBranch: repo.CurrentBranch,
			RemoteURL:     repo.RemoteURL,
			Commits:       commits,
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("%s: %d commit(s)", out.CurrentBranch, len(out.Commits))}},
		}, out, nil
	})
}

func toRestorePointOutput(rp model.RestorePoint) restorePointOutput {
	return restorePointOutput{
		ID:            rp.ID,
		CommitHash:    rp.CommitHash,
		Label:         rp.Label,
		Description:   rp.Description,
		AutoGenerated: rp.AutoGenerated,
		TestStatus:    string(rp.TestStatus),
		CreatedAt:     rp.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}
