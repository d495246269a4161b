package mcpserver

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/fyrsmithlabs/ctxmemd/internal/model"
	"github.com/fyrsmithlabs/ctxmemd/internal/query"
)

type searchConversationsInput struct {
	Query          string  `json:"query" jsonschema:"required,Full-text search query"`
	Timeframe      string  `json:"timeframe,omitempty" jsonschema:"Relative timeframe filter, e.g. today, yesterday, 3 days, last week"`
	Limit          int     `json:"limit,omitempty" jsonschema:"Maximum results to return (default 10)"`
	SearchMode     string  `json:"search_mode,omitempty" jsonschema:"fuzzy, exact, or mixed (default mixed)"`
	FuzzyThreshold float64 `json:"fuzzy_threshold,omitempty" jsonschema:"Minimum overlap score in fuzzy/mixed mode (default 0.6)"`
	Logic          string  `json:"logic,omitempty" jsonschema:"OR or AND (default OR)"`
	ProjectFilter  string  `json:"project_filter,omitempty" jsonschema:"Restrict results to a project path"`
}

type searchHitOutput struct {
	SessionID    string  `json:"session_id"`
	ProjectName  string  `json:"project_name"`
	MessageCount int     `json:"message_count"`
	Snippet      string  `json:"snippet"`
	Score        float64 `json:"score"`
}

type searchConversationsOutput struct {
	Results []searchHitOutput `json:"results"`
	Total   int               `json:"total"`
}

func (s *Server) registerConversationTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search_conversations",
		Description: "Full-text search over indexed conversations",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args searchConversationsInput) (*mcp.CallToolResult, searchConversationsOutput, error) {
		var toolErr error
		defer s.metrics.start(ctx, "search_conversations", &toolErr)()

		opts := model.SearchOptions{
			Query:          args.Query,
			SearchMode:     model.SearchMode(args.SearchMode),
			FuzzyThreshold: args.FuzzyThreshold,
			Logic:          model.SearchLogic(args.Logic),
			ProjectFilter:  args.ProjectFilter,
			Timeframe:      args.Timeframe,
			Limit:          args.Limit,
		}
		if opts.FuzzyThreshold == 0 {
			opts.FuzzyThreshold = 0.6
		}
		if opts.Limit == 0 {
			opts.Limit = 10
		}

		result, err := s.query.Search(ctx, opts)
		if err != nil {
			toolErr = s.sanitize(ctx, "search_conversations", err)
			return nil, searchConversationsOutput{}, toolErr
		}

		out := searchConversationsOutput{Total: result.Total}
		for _, hit := range result.Results {
			out.Results = append(out.Results, searchHitOutput{
				SessionID:    hit.Conversation.SessionID,
				ProjectName:  hit.Conversation.ProjectName,
				MessageCount: hit.Conversation.MessageCount,
				Snippet:      hit.Snippet,
				Score:        hit.Score,
			})
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("%d result(s) for %q", out.Total, args.Query)}},
		}, out, nil
	})

	registerGetConversationContext(s)
	registerListRecentConversations(s)
	registerFindSimilarSolutions(s)
}

type getConversationContextInput struct {
	SessionID            string   `json:"session_id" jsonschema:"required,Conversation session identifier"`
	IncludeProjectFiles  *bool    `json:"include_project_files,omitempty" jsonschema:"Include the conversation's file references (default true)"`
	Page                 int      `json:"page,omitempty" jsonschema:"Page number, 1-indexed (default 1)"`
	PageSize             int      `json:"page_size,omitempty" jsonschema:"Messages per page (default 50)"`
	MaxTokens            int      `json:"max_tokens,omitempty" jsonschema:"Token budget per page (default 20000)"`
	ContentTypes         []string `json:"content_types,omitempty" jsonschema:"Restrict to these message roles"`
	SummaryMode          string   `json:"summary_mode,omitempty" jsonschema:"full, condensed, or key_points_only (default full)"`
}

type paginationOutput struct {
	Page            int `json:"page"`
	TotalPages      int `json:"total_pages"`
	TotalMessages   int `json:"total_messages"`
	TotalTokens     int `json:"total_tokens"`
	EstimatedTokens int `json:"estimated_tokens"`
	HasNextPage     bool `json:"has_next_page"`
}

type getConversationContextOutput struct {
	SessionID      string           `json:"session_id"`
	ProjectName    string           `json:"project_name"`
	ProjectPath    string           `json:"project_path"`
	FileReferences []string         `json:"file_references,omitempty"`
	Messages       []model.Message  `json:"messages"`
	Pagination     paginationOutput `json:"pagination"`
}

func registerGetConversationContext(s *Server) {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_conversation_context",
		Description: "Fetch a paginated, token-budgeted view of a conversation",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args getConversationContextInput) (*mcp.CallToolResult, getConversationContextOutput, error) {
		var toolErr error
		defer s.metrics.start(ctx, "get_conversation_context", &toolErr)()

		var roles []model.Role
		for _, ct := range args.ContentTypes {
			roles = append(roles, model.Role(ct))
		}

		result, err := s.query.Context(ctx, model.ContextOptions{
			SessionID:    args.SessionID,
			Page:         args.Page,
			PageSize:     args.PageSize,
			MaxTokens:    args.MaxTokens,
			ContentTypes: roles,
			SummaryMode:  model.SummaryMode(args.SummaryMode),
		})
		if err != nil {
			toolErr = s.sanitize(ctx, "get_conversation_context", err)
			return nil, getConversationContextOutput{}, toolErr
		}

		out := getConversationContextOutput{
			SessionID:   result.Conversation.SessionID,
			ProjectName: result.Conversation.ProjectName,
			ProjectPath: result.Conversation.ProjectPath,
			Messages:    result.Messages,
			Pagination: paginationOutput{
				Page:            result.Pagination.Page,
				TotalPages:      result.Pagination.TotalPages,
				TotalMessages:   result.Pagination.TotalMessages,
				TotalTokens:     result.Pagination.TotalTokens,
				EstimatedTokens: result.Pagination.EstimatedTokens,
				HasNextPage:     result.Pagination.HasNext,
			},
		}
		if args.IncludeProjectFiles == nil || *args.IncludeProjectFiles {
			out.FileReferences = result.Conversation.FileReferences
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("page %d/%d, %d message(s)", out.Pagination.Page, out.Pagination.TotalPages, len(out.Messages))}},
		}, out, nil
	})
}

type listRecentConversationsInput struct {
	Timeframe     string `json:"timeframe,omitempty" jsonschema:"Relative timeframe filter (default today)"`
	ProjectFilter string `json:"project_filter,omitempty" jsonschema:"Restrict results to a project path"`
	Limit         int    `json:"limit,omitempty" jsonschema:"Maximum results to return (default 20)"`
}

type recentConversationOutput struct {
	SessionID    string `json:"session_id"`
	ProjectName  string `json:"project_name"`
	MessageCount int    `json:"message_count"`
	UpdatedAt    string `json:"updated_at"`
}

type listRecentConversationsOutput struct {
	Conversations []recentConversationOutput `json:"conversations"`
}

func registerListRecentConversations(s *Server) {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "list_recent_conversations",
		Description: "List conversations in reverse-chronological order",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args listRecentConversationsInput) (*mcp.CallToolResult, listRecentConversationsOutput, error) {
		var toolErr error
		defer s.metrics.start(ctx, "list_recent_conversations", &toolErr)()

		timeframe := args.Timeframe
		if timeframe == "" {
			timeframe = "today"
		}
		limit := args.Limit
		if limit == 0 {
			limit = 20
		}

		var since *int64
		if lb, ok := query.ParseTimeframe(time.Now(), timeframe); ok {
			u := lb.Unix()
			since = &u
		}

		convs, err := s.store.ListRecentConversations(ctx, args.ProjectFilter, since, limit)
		if err != nil {
			toolErr = s.sanitize(ctx, "list_recent_conversations", err)
			return nil, listRecentConversationsOutput{}, toolErr
		}

		out := listRecentConversationsOutput{}
		for _, c := range convs {
			out.Conversations = append(out.Conversations, recentConversationOutput{
				SessionID:    c.SessionID,
				ProjectName:  c.ProjectName,
				MessageCount: c.MessageCount,
				UpdatedAt:    c.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
			})
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("%d conversation(s)", len(out.Conversations))}},
		}, out, nil
	})
}

type findSimilarSolutionsInput struct {
	ProblemDescription    string  `json:"problem_description" jsonschema:"required,Description of the problem to match against past solutions"`
	ProjectPath           string  `json:"project_path,omitempty" jsonschema:"Caller's project path, used to apply exclude_current_project"`
	ExcludeCurrentProject *bool   `json:"exclude_current_project,omitempty" jsonschema:"Exclude project_path's own conversations (default true)"`
	ConfidenceThreshold   float64 `json:"confidence_threshold,omitempty" jsonschema:"Minimum match confidence (default 0.6)"`
}

type similarSolutionOutput struct {
	SessionID    string  `json:"session_id"`
	ProjectName  string  `json:"project_name"`
	Preview      string  `json:"preview"`
	ConfidencePct float64 `json:"confidence_pct"`
}

type findSimilarSolutionsOutput struct {
	Solutions []similarSolutionOutput `json:"solutions"`
}

func registerFindSimilarSolutions(s *Server) {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "find_similar_solutions",
		Description: "Find past conversations whose content overlaps with a described problem",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args findSimilarSolutionsInput) (*mcp.CallToolResult, findSimilarSolutionsOutput, error) {
		var toolErr error
		defer s.metrics.start(ctx, "find_similar_solutions", &toolErr)()

		threshold := args.ConfidenceThreshold
		if threshold == 0 {
			threshold = 0.6
		}

		solutions, err := s.query.SimilarSolutions(ctx, args.ProblemDescription, threshold)
		if err != nil {
			toolErr = s.sanitize(ctx, "find_similar_solutions", err)
			return nil, findSimilarSolutionsOutput{}, toolErr
		}

		excludeCurrent := args.ExcludeCurrentProject == nil || *args.ExcludeCurrentProject
		out := findSimilarSolutionsOutput{}
		for _, sol := range solutions {
			if excludeCurrent && args.ProjectPath != "" && sol.Conversation.ProjectPath == args.ProjectPath {
				continue
			}
			out.Solutions = append(out.Solutions, similarSolutionOutput{
				SessionID:     sol.Conversation.SessionID,
				ProjectName:   sol.Conversation.ProjectName,
				Preview:       sol.Preview,
				ConfidencePct: sol.Confidence * 100,
			})
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("%d candidate solution(s)", len(out.Solutions))}},
		}, out, nil
	})
}
