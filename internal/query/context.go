package query

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"github.com/fyrsmithlabs/ctxmemd/internal/apperr"
	"github.com/fyrsmithlabs/ctxmemd/internal/model"
)

const (
	defaultPageSize = 50
	defaultMaxTokens = 20000
	condensedCharLimit = 200
	keyPointsCharLimit = 100
)

// Context resolves a paginated, token-budgeted view of a conversation's messages.
func (e *Engine) Context(ctx context.Context, opts model.ContextOptions) (*model.ContextResult, error) {
	ctx, span := e.tracer.Start(ctx, "query.context")
	defer span.End()
	span.SetAttributes(attribute.String("session_id", opts.SessionID))

	conv, err := e.store.GetConversationBySessionID(ctx, opts.SessionID)
	if err != nil {
		return nil, err
	}

	page := opts.Page
	if page < 1 {
		page = 1
	}
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	all, err := e.store.ListMessages(ctx, conv.ID, opts.ContentTypes)
	if err != nil {
		return nil, apperr.Wrap(apperr.Transient, "query.Context", "list messages", err)
	}

	start := (page - 1) * pageSize
	if start > len(all) {
		start = len(all)
	}
	end := start + pageSize
	if end > len(all) {
		end = len(all)
	}
	candidates := all[start:end]

	var paged []model.Message
	tokenBudget := maxTokens
	totalTokensOnPage := 0
	for i, m := range candidates {
		// The first message of a page always fits, guaranteeing forward progress even
		// when a single message exceeds the whole token budget.
		if i > 0 && m.Tokens > tokenBudget {
			break
		}
		paged = append(paged, applySummaryMode(m, opts.SummaryMode))
		tokenBudget -= m.Tokens
		totalTokensOnPage += m.Tokens
	}

	totalPages := (len(all) + pageSize - 1) / pageSize
	if totalPages == 0 {
		totalPages = 1
	}

	return &model.ContextResult{
		Conversation: *conv,
		Messages:     paged,
		Pagination: model.Pagination{
			Page:            page,
			TotalPages:      totalPages,
			TotalMessages:   len(all),
			TotalTokens:     conv.TotalTokens,
			EstimatedTokens: totalTokensOnPage,
			HasNext:         start+len(paged) < len(all),
		},
	}, nil
}

func applySummaryMode(m model.Message, mode model.SummaryMode) model.Message {
	switch mode {
	case model.SummaryCondensed:
		if len(m.Content) > condensedCharLimit {
			m.Content = m.Content[:condensedCharLimit] + "..."
		}
	case model.SummaryKeyPointsOnly:
		if m.ContentSummary != "" {
			m.Content = m.ContentSummary
		} else if len(m.Content) > keyPointsCharLimit {
			m.Content = m.Content[:keyPointsCharLimit] + "..."
		}
	}
	return m
}
