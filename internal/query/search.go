// Package query implements the read path over the Store: full-text search, paginated
// conversation context, similar-solution discovery, and timeframe parsing.
package query

import (
	"context"
	"strings"
	"time"
	"unicode"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/fyrsmithlabs/ctxmemd/internal/apperr"
	"github.com/fyrsmithlabs/ctxmemd/internal/model"
	"github.com/fyrsmithlabs/ctxmemd/internal/store"
)

const instrumentationName = "github.com/fyrsmithlabs/ctxmemd/internal/query"

// Engine implements the Query Engine component over an open Store.
type Engine struct {
	store  *store.Store
	tracer trace.Tracer
	now    func() time.Time
}

// New builds an Engine over st. now defaults to time.Now; tests may override it.
func New(st *store.Store) *Engine {
	return &Engine{store: st, tracer: otel.Tracer(instrumentationName), now: time.Now}
}

// resolveSearchMode applies the documented default: an unset SearchMode resolves to
// mixed, not fuzzy.
func resolveSearchMode(mode model.SearchMode) model.SearchMode {
	if mode == "" {
		return model.SearchMixed
	}
	return mode
}

// buildMatchExpression turns a query string and search mode into an FTS5 MATCH
// expression, per §4.5.1's construction rules. A term containing anything other than
// letters, digits and underscores (e.g. "off-by-one") is double-quoted so FTS5 reads it
// as a phrase rather than as query syntax.
func buildMatchExpression(queryText string, mode model.SearchMode, logic model.SearchLogic) string {
	queryText = strings.TrimSpace(queryText)
	if mode == model.SearchExact {
		return `"` + strings.ReplaceAll(queryText, `"`, `""`) + `"`
	}

	terms := strings.Fields(queryText)
	if len(terms) == 0 {
		return `"` + queryText + `"`
	}
	for i, t := range terms {
		if strings.IndexFunc(t, func(r rune) bool { return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' }) >= 0 {
			terms[i] = `"` + strings.ReplaceAll(t, `"`, `""`) + `"`
		}
	}
	joiner := " OR "
	if logic == model.LogicAND {
		joiner = " AND "
	}
	disjunction := strings.Join(terms, joiner)

	if mode == model.SearchMixed {
		phrase := `"` + strings.ReplaceAll(queryText, `"`, `""`) + `"`
		return phrase + " OR (" + disjunction + ")"
	}
	return disjunction
}

// Search runs a full-text search and collapses duplicate conversations, keeping each
// conversation's best-scoring hit. In fuzzy/mixed mode, a positive opts.FuzzyThreshold
// drops hits whose query/snippet token overlap (the same measure SimilarSolutions ranks
// by) falls below it; exact mode and a zero threshold skip the filter entirely.
func (e *Engine) Search(ctx context.Context, opts model.SearchOptions) (*model.SearchResult, error) {
	start := e.now()
	ctx, span := e.tracer.Start(ctx, "query.search")
	defer span.End()
	span.SetAttributes(attribute.String("query", opts.Query), attribute.String("mode", string(opts.SearchMode)))

	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	mode := resolveSearchMode(opts.SearchMode)
	logic := opts.Logic
	if logic == "" {
		logic = model.LogicOR
	}

	var since *int64
	if opts.Timeframe != "" {
		if lb, ok := ParseTimeframe(e.now(), opts.Timeframe); ok {
			u := lb.Unix()
			since = &u
		}
	}

	match := buildMatchExpression(opts.Query, mode, logic)
	// Over-fetch to have enough rows left after per-conversation de-duplication.
	hits, err := e.store.SearchMessages(ctx, match, opts.ProjectFilter, since, opts.Limit*4+opts.Offset+20, 0)
	if err != nil {
		return nil, apperr.Wrap(apperr.Transient, "query.Search", "search messages", err)
	}

	var queryTokens map[string]bool
	if mode != model.SearchExact && opts.FuzzyThreshold > 0 {
		queryTokens = tokenize(opts.Query)
	}

	seen := make(map[int64]bool)
	var ranked []model.SearchHit
	for _, h := range hits {
		if seen[h.ConversationID] {
			continue
		}
		if queryTokens != nil && overlap(queryTokens, h.Snippet) < opts.FuzzyThreshold {
			continue
		}
		seen[h.ConversationID] = true

		conv, err := e.store.GetConversationByID(ctx, h.ConversationID)
		if err != nil {
			continue
		}
		ranked = append(ranked, model.SearchHit{
			Conversation: *conv,
			Snippet:      h.Snippet,
			Score:        h.Score,
		})
	}

	total := len(ranked)
	if opts.Offset < len(ranked) {
		ranked = ranked[opts.Offset:]
	} else {
		ranked = nil
	}
	if len(ranked) > opts.Limit {
		ranked = ranked[:opts.Limit]
	}

	return &model.SearchResult{
		Query:   opts.Query,
		Results: ranked,
		Total:   total,
		Took:    e.now().Sub(start),
	}, nil
}
