package model

import "time"

// SearchMode selects how SearchOptions.Query is turned into an FTS match expression.
type SearchMode string

const (
	SearchFuzzy SearchMode = "fuzzy"
	SearchExact SearchMode = "exact"
	SearchMixed SearchMode = "mixed"
)

// SearchLogic combines multiple query terms in fuzzy/mixed mode.
type SearchLogic string

const (
	LogicOR  SearchLogic = "OR"
	LogicAND SearchLogic = "AND"
)

// SummaryMode controls how much of a message's content a context page returns.
type SummaryMode string

const (
	SummaryFull          SummaryMode = "full"
	SummaryCondensed     SummaryMode = "condensed"
	SummaryKeyPointsOnly SummaryMode = "key_points_only"
)

// SearchOptions parameterizes a full-text search over indexed conversations.
type SearchOptions struct {
	Query           string
	SearchMode      SearchMode
	FuzzyThreshold  float64
	Logic           SearchLogic
	ProjectFilter   string
	Timeframe       string
	Limit           int
	Offset          int
}

// SearchHit is one ranked result from a search.
type SearchHit struct {
	Conversation Conversation
	Snippet      string
	Score        float64
}

// SearchResult is the full response to a search.
type SearchResult struct {
	Query   string
	Results []SearchHit
	Total   int
	Took    time.Duration
}

// ContextOptions parameterizes a paginated conversation-context fetch.
type ContextOptions struct {
	SessionID    string
	Page         int
	PageSize     int
	MaxTokens    int
	ContentTypes []Role
	SummaryMode  SummaryMode
}

// Pagination describes one page of a ContextResult.
type Pagination struct {
	Page             int
	TotalPages       int
	TotalMessages    int
	TotalTokens      int
	EstimatedTokens  int
	HasNext          bool
}

// ContextResult is the paginated response to a conversation-context fetch.
type ContextResult struct {
	Conversation Conversation
	Messages     []Message
	Pagination   Pagination
}

// SimilarSolution is one entry in a find-similar-solutions response.
type SimilarSolution struct {
	Conversation Conversation
	Preview      string
	Confidence   float64
}

// CorrelationResult is the outcome of binding a file change to a conversation session.
type CorrelationResult struct {
	SessionID   string
	Description string
	Confidence  float64
	Timestamp   time.Time
}
