package query

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/fyrsmithlabs/ctxmemd/internal/model"
)

var wordPattern = regexp.MustCompile(`[a-zA-Z0-9_]+`)

func tokenize(s string) map[string]bool {
	out := make(map[string]bool)
	for _, w := range wordPattern.FindAllString(strings.ToLower(s), -1) {
		out[w] = true
	}
	return out
}

// overlap computes |problemTokens ∩ previewTokens| / |problemTokens|, treating a token
// pair as matching if either is a substring of the other.
func overlap(problemTokens map[string]bool, preview string) float64 {
	if len(problemTokens) == 0 {
		return 0
	}
	previewTokens := tokenize(preview)
	matched := 0
	for p := range problemTokens {
		for q := range previewTokens {
			if strings.Contains(p, q) || strings.Contains(q, p) {
				matched++
				break
			}
		}
	}
	return float64(matched) / float64(len(problemTokens))
}

// SimilarSolutions searches for conversations matching problemDescription and ranks
// them by token overlap with each result's best-matching snippet, keeping entries at or
// above confidenceThreshold and capping at 5.
func (e *Engine) SimilarSolutions(ctx context.Context, problemDescription string, confidenceThreshold float64) ([]model.SimilarSolution, error) {
	ctx, span := e.tracer.Start(ctx, "query.similar_solutions")
	defer span.End()

	result, err := e.Search(ctx, model.SearchOptions{Query: problemDescription})
	if err != nil {
		return nil, err
	}

	problemTokens := tokenize(problemDescription)
	var out []model.SimilarSolution
	for _, hit := range result.Results {
		conf := overlap(problemTokens, hit.Snippet)
		if conf < confidenceThreshold {
			continue
		}
		out = append(out, model.SimilarSolution{
			Conversation: hit.Conversation,
			Preview:      hit.Snippet,
			Confidence:   conf,
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Confidence > out[j].Confidence })
	if len(out) > 5 {
		out = out[:5]
	}
	return out, nil
}
