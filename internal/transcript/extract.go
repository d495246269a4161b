package transcript

import (
	"regexp"
	"sort"
	"strings"

	"github.com/fyrsmithlabs/ctxmemd/internal/model"
)

// Extractor pulls file references and a deterministic topic/keyword set out of parsed
// message text and tool calls. No ML, no embeddings: frequency over a stop-word-filtered
// token set, per the open-question resolution recorded for this extraction.
type Extractor struct {
	filePath regexp.Regexp
}

// NewExtractor builds an Extractor with its file-path-in-text pattern.
func NewExtractor() *Extractor {
	return &Extractor{
		filePath: *regexp.MustCompile(`(?:^|[\s"'\(])([a-zA-Z0-9_\-./]+\.[a-zA-Z0-9]+)(?:$|[\s"'\):,])`),
	}
}

var filePathTools = map[string]string{
	"Read":  "file_path",
	"Edit":  "file_path",
	"Write": "file_path",
	"NotebookEdit": "notebook_path",
}

// FileReferenceFromToolCall returns the file path a file-touching tool call operated on,
// if any.
func (e *Extractor) FileReferenceFromToolCall(tc model.ToolCall) []string {
	key, ok := filePathTools[tc.Name]
	if !ok {
		return nil
	}
	if v, ok := tc.Input[key].(string); ok && v != "" {
		return []string{v}
	}
	return nil
}

// FileReferencesFromText scans free text for absolute paths, relative paths containing
// a separator, and bare filenames with a plausible source extension.
func (e *Extractor) FileReferencesFromText(text string) []string {
	matches := e.filePath.FindAllStringSubmatch(text, -1)
	var out []string
	for _, m := range matches {
		if len(m) > 1 && isPlausibleFilePath(m[1]) {
			out = append(out, m[1])
		}
	}
	return out
}

func isPlausibleFilePath(path string) bool {
	if len(path) < 3 {
		return false
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return false
	}
	if strings.HasPrefix(path, "v") && regexp.MustCompile(`^v\d+\.\d+`).MatchString(path) {
		return false
	}
	switch path {
	case "0.0.0", "1.0.0", "2.0.0", "e.g.", "i.e.", "etc.":
		return false
	}
	parts := strings.Split(path, ".")
	if len(parts) < 2 {
		return false
	}
	ext := parts[len(parts)-1]
	return len(ext) >= 1 && len(ext) <= 10
}

var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "but": true,
	"is": true, "are": true, "was": true, "were": true, "be": true, "been": true,
	"to": true, "of": true, "in": true, "on": true, "for": true, "with": true,
	"at": true, "by": true, "from": true, "this": true, "that": true, "it": true,
	"i": true, "you": true, "we": true, "they": true, "he": true, "she": true,
	"as": true, "if": true, "then": true, "so": true, "not": true, "can": true,
	"will": true, "do": true, "does": true, "did": true, "have": true, "has": true,
	"had": true, "would": true, "could": true, "should": true, "my": true, "your": true,
}

var tokenPattern = regexp.MustCompile(`[a-zA-Z][a-zA-Z0-9_]{2,}`)

// TopicsAndKeywords derives a deterministic topic/keyword set by frequency over
// stop-word-filtered tokens across all of a conversation's message text. Topics are the
// top 5 tokens by frequency; keywords are the top 15.
func (e *Extractor) TopicsAndKeywords(texts []string) (topics, keywords []string) {
	freq := make(map[string]int)
	for _, t := range texts {
		for _, tok := range tokenPattern.FindAllString(strings.ToLower(t), -1) {
			if stopWords[tok] {
				continue
			}
			freq[tok]++
		}
	}
	if len(freq) == 0 {
		return nil, nil
	}

	type kv struct {
		word  string
		count int
	}
	ranked := make([]kv, 0, len(freq))
	for w, c := range freq {
		ranked = append(ranked, kv{w, c})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].word < ranked[j].word
	})

	for i, r := range ranked {
		if i < 5 {
			topics = append(topics, r.word)
		}
		if i < 15 {
			keywords = append(keywords, r.word)
		}
	}
	return topics, keywords
}
