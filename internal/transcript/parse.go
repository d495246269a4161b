// Package transcript parses Claude Code JSONL session files into normalized
// model.Conversation records.
package transcript

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fyrsmithlabs/ctxmemd/internal/apperr"
	"github.com/fyrsmithlabs/ctxmemd/internal/model"
)

// maxScanTokenSize bounds a single JSONL line; Claude Code occasionally emits
// multi-megabyte tool_result blocks (file dumps, command output).
const maxScanTokenSize = 10 * 1024 * 1024

// SkipReason classifies a line the Parser declined to turn into a Message.
type SkipReason string

const (
	SkipMalformedJSON     SkipReason = "malformed_json"
	SkipEmptyLine         SkipReason = "empty_line"
	SkipUnknownEventType  SkipReason = "unknown_event_type"
	SkipEmptyMessage      SkipReason = "empty_message"
)

// ParseResult is the Parser's output for one JSONL file: the normalized conversation
// plus counters of lines that did not produce a message.
type ParseResult struct {
	Conversation *model.Conversation
	SkipCounts   map[SkipReason]int
}

// Parser turns a Claude Code JSONL transcript into a model.Conversation.
type Parser struct {
	extractor *Extractor
}

// NewParser builds a Parser with its file-reference and topic/keyword extractor.
func NewParser() *Parser {
	return &Parser{extractor: NewExtractor()}
}

// rawEvent is the on-wire shape of one JSONL line.
type rawEvent struct {
	UUID       string          `json:"uuid"`
	ParentUUID string          `json:"parentUuid,omitempty"`
	Type       string          `json:"type"`
	Message    json.RawMessage `json:"message,omitempty"`
	Timestamp  string          `json:"timestamp,omitempty"`
	SessionID  string          `json:"sessionId,omitempty"`
	Cwd        string          `json:"cwd,omitempty"`
}

// nestedMessage is the shape of the "message" field on user/assistant events.
type nestedMessage struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type contentBlock struct {
	Type      string          `json:"type"`
	Text      string          `json:"text,omitempty"`
	Name      string          `json:"name,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   string          `json:"content,omitempty"`
}

// Parse reads path line by line and returns the normalized conversation plus skip
// counters. A single malformed event never aborts the file, so a file whose lines are all
// malformed yields a conversation with no messages plus its skip counts. An unreadable or
// empty file returns an apperr.Corrupt error.
func (p *Parser) Parse(path string) (*ParseResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperr.Wrap(apperr.Corrupt, "transcript.Parse", "open transcript", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	buf := make([]byte, maxScanTokenSize)
	scanner.Buffer(buf, maxScanTokenSize)

	sessionID := sessionIDFromPath(path)
	skips := map[SkipReason]int{}
	var messages []model.Message
	var fileRefs, allText []string
	idx := 0
	sawAnyLine := false

	for scanner.Scan() {
		sawAnyLine = true
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			skips[SkipEmptyLine]++
			continue
		}

		var ev rawEvent
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			skips[SkipMalformedJSON]++
			continue
		}
		if ev.SessionID != "" {
			sessionID = ev.SessionID
		}

		var role model.Role
		switch ev.Type {
		case "user":
			role = model.RoleUser
		case "assistant":
			role = model.RoleAssistant
		default:
			skips[SkipUnknownEventType]++
			continue
		}

		content, toolCalls := p.extractContent(ev.Message)
		if content == "" && len(toolCalls) == 0 {
			skips[SkipEmptyMessage]++
			continue
		}

		ts := parseTimestamp(ev.Timestamp)
		refs := p.extractor.FileReferencesFromText(content)
		for _, tc := range toolCalls {
			refs = append(refs, p.extractor.FileReferenceFromToolCall(tc)...)
		}
		refs = dedupeStrings(refs)

		messages = append(messages, model.Message{
			Index:          idx,
			UUID:           ev.UUID,
			Timestamp:      ts,
			Role:           role,
			ContentType:    "text",
			Content:        content,
			ToolCalls:      toolCalls,
			FileReferences: refs,
			Tokens:         model.EstimateTokens(content),
		})
		idx++
		fileRefs = append(fileRefs, refs...)
		allText = append(allText, content)
	}

	if err := scanner.Err(); err != nil {
		return nil, apperr.Wrap(apperr.Corrupt, "transcript.Parse", "scan transcript", err)
	}
	if !sawAnyLine {
		return nil, apperr.New(apperr.Corrupt, "transcript.Parse", "empty transcript file: "+path)
	}

	conv := &model.Conversation{
		SessionID:      sessionID,
		ProjectPath:    filepath.Dir(path),
		MessageCount:   len(messages),
		FileReferences: dedupeStrings(fileRefs),
		Messages:       messages,
	}
	conv.Topics, conv.Keywords = p.extractor.TopicsAndKeywords(allText)

	if len(messages) > 0 {
		conv.CreatedAt = messages[0].Timestamp
		conv.UpdatedAt = messages[0].Timestamp
		total := 0
		for _, m := range messages {
			if m.Timestamp.Before(conv.CreatedAt) {
				conv.CreatedAt = m.Timestamp
			}
			if m.Timestamp.After(conv.UpdatedAt) {
				conv.UpdatedAt = m.Timestamp
			}
			total += m.Tokens
		}
		conv.TotalTokens = total
	}

	return &ParseResult{Conversation: conv, SkipCounts: skips}, nil
}

// extractContent concatenates text blocks with newline and isolates tool_use blocks
// into ToolCall structs, associating a following tool_result with the preceding call.
func (p *Parser) extractContent(raw json.RawMessage) (string, []model.ToolCall) {
	if len(raw) == 0 {
		return "", nil
	}

	// User messages are sometimes a bare JSON string rather than {role, content}.
	var plain string
	if err := json.Unmarshal(raw, &plain); err == nil {
		return plain, nil
	}

	var nm nestedMessage
	if err := json.Unmarshal(raw, &nm); err != nil {
		return "", nil
	}

	var textParts []string
	var calls []model.ToolCall
	for _, b := range nm.Content {
		switch b.Type {
		case "text":
			if b.Text != "" {
				textParts = append(textParts, b.Text)
			}
		case "tool_use":
			tc := model.ToolCall{Name: b.Name, ID: b.ToolUseID}
			var input map[string]interface{}
			if err := json.Unmarshal(b.Input, &input); err == nil {
				tc.Input = input
			}
			calls = append(calls, tc)
		case "tool_result":
			if len(calls) > 0 && b.Content != "" {
				calls[len(calls)-1].Output = b.Content
			}
		}
	}
	return strings.Join(textParts, "\n"), calls
}

func parseTimestamp(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t
	}
	if t, err := time.Parse("2006-01-02T15:04:05Z", raw); err == nil {
		return t
	}
	return time.Time{}
}

func dedupeStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
