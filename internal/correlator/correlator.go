// Package correlator answers "which conversation most plausibly produced this file
// change": given a modified file and a timestamp, it scans recently touched transcripts
// for the most recent matching tool-use event and scores the match by how close its
// timestamp is to the modification.
package correlator

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ctxmemd/internal/apperr"
	"github.com/fyrsmithlabs/ctxmemd/internal/logging"
	"github.com/fyrsmithlabs/ctxmemd/internal/model"
	"github.com/fyrsmithlabs/ctxmemd/internal/store"
	"github.com/fyrsmithlabs/ctxmemd/internal/transcript"
)

const instrumentationName = "github.com/fyrsmithlabs/ctxmemd/internal/correlator"

const (
	defaultWindow        = 20 * time.Second
	defaultMinConfidence = 0.5
	defaultCacheTTL      = 60 * time.Second
)

// fileParamKey names the input field each file-modifying tool records its target path
// under. Read is deliberately excluded: it never modifies a file, so it can never be
// the cause of a modification signal.
var fileParamKey = map[string]string{
	"Edit":         "file_path",
	"Write":        "file_path",
	"MultiEdit":    "file_path",
	"NotebookEdit": "notebook_path",
}

// Parser is the subset of transcript.Parser the Correlator depends on.
type Parser interface {
	Parse(path string) (*transcript.ParseResult, error)
}

// Result is a scored attribution of a file modification to a conversation session.
type Result struct {
	SessionID   string
	Confidence  float64
	Description string
}

// Correlator scans a transcript root for the session most plausibly responsible for a
// file modification.
type Correlator struct {
	parser         Parser
	transcriptRoot string
	store          *store.Store
	log            *logging.Logger
	window         time.Duration
	minConfidence  float64
	cache          *cache

	tracer          trace.Tracer
	meter           metric.Meter
	correlatedTotal metric.Int64Counter
	rejectedTotal   metric.Int64Counter
}

// Option configures a Correlator beyond its required dependencies.
type Option func(*Correlator)

// WithWindow overrides the default 20s correlation window.
func WithWindow(d time.Duration) Option { return func(c *Correlator) { c.window = d } }

// WithMinConfidence overrides the default 0.5 minimum confidence.
func WithMinConfidence(v float64) Option { return func(c *Correlator) { c.minConfidence = v } }

// New builds a Correlator that scans transcriptRoot for sessions responsible for file
// modifications, persisting verdicts to st.
func New(parser Parser, transcriptRoot string, st *store.Store, log *logging.Logger, opts ...Option) *Correlator {
	c := &Correlator{
		parser:         parser,
		transcriptRoot: transcriptRoot,
		store:          st,
		log:            log,
		window:         defaultWindow,
		minConfidence:  defaultMinConfidence,
		cache:          newCache(defaultCacheTTL),
		tracer:         otel.Tracer(instrumentationName),
		meter:          otel.Meter(instrumentationName),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.initMetrics()
	return c
}

func (c *Correlator) initMetrics() {
	var err error
	c.correlatedTotal, err = c.meter.Int64Counter(
		"ctxmemd.correlator.correlations_total",
		metric.WithDescription("File modifications successfully attributed to a session"),
		metric.WithUnit("{correlation}"),
	)
	if err != nil {
		c.log.Warn(context.Background(), "failed to create correlations-total counter", zap.Error(err))
	}
	c.rejectedTotal, err = c.meter.Int64Counter(
		"ctxmemd.correlator.rejected_total",
		metric.WithDescription("File modifications with no candidate above min_confidence"),
		metric.WithUnit("{correlation}"),
	)
	if err != nil {
		c.log.Warn(context.Background(), "failed to create rejected-total counter", zap.Error(err))
	}
}

type candidate struct {
	sessionID    string
	timestamp    time.Time
	conversation *model.Conversation
}

// Correlate attributes a modification to filePath at modTime to the most plausible
// session. Returns apperr.NotFound if no candidate clears the minimum confidence.
func (c *Correlator) Correlate(ctx context.Context, repoPath, filePath string, modTime time.Time) (*Result, error) {
	ctx, span := c.tracer.Start(ctx, "correlator.correlate")
	defer span.End()
	span.SetAttributes(attribute.String("repo_path", repoPath), attribute.String("file_path", filePath))

	key := cacheKey{RepoPath: repoPath, FilePath: filePath}
	if cached, ok := c.cache.get(key); ok {
		span.SetAttributes(attribute.Bool("cache_hit", true))
		return cached, nil
	}

	paths, err := c.recentTranscripts(modTime)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	targetBase := filepath.Base(filePath)
	var best *candidate
	for _, path := range paths {
		result, err := c.parser.Parse(path)
		if err != nil {
			c.log.Debug(ctx, "correlator: skipping unparseable transcript", zap.String("path", path), zap.Error(err))
			continue
		}
		if match := bestMatch(result.Conversation, targetBase); match != nil {
			if best == nil || match.timestamp.After(best.timestamp) {
				best = match
			}
		}
	}

	if best == nil {
		c.rejectedTotal.Add(ctx, 1)
		return nil, apperr.New(apperr.NotFound, "correlator.Correlate", "no matching tool-use event found for "+filePath)
	}

	delta := modTime.Sub(best.timestamp)
	if delta < 0 {
		delta = -delta
	}
	confidence := 1 - delta.Seconds()/c.window.Seconds()
	if confidence < 0 {
		confidence = 0
	}
	if confidence < c.minConfidence {
		c.rejectedTotal.Add(ctx, 1)
		span.SetAttributes(attribute.Float64("confidence", confidence))
		return nil, apperr.New(apperr.NotFound, "correlator.Correlate", "best candidate below min_confidence")
	}

	result := &Result{
		SessionID:   best.sessionID,
		Confidence:  confidence,
		Description: describe(best.conversation),
	}
	c.cache.set(key, result)

	if err := c.store.RecordGitCorrelation(ctx, &model.GitCorrelation{
		RepositoryPath: repoPath,
		FilePath:       filePath,
		SessionID:      result.SessionID,
		Confidence:     result.Confidence,
		CreatedAt:      time.Now(),
	}); err != nil {
		c.log.Warn(ctx, "correlator: failed to persist correlation", zap.Error(err))
	}

	c.correlatedTotal.Add(ctx, 1)
	span.SetAttributes(attribute.String("session_id", result.SessionID), attribute.Float64("confidence", result.Confidence))
	return result, nil
}

// recentTranscripts walks the transcript root for .jsonl files whose mtime falls
// within twice the correlation window of modTime.
func (c *Correlator) recentTranscripts(modTime time.Time) ([]string, error) {
	cutoff := modTime.Add(-2 * c.window)
	var paths []string
	err := filepath.WalkDir(c.transcriptRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() || !strings.HasSuffix(path, ".jsonl") {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		if info.ModTime().Before(cutoff) {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.Transient, "correlator.recentTranscripts", "walk transcript root", err)
	}
	return paths, nil
}

// bestMatch scans conv tail to head for the most recent file-modifying tool call
// whose target basename matches targetBase.
func bestMatch(conv *model.Conversation, targetBase string) *candidate {
	for i := len(conv.Messages) - 1; i >= 0; i-- {
		m := conv.Messages[i]
		for _, tc := range m.ToolCalls {
			key, ok := fileParamKey[tc.Name]
			if !ok {
				continue
			}
			path, ok := tc.Input[key].(string)
			if !ok || filepath.Base(path) != targetBase {
				continue
			}
			return &candidate{sessionID: conv.SessionID, timestamp: m.Timestamp, conversation: conv}
		}
	}
	return nil
}

// describe extracts a short human-readable description of what a conversation was
// about: the first non-empty content summary among its messages, otherwise a truncated
// first user message.
func describe(conv *model.Conversation) string {
	for _, m := range conv.Messages {
		if m.ContentSummary != "" {
			return m.ContentSummary
		}
	}
	for _, m := range conv.Messages {
		if m.Role == model.RoleUser && m.Content != "" {
			if len(m.Content) > 160 {
				return m.Content[:160] + "..."
			}
			return m.Content
		}
	}
	return ""
}
