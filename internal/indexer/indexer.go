// Package indexer drives the Parser-to-Store pipeline: for each debounced watcher
// event it parses the transcript and ingests the result as one transaction.
package indexer

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ctxmemd/internal/apperr"
	"github.com/fyrsmithlabs/ctxmemd/internal/logging"
	"github.com/fyrsmithlabs/ctxmemd/internal/store"
	"github.com/fyrsmithlabs/ctxmemd/internal/transcript"
)

const instrumentationName = "github.com/fyrsmithlabs/ctxmemd/internal/indexer"

// Parser is the subset of transcript.Parser the Indexer depends on.
type Parser interface {
	Parse(path string) (*transcript.ParseResult, error)
}

// Indexer glues the Parser and Store together for one watched root.
type Indexer struct {
	parser Parser
	store  *store.Store
	log    *logging.Logger

	tracer       trace.Tracer
	meter        metric.Meter
	indexedTotal metric.Int64Counter
	parseErrors  metric.Int64Counter
}

// New builds an Indexer over an already-open Store.
func New(parser Parser, st *store.Store, log *logging.Logger) *Indexer {
	ix := &Indexer{
		parser: parser,
		store:  st,
		log:    log,
		tracer: otel.Tracer(instrumentationName),
		meter:  otel.Meter(instrumentationName),
	}
	ix.initMetrics()
	return ix
}

func (ix *Indexer) initMetrics() {
	var err error
	ix.indexedTotal, err = ix.meter.Int64Counter(
		"ctxmemd.indexer.conversations_indexed_total",
		metric.WithDescription("Conversations successfully ingested"),
		metric.WithUnit("{conversation}"),
	)
	if err != nil {
		ix.log.Warn(context.Background(), "failed to create indexed-total counter", zap.Error(err))
	}
	ix.parseErrors, err = ix.meter.Int64Counter(
		"ctxmemd.indexer.parse_errors_total",
		metric.WithDescription("Transcript files that failed to parse"),
		metric.WithUnit("{file}"),
	)
	if err != nil {
		ix.log.Warn(context.Background(), "failed to create parse-errors counter", zap.Error(err))
	}
}

// IndexPath parses path and ingests the resulting conversation. A parse failure is
// logged and returned as an apperr.Corrupt error; Run logs it and moves on to the next
// event rather than aborting its loop.
func (ix *Indexer) IndexPath(ctx context.Context, path string) (store.IngestResult, error) {
	ctx, span := ix.tracer.Start(ctx, "indexer.index_path")
	defer span.End()
	span.SetAttributes(attribute.String("path", path))

	result, err := ix.parser.Parse(path)
	if err != nil {
		ix.parseErrors.Add(ctx, 1)
		ix.log.Warn(ctx, "indexer: parse failed, skipping file", zap.String("path", path), zap.Error(err))
		span.RecordError(err)
		return store.IngestResult{}, apperr.Wrap(apperr.Corrupt, "indexer.IndexPath", "parse transcript", err)
	}

	for reason, count := range result.SkipCounts {
		if count > 0 {
			ix.log.Debug(ctx, "indexer: skipped lines while parsing",
				zap.String("path", path), zap.String("reason", string(reason)), zap.Int("count", count))
		}
	}

	ingestResult, err := ix.store.IngestConversation(ctx, result.Conversation)
	if err != nil {
		span.RecordError(err)
		return store.IngestResult{}, apperr.Wrap(apperr.Fatal, "indexer.IndexPath", "ingest conversation", err)
	}

	ix.indexedTotal.Add(ctx, 1)
	span.SetAttributes(
		attribute.String("session_id", result.Conversation.SessionID),
		attribute.Bool("inserted", ingestResult.Inserted),
		attribute.Int("messages_inserted", ingestResult.MessagesInserted),
	)
	return ingestResult, nil
}
