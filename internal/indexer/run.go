package indexer

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ctxmemd/internal/watcher"
)

// completer marks a watched path no longer in flight; satisfied by *watcher.Watcher.
type completer interface {
	MarkComplete(path string, mtimeAtEnqueue time.Time)
}

// Run consumes events until ctx is cancelled or events closes, indexing each path in
// turn and reporting completion back to the watcher so it can detect changes that
// happened mid-index.
func (ix *Indexer) Run(ctx context.Context, events <-chan watcher.Event, w completer) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if _, err := ix.IndexPath(ctx, ev.Path); err != nil {
				ix.log.Warn(ctx, "indexer: index path failed", zap.String("path", ev.Path), zap.Error(err))
			}
			w.MarkComplete(ev.Path, ev.Timestamp)
		}
	}
}
