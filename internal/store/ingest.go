package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fyrsmithlabs/ctxmemd/internal/model"
)

// IngestResult reports what IngestConversation actually wrote, for the Indexer's
// counters and logging.
type IngestResult struct {
	ConversationID   int64
	Inserted         bool
	MessagesInserted int
}

// IngestConversation performs the Indexer's whole (conversation + messages) update as
// one transaction: upsert the conversation header, then either batch-insert every
// message (first ingest) or only the suffix with message_index greater than what is
// already stored (re-ingest of an append-only transcript), then bump the index_stats
// counters. Partial state is impossible — any failure rolls back the entire step.
func (s *Store) IngestConversation(ctx context.Context, c *model.Conversation) (IngestResult, error) {
	var result IngestResult

	err := s.Tx(ctx, func(tx *sql.Tx) error {
		id, inserted, err := UpsertConversation(ctx, tx, c)
		if err != nil {
			return err
		}
		result.ConversationID = id
		result.Inserted = inserted

		var toInsert []model.Message
		if inserted {
			toInsert = c.Messages
		} else {
			maxIdx, err := MaxMessageIndex(ctx, tx, id)
			if err != nil {
				return err
			}
			for _, m := range c.Messages {
				if m.Index > maxIdx {
					toInsert = append(toInsert, m)
				}
			}
		}

		if err := InsertMessages(ctx, tx, id, toInsert); err != nil {
			return err
		}
		result.MessagesInserted = len(toInsert)

		if inserted {
			if err := bumpStat(ctx, tx, "total_conversations", 1); err != nil {
				return err
			}
		}
		if result.MessagesInserted > 0 {
			if err := bumpStat(ctx, tx, "total_messages", int64(result.MessagesInserted)); err != nil {
				return err
			}
		}
		return setStat(ctx, tx, "last_incremental_index", fmt.Sprint(time.Now().UTC().Unix()))
	})

	return result, err
}
