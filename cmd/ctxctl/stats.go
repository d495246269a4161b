package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/ctxmemd/internal/logging"
	"github.com/fyrsmithlabs/ctxmemd/internal/store"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print index statistics from the Store",
	Long: `Print the index_stats counters tracked by the Store: schema version, total
conversations, total messages, and the last incremental index timestamp.

Examples:
  ctxctl stats
  ctxctl stats --db /var/lib/ctxmemd/ctxmemd.db`,
	RunE: runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	st, err := store.Open(context.Background(), dbPath, store.DefaultOptions(), logging.Noop())
	if err != nil {
		return fmt.Errorf("open store at %s: %w", dbPath, err)
	}
	defer st.Close()

	stats, err := st.ReadStats(context.Background())
	if err != nil {
		return fmt.Errorf("read stats: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "schema_version:          %s\n", stats.SchemaVersion)
	fmt.Fprintf(cmd.OutOrStdout(), "total_conversations:     %d\n", stats.TotalConversations)
	fmt.Fprintf(cmd.OutOrStdout(), "total_messages:          %d\n", stats.TotalMessages)
	fmt.Fprintf(cmd.OutOrStdout(), "last_incremental_index:  %d\n", stats.LastIncrementalIndex)
	return nil
}
