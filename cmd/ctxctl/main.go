// Package main implements the ctxctl CLI for maintenance operations against a
// ctxmemd Store file.
//
// Unlike the daemon, ctxctl never runs concurrently against a live writer beyond what
// SQLite's WAL mode already allows for readers: every subcommand opens its own
// short-lived, read-only inspection of the Store and exits.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	dbPath  string
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "ctxctl",
	Short:   "Maintenance CLI for a ctxmemd Store",
	Long:    `ctxctl inspects a ctxmemd Store file directly: index statistics and a secret-scrub check over transcript content.`,
	Version: version,
}

func init() {
	home, _ := os.UserHomeDir()
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", home+"/.config/ctxmemd/ctxmemd.db", "path to the ctxmemd Store file")
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(scrubCheckCmd)
}
