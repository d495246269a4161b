package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/ctxmemd/internal/scrub"
)

var scrubCheckCmd = &cobra.Command{
	Use:   "scrub-check [file]",
	Short: "Check a file or stdin for likely secrets before it is indexed",
	Long: `Scan a file or stdin against Gitleaks' default rule set and report any matches
by rule and line number, without printing the matched text itself.

Examples:
  ctxctl scrub-check ~/.claude/projects/foo/session.jsonl
  cat session.jsonl | ctxctl scrub-check -`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScrubCheck,
}

func runScrubCheck(cmd *cobra.Command, args []string) error {
	var content []byte
	var err error

	if len(args) == 0 || args[0] == "-" {
		content, err = io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
	} else {
		content, err = os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read file %s: %w", args[0], err)
		}
	}

	findings, err := scrub.Detect(string(content))
	if err != nil {
		return fmt.Errorf("scan for secrets: %w", err)
	}

	if len(findings) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no findings")
		return nil
	}

	for _, f := range findings {
		fmt.Fprintf(cmd.OutOrStdout(), "line %d: %s (%s)\n", f.Line, f.RuleID, f.RuleDesc)
	}
	return fmt.Errorf("%d possible secret(s) found", len(findings))
}
