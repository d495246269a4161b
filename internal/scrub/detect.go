// Package scrub detects secrets in text content for the maintenance CLI's scrub-check;
// the ingest path does not call it. It is trimmed from the teacher's full redaction pipeline down to detection-only: the Tool
// Surface has no external-facing HTTP API to scrub headers for, so only the maintenance
// CLI's diagnostic check needs it.
package scrub

import (
	"fmt"

	"github.com/zricethezav/gitleaks/v8/detect"
)

// Finding is a detected secret with its location in the scanned content.
type Finding struct {
	RuleID   string
	RuleDesc string
	Line     int
	StartCol int
	EndCol   int
}

// Detect scans content against Gitleaks' default rule set. It never returns the
// matched secret text itself, only its rule and position, since callers use this for
// reporting ("N possible secrets at line L"), not redaction.
func Detect(content string) ([]Finding, error) {
	detector, err := detect.NewDetectorDefaultConfig()
	if err != nil {
		return nil, fmt.Errorf("build gitleaks detector: %w", err)
	}

	raw := detector.DetectString(content)
	findings := make([]Finding, 0, len(raw))
	for _, f := range raw {
		findings = append(findings, Finding{
			RuleID:   f.RuleID,
			RuleDesc: f.Description,
			Line:     f.StartLine,
			StartCol: f.StartColumn,
			EndCol:   f.EndColumn,
		})
	}
	return findings, nil
}
