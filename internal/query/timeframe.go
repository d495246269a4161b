package query

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var relativePattern = regexp.MustCompile(`^(\d+)\s*(hour|day|week|month)s?$`)

// ParseTimeframe interprets a lowercase english timeframe expression and returns the
// lower bound on created_at it implies. Unrecognized input is ignored (ok=false, no
// filter applied) per the spec's "unrecognized input -> ignored" rule.
func ParseTimeframe(now time.Time, expr string) (lowerBound time.Time, ok bool) {
	expr = strings.ToLower(strings.TrimSpace(expr))
	if expr == "" {
		return time.Time{}, false
	}

	switch expr {
	case "today":
		y, m, d := now.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, now.Location()), true
	case "yesterday":
		y, m, d := now.AddDate(0, 0, -1).Date()
		return time.Date(y, m, d, 0, 0, 0, 0, now.Location()), true
	case "last week":
		return now.AddDate(0, 0, -7), true
	}

	if m := relativePattern.FindStringSubmatch(expr); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return time.Time{}, false
		}
		switch m[2] {
		case "hour":
			return now.Add(-time.Duration(n) * time.Hour), true
		case "day":
			return now.AddDate(0, 0, -n), true
		case "week":
			return now.AddDate(0, 0, -7*n), true
		case "month":
			return now.AddDate(0, -n, 0), true
		}
	}

	if t, err := time.Parse("2006-01-02", expr); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, expr); err == nil {
		return t, true
	}

	return time.Time{}, false
}
