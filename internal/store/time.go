package store

import "time"

// unixTime converts a stored Unix-seconds column back into a UTC time.Time.
func unixTime(sec int64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}
