package transcript

import (
	"path/filepath"
	"regexp"
	"strings"
)

var uuidShape = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// sessionIDFromPath derives the fallback session id from a transcript's filename stem:
// the stem itself if it looks like a UUID, else "file-<stem>".
func sessionIDFromPath(path string) string {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if uuidShape.MatchString(stem) {
		return stem
	}
	return "file-" + stem
}
