package filesystem

import (
	"net/url"
	"strings"
)

// ResolvePath converts a file:// URI sent by an editor to a local path.
// Bare paths pass through unchanged.
func ResolvePath(uri string) string {
	if !strings.HasPrefix(uri, "file://") {
		return uri
	}
	path := strings.TrimPrefix(uri, "file://")
	if unescaped, err := url.PathUnescape(path); err == nil {
		return unescaped
	}
	return path
}
