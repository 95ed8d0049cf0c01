package vault

import (
	gopath "path"
	"strings"
)

// CanonicalPath normalizes a request path into the canonical form used as
// the index key: cleaned, forward-slash separated, no leading or trailing
// slash. Returns ErrBadRequest for empty paths and for paths that try to
// escape the namespace ("..", absolute tricks, etc.).
func CanonicalPath(raw string) (string, error) {
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return "", &StoreError{Code: ErrBadRequest, Message: "empty path"}
	}

	cleaned := gopath.Clean(trimmed)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", &StoreError{Code: ErrBadRequest, Message: "invalid path", Path: raw}
	}

	return cleaned, nil
}
