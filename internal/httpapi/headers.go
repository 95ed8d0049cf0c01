package httpapi

import (
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/Schwartzmorn/filevault/pkg/vault"
)

// The concurrency token is an integer version carried in the ETag header,
// quoted on responses per RFC 9110. Requests may send it bare or quoted.

// parseToken extracts the asserted version from the request's ETag header.
// Returns nil when the header is absent and an error when it is present but
// not an unsigned integer.
func parseToken(r *http.Request) (*vault.Version, error) {
	raw := r.Header.Get("ETag")
	if raw == "" {
		return nil, nil
	}

	trimmed := strings.Trim(strings.TrimSpace(raw), `"`)
	parsed, err := strconv.ParseUint(trimmed, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("malformed version token %q", raw)
	}

	version := vault.Version(parsed)
	return &version, nil
}

// requireToken is parseToken for the verbs where the token is mandatory.
func requireToken(r *http.Request) (vault.Version, error) {
	token, err := parseToken(r)
	if err != nil {
		return 0, err
	}
	if token == nil {
		return 0, fmt.Errorf("missing version token")
	}
	return *token, nil
}

// setVersionHeaders stamps the response with the committed state: the new
// concurrency token and the commit time.
func setVersionHeaders(w http.ResponseWriter, version vault.Version, modified time.Time) {
	w.Header().Set("ETag", fmt.Sprintf("%q", strconv.FormatUint(uint64(version), 10)))
	w.Header().Set("Last-Modified", modified.UTC().Format(http.TimeFormat))
}

// setContentHeaders stamps a snapshot response. Clients are file-transfer
// tools, not browsers, so snapshots are served as attachments.
func setContentHeaders(w http.ResponseWriter, filePath string, size uint64) {
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.FormatUint(size, 10))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", path.Base(filePath)))
}

// destinationPath extracts and canonicalizes the MOVE destination. The
// Destination header is an absolute URI or an absolute path per WebDAV; the
// /files prefix is stripped so the result is a vault path.
func destinationPath(r *http.Request) (string, error) {
	raw := r.Header.Get("Destination")
	if raw == "" {
		return "", fmt.Errorf("missing Destination header")
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("malformed Destination header %q", raw)
	}

	p := parsed.Path
	p = strings.TrimPrefix(p, "/files/")

	canonical, err := vault.CanonicalPath(p)
	if err != nil {
		return "", fmt.Errorf("invalid destination path %q", raw)
	}
	return canonical, nil
}
