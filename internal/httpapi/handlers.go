package httpapi

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Schwartzmorn/filevault/internal/logger"
	"github.com/Schwartzmorn/filevault/pkg/vault"
)

// instrument records request metrics per verb and status.
func (h *Handler) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		verb := r.Method
		h.metrics.RecordRequestStart(verb)
		defer h.metrics.RecordRequestEnd(verb)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == http.StatusPreconditionFailed {
			h.metrics.RecordConflict(verb)
		}
		h.metrics.RecordRequest(verb, status, time.Since(start))
	})
}

// requestPath canonicalizes the wildcard part of the request URL.
func requestPath(r *http.Request) (string, error) {
	return vault.CanonicalPath(chi.URLParam(r, "*"))
}

// handleGet serves the current snapshot of a path.
func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	h.serveCurrent(w, r, true)
}

// handleHead serves the current state of a path without the body.
func (h *Handler) handleHead(w http.ResponseWriter, r *http.Request) {
	h.serveCurrent(w, r, false)
}

func (h *Handler) serveCurrent(w http.ResponseWriter, r *http.Request, withBody bool) {
	path, err := requestPath(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	record, err := h.store.Lookup(r.Context(), path)
	if err != nil {
		writeError(w, r, err)
		return
	}

	setVersionHeaders(w, record.Version, record.LastModified)
	setContentHeaders(w, record.Path, record.Size)

	if !withBody {
		w.WriteHeader(http.StatusOK)
		return
	}

	reader, err := h.contents.ReadContent(r.Context(), record.ContentID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer reader.Close()

	w.WriteHeader(http.StatusOK)
	written, err := io.Copy(w, reader)
	if err != nil {
		// Headers are gone; all we can do is log.
		logger.Warn("GET %s: streaming snapshot failed: %v", path, err)
	}
	h.metrics.RecordBytesTransferred("read", uint64(written))
}

// handlePut commits a new snapshot at a path.
//
// The blob is written to the content store first and the index committed
// second, so a failure in between leaves an orphan blob for the garbage
// collector instead of a record pointing at missing bytes.
func (h *Handler) handlePut(w http.ResponseWriter, r *http.Request) {
	path, err := requestPath(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	asserted, err := parseToken(r)
	if err != nil {
		writeBadRequest(w, err)
		return
	}

	body := r.Body
	if h.maxSnapshotBytes > 0 {
		body = http.MaxBytesReader(w, body, h.maxSnapshotBytes)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{
				Error: fmt.Sprintf("snapshot exceeds %d bytes", tooLarge.Limit),
			})
			return
		}
		writeBadRequest(w, fmt.Errorf("failed to read request body: %w", err))
		return
	}
	h.metrics.RecordBytesTransferred("write", uint64(len(data)))

	sum := sha256.Sum256(data)
	contentID := vault.NewContentID()

	if err := h.contents.WriteContent(r.Context(), contentID, data); err != nil {
		writeError(w, r, err)
		return
	}

	record, err := h.store.Put(r.Context(), vault.PutRequest{
		Path:            path,
		AssertedVersion: asserted,
		ContentID:       contentID,
		Size:            uint64(len(data)),
		Digest:          base64.StdEncoding.EncodeToString(sum[:]),
		Origin:          r.RemoteAddr,
	})
	if err != nil {
		// The rejected blob would sit until the next GC cycle; reclaim it now.
		if delErr := h.contents.Delete(r.Context(), contentID); delErr != nil {
			logger.Warn("PUT %s: failed to clean up rejected blob %s: %v", path, contentID, delErr)
		}
		writeError(w, r, err)
		return
	}

	setVersionHeaders(w, record.Version, record.LastModified)
	if record.Version == 1 {
		w.WriteHeader(http.StatusCreated)
	} else {
		w.WriteHeader(http.StatusOK)
	}
}

// handleDelete commits a tombstone at a path.
func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	path, err := requestPath(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	asserted, err := requireToken(r)
	if err != nil {
		writeBadRequest(w, err)
		return
	}

	record, err := h.store.Delete(r.Context(), path, asserted, r.RemoteAddr)
	if err != nil {
		writeError(w, r, err)
		return
	}

	setVersionHeaders(w, record.Version, record.LastModified)
	w.WriteHeader(http.StatusOK)
}

// handleMove transplants a file to the destination named in the Destination
// header.
func (h *Handler) handleMove(w http.ResponseWriter, r *http.Request) {
	src, err := requestPath(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	asserted, err := requireToken(r)
	if err != nil {
		writeBadRequest(w, err)
		return
	}

	dst, err := destinationPath(r)
	if err != nil {
		writeBadRequest(w, err)
		return
	}

	record, err := h.store.Move(r.Context(), src, dst, asserted, r.RemoteAddr)
	if err != nil {
		writeError(w, r, err)
		return
	}

	setVersionHeaders(w, record.Version, record.LastModified)
	w.WriteHeader(http.StatusOK)
}

// handleVersions serves the historical namespace.
//
// A numeric final path segment is a version read: the snapshot committed at
// that version is returned. Anything else returns the path's full history
// log as JSON. A file literally named after a bare integer is therefore not
// addressable here, which the current-state namespace does not suffer from.
func (h *Handler) handleVersions(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "*")

	if path, version, ok := splitVersion(raw); ok {
		h.serveVersion(w, r, path, version)
		return
	}

	path, err := vault.CanonicalPath(raw)
	if err != nil {
		writeError(w, r, err)
		return
	}

	entries, err := h.store.History(r.Context(), path)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, entries)
}

// splitVersion splits "docs/report.txt/3" into ("docs/report.txt", 3).
func splitVersion(raw string) (string, vault.Version, bool) {
	trimmed := strings.TrimSuffix(raw, "/")
	idx := strings.LastIndex(trimmed, "/")
	if idx < 0 {
		return "", 0, false
	}

	parsed, err := strconv.ParseUint(trimmed[idx+1:], 10, 64)
	if err != nil {
		return "", 0, false
	}
	return trimmed[:idx], vault.Version(parsed), true
}

// serveVersion serves one committed snapshot.
func (h *Handler) serveVersion(w http.ResponseWriter, r *http.Request, rawPath string, version vault.Version) {
	path, err := vault.CanonicalPath(rawPath)
	if err != nil {
		writeError(w, r, err)
		return
	}

	entry, err := h.store.GetVersion(r.Context(), path, version)
	if err != nil {
		writeError(w, r, err)
		return
	}

	// A tombstone is a committed version with no snapshot behind it.
	if entry.Tombstone() {
		writeJSON(w, http.StatusNotFound, errorResponse{
			Error: fmt.Sprintf("version %d of %s is a deletion", version, path),
		})
		return
	}

	reader, err := h.contents.ReadContent(r.Context(), entry.ContentID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer reader.Close()

	setVersionHeaders(w, entry.Version, entry.Timestamp)
	setContentHeaders(w, entry.Path, entry.Size)
	w.WriteHeader(http.StatusOK)

	written, err := io.Copy(w, reader)
	if err != nil {
		logger.Warn("GET %s@%d: streaming snapshot failed: %v", path, version, err)
	}
	h.metrics.RecordBytesTransferred("read", uint64(written))
}

// handleHealth reports whether the store can serve requests.
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Healthcheck(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "store unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
