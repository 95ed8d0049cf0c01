package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	contentmemory "github.com/Schwartzmorn/filevault/pkg/content/memory"
	vaultmemory "github.com/Schwartzmorn/filevault/pkg/vault/memory"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	return NewRouter(NewHandler(Config{
		Store:    vaultmemory.NewMemoryStore(),
		Contents: contentmemory.NewMemoryContentStore(),
	}), nil)
}

// do runs one request against the router and returns the response.
func do(t *testing.T, router http.Handler, method, target string, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.RemoteAddr = "192.0.2.1:4242"
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func etag(v string) map[string]string {
	return map[string]string{"ETag": v}
}

func TestPutCreateAndGet(t *testing.T) {
	router := newTestRouter(t)

	rec := do(t, router, http.MethodPut, "/files/docs/report.txt", []byte("hello"), nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, `"1"`, rec.Header().Get("ETag"))
	assert.NotEmpty(t, rec.Header().Get("Last-Modified"))

	rec = do(t, router, http.MethodGet, "/files/docs/report.txt", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `"1"`, rec.Header().Get("ETag"))
	assert.Equal(t, "hello", rec.Body.String())
	assert.Equal(t, "5", rec.Header().Get("Content-Length"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), `filename="report.txt"`)

	rec = do(t, router, http.MethodHead, "/files/docs/report.txt", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `"1"`, rec.Header().Get("ETag"))
	assert.Empty(t, rec.Body.String())
}

func TestGetMissing(t *testing.T) {
	router := newTestRouter(t)

	rec := do(t, router, http.MethodGet, "/files/nope.txt", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPutConditionalUpdate(t *testing.T) {
	router := newTestRouter(t)

	do(t, router, http.MethodPut, "/files/a.txt", []byte("v1"), nil)

	// Update with the right token.
	rec := do(t, router, http.MethodPut, "/files/a.txt", []byte("v2"), etag(`"1"`))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `"2"`, rec.Header().Get("ETag"))

	// A bare token works too.
	rec = do(t, router, http.MethodPut, "/files/a.txt", []byte("v3"), etag("2"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `"3"`, rec.Header().Get("ETag"))

	rec = do(t, router, http.MethodGet, "/files/a.txt", nil, nil)
	assert.Equal(t, "v3", rec.Body.String())
}

func TestPutConflicts(t *testing.T) {
	router := newTestRouter(t)

	do(t, router, http.MethodPut, "/files/a.txt", []byte("v1"), nil)

	// Tokenless PUT on a live path.
	rec := do(t, router, http.MethodPut, "/files/a.txt", []byte("x"), nil)
	assert.Equal(t, http.StatusPreconditionFailed, rec.Code)

	// Stale token.
	do(t, router, http.MethodPut, "/files/a.txt", []byte("v2"), etag("1"))
	rec = do(t, router, http.MethodPut, "/files/a.txt", []byte("x"), etag("1"))
	assert.Equal(t, http.StatusPreconditionFailed, rec.Code)

	// Malformed token.
	rec = do(t, router, http.MethodPut, "/files/a.txt", []byte("x"), etag("latest"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// No conflict side effects.
	rec = do(t, router, http.MethodGet, "/files/a.txt", nil, nil)
	assert.Equal(t, `"2"`, rec.Header().Get("ETag"))
	assert.Equal(t, "v2", rec.Body.String())
}

func TestDeleteFlow(t *testing.T) {
	router := newTestRouter(t)

	do(t, router, http.MethodPut, "/files/a.txt", []byte("v1"), nil)

	// Token is mandatory.
	rec := do(t, router, http.MethodDelete, "/files/a.txt", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodDelete, "/files/a.txt", nil, etag("9"))
	assert.Equal(t, http.StatusPreconditionFailed, rec.Code)

	rec = do(t, router, http.MethodDelete, "/files/a.txt", nil, etag("1"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `"2"`, rec.Header().Get("ETag"), "the tombstone advances the version")

	// Deleted reads like never-existed.
	rec = do(t, router, http.MethodGet, "/files/a.txt", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = do(t, router, http.MethodDelete, "/files/a.txt", nil, etag("2"))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// The prior snapshot survives in the historical namespace.
	rec = do(t, router, http.MethodGet, "/file-versions/a.txt/1", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "v1", rec.Body.String())

	// The tombstone version has no snapshot.
	rec = do(t, router, http.MethodGet, "/file-versions/a.txt/2", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Re-creation continues the lineage.
	rec = do(t, router, http.MethodPut, "/files/a.txt", []byte("v3"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `"3"`, rec.Header().Get("ETag"))
}

func TestMoveFlow(t *testing.T) {
	router := newTestRouter(t)

	do(t, router, http.MethodPut, "/files/src.txt", []byte("v1"), nil)
	do(t, router, http.MethodPut, "/files/src.txt", []byte("v2"), etag("1"))

	// Missing destination and missing token are malformed requests.
	rec := do(t, router, "MOVE", "/files/src.txt", nil, etag("2"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(t, router, "MOVE", "/files/src.txt", nil, map[string]string{"Destination": "/files/dst.txt"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, "MOVE", "/files/src.txt", nil, map[string]string{
		"ETag":        "2",
		"Destination": "http://example.com/files/dst.txt",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `"3"`, rec.Header().Get("ETag"), "destination continues the source's sequence")

	rec = do(t, router, http.MethodGet, "/files/dst.txt", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "v2", rec.Body.String())

	rec = do(t, router, http.MethodGet, "/files/src.txt", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Pre-move versions stay readable at both ends.
	rec = do(t, router, http.MethodGet, "/file-versions/dst.txt/1", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "v1", rec.Body.String())
	rec = do(t, router, http.MethodGet, "/file-versions/src.txt/2", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "v2", rec.Body.String())
}

func TestMoveDestinationOccupied(t *testing.T) {
	router := newTestRouter(t)

	do(t, router, http.MethodPut, "/files/src.txt", []byte("s"), nil)
	do(t, router, http.MethodPut, "/files/dst.txt", []byte("d"), nil)

	rec := do(t, router, "MOVE", "/files/src.txt", nil, map[string]string{
		"ETag":        "1",
		"Destination": "/files/dst.txt",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Neither end changed.
	rec = do(t, router, http.MethodGet, "/files/src.txt", nil, nil)
	assert.Equal(t, "s", rec.Body.String())
	rec = do(t, router, http.MethodGet, "/files/dst.txt", nil, nil)
	assert.Equal(t, "d", rec.Body.String())
}

func TestHistoryLog(t *testing.T) {
	router := newTestRouter(t)

	do(t, router, http.MethodPut, "/files/a.txt", []byte("v1"), nil)
	do(t, router, http.MethodPut, "/files/a.txt", []byte("v2"), etag("1"))
	do(t, router, http.MethodDelete, "/files/a.txt", nil, etag("2"))

	rec := do(t, router, http.MethodGet, "/file-versions/a.txt", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var entries []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 3)
	assert.Equal(t, "create", entries[0]["op"])
	assert.Equal(t, "update", entries[1]["op"])
	assert.Equal(t, "delete", entries[2]["op"])
	assert.Equal(t, float64(3), entries[2]["version"])
	assert.Equal(t, "a.txt", entries[0]["path"])
	assert.NotEmpty(t, entries[0]["digest"])
	assert.Equal(t, "192.0.2.1:4242", entries[0]["origin"])

	rec = do(t, router, http.MethodGet, "/file-versions/missing.txt", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSnapshotSizeCap(t *testing.T) {
	router := NewRouter(NewHandler(Config{
		Store:            vaultmemory.NewMemoryStore(),
		Contents:         contentmemory.NewMemoryContentStore(),
		MaxSnapshotBytes: 8,
	}), nil)

	rec := do(t, router, http.MethodPut, "/files/big.txt", bytes.Repeat([]byte("x"), 64), nil)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	rec = do(t, router, http.MethodPut, "/files/small.txt", []byte("ok"), nil)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestPathNormalization(t *testing.T) {
	router := newTestRouter(t)

	do(t, router, http.MethodPut, "/files/docs//report.txt", []byte("v1"), nil)

	// Equivalent spellings address the same slot.
	rec := do(t, router, http.MethodGet, "/files/docs/report.txt", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Escapes are rejected outright.
	rec = do(t, router, http.MethodPut, "/files/../etc/passwd", []byte("x"), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealth(t *testing.T) {
	router := newTestRouter(t)

	rec := do(t, router, http.MethodGet, "/health", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
