// Package httpapi exposes the vault over a minimal WebDAV-style HTTP
// surface.
//
// Two namespaces:
//
//	/files/*          current-state CRUD (GET, HEAD, PUT, DELETE, MOVE)
//	/file-versions/*  historical reads: a numeric final segment addresses one
//	                  version's snapshot, otherwise the full history log is
//	                  returned as JSON
//
// The concurrency token travels in the ETag header both ways: requests
// assert the expected current version, responses report the committed one.
// MOVE takes the destination from the Destination header, WebDAV style.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Schwartzmorn/filevault/pkg/content"
	"github.com/Schwartzmorn/filevault/pkg/metrics"
	"github.com/Schwartzmorn/filevault/pkg/vault"
)

func init() {
	// MOVE is not in chi's default method set.
	chi.RegisterMethod("MOVE")
}

// Handler serves the file API on top of a vault store and a content store.
type Handler struct {
	store    vault.Store
	contents content.WritableContentStore
	metrics  metrics.HTTPMetrics

	// maxSnapshotBytes caps PUT bodies; 0 means unlimited.
	maxSnapshotBytes int64
}

// Config contains the handler's dependencies and settings.
type Config struct {
	Store            vault.Store
	Contents         content.WritableContentStore
	Metrics          metrics.HTTPMetrics
	MaxSnapshotBytes int64
}

// NewHandler creates a file API handler.
func NewHandler(cfg Config) *Handler {
	m := cfg.Metrics
	if m == nil {
		m = metrics.NewNoopHTTPMetrics()
	}
	return &Handler{
		store:            cfg.Store,
		contents:         cfg.Contents,
		metrics:          m,
		maxSnapshotBytes: cfg.MaxSnapshotBytes,
	}
}

// NewRouter wires the handler into a chi router. When registry is non-nil a
// Prometheus scrape endpoint is mounted at /metrics.
func NewRouter(h *Handler, registry *prometheus.Registry) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(h.instrument)

	r.Get("/health", h.handleHealth)

	r.Route("/files", func(r chi.Router) {
		r.Get("/*", h.handleGet)
		r.Head("/*", h.handleHead)
		r.Put("/*", h.handlePut)
		r.Delete("/*", h.handleDelete)
		r.Method("MOVE", "/*", http.HandlerFunc(h.handleMove))
	})

	r.Get("/file-versions/*", h.handleVersions)

	if registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	return r
}
