package content

import (
	"context"
	"io"

	"github.com/Schwartzmorn/filevault/pkg/vault"
)

// ContentStore provides blob storage for committed snapshots.
//
// The vault index references snapshots by vault.ContentID; the content store
// only ever sees opaque IDs and raw bytes. Snapshots are immutable: a new
// version of a file is a new blob under a new ID, never a rewrite of an old
// one, so historical reads stay valid without copy-on-write tricks.
//
// Separation of Concerns:
// The content store does NOT know about paths, versions, lineages or
// concurrency tokens; all of that lives in the vault store. This split keeps
// the index small and lets blob storage be swapped independently (local
// filesystem, memory, S3).
//
// Coordination:
// Writers persist the blob first and commit the index mutation second. If
// the commit fails the blob is orphaned and the garbage collector reclaims
// it; the reverse order could leave a committed version with no bytes.
//
// Thread Safety:
// Implementations must be safe for concurrent use. Concurrent writes to the
// same ContentID never happen in practice because IDs are random per commit.
type ContentStore interface {
	// ReadContent returns a reader for the blob. The caller must close it.
	// Returns ErrContentNotFound (wrapped) when the blob does not exist.
	ReadContent(ctx context.Context, id vault.ContentID) (io.ReadCloser, error)

	// GetContentSize returns the blob size in bytes without reading it.
	GetContentSize(ctx context.Context, id vault.ContentID) (uint64, error)

	// ContentExists reports whether the blob exists. A missing blob is
	// (false, nil), not an error.
	ContentExists(ctx context.Context, id vault.ContentID) (bool, error)
}

// WritableContentStore extends ContentStore with write and delete
// operations.
type WritableContentStore interface {
	ContentStore

	// WriteContent stores the complete blob under the given ID, replacing
	// any previous bytes. The write must be complete and readable before the
	// method returns, since the index commit that follows makes the version
	// visible.
	WriteContent(ctx context.Context, id vault.ContentID, data []byte) error

	// Delete removes a blob. Deleting a non-existent blob succeeds, so
	// retries and concurrent garbage collection are safe.
	Delete(ctx context.Context, id vault.ContentID) error
}

// GarbageCollectableStore is an optional interface for orphan cleanup.
//
// A blob becomes an orphan when its index commit failed after the blob was
// written. The collector diffs ListAllContent against the vault store's
// ReferencedContentIDs and batch-deletes the remainder.
type GarbageCollectableStore interface {
	ContentStore

	// ListAllContent returns every blob ID currently stored, referenced or
	// not. Implementations should check the context periodically for large
	// stores.
	ListAllContent(ctx context.Context) ([]vault.ContentID, error)

	// DeleteBatch removes multiple blobs best-effort. Per-item failures are
	// reported in the map (empty map means all succeeded); the error return
	// is reserved for context cancellation and catastrophic failures.
	DeleteBatch(ctx context.Context, ids []vault.ContentID) (map[vault.ContentID]error, error)
}
