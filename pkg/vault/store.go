package vault

import (
	"context"
)

// Store provides path-addressed, version-tracked storage of file records and
// their append-only history.
//
// The store owns the PathIndex (path → current record) and the HistoryStore
// (per-lineage log of every committed version). It does NOT hold file
// content: snapshots live in a content store and are referenced by ContentID,
// so the index stays small and blob storage can be swapped independently
// (filesystem, memory, S3).
//
// Concurrency Contract:
// Each mutation is one indivisible unit: read current version, compare the
// asserted token, apply, append history, publish the new record. Two
// concurrent mutations on the same path never both succeed against the same
// prior version; requests on distinct paths never block one another.
// Conflict detection is optimistic with no internal retry: a rejected caller
// resubmits with a refreshed token if it wants to proceed.
//
// Reads observe only fully committed state, and a read issued after a
// mutation's acknowledgment observes that mutation.
//
// Durability Contract:
// A mutation must not return success until the new record and its history
// entry are persisted. Validation failures (*StoreError) leave the store
// untouched; an infrastructure failure during the commit must not leave a
// half-written version behind.
//
// Thread Safety:
// Implementations must be safe for concurrent use by multiple goroutines.
type Store interface {
	// Lookup returns the current record for a path.
	//
	// Returns ErrNotFound when the path has never existed or has no live
	// content (deleted and moved-away slots read identically).
	Lookup(ctx context.Context, path string) (*Record, error)

	// GetVersion returns the history entry for one committed version of a
	// path, including tombstones.
	//
	// The path is resolved to its current lineage first; if the version is
	// not part of that lineage the lineages the path previously hosted are
	// searched newest-first, so versions committed before a MOVE or a
	// re-creation stay addressable. Returns ErrNotFound when no lineage ever
	// committed that version at this path.
	GetVersion(ctx context.Context, path string, version Version) (*Entry, error)

	// History returns the full ordered log for a path: the entries of every
	// lineage the path has hosted, oldest lineage first, ordered by version
	// within each lineage. Returns ErrNotFound when the path has no history
	// at all.
	History(ctx context.Context, path string) ([]Entry, error)

	// Put commits a new snapshot at a path.
	//
	// With a nil asserted version the path must have no live record; the new
	// version continues the lineage of a deleted-in-place slot, or starts a
	// fresh lineage at 1 for an unknown or moved-away slot. With a non-nil
	// asserted version the token must equal the current version exactly
	// (0 for an unknown path). The blob must already be persisted in the
	// content store under req.ContentID before Put is called.
	//
	// Returns ErrVersionConflict on any token mismatch, with no effect.
	Put(ctx context.Context, req PutRequest) (*Record, error)

	// Delete commits a tombstone at a path.
	//
	// The path must have a live record (ErrNotFound otherwise) and the token
	// must match (ErrVersionConflict). On success the version advances by
	// one, the record is published with Exists == false, and the prior
	// snapshot remains addressable through history.
	//
	// The returned record names the ContentID the live slot was holding so
	// the caller can account for it; the blob itself must be kept for
	// historical reads.
	Delete(ctx context.Context, path string, asserted Version, origin string) (*Record, error)

	// Move transplants the lineage at src to dst.
	//
	// The source must have a live record matching the asserted token and the
	// destination must have no live record (ErrDestinationOccupied). On
	// success dst carries the source's lineage at version+1 with a MoveIn
	// entry, and src is frozen at its pre-move version with Exists == false.
	// Moving a path onto itself is ErrBadRequest.
	Move(ctx context.Context, src, dst string, asserted Version, origin string) (*Record, error)

	// ReferencedContentIDs returns every ContentID reachable from the index
	// or any history entry. Used by the garbage collector to identify
	// orphaned blobs; snapshots referenced only by history are still live.
	ReferencedContentIDs(ctx context.Context) ([]ContentID, error)

	// Healthcheck verifies the store can serve requests.
	Healthcheck(ctx context.Context) error

	// Close releases the store's resources. The store must not be used
	// afterwards.
	Close() error
}
