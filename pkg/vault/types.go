package vault

import (
	"time"

	"github.com/google/uuid"
)

// Version is the per-lineage concurrency token. It starts at 0 for a path
// that has never committed anything and increments by exactly one on every
// successful mutation. It is never reused or decremented.
type Version uint64

// LineageID identifies the continuous identity of a logical file across
// deletions and renames. A MOVE transplants the lineage to the destination
// path; the version counter and history travel with it.
type LineageID string

// ContentID is an opaque handle into the content store for one committed
// snapshot. Every version that carries content has its own blob.
type ContentID string

// NewLineageID returns a fresh lineage identifier.
func NewLineageID() LineageID {
	return LineageID(uuid.NewString())
}

// NewContentID returns a fresh content blob identifier.
func NewContentID() ContentID {
	return ContentID(uuid.NewString())
}

// OpKind is the kind of mutation a history entry records.
type OpKind string

const (
	// OpCreate marks the first version of a lineage, or the re-creation of a
	// path whose previous version was a tombstone.
	OpCreate OpKind = "create"

	// OpUpdate marks a new content snapshot replacing a live one.
	OpUpdate OpKind = "update"

	// OpDelete marks a tombstone: the path has no live content at this
	// version, but every earlier version remains addressable.
	OpDelete OpKind = "delete"

	// OpMoveIn marks the version at which a lineage arrived at a new path
	// through a MOVE.
	OpMoveIn OpKind = "movein"
)

// Record is the current state of a path slot (the FileRecord of the engine).
//
// A record is created implicitly by the first successful PUT and is never
// destroyed: DELETE and MOVE flip Exists to false but keep the record around
// so its history stays addressable.
type Record struct {
	// Path is the canonical path key ("dir/file.txt", no leading slash).
	Path string `json:"path"`

	// Lineage is the identity whose history this path currently resolves to.
	Lineage LineageID `json:"lineage"`

	// Version is the current concurrency token. For a record with
	// Exists == false this is the version the slot was frozen at (the
	// tombstone version after a DELETE, the last live version after a MOVE).
	Version Version `json:"version"`

	// Exists reports whether the path has live content.
	Exists bool `json:"exists"`

	// ContentID locates the current snapshot. Empty when Exists is false.
	ContentID ContentID `json:"contentId,omitempty"`

	// Size is the size in bytes of the current snapshot.
	Size uint64 `json:"size"`

	// LastModified is the commit time of the current version.
	LastModified time.Time `json:"lastModified"`

	// Moved distinguishes a slot vacated by MOVE from one deleted in place.
	// A PUT at a deleted slot continues the old lineage; a PUT at a moved
	// slot starts a fresh lineage at version 1, because the old lineage now
	// lives at the destination.
	Moved bool `json:"moved,omitempty"`
}

// Entry is one immutable line of a lineage's history log.
type Entry struct {
	// Lineage is the log this entry belongs to.
	Lineage LineageID `json:"-"`

	// Version is the entry's position in the lineage, starting at 1.
	Version Version `json:"version"`

	// Op is the mutation kind that produced this version.
	Op OpKind `json:"op"`

	// ContentID locates the snapshot for this version. Empty for tombstones.
	ContentID ContentID `json:"-"`

	// Size is the snapshot size in bytes (0 for tombstones).
	Size uint64 `json:"size"`

	// Digest is the base64-encoded SHA-256 of the snapshot, empty for
	// tombstones.
	Digest string `json:"digest,omitempty"`

	// Path is the path the version was committed at. For a lineage that has
	// been moved this differs across entries.
	Path string `json:"path"`

	// Origin is the network address of the caller that committed the
	// version, when known.
	Origin string `json:"origin,omitempty"`

	// Timestamp is the commit time.
	Timestamp time.Time `json:"timestamp"`
}

// Tombstone reports whether the entry marks a deletion.
func (e *Entry) Tombstone() bool {
	return e.Op == OpDelete
}

// PutRequest carries the inputs of a Put mutation.
type PutRequest struct {
	// Path is the canonical target path.
	Path string

	// AssertedVersion is the caller's concurrency token. Nil means the
	// caller asserts the path has no live record.
	AssertedVersion *Version

	// ContentID locates the already-persisted blob for the new snapshot.
	ContentID ContentID

	// Size is the snapshot size in bytes.
	Size uint64

	// Digest is the base64 SHA-256 of the snapshot.
	Digest string

	// Origin is the caller's network address, for history attribution.
	Origin string
}
