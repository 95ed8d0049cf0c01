// Package fs implements a content store backed by the local filesystem.
//
// This is the default backend: the configured root directory (the engine's
// one required external configuration item) holds one file per snapshot,
// named by the hex-encoded ContentID.
package fs

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/Schwartzmorn/filevault/pkg/content"
	"github.com/Schwartzmorn/filevault/pkg/vault"
)

// FSContentStore implements content.WritableContentStore and
// content.GarbageCollectableStore using one file per blob.
//
// Thread Safety:
// Filesystem operations are thread-safe at the OS level; distinct ContentIDs
// never collide and the same ContentID is never written twice, so no
// additional locking is needed.
type FSContentStore struct {
	basePath string
}

// NewFSContentStore creates a filesystem-based content store rooted at
// basePath, creating the directory if needed.
func NewFSContentStore(ctx context.Context, basePath string) (*FSContentStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create content root: %w", err)
	}

	return &FSContentStore{basePath: basePath}, nil
}

// blobPath returns the file path for a blob. IDs are hex-encoded so binary
// or otherwise unsafe IDs can never escape the root.
func (s *FSContentStore) blobPath(id vault.ContentID) string {
	return filepath.Join(s.basePath, hex.EncodeToString([]byte(id)))
}

// ReadContent returns a reader for the blob. The caller must close it.
func (s *FSContentStore) ReadContent(ctx context.Context, id vault.ContentID) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	file, err := os.Open(s.blobPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("content %s: %w", id, content.ErrContentNotFound)
		}
		return nil, fmt.Errorf("failed to open content: %w", err)
	}

	return file, nil
}

// GetContentSize returns the blob size via a stat, without reading it.
func (s *FSContentStore) GetContentSize(ctx context.Context, id vault.ContentID) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	info, err := os.Stat(s.blobPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, fmt.Errorf("content %s: %w", id, content.ErrContentNotFound)
		}
		return 0, fmt.Errorf("failed to stat content: %w", err)
	}

	return uint64(info.Size()), nil
}

// ContentExists reports whether the blob exists.
func (s *FSContentStore) ContentExists(ctx context.Context, id vault.ContentID) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	_, err := os.Stat(s.blobPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check content existence: %w", err)
	}

	return true, nil
}

// WriteContent stores the complete blob, fsyncing before it reports success
// so a committed version can never point at bytes the disk has not accepted.
//
// The blob is written to a temp file in the same directory and renamed into
// place, so a crash mid-write leaves a stray temp file rather than a
// truncated blob under a real ID.
func (s *FSContentStore) WriteContent(ctx context.Context, id vault.ContentID, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.basePath, ".write-*")
	if err != nil {
		return fmt.Errorf("failed to create temp blob: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write content: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to sync content: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close content: %w", err)
	}

	if err := os.Rename(tmpName, s.blobPath(id)); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to publish content: %w", err)
	}

	return nil
}

// Delete removes a blob. Deleting a non-existent blob succeeds.
func (s *FSContentStore) Delete(ctx context.Context, id vault.ContentID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.Remove(s.blobPath(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete content: %w", err)
	}

	return nil
}

// ListAllContent returns the IDs of every blob under the root.
//
// Entries that do not decode as hex (including in-flight temp files) are
// skipped: they are not blobs the engine ever committed.
func (s *FSContentStore) ListAllContent(ctx context.Context) ([]vault.ContentID, error) {
	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to list content root: %w", err)
	}

	ids := make([]vault.ContentID, 0, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if entry.IsDir() {
			continue
		}
		decoded, err := hex.DecodeString(entry.Name())
		if err != nil {
			continue
		}
		ids = append(ids, vault.ContentID(decoded))
	}

	return ids, nil
}

// DeleteBatch removes blobs best-effort, reporting per-item failures.
func (s *FSContentStore) DeleteBatch(ctx context.Context, ids []vault.ContentID) (map[vault.ContentID]error, error) {
	failures := make(map[vault.ContentID]error)

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return failures, err
		}
		if err := s.Delete(ctx, id); err != nil {
			failures[id] = err
		}
	}

	return failures, nil
}
