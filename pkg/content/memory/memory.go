// Package memory implements an in-memory content store for tests and
// ephemeral deployments. Nothing survives a restart.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/Schwartzmorn/filevault/pkg/content"
	"github.com/Schwartzmorn/filevault/pkg/vault"
)

// MemoryContentStore implements content.WritableContentStore and
// content.GarbageCollectableStore over a map.
//
// Thread Safety:
// All operations are safe for concurrent use; a single RWMutex guards the
// map.
type MemoryContentStore struct {
	mu    sync.RWMutex
	blobs map[vault.ContentID][]byte
}

// NewMemoryContentStore creates an empty in-memory content store.
func NewMemoryContentStore() *MemoryContentStore {
	return &MemoryContentStore{
		blobs: make(map[vault.ContentID][]byte),
	}
}

func (s *MemoryContentStore) ReadContent(ctx context.Context, id vault.ContentID) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	data, ok := s.blobs[id]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("content %s: %w", id, content.ErrContentNotFound)
	}

	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *MemoryContentStore) GetContentSize(ctx context.Context, id vault.ContentID) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.RLock()
	data, ok := s.blobs[id]
	s.mu.RUnlock()

	if !ok {
		return 0, fmt.Errorf("content %s: %w", id, content.ErrContentNotFound)
	}

	return uint64(len(data)), nil
}

func (s *MemoryContentStore) ContentExists(ctx context.Context, id vault.ContentID) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.RLock()
	_, ok := s.blobs[id]
	s.mu.RUnlock()

	return ok, nil
}

func (s *MemoryContentStore) WriteContent(ctx context.Context, id vault.ContentID, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	// Copy so later caller mutations cannot corrupt the stored blob.
	stored := make([]byte, len(data))
	copy(stored, data)

	s.mu.Lock()
	s.blobs[id] = stored
	s.mu.Unlock()

	return nil
}

func (s *MemoryContentStore) Delete(ctx context.Context, id vault.ContentID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.blobs, id)
	s.mu.Unlock()

	return nil
}

func (s *MemoryContentStore) ListAllContent(ctx context.Context) ([]vault.ContentID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]vault.ContentID, 0, len(s.blobs))
	for id := range s.blobs {
		ids = append(ids, id)
	}

	return ids, nil
}

func (s *MemoryContentStore) DeleteBatch(ctx context.Context, ids []vault.ContentID) (map[vault.ContentID]error, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		delete(s.blobs, id)
	}

	return map[vault.ContentID]error{}, nil
}
