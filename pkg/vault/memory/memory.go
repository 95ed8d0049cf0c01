// Package memory implements an in-memory vault store.
//
// It keeps the path index, history logs and former-hosting lists in maps.
// Nothing survives a restart, which makes it the backend of choice for tests
// and throwaway deployments; the durable deployments use the badger backend.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Schwartzmorn/filevault/pkg/vault"
)

// hosting records one span of a path's life: the lineage the path served and
// the last version of that lineage addressable at the path.
type hosting struct {
	Lineage vault.LineageID
	UpTo    vault.Version
}

// MemoryStore implements vault.Store with plain maps.
//
// Thread Safety:
// A PathLocker serializes the read-compare-apply window per path, so the
// optimistic concurrency check and the publish are one indivisible unit for
// any given path while distinct paths proceed in parallel. The RWMutex only
// guards the maps and is held for map access, never across a whole mutation.
type MemoryStore struct {
	locker *vault.PathLocker

	mu      sync.RWMutex
	records map[string]*vault.Record
	history map[vault.LineageID][]vault.Entry
	former  map[string][]hosting
}

// NewMemoryStore creates an empty in-memory vault store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		locker:  vault.NewPathLocker(),
		records: make(map[string]*vault.Record),
		history: make(map[vault.LineageID][]vault.Entry),
		former:  make(map[string][]hosting),
	}
}

// Lookup returns the current record for a path.
func (s *MemoryStore) Lookup(ctx context.Context, path string) (*vault.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[path]
	if !ok || !rec.Exists {
		return nil, &vault.StoreError{Code: vault.ErrNotFound, Message: "no such file", Path: path}
	}

	copied := *rec
	return &copied, nil
}

// hostings returns every lineage span the path has served, oldest first,
// including the current record's lineage capped at the record's version.
// Callers must hold at least a read lock.
func (s *MemoryStore) hostings(path string) []hosting {
	spans := append([]hosting(nil), s.former[path]...)
	if rec, ok := s.records[path]; ok {
		spans = append(spans, hosting{Lineage: rec.Lineage, UpTo: rec.Version})
	}
	return spans
}

// GetVersion returns the history entry for one committed version of a path.
func (s *MemoryStore) GetVersion(ctx context.Context, path string, version vault.Version) (*vault.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	spans := s.hostings(path)
	for i := len(spans) - 1; i >= 0; i-- {
		span := spans[i]
		if version < 1 || version > span.UpTo {
			continue
		}
		log := s.history[span.Lineage]
		if int(version) <= len(log) {
			entry := log[version-1]
			return &entry, nil
		}
	}

	return nil, &vault.StoreError{
		Code:    vault.ErrNotFound,
		Message: fmt.Sprintf("no version %d", version),
		Path:    path,
	}
}

// History returns the full ordered log for a path, oldest lineage first.
func (s *MemoryStore) History(ctx context.Context, path string) ([]vault.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var entries []vault.Entry
	for _, span := range s.hostings(path) {
		log := s.history[span.Lineage]
		upTo := int(span.UpTo)
		if upTo > len(log) {
			upTo = len(log)
		}
		entries = append(entries, log[:upTo]...)
	}

	if len(entries) == 0 {
		return nil, &vault.StoreError{Code: vault.ErrNotFound, Message: "no history", Path: path}
	}

	return entries, nil
}

// Put commits a new snapshot at a path.
func (s *MemoryStore) Put(ctx context.Context, req vault.PutRequest) (*vault.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.locker.Lock(req.Path)
	defer s.locker.Unlock(req.Path)

	s.mu.RLock()
	cur := s.records[req.Path]
	s.mu.RUnlock()

	lineage, version, err := resolvePut(cur, req.AssertedVersion, req.Path)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	op := vault.OpCreate
	if cur != nil && cur.Exists {
		op = vault.OpUpdate
	}

	record := &vault.Record{
		Path:         req.Path,
		Lineage:      lineage,
		Version:      version,
		Exists:       true,
		ContentID:    req.ContentID,
		Size:         req.Size,
		LastModified: now,
	}
	entry := vault.Entry{
		Lineage:   lineage,
		Version:   version,
		Op:        op,
		ContentID: req.ContentID,
		Size:      req.Size,
		Digest:    req.Digest,
		Path:      req.Path,
		Origin:    req.Origin,
		Timestamp: now,
	}

	s.mu.Lock()
	// A fresh lineage at a previously-hosted path retires the old span so its
	// versions stay addressable here.
	if cur != nil && cur.Lineage != lineage {
		s.former[req.Path] = append(s.former[req.Path], hosting{Lineage: cur.Lineage, UpTo: cur.Version})
	}
	s.records[req.Path] = record
	s.history[lineage] = append(s.history[lineage], entry)
	s.mu.Unlock()

	copied := *record
	return &copied, nil
}

// resolvePut applies the concurrency rules of a PUT to the current record and
// decides which lineage and version the new snapshot commits under.
func resolvePut(cur *vault.Record, asserted *vault.Version, path string) (vault.LineageID, vault.Version, error) {
	conflict := func(format string, args ...any) (vault.LineageID, vault.Version, error) {
		return "", 0, &vault.StoreError{
			Code:    vault.ErrVersionConflict,
			Message: fmt.Sprintf(format, args...),
			Path:    path,
		}
	}

	switch {
	case cur == nil:
		if asserted != nil && *asserted != 0 {
			return conflict("version %d asserted on unknown path", *asserted)
		}
		return vault.NewLineageID(), 1, nil

	case cur.Exists:
		if asserted == nil {
			return conflict("path already exists at version %d", cur.Version)
		}
		if *asserted != cur.Version {
			return conflict("version %d asserted, current is %d", *asserted, cur.Version)
		}
		return cur.Lineage, cur.Version + 1, nil

	case cur.Moved:
		// The old lineage lives at the move destination now; this slot is as
		// good as new.
		if asserted != nil && *asserted != 0 {
			return conflict("version %d asserted on vacated path", *asserted)
		}
		return vault.NewLineageID(), 1, nil

	default:
		// Deleted in place: re-creation continues the lineage past the
		// tombstone.
		if asserted != nil && *asserted != cur.Version {
			return conflict("version %d asserted, current is %d", *asserted, cur.Version)
		}
		return cur.Lineage, cur.Version + 1, nil
	}
}

// Delete commits a tombstone at a path.
func (s *MemoryStore) Delete(ctx context.Context, path string, asserted vault.Version, origin string) (*vault.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.locker.Lock(path)
	defer s.locker.Unlock(path)

	s.mu.RLock()
	cur := s.records[path]
	s.mu.RUnlock()

	if cur == nil || !cur.Exists {
		return nil, &vault.StoreError{Code: vault.ErrNotFound, Message: "no such file", Path: path}
	}
	if asserted != cur.Version {
		return nil, &vault.StoreError{
			Code:    vault.ErrVersionConflict,
			Message: fmt.Sprintf("version %d asserted, current is %d", asserted, cur.Version),
			Path:    path,
		}
	}

	now := time.Now().UTC()
	version := cur.Version + 1
	record := &vault.Record{
		Path:         path,
		Lineage:      cur.Lineage,
		Version:      version,
		Exists:       false,
		LastModified: now,
	}
	entry := vault.Entry{
		Lineage:   cur.Lineage,
		Version:   version,
		Op:        vault.OpDelete,
		Path:      path,
		Origin:    origin,
		Timestamp: now,
	}

	s.mu.Lock()
	s.records[path] = record
	s.history[cur.Lineage] = append(s.history[cur.Lineage], entry)
	s.mu.Unlock()

	// The caller gets the blob the slot was holding for accounting; the blob
	// stays in the content store for historical reads.
	returned := *record
	returned.ContentID = cur.ContentID
	returned.Size = cur.Size
	return &returned, nil
}

// Move transplants the lineage at src to dst.
func (s *MemoryStore) Move(ctx context.Context, src, dst string, asserted vault.Version, origin string) (*vault.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if src == dst {
		return nil, &vault.StoreError{Code: vault.ErrBadRequest, Message: "move onto itself", Path: src}
	}

	s.locker.LockPair(src, dst)
	defer s.locker.UnlockPair(src, dst)

	s.mu.RLock()
	srcCur := s.records[src]
	dstCur := s.records[dst]
	s.mu.RUnlock()

	if srcCur == nil || !srcCur.Exists {
		return nil, &vault.StoreError{Code: vault.ErrNotFound, Message: "no such file", Path: src}
	}
	if asserted != srcCur.Version {
		return nil, &vault.StoreError{
			Code:    vault.ErrVersionConflict,
			Message: fmt.Sprintf("version %d asserted, current is %d", asserted, srcCur.Version),
			Path:    src,
		}
	}
	if dstCur != nil && dstCur.Exists {
		return nil, &vault.StoreError{Code: vault.ErrDestinationOccupied, Message: "destination occupied", Path: dst}
	}

	now := time.Now().UTC()
	version := srcCur.Version + 1

	// The moved snapshot is the same blob; its digest travels from the last
	// live entry of the lineage.
	var digest string
	s.mu.RLock()
	if log := s.history[srcCur.Lineage]; int(srcCur.Version) <= len(log) {
		digest = log[srcCur.Version-1].Digest
	}
	s.mu.RUnlock()

	dstRecord := &vault.Record{
		Path:         dst,
		Lineage:      srcCur.Lineage,
		Version:      version,
		Exists:       true,
		ContentID:    srcCur.ContentID,
		Size:         srcCur.Size,
		LastModified: now,
	}
	srcRecord := &vault.Record{
		Path:         src,
		Lineage:      srcCur.Lineage,
		Version:      srcCur.Version,
		Exists:       false,
		Moved:        true,
		LastModified: now,
	}
	entry := vault.Entry{
		Lineage:   srcCur.Lineage,
		Version:   version,
		Op:        vault.OpMoveIn,
		ContentID: srcCur.ContentID,
		Size:      srcCur.Size,
		Digest:    digest,
		Path:      dst,
		Origin:    origin,
		Timestamp: now,
	}

	s.mu.Lock()
	if dstCur != nil {
		s.former[dst] = append(s.former[dst], hosting{Lineage: dstCur.Lineage, UpTo: dstCur.Version})
	}
	s.records[src] = srcRecord
	s.records[dst] = dstRecord
	s.history[srcCur.Lineage] = append(s.history[srcCur.Lineage], entry)
	s.mu.Unlock()

	copied := *dstRecord
	return &copied, nil
}

// ReferencedContentIDs returns every ContentID any history entry names.
func (s *MemoryStore) ReferencedContentIDs(ctx context.Context) ([]vault.ContentID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[vault.ContentID]struct{})
	var ids []vault.ContentID
	for _, log := range s.history {
		for _, entry := range log {
			if entry.ContentID == "" {
				continue
			}
			if _, ok := seen[entry.ContentID]; ok {
				continue
			}
			seen[entry.ContentID] = struct{}{}
			ids = append(ids, entry.ContentID)
		}
	}

	return ids, nil
}

// Healthcheck always succeeds for the in-memory store.
func (s *MemoryStore) Healthcheck(ctx context.Context) error {
	return ctx.Err()
}

// Close releases nothing; the store is garbage collected with its maps.
func (s *MemoryStore) Close() error {
	return nil
}
