package badger

import (
	"context"
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/Schwartzmorn/filevault/pkg/vault"
)

// Mutations
// =========
//
// Every mutation runs as one badger Update transaction: read the current
// record, check the asserted token, write the new record, the history entry
// and (when a lineage is retired) the hosting spans. With SyncWrites on, the
// commit is on disk before the mutation returns.
//
// Validation failures (*StoreError) abort the transaction with nothing
// written. The per-path lock around the transaction keeps two mutations on
// the same path from ever reaching badger's conflict detection.

// Put commits a new snapshot at a path.
func (s *BadgerStore) Put(ctx context.Context, req vault.PutRequest) (*vault.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.locker.Lock(req.Path)
	defer s.locker.Unlock(req.Path)

	var record *vault.Record
	err := s.db.Update(func(txn *badger.Txn) error {
		cur, err := getRecord(txn, req.Path)
		if err != nil {
			return err
		}

		lineage, version, err := resolvePut(cur, req.AssertedVersion, req.Path)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		op := vault.OpCreate
		if cur != nil && cur.Exists {
			op = vault.OpUpdate
		}

		record = &vault.Record{
			Path:         req.Path,
			Lineage:      lineage,
			Version:      version,
			Exists:       true,
			ContentID:    req.ContentID,
			Size:         req.Size,
			LastModified: now,
		}
		entry := &vault.Entry{
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

		// A fresh lineage at a previously-hosted path retires the old span so
		// its versions stay addressable here.
		if cur != nil && cur.Lineage != lineage {
			if err := retireLineage(txn, req.Path, cur); err != nil {
				return err
			}
		}

		return writeMutation(txn, record, entry)
	})
	if err != nil {
		return nil, err
	}

	return record, nil
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
func (s *BadgerStore) Delete(ctx context.Context, path string, asserted vault.Version, origin string) (*vault.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.locker.Lock(path)
	defer s.locker.Unlock(path)

	var returned *vault.Record
	err := s.db.Update(func(txn *badger.Txn) error {
		cur, err := getRecord(txn, path)
		if err != nil {
			return err
		}
		if cur == nil || !cur.Exists {
			return &vault.StoreError{Code: vault.ErrNotFound, Message: "no such file", Path: path}
		}
		if asserted != cur.Version {
			return &vault.StoreError{
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
		entry := &vault.Entry{
			Lineage:   cur.Lineage,
			Version:   version,
			Op:        vault.OpDelete,
			Path:      path,
			Origin:    origin,
			Timestamp: now,
		}

		if err := writeMutation(txn, record, entry); err != nil {
			return err
		}

		// The caller gets the blob the slot was holding for accounting; the
		// blob stays in the content store for historical reads.
		returned = &vault.Record{}
		*returned = *record
		returned.ContentID = cur.ContentID
		returned.Size = cur.Size
		return nil
	})
	if err != nil {
		return nil, err
	}

	return returned, nil
}

// Move transplants the lineage at src to dst.
func (s *BadgerStore) Move(ctx context.Context, src, dst string, asserted vault.Version, origin string) (*vault.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if src == dst {
		return nil, &vault.StoreError{Code: vault.ErrBadRequest, Message: "move onto itself", Path: src}
	}

	s.locker.LockPair(src, dst)
	defer s.locker.UnlockPair(src, dst)

	var record *vault.Record
	err := s.db.Update(func(txn *badger.Txn) error {
		srcCur, err := getRecord(txn, src)
		if err != nil {
			return err
		}
		if srcCur == nil || !srcCur.Exists {
			return &vault.StoreError{Code: vault.ErrNotFound, Message: "no such file", Path: src}
		}
		if asserted != srcCur.Version {
			return &vault.StoreError{
				Code:    vault.ErrVersionConflict,
				Message: fmt.Sprintf("version %d asserted, current is %d", asserted, srcCur.Version),
				Path:    src,
			}
		}

		dstCur, err := getRecord(txn, dst)
		if err != nil {
			return err
		}
		if dstCur != nil && dstCur.Exists {
			return &vault.StoreError{Code: vault.ErrDestinationOccupied, Message: "destination occupied", Path: dst}
		}

		// The moved snapshot is the same blob; its digest travels from the
		// last live entry of the lineage.
		var digest string
		if last, err := getEntry(txn, srcCur.Lineage, srcCur.Version); err != nil {
			return err
		} else if last != nil {
			digest = last.Digest
		}

		now := time.Now().UTC()
		version := srcCur.Version + 1

		record = &vault.Record{
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
		entry := &vault.Entry{
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

		if dstCur != nil {
			if err := retireLineage(txn, dst, dstCur); err != nil {
				return err
			}
		}

		srcBytes, err := encodeRecord(srcRecord)
		if err != nil {
			return err
		}
		if err := txn.Set(keyRecord(src), srcBytes); err != nil {
			return fmt.Errorf("failed to write source record: %w", err)
		}

		return writeMutation(txn, record, entry)
	})
	if err != nil {
		return nil, err
	}

	return record, nil
}

// writeMutation persists a record and its history entry.
func writeMutation(txn *badger.Txn, record *vault.Record, entry *vault.Entry) error {
	recordBytes, err := encodeRecord(record)
	if err != nil {
		return err
	}
	if err := txn.Set(keyRecord(record.Path), recordBytes); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}

	entryBytes, err := encodeEntry(entry)
	if err != nil {
		return err
	}
	if err := txn.Set(keyEntry(entry.Lineage, entry.Version), entryBytes); err != nil {
		return fmt.Errorf("failed to write history entry: %w", err)
	}

	return nil
}

// retireLineage appends the outgoing record's lineage to the path's former
// hosting spans.
func retireLineage(txn *badger.Txn, path string, outgoing *vault.Record) error {
	spans, err := getHostings(txn, path)
	if err != nil {
		return err
	}
	spans = append(spans, hosting{Lineage: outgoing.Lineage, UpTo: outgoing.Version})

	bytes, err := encodeHostings(spans)
	if err != nil {
		return err
	}
	if err := txn.Set(keyHostings(path), bytes); err != nil {
		return fmt.Errorf("failed to write hosting spans: %w", err)
	}
	return nil
}
