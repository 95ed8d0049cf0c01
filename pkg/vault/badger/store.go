// Package badger implements a persistent vault store on BadgerDB.
//
// BadgerDB is an embedded key-value store with a write-ahead log and ACID
// transactions, which is exactly the shape of the vault's durability
// contract: every mutation commits its record, history entry and hosting
// spans in one transaction, so a crash can never leave a version half
// written.
package badger

import (
	"context"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/Schwartzmorn/filevault/pkg/vault"
)

// BadgerStore implements vault.Store using BadgerDB for persistence.
//
// Suitable for production deployments: records and history survive restarts
// and crashes, and multi-GB histories are no problem.
//
// Thread Safety:
// A PathLocker serializes mutations per path, so the optimistic concurrency
// check and the commit are one indivisible unit for any given path and two
// transactions never race into a badger conflict. Reads run in their own
// read-only transactions and observe only committed state.
type BadgerStore struct {
	db     *badger.DB
	locker *vault.PathLocker
}

// BadgerStoreConfig contains configuration for the badger vault store.
type BadgerStoreConfig struct {
	// DBPath is the directory for the badger database files.
	DBPath string

	// SyncWrites forces an fsync on every commit. Defaults to true; turning
	// it off trades the durability contract for write throughput and is only
	// sensible for tests.
	SyncWrites *bool

	// BadgerOptions overrides all options when set (tests, tuning).
	BadgerOptions *badger.Options
}

// NewBadgerStore opens or creates a badger-backed vault store.
func NewBadgerStore(ctx context.Context, config BadgerStoreConfig) (*BadgerStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var opts badger.Options
	if config.BadgerOptions != nil {
		opts = *config.BadgerOptions
	} else {
		opts = badger.DefaultOptions(config.DBPath)

		sync := true
		if config.SyncWrites != nil {
			sync = *config.SyncWrites
		}
		opts = opts.WithSyncWrites(sync)

		// badger's own logger writes straight to stderr; the engine logs
		// through its own logger instead.
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB at %s: %w", config.DBPath, err)
	}

	return &BadgerStore{
		db:     db,
		locker: vault.NewPathLocker(),
	}, nil
}

// getRecord reads a path's record inside a transaction. Returns nil when the
// path has no record at all.
func getRecord(txn *badger.Txn, path string) (*vault.Record, error) {
	item, err := txn.Get(keyRecord(path))
	if err == badger.ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read record: %w", err)
	}

	var record *vault.Record
	err = item.Value(func(val []byte) error {
		record, err = decodeRecord(val)
		return err
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// getHostings reads a path's former hosting spans. Returns nil when the path
// never retired a lineage.
func getHostings(txn *badger.Txn, path string) ([]hosting, error) {
	item, err := txn.Get(keyHostings(path))
	if err == badger.ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read hosting spans: %w", err)
	}

	var spans []hosting
	err = item.Value(func(val []byte) error {
		spans, err = decodeHostings(val)
		return err
	})
	if err != nil {
		return nil, err
	}
	return spans, nil
}

// getEntry reads one history entry. Returns nil when the lineage has no such
// version.
func getEntry(txn *badger.Txn, lineage vault.LineageID, version vault.Version) (*vault.Entry, error) {
	item, err := txn.Get(keyEntry(lineage, version))
	if err == badger.ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read history entry: %w", err)
	}

	var entry *vault.Entry
	err = item.Value(func(val []byte) error {
		entry, err = decodeEntry(val)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// allHostings returns every lineage span the path has served, oldest first,
// including the current record's lineage capped at the record's version.
func allHostings(txn *badger.Txn, path string) ([]hosting, error) {
	spans, err := getHostings(txn, path)
	if err != nil {
		return nil, err
	}
	record, err := getRecord(txn, path)
	if err != nil {
		return nil, err
	}
	if record != nil {
		spans = append(spans, hosting{Lineage: record.Lineage, UpTo: record.Version})
	}
	return spans, nil
}

// Lookup returns the current record for a path.
func (s *BadgerStore) Lookup(ctx context.Context, path string) (*vault.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var record *vault.Record
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		record, err = getRecord(txn, path)
		return err
	})
	if err != nil {
		return nil, err
	}

	if record == nil || !record.Exists {
		return nil, &vault.StoreError{Code: vault.ErrNotFound, Message: "no such file", Path: path}
	}
	return record, nil
}

// GetVersion returns the history entry for one committed version of a path.
//
// The spans are searched newest-first, so a version number that a path hosted
// under more than one lineage resolves to the most recent one.
func (s *BadgerStore) GetVersion(ctx context.Context, path string, version vault.Version) (*vault.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var found *vault.Entry
	err := s.db.View(func(txn *badger.Txn) error {
		spans, err := allHostings(txn, path)
		if err != nil {
			return err
		}
		for i := len(spans) - 1; i >= 0; i-- {
			span := spans[i]
			if version < 1 || version > span.UpTo {
				continue
			}
			entry, err := getEntry(txn, span.Lineage, version)
			if err != nil {
				return err
			}
			if entry != nil {
				found = entry
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if found == nil {
		return nil, &vault.StoreError{
			Code:    vault.ErrNotFound,
			Message: fmt.Sprintf("no version %d", version),
			Path:    path,
		}
	}
	return found, nil
}

// History returns the full ordered log for a path, oldest lineage first.
func (s *BadgerStore) History(ctx context.Context, path string) ([]vault.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var entries []vault.Entry
	err := s.db.View(func(txn *badger.Txn) error {
		spans, err := allHostings(txn, path)
		if err != nil {
			return err
		}
		for _, span := range spans {
			lineageEntries, err := scanLineage(txn, span.Lineage, span.UpTo)
			if err != nil {
				return err
			}
			entries = append(entries, lineageEntries...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(entries) == 0 {
		return nil, &vault.StoreError{Code: vault.ErrNotFound, Message: "no history", Path: path}
	}
	return entries, nil
}

// scanLineage returns a lineage's log up to and including upTo. The
// big-endian version keys make the iteration order the version order.
func scanLineage(txn *badger.Txn, lineage vault.LineageID, upTo vault.Version) ([]vault.Entry, error) {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = keyEntryPrefix(lineage)

	it := txn.NewIterator(opts)
	defer it.Close()

	var entries []vault.Entry
	for it.Rewind(); it.Valid(); it.Next() {
		var entry *vault.Entry
		err := it.Item().Value(func(val []byte) error {
			var err error
			entry, err = decodeEntry(val)
			return err
		})
		if err != nil {
			return nil, err
		}
		if entry.Version > upTo {
			break
		}
		entries = append(entries, *entry)
	}
	return entries, nil
}

// ReferencedContentIDs returns every ContentID any history entry names.
//
// This scans the whole history namespace; the garbage collector is the only
// caller and runs on its own schedule, so the scan cost stays off the request
// path.
func (s *BadgerStore) ReferencedContentIDs(ctx context.Context) ([]vault.ContentID, error) {
	seen := make(map[vault.ContentID]struct{})
	var ids []vault.ContentID

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefixEntry)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var entry *vault.Entry
			err := it.Item().Value(func(val []byte) error {
				var err error
				entry, err = decodeEntry(val)
				return err
			})
			if err != nil {
				return err
			}
			if entry.ContentID == "" {
				continue
			}
			if _, ok := seen[entry.ContentID]; ok {
				continue
			}
			seen[entry.ContentID] = struct{}{}
			ids = append(ids, entry.ContentID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return ids, nil
}

// Healthcheck verifies the database is open and readable.
func (s *BadgerStore) Healthcheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.db.IsClosed() {
		return fmt.Errorf("database is closed")
	}
	return nil
}

// Close flushes and closes the database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}
