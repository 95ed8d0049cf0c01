package badger

import (
	"encoding/binary"

	"github.com/Schwartzmorn/filevault/pkg/vault"
)

// Database Key Namespace Design
// ==============================
//
// BadgerDB is a key-value store, so prefixed keys organize the data types
// into namespaces:
//
// Data Type        Prefix   Key Format                      Value Type
// =====================================================================
// Path Records     "r:"     r:<path>                        Record (JSON)
// History Entries  "h:"     h:<lineage>:<version BE64>      entry (JSON)
// Former Hostings  "s:"     s:<path>                        []hosting (JSON)
//
// The version is big-endian encoded so the byte order of entry keys matches
// the numeric order of versions: a prefix scan over "h:<lineage>:" yields the
// lineage log oldest first with no sorting step.
//
// Paths are canonical (no leading slash) and lineages are UUID strings, so
// neither can contain a "\xff" byte and prefix scans never bleed into the
// next namespace.

const (
	// prefixRecord is the key prefix for path records
	prefixRecord = "r:"

	// prefixEntry is the key prefix for history entries
	prefixEntry = "h:"

	// prefixHostings is the key prefix for former hosting spans
	prefixHostings = "s:"
)

// keyRecord generates the key for a path's current record.
//
// Format: "r:<path>", e.g. "r:documents/report.txt"
func keyRecord(path string) []byte {
	return []byte(prefixRecord + path)
}

// keyEntry generates the key for one history entry.
//
// Format: "h:<lineage>:<version BE64>"
func keyEntry(lineage vault.LineageID, version vault.Version) []byte {
	key := make([]byte, 0, len(prefixEntry)+len(lineage)+1+8)
	key = append(key, prefixEntry...)
	key = append(key, lineage...)
	key = append(key, ':')
	key = binary.BigEndian.AppendUint64(key, uint64(version))
	return key
}

// keyEntryPrefix generates the scan prefix for a lineage's full log.
func keyEntryPrefix(lineage vault.LineageID) []byte {
	return []byte(prefixEntry + string(lineage) + ":")
}

// keyHostings generates the key for a path's former hosting spans.
//
// Format: "s:<path>"
func keyHostings(path string) []byte {
	return []byte(prefixHostings + path)
}
