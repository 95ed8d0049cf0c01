package badger

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/Schwartzmorn/filevault/pkg/vault"
)

// Serialization Strategy
// ======================
//
// Everything is stored as JSON. The vault workload is metadata-sized (a few
// hundred bytes per record or entry), so debuggability wins over compactness:
// the database can be inspected with badger's own tooling and the values read
// by eye.
//
// vault.Entry hides its Lineage and ContentID fields from its public JSON
// form (clients address versions by path, not by lineage). The storage layer
// needs both, so entries are persisted through storedEntry, which carries
// every field.

// storedEntry is the persistent form of a history entry.
type storedEntry struct {
	Lineage   vault.LineageID `json:"lineage"`
	Version   vault.Version   `json:"version"`
	Op        vault.OpKind    `json:"op"`
	ContentID vault.ContentID `json:"content_id,omitempty"`
	Size      uint64          `json:"size"`
	Digest    string          `json:"digest,omitempty"`
	Path      string          `json:"path"`
	Origin    string          `json:"origin,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// hosting records one span of a path's life: the lineage the path served and
// the last version of that lineage addressable at the path.
type hosting struct {
	Lineage vault.LineageID `json:"lineage"`
	UpTo    vault.Version   `json:"up_to"`
}

func encodeRecord(record *vault.Record) ([]byte, error) {
	bytes, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("failed to encode record: %w", err)
	}
	return bytes, nil
}

func decodeRecord(data []byte) (*vault.Record, error) {
	var record vault.Record
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to decode record: %w", err)
	}
	return &record, nil
}

func encodeEntry(entry *vault.Entry) ([]byte, error) {
	stored := storedEntry{
		Lineage:   entry.Lineage,
		Version:   entry.Version,
		Op:        entry.Op,
		ContentID: entry.ContentID,
		Size:      entry.Size,
		Digest:    entry.Digest,
		Path:      entry.Path,
		Origin:    entry.Origin,
		Timestamp: entry.Timestamp,
	}
	bytes, err := json.Marshal(stored)
	if err != nil {
		return nil, fmt.Errorf("failed to encode history entry: %w", err)
	}
	return bytes, nil
}

func decodeEntry(data []byte) (*vault.Entry, error) {
	var stored storedEntry
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("failed to decode history entry: %w", err)
	}
	return &vault.Entry{
		Lineage:   stored.Lineage,
		Version:   stored.Version,
		Op:        stored.Op,
		ContentID: stored.ContentID,
		Size:      stored.Size,
		Digest:    stored.Digest,
		Path:      stored.Path,
		Origin:    stored.Origin,
		Timestamp: stored.Timestamp,
	}, nil
}

func encodeHostings(spans []hosting) ([]byte, error) {
	bytes, err := json.Marshal(spans)
	if err != nil {
		return nil, fmt.Errorf("failed to encode hosting spans: %w", err)
	}
	return bytes, nil
}

func decodeHostings(data []byte) ([]hosting, error) {
	var spans []hosting
	if err := json.Unmarshal(data, &spans); err != nil {
		return nil, fmt.Errorf("failed to decode hosting spans: %w", err)
	}
	return spans, nil
}
