// Package checkpoint persists periodic snapshots of the cluster registry to
// an embedded badger store, so a long-running stream can resume after a
// crash without re-clustering frames it has already seen. Restore is
// best-effort: the run loop treats a missing or corrupt checkpoint as a
// cold start, never as fatal.
package checkpoint

import (
	"encoding/json"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
)

const snapshotKey = "anchorcluster:snapshot"

// ClusterSnapshot is the persisted state of one cluster slot, live or
// tombstoned.
type ClusterSnapshot struct {
	ID          uint32
	Anchor      []float64
	BirthIndex  uint64
	Hits        uint64
	Probability float64
	Live        bool
	Discarded   bool
}

// Snapshot is the full registry state captured at one checkpoint.
type Snapshot struct {
	Dim             int
	FramesProcessed uint64
	Clusters        []ClusterSnapshot
	DCC             []DCCEntry
	Transition      map[uint32]map[uint32]uint64
	SequenceHistory []uint32
	PrevClusterID   int64
}

// DCCEntry mirrors registry.DCC.Entry for JSON round-tripping without
// importing the registry package (checkpoint only needs plain data, not
// registry's live behavior).
type DCCEntry struct {
	I, J int
	Dist float64
}

// Store wraps a badger database holding exactly one snapshot key, plus the
// cache and dirty-tracking helpers the run loop uses to decide when a
// checkpoint write is worth doing.
type Store struct {
	db      *badger.DB
	Cache   *BlobCache
	Dirty   *DirtyTracker
}

// Open opens (creating if necessary) a badger store at path.
func Open(path string) (*Store, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: opening badger store at %q: %w", path, err)
	}
	return &Store{
		db:    db,
		Cache: NewBlobCache(64 << 20), // 64MiB of serialized-blob reuse
		Dirty: NewDirtyTracker(),
	}, nil
}

// Close flushes and closes the underlying store.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Save serializes snap and writes it as the current checkpoint,
// overwriting any prior snapshot. The whole-snapshot write is simple and
// correct; the BlobCache/DirtyTracker pair exist to let a future caller
// skip re-marshaling clusters that have not changed, not to change this
// method's on-disk format.
func (s *Store) Save(snap Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("checkpoint: marshaling snapshot: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(snapshotKey), data)
	})
}

// Load reads the most recent checkpoint. ok is false if no checkpoint has
// ever been written; a read or unmarshal error is returned so the caller
// can log it and fall back to a cold start rather than propagate it as
// fatal.
func (s *Store) Load() (snap Snapshot, ok bool, err error) {
	err = s.db.View(func(txn *badger.Txn) error {
		item, getErr := txn.Get([]byte(snapshotKey))
		if getErr == badger.ErrKeyNotFound {
			return nil
		}
		if getErr != nil {
			return getErr
		}
		ok = true
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &snap)
		})
	})
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("checkpoint: loading snapshot: %w", err)
	}
	return snap, ok, nil
}
