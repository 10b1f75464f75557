package index

import (
	"errors"
	"fmt"
	"sync"
)

// ErrNotFound is returned when a record id is not present in the index
var ErrNotFound = errors.New("record not indexed")

// CorruptError reports an unreadable or inconsistent persisted index.
// Callers recover by treating the index as absent and rebuilding from
// the source of truth.
type CorruptError struct {
	Reason string
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("corrupt index: %s", e.Reason)
}

// IsCorrupt checks whether err is a persisted-index corruption
func IsCorrupt(err error) bool {
	var ce *CorruptError
	return errors.As(err, &ce)
}

// RecordMeta is the per-record metadata kept alongside the vectors,
// one entry per record regardless of chunk count. It carries what
// filtering and snippet display need so queries never touch the
// experience database.
type RecordMeta struct {
	Company string `json:"company"`
	Role    string `json:"role"`
	Year    int    `json:"year"`
	Snippet string `json:"snippet"`
}

// Hit is a scored slot resolved against the slot map
type Hit struct {
	Slot  int
	Score float32
}

// Index owns the flat vector arena plus its side tables: the slot map
// (slot to record id, one entry per live chunk), per-record metadata,
// and the tombstone set of logically removed records whose vectors
// still occupy arena slots. All access goes through the exclusive-
// write / shared-read lock; writers additionally serialize through
// the engine so slot assignment is exactly-once.
type Index struct {
	mu         sync.RWMutex
	flat       *FlatStore
	slotMap    map[int]string
	metadata   map[string]RecordMeta
	tombstones map[string]struct{}
}

// New creates an empty index with a fixed dimension
func New(dim int) (*Index, error) {
	flat, err := NewFlatStore(dim)
	if err != nil {
		return nil, err
	}
	return &Index{
		flat:       flat,
		slotMap:    make(map[int]string),
		metadata:   make(map[string]RecordMeta),
		tombstones: make(map[string]struct{}),
	}, nil
}

// Dimension returns the index's fixed vector dimension
func (idx *Index) Dimension() int {
	return idx.flat.Dimension()
}

// Size returns the number of vectors in the arena. After removals
// this exceeds the live chunk count until the next rebuild; the drift
// is deliberate, see Tombstone.
func (idx *Index) Size() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.flat.Count()
}

// LiveRecords returns the number of records with metadata entries
func (idx *Index) LiveRecords() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.metadata)
}

// TombstoneCount returns how many removed records still hold slots
func (idx *Index) TombstoneCount() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.tombstones)
}

// AddRecord appends a record's chunk vectors and registers its
// metadata. Re-adding an already indexed record tombstones the prior
// slots first, so the operation is idempotent by record id. Assigned
// slots are contiguous from the arena's previous count.
func (idx *Index) AddRecord(recordID string, vectors [][]float32, meta RecordMeta) ([]int, error) {
	if recordID == "" {
		return nil, fmt.Errorf("record id is required")
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("no vectors to add for record %s", recordID)
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if _, exists := idx.metadata[recordID]; exists {
		idx.tombstoneLocked(recordID)
	}

	start, err := idx.flat.Append(vectors)
	if err != nil {
		return nil, err
	}

	slots := make([]int, len(vectors))
	for i := range vectors {
		slot := start + i
		idx.slotMap[slot] = recordID
		slots[i] = slot
	}
	idx.metadata[recordID] = meta
	delete(idx.tombstones, recordID)

	return slots, nil
}

// Search returns up to k slots by descending inner product. Slots of
// tombstoned records are still returned; resolving them through
// Resolve fails, which is how the retriever filters them out.
func (idx *Index) Search(query []float32, k int) ([]Hit, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	flatHits, err := idx.flat.Search(query, k)
	if err != nil {
		return nil, err
	}
	hits := make([]Hit, len(flatHits))
	for i, h := range flatHits {
		hits[i] = Hit{Slot: h.Slot, Score: h.Score}
	}
	return hits, nil
}

// Resolve maps a slot to its record id. Slots of tombstoned records
// resolve to false.
func (idx *Index) Resolve(slot int) (string, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	id, ok := idx.slotMap[slot]
	return id, ok
}

// Meta returns the metadata for a live record
func (idx *Index) Meta(recordID string) (RecordMeta, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	meta, ok := idx.metadata[recordID]
	return meta, ok
}

// AllMeta returns a copy of the live record metadata
func (idx *Index) AllMeta() map[string]RecordMeta {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	out := make(map[string]RecordMeta, len(idx.metadata))
	for id, meta := range idx.metadata {
		out[id] = meta
	}
	return out
}

// Tombstone logically removes a record: its metadata and slot map
// entries go away so searches can no longer surface it, but its
// vectors stay in the arena until the next rebuild.
func (idx *Index) Tombstone(recordID string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if _, ok := idx.metadata[recordID]; !ok {
		return ErrNotFound
	}
	idx.tombstoneLocked(recordID)
	return nil
}

func (idx *Index) tombstoneLocked(recordID string) {
	delete(idx.metadata, recordID)
	for slot, id := range idx.slotMap {
		if id == recordID {
			delete(idx.slotMap, slot)
		}
	}
	idx.tombstones[recordID] = struct{}{}
}
