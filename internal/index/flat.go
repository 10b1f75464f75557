// Package index implements the flat inner-product vector index with
// slot-to-record mapping, logical deletion and file persistence.
package index

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sort"
)

const (
	flatMagic   uint32 = 0x45585049 // "EXPI"
	flatVersion uint32 = 1
)

// FlatStore is an append-only arena of fixed-dimension float32
// vectors. Slots are positional: vector i occupies slot i, assigned
// at append time and never reused while the store lives. There is no
// in-place mutation and no physical deletion.
type FlatStore struct {
	dim  int
	data []float32
}

// FlatHit is one search result from the arena
type FlatHit struct {
	Slot  int
	Score float32
}

// NewFlatStore creates an empty arena with a fixed dimension
func NewFlatStore(dim int) (*FlatStore, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("vector dimension must be positive, got %d", dim)
	}
	return &FlatStore{dim: dim}, nil
}

// Dimension returns the fixed vector dimension
func (f *FlatStore) Dimension() int {
	return f.dim
}

// Count returns the number of vectors in the arena, including slots
// belonging to tombstoned records.
func (f *FlatStore) Count() int {
	return len(f.data) / f.dim
}

// Append adds vectors to the arena and returns the first assigned
// slot; the batch occupies [start, start+len(vectors)). A dimension
// mismatch rejects the whole batch.
func (f *FlatStore) Append(vectors [][]float32) (int, error) {
	for i, vec := range vectors {
		if len(vec) != f.dim {
			return 0, fmt.Errorf("vector %d has dimension %d, index dimension is %d", i, len(vec), f.dim)
		}
	}

	start := f.Count()
	for _, vec := range vectors {
		f.data = append(f.data, vec...)
	}
	return start, nil
}

// Search returns up to k slots ranked by descending inner product
// with the query. Stored vectors and queries are unit-normalized
// upstream, so inner product equals cosine similarity. Ties are
// broken by the lower slot for determinism. An empty arena returns
// no hits.
func (f *FlatStore) Search(query []float32, k int) ([]FlatHit, error) {
	if len(query) != f.dim {
		return nil, fmt.Errorf("query has dimension %d, index dimension is %d", len(query), f.dim)
	}
	count := f.Count()
	if count == 0 || k <= 0 {
		return nil, nil
	}

	hits := make([]FlatHit, count)
	for slot := 0; slot < count; slot++ {
		row := f.data[slot*f.dim : (slot+1)*f.dim]
		var dot float32
		for i, v := range row {
			dot += v * query[i]
		}
		hits[slot] = FlatHit{Slot: slot, Score: dot}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Slot < hits[j].Slot
	})

	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// WriteTo serializes the arena: a fixed header followed by the raw
// vector data as little-endian float32.
func (f *FlatStore) WriteTo(w io.Writer) error {
	header := make([]byte, 16)
	binary.LittleEndian.PutUint32(header[0:4], flatMagic)
	binary.LittleEndian.PutUint32(header[4:8], flatVersion)
	binary.LittleEndian.PutUint32(header[8:12], uint32(f.dim))
	binary.LittleEndian.PutUint32(header[12:16], uint32(f.Count()))
	if _, err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	buf := make([]byte, len(f.data)*4)
	for i, v := range f.data {
		binary.LittleEndian.PutUint32(buf[i*4:i*4+4], math.Float32bits(v))
	}
	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("failed to write vectors: %w", err)
	}
	return nil
}

// ReadFlatStore deserializes an arena, validating magic, version and
// dimension. Any inconsistency is a corruption error; a truncated or
// oversized payload is never partially loaded.
func ReadFlatStore(r io.Reader, wantDim int) (*FlatStore, error) {
	header := make([]byte, 16)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, &CorruptError{Reason: fmt.Sprintf("short header: %v", err)}
	}

	if magic := binary.LittleEndian.Uint32(header[0:4]); magic != flatMagic {
		return nil, &CorruptError{Reason: fmt.Sprintf("bad magic 0x%08x", magic)}
	}
	if version := binary.LittleEndian.Uint32(header[4:8]); version != flatVersion {
		return nil, &CorruptError{Reason: fmt.Sprintf("unsupported version %d", version)}
	}

	rawDim := binary.LittleEndian.Uint32(header[8:12])
	rawCount := binary.LittleEndian.Uint32(header[12:16])
	dim := int(rawDim)
	if dim <= 0 {
		return nil, &CorruptError{Reason: fmt.Sprintf("invalid dimension %d", dim)}
	}
	if wantDim > 0 && dim != wantDim {
		return nil, &CorruptError{Reason: fmt.Sprintf("stored dimension %d does not match configured dimension %d", dim, wantDim)}
	}

	// Read what is actually there before trusting the header's count;
	// allocation is bounded by the real payload, not the claimed one.
	payload, err := io.ReadAll(r)
	if err != nil {
		return nil, &CorruptError{Reason: fmt.Sprintf("failed to read vector payload: %v", err)}
	}
	if want := uint64(rawCount) * uint64(rawDim) * 4; uint64(len(payload)) != want {
		return nil, &CorruptError{Reason: fmt.Sprintf("payload is %d bytes, header claims %d vectors of dimension %d", len(payload), rawCount, rawDim)}
	}

	data := make([]float32, len(payload)/4)
	for i := range data {
		data[i] = math.Float32frombits(binary.LittleEndian.Uint32(payload[i*4 : i*4+4]))
	}

	return &FlatStore{dim: dim, data: data}, nil
}
