package index

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

const (
	vectorsFile = "vectors.dat"
	sidecarFile = "metadata.json"
)

// ErrNoIndex is returned by Load when no persisted index exists.
// Callers treat it as "no index yet" and rebuild from the source of
// truth.
var ErrNoIndex = errors.New("no persisted index")

// sidecar is the JSON document stored next to the vector arena. Slot
// keys are strings because JSON object keys are strings.
type sidecar struct {
	SlotMap  map[string]string     `json:"slot_map"`
	Metadata map[string]RecordMeta `json:"metadata"`
}

// Save writes the arena and the sidecar to dir as a unit. Both files
// are staged under temporary names and renamed into place, so a
// reader never observes a half-written artifact. A crash between the
// two renames leaves a pair that fails the consistency check on load,
// which is recovered as corruption.
func (idx *Index) Save(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create index directory: %w", err)
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	vecPath := filepath.Join(dir, vectorsFile)
	vecTmp := vecPath + ".tmp"
	f, err := os.Create(vecTmp)
	if err != nil {
		return fmt.Errorf("failed to create vector file: %w", err)
	}
	if err := idx.flat.WriteTo(f); err != nil {
		f.Close()
		os.Remove(vecTmp)
		return fmt.Errorf("failed to write vectors: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(vecTmp)
		return fmt.Errorf("failed to close vector file: %w", err)
	}

	side := sidecar{
		SlotMap:  make(map[string]string, len(idx.slotMap)),
		Metadata: idx.metadata,
	}
	for slot, id := range idx.slotMap {
		side.SlotMap[strconv.Itoa(slot)] = id
	}

	data, err := json.Marshal(side)
	if err != nil {
		os.Remove(vecTmp)
		return fmt.Errorf("failed to marshal sidecar: %w", err)
	}

	sidePath := filepath.Join(dir, sidecarFile)
	sideTmp := sidePath + ".tmp"
	if err := os.WriteFile(sideTmp, data, 0644); err != nil {
		os.Remove(vecTmp)
		return fmt.Errorf("failed to write sidecar: %w", err)
	}

	if err := os.Rename(vecTmp, vecPath); err != nil {
		os.Remove(vecTmp)
		os.Remove(sideTmp)
		return fmt.Errorf("failed to publish vector file: %w", err)
	}
	if err := os.Rename(sideTmp, sidePath); err != nil {
		os.Remove(sideTmp)
		return fmt.Errorf("failed to publish sidecar: %w", err)
	}

	return nil
}

// Load reads a persisted index from dir. Missing files yield
// ErrNoIndex; unreadable files, a dimension mismatch against wantDim,
// or a sidecar inconsistent with the arena yield a CorruptError. A
// failed load never returns a half-loaded index.
func Load(dir string, wantDim int) (*Index, error) {
	vecPath := filepath.Join(dir, vectorsFile)
	f, err := os.Open(vecPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoIndex
		}
		return nil, fmt.Errorf("failed to open vector file: %w", err)
	}
	defer f.Close()

	flat, err := ReadFlatStore(f, wantDim)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(dir, sidecarFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &CorruptError{Reason: "vector file present but sidecar missing"}
		}
		return nil, fmt.Errorf("failed to read sidecar: %w", err)
	}

	var side sidecar
	if err := json.Unmarshal(data, &side); err != nil {
		return nil, &CorruptError{Reason: fmt.Sprintf("unreadable sidecar: %v", err)}
	}

	count := flat.Count()
	slotMap := make(map[int]string, len(side.SlotMap))
	for key, id := range side.SlotMap {
		slot, err := strconv.Atoi(key)
		if err != nil || slot < 0 {
			return nil, &CorruptError{Reason: fmt.Sprintf("invalid slot key %q", key)}
		}
		if slot >= count {
			return nil, &CorruptError{Reason: fmt.Sprintf("slot %d outside arena of %d vectors", slot, count)}
		}
		if _, ok := side.Metadata[id]; !ok {
			return nil, &CorruptError{Reason: fmt.Sprintf("slot %d maps to record %s with no metadata", slot, id)}
		}
		slotMap[slot] = id
	}

	metadata := side.Metadata
	if metadata == nil {
		metadata = make(map[string]RecordMeta)
	}

	return &Index{
		flat:       flat,
		slotMap:    slotMap,
		metadata:   metadata,
		tombstones: make(map[string]struct{}),
	}, nil
}
