package index

import (
	"errors"
	"fmt"
	"sync"
	"testing"
)

func TestIndexAddAndSearch(t *testing.T) {
	idx, err := New(2)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	slots, err := idx.AddRecord("exp-1", [][]float32{{1, 0}, {0, 1}}, RecordMeta{Company: "Acme", Year: 2023})
	if err != nil {
		t.Fatalf("AddRecord failed: %v", err)
	}
	if len(slots) != 2 {
		t.Fatalf("got %d slots, want 2", len(slots))
	}
	if idx.Size() != 2 || idx.LiveRecords() != 1 {
		t.Errorf("size=%d live=%d, want 2/1", idx.Size(), idx.LiveRecords())
	}

	hits, err := idx.Search([]float32{1, 0}, 1)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("got %d hits, want 1", len(hits))
	}
	id, ok := idx.Resolve(hits[0].Slot)
	if !ok || id != "exp-1" {
		t.Errorf("Resolve(%d) = %q, %v", hits[0].Slot, id, ok)
	}

	meta, ok := idx.Meta("exp-1")
	if !ok || meta.Company != "Acme" {
		t.Errorf("Meta = %+v, %v", meta, ok)
	}
}

func TestIndexTombstone(t *testing.T) {
	idx, _ := New(2)
	idx.AddRecord("exp-1", [][]float32{{1, 0}}, RecordMeta{Company: "Acme"})

	if err := idx.Tombstone("exp-1"); err != nil {
		t.Fatalf("Tombstone failed: %v", err)
	}
	if err := idx.Tombstone("exp-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Tombstone = %v, want ErrNotFound", err)
	}
	if err := idx.Tombstone("no-such"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Tombstone unknown = %v, want ErrNotFound", err)
	}

	// The vector remains in the arena; readers detect removal when the
	// slot no longer resolves.
	if idx.Size() != 1 {
		t.Errorf("Size = %d, want 1", idx.Size())
	}
	if idx.LiveRecords() != 0 {
		t.Errorf("LiveRecords = %d, want 0", idx.LiveRecords())
	}
	if idx.TombstoneCount() != 1 {
		t.Errorf("TombstoneCount = %d, want 1", idx.TombstoneCount())
	}

	hits, _ := idx.Search([]float32{1, 0}, 1)
	if len(hits) != 1 {
		t.Fatalf("got %d hits, want 1", len(hits))
	}
	if _, ok := idx.Resolve(hits[0].Slot); ok {
		t.Error("tombstoned slot should not resolve")
	}
	if _, ok := idx.Meta("exp-1"); ok {
		t.Error("tombstoned record should have no metadata")
	}
}

func TestIndexReAddClearsTombstone(t *testing.T) {
	idx, _ := New(2)
	idx.AddRecord("exp-1", [][]float32{{1, 0}}, RecordMeta{Company: "Acme"})
	idx.Tombstone("exp-1")

	if _, err := idx.AddRecord("exp-1", [][]float32{{0, 1}}, RecordMeta{Company: "Acme"}); err != nil {
		t.Fatalf("re-add failed: %v", err)
	}
	if idx.LiveRecords() != 1 {
		t.Errorf("LiveRecords = %d, want 1", idx.LiveRecords())
	}
	if idx.TombstoneCount() != 0 {
		t.Errorf("TombstoneCount = %d, want 0", idx.TombstoneCount())
	}
}

func TestIndexReIndexSupersedesOldSlots(t *testing.T) {
	idx, _ := New(2)
	idx.AddRecord("exp-1", [][]float32{{1, 0}}, RecordMeta{Company: "Acme"})
	idx.AddRecord("exp-1", [][]float32{{0, 1}}, RecordMeta{Company: "Acme"})

	hits, _ := idx.Search([]float32{1, 0}, 2)
	live := 0
	for _, h := range hits {
		if _, ok := idx.Resolve(h.Slot); ok {
			live++
			if h.Slot != 1 {
				t.Errorf("live slot = %d, want 1 (the re-added vector)", h.Slot)
			}
		}
	}
	if live != 1 {
		t.Errorf("got %d live slots, want 1", live)
	}
}

func TestIndexRejectsEmptyAndMismatchedBatches(t *testing.T) {
	idx, _ := New(3)
	if _, err := idx.AddRecord("exp-1", nil, RecordMeta{}); err == nil {
		t.Error("expected error for empty vector batch")
	}
	if _, err := idx.AddRecord("exp-1", [][]float32{{1, 0}}, RecordMeta{}); err == nil {
		t.Error("expected error for wrong dimension")
	}
	if idx.Size() != 0 || idx.LiveRecords() != 0 {
		t.Errorf("failed add must leave index untouched, size=%d live=%d", idx.Size(), idx.LiveRecords())
	}
}

func TestIndexConcurrentReadsDuringWrites(t *testing.T) {
	idx, _ := New(2)

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				id := fmt.Sprintf("exp-%d-%d", w, i)
				if _, err := idx.AddRecord(id, [][]float32{{1, 0}}, RecordMeta{Company: "Acme"}); err != nil {
					t.Errorf("AddRecord %s failed: %v", id, err)
				}
			}
		}(w)
	}
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				hits, err := idx.Search([]float32{1, 0}, 10)
				if err != nil {
					t.Errorf("Search failed: %v", err)
				}
				for _, h := range hits {
					idx.Resolve(h.Slot)
				}
			}
		}()
	}
	wg.Wait()

	if idx.Size() != 100 {
		t.Errorf("Size = %d, want 100", idx.Size())
	}
	if idx.LiveRecords() != 100 {
		t.Errorf("LiveRecords = %d, want 100", idx.LiveRecords())
	}

	// Every record must resolve through exactly one distinct slot.
	seen := make(map[int]bool)
	for slot := 0; slot < idx.Size(); slot++ {
		if _, ok := idx.Resolve(slot); ok {
			if seen[slot] {
				t.Errorf("slot %d assigned twice", slot)
			}
			seen[slot] = true
		}
	}
	if len(seen) != 100 {
		t.Errorf("%d live slots, want 100", len(seen))
	}
}
