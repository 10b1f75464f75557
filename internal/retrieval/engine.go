// Package retrieval answers questions about interview experiences by
// searching the vector index over chunked experience documents. The
// engine owns the index lifecycle: loading it at startup, rebuilding
// it from the database when it is missing or corrupt, and keeping it
// persisted as records are added and removed.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/placementarchive/expindex/internal/chunker"
	"github.com/placementarchive/expindex/internal/config"
	"github.com/placementarchive/expindex/internal/document"
	"github.com/placementarchive/expindex/internal/index"
	"github.com/placementarchive/expindex/internal/store"
	"github.com/placementarchive/expindex/internal/textindex"
)

// ErrIndexUnavailable is returned by read operations while the index
// is loading or rebuilding. Callers should retry later.
var ErrIndexUnavailable = errors.New("vector index is not ready")

// ErrNotFound is returned when an operation names a record that is
// neither in the database nor in the index.
var ErrNotFound = errors.New("record not found")

// Embedder turns text into unit-normalized vectors. Implemented by
// embedding.Service and embedding.Pool.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
}

// ExperienceSource supplies the records to index. Implemented by
// store.ExperienceStore.
type ExperienceSource interface {
	GetByID(ctx context.Context, id string) (*store.Experience, error)
	ListApproved(ctx context.Context) ([]*store.Experience, error)
}

// RebuildStats summarizes one full reindex pass
type RebuildStats struct {
	Records int           `json:"records"`
	Indexed int           `json:"indexed"`
	Failed  int           `json:"failed"`
	Chunks  int           `json:"chunks"`
	Elapsed time.Duration `json:"-"`
}

// EngineStats is a point-in-time snapshot of the index
type EngineStats struct {
	Ready       bool `json:"ready"`
	Vectors     int  `json:"vectors"`
	LiveRecords int  `json:"live_records"`
	Tombstones  int  `json:"tombstones"`
	Dimension   int  `json:"dimension"`
}

// Engine coordinates the document pipeline, the embedder and the
// vector index. Mutations and rebuilds serialize through writeMu; the
// read lock only covers the index pointer, so queries keep running
// against the old index while a rebuild constructs the new one.
type Engine struct {
	cfg      *config.Config
	source   ExperienceSource
	embedder Embedder
	splitter *chunker.Chunker
	text     *textindex.Index
	indexDir string
	logger   *log.Logger

	writeMu sync.Mutex

	mu    sync.RWMutex
	idx   *index.Index
	ready bool
}

// NewEngine wires an engine from its parts. text may be nil when
// keyword search is disabled.
func NewEngine(cfg *config.Config, source ExperienceSource, embedder Embedder, text *textindex.Index, logger *log.Logger) (*Engine, error) {
	splitter, err := chunker.New(cfg.Chunking.MaxSize, cfg.Chunking.Overlap)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Engine{
		cfg:      cfg,
		source:   source,
		embedder: embedder,
		splitter: splitter,
		text:     text,
		indexDir: cfg.Index.Dir,
		logger:   logger,
	}, nil
}

// Start loads the persisted index, rebuilding from the database when
// none exists or the persisted one is corrupt. A corrupt index is
// never partially loaded; it is discarded and rebuilt.
func (e *Engine) Start(ctx context.Context) error {
	idx, err := index.Load(e.indexDir, e.embedder.Dimensions())
	switch {
	case err == nil:
		e.swapIndex(idx)
		e.logger.Printf("loaded index: %d vectors, %d records", idx.Size(), idx.LiveRecords())
		return nil
	case errors.Is(err, index.ErrNoIndex):
		e.logger.Printf("no persisted index, rebuilding from database")
	case index.IsCorrupt(err):
		e.logger.Printf("persisted index unusable, rebuilding: %v", err)
	default:
		return fmt.Errorf("failed to load index: %w", err)
	}

	stats, err := e.ReindexAll(ctx, nil)
	if err != nil {
		return err
	}
	e.logger.Printf("rebuilt index: %d/%d records, %d chunks", stats.Indexed, stats.Records, stats.Chunks)
	return nil
}

// ReindexAll rebuilds the index from every approved record. The new
// index is constructed out of place and swapped in atomically, so
// queries served meanwhile see the previous index in full. A record
// that fails to embed is skipped and counted; it never aborts the
// rebuild.
func (e *Engine) ReindexAll(ctx context.Context, progress ProgressReporter) (*RebuildStats, error) {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	started := time.Now()

	records, err := e.source.ListApproved(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}

	next, err := index.New(e.embedder.Dimensions())
	if err != nil {
		return nil, err
	}

	// The keyword index starts over too, so records deleted from the
	// database since the last rebuild stop surfacing in search.
	if e.text != nil {
		if err := e.text.Reset(); err != nil {
			e.logger.Printf("failed to reset keyword index: %v", err)
		}
	}

	stats := &RebuildStats{Records: len(records)}
	if progress != nil {
		progress.Start(len(records))
	}
	for _, exp := range records {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		chunks, err := e.indexInto(ctx, next, exp)
		if err != nil {
			stats.Failed++
			e.logger.Printf("skipping record %s: %v", exp.ID, err)
		} else {
			stats.Indexed++
			stats.Chunks += chunks
		}
		if progress != nil {
			progress.Increment()
		}
	}
	if progress != nil {
		progress.Finish()
	}

	e.swapIndex(next)

	if err := next.Save(e.indexDir); err != nil {
		return nil, fmt.Errorf("failed to persist index: %w", err)
	}

	stats.Elapsed = time.Since(started)
	return stats, nil
}

// AddExperience indexes one record by id. Re-adding an indexed record
// replaces its previous vectors. The index is persisted before the
// call returns.
func (e *Engine) AddExperience(ctx context.Context, id string) error {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	idx, err := e.snapshot()
	if err != nil {
		return err
	}

	exp, err := e.source.GetByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("failed to load record %s: %w", id, err)
	}

	if _, err := e.indexInto(ctx, idx, exp); err != nil {
		return err
	}
	if err := idx.Save(e.indexDir); err != nil {
		return fmt.Errorf("failed to persist index: %w", err)
	}
	return nil
}

// RemoveExperience tombstones one record. The vectors stay in the
// arena until the next rebuild but no longer resolve to a record.
func (e *Engine) RemoveExperience(id string) error {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	idx, err := e.snapshot()
	if err != nil {
		return err
	}

	if err := idx.Tombstone(id); err != nil {
		if errors.Is(err, index.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return err
	}
	if e.text != nil {
		if err := e.text.Delete(id); err != nil {
			e.logger.Printf("failed to remove %s from keyword index: %v", id, err)
		}
	}
	if err := idx.Save(e.indexDir); err != nil {
		return fmt.Errorf("failed to persist index: %w", err)
	}
	return nil
}

// Stats reports the current state of the index
func (e *Engine) Stats() EngineStats {
	e.mu.RLock()
	idx, ready := e.idx, e.ready
	e.mu.RUnlock()

	if !ready {
		return EngineStats{}
	}
	return EngineStats{
		Ready:       true,
		Vectors:     idx.Size(),
		LiveRecords: idx.LiveRecords(),
		Tombstones:  idx.TombstoneCount(),
		Dimension:   idx.Dimension(),
	}
}

// Close persists the index a final time
func (e *Engine) Close() error {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	idx, err := e.snapshot()
	if err != nil {
		return nil
	}
	return idx.Save(e.indexDir)
}

// indexInto runs one record through the document pipeline and adds it
// to idx. Returns the number of chunks indexed.
func (e *Engine) indexInto(ctx context.Context, idx *index.Index, exp *store.Experience) (int, error) {
	doc := document.Build(exp)
	chunks := e.splitter.Split(doc, exp.ID)
	if len(chunks) == 0 {
		return 0, fmt.Errorf("record %s produced an empty document", exp.ID)
	}

	vectors, err := e.embedder.EmbedBatch(ctx, chunker.Texts(chunks))
	if err != nil {
		return 0, fmt.Errorf("failed to embed record %s: %w", exp.ID, err)
	}

	meta := index.RecordMeta{
		Company: exp.CompanyName,
		Role:    exp.Role,
		Year:    exp.InterviewYear,
		Snippet: document.Snippet(doc, 500),
	}
	if _, err := idx.AddRecord(exp.ID, vectors, meta); err != nil {
		return 0, err
	}

	if e.text != nil {
		textDoc := textindex.ExperienceDoc{
			Content: doc,
			Company: exp.CompanyName,
			Role:    exp.Role,
			Year:    exp.InterviewYear,
		}
		if err := e.text.IndexDoc(exp.ID, textDoc); err != nil {
			e.logger.Printf("failed to add %s to keyword index: %v", exp.ID, err)
		}
	}

	return len(chunks), nil
}

// snapshot returns the current index or ErrIndexUnavailable
func (e *Engine) snapshot() (*index.Index, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if !e.ready || e.idx == nil {
		return nil, ErrIndexUnavailable
	}
	return e.idx, nil
}

func (e *Engine) swapIndex(idx *index.Index) {
	e.mu.Lock()
	e.idx = idx
	e.ready = true
	e.mu.Unlock()
}
