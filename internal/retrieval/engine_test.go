package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/placementarchive/expindex/internal/config"
	"github.com/placementarchive/expindex/internal/index"
	"github.com/placementarchive/expindex/internal/store"
	"github.com/placementarchive/expindex/internal/textindex"
)

// fakeEmbedder maps text to a deterministic unit vector: one axis per
// topic keyword plus a base axis shared by all texts. Texts about the
// same topic score high against each other, unrelated texts score
// lower but positive.
type fakeEmbedder struct {
	failMarker string
}

var topicAxes = []string{"tips", "coding", "design"}

func (f *fakeEmbedder) vectorFor(text string) []float32 {
	vec := make([]float32, len(topicAxes)+1)
	lower := strings.ToLower(text)
	for i, kw := range topicAxes {
		if strings.Contains(lower, kw) {
			vec[i] = 1
		}
	}
	vec[len(topicAxes)] = 1
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if f.failMarker != "" && strings.Contains(text, f.failMarker) {
		return nil, fmt.Errorf("embedding backend rejected text")
	}
	return f.vectorFor(text), nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		vec, err := f.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func (f *fakeEmbedder) Dimensions() int { return len(topicAxes) + 1 }

// fakeSource serves experiences from memory
type fakeSource struct {
	records map[string]*store.Experience
	order   []string
	listErr error
}

func newFakeSource(records ...*store.Experience) *fakeSource {
	s := &fakeSource{records: make(map[string]*store.Experience)}
	for _, r := range records {
		s.records[r.ID] = r
		s.order = append(s.order, r.ID)
	}
	return s
}

func (s *fakeSource) GetByID(ctx context.Context, id string) (*store.Experience, error) {
	exp, ok := s.records[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return exp, nil
}

func (s *fakeSource) remove(id string) {
	delete(s.records, id)
	for i, rid := range s.order {
		if rid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

func (s *fakeSource) ListApproved(ctx context.Context) ([]*store.Experience, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make([]*store.Experience, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.records[id])
	}
	return out, nil
}

func sampleExp(id, company, role string, year int, tips string) *store.Experience {
	return &store.Experience{
		ID:              id,
		CompanyName:     company,
		Role:            role,
		InterviewYear:   year,
		OfferStatus:     "accepted",
		DifficultyLevel: 3,
		Tips:            tips,
		Status:          store.StatusApproved,
	}
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Chunking:  config.ChunkingConfig{MaxSize: 512, Overlap: 50},
		Index:     config.IndexConfig{Dir: t.TempDir()},
		Retrieval: config.RetrievalConfig{DefaultTopK: 5, SimilarityThreshold: 0.2},
	}
}

func newTestEngine(t *testing.T, cfg *config.Config, source ExperienceSource, emb Embedder) *Engine {
	t.Helper()
	eng, err := NewEngine(cfg, source, emb, nil, log.New(os.Stderr, "", 0))
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	return eng
}

func TestStartRebuildsWhenNoIndex(t *testing.T) {
	source := newFakeSource(
		sampleExp("exp-1", "Acme", "SWE", 2023, "practice coding problems daily"),
		sampleExp("exp-2", "Globex", "SDE", 2024, "read about system design"),
	)
	eng := newTestEngine(t, testConfig(t), source, &fakeEmbedder{})

	if err := eng.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	stats := eng.Stats()
	if !stats.Ready {
		t.Fatal("engine not ready after Start")
	}
	if stats.LiveRecords != 2 {
		t.Errorf("LiveRecords = %d, want 2", stats.LiveRecords)
	}
}

func TestStartLoadsPersistedIndex(t *testing.T) {
	cfg := testConfig(t)
	emb := &fakeEmbedder{}

	source := newFakeSource(sampleExp("exp-1", "Acme", "SWE", 2023, "coding tips"))
	eng := newTestEngine(t, cfg, source, emb)
	if err := eng.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := eng.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	// A second engine over the same dir must load the persisted index
	// without touching the database.
	broken := newFakeSource()
	broken.listErr = errors.New("database offline")
	eng2 := newTestEngine(t, cfg, broken, emb)
	if err := eng2.Start(context.Background()); err != nil {
		t.Fatalf("Start on persisted index failed: %v", err)
	}
	if eng2.Stats().LiveRecords != 1 {
		t.Errorf("LiveRecords = %d, want 1", eng2.Stats().LiveRecords)
	}
}

func TestStartRecoversFromCorruptIndex(t *testing.T) {
	cfg := testConfig(t)
	emb := &fakeEmbedder{}
	source := newFakeSource(sampleExp("exp-1", "Acme", "SWE", 2023, "coding tips"))

	eng := newTestEngine(t, cfg, source, emb)
	if err := eng.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	eng.Close()

	if err := os.WriteFile(filepath.Join(cfg.Index.Dir, "vectors.dat"), []byte("garbage"), 0644); err != nil {
		t.Fatal(err)
	}

	eng2 := newTestEngine(t, cfg, source, emb)
	if err := eng2.Start(context.Background()); err != nil {
		t.Fatalf("Start did not recover from corruption: %v", err)
	}
	if eng2.Stats().LiveRecords != 1 {
		t.Errorf("LiveRecords = %d, want 1", eng2.Stats().LiveRecords)
	}

	// The rebuilt index must be loadable again.
	if _, err := index.Load(cfg.Index.Dir, emb.Dimensions()); err != nil {
		t.Errorf("rebuilt index failed to load: %v", err)
	}
}

func TestReindexIsolatesFailures(t *testing.T) {
	source := newFakeSource(
		sampleExp("exp-1", "Acme", "SWE", 2023, "coding tips"),
		sampleExp("exp-2", "Globex", "SDE", 2024, "POISON"),
		sampleExp("exp-3", "Initech", "SRE", 2024, "design tips"),
	)
	eng := newTestEngine(t, testConfig(t), source, &fakeEmbedder{failMarker: "POISON"})

	if err := eng.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	stats := eng.Stats()
	if stats.LiveRecords != 2 {
		t.Errorf("LiveRecords = %d, want 2", stats.LiveRecords)
	}

	rebuild, err := eng.ReindexAll(context.Background(), nil)
	if err != nil {
		t.Fatalf("ReindexAll failed: %v", err)
	}
	if rebuild.Indexed != 2 || rebuild.Failed != 1 {
		t.Errorf("rebuild = %d indexed %d failed, want 2/1", rebuild.Indexed, rebuild.Failed)
	}
}

func TestReindexDropsStaleKeywordDocs(t *testing.T) {
	cfg := testConfig(t)
	text, err := textindex.Create(filepath.Join(cfg.Index.Dir, "text"))
	if err != nil {
		t.Fatalf("textindex.Create failed: %v", err)
	}
	t.Cleanup(func() { text.Close() })

	source := newFakeSource(
		sampleExp("exp-1", "Acme", "SWE", 2023, "practice coding problems"),
		sampleExp("exp-2", "Globex", "SDE", 2024, "read about system design"),
	)
	eng, err := NewEngine(cfg, source, &fakeEmbedder{}, text, log.New(os.Stderr, "", 0))
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	ctx := context.Background()
	if err := eng.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	hits, err := text.Search("Globex", 10)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(hits) != 1 || hits[0].RecordID != "exp-2" {
		t.Fatalf("keyword hits = %+v, want exp-2", hits)
	}

	// Deleted from the database behind the engine's back; a full
	// rebuild must stop surfacing it.
	source.remove("exp-2")
	if _, err := eng.ReindexAll(ctx, nil); err != nil {
		t.Fatalf("ReindexAll failed: %v", err)
	}

	hits, err = text.Search("Globex", 10)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("stale record still in keyword index: %+v", hits)
	}
	hits, err = text.Search("Acme", 10)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(hits) != 1 || hits[0].RecordID != "exp-1" {
		t.Errorf("surviving record missing after rebuild: %+v", hits)
	}
}

func TestAddAndRemoveExperience(t *testing.T) {
	source := newFakeSource()
	eng := newTestEngine(t, testConfig(t), source, &fakeEmbedder{})
	ctx := context.Background()

	if err := eng.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	exp := sampleExp("exp-1", "Acme", "SWE", 2023, "practice coding daily")
	source.records[exp.ID] = exp

	if err := eng.AddExperience(ctx, "exp-1"); err != nil {
		t.Fatalf("AddExperience failed: %v", err)
	}
	resp, err := eng.Query(ctx, QueryRequest{Text: "coding practice advice"})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(resp.Sources) != 1 || resp.Sources[0].RecordID != "exp-1" {
		t.Fatalf("unexpected sources: %+v", resp.Sources)
	}

	if err := eng.RemoveExperience("exp-1"); err != nil {
		t.Fatalf("RemoveExperience failed: %v", err)
	}
	resp, err = eng.Query(ctx, QueryRequest{Text: "coding practice advice"})
	if err != nil {
		t.Fatalf("Query after removal failed: %v", err)
	}
	if len(resp.Sources) != 0 {
		t.Errorf("removed record still retrieved: %+v", resp.Sources)
	}

	if err := eng.RemoveExperience("exp-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second removal = %v, want ErrNotFound", err)
	}
	if err := eng.AddExperience(ctx, "no-such"); !errors.Is(err, ErrNotFound) {
		t.Errorf("AddExperience unknown = %v, want ErrNotFound", err)
	}
}

func TestQueryBeforeStart(t *testing.T) {
	eng := newTestEngine(t, testConfig(t), newFakeSource(), &fakeEmbedder{})
	if _, err := eng.Query(context.Background(), QueryRequest{Text: "anything"}); !errors.Is(err, ErrIndexUnavailable) {
		t.Errorf("Query before Start = %v, want ErrIndexUnavailable", err)
	}
}
