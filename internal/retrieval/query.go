package retrieval

import (
	"context"
	"fmt"
	"strings"
)

// QueryRequest is one retrieval question. Company and Year are
// optional filters; TopK falls back to the configured default.
type QueryRequest struct {
	Text    string
	Company string
	Year    int
	TopK    int
}

// Source is one deduplicated record backing an answer
type Source struct {
	RecordID string  `json:"record_id"`
	Company  string  `json:"company"`
	Role     string  `json:"role,omitempty"`
	Year     int     `json:"year,omitempty"`
	Snippet  string  `json:"snippet"`
	Score    float32 `json:"score"`
}

// QueryResponse carries the composed answer and its evidence.
// Sources is never nil; an empty slice means nothing relevant was
// found and Confidence is zero.
type QueryResponse struct {
	Answer     string        `json:"answer"`
	Confidence float32       `json:"confidence"`
	Sources    []Source      `json:"sources"`
	Trends     *TrendSummary `json:"trends,omitempty"`
}

// trendMinSources is the source count below which per-query trends
// would be noise
const trendMinSources = 3

// Query embeds the question, searches the index and composes an
// answer from the best distinct records. Chunk hits are deduplicated
// by record keeping the highest score; filters apply to record
// metadata, not to chunk text.
func (e *Engine) Query(ctx context.Context, req QueryRequest) (*QueryResponse, error) {
	idx, err := e.snapshot()
	if err != nil {
		return nil, err
	}

	topK := req.TopK
	if topK <= 0 {
		topK = e.cfg.Retrieval.DefaultTopK
	}

	if idx.Size() == 0 {
		return emptyResponse(req.Text), nil
	}

	vec, err := e.embedder.Embed(ctx, req.Text)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	// Oversample so dedup and filters can drop hits without starving
	// the result.
	oversample := topK * 3
	if oversample > idx.Size() {
		oversample = idx.Size()
	}

	hits, err := idx.Search(vec, oversample)
	if err != nil {
		return nil, err
	}

	sources := make([]Source, 0, topK)
	seen := make(map[string]bool)
	for _, hit := range hits {
		if len(sources) >= topK {
			break
		}
		if hit.Score < e.cfg.Retrieval.SimilarityThreshold {
			continue
		}
		id, ok := idx.Resolve(hit.Slot)
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		meta, ok := idx.Meta(id)
		if !ok {
			continue
		}
		if req.Company != "" && !strings.Contains(strings.ToLower(meta.Company), strings.ToLower(req.Company)) {
			continue
		}
		if req.Year != 0 && meta.Year != req.Year {
			continue
		}
		sources = append(sources, Source{
			RecordID: id,
			Company:  meta.Company,
			Role:     meta.Role,
			Year:     meta.Year,
			Snippet:  meta.Snippet,
			Score:    hit.Score,
		})
	}

	if len(sources) == 0 {
		return emptyResponse(req.Text), nil
	}

	resp := &QueryResponse{
		Answer:     composeAnswer(req.Text, sources),
		Confidence: confidence(sources),
		Sources:    sources,
	}
	if len(sources) >= trendMinSources {
		resp.Trends = summarizeTrends(sources)
	}
	return resp, nil
}

// FindSimilar returns records close to an already indexed one,
// excluding the record itself.
func (e *Engine) FindSimilar(ctx context.Context, recordID string, topK int) ([]Source, error) {
	idx, err := e.snapshot()
	if err != nil {
		return nil, err
	}
	if topK <= 0 {
		topK = e.cfg.Retrieval.DefaultTopK
	}

	meta, ok := idx.Meta(recordID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, recordID)
	}

	vec, err := e.embedder.Embed(ctx, meta.Snippet)
	if err != nil {
		return nil, fmt.Errorf("failed to embed record snippet: %w", err)
	}

	oversample := (topK + 1) * 3
	if oversample > idx.Size() {
		oversample = idx.Size()
	}
	hits, err := idx.Search(vec, oversample)
	if err != nil {
		return nil, err
	}

	sources := make([]Source, 0, topK)
	seen := map[string]bool{recordID: true}
	for _, hit := range hits {
		if len(sources) >= topK {
			break
		}
		id, ok := idx.Resolve(hit.Slot)
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		m, ok := idx.Meta(id)
		if !ok {
			continue
		}
		sources = append(sources, Source{
			RecordID: id,
			Company:  m.Company,
			Role:     m.Role,
			Year:     m.Year,
			Snippet:  m.Snippet,
			Score:    hit.Score,
		})
	}
	return sources, nil
}

// confidence maps the mean source score into [0, 1]. Scores are inner
// products of unit vectors, so the mean sits in [-1, 1]; the offset
// keeps borderline matches from reporting zero.
func confidence(sources []Source) float32 {
	if len(sources) == 0 {
		return 0
	}
	var sum float32
	for _, s := range sources {
		sum += s.Score
	}
	c := sum/float32(len(sources)) + 0.2
	if c < 0 {
		c = 0
	}
	if c > 1 {
		c = 1
	}
	return c
}

func emptyResponse(query string) *QueryResponse {
	return &QueryResponse{
		Answer:  composeAnswer(query, nil),
		Sources: []Source{},
	}
}
