package httpapi

import "github.com/placementarchive/expindex/internal/retrieval"

// QueryRequest is the body of POST /api/query
type QueryRequest struct {
	Question string `json:"question"`
	Company  string `json:"company,omitempty"`
	Year     int    `json:"year,omitempty"`
	TopK     int    `json:"top_k,omitempty"`
}

// EmbedRequest is the body of POST /api/embed
type EmbedRequest struct {
	ExperienceID string `json:"experience_id"`
}

// EmbedResponse acknowledges a queued indexing job
type EmbedResponse struct {
	Status       string `json:"status"`
	ExperienceID string `json:"experience_id"`
}

// SimilarResponse is the body of GET /api/similar
type SimilarResponse struct {
	ExperienceID string             `json:"experience_id"`
	Similar      []retrieval.Source `json:"similar"`
}

// ReindexResponse is the body of POST /api/reindex
type ReindexResponse struct {
	Status  string `json:"status"`
	Records int    `json:"records"`
	Indexed int    `json:"indexed"`
	Failed  int    `json:"failed"`
	Chunks  int    `json:"chunks"`
}

// StatsResponse is the body of GET /api/stats
type StatsResponse struct {
	Index    retrieval.EngineStats `json:"index"`
	Database *DatabaseStats        `json:"database,omitempty"`
}

// DatabaseStats mirrors store.DBStats for the stats endpoint
type DatabaseStats struct {
	Experiences int64 `json:"experiences"`
	Approved    int64 `json:"approved"`
	Questions   int64 `json:"questions"`
	SizeBytes   int64 `json:"size_bytes"`
}

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status string `json:"status"`
	Ready  bool   `json:"index_ready"`
}
