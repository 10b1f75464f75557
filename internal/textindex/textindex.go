// Package textindex maintains a bleve keyword index over experience
// documents. It complements the vector index: the vector side answers
// semantic queries, this side answers exact keyword lookups such as
// company or topic names that embeddings blur together.
package textindex

import (
	"fmt"
	"os"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	blevequery "github.com/blevesearch/bleve/v2/search/query"
)

// ExperienceDoc is the indexed shape of one experience
type ExperienceDoc struct {
	Content string `json:"content"`
	Company string `json:"company"`
	Role    string `json:"role"`
	Year    int    `json:"year"`
}

// KeywordHit is one keyword search result
type KeywordHit struct {
	RecordID string  `json:"record_id"`
	Company  string  `json:"company"`
	Role     string  `json:"role"`
	Year     int     `json:"year"`
	Score    float64 `json:"score"`
}

// Index wraps a bleve index stored on disk. The mutex guards the
// bleve handle, which Reset replaces.
type Index struct {
	dir string

	mu    sync.RWMutex
	index bleve.Index
}

// Create resets dir and builds a fresh keyword index in it
func Create(dir string) (*Index, error) {
	index, err := createBleve(dir)
	if err != nil {
		return nil, err
	}
	return &Index{dir: dir, index: index}, nil
}

// Open opens an existing keyword index, creating one if dir has none
func Open(dir string) (*Index, error) {
	index, err := bleve.Open(dir)
	if err == bleve.ErrorIndexPathDoesNotExist {
		return Create(dir)
	}
	if err != nil {
		return nil, fmt.Errorf("open bleve index: %w", err)
	}
	return &Index{dir: dir, index: index}, nil
}

func createBleve(dir string) (bleve.Index, error) {
	if err := os.RemoveAll(dir); err != nil {
		return nil, fmt.Errorf("reset text index dir: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create text index dir: %w", err)
	}
	index, err := bleve.New(dir, buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("create bleve index: %w", err)
	}
	return index, nil
}

// Reset drops every indexed document and starts over with an empty
// index in the same directory. The wrapper stays usable.
func (ix *Index) Reset() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if err := ix.index.Close(); err != nil {
		return fmt.Errorf("close bleve index: %w", err)
	}
	fresh, err := createBleve(ix.dir)
	if err != nil {
		return err
	}
	ix.index = fresh
	return nil
}

// IndexDoc adds or replaces one experience document
func (ix *Index) IndexDoc(id string, doc ExperienceDoc) error {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.index.Index(id, doc)
}

// Delete removes one experience document. Deleting an id that was
// never indexed is not an error.
func (ix *Index) Delete(id string) error {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.index.Delete(id)
}

// Count returns the number of indexed documents
func (ix *Index) Count() (uint64, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.index.DocCount()
}

// Search runs a keyword query across content and company, boosting
// company matches so searches like a bare company name surface that
// company's experiences first.
func (ix *Index) Search(query string, topK int) ([]KeywordHit, error) {
	if topK <= 0 {
		topK = 10
	}

	contentQuery := bleve.NewMatchQuery(query)
	contentQuery.SetField("content")
	contentQuery.SetBoost(1.0)
	companyQuery := bleve.NewMatchQuery(query)
	companyQuery.SetField("company")
	companyQuery.SetBoost(2.0)
	roleQuery := bleve.NewMatchQuery(query)
	roleQuery.SetField("role")
	roleQuery.SetBoost(1.5)

	disjunction := bleve.NewDisjunctionQuery([]blevequery.Query{contentQuery, companyQuery, roleQuery}...)

	req := bleve.NewSearchRequestOptions(disjunction, topK, 0, false)
	req.Fields = []string{"company", "role", "year"}

	ix.mu.RLock()
	defer ix.mu.RUnlock()
	res, err := ix.index.Search(req)
	if err != nil {
		return nil, err
	}

	var hits []KeywordHit
	for _, hit := range res.Hits {
		company, _ := hit.Fields["company"].(string)
		role, _ := hit.Fields["role"].(string)
		hits = append(hits, KeywordHit{
			RecordID: hit.ID,
			Company:  company,
			Role:     role,
			Year:     parseYearField(hit.Fields["year"]),
			Score:    hit.Score,
		})
	}
	return hits, nil
}

// Close flushes and closes the underlying bleve index
func (ix *Index) Close() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.index.Close()
}

func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = "en"
	indexMapping.DefaultField = "content"

	docMapping := bleve.NewDocumentMapping()

	contentField := bleve.NewTextFieldMapping()
	contentField.Store = false
	contentField.Index = true
	docMapping.AddFieldMappingsAt("content", contentField)

	companyField := bleve.NewTextFieldMapping()
	companyField.Store = true
	companyField.Index = true
	docMapping.AddFieldMappingsAt("company", companyField)

	roleField := bleve.NewTextFieldMapping()
	roleField.Store = true
	roleField.Index = true
	docMapping.AddFieldMappingsAt("role", roleField)

	yearField := bleve.NewNumericFieldMapping()
	yearField.Store = true
	yearField.Index = false
	docMapping.AddFieldMappingsAt("year", yearField)

	indexMapping.DefaultMapping = docMapping
	return indexMapping
}

func parseYearField(val any) int {
	switch v := val.(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	default:
		return 0
	}
}
