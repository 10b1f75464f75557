// Package chunker splits flat documents into bounded, overlapping
// text spans suitable for embedding.
package chunker

import (
	"fmt"
	"strings"
)

// Chunk is one span of a record's document. Index is a 0-based
// sequence unique within the record, incremented only for non-empty
// spans.
type Chunk struct {
	Text     string
	RecordID string
	Index    int
}

// Chunker carves documents into windows of at most MaxSize bytes with
// Overlap bytes shared between consecutive windows.
type Chunker struct {
	maxSize int
	overlap int
}

// New creates a chunker. Overlap must be strictly smaller than
// maxSize; that is enforced at configuration time and re-checked here.
func New(maxSize, overlap int) (*Chunker, error) {
	if maxSize <= 0 {
		return nil, fmt.Errorf("chunk max size must be positive, got %d", maxSize)
	}
	if overlap < 0 || overlap >= maxSize {
		return nil, fmt.Errorf("chunk overlap must be in [0, %d), got %d", maxSize, overlap)
	}
	return &Chunker{maxSize: maxSize, overlap: overlap}, nil
}

// Split splits a document into ordered chunks for one record.
// A document at most MaxSize long becomes a single chunk; an empty
// document yields no chunks. Window edges snap back to just after the
// last sentence terminator in the window when one lands no earlier
// than the window midpoint, avoiding mid-sentence cuts while keeping
// every chunk within MaxSize.
func (c *Chunker) Split(doc string, recordID string) []Chunk {
	if strings.TrimSpace(doc) == "" {
		return nil
	}
	if len(doc) <= c.maxSize {
		return []Chunk{{Text: strings.TrimSpace(doc), RecordID: recordID, Index: 0}}
	}

	var chunks []Chunk
	start := 0
	index := 0

	for start < len(doc) {
		end := start + c.maxSize
		if end < len(doc) {
			if period := strings.LastIndexByte(doc[start:end], '.'); period > c.maxSize/2 {
				end = start + period + 1
			}
		} else {
			end = len(doc)
		}

		if text := strings.TrimSpace(doc[start:end]); text != "" {
			chunks = append(chunks, Chunk{Text: text, RecordID: recordID, Index: index})
			index++
		}

		next := end - c.overlap
		if next <= start {
			// sentence snap pulled the edge too close to make
			// progress with this overlap; advance without it
			next = end
		}
		start = next
	}

	return chunks
}

// Texts extracts the chunk texts in order
func Texts(chunks []Chunk) []string {
	out := make([]string, len(chunks))
	for i, ch := range chunks {
		out[i] = ch.Text
	}
	return out
}
