package chunker

import (
	"strings"
	"testing"
)

func TestNewRejectsBadParams(t *testing.T) {
	tests := []struct {
		name    string
		maxSize int
		overlap int
	}{
		{"zero max size", 0, 0},
		{"negative overlap", 100, -1},
		{"overlap equals max size", 100, 100},
		{"overlap exceeds max size", 100, 150},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.maxSize, tt.overlap); err == nil {
				t.Errorf("New(%d, %d) succeeded, want error", tt.maxSize, tt.overlap)
			}
		})
	}
}

func TestSplitShortDocument(t *testing.T) {
	c, err := New(512, 50)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	chunks := c.Split("Company: Acme\nTips: practice daily.", "exp-1")
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}
	if chunks[0].Index != 0 || chunks[0].RecordID != "exp-1" {
		t.Errorf("chunk = %+v, want index 0 for exp-1", chunks[0])
	}
}

func TestSplitEmptyDocument(t *testing.T) {
	c, _ := New(512, 50)

	for _, doc := range []string{"", "   \n\t "} {
		if chunks := c.Split(doc, "exp-1"); len(chunks) != 0 {
			t.Errorf("Split(%q) = %d chunks, want 0", doc, len(chunks))
		}
	}
}

func TestSplitIndexesAreContiguous(t *testing.T) {
	c, _ := New(100, 20)
	doc := strings.Repeat("The interviewer asked about graphs. ", 40)

	chunks := c.Split(doc, "exp-1")
	if len(chunks) < 2 {
		t.Fatalf("got %d chunks, want several", len(chunks))
	}
	for i, ch := range chunks {
		if ch.Index != i {
			t.Errorf("chunk %d has index %d", i, ch.Index)
		}
		if ch.Text == "" {
			t.Errorf("chunk %d is empty", i)
		}
		if len(ch.Text) > 100 {
			t.Errorf("chunk %d exceeds max size: %d bytes", i, len(ch.Text))
		}
	}
}

func TestSplitCoversDocument(t *testing.T) {
	c, _ := New(100, 20)
	doc := strings.Repeat("Round one was a coding test. ", 30)

	chunks := c.Split(doc, "exp-1")

	// Every sentence of the document must appear in some chunk.
	for _, sentence := range strings.Split(strings.TrimSpace(doc), ". ") {
		sentence = strings.TrimSpace(strings.TrimSuffix(sentence, "."))
		if sentence == "" {
			continue
		}
		found := false
		for _, ch := range chunks {
			if strings.Contains(ch.Text, sentence) {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("sentence %q not covered by any chunk", sentence)
		}
	}
}

func TestSplitSnapsToSentenceBoundary(t *testing.T) {
	c, _ := New(100, 10)
	// A period lands past the window midpoint; the edge should snap
	// to just after it instead of cutting mid-sentence.
	doc := strings.Repeat("a", 70) + ". " + strings.Repeat("b", 120)

	chunks := c.Split(doc, "exp-1")
	if len(chunks) < 2 {
		t.Fatalf("got %d chunks, want at least 2", len(chunks))
	}
	if !strings.HasSuffix(chunks[0].Text, ".") {
		t.Errorf("first chunk does not end at sentence boundary: %q", chunks[0].Text)
	}
}

func TestSplitTerminatesOnLargeDocument(t *testing.T) {
	c, _ := New(512, 50)
	doc := strings.Repeat("The candidate solved two problems quickly. ", 233) // ~10k chars

	chunks := c.Split(doc, "exp-1")
	if len(chunks) == 0 {
		t.Fatal("got no chunks")
	}
	// With max_size=512 and overlap=50, a 10k character document
	// should land around 22 chunks, never orders of magnitude more.
	if len(chunks) > 40 {
		t.Errorf("got %d chunks, expected roughly 22", len(chunks))
	}
	for i, ch := range chunks {
		if ch.Index != i {
			t.Fatalf("chunk %d has index %d, want contiguous indexes", i, ch.Index)
		}
	}
}

func TestTexts(t *testing.T) {
	chunks := []Chunk{{Text: "a"}, {Text: "b"}}
	texts := Texts(chunks)
	if len(texts) != 2 || texts[0] != "a" || texts[1] != "b" {
		t.Errorf("Texts() = %v", texts)
	}
}
