package chunking

import (
	"strings"
	"testing"
)

func TestSplitShortTextSingleChunk(t *testing.T) {
	s := NewSplitter(800, 100)
	chunks := s.Split("Dental coverage is limited to 1500 per year.")
	if len(chunks) != 1 {
		t.Fatalf("expected single chunk, got %d", len(chunks))
	}
}

func TestSplitEmptyText(t *testing.T) {
	s := NewSplitter(800, 100)
	if chunks := s.Split("   "); chunks != nil && len(chunks) != 0 {
		t.Fatalf("expected no chunks, got %v", chunks)
	}
}

func TestSplitPrefersSentenceBoundary(t *testing.T) {
	sentence := "This policy covers outpatient treatment and annual checkups. "
	text := strings.Repeat(sentence, 10)
	s := NewSplitter(200, 20)

	chunks := s.Split(text)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, chunk := range chunks[:len(chunks)-1] {
		if !strings.HasSuffix(chunk, ".") {
			t.Fatalf("chunk %d does not end at a sentence boundary: %q", i, chunk)
		}
	}
}

func TestSplitOverlapCarriesContext(t *testing.T) {
	sentence := "Claims must be filed within ninety days of treatment. "
	text := strings.Repeat(sentence, 12)
	s := NewSplitter(150, 50)

	chunks := s.Split(text)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	// The tail of one chunk reappears at the head of the next.
	tail := chunks[0][len(chunks[0])-20:]
	if !strings.Contains(chunks[1], strings.TrimSpace(tail)) {
		t.Fatalf("expected overlap between consecutive chunks:\nfirst: %q\nsecond: %q", chunks[0], chunks[1])
	}
}

func TestSplitNoBoundaryFallsBackToHardCut(t *testing.T) {
	text := strings.Repeat("x", 500)
	s := NewSplitter(200, 0)

	chunks := s.Split(text)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 hard-cut chunks, got %d", len(chunks))
	}
	if len(chunks[0]) != 200 {
		t.Fatalf("expected full window chunk, got %d runes", len(chunks[0]))
	}
}

func TestNewSplitterNormalizesBadConfig(t *testing.T) {
	s := NewSplitter(0, -5)
	if s.ChunkSize != 800 || s.Overlap != 0 {
		t.Fatalf("unexpected defaults: %+v", s)
	}
	s = NewSplitter(100, 200)
	if s.Overlap >= s.ChunkSize {
		t.Fatalf("overlap must be clamped below chunk size, got %+v", s)
	}
}
