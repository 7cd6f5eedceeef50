package chunker

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit_Empty(t *testing.T) {
	c := New(500, 100)
	assert.Empty(t, c.Split(""))
	assert.Empty(t, c.Split("   \n\t  "))
}

func TestSplit_ShortTextIsSingleChunk(t *testing.T) {
	c := New(500, 100)
	chunks := c.Split("  The Model Context Protocol connects tools to models.  ")
	require.Len(t, chunks, 1)
	assert.Equal(t, "The Model Context Protocol connects tools to models.", chunks[0])
}

func TestNew_Normalization(t *testing.T) {
	tests := []struct {
		name          string
		size, overlap int
		wantSize      int
		wantOverlap   int
	}{
		{"defaults on zero size", 0, 10, DefaultSize, 10},
		{"negative overlap", 50, -3, 50, 0},
		{"overlap equal to size", 50, 50, 50, 49},
		{"overlap above size", 50, 80, 50, 49},
		{"valid", 500, 100, 500, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(tt.size, tt.overlap)
			assert.Equal(t, tt.wantSize, c.Size())
			assert.Equal(t, tt.wantOverlap, c.Overlap())
		})
	}
}

func TestSplit_PrefersSentenceBoundary(t *testing.T) {
	// Sentences are 30 characters each; the 40 character window contains
	// one full sentence terminator after its midpoint.
	text := "Servers expose tools to hosts. Clients negotiate capabilities. Transports carry JSON-RPC."
	c := New(40, 5)

	chunks := c.Split(text)
	require.NotEmpty(t, chunks)
	assert.Equal(t, "Servers expose tools to hosts.", chunks[0])
}

func TestSplit_FallsBackToWordBoundary(t *testing.T) {
	text := "alpha bravo charlie delta echo foxtrot golf hotel india juliet kilo lima"
	c := New(20, 0)

	words := make(map[string]bool)
	for _, w := range strings.Fields(text) {
		words[w] = true
	}

	chunks := c.Split(text)
	require.Greater(t, len(chunks), 1)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(chunk), 20)
		for _, word := range strings.Fields(chunk) {
			assert.True(t, words[word], "chunk %q splits a word", chunk)
		}
	}
}

func TestSplit_HardCutWithoutBoundaries(t *testing.T) {
	text := strings.Repeat("x", 95)
	c := New(40, 10)

	chunks := c.Split(text)
	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0], 40)
	assert.Len(t, chunks[1], 40)
	// 95 characters: [0,40) [30,70) [60,95)
	assert.Len(t, chunks[2], 35)
}

func TestSplit_NoTrailingOverlapOnlyChunk(t *testing.T) {
	text := strings.Repeat("y", 40)
	c := New(40, 10)
	assert.Equal(t, []string{text}, c.Split(text))
}

func TestSpans_Coverage(t *testing.T) {
	texts := []string{
		strings.Repeat("Tools are invoked by models. Resources are read by hosts! Why? Because. ", 20),
		strings.Repeat("word ", 300),
		strings.Repeat("z", 1234),
		"Übergröße ist kein Problem. Ünïcödé zählt Zeichen, nicht Bytes. " + strings.Repeat("ä", 600),
	}
	configs := [][2]int{{500, 100}, {40, 5}, {64, 63}, {10, 0}, {7, 3}}

	for _, text := range texts {
		runes := []rune(text)
		for _, cfg := range configs {
			c := New(cfg[0], cfg[1])
			spans := c.Spans(text)
			require.NotEmpty(t, spans)

			prevStart, prevEnd := -1, 0
			for i, s := range spans {
				assert.LessOrEqual(t, s.End-s.Start, c.Size(), "span %d too long", i)
				assert.Equal(t, string(runes[s.Start:s.End]), s.Text)
				if i > 0 {
					// Trimming leading whitespace can give two spans the same
					// start, but never the same span twice.
					assert.GreaterOrEqual(t, s.Start, prevStart, "span %d moves backwards", i)
					assert.False(t, s.Start == prevStart && s.End == prevEnd, "span %d repeats span %d", i, i-1)

					// No gap between consecutive spans apart from whitespace.
					gap := string(runes[min(prevEnd, s.Start):s.Start])
					assert.Empty(t, strings.TrimSpace(gap), "gap before span %d", i)
				}
				prevStart, prevEnd = s.Start, s.End
			}

			assert.Empty(t, strings.TrimSpace(string(runes[:spans[0].Start])))
			assert.Empty(t, strings.TrimSpace(string(runes[spans[len(spans)-1].End:])))
		}
	}
}

func TestSpans_Reconstruct(t *testing.T) {
	text := "First sentence is here. Second sentence follows it. Third one ends the text."
	c := New(30, 8)

	var b strings.Builder
	covered := 0
	for _, s := range c.Spans(text) {
		if s.End <= covered {
			continue
		}
		from := max(s.Start, covered)
		if covered > 0 && from > covered {
			b.WriteString(" ")
		}
		b.WriteString(string([]rune(s.Text)[from-s.Start:]))
		covered = s.End
	}

	assert.Equal(t, text, b.String())
}

func TestSpans_StepAlwaysAdvances(t *testing.T) {
	// A boundary just past the midpoint combined with a large overlap would
	// move the next start backwards without the clamp.
	text := strings.Repeat("abcdefghijk. ", 50)
	c := New(20, 19)

	spans := c.Spans(text)
	require.NotEmpty(t, spans)
	for i := 1; i < len(spans); i++ {
		assert.Greater(t, spans[i].Start, spans[i-1].Start)
	}
}
