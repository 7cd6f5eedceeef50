// Package chunker splits plain text into overlapping, boundary-aware chunks.
package chunker

import "unicode"

const (
	// DefaultSize is the target chunk length in characters.
	DefaultSize = 500

	// DefaultOverlap is the number of characters shared by consecutive chunks.
	DefaultOverlap = 100
)

// Span is one chunk of a text. Start and End are rune offsets into the
// original text after surrounding whitespace has been trimmed.
type Span struct {
	Start int
	End   int
	Text  string
}

// Chunker splits text into chunks of at most Size characters, each
// starting Overlap characters before the end of the previous one.
type Chunker struct {
	size    int
	overlap int
}

// New creates a Chunker. A non-positive size selects DefaultSize, a negative
// overlap becomes zero and an overlap that is not smaller than size is
// clamped to size-1.
func New(size, overlap int) *Chunker {
	if size <= 0 {
		size = DefaultSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size - 1
	}
	return &Chunker{size: size, overlap: overlap}
}

// Size returns the effective target chunk length.
func (c *Chunker) Size() int { return c.size }

// Overlap returns the effective overlap.
func (c *Chunker) Overlap() int { return c.overlap }

// Split returns the chunk texts of text in document order.
func (c *Chunker) Split(text string) []string {
	spans := c.Spans(text)
	if len(spans) == 0 {
		return nil
	}
	out := make([]string, len(spans))
	for i, s := range spans {
		out[i] = s.Text
	}
	return out
}

// Spans returns the chunks of text together with their positions.
//
// A chunk ends at the last sentence terminator inside the window when one
// exists in its second half, otherwise at the last whitespace in its second
// half, otherwise exactly at the window edge. The next chunk starts overlap
// characters before that end, but always strictly after the previous start.
// Once a chunk reaches the end of the text no further chunk is produced.
func (c *Chunker) Spans(text string) []Span {
	runes := []rune(text)
	n := len(runes)
	if n == 0 {
		return nil
	}

	var spans []Span
	start := 0
	for start < n {
		end := min(start+c.size, n)
		if end < n {
			end = c.cut(runes, start, end)
		}

		if s, e := trim(runes, start, end); s < e {
			spans = append(spans, Span{Start: s, End: e, Text: string(runes[s:e])})
		}

		if end >= n {
			break
		}
		next := end - c.overlap
		if next <= start {
			next = end
		}
		start = next
	}
	return spans
}

// cut picks the chunk end for the window [start, end).
func (c *Chunker) cut(runes []rune, start, end int) int {
	floor := start + c.size/2

	for i := end - 2; i > floor; i-- {
		if isTerminator(runes[i]) && unicode.IsSpace(runes[i+1]) {
			return i + 1
		}
	}
	for i := end - 1; i > floor; i-- {
		if unicode.IsSpace(runes[i]) {
			return i
		}
	}
	return end
}

func isTerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

func trim(runes []rune, start, end int) (int, int) {
	for start < end && unicode.IsSpace(runes[start]) {
		start++
	}
	for end > start && unicode.IsSpace(runes[end-1]) {
		end--
	}
	return start, end
}
