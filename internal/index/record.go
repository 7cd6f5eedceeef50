package index

// Record is the metadata of one indexed chunk. The record at position i
// describes the vector at position i of the index built alongside it.
type Record struct {
	// File is the base name of the source document.
	File string `json:"file"`
	// Path is the document path relative to the data directory.
	Path string `json:"path"`
	// ChunkIndex is the position of the chunk within its document.
	ChunkIndex int `json:"chunk_index"`
	// Title is the first heading of the source document, if any.
	Title string `json:"title,omitempty"`
	// Text is the raw chunk text.
	Text string `json:"text"`
}

// Neighbor is one search hit: an ordinal position in the index and its
// inner-product score. Position is NotFound for padding entries.
type Neighbor struct {
	Position int
	Score    float32
}

// NotFound marks a search slot that holds no vector.
const NotFound = -1
