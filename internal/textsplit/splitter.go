// Package textsplit chunks extracted document text for summarization and embedding.
package textsplit

import (
	"fmt"

	"github.com/tmc/langchaingo/textsplitter"
)

// PageMarker and ChunkMarker delimit pages and model-sized pieces in extracted text.
const (
	PageMarker  = "<PAGE>"
	ChunkMarker = "<CHUNK>"
)

// Embedding chunk geometry.
const (
	EmbeddingChunkSize    = 500
	EmbeddingChunkOverlap = 0
)

// Splitter breaks text into ordered chunks.
type Splitter interface {
	SplitText(text string) ([]string, error)
}

// NewSummarySplitter prefers chunk and page boundaries, then lines, then characters.
func NewSummarySplitter(size, overlap int) (Splitter, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("chunk overlap must be in [0, %d), got %d", size, overlap)
	}
	return textsplitter.NewRecursiveCharacter(
		textsplitter.WithSeparators([]string{ChunkMarker, PageMarker, "\n", ""}),
		textsplitter.WithChunkSize(size),
		textsplitter.WithChunkOverlap(overlap),
	), nil
}

// NewEmbeddingSplitter uses paragraph, line, word then character boundaries.
func NewEmbeddingSplitter() Splitter {
	return textsplitter.NewRecursiveCharacter(
		textsplitter.WithSeparators([]string{"\n\n", "\n", " ", ""}),
		textsplitter.WithChunkSize(EmbeddingChunkSize),
		textsplitter.WithChunkOverlap(EmbeddingChunkOverlap),
	)
}
