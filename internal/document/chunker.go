package document

import (
	"github.com/Zwang-23/medassist/internal/entity"
)

// Default chunking geometry, tuned for embedding-sized passages.
const (
	DefaultChunkSize    = 3000
	DefaultChunkOverlap = 500
)

// Chunker splits loaded documents into overlapping fixed-size chunks.
// Identical input always yields an identical chunk sequence.
type Chunker struct {
	size    int
	overlap int
}

func NewChunker(size, overlap int) *Chunker {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size - 1
	}
	return &Chunker{size: size, overlap: overlap}
}

// Split chunks every document in source order. Chunks never cross a
// document boundary; offsets are rune offsets into the source text.
func (c *Chunker) Split(docs []entity.Document) []entity.Chunk {
	var chunks []entity.Chunk
	for _, doc := range docs {
		chunks = append(chunks, c.splitOne(doc)...)
	}
	return chunks
}

func (c *Chunker) splitOne(doc entity.Document) []entity.Chunk {
	runes := []rune(doc.Text)
	if len(runes) == 0 {
		return nil
	}

	step := c.size - c.overlap
	var chunks []entity.Chunk
	for start := 0; start < len(runes); start += step {
		end := start + c.size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, entity.Chunk{
			Text:        string(runes[start:end]),
			StartOffset: start,
			Source:      doc.Source,
		})
		if end == len(runes) {
			break
		}
	}
	return chunks
}
