package services

import (
	"strings"
	"unicode/utf8"
)

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

type TextChunker interface {
	ChunkText(text string, maxChunkSize int, overlap int) []string
}

type textChunker struct{}

func NewTextChunker() TextChunker {
	return &textChunker{}
}

// ChunkText splits text on paragraph boundaries, falling back to sentences
// for oversized paragraphs. Each chunk after the first starts with up to
// overlap runes of its predecessor. Sizes are counted in runes.
func (tc *textChunker) ChunkText(text string, maxChunkSize int, overlap int) []string {
	if maxChunkSize <= 0 {
		maxChunkSize = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= maxChunkSize {
		overlap = maxChunkSize / 4
	}

	b := &chunkBuilder{maxSize: maxChunkSize, overlap: overlap}

	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}

		if utf8.RuneCountInString(para) <= maxChunkSize {
			b.add(para, "\n\n")
			continue
		}

		for _, sentence := range splitIntoSentences(para) {
			b.add(sentence, " ")
		}
	}

	return b.finish()
}

type chunkBuilder struct {
	maxSize int
	overlap int
	chunks  []string
	current strings.Builder
	size    int
}

// add appends piece, starting a new chunk when it would overflow. The
// overlap carried into the new chunk is shortened so tail+sep+piece still
// fits; a single piece longer than maxSize becomes a chunk of its own.
func (b *chunkBuilder) add(piece, sep string) {
	pieceLen := utf8.RuneCountInString(piece)
	sepLen := utf8.RuneCountInString(sep)

	if b.size > 0 && b.size+pieceLen+sepLen > b.maxSize {
		prev := b.current.String()
		b.chunks = append(b.chunks, prev)
		b.current.Reset()
		b.size = 0

		keep := min(b.overlap, b.maxSize-pieceLen-sepLen)
		if tail := lastNRunes(prev, keep); tail != "" {
			b.write(tail)
			b.write(sep)
		}
	}

	if b.size > 0 && !strings.HasSuffix(b.current.String(), sep) {
		b.write(sep)
	}
	b.write(piece)
}

func (b *chunkBuilder) write(s string) {
	b.current.WriteString(s)
	b.size += utf8.RuneCountInString(s)
}

func (b *chunkBuilder) finish() []string {
	if b.size > 0 {
		b.chunks = append(b.chunks, b.current.String())
	}
	return b.chunks
}

// splitIntoSentences keeps the terminating punctuation with each sentence.
func splitIntoSentences(text string) []string {
	var result []string
	start := 0
	for i, r := range text {
		if r == '.' || r == '!' || r == '?' {
			if s := strings.TrimSpace(text[start : i+1]); s != "" {
				result = append(result, s)
			}
			start = i + 1
		}
	}
	if s := strings.TrimSpace(text[start:]); s != "" {
		result = append(result, s)
	}
	return result
}

func lastNRunes(text string, n int) string {
	if n <= 0 {
		return ""
	}

	runes := []rune(text)
	if len(runes) <= n {
		return text
	}

	return string(runes[len(runes)-n:])
}
