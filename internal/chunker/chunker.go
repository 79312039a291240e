// Package chunker splits extracted document text into bounded-size passages
// along sentence boundaries.
package chunker

import (
	"regexp"
	"strings"

	"github.com/docstack/knowledge-backend/internal/config"
	"github.com/docstack/knowledge-backend/internal/entity"
)

// sentenceEnd matches terminal punctuation followed by whitespace or the end
// of input. Naive on abbreviations and decimals; accepted heuristic.
var sentenceEnd = regexp.MustCompile(`[.?!]+(?:\s+|$)`)

// Chunker greedily packs sentences into chunks of at most maxSize characters,
// dropping anything shorter than minSize as noise (page headers, footers).
type Chunker struct {
	maxSize int
	minSize int
}

func New(cfg config.ChunkingConfig) *Chunker {
	maxSize := cfg.MaxSize
	if maxSize <= 0 {
		maxSize = 1000
	}
	minSize := cfg.MinSize
	if minSize < 0 {
		minSize = 0
	}
	return &Chunker{maxSize: maxSize, minSize: minSize}
}

// Chunk splits one page/unit of text. Returned chunks carry the given page
// number and sequence numbers counting up from startSeq. Deterministic for
// identical input; empty or whitespace-only input yields nil.
func (c *Chunker) Chunk(text string, page, startSeq int) []entity.Chunk {
	sentences := splitSentences(normalize(text))
	if len(sentences) == 0 {
		return nil
	}

	var texts []string
	var buf strings.Builder

	flush := func() {
		if buf.Len() > 0 {
			texts = append(texts, buf.String())
			buf.Reset()
		}
	}

	for _, sentence := range sentences {
		if len(sentence) > c.maxSize {
			flush()
			texts = append(texts, splitLongSentence(sentence, c.maxSize)...)
			continue
		}
		if buf.Len() > 0 && buf.Len()+1+len(sentence) > c.maxSize {
			flush()
		}
		if buf.Len() > 0 {
			buf.WriteByte(' ')
		}
		buf.WriteString(sentence)
	}
	flush()

	chunks := make([]entity.Chunk, 0, len(texts))
	seq := startSeq
	for _, t := range texts {
		if len(t) < c.minSize {
			continue
		}
		chunks = append(chunks, entity.Chunk{
			Text:       t,
			SourcePage: page,
			SequenceNo: seq,
		})
		seq++
	}
	return chunks
}

// normalize collapses whitespace runs (including tabs and line breaks) to a
// single space.
func normalize(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

func splitSentences(text string) []string {
	if text == "" {
		return nil
	}

	var sentences []string
	start := 0
	for _, loc := range sentenceEnd.FindAllStringIndex(text, -1) {
		if s := strings.TrimSpace(text[start:loc[1]]); s != "" {
			sentences = append(sentences, s)
		}
		start = loc[1]
	}
	if start < len(text) {
		if s := strings.TrimSpace(text[start:]); s != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}

// splitLongSentence breaks an oversized sentence on word boundaries into
// pieces of at most max characters. A single whitespace-free token longer
// than max is emitted as-is; there is no boundary left to break on.
func splitLongSentence(sentence string, max int) []string {
	words := strings.Fields(sentence)
	var parts []string
	var buf strings.Builder

	for _, w := range words {
		switch {
		case buf.Len() == 0:
			buf.WriteString(w)
		case buf.Len()+1+len(w) <= max:
			buf.WriteByte(' ')
			buf.WriteString(w)
		default:
			parts = append(parts, buf.String())
			buf.Reset()
			buf.WriteString(w)
		}
	}
	if buf.Len() > 0 {
		parts = append(parts, buf.String())
	}
	return parts
}
