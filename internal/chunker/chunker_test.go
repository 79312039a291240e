package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docstack/knowledge-backend/internal/config"
)

func newChunker(maxSize, minSize int) *Chunker {
	return New(config.ChunkingConfig{MaxSize: maxSize, MinSize: minSize})
}

func TestChunk_EmptyInput(t *testing.T) {
	c := newChunker(100, 10)

	assert.Nil(t, c.Chunk("", 1, 0))
	assert.Nil(t, c.Chunk("   \n\t  ", 1, 0))
}

func TestChunk_RespectsMaxSize(t *testing.T) {
	c := newChunker(80, 10)

	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 20)
	chunks := c.Chunk(text, 1, 0)

	require.NotEmpty(t, chunks)
	for _, ch := range chunks {
		assert.LessOrEqual(t, len(ch.Text), 80)
		assert.GreaterOrEqual(t, len(ch.Text), 10)
	}
}

func TestChunk_DropsBelowMinSize(t *testing.T) {
	c := newChunker(100, 30)

	// A short header-like fragment followed by a real sentence.
	chunks := c.Chunk("Page 3. "+strings.Repeat("x", 90)+" tail words here to pad the sentence out properly.", 1, 0)

	for _, ch := range chunks {
		assert.GreaterOrEqual(t, len(ch.Text), 30)
	}
}

func TestChunk_Deterministic(t *testing.T) {
	c := newChunker(120, 20)
	text := "First sentence is here. Second one follows! Does a question split too? Yes it does. " +
		"And a final statement closes the paragraph with some extra length."

	first := c.Chunk(text, 2, 5)
	second := c.Chunk(text, 2, 5)

	assert.Equal(t, first, second)
}

func TestChunk_SequenceAndPage(t *testing.T) {
	c := newChunker(60, 5)
	text := "One full sentence sits right here in the text. Another full sentence sits right after it. A third one closes."

	chunks := c.Chunk(text, 4, 7)

	require.GreaterOrEqual(t, len(chunks), 2)
	for i, ch := range chunks {
		assert.Equal(t, 4, ch.SourcePage)
		assert.Equal(t, 7+i, ch.SequenceNo)
	}
}

func TestChunk_SplitsOversizedSentenceOnWords(t *testing.T) {
	c := newChunker(50, 5)
	// One sentence, far above max, splittable on word boundaries.
	text := strings.Repeat("word ", 40) + "end."

	chunks := c.Chunk(text, 1, 0)

	require.Greater(t, len(chunks), 1)
	for _, ch := range chunks {
		assert.LessOrEqual(t, len(ch.Text), 50)
	}
}

func TestChunk_UnbreakableTokenExceedsMax(t *testing.T) {
	c := newChunker(20, 5)
	token := strings.Repeat("a", 60)

	chunks := c.Chunk(token+".", 1, 0)

	// No word boundary to break on: the token passes through oversized.
	require.Len(t, chunks, 1)
	assert.Greater(t, len(chunks[0].Text), 20)
}

func TestChunk_NormalizesWhitespace(t *testing.T) {
	c := newChunker(200, 5)

	chunks := c.Chunk("Broken\nacross\tlines   and \n\n spaces. Should read cleanly afterwards.", 1, 0)

	require.NotEmpty(t, chunks)
	assert.Equal(t, "Broken across lines and spaces. Should read cleanly afterwards.", chunks[0].Text)
}

func TestChunk_RepresentativeProse(t *testing.T) {
	c := newChunker(300, 20)
	text := "The reset procedure requires holding the power button for ten seconds. " +
		"After the indicator blinks twice, release the button and wait for the " +
		"device to restart. If the device does not restart, unplug it for one " +
		"minute before trying again. Contact support if the issue persists."

	chunks := c.Chunk(text, 1, 0)

	require.NotEmpty(t, chunks)
	var joined []string
	for _, ch := range chunks {
		joined = append(joined, ch.Text)
	}
	// No text is lost across chunk boundaries.
	assert.Equal(t, strings.Join(strings.Fields(text), " "), strings.Join(joined, " "))
}
