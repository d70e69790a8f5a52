package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit_EmptyInput(t *testing.T) {
	assert.Nil(t, Split("", 1000, 150))
	assert.Nil(t, Split("   \n\t  ", 1000, 150))
}

func TestSplit_ShortInputSingleChunk(t *testing.T) {
	chunks := Split("Paris is the capital of France.", 1000, 150)
	require.Len(t, chunks, 1)
	assert.Equal(t, "Paris is the capital of France.", chunks[0])
}

func TestSplit_ChunkLengthBound(t *testing.T) {
	text := strings.Repeat("All work and no play makes Jack a dull boy. ", 200)
	const size, overlap = 300, 60

	chunks := Split(text, size, overlap)
	require.NotEmpty(t, chunks)
	for i, c := range chunks {
		assert.LessOrEqual(t, len([]rune(c)), size, "chunk %d exceeds size", i)
	}
}

func TestSplit_OverlapAndCoverage(t *testing.T) {
	text := strings.Repeat("The quick brown fox jumps over the lazy dog.\n\n", 80)
	const size, overlap = 400, 100

	chunks := Split(text, size, overlap)
	require.Greater(t, len(chunks), 1)

	// Consecutive chunks share exactly overlap runes.
	for i := 1; i < len(chunks); i++ {
		prev := []rune(chunks[i-1])
		cur := []rune(chunks[i])
		require.GreaterOrEqual(t, len(cur), overlap)
		assert.Equal(t, string(prev[len(prev)-overlap:]), string(cur[:overlap]), "overlap mismatch between chunks %d and %d", i-1, i)
	}

	// Dropping each chunk's leading overlap reconstructs the original text.
	var rebuilt strings.Builder
	rebuilt.WriteString(chunks[0])
	for i := 1; i < len(chunks); i++ {
		cur := []rune(chunks[i])
		rebuilt.WriteString(string(cur[overlap:]))
	}
	assert.Equal(t, text, rebuilt.String())
}

func TestSplit_PrefersParagraphBoundaries(t *testing.T) {
	para := strings.Repeat("word ", 50) // 250 runes
	text := para + "\n\n" + para + "\n\n" + para

	chunks := Split(text, 300, 50)
	require.Greater(t, len(chunks), 1)
	// The first cut lands right after a paragraph break rather than
	// mid-paragraph at the hard limit.
	assert.True(t, strings.HasSuffix(chunks[0], "\n\n"), "expected chunk to end at a paragraph break, got %q", chunks[0][len(chunks[0])-10:])
}

func TestSplit_HardCutWithoutSeparators(t *testing.T) {
	text := strings.Repeat("x", 1000)
	chunks := Split(text, 300, 50)
	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		assert.LessOrEqual(t, len([]rune(c)), 300)
	}
	var rebuilt strings.Builder
	rebuilt.WriteString(chunks[0])
	for i := 1; i < len(chunks); i++ {
		rebuilt.WriteString(chunks[i][50:])
	}
	assert.Equal(t, text, rebuilt.String())
}

func TestSplit_InvalidParamsFallBackToDefaults(t *testing.T) {
	text := strings.Repeat("a sentence here. ", 200)
	chunks := Split(text, 0, -1)
	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		assert.LessOrEqual(t, len([]rune(c)), DefaultChunkSize)
	}
}
