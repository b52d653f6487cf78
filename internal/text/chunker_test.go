package text

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplit(t *testing.T) {
	t.Run("Short Text Single Chunk", func(t *testing.T) {
		c := NewChunker(100, 10)
		chunks := c.Split("hello world")
		assert.Equal(t, []string{"hello world"}, chunks)
	})

	t.Run("Empty Input", func(t *testing.T) {
		c := NewChunker(100, 10)
		assert.Nil(t, c.Split(""))
		assert.Nil(t, c.Split("   \n\t  "))
	})

	t.Run("Bounded Length", func(t *testing.T) {
		c := NewChunker(10, 0)
		chunks := c.Split(strings.Repeat("a", 35))
		assert.Len(t, chunks, 4)
		for _, ch := range chunks {
			assert.LessOrEqual(t, len([]rune(ch)), 10)
		}
		assert.Equal(t, strings.Repeat("a", 5), chunks[3])
	})

	t.Run("Overlap", func(t *testing.T) {
		c := NewChunker(10, 4)
		chunks := c.Split("abcdefghijklmnop")
		// Windows start every 6 runes: [0:10], [6:16]
		assert.Equal(t, []string{"abcdefghij", "ghijklmnop"}, chunks)
	})

	t.Run("Document Order", func(t *testing.T) {
		c := NewChunker(5, 0)
		chunks := c.Split("aaaaabbbbbccccc")
		assert.Equal(t, []string{"aaaaa", "bbbbb", "ccccc"}, chunks)
	})

	t.Run("Rune Safe", func(t *testing.T) {
		c := NewChunker(4, 0)
		chunks := c.Split("日本語のテキストです")
		for _, ch := range chunks {
			assert.LessOrEqual(t, len([]rune(ch)), 4)
			assert.True(t, strings.ToValidUTF8(ch, "") == ch)
		}
	})

	t.Run("Deterministic", func(t *testing.T) {
		c := NewChunker(7, 2)
		input := strings.Repeat("the quick brown fox ", 50)
		first := c.Split(input)
		second := c.Split(input)
		assert.Equal(t, first, second)
	})

	t.Run("Invalid Overlap Falls Back", func(t *testing.T) {
		c := NewChunker(5, 5)
		chunks := c.Split("aaaaabbbbb")
		assert.Equal(t, []string{"aaaaa", "bbbbb"}, chunks)
	})
}

func TestDedupe(t *testing.T) {
	t.Run("Collapses Exact Duplicates", func(t *testing.T) {
		out := Dedupe([]string{"a", "b", "a", "c", "b"})
		assert.Equal(t, []string{"a", "b", "c"}, out)
	})

	t.Run("Preserves Order", func(t *testing.T) {
		out := Dedupe([]string{"z", "y", "z", "x"})
		assert.Equal(t, []string{"z", "y", "x"}, out)
	})

	t.Run("Empty", func(t *testing.T) {
		assert.Empty(t, Dedupe(nil))
	})
}
