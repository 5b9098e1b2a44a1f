package text

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "abcdefg", Truncate("abcdefg", 0))
	assert.Equal(t, "abc...", Truncate("abcdefghij", 6))

	// "é" is two bytes; cutting inside it must back off to the rune start.
	got := Truncate("aéééé", 6)
	assert.Equal(t, "aé...", got)
}

func TestTruncateLines(t *testing.T) {
	s := "line one\nline two\nline three"
	assert.Equal(t, s, TruncateLines(s, 100, "..."))

	got := TruncateLines(s, 22, "(cut)")
	assert.Equal(t, "line one\n(cut)", got)
	assert.LessOrEqual(t, len(got), 22)
}
