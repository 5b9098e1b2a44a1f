package text

import (
	"strings"
	"unicode/utf8"
)

const ellipsis = "..."

// Truncate cuts s to at most max bytes, appending "..." when it cuts.
// It never splits a UTF-8 sequence.
func Truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	cut := max - len(ellipsis)
	if cut < 0 {
		cut = 0
	}
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + ellipsis
}

// TruncateLines keeps whole lines while the result stays within max bytes.
// The tail line, if given, is always kept.
func TruncateLines(s string, max int, tail string) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	budget := max
	if tail != "" {
		budget -= len(tail) + 1
	}
	var b strings.Builder
	for _, line := range strings.Split(s, "\n") {
		if b.Len()+len(line)+1 > budget {
			break
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	out := strings.TrimRight(b.String(), "\n")
	if out == "" {
		out = Truncate(s, budget)
	}
	if tail != "" {
		out += "\n" + tail
	}
	return out
}
