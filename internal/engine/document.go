package engine

import (
	"sort"
	"strings"

	"github.com/randalmurphy/smart-complete/internal/completion"
)

// Document is an immutable view of source text split into lines. Positions
// count bytes: Character is the byte column within the line.
type Document struct {
	text   string
	starts []int
}

// NewDocument indexes the line starts of text.
func NewDocument(text string) *Document {
	starts := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &Document{text: text, starts: starts}
}

// Text returns the full text.
func (d *Document) Text() string {
	return d.text
}

// LineCount returns the number of lines. A trailing newline starts an empty
// last line.
func (d *Document) LineCount() int {
	return len(d.starts)
}

// Line returns line n without its terminator, or "" when n is out of range.
func (d *Document) Line(n int) string {
	if n < 0 || n >= len(d.starts) {
		return ""
	}
	end := len(d.text)
	if n+1 < len(d.starts) {
		end = d.starts[n+1] - 1
	}
	return strings.TrimSuffix(d.text[d.starts[n]:end], "\r")
}

// HasLine reports whether line n exists.
func (d *Document) HasLine(n int) bool {
	return n >= 0 && n < len(d.starts)
}

// PositionAt converts a byte offset to a position, clamping to the text.
func (d *Document) PositionAt(offset int) completion.Position {
	if offset < 0 {
		offset = 0
	}
	if offset > len(d.text) {
		offset = len(d.text)
	}
	line := sort.Search(len(d.starts), func(i int) bool { return d.starts[i] > offset }) - 1
	return completion.Position{Line: line, Character: offset - d.starts[line]}
}

// LineRange returns the range covering line n's content.
func (d *Document) LineRange(n int) completion.Range {
	return completion.Range{
		Start: completion.Position{Line: n, Character: 0},
		End:   completion.Position{Line: n, Character: len(d.Line(n))},
	}
}

func isBlank(line string) bool {
	return strings.TrimSpace(line) == ""
}

// indentOf returns the leading whitespace of line.
func indentOf(line string) string {
	return line[:len(line)-len(strings.TrimLeft(line, " \t"))]
}

// InString reports whether column pos of line lies inside a string, rune or
// raw string literal opened earlier on the same line. A position on the
// closing quote is outside, as is a position on an opening quote.
func InString(line string, pos int) bool {
	inStr, escaped := false, false
	var quote byte

	for i := 0; i < len(line) && i < pos; i++ {
		ch := line[i]
		switch {
		case (ch == '\'' || ch == '"') && !escaped && (quote == ch || !inStr):
			inStr = !inStr
			quote = ch
		case ch == '`' && (quote == ch || !inStr):
			inStr = !inStr
			quote = ch
		case ch == '\\':
			escaped = true
		case escaped:
			escaped = false
		}
	}

	if inStr && pos < len(line) && line[pos] == quote && (quote == '`' || !escaped) {
		return false
	}
	return inStr
}
