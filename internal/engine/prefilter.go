package engine

import (
	"regexp"
	"strings"

	"github.com/randalmurphy/smart-complete/internal/completion"
)

var (
	mainPackageRe = regexp.MustCompile(`(?m)^\s*package\s+main\b`)
	mainFuncRe    = regexp.MustCompile(`\bfunc\s+main\s*\(\s*\)`)
	funcLineRe    = regexp.MustCompile(`^func *$`)
)

// Suppressed reports whether no completions should be offered at pos:
// on an empty line flush against the margin right after a non-blank line
// (a statement is probably being continued), or inside a literal.
func Suppressed(doc *Document, pos completion.Position) bool {
	line := doc.Line(pos.Line)

	if pos.Line > 0 && !isBlank(doc.Line(pos.Line-1)) && line == "" {
		return true
	}

	return InString(line, pos.Character)
}

// MainShortcut returns the single `main` candidate offered when a main
// package without a main function is being completed on a bare `func` line.
func MainShortcut(doc *Document, pos completion.Position) (completion.Candidate, bool) {
	text := doc.Text()
	if !mainPackageRe.MatchString(text) || mainFuncRe.MatchString(text) {
		return completion.Candidate{}, false
	}
	if !funcLineRe.MatchString(doc.Line(pos.Line)) {
		return completion.Candidate{}, false
	}

	next := completion.Position{Line: pos.Line + 1, Character: 0}
	c := completion.Candidate{
		Label:      "main",
		Kind:       completion.KindFunction,
		Detail:     "func main()",
		InsertText: "main() {\n\t",
		AdditionalEdits: []completion.TextEdit{{
			Range:   completion.Range{Start: next, End: next},
			NewText: "}\n",
		}},
		Origin: completion.Synthesized,
	}
	return c.WithRank(completion.Rank{}), true
}

// EnclosingFunc returns the name of the function declared by the last line
// starting with `func` before offset, or "" if there is none. Method
// receivers and type parameters are skipped.
func EnclosingFunc(text string, offset int) string {
	if offset > len(text) {
		offset = len(text)
	}

	idx := strings.LastIndex(text[:offset], "\nfunc")
	if idx < 0 {
		if !strings.HasPrefix(text, "func") {
			return ""
		}
	} else {
		text = text[idx+1:]
	}

	after := strings.TrimPrefix(text, "func")
	if after == "" || (after[0] != ' ' && after[0] != '\t') {
		return ""
	}

	rest := strings.TrimLeft(after, " \t")
	if rest == "" {
		return ""
	}

	if rest[0] == '(' {
		end := strings.IndexByte(rest, ')')
		if end < 0 {
			return ""
		}
		rest = strings.TrimLeft(rest[end+1:], " \t")
	}

	end := strings.IndexAny(rest, "([ \t\n")
	if end <= 0 {
		return ""
	}
	return rest[:end]
}

// excludeSelf drops the candidates that complete to main or to the
// function being written.
func excludeSelf(cands []completion.Candidate, enclosing string) []completion.Candidate {
	out := make([]completion.Candidate, 0, len(cands))
	for _, c := range cands {
		if c.Label == "main" || (enclosing != "" && c.Label == enclosing) {
			continue
		}
		out = append(out, c)
	}
	return out
}
