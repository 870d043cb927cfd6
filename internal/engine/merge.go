package engine

import (
	"strings"

	"github.com/randalmurphy/smart-complete/internal/completion"
	"github.com/randalmurphy/smart-complete/internal/predict"
)

// DefaultConfidenceThreshold is the lowest confidence a suggested token may
// have to continue a non-empty line.
const DefaultConfidenceThreshold = 0.3

// literalTypes maps an ID_LIT_<TYPE> suffix to the declared types it accepts.
var literalTypes = map[string][]string{
	"int":    {"uint8", "byte", "int8", "int16", "uint16", "int32", "uint32", "int", "uint", "int64", "uint64", "uintptr"},
	"imag":   {"complex64", "complex128"},
	"string": {"string"},
	"str":    {"string"},
	"char":   {"rune"},
	"bool":   {"bool"},
	"float":  {"float32", "float64"},
}

// newLineKeywords start a statement and go on a fresh line when the cursor
// line already has content.
var newLineKeywords = map[string]bool{
	"if":     true,
	"for":    true,
	"select": true,
	"switch": true,
	"defer":  true,
	"go":     true,
}

func typeMatches(literal, declared string) bool {
	for _, t := range literalTypes[literal] {
		if t == declared {
			return true
		}
	}
	return false
}

// Merge combines the ranked candidates with the suggested next tokens. Each
// token contributes candidates at tier i, its position in toks:
//
//   - ID_S places every ranked candidate not placed yet, in ranked order.
//   - ID_LIT_<TYPE> places the unplaced candidates whose type fits TYPE,
//     after true and false for ID_LIT_BOOL.
//   - `{` places a bare brace and a block that also closes it on the next line.
//   - any other token that is not an ID_ class becomes a keyword.
//
// On a non-empty line tokens below threshold are skipped. The boolean is
// false when nothing was placed, in which case ranked is returned unchanged.
// Neither input is modified, so merging twice gives identical output.
func Merge(ranked []completion.Candidate, toks []predict.SuggestedToken, doc *Document, pos completion.Position, threshold float64) ([]completion.Candidate, bool) {
	line := doc.Line(pos.Line)
	lineEmpty := isBlank(line)

	placed := make(map[string]bool)
	var out []completion.Candidate
	place := func(c completion.Candidate, tier, sub int) bool {
		if placed[c.Label] {
			return false
		}
		placed[c.Label] = true
		out = append(out, c.WithRank(completion.Rank{Tier: tier, SubRank: sub}))
		return true
	}

	for i, tok := range toks {
		if !lineEmpty && tok.Confidence < threshold {
			continue
		}

		s := tok.Token()
		switch {
		case s == predict.ClassIdent:
			sub := 0
			for _, c := range ranked {
				if place(c, i, sub) {
					sub++
				}
			}

		case strings.HasPrefix(s, predict.ClassLitPrefix):
			sub := 0
			if s == predict.ClassBool {
				place(completion.Keyword("true", "true"), i, 0)
				place(completion.Keyword("false", "false"), i, 1)
				sub = 2
			}
			typ, _ := tok.LiteralType()
			for _, c := range ranked {
				if typeMatches(typ, c.Detail) && place(c, i, sub) {
					sub++
				}
			}

		case s == "{":
			place(completion.Keyword(s, s), i, 0)
			if block, ok := blockCandidate(doc, pos); ok {
				place(block, i, 1)
			}

		case !tok.IsClass() && s != "":
			insert := s
			if newLineKeywords[s] && !lineEmpty {
				insert = "\n" + s
			}
			place(completion.Keyword(s, insert), i, 0)
		}
	}

	if len(out) == 0 {
		return ranked, false
	}
	return out, true
}

// blockCandidate opens a block at the cursor and inserts the matching
// closing brace, indented like the cursor line, before the next line's
// content. It needs a next line to edit.
func blockCandidate(doc *Document, pos completion.Position) (completion.Candidate, bool) {
	next := pos.Line + 1
	if !doc.HasLine(next) {
		return completion.Candidate{}, false
	}

	indent := indentOf(doc.Line(pos.Line))
	return completion.Candidate{
		Label:      "{ block",
		Kind:       completion.KindUnit,
		InsertText: "{\n\t",
		AdditionalEdits: []completion.TextEdit{{
			Range:   doc.LineRange(next),
			NewText: indent + "}\n" + doc.Line(next),
		}},
		Origin: completion.Synthesized,
	}, true
}

// rankInOrder gives cands tier-0 ranks in their current order.
func rankInOrder(cands []completion.Candidate) []completion.Candidate {
	out := make([]completion.Candidate, len(cands))
	for j, c := range cands {
		out[j] = c.WithRank(completion.Rank{Tier: 0, SubRank: j})
	}
	return out
}
