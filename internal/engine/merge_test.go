package engine

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/randalmurphy/smart-complete/internal/completion"
	"github.com/randalmurphy/smart-complete/internal/predict"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func oracleCand(label string, kind completion.Kind, typ string) completion.Candidate {
	return completion.Candidate{Label: label, Kind: kind, Detail: typ, Origin: completion.Forwarded}
}

func rank(c completion.Candidate, tier, sub int) completion.Candidate {
	return c.WithRank(completion.Rank{Tier: tier, SubRank: sub})
}

func tok(raw string, conf float64) predict.SuggestedToken {
	return predict.SuggestedToken{Raw: raw, Confidence: conf}
}

// emptyLine places the cursor on an indented blank line.
func emptyLine() (*Document, completion.Position) {
	text := "package main\n\nfunc f() {\n\t\n}\n"
	doc := NewDocument(text)
	return doc, completion.Position{Line: 3, Character: 1}
}

func TestMergeIdentSlot(t *testing.T) {
	foo := oracleCand("foo", completion.KindVariable, "int")
	bar := oracleCand("bar", completion.KindFunction, "string")
	doc, pos := emptyLine()

	got, ok := Merge([]completion.Candidate{foo, bar}, []predict.SuggestedToken{tok("ID_S", 0.9)}, doc, pos, DefaultConfidenceThreshold)
	require.True(t, ok)

	want := []completion.Candidate{rank(foo, 0, 0), rank(bar, 0, 1)}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Merge mismatch (-want +got):\n%s", diff)
	}
}

func TestMergeBoolLiteral(t *testing.T) {
	foo := oracleCand("foo", completion.KindVariable, "int")
	flag := oracleCand("flag", completion.KindVariable, "bool")
	done := oracleCand("done", completion.KindVariable, "bool")
	doc, pos := emptyLine()

	got, ok := Merge([]completion.Candidate{foo, flag, done}, []predict.SuggestedToken{tok("ID_LIT_BOOL", 0.9)}, doc, pos, DefaultConfidenceThreshold)
	require.True(t, ok)

	want := []completion.Candidate{
		rank(completion.Keyword("true", "true"), 0, 0),
		rank(completion.Keyword("false", "false"), 0, 1),
		rank(flag, 0, 2),
		rank(done, 0, 3),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Merge mismatch (-want +got):\n%s", diff)
	}
}

func TestMergeTypedLiteral(t *testing.T) {
	foo := oracleCand("foo", completion.KindVariable, "int")
	name := oracleCand("name", completion.KindVariable, "string")
	size := oracleCand("size", completion.KindVariable, "uint64")
	ratio := oracleCand("ratio", completion.KindVariable, "float64")
	doc, pos := emptyLine()
	cands := []completion.Candidate{foo, name, size, ratio}

	got, ok := Merge(cands, []predict.SuggestedToken{tok("ID_LIT_INT", 0.8), tok("ID_S", 0.5)}, doc, pos, DefaultConfidenceThreshold)
	require.True(t, ok)

	want := []completion.Candidate{
		rank(foo, 0, 0),
		rank(size, 0, 1),
		rank(name, 1, 0),
		rank(ratio, 1, 1),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Merge mismatch (-want +got):\n%s", diff)
	}

	got, ok = Merge(cands, []predict.SuggestedToken{tok("ID_LIT_STR", 0.8)}, doc, pos, DefaultConfidenceThreshold)
	require.True(t, ok)
	assert.Equal(t, []string{"name"}, completion.Labels(got))

	got, ok = Merge(cands, []predict.SuggestedToken{tok("ID_LIT_FLOAT", 0.8)}, doc, pos, DefaultConfidenceThreshold)
	require.True(t, ok)
	assert.Equal(t, []string{"ratio"}, completion.Labels(got))
}

func TestMergeConfidenceThreshold(t *testing.T) {
	doc := NewDocument("\tx := y")
	pos := completion.Position{Line: 0, Character: 7}
	toks := []predict.SuggestedToken{tok("for", 0.29), tok("if", 0.3), tok("go", 0.31), tok("+", 0.1)}

	got, ok := Merge(nil, toks, doc, pos, DefaultConfidenceThreshold)
	require.True(t, ok)

	want := []completion.Candidate{
		rank(completion.Keyword("if", "\nif"), 1, 0),
		rank(completion.Keyword("go", "\ngo"), 2, 0),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Merge mismatch (-want +got):\n%s", diff)
	}
}

func TestMergeLowConfidenceStartsStatement(t *testing.T) {
	doc, pos := emptyLine()

	got, ok := Merge(nil, []predict.SuggestedToken{tok("for", 0.05), tok("'return'", 0.01)}, doc, pos, DefaultConfidenceThreshold)
	require.True(t, ok)

	want := []completion.Candidate{
		rank(completion.Keyword("for", "for"), 0, 0),
		rank(completion.Keyword("return", "return"), 1, 0),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Merge mismatch (-want +got):\n%s", diff)
	}
}

func TestMergeBlock(t *testing.T) {
	doc := NewDocument("func f() {\n\tif ok \n\treturn nil\n}\n")
	pos := completion.Position{Line: 1, Character: 7}

	got, ok := Merge(nil, []predict.SuggestedToken{tok("'{'", 0.9)}, doc, pos, DefaultConfidenceThreshold)
	require.True(t, ok)

	block := completion.Candidate{
		Label:      "{ block",
		Kind:       completion.KindUnit,
		InsertText: "{\n\t",
		AdditionalEdits: []completion.TextEdit{{
			Range: completion.Range{
				Start: completion.Position{Line: 2, Character: 0},
				End:   completion.Position{Line: 2, Character: 11},
			},
			NewText: "\t}\n\treturn nil",
		}},
		Origin: completion.Synthesized,
	}
	want := []completion.Candidate{
		rank(completion.Keyword("{", "{"), 0, 0),
		rank(block, 0, 1),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Merge mismatch (-want +got):\n%s", diff)
	}
}

func TestMergeBlockAtLastLine(t *testing.T) {
	doc := NewDocument("if ok ")
	got, ok := Merge(nil, []predict.SuggestedToken{tok("{", 0.9)}, doc, completion.Position{Character: 6}, DefaultConfidenceThreshold)
	require.True(t, ok)
	assert.Equal(t, []string{"{"}, completion.Labels(got))
}

func TestMergeIsIdempotent(t *testing.T) {
	ranked := []completion.Candidate{
		oracleCand("count", completion.KindVariable, "int"),
		oracleCand("ok", completion.KindVariable, "bool"),
		oracleCand("name", completion.KindVariable, "string"),
	}
	toks := []predict.SuggestedToken{tok("ID_LIT_BOOL", 0.5), tok("ID_S", 0.4), tok("{", 0.3), tok("if", 0.2)}
	doc := NewDocument("func f() {\n\t\n\tx++\n}")
	pos := completion.Position{Line: 1, Character: 1}

	first, ok1 := Merge(ranked, toks, doc, pos, DefaultConfidenceThreshold)
	second, ok2 := Merge(ranked, toks, doc, pos, DefaultConfidenceThreshold)

	assert.Equal(t, ok1, ok2)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("second merge differs (-first +second):\n%s", diff)
	}
	for _, c := range ranked {
		assert.Nil(t, c.Rank, "input %s was modified", c.Label)
		assert.Empty(t, c.SortText)
	}

	seen := make(map[string]bool)
	for _, c := range first {
		assert.False(t, seen[c.Label], "duplicate %s", c.Label)
		seen[c.Label] = true
		require.NotNil(t, c.Rank)
		assert.Equal(t, c.Rank.SortText(), c.SortText)
	}
}

func TestMergeSortKeysFollowOrder(t *testing.T) {
	ranked := []completion.Candidate{
		oracleCand("a", completion.KindVariable, "int"),
		oracleCand("b", completion.KindVariable, "bool"),
	}
	doc, pos := emptyLine()

	got, ok := Merge(ranked, []predict.SuggestedToken{tok("ID_LIT_BOOL", 0.9), tok("ID_S", 0.5), tok("return", 0.4)}, doc, pos, DefaultConfidenceThreshold)
	require.True(t, ok)

	for i := 1; i < len(got); i++ {
		assert.Less(t, got[i-1].SortText, got[i].SortText)
	}
}

func TestMergeFallsBack(t *testing.T) {
	ranked := []completion.Candidate{oracleCand("foo", completion.KindVariable, "int")}
	doc := NewDocument("x := ")
	pos := completion.Position{Character: 5}

	tests := []struct {
		name string
		toks []predict.SuggestedToken
	}{
		{"no tokens", nil},
		{"all below threshold", []predict.SuggestedToken{tok("ID_S", 0.1), tok("if", 0.2)}},
		{"unknown class", []predict.SuggestedToken{tok("ID_LIT_WEIRD", 0.9), tok("ID_FUTURE", 0.9)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Merge(ranked, tt.toks, doc, pos, DefaultConfidenceThreshold)
			assert.False(t, ok)
			assert.Equal(t, ranked, got)
		})
	}
}

func TestMergeSkipsDuplicateLabels(t *testing.T) {
	doc, pos := emptyLine()
	got, ok := Merge(nil, []predict.SuggestedToken{tok("if", 0.9), tok("'if'", 0.8), tok("ID_LIT_BOOL", 0.7), tok("ID_LIT_BOOL", 0.6)}, doc, pos, DefaultConfidenceThreshold)
	require.True(t, ok)
	assert.Equal(t, []string{"if", "true", "false"}, completion.Labels(got))
}

func TestRankInOrder(t *testing.T) {
	cands := []completion.Candidate{{Label: "b"}, {Label: "a"}}
	got := rankInOrder(cands)

	require.Len(t, got, 2)
	assert.Equal(t, completion.Rank{Tier: 0, SubRank: 1}, *got[1].Rank)
	assert.Equal(t, "00000001", got[1].SortText)
	assert.Nil(t, cands[0].Rank)
}
