package extract

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/randalmurphy/smart-complete/internal/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindArgNum(t *testing.T) {
	tests := []struct {
		call     string
		pos      int
		expected int
	}{
		{"()", 1, 1},
		{"(foo(2, 3), bar(1), )", 20, 3},
		{"(foo(2, 3), bar[1], )", 16, 2},
		{"(foo{2, 3}, bar{1}, )", 8, 1},
		{"(a, b, c)", 0, 1},
		{"(a, b, c)", 100, 3},
	}

	for _, tt := range tests {
		t.Run(tt.call, func(t *testing.T) {
			assert.Equal(t, tt.expected, FindArgNum(tt.call, tt.pos))
		})
	}
}

func TestFindArgNumIgnoresNestedCommas(t *testing.T) {
	call := "(f(a, b), [1, 2], {x, y}, "
	assert.Equal(t, 4, FindArgNum(call, len(call)))
}

func TestFuncArgName(t *testing.T) {
	tests := []struct {
		typ      string
		num      int
		expected string
		ok       bool
	}{
		{"func(format string, a ...interface{})", 1, "format", true},
		{"func(format string, a ...interface{})", 2, "a", true},
		{"func(fn func(int, string) string, val int)", 1, "fn", true},
		{"func(fn func(int, string) string, val map[string]interface{})", 2, "val", true},
		{"func(a, b, c string, fn func(func(), int) int)", 1, "a", true},
		{"func(a, b, c string, fn func(func(), int) int)", 2, "b", true},
		{"func(a, b, c string, fn func(func(), int) int)", 3, "c", true},
		{"func(a, b, c string, fn func(func(), int) int)", 4, "fn", true},
		{"func(a, b, c string, fn func(func(), int) int)", 5, "", false},
		{"func(format string, a ...any) (n int, err error)", 2, "a", true},
		{"func()", 1, "", false},
		{"func() int", 1, "", false},
		{"func(x int) func()", 1, "", false},
		{"map[string]int", 1, "", false},
		{"", 1, "", false},
		{"func(x int)", 0, "", false},
	}

	for _, tt := range tests {
		name, ok := FuncArgName(tt.typ, tt.num)
		assert.Equal(t, tt.ok, ok, "%s %d", tt.typ, tt.num)
		assert.Equal(t, tt.expected, name, "%s %d", tt.typ, tt.num)
	}
}

type fakeQuerier struct {
	what     *tools.WhatResult
	whatErr  error
	describe map[int]string
	asked    []int
}

func (f *fakeQuerier) What(ctx context.Context, file, text string, offset int) (*tools.WhatResult, error) {
	return f.what, f.whatErr
}

func (f *fakeQuerier) Describe(ctx context.Context, file, text string, offset int) (*tools.DescribeResult, error) {
	f.asked = append(f.asked, offset)
	typ, ok := f.describe[offset]
	if !ok {
		return nil, tools.ErrMalformedResponse
	}
	res := &tools.DescribeResult{}
	res.Value = &struct {
		Type string `json:"type"`
	}{Type: typ}
	return res, nil
}

type fakeIdents struct {
	got string
}

func (f *fakeIdents) Identifiers(ctx context.Context, text string) ([]string, error) {
	f.got = text
	return strings.FieldsFunc(text, func(r rune) bool {
		return !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z')
	}), nil
}

func TestRelevantIdentifiersInCall(t *testing.T) {
	text := "package main\nfunc f() { fmt.Printf(\"%d\", ) }\n"
	callStart := strings.Index(text, "fmt.Printf")
	lparen := strings.Index(text, "(\"")
	offset := strings.Index(text, ", )") + 2

	q := &fakeQuerier{
		what: &tools.WhatResult{Enclosing: []tools.Enclosing{
			{Desc: "function call (or conversion)", Start: callStart, End: strings.Index(text, " }")},
			{Desc: "block", Start: strings.Index(text, "{"), End: len(text) - 1},
		}},
		describe: map[int]string{lparen - 1: "func(format string, a ...any) (n int, err error)"},
	}

	e := NewExtractor(q, &fakeIdents{}, nil)
	got := e.RelevantIdentifiers(context.Background(), "main.go", text, offset)
	assert.Equal(t, []string{"a"}, got)
	assert.Equal(t, []int{lparen - 1}, q.asked)
}

func TestRelevantIdentifiersCallWithoutEnd(t *testing.T) {
	text := "x := strings.Repeat(s, \nfoo()\n"
	start := strings.Index(text, "strings")
	offset := strings.Index(text, "\n")

	q := &fakeQuerier{
		what: &tools.WhatResult{Enclosing: []tools.Enclosing{
			{Desc: "function call (or conversion)", Start: start},
		}},
		describe: map[int]string{strings.Index(text, "(") - 1: "func(s string, count int) string"},
	}

	e := NewExtractor(q, &fakeIdents{}, nil)
	assert.Equal(t, []string{"count"}, e.RelevantIdentifiers(context.Background(), "main.go", text, offset))
}

func TestRelevantIdentifiersInAssignment(t *testing.T) {
	text := "func f() {\n\tuserName, err = \n}"
	start := strings.Index(text, "userName")
	offset := strings.Index(text, "= ") + 2

	q := &fakeQuerier{
		what: &tools.WhatResult{Enclosing: []tools.Enclosing{
			{Desc: "assignment", Start: start, End: offset + 1},
		}},
	}
	idents := &fakeIdents{}

	e := NewExtractor(q, idents, nil)
	got := e.RelevantIdentifiers(context.Background(), "main.go", text, offset)
	assert.Equal(t, []string{"userName", "err"}, got)
	assert.Equal(t, "userName, err = \n", idents.got)
}

func TestRelevantIdentifiersNone(t *testing.T) {
	text := "package main\n\nfunc main() {\n\t\n}\n"
	offset := strings.Index(text, "\t") + 1

	tests := []struct {
		name string
		q    *fakeQuerier
	}{
		{"query failure", &fakeQuerier{whatErr: errors.New("guru: exit status 1")}},
		{"no constructs", &fakeQuerier{what: &tools.WhatResult{}}},
		{"cursor outside call", &fakeQuerier{what: &tools.WhatResult{Enclosing: []tools.Enclosing{
			{Desc: "function call", Start: offset + 1, End: offset + 5},
		}}}},
		{"callee not described", &fakeQuerier{what: &tools.WhatResult{Enclosing: []tools.Enclosing{
			{Desc: "function call", Start: 0, End: len(text)},
		}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewExtractor(tt.q, &fakeIdents{}, nil)
			assert.Nil(t, e.RelevantIdentifiers(context.Background(), "main.go", text, offset))
		})
	}
}

func TestSplitTopLevel(t *testing.T) {
	parts := splitTopLevel("fn func(func(), int) int, m map[string][]int, x struct{ a, b int }")
	require.Len(t, parts, 3)
	assert.Equal(t, "fn func(func(), int) int", parts[0])
	assert.Equal(t, "x struct{ a, b int }", parts[2])
	assert.Nil(t, splitTopLevel(""))
}
