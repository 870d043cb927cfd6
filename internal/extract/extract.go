// Package extract derives the identifiers relevant to the cursor position
// from the constructs enclosing it: the expected parameter name when the
// cursor is inside a call, or the identifiers of an assignment.
package extract

import (
	"context"
	"log/slog"
	"strings"

	"github.com/randalmurphy/smart-complete/internal/tools"
)

// Querier answers semantic queries about a file.
type Querier interface {
	What(ctx context.Context, file, text string, offset int) (*tools.WhatResult, error)
	Describe(ctx context.Context, file, text string, offset int) (*tools.DescribeResult, error)
}

// IdentLister lists the identifiers in a piece of source.
type IdentLister interface {
	Identifiers(ctx context.Context, text string) ([]string, error)
}

// Extractor finds relevant identifiers around a cursor.
type Extractor struct {
	querier Querier
	idents  IdentLister
	logger  *slog.Logger
}

// NewExtractor creates an extractor.
func NewExtractor(q Querier, idents IdentLister, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{querier: q, idents: idents, logger: logger}
}

// RelevantIdentifiers returns the identifiers relevant at offset, or nil when
// there is no contextual bias. Failures of the underlying tools are logged
// and reported as nil.
func (e *Extractor) RelevantIdentifiers(ctx context.Context, file, text string, offset int) []string {
	what, err := e.querier.What(ctx, file, text, offset)
	if err != nil {
		e.logger.Debug("semantic query failed", "mode", tools.ModeWhat, "error", err)
		return nil
	}

	var fcall, assign *tools.Enclosing
	for i := range what.Enclosing {
		c := &what.Enclosing[i]
		switch {
		case fcall == nil && strings.HasPrefix(c.Desc, "function call"):
			fcall = c
		case assign == nil && c.Desc == "assignment":
			assign = c
		}
	}

	if start, end, ok := span(fcall, text, offset); ok {
		return e.callArgument(ctx, file, text, offset, start, end)
	}

	if start, end, ok := span(assign, text, offset); ok {
		idents, err := e.idents.Identifiers(ctx, text[start:end])
		if err != nil {
			e.logger.Debug("identifier extraction failed", "error", err)
			return nil
		}
		return idents
	}

	return nil
}

func (e *Extractor) callArgument(ctx context.Context, file, text string, offset, start, end int) []string {
	call := text[start:end]
	lparen := strings.IndexByte(call, '(')
	if lparen <= 0 {
		return nil
	}

	argNum := FindArgNum(call[lparen:], offset-start-lparen)

	desc, err := e.querier.Describe(ctx, file, text, start+lparen-1)
	if err != nil {
		e.logger.Debug("semantic query failed", "mode", tools.ModeDescribe, "error", err)
		return nil
	}

	name, ok := FuncArgName(desc.ValueType(), argNum)
	if !ok {
		return nil
	}
	return []string{name}
}

// span returns the byte range of c when the cursor lies inside it. A missing
// or out-of-range end is clamped to the end of the cursor's line, in which
// case the cursor may sit exactly at the end.
func span(c *tools.Enclosing, text string, offset int) (int, int, bool) {
	if c == nil || c.Start < 0 || c.Start >= len(text) {
		return 0, 0, false
	}

	end := c.End
	clamped := false
	if end <= c.Start || end > len(text) {
		end = lineEnd(text, offset)
		clamped = true
	}

	if c.Start >= offset {
		return 0, 0, false
	}
	if offset > end || (offset == end && !clamped) {
		return 0, 0, false
	}
	return c.Start, end, true
}

func lineEnd(text string, offset int) int {
	if offset > len(text) {
		return len(text)
	}
	if i := strings.IndexByte(text[offset:], '\n'); i >= 0 {
		return offset + i
	}
	return len(text)
}

// FindArgNum returns the 1-based argument number at pos inside call, where
// call starts at the opening parenthesis, e.g. `(a, b, 1)`. Only commas at
// depth 1 separate arguments.
func FindArgNum(call string, pos int) int {
	depth, argNum := 0, 1
	for i := 0; i < len(call) && i < pos; i++ {
		switch call[i] {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case ',':
			if depth == 1 {
				argNum++
			}
		}
	}
	return argNum
}

// FuncArgName returns the name of the argNum-th (1-based) parameter of a
// function type such as `func(a, b string, fn func(int) error)`. It reports
// false when typ is not a function type, takes no arguments, or has fewer
// than argNum parameters.
func FuncArgName(typ string, argNum int) (string, bool) {
	typ = strings.TrimSpace(typ)
	if argNum < 1 || !strings.HasPrefix(typ, "func") || strings.HasSuffix(typ, "()") {
		return "", false
	}

	params, ok := paramList(typ)
	if !ok {
		return "", false
	}

	parts := splitTopLevel(params)
	if len(parts) < argNum {
		return "", false
	}

	name := parts[argNum-1]
	if i := strings.IndexAny(name, " \t"); i >= 0 {
		name = name[:i]
	}
	if name == "" {
		return "", false
	}
	return name, true
}

// paramList returns the text between the parameter list's parentheses.
func paramList(typ string) (string, bool) {
	lparen := strings.IndexByte(typ, '(')
	if lparen < 0 {
		return "", false
	}

	depth := 0
	for i := lparen; i < len(typ); i++ {
		switch typ[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return strings.TrimSpace(typ[lparen+1 : i]), true
			}
		}
	}
	return "", false
}

// splitTopLevel splits s on commas that are not nested in brackets.
func splitTopLevel(s string) []string {
	if s == "" {
		return nil
	}

	var parts []string
	depth, last := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, strings.TrimSpace(s[last:i]))
				last = i + 1
			}
		}
	}
	return append(parts, strings.TrimSpace(s[last:]))
}
