package tools

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/randalmurphy/smart-complete/internal/binpath"
)

// Tokenizer converts source text into the token-stream strings the
// predictors consume.
type Tokenizer struct {
	binary   string
	resolver *binpath.Resolver
	runner   Runner
}

// NewTokenizer creates a tokenizer bridge. binary is the bundled tool name;
// the platform-suffixed build is preferred when present.
func NewTokenizer(binary string, resolver *binpath.Resolver, runner Runner) *Tokenizer {
	if runner == nil {
		runner = ExecRunner{}
	}
	return &Tokenizer{binary: binary, resolver: resolver, runner: runner}
}

func (t *Tokenizer) path() (string, error) {
	path, ok := t.resolver.LookupBundled(t.binary)
	if !ok {
		return "", &UnavailableError{Tool: t.binary, Err: fmt.Errorf("not found in search path")}
	}
	return path, nil
}

// Tokenize returns the token stream from the start of the enclosing scope up
// to offset. With full set identifiers are kept; otherwise they are elided.
func (t *Tokenizer) Tokenize(ctx context.Context, text string, offset int, full bool) (string, error) {
	bin, err := t.path()
	if err != nil {
		return "", err
	}

	// The tool counts positions from 1 and needs a byte past the cursor.
	args := []string{"-pos=" + strconv.Itoa(offset+1)}
	if full {
		args = append(args, "-full=true")
	}

	out, err := t.runner.Run(ctx, bin, args, text+" ")
	if err != nil {
		return "", err
	}
	if err := checkToolError(t.binary, out); err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// Identifiers returns the identifiers present in text, in order.
func (t *Tokenizer) Identifiers(ctx context.Context, text string) ([]string, error) {
	bin, err := t.path()
	if err != nil {
		return nil, err
	}

	out, err := t.runner.Run(ctx, bin, []string{"-idents=true"}, text)
	if err != nil {
		return nil, err
	}
	if err := checkToolError(t.binary, out); err != nil {
		return nil, err
	}

	var idents []string
	for _, id := range strings.Split(strings.TrimSpace(out), ",") {
		if id = strings.TrimSpace(id); id != "" {
			idents = append(idents, id)
		}
	}
	return idents, nil
}
