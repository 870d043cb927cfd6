// Package tools wraps the one-shot external tools: the symbol-completion
// oracle, the tokenizer and the semantic-query tool.
package tools

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Runner executes a binary once with the given stdin and returns its stdout.
type Runner interface {
	Run(ctx context.Context, bin string, args []string, stdin string) (string, error)
}

// Cache stores tool responses. Get returns "" for a miss.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// ExecRunner runs tools as child processes.
type ExecRunner struct {
	// Timeout bounds each run. Zero means no limit beyond ctx.
	Timeout time.Duration
}

// Run implements Runner.
func (r ExecRunner) Run(ctx context.Context, bin string, args []string, stdin string) (string, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, bin, args...)
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", &UnavailableError{Tool: bin, Err: ctx.Err()}
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			msg := strings.TrimSpace(stderr.String())
			if msg == "" {
				msg = strings.TrimSpace(stdout.String())
			}
			return stdout.String(), &UnavailableError{Tool: bin, Err: fmt.Errorf("%w: %s", err, msg)}
		}
		return "", &UnavailableError{Tool: bin, Err: err}
	}

	return stdout.String(), nil
}

// checkToolError converts a "!ERR: diagnostic" output into a ToolError.
func checkToolError(tool, out string) error {
	if !strings.HasPrefix(out, errPrefix) {
		return nil
	}
	msg := out
	if i := strings.Index(out, ":"); i >= 0 {
		msg = out[i+1:]
	}
	return &ToolError{Tool: tool, Message: strings.TrimSpace(msg)}
}
