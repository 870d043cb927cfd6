package tools

import (
	"errors"
	"fmt"
)

// ErrUnavailable matches every UnavailableError.
var ErrUnavailable = errors.New("tool unavailable")

// ErrMalformedResponse is returned when a tool answered with output that
// cannot be decoded. Callers treat it as "no data".
var ErrMalformedResponse = errors.New("malformed tool response")

// errPrefix marks a structured failure on a tool's stdout, e.g. "!ERR: msg".
const errPrefix = "!ERR"

// ToolError is a failure the tool itself reported.
type ToolError struct {
	Tool    string
	Message string
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("%s reported an error: %s", e.Tool, e.Message)
}

// UnavailableError means the tool could not be run: the binary is missing,
// it failed to start, or it exited abnormally.
type UnavailableError struct {
	Tool string
	Err  error
}

func (e *UnavailableError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s unavailable", e.Tool)
	}
	return fmt.Sprintf("%s unavailable: %v", e.Tool, e.Err)
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}

func (e *UnavailableError) Is(target error) bool {
	return target == ErrUnavailable
}
