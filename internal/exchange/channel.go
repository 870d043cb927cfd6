// Package exchange turns a long-lived, line-buffered process into a
// request/response service: every line written to its stdin is answered by
// exactly one line on its stdout, in the same order.
package exchange

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// maxLineSize bounds a single response line.
const maxLineSize = 1024 * 1024

// Channel pairs requests with response lines first-in-first-out.
//
// A Channel never fails loudly: once the backing process is gone every
// pending and future Send reports no response.
type Channel struct {
	name    string
	w       io.WriteCloser
	r       io.Reader
	cmd     *exec.Cmd
	timeout time.Duration
	logger  *slog.Logger

	mu      sync.Mutex
	pending []chan string
	outbox  []string // lines queued for the writer, in pending order
	closed  bool

	wake chan struct{}
	stop chan struct{}
	done chan struct{}
}

// Option configures a Channel.
type Option func(*Channel)

// WithTimeout bounds every Send. Zero means wait until the response arrives
// or the context is cancelled.
func WithTimeout(d time.Duration) Option {
	return func(c *Channel) { c.timeout = d }
}

// WithLogger sets the logger used for lifecycle and protocol warnings.
func WithLogger(l *slog.Logger) Option {
	return func(c *Channel) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a channel over an already connected writer/reader pair.
// If r implements io.Closer it is closed by Close.
func New(name string, w io.WriteCloser, r io.Reader, opts ...Option) *Channel {
	c := &Channel{
		name:   name,
		w:      w,
		r:      r,
		logger: slog.Default(),
		wake:   make(chan struct{}, 1),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("channel", name)

	go c.readLoop()
	go c.writeLoop()

	return c
}

// Start spawns args[0] with the remaining arguments and wraps its stdio.
func Start(name string, args []string, opts ...Option) (*Channel, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("%s: empty command", name)
	}

	cmd := exec.Command(args[0], args[1:]...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create stdin pipe: %w", name, err)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create stdout pipe: %w", name, err)
	}

	c := &Channel{name: name, logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	cmd.Stderr = &stderrWriter{logger: c.logger.With("channel", name)}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%s: failed to start %s: %w", name, args[0], err)
	}

	ch := New(name, stdin, stdout, append(opts, withCmd(cmd))...)
	ch.logger.Info("process started", "pid", cmd.Process.Pid, "command", strings.Join(args, " "))

	return ch, nil
}

func withCmd(cmd *exec.Cmd) Option {
	return func(c *Channel) { c.cmd = cmd }
}

// Name returns the channel name.
func (c *Channel) Name() string {
	return c.name
}

// Alive reports whether the channel can still answer requests.
func (c *Channel) Alive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed
}

// Send writes request as one line and waits for the paired response line.
// The boolean is false when no response is available: the process exited,
// the write failed, the timeout expired or ctx was cancelled. The timeout
// covers the write as well as the response, so a process that stopped
// reading stdin cannot block the caller. An abandoned request keeps its
// queue slot so later requests stay correctly paired.
func (c *Channel) Send(ctx context.Context, request string) (string, bool) {
	line := strings.ReplaceAll(strings.TrimSpace(request), "\n", " ") + "\n"

	slot := make(chan string, 1)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return "", false
	}
	c.pending = append(c.pending, slot)
	c.outbox = append(c.outbox, line)
	c.mu.Unlock()

	select {
	case c.wake <- struct{}{}:
	default:
	}

	var timeout <-chan time.Time
	if c.timeout > 0 {
		timer := time.NewTimer(c.timeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case resp, ok := <-slot:
		return resp, ok
	case <-timeout:
		c.logger.Warn("request timed out", "timeout", c.timeout)
		return "", false
	case <-ctx.Done():
		return "", false
	}
}

// Close terminates the backing process (if any) and releases all waiters.
// A write blocked on a full pipe is released by killing the process and
// closing the writer.
func (c *Channel) Close() error {
	c.markClosed()

	if c.cmd != nil {
		if c.cmd.Process != nil {
			_ = c.cmd.Process.Kill()
		}
		_ = c.w.Close()
		<-c.done
		_ = c.cmd.Wait()
		c.logger.Info("process stopped")
		return nil
	}

	err := c.w.Close()

	if rc, ok := c.r.(io.Closer); ok {
		_ = rc.Close()
		<-c.done
	}

	return err
}

// Done is closed once the response reader has stopped.
func (c *Channel) Done() <-chan struct{} {
	return c.done
}

func (c *Channel) readLoop() {
	defer close(c.done)
	defer c.markClosed()

	scanner := bufio.NewScanner(c.r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	for scanner.Scan() {
		line := scanner.Text()

		c.mu.Lock()
		if len(c.pending) == 0 {
			c.mu.Unlock()
			c.logger.Warn("no pending request for line", "line", line)
			continue
		}
		slot := c.pending[0]
		c.pending[0] = nil
		c.pending = c.pending[1:]
		c.mu.Unlock()

		slot <- line
	}

	if err := scanner.Err(); err != nil {
		c.logger.Warn("read failed", "error", err)
	}
	c.logger.Warn("process output closed")
}

// writeLoop owns the writer. Lines leave the outbox in the order their
// slots entered pending.
func (c *Channel) writeLoop() {
	for {
		select {
		case <-c.stop:
			return
		case <-c.wake:
		}

		c.mu.Lock()
		lines := c.outbox
		c.outbox = nil
		c.mu.Unlock()

		for _, line := range lines {
			if _, err := io.WriteString(c.w, line); err != nil {
				c.logger.Warn("write failed, closing channel", "error", err)
				c.markClosed()
				return
			}
		}
	}
}

func (c *Channel) markClosed() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.stop)
	c.outbox = nil
	for _, slot := range c.pending {
		close(slot)
	}
	c.pending = nil
}

// stderrWriter forwards the process stderr to the logger.
type stderrWriter struct {
	logger *slog.Logger
}

func (s *stderrWriter) Write(p []byte) (int, error) {
	for _, line := range strings.Split(strings.TrimRight(string(p), "\n"), "\n") {
		if line != "" {
			s.logger.Debug("stderr", "line", line)
		}
	}
	return len(p), nil
}
