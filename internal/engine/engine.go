// Package engine fuses the oracle's candidates with the learned predictors
// into one ranked completion list.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/randalmurphy/smart-complete/internal/completion"
	"github.com/randalmurphy/smart-complete/internal/metrics"
	"github.com/randalmurphy/smart-complete/internal/predict"
)

// ErrSuperseded is returned when a newer request for the same file started
// before this one finished. Its results are discarded.
var ErrSuperseded = errors.New("completion superseded by a newer request")

// Oracle produces the raw symbol candidates.
type Oracle interface {
	Configure(ctx context.Context) error
	Complete(ctx context.Context, text string, offset int) ([]completion.Candidate, error)
}

// Tokenizer produces token streams.
type Tokenizer interface {
	Tokenize(ctx context.Context, text string, offset int, full bool) (string, error)
}

// ContextExtractor finds the identifiers relevant at the cursor.
type ContextExtractor interface {
	RelevantIdentifiers(ctx context.Context, file, text string, offset int) []string
}

// Guesser is the identifier guesser.
type Guesser interface {
	Guess(ctx context.Context, stream string, cands []completion.Candidate) ([]completion.Candidate, bool)
}

// Sorter is the relevance sorter.
type Sorter interface {
	Sort(ctx context.Context, idents []string, cands []completion.Candidate) []completion.Candidate
}

// Suggester is the next-token suggester.
type Suggester interface {
	Suggest(ctx context.Context, stream string, lineTerminated bool) []predict.SuggestedToken
}

// EventLog records completion analytics.
type EventLog interface {
	LogCompletion(ev metrics.CompletionEvent)
	LogFallback(requestID, stage string)
	LogError(operation, message string)
}

// FileFilter decides which files get completions.
type FileFilter interface {
	Match(path string) bool
}

// Config wires an Engine. Oracle and Tokenizer are required; every other
// collaborator is optional and its stage is skipped when nil.
type Config struct {
	Oracle    Oracle
	Tokenizer Tokenizer
	Extractor ContextExtractor
	Guesser   Guesser
	Sorter    Sorter
	Suggester Suggester
	Events    EventLog
	Files     FileFilter

	ConfidenceThreshold    float64
	MaxInFlightPerDocument int
	Logger                 *slog.Logger
}

// Request is one completion request. Offset is a byte offset into Text.
type Request struct {
	File   string `json:"file"`
	Text   string `json:"text"`
	Offset int    `json:"offset"`
}

// Result is a ranked completion list.
type Result struct {
	RequestID  string                 `json:"requestId"`
	Source     string                 `json:"source"`
	Candidates []completion.Candidate `json:"items"`
}

// Engine runs completion requests.
type Engine struct {
	cfg      Config
	logger   *slog.Logger
	inflight *inflight
}

// New creates an engine.
func New(cfg Config) (*Engine, error) {
	if cfg.Oracle == nil {
		return nil, fmt.Errorf("engine: oracle is required")
	}
	if cfg.Tokenizer == nil {
		return nil, fmt.Errorf("engine: tokenizer is required")
	}
	if cfg.ConfidenceThreshold <= 0 {
		cfg.ConfidenceThreshold = DefaultConfidenceThreshold
	}
	if cfg.MaxInFlightPerDocument < 1 {
		cfg.MaxInFlightPerDocument = 2
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Engine{
		cfg:      cfg,
		logger:   cfg.Logger,
		inflight: newInflight(int64(cfg.MaxInFlightPerDocument)),
	}, nil
}

// Complete returns the ranked completions for req. Only oracle and
// tokenizer failures are returned as errors; every other stage falls back
// to the previous stage's output. ErrSuperseded means a newer request for
// the same file made this one obsolete.
func (e *Engine) Complete(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	res := &Result{RequestID: uuid.NewString()}
	logger := e.logger.With("request_id", res.RequestID, "file", req.File)

	if req.Offset < 0 || req.Offset > len(req.Text) {
		return nil, fmt.Errorf("offset %d out of range [0, %d]", req.Offset, len(req.Text))
	}

	if e.cfg.Files != nil && req.File != "" && !e.cfg.Files.Match(req.File) {
		logger.Debug("file not included in workspace")
		res.Source = metrics.SourcePrefilter
		e.record(req, res, 0, start, false)
		return res, nil
	}

	doc := NewDocument(req.Text)
	pos := doc.PositionAt(req.Offset)

	if Suppressed(doc, pos) {
		res.Source = metrics.SourcePrefilter
		e.record(req, res, 0, start, false)
		return res, nil
	}

	if c, ok := MainShortcut(doc, pos); ok {
		res.Source = metrics.SourceShortcut
		res.Candidates = []completion.Candidate{c}
		e.record(req, res, 0, start, false)
		return res, nil
	}

	st, gen := e.inflight.begin(req.File)
	defer e.inflight.end(req.File, st)

	if err := st.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer st.sem.Release(1)

	if !e.inflight.latest(st, gen) {
		logger.Debug("superseded before start")
		e.record(req, res, 0, start, true)
		return nil, ErrSuperseded
	}

	ranked, toks, err := e.gather(ctx, req, doc, pos, res.RequestID, logger)
	if err != nil {
		logger.Error("completion failed", "error", err)
		if e.cfg.Events != nil {
			e.cfg.Events.LogError("complete", err.Error())
		}
		return nil, err
	}

	if !e.inflight.latest(st, gen) {
		logger.Debug("superseded, discarding results")
		e.record(req, res, len(toks), start, true)
		return nil, ErrSuperseded
	}

	if merged, ok := Merge(ranked, toks, doc, pos, e.cfg.ConfidenceThreshold); ok {
		res.Source = metrics.SourceMerged
		res.Candidates = merged
	} else {
		if len(toks) > 0 {
			e.fallback(res.RequestID, "merge")
		}
		res.Source = metrics.SourceRanked
		res.Candidates = rankInOrder(ranked)
	}

	logger.Debug("completion done",
		"source", res.Source,
		"candidates", len(res.Candidates),
		"tokens", len(toks),
		"elapsed", time.Since(start))
	e.record(req, res, len(toks), start, false)
	return res, nil
}

// gather runs the oracle, context extraction and both tokenizations
// concurrently, then the predictors that depend on them.
func (e *Engine) gather(ctx context.Context, req Request, doc *Document, pos completion.Position, id string, logger *slog.Logger) ([]completion.Candidate, []predict.SuggestedToken, error) {
	if err := e.cfg.Oracle.Configure(ctx); err != nil {
		return nil, nil, fmt.Errorf("configure oracle: %w", err)
	}

	enclosing := EnclosingFunc(req.Text, req.Offset)
	line := doc.Line(pos.Line)

	var (
		ranked []completion.Candidate
		toks   []predict.SuggestedToken
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var (
			cands  []completion.Candidate
			idents []string
			stream string
		)

		inner, ictx := errgroup.WithContext(gctx)
		inner.Go(func() error {
			out, err := e.cfg.Oracle.Complete(ictx, req.Text, req.Offset)
			if err != nil {
				return fmt.Errorf("oracle: %w", err)
			}
			cands = excludeSelf(out, enclosing)
			return nil
		})
		if e.cfg.Extractor != nil {
			inner.Go(func() error {
				idents = e.cfg.Extractor.RelevantIdentifiers(ictx, req.File, req.Text, req.Offset)
				return nil
			})
		}
		if e.cfg.Guesser != nil {
			inner.Go(func() error {
				var err error
				stream, err = e.cfg.Tokenizer.Tokenize(ictx, req.Text, req.Offset, true)
				if err != nil {
					return fmt.Errorf("tokenize full: %w", err)
				}
				return nil
			})
		}
		if err := inner.Wait(); err != nil {
			return err
		}

		logger.Debug("context gathered", "candidates", len(cands), "relevant", idents)
		ranked = e.rank(gctx, id, cands, idents, stream)
		return nil
	})

	g.Go(func() error {
		if e.cfg.Suggester == nil {
			return nil
		}
		stream, err := e.cfg.Tokenizer.Tokenize(gctx, req.Text, req.Offset, false)
		if err != nil {
			return fmt.Errorf("tokenize: %w", err)
		}
		toks = e.cfg.Suggester.Suggest(gctx, stream, strings.Contains(line, ";"))
		if len(toks) == 0 {
			e.fallback(id, "next_token")
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return ranked, toks, nil
}

// rank orders the oracle candidates: identifier guesses first, then the
// relevance sorter, then the oracle's own order.
func (e *Engine) rank(ctx context.Context, id string, cands []completion.Candidate, idents []string, stream string) []completion.Candidate {
	if e.cfg.Guesser != nil {
		if guessed, ok := e.cfg.Guesser.Guess(ctx, stream, cands); ok {
			return guessed
		}
		e.fallback(id, "ident_guesser")
	}

	if len(idents) == 0 || e.cfg.Sorter == nil {
		return cands
	}
	return e.cfg.Sorter.Sort(ctx, idents, cands)
}

func (e *Engine) fallback(id, stage string) {
	e.logger.Debug("stage fell back", "request_id", id, "stage", stage)
	if e.cfg.Events != nil {
		e.cfg.Events.LogFallback(id, stage)
	}
}

func (e *Engine) record(req Request, res *Result, tokens int, start time.Time, superseded bool) {
	if e.cfg.Events == nil {
		return
	}
	e.cfg.Events.LogCompletion(metrics.CompletionEvent{
		RequestID:  res.RequestID,
		File:       req.File,
		Source:     res.Source,
		Candidates: len(res.Candidates),
		Tokens:     tokens,
		LatencyMs:  time.Since(start).Milliseconds(),
		Superseded: superseded,
	})
}

// inflight bounds concurrent requests per document and tracks the newest
// request so stale results can be dropped.
type inflight struct {
	max  int64
	mu   sync.Mutex
	docs map[string]*docState
}

type docState struct {
	sem    *semaphore.Weighted
	newest uint64
	refs   int
}

func newInflight(max int64) *inflight {
	return &inflight{max: max, docs: make(map[string]*docState)}
}

// begin registers a request for file and returns its generation.
func (f *inflight) begin(file string) (*docState, uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()

	st, ok := f.docs[file]
	if !ok {
		st = &docState{sem: semaphore.NewWeighted(f.max)}
		f.docs[file] = st
	}
	st.newest++
	st.refs++
	return st, st.newest
}

func (f *inflight) end(file string, st *docState) {
	f.mu.Lock()
	defer f.mu.Unlock()

	st.refs--
	if st.refs == 0 && f.docs[file] == st {
		delete(f.docs, file)
	}
}

func (f *inflight) latest(st *docState, gen uint64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return st.newest == gen
}
