package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/randalmurphy/smart-complete/internal/binpath"
	"github.com/randalmurphy/smart-complete/internal/cache"
	"github.com/randalmurphy/smart-complete/internal/completion"
)

// Symbol is one entry of the oracle's JSON answer.
type Symbol struct {
	Class string `json:"class"`
	Name  string `json:"name"`
	Type  string `json:"type"`
}

// Oracle is the symbol-completion oracle (gocode).
type Oracle struct {
	binary   string
	resolver *binpath.Resolver
	runner   Runner
	cache    Cache
	cacheTTL time.Duration
	logger   *slog.Logger

	mu         sync.Mutex
	configured bool
}

// OracleConfig configures an Oracle.
type OracleConfig struct {
	Binary   string
	Resolver *binpath.Resolver
	Runner   Runner
	Cache    Cache // optional
	CacheTTL time.Duration
	Logger   *slog.Logger
}

// NewOracle creates an oracle client.
func NewOracle(cfg OracleConfig) *Oracle {
	if cfg.Runner == nil {
		cfg.Runner = ExecRunner{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Oracle{
		binary:   cfg.Binary,
		resolver: cfg.Resolver,
		runner:   cfg.Runner,
		cache:    cfg.Cache,
		cacheTTL: cfg.CacheTTL,
		logger:   cfg.Logger,
	}
}

func (o *Oracle) path() (string, error) {
	path, ok := o.resolver.Lookup(o.binary)
	if !ok {
		return "", &UnavailableError{Tool: o.binary, Err: fmt.Errorf("not found in search path")}
	}
	return path, nil
}

// Configure applies the oracle settings the ranking relies on. It runs once
// per Oracle; a failed attempt is retried on the next call.
func (o *Oracle) Configure(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.configured {
		return nil
	}

	bin, err := o.path()
	if err != nil {
		return err
	}

	for _, setting := range [][]string{
		{"set", "propose-builtins", "false"},
		{"set", "autobuild", "true"},
	} {
		if _, err := o.runner.Run(ctx, bin, setting, ""); err != nil {
			return fmt.Errorf("failed to configure oracle: %w", err)
		}
	}

	o.configured = true
	o.logger.Debug("oracle configured", "binary", bin)
	return nil
}

// Complete returns the candidates the oracle proposes at byte offset, in
// oracle order. Symbols of unknown class are dropped.
func (o *Oracle) Complete(ctx context.Context, text string, offset int) ([]completion.Candidate, error) {
	if err := o.Configure(ctx); err != nil {
		return nil, err
	}

	key := cache.OracleKey(text, offset)
	out, err := o.cached(ctx, key, func() (string, error) {
		bin, err := o.path()
		if err != nil {
			return "", err
		}
		return o.runner.Run(ctx, bin, []string{"-f=json", "autocomplete", strconv.Itoa(offset)}, text)
	})
	if err != nil {
		return nil, err
	}

	symbols, err := ParseOracleOutput(out)
	if err != nil {
		o.evict(ctx, key)
		return nil, err
	}

	candidates := make([]completion.Candidate, 0, len(symbols))
	seen := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		kind, ok := completion.KindForClass(s.Class)
		if !ok || seen[s.Name] {
			continue
		}
		seen[s.Name] = true
		candidates = append(candidates, completion.Candidate{
			Label:  s.Name,
			Kind:   kind,
			Detail: s.Type,
			Origin: completion.Forwarded,
		})
	}

	return candidates, nil
}

func (o *Oracle) cached(ctx context.Context, key string, run func() (string, error)) (string, error) {
	if o.cache != nil {
		if v, err := o.cache.Get(ctx, key); err == nil && v != "" {
			return v, nil
		}
	}

	out, err := run()
	if err != nil {
		return "", err
	}

	if o.cache != nil {
		if err := o.cache.Set(ctx, key, out, o.cacheTTL); err != nil {
			o.logger.Debug("cache write failed", "key", key, "error", err)
		}
	}
	return out, nil
}

// evict drops a cached response that turned out to be unusable.
func (o *Oracle) evict(ctx context.Context, key string) {
	if o.cache == nil {
		return
	}
	if err := o.cache.Delete(ctx, key); err != nil {
		o.logger.Debug("cache delete failed", "key", key, "error", err)
	}
}

// ParseOracleOutput decodes `[version, [{name, class, type}, ...]]`.
// Empty output and `[]` mean no candidates.
func ParseOracleOutput(out string) ([]Symbol, error) {
	out = strings.TrimSpace(out)
	if out == "" {
		return nil, nil
	}

	var parts []json.RawMessage
	if err := json.Unmarshal([]byte(out), &parts); err != nil {
		return nil, fmt.Errorf("%w: oracle: %v", ErrMalformedResponse, err)
	}
	if len(parts) < 2 {
		return nil, nil
	}

	var symbols []Symbol
	if err := json.Unmarshal(parts[1], &symbols); err != nil {
		return nil, fmt.Errorf("%w: oracle: %v", ErrMalformedResponse, err)
	}
	return symbols, nil
}
