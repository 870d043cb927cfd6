package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/randalmurphy/smart-complete/internal/binpath"
	"github.com/randalmurphy/smart-complete/internal/cache"
)

// Query modes understood by the semantic-query tool.
const (
	ModeWhat     = "what"
	ModeDescribe = "describe"
)

// Enclosing is one syntactic construct around the queried offset.
// End is zero when the tool did not report it.
type Enclosing struct {
	Desc  string `json:"desc"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// WhatResult is the answer to a "what" query.
type WhatResult struct {
	Enclosing []Enclosing `json:"enclosing"`
}

// DescribeResult is the answer to a "describe" query.
type DescribeResult struct {
	Desc  string `json:"desc"`
	Value *struct {
		Type string `json:"type"`
	} `json:"value"`
}

// ValueType returns the declared type of the described value, or "".
func (d *DescribeResult) ValueType() string {
	if d == nil || d.Value == nil {
		return ""
	}
	return d.Value.Type
}

// SemanticQuery is the semantic-query tool (guru).
type SemanticQuery struct {
	binary   string
	resolver *binpath.Resolver
	runner   Runner
	cache    Cache
	cacheTTL time.Duration
	logger   *slog.Logger
}

// SemanticQueryConfig configures a SemanticQuery.
type SemanticQueryConfig struct {
	Binary   string
	Resolver *binpath.Resolver
	Runner   Runner
	Cache    Cache // optional
	CacheTTL time.Duration
	Logger   *slog.Logger
}

// NewSemanticQuery creates a semantic-query client.
func NewSemanticQuery(cfg SemanticQueryConfig) *SemanticQuery {
	if cfg.Runner == nil {
		cfg.Runner = ExecRunner{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &SemanticQuery{
		binary:   cfg.Binary,
		resolver: cfg.Resolver,
		runner:   cfg.Runner,
		cache:    cfg.Cache,
		cacheTTL: cfg.CacheTTL,
		logger:   cfg.Logger,
	}
}

// What returns the constructs enclosing offset.
func (q *SemanticQuery) What(ctx context.Context, file, text string, offset int) (*WhatResult, error) {
	var res WhatResult
	if err := q.query(ctx, ModeWhat, file, text, offset, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Describe returns the description of the expression at offset.
func (q *SemanticQuery) Describe(ctx context.Context, file, text string, offset int) (*DescribeResult, error) {
	var res DescribeResult
	if err := q.query(ctx, ModeDescribe, file, text, offset, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (q *SemanticQuery) query(ctx context.Context, mode, file, text string, offset int, v any) error {
	key := cache.QueryKey(mode, file, text, offset)

	var out string
	if q.cache != nil {
		out, _ = q.cache.Get(ctx, key)
	}
	hit := out != ""

	if out == "" {
		bin, ok := q.resolver.Lookup(q.binary)
		if !ok {
			return &UnavailableError{Tool: q.binary, Err: fmt.Errorf("not found in search path")}
		}

		// The modified-file archive format: name, size, content.
		args := []string{"-json", "-modified", mode, fmt.Sprintf("%s:#%d", file, offset)}
		stdin := fmt.Sprintf("%s\n%d\n%s", file, len(text), text)

		var err error
		out, err = q.runner.Run(ctx, bin, args, stdin)
		if err != nil {
			return err
		}
	}

	if err := json.Unmarshal([]byte(strings.TrimSpace(out)), v); err != nil {
		if hit {
			if derr := q.cache.Delete(ctx, key); derr != nil {
				q.logger.Debug("cache delete failed", "key", key, "error", derr)
			}
		}
		return fmt.Errorf("%w: %s %s: %v", ErrMalformedResponse, q.binary, mode, err)
	}

	if q.cache != nil {
		if err := q.cache.Set(ctx, key, out, q.cacheTTL); err != nil {
			q.logger.Debug("cache write failed", "key", key, "error", err)
		}
	}
	return nil
}
