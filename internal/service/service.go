// Package service wires the configured tools, predictor processes and
// fusion engine into one completion service.
package service

import (
	"context"
	"log/slog"
	"runtime"

	"github.com/randalmurphy/smart-complete/internal/binpath"
	"github.com/randalmurphy/smart-complete/internal/cache"
	"github.com/randalmurphy/smart-complete/internal/config"
	"github.com/randalmurphy/smart-complete/internal/engine"
	"github.com/randalmurphy/smart-complete/internal/exchange"
	"github.com/randalmurphy/smart-complete/internal/extract"
	"github.com/randalmurphy/smart-complete/internal/metrics"
	"github.com/randalmurphy/smart-complete/internal/predict"
	"github.com/randalmurphy/smart-complete/internal/tools"
)

// Service owns every long-lived resource behind a completion engine.
type Service struct {
	engine   *engine.Engine
	resolver *binpath.Resolver
	logger   *slog.Logger

	predictors []*predictor
	files      *workspaceFilter
	cache      *cache.RedisCache
	metrics    *metrics.Logger
}

// NewResolver creates the binary resolver for cfg: the bundled tool
// directory first, then $PATH.
func NewResolver(cfg *config.Config) *binpath.Resolver {
	if cfg.Tools.BinDir != "" {
		return binpath.FromEnv(runtime.GOOS, cfg.Tools.BinDir)
	}
	return binpath.FromEnv(runtime.GOOS)
}

// NewTokenizer creates the tokenizer bridge for cfg.
func NewTokenizer(cfg *config.Config, resolver *binpath.Resolver) *tools.Tokenizer {
	return tools.NewTokenizer(cfg.Tools.Tokenizer, resolver, tools.ExecRunner{Timeout: cfg.Tools.Timeout})
}

// New builds a service. workspace is a directory inside the workspace whose
// .smart-complete.yaml restricts completions; empty means every file.
// Optional parts that cannot start (Redis, predictor processes, the
// metrics log) are logged and left out.
func New(cfg *config.Config, workspace string, logger *slog.Logger) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Service{
		resolver: NewResolver(cfg),
		logger:   logger,
	}
	runner := tools.ExecRunner{Timeout: cfg.Tools.Timeout}

	var toolCache tools.Cache
	if cfg.Cache.RedisURL != "" {
		rc, err := cache.NewRedisCache(cfg.Cache.RedisURL)
		if err != nil {
			logger.Warn("Redis cache unavailable, continuing without cache", "error", err)
		} else {
			s.cache = rc
			toolCache = rc
		}
	}

	tokenizer := NewTokenizer(cfg, s.resolver)
	ecfg := engine.Config{
		Oracle: tools.NewOracle(tools.OracleConfig{
			Binary:   cfg.Tools.Oracle,
			Resolver: s.resolver,
			Runner:   runner,
			Cache:    toolCache,
			CacheTTL: cfg.Cache.TTL,
			Logger:   logger,
		}),
		Tokenizer:              tokenizer,
		ConfidenceThreshold:    cfg.Ranking.ConfidenceThreshold,
		MaxInFlightPerDocument: cfg.Ranking.MaxInFlightPerDocument,
		Logger:                 logger,
	}

	if cfg.Tools.SemanticQuery != "" {
		query := tools.NewSemanticQuery(tools.SemanticQueryConfig{
			Binary:   cfg.Tools.SemanticQuery,
			Resolver: s.resolver,
			Runner:   runner,
			Cache:    toolCache,
			CacheTTL: cfg.Cache.TTL,
			Logger:   logger,
		})
		ecfg.Extractor = extract.NewExtractor(query, tokenizer, logger)
	}

	if p := s.startPredictor(cfg, "relevance", cfg.Predictors.Relevance); p != nil {
		ecfg.Sorter = predict.NewRelevanceSorter(p, logger)
	}
	if p := s.startPredictor(cfg, "next_token", cfg.Predictors.NextToken); p != nil {
		ecfg.Suggester = predict.NewTokenSuggester(p, logger)
	}
	if p := s.startPredictor(cfg, "ident_guesser", cfg.Predictors.IdentGuesser); p != nil {
		ecfg.Guesser = predict.NewIdentGuesser(p, cfg.Ranking.GuessThreshold, logger)
	}

	if cfg.Metrics.Path != "" {
		ml, err := metrics.NewLogger(cfg.Metrics.Path)
		if err != nil {
			logger.Warn("metrics log unavailable", "path", cfg.Metrics.Path, "error", err)
		} else {
			s.metrics = ml
			ecfg.Events = ml
		}
	}

	if workspace != "" {
		if ws, root := config.FindWorkspaceConfig(workspace); ws != nil {
			logger.Info("workspace config loaded", "root", root)
			s.files = newWorkspaceFilter(root, ws)
			ecfg.Files = s.files
		}
	}

	eng, err := engine.New(ecfg)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.engine = eng

	return s, nil
}

func (s *Service) startPredictor(cfg *config.Config, name, line string) *predictor {
	args, err := config.SplitCommand(line)
	if err != nil {
		s.logger.Warn("predictor unavailable", "predictor", name, "error", err)
		return nil
	}
	if len(args) == 0 {
		return nil
	}

	if path, ok := s.resolver.Lookup(args[0]); ok {
		args[0] = path
	}

	p, err := startPredictor(name, args,
		exchange.WithTimeout(cfg.Predictors.Timeout),
		exchange.WithLogger(s.logger))
	if err != nil {
		s.logger.Warn("predictor unavailable", "predictor", name, "error", err)
		return nil
	}
	s.predictors = append(s.predictors, p)
	return p
}

// Complete implements rpc.Handler.
func (s *Service) Complete(ctx context.Context, req engine.Request) (*engine.Result, error) {
	return s.engine.Complete(ctx, req)
}

// Close stops the predictor processes and releases the cache and metrics log.
func (s *Service) Close() error {
	for _, p := range s.predictors {
		if err := p.close(); err != nil {
			s.logger.Debug("predictor close", "predictor", p.name, "error", err)
		}
	}
	if s.cache != nil {
		s.cache.Close()
	}
	if s.metrics != nil {
		return s.metrics.Close()
	}
	return nil
}

// Binary is the resolution status of one configured tool.
type Binary struct {
	Role  string `json:"role"`
	Name  string `json:"name"`
	Path  string `json:"path,omitempty"`
	Found bool   `json:"found"`
}

// Binaries resolves every tool and predictor command configured in cfg.
// Unconfigured roles are left out.
func Binaries(cfg *config.Config, resolver *binpath.Resolver) []Binary {
	var out []Binary
	add := func(role, name string, bundled bool) {
		if name == "" {
			return
		}
		b := Binary{Role: role, Name: name}
		if bundled {
			b.Path, b.Found = resolver.LookupBundled(name)
		} else {
			b.Path, b.Found = resolver.Lookup(name)
		}
		out = append(out, b)
	}

	add("oracle", cfg.Tools.Oracle, false)
	add("tokenizer", cfg.Tools.Tokenizer, true)
	add("semantic_query", cfg.Tools.SemanticQuery, false)
	for _, p := range []struct{ role, line string }{
		{"relevance", cfg.Predictors.Relevance},
		{"next_token", cfg.Predictors.NextToken},
		{"ident_guesser", cfg.Predictors.IdentGuesser},
	} {
		if args, err := config.SplitCommand(p.line); err == nil && len(args) > 0 {
			add(p.role, args[0], false)
		}
	}
	return out
}
