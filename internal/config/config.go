// internal/config/config.go
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/kballard/go-shellquote"
	"github.com/randalmurphy/smart-complete/internal/filematch"
	"gopkg.in/yaml.v3"
)

// WorkspaceFile is the per-workspace configuration file name.
const WorkspaceFile = ".smart-complete.yaml"

// Config holds global configuration
type Config struct {
	Tools      ToolsConfig      `yaml:"tools"`
	Predictors PredictorsConfig `yaml:"predictors"`
	Ranking    RankingConfig    `yaml:"ranking"`
	Cache      CacheConfig      `yaml:"cache"`
	Logging    LoggingConfig    `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

type ToolsConfig struct {
	Oracle        string        `yaml:"oracle"`         // "gocode"
	Tokenizer     string        `yaml:"tokenizer"`      // bundled, platform suffixed
	SemanticQuery string        `yaml:"semantic_query"` // "guru"
	BinDir        string        `yaml:"bin_dir"`        // where bundled tools live
	Timeout       time.Duration `yaml:"tool_timeout"`
}

// PredictorsConfig holds the command lines of the long-lived model processes.
// Each command is shell-quoted, e.g. `python3 rnn/infer_toks.py --model toks.hdf --number 10`.
type PredictorsConfig struct {
	Relevance    string        `yaml:"relevance"`
	NextToken    string        `yaml:"next_token"`
	IdentGuesser string        `yaml:"ident_guesser"`
	Timeout      time.Duration `yaml:"timeout"`

	// RestartInterval is how often the server checks for predictor
	// processes that exited and restarts them. Zero disables restarts.
	RestartInterval time.Duration `yaml:"restart_interval"`
}

type RankingConfig struct {
	GuessThreshold         float64 `yaml:"guess_threshold"`
	ConfidenceThreshold    float64 `yaml:"confidence_threshold"`
	MaxInFlightPerDocument int     `yaml:"max_in_flight_per_document"`
}

type CacheConfig struct {
	RedisURL string        `yaml:"redis_url"` // empty disables caching
	TTL      time.Duration `yaml:"ttl"`
}

type LoggingConfig struct {
	Level string `yaml:"level"` // error|warn|info|debug
	File  string `yaml:"file"`
}

type MetricsConfig struct {
	Path string `yaml:"path"` // JSONL event log, empty disables
}

// WorkspaceConfig holds per-workspace configuration
type WorkspaceConfig struct {
	Include []string `yaml:"include"`
	Exclude []string `yaml:"exclude"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Tools: ToolsConfig{
			Oracle:        "gocode",
			Tokenizer:     "tokenizer",
			SemanticQuery: "guru",
			Timeout:       5 * time.Second,
		},
		Predictors: PredictorsConfig{
			Timeout:         2 * time.Second,
			RestartInterval: 30 * time.Second,
		},
		Ranking: RankingConfig{
			GuessThreshold:         0.4,
			ConfidenceThreshold:    0.3,
			MaxInFlightPerDocument: 2,
		},
		Cache: CacheConfig{
			TTL: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Metrics: MetricsConfig{
			Path: DefaultMetricsPath(),
		},
	}
}

// LoadConfig loads config from file or returns defaults
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Use defaults
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the values that would otherwise break ranking silently.
func (c *Config) Validate() error {
	if c.Tools.Oracle == "" {
		return fmt.Errorf("tools.oracle must be set")
	}
	if c.Tools.Tokenizer == "" {
		return fmt.Errorf("tools.tokenizer must be set")
	}
	if c.Ranking.ConfidenceThreshold < 0 || c.Ranking.ConfidenceThreshold > 1 {
		return fmt.Errorf("ranking.confidence_threshold out of range: %v", c.Ranking.ConfidenceThreshold)
	}
	if c.Ranking.MaxInFlightPerDocument < 1 {
		return fmt.Errorf("ranking.max_in_flight_per_document must be positive")
	}
	for name, line := range map[string]string{
		"relevance":     c.Predictors.Relevance,
		"next_token":    c.Predictors.NextToken,
		"ident_guesser": c.Predictors.IdentGuesser,
	} {
		if _, err := SplitCommand(line); err != nil {
			return fmt.Errorf("predictors.%s: %w", name, err)
		}
	}
	return nil
}

// SplitCommand splits a shell-quoted command line into its arguments.
// An empty line yields no arguments and no error.
func SplitCommand(line string) ([]string, error) {
	args, err := shellquote.Split(line)
	if err != nil {
		return nil, fmt.Errorf("invalid command %q: %w", line, err)
	}
	return args, nil
}

// DefaultPath returns ~/.config/smart-complete/config.yaml, or a file in the
// current directory when the home directory is unknown.
func DefaultPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".smart-complete-config.yaml"
	}
	return filepath.Join(homeDir, ".config", "smart-complete", "config.yaml")
}

// DefaultMetricsPath returns ~/.local/share/smart-complete/metrics.jsonl.
func DefaultMetricsPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(homeDir, ".local", "share", "smart-complete", "metrics.jsonl")
}

// SlogLevel maps the configured level name to a slog level. Unknown names
// mean info.
func (l LoggingConfig) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LoadWorkspaceConfig loads .smart-complete.yaml from the workspace root.
func LoadWorkspaceConfig(root string) (*WorkspaceConfig, error) {
	data, err := os.ReadFile(filepath.Join(root, WorkspaceFile))
	if err != nil {
		return nil, err
	}

	var wrapper struct {
		SmartComplete WorkspaceConfig `yaml:"smart-complete"`
	}

	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, err
	}

	ws := &wrapper.SmartComplete
	if p, ok := filematch.ValidatePatterns(slices.Concat(ws.Include, ws.Exclude)); !ok {
		return nil, fmt.Errorf("%s: invalid pattern %q", WorkspaceFile, p)
	}

	return ws, nil
}

// FindWorkspaceConfig walks up from dir looking for a workspace file.
// It returns nil when none is found.
func FindWorkspaceConfig(dir string) (*WorkspaceConfig, string) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, ""
	}
	for {
		if cfg, err := LoadWorkspaceConfig(dir); err == nil {
			return cfg, dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, ""
		}
		dir = parent
	}
}
