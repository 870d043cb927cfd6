// cmd/smart-complete/cache.go
package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/randalmurphy/smart-complete/internal/cache"
	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the Redis response cache",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear [file]",
	Short: "Drop cached oracle and semantic-query responses",
	Long: `Drop cached tool responses. With a file, only the semantic-query
entries for that file are dropped; oracle entries are keyed by content and
are left alone.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCacheClear,
}

func init() {
	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Cache.RedisURL == "" {
		return fmt.Errorf("no cache configured (cache.redis_url is empty)")
	}

	rc, err := cache.NewRedisCache(cfg.Cache.RedisURL)
	if err != nil {
		return err
	}
	defer rc.Close()

	patterns, err := clearPatterns(args)
	if err != nil {
		return err
	}

	ctx := context.Background()
	total := 0
	for _, p := range patterns {
		n, err := rc.DeletePattern(ctx, p)
		total += n
		if err != nil {
			return fmt.Errorf("clear %s: %w", p, err)
		}
	}

	fmt.Printf("Removed %d cached responses\n", total)
	return nil
}

// clearPatterns returns the key patterns `cache clear` removes.
func clearPatterns(args []string) ([]string, error) {
	if len(args) == 0 {
		return []string{cache.OraclePattern, cache.QueryPattern}, nil
	}
	file, err := filepath.Abs(args[0])
	if err != nil {
		return nil, fmt.Errorf("invalid file: %w", err)
	}
	return []string{cache.QueryFilePattern(file)}, nil
}
