// cmd/smart-complete/init.go
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/randalmurphy/smart-complete/internal/config"
	"github.com/randalmurphy/smart-complete/internal/filematch"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var initCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Create a workspace file restricting which files get completions",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runInit,
}

var (
	initIncludes []string
	initExcludes []string
)

func init() {
	initCmd.Flags().StringSliceVar(&initIncludes, "include", filematch.DefaultIncludes, "Glob patterns of files to complete")
	initCmd.Flags().StringSliceVar(&initExcludes, "exclude", nil, "Glob patterns of files to skip")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	dir := "."
	if len(args) == 1 {
		dir = args[0]
	}

	absPath, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}

	if _, err := os.Stat(absPath); os.IsNotExist(err) {
		return fmt.Errorf("path does not exist: %s", absPath)
	}

	configPath := filepath.Join(absPath, config.WorkspaceFile)
	if _, err := os.Stat(configPath); err == nil {
		fmt.Printf("Config already exists at %s\n", configPath)
		return nil
	}

	if p, ok := filematch.ValidatePatterns(append(append([]string{}, initIncludes...), initExcludes...)); !ok {
		return fmt.Errorf("invalid pattern %q", p)
	}

	ws := map[string]config.WorkspaceConfig{
		"smart-complete": {
			Include: initIncludes,
			Exclude: initExcludes,
		},
	}

	data, err := yaml.Marshal(ws)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	matched := 0
	m := filematch.NewMatcher(absPath, initIncludes, initExcludes)
	if err := m.Walk(func(string) error {
		matched++
		return nil
	}); err != nil {
		return fmt.Errorf("failed to scan %s: %w", absPath, err)
	}

	fmt.Printf("Created %s\n", configPath)
	fmt.Printf("  %d files will get completions\n", matched)
	return nil
}
