// cmd/smart-complete/complete.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/randalmurphy/smart-complete/internal/engine"
	"github.com/randalmurphy/smart-complete/internal/service"
	"github.com/spf13/cobra"
)

var completeCmd = &cobra.Command{
	Use:   "complete <file>",
	Short: "Print the ranked completions at an offset",
	Args:  cobra.ExactArgs(1),
	RunE:  runComplete,
}

var (
	completeOffset int
	completeJSON   bool
)

func init() {
	completeCmd.Flags().IntVar(&completeOffset, "offset", -1, "Byte offset of the cursor (defaults to end of file)")
	completeCmd.Flags().BoolVar(&completeJSON, "json", false, "Output as JSON")
	rootCmd.AddCommand(completeCmd)
}

func runComplete(cmd *cobra.Command, args []string) error {
	path, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}

	text, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	offset := completeOffset
	if offset < 0 {
		offset = len(text)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	svc, err := service.New(cfg, filepath.Dir(path), logger)
	if err != nil {
		return fmt.Errorf("failed to start completion service: %w", err)
	}
	defer svc.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res, err := svc.Complete(ctx, engine.Request{File: path, Text: string(text), Offset: offset})
	if err != nil {
		return err
	}

	if completeJSON {
		data, _ := json.MarshalIndent(res, "", "  ")
		fmt.Println(string(data))
		return nil
	}

	fmt.Printf("Completions (%s, %d):\n\n", res.Source, len(res.Candidates))
	if len(res.Candidates) == 0 {
		fmt.Println("  No completions.")
	}
	for _, c := range res.Candidates {
		fmt.Printf("  %s  %-24s %-10s %s\n", c.SortText, c.Label, c.Kind, c.Detail)
	}
	return nil
}
