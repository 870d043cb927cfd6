// cmd/smart-complete/tokens.go
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/randalmurphy/smart-complete/internal/service"
	"github.com/spf13/cobra"
)

var tokensCmd = &cobra.Command{
	Use:   "tokens <file>",
	Short: "Print the token stream the models see at an offset",
	Args:  cobra.ExactArgs(1),
	RunE:  runTokens,
}

var (
	tokensOffset int
	tokensFull   bool
)

func init() {
	tokensCmd.Flags().IntVar(&tokensOffset, "offset", -1, "Byte offset of the cursor (defaults to end of file)")
	tokensCmd.Flags().BoolVar(&tokensFull, "full", false, "Keep identifiers instead of eliding them")
	rootCmd.AddCommand(tokensCmd)
}

func runTokens(cmd *cobra.Command, args []string) error {
	text, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", args[0], err)
	}

	offset := tokensOffset
	if offset < 0 || offset > len(text) {
		offset = len(text)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	tokenizer := service.NewTokenizer(cfg, service.NewResolver(cfg))
	stream, err := tokenizer.Tokenize(context.Background(), string(text), offset, tokensFull)
	if err != nil {
		return err
	}

	fmt.Println(stream)
	return nil
}
