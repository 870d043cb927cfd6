// cmd/smart-complete/which.go
package main

import (
	"encoding/json"
	"fmt"

	"github.com/randalmurphy/smart-complete/internal/service"
	"github.com/spf13/cobra"
)

var whichCmd = &cobra.Command{
	Use:   "which",
	Short: "Show where each configured tool resolves",
	RunE:  runWhich,
}

var whichJSON bool

func init() {
	whichCmd.Flags().BoolVar(&whichJSON, "json", false, "Output as JSON")
	rootCmd.AddCommand(whichCmd)
}

func runWhich(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	bins := service.Binaries(cfg, service.NewResolver(cfg))

	if whichJSON {
		data, _ := json.MarshalIndent(bins, "", "  ")
		fmt.Println(string(data))
	} else {
		fmt.Println("Tools:")
		for _, b := range bins {
			where := b.Path
			if !b.Found {
				where = "NOT FOUND"
			}
			fmt.Printf("  %-15s %-20s %s\n", b.Role, b.Name, where)
		}
	}

	for _, b := range bins {
		if !b.Found && (b.Role == "oracle" || b.Role == "tokenizer") {
			return fmt.Errorf("%s %q not found; completions will fail", b.Role, b.Name)
		}
	}
	return nil
}
