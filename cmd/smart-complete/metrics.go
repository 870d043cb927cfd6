package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/randalmurphy/smart-complete/internal/metrics"
	"github.com/spf13/cobra"
)

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Analyze completion metrics",
	Long:  `Analyze completion events from the metrics log.`,
	RunE:  runMetrics,
}

var (
	metricsSince        string
	metricsEmptyResults bool
	metricsJSON         bool
)

func init() {
	metricsCmd.Flags().StringVar(&metricsSince, "last", "7d", "Time period (e.g., 1h, 24h, 7d, 30d)")
	metricsCmd.Flags().BoolVar(&metricsEmptyResults, "empty-results", false, "Show only files with empty completion lists")
	metricsCmd.Flags().BoolVar(&metricsJSON, "json", false, "Output as JSON")
	rootCmd.AddCommand(metricsCmd)
}

func runMetrics(cmd *cobra.Command, args []string) error {
	duration, err := parseDuration(metricsSince)
	if err != nil {
		return fmt.Errorf("invalid time period: %w", err)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	metricsPath := cfg.Metrics.Path
	if metricsPath == "" {
		fmt.Println("Metrics are disabled (metrics.path is empty).")
		return nil
	}
	if _, err := os.Stat(metricsPath); os.IsNotExist(err) {
		fmt.Println("No metrics data found. Request some completions to generate metrics.")
		return nil
	}

	analyzer := metrics.NewAnalyzer(metricsPath)

	if metricsEmptyResults {
		files, err := analyzer.EmptyResultFiles(duration)
		if err != nil {
			return err
		}

		if metricsJSON {
			data, _ := json.MarshalIndent(files, "", "  ")
			fmt.Println(string(data))
		} else {
			fmt.Printf("Files with empty completions (last %s):\n\n", metricsSince)
			if len(files) == 0 {
				fmt.Println("  None.")
			}
			for _, f := range files {
				fmt.Printf("  - %s (%d times)\n", f.File, f.Count)
			}
		}
		return nil
	}

	summary, err := analyzer.Analyze(duration)
	if err != nil {
		return err
	}

	if metricsJSON {
		data, _ := json.MarshalIndent(summary, "", "  ")
		fmt.Println(string(data))
	} else {
		fmt.Printf("Metrics Summary (last %s):\n\n", metricsSince)
		fmt.Printf("  Total completions:   %d\n", summary.TotalCompletions)
		fmt.Printf("  Avg latency:         %dms\n", summary.AvgLatencyMs)
		fmt.Printf("  Empty results:       %d\n", summary.EmptyResultCount)
		fmt.Printf("  Superseded:          %d\n", summary.SupersededCount)
		fmt.Printf("  Errors:              %d\n", summary.Errors)
		fmt.Println()
		if len(summary.CompletionsBySrc) > 0 {
			fmt.Println("  Completions by source:")
			for src, c := range summary.CompletionsBySrc {
				fmt.Printf("    - %s: %d\n", src, c)
			}
			fmt.Println()
		}
		if len(summary.FallbacksByStage) > 0 {
			fmt.Println("  Fallbacks by stage:")
			for stage, c := range summary.FallbacksByStage {
				fmt.Printf("    - %s: %d\n", stage, c)
			}
			fmt.Println()
		}
		if len(summary.TopFiles) > 0 {
			fmt.Println("  Top files:")
			for _, f := range summary.TopFiles {
				fmt.Printf("    - %s (%d times)\n", f.File, f.Count)
			}
		}
	}

	return nil
}

func parseDuration(s string) (time.Duration, error) {
	// Handle day suffix
	if len(s) > 0 && s[len(s)-1] == 'd' {
		days := s[:len(s)-1]
		var d int
		if _, err := fmt.Sscanf(days, "%d", &d); err == nil {
			return time.Duration(d) * 24 * time.Hour, nil
		}
	}
	return time.ParseDuration(s)
}
