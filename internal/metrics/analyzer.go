package metrics

import (
	"bufio"
	"encoding/json"
	"os"
	"sort"
	"time"
)

// Analyzer processes metrics logs.
type Analyzer struct {
	logPath string
}

// NewAnalyzer creates a new analyzer.
func NewAnalyzer(logPath string) *Analyzer {
	return &Analyzer{logPath: logPath}
}

// Summary contains aggregated metrics.
type Summary struct {
	Period           string         `json:"period"`
	TotalCompletions int            `json:"total_completions"`
	CompletionsBySrc map[string]int `json:"completions_by_source"`
	AvgLatencyMs     int64          `json:"avg_latency_ms"`
	EmptyResultCount int            `json:"empty_result_count"`
	SupersededCount  int            `json:"superseded_count"`
	FallbacksByStage map[string]int `json:"fallbacks_by_stage"`
	Errors           int            `json:"errors"`
	TopFiles         []FileCount    `json:"top_files"`
}

// FileCount represents a file with its count.
type FileCount struct {
	File  string `json:"file"`
	Count int    `json:"count"`
}

// scan calls fn for every event newer than since.
func (a *Analyzer) scan(since time.Duration, fn func(eventType string, event map[string]interface{})) error {
	file, err := os.Open(a.logPath)
	if err != nil {
		return err
	}
	defer file.Close()

	cutoff := time.Now().Add(-since)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var event map[string]interface{}
		if err := json.Unmarshal(scanner.Bytes(), &event); err != nil {
			continue
		}

		tsStr, ok := event["ts"].(string)
		if !ok {
			continue
		}
		ts, err := time.Parse(time.RFC3339, tsStr)
		if err != nil || ts.Before(cutoff) {
			continue
		}

		eventType, _ := event["event"].(string)
		fn(eventType, event)
	}
	return scanner.Err()
}

// Analyze processes logs for a time period.
func (a *Analyzer) Analyze(since time.Duration) (*Summary, error) {
	summary := &Summary{
		Period:           since.String(),
		CompletionsBySrc: make(map[string]int),
		FallbacksByStage: make(map[string]int),
	}

	fileCounts := make(map[string]int)
	var totalLatency int64
	var latencyCount int

	err := a.scan(since, func(eventType string, event map[string]interface{}) {
		switch eventType {
		case "completion":
			summary.TotalCompletions++

			if src, ok := event["source"].(string); ok {
				summary.CompletionsBySrc[src]++
			}

			if n, ok := event["candidates"].(float64); ok && n == 0 {
				summary.EmptyResultCount++
			}

			if latency, ok := event["latency_ms"].(float64); ok {
				totalLatency += int64(latency)
				latencyCount++
			}

			if superseded, ok := event["superseded"].(bool); ok && superseded {
				summary.SupersededCount++
			}

			if file, ok := event["file"].(string); ok && file != "" {
				fileCounts[file]++
			}
		case "fallback":
			if stage, ok := event["stage"].(string); ok {
				summary.FallbacksByStage[stage]++
			}
		case "error":
			summary.Errors++
		}
	})
	if err != nil {
		return nil, err
	}

	if latencyCount > 0 {
		summary.AvgLatencyMs = totalLatency / int64(latencyCount)
	}

	summary.TopFiles = topCounts(fileCounts, 10)
	return summary, nil
}

// EmptyResultFiles returns the files whose completions came back empty,
// most frequent first.
func (a *Analyzer) EmptyResultFiles(since time.Duration) ([]FileCount, error) {
	counts := make(map[string]int)

	err := a.scan(since, func(eventType string, event map[string]interface{}) {
		if eventType != "completion" {
			return
		}
		if n, _ := event["candidates"].(float64); n == 0 {
			file, _ := event["file"].(string)
			counts[file]++
		}
	})
	if err != nil {
		return nil, err
	}

	return topCounts(counts, 0), nil
}

// topCounts sorts counts descending; limit 0 keeps everything.
func topCounts(counts map[string]int, limit int) []FileCount {
	var result []FileCount
	for f, c := range counts {
		result = append(result, FileCount{File: f, Count: c})
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].File < result[j].File
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result
}
