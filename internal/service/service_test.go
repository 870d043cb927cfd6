package service

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphy/smart-complete/internal/config"
	"github.com/randalmurphy/smart-complete/internal/engine"
	"github.com/randalmurphy/smart-complete/internal/metrics"
	"github.com/randalmurphy/smart-complete/internal/tools"
)

// isolatedConfig points every tool at names that cannot resolve.
func isolatedConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("PATH", t.TempDir())

	cfg := config.DefaultConfig()
	cfg.Tools.Oracle = "gocode-missing"
	cfg.Tools.Tokenizer = "tokenizer-missing"
	cfg.Tools.SemanticQuery = "guru-missing"
	cfg.Metrics.Path = filepath.Join(t.TempDir(), "metrics.jsonl")
	return cfg
}

func TestNewWithoutTools(t *testing.T) {
	cfg := isolatedConfig(t)
	cfg.Predictors.NextToken = "no-such-model --number 10"

	svc, err := New(cfg, "", nil)
	require.NoError(t, err)
	defer svc.Close()

	assert.Empty(t, svc.predictors)

	_, err = svc.Complete(context.Background(), engine.Request{File: "main.go", Text: "x := ", Offset: 5})
	require.Error(t, err)
	assert.True(t, errors.Is(err, tools.ErrUnavailable))
}

func TestNewLogsUnparsablePredictorCommand(t *testing.T) {
	cfg := isolatedConfig(t)
	cfg.Predictors.Relevance = `model "unterminated`

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	svc, err := New(cfg, "", logger)
	require.NoError(t, err)
	defer svc.Close()

	assert.Empty(t, svc.predictors)
	assert.Contains(t, buf.String(), "predictor unavailable")
	assert.Contains(t, buf.String(), "predictor=relevance")
	assert.Contains(t, buf.String(), "invalid command")
}

func TestWorkspaceFilterRecordsPrefilter(t *testing.T) {
	cfg := isolatedConfig(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.WorkspaceFile),
		[]byte("smart-complete:\n  include:\n    - \"**/*.go\"\n"), 0644))

	svc, err := New(cfg, dir, nil)
	require.NoError(t, err)

	res, err := svc.Complete(context.Background(), engine.Request{
		File:   filepath.Join(dir, "notes.txt"),
		Text:   "x := ",
		Offset: 5,
	})
	require.NoError(t, err)
	assert.Equal(t, metrics.SourcePrefilter, res.Source)
	assert.Empty(t, res.Candidates)
	require.NoError(t, svc.Close())

	summary, err := metrics.NewAnalyzer(cfg.Metrics.Path).Analyze(time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.TotalCompletions)
	assert.Equal(t, 1, summary.CompletionsBySrc[metrics.SourcePrefilter])
}

func TestPredictorProcessStarts(t *testing.T) {
	cat, err := exec.LookPath("cat")
	if err != nil {
		t.Skip("cat not available")
	}

	cfg := isolatedConfig(t)
	cfg.Predictors.Relevance = cat

	svc, err := New(cfg, "", nil)
	require.NoError(t, err)

	require.Len(t, svc.predictors, 1)
	p := svc.predictors[0]
	assert.Equal(t, "relevance", p.name)
	assert.True(t, p.alive())

	got, ok := p.Send(context.Background(), "err,error,errors")
	require.True(t, ok)
	assert.Equal(t, "err,error,errors", got)

	require.NoError(t, svc.Close())
	assert.False(t, p.alive())
}

func TestBinaries(t *testing.T) {
	cfg := isolatedConfig(t)
	bin := t.TempDir()
	cfg.Tools.BinDir = bin
	require.NoError(t, os.WriteFile(filepath.Join(bin, "gocode-missing"), []byte("#!/bin/sh\n"), 0755))
	cfg.Predictors.IdentGuesser = "python3 rnn/infer_ids.py"

	got := Binaries(cfg, NewResolver(cfg))

	byRole := make(map[string]Binary)
	for _, b := range got {
		byRole[b.Role] = b
	}
	require.Len(t, byRole, 4)
	assert.True(t, byRole["oracle"].Found)
	assert.Equal(t, filepath.Join(bin, "gocode-missing"), byRole["oracle"].Path)
	assert.False(t, byRole["tokenizer"].Found)
	assert.False(t, byRole["semantic_query"].Found)
	assert.Equal(t, "python3", byRole["ident_guesser"].Name)
	assert.NotContains(t, byRole, "relevance")
}
