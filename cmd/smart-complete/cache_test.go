package main

import (
	"path/filepath"
	"testing"

	"github.com/randalmurphy/smart-complete/internal/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClearPatterns(t *testing.T) {
	all, err := clearPatterns(nil)
	require.NoError(t, err)
	assert.Equal(t, []string{cache.OraclePattern, cache.QueryPattern}, all)

	abs, err := filepath.Abs("main.go")
	require.NoError(t, err)

	one, err := clearPatterns([]string{"main.go"})
	require.NoError(t, err)
	assert.Equal(t, []string{cache.QueryFilePattern(abs)}, one)
}
