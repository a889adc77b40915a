package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePositionalConfigPath(t *testing.T) {
	var out bytes.Buffer

	cfg, exit, err := Parse([]string{"grid.hcl"}, &out)

	require.NoError(t, err)
	assert.False(t, exit)
	assert.Equal(t, "grid.hcl", cfg.ConfigPath)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestParseAllOptions(t *testing.T) {
	var out bytes.Buffer

	cfg, exit, err := Parse([]string{
		"-config", "conf/",
		"-file", "bench/map.js",
		"-shared", "1/3",
		"-pattern", "create.*",
		"-builder", "^esbuild$",
		"-executor", "node",
		"-out", "result.json",
		"-diff", "prev.json",
		"-log-format", "json",
		"-log-level", "debug",
		"-no-color",
	}, &out)

	require.NoError(t, err)
	assert.False(t, exit)
	assert.Equal(t, "conf/", cfg.ConfigPath)
	assert.Equal(t, "bench/map.js", cfg.File)
	assert.Equal(t, "1/3", cfg.Shared)
	assert.Equal(t, "create.*", cfg.Pattern)
	assert.Equal(t, "^esbuild$", cfg.BuilderFilter)
	assert.Equal(t, "node", cfg.ExecutorFilter)
	assert.Equal(t, "result.json", cfg.OutPath)
	assert.Equal(t, "prev.json", cfg.DiffPath)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.NoColor)
}

func TestParseShorthandConfigFlag(t *testing.T) {
	var out bytes.Buffer

	cfg, _, err := Parse([]string{"-c", "grid.hcl"}, &out)

	require.NoError(t, err)
	assert.Equal(t, "grid.hcl", cfg.ConfigPath)
}

func TestParseNoArgsPrintsUsage(t *testing.T) {
	var out bytes.Buffer

	cfg, exit, err := Parse(nil, &out)

	require.NoError(t, err)
	assert.True(t, exit)
	assert.Nil(t, cfg)
	assert.Contains(t, out.String(), "Usage:")
}

func TestParseHelpFlag(t *testing.T) {
	var out bytes.Buffer

	cfg, exit, err := Parse([]string{"-h"}, &out)

	require.NoError(t, err)
	assert.True(t, exit)
	assert.Nil(t, cfg)
}

func TestParseRejectsInvalidValues(t *testing.T) {
	tests := [][]string{
		{"-log-format", "xml", "grid.hcl"},
		{"-log-level", "loud", "grid.hcl"},
		{"-builder", "(unclosed", "grid.hcl"},
		{"-shared", "0/3", "grid.hcl"},
		{"-unknown-flag", "grid.hcl"},
	}
	for _, args := range tests {
		var out bytes.Buffer
		_, _, err := Parse(args, &out)

		require.Error(t, err, "args %v", args)
		var exitErr *ExitError
		require.ErrorAs(t, err, &exitErr, "args %v", args)
		assert.Equal(t, 2, exitErr.Code, "args %v", args)
	}
}
