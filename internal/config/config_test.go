package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/benchgrid/internal/errs"
)

const fullConfig = `
builder "copy" "esbuild" {
}

executor "process" "node" {
  command = "node"
}

toolchain {
  include = ["bench/**/*.js"]
}

report {
  stdev       = true
  percentiles = [50, 99]
  outliers    = "all"
  ratio_style = "percentage"

  baseline {
    type  = "Name"
    value = "A"
  }
}
`

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadSingleFile(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "grid.hcl", fullConfig)

	model, err := Load(context.Background(), path)
	require.NoError(t, err)

	require.Len(t, model.Builders, 1)
	assert.Equal(t, "copy", model.Builders[0].Type)
	assert.Equal(t, "esbuild", model.Builders[0].Name)

	require.Len(t, model.Executors, 1)
	assert.Equal(t, "process", model.Executors[0].Type)

	require.Len(t, model.Toolchains, 1)
	assert.Equal(t, []string{"bench/**/*.js"}, model.Toolchains[0].Include)

	require.NotNil(t, model.Report)
	assert.True(t, model.Report.Stdev)
	assert.Equal(t, []int{50, 99}, model.Report.Percentiles)
	assert.Equal(t, "percentage", model.Report.RatioStyle)
	require.NotNil(t, model.Report.Baseline)
	assert.Equal(t, "Name", model.Report.Baseline.Type)
	assert.Equal(t, "A", model.Report.Baseline.Value)
}

func TestLoadDirectoryMergesFiles(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "tools.hcl", `
builder "copy" "esbuild" {
}

executor "process" "node" {
  command = "node"
}
`)
	writeConfig(t, dir, "chains.hcl", `
toolchain {
  include = ["bench/*.js"]
}
`)
	writeConfig(t, dir, "notes.txt", "ignored")

	model, err := Load(context.Background(), dir)
	require.NoError(t, err)
	assert.Len(t, model.Builders, 1)
	assert.Len(t, model.Toolchains, 1)
	assert.Nil(t, model.Report)
}

func TestLoadRejectsDuplicateReportBlocks(t *testing.T) {
	dir := t.TempDir()
	base := `
builder "copy" "esbuild" {
}

executor "process" "node" {
  command = "node"
}

toolchain {
  include = ["bench/*.js"]
}

report {
}
`
	writeConfig(t, dir, "a.hcl", base)
	writeConfig(t, dir, "b.hcl", `
report {
  stdev = true
}
`)

	_, err := Load(context.Background(), dir)

	require.Error(t, err)
	assert.True(t, errs.IsKind(err, errs.KindConfig))
	assert.ErrorContains(t, err, "duplicate report block")
}

func TestLoadResolvesEnvVariables(t *testing.T) {
	t.Setenv("BENCH_CMD", "node22")
	path := writeConfig(t, t.TempDir(), "grid.hcl", `
builder "copy" "esbuild" {
}

executor "process" "node" {
  command = env.BENCH_CMD
}

toolchain {
  include = ["bench/*.js"]
}
`)

	model, err := Load(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, model.Executors, 1)
}

func TestLoadMissingPathFails(t *testing.T) {
	_, err := Load(context.Background(), filepath.Join(t.TempDir(), "absent.hcl"))

	require.Error(t, err)
	assert.True(t, errs.IsKind(err, errs.KindConfig))
}

func TestValidateRequiresToolchains(t *testing.T) {
	m := &Model{
		Builders:  []*ToolBlock{{Type: "copy", Name: "esbuild"}},
		Executors: []*ToolBlock{{Type: "process", Name: "node"}},
	}

	err := m.Validate()

	require.Error(t, err)
	assert.ErrorContains(t, err, "no toolchains")
}

func TestValidateRejectsDuplicateToolNames(t *testing.T) {
	m := &Model{
		Builders:   []*ToolBlock{{Type: "copy", Name: "x"}},
		Executors:  []*ToolBlock{{Type: "process", Name: "x"}},
		Toolchains: []*Toolchain{{Include: []string{"*"}}},
	}

	err := m.Validate()

	require.Error(t, err)
	assert.ErrorContains(t, err, "declared twice")
}

func TestValidateRejectsUnknownReferences(t *testing.T) {
	m := &Model{
		Builders:   []*ToolBlock{{Type: "copy", Name: "esbuild"}},
		Executors:  []*ToolBlock{{Type: "process", Name: "node"}},
		Toolchains: []*Toolchain{{Include: []string{"*"}, Builders: []string{"rollup"}}},
	}

	err := m.Validate()

	require.Error(t, err)
	assert.ErrorContains(t, err, "unknown builder")
}

func TestValidateRejectsEmptyInclude(t *testing.T) {
	m := &Model{
		Builders:   []*ToolBlock{{Type: "copy", Name: "esbuild"}},
		Executors:  []*ToolBlock{{Type: "process", Name: "node"}},
		Toolchains: []*Toolchain{{}},
	}

	err := m.Validate()

	require.Error(t, err)
	assert.ErrorContains(t, err, "empty include")
}

func TestToolSelectionDefaultsToAll(t *testing.T) {
	m := &Model{
		Builders: []*ToolBlock{
			{Type: "copy", Name: "esbuild"},
			{Type: "copy", Name: "rollup"},
		},
		Executors: []*ToolBlock{{Type: "process", Name: "node"}},
	}

	all := m.BuildersOf(&Toolchain{})
	assert.Len(t, all, 2)

	one := m.BuildersOf(&Toolchain{Builders: []string{"rollup"}})
	require.Len(t, one, 1)
	assert.Equal(t, "rollup", one[0].Name)

	execs := m.ExecutorsOf(&Toolchain{})
	assert.Len(t, execs, 1)
}
