package config

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/benchgrid/internal/ctxlog"
	"github.com/vk/benchgrid/internal/errs"
)

// hclFile mirrors the top-level structure of one configuration file.
type hclFile struct {
	Builders   []*ToolBlock `hcl:"builder,block"`
	Executors  []*ToolBlock `hcl:"executor,block"`
	Toolchains []*Toolchain `hcl:"toolchain,block"`
	Report     *Report      `hcl:"report,block"`
}

// Load parses the configuration at path, which is either a single .hcl file
// or a directory scanned for .hcl files, merges all blocks into one Model
// and validates it.
func Load(ctx context.Context, path string) (*Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Loading configuration.", "path", path)

	files, err := findConfigFiles(path)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, errs.Configf("no .hcl configuration files found at %s", path)
	}

	evalCtx := EvalContext()
	parser := hclparse.NewParser()
	model := &Model{}
	for _, file := range files {
		parsed, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, errs.Configf("failed to parse %s: %s", file, diags.Error())
		}
		var decoded hclFile
		if diags := gohcl.DecodeBody(parsed.Body, evalCtx, &decoded); diags.HasErrors() {
			return nil, errs.Configf("failed to decode %s: %s", file, diags.Error())
		}
		model.Builders = append(model.Builders, decoded.Builders...)
		model.Executors = append(model.Executors, decoded.Executors...)
		model.Toolchains = append(model.Toolchains, decoded.Toolchains...)
		if decoded.Report != nil {
			if model.Report != nil {
				return nil, errs.Configf("%s: duplicate report block, only one is allowed per run", file)
			}
			model.Report = decoded.Report
		}
	}

	if err := model.Validate(); err != nil {
		return nil, err
	}
	logger.Debug("Configuration loaded.",
		"builders", len(model.Builders),
		"executors", len(model.Executors),
		"toolchains", len(model.Toolchains))
	return model, nil
}

// findConfigFiles returns path itself for a file, or every .hcl file
// directly inside it for a directory, sorted for deterministic merging.
func findConfigFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errs.Configf("cannot read configuration path %s: %v", path, err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("read config directory %s: %w", path, err)
	}
	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".hcl") {
			files = append(files, path+string(os.PathSeparator)+entry.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

// EvalContext builds the expression context available to configuration
// attributes. Currently it exposes `env`, a string map of the process
// environment, so executor commands and URLs can be parameterized.
func EvalContext() *hcl.EvalContext {
	envMap := make(map[string]cty.Value)
	for _, kv := range os.Environ() {
		if i := strings.IndexByte(kv, '='); i > 0 {
			envMap[kv[:i]] = cty.StringVal(kv[i+1:])
		}
	}
	env := cty.MapValEmpty(cty.String)
	if len(envMap) > 0 {
		env = cty.MapVal(envMap)
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{"env": env},
	}
}
