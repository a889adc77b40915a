// Package config defines the declarative model of a benchmark run: tool
// definitions, toolchain specs and report options, loaded from HCL files.
package config

import (
	"github.com/hashicorp/hcl/v2"

	"github.com/vk/benchgrid/internal/errs"
)

// Model is the merged configuration of one run, aggregated from every
// loaded HCL file.
type Model struct {
	Builders   []*ToolBlock
	Executors  []*ToolBlock
	Toolchains []*Toolchain
	Report     *Report
}

// ToolBlock declares one builder or executor instance:
// `builder "<type>" "<name>" { ...options... }`. Options are left as a raw
// body for the owning module to decode against its own schema.
type ToolBlock struct {
	Type    string   `hcl:"type,label"`
	Name    string   `hcl:"name,label"`
	Options hcl.Body `hcl:",remain"`
}

// Toolchain pairs include patterns with the builders and executors that
// should process them. Empty Builders or Executors means "all defined".
type Toolchain struct {
	Include   []string `hcl:"include"`
	Builders  []string `hcl:"builders,optional"`
	Executors []string `hcl:"executors,optional"`
}

// Report holds the statistical report options.
type Report struct {
	Stdev       bool           `hcl:"stdev,optional"`
	Percentiles []int          `hcl:"percentiles,optional"`
	Outliers    string         `hcl:"outliers,optional"`
	RatioStyle  string         `hcl:"ratio_style,optional"`
	ShowSingle  bool           `hcl:"show_single,optional"`
	FlexUnit    bool           `hcl:"flex_unit,optional"`
	Baseline    *BaselineBlock `hcl:"baseline,block"`
}

// BaselineBlock designates the reference row for ratio columns.
type BaselineBlock struct {
	Type  string `hcl:"type"`
	Value string `hcl:"value"`
}

// Validate checks the structural invariants the rest of the system relies
// on. It is called once after loading, before any build or run starts.
func (m *Model) Validate() error {
	if len(m.Toolchains) == 0 {
		return errs.Config("no toolchains defined")
	}

	names := make(map[string]string)
	for _, b := range m.Builders {
		if other, ok := names[b.Name]; ok {
			return errs.Configf("tool name %q is declared twice (%s and %s)", b.Name, other, b.Type)
		}
		names[b.Name] = b.Type
	}
	for _, e := range m.Executors {
		if other, ok := names[e.Name]; ok {
			return errs.Configf("tool name %q is declared twice (%s and %s)", e.Name, other, e.Type)
		}
		names[e.Name] = e.Type
	}

	builders := make(map[string]bool, len(m.Builders))
	for _, b := range m.Builders {
		builders[b.Name] = true
	}
	executors := make(map[string]bool, len(m.Executors))
	for _, e := range m.Executors {
		executors[e.Name] = true
	}

	for i, tc := range m.Toolchains {
		if len(tc.Include) == 0 {
			return errs.Configf("toolchain #%d has an empty include list", i+1)
		}
		if len(m.Builders) == 0 {
			return errs.Configf("toolchain #%d has no builders: none are defined", i+1)
		}
		if len(m.Executors) == 0 {
			return errs.Configf("toolchain #%d has no executors: none are defined", i+1)
		}
		for _, name := range tc.Builders {
			if !builders[name] {
				return errs.Configf("toolchain #%d references unknown builder %q", i+1, name)
			}
		}
		for _, name := range tc.Executors {
			if !executors[name] {
				return errs.Configf("toolchain #%d references unknown executor %q", i+1, name)
			}
		}
	}
	return nil
}

// BuildersOf resolves a toolchain's builder names, defaulting to every
// defined builder.
func (m *Model) BuildersOf(tc *Toolchain) []*ToolBlock {
	return pick(m.Builders, tc.Builders)
}

// ExecutorsOf resolves a toolchain's executor names, defaulting to every
// defined executor.
func (m *Model) ExecutorsOf(tc *Toolchain) []*ToolBlock {
	return pick(m.Executors, tc.Executors)
}

func pick(all []*ToolBlock, names []string) []*ToolBlock {
	if len(names) == 0 {
		return all
	}
	out := make([]*ToolBlock, 0, len(names))
	for _, name := range names {
		for _, block := range all {
			if block.Name == name {
				out = append(out, block)
				break
			}
		}
	}
	return out
}
