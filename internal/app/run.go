package app

import (
	"context"
	"fmt"
	"os"
	"regexp"

	"github.com/hashicorp/hcl/v2"

	"github.com/vk/benchgrid/internal/config"
	"github.com/vk/benchgrid/internal/ctxlog"
	"github.com/vk/benchgrid/internal/engine"
	"github.com/vk/benchgrid/internal/errs"
	"github.com/vk/benchgrid/internal/fsutil"
	"github.com/vk/benchgrid/internal/jobgen"
	"github.com/vk/benchgrid/internal/reporter"
	"github.com/vk/benchgrid/internal/result"
	"github.com/vk/benchgrid/internal/stats"
	"github.com/vk/benchgrid/internal/table"
	"github.com/vk/benchgrid/internal/tool"
)

// Run executes one full benchmark run: load config, build artifacts, run
// the job matrix, then hand the merged result set to the reporters.
func (a *App) Run(ctx context.Context, cfg *Config) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)

	model, err := config.Load(ctx, cfg.ConfigPath)
	if err != nil {
		return err
	}
	opts, err := reportOptions(model.Report)
	if err != nil {
		return err
	}

	evalCtx := config.EvalContext()
	builders, executors, err := a.instantiate(ctx, model, evalCtx)
	if err != nil {
		return err
	}

	tempDir, err := os.MkdirTemp("", "benchgrid-*")
	if err != nil {
		return fmt.Errorf("create temp directory: %w", err)
	}
	// The temp tree lives until all reporting completes. Cleanup failure
	// must never mask the run's actual outcome.
	defer func() {
		if rmErr := os.RemoveAll(tempDir); rmErr != nil {
			a.logger.Warn("Failed to clean up temp directory.", "path", tempDir, "error", rmErr)
		}
	}()

	set, err := a.execute(ctx, cfg, model, builders, executors, tempDir)
	if err != nil {
		return err
	}

	var prev result.Set
	if cfg.DiffPath != "" {
		prev, err = result.Load(cfg.DiffPath, true)
		if err != nil {
			return err
		}
	}

	// The raw reporter runs first so collected data survives a failed
	// report assembly.
	var reporters []reporter.Reporter
	if cfg.OutPath != "" {
		reporters = append(reporters, &reporter.Raw{Path: cfg.OutPath})
	}
	reporters = append(reporters, &reporter.Text{Out: a.outW, Options: opts, Color: !cfg.NoColor})

	for _, rep := range reporters {
		if err := rep.Report(ctx, set, prev); err != nil {
			return err
		}
	}
	return nil
}

// instantiate constructs every declared builder and executor through its
// registered factory.
func (a *App) instantiate(ctx context.Context, model *config.Model, evalCtx *hcl.EvalContext) (map[string]tool.Builder, map[string]tool.Executor, error) {
	builders := make(map[string]tool.Builder, len(model.Builders))
	for _, block := range model.Builders {
		factory, ok := a.factories.Builder(block.Type)
		if !ok {
			return nil, nil, errs.Configf("unknown builder type %q for builder %q", block.Type, block.Name)
		}
		b, err := factory(ctx, block.Options, evalCtx)
		if err != nil {
			return nil, nil, errs.Configf("builder %q: %v", block.Name, err)
		}
		builders[block.Name] = b
	}

	executors := make(map[string]tool.Executor, len(model.Executors))
	for _, block := range model.Executors {
		factory, ok := a.factories.Executor(block.Type)
		if !ok {
			return nil, nil, errs.Configf("unknown executor type %q for executor %q", block.Type, block.Name)
		}
		e, err := factory(ctx, block.Options, evalCtx)
		if err != nil {
			return nil, nil, errs.Configf("executor %q: %v", block.Name, err)
		}
		executors[block.Name] = e
	}
	return builders, executors, nil
}

func (a *App) execute(
	ctx context.Context,
	cfg *Config,
	model *config.Model,
	builders map[string]tool.Builder,
	executors map[string]tool.Executor,
	tempDir string,
) (result.Set, error) {
	builderRe, err := compileFilter(cfg.BuilderFilter)
	if err != nil {
		return nil, err
	}
	executorRe, err := compileFilter(cfg.ExecutorFilter)
	if err != nil {
		return nil, err
	}
	var shared *fsutil.Shared
	if cfg.Shared != "" {
		shared, err = fsutil.ParseShared(cfg.Shared)
		if err != nil {
			return nil, errs.Configf("%v", err)
		}
	}

	reg := tool.NewRegistry()
	gen := jobgen.New(reg, ".", tempDir, builderRe, executorRe)
	for _, tc := range model.Toolchains {
		chain := jobgen.Toolchain{Include: tc.Include}
		for _, block := range model.BuildersOf(tc) {
			chain.Builders = append(chain.Builders, jobgen.NamedBuilder{Name: block.Name, Builder: builders[block.Name]})
		}
		for _, block := range model.ExecutorsOf(tc) {
			chain.Executors = append(chain.Executors, jobgen.NamedExecutor{Name: block.Name, Executor: executors[block.Name]})
		}
		if err := gen.Add(ctx, chain); err != nil {
			return nil, err
		}
	}

	if err := gen.Build(ctx, shared, cfg.File); err != nil {
		return nil, err
	}
	jobs := gen.Jobs()
	if len(jobs) == 0 {
		return nil, errs.Config("no files match the include patterns")
	}

	a.logger.Info("Starting execution.", "jobs", len(jobs))
	eng := engine.New(tempDir, cfg.Pattern)
	set, err := eng.Run(ctx, jobs)
	if err != nil {
		return nil, err
	}
	a.logger.Info("Execution finished.", "suites", len(set))
	return set, nil
}

func compileFilter(src string) (*regexp.Regexp, error) {
	if src == "" {
		return nil, nil
	}
	re, err := regexp.Compile(src)
	if err != nil {
		return nil, errs.Configf("invalid name filter %q: %v", src, err)
	}
	return re, nil
}

// reportOptions maps the report config block onto table options.
func reportOptions(r *config.Report) (table.Options, error) {
	if r == nil {
		return table.Options{}, nil
	}
	opts := table.Options{
		Stdev:       r.Stdev,
		Percentiles: r.Percentiles,
		Outliers:    stats.OutlierMode(r.Outliers),
		RatioStyle:  table.RatioStyle(r.RatioStyle),
		ShowSingle:  r.ShowSingle,
		FlexUnit:    r.FlexUnit,
	}
	if !opts.Outliers.Valid() {
		return opts, errs.Configf("invalid outliers mode %q, expected \"all\", \"best\" or \"worst\"", r.Outliers)
	}
	if r.Baseline != nil {
		opts.Baseline = &table.Baseline{Type: r.Baseline.Type, Value: r.Baseline.Value}
	}
	return opts, nil
}
