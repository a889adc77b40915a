// Package engine is the execution coordinator: it runs each job of the
// matrix against its executor, manages the executor lifecycle, joins the
// streamed-result future with the run's exit signal, and accumulates tagged
// records into the raw result set.
package engine

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/vk/benchgrid/internal/ctxlog"
	"github.com/vk/benchgrid/internal/errs"
	"github.com/vk/benchgrid/internal/fsutil"
	"github.com/vk/benchgrid/internal/jobgen"
	"github.com/vk/benchgrid/internal/result"
	"github.com/vk/benchgrid/internal/tool"
)

// Engine coordinates job execution. Jobs run sequentially so at most one
// executor session is live at a time; builds within one job run sequentially
// against that session.
type Engine struct {
	tempDir string
	pattern string
}

// New creates an Engine. tempDir is the scratch tree shared with the
// builders; pattern is the case-name filter regex source handed to
// executors, empty for no filtering.
func New(tempDir, pattern string) *Engine {
	return &Engine{tempDir: tempDir, pattern: pattern}
}

// Run executes every job and returns the accumulated result set. The set
// holds everything collected up to the first failure, so callers can still
// persist partial data for diagnostics.
func (e *Engine) Run(ctx context.Context, jobs []*jobgen.Job) (result.Set, error) {
	set := result.Set{}
	for _, job := range jobs {
		if err := e.runJob(ctx, job, set); err != nil {
			return set, err
		}
	}
	return set, nil
}

func (e *Engine) runJob(ctx context.Context, job *jobgen.Job, set result.Set) (err error) {
	logger := ctxlog.FromContext(ctx).With("executor", job.ExecutorName)
	ctx = ctxlog.WithLogger(ctx, logger)

	if starter, ok := job.Executor.(tool.Starter); ok {
		logger.Debug("Starting executor.")
		if err := starter.Start(ctx); err != nil {
			return err
		}
	}
	// Release the session on every exit path, with a context that survives
	// the run's cancellation.
	defer func() {
		closer, ok := job.Executor.(tool.Closer)
		if !ok {
			return
		}
		logger.Debug("Closing executor.")
		if cerr := closer.Close(context.WithoutCancel(ctx)); cerr != nil {
			if err == nil {
				err = cerr
			} else {
				logger.Warn("Executor close failed.", "error", cerr)
			}
		}
	}()

	for _, build := range job.Builds {
		if err := e.runBuild(ctx, job, build, set); err != nil {
			return err
		}
	}
	return nil
}

// runBuild executes one build artifact against the job's executor. The
// executor's Run call and the collector's done future are awaited together;
// both must settle for the build to count as finished.
func (e *Engine) runBuild(ctx context.Context, job *jobgen.Job, build *jobgen.Artifact, set result.Set) error {
	logger := ctxlog.FromContext(ctx).With("builder", build.BuilderName)
	logger.Info("Running suites.", "files", len(build.Files))

	col := newCollector(logger, build.Files)
	ec := &tool.ExecutionContext{
		Tempdir:  e.tempDir,
		Root:     build.Root,
		Files:    build.Files,
		Pattern:  e.pattern,
		Dispatch: col.dispatch,
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		err := job.Executor.Run(egCtx, ec)
		if err == nil {
			col.eof()
		}
		return err
	})
	eg.Go(func() error {
		select {
		case err := <-col.done:
			return err
		case <-egCtx.Done():
			return egCtx.Err()
		}
	})

	if err := eg.Wait(); err != nil {
		// A suite-level failure means one case under one parameter
		// combination broke, not the toolchain. Log the context and
		// surface only the underlying cause.
		var e *errs.Error
		if errors.As(err, &e) && e.Kind == errs.KindSuiteCase && e.Cause != nil {
			logger.Error("Benchmark case failed.", "params", e.Params)
			return e.Cause
		}
		return err
	}

	for i, file := range build.Files {
		record := col.records[i]
		record.Builder = build.BuilderName
		record.Executor = job.ExecutorName
		key := fsutil.Normalize(file)
		set[key] = append(set[key], record)
	}
	logger.Debug("Build step finished.", "files", len(build.Files))
	return nil
}
