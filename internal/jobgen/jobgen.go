// Package jobgen turns toolchain specs into the executable job matrix: it
// resolves include patterns, invokes builders into fresh artifact
// directories, and pairs every executor with the artifacts of its associated
// builders.
package jobgen

import (
	"context"
	"os"
	"path/filepath"
	"regexp"

	"golang.org/x/sync/errgroup"

	"github.com/vk/benchgrid/internal/ctxlog"
	"github.com/vk/benchgrid/internal/errs"
	"github.com/vk/benchgrid/internal/fsutil"
	"github.com/vk/benchgrid/internal/tool"
)

// Artifact is the output of one builder invocation. Files is the ordered
// list of suite files actually matched and built; executors return result
// records in the same order.
type Artifact struct {
	BuilderName string
	Root        string
	Files       []string
}

// Job pairs one executor with every artifact it must run.
type Job struct {
	ExecutorName string
	Executor     tool.Executor
	Builds       []*Artifact
}

// Toolchain is one resolved toolchain spec: include patterns plus the
// builder and executor instances, already looked up by name.
type Toolchain struct {
	Include   []string
	Builders  []NamedBuilder
	Executors []NamedExecutor
}

// NamedBuilder carries a builder instance with its registered name.
type NamedBuilder struct {
	Name    string
	Builder tool.Builder
}

// NamedExecutor carries an executor instance with its registered name.
type NamedExecutor struct {
	Name     string
	Executor tool.Executor
}

type builderEntry struct {
	id       tool.ID
	builder  tool.Builder
	patterns []string
	seen     map[string]bool
	artifact *Artifact
}

type executorEntry struct {
	id       tool.ID
	executor tool.Executor
	builders map[tool.ID]bool
}

// Generator accumulates toolchain specs and produces the job matrix.
// Entries are kept in registration order so the matrix is deterministic for
// a given configuration.
type Generator struct {
	reg     *tool.Registry
	root    string
	tempDir string

	builderFilter  *regexp.Regexp
	executorFilter *regexp.Regexp

	builders      []*builderEntry
	builderIndex  map[tool.ID]*builderEntry
	executors     []*executorEntry
	executorIndex map[tool.ID]*executorEntry
}

// New creates a Generator resolving include patterns against root and
// building artifacts under tempDir. The optional name filters narrow which
// builders and executors of each added toolchain take part in the run.
func New(reg *tool.Registry, root, tempDir string, builderFilter, executorFilter *regexp.Regexp) *Generator {
	return &Generator{
		reg:            reg,
		root:           root,
		tempDir:        tempDir,
		builderFilter:  builderFilter,
		executorFilter: executorFilter,
		builderIndex:   make(map[tool.ID]*builderEntry),
		executorIndex:  make(map[tool.ID]*executorEntry),
	}
}

// Add registers a toolchain's builders and executors and records their
// association: every executor added by this call is paired with every
// builder added by this call.
func (g *Generator) Add(ctx context.Context, chain Toolchain) error {
	if len(chain.Include) == 0 {
		return errs.Config("toolchain include list must not be empty")
	}

	var added []tool.ID
	for _, nb := range chain.Builders {
		if g.builderFilter != nil && !g.builderFilter.MatchString(nb.Name) {
			continue
		}
		id, err := g.reg.Register(nb.Builder, nb.Name)
		if err != nil {
			return err
		}
		entry, ok := g.builderIndex[id]
		if !ok {
			entry = &builderEntry{id: id, builder: nb.Builder, seen: make(map[string]bool)}
			g.builderIndex[id] = entry
			g.builders = append(g.builders, entry)
		}
		for _, pattern := range chain.Include {
			normalized := fsutil.Normalize(pattern)
			if !entry.seen[normalized] {
				entry.seen[normalized] = true
				entry.patterns = append(entry.patterns, normalized)
			}
		}
		added = append(added, id)
	}
	if len(added) == 0 {
		return errs.Config("toolchain has no builders after filtering")
	}

	executors := 0
	for _, ne := range chain.Executors {
		if g.executorFilter != nil && !g.executorFilter.MatchString(ne.Name) {
			continue
		}
		id, err := g.reg.Register(ne.Executor, ne.Name)
		if err != nil {
			return err
		}
		entry, ok := g.executorIndex[id]
		if !ok {
			entry = &executorEntry{id: id, executor: ne.Executor, builders: make(map[tool.ID]bool)}
			g.executorIndex[id] = entry
			g.executors = append(g.executors, entry)
		}
		for _, builderID := range added {
			entry.builders[builderID] = true
		}
		executors++
	}
	if executors == 0 {
		return errs.Config("toolchain has no executors after filtering")
	}
	return nil
}

// Build resolves every builder's include patterns and invokes the builders
// concurrently, each into its own fresh subdirectory of the temp tree. A
// builder whose resolved file list is empty is skipped entirely: no
// artifact, no jobs. shared and file further narrow the resolved set; file
// is a single-suite filter matched against normalized paths.
func (g *Generator) Build(ctx context.Context, shared *fsutil.Shared, file string) error {
	logger := ctxlog.FromContext(ctx)

	eg, ctx := errgroup.WithContext(ctx)
	for _, entry := range g.builders {
		eg.Go(func() error {
			name := g.reg.NameOf(entry.id)
			files, err := fsutil.Resolve(g.root, entry.patterns)
			if err != nil {
				return err
			}
			if shared != nil {
				files = shared.Partition(files)
			}
			if file != "" {
				files = filterFile(files, fsutil.Normalize(file))
			}
			if len(files) == 0 {
				logger.Debug("Builder matched no files, skipping.", "builder", name)
				return nil
			}

			outDir := filepath.Join(g.tempDir, name)
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return errs.Build(name, err)
			}
			logger.Info("Building artifact.", "builder", name, "files", len(files))
			if err := entry.builder.Build(ctx, outDir, files); err != nil {
				return errs.Build(name, err)
			}
			entry.artifact = &Artifact{BuilderName: name, Root: outDir, Files: files}
			return nil
		})
	}
	return eg.Wait()
}

// Jobs returns the executor→builds matrix. Executors whose associated
// builders all produced empty artifacts are omitted. An empty matrix means
// no suite file matched any toolchain, which the caller reports as a
// user-facing condition.
func (g *Generator) Jobs() []*Job {
	var jobs []*Job
	for _, entry := range g.executors {
		var builds []*Artifact
		for _, b := range g.builders {
			if entry.builders[b.id] && b.artifact != nil {
				builds = append(builds, b.artifact)
			}
		}
		if len(builds) == 0 {
			continue
		}
		jobs = append(jobs, &Job{
			ExecutorName: g.reg.NameOf(entry.id),
			Executor:     entry.executor,
			Builds:       builds,
		})
	}
	return jobs
}

func filterFile(files []string, want string) []string {
	var out []string
	for _, f := range files {
		if f == want || fsutil.MatchGlob(want, f) {
			out = append(out, f)
		}
	}
	return out
}
