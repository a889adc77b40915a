package engine

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/vk/benchgrid/internal/errs"
	"github.com/vk/benchgrid/internal/fsutil"
	"github.com/vk/benchgrid/internal/result"
	"github.com/vk/benchgrid/internal/tool"
)

// collector is the receiving end of one build step's dispatch sink. It
// accumulates per-file result records and resolves its done future once
// every expected file has reported, or a terminal error message arrives.
type collector struct {
	logger *slog.Logger

	mu        sync.Mutex
	index     map[string]int
	records   []result.SuiteRecord
	got       []bool
	remaining int
	resolved  bool
	done      chan error
}

func newCollector(logger *slog.Logger, files []string) *collector {
	c := &collector{
		logger:    logger,
		index:     make(map[string]int, len(files)),
		records:   make([]result.SuiteRecord, len(files)),
		got:       make([]bool, len(files)),
		remaining: len(files),
		done:      make(chan error, 1),
	}
	for i, file := range files {
		c.index[fsutil.Normalize(file)] = i
	}
	return c
}

// dispatch is handed to the executor as the ExecutionContext sink. Safe for
// concurrent use.
func (c *collector) dispatch(msg tool.Message) {
	switch m := msg.(type) {
	case tool.LogMessage:
		c.log(m)
	case tool.ResultMessage:
		c.addResult(m)
	case tool.ErrorMessage:
		if m.Params != "" {
			c.resolve(errs.SuiteCase(m.Params, errors.New(m.Error)))
		} else {
			c.resolve(errs.Transportf("%s", m.Error))
		}
	}
}

func (c *collector) log(m tool.LogMessage) {
	switch m.Level {
	case "debug":
		c.logger.Debug(m.Text)
	case "warn":
		c.logger.Warn(m.Text)
	case "error":
		c.logger.Error(m.Text)
	default:
		c.logger.Info(m.Text)
	}
}

func (c *collector) addResult(m tool.ResultMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()

	file := fsutil.Normalize(m.File)
	idx, ok := c.index[file]
	if !ok {
		c.resolveLocked(errs.Transportf("executor reported a result for %q, which was not part of this build", file))
		return
	}
	if c.got[idx] {
		c.resolveLocked(errs.Transportf("executor reported a second result for %q", file))
		return
	}
	c.got[idx] = true
	c.records[idx] = m.Record
	c.remaining--
	if c.remaining == 0 {
		c.resolveLocked(nil)
	}
}

// eof marks the producing side as finished. If the executor exited cleanly
// without reporting every file, the build is a transport failure rather than
// a hang.
func (c *collector) eof() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.resolved {
		c.resolveLocked(errs.Transportf("executor exited before reporting results for %d of %d files", c.remaining, len(c.got)))
	}
}

func (c *collector) resolve(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resolveLocked(err)
}

func (c *collector) resolveLocked(err error) {
	if c.resolved {
		return
	}
	c.resolved = true
	c.done <- err
}
