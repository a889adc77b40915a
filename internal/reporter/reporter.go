// Package reporter consumes the merged result set after a run. The raw
// reporter persists it as canonical JSON; the text reporter drives the
// summary and table engines and renders the outcome to a writer.
package reporter

import (
	"context"

	"github.com/vk/benchgrid/internal/ctxlog"
	"github.com/vk/benchgrid/internal/result"
)

// Reporter receives the merged current result set and, when a diff baseline
// is configured, the previous run's set.
type Reporter interface {
	Report(ctx context.Context, cur, prev result.Set) error
}

// Raw persists the current result set to a file. It is deliberately first
// in the reporter chain, so raw data survives report-assembly failures.
type Raw struct {
	Path string
}

// Report writes cur to the configured path as canonical JSON.
func (r *Raw) Report(ctx context.Context, cur, prev result.Set) error {
	if err := result.Save(r.Path, cur); err != nil {
		return err
	}
	ctxlog.FromContext(ctx).Info("Raw results saved.", "path", r.Path)
	return nil
}
