// Package tool defines the builder and executor contracts, the streamed
// message protocol between executors and the coordinator, and the identity
// registry that names tool instances.
package tool

import (
	"context"

	"github.com/vk/benchgrid/internal/result"
)

// Builder transforms a set of suite source files into a self-contained,
// runnable artifact under outDir. The same files slice is later handed to
// executors, so its order is significant. Build must be idempotent per call;
// the coordinator supplies a fresh directory every time.
type Builder interface {
	Build(ctx context.Context, outDir string, files []string) error
}

// Executor runs built artifacts and streams per-file result messages into
// the ExecutionContext dispatch sink. Run returns when the underlying
// process or session exits; results arrive through Dispatch as a side
// channel while Run is still in flight.
type Executor interface {
	Run(ctx context.Context, ec *ExecutionContext) error
}

// Starter is implemented by executors that need a startup phase, e.g.
// launching a browser or a worker pool. Start may block on external
// readiness.
type Starter interface {
	Start(ctx context.Context) error
}

// Closer is implemented by executors holding a long-lived process or
// session. The coordinator calls Close unconditionally, on every exit path.
type Closer interface {
	Close(ctx context.Context) error
}

// ExecutionContext is passed to an executor's Run call. Dispatch is the sink
// the executor pushes streamed messages into; the coordinator resolves the
// build once every file in Files has a result message, or a terminal error
// message arrives.
type ExecutionContext struct {
	// Tempdir is a scratch directory private to this build step.
	Tempdir string
	// Root is the build artifact root produced by the builder.
	Root string
	// Files lists the suite files built into the artifact, in build order.
	Files []string
	// Pattern is the stringified case-name filter regex source, empty for
	// no filtering.
	Pattern string
	// Dispatch pushes one streamed message to the coordinator. Safe for
	// concurrent use.
	Dispatch func(Message)
}

// Message is one streamed record pushed by an executor.
type Message interface {
	message()
}

// LogMessage carries an interim log line from the executor environment.
type LogMessage struct {
	Level string // "info", "warn", "error" or "debug"
	Text  string
}

// ResultMessage delivers the complete record for one suite file. The record's
// builder and executor fields are filled in by the coordinator, not the
// executor.
type ResultMessage struct {
	File   string
	Record result.SuiteRecord
}

// ErrorMessage reports a terminal failure. A non-empty Params string marks a
// suite-level error: one specific case under one specific parameter
// combination failed, as opposed to the executor itself being broken.
type ErrorMessage struct {
	Params string
	Error  string
}

func (LogMessage) message()    {}
func (ResultMessage) message() {}
func (ErrorMessage) message()  {}
