package tool

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hashicorp/hcl/v2"
)

// Module is the interface implemented by the packages under modules/ to
// expose their builder and executor types to the application.
type Module interface {
	Register(f *Factories)
}

// BuilderFactory constructs a builder instance from its HCL options body.
type BuilderFactory func(ctx context.Context, body hcl.Body, evalCtx *hcl.EvalContext) (Builder, error)

// ExecutorFactory constructs an executor instance from its HCL options body.
type ExecutorFactory func(ctx context.Context, body hcl.Body, evalCtx *hcl.EvalContext) (Executor, error)

// Factories holds the registered tool constructors, keyed by the type label
// used in `builder "<type>" "<name>" {}` and `executor "<type>" "<name>" {}`
// configuration blocks.
type Factories struct {
	builders  map[string]BuilderFactory
	executors map[string]ExecutorFactory
}

// NewFactories creates an empty factory table.
func NewFactories() *Factories {
	return &Factories{
		builders:  make(map[string]BuilderFactory),
		executors: make(map[string]ExecutorFactory),
	}
}

// RegisterBuilder registers a builder constructor for a type label.
func (f *Factories) RegisterBuilder(typ string, fn BuilderFactory) {
	if _, exists := f.builders[typ]; exists {
		panic(fmt.Sprintf("builder factory %q already registered", typ))
	}
	slog.Debug("Registering builder factory.", "type", typ)
	f.builders[typ] = fn
}

// RegisterExecutor registers an executor constructor for a type label.
func (f *Factories) RegisterExecutor(typ string, fn ExecutorFactory) {
	if _, exists := f.executors[typ]; exists {
		panic(fmt.Sprintf("executor factory %q already registered", typ))
	}
	slog.Debug("Registering executor factory.", "type", typ)
	f.executors[typ] = fn
}

// Builder looks up a builder factory by type label.
func (f *Factories) Builder(typ string) (BuilderFactory, bool) {
	fn, ok := f.builders[typ]
	return fn, ok
}

// Executor looks up an executor factory by type label.
func (f *Factories) Executor(typ string) (ExecutorFactory, bool) {
	fn, ok := f.executors[typ]
	return fn, ok
}
