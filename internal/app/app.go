// Package app wires the harness together: it builds the logger, registers
// the tool modules, loads the configuration model, and owns the
// generate→execute→report pipeline of one run.
package app

import (
	"io"
	"log/slog"

	"github.com/vk/benchgrid/internal/tool"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW      io.Writer
	logger    *slog.Logger
	factories *tool.Factories
}

// New is the constructor for the main application. It returns a fully
// initialized App instance with its own isolated logger and factory table.
// When no modules are given, the core modules are registered.
func New(outW io.Writer, errW io.Writer, cfg *Config, modules ...tool.Module) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, errW)
	logger.Debug("Logger configured successfully.")

	factories := tool.NewFactories()
	if len(modules) == 0 {
		modules = coreModules
	}
	for _, mod := range modules {
		mod.Register(factories)
	}
	logger.Debug("Tool modules registered.", "count", len(modules))

	return &App{
		outW:      outW,
		logger:    logger,
		factories: factories,
	}
}

// Factories returns the registered tool factories. Primarily for testing.
func (a *App) Factories() *tool.Factories {
	return a.factories
}
