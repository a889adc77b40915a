// Package errs provides the structured error types and exit codes shared
// across benchgrid. Every user-facing failure is classified by Kind so the
// CLI can map it to a stable exit code and reporters can decide whether the
// collected raw data is still worth keeping.
package errs

import (
	"errors"
	"fmt"
)

// Exit codes surfaced by the CLI.
const (
	ExitSuccess      = 0
	ExitRuntimeError = 1 // build, transport, or other runtime failure
	ExitConfigError  = 2 // invalid configuration, nothing was executed
	ExitReportError  = 3 // run completed but report assembly failed
)

// Kind classifies an error.
type Kind int

const (
	// KindRuntime is the catch-all for unexpected failures.
	KindRuntime Kind = iota
	// KindConfig covers invalid toolchain/report configuration: no builders,
	// no executors, no included files, duplicate tool names.
	KindConfig
	// KindBuild marks a builder's transform step failing.
	KindBuild
	// KindSuiteCase marks a specific benchmark case failing under specific
	// parameters. It always wraps the underlying cause and carries the
	// parameter-context string for diagnostics.
	KindSuiteCase
	// KindTransport marks an executor process/session exiting abnormally or
	// its message channel closing unexpectedly.
	KindTransport
	// KindBaseline marks a configured baseline row that is absent from the
	// observed result rows. Raised at table-assembly time, never at run time.
	KindBaseline
	// KindMetricShape marks a contract violation between suite code and the
	// summary engine: a Statistics metric with a non-series value, a scene
	// count that does not match the parameter matrix, or conflicting metric
	// metadata.
	KindMetricShape
)

// Error is the base error type for benchgrid.
type Error struct {
	Kind    Kind
	Message string
	Params  string // parameter-context string for suite-case errors
	Cause   error
}

func (e *Error) Error() string {
	if e.Message == "" && e.Cause != nil {
		return e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// ExitCode returns the exit code this error maps to.
func (e *Error) ExitCode() int {
	switch e.Kind {
	case KindConfig:
		return ExitConfigError
	case KindBaseline, KindMetricShape:
		return ExitReportError
	default:
		return ExitRuntimeError
	}
}

// Config creates a configuration error.
func Config(message string) *Error {
	return &Error{Kind: KindConfig, Message: message}
}

// Configf creates a configuration error with formatting.
func Configf(format string, args ...any) *Error {
	return Config(fmt.Sprintf(format, args...))
}

// Build wraps a builder failure.
func Build(builder string, cause error) *Error {
	return &Error{
		Kind:    KindBuild,
		Message: fmt.Sprintf("builder %q failed: %v", builder, cause),
		Cause:   cause,
	}
}

// SuiteCase wraps the failure of one benchmark case. params is the
// human-readable parameter-combination string reported by the executor.
func SuiteCase(params string, cause error) *Error {
	return &Error{Kind: KindSuiteCase, Params: params, Cause: cause}
}

// Transport creates an executor transport error.
func Transportf(format string, args ...any) *Error {
	return &Error{Kind: KindTransport, Message: fmt.Sprintf(format, args...)}
}

// Baseline creates a missing-baseline error.
func Baselinef(format string, args ...any) *Error {
	return &Error{Kind: KindBaseline, Message: fmt.Sprintf(format, args...)}
}

// MetricShape creates a metric contract-violation error.
func MetricShapef(format string, args ...any) *Error {
	return &Error{Kind: KindMetricShape, Message: fmt.Sprintf(format, args...)}
}

// IsKind reports whether err or any error in its chain is an *Error of the
// given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	for errors.As(err, &e) {
		if e.Kind == kind {
			return true
		}
		err = e.Cause
		if err == nil {
			return false
		}
	}
	return false
}

// GetExitCode returns the exit code for an arbitrary error.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var e *Error
	if errors.As(err, &e) {
		return e.ExitCode()
	}
	return ExitRuntimeError
}
