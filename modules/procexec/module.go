// Package procexec provides the subprocess executor: it launches a worker
// command against each build artifact and streams the newline-delimited JSON
// messages the worker writes to stdout into the coordinator's dispatch sink.
package procexec

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"

	"github.com/vk/benchgrid/internal/errs"
	"github.com/vk/benchgrid/internal/result"
	"github.com/vk/benchgrid/internal/tool"
)

// Module implements tool.Module for this package.
type Module struct{}

// Register exposes the "process" executor type.
func (Module) Register(f *tool.Factories) {
	f.RegisterExecutor("process", func(ctx context.Context, body hcl.Body, evalCtx *hcl.EvalContext) (tool.Executor, error) {
		var opts Options
		if diags := gohcl.DecodeBody(body, evalCtx, &opts); diags.HasErrors() {
			return nil, fmt.Errorf("decode process executor options: %s", diags.Error())
		}
		if opts.Command == "" {
			return nil, fmt.Errorf("process executor requires a command")
		}
		return &Executor{opts: opts}, nil
	})
}

// Options configures the subprocess executor.
type Options struct {
	// Command is the worker binary or interpreter to launch.
	Command string `hcl:"command"`
	// Args are prepended before the artifact root argument.
	Args []string `hcl:"args,optional"`
}

// Executor launches one worker process per build artifact. The worker
// receives the artifact root as its last argument and the execution details
// in the environment; it reports through stdout, one JSON message per line.
type Executor struct {
	opts Options
}

// envelope is the wire form of one worker message.
type envelope struct {
	Log    *logMessage    `json:"log,omitempty"`
	Result *resultMessage `json:"result,omitempty"`
	Error  *errorMessage  `json:"error,omitempty"`
}

type logMessage struct {
	Level string `json:"level"`
	Text  string `json:"text"`
}

type resultMessage struct {
	File   string             `json:"file"`
	Record result.SuiteRecord `json:"record"`
}

type errorMessage struct {
	Params  string `json:"params,omitempty"`
	Message string `json:"message"`
}

// Run executes the worker process and pumps its stdout into the dispatch
// sink until the process exits.
func (e *Executor) Run(ctx context.Context, ec *tool.ExecutionContext) error {
	files, err := json.Marshal(ec.Files)
	if err != nil {
		return err
	}
	root, err := filepath.Abs(ec.Root)
	if err != nil {
		return err
	}

	args := append(append([]string(nil), e.opts.Args...), root)
	cmd := exec.CommandContext(ctx, e.opts.Command, args...)
	cmd.Env = append(os.Environ(),
		"BENCHGRID_ROOT="+root,
		"BENCHGRID_TEMPDIR="+ec.Tempdir,
		"BENCHGRID_PATTERN="+ec.Pattern,
		"BENCHGRID_FILES="+string(files),
	)
	cmd.Stderr = os.Stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return errs.Transportf("failed to start worker %q: %v", e.opts.Command, err)
	}

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var env envelope
		if err := json.Unmarshal(line, &env); err != nil {
			ec.Dispatch(tool.LogMessage{Level: "warn", Text: "unparseable worker message: " + string(line)})
			continue
		}
		dispatch(ec, env)
	}

	if err := cmd.Wait(); err != nil {
		return errs.Transportf("worker %q exited abnormally: %v", e.opts.Command, err)
	}
	if err := scanner.Err(); err != nil {
		return errs.Transportf("worker %q output channel failed: %v", e.opts.Command, err)
	}
	return nil
}

func dispatch(ec *tool.ExecutionContext, env envelope) {
	switch {
	case env.Log != nil:
		ec.Dispatch(tool.LogMessage{Level: env.Log.Level, Text: env.Log.Text})
	case env.Result != nil:
		ec.Dispatch(tool.ResultMessage{File: env.Result.File, Record: env.Result.Record})
	case env.Error != nil:
		ec.Dispatch(tool.ErrorMessage{Params: env.Error.Params, Error: env.Error.Message})
	}
}
