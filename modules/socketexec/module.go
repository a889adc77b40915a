// Package socketexec provides the remote-agent executor: it connects to a
// long-lived benchmark agent (typically a browser page or a daemonized
// worker) over socket.io, forwards run commands, and streams the agent's
// result messages into the coordinator's dispatch sink. One connection is
// shared across every build of a job.
package socketexec

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/url"
	"path/filepath"
	"sync"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"

	"github.com/vk/benchgrid/internal/errs"
	"github.com/vk/benchgrid/internal/result"
	"github.com/vk/benchgrid/internal/tool"
)

// Module implements tool.Module for this package.
type Module struct{}

// Register exposes the "socket" executor type.
func (Module) Register(f *tool.Factories) {
	f.RegisterExecutor("socket", func(ctx context.Context, body hcl.Body, evalCtx *hcl.EvalContext) (tool.Executor, error) {
		var opts Options
		if diags := gohcl.DecodeBody(body, evalCtx, &opts); diags.HasErrors() {
			return nil, fmt.Errorf("decode socket executor options: %s", diags.Error())
		}
		if opts.URL == "" {
			return nil, fmt.Errorf("socket executor requires a url")
		}
		timeout := 30 * time.Second
		if opts.Timeout != "" {
			var err error
			if timeout, err = time.ParseDuration(opts.Timeout); err != nil {
				return nil, fmt.Errorf("invalid socket executor timeout: %w", err)
			}
		}
		return &Executor{opts: opts, timeout: timeout}, nil
	})
}

// Options configures the socket.io executor.
type Options struct {
	URL                string `hcl:"url"`
	Namespace          string `hcl:"namespace,optional"`
	Timeout            string `hcl:"timeout,optional"`
	InsecureSkipVerify bool   `hcl:"insecure_skip_verify,optional"`
}

// Executor is a connected remote-agent session.
type Executor struct {
	opts    Options
	timeout time.Duration

	manager *socket.Manager
	io      *socket.Socket

	mu       sync.Mutex
	dispatch func(tool.Message)
	done     chan error
}

// runCommand is the payload emitted to the agent for one build artifact.
type runCommand struct {
	Root    string   `json:"root"`
	Files   []string `json:"files"`
	Pattern string   `json:"pattern"`
}

// Start connects to the agent and blocks until the session is established.
func (e *Executor) Start(ctx context.Context) error {
	parsed, err := url.Parse(e.opts.URL)
	if err != nil {
		return fmt.Errorf("failed to parse agent URL: %w", err)
	}

	baseURL := fmt.Sprintf("%s://%s", parsed.Scheme, parsed.Host)
	opts := socket.DefaultOptions()
	opts.SetPath(parsed.Path)
	opts.SetTransports(types.NewSet(transports.WebSocket))
	if e.opts.InsecureSkipVerify {
		opts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}

	connected := make(chan error, 1)
	e.manager = socket.NewManager(baseURL, opts)
	e.io = e.manager.Socket(e.opts.Namespace, opts)

	e.io.On(types.EventName("connect"), func(...any) {
		select {
		case connected <- nil:
		default:
		}
	})
	e.io.On(types.EventName("connect_error"), func(args ...any) {
		err := errs.Transportf("agent connection failed")
		if len(args) > 0 {
			if cause, ok := args[0].(error); ok {
				err = errs.Transportf("agent connection failed: %v", cause)
			}
		}
		select {
		case connected <- err:
		default:
		}
	})
	e.io.On(types.EventName("log"), func(args ...any) {
		var m struct {
			Level string `json:"level"`
			Text  string `json:"text"`
		}
		if decodeEvent(args, &m) {
			e.send(tool.LogMessage{Level: m.Level, Text: m.Text})
		}
	})
	e.io.On(types.EventName("result"), func(args ...any) {
		var m struct {
			File   string             `json:"file"`
			Record result.SuiteRecord `json:"record"`
		}
		if decodeEvent(args, &m) {
			e.send(tool.ResultMessage{File: m.File, Record: m.Record})
		}
	})
	e.io.On(types.EventName("error"), func(args ...any) {
		var m struct {
			Params  string `json:"params"`
			Message string `json:"message"`
		}
		if decodeEvent(args, &m) {
			e.send(tool.ErrorMessage{Params: m.Params, Error: m.Message})
		}
	})
	e.io.On(types.EventName("done"), func(args ...any) {
		e.finish(nil)
	})
	e.io.On(types.EventName("disconnect"), func(...any) {
		e.finish(errs.Transportf("agent session closed unexpectedly"))
	})

	e.io.Connect()
	select {
	case err := <-connected:
		return err
	case <-time.After(e.timeout):
		return errs.Transportf("timed out connecting to agent at %s", e.opts.URL)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run forwards one build artifact to the agent and waits for its terminal
// "done" event. Result messages stream through the dispatch sink while the
// run is in flight.
func (e *Executor) Run(ctx context.Context, ec *tool.ExecutionContext) error {
	root, err := filepath.Abs(ec.Root)
	if err != nil {
		return err
	}

	done := make(chan error, 1)
	e.mu.Lock()
	e.dispatch = ec.Dispatch
	e.done = done
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		e.dispatch = nil
		e.done = nil
		e.mu.Unlock()
	}()

	e.io.Emit("run", runCommand{Root: root, Files: ec.Files, Pattern: ec.Pattern})

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close releases the agent session.
func (e *Executor) Close(ctx context.Context) error {
	if e.io != nil {
		e.io.Disconnect()
	}
	return nil
}

func (e *Executor) send(msg tool.Message) {
	e.mu.Lock()
	dispatch := e.dispatch
	e.mu.Unlock()
	if dispatch != nil {
		dispatch(msg)
	}
}

func (e *Executor) finish(err error) {
	e.mu.Lock()
	done := e.done
	e.done = nil
	e.mu.Unlock()
	if done != nil {
		done <- err
	}
}

// decodeEvent converts a socket.io event payload into a typed message via a
// JSON round trip.
func decodeEvent(args []any, target any) bool {
	if len(args) == 0 {
		return false
	}
	raw, err := json.Marshal(args[0])
	if err != nil {
		return false
	}
	return json.Unmarshal(raw, target) == nil
}
