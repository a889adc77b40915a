// Package copybuild provides the reference builder: it copies the matched
// suite files into the artifact directory unchanged and writes an entry
// manifest executors use to locate them. Real transform pipelines (bundlers)
// implement the same contract.
package copybuild

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"

	"github.com/vk/benchgrid/internal/tool"
)

// EntryName is the manifest file written at the artifact root.
const EntryName = "index.json"

// Module implements tool.Module for this package.
type Module struct{}

// Register exposes the "copy" builder type.
func (Module) Register(f *tool.Factories) {
	f.RegisterBuilder("copy", func(ctx context.Context, body hcl.Body, evalCtx *hcl.EvalContext) (tool.Builder, error) {
		var opts Options
		if diags := gohcl.DecodeBody(body, evalCtx, &opts); diags.HasErrors() {
			return nil, fmt.Errorf("decode copy builder options: %s", diags.Error())
		}
		return &Builder{opts: opts}, nil
	})
}

// Options configures the copy builder.
type Options struct {
	// SourceRoot is the directory suite files are read from, default the
	// working directory.
	SourceRoot string `hcl:"source_root,optional"`
}

// Builder is the copy builder instance.
type Builder struct {
	opts Options
}

// manifest is the entry-point document written to EntryName.
type manifest struct {
	Files []string `json:"files"`
}

// Build copies every suite file into outDir, preserving relative paths, and
// writes the entry manifest.
func (b *Builder) Build(ctx context.Context, outDir string, files []string) error {
	root := b.opts.SourceRoot
	if root == "" {
		root = "."
	}

	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		dst := filepath.Join(outDir, filepath.FromSlash(file))
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return err
		}
		if err := copyFile(filepath.Join(root, filepath.FromSlash(file)), dst); err != nil {
			return err
		}
	}

	entry, err := json.Marshal(manifest{Files: files})
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(outDir, EntryName), entry, 0o644)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
