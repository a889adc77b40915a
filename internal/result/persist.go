package result

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/gowebpki/jcs"
	"github.com/santhosh-tekuri/jsonschema/v6"

	schemafs "github.com/vk/benchgrid/schema"
)

var (
	resultSchema *jsonschema.Schema
	compileOnce  sync.Once
	compileErr   error
)

// compileSchema compiles the embedded result schema once.
func compileSchema() error {
	compileOnce.Do(func() {
		data, err := schemafs.FS.ReadFile("result.schema.json")
		if err != nil {
			compileErr = fmt.Errorf("read result schema: %w", err)
			return
		}
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
		if err != nil {
			compileErr = fmt.Errorf("unmarshal result schema: %w", err)
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("result.schema.json", doc); err != nil {
			compileErr = fmt.Errorf("add result schema resource: %w", err)
			return
		}
		resultSchema, compileErr = compiler.Compile("result.schema.json")
	})
	return compileErr
}

// Save writes the result set to path as canonical JSON (RFC 8785), so that
// two runs producing the same data produce byte-identical files.
func Save(path string, set Set) error {
	raw, err := json.Marshal(set)
	if err != nil {
		return fmt.Errorf("marshal result set: %w", err)
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return fmt.Errorf("canonicalize result set: %w", err)
	}
	if err := os.WriteFile(path, canonical, 0o644); err != nil {
		return fmt.Errorf("write result file %s: %w", path, err)
	}
	return nil
}

// Load reads a persisted result set from path, validating it against the
// embedded schema. When optional is true a missing file yields an empty set
// instead of an error; this is how a diff baseline is loaded.
func Load(path string, optional bool) (Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if optional && os.IsNotExist(err) {
			return Set{}, nil
		}
		return nil, fmt.Errorf("read result file %s: %w", path, err)
	}

	if err := compileSchema(); err != nil {
		return nil, err
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse result file %s: %w", path, err)
	}
	if err := resultSchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("result file %s does not match schema: %w", path, err)
	}

	var set Set
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("decode result file %s: %w", path, err)
	}
	return set, nil
}
